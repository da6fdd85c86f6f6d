package ledger

import (
	"context"
)

type payoutGetter interface {
	GetAgentPayout(ctx context.Context, agentCode string) (Info, error)
}

// CachedClient answers from the cache when it can and falls back to
// the ledger service otherwise. A nil cache disables caching.
type CachedClient struct {
	client payoutGetter
	cache  Cache
}

func NewCachedClient(client payoutGetter, cache Cache) *CachedClient {
	return &CachedClient{
		client: client,
		cache:  cache,
	}
}

func (c *CachedClient) GetAgentPayout(ctx context.Context, agentCode string,
) (Info, error) {
	if c.cache != nil {
		if total, ok := c.cache.Get(ctx, agentCode); ok {
			return Info{AgentCode: agentCode, TotalPaid: total}, nil
		}
	}

	info, err := c.client.GetAgentPayout(ctx, agentCode)
	if err != nil {
		return info, err
	}

	if c.cache != nil {
		c.cache.Set(ctx, agentCode, info.TotalPaid)
	}
	return info, nil
}
