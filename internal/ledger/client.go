// Package ledger talks to the prior-payout ledger service: the system
// of record for how much has already been paid out to each agent code.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/insurezeal/backoffice/internal/model"
	"github.com/insurezeal/backoffice/internal/serviceerrs"
	"github.com/insurezeal/backoffice/internal/utils/logger"
)

// Info is the ledger service's reply for one agent code.
type Info struct {
	AgentCode string          `json:"agent_code"`
	TotalPaid decimal.Decimal `json:"total_paid"`
}

type Client struct {
	client        http.Client
	ledgerAddress string
}

func New(ledgerAddress string) *Client {
	return &Client{
		client:        http.Client{},
		ledgerAddress: ledgerAddress,
	}
}

// GetAgentPayout looks up the cumulative amount already paid to the
// agent. An unknown agent is ErrNoContent, which callers treat as 0.
func (c *Client) GetAgentPayout(ctx context.Context, agentCode string,
) (Info, error) {
	path := url.URL{
		Scheme: "http",
		Host:   c.ledgerAddress,
		Path:   "/api/payouts/" + agentCode,
	}

	tCtx, cancel := context.WithTimeout(ctx, model.DefaultTimeout)
	defer cancel()
	request, err := http.NewRequestWithContext(
		tCtx, http.MethodGet, path.String(), http.NoBody)
	if err != nil {
		return Info{},
			fmt.Errorf("failed to create the request: %w", err)
	}
	resp, err := c.client.Do(request)
	if err != nil {
		return Info{},
			fmt.Errorf("failed to send request to ledger: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	defer func() {
		if err = resp.Body.Close(); err != nil {
			log := logger.FromContext(ctx)
			log.LogAttrs(
				ctx,
				slog.LevelError,
				"failed to close the response body",
				slog.Any(model.KeyLoggerError, err),
			)
		}
	}()
	if err != nil {
		return Info{},
			fmt.Errorf("failed to read the body: %w", err)
	}

	data, err := c.handleRequestData(resp, body)
	var throttled *serviceerrs.TooManyRequestsError
	if err == nil ||
		errors.As(err, &throttled) ||
		errors.Is(err, serviceerrs.ErrNoContent) {
		return data, err
	}

	return data, fmt.Errorf("request ledger failed: %w", err)
}

func (c *Client) handleRequestData(resp *http.Response, body []byte,
) (Info, error) {
	switch resp.StatusCode {
	case http.StatusOK:
		if ct := resp.Header.Get(model.HeaderContentType); !strings.HasPrefix(ct, "application/json") {
			return Info{},
				fmt.Errorf("unexpected content type %s", ct)
		}
		data := Info{}
		if err := json.Unmarshal(body, &data); err != nil {
			return Info{},
				fmt.Errorf("request decoding error: %w", err)
		}
		return data, nil
	case http.StatusNoContent, http.StatusNotFound:
		return Info{}, serviceerrs.ErrNoContent
	case http.StatusTooManyRequests:
		retryAfter := resp.Header.Get(model.HeaderRetryAfter)
		if retryAfter == "" {
			return Info{},
				errors.New("empty retry-after value")
		}
		ra, err := strconv.Atoi(retryAfter)
		if err != nil {
			return Info{},
				fmt.Errorf("retry after atoi failed: %w", err)
		}

		rpm, err := c.parseBody(body)
		if err != nil {
			return Info{},
				fmt.Errorf("failed to parse the body: %w", err)
		}

		return Info{},
			&serviceerrs.TooManyRequestsError{
				RetryAfter: time.Duration(ra) * time.Second,
				RPM:        rpm,
			}
	case http.StatusInternalServerError:
		return Info{},
			fmt.Errorf("ledger service error\nBody: %s", string(body))
	}

	return Info{},
		fmt.Errorf("unexpected status: %d\nBody: %s",
			resp.StatusCode, string(body))
}

func (c *Client) parseBody(b []byte) (uint64, error) {
	msg := string(b)
	const prefix = "No more than "
	const suffix = " requests per minute allowed"

	if !strings.HasPrefix(msg, prefix) || !strings.HasSuffix(msg, suffix) {
		return 0, fmt.Errorf("unexpected message format: %s", msg)
	}

	numStr := strings.TrimSuffix(strings.TrimPrefix(msg, prefix), suffix)

	var n uint64
	_, err := fmt.Sscanf(numStr, "%d", &n)
	if err != nil {
		return 0, fmt.Errorf("failed to parse number: %w", err)
	}

	return n, nil
}
