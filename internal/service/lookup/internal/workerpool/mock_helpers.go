package workerpool

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insurezeal/backoffice/internal/ledger"
	"github.com/insurezeal/backoffice/internal/model"
	"github.com/insurezeal/backoffice/internal/serviceerrs"
)

// MockLedgerClient scripts replies by agent code: codes starting with
// "2" resolve to a total equal to the code itself, "204" is an unknown
// agent, "429" trips the rate limit, "428" answers slowly and codes
// starting with "5" fail.
type MockLedgerClient struct {
	mu    sync.Mutex
	calls int
}

func ConfigureMockLedgerClient(t *testing.T) *MockLedgerClient {
	t.Helper()

	return &MockLedgerClient{}
}

func (m *MockLedgerClient) GetAgentPayout(_ context.Context, agentCode string,
) (ledger.Info, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	switch {
	case agentCode == "204":
		return ledger.Info{}, serviceerrs.ErrNoContent
	case agentCode == "429":
		return ledger.Info{},
			&serviceerrs.TooManyRequestsError{
				RetryAfter: model.DefaultTimeout,
				RPM:        1,
			}
	case agentCode == "428":
		const multiplier = 2
		time.Sleep(multiplier * model.DefaultTimeout)
		return ledger.Info{
			AgentCode: agentCode,
			TotalPaid: decimal.NewFromInt(428),
		}, nil
	case strings.HasPrefix(agentCode, "5"):
		return ledger.Info{}, serviceerrs.ErrUnexpected
	case strings.HasPrefix(agentCode, "2"):
		total, err := decimal.NewFromString(agentCode)
		if err != nil {
			return ledger.Info{}, err
		}
		return ledger.Info{AgentCode: agentCode, TotalPaid: total}, nil
	}
	return ledger.Info{}, nil
}

func (m *MockLedgerClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type MockAlwaysTimeoutSemaphore struct{}

func ConfigureMockAlwaysTimeoutExceedSemaphore(t *testing.T) *MockAlwaysTimeoutSemaphore {
	t.Helper()

	return &MockAlwaysTimeoutSemaphore{}
}

func (*MockAlwaysTimeoutSemaphore) AcquireWithTimeout(_ time.Duration) error {
	return serviceerrs.ErrSemaphoreTimeoutExceeded
}

func (*MockAlwaysTimeoutSemaphore) ChangeMaxRequests(_ uint64) {}

func (*MockAlwaysTimeoutSemaphore) Release() {}
