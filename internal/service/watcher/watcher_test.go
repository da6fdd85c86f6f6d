package watcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insurezeal/backoffice/internal/model"
	"github.com/insurezeal/backoffice/internal/service/dto"
	"github.com/insurezeal/backoffice/internal/serviceerrs"
)

type appliedTotal struct {
	id        uuid.UUID
	agentCode string
	total     decimal.Decimal
}

type fakeTransactionRepo struct {
	mu         sync.Mutex
	pending    []dto.LookupJob
	requested  []uuid.UUID
	requeued   []uuid.UUID
	resets     int
	applied    []appliedTotal
	failed     []uuid.UUID
	applyErr   error
	applyCalls int
}

func (f *fakeTransactionRepo) SelectPendingLedger(_ context.Context, _ int,
) ([]dto.LookupJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	jobs := f.pending
	f.pending = nil
	return jobs, nil
}

func (f *fakeTransactionRepo) MarkLedgerRequested(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = append(f.requested, id)
	return nil
}

func (f *fakeTransactionRepo) RequeueLedgerLookup(_ context.Context,
	id uuid.UUID, _ string,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requeued = append(f.requeued, id)
	return nil
}

func (f *fakeTransactionRepo) ResetRequestedLedger(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return nil
}

func (f *fakeTransactionRepo) ApplyLedgerResult(_ context.Context,
	id uuid.UUID, agentCode string, total decimal.Decimal,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applyCalls++
	if f.applyErr != nil {
		return f.applyErr
	}
	f.applied = append(f.applied, appliedTotal{
		id:        id,
		agentCode: agentCode,
		total:     total,
	})
	return nil
}

func (f *fakeTransactionRepo) MarkLedgerFailed(_ context.Context,
	id uuid.UUID, _ string,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeTransactionRepo) setApplyErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applyErr = err
}

func startWatcher(t *testing.T, repo *fakeTransactionRepo,
) (context.CancelFunc, chan dto.LookupJob, chan dto.LookupResult, chan struct{}) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	jobsCh := make(chan dto.LookupJob, model.DefaultChannelCapacity)
	resultsCh := make(chan dto.LookupResult)
	w := New(repo, jobsCh, resultsCh)

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	return cancel, jobsCh, resultsCh, done
}

func stopWatcher(t *testing.T, cancel context.CancelFunc,
	resultsCh chan dto.LookupResult, done chan struct{},
) {
	t.Helper()

	cancel()
	close(resultsCh)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_enqueuesPendingLookups(t *testing.T) {
	jobs := []dto.LookupJob{
		{TransactionID: uuid.New(), AgentCode: "AG001"},
		{TransactionID: uuid.New(), AgentCode: "AG002"},
	}
	repo := &fakeTransactionRepo{pending: jobs}
	cancel, jobsCh, resultsCh, done := startWatcher(t, repo)

	got := make([]dto.LookupJob, 0, len(jobs))
	timeout := time.After(2 * model.WatcherTickTimeout)
	for len(got) < len(jobs) {
		select {
		case j := <-jobsCh:
			got = append(got, j)
		case <-timeout:
			t.Fatal("timed out waiting for lookup jobs")
		}
	}
	assert.ElementsMatch(t, jobs, got)

	require.Eventually(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return len(repo.requested) == len(jobs)
	}, time.Second, 10*time.Millisecond,
		"enqueued lookups must leave the queue")

	repo.mu.Lock()
	assert.Equal(t, 1, repo.resets)
	repo.mu.Unlock()

	stopWatcher(t, cancel, resultsCh, done)

	_, open := <-jobsCh
	assert.False(t, open, "watcher must close the jobs channel on shutdown")
}

func TestWatcher_appliesResults(t *testing.T) {
	repo := &fakeTransactionRepo{}
	cancel, _, resultsCh, done := startWatcher(t, repo)

	resolvedID := uuid.New()
	noContentID := uuid.New()
	failedID := uuid.New()
	requeueID := uuid.New()

	resultsCh <- dto.LookupResult{
		TransactionID: resolvedID,
		AgentCode:     "AG001",
		Status:        dto.StatusLedgerResolved,
		TotalPaid:     decimal.RequireFromString("750.50"),
	}
	resultsCh <- dto.LookupResult{
		TransactionID: noContentID,
		AgentCode:     "AG002",
		Status:        dto.StatusLedgerNoContent,
	}
	resultsCh <- dto.LookupResult{
		TransactionID: failedID,
		AgentCode:     "AG003",
		Status:        dto.StatusLedgerFailed,
	}
	resultsCh <- dto.LookupResult{
		TransactionID: requeueID,
		AgentCode:     "AG004",
		Status:        dto.StatusLookupFailed,
	}

	require.Eventually(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return len(repo.applied) == 2 &&
			len(repo.failed) == 1 &&
			len(repo.requeued) == 1
	}, time.Second, 10*time.Millisecond)

	repo.mu.Lock()
	assert.Equal(t, resolvedID, repo.applied[0].id)
	assert.Equal(t, "AG001", repo.applied[0].agentCode)
	assert.True(t, repo.applied[0].total.Equal(decimal.RequireFromString("750.50")))
	assert.Equal(t, noContentID, repo.applied[1].id)
	assert.True(t, repo.applied[1].total.IsZero(),
		"an unknown agent settles to zero")
	assert.Equal(t, failedID, repo.failed[0])
	assert.Equal(t, requeueID, repo.requeued[0])
	repo.mu.Unlock()

	stopWatcher(t, cancel, resultsCh, done)
}

func TestWatcher_discardsStaleResults(t *testing.T) {
	repo := &fakeTransactionRepo{applyErr: serviceerrs.ErrStaleLedgerResult}
	cancel, _, resultsCh, done := startWatcher(t, repo)

	staleID := uuid.New()
	resultsCh <- dto.LookupResult{
		TransactionID: staleID,
		AgentCode:     "AG-old",
		Status:        dto.StatusLedgerResolved,
		TotalPaid:     decimal.RequireFromString("100"),
	}

	require.Eventually(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return repo.applyCalls == 1
	}, time.Second, 10*time.Millisecond)

	repo.setApplyErr(nil)
	freshID := uuid.New()
	resultsCh <- dto.LookupResult{
		TransactionID: freshID,
		AgentCode:     "AG-new",
		Status:        dto.StatusLedgerResolved,
		TotalPaid:     decimal.RequireFromString("200"),
	}

	require.Eventually(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return len(repo.applied) == 1
	}, time.Second, 10*time.Millisecond)

	repo.mu.Lock()
	assert.Equal(t, freshID, repo.applied[0].id,
		"the stale total must not be recorded")
	repo.mu.Unlock()

	stopWatcher(t, cancel, resultsCh, done)
}
