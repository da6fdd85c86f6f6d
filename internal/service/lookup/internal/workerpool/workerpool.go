package workerpool

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/insurezeal/backoffice/internal/ledger"
	"github.com/insurezeal/backoffice/internal/model"
	"github.com/insurezeal/backoffice/internal/service/dto"
	"github.com/insurezeal/backoffice/internal/serviceerrs"
	"github.com/insurezeal/backoffice/internal/utils/logger"
)

type LedgerClient interface {
	GetAgentPayout(ctx context.Context, agentCode string) (ledger.Info, error)
}

type LedgerSemaphore interface {
	AcquireWithTimeout(timeout time.Duration) error
	ChangeMaxRequests(newMaxRequests uint64)
	Release()
}

type WorkerPool struct {
	Client         LedgerClient
	Sema           LedgerSemaphore
	WaitGroup      *sync.WaitGroup
	Jobs           <-chan dto.LookupJob
	RateDataCh     chan<- serviceerrs.TooManyRequestsError
	RequestCounter chan<- struct{}
	Results        chan<- dto.LookupResult
	OnWorkerStart  func()
}

func New(
	client LedgerClient,
	sema LedgerSemaphore,
	wg *sync.WaitGroup,
	jobs <-chan dto.LookupJob,
	rateDataCh chan<- serviceerrs.TooManyRequestsError,
	requestCounter chan<- struct{},
	results chan<- dto.LookupResult,
) *WorkerPool {
	return &WorkerPool{
		Client:         client,
		Sema:           sema,
		WaitGroup:      wg,
		Jobs:           jobs,
		RateDataCh:     rateDataCh,
		RequestCounter: requestCounter,
		Results:        results,
	}
}

func (pool *WorkerPool) Start(ctx context.Context, workerCount int) context.CancelFunc {
	workerCtx, workerCancel := context.WithCancel(ctx)
	for range workerCount {
		pool.WaitGroup.Add(1)
		go pool.worker(workerCtx, workerCancel)
	}
	log := logger.FromContext(workerCtx).With("module", "worker_pool")
	log.LogAttrs(ctx, slog.LevelInfo,
		"all workers started", slog.Int("count", workerCount))

	return workerCancel
}

func (pool *WorkerPool) ChangeMaxRequests(newMaxRequests uint64) {
	pool.Sema.ChangeMaxRequests(newMaxRequests)
}

func (pool *WorkerPool) worker(ctx context.Context, cancelAll context.CancelFunc) {
	if pool.OnWorkerStart != nil {
		pool.OnWorkerStart()
	}
	defer pool.WaitGroup.Done()

	log := logger.FromContext(ctx).With("module", "worker_pool")
	defer log.LogAttrs(ctx, slog.LevelInfo, "worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-pool.Jobs:
			if !ok {
				return
			}

			if err := pool.Sema.AcquireWithTimeout(model.DefaultTimeout); err != nil {
				log.With("unit", "semaphore").LogAttrs(
					ctx,
					slog.LevelWarn,
					err.Error(),
				)
				pool.Results <- pool.dummy(job, dto.StatusLookupFailed)
				continue
			}
			log.With("unit", "semaphore").
				LogAttrs(ctx, slog.LevelDebug, "acquire")
			pool.RequestCounter <- struct{}{}

			info, err := pool.Client.GetAgentPayout(ctx, job.AgentCode)
			pool.Sema.Release()
			log.With("unit", "semaphore").
				LogAttrs(ctx, slog.LevelDebug, "release")

			if err != nil {
				if errors.Is(err, serviceerrs.ErrNoContent) {
					pool.Results <- pool.dummy(job, dto.StatusLedgerNoContent)
					continue
				}

				pool.Results <- pool.dummy(job, dto.StatusLedgerFailed)
				if ctx.Err() != nil {
					return
				}
				log.LogAttrs(ctx, slog.LevelError,
					"failed to get agent payout", slog.Any(model.KeyLoggerError, err))
				var tmrErr *serviceerrs.TooManyRequestsError
				if errors.As(err, &tmrErr) {
					cancelAll()
					pool.RateDataCh <- *tmrErr
					return
				}
				continue
			}
			pool.Results <- dto.LookupResult{
				TransactionID: job.TransactionID,
				AgentCode:     job.AgentCode,
				Status:        dto.StatusLedgerResolved,
				TotalPaid:     info.TotalPaid,
			}
		}
	}
}

func (pool *WorkerPool) dummy(job dto.LookupJob, status dto.LookupStatus) dto.LookupResult {
	return dto.LookupResult{
		TransactionID: job.TransactionID,
		AgentCode:     job.AgentCode,
		Status:        status,
	}
}
