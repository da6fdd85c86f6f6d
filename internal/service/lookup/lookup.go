// Package lookup drives prior-payout lookups against the ledger
// service through a rate-aware worker pool.
package lookup

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/insurezeal/backoffice/internal/ledger"
	"github.com/insurezeal/backoffice/internal/model"
	"github.com/insurezeal/backoffice/internal/service/dto"
	"github.com/insurezeal/backoffice/internal/service/lookup/internal/requestwatcher"
	"github.com/insurezeal/backoffice/internal/service/lookup/internal/workerpool"
	"github.com/insurezeal/backoffice/internal/serviceerrs"
	"github.com/insurezeal/backoffice/internal/utils/logger"
	"github.com/insurezeal/backoffice/internal/utils/semaphore"
)

type Lookup struct {
	jobsCh        chan dto.LookupJob
	resultsCh     chan<- dto.LookupResult
	ledgerAddress string
	cache         ledger.Cache
	workerCount   int
}

func New(
	jobsCh chan dto.LookupJob,
	resultsCh chan<- dto.LookupResult,
	ledgerAddress string,
	cache ledger.Cache,
) *Lookup {
	return &Lookup{
		jobsCh:        jobsCh,
		resultsCh:     resultsCh,
		ledgerAddress: ledgerAddress,
		cache:         cache,
		workerCount:   runtime.NumCPU() * model.DefaultWorkerCountMultiplier,
	}
}

// Run blocks until ctx is done. When the ledger answers 429 the pool
// is stopped for the advertised retry window and restarted with a
// budget derived from the measured request rate.
func (l *Lookup) Run(ctx context.Context, maxRequestCount uint64) {
	log := logger.FromContext(ctx).With("service", "lookup")
	log.LogAttrs(ctx, slog.LevelInfo, "running")

	requestsCh := make(chan struct{}, runtime.NumCPU()*model.DefaultWorkerCountMultiplier)
	rpmWatcher := requestwatcher.New(requestsCh, log)
	rpmWatcher.Start()

	wg := &sync.WaitGroup{}
	rateDataCh := make(chan serviceerrs.TooManyRequestsError)
	client := ledger.NewCachedClient(ledger.New(l.ledgerAddress), l.cache)
	pool := workerpool.New(
		client,
		semaphore.New(maxRequestCount),
		wg,
		l.jobsCh,
		rateDataCh,
		requestsCh,
		l.resultsCh,
	)
	log.LogAttrs(ctx, slog.LevelInfo, "starting worker pool")
	poolCancel := pool.Start(ctx, l.workerCount)

	timer := time.NewTimer(model.DefaultTimeout)
	timer.Stop()
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	rateData := serviceerrs.TooManyRequestsError{}
	for {
		select {
		case <-ctx.Done():
			poolCancel()
			wg.Wait()
			close(requestsCh)
			close(rateDataCh)
			close(l.resultsCh)
			log.LogAttrs(ctx, slog.LevelInfo, "stopped")
			return
		case rateData = <-rateDataCh:
			wg.Wait()
			rpmWatcher.Stop()
			timer = time.NewTimer(rateData.RetryAfter)
			log.LogAttrs(ctx,
				slog.LevelInfo,
				"paused requesting",
				slog.Duration("retry_after", rateData.RetryAfter))
		case <-timer.C:
			currRPM := rpmWatcher.GetRPM()
			newMaxRequestCount := maxRequestCount
			if currRPM != 0 {
				newMaxRequestCount = rateData.RPM / currRPM
			}
			if newMaxRequestCount == 0 {
				newMaxRequestCount = 1
			}

			rpmWatcher.Start()
			pool.ChangeMaxRequests(newMaxRequestCount)
			poolCancel = pool.Start(ctx, l.workerCount)
			log.LogAttrs(ctx,
				slog.LevelInfo,
				"restarted requesting",
				slog.Int("old_rpm", int(maxRequestCount)),
				slog.Int("new_rpm", int(newMaxRequestCount)))
		}
	}
}
