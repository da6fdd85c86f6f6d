package watcher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/insurezeal/backoffice/internal/model"
	"github.com/insurezeal/backoffice/internal/service/dto"
	"github.com/insurezeal/backoffice/internal/serviceerrs"
	"github.com/insurezeal/backoffice/internal/utils/logger"
)

const selectBatchLimit = 256

type transactionRepo interface {
	SelectPendingLedger(ctx context.Context, limit int) ([]dto.LookupJob, error)
	MarkLedgerRequested(ctx context.Context, id uuid.UUID) error
	RequeueLedgerLookup(ctx context.Context, id uuid.UUID, agentCode string) error
	ResetRequestedLedger(ctx context.Context) error
	ApplyLedgerResult(ctx context.Context, id uuid.UUID, agentCode string, total decimal.Decimal) error
	MarkLedgerFailed(ctx context.Context, id uuid.UUID, agentCode string) error
}

// Watcher feeds drafts with pending ledger lookups to the lookup
// service and folds the answers back into the store.
type Watcher struct {
	transactionRepo transactionRepo
	jobsCh          chan<- dto.LookupJob
	resultsCh       <-chan dto.LookupResult
}

func New(
	transactionRepo transactionRepo,
	jobsCh chan dto.LookupJob,
	resultsCh chan dto.LookupResult,
) *Watcher {
	return &Watcher{
		transactionRepo: transactionRepo,
		jobsCh:          jobsCh,
		resultsCh:       resultsCh,
	}
}

func (w *Watcher) Run(ctx context.Context) {
	log := logger.FromContext(ctx).With("service", "watcher")
	log.LogAttrs(ctx, slog.LevelInfo, "running")

	if err := w.transactionRepo.ResetRequestedLedger(ctx); err != nil {
		log.LogAttrs(ctx,
			slog.LevelError,
			"failed to requeue lookups left over from the previous run",
			slog.Any(model.KeyLoggerError, err),
		)
	}

	selectTicker := time.NewTicker(model.WatcherTickTimeout)
	defer selectTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.LogAttrs(ctx, slog.LevelInfo, "stop signal received, exiting...")
			selectTicker.Stop()

		case <-selectTicker.C:
			go func() {
				jobs, err := w.transactionRepo.SelectPendingLedger(ctx, selectBatchLimit)
				if err != nil {
					log.LogAttrs(ctx,
						slog.LevelError,
						"failed to select drafts pending a ledger lookup",
						slog.Any(model.KeyLoggerError, err),
					)
					return
				}
				for _, j := range jobs {
					select {
					case <-ctx.Done():
						return
					case w.jobsCh <- j:
					}
					err = w.transactionRepo.MarkLedgerRequested(ctx, j.TransactionID)
					if err != nil {
						log.LogAttrs(ctx,
							slog.LevelError,
							`failed to move the lookup to "REQUESTED"`,
							slog.String("transaction_id", j.TransactionID.String()),
							slog.Any(model.KeyLoggerError, err),
						)
					}
				}
			}()

		case res, ok := <-w.resultsCh:
			if !ok {
				close(w.jobsCh)
				log.LogAttrs(ctx, slog.LevelInfo, "stopped")
				return
			}
			w.applyResult(ctx, log, res)
		}
	}
}

func (w *Watcher) applyResult(ctx context.Context, log *slog.Logger, res dto.LookupResult) {
	switch res.Status {
	case dto.StatusLedgerResolved, dto.StatusLedgerNoContent:
		err := w.transactionRepo.ApplyLedgerResult(
			ctx, res.TransactionID, res.AgentCode, res.TotalPaid)
		switch {
		case errors.Is(err, serviceerrs.ErrStaleLedgerResult),
			errors.Is(err, serviceerrs.ErrNotFound):
			log.LogAttrs(ctx,
				slog.LevelDebug,
				"discarded a stale ledger total",
				slog.String("transaction_id", res.TransactionID.String()),
				slog.String("agent_code", res.AgentCode),
			)
		case err != nil:
			log.LogAttrs(ctx,
				slog.LevelError,
				"failed to apply a ledger total",
				slog.String("transaction_id", res.TransactionID.String()),
				slog.Any(model.KeyLoggerError, err),
			)
		}

	case dto.StatusLookupFailed:
		err := w.transactionRepo.RequeueLedgerLookup(ctx, res.TransactionID, res.AgentCode)
		if err != nil {
			log.LogAttrs(ctx,
				slog.LevelError,
				"failed to requeue a lookup",
				slog.String("transaction_id", res.TransactionID.String()),
				slog.Any(model.KeyLoggerError, err),
			)
		}

	case dto.StatusLedgerFailed:
		err := w.transactionRepo.MarkLedgerFailed(ctx, res.TransactionID, res.AgentCode)
		if err != nil {
			log.LogAttrs(ctx,
				slog.LevelError,
				"failed to mark a lookup failed",
				slog.String("transaction_id", res.TransactionID.String()),
				slog.Any(model.KeyLoggerError, err),
			)
		}
	}
}
