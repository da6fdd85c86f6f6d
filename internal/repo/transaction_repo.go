package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/insurezeal/backoffice/internal/calc"
	"github.com/insurezeal/backoffice/internal/model/transaction"
	"github.com/insurezeal/backoffice/internal/service/dto"
	"github.com/insurezeal/backoffice/internal/serviceerrs"
)

const transactionColumns = `
    id, policy_number, agent_code, broker_code, kind, status,
    product_type, plan_type, gross_premium, net_premium, od_premium, tp_premium,
    payment_by, payout_on, code_type,
    incoming_grid_percent, extra_grid, agent_commission_given_percent, agent_extra_percent,
    od_agent_payout_percent, tp_agent_payout_percent,
    od_incoming_grid_percent, tp_incoming_grid_percent,
    payment_by_office, cutpay_received,
    commissionable_override, opening_balance, prior_payout, ledger_state,
    commissionable_premium, receivable_from_broker, extra_amount_receivable,
    total_receivable, total_receivable_with_gst, cut_pay_amount,
    agent_po_amount, agent_extra_amount, total_agent_po_amount, running_balance,
    created_at, updated_at, committed_at`

const (
	queryCreateTransaction = `
INSERT INTO transactions (
    id, policy_number, agent_code, broker_code, kind, status,
    product_type, plan_type, gross_premium, net_premium, od_premium, tp_premium,
    payment_by, payout_on, code_type,
    incoming_grid_percent, extra_grid, agent_commission_given_percent, agent_extra_percent,
    od_agent_payout_percent, tp_agent_payout_percent,
    od_incoming_grid_percent, tp_incoming_grid_percent,
    payment_by_office, cutpay_received,
    commissionable_override, opening_balance, prior_payout, ledger_state,
    commissionable_premium, receivable_from_broker, extra_amount_receivable,
    total_receivable, total_receivable_with_gst, cut_pay_amount,
    agent_po_amount, agent_extra_amount, total_agent_po_amount, running_balance
) VALUES (
    $1, $2, $3, $4, $5, $6,
    $7, $8, $9, $10, $11, $12,
    $13, $14, $15,
    $16, $17, $18, $19,
    $20, $21,
    $22, $23,
    $24, $25,
    $26, $27, $28, $29,
    $30, $31, $32,
    $33, $34, $35,
    $36, $37, $38, $39
)
RETURNING created_at, updated_at;`

	querySelectTransaction = `
SELECT` + transactionColumns + `
FROM transactions
WHERE id = $1;`

	querySelectTransactionForUpdate = `
SELECT` + transactionColumns + `
FROM transactions
WHERE id = $1
FOR UPDATE;`

	queryListByAgent = `
SELECT` + transactionColumns + `
FROM transactions
WHERE agent_code = $1 AND ($2::VARCHAR IS NULL OR status = $2)
ORDER BY created_at DESC;`

	queryUpdateDraft = `
UPDATE transactions SET
    policy_number = $2, agent_code = $3, broker_code = $4,
    product_type = $5, plan_type = $6,
    gross_premium = $7, net_premium = $8, od_premium = $9, tp_premium = $10,
    payment_by = $11, payout_on = $12, code_type = $13,
    incoming_grid_percent = $14, extra_grid = $15,
    agent_commission_given_percent = $16, agent_extra_percent = $17,
    od_agent_payout_percent = $18, tp_agent_payout_percent = $19,
    od_incoming_grid_percent = $20, tp_incoming_grid_percent = $21,
    payment_by_office = $22, cutpay_received = $23,
    commissionable_override = $24, prior_payout = $25, ledger_state = $26,
    commissionable_premium = $27, receivable_from_broker = $28,
    extra_amount_receivable = $29, total_receivable = $30,
    total_receivable_with_gst = $31, cut_pay_amount = $32,
    agent_po_amount = $33, agent_extra_amount = $34,
    total_agent_po_amount = $35, running_balance = $36,
    updated_at = now()
WHERE id = $1 AND status = $37
RETURNING updated_at;`

	queryCommitTransaction = `
UPDATE transactions
SET status = $2, committed_at = now(), updated_at = now()
WHERE id = $1
RETURNING committed_at, updated_at;`

	querySelectPendingLedger = `
SELECT id, agent_code
FROM transactions
WHERE status = $1 AND ledger_state = $2
ORDER BY updated_at
LIMIT $3;`

	queryMarkLedgerRequested = `
UPDATE transactions
SET ledger_state = $3, updated_at = now()
WHERE id = $1 AND status = $2 AND ledger_state = $4;`

	queryRequeueLedgerLookup = `
UPDATE transactions
SET ledger_state = $4, updated_at = now()
WHERE id = $1 AND agent_code = $2 AND status = $3 AND ledger_state = $5;`

	queryResetRequestedLedger = `
UPDATE transactions
SET ledger_state = $2, updated_at = now()
WHERE status = $1 AND ledger_state = $3;`

	queryMarkLedgerFailed = `
UPDATE transactions
SET ledger_state = $4, updated_at = now()
WHERE id = $1 AND agent_code = $2 AND status = $3 AND ledger_state IN ($5, $6);`
)

type TransactionRepository struct {
	DB
}

func NewTransactionRepository(pool connectionPool, log *slog.Logger) *TransactionRepository {
	return &TransactionRepository{
		DB{
			pool: pool,
			log:  log,
		},
	}
}

func (r *TransactionRepository) Create(ctx context.Context, t *transaction.Transaction) error {
	createFn := func() (struct{}, error) {
		row := r.pool.QueryRow(ctx, queryCreateTransaction, insertArgs(t)...)
		if err := row.Scan(&t.CreatedAt, &t.UpdatedAt); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
				return struct{}{}, fmt.Errorf(
					"agent %s is not registered: %w", t.AgentCode, serviceerrs.ErrNotFound)
			}
			return struct{}{}, fmt.Errorf("failed to create transaction %s: %w", t.ID, err)
		}
		return struct{}{}, nil
	}

	_, err := WithRetry[struct{}](createFn, 0)
	return err //nolint: wrapcheck // error from wrapped function
}

func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID,
) (*transaction.Transaction, error) {
	getFn := func() (*transaction.Transaction, error) {
		t, err := scanTransaction(r.pool.QueryRow(ctx, querySelectTransaction, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, serviceerrs.ErrNotFound
			}
			return nil, fmt.Errorf("failed to get transaction %s: %w", id, err)
		}
		return t, nil
	}

	return WithRetry[*transaction.Transaction](getFn, 0) //nolint: wrapcheck // error from wrapped function
}

func (r *TransactionRepository) ListByAgent(ctx context.Context,
	agentCode string, status *transaction.Status,
) ([]transaction.Transaction, error) {
	if len(agentCode) == 0 {
		return nil, errors.New("failed to list transactions: agent code must be not empty")
	}

	listFn := func() ([]transaction.Transaction, error) {
		rows, err := r.pool.Query(ctx, queryListByAgent, agentCode, status)
		if err != nil {
			return nil, fmt.Errorf("failed to list transactions for agent %s: %w", agentCode, err)
		}
		defer rows.Close()

		var ts []transaction.Transaction
		for rows.Next() {
			t, err := scanTransaction(rows)
			if err != nil {
				return nil, fmt.Errorf("failed to scan transaction row: %w", err)
			}
			ts = append(ts, *t)
		}
		if err = rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to iterate transactions: %w", err)
		}
		return ts, nil
	}

	return WithRetry[[]transaction.Transaction](listFn, 0) //nolint: wrapcheck // error from wrapped function
}

// UpdateDraft locks the draft, applies mutate to the freshly read row
// and persists the outcome. Mutating under the lock keeps a concurrent
// commit or ledger fold-in from being overwritten by a stale snapshot.
func (r *TransactionRepository) UpdateDraft(ctx context.Context, id uuid.UUID,
	mutate func(*transaction.Transaction) error,
) (*transaction.Transaction, error) {
	updateLogic := func(ctx context.Context, tx connectionPool) (any, error) {
		t, err := scanTransaction(tx.QueryRow(ctx, querySelectTransactionForUpdate, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return (*transaction.Transaction)(nil), serviceerrs.ErrNotFound
			}
			return (*transaction.Transaction)(nil), fmt.Errorf("failed to lock transaction %s: %w", id, err)
		}
		if t.IsCommitted() {
			return (*transaction.Transaction)(nil), serviceerrs.ErrTransactionCommitted
		}

		if err = mutate(t); err != nil {
			return (*transaction.Transaction)(nil), fmt.Errorf("failed to mutate transaction %s: %w", id, err)
		}

		row := tx.QueryRow(ctx, queryUpdateDraft, updateArgs(t)...)
		if err = row.Scan(&t.UpdatedAt); err != nil {
			return (*transaction.Transaction)(nil), fmt.Errorf("failed to update transaction %s: %w", id, err)
		}
		return t, nil
	}

	runWithTX := func() (*transaction.Transaction, error) {
		return WithTX[*transaction.Transaction](ctx, r.pool, r.log, updateLogic)
	}

	return WithRetry[*transaction.Transaction](runWithTX, 0) //nolint: wrapcheck // error from wrapped function
}

// Commit freezes a draft. A broker-coded transaction must carry its
// broker code before it can be committed.
func (r *TransactionRepository) Commit(ctx context.Context, id uuid.UUID,
) (*transaction.Transaction, error) {
	commitLogic := func(ctx context.Context, tx connectionPool) (any, error) {
		t, err := scanTransaction(tx.QueryRow(ctx, querySelectTransactionForUpdate, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return (*transaction.Transaction)(nil), serviceerrs.ErrNotFound
			}
			return (*transaction.Transaction)(nil), fmt.Errorf("failed to lock transaction %s: %w", id, err)
		}
		if t.IsCommitted() {
			return (*transaction.Transaction)(nil), serviceerrs.ErrTransactionCommitted
		}
		if t.Config.CodeType == calc.CodeTypeBroker && t.BrokerCode == "" {
			return (*transaction.Transaction)(nil), serviceerrs.ErrBrokerCodeRequired
		}

		t.Status = transaction.StatusCommitted
		row := tx.QueryRow(ctx, queryCommitTransaction, id, transaction.StatusCommitted)
		if err = row.Scan(&t.CommittedAt, &t.UpdatedAt); err != nil {
			return (*transaction.Transaction)(nil), fmt.Errorf("failed to commit transaction %s: %w", id, err)
		}
		return t, nil
	}

	runWithTX := func() (*transaction.Transaction, error) {
		return WithTX[*transaction.Transaction](ctx, r.pool, r.log, commitLogic)
	}

	return WithRetry[*transaction.Transaction](runWithTX, 0) //nolint: wrapcheck // error from wrapped function
}

func (r *TransactionRepository) SelectPendingLedger(ctx context.Context, limit int,
) ([]dto.LookupJob, error) {
	selectFn := func() ([]dto.LookupJob, error) {
		rows, err := r.pool.Query(ctx, querySelectPendingLedger,
			transaction.StatusDraft, transaction.LedgerPending, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to select pending lookups: %w", err)
		}
		defer rows.Close()

		var pending []dto.LookupJob
		for rows.Next() {
			var j dto.LookupJob
			if err = rows.Scan(&j.TransactionID, &j.AgentCode); err != nil {
				return nil, fmt.Errorf("failed to scan pending lookup: %w", err)
			}
			pending = append(pending, j)
		}
		if err = rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to iterate pending lookups: %w", err)
		}
		return pending, nil
	}

	return WithRetry[[]dto.LookupJob](selectFn, 0) //nolint: wrapcheck // error from wrapped function
}

// MarkLedgerRequested takes a pending draft out of the lookup queue
// while its request is in flight.
func (r *TransactionRepository) MarkLedgerRequested(ctx context.Context, id uuid.UUID) error {
	markFn := func() (struct{}, error) {
		_, err := r.pool.Exec(ctx, queryMarkLedgerRequested,
			id, transaction.StatusDraft,
			transaction.LedgerRequested, transaction.LedgerPending)
		if err != nil {
			return struct{}{}, fmt.Errorf("failed to mark lookup requested for %s: %w", id, err)
		}
		return struct{}{}, nil
	}

	_, err := WithRetry[struct{}](markFn, 0)
	return err //nolint: wrapcheck // error from wrapped function
}

// RequeueLedgerLookup puts an in-flight draft back into the lookup
// queue after a transient local failure.
func (r *TransactionRepository) RequeueLedgerLookup(ctx context.Context,
	id uuid.UUID, agentCode string,
) error {
	requeueFn := func() (struct{}, error) {
		_, err := r.pool.Exec(ctx, queryRequeueLedgerLookup,
			id, agentCode, transaction.StatusDraft,
			transaction.LedgerPending, transaction.LedgerRequested)
		if err != nil {
			return struct{}{}, fmt.Errorf("failed to requeue lookup for %s: %w", id, err)
		}
		return struct{}{}, nil
	}

	_, err := WithRetry[struct{}](requeueFn, 0)
	return err //nolint: wrapcheck // error from wrapped function
}

// ResetRequestedLedger requeues every lookup that was in flight when
// the previous process died.
func (r *TransactionRepository) ResetRequestedLedger(ctx context.Context) error {
	resetFn := func() (struct{}, error) {
		_, err := r.pool.Exec(ctx, queryResetRequestedLedger,
			transaction.StatusDraft,
			transaction.LedgerPending, transaction.LedgerRequested)
		if err != nil {
			return struct{}{}, fmt.Errorf("failed to reset in-flight lookups: %w", err)
		}
		return struct{}{}, nil
	}

	_, err := WithRetry[struct{}](resetFn, 0)
	return err //nolint: wrapcheck // error from wrapped function
}

// ApplyLedgerResult folds a resolved prior-payout total into the draft
// and reprices it. The total is discarded as stale when the draft moved
// to another agent code or got committed while the lookup was in
// flight: most recent agent code wins.
func (r *TransactionRepository) ApplyLedgerResult(ctx context.Context,
	id uuid.UUID, agentCode string, total decimal.Decimal,
) error {
	applyLogic := func(ctx context.Context, tx connectionPool) (any, error) {
		t, err := scanTransaction(tx.QueryRow(ctx, querySelectTransactionForUpdate, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return struct{}{}, serviceerrs.ErrNotFound
			}
			return struct{}{}, fmt.Errorf("failed to lock transaction %s: %w", id, err)
		}
		if t.IsCommitted() || t.AgentCode != agentCode {
			return struct{}{}, serviceerrs.ErrStaleLedgerResult
		}

		t.ResolveLedger(total)
		row := tx.QueryRow(ctx, queryUpdateDraft, updateArgs(t)...)
		if err = row.Scan(&t.UpdatedAt); err != nil {
			return struct{}{}, fmt.Errorf("failed to apply ledger result to %s: %w", id, err)
		}
		return struct{}{}, nil
	}

	runWithTX := func() (struct{}, error) {
		return WithTX[struct{}](ctx, r.pool, r.log, applyLogic)
	}

	_, err := WithRetry[struct{}](runWithTX, 0)
	return err //nolint: wrapcheck // error from wrapped function
}

func (r *TransactionRepository) MarkLedgerFailed(ctx context.Context,
	id uuid.UUID, agentCode string,
) error {
	markFn := func() (struct{}, error) {
		_, err := r.pool.Exec(ctx, queryMarkLedgerFailed,
			id, agentCode, transaction.StatusDraft, transaction.LedgerFailed,
			transaction.LedgerRequested, transaction.LedgerPending)
		if err != nil {
			return struct{}{}, fmt.Errorf("failed to mark lookup failed for %s: %w", id, err)
		}
		return struct{}{}, nil
	}

	_, err := WithRetry[struct{}](markFn, 0)
	return err //nolint: wrapcheck // error from wrapped function
}

func insertArgs(t *transaction.Transaction) []any {
	return []any{
		t.ID, t.PolicyNumber, t.AgentCode, t.BrokerCode, t.Kind, t.Status,
		t.Premium.ProductType, t.Premium.PlanType,
		t.Premium.GrossPremium, t.Premium.NetPremium, t.Premium.ODPremium, t.Premium.TPPremium,
		t.Config.PaymentBy, t.Config.PayoutOn, t.Config.CodeType,
		t.Config.IncomingGridPercent, t.Config.ExtraGrid,
		t.Config.AgentCommissionGivenPercent, t.Config.AgentExtraPercent,
		t.Config.ODAgentPayoutPercent, t.Config.TPAgentPayoutPercent,
		t.Config.ODIncomingGridPercent, t.Config.TPIncomingGridPercent,
		t.Config.PaymentByOffice, t.Config.CutpayReceived,
		t.CommissionableOverride, t.OpeningBalance, t.PriorPayout, t.LedgerState,
		t.Result.CommissionablePremium, t.Result.ReceivableFromBroker,
		t.Result.ExtraAmountReceivableFromBroker, t.Result.TotalReceivableFromBroker,
		t.Result.TotalReceivableFromBrokerWithGST, t.Result.CutPayAmount,
		t.Result.AgentPOAmount, t.Result.AgentExtraAmount,
		t.Result.TotalAgentPOAmount, t.Result.RunningBalance,
	}
}

func updateArgs(t *transaction.Transaction) []any {
	return []any{
		t.ID, t.PolicyNumber, t.AgentCode, t.BrokerCode,
		t.Premium.ProductType, t.Premium.PlanType,
		t.Premium.GrossPremium, t.Premium.NetPremium, t.Premium.ODPremium, t.Premium.TPPremium,
		t.Config.PaymentBy, t.Config.PayoutOn, t.Config.CodeType,
		t.Config.IncomingGridPercent, t.Config.ExtraGrid,
		t.Config.AgentCommissionGivenPercent, t.Config.AgentExtraPercent,
		t.Config.ODAgentPayoutPercent, t.Config.TPAgentPayoutPercent,
		t.Config.ODIncomingGridPercent, t.Config.TPIncomingGridPercent,
		t.Config.PaymentByOffice, t.Config.CutpayReceived,
		t.CommissionableOverride, t.PriorPayout, t.LedgerState,
		t.Result.CommissionablePremium, t.Result.ReceivableFromBroker,
		t.Result.ExtraAmountReceivableFromBroker, t.Result.TotalReceivableFromBroker,
		t.Result.TotalReceivableFromBrokerWithGST, t.Result.CutPayAmount,
		t.Result.AgentPOAmount, t.Result.AgentExtraAmount,
		t.Result.TotalAgentPOAmount, t.Result.RunningBalance,
		transaction.StatusDraft,
	}
}

func scanTransaction(row pgx.Row) (*transaction.Transaction, error) {
	var t transaction.Transaction
	err := row.Scan(
		&t.ID, &t.PolicyNumber, &t.AgentCode, &t.BrokerCode, &t.Kind, &t.Status,
		&t.Premium.ProductType, &t.Premium.PlanType,
		&t.Premium.GrossPremium, &t.Premium.NetPremium, &t.Premium.ODPremium, &t.Premium.TPPremium,
		&t.Config.PaymentBy, &t.Config.PayoutOn, &t.Config.CodeType,
		&t.Config.IncomingGridPercent, &t.Config.ExtraGrid,
		&t.Config.AgentCommissionGivenPercent, &t.Config.AgentExtraPercent,
		&t.Config.ODAgentPayoutPercent, &t.Config.TPAgentPayoutPercent,
		&t.Config.ODIncomingGridPercent, &t.Config.TPIncomingGridPercent,
		&t.Config.PaymentByOffice, &t.Config.CutpayReceived,
		&t.CommissionableOverride, &t.OpeningBalance, &t.PriorPayout, &t.LedgerState,
		&t.Result.CommissionablePremium, &t.Result.ReceivableFromBroker,
		&t.Result.ExtraAmountReceivableFromBroker, &t.Result.TotalReceivableFromBroker,
		&t.Result.TotalReceivableFromBrokerWithGST, &t.Result.CutPayAmount,
		&t.Result.AgentPOAmount, &t.Result.AgentExtraAmount,
		&t.Result.TotalAgentPOAmount, &t.Result.RunningBalance,
		&t.CreatedAt, &t.UpdatedAt, &t.CommittedAt,
	)
	if err != nil {
		return nil, err //nolint: wrapcheck // callers wrap with context
	}
	return &t, nil
}
