package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/insurezeal/backoffice/internal/model/agent"
	"github.com/insurezeal/backoffice/internal/model/transaction"
	"github.com/insurezeal/backoffice/internal/serviceerrs"
)

const (
	queryCreateAgent = `
INSERT INTO agents (id, code, name)
VALUES ($1, $2, $3)
RETURNING created_at;`

	queryFindAgentByCode = `
SELECT id, code, name, created_at
FROM agents
WHERE code = $1;`

	queryLatestBalance = `
SELECT running_balance
FROM transactions
WHERE agent_code = $1 AND status = $2
ORDER BY committed_at DESC
LIMIT 1;`
)

type AgentRepository struct {
	DB
}

func NewAgentRepository(pool connectionPool, log *slog.Logger) *AgentRepository {
	return &AgentRepository{
		DB{
			pool: pool,
			log:  log,
		},
	}
}

func (r *AgentRepository) Create(ctx context.Context, a *agent.Agent) error {
	createFn := func() (struct{}, error) {
		row := r.pool.QueryRow(ctx, queryCreateAgent, a.ID, a.Code, a.Name)
		if err := row.Scan(&a.CreatedAt); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				return struct{}{}, serviceerrs.ErrAgentExists
			}
			return struct{}{}, fmt.Errorf("failed to create agent %s: %w", a.Code, err)
		}
		return struct{}{}, nil
	}

	_, err := WithRetry[struct{}](createFn, 0)
	return err //nolint: wrapcheck // error from wrapped function
}

func (r *AgentRepository) FindByCode(ctx context.Context, code string) (*agent.Agent, error) {
	findFn := func() (*agent.Agent, error) {
		var a agent.Agent
		row := r.pool.QueryRow(ctx, queryFindAgentByCode, code)
		if err := row.Scan(&a.ID, &a.Code, &a.Name, &a.CreatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, serviceerrs.ErrNotFound
			}
			return nil, fmt.Errorf("failed to find agent %s: %w", code, err)
		}
		return &a, nil
	}

	return WithRetry[*agent.Agent](findFn, 0) //nolint: wrapcheck // error from wrapped function
}

// LatestBalance is the running balance of the agent's most recently
// committed transaction, zero when the agent has none. Drafts do not
// count: an uncommitted balance is still in motion.
func (r *AgentRepository) LatestBalance(ctx context.Context, code string) (decimal.Decimal, error) {
	balanceFn := func() (decimal.Decimal, error) {
		var balance decimal.Decimal
		row := r.pool.QueryRow(ctx, queryLatestBalance, code, transaction.StatusCommitted)
		if err := row.Scan(&balance); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return decimal.Zero, nil
			}
			return decimal.Zero, fmt.Errorf("failed to get balance for agent %s: %w", code, err)
		}
		return balance, nil
	}

	return WithRetry[decimal.Decimal](balanceFn, 0) //nolint: wrapcheck // error from wrapped function
}
