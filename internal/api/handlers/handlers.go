// Package handlers implements the HTTP surface of the settlement
// backoffice: agent registration, draft transactions and their
// commission results, and the commit step that freezes them.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/insurezeal/backoffice/internal/api/dto"
	"github.com/insurezeal/backoffice/internal/calc"
	"github.com/insurezeal/backoffice/internal/model"
	"github.com/insurezeal/backoffice/internal/model/agent"
	"github.com/insurezeal/backoffice/internal/model/transaction"
	"github.com/insurezeal/backoffice/internal/serviceerrs"
	"github.com/insurezeal/backoffice/internal/utils/logger"
)

type agentRepo interface {
	Create(ctx context.Context, a *agent.Agent) error
	FindByCode(ctx context.Context, code string) (*agent.Agent, error)
	LatestBalance(ctx context.Context, code string) (decimal.Decimal, error)
}

type transactionRepo interface {
	Create(ctx context.Context, t *transaction.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error)
	ListByAgent(ctx context.Context,
		agentCode string, status *transaction.Status) ([]transaction.Transaction, error)
	UpdateDraft(ctx context.Context, id uuid.UUID,
		mutate func(*transaction.Transaction) error) (*transaction.Transaction, error)
	Commit(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error)
}

type AgentsHandler struct {
	logger *slog.Logger
	agents agentRepo
}

func NewAgentsHandler(agents agentRepo, log *slog.Logger) *AgentsHandler {
	return &AgentsHandler{
		logger: log,
		agents: agents,
	}
}

func (h *AgentsHandler) RegisterAgent(w http.ResponseWriter, r *http.Request) {
	var req dto.AgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.IsValid(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	a := agent.New(req.Code, req.Name)
	if err := h.agents.Create(r.Context(), a); err != nil {
		if errors.Is(err, serviceerrs.ErrAgentExists) {
			http.Error(w, "agent code already registered", http.StatusConflict)
			return
		}
		h.logger.LogAttrs(r.Context(),
			slog.LevelError,
			"failed to register agent",
			slog.Any(model.KeyLoggerError, err),
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, http.StatusCreated, dto.AgentResponse{
		RegisteredAt: a.CreatedAt,
		Code:         a.Code,
		Name:         a.Name,
	})
}

func (h *AgentsHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if _, err := h.agents.FindByCode(r.Context(), code); err != nil {
		if errors.Is(err, serviceerrs.ErrNotFound) {
			http.Error(w, "agent is not registered", http.StatusNotFound)
			return
		}
		h.logger.LogAttrs(r.Context(),
			slog.LevelError,
			"failed to find agent",
			slog.Any(model.KeyLoggerError, err),
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	balance, err := h.agents.LatestBalance(r.Context(), code)
	if err != nil {
		h.logger.LogAttrs(r.Context(),
			slog.LevelError,
			"failed to get agent balance",
			slog.Any(model.KeyLoggerError, err),
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.BalanceResponse{
		AgentCode: code,
		Balance:   dto.Fixed2(balance),
	})
}

type TransactionsHandler struct {
	logger       *slog.Logger
	agents       agentRepo
	transactions transactionRepo
}

func NewTransactionsHandler(
	agents agentRepo,
	transactions transactionRepo,
	log *slog.Logger,
) *TransactionsHandler {
	return &TransactionsHandler{
		logger:       log,
		agents:       agents,
		transactions: transactions,
	}
}

// CreateTransaction opens a draft. The agent's latest committed running
// balance is snapshotted as the opening balance at this moment and
// never re-read afterwards.
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req dto.TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.IsValid(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := h.agents.FindByCode(r.Context(), req.AgentCode); err != nil {
		if errors.Is(err, serviceerrs.ErrNotFound) {
			http.Error(w,
				fmt.Sprintf("agent %s is not registered", req.AgentCode),
				http.StatusBadRequest)
			return
		}
		h.logger.LogAttrs(r.Context(),
			slog.LevelError,
			"failed to find agent",
			slog.Any(model.KeyLoggerError, err),
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	opening, err := h.agents.LatestBalance(r.Context(), req.AgentCode)
	if err != nil {
		h.logger.LogAttrs(r.Context(),
			slog.LevelError,
			"failed to snapshot opening balance",
			slog.Any(model.KeyLoggerError, err),
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	t := transaction.New(req.PolicyNumber, req.AgentCode, calc.ParseKind(req.Kind), opening)
	h.warnCoerced(r.Context(), req.Fill(t))

	if err = h.transactions.Create(r.Context(), t); err != nil {
		if errors.Is(err, serviceerrs.ErrNotFound) {
			// the agent disappeared between the check and the insert
			http.Error(w,
				fmt.Sprintf("agent %s is not registered", req.AgentCode),
				http.StatusBadRequest)
			return
		}
		h.logger.LogAttrs(r.Context(),
			slog.LevelError,
			"failed to create transaction",
			slog.Any(model.KeyLoggerError, err),
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, http.StatusCreated, dto.NewTransactionResponse(t))
}

func (h *TransactionsHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid transaction id", http.StatusBadRequest)
		return
	}

	t, err := h.transactions.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, serviceerrs.ErrNotFound) {
			http.Error(w, "transaction not found", http.StatusNotFound)
			return
		}
		h.logger.LogAttrs(r.Context(),
			slog.LevelError,
			"failed to get transaction",
			slog.Any(model.KeyLoggerError, err),
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.NewTransactionResponse(t))
}

func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	agentCode := r.URL.Query().Get("agent")
	if agentCode == "" {
		http.Error(w, "agent query parameter is required", http.StatusBadRequest)
		return
	}

	var status *transaction.Status
	if s := r.URL.Query().Get("status"); s != "" {
		parsed := transaction.Status(strings.ToUpper(strings.TrimSpace(s)))
		if parsed != transaction.StatusDraft && parsed != transaction.StatusCommitted {
			http.Error(w, fmt.Sprintf("unknown status %q", s), http.StatusBadRequest)
			return
		}
		status = &parsed
	}

	ts, err := h.transactions.ListByAgent(r.Context(), agentCode, status)
	if err != nil {
		h.logger.LogAttrs(r.Context(),
			slog.LevelError,
			"failed to list transactions",
			slog.Any(model.KeyLoggerError, err),
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if len(ts) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]dto.TransactionResponse, 0, len(ts))
	for i := range ts {
		resp = append(resp, dto.NewTransactionResponse(&ts[i]))
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// PatchTransaction applies an admin form change to a draft. The patch
// runs under the row lock, so a ledger result folded in concurrently is
// repriced together with the change instead of being overwritten.
func (h *TransactionsHandler) PatchTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid transaction id", http.StatusBadRequest)
		return
	}

	var patch dto.TransactionPatch
	if err = json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err = patch.IsValid(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var coerced []string
	updated, err := h.transactions.UpdateDraft(r.Context(), id,
		func(t *transaction.Transaction) error {
			coerced = patch.Apply(t)
			return nil
		})
	if err != nil {
		switch {
		case errors.Is(err, serviceerrs.ErrNotFound):
			http.Error(w, "transaction not found", http.StatusNotFound)
		case errors.Is(err, serviceerrs.ErrTransactionCommitted):
			http.Error(w, "transaction is committed", http.StatusConflict)
		default:
			h.logger.LogAttrs(r.Context(),
				slog.LevelError,
				"failed to update transaction",
				slog.Any(model.KeyLoggerError, err),
			)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	h.warnCoerced(r.Context(), coerced)
	writeJSON(w, r, http.StatusOK, dto.NewTransactionResponse(updated))
}

func (h *TransactionsHandler) CommitTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid transaction id", http.StatusBadRequest)
		return
	}

	t, err := h.transactions.Commit(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, serviceerrs.ErrNotFound):
			http.Error(w, "transaction not found", http.StatusNotFound)
		case errors.Is(err, serviceerrs.ErrTransactionCommitted):
			http.Error(w, "transaction is committed", http.StatusConflict)
		case errors.Is(err, serviceerrs.ErrBrokerCodeRequired):
			http.Error(w, "broker code is required for broker code type", http.StatusBadRequest)
		default:
			h.logger.LogAttrs(r.Context(),
				slog.LevelError,
				"failed to commit transaction",
				slog.Any(model.KeyLoggerError, err),
			)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, r, http.StatusOK, dto.NewTransactionResponse(t))
}

func (h *TransactionsHandler) warnCoerced(ctx context.Context, fields []string) {
	if len(fields) == 0 {
		return
	}
	h.logger.LogAttrs(ctx,
		slog.LevelWarn,
		"coerced malformed amounts to zero",
		slog.Any("fields", fields),
	)
}

type dbPinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db dbPinger
}

func NewHealthHandler(db dbPinger) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		logger.FromContext(r.Context()).LogAttrs(r.Context(),
			slog.LevelError,
			"database is unreachable",
			slog.Any(model.KeyLoggerError, err),
		)
		http.Error(w, "database is unreachable", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set(model.HeaderContentType, "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.FromContext(r.Context()).LogAttrs(r.Context(),
			slog.LevelError,
			"failed to encode response",
			slog.Any(model.KeyLoggerError, err),
		)
	}
}
