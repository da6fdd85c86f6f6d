package transaction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/insurezeal/backoffice/internal/calc"
)

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusCommitted Status = "COMMITTED"
)

type LedgerState string

const (
	LedgerPending   LedgerState = "PENDING"
	LedgerRequested LedgerState = "REQUESTED"
	LedgerResolved  LedgerState = "RESOLVED"
	LedgerFailed    LedgerState = "FAILED"
)

// Transaction is one cutpay or policy record moving through the
// draft/committed lifecycle. The embedded Result is recomputed on every
// change while the record is a draft and frozen once committed.
type Transaction struct {
	ID           uuid.UUID
	PolicyNumber string
	AgentCode    string
	BrokerCode   string
	Kind         calc.Kind
	Status       Status

	Premium calc.PremiumInput
	Config  calc.AdminConfig

	// CommissionableOverride survives only until a premium or
	// classification field changes.
	CommissionableOverride *decimal.Decimal

	// OpeningBalance is snapshotted once at draft-open and never
	// re-read afterwards.
	OpeningBalance decimal.Decimal
	PriorPayout    decimal.Decimal
	LedgerState    LedgerState

	Result calc.Result

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CommittedAt *time.Time
}

// New opens a draft with the agent's balance snapshotted as the opening
// balance and the ledger lookup still pending.
func New(policyNumber, agentCode string, kind calc.Kind, openingBalance decimal.Decimal) *Transaction {
	t := &Transaction{
		ID:             uuid.New(),
		PolicyNumber:   policyNumber,
		AgentCode:      agentCode,
		Kind:           kind,
		Status:         StatusDraft,
		OpeningBalance: openingBalance,
		LedgerState:    LedgerPending,
	}
	t.Reprice()
	return t
}

// Reprice recomputes the full result from the current fields. The
// office cash figure is re-derived first so the stored configuration
// can never drift from the payment mode.
func (t *Transaction) Reprice() {
	t.Config.PaymentByOffice = t.Config.EffectivePaymentByOffice(t.Premium.GrossPremium)
	t.Result = calc.Evaluate(calc.Input{
		Kind:                   t.Kind,
		Premium:                t.Premium,
		Config:                 t.Config,
		CommissionableOverride: t.CommissionableOverride,
		PriorPayout:            t.PriorPayout,
		OpeningBalance:         t.OpeningBalance,
	})
}

// SetPremium replaces the premium figures and drops a stale
// commissionable override when anything it depends on changed.
func (t *Transaction) SetPremium(p calc.PremiumInput) {
	if !t.Premium.Equal(p) {
		t.CommissionableOverride = nil
	}
	t.Premium = p
}

// ChangeAgent points the draft at another agent. Any outstanding or
// resolved ledger total belongs to the old code and is discarded.
func (t *Transaction) ChangeAgent(code string) {
	if t.AgentCode == code {
		return
	}
	t.AgentCode = code
	t.PriorPayout = decimal.Zero
	t.LedgerState = LedgerPending
}

// ResolveLedger folds the looked-up prior payout total in and
// recomputes the balance.
func (t *Transaction) ResolveLedger(total decimal.Decimal) {
	t.PriorPayout = total
	t.LedgerState = LedgerResolved
	t.Reprice()
}

// FailLedger marks the lookup failed. The balance keeps the zero
// fallback until a later lookup succeeds.
func (t *Transaction) FailLedger() {
	t.PriorPayout = decimal.Zero
	t.LedgerState = LedgerFailed
}

func (t *Transaction) IsCommitted() bool {
	return t.Status == StatusCommitted
}
