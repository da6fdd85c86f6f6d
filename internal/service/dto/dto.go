package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LookupStatus string

const (
	StatusLedgerResolved  LookupStatus = "RESOLVED"
	StatusLedgerNoContent LookupStatus = "NO_CONTENT"
	StatusLedgerFailed    LookupStatus = "LEDGER_FAILED"
	StatusLookupFailed    LookupStatus = "LOOKUP_FAILED"
)

// LookupJob asks the ledger for the prior payout of one draft's agent.
type LookupJob struct {
	TransactionID uuid.UUID
	AgentCode     string
}

// LookupResult carries the answer back. TotalPaid is meaningful only
// for StatusLedgerResolved; an unknown agent comes back as
// StatusLedgerNoContent and settles to zero.
type LookupResult struct {
	TransactionID uuid.UUID
	AgentCode     string
	Status        LookupStatus
	TotalPaid     decimal.Decimal
}
