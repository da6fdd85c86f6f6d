package agent

import (
	"time"

	"github.com/google/uuid"
)

// Agent is a registered insurance agent. The code is the business key
// everything else references: transactions, ledger lookups, balances.
type Agent struct {
	ID        uuid.UUID
	Code      string
	Name      string
	CreatedAt time.Time
}

func New(code, name string) *Agent {
	return &Agent{
		ID:   uuid.New(),
		Code: code,
		Name: name,
	}
}
