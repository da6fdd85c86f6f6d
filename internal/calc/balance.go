package calc

import "github.com/shopspring/decimal"

// RunningBalance folds a cutpay transaction into the cumulative
// brokerage/agent balance. Positive means the brokerage owes the agent.
func RunningBalance(paymentByOffice, totalAgentPO, cutpayReceived, priorPayout decimal.Decimal) decimal.Decimal {
	return round2(paymentByOffice.
		Sub(totalAgentPO).
		Sub(cutpayReceived).
		Add(priorPayout))
}

// PolicyBalance is the accumulation style for policy-only transactions.
// openingBalance is the snapshot taken when the draft was opened, never
// the live balance field, so rapid successive edits cannot double-count.
func PolicyBalance(totalAgentPO, grossPremium, openingBalance decimal.Decimal) decimal.Decimal {
	return round2(totalAgentPO.
		Sub(grossPremium).
		Add(openingBalance))
}
