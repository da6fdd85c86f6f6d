package calc

import "github.com/shopspring/decimal"

// CutPayAmount derives the one-off cash settlement for the transaction.
// When the agent fronts the premium there is nothing to settle. When
// the office fronts it, the settlement is the gross premium minus the
// agent's commission share of the net premium. Any other payment mode
// falls back to the legacy own-damage basis.
func CutPayAmount(p PremiumInput, c AdminConfig, totalAgentPO decimal.Decimal) decimal.Decimal {
	switch c.PaymentBy {
	case PaymentByAgent:
		return decimal.Zero
	case PaymentByOffice:
		commission := percentOf(p.NetPremium, c.AgentCommissionGivenPercent)
		return round2(p.GrossPremium.Sub(commission))
	default:
		return round2(p.ODPremium.Sub(totalAgentPO))
	}
}
