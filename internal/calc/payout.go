package calc

import "github.com/shopspring/decimal"

// Payout is the agent-side money owed by the brokerage.
type Payout struct {
	POAmount    decimal.Decimal
	ExtraAmount decimal.Decimal
	Total       decimal.Decimal
}

// AgentPayout derives the agent's commission. In OD+TP mode the payout
// is split across the own-damage and third-party premiums and the
// blended commission and extra percentages are ignored entirely. In OD
// and NP modes both legs commission on the commissionable premium.
func AgentPayout(commissionable decimal.Decimal, p PremiumInput, c AdminConfig) Payout {
	if c.PayoutOn == PayoutOnODTP {
		po := round2(
			percentOf(p.ODPremium, c.ODAgentPayoutPercent).
				Add(percentOf(p.TPPremium, c.TPAgentPayoutPercent)))
		return Payout{
			POAmount:    po,
			ExtraAmount: decimal.Zero,
			Total:       po,
		}
	}

	po := round2(percentOf(commissionable, c.AgentCommissionGivenPercent))
	extra := round2(percentOf(commissionable, c.AgentExtraPercent))
	return Payout{
		POAmount:    po,
		ExtraAmount: extra,
		Total:       round2(po.Add(extra)),
	}
}
