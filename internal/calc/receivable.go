package calc

import "github.com/shopspring/decimal"

// Receivable is the broker-side money owed to the brokerage.
type Receivable struct {
	FromBroker   decimal.Decimal
	Extra        decimal.Decimal
	Total        decimal.Decimal
	TotalWithGST decimal.Decimal
}

// BrokerReceivable derives what the brokerage is owed by the broker or
// insurer. In OD+TP mode the main receivable is split across the
// own-damage and third-party premiums with their own grid percentages;
// the blended incoming grid is not used then. The extra amount always
// commissions on the commissionable premium.
func BrokerReceivable(commissionable decimal.Decimal, p PremiumInput, c AdminConfig) Receivable {
	var fromBroker decimal.Decimal
	if c.PayoutOn == PayoutOnODTP {
		fromBroker = round2(
			percentOf(p.ODPremium, c.ODIncomingGridPercent).
				Add(percentOf(p.TPPremium, c.TPIncomingGridPercent)))
	} else {
		fromBroker = round2(percentOf(commissionable, c.IncomingGridPercent))
	}

	extra := round2(percentOf(commissionable, c.ExtraGrid))
	total := round2(fromBroker.Add(extra))

	return Receivable{
		FromBroker:   fromBroker,
		Extra:        extra,
		Total:        total,
		TotalWithGST: round2(total.Mul(gstRate)),
	}
}
