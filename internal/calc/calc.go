// Package calc is the commission and settlement engine. It turns a
// policy's premium figures and the administrator's configuration into
// broker receivables, agent payouts, the cutpay settlement amount and
// the running brokerage/agent balance.
//
// Every component is a pure function. The pipeline keeps no state of
// its own and recomputes the full result on every call, so identical
// inputs always produce identical results.
package calc

import "github.com/shopspring/decimal"

// gstRate is the fixed 18% GST uplift on brokerage services.
var gstRate = decimal.RequireFromString("1.18")

var hundred = decimal.NewFromInt(100)

// Input is the caller-owned calculation context for one transaction.
type Input struct {
	Kind    Kind
	Premium PremiumInput
	Config  AdminConfig

	// CommissionableOverride pins the commissionable premium to an
	// operator-supplied value. The caller clears it whenever a premium
	// or classification field changes.
	CommissionableOverride *decimal.Decimal

	// PriorPayout is the ledger total already paid to the agent,
	// zero while the lookup is outstanding or failed.
	PriorPayout decimal.Decimal

	// OpeningBalance is the agent's running balance snapshotted once
	// when the draft was opened.
	OpeningBalance decimal.Decimal
}

// Evaluate runs the full pipeline in dependency order: commissionable
// premium, broker receivable, agent payout, cutpay settlement, running
// balance. No component reads a downstream result.
func Evaluate(in Input) Result {
	cp := CommissionablePremium(in.Premium)
	if in.CommissionableOverride != nil {
		cp = round2(*in.CommissionableOverride)
	}

	rec := BrokerReceivable(cp, in.Premium, in.Config)
	pay := AgentPayout(cp, in.Premium, in.Config)
	cut := CutPayAmount(in.Premium, in.Config, pay.Total)

	var balance decimal.Decimal
	if in.Kind == KindPolicy {
		balance = PolicyBalance(pay.Total, in.Premium.GrossPremium, in.OpeningBalance)
	} else {
		office := in.Config.EffectivePaymentByOffice(in.Premium.GrossPremium)
		balance = RunningBalance(office, pay.Total, in.Config.CutpayReceived, in.PriorPayout)
	}

	return Result{
		CommissionablePremium:            cp,
		ReceivableFromBroker:             rec.FromBroker,
		ExtraAmountReceivableFromBroker:  rec.Extra,
		TotalReceivableFromBroker:        rec.Total,
		TotalReceivableFromBrokerWithGST: rec.TotalWithGST,
		CutPayAmount:                     cut,
		AgentPOAmount:                    pay.POAmount,
		AgentExtraAmount:                 pay.ExtraAmount,
		TotalAgentPOAmount:               pay.Total,
		RunningBalance:                   balance,
	}
}

// round2 rounds half away from zero to 2 decimal places. It is applied
// at each derived field, never only at the end: compounding at a
// different granularity changes results.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func percentOf(v, percent decimal.Decimal) decimal.Decimal {
	return v.Mul(percent).Div(hundred)
}
