package calc

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func comprehensiveCutpayInput() Input {
	return Input{
		Kind: KindCutpay,
		Premium: PremiumInput{
			ProductType:  "Private Car",
			PlanType:     "Comprehensive",
			GrossPremium: dec("11800"),
			NetPremium:   dec("10000"),
			ODPremium:    dec("8000"),
			TPPremium:    dec("2000"),
		},
		Config: AdminConfig{
			PaymentBy:                   PaymentByOffice,
			PayoutOn:                    PayoutOnOD,
			IncomingGridPercent:         dec("15"),
			ExtraGrid:                   dec("2"),
			AgentCommissionGivenPercent: dec("10"),
			AgentExtraPercent:           dec("1"),
			CutpayReceived:              dec("1000"),
		},
		PriorPayout: dec("500"),
	}
}

func TestEvaluate(t *testing.T) {
	got := Evaluate(comprehensiveCutpayInput())

	assert.Equal(t, "8000.00", got.CommissionablePremium.StringFixed(2))
	assert.Equal(t, "1200.00", got.ReceivableFromBroker.StringFixed(2))
	assert.Equal(t, "160.00", got.ExtraAmountReceivableFromBroker.StringFixed(2))
	assert.Equal(t, "1360.00", got.TotalReceivableFromBroker.StringFixed(2))
	assert.Equal(t, "1604.80", got.TotalReceivableFromBrokerWithGST.StringFixed(2))
	assert.Equal(t, "800.00", got.AgentPOAmount.StringFixed(2))
	assert.Equal(t, "80.00", got.AgentExtraAmount.StringFixed(2))
	assert.Equal(t, "880.00", got.TotalAgentPOAmount.StringFixed(2))
	assert.Equal(t, "10800.00", got.CutPayAmount.StringFixed(2))
	assert.Equal(t, "10420.00", got.RunningBalance.StringFixed(2))
}

func TestEvaluateIsIdempotent(t *testing.T) {
	in := comprehensiveCutpayInput()

	first := Evaluate(in)
	second := Evaluate(in)

	assert.Equal(t, first, second)
}

func TestEvaluateHonorsCommissionableOverride(t *testing.T) {
	in := comprehensiveCutpayInput()
	override := dec("5000")
	in.CommissionableOverride = &override

	got := Evaluate(in)

	assert.Equal(t, "5000.00", got.CommissionablePremium.StringFixed(2))
	assert.Equal(t, "750.00", got.ReceivableFromBroker.StringFixed(2))
	assert.Equal(t, "500.00", got.AgentPOAmount.StringFixed(2))
}

func TestEvaluateAgentPaymentLeavesNoOfficeCash(t *testing.T) {
	in := comprehensiveCutpayInput()
	in.Config.PaymentBy = PaymentByAgent

	got := Evaluate(in)

	assert.Equal(t, "0.00", got.CutPayAmount.StringFixed(2))
	// running balance gets no fronted cash: 0 - 880 - 1000 + 500
	assert.Equal(t, "-1380.00", got.RunningBalance.StringFixed(2))
}

func TestEvaluatePolicyKindUsesOpeningBalanceSnapshot(t *testing.T) {
	in := comprehensiveCutpayInput()
	in.Kind = KindPolicy
	in.OpeningBalance = dec("200")

	got := Evaluate(in)

	// 880 - 11800 + 200
	assert.Equal(t, "-10720.00", got.RunningBalance.StringFixed(2))
}

func TestEvaluateToleratesEmptyInput(t *testing.T) {
	got := Evaluate(Input{})

	assert.Equal(t, "0.00", got.CommissionablePremium.StringFixed(2))
	assert.Equal(t, "0.00", got.TotalReceivableFromBrokerWithGST.StringFixed(2))
	assert.Equal(t, "0.00", got.TotalAgentPOAmount.StringFixed(2))
	assert.Equal(t, "0.00", got.RunningBalance.StringFixed(2))
}

func TestParsePaymentBy(t *testing.T) {
	tests := []struct {
		raw  string
		want PaymentBy
	}{
		{raw: "Agent", want: PaymentByAgent},
		{raw: "AGENT", want: PaymentByAgent},
		{raw: "InsureZeal", want: PaymentByOffice},
		{raw: "office", want: PaymentByOffice},
		{raw: " insurezeal ", want: PaymentByOffice},
		{raw: "somebody", want: PaymentBy("SOMEBODY")},
	}
	for _, test := range tests {
		t.Run(test.raw, func(t *testing.T) {
			assert.Equal(t, test.want, ParsePaymentBy(test.raw))
		})
	}
}

func TestParsePayoutBase(t *testing.T) {
	tests := []struct {
		raw  string
		want PayoutBase
	}{
		{raw: "od", want: PayoutOnOD},
		{raw: "NP", want: PayoutOnNP},
		{raw: "net", want: PayoutOnNP},
		{raw: "OD+TP", want: PayoutOnODTP},
		{raw: "od_tp", want: PayoutOnODTP},
		{raw: "odtp", want: PayoutOnODTP},
	}
	for _, test := range tests {
		t.Run(test.raw, func(t *testing.T) {
			assert.Equal(t, test.want, ParsePayoutBase(test.raw))
		})
	}
}
