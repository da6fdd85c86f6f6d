package calc

import (
	"strings"

	"github.com/shopspring/decimal"
)

type PaymentBy string

const (
	PaymentByAgent  PaymentBy = "AGENT"
	PaymentByOffice PaymentBy = "INSUREZEAL"
)

type PayoutBase string

const (
	PayoutOnOD   PayoutBase = "OD"
	PayoutOnNP   PayoutBase = "NP"
	PayoutOnODTP PayoutBase = "OD+TP"
)

type CodeType string

const (
	CodeTypeDirect CodeType = "DIRECT"
	CodeTypeBroker CodeType = "BROKER"
)

type Kind string

const (
	KindCutpay Kind = "CUTPAY"
	KindPolicy Kind = "POLICY"
)

// PremiumInput carries the raw policy figures coming from document
// extraction or manual entry. Absent fields stay zero.
type PremiumInput struct {
	ProductType  string
	PlanType     string
	GrossPremium decimal.Decimal
	NetPremium   decimal.Decimal
	ODPremium    decimal.Decimal
	TPPremium    decimal.Decimal
}

// Equal reports whether two premium inputs carry the same figures and
// classification. Decimal fields compare by value, not representation.
func (p PremiumInput) Equal(o PremiumInput) bool {
	return p.ProductType == o.ProductType &&
		p.PlanType == o.PlanType &&
		p.GrossPremium.Equal(o.GrossPremium) &&
		p.NetPremium.Equal(o.NetPremium) &&
		p.ODPremium.Equal(o.ODPremium) &&
		p.TPPremium.Equal(o.TPPremium)
}

// AdminConfig is the operator-entered commission configuration.
// Every percentage behaves as 0 when absent.
type AdminConfig struct {
	PaymentBy PaymentBy
	PayoutOn  PayoutBase
	CodeType  CodeType

	IncomingGridPercent         decimal.Decimal
	ExtraGrid                   decimal.Decimal
	AgentCommissionGivenPercent decimal.Decimal
	AgentExtraPercent           decimal.Decimal

	ODAgentPayoutPercent  decimal.Decimal
	TPAgentPayoutPercent  decimal.Decimal
	ODIncomingGridPercent decimal.Decimal
	TPIncomingGridPercent decimal.Decimal

	PaymentByOffice decimal.Decimal
	CutpayReceived  decimal.Decimal
}

// Result holds every derived figure for one transaction,
// each rounded to 2 places.
type Result struct {
	CommissionablePremium            decimal.Decimal
	ReceivableFromBroker             decimal.Decimal
	ExtraAmountReceivableFromBroker  decimal.Decimal
	TotalReceivableFromBroker        decimal.Decimal
	TotalReceivableFromBrokerWithGST decimal.Decimal
	CutPayAmount                     decimal.Decimal
	AgentPOAmount                    decimal.Decimal
	AgentExtraAmount                 decimal.Decimal
	TotalAgentPOAmount               decimal.Decimal
	RunningBalance                   decimal.Decimal
}

// EffectivePaymentByOffice is the cash the office fronts for the
// transaction: the full gross premium when the office pays the insurer,
// nothing when the agent collects directly.
func (c AdminConfig) EffectivePaymentByOffice(grossPremium decimal.Decimal) decimal.Decimal {
	if c.PaymentBy == PaymentByOffice {
		return grossPremium
	}
	return decimal.Zero
}

func ParsePaymentBy(s string) PaymentBy {
	switch v := strings.ToUpper(strings.TrimSpace(s)); v {
	case "AGENT":
		return PaymentByAgent
	case "INSUREZEAL", "OFFICE":
		return PaymentByOffice
	default:
		return PaymentBy(v)
	}
}

func ParsePayoutBase(s string) PayoutBase {
	switch v := strings.ToUpper(strings.TrimSpace(s)); v {
	case "OD":
		return PayoutOnOD
	case "NP", "NET":
		return PayoutOnNP
	case "OD+TP", "ODTP", "OD_TP":
		return PayoutOnODTP
	default:
		return PayoutBase(v)
	}
}

func ParseCodeType(s string) CodeType {
	switch v := strings.ToUpper(strings.TrimSpace(s)); v {
	case "DIRECT":
		return CodeTypeDirect
	case "BROKER":
		return CodeTypeBroker
	default:
		return CodeType(v)
	}
}

func ParseKind(s string) Kind {
	switch v := strings.ToUpper(strings.TrimSpace(s)); v {
	case "CUTPAY":
		return KindCutpay
	case "POLICY":
		return KindPolicy
	default:
		return Kind(v)
	}
}
