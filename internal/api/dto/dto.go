// Package dto carries the JSON request and response shapes of the HTTP
// API. Amounts travel as json.Number and are fixed to two decimals on
// the way out.
package dto

import (
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/insurezeal/backoffice/internal/calc"
	"github.com/insurezeal/backoffice/internal/model/transaction"
)

// Amount is a request-side money or percentage figure. Values coming
// from document extraction arrive either as JSON numbers or as quoted
// strings; both decode, and garbage is coerced to zero downstream
// rather than failing the request.
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" {
		s = ""
	}
	*a = Amount(s)
	return nil
}

type AgentRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func (r *AgentRequest) IsValid() error {
	var invalidCodeErr error
	if r.Code == "" {
		invalidCodeErr = errors.New("agent code is empty")
	}

	var invalidNameErr error
	if r.Name == "" {
		invalidNameErr = errors.New("agent name is empty")
	}
	return errors.Join(invalidCodeErr, invalidNameErr)
}

type AgentResponse struct {
	RegisteredAt time.Time `json:"registered_at"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
}

type BalanceResponse struct {
	AgentCode string      `json:"agent_code"`
	Balance   json.Number `json:"balance"`
}

// TransactionRequest opens a draft. Identity fields are mandatory,
// premium and configuration figures may arrive later via PATCH.
type TransactionRequest struct {
	PolicyNumber string `json:"policy_number"`
	AgentCode    string `json:"agent_code"`
	BrokerCode   string `json:"broker_code,omitempty"`
	Kind         string `json:"kind"`

	ProductType  string `json:"product_type,omitempty"`
	PlanType     string `json:"plan_type,omitempty"`
	GrossPremium Amount `json:"gross_premium,omitempty"`
	NetPremium   Amount `json:"net_premium,omitempty"`
	ODPremium    Amount `json:"od_premium,omitempty"`
	TPPremium    Amount `json:"tp_premium,omitempty"`

	PaymentBy string `json:"payment_by,omitempty"`
	PayoutOn  string `json:"payout_on,omitempty"`
	CodeType  string `json:"code_type,omitempty"`

	IncomingGridPercent         Amount `json:"incoming_grid_percent,omitempty"`
	ExtraGrid                   Amount `json:"extra_grid,omitempty"`
	AgentCommissionGivenPercent Amount `json:"agent_commission_given_percent,omitempty"`
	AgentExtraPercent           Amount `json:"agent_extra_percent,omitempty"`
	ODAgentPayoutPercent        Amount `json:"od_agent_payout_percent,omitempty"`
	TPAgentPayoutPercent        Amount `json:"tp_agent_payout_percent,omitempty"`
	ODIncomingGridPercent       Amount `json:"od_incoming_grid_percent,omitempty"`
	TPIncomingGridPercent       Amount `json:"tp_incoming_grid_percent,omitempty"`
	CutpayReceived              Amount `json:"cutpay_received,omitempty"`

	CommissionableOverride Amount `json:"commissionable_override,omitempty"`
}

func (r *TransactionRequest) IsValid() error {
	var invalidPolicyErr error
	if r.PolicyNumber == "" {
		invalidPolicyErr = errors.New("policy number is empty")
	}

	var invalidAgentErr error
	if r.AgentCode == "" {
		invalidAgentErr = errors.New("agent code is empty")
	}

	var invalidKindErr error
	switch calc.ParseKind(r.Kind) {
	case calc.KindCutpay, calc.KindPolicy:
	default:
		invalidKindErr = fmt.Errorf("unknown transaction kind %q", r.Kind)
	}
	return errors.Join(invalidPolicyErr, invalidAgentErr, invalidKindErr)
}

// Fill copies the optional figures into a fresh draft and reprices it.
// Malformed numbers never fail the request: they are coerced to zero
// and reported back by field name for the caller to log.
func (r *TransactionRequest) Fill(t *transaction.Transaction) []string {
	var p numberParser

	t.BrokerCode = r.BrokerCode
	t.SetPremium(calc.PremiumInput{
		ProductType:  r.ProductType,
		PlanType:     r.PlanType,
		GrossPremium: p.parse("gross_premium", r.GrossPremium),
		NetPremium:   p.parse("net_premium", r.NetPremium),
		ODPremium:    p.parse("od_premium", r.ODPremium),
		TPPremium:    p.parse("tp_premium", r.TPPremium),
	})
	t.Config = calc.AdminConfig{
		PaymentBy:                   calc.ParsePaymentBy(r.PaymentBy),
		PayoutOn:                    calc.ParsePayoutBase(r.PayoutOn),
		CodeType:                    calc.ParseCodeType(r.CodeType),
		IncomingGridPercent:         p.parse("incoming_grid_percent", r.IncomingGridPercent),
		ExtraGrid:                   p.parse("extra_grid", r.ExtraGrid),
		AgentCommissionGivenPercent: p.parse("agent_commission_given_percent", r.AgentCommissionGivenPercent),
		AgentExtraPercent:           p.parse("agent_extra_percent", r.AgentExtraPercent),
		ODAgentPayoutPercent:        p.parse("od_agent_payout_percent", r.ODAgentPayoutPercent),
		TPAgentPayoutPercent:        p.parse("tp_agent_payout_percent", r.TPAgentPayoutPercent),
		ODIncomingGridPercent:       p.parse("od_incoming_grid_percent", r.ODIncomingGridPercent),
		TPIncomingGridPercent:       p.parse("tp_incoming_grid_percent", r.TPIncomingGridPercent),
		CutpayReceived:              p.parse("cutpay_received", r.CutpayReceived),
	}
	if override, ok := p.parseOverride(r.CommissionableOverride); ok {
		t.CommissionableOverride = &override
	}
	t.Reprice()
	return p.coerced
}

// TransactionPatch is a partial update of a draft. Only present fields
// are applied; the transaction kind is fixed at creation.
type TransactionPatch struct {
	PolicyNumber *string `json:"policy_number,omitempty"`
	AgentCode    *string `json:"agent_code,omitempty"`
	BrokerCode   *string `json:"broker_code,omitempty"`

	ProductType  *string `json:"product_type,omitempty"`
	PlanType     *string `json:"plan_type,omitempty"`
	GrossPremium *Amount `json:"gross_premium,omitempty"`
	NetPremium   *Amount `json:"net_premium,omitempty"`
	ODPremium    *Amount `json:"od_premium,omitempty"`
	TPPremium    *Amount `json:"tp_premium,omitempty"`

	PaymentBy *string `json:"payment_by,omitempty"`
	PayoutOn  *string `json:"payout_on,omitempty"`
	CodeType  *string `json:"code_type,omitempty"`

	IncomingGridPercent         *Amount `json:"incoming_grid_percent,omitempty"`
	ExtraGrid                   *Amount `json:"extra_grid,omitempty"`
	AgentCommissionGivenPercent *Amount `json:"agent_commission_given_percent,omitempty"`
	AgentExtraPercent           *Amount `json:"agent_extra_percent,omitempty"`
	ODAgentPayoutPercent        *Amount `json:"od_agent_payout_percent,omitempty"`
	TPAgentPayoutPercent        *Amount `json:"tp_agent_payout_percent,omitempty"`
	ODIncomingGridPercent       *Amount `json:"od_incoming_grid_percent,omitempty"`
	TPIncomingGridPercent       *Amount `json:"tp_incoming_grid_percent,omitempty"`
	CutpayReceived              *Amount `json:"cutpay_received,omitempty"`

	CommissionableOverride *Amount `json:"commissionable_override,omitempty"`
}

func (p *TransactionPatch) IsValid() error {
	var invalidPolicyErr error
	if p.PolicyNumber != nil && *p.PolicyNumber == "" {
		invalidPolicyErr = errors.New("policy number must not be blanked")
	}

	var invalidAgentErr error
	if p.AgentCode != nil && *p.AgentCode == "" {
		invalidAgentErr = errors.New("agent code must not be blanked")
	}
	return errors.Join(invalidPolicyErr, invalidAgentErr)
}

// Apply folds the present fields into the draft and reprices it.
// A premium or classification change drops a stale commissionable
// override; an agent change discards the previous ledger total.
// Malformed numbers are coerced to zero and reported by field name.
func (p *TransactionPatch) Apply(t *transaction.Transaction) []string {
	var np numberParser

	if p.PolicyNumber != nil {
		t.PolicyNumber = *p.PolicyNumber
	}
	if p.AgentCode != nil {
		t.ChangeAgent(*p.AgentCode)
	}
	if p.BrokerCode != nil {
		t.BrokerCode = *p.BrokerCode
	}

	next := t.Premium
	if p.ProductType != nil {
		next.ProductType = *p.ProductType
	}
	if p.PlanType != nil {
		next.PlanType = *p.PlanType
	}
	if p.GrossPremium != nil {
		next.GrossPremium = np.parse("gross_premium", *p.GrossPremium)
	}
	if p.NetPremium != nil {
		next.NetPremium = np.parse("net_premium", *p.NetPremium)
	}
	if p.ODPremium != nil {
		next.ODPremium = np.parse("od_premium", *p.ODPremium)
	}
	if p.TPPremium != nil {
		next.TPPremium = np.parse("tp_premium", *p.TPPremium)
	}
	t.SetPremium(next)

	if p.PaymentBy != nil {
		t.Config.PaymentBy = calc.ParsePaymentBy(*p.PaymentBy)
	}
	if p.PayoutOn != nil {
		t.Config.PayoutOn = calc.ParsePayoutBase(*p.PayoutOn)
	}
	if p.CodeType != nil {
		t.Config.CodeType = calc.ParseCodeType(*p.CodeType)
	}
	if p.IncomingGridPercent != nil {
		t.Config.IncomingGridPercent = np.parse("incoming_grid_percent", *p.IncomingGridPercent)
	}
	if p.ExtraGrid != nil {
		t.Config.ExtraGrid = np.parse("extra_grid", *p.ExtraGrid)
	}
	if p.AgentCommissionGivenPercent != nil {
		t.Config.AgentCommissionGivenPercent = np.parse(
			"agent_commission_given_percent", *p.AgentCommissionGivenPercent)
	}
	if p.AgentExtraPercent != nil {
		t.Config.AgentExtraPercent = np.parse("agent_extra_percent", *p.AgentExtraPercent)
	}
	if p.ODAgentPayoutPercent != nil {
		t.Config.ODAgentPayoutPercent = np.parse("od_agent_payout_percent", *p.ODAgentPayoutPercent)
	}
	if p.TPAgentPayoutPercent != nil {
		t.Config.TPAgentPayoutPercent = np.parse("tp_agent_payout_percent", *p.TPAgentPayoutPercent)
	}
	if p.ODIncomingGridPercent != nil {
		t.Config.ODIncomingGridPercent = np.parse("od_incoming_grid_percent", *p.ODIncomingGridPercent)
	}
	if p.TPIncomingGridPercent != nil {
		t.Config.TPIncomingGridPercent = np.parse("tp_incoming_grid_percent", *p.TPIncomingGridPercent)
	}
	if p.CutpayReceived != nil {
		t.Config.CutpayReceived = np.parse("cutpay_received", *p.CutpayReceived)
	}

	if p.CommissionableOverride != nil {
		if override, ok := np.parseOverride(*p.CommissionableOverride); ok {
			t.CommissionableOverride = &override
		}
	}

	t.Reprice()
	return np.coerced
}

type ResultPayload struct {
	CommissionablePremium  json.Number `json:"commissionable_premium"`
	ReceivableFromBroker   json.Number `json:"receivable_from_broker"`
	ExtraAmountReceivable  json.Number `json:"extra_amount_receivable"`
	TotalReceivable        json.Number `json:"total_receivable"`
	TotalReceivableWithGST json.Number `json:"total_receivable_with_gst"`
	CutPayAmount           json.Number `json:"cut_pay_amount"`
	AgentPOAmount          json.Number `json:"agent_po_amount"`
	AgentExtraAmount       json.Number `json:"agent_extra_amount"`
	TotalAgentPOAmount     json.Number `json:"total_agent_po_amount"`
	RunningBalance         json.Number `json:"running_balance"`
}

type TransactionResponse struct {
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CommittedAt *time.Time `json:"committed_at,omitempty"`

	ID           string                  `json:"id"`
	PolicyNumber string                  `json:"policy_number"`
	AgentCode    string                  `json:"agent_code"`
	BrokerCode   string                  `json:"broker_code,omitempty"`
	Kind         calc.Kind               `json:"kind"`
	Status       transaction.Status      `json:"status"`
	LedgerState  transaction.LedgerState `json:"ledger_state"`

	ProductType  string      `json:"product_type,omitempty"`
	PlanType     string      `json:"plan_type,omitempty"`
	GrossPremium json.Number `json:"gross_premium"`
	NetPremium   json.Number `json:"net_premium"`
	ODPremium    json.Number `json:"od_premium"`
	TPPremium    json.Number `json:"tp_premium"`

	PaymentBy calc.PaymentBy  `json:"payment_by,omitempty"`
	PayoutOn  calc.PayoutBase `json:"payout_on,omitempty"`
	CodeType  calc.CodeType   `json:"code_type,omitempty"`

	IncomingGridPercent         json.Number `json:"incoming_grid_percent"`
	ExtraGrid                   json.Number `json:"extra_grid"`
	AgentCommissionGivenPercent json.Number `json:"agent_commission_given_percent"`
	AgentExtraPercent           json.Number `json:"agent_extra_percent"`
	ODAgentPayoutPercent        json.Number `json:"od_agent_payout_percent"`
	TPAgentPayoutPercent        json.Number `json:"tp_agent_payout_percent"`
	ODIncomingGridPercent       json.Number `json:"od_incoming_grid_percent"`
	TPIncomingGridPercent       json.Number `json:"tp_incoming_grid_percent"`
	PaymentByOffice             json.Number `json:"payment_by_office"`
	CutpayReceived              json.Number `json:"cutpay_received"`

	CommissionableOverride json.Number `json:"commissionable_override,omitempty"`
	OpeningBalance         json.Number `json:"opening_balance"`
	PriorPayout            json.Number `json:"prior_payout"`

	Result ResultPayload `json:"result"`
}

func NewTransactionResponse(t *transaction.Transaction) TransactionResponse {
	resp := TransactionResponse{
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		CommittedAt: t.CommittedAt,

		ID:           t.ID.String(),
		PolicyNumber: t.PolicyNumber,
		AgentCode:    t.AgentCode,
		BrokerCode:   t.BrokerCode,
		Kind:         t.Kind,
		Status:       t.Status,
		LedgerState:  t.LedgerState,

		ProductType:  t.Premium.ProductType,
		PlanType:     t.Premium.PlanType,
		GrossPremium: Fixed2(t.Premium.GrossPremium),
		NetPremium:   Fixed2(t.Premium.NetPremium),
		ODPremium:    Fixed2(t.Premium.ODPremium),
		TPPremium:    Fixed2(t.Premium.TPPremium),

		PaymentBy: t.Config.PaymentBy,
		PayoutOn:  t.Config.PayoutOn,
		CodeType:  t.Config.CodeType,

		IncomingGridPercent:         Fixed2(t.Config.IncomingGridPercent),
		ExtraGrid:                   Fixed2(t.Config.ExtraGrid),
		AgentCommissionGivenPercent: Fixed2(t.Config.AgentCommissionGivenPercent),
		AgentExtraPercent:           Fixed2(t.Config.AgentExtraPercent),
		ODAgentPayoutPercent:        Fixed2(t.Config.ODAgentPayoutPercent),
		TPAgentPayoutPercent:        Fixed2(t.Config.TPAgentPayoutPercent),
		ODIncomingGridPercent:       Fixed2(t.Config.ODIncomingGridPercent),
		TPIncomingGridPercent:       Fixed2(t.Config.TPIncomingGridPercent),
		PaymentByOffice:             Fixed2(t.Config.PaymentByOffice),
		CutpayReceived:              Fixed2(t.Config.CutpayReceived),

		OpeningBalance: Fixed2(t.OpeningBalance),
		PriorPayout:    Fixed2(t.PriorPayout),

		Result: ResultPayload{
			CommissionablePremium:  Fixed2(t.Result.CommissionablePremium),
			ReceivableFromBroker:   Fixed2(t.Result.ReceivableFromBroker),
			ExtraAmountReceivable:  Fixed2(t.Result.ExtraAmountReceivableFromBroker),
			TotalReceivable:        Fixed2(t.Result.TotalReceivableFromBroker),
			TotalReceivableWithGST: Fixed2(t.Result.TotalReceivableFromBrokerWithGST),
			CutPayAmount:           Fixed2(t.Result.CutPayAmount),
			AgentPOAmount:          Fixed2(t.Result.AgentPOAmount),
			AgentExtraAmount:       Fixed2(t.Result.AgentExtraAmount),
			TotalAgentPOAmount:     Fixed2(t.Result.TotalAgentPOAmount),
			RunningBalance:         Fixed2(t.Result.RunningBalance),
		},
	}
	if t.CommissionableOverride != nil {
		resp.CommissionableOverride = Fixed2(*t.CommissionableOverride)
	}
	return resp
}

// Fixed2 renders an amount with exactly two decimal places.
func Fixed2(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

// numberParser converts Amount fields to decimals without ever
// failing: garbage becomes zero and the field name is collected so the
// caller can log a warning.
type numberParser struct {
	coerced []string
}

func (p *numberParser) parse(field string, a Amount) decimal.Decimal {
	if a == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(string(a))
	if err != nil {
		p.coerced = append(p.coerced, field)
		return decimal.Zero
	}
	return d
}

// parseOverride treats garbage as no override at all: a coerced zero
// would wrongly zero the commissionable premium.
func (p *numberParser) parseOverride(a Amount) (decimal.Decimal, bool) {
	if a == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(string(a))
	if err != nil {
		p.coerced = append(p.coerced, "commissionable_override")
		return decimal.Zero, false
	}
	return d, true
}
