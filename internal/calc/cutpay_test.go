package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCutPayAmount(t *testing.T) {
	tests := []struct {
		name         string
		premium      PremiumInput
		config       AdminConfig
		totalAgentPO string
		want         string
	}{
		{
			name: "office payment recovers the commission share",
			premium: PremiumInput{
				GrossPremium: dec("12000"),
				NetPremium:   dec("10000"),
			},
			config: AdminConfig{
				PaymentBy:                   PaymentByOffice,
				AgentCommissionGivenPercent: dec("20"),
			},
			totalAgentPO: "0",
			want:         "10000.00",
		},
		{
			name: "agent payment settles nothing",
			premium: PremiumInput{
				GrossPremium: dec("12000"),
				NetPremium:   dec("10000"),
				ODPremium:    dec("8000"),
			},
			config: AdminConfig{
				PaymentBy:                   PaymentByAgent,
				AgentCommissionGivenPercent: dec("20"),
			},
			totalAgentPO: "5000",
			want:         "0.00",
		},
		{
			name: "unknown payment mode falls back to the od basis",
			premium: PremiumInput{
				GrossPremium: dec("12000"),
				ODPremium:    dec("8000"),
			},
			config:       AdminConfig{},
			totalAgentPO: "880",
			want:         "7120.00",
		},
		{
			name:         "fallback can go negative",
			premium:      PremiumInput{ODPremium: dec("500")},
			config:       AdminConfig{},
			totalAgentPO: "800",
			want:         "-300.00",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := CutPayAmount(test.premium, test.config, dec(test.totalAgentPO))
			assert.Equal(t, test.want, got.StringFixed(2))
		})
	}
}

func TestCutPayAmountIsZeroForAgentPaymentRegardlessOfFields(t *testing.T) {
	premiums := []PremiumInput{
		{},
		{GrossPremium: dec("99999.99"), NetPremium: dec("88888.88")},
		{ODPremium: dec("123.45"), TPPremium: dec("67.89")},
	}
	for _, premium := range premiums {
		config := AdminConfig{
			PaymentBy:                   PaymentByAgent,
			AgentCommissionGivenPercent: dec("33.3"),
		}
		got := CutPayAmount(premium, config, dec("1000"))
		assert.True(t, got.IsZero())
	}
}
