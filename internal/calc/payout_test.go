package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAgentPayout(t *testing.T) {
	tests := []struct {
		name           string
		commissionable string
		premium        PremiumInput
		config         AdminConfig
		wantPO         string
		wantExtra      string
		wantTotal      string
	}{
		{
			name:           "np payout on commissionable premium",
			commissionable: "10000",
			config: AdminConfig{
				PayoutOn:                    PayoutOnNP,
				AgentCommissionGivenPercent: dec("20"),
				AgentExtraPercent:           dec("1.5"),
			},
			wantPO:    "2000.00",
			wantExtra: "150.00",
			wantTotal: "2150.00",
		},
		{
			name:           "od payout uses the same blended legs",
			commissionable: "8000",
			config: AdminConfig{
				PayoutOn:                    PayoutOnOD,
				AgentCommissionGivenPercent: dec("12.5"),
			},
			wantPO:    "1000.00",
			wantExtra: "0.00",
			wantTotal: "1000.00",
		},
		{
			name:           "od+tp splits the payout and ignores blended percentages",
			commissionable: "10000",
			premium: PremiumInput{
				ODPremium: dec("8000"),
				TPPremium: dec("2000"),
			},
			config: AdminConfig{
				PayoutOn:                    PayoutOnODTP,
				AgentCommissionGivenPercent: dec("99"),
				AgentExtraPercent:           dec("99"),
				ODAgentPayoutPercent:        dec("10"),
				TPAgentPayoutPercent:        dec("5"),
			},
			wantPO:    "900.00",
			wantExtra: "0.00",
			wantTotal: "900.00",
		},
		{
			name:           "od+tp rounds the summed legs once",
			commissionable: "0",
			premium: PremiumInput{
				ODPremium: dec("335"),
				TPPremium: dec("335"),
			},
			config: AdminConfig{
				PayoutOn:             PayoutOnODTP,
				ODAgentPayoutPercent: dec("0.75"),
				TPAgentPayoutPercent: dec("0.75"),
			},
			// 2.5125 + 2.5125 rounds to 5.03, not 2.51 + 2.51
			wantPO:    "5.03",
			wantExtra: "0.00",
			wantTotal: "5.03",
		},
		{
			name:           "zero configuration yields zero payout",
			commissionable: "10000",
			config:         AdminConfig{PayoutOn: PayoutOnNP},
			wantPO:         "0.00",
			wantExtra:      "0.00",
			wantTotal:      "0.00",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := AgentPayout(dec(test.commissionable), test.premium, test.config)

			assert.Equal(t, test.wantPO, got.POAmount.StringFixed(2))
			assert.Equal(t, test.wantExtra, got.ExtraAmount.StringFixed(2))
			assert.Equal(t, test.wantTotal, got.Total.StringFixed(2))
		})
	}
}
