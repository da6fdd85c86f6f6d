package calc

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CommissionablePremium selects the premium figure commission is based
// on. A comprehensive private-car policy commissions on the own-damage
// premium, everything else on the net premium.
func CommissionablePremium(p PremiumInput) decimal.Decimal {
	if isPrivateCarComprehensive(p.ProductType, p.PlanType) {
		return round2(p.ODPremium)
	}
	return round2(p.NetPremium)
}

func isPrivateCarComprehensive(productType, planType string) bool {
	product := strings.ToLower(productType)
	plan := strings.ToLower(planType)
	return strings.Contains(product, "private") &&
		strings.Contains(product, "car") &&
		strings.Contains(plan, "comp")
}
