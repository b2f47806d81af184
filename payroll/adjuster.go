package payroll

import (
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// Adjust prorates each component by factor, preserving order.
// Components with a zero or negative base amount are omitted.
func Adjust(components []SalaryComponent, factor decimal.Decimal) []AdjustedComponent {
	out := make([]AdjustedComponent, 0, len(components))
	for _, c := range components {
		if !c.Amount.IsPositive() {
			continue
		}
		adjusted := generic.RoundMoney(c.Amount.Mul(factor))
		out = append(out, AdjustedComponent{
			Name:           c.Name,
			Category:       c.Category,
			BaseAmount:     c.Amount,
			AdjustedAmount: adjusted,
			Factor:         factor,
			Delta:          adjusted.Sub(c.Amount),
		})
	}
	return out
}

// ComputedGross sums the strictly positive adjusted amounts.
func ComputedGross(adjusted []AdjustedComponent) decimal.Decimal {
	gross := decimal.Zero
	for _, a := range adjusted {
		if a.AdjustedAmount.IsPositive() {
			gross = gross.Add(a.AdjustedAmount)
		}
	}
	return gross
}

// amountOf returns the adjusted amount of the named component, if present.
func amountOf(adjusted []AdjustedComponent, name string) (decimal.Decimal, bool) {
	for _, a := range adjusted {
		if a.Name == name {
			return a.AdjustedAmount, true
		}
	}
	return decimal.Zero, false
}
