package payroll

import (
	"github.com/shopspring/decimal"
)

// Totals is the money summary of one calculation.
type Totals struct {
	Gross           decimal.Decimal `json:"gross"`
	TotalDeductions decimal.Decimal `json:"total_deductions"`
	Net             decimal.Decimal `json:"net"`
	// CreditToBank is what the client is billed: gross plus every
	// deduction, not net.
	CreditToBank decimal.Decimal `json:"credit_to_bank"`
}

// Aggregate combines adjusted components and deductions into totals.
func Aggregate(adjusted []AdjustedComponent, deductions StatutoryDeductionSet) Totals {
	gross := ComputedGross(adjusted)
	total := deductions.Total()
	return Totals{
		Gross:           gross,
		TotalDeductions: total,
		Net:             gross.Sub(total),
		CreditToBank:    gross.Add(total),
	}
}

// =============================================================================
// PIPELINE - one employee, one month, no I/O
// =============================================================================

// Compute runs the full pipeline for one employee. The returned result has
// no ID; callers that persist it assign one.
func Compute(emp Employee, cfg ClientConfig, in AttendanceInput) (*CalculationResult, error) {
	factor, err := ComputeFactor(in.DaysWorked, cfg.BillingBasis, in.Month, in.Year)
	if err != nil {
		return nil, err
	}

	components := make([]SalaryComponent, 0, len(emp.Components)+len(cfg.Rules))
	components = append(components, emp.Components...)
	extra, err := allowanceComponents(cfg.Rules, emp.Components)
	if err != nil {
		return nil, err
	}
	components = append(components, extra...)

	adjusted := Adjust(components, factor.Value)
	gross := ComputedGross(adjusted)

	deductions, err := ComputeDeductions(gross, adjusted, cfg.Statutory)
	if err != nil {
		return nil, err
	}
	if deductions.Custom, err = deductionAmounts(cfg.Rules, adjusted, factor, gross, deductions); err != nil {
		return nil, err
	}

	totals := Aggregate(adjusted, deductions)
	return &CalculationResult{
		EmployeeID:   emp.ID,
		ClientID:     emp.ClientID,
		Month:        in.Month,
		Year:         in.Year,
		DaysWorked:   factor.DaysWorked,
		TotalDays:    factor.TotalDays,
		Factor:       factor,
		Components:   adjusted,
		GrossSalary:  totals.Gross,
		Deductions:   deductions,
		NetSalary:    totals.Net,
		CreditToBank: totals.CreditToBank,
	}, nil
}
