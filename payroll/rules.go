package payroll

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/formula"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// CLIENT FORMULA RULES
// =============================================================================

type RuleKind string

const (
	// RuleAllowance adds a component, evaluated on base amounts and then
	// prorated like any other allowance.
	RuleAllowance RuleKind = "allowance"
	// RuleDeduction adds a deduction, evaluated after statutory levies.
	RuleDeduction RuleKind = "deduction"
)

// FormulaRule is a client-defined allowance or deduction.
type FormulaRule struct {
	Name    string   `json:"name" validate:"required,max=64"`
	Kind    RuleKind `json:"kind" validate:"required,oneof=allowance deduction"`
	Formula string   `json:"formula" validate:"required,max=1000"`
}

// Variables available to deduction rules besides the components.
const (
	VarGross           = "GROSS"
	VarAnnualGross     = "ANNUAL_GROSS"
	VarPensionableBase = "PENSIONABLE_BASE"
	VarFactor          = "FACTOR"
	VarDaysWorked      = "DAYS_WORKED"
	VarTotalDays       = "TOTAL_DAYS"
	VarIncomeTax       = "INCOME_TAX"
	VarPension         = "PENSION"
	VarHousingFund     = "HOUSING_FUND"
	VarSocialInsurance = "SOCIAL_INSURANCE"
	VarTrainingFund    = "TRAINING_FUND"
)

var reservedVariables = map[string]bool{
	VarGross: true, VarAnnualGross: true, VarPensionableBase: true,
	VarFactor: true, VarDaysWorked: true, VarTotalDays: true,
	VarIncomeTax: true, VarPension: true, VarHousingFund: true,
	VarSocialInsurance: true, VarTrainingFund: true,
}

var (
	nonIdent    = regexp.MustCompile(`[^A-Za-z0-9_]+`)
	underscores = regexp.MustCompile(`_{2,}`)
)

// VariableName maps a component name to its formula variable:
// "basic_salary" -> "BASIC_SALARY", "meal allowance" -> "MEAL_ALLOWANCE".
func VariableName(component string) string {
	n := nonIdent.ReplaceAllString(strings.TrimSpace(component), "_")
	n = underscores.ReplaceAllString(n, "_")
	n = strings.ToUpper(strings.Trim(n, "_"))
	if n != "" && n[0] >= '0' && n[0] <= '9' {
		n = "C_" + n
	}
	return n
}

// componentVariables exposes adjusted components in order. Names that
// collide with reserved variables or with an earlier component are skipped.
func componentVariables(adjusted []AdjustedComponent) formula.Variables {
	vars := make(formula.Variables, 0, len(adjusted)+12)
	seen := make(map[string]bool, len(adjusted))
	for _, a := range adjusted {
		n := VariableName(a.Name)
		if n == "" || seen[n] || reservedVariables[n] {
			continue
		}
		seen[n] = true
		vars = append(vars, formula.Variable{Name: n, Value: a.AdjustedAmount})
	}
	return vars
}

// allowanceComponents evaluates allowance rules against the base amounts.
// A rule may reference the result of an earlier rule. Non-positive
// results produce no component.
func allowanceComponents(rules []FormulaRule, base []SalaryComponent) ([]SalaryComponent, error) {
	vars := make(formula.Variables, 0, len(base)+len(rules))
	seen := make(map[string]bool)
	for _, c := range base {
		n := VariableName(c.Name)
		if n == "" || seen[n] || reservedVariables[n] {
			continue
		}
		seen[n] = true
		vars = append(vars, formula.Variable{Name: n, Value: c.Amount})
	}

	var out []SalaryComponent
	for _, r := range rules {
		if r.Kind != RuleAllowance {
			continue
		}
		v, err := formula.Evaluate(r.Formula, vars)
		if err != nil {
			return nil, ruleError(r, err)
		}
		amount := generic.RoundMoney(v)
		if n := VariableName(r.Name); n != "" && !seen[n] && !reservedVariables[n] {
			seen[n] = true
			vars = append(vars, formula.Variable{Name: n, Value: amount})
		}
		if amount.IsPositive() {
			out = append(out, SalaryComponent{Name: r.Name, Amount: amount, Category: CategoryAllowance})
		}
	}
	return out, nil
}

// deductionAmounts evaluates deduction rules after statutory levies.
// Results clamp at zero.
func deductionAmounts(rules []FormulaRule, adjusted []AdjustedComponent, factor AttendanceFactor, gross decimal.Decimal, set StatutoryDeductionSet) ([]NamedAmount, error) {
	vars := componentVariables(adjusted).
		With(VarGross, gross).
		With(VarAnnualGross, gross.Mul(twelve)).
		With(VarFactor, factor.Value).
		With(VarDaysWorked, factor.DaysWorked).
		With(VarTotalDays, factor.TotalDays).
		With(VarIncomeTax, set.IncomeTax).
		With(VarPension, set.Pension).
		With(VarHousingFund, set.HousingFund).
		With(VarSocialInsurance, set.SocialInsurance).
		With(VarTrainingFund, set.TrainingFund)

	var out []NamedAmount
	for _, r := range rules {
		if r.Kind != RuleDeduction {
			continue
		}
		v, err := formula.Evaluate(r.Formula, vars)
		if err != nil {
			return nil, ruleError(r, err)
		}
		out = append(out, NamedAmount{Name: r.Name, Amount: generic.RoundMoney(generic.NonNegative(v))})
	}
	return out, nil
}

func ruleError(r FormulaRule, err error) error {
	return &generic.Error{
		Kind:    generic.KindOf(err),
		Op:      "payroll.rules",
		Message: string(r.Kind) + " rule " + r.Name,
		Err:     err,
	}
}
