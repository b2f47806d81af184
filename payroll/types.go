/*
Package payroll turns attendance into pro-rated pay.

PURPOSE:
  The calculation pipeline for one employee and one billing month:

    attendance + billing basis -> ComputeFactor  -> factor
    salary components + factor -> Adjust         -> adjusted components, gross
    gross + adjusted + config  -> ComputeDeductions -> statutory deductions
    adjusted + deductions      -> Aggregate      -> net, credit to bank

  Every step is a pure function. Service wires them to the employee and
  client sources and adds the bulk run.

KEY CONCEPTS IN THIS FILE (types.go):
  - SalaryComponent:       A named base amount from the pay grade
  - AttendanceFactor:      daysWorked / totalDays, capped at 1
  - AdjustedComponent:     A component after proration
  - StatutoryDeductionSet: Income tax, pension, housing fund, social
                           insurance, training fund, plus custom rules
  - CalculationResult:     Everything one calculation produced

BILLING MODEL:
  The client is the employer of record. The employee receives net pay,
  the authorities receive the deductions, and the client is billed for
  both: creditToBank = gross + deductions.

SEE ALSO:
  - attendance.go: ComputeFactor
  - adjuster.go: Adjust
  - statutory.go: ComputeDeductions
  - aggregate.go: Aggregate
  - service.go: Calculate / CalculateBulk
*/
package payroll

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// SALARY COMPONENTS
// =============================================================================

type Category string

const (
	CategoryBase      Category = "base"
	CategoryAllowance Category = "allowance"
)

// Well-known component names.
const (
	ComponentBasicSalary        = "basic_salary"
	ComponentHousingAllowance   = "housing_allowance"
	ComponentTransportAllowance = "transport_allowance"
)

// SalaryComponent is one line of an employee's pay-grade snapshot.
type SalaryComponent struct {
	Name     string          `json:"name"`
	Amount   decimal.Decimal `json:"amount"`
	Category Category        `json:"category"`
}

// AdjustedComponent is a SalaryComponent after proration.
type AdjustedComponent struct {
	Name           string          `json:"name"`
	Category       Category        `json:"category"`
	BaseAmount     decimal.Decimal `json:"base_amount"`
	AdjustedAmount decimal.Decimal `json:"adjusted_amount"`
	Factor         decimal.Decimal `json:"factor"`
	Delta          decimal.Decimal `json:"delta"` // adjusted - base, <= 0
}

// AttendanceFactor is the fraction of the month an employee is paid for.
type AttendanceFactor struct {
	Value      decimal.Decimal      `json:"value"`
	DaysWorked int                  `json:"days_worked"` // after clamping
	TotalDays  int                  `json:"total_days"`
	Basis      generic.BillingBasis `json:"basis"`
	Month      time.Month           `json:"month"`
	Year       int                  `json:"year"`
}

// =============================================================================
// DEDUCTIONS
// =============================================================================

// NamedAmount is a deduction produced by a client formula rule.
type NamedAmount struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// StatutoryDeductionSet holds every deduction of one calculation.
// All amounts are >= 0 and rounded to 2 places; disabled levies are 0.
type StatutoryDeductionSet struct {
	IncomeTax       decimal.Decimal `json:"income_tax"`
	Pension         decimal.Decimal `json:"pension"`
	HousingFund     decimal.Decimal `json:"housing_fund"`
	SocialInsurance decimal.Decimal `json:"social_insurance"`
	TrainingFund    decimal.Decimal `json:"training_fund"`
	Custom          []NamedAmount   `json:"custom,omitempty"`
}

// Statutory returns the sum of the five statutory levies.
func (s StatutoryDeductionSet) Statutory() decimal.Decimal {
	return generic.Sum(s.IncomeTax, s.Pension, s.HousingFund, s.SocialInsurance, s.TrainingFund)
}

// Total returns the sum of every deduction, custom rules included.
func (s StatutoryDeductionSet) Total() decimal.Decimal {
	total := s.Statutory()
	for _, c := range s.Custom {
		total = total.Add(c.Amount)
	}
	return total
}

// =============================================================================
// EMPLOYEES AND RESULTS
// =============================================================================

type EmploymentStatus string

const (
	StatusActive   EmploymentStatus = "active"
	StatusInactive EmploymentStatus = "inactive"
)

// Employee is the read model the calculation needs.
type Employee struct {
	ID         generic.EmployeeID `json:"id"`
	ClientID   generic.ClientID   `json:"client_id"`
	Name       string             `json:"name"`
	PayGrade   string             `json:"pay_grade"`
	Status     EmploymentStatus   `json:"status"`
	Components []SalaryComponent  `json:"components"`
}

// AttendanceInput is one calculation request.
type AttendanceInput struct {
	EmployeeID generic.EmployeeID `json:"employee_id"`
	DaysWorked int                `json:"days_worked"`
	Month      time.Month         `json:"month"`
	Year       int                `json:"year"`
}

// CalculationResult is everything one calculation produced.
type CalculationResult struct {
	ID           string                `json:"id"`
	EmployeeID   generic.EmployeeID    `json:"employee_id"`
	ClientID     generic.ClientID      `json:"client_id"`
	Month        time.Month            `json:"month"`
	Year         int                   `json:"year"`
	DaysWorked   int                   `json:"days_worked"`
	TotalDays    int                   `json:"total_days"`
	Factor       AttendanceFactor      `json:"factor"`
	Components   []AdjustedComponent   `json:"components"`
	GrossSalary  decimal.Decimal       `json:"gross_salary"`
	Deductions   StatutoryDeductionSet `json:"deductions"`
	NetSalary    decimal.Decimal       `json:"net_salary"`
	CreditToBank decimal.Decimal       `json:"credit_to_bank"`
}
