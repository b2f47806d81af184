package payroll

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// ComputeFactor returns daysWorked / totalDays for the month, rounded to
// 4 places. Days beyond the month's total are clamped, so the factor never
// exceeds 1.
func ComputeFactor(daysWorked int, basis generic.BillingBasis, month time.Month, year int) (AttendanceFactor, error) {
	const op = "payroll.ComputeFactor"

	if daysWorked < 0 {
		return AttendanceFactor{}, generic.Errorf(generic.KindInvalidInput, op,
			"days worked cannot be negative: %d", daysWorked)
	}
	if !basis.Valid() {
		return AttendanceFactor{}, generic.Errorf(generic.KindInvalidInput, op,
			"unknown billing basis %q", basis)
	}
	if !generic.ValidMonth(month) {
		return AttendanceFactor{}, generic.Errorf(generic.KindInvalidInput, op,
			"month must be 1-12, got %d", month)
	}

	total := generic.TotalDays(basis, year, month)
	if daysWorked > total {
		daysWorked = total
	}

	f := AttendanceFactor{
		Value:      decimal.Zero,
		DaysWorked: daysWorked,
		TotalDays:  total,
		Basis:      basis,
		Month:      month,
		Year:       year,
	}
	if total == 0 {
		return f, nil
	}
	f.Value = decimal.NewFromInt(int64(daysWorked)).DivRound(decimal.NewFromInt(int64(total)), generic.FactorPlaces)
	return f, nil
}
