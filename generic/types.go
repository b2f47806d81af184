/*
Package generic provides the shared primitives of the payroll engine.

PURPOSE:
  Domain-agnostic building blocks used by every other package: typed
  identifiers, decimal money arithmetic, the calendar helpers that define
  a billing month, and the error taxonomy.

KEY CONCEPTS IN THIS FILE (types.go):
  - IDs: Type-safe identifiers for employees, clients, staff and tickets
  - Money: decimal.Decimal rounded to 2 places, half away from zero
  - Factor: decimal.Decimal rounded to 4 places

DESIGN PRINCIPLES:
  1. Precision: All money and rates are decimal.Decimal, never float64
  2. Determinism: Rounding happens at well-defined points only
  3. Type Safety: Strong typing for IDs prevents mixing employee/client IDs

USAGE:
  gross := generic.RoundMoney(base.Mul(factor))
  pension := generic.RoundMoney(generic.ApplyRate(pensionable, rate))

SEE ALSO:
  - time.go: Calendar / billing basis helpers
  - errors.go: Error kinds
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type ClientID string
type TicketID string

// =============================================================================
// MONEY - decimal helpers with fixed rounding points
// =============================================================================

const (
	// MoneyPlaces is the number of decimal places for currency amounts.
	MoneyPlaces = 2
	// FactorPlaces is the number of decimal places for attendance factors.
	FactorPlaces = 4
)

var hundred = decimal.NewFromInt(100)

// RoundMoney rounds to 2 decimal places, half away from zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// RoundFactor rounds to 4 decimal places, half away from zero.
func RoundFactor(d decimal.Decimal) decimal.Decimal {
	return d.Round(FactorPlaces)
}

// ApplyRate returns base × rate%, unrounded.
func ApplyRate(base, ratePercent decimal.Decimal) decimal.Decimal {
	return base.Mul(ratePercent).Div(hundred)
}

// Sum adds a list of decimals.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// NonNegative clamps d at zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// MustParseDecimal parses s and panics on malformed input.
// Intended for constants and test fixtures.
func MustParseDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// MaxDecimalDigits bounds both the significant digits and the exponent of
// any amount accepted from outside. Arithmetic on decimals with huge
// exponents allocates proportionally.
const MaxDecimalDigits = 30

// InBounds reports whether d is small enough to compute with.
func InBounds(d decimal.Decimal) bool {
	exp := d.Exponent()
	if exp > MaxDecimalDigits || exp < -MaxDecimalDigits {
		return false
	}
	return d.NumDigits() <= MaxDecimalDigits
}

// DecimalPtr returns a pointer to d. Used for optional config rates.
func DecimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
