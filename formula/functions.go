package formula

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// builtin is a whitelisted function. maxArgs < 0 means variadic.
type builtin struct {
	minArgs int
	maxArgs int
	call    func(args []decimal.Decimal) (decimal.Decimal, error)
}

// builtins is the closed set of callable functions, keyed by upper-case name.
var builtins = map[string]builtin{
	"SUM":     {1, -1, fnSum},
	"AVERAGE": {1, -1, fnAverage},
	"MIN":     {1, -1, fnMin},
	"MAX":     {1, -1, fnMax},
	"ROUND":   {1, 2, fnRound},
	"FLOOR":   {1, 1, func(a []decimal.Decimal) (decimal.Decimal, error) { return a[0].Floor(), nil }},
	"CEIL":    {1, 1, func(a []decimal.Decimal) (decimal.Decimal, error) { return a[0].Ceil(), nil }},
	"ABS":     {1, 1, func(a []decimal.Decimal) (decimal.Decimal, error) { return a[0].Abs(), nil }},
	"SQRT":    {1, 1, fnSqrt},
	"POW":     {2, 2, fnPow},
	"LOG":     {1, 2, fnLog},
	"EXP":     {1, 1, fnExp},
}

// FunctionNames lists the whitelisted functions.
func FunctionNames() []string {
	return []string{"SUM", "AVERAGE", "MIN", "MAX", "ROUND", "FLOOR", "CEIL", "ABS", "SQRT", "POW", "LOG", "EXP"}
}

func lookupBuiltin(name string) (builtin, bool) {
	b, ok := builtins[strings.ToUpper(name)]
	return b, ok
}

func fnSum(args []decimal.Decimal) (decimal.Decimal, error) {
	return generic.Sum(args...), nil
}

func fnAverage(args []decimal.Decimal) (decimal.Decimal, error) {
	return generic.Sum(args...).Div(decimal.NewFromInt(int64(len(args)))), nil
}

func fnMin(args []decimal.Decimal) (decimal.Decimal, error) {
	return decimal.Min(args[0], args[1:]...), nil
}

func fnMax(args []decimal.Decimal) (decimal.Decimal, error) {
	return decimal.Max(args[0], args[1:]...), nil
}

func fnRound(args []decimal.Decimal) (decimal.Decimal, error) {
	places := int32(0)
	if len(args) == 2 {
		if !args[1].IsInteger() || args[1].Abs().GreaterThan(decimal.NewFromInt(16)) {
			return decimal.Zero, generic.Errorf(generic.KindNonNumericResult, "formula.ROUND",
				"places must be a whole number between -16 and 16, got %s", args[1])
		}
		places = int32(args[1].IntPart())
	}
	return args[0].Round(places), nil
}

// Transcendental functions go through float64 and are checked for NaN/Inf.

func fromFloat(op string, f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, generic.Errorf(generic.KindNonNumericResult, op, "result is not a finite number")
	}
	return decimal.NewFromFloat(f), nil
}

func fnSqrt(args []decimal.Decimal) (decimal.Decimal, error) {
	return fromFloat("formula.SQRT", math.Sqrt(args[0].InexactFloat64()))
}

func fnPow(args []decimal.Decimal) (decimal.Decimal, error) {
	return fromFloat("formula.POW", math.Pow(args[0].InexactFloat64(), args[1].InexactFloat64()))
}

// fnLog is the natural logarithm; LOG(x, base) uses the given base.
func fnLog(args []decimal.Decimal) (decimal.Decimal, error) {
	x := args[0].InexactFloat64()
	if x <= 0 {
		return decimal.Zero, generic.Errorf(generic.KindNonNumericResult, "formula.LOG", "logarithm of non-positive value %s", args[0])
	}
	if len(args) == 1 {
		return fromFloat("formula.LOG", math.Log(x))
	}
	return fromFloat("formula.LOG", math.Log(x)/math.Log(args[1].InexactFloat64()))
}

func fnExp(args []decimal.Decimal) (decimal.Decimal, error) {
	return fromFloat("formula.EXP", math.Exp(args[0].InexactFloat64()))
}
