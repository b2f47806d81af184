package formula

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Variable is one named input to a formula.
type Variable struct {
	Name  string
	Value any
}

// Variables is an ordered variable list. Order defines range membership.
type Variables []Variable

// With returns a copy of vs with name appended.
func (vs Variables) With(name string, value any) Variables {
	out := make(Variables, len(vs), len(vs)+1)
	copy(out, vs)
	return append(out, Variable{Name: name, Value: value})
}

// Names returns the variable names in declaration order.
func (vs Variables) Names() []string {
	names := make([]string, len(vs))
	for i, v := range vs {
		names[i] = v.Name
	}
	return names
}

func (vs Variables) env() (*env, error) {
	e := &env{
		values: make(map[string]decimal.Decimal, len(vs)),
		order:  make(map[string]int, len(vs)),
		names:  make([]string, 0, len(vs)),
	}
	for _, v := range vs {
		if !namePattern.MatchString(v.Name) || strings.Contains(v.Name, "__") {
			return nil, generic.Errorf(generic.KindInvalidVariable, "formula.Variables",
				"invalid variable name %q", v.Name)
		}
		if _, dup := e.values[v.Name]; dup {
			return nil, generic.Errorf(generic.KindInvalidVariable, "formula.Variables",
				"variable %q declared twice", v.Name)
		}
		d, err := ToDecimal(v.Value)
		if err != nil {
			return nil, generic.Wrap(generic.KindInvalidVariable, "formula.Variables", err,
				"variable "+v.Name)
		}
		e.order[v.Name] = len(e.names)
		e.names = append(e.names, v.Name)
		e.values[v.Name] = d
	}
	return e, nil
}

// ToDecimal converts a numeric Go value to a decimal. Values outside
// generic.InBounds are rejected.
func ToDecimal(v any) (decimal.Decimal, error) {
	d, err := toDecimal(v)
	if err != nil {
		return decimal.Zero, err
	}
	if !generic.InBounds(d) {
		return decimal.Zero, generic.Errorf(generic.KindInvalidVariable, "formula.ToDecimal",
			"value out of range: at most %d digits and exponent magnitude %d",
			generic.MaxDecimalDigits, generic.MaxDecimalDigits)
	}
	return d, nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, nil
	case *decimal.Decimal:
		if n == nil {
			break
		}
		return *n, nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int8:
		return decimal.NewFromInt(int64(n)), nil
	case int16:
		return decimal.NewFromInt(int64(n)), nil
	case int32:
		return decimal.NewFromInt32(n), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case uint:
		return parseNumeric(strconv.FormatUint(uint64(n), 10))
	case uint8:
		return decimal.NewFromInt(int64(n)), nil
	case uint16:
		return decimal.NewFromInt(int64(n)), nil
	case uint32:
		return decimal.NewFromInt(int64(n)), nil
	case uint64:
		return parseNumeric(strconv.FormatUint(n, 10))
	case float32:
		return floatDecimal(float64(n))
	case float64:
		return floatDecimal(n)
	case json.Number:
		return parseNumeric(string(n))
	case string:
		return parseNumeric(n)
	}
	return decimal.Zero, generic.Errorf(generic.KindInvalidVariable, "formula.ToDecimal",
		"value of type %T is not numeric", v)
}

func floatDecimal(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, generic.Errorf(generic.KindInvalidVariable, "formula.ToDecimal",
			"value %v is not a finite number", f)
	}
	return decimal.NewFromFloat(f), nil
}

func parseNumeric(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, generic.Errorf(generic.KindInvalidVariable, "formula.ToDecimal",
			"value %q is not numeric", s)
	}
	return d, nil
}
