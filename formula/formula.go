/*
Package formula provides a sandboxed arithmetic formula evaluator.

PURPOSE:
  Clients configure allowances, deductions and statutory overrides as
  formulas ("BASIC_SALARY * 10%", "MAX(0, GROSS - 30000) * 5%"). This
  package evaluates them without ever handing text to a host interpreter:
  input is screened, lexed and parsed into a closed AST, then evaluated
  with decimal arithmetic.

LANGUAGE:
  Numbers:     150000, 0.5, 10% (= 0.10)
  Operators:   + - * / with usual precedence, unary minus, parentheses
  Variables:   [A-Za-z_][A-Za-z0-9_]*, case-sensitive
  Ranges:      A:B sums every variable declared between A and B inclusive
  Functions:   SUM AVERAGE MIN MAX ROUND FLOOR CEIL ABS SQRT POW LOG EXP
               (names are case-insensitive, nothing else is callable)

SECURITY GATE (fail closed, before any parsing):
  - Longer than 1000 characters
  - Deny-listed words (exec, system, include, file access, superglobals...)
  - "$", backticks, "__" and other non-arithmetic sequences
  - Characters outside the grammar
  - Unbalanced parentheses
  Any hit is an unsafe_formula error. Unknown functions and syntax errors
  are unsafe_formula too.

VARIABLES:
  Supplied as an ordered list so that ranges are well defined. Values may
  be any Go numeric type, decimal.Decimal, json.Number or a numeric string;
  anything else is an invalid_variable error.

USAGE:
  v, err := formula.Evaluate("BASIC * 10% + BONUS", formula.Variables{
      {Name: "BASIC", Value: 150000},
      {Name: "BONUS", Value: "2500.50"},
  })

  // Compile once, evaluate many times
  prog, err := formula.Compile(rule.Formula)
  v, err := prog.Eval(vars)

SEE ALSO:
  - payroll/statutory.go: Statutory levy formula overrides
  - payroll/rules.go: Client allowance/deduction rules
*/
package formula

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// Program is a compiled formula.
type Program struct {
	source string
	root   node
	vars   []string
}

// Source returns the formula text the program was compiled from.
func (p *Program) Source() string { return p.source }

// Variables returns the variable names the formula references,
// in first-appearance order.
func (p *Program) Variables() []string {
	out := make([]string, len(p.vars))
	copy(out, p.vars)
	return out
}

// Compile screens and parses a formula.
func Compile(src string) (*Program, error) {
	if issues := screen(src); len(issues) > 0 {
		return nil, issueError("formula.Compile", issues[0])
	}
	root, vars, issue := parse(src)
	if issue != nil {
		return nil, issueError("formula.Compile", *issue)
	}
	return &Program{source: src, root: root, vars: vars}, nil
}

// Eval evaluates the program against the given variables.
func (p *Program) Eval(vars Variables) (decimal.Decimal, error) {
	e, err := vars.env()
	if err != nil {
		return decimal.Zero, err
	}
	return p.root.eval(e)
}

// Evaluate compiles and evaluates a formula in one step.
func Evaluate(src string, vars Variables) (decimal.Decimal, error) {
	prog, err := Compile(src)
	if err != nil {
		return decimal.Zero, err
	}
	return prog.Eval(vars)
}

// ValidateFormula returns every problem found in the formula. An empty
// slice means the formula compiles. Variables are not checked.
func ValidateFormula(src string) []Issue {
	issues := screen(src)
	if len(issues) > 0 {
		return issues
	}
	if _, _, issue := parse(src); issue != nil {
		return []Issue{*issue}
	}
	return []Issue{}
}

// ExtractVariables returns the identifiers a formula references, excluding
// function names, de-duplicated in first-appearance order. It scans for
// identifiers directly and skips anything else, so formulas that fail
// validation still yield their names.
func ExtractVariables(src string) []string {
	seen := make(map[string]bool)
	names := []string{}
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case isDigit(c) || c == '.':
			for i < len(src) && (isDigit(src[i]) || src[i] == '.') {
				i++
			}
		case isIdentStart(c):
			start := i
			for i < len(src) && isIdentPart(src[i]) {
				i++
			}
			name := src[start:i]
			j := i
			for j < len(src) && (src[j] == ' ' || src[j] == '\t' || src[j] == '\n' || src[j] == '\r') {
				j++
			}
			if j < len(src) && src[j] == '(' {
				continue
			}
			if _, isFn := lookupBuiltin(name); isFn || seen[name] {
				continue
			}
			seen[name] = true
			names = append(names, name)
		default:
			i++
		}
	}
	return names
}

func issueError(op string, issue Issue) error {
	return &generic.Error{
		Kind:    generic.KindUnsafeFormula,
		Op:      op,
		Message: issue.String(),
	}
}

// IsFunctionName reports whether name is a whitelisted function.
func IsFunctionName(name string) bool {
	_, ok := builtins[strings.ToUpper(name)]
	return ok
}
