package formula

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// maxDepth bounds expression nesting.
const maxDepth = 64

// =============================================================================
// AST
// =============================================================================

type node interface {
	eval(e *env) (decimal.Decimal, error)
}

type numberNode struct {
	value decimal.Decimal
}

type varNode struct {
	name string
	pos  int
}

// rangeNode sums every variable whose declaration order lies between
// from and to, inclusive, in either direction.
type rangeNode struct {
	from, to string
	pos      int
}

type callNode struct {
	name string
	fn   builtin
	args []node
}

type unaryNode struct {
	neg     bool
	operand node
}

type binaryNode struct {
	op          tokenKind
	left, right node
	pos         int
}

// =============================================================================
// PARSER - recursive descent over a closed grammar
// =============================================================================
//
//   expr    := term (('+' | '-') term)*
//   term    := unary (('*' | '/') unary)*
//   unary   := ('+' | '-') unary | primary
//   primary := NUMBER ['%']
//            | IDENT '(' [expr (',' expr)*] ')'
//            | IDENT ':' IDENT
//            | IDENT
//            | '(' expr ')'

type parser struct {
	toks  []token
	pos   int
	depth int
	vars  []string // referenced variables, first-appearance order
	seen  map[string]bool
}

func parse(src string) (node, []string, *Issue) {
	toks, issue := lex(src)
	if issue != nil {
		return nil, nil, issue
	}
	p := &parser{toks: toks, seen: make(map[string]bool)}
	root, issue := p.expr()
	if issue != nil {
		return nil, nil, issue
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, nil, p.unexpected(t)
	}
	return root, p.vars, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) unexpected(t token) *Issue {
	if t.kind == tokEOF {
		return &Issue{Code: IssueSyntax, Message: "unexpected end of formula", Position: t.pos}
	}
	return &Issue{Code: IssueSyntax, Message: fmt.Sprintf("unexpected %s %q", t.kind, t.text), Position: t.pos}
}

func (p *parser) expect(k tokenKind) (token, *Issue) {
	t := p.next()
	if t.kind != k {
		return t, &Issue{Code: IssueSyntax, Message: fmt.Sprintf("expected %s", k), Position: t.pos}
	}
	return t, nil
}

func (p *parser) reference(name string) {
	if !p.seen[name] {
		p.seen[name] = true
		p.vars = append(p.vars, name)
	}
}

func (p *parser) expr() (node, *Issue) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxDepth {
		return nil, &Issue{Code: IssueSyntax, Message: "formula is nested too deeply", Position: p.peek().pos}
	}

	left, issue := p.term()
	if issue != nil {
		return nil, issue
	}
	for {
		t := p.peek()
		if t.kind != tokPlus && t.kind != tokMinus {
			return left, nil
		}
		p.next()
		right, issue := p.term()
		if issue != nil {
			return nil, issue
		}
		left = &binaryNode{op: t.kind, left: left, right: right, pos: t.pos}
	}
}

func (p *parser) term() (node, *Issue) {
	left, issue := p.unary()
	if issue != nil {
		return nil, issue
	}
	for {
		t := p.peek()
		if t.kind != tokStar && t.kind != tokSlash {
			return left, nil
		}
		p.next()
		right, issue := p.unary()
		if issue != nil {
			return nil, issue
		}
		left = &binaryNode{op: t.kind, left: left, right: right, pos: t.pos}
	}
}

func (p *parser) unary() (node, *Issue) {
	t := p.peek()
	if t.kind == tokPlus || t.kind == tokMinus {
		p.next()
		p.depth++
		defer func() { p.depth-- }()
		if p.depth > maxDepth {
			return nil, &Issue{Code: IssueSyntax, Message: "formula is nested too deeply", Position: t.pos}
		}
		operand, issue := p.unary()
		if issue != nil {
			return nil, issue
		}
		return &unaryNode{neg: t.kind == tokMinus, operand: operand}, nil
	}
	return p.primary()
}

func (p *parser) primary() (node, *Issue) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		v, err := decimal.NewFromString(t.text)
		if err != nil {
			return nil, &Issue{Code: IssueSyntax, Message: fmt.Sprintf("malformed number %q", t.text), Position: t.pos}
		}
		if p.peek().kind == tokPercent {
			p.next()
			v = v.Div(decimal.NewFromInt(100))
		}
		return &numberNode{value: v}, nil

	case tokIdent:
		switch p.peek().kind {
		case tokLParen:
			return p.call(t)
		case tokColon:
			p.next()
			end, issue := p.expect(tokIdent)
			if issue != nil {
				return nil, issue
			}
			p.reference(t.text)
			p.reference(end.text)
			return &rangeNode{from: t.text, to: end.text, pos: t.pos}, nil
		}
		p.reference(t.text)
		return &varNode{name: t.text, pos: t.pos}, nil

	case tokLParen:
		inner, issue := p.expr()
		if issue != nil {
			return nil, issue
		}
		if _, issue := p.expect(tokRParen); issue != nil {
			return nil, issue
		}
		return inner, nil
	}
	return nil, p.unexpected(t)
}

func (p *parser) call(name token) (node, *Issue) {
	fn, ok := lookupBuiltin(name.text)
	if !ok {
		return nil, &Issue{
			Code:     IssueUnknownFunction,
			Message:  fmt.Sprintf("function %q is not allowed", name.text),
			Position: name.pos,
		}
	}
	p.next() // '('

	var args []node
	if p.peek().kind != tokRParen {
		for {
			arg, issue := p.expr()
			if issue != nil {
				return nil, issue
			}
			args = append(args, arg)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
	}
	if _, issue := p.expect(tokRParen); issue != nil {
		return nil, issue
	}

	if len(args) < fn.minArgs || (fn.maxArgs >= 0 && len(args) > fn.maxArgs) {
		return nil, &Issue{
			Code:     IssueArity,
			Message:  fmt.Sprintf("%s takes %s, got %d", strings.ToUpper(name.text), arityText(fn), len(args)),
			Position: name.pos,
		}
	}
	return &callNode{name: strings.ToUpper(name.text), fn: fn, args: args}, nil
}

func arityText(fn builtin) string {
	switch {
	case fn.maxArgs < 0:
		return fmt.Sprintf("at least %d argument(s)", fn.minArgs)
	case fn.minArgs == fn.maxArgs:
		return fmt.Sprintf("%d argument(s)", fn.minArgs)
	}
	return fmt.Sprintf("%d to %d arguments", fn.minArgs, fn.maxArgs)
}

// =============================================================================
// EVALUATION
// =============================================================================

type env struct {
	values map[string]decimal.Decimal
	order  map[string]int
	names  []string
}

func (n *numberNode) eval(*env) (decimal.Decimal, error) { return n.value, nil }

func (n *varNode) eval(e *env) (decimal.Decimal, error) {
	v, ok := e.values[n.name]
	if !ok {
		return decimal.Zero, generic.Errorf(generic.KindInvalidVariable, "formula.Evaluate",
			"undefined variable %q at %d", n.name, n.pos)
	}
	return v, nil
}

func (n *rangeNode) eval(e *env) (decimal.Decimal, error) {
	from, ok := e.order[n.from]
	if !ok {
		return decimal.Zero, generic.Errorf(generic.KindInvalidVariable, "formula.Evaluate",
			"undefined range start %q at %d", n.from, n.pos)
	}
	to, ok := e.order[n.to]
	if !ok {
		return decimal.Zero, generic.Errorf(generic.KindInvalidVariable, "formula.Evaluate",
			"undefined range end %q at %d", n.to, n.pos)
	}
	if from > to {
		from, to = to, from
	}
	total := decimal.Zero
	for _, name := range e.names[from : to+1] {
		total = total.Add(e.values[name])
	}
	return total, nil
}

func (n *callNode) eval(e *env) (decimal.Decimal, error) {
	args := make([]decimal.Decimal, len(n.args))
	for i, a := range n.args {
		v, err := a.eval(e)
		if err != nil {
			return decimal.Zero, err
		}
		args[i] = v
	}
	return n.fn.call(args)
}

func (n *unaryNode) eval(e *env) (decimal.Decimal, error) {
	v, err := n.operand.eval(e)
	if err != nil {
		return decimal.Zero, err
	}
	if n.neg {
		return v.Neg(), nil
	}
	return v, nil
}

func (n *binaryNode) eval(e *env) (decimal.Decimal, error) {
	l, err := n.left.eval(e)
	if err != nil {
		return decimal.Zero, err
	}
	r, err := n.right.eval(e)
	if err != nil {
		return decimal.Zero, err
	}
	switch n.op {
	case tokPlus:
		return l.Add(r), nil
	case tokMinus:
		return l.Sub(r), nil
	case tokStar:
		return l.Mul(r), nil
	case tokSlash:
		if r.IsZero() {
			return decimal.Zero, generic.Errorf(generic.KindNonNumericResult, "formula.Evaluate",
				"division by zero at %d", n.pos)
		}
		return l.Div(r), nil
	}
	return decimal.Zero, generic.Errorf(generic.KindInternal, "formula.Evaluate", "unknown operator %s", n.op)
}
