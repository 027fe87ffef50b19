package formula

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BenLubar/memoize"
	"github.com/carbocation/qpcr/plate"
)

// SelfChannel is the placeholder a concentration formula uses for the Ct of
// the channel being analyzed.
const SelfChannel = "CT"

// Expr is a compiled formula. It is immutable and safe to share.
type Expr struct {
	Source   string
	root     node
	channels []string
}

// Channels lists the normalized channel names the formula references, in the
// order they first appear. The {CT} placeholder is listed as SelfChannel.
func (x *Expr) Channels() []string {
	out := make([]string, len(x.channels))
	copy(out, x.channels)
	return out
}

// Eval evaluates the expression. Every referenced channel must be present in
// vars.
func (x *Expr) Eval(vars Vars) (Value, error) {
	v, err := x.root.eval(vars)
	if err != nil {
		return v, &Error{Formula: x.Source, Pos: -1, Reason: err.Error()}
	}
	return v, nil
}

var memoizedCompile = memoize.Memoize(compile)

// Compile parses src into an expression tree. Results are cached by source
// text, so compiling the same rule formula on every run is cheap.
func Compile(src string) (*Expr, error) {
	return memoizedCompile.(func(string) (*Expr, error))(src)
}

func compile(src string) (*Expr, error) {
	if strings.TrimSpace(src) == "" {
		return nil, &Error{Formula: src, Pos: 0, Reason: "empty formula"}
	}

	toks, err := lex(src)
	if err != nil {
		return nil, err
	}

	p := &parser{src: src, toks: toks, seen: make(map[string]bool)}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errorf(t, "unexpected %q", t.text)
	}

	return &Expr{Source: src, root: root, channels: p.channels}, nil
}

type parser struct {
	src      string
	toks     []token
	i        int
	channels []string
	seen     map[string]bool
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) errorf(t token, format string, args ...interface{}) error {
	return &Error{Formula: p.src, Pos: t.pos, Reason: fmt.Sprintf(format, args...)}
}

// acceptOp consumes the next token if it is one of ops (operators, or the word
// forms and/or/not) and returns the canonical operator.
func (p *parser) acceptOp(ops ...string) (string, bool) {
	t := p.peek()
	var text string
	switch t.kind {
	case tokOp:
		text = t.text
	case tokIdent:
		text = strings.ToLower(t.text)
	default:
		return "", false
	}

	for _, op := range ops {
		if text == op {
			p.next()
			return canonicalOp(op), true
		}
	}
	return "", false
}

func canonicalOp(op string) string {
	switch op {
	case "=":
		return "=="
	case "<>":
		return "!="
	case "and":
		return "&&"
	case "or":
		return "||"
	case "not":
		return "!"
	}
	return op
}

func (p *parser) parseOr() (node, error) {
	l, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.acceptOp("||", "or")
		if !ok {
			return l, nil
		}
		r, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		l = binaryNode{op: op, l: l, r: r}
	}
}

func (p *parser) parseAnd() (node, error) {
	l, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.acceptOp("&&", "and")
		if !ok {
			return l, nil
		}
		r, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		l = binaryNode{op: op, l: l, r: r}
	}
}

func (p *parser) parseEquality() (node, error) {
	l, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.acceptOp("==", "=", "!=", "<>")
		if !ok {
			return l, nil
		}
		r, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		l = binaryNode{op: op, l: l, r: r}
	}
}

func (p *parser) parseComparison() (node, error) {
	l, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.acceptOp("<", "<=", ">", ">=")
		if !ok {
			return l, nil
		}
		r, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		l = binaryNode{op: op, l: l, r: r}
	}
}

func (p *parser) parseAdditive() (node, error) {
	l, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.acceptOp("+", "-")
		if !ok {
			return l, nil
		}
		r, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		l = binaryNode{op: op, l: l, r: r}
	}
}

func (p *parser) parseMultiplicative() (node, error) {
	l, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.acceptOp("*", "/", "%")
		if !ok {
			return l, nil
		}
		r, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		l = binaryNode{op: op, l: l, r: r}
	}
}

func (p *parser) parseUnary() (node, error) {
	if op, ok := p.acceptOp("-", "+", "!", "not"); ok {
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryNode{op: op, x: x}, nil
	}
	return p.parsePower()
}

// a^b is right associative and binds tighter than unary minus, so -2^2 is -4
// and 2^3^2 is 2^9.
func (p *parser) parsePower() (node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if _, ok := p.acceptOp("^"); !ok {
		return base, nil
	}
	exp, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return binaryNode{op: "^", l: base, r: exp}, nil
}

func (p *parser) parsePrimary() (node, error) {
	t := p.next()

	switch t.kind {
	case tokNumber:
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, p.errorf(t, "bad number %q", t.text)
		}
		return numberNode(f), nil

	case tokChannel:
		key := plate.NormalizeChannel(t.text)
		if !p.seen[key] {
			p.seen[key] = true
			p.channels = append(p.channels, key)
		}
		return channelNode{name: t.text, key: key}, nil

	case tokLParen:
		x, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if c := p.next(); c.kind != tokRParen {
			return nil, p.errorf(c, "expected ')'")
		}
		return x, nil

	case tokIdent:
		name := strings.ToLower(t.text)
		switch name {
		case "true":
			return boolNode(true), nil
		case "false":
			return boolNode(false), nil
		}
		return p.parseCall(t, name)

	case tokEOF:
		return nil, p.errorf(t, "unexpected end of formula")
	}

	return nil, p.errorf(t, "unexpected %q", t.text)
}

func (p *parser) parseCall(t token, name string) (node, error) {
	fn, ok := functions[name]
	if !ok {
		return nil, p.errorf(t, "unknown function or name %q", t.text)
	}
	if c := p.next(); c.kind != tokLParen {
		return nil, p.errorf(c, "expected '(' after %s", t.text)
	}

	var args []node
	if p.peek().kind == tokRParen {
		p.next()
	} else {
		for {
			a, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			args = append(args, a)

			c := p.next()
			if c.kind == tokRParen {
				break
			}
			if c.kind != tokComma {
				return nil, p.errorf(c, "expected ',' or ')' in call to %s", t.text)
			}
		}
	}

	if len(args) < fn.arity || len(args) > fn.maxArity {
		return nil, p.errorf(t, "%s() takes %d argument(s), got %d", name, fn.arity, len(args))
	}

	return callNode{name: name, args: args}, nil
}
