package formula

import (
	"fmt"
	"math"
	"strconv"
)

// ValueKind distinguishes numeric from boolean results.
type ValueKind int

const (
	KindNumber ValueKind = iota
	KindBool
)

// Value is the result of evaluating an expression or any of its subtrees.
type Value struct {
	Kind ValueKind
	Num  float64
	Bool bool
}

func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }
func Bool(b bool) Value      { return Value{Kind: KindBool, Bool: b} }

func (v Value) String() string {
	if v.Kind == KindBool {
		return strconv.FormatBool(v.Bool)
	}
	return strconv.FormatFloat(v.Num, 'g', -1, 64)
}

// Truth is the positive-call reading of a value: booleans as-is, numbers true
// when nonzero.
func (v Value) Truth() bool {
	if v.Kind == KindBool {
		return v.Bool
	}
	return v.Num != 0
}

// Vars holds resolved Ct values keyed by normalized channel name.
type Vars map[string]float64

type node interface {
	eval(vars Vars) (Value, error)
}

type numberNode float64

func (n numberNode) eval(Vars) (Value, error) { return Number(float64(n)), nil }

type boolNode bool

func (n boolNode) eval(Vars) (Value, error) { return Bool(bool(n)), nil }

type channelNode struct {
	name string // as written
	key  string // normalized
}

func (n channelNode) eval(vars Vars) (Value, error) {
	ct, ok := vars[n.key]
	if !ok {
		return Value{}, fmt.Errorf("no Ct value for channel {%s}", n.name)
	}
	return Number(ct), nil
}

type unaryNode struct {
	op string
	x  node
}

func (n unaryNode) eval(vars Vars) (Value, error) {
	v, err := n.x.eval(vars)
	if err != nil {
		return v, err
	}

	switch n.op {
	case "-":
		if v.Kind != KindNumber {
			return Value{}, fmt.Errorf("cannot negate %s", v)
		}
		return Number(-v.Num), nil
	case "+":
		if v.Kind != KindNumber {
			return Value{}, fmt.Errorf("unary + applied to %s", v)
		}
		return v, nil
	case "!":
		if v.Kind != KindBool {
			return Value{}, fmt.Errorf("cannot apply 'not' to number %s", v)
		}
		return Bool(!v.Bool), nil
	}

	return Value{}, fmt.Errorf("unknown unary operator %s", n.op)
}

type binaryNode struct {
	op   string
	l, r node
}

func (n binaryNode) eval(vars Vars) (Value, error) {
	l, err := n.l.eval(vars)
	if err != nil {
		return l, err
	}

	// Short-circuit the logical operators
	switch n.op {
	case "&&", "||":
		if l.Kind != KindBool {
			return Value{}, fmt.Errorf("left side of %s is not boolean", n.op)
		}
		if n.op == "&&" && !l.Bool {
			return Bool(false), nil
		}
		if n.op == "||" && l.Bool {
			return Bool(true), nil
		}
		r, err := n.r.eval(vars)
		if err != nil {
			return r, err
		}
		if r.Kind != KindBool {
			return Value{}, fmt.Errorf("right side of %s is not boolean", n.op)
		}
		return Bool(r.Bool), nil
	}

	r, err := n.r.eval(vars)
	if err != nil {
		return r, err
	}

	switch n.op {
	case "==", "!=":
		if l.Kind != r.Kind {
			return Value{}, fmt.Errorf("cannot compare %s with %s", l, r)
		}
		eq := l == r
		if n.op == "!=" {
			eq = !eq
		}
		return Bool(eq), nil
	}

	if l.Kind != KindNumber || r.Kind != KindNumber {
		return Value{}, fmt.Errorf("operator %s needs numbers, got %s and %s", n.op, l, r)
	}

	switch n.op {
	case "<":
		return Bool(l.Num < r.Num), nil
	case "<=":
		return Bool(l.Num <= r.Num), nil
	case ">":
		return Bool(l.Num > r.Num), nil
	case ">=":
		return Bool(l.Num >= r.Num), nil
	case "+":
		return finite(l.Num + r.Num)
	case "-":
		return finite(l.Num - r.Num)
	case "*":
		return finite(l.Num * r.Num)
	case "/":
		if r.Num == 0 {
			return Value{}, fmt.Errorf("division by zero")
		}
		return finite(l.Num / r.Num)
	case "%":
		if r.Num == 0 {
			return Value{}, fmt.Errorf("modulo by zero")
		}
		return finite(math.Mod(l.Num, r.Num))
	case "^":
		return finite(math.Pow(l.Num, r.Num))
	}

	return Value{}, fmt.Errorf("unknown operator %s", n.op)
}

type callNode struct {
	name string
	args []node
}

func (n callNode) eval(vars Vars) (Value, error) {
	// if() only evaluates the branch it takes
	if n.name == "if" {
		c, err := n.args[0].eval(vars)
		if err != nil {
			return c, err
		}
		if c.Kind != KindBool {
			return Value{}, fmt.Errorf("if() condition is not boolean")
		}
		if c.Bool {
			return n.args[1].eval(vars)
		}
		return n.args[2].eval(vars)
	}

	nums := make([]float64, len(n.args))
	for i, a := range n.args {
		v, err := a.eval(vars)
		if err != nil {
			return v, err
		}
		if v.Kind != KindNumber {
			return Value{}, fmt.Errorf("%s() argument %d is not a number", n.name, i+1)
		}
		nums[i] = v.Num
	}

	fn := functions[n.name]
	return finite(fn.apply(nums))
}

type function struct {
	arity    int
	maxArity int
	apply    func(args []float64) float64
}

// The complete set of callable functions. Formulas cannot call anything else.
var functions = map[string]function{
	"abs":   {1, 1, func(a []float64) float64 { return math.Abs(a[0]) }},
	"pow":   {2, 2, func(a []float64) float64 { return math.Pow(a[0], a[1]) }},
	"log10": {1, 1, func(a []float64) float64 { return math.Log10(a[0]) }},
	"ln":    {1, 1, func(a []float64) float64 { return math.Log(a[0]) }},
	"exp":   {1, 1, func(a []float64) float64 { return math.Exp(a[0]) }},
	"sqrt":  {1, 1, func(a []float64) float64 { return math.Sqrt(a[0]) }},
	"min":   {2, 2, func(a []float64) float64 { return math.Min(a[0], a[1]) }},
	"max":   {2, 2, func(a []float64) float64 { return math.Max(a[0], a[1]) }},
	"round": {1, 2, func(a []float64) float64 {
		if len(a) == 1 {
			return math.Round(a[0])
		}
		scale := math.Pow(10, math.Trunc(a[1]))
		return math.Round(a[0]*scale) / scale
	}},
	"if": {3, 3, nil},
}

func finite(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, fmt.Errorf("result is not a finite number")
	}
	return Number(f), nil
}
