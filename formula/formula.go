// Package formula evaluates the two small formula languages used by panel
// rules: a boolean positive-call expression and a numeric concentration
// expression. Both may reference the Ct of any channel of the same well as
// {ChannelName}; concentration formulas may also use {CT} for the channel
// being analyzed.
package formula

import (
	"fmt"
	"log"

	"github.com/carbocation/qpcr/plate"
	"gopkg.in/guregu/null.v3"
)

// Error is a parse or evaluation failure. Pos is the byte offset in Formula,
// or -1 when the failure happened during evaluation.
type Error struct {
	Formula string
	Pos     int
	Reason  string
}

func (e *Error) Error() string {
	if e.Pos < 0 {
		return fmt.Sprintf("formula %q: %s", e.Formula, e.Reason)
	}
	return fmt.Sprintf("formula %q at offset %d: %s", e.Formula, e.Pos, e.Reason)
}

// Evaluator substitutes live Ct values from one run's Index.
type Evaluator struct {
	Index *plate.Index
}

// EvaluatePositive returns the positive call for the well, or an invalid
// null.Bool when the call is indeterminate.
func (e Evaluator) EvaluatePositive(position, src string) null.Bool {
	x, err := Compile(src)
	if err != nil {
		log.Println("Formula error:", err)
		return null.Bool{}
	}

	return e.Positive(position, "", x)
}

// EvaluateConcentration returns the concentration for the well+channel, or an
// invalid null.Float when it cannot be computed. An empty formula silently
// yields no concentration.
func (e Evaluator) EvaluateConcentration(position, channel, src string) null.Float {
	if src == "" {
		return null.Float{}
	}

	x, err := Compile(src)
	if err != nil {
		log.Println("Formula error:", err)
		return null.Float{}
	}

	return e.Concentration(position, channel, x)
}

// Positive evaluates a compiled positive-call formula. channel is the channel
// being analyzed and may be empty, in which case {CT} cannot be resolved.
func (e Evaluator) Positive(position, channel string, x *Expr) null.Bool {
	v, ok := e.eval(position, channel, x)
	if !ok {
		return null.Bool{}
	}

	return null.BoolFrom(v.Truth())
}

// Concentration evaluates a compiled concentration formula. A boolean result
// is not a concentration and yields no value.
func (e Evaluator) Concentration(position, channel string, x *Expr) null.Float {
	v, ok := e.eval(position, channel, x)
	if !ok {
		return null.Float{}
	}

	if v.Kind != KindNumber {
		log.Printf("Formula %q for %s/%s produced %s, not a number\n", x.Source, position, channel, v)
		return null.Float{}
	}

	return null.FloatFrom(v.Num)
}

// eval resolves every referenced channel before any arithmetic happens. A
// single undetermined reference makes the whole formula indeterminate, which is
// not an error and is not logged.
func (e Evaluator) eval(position, channel string, x *Expr) (Value, bool) {
	vars := make(Vars, len(x.channels))

	for _, name := range x.channels {
		lookup := name
		if name == SelfChannel && channel != "" {
			lookup = channel
		}

		ct, _ := e.Index.Lookup(position, lookup)
		if !ct.Valid {
			return Value{}, false
		}
		vars[name] = ct.Float64
	}

	v, err := x.Eval(vars)
	if err != nil {
		log.Printf("Formula error at %s/%s: %v\n", position, channel, err)
		return Value{}, false
	}

	return v, true
}
