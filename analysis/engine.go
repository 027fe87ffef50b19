// Package analysis interprets a plate: for every well+channel it picks the
// first applicable panel rule, evaluates its positive-call and concentration
// formulas, and emits one Result.
package analysis

import (
	"context"
	"log"
	"os"

	"github.com/carbocation/qpcr/formula"
	"github.com/carbocation/qpcr/pattern"
	"github.com/carbocation/qpcr/plate"
	"github.com/carbocation/qpcr/rules"
	"gopkg.in/guregu/null.v3"
)

type Logger interface {
	Print(v ...interface{})
	Printf(format string, v ...interface{})
	Println(v ...interface{})
}

type compiledRule struct {
	rules.Rule

	pattern       pattern.Pattern
	channel       string
	positive      *formula.Expr
	concentration *formula.Expr
}

// Engine holds a compiled snapshot of a panel's rules. Later edits to the panel
// do not affect it, and it keeps no state between Analyze calls, so one Engine
// can analyze many plates, concurrently if need be.
type Engine struct {
	panel string
	rules []compiledRule
	log   Logger
}

type Option func(*Engine)

func WithLogger(l Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// New compiles the panel's flattened rule list once. Malformed patterns and
// formulas are logged here; such rules never match (bad pattern) or always
// yield Invalid (bad positive formula) or no concentration (bad concentration
// formula).
func New(panel *rules.Panel, opts ...Option) *Engine {
	e := &Engine{
		panel: panel.Name,
		log:   log.New(os.Stderr, log.Prefix(), log.LstdFlags),
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, r := range panel.Clone().Rules() {
		cr := compiledRule{Rule: r, channel: plate.NormalizeChannel(r.Channel)}

		var err error
		if cr.pattern, err = pattern.Compile(r.Pattern); err != nil {
			e.log.Printf("Panel %s rule %d: soft pattern error: %v\n", e.panel, r.Index, err)
		}

		if cr.positive, err = formula.Compile(r.PositiveFormula); err != nil {
			e.log.Printf("Panel %s rule %d: positive formula error: %v\n", e.panel, r.Index, err)
		}

		if r.ConcentrationFormula != "" {
			if cr.concentration, err = formula.Compile(r.ConcentrationFormula); err != nil {
				e.log.Printf("Panel %s rule %d: concentration formula error: %v\n", e.panel, r.Index, err)
			}
		}

		e.rules = append(e.rules, cr)
	}

	return e
}

// RuleCount is the number of rules the engine scans per cell.
func (e *Engine) RuleCount() int {
	return len(e.rules)
}

// Analyze interprets every distinct well+channel in wells, in input order. A
// well+channel that appears more than once is analyzed once, using its first
// record. Failures are contained to the cell they happen in; the only error
// Analyze returns is ctx's, in which case no results are returned.
func (e *Engine) Analyze(ctx context.Context, wells []plate.Well) ([]Result, error) {
	ev := formula.Evaluator{Index: plate.NewIndex(wells)}

	out := make([]Result, 0, len(wells))
	seen := make(map[string]struct{}, len(wells))

	for _, w := range wells {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		key := plate.NormalizePosition(w.Position) + "\t" + plate.NormalizeChannel(w.Channel)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		out = append(out, e.analyzeCell(ev, w))
	}

	return out, nil
}

func (e *Engine) analyzeCell(ev formula.Evaluator, w plate.Well) (res Result) {
	res = Result{
		Position:   plate.NormalizePosition(w.Position),
		Channel:    w.Channel,
		Target:     w.TargetName.String,
		Ct:         w.Ct,
		Mark:       w.Mark,
		WellType:   w.Type,
		Call:       NoRuleMatched,
		SampleName: w.SampleName.String,
	}

	defer func() {
		if r := recover(); r != nil {
			e.log.Printf("Well %s channel %s: analysis failed: %v\n", res.Position, res.Channel, r)
			res.Call = Invalid
			res.Positive = null.Bool{}
			res.Concentration = null.Float{}
		}
	}()

	rule, ok := e.match(res.Position, w.Channel)
	if !ok {
		return res
	}

	res.RuleIndex = rule.Index
	if rule.Target != "" {
		res.Target = rule.Target
	}

	if rule.positive != nil {
		res.Positive = ev.Positive(res.Position, w.Channel, rule.positive)
	}
	switch {
	case !res.Positive.Valid:
		res.Call = Invalid
	case res.Positive.Bool:
		res.Call = Positive
	default:
		res.Call = Negative
	}

	if rule.concentration != nil {
		res.Concentration = ev.Concentration(res.Position, w.Channel, rule.concentration)
	}

	return res
}

// match returns the first rule, in panel order, for this channel whose pattern
// covers the position. Group priority is not consulted.
func (e *Engine) match(position, channel string) (*compiledRule, bool) {
	channel = plate.NormalizeChannel(channel)

	for i := range e.rules {
		r := &e.rules[i]
		if r.channel == channel && r.pattern.Matches(position) {
			return r, true
		}
	}

	return nil, false
}
