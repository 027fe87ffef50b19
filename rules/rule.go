// Package rules holds panel configurations: ordered groups of interpretation
// rules plus channel definitions, and the file-backed Store that persists them.
package rules

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/carbocation/qpcr/formula"
	"github.com/carbocation/qpcr/plate"
)

// Legacy rule actions understood by the translator.
const (
	ActionPositive = "Positive"
	ActionNegative = "Negative"
)

// Rule is one interpretation rule. The engine consumes the pattern/formula
// fields; Name, Condition and Action are the simpler threshold-style shape some
// panel documents carry instead, see Canonical.
type Rule struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	Condition string `json:"condition"`
	Action    string `json:"action"`

	Pattern              string `json:"pattern,omitempty"`
	Channel              string `json:"channel,omitempty"`
	Target               string `json:"target,omitempty"`
	PositiveFormula      string `json:"positiveFormula,omitempty"`
	ConcentrationFormula string `json:"concentrationFormula,omitempty"`
}

// RuleGroup is an ordered list of rules. Priority is carried through load and
// save but plays no part in rule selection: the first matching rule in listed
// order always wins.
type RuleGroup struct {
	Name     string `json:"name"`
	Priority int    `json:"priority"`
	Rules    []Rule `json:"rules"`
}

// Channel describes one fluorescence channel of the panel. When MaxPositiveCt
// is set, the channel also acts as a threshold rule for any well not covered
// by an explicit rule.
type Channel struct {
	Name          string  `json:"name"`
	Target        string  `json:"target"`
	MinPositiveCt float64 `json:"minPositiveCt"`
	MaxPositiveCt float64 `json:"maxPositiveCt"`
}

// Panel is a named, versioned rule configuration.
type Panel struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Version     string      `json:"version"`
	LastUpdated Timestamp   `json:"lastUpdated"`
	RuleGroups  []RuleGroup `json:"ruleGroups"`
	Channels    []Channel   `json:"channels"`
}

// IsCanonical reports whether the rule uses the pattern/formula shape.
func (r Rule) IsCanonical() bool {
	return r.Pattern != "" || r.Channel != "" || r.PositiveFormula != ""
}

// Canonical returns the rule in the pattern/formula shape. Rules that already
// have that shape are returned as-is (with the target filled in from the
// channel definitions if missing). Legacy condition/action rules translate as
//
//	pattern  = "*"
//	channel  = first {Channel} referenced by the condition
//	positive = condition        (action Positive)
//	positive = !(condition)     (action Negative)
//
// Any other action, or a condition without a channel reference, cannot be
// translated. Rules with an empty pattern or channel are rejected too.
func (r Rule) Canonical(channels []Channel) (Rule, error) {
	out := r

	if !r.IsCanonical() {
		if strings.TrimSpace(r.Condition) == "" {
			return out, fmt.Errorf("rule %q has neither a pattern/formula nor a condition", r.Name)
		}

		x, err := formula.Compile(r.Condition)
		if err != nil {
			return out, fmt.Errorf("rule %q: %w", r.Name, err)
		}
		refs := x.Channels()
		if len(refs) == 0 || refs[0] == formula.SelfChannel {
			return out, fmt.Errorf("rule %q: condition %q names no channel", r.Name, r.Condition)
		}

		out.Pattern = "*"
		out.Channel = refs[0]

		switch {
		case strings.EqualFold(r.Action, ActionPositive):
			out.PositiveFormula = r.Condition
		case strings.EqualFold(r.Action, ActionNegative):
			out.PositiveFormula = "!(" + r.Condition + ")"
		default:
			return out, fmt.Errorf("rule %q: action %q cannot be expressed as a positive call", r.Name, r.Action)
		}
	}

	if strings.TrimSpace(out.Pattern) == "" || strings.TrimSpace(out.Channel) == "" {
		return out, fmt.Errorf("rule %q is missing its pattern or channel", r.Name)
	}

	if out.Target == "" {
		for _, c := range channels {
			if plate.NormalizeChannel(c.Name) == plate.NormalizeChannel(out.Channel) {
				out.Target = c.Target
				break
			}
		}
	}

	return out, nil
}

// ThresholdRule expresses the channel's Ct bounds as a universal rule.
func (c Channel) ThresholdRule() (Rule, bool) {
	if c.Name == "" || c.MaxPositiveCt <= 0 {
		return Rule{}, false
	}

	ref := "{" + c.Name + "}"
	return Rule{
		Name:            c.Name + " threshold",
		Pattern:         "*",
		Channel:         c.Name,
		Target:          c.Target,
		PositiveFormula: fmt.Sprintf("%s >= %g && %s <= %g", ref, c.MinPositiveCt, ref, c.MaxPositiveCt),
	}, true
}

// Rules flattens the panel into the ordered list the engine scans: every group
// in listed order, every rule in listed order, then one threshold rule per
// channel definition that has bounds. Untranslatable rules are logged and left
// out. Rules without an Index are numbered by their position in the list.
func (p *Panel) Rules() []Rule {
	out := make([]Rule, 0)

	for _, g := range p.RuleGroups {
		for _, r := range g.Rules {
			canon, err := r.Canonical(p.Channels)
			if err != nil {
				log.Printf("Panel %s, group %s: skipping rule: %v\n", p.Name, g.Name, err)
				continue
			}
			out = append(out, canon)
		}
	}

	for _, c := range p.Channels {
		if r, ok := c.ThresholdRule(); ok {
			out = append(out, r)
		}
	}

	for i := range out {
		if out[i].Index == 0 {
			out[i].Index = i + 1
		}
	}

	return out
}

// Clone returns a deep copy, so an analysis can run against a snapshot while
// the caller keeps editing the original.
func (p *Panel) Clone() *Panel {
	out := *p

	out.RuleGroups = make([]RuleGroup, len(p.RuleGroups))
	for i, g := range p.RuleGroups {
		g.Rules = append([]Rule(nil), g.Rules...)
		out.RuleGroups[i] = g
	}
	out.Channels = append([]Channel(nil), p.Channels...)

	return &out
}

// SortByIndex orders rule-table rows by Index, keeping file order among equal
// indices.
func SortByIndex(rows []Rule) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Index < rows[j].Index
	})
}

// FromTable builds a single-group panel from rule-table rows, the shape rule
// spreadsheets arrive in.
func FromTable(name string, rows []Rule) *Panel {
	return &Panel{
		Name:    name,
		Version: "1.0",
		RuleGroups: []RuleGroup{{
			Name:     name,
			Priority: 1,
			Rules:    append([]Rule(nil), rows...),
		}},
		Channels: []Channel{},
	}
}

// DefaultPanel is what a Store hands out when no usable document exists: a
// FAM positive/negative threshold pair and FAM/VIC channel definitions.
func DefaultPanel(name string) *Panel {
	return &Panel{
		Name:        name,
		Description: "Default configuration",
		Version:     "1.0",
		RuleGroups: []RuleGroup{{
			Name:     "Default",
			Priority: 1,
			Rules: []Rule{
				{Index: 1, Name: "FAM Positive", Condition: "{FAM} < 35", Action: ActionPositive},
				{Index: 2, Name: "FAM Negative", Condition: "{FAM} >= 35", Action: ActionNegative},
			},
		}},
		Channels: []Channel{
			{Name: "FAM", Target: "Target", MinPositiveCt: 0, MaxPositiveCt: 35},
			{Name: "VIC", Target: "Internal Control", MinPositiveCt: 0, MaxPositiveCt: 35},
		},
	}
}
