// Package samples groups analyzed wells into samples and controls, and lays
// the results out for display: one block per sample, first row flagged.
package samples

import (
	"log"
	"strings"

	"github.com/carbocation/qpcr/analysis"
	"github.com/carbocation/qpcr/plate"
	"github.com/carbocation/runningvariance"
	"gopkg.in/guregu/null.v3"
)

// Case ties a sample name to the patient it was drawn from.
type Case struct {
	SampleName string `csv:"SampleName" json:"sampleName"`
	CaseID     string `csv:"CaseID" json:"caseId"`
	PatientID  string `csv:"PatientID" json:"patientId"`
}

// Mapping is one logical sample or control: every well that carries the same
// sample name, across all channels.
type Mapping struct {
	Key        string   `json:"key"`
	SampleName string   `json:"sampleName"`
	Positions  []string `json:"positions"`

	IsInternalControl bool `json:"isInternalControl"`
	IsPositiveControl bool `json:"isPositiveControl"`
	IsNegativeControl bool `json:"isNegativeControl"`
	IsStandard        bool `json:"isStandard"`

	// Per normalized channel. Ct is the mean of the determined replicates and
	// CtSD their standard deviation; a channel with no determined replicate
	// has an invalid Ct.
	Ct     map[string]null.Float `json:"ct"`
	CtSD   map[string]float64    `json:"ctSd"`
	Labels map[string]string     `json:"labels"`

	Case *Case `json:"case,omitempty"`

	cells map[string]struct{}
}

// Mapper groups wells. Cases are looked up by sample name.
type Mapper struct {
	Cases    map[string]Case
	Validate NameValidator
}

func NewMapper(cases []Case) *Mapper {
	m := &Mapper{Cases: make(map[string]Case, len(cases)), Validate: AcceptAllNames}
	for _, c := range cases {
		name := strings.TrimSpace(c.SampleName)
		if name == "" {
			continue
		}
		if _, exists := m.Cases[name]; exists {
			log.Printf("Sample %s appears more than once in the case sheet; keeping the first\n", name)
			continue
		}
		m.Cases[name] = c
	}
	return m
}

// Group is (&Mapper{}).Group: no case identities, no name validation.
func Group(wells []plate.Well, results []analysis.Result) []Mapping {
	return (&Mapper{}).Group(wells, results)
}

func cellKey(position, channel string) string {
	return plate.NormalizePosition(position) + "\t" + plate.NormalizeChannel(channel)
}

// Group partitions wells by sample name, in order of first appearance. Wells
// without a sample name are keyed by their position so that different
// physical wells never merge. Control flags come from the well type tags
// first and are then overridden by the legacy name prefixes.
func (m *Mapper) Group(wells []plate.Well, results []analysis.Result) []Mapping {
	labels := make(map[string]string, len(results))
	for _, r := range results {
		labels[cellKey(r.Position, r.Channel)] = r.Label()
	}

	var out []Mapping
	byKey := make(map[string]int)
	stats := make(map[string]map[string]*runningvariance.RunningStat)

	for _, w := range wells {
		pos := plate.NormalizePosition(w.Position)
		channel := plate.NormalizeChannel(w.Channel)
		name := strings.TrimSpace(w.SampleName.String)

		key := name
		if name == "" {
			key = "#" + pos
		} else if m.Validate != nil {
			if err := m.Validate(pos, name); err != nil {
				log.Printf("Well %s: sample name %q: %v\n", pos, name, err)
			}
		}

		i, exists := byKey[key]
		if !exists {
			i = len(out)
			byKey[key] = i
			out = append(out, Mapping{
				Key:        key,
				SampleName: name,
				Ct:         make(map[string]null.Float),
				CtSD:       make(map[string]float64),
				Labels:     make(map[string]string),
				cells:      make(map[string]struct{}),
			})
			stats[key] = make(map[string]*runningvariance.RunningStat)
		}
		g := &out[i]

		cell := cellKey(pos, channel)
		if _, dup := g.cells[cell]; dup {
			continue
		}
		g.cells[cell] = struct{}{}

		if !containsString(g.Positions, pos) {
			g.Positions = append(g.Positions, pos)
		}

		applyTag(g, w.Type)

		rs, exists := stats[key][channel]
		if !exists {
			rs = runningvariance.NewRunningStat()
			stats[key][channel] = rs
		}
		if w.Ct.Valid {
			rs.Push(w.Ct.Float64)
		}

		if label, ok := labels[cell]; ok {
			g.Labels[channel] = mergeLabel(g.Labels[channel], label)
		}
	}

	for i := range out {
		g := &out[i]

		for channel, rs := range stats[g.Key] {
			if rs.N == 0 {
				g.Ct[channel] = null.Float{}
				continue
			}
			g.Ct[channel] = null.FloatFrom(rs.Mean())
			g.CtSD[channel] = rs.StandardDeviation()
		}

		if g.SampleName != "" {
			applyPrefix(g, legacyControl(g.SampleName))

			if c, ok := m.Cases[g.SampleName]; ok {
				c := c
				g.Case = &c
			}
		}
	}

	return out
}

// IsControl reports whether the group is any kind of control.
func (g Mapping) IsControl() bool {
	return g.IsInternalControl || g.IsPositiveControl || g.IsNegativeControl || g.IsStandard
}

func applyTag(g *Mapping, t plate.WellType) {
	switch t {
	case plate.WellTypeInternalControl:
		g.IsInternalControl = true
	case plate.WellTypePositiveControl:
		g.IsPositiveControl = true
	case plate.WellTypeNegativeControl:
		g.IsNegativeControl = true
	case plate.WellTypeStandard:
		g.IsStandard = true
	}
}

// applyPrefix forces the control kind a legacy name prefix implies. Names
// without a recognized prefix leave the tag-derived flags alone.
func applyPrefix(g *Mapping, c control) {
	if c == noControl {
		return
	}

	g.IsInternalControl = c == internalControl
	g.IsPositiveControl = c == positiveControl
	g.IsNegativeControl = c == negativeControl
	g.IsStandard = c == standard
}

// Replicates that disagree show every distinct label, in order seen.
func mergeLabel(have, label string) string {
	if have == "" {
		return label
	}
	for _, l := range strings.Split(have, "/") {
		if l == label {
			return have
		}
	}
	return have + "/" + label
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Annotate returns the results reordered so that each group's cells are
// contiguous, groups in the order Group produced them, and fills in the sample
// name, case identity and first-row flag. Results that belong to no group keep
// their relative order at the end.
func Annotate(results []analysis.Result, groups []Mapping) []analysis.Result {
	owner := make(map[string]int)
	for i, g := range groups {
		for cell := range g.cells {
			if _, exists := owner[cell]; !exists {
				owner[cell] = i
			}
		}
	}

	buckets := make([][]analysis.Result, len(groups))
	var orphans []analysis.Result

	for _, r := range results {
		i, ok := owner[cellKey(r.Position, r.Channel)]
		if !ok {
			orphans = append(orphans, r)
			continue
		}
		buckets[i] = append(buckets[i], r)
	}

	out := make([]analysis.Result, 0, len(results))
	for i, bucket := range buckets {
		g := groups[i]
		for j, r := range bucket {
			r.SampleName = g.SampleName
			if g.Case != nil {
				r.CaseID = g.Case.CaseID
				r.PatientID = g.Case.PatientID
			}
			r.FirstRow = j == 0
			out = append(out, r)
		}
	}

	return append(out, orphans...)
}
