package ingest

import (
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/carbocation/qpcr/plate"
	"github.com/carbocation/qpcr/rules"
	"github.com/carbocation/qpcr/samples"
	"gopkg.in/guregu/null.v3"
)

type wellRow struct {
	Well    string `csv:"Well"`
	Channel string `csv:"Channel"`
	Ct      string `csv:"Ct"`
	Type    string `csv:"Type"`
	Sample  string `csv:"Sample"`
	Target  string `csv:"Target"`
}

// ReadWells parses a well list. Ct text that is not a number ("Undetermined",
// "N/A") becomes the well's special marker and leaves the Ct absent. Rows
// without a position or channel are skipped.
func ReadWells(data []byte) ([]plate.Well, error) {
	rows := []*wellRow{}
	if err := unmarshal(data, Layouts["wells"], &rows); err != nil {
		return nil, err
	}

	out := make([]plate.Well, 0, len(rows))
	for i, r := range rows {
		pos, channel := strings.TrimSpace(r.Well), strings.TrimSpace(r.Channel)
		if pos == "" || channel == "" {
			log.Printf("Skipping well row %d: no position or channel\n", i+1)
			continue
		}

		w := plate.Well{
			Position:   plate.NormalizePosition(pos),
			Channel:    channel,
			Type:       plate.ParseWellType(r.Type),
			SampleName: optionalString(r.Sample),
			TargetName: optionalString(r.Target),
		}
		w.Ct, w.Mark = parseCt(r.Ct)

		out = append(out, w)
	}

	return out, nil
}

func parseCt(s string) (null.Float, null.String) {
	s = strings.TrimSpace(s)
	if s == "" {
		return null.Float{}, null.String{}
	}

	ct, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(ct) || math.IsInf(ct, 0) {
		return null.Float{}, null.StringFrom(s)
	}

	return null.FloatFrom(ct), null.String{}
}

func optionalString(s string) null.String {
	s = strings.TrimSpace(s)
	if s == "" {
		return null.String{}
	}
	return null.StringFrom(s)
}

type ruleRow struct {
	Index                string `csv:"Index"`
	Name                 string `csv:"Name"`
	Pattern              string `csv:"Pattern"`
	Channel              string `csv:"Channel"`
	Target               string `csv:"Target"`
	PositiveFormula      string `csv:"PositiveFormula"`
	ConcentrationFormula string `csv:"ConcentrationFormula"`
}

// ReadRules parses a rule table (delimited text or .xls) into rules, stably
// sorted by Index. A row without an Index is numbered after the highest Index
// seen above it.
func ReadRules(data []byte) ([]rules.Rule, error) {
	rows := []*ruleRow{}
	if err := unmarshal(data, Layouts["rules"], &rows); err != nil {
		return nil, err
	}

	out := make([]rules.Rule, 0, len(rows))
	highest := 0
	for i, r := range rows {
		rule := rules.Rule{
			Name:                 strings.TrimSpace(r.Name),
			Pattern:              strings.TrimSpace(r.Pattern),
			Channel:              strings.TrimSpace(r.Channel),
			Target:               strings.TrimSpace(r.Target),
			PositiveFormula:      strings.TrimSpace(r.PositiveFormula),
			ConcentrationFormula: strings.TrimSpace(r.ConcentrationFormula),
		}

		if idx := strings.TrimSpace(r.Index); idx != "" {
			// Spreadsheets store whole numbers as "3" or "3.0"
			f, err := strconv.ParseFloat(idx, 64)
			if err != nil {
				log.Printf("Rule row %d: index %q is not a number; numbering it by position\n", i+1, idx)
			} else {
				rule.Index = int(f)
			}
		}
		if rule.Index == 0 {
			rule.Index = highest + 1
		}
		if rule.Index > highest {
			highest = rule.Index
		}

		out = append(out, rule)
	}

	rules.SortByIndex(out)

	return out, nil
}

// ReadCases parses a case sheet.
func ReadCases(data []byte) ([]samples.Case, error) {
	rows := []*samples.Case{}
	if err := unmarshal(data, Layouts["cases"], &rows); err != nil {
		return nil, err
	}

	out := make([]samples.Case, 0, len(rows))
	for _, r := range rows {
		c := samples.Case{
			SampleName: strings.TrimSpace(r.SampleName),
			CaseID:     strings.TrimSpace(r.CaseID),
			PatientID:  strings.TrimSpace(r.PatientID),
		}
		if c.SampleName == "" {
			continue
		}
		out = append(out, c)
	}

	return out, nil
}
