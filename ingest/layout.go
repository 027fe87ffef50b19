package ingest

import (
	"fmt"
	"sort"
	"strings"
)

// Column is one canonical column and the header spellings that mean it, best
// first. When a file has more than one spelling (QuantStudio exports carry
// both a numeric "Well" and a lettered "Well Position"), the earliest alias in
// the list is used.
type Column struct {
	Name     string
	Aliases  []string
	Required bool
}

// Layout describes one kind of table.
type Layout struct {
	Columns []Column
}

var Layouts = map[string]Layout{
	"wells": {Columns: []Column{
		{Name: "Well", Aliases: []string{"Well Position", "WellPosition", "Position", "Well", "Pos"}, Required: true},
		{Name: "Channel", Aliases: []string{"Channel", "Reporter", "Dye", "Fluor"}, Required: true},
		{Name: "Ct", Aliases: []string{"Ct", "CT", "Cq", "Ct Value", "CtValue", "CT Mean"}},
		{Name: "Type", Aliases: []string{"Type", "Task", "Well Type", "Content"}},
		{Name: "Sample", Aliases: []string{"Sample Name", "SampleName", "Sample"}},
		{Name: "Target", Aliases: []string{"Target Name", "TargetName", "Target"}},
	}},
	"rules": {Columns: []Column{
		{Name: "Index", Aliases: []string{"Index", "No", "#"}},
		{Name: "Name", Aliases: []string{"Name", "RuleName"}},
		{Name: "Pattern", Aliases: []string{"WellPositionPattern", "WellPosition", "Pattern", "Well"}, Required: true},
		{Name: "Channel", Aliases: []string{"Channel", "Dye"}, Required: true},
		{Name: "Target", Aliases: []string{"Target", "TargetName", "SpeciesName", "Species"}},
		{Name: "PositiveFormula", Aliases: []string{"PositiveFormula", "JudgeFormula", "PositiveCutoffFormula"}, Required: true},
		{Name: "ConcentrationFormula", Aliases: []string{"ConcentrationFormula", "Concentration"}},
	}},
	"cases": {Columns: []Column{
		{Name: "SampleName", Aliases: []string{"SampleName", "Sample Name", "Sample"}, Required: true},
		{Name: "CaseID", Aliases: []string{"CaseID", "Case ID", "Case"}},
		{Name: "PatientID", Aliases: []string{"PatientID", "Patient ID", "Patient", "MRN"}},
	}},
}

func LayoutNames() string {
	names := make([]string, 0, len(Layouts))
	for m := range Layouts {
		names = append(names, m)
	}
	sort.Strings(names)

	return strings.Join(names, ", ")
}

// headerKey folds case, spaces, dashes and underscores so that "Well
// Position", "well_position" and "WELLPOSITION" compare equal.
func headerKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(s, "\ufeff")))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}

// canonicalHeader maps a header row onto the layout's canonical names. The
// chosen column for each canonical name gets that name; every other column
// keeps its own text, prefixed with "_" if it would otherwise collide with a
// canonical name. It fails if a required column is absent.
func (l Layout) canonicalHeader(header []string) ([]string, error) {
	byKey := make(map[string]int, len(header))
	for i, h := range header {
		k := headerKey(h)
		if _, exists := byKey[k]; !exists {
			byKey[k] = i
		}
	}

	out := make([]string, len(header))
	chosen := make(map[int]bool)
	canonical := make(map[string]bool)

	var missing []string
	for _, c := range l.Columns {
		canonical[c.Name] = true

		found := false
		for _, alias := range c.Aliases {
			i, exists := byKey[headerKey(alias)]
			if !exists || chosen[i] {
				continue
			}
			out[i] = c.Name
			chosen[i] = true
			found = true
			break
		}

		if !found && c.Required {
			missing = append(missing, c.Name)
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required column(s) %s in header %v", strings.Join(missing, ", "), header)
	}

	for i, h := range header {
		if chosen[i] {
			continue
		}
		out[i] = strings.TrimSpace(h)
		if canonical[out[i]] {
			out[i] = "_" + out[i]
		}
	}

	return out, nil
}
