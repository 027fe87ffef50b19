package samples

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/carbocation/qpcr/analysis"
	"github.com/carbocation/qpcr/plate"
	"github.com/carbocation/qpcr/rules"
	"gopkg.in/guregu/null.v3"
)

func well(pos, channel string, ct float64, typ plate.WellType, name string) plate.Well {
	w := plate.Well{Position: pos, Channel: channel, Type: typ}
	if ct > 0 {
		w.Ct = null.FloatFrom(ct)
	}
	if name != "" {
		w.SampleName = null.StringFrom(name)
	}
	return w
}

func TestLegacyPrefix(t *testing.T) {
	for _, v := range []struct {
		Name string
		Want control
	}{
		{"NC-01", negativeControl},
		{"ntc", negativeControl},
		{"NEG 3", negativeControl},
		{"PC1", positiveControl},
		{"pos_ctrl", positiveControl},
		{"IC", internalControl},
		{"STD 1e3", standard},
		{"NCBI-7", noControl},
		{"Posey", noControl},
		{"Patient 12", noControl},
		{"", noControl},
	} {
		if got := legacyControl(v.Name); got != v.Want {
			t.Fatalf("%q: got %d, expected %d", v.Name, got, v.Want)
		}
	}
}

func TestPrefixOverridesTag(t *testing.T) {
	wells := []plate.Well{
		well("A1", "FAM", 30, plate.WellTypePositiveControl, "NC-01"),
		well("A1", "VIC", 28, plate.WellTypePositiveControl, "NC-01"),
	}

	groups := Group(wells, nil)
	if len(groups) != 1 {
		t.Fatalf("Expected 1 group, got %d", len(groups))
	}

	g := groups[0]
	if !g.IsNegativeControl || g.IsPositiveControl || g.IsInternalControl || g.IsStandard {
		t.Fatalf("Expected a negative control only, got %+v", g)
	}
}

func TestTagWithoutPrefix(t *testing.T) {
	groups := Group([]plate.Well{
		well("B1", "FAM", 30, plate.WellTypeStandard, "Calibrator 1"),
		well("B2", "FAM", 25, plate.WellTypeSample, "Patient 12"),
	}, nil)

	if !groups[0].IsStandard || !groups[0].IsControl() {
		t.Fatalf("Expected a standard, got %+v", groups[0])
	}
	if groups[1].IsControl() {
		t.Fatalf("Expected an ordinary sample, got %+v", groups[1])
	}
}

func TestUnnamedWellsDoNotMerge(t *testing.T) {
	groups := Group([]plate.Well{
		well("A1", "FAM", 30, plate.WellTypeUnknown, ""),
		well("A2", "FAM", 31, plate.WellTypeUnknown, ""),
		well("A1", "VIC", 29, plate.WellTypeUnknown, ""),
	}, nil)

	if len(groups) != 2 {
		t.Fatalf("Expected 2 groups, got %d: %+v", len(groups), groups)
	}
	if groups[0].Key != "#A1" || groups[1].Key != "#A2" {
		t.Fatalf("Unexpected keys %q, %q", groups[0].Key, groups[1].Key)
	}
	if len(groups[0].Ct) != 2 {
		t.Fatalf("Both channels of A1 should be in one group, got %+v", groups[0].Ct)
	}
}

func TestReplicatesMerge(t *testing.T) {
	groups := Group([]plate.Well{
		well("C1", "FAM", 30, plate.WellTypeSample, "S1"),
		well("C2", "fam", 32, plate.WellTypeSample, "S1"),
		well("C3", "FAM", 0, plate.WellTypeSample, "S1"),
		well("C1", "VIC", 0, plate.WellTypeSample, "S1"),
	}, nil)

	g := groups[0]
	if len(g.Positions) != 3 {
		t.Fatalf("Expected 3 positions, got %v", g.Positions)
	}

	ct := g.Ct["FAM"]
	if !ct.Valid || ct.Float64 != 31 {
		t.Fatalf("Expected mean FAM Ct 31, got %v", ct)
	}
	if sd := g.CtSD["FAM"]; sd <= 0 || sd > math.Sqrt2+1e-9 {
		t.Fatalf("Expected a FAM spread between 0 and sqrt(2), got %v", sd)
	}
	if g.Ct["VIC"].Valid {
		t.Fatalf("A channel without any determined replicate should have no Ct, got %v", g.Ct["VIC"])
	}
}

func TestMapperCasesAndValidation(t *testing.T) {
	m := NewMapper([]Case{
		{SampleName: "S1", CaseID: "C-100", PatientID: "P-9"},
		{SampleName: "S1", CaseID: "dup"},
	})

	var checked []string
	m.Validate = func(position, name string) error {
		checked = append(checked, position)
		return errors.New("rejected")
	}

	groups := m.Group([]plate.Well{
		well("D1", "FAM", 30, plate.WellTypeSample, "S1"),
		well("D2", "FAM", 30, plate.WellTypeSample, "S2"),
	}, nil)

	// Validation failures are reported, never enforced
	if len(groups) != 2 || len(checked) != 2 {
		t.Fatalf("Expected both wells grouped and checked, got %d groups, %v checked", len(groups), checked)
	}
	if groups[0].Case == nil || groups[0].Case.CaseID != "C-100" {
		t.Fatalf("Expected the first case sheet entry, got %+v", groups[0].Case)
	}
	if groups[1].Case != nil {
		t.Fatalf("S2 has no case, got %+v", groups[1].Case)
	}
}

func TestAnnotate(t *testing.T) {
	wells := []plate.Well{
		well("A1", "FAM", 28, plate.WellTypeSample, "S1"),
		well("A2", "FAM", 36, plate.WellTypeSample, "S2"),
		well("A3", "FAM", 30, plate.WellTypeSample, "S1"),
	}

	p := rules.FromTable("t", []rules.Rule{{Index: 1, Pattern: "*", Channel: "FAM", PositiveFormula: "{FAM} < 35"}})
	results, err := analysis.New(p).Analyze(context.Background(), wells)
	if err != nil {
		t.Fatal(err)
	}

	m := NewMapper([]Case{{SampleName: "S1", CaseID: "C1", PatientID: "P1"}})
	groups := m.Group(wells, results)

	if groups[0].Labels["FAM"] != "Positive" || groups[1].Labels["FAM"] != "Negative" {
		t.Fatalf("Unexpected labels %v, %v", groups[0].Labels, groups[1].Labels)
	}

	out := Annotate(results, groups)
	wantOrder := []string{"A1", "A3", "A2"}
	wantFirst := []bool{true, false, true}
	for i, r := range out {
		if r.Position != wantOrder[i] || r.FirstRow != wantFirst[i] {
			t.Fatalf("Row %d: got %s first=%v", i, r.Position, r.FirstRow)
		}
	}
	if out[1].SampleName != "S1" || out[1].CaseID != "C1" || out[1].PatientID != "P1" {
		t.Fatalf("Case identity not filled in: %+v", out[1])
	}
	if out[2].CaseID != "" {
		t.Fatalf("S2 should have no case, got %+v", out[2])
	}
}
