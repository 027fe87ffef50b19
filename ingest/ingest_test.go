package ingest

import (
	"strings"
	"testing"

	"github.com/carbocation/qpcr/plate"
)

func TestReadWellsQuantStudioHeader(t *testing.T) {
	input := strings.Join([]string{
		"Well,Well Position,Sample Name,Target Name,Task,Reporter,CT",
		"1,A1,S1,FluA,UNKNOWN,FAM,28.5",
		"2,A2,NTC,FluA,NTC,FAM,Undetermined",
		"3,A3,S2,FluA,UNKNOWN,FAM,",
		"",
	}, "\n")

	wells, err := ReadWells([]byte(input))
	if err != nil {
		t.Fatal(err)
	}
	if len(wells) != 3 {
		t.Fatalf("Expected 3 wells, got %d", len(wells))
	}

	w := wells[0]
	if w.Position != "A1" || w.Channel != "FAM" || !w.Ct.Valid || w.Ct.Float64 != 28.5 {
		t.Fatalf("Unexpected first well %+v", w)
	}
	if w.SampleName.String != "S1" || w.TargetName.String != "FluA" || w.Type != plate.WellTypeUnknown {
		t.Fatalf("Unexpected first well metadata %+v", w)
	}

	w = wells[1]
	if w.Ct.Valid || w.Mark.String != "Undetermined" || w.Type != plate.WellTypeNegativeControl {
		t.Fatalf("Unexpected second well %+v", w)
	}

	w = wells[2]
	if w.Ct.Valid || w.Mark.Valid {
		t.Fatalf("A blank Ct should carry neither a value nor a marker: %+v", w)
	}
}

func TestReadWellsTabDelimited(t *testing.T) {
	input := strings.Join([]string{
		"Position\tDye\tCq\tSample",
		"a01\tfam\t31.2\tS1",
		"b12\tvic\t\tS2",
		"",
	}, "\n")

	wells, err := ReadWells([]byte(input))
	if err != nil {
		t.Fatal(err)
	}
	if len(wells) != 2 {
		t.Fatalf("Expected 2 wells, got %d", len(wells))
	}
	if wells[0].Position != "A1" || wells[0].Ct.Float64 != 31.2 {
		t.Fatalf("Unexpected first well %+v", wells[0])
	}
	if wells[1].Position != "B12" || wells[1].Ct.Valid || wells[1].SampleName.String != "S2" {
		t.Fatalf("Unexpected second well %+v", wells[1])
	}
}

func TestReadWellsMissingColumn(t *testing.T) {
	if _, err := ReadWells([]byte("Sample,Ct\nS1,30\nS2,31\n")); err == nil {
		t.Fatalf("Expected an error for a table without position and channel columns")
	}
}

func TestReadWellsHeaderOnly(t *testing.T) {
	wells, err := ReadWells([]byte("Well,Channel,Ct\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(wells) != 0 {
		t.Fatalf("Expected no wells, got %+v", wells)
	}
}

func TestReadRulesAliasesAndOrder(t *testing.T) {
	input := strings.Join([]string{
		"Index,WellPositionPattern,Channel,SpeciesName,JudgeFormula,ConcentrationFormula",
		"2,B:1-6,ROX,RSV,{ROX}<36,",
		"1,*,FAM,FluA,{FAM}<35,10^(35-{CT})/10",
		"1,A:*,VIC,IC,{VIC}<32,",
		",*:12,CY5,FluB,{CY5}<38,",
		"",
	}, "\n")

	got, err := ReadRules([]byte(input))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 {
		t.Fatalf("Expected 4 rules, got %d", len(got))
	}

	wantChannels := []string{"FAM", "VIC", "ROX", "CY5"}
	wantIndex := []int{1, 1, 2, 3}
	for i := range got {
		if got[i].Channel != wantChannels[i] || got[i].Index != wantIndex[i] {
			t.Fatalf("Rule %d: got %s/%d, expected %s/%d", i, got[i].Channel, got[i].Index, wantChannels[i], wantIndex[i])
		}
	}

	if got[0].Pattern != "*" || got[0].Target != "FluA" || got[0].PositiveFormula != "{FAM}<35" || got[0].ConcentrationFormula != "10^(35-{CT})/10" {
		t.Fatalf("Unexpected first rule %+v", got[0])
	}
}

func TestReadCases(t *testing.T) {
	input := strings.Join([]string{
		"Sample Name\tCase ID\tPatient ID",
		"S1\tC-1\tP-1",
		"\tC-2\tP-2",
		"S3\tC-3\tP-3",
		"",
	}, "\n")

	cases, err := ReadCases([]byte(input))
	if err != nil {
		t.Fatal(err)
	}
	if len(cases) != 2 || cases[1].SampleName != "S3" || cases[1].PatientID != "P-3" {
		t.Fatalf("Unexpected cases %+v", cases)
	}
}

func TestCanonicalHeader(t *testing.T) {
	h, err := Layouts["wells"].canonicalHeader([]string{"well_position", "CHANNEL", "Ct Value", "Channel", "Notes"})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"Well", "Channel", "Ct", "_Channel", "Notes"}
	for i := range want {
		if h[i] != want[i] {
			t.Fatalf("Column %d: got %q, expected %q", i, h[i], want[i])
		}
	}
}

func TestIsXLS(t *testing.T) {
	if !IsXLS(append([]byte(nil), oleSignature...)) {
		t.Fatalf("Expected the OLE2 signature to be recognized")
	}
	if IsXLS([]byte("Index,Pattern\n")) {
		t.Fatalf("Delimited text is not a workbook")
	}
}
