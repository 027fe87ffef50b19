package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/carbocation/qpcr/analysis"
	"gopkg.in/guregu/null.v3"
)

func sampleResults() []analysis.Result {
	return []analysis.Result{
		{Position: "A1", Channel: "FAM", Target: "FluA", Ct: null.FloatFrom(28), Call: analysis.Positive, Concentration: null.FloatFrom(1e6), SampleName: "S1", CaseID: "C1", PatientID: "P1", FirstRow: true},
		{Position: "A2", Channel: "FAM", Target: "FluA", Ct: null.FloatFrom(32), Call: analysis.Positive},
		{Position: "A3", Channel: "FAM", Target: "FluA", Ct: null.FloatFrom(30.5), Call: analysis.Negative},
		{Position: "A4", Channel: "FAM", Target: "FluA", Mark: null.StringFrom("Undetermined"), Call: analysis.Invalid},
		{Position: "A1", Channel: "ROX", Ct: null.FloatFrom(20), Call: analysis.NoRuleMatched},
	}
}

func TestWriteResults(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResults(&buf, sampleResults()); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 6 {
		t.Fatalf("Expected a header and 5 rows, got %d lines:\n%s", len(lines), buf.String())
	}

	for i, want := range []string{
		"Well\tChannel\tTarget\tCt\tResult\tConcentration\tSample\tCaseID\tPatientID\tFirstRow",
		"A1\tFAM\tFluA\t28\tPositive\t1000000\tS1\tC1\tP1\ttrue",
		"A2\tFAM\tFluA\t32\tPositive\t\t\t\t\tfalse",
		"A3\tFAM\tFluA\t30.5\tNegative\t\t\t\t\tfalse",
		"A4\tFAM\tFluA\tUndetermined\tInvalid\t\t\t\t\tfalse",
		"A1\tROX\t\t20\t-\t\t\t\t\tfalse",
	} {
		if lines[i] != want {
			t.Fatalf("Line %d:\n got %q\nwant %q", i, lines[i], want)
		}
	}
}

func TestSummarize(t *testing.T) {
	got := Summarize(sampleResults())
	if len(got) != 2 {
		t.Fatalf("Expected 2 summaries, got %+v", got)
	}

	s := got[0]
	if s.Target != "FluA" || s.Cells != 4 || s.Positives != 2 || s.Negatives != 1 || s.Invalid != 1 || s.NoRule != 0 {
		t.Fatalf("Unexpected counts %+v", s)
	}
	if s.MedianCt.Float64 != 30.5 {
		t.Fatalf("Expected median 30.5, got %v", s.MedianCt)
	}
	if mean := s.MeanCt.Float64; mean < 30.16 || mean > 30.17 {
		t.Fatalf("Expected mean 30.1667, got %v", s.MeanCt)
	}
	if !s.SDCt.Valid || s.SDCt.Float64 <= 0 {
		t.Fatalf("Expected a spread, got %v", s.SDCt)
	}

	s = got[1]
	if s.Channel != "ROX" || s.NoRule != 1 || s.SDCt.Valid || s.MeanCt.Float64 != 20 {
		t.Fatalf("Unexpected single-cell summary %+v", s)
	}
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummary(&buf, Summarize(sampleResults())); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected a header and 2 rows, got:\n%s", buf.String())
	}
	if lines[2] != "\tROX\t1\t0\t0\t0\t1\t20.000\t\t20.000" {
		t.Fatalf("Unexpected row %q", lines[2])
	}
}
