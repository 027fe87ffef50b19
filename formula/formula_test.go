package formula

import (
	"errors"
	"math"
	"testing"

	"github.com/carbocation/qpcr/plate"
	"gopkg.in/guregu/null.v3"
)

func evaluator(wells ...plate.Well) Evaluator {
	return Evaluator{Index: plate.NewIndex(wells)}
}

func TestPositiveCall(t *testing.T) {
	for _, v := range []struct {
		Ct   null.Float
		Want null.Bool
	}{
		{null.FloatFrom(28), null.BoolFrom(true)},
		{null.FloatFrom(36), null.BoolFrom(false)},
		{null.Float{}, null.Bool{}},
	} {
		e := evaluator(plate.Well{Position: "A1", Channel: "FAM", Ct: v.Ct})
		got := e.EvaluatePositive("A1", "{FAM}<35")
		if got != v.Want {
			t.Fatalf("Ct %v: got %v, expected %v", v.Ct, got, v.Want)
		}
	}
}

func TestMissingChannelShortCircuits(t *testing.T) {
	// VIC is absent entirely for A1; the division by zero must never be
	// reached.
	e := evaluator(plate.Well{Position: "A1", Channel: "FAM", Ct: null.FloatFrom(20)})

	if got := e.EvaluatePositive("A1", "1/0 > 1 || {VIC} < 30"); got.Valid {
		t.Fatalf("Expected indeterminate, got %v", got)
	}
	if got := e.EvaluateConcentration("A1", "FAM", "{FAM} + {VIC}"); got.Valid {
		t.Fatalf("Expected no concentration, got %v", got)
	}
}

func TestConcentration(t *testing.T) {
	e := evaluator(
		plate.Well{Position: "A1", Channel: "FAM", Ct: null.FloatFrom(28)},
		plate.Well{Position: "A1", Channel: "VIC", Ct: null.FloatFrom(30)},
	)

	for _, v := range []struct {
		Formula string
		Channel string
		Want    float64
	}{
		{"10^(35-{FAM})/10", "FAM", 1000000},
		{"pow(10, 35-{FAM})/10", "FAM", 1000000},
		{"10^(35-{CT})/10", "FAM", 1000000},
		{"{CT}", "VIC", 30},
		{"abs({FAM}-{VIC})", "FAM", 2},
		{"-2^2", "FAM", -4},
		{"2^3^2", "FAM", 512},
		{"(1+2)*3 - 4/2", "FAM", 7},
		{"10 % 4", "FAM", 2},
		{"round(2.346, 2)", "FAM", 2.35},
		{"if({FAM} < 35, 1, 0)", "FAM", 1},
		{"max({FAM}, {VIC})", "FAM", 30},
		{"log10(1000)", "FAM", 3},
		{"1.5e2", "FAM", 150},
	} {
		got := e.EvaluateConcentration("A1", v.Channel, v.Formula)
		if !got.Valid {
			t.Fatalf("%q: expected a value, got none", v.Formula)
		}
		if math.Abs(got.Float64-v.Want) > 1e-9 {
			t.Fatalf("%q: got %v, expected %v", v.Formula, got.Float64, v.Want)
		}
	}
}

func TestBooleanGrammar(t *testing.T) {
	e := evaluator(
		plate.Well{Position: "B2", Channel: "FAM", Ct: null.FloatFrom(25)},
		plate.Well{Position: "B2", Channel: "VIC", Ct: null.FloatFrom(31)},
	)

	for formula, want := range map[string]bool{
		"{FAM} < 35 && {VIC} < 35":       true,
		"{FAM} < 20 || {VIC} < 35":       true,
		"{FAM} < 35 and not({VIC} < 35)": false,
		"!({FAM} >= 35)":                 true,
		"{FAM} = 25":                     true,
		"{FAM} <> 25":                    false,
		"{FAM} != 24":                    true,
		"({FAM} < 30) == true":           true,
		"{VIC} - {FAM}":                  true, // nonzero number
		"{FAM} - 25":                     false,
	} {
		got := e.EvaluatePositive("B2", formula)
		if !got.Valid {
			t.Fatalf("%q: expected a call, got indeterminate", formula)
		}
		if got.Bool != want {
			t.Fatalf("%q: got %v, expected %v", formula, got.Bool, want)
		}
	}
}

func TestErrorsAreIndeterminate(t *testing.T) {
	e := evaluator(plate.Well{Position: "A1", Channel: "FAM", Ct: null.FloatFrom(28)})

	for _, formula := range []string{
		"",
		"{FAM} <",
		"{FAM",
		"{}",
		"system(1)",
		"abs(1, 2)",
		"{FAM} / 0 < 1",
		"{FAM} && true",
		"({FAM} < 35",
		"{FAM} < 35 )",
		"#",
		"ln(0) < 1",
	} {
		if got := e.EvaluatePositive("A1", formula); got.Valid {
			t.Fatalf("%q: expected indeterminate, got %v", formula, got)
		}
	}

	if got := e.EvaluateConcentration("A1", "FAM", "{FAM} < 35"); got.Valid {
		t.Fatalf("A boolean is not a concentration, got %v", got)
	}
	if got := e.EvaluateConcentration("A1", "FAM", ""); got.Valid {
		t.Fatalf("An empty formula has no concentration, got %v", got)
	}
}

func TestCompile(t *testing.T) {
	x, err := Compile("{fam} + {VIC} * {FAM} + {CT}")
	if err != nil {
		t.Fatal(err)
	}
	got := x.Channels()
	want := []string{"FAM", "VIC", SelfChannel}
	if len(got) != len(want) {
		t.Fatalf("Got channels %v, expected %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Got channels %v, expected %v", got, want)
		}
	}

	again, err := Compile("{fam} + {VIC} * {FAM} + {CT}")
	if err != nil {
		t.Fatal(err)
	}
	if again != x {
		t.Fatalf("Expected the cached expression to be reused")
	}

	_, err = Compile("1 +")
	var ferr *Error
	if !errors.As(err, &ferr) {
		t.Fatalf("Expected a *formula.Error, got %T (%v)", err, err)
	}
	if ferr.Formula != "1 +" {
		t.Fatalf("Error should carry the formula text, got %q", ferr.Formula)
	}
}
