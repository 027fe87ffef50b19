package pattern

import (
	"errors"
	"testing"

	"github.com/carbocation/qpcr/plate"
)

func matching(src string) map[string]bool {
	out := make(map[string]bool)
	for _, pos := range plate.Positions(plate.Rows96, plate.Columns96) {
		if Matches(src, pos.String()) {
			out[pos.String()] = true
		}
	}
	return out
}

func TestUniversal(t *testing.T) {
	if n := len(matching("*")); n != 96 {
		t.Fatalf("Expected '*' to match 96 wells, matched %d", n)
	}
}

func TestRowWildcard(t *testing.T) {
	got := matching("A:*")
	if len(got) != 12 {
		t.Fatalf("Expected 12 matches, got %d", len(got))
	}
	for pos := range got {
		if pos[0] != 'A' {
			t.Fatalf("%s is outside row A", pos)
		}
	}

	if len(matching("a:*")) != 12 {
		t.Fatalf("Row letters should be case-insensitive")
	}
}

func TestRange(t *testing.T) {
	got := matching("B:1-6")
	if len(got) != 6 {
		t.Fatalf("Expected 6 matches, got %d: %v", len(got), got)
	}
	for _, pos := range []string{"B1", "B2", "B3", "B4", "B5", "B6"} {
		if !got[pos] {
			t.Fatalf("Expected %s to match", pos)
		}
	}
	if got["B7"] {
		t.Fatalf("B7 should not match")
	}
}

func TestColumnWildcard(t *testing.T) {
	got := matching("*:12")
	if len(got) != 8 {
		t.Fatalf("Expected 8 matches, got %d", len(got))
	}
	for _, pos := range []string{"A12", "B12", "C12", "D12", "E12", "F12", "G12", "H12"} {
		if !got[pos] {
			t.Fatalf("Expected %s to match", pos)
		}
	}
}

func TestExact(t *testing.T) {
	for _, v := range []struct {
		Pattern  string
		Position string
		Want     bool
	}{
		{"A1", "A1", true},
		{"a1", "A1", true},
		{"A1", "a01", true},
		{"A1", "A10", false},
		{"A1", "B1", false},
	} {
		if got := Matches(v.Pattern, v.Position); got != v.Want {
			t.Fatalf("Matches(%q, %q) = %v, expected %v", v.Pattern, v.Position, got, v.Want)
		}
	}
}

func TestMalformedNeverMatches(t *testing.T) {
	for _, src := range []string{"", "B:x-6", "B:6-1", "B:1-", "1:*", "*:*", "A:1:2", "A:3", "?", "*:0"} {
		p, err := Compile(src)
		if err == nil {
			t.Fatalf("Expected %q to fail to compile", src)
		}
		var perr *Error
		if !errors.As(err, &perr) {
			t.Fatalf("Expected a *pattern.Error for %q, got %T", src, err)
		}
		if len(matching(src)) != 0 || p.Matches("A1") {
			t.Fatalf("Malformed pattern %q should never match", src)
		}
	}
}

func TestDeterministic(t *testing.T) {
	first := matching("C:2-9")
	for i := 0; i < 5; i++ {
		again := matching("C:2-9")
		if len(again) != len(first) {
			t.Fatalf("Match set changed between calls")
		}
		for pos := range first {
			if !again[pos] {
				t.Fatalf("Match set changed between calls at %s", pos)
			}
		}
	}
}
