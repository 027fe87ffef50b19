// Package pattern decides whether a plate position falls under a rule's
// position pattern.
//
// Supported forms (row letters are case-insensitive):
//
//	*          every well
//	A1         exactly that well
//	A:*        every column of row A
//	*:12       every row of column 12
//	B:1-6      columns 1 through 6 (inclusive) of row B
//
// Anything else never matches.
package pattern

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/carbocation/qpcr/plate"
)

type Kind int

const (
	KindNone Kind = iota
	KindAll
	KindExact
	KindRow
	KindColumn
	KindRange
)

// Pattern is a compiled position pattern. The zero value matches nothing.
type Pattern struct {
	Source string
	Kind   Kind
	Row    string
	Start  int
	End    int
}

// Error describes a pattern that could not be compiled.
type Error struct {
	Pattern string
	Reason  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("pattern %q: %s", e.Pattern, e.Reason)
}

// Compile parses src. On failure the returned Pattern is still usable and
// matches nothing.
func Compile(src string) (Pattern, error) {
	p := Pattern{Source: src}
	s := strings.ToUpper(strings.TrimSpace(src))

	if s == "" {
		return p, &Error{Pattern: src, Reason: "empty pattern"}
	}

	if s == "*" {
		p.Kind = KindAll
		return p, nil
	}

	parts := strings.Split(s, ":")
	switch len(parts) {
	case 1:
		pos, err := plate.ParsePosition(s)
		if err != nil {
			return p, &Error{Pattern: src, Reason: err.Error()}
		}
		p.Kind = KindExact
		p.Row = pos.Row
		p.Start = pos.Column
		p.End = pos.Column
		return p, nil
	case 2:
	default:
		return p, &Error{Pattern: src, Reason: "too many ':' separators"}
	}

	row, cols := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])

	if row == "*" {
		col, err := strconv.Atoi(cols)
		if err != nil || col < 1 {
			return p, &Error{Pattern: src, Reason: fmt.Sprintf("column %q is not a positive integer", cols)}
		}
		p.Kind = KindColumn
		p.Start = col
		p.End = col
		return p, nil
	}

	if !isRowLabel(row) {
		return p, &Error{Pattern: src, Reason: fmt.Sprintf("row %q is not a row label", row)}
	}

	if cols == "*" {
		p.Kind = KindRow
		p.Row = row
		return p, nil
	}

	bounds := strings.Split(cols, "-")
	if len(bounds) != 2 {
		return p, &Error{Pattern: src, Reason: fmt.Sprintf("%q is neither '*' nor a start-end range", cols)}
	}

	start, err := strconv.Atoi(strings.TrimSpace(bounds[0]))
	if err != nil {
		return p, &Error{Pattern: src, Reason: fmt.Sprintf("range start %q: %v", bounds[0], err)}
	}
	end, err := strconv.Atoi(strings.TrimSpace(bounds[1]))
	if err != nil {
		return p, &Error{Pattern: src, Reason: fmt.Sprintf("range end %q: %v", bounds[1], err)}
	}
	if start < 1 || end < start {
		return p, &Error{Pattern: src, Reason: fmt.Sprintf("range %d-%d is empty", start, end)}
	}

	p.Kind = KindRange
	p.Row = row
	p.Start = start
	p.End = end

	return p, nil
}

// Matches reports whether position falls under the compiled pattern. Positions
// that cannot be parsed only match the universal pattern.
func (p Pattern) Matches(position string) bool {
	if p.Kind == KindAll {
		return true
	}
	if p.Kind == KindNone {
		return false
	}

	pos, err := plate.ParsePosition(position)
	if err != nil {
		return false
	}

	switch p.Kind {
	case KindExact, KindRange:
		return pos.Row == p.Row && pos.Column >= p.Start && pos.Column <= p.End
	case KindRow:
		return pos.Row == p.Row
	case KindColumn:
		return pos.Column == p.Start
	}

	return false
}

// Matches compiles pattern and tests position against it. A malformed pattern
// is logged and treated as no match.
func Matches(pattern, position string) bool {
	p, err := Compile(pattern)
	if err != nil {
		log.Println("Soft pattern error:", err)
		return false
	}

	return p.Matches(position)
}

func isRowLabel(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
