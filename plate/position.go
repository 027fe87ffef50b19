package plate

import (
	"fmt"
	"strconv"
	"strings"
)

// Standard 96-well layout
const (
	Rows96    = 8
	Columns96 = 12
)

// Position identifies a well on a plate by its row letters (A, B, ..., AA) and
// its 1-based column.
type Position struct {
	Row    string
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%s%d", p.Row, p.Column)
}

// ParsePosition accepts positions like "A1", "a01" or "AB12". Row letters are
// upper-cased and leading zeroes on the column are dropped.
func ParsePosition(s string) (Position, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	i := 0
	for i < len(s) && s[i] >= 'A' && s[i] <= 'Z' {
		i++
	}
	if i == 0 || i == len(s) {
		return Position{}, fmt.Errorf("%q is not a well position", s)
	}

	col, err := strconv.Atoi(s[i:])
	if err != nil || col < 1 {
		return Position{}, fmt.Errorf("%q does not have a valid column", s)
	}

	return Position{Row: s[:i], Column: col}, nil
}

// NormalizePosition returns the canonical text form of a position. Text that
// cannot be parsed is upper-cased and trimmed so that it still compares
// consistently.
func NormalizePosition(s string) string {
	p, err := ParsePosition(s)
	if err != nil {
		return strings.ToUpper(strings.TrimSpace(s))
	}

	return p.String()
}

// NormalizeChannel is the key under which channel names are compared.
func NormalizeChannel(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// RowLabel returns the letters for the 0-based row index: 0 is A, 25 is Z, 26
// is AA.
func RowLabel(i int) string {
	label := ""
	for i >= 0 {
		label = string(rune('A'+i%26)) + label
		i = i/26 - 1
	}
	return label
}

// Positions enumerates every position of a rows x cols plate in row-major
// order.
func Positions(rows, cols int) []Position {
	out := make([]Position, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 1; c <= cols; c++ {
			out = append(out, Position{Row: RowLabel(r), Column: c})
		}
	}
	return out
}
