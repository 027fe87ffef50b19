package samples

import (
	"strings"
	"unicode"
)

// NameValidator checks a manually entered sample name for the well at
// position. A non-nil error is logged by the Mapper; the name is still used.
type NameValidator func(position, name string) error

// AcceptAllNames is the default NameValidator. Panels do not currently define
// what a valid sample name is, so nothing is rejected.
func AcceptAllNames(position, name string) error {
	return nil
}

type control int

const (
	noControl control = iota
	internalControl
	positiveControl
	negativeControl
	standard
)

// Longer prefixes first so that NTC is not read as an N-something.
var legacyPrefixes = []struct {
	prefix string
	kind   control
}{
	{"NTC", negativeControl},
	{"NEG", negativeControl},
	{"POS", positiveControl},
	{"STD", standard},
	{"IC", internalControl},
	{"PC", positiveControl},
	{"NC", negativeControl},
}

// legacyControl classifies a sample name by the naming convention used on
// older plates: "NC-01", "pc 2", "NTC", "STD_1e3" and so on. The prefix must
// be followed by a non-letter or the end of the name, so "NCBI-7" and
// "Posey" are ordinary samples.
func legacyControl(name string) control {
	upper := strings.ToUpper(strings.TrimSpace(name))

	for _, p := range legacyPrefixes {
		if !strings.HasPrefix(upper, p.prefix) {
			continue
		}
		rest := upper[len(p.prefix):]
		if rest == "" {
			return p.kind
		}
		if r := []rune(rest)[0]; !unicode.IsLetter(r) {
			return p.kind
		}
	}

	return noControl
}
