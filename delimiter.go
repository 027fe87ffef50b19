// Package qpcr holds the file plumbing shared by the ingest readers and the
// binaries: delimiter detection, transparent decompression, gs:// access and
// path helpers.
package qpcr

import (
	"bytes"
	"io"

	"github.com/csimplestring/go-csv/detector"
)

// DetermineDelimiter returns the single most likely rune that would delimit the
// values in the reader, assuming a CSV-like file. Files with no detectable
// delimiter (a single column, say) are treated as comma-delimited.
func DetermineDelimiter(r io.Reader) rune {
	d := detector.New()
	delimiters := d.DetectDelimiter(r, '"')

	if len(delimiters) > 0 {
		return rune(delimiters[0][0])
	}

	return ','
}

// DetermineDelimiterBytes runs DetermineDelimiter over the header line and
// the first few records only.
func DetermineDelimiterBytes(data []byte) rune {
	sample := data
	lines := 0
	for i, b := range data {
		if b == '\n' {
			lines++
			if lines == 10 {
				sample = data[:i+1]
				break
			}
		}
	}

	return DetermineDelimiter(bytes.NewReader(sample))
}
