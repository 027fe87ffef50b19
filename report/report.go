// Package report writes analysis results as tab-delimited text.
package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/carbocation/pfx"
	"github.com/carbocation/qpcr/analysis"
	"github.com/gocarina/gocsv"
	"gopkg.in/guregu/null.v3"
)

// formatFloat renders a null.Float as a plain number, or as an empty cell when
// it is not valid.
func formatFloat(f null.Float) string {
	if !f.Valid {
		return ""
	}
	return strconv.FormatFloat(f.Float64, 'f', -1, 64)
}

type resultRow struct {
	Well          string `csv:"Well"`
	Channel       string `csv:"Channel"`
	Target        string `csv:"Target"`
	Ct            string `csv:"Ct"`
	Result        string `csv:"Result"`
	Concentration string `csv:"Concentration"`
	Sample        string `csv:"Sample"`
	CaseID        string `csv:"CaseID"`
	PatientID     string `csv:"PatientID"`
	FirstRow      bool   `csv:"FirstRow"`
}

func newResultRow(r analysis.Result) resultRow {
	ct := r.Mark.String
	if r.Ct.Valid {
		ct = formatFloat(r.Ct)
	}

	return resultRow{
		Well:          r.Position,
		Channel:       r.Channel,
		Target:        r.Target,
		Ct:            ct,
		Result:        r.Label(),
		Concentration: formatFloat(r.Concentration),
		Sample:        r.SampleName,
		CaseID:        r.CaseID,
		PatientID:     r.PatientID,
		FirstRow:      r.FirstRow,
	}
}

func tsvWriter(w io.Writer) *gocsv.SafeCSVWriter {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	return gocsv.NewSafeCSVWriter(cw)
}

// WriteResults writes one row per result, with a header, in the order given.
// An undetermined Ct shows its special marker, if any.
func WriteResults(w io.Writer, results []analysis.Result) error {
	rows := make([]*resultRow, 0, len(results))
	for _, r := range results {
		row := newResultRow(r)
		rows = append(rows, &row)
	}

	return pfx.Err(gocsv.MarshalCSV(&rows, tsvWriter(w)))
}
