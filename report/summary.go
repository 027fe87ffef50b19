package report

import (
	"fmt"
	"io"

	"github.com/carbocation/pfx"
	"github.com/carbocation/qpcr/analysis"
	"github.com/carbocation/qpcr/plate"
	"github.com/gocarina/gocsv"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/guregu/null.v3"
)

// Summary tallies the calls for one target on one channel. The Ct statistics
// cover the cells with a determined Ct; with fewer than two such cells the
// standard deviation is absent.
type Summary struct {
	Target  string `json:"target"`
	Channel string `json:"channel"`

	Cells     int `json:"cells"`
	Positives int `json:"positives"`
	Negatives int `json:"negatives"`
	Invalid   int `json:"invalid"`
	NoRule    int `json:"noRule"`

	MeanCt   null.Float `json:"meanCt"`
	SDCt     null.Float `json:"sdCt"`
	MedianCt null.Float `json:"medianCt"`
}

// Summarize groups results by target and channel, in order of first
// appearance.
func Summarize(results []analysis.Result) []Summary {
	var out []Summary
	cts := make(map[int][]float64)
	byKey := make(map[string]int)

	for _, r := range results {
		key := r.Target + "\t" + plate.NormalizeChannel(r.Channel)

		i, exists := byKey[key]
		if !exists {
			i = len(out)
			byKey[key] = i
			out = append(out, Summary{Target: r.Target, Channel: r.Channel})
		}
		s := &out[i]

		s.Cells++
		switch r.Call {
		case analysis.Positive:
			s.Positives++
		case analysis.Negative:
			s.Negatives++
		case analysis.Invalid:
			s.Invalid++
		default:
			s.NoRule++
		}

		if r.Ct.Valid {
			cts[i] = append(cts[i], r.Ct.Float64)
		}
	}

	for i := range out {
		values := cts[i]
		if len(values) == 0 {
			continue
		}

		mean, sd := stat.MeanStdDev(values, nil)
		out[i].MeanCt = null.FloatFrom(mean)
		if len(values) > 1 {
			out[i].SDCt = null.FloatFrom(sd)
		}

		if median, err := stats.LoadRawData(values).Median(); err == nil {
			out[i].MedianCt = null.FloatFrom(median)
		}
	}

	return out
}

type summaryRow struct {
	Target    string `csv:"Target"`
	Channel   string `csv:"Channel"`
	Cells     int    `csv:"Cells"`
	Positives int    `csv:"Positives"`
	Negatives int    `csv:"Negatives"`
	Invalid   int    `csv:"Invalid"`
	NoRule    int    `csv:"NoRule"`
	MeanCt    string `csv:"MeanCt"`
	SDCt      string `csv:"SDCt"`
	MedianCt  string `csv:"MedianCt"`
}

func formatStat(f null.Float) string {
	if !f.Valid {
		return ""
	}
	return fmt.Sprintf("%.3f", f.Float64)
}

// WriteSummary writes one row per Summary, with a header. Ct statistics are
// rounded to three decimals.
func WriteSummary(w io.Writer, summaries []Summary) error {
	rows := make([]*summaryRow, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, &summaryRow{
			Target:    s.Target,
			Channel:   s.Channel,
			Cells:     s.Cells,
			Positives: s.Positives,
			Negatives: s.Negatives,
			Invalid:   s.Invalid,
			NoRule:    s.NoRule,
			MeanCt:    formatStat(s.MeanCt),
			SDCt:      formatStat(s.SDCt),
			MedianCt:  formatStat(s.MedianCt),
		})
	}

	return pfx.Err(gocsv.MarshalCSV(&rows, tsvWriter(w)))
}
