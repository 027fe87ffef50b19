// Package archive keeps a SQLite record of analysis runs: which panel (by
// name, version and digest) and which build produced which results.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carbocation/pfx"
	"github.com/carbocation/qpcr/analysis"
	"github.com/carbocation/qpcr/compileinfo"
	"github.com/carbocation/qpcr/plate"
	"github.com/carbocation/qpcr/rules"
	"github.com/jmoiron/sqlx"
	"gopkg.in/guregu/null.v3"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	created TEXT NOT NULL,
	source TEXT NOT NULL,
	panel TEXT NOT NULL,
	panel_version TEXT NOT NULL,
	panel_digest TEXT NOT NULL,
	build TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS results (
	run_id INTEGER NOT NULL REFERENCES runs(id),
	seq INTEGER NOT NULL,
	position TEXT NOT NULL,
	channel TEXT NOT NULL,
	target TEXT NOT NULL,
	ct REAL,
	mark TEXT,
	well_type TEXT NOT NULL,
	outcome TEXT NOT NULL,
	positive INTEGER,
	concentration REAL,
	rule_index INTEGER NOT NULL,
	sample_name TEXT NOT NULL,
	case_id TEXT NOT NULL,
	patient_id TEXT NOT NULL,
	first_row INTEGER NOT NULL,
	PRIMARY KEY (run_id, seq)
);
`

// ErrNoRun is returned when a run ID is not in the archive.
var ErrNoRun = errors.New("no such run")

// Run describes one archived analysis.
type Run struct {
	ID           int64  `db:"id" json:"id"`
	Created      string `db:"created" json:"created"`
	Source       string `db:"source" json:"source"`
	Panel        string `db:"panel" json:"panel"`
	PanelVersion string `db:"panel_version" json:"panelVersion"`
	PanelDigest  string `db:"panel_digest" json:"panelDigest"`
	Build        string `db:"build" json:"build"`
}

// NewRun stamps a run of panel over the named input with the current time and
// the running binary's build.
func NewRun(panel *rules.Panel, source string) (Run, error) {
	digest, err := rules.Digest(panel)
	if err != nil {
		return Run{}, pfx.Err(err)
	}

	return Run{
		Created:      time.Now().UTC().Format(time.RFC3339),
		Source:       source,
		Panel:        panel.Name,
		PanelVersion: panel.Version,
		PanelDigest:  digest,
		Build:        compileinfo.Get().Build(),
	}, nil
}

type resultRow struct {
	RunID         int64       `db:"run_id"`
	Seq           int         `db:"seq"`
	Position      string      `db:"position"`
	Channel       string      `db:"channel"`
	Target        string      `db:"target"`
	Ct            null.Float  `db:"ct"`
	Mark          null.String `db:"mark"`
	WellType      string      `db:"well_type"`
	Outcome       string      `db:"outcome"`
	Positive      null.Bool   `db:"positive"`
	Concentration null.Float  `db:"concentration"`
	RuleIndex     int         `db:"rule_index"`
	SampleName    string      `db:"sample_name"`
	CaseID        string      `db:"case_id"`
	PatientID     string      `db:"patient_id"`
	FirstRow      bool        `db:"first_row"`
}

type Archive struct {
	db *sqlx.DB
}

// Open creates or opens the archive database at path.
func Open(path string) (*Archive, error) {
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}

	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, pfx.Err(err)
	}

	// SQLite allows a single writer at a time
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, pfx.Err(err)
	}

	return &Archive{db: db}, nil
}

func (a *Archive) Close() error {
	return a.db.Close()
}

// Record stores the run and its results in one transaction and returns the
// new run's ID.
func (a *Archive) Record(ctx context.Context, run Run, results []analysis.Result) (int64, error) {
	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, pfx.Err(err)
	}
	defer tx.Rollback()

	res, err := tx.NamedExecContext(ctx, `INSERT INTO runs (created, source, panel, panel_version, panel_digest, build)
		VALUES (:created, :source, :panel, :panel_version, :panel_digest, :build)`, run)
	if err != nil {
		return 0, pfx.Err(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, pfx.Err(err)
	}

	for i, r := range results {
		row := resultRow{
			RunID:         id,
			Seq:           i,
			Position:      r.Position,
			Channel:       r.Channel,
			Target:        r.Target,
			Ct:            r.Ct,
			Mark:          r.Mark,
			WellType:      r.WellType.String(),
			Outcome:       r.Call.String(),
			Positive:      r.Positive,
			Concentration: r.Concentration,
			RuleIndex:     r.RuleIndex,
			SampleName:    r.SampleName,
			CaseID:        r.CaseID,
			PatientID:     r.PatientID,
			FirstRow:      r.FirstRow,
		}

		if _, err := tx.NamedExecContext(ctx, `INSERT INTO results (run_id, seq, position, channel, target, ct, mark, well_type, outcome, positive, concentration, rule_index, sample_name, case_id, patient_id, first_row)
			VALUES (:run_id, :seq, :position, :channel, :target, :ct, :mark, :well_type, :outcome, :positive, :concentration, :rule_index, :sample_name, :case_id, :patient_id, :first_row)`, row); err != nil {
			return 0, pfx.Err(err)
		}
	}

	return id, pfx.Err(tx.Commit())
}

// Runs lists archived runs, newest first.
func (a *Archive) Runs(ctx context.Context) ([]Run, error) {
	out := []Run{}
	if err := a.db.SelectContext(ctx, &out, "SELECT * FROM runs ORDER BY id DESC"); err != nil {
		return nil, pfx.Err(err)
	}
	return out, nil
}

// Run fetches one run's header.
func (a *Archive) Run(ctx context.Context, id int64) (Run, error) {
	var out Run
	err := a.db.GetContext(ctx, &out, "SELECT * FROM runs WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return out, fmt.Errorf("%w: %d", ErrNoRun, id)
	} else if err != nil {
		return out, pfx.Err(err)
	}
	return out, nil
}

// Results returns a run's results in the order they were recorded.
func (a *Archive) Results(ctx context.Context, runID int64) ([]analysis.Result, error) {
	rows := []resultRow{}
	if err := a.db.SelectContext(ctx, &rows, "SELECT * FROM results WHERE run_id = ? ORDER BY seq", runID); err != nil {
		return nil, pfx.Err(err)
	}

	out := make([]analysis.Result, 0, len(rows))
	for _, row := range rows {
		var call analysis.Call
		call.UnmarshalText([]byte(row.Outcome))

		out = append(out, analysis.Result{
			Position:      row.Position,
			Channel:       row.Channel,
			Target:        row.Target,
			Ct:            row.Ct,
			Mark:          row.Mark,
			WellType:      plate.ParseWellType(row.WellType),
			Call:          call,
			Positive:      row.Positive,
			Concentration: row.Concentration,
			RuleIndex:     row.RuleIndex,
			SampleName:    row.SampleName,
			CaseID:        row.CaseID,
			PatientID:     row.PatientID,
			FirstRow:      row.FirstRow,
		})
	}

	return out, nil
}
