package analysis

import (
	"github.com/carbocation/qpcr/plate"
	"gopkg.in/guregu/null.v3"
)

// Call is the terminal state of one well+channel cell.
type Call int

const (
	NoRuleMatched Call = iota
	Positive
	Negative
	Invalid
)

// Labels as they appear in reports. A cell no rule covers shows "-".
var callLabels = map[Call]string{
	NoRuleMatched: "-",
	Positive:      "Positive",
	Negative:      "Negative",
	Invalid:       "Invalid",
}

func (c Call) String() string {
	return callLabels[c]
}

func (c Call) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Call) UnmarshalText(b []byte) error {
	for k, v := range callLabels {
		if v == string(b) {
			*c = k
			return nil
		}
	}
	*c = Invalid
	return nil
}

// Result is the interpretation of one well+channel.
type Result struct {
	Position      string         `json:"position"`
	Channel       string         `json:"channel"`
	Target        string         `json:"target"`
	Ct            null.Float     `json:"ctValue"`
	Mark          null.String    `json:"specialMark"`
	WellType      plate.WellType `json:"wellType"`
	Call          Call           `json:"result"`
	Positive      null.Bool      `json:"positive"`
	Concentration null.Float     `json:"concentration"`
	RuleIndex     int            `json:"ruleIndex"`

	// Grouping metadata, filled in by the sample mapper
	SampleName string `json:"sampleName"`
	CaseID     string `json:"caseId"`
	PatientID  string `json:"patientId"`
	FirstRow   bool   `json:"firstRow"`
}

// Label is the human-readable detection result.
func (r Result) Label() string {
	return r.Call.String()
}
