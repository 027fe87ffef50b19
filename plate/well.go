package plate

import (
	"strings"

	"gopkg.in/guregu/null.v3"
)

// WellType is the classification tag the instrument software (or the user)
// attached to a well.
type WellType int

const (
	WellTypeUnknown WellType = iota
	WellTypeSample
	WellTypePositiveControl
	WellTypeNegativeControl
	WellTypeStandard
	WellTypeInternalControl
	WellTypeUnused
)

var wellTypeNames = map[WellType]string{
	WellTypeUnknown:         "Unknown",
	WellTypeSample:          "Sample",
	WellTypePositiveControl: "PositiveControl",
	WellTypeNegativeControl: "NegativeControl",
	WellTypeStandard:        "Standard",
	WellTypeInternalControl: "InternalControl",
	WellTypeUnused:          "Unused",
}

// Spellings seen in instrument exports, keyed after lowercasing and removing
// spaces, dashes and underscores.
var wellTypeAliases = map[string]WellType{
	"unknown":         WellTypeUnknown,
	"sample":          WellTypeSample,
	"positivecontrol": WellTypePositiveControl,
	"pc":              WellTypePositiveControl,
	"pos":             WellTypePositiveControl,
	"negativecontrol": WellTypeNegativeControl,
	"nc":              WellTypeNegativeControl,
	"ntc":             WellTypeNegativeControl,
	"neg":             WellTypeNegativeControl,
	"standard":        WellTypeStandard,
	"std":             WellTypeStandard,
	"internalcontrol": WellTypeInternalControl,
	"ic":              WellTypeInternalControl,
	"unused":          WellTypeUnused,
	"empty":           WellTypeUnused,
}

func (t WellType) String() string {
	if s, ok := wellTypeNames[t]; ok {
		return s
	}
	return wellTypeNames[WellTypeUnknown]
}

// ParseWellType never fails: anything unrecognized is WellTypeUnknown.
func ParseWellType(s string) WellType {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "", "-", "", "_", "").Replace(key)

	if t, ok := wellTypeAliases[key]; ok {
		return t
	}
	return WellTypeUnknown
}

func (t WellType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *WellType) UnmarshalText(b []byte) error {
	*t = ParseWellType(string(b))
	return nil
}

// Well is one channel reading of one plate position. A physical well read on
// three channels arrives as three Well values sharing a Position.
type Well struct {
	Position   string      `json:"position"`
	Channel    string      `json:"channel"`
	Ct         null.Float  `json:"ctValue"`
	Mark       null.String `json:"specialMark"`
	Type       WellType    `json:"type"`
	SampleName null.String `json:"sampleName"`
	TargetName null.String `json:"targetName"`
}
