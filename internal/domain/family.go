package domain

// Family is the canonical tag grouping equivalent announcement types.
type Family string

// FamilyUnknown marks an event no pattern matched.
const FamilyUnknown Family = ""

// String returns the string representation of Family.
func (f Family) String() string {
	return string(f)
}

// IsKnown reports whether the family is set.
func (f Family) IsKnown() bool {
	return f != FamilyUnknown
}

// FamilyInfo describes one entry of the family reference table.
type FamilyInfo struct {
	Family      Family  // canonical name, e.g. "NFP"
	Pattern     string  // case-insensitive regular expression over event text
	Importance  int     // 1 (low) .. 3 (high)
	Sensitivity float64 // typical pips per unit of surprise
	Unit        string  // unit of the released value
	Description string
}

// ImportanceTier maps an importance level 1..3 onto the [0,1] tier scale.
// Levels outside the range are clamped.
func ImportanceTier(level int) float64 {
	switch {
	case level <= 1:
		return 0
	case level >= 3:
		return 1
	default:
		return float64(level-1) / 2
	}
}
