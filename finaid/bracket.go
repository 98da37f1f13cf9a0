// Package finaid holds the pure financial derivation utilities: the
// household income bracket classification used for workflow routing, and
// the reversible transform that protects the raw financial index at rest.
package finaid

// The financial index (Student Aid Index) is reported on a fixed scale.
const (
	IndexMin = -1500
	IndexMax = 999999
)

// Bracket is a coarse classification of a household's financial standing,
// derived from the financial index. Ordering is significant: a higher
// bracket value means stronger financial standing (less aid need).
type Bracket int

const (
	// BracketUnknown is used when no financial index is on file.
	BracketUnknown Bracket = iota
	BracketSevereNeed
	BracketHighNeed
	BracketModerateNeed
	BracketLowNeed
	BracketMinimalNeed
	BracketNoNeed
)

var bracketNames = map[Bracket]string{
	BracketUnknown:      "unknown",
	BracketSevereNeed:   "severe_need",
	BracketHighNeed:     "high_need",
	BracketModerateNeed: "moderate_need",
	BracketLowNeed:      "low_need",
	BracketMinimalNeed:  "minimal_need",
	BracketNoNeed:       "no_need",
}

func (b Bracket) String() string {
	if name, ok := bracketNames[b]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler so brackets serialize as
// their names in checkpoints.
func (b Bracket) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unrecognized names
// decode as BracketUnknown rather than failing the whole checkpoint.
func (b *Bracket) UnmarshalText(text []byte) error {
	name := string(text)
	for bracket, n := range bracketNames {
		if n == name {
			*b = bracket
			return nil
		}
	}
	*b = BracketUnknown
	return nil
}

// bracketCutoffs orders thresholds from the highest cutoff downward. The
// first cutoff the index meets or exceeds wins, so a value equal to a
// cutoff lands in the stronger bracket.
var bracketCutoffs = []struct {
	cutoff  int
	bracket Bracket
}{
	{250000, BracketNoNeed},
	{100000, BracketMinimalNeed},
	{35000, BracketLowNeed},
	{7500, BracketModerateNeed},
	{0, BracketHighNeed},
	{IndexMin, BracketSevereNeed},
}

// ClassifyHouseholdIncome maps a financial index to its bracket. The
// function is total: nil maps to BracketUnknown and out-of-scale values
// are clamped to the scale rather than raising.
func ClassifyHouseholdIncome(index *int) Bracket {
	if index == nil {
		return BracketUnknown
	}
	v := *index
	if v < IndexMin {
		v = IndexMin
	}
	if v > IndexMax {
		v = IndexMax
	}
	for _, c := range bracketCutoffs {
		if v >= c.cutoff {
			return c.bracket
		}
	}
	return BracketSevereNeed
}

// ValidateIndex reports whether a financial index is on the documented
// scale. Store implementations reject out-of-scale writes at the boundary.
func ValidateIndex(index int) bool {
	return index >= IndexMin && index <= IndexMax
}
