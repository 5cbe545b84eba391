package shared

// Regime represents the classified market trend state.
type Regime int

const (
	Chop Regime = iota
	TrendUp
	TrendDown
	Transition
)

// String stringifies the provided regime.
func (r Regime) String() string {
	switch r {
	case TrendUp:
		return "trend up"
	case TrendDown:
		return "trend down"
	case Chop:
		return "chop"
	case Transition:
		return "transition"
	default:
		return "unknown"
	}
}

// Trending asserts the regime is a directional trend.
func (r Regime) Trending() bool {
	return r == TrendUp || r == TrendDown
}

// MarketStructure represents the swing structure of a market.
type MarketStructure int

const (
	MixedStructure MarketStructure = iota
	BullishStructure
	BearishStructure
)

// String stringifies the provided market structure.
func (s MarketStructure) String() string {
	switch s {
	case BullishStructure:
		return "higher highs & higher lows"
	case BearishStructure:
		return "lower highs & lower lows"
	case MixedStructure:
		return "mixed structure"
	default:
		return "unknown"
	}
}

// BiasTier represents the conviction tier of a tactical bias read.
type BiasTier int

const (
	NoTier BiasTier = iota
	Lean
	Clear
)

// String stringifies the provided bias tier.
func (t BiasTier) String() string {
	switch t {
	case Clear:
		return "clear"
	case Lean:
		return "lean"
	case NoTier:
		return "none"
	default:
		return "unknown"
	}
}
