package shared

// Direction represents market direction.
type Direction int

const (
	Unclear Direction = iota
	Long
	Short
)

// String stringifies the provided direction.
func (d Direction) String() string {
	switch d {
	case Long:
		return "long"
	case Short:
		return "short"
	case Unclear:
		return "unclear"
	default:
		return "unknown"
	}
}

// Opposite returns the opposing direction for the provided direction.
func (d Direction) Opposite() Direction {
	switch d {
	case Long:
		return Short
	case Short:
		return Long
	default:
		return Unclear
	}
}
