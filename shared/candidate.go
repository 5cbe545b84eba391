package shared

import (
	"fmt"
	"time"
)

// Pattern represents a setup pattern kind.
type Pattern int

const (
	Follow Pattern = iota
	Reclaim
	Fade
)

// String stringifies the provided pattern.
func (p Pattern) String() string {
	switch p {
	case Follow:
		return "follow"
	case Reclaim:
		return "reclaim"
	case Fade:
		return "fade"
	default:
		return "unknown"
	}
}

// Flag represents a cautionary flag attached to a setup candidate.
type Flag int

const (
	Extended Flag = iota
	CounterRegime
	ChopRisk
	EarlyIdea
	ShockOverride
	ThinTape
	VolSpike
	ClimaxVol
)

// String stringifies the provided flag.
func (f Flag) String() string {
	switch f {
	case Extended:
		return "extended"
	case CounterRegime:
		return "counter_regime"
	case ChopRisk:
		return "chop_risk"
	case EarlyIdea:
		return "early_idea"
	case ShockOverride:
		return "shock_override"
	case ThinTape:
		return "thin_tape"
	case VolSpike:
		return "vol_spike"
	case ClimaxVol:
		return "climax_vol"
	default:
		return "unknown"
	}
}

// ScoreBreakdown represents the weighted component scores of a setup candidate.
type ScoreBreakdown struct {
	Alignment float64
	Structure float64
	Quality   float64
	Total     float64
}

// FeatureBundle represents derived context features attached to a setup candidate.
type FeatureBundle struct {
	// Location of price relative to anchors, in ATR units.
	DistanceFromVWAP float64
	DistanceFromEMA9 float64
	// Trend slopes of the anchors, in ATR units per bar.
	VWAPSlope float64
	EMASlope  float64
	// Timing and impulse metrics.
	BarsSinceImpulse int
	ImpulseRange     float64
	// Volume regime.
	RelativeVolume float64
}

// EntryZone represents an acceptable entry price band for a setup candidate.
type EntryZone struct {
	Low  float64
	High float64
}

// Candidate represents one scored trade idea generated by the setup engine.
type Candidate struct {
	ID        string
	Market    string
	Direction Direction
	Pattern   Pattern
	Entry     EntryZone
	Stop      float64
	Targets   [3]float64
	Score     ScoreBreakdown
	Flags     []Flag
	Features  FeatureBundle
	Reason    string
	CreatedOn time.Time
}

// HasFlag checks whether the candidate carries the provided flag.
func (c *Candidate) HasFlag(flag Flag) bool {
	for idx := range c.Flags {
		if c.Flags[idx] == flag {
			return true
		}
	}

	return false
}

// EntryPrice returns the reference entry price for the candidate.
func (c *Candidate) EntryPrice() float64 {
	return (c.Entry.Low + c.Entry.High) / 2
}

// ValidateRiskGeometry asserts the candidate's stop and targets are sanely placed for
// its direction.
func (c *Candidate) ValidateRiskGeometry() error {
	entry := c.EntryPrice()

	switch c.Direction {
	case Long:
		if c.Stop >= entry {
			return fmt.Errorf("long stop %.2f must be below entry %.2f", c.Stop, entry)
		}
		for idx := range c.Targets {
			if c.Targets[idx] <= entry {
				return fmt.Errorf("long target %.2f must be above entry %.2f", c.Targets[idx], entry)
			}
			if idx > 0 && c.Targets[idx] <= c.Targets[idx-1] {
				return fmt.Errorf("long targets must strictly increase, got %.2f then %.2f",
					c.Targets[idx-1], c.Targets[idx])
			}
		}
	case Short:
		if c.Stop <= entry {
			return fmt.Errorf("short stop %.2f must be above entry %.2f", c.Stop, entry)
		}
		for idx := range c.Targets {
			if c.Targets[idx] >= entry {
				return fmt.Errorf("short target %.2f must be below entry %.2f", c.Targets[idx], entry)
			}
			if idx > 0 && c.Targets[idx] >= c.Targets[idx-1] {
				return fmt.Errorf("short targets must strictly decrease, got %.2f then %.2f",
					c.Targets[idx-1], c.Targets[idx])
			}
		}
	default:
		return fmt.Errorf("candidate direction must be long or short, got %s", c.Direction.String())
	}

	return nil
}
