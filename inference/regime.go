package inference

import (
	"fmt"

	"github.com/calebres/thesis/indicator"
	"github.com/calebres/thesis/shared"
)

const (
	// minRegimeWindow is the minimum number of candles needed to classify a regime.
	minRegimeWindow = 10
	// vwapSlopeLookback is the number of candles between vwap slope reference points.
	vwapSlopeLookback = 5
	// flatSlopeThreshold is the relative vwap slope below which the vwap is considered flat.
	// Typical intraday moves sit well above this, so it mostly guards against false flat reads.
	flatSlopeThreshold = 0.0002
	// pivotStrength is the number of neighbouring candles a pivot must dominate on each side.
	pivotStrength = 2
)

// RegimeResult represents a classified market state.
type RegimeResult struct {
	Regime    shared.Regime
	VWAP      float64
	VWAPSlope float64
	Structure shared.MarketStructure
	Reasons   []string
}

// Classifier classifies the market regime from closed candle windows.
type Classifier struct{}

// NewClassifier initializes a new regime classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// pivotHighs returns the swing highs of the provided candles.
func pivotHighs(candles []*shared.Candlestick) []float64 {
	highs := []float64{}
	for idx := pivotStrength; idx < len(candles)-pivotStrength; idx++ {
		pivot := true
		for offset := 1; offset <= pivotStrength; offset++ {
			if candles[idx].High <= candles[idx-offset].High ||
				candles[idx].High <= candles[idx+offset].High {
				pivot = false
				break
			}
		}

		if pivot {
			highs = append(highs, candles[idx].High)
		}
	}

	return highs
}

// pivotLows returns the swing lows of the provided candles.
func pivotLows(candles []*shared.Candlestick) []float64 {
	lows := []float64{}
	for idx := pivotStrength; idx < len(candles)-pivotStrength; idx++ {
		pivot := true
		for offset := 1; offset <= pivotStrength; offset++ {
			if candles[idx].Low >= candles[idx-offset].Low ||
				candles[idx].Low >= candles[idx+offset].Low {
				pivot = false
				break
			}
		}

		if pivot {
			lows = append(lows, candles[idx].Low)
		}
	}

	return lows
}

// classifyStructure classifies the swing structure of the provided candles.
func classifyStructure(candles []*shared.Candlestick) shared.MarketStructure {
	highs := pivotHighs(candles)
	lows := pivotLows(candles)

	if len(highs) < 2 || len(lows) < 2 {
		return shared.MixedStructure
	}

	higherHighs := highs[len(highs)-1] > highs[len(highs)-2]
	higherLows := lows[len(lows)-1] > lows[len(lows)-2]

	switch {
	case higherHighs && higherLows:
		return shared.BullishStructure
	case !higherHighs && !higherLows:
		return shared.BearishStructure
	default:
		return shared.MixedStructure
	}
}

// Classify classifies the market regime from the provided candles. Each of price
// location, vwap slope and swing structure casts one vote; a trend regime requires a
// two of three majority.
func (c *Classifier) Classify(candles []*shared.Candlestick) (*RegimeResult, error) {
	if len(candles) < minRegimeWindow {
		return nil, fmt.Errorf("regime classification requires at least %d candles, got %d",
			minRegimeWindow, len(candles))
	}

	vwap, ok := indicator.RollingVWAP(candles)
	if !ok {
		return nil, fmt.Errorf("computing rolling vwap")
	}

	result := &RegimeResult{
		VWAP:      vwap,
		Structure: classifyStructure(candles),
		Reasons:   []string{},
	}

	var bullVotes, bearVotes int

	// Price location relative to vwap.
	last := candles[len(candles)-1]
	switch {
	case last.Close > vwap:
		bullVotes++
		result.Reasons = append(result.Reasons, "price above vwap")
	case last.Close < vwap:
		bearVotes++
		result.Reasons = append(result.Reasons, "price below vwap")
	}

	// VWAP slope against its value a few candles back.
	prevVWAP, ok := indicator.RollingVWAP(candles[:len(candles)-vwapSlopeLookback])
	if ok && prevVWAP != 0 {
		slope := (vwap - prevVWAP) / prevVWAP
		result.VWAPSlope = slope

		switch {
		case slope > flatSlopeThreshold:
			bullVotes++
			result.Reasons = append(result.Reasons, "vwap sloping up")
		case slope < -flatSlopeThreshold:
			bearVotes++
			result.Reasons = append(result.Reasons, "vwap sloping down")
		default:
			result.Reasons = append(result.Reasons, "vwap flat")
		}
	}

	// Swing structure.
	switch result.Structure {
	case shared.BullishStructure:
		bullVotes++
		result.Reasons = append(result.Reasons, result.Structure.String())
	case shared.BearishStructure:
		bearVotes++
		result.Reasons = append(result.Reasons, result.Structure.String())
	}

	switch {
	case bullVotes >= 2:
		result.Regime = shared.TrendUp
	case bearVotes >= 2:
		result.Regime = shared.TrendDown
	case bullVotes == 1 && bearVotes == 1:
		// Evidence split both ways reads as a regime in transition.
		result.Regime = shared.Transition
	default:
		result.Regime = shared.Chop
	}

	return result, nil
}
