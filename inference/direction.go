package inference

import (
	"fmt"
	"math"

	"github.com/calebres/thesis/indicator"
	"github.com/calebres/thesis/shared"
)

const (
	// directionWindow is the number of candles used for directional metrics.
	directionWindow = 12
	// directionATRPeriod is the atr period used to normalize slopes.
	directionATRPeriod = 5
	// minSlopeATR is the minimum window slope in atr units to assert a direction.
	minSlopeATR = 0.45
	// strongSlopeATR is the slope in atr units beyond which the candle ratio requirement
	// is relaxed, capturing fast moves that still contain retracement candles.
	strongSlopeATR = 0.9
	// requiredCandleRatio is the minimum same-color candle ratio to assert a direction.
	requiredCandleRatio = 0.58
	// relaxedCandleRatio is the candle ratio required when the slope is strong and both
	// vwap and ema agree with it.
	relaxedCandleRatio = 0.5

	// Confidence weights.
	slopeWeight  = 40
	ratioWeight  = 30
	streakWeight = 15
	emaBonus     = 15
)

// DirectionResult represents an inferred directional read.
type DirectionResult struct {
	Direction  shared.Direction
	Confidence float64
	Reasons    []string
}

// DirectionEngine infers market direction from short closed candle windows.
type DirectionEngine struct{}

// NewDirectionEngine initializes a new direction inference engine.
func NewDirectionEngine() *DirectionEngine {
	return &DirectionEngine{}
}

// candleRatio returns the ratio of candles matching the provided sentiment.
func candleRatio(candles []*shared.Candlestick, sentiment shared.Sentiment) float64 {
	if len(candles) == 0 {
		return 0
	}

	var matches int
	for idx := range candles {
		if candles[idx].FetchSentiment() == sentiment {
			matches++
		}
	}

	return float64(matches) / float64(len(candles))
}

// maxStreak returns the longest run of candles matching the provided sentiment.
func maxStreak(candles []*shared.Candlestick, sentiment shared.Sentiment) int {
	var streak, best int
	for idx := range candles {
		if candles[idx].FetchSentiment() == sentiment {
			streak++
			if streak > best {
				best = streak
			}
			continue
		}

		streak = 0
	}

	return best
}

// clampConfidence clamps the provided confidence to the [0, 100] range.
func clampConfidence(confidence float64) float64 {
	return math.Max(0, math.Min(100, confidence))
}

// Infer infers the market direction from the provided candles. The tail of the window
// supplies slope, candle ratio and streak metrics while the full window supplies the
// ema stack.
func (e *DirectionEngine) Infer(candles []*shared.Candlestick) (*DirectionResult, error) {
	if len(candles) < directionWindow {
		return nil, fmt.Errorf("direction inference requires at least %d candles, got %d",
			directionWindow, len(candles))
	}

	window := candles[len(candles)-directionWindow:]
	last := window[len(window)-1]

	result := &DirectionResult{
		Direction: shared.Unclear,
		Reasons:   []string{},
	}

	// Slope of the window in atr units, falling back to percent terms when the atr
	// is unavailable.
	slope := last.Close - window[0].Close
	var slopeUnits float64
	atr, ok := indicator.ATR(directionATRPeriod, candles)
	switch {
	case ok && atr > 0:
		slopeUnits = slope / atr
	case window[0].Close != 0:
		slopeUnits = (slope / window[0].Close) * 100
	}

	vwap, vwapOK := indicator.RollingVWAP(candles)
	ema9, ema9OK := indicator.EMA(9, candles)
	ema20, ema20OK := indicator.EMA(20, candles)
	emaAligned := ema9OK && ema20OK

	sentiment := shared.Bullish
	direction := shared.Long
	if slopeUnits < 0 {
		sentiment = shared.Bearish
		direction = shared.Short
	}

	ratio := candleRatio(window, sentiment)
	streak := maxStreak(window, sentiment)

	// The ema stack must not contradict an asserted direction.
	emaContradicts := false
	emaAgrees := false
	if emaAligned {
		switch direction {
		case shared.Long:
			emaContradicts = ema9 < ema20 && last.Close < ema9
			emaAgrees = ema9 > ema20 && last.Close > ema9
		case shared.Short:
			emaContradicts = ema9 > ema20 && last.Close > ema9
			emaAgrees = ema9 < ema20 && last.Close < ema9
		}
	}

	vwapAgrees := false
	if vwapOK {
		switch direction {
		case shared.Long:
			vwapAgrees = last.Close > vwap
		case shared.Short:
			vwapAgrees = last.Close < vwap
		}
	}

	// Relax the candle ratio requirement for strong, aligned moves.
	neededRatio := requiredCandleRatio
	if math.Abs(slopeUnits) >= strongSlopeATR && vwapAgrees && emaAgrees {
		neededRatio = relaxedCandleRatio
	}

	qualifies := math.Abs(slopeUnits) >= minSlopeATR && ratio >= neededRatio && !emaContradicts

	// Veto: block a long when price is below vwap while the ema stack is bearish, and
	// the symmetric case for a short.
	vetoed := false
	if vwapOK && emaAligned {
		switch direction {
		case shared.Long:
			vetoed = last.Close < vwap && ema9 < ema20
		case shared.Short:
			vetoed = last.Close > vwap && ema9 > ema20
		}
	}

	if !qualifies || vetoed {
		if vetoed {
			result.Reasons = append(result.Reasons, "vwap and ema alignment veto")
		} else {
			result.Reasons = append(result.Reasons, "insufficient directional evidence")
		}

		return result, nil
	}

	result.Direction = direction
	result.Reasons = append(result.Reasons,
		fmt.Sprintf("slope %.2f atr units", slopeUnits),
		fmt.Sprintf("candle ratio %.2f", ratio),
		fmt.Sprintf("streak %d", streak))

	confidence := math.Min(math.Abs(slopeUnits)/strongSlopeATR, 1)*slopeWeight +
		ratio*ratioWeight +
		math.Min(float64(streak)/float64(directionWindow/2), 1)*streakWeight
	if emaAgrees {
		confidence += emaBonus
		result.Reasons = append(result.Reasons, "ema stack aligned")
	}

	result.Confidence = clampConfidence(confidence)

	return result, nil
}
