package inference

import (
	"fmt"
	"math"

	"github.com/calebres/thesis/indicator"
	"github.com/calebres/thesis/shared"
)

const (
	// tacticalLookback is the number of candles used for tactical bias metrics.
	tacticalLookback = 5
	// tacticalATRPeriod is the atr period used for shock detection.
	tacticalATRPeriod = 5
	// clearScore is the minimum absolute score for a clear bias tier.
	clearScore = 3
	// leanScore is the absolute score for a lean bias tier.
	leanScore = 2
	// tacticalSlopeFactor is the minimum slope relative to atr to cast a slope vote.
	tacticalSlopeFactor = 0.2
	// singleBarShockFactor is the single candle true range relative to atr that forces
	// a shock override.
	singleBarShockFactor = 0.9
	// twoBarShockFactor is the per candle true range relative to atr that forces a
	// shock override when sustained across two consecutive candles.
	twoBarShockFactor = 0.6
	// shockConfidence is the confidence assigned to shock driven bias reads.
	shockConfidence = 85
)

// TacticalResult represents a fast bias read with a shock flag.
type TacticalResult struct {
	Bias        shared.Direction
	Tier        shared.BiasTier
	Score       int
	Confidence  float64
	Shock       bool
	ShockReason string
}

// TacticalEngine infers a fast, short lookback bias for a market.
type TacticalEngine struct{}

// NewTacticalEngine initializes a new tactical bias engine.
func NewTacticalEngine() *TacticalEngine {
	return &TacticalEngine{}
}

// Evaluate evaluates the tactical bias of the provided candles. A signed score is
// accumulated from the usual directional signals; a volatility shock overrides the
// scored result using the shock candle's own color.
func (e *TacticalEngine) Evaluate(candles []*shared.Candlestick) (*TacticalResult, error) {
	if len(candles) < tacticalLookback+1 {
		return nil, fmt.Errorf("tactical bias requires at least %d candles, got %d",
			tacticalLookback+1, len(candles))
	}

	window := candles[len(candles)-tacticalLookback:]
	last := window[len(window)-1]
	prev := candles[len(candles)-2]

	result := &TacticalResult{
		Bias: shared.Unclear,
		Tier: shared.NoTier,
	}

	atr, atrOK := indicator.ATR(tacticalATRPeriod, candles)

	var score int

	// Window slope.
	slope := last.Close - window[0].Close
	if atrOK && atr > 0 && math.Abs(slope) >= tacticalSlopeFactor*atr {
		if slope > 0 {
			score++
		} else {
			score--
		}
	}

	// Candle color majority.
	var green, red int
	for idx := range window {
		switch window[idx].FetchSentiment() {
		case shared.Bullish:
			green++
		case shared.Bearish:
			red++
		}
	}
	switch {
	case green > tacticalLookback/2:
		score++
	case red > tacticalLookback/2:
		score--
	}

	// Same color streaks.
	switch {
	case maxStreak(window, shared.Bullish) >= 2 && maxStreak(window, shared.Bullish) > maxStreak(window, shared.Bearish):
		score++
	case maxStreak(window, shared.Bearish) >= 2 && maxStreak(window, shared.Bearish) > maxStreak(window, shared.Bullish):
		score--
	}

	// Price relative to the short ema.
	if ema9, ok := indicator.EMA(9, candles); ok {
		switch {
		case last.Close > ema9:
			score++
		case last.Close < ema9:
			score--
		}
	}

	// Price relative to vwap.
	if vwap, ok := indicator.RollingVWAP(candles); ok {
		switch {
		case last.Close > vwap:
			score++
		case last.Close < vwap:
			score--
		}
	}

	result.Score = score
	magnitude := int(math.Abs(float64(score)))

	switch {
	case magnitude >= clearScore:
		result.Tier = shared.Clear
	case magnitude == leanScore:
		result.Tier = shared.Lean
	}

	if result.Tier != shared.NoTier {
		if score > 0 {
			result.Bias = shared.Long
		} else {
			result.Bias = shared.Short
		}
	}

	result.Confidence = clampConfidence(float64(magnitude) * 20)

	// A volatility shock reacts immediately to range expansion, overriding the scored
	// result with the shock candle's own color.
	if atrOK && atr > 0 {
		lastTR := last.TrueRange(prev.Close)
		prevTR := prev.TrueRange(candles[len(candles)-3].Close)

		switch {
		case lastTR >= singleBarShockFactor*atr:
			result.Shock = true
			result.ShockReason = fmt.Sprintf("single candle true range %.2f >= %.2f atr",
				lastTR, singleBarShockFactor)
		case lastTR >= twoBarShockFactor*atr && prevTR >= twoBarShockFactor*atr:
			result.Shock = true
			result.ShockReason = fmt.Sprintf("consecutive candle true ranges %.2f, %.2f >= %.2f atr",
				prevTR, lastTR, twoBarShockFactor)
		}

		if result.Shock {
			result.Tier = shared.Clear
			switch last.FetchSentiment() {
			case shared.Bullish:
				result.Bias = shared.Long
			case shared.Bearish:
				result.Bias = shared.Short
			}
			result.Confidence = clampConfidence(math.Max(result.Confidence, shockConfidence))
		}
	}

	return result, nil
}
