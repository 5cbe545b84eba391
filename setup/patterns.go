package setup

import (
	"fmt"

	"github.com/calebres/thesis/shared"
)

const (
	// swingLookback is the number of candles inspected for a protective swing extreme.
	swingLookback = 5
	// reclaimDipLookback is the number of candles inspected for a dip into the value band.
	reclaimDipLookback = 3
	// reclaimHoldBars is the number of closes required beyond the fast ema after a reclaim.
	reclaimHoldBars = 2
	// minRiskATR is the smallest acceptable initial risk in atr units.
	minRiskATR = 0.25
	// maxRiskATR is the largest acceptable initial risk in atr units.
	maxRiskATR = 2.0
	// overboughtRSI is the rsi level treated as an exhaustion extreme for fades.
	overboughtRSI = float64(70)
	// oversoldRSI is the rsi level treated as an exhaustion extreme for fades.
	oversoldRSI = float64(30)
	// fadeScoreCap is the maximum total score a fade candidate can carry.
	fadeScoreCap = 65
)

// swingLow returns the lowest low of the trailing lookback window.
func swingLow(candles []*shared.Candlestick, lookback int) float64 {
	window := candles[len(candles)-lookback:]
	low := window[0].Low
	for idx := range window {
		if window[idx].Low < low {
			low = window[idx].Low
		}
	}

	return low
}

// swingHigh returns the highest high of the trailing lookback window.
func swingHigh(candles []*shared.Candlestick, lookback int) float64 {
	window := candles[len(candles)-lookback:]
	high := window[0].High
	for idx := range window {
		if window[idx].High > high {
			high = window[idx].High
		}
	}

	return high
}

// riskWithinBand reports whether the entry-to-stop distance falls within the
// acceptable atr band.
func riskWithinBand(entry float64, stop float64, atr float64) bool {
	risk := entry - stop
	if risk < 0 {
		risk = -risk
	}

	return risk >= minRiskATR*atr && risk <= maxRiskATR*atr
}

// scoreAlignment scores how well the candidate direction agrees with the broader
// market reads, out of 45.
func scoreAlignment(ctx *Context, t *tick, dir shared.Direction) float64 {
	last := ctx.Candles[len(ctx.Candles)-1]
	var score float64

	switch dir {
	case shared.Long:
		if ctx.Regime.Regime == shared.TrendUp {
			score += 20
		}
		if last.Close > t.vwap {
			score += 10
		}
		if t.ema9 > t.ema20 {
			score += 8
		}
	case shared.Short:
		if ctx.Regime.Regime == shared.TrendDown {
			score += 20
		}
		if last.Close < t.vwap {
			score += 10
		}
		if t.ema9 < t.ema20 {
			score += 8
		}
	}

	if ctx.Tactical != nil && ctx.Tactical.Bias == dir && ctx.Tactical.Tier != shared.NoTier {
		score += 7
	}

	return score
}

// scoreQuality scores the tape quality backing the candidate, out of 30. Thin or dry
// participation caps the score.
func scoreQuality(ctx *Context, t *tick, dir shared.Direction) float64 {
	last := ctx.Candles[len(ctx.Candles)-1]
	var score float64

	if t.features.RelativeVolume >= healthyRelVolume {
		score += 12
	}

	sentiment := shared.Bearish
	if dir == shared.Long {
		sentiment = shared.Bullish
	}
	if last.FetchSentiment() == sentiment {
		score += 10
	}

	if t.features.BarsSinceImpulse >= 0 && t.features.BarsSinceImpulse <= reclaimDipLookback {
		score += 5
	}

	// A marubozu close on expanding volume shows conviction behind the move.
	if len(ctx.Candles) >= 2 {
		prev := ctx.Candles[len(ctx.Candles)-2]
		if shared.FetchMomentum(last, prev) == shared.High {
			score += 3
		}
	}

	return score
}

// finalizeScore assembles the candidate score from its weighted components.
func finalizeScore(ctx *Context, t *tick, candidate *shared.Candidate, structure float64) {
	score := shared.ScoreBreakdown{
		Alignment: scoreAlignment(ctx, t, candidate.Direction),
		Structure: structure,
		Quality:   scoreQuality(ctx, t, candidate.Direction),
	}
	score.Total = score.Alignment + score.Structure + score.Quality

	if ceiling := volumeQualityCap(t.features.RelativeVolume); score.Total > ceiling {
		score.Total = ceiling
	}
	if candidate.Pattern == shared.Fade && score.Total > fadeScoreCap {
		score.Total = fadeScoreCap
	}

	candidate.Score = score
}

// detectFollow detects a trend continuation entry: price reclaiming the fast ema in
// the thesis direction with a protective swing extreme within the acceptable risk band.
func (e *Engine) detectFollow(ctx *Context, t *tick, dir shared.Direction) (*shared.Candidate, string) {
	last := ctx.Candles[len(ctx.Candles)-1]
	prev := ctx.Candles[len(ctx.Candles)-2]
	prevEMA9 := t.ema9Series[len(t.ema9Series)-2]

	var stop float64
	switch dir {
	case shared.Long:
		if last.Close <= t.ema9 {
			return nil, "price below fast ema"
		}
		if prev.Close > prevEMA9 {
			return nil, "no fresh fast ema reclaim"
		}
		stop = swingLow(ctx.Candles, swingLookback)
	case shared.Short:
		if last.Close >= t.ema9 {
			return nil, "price above fast ema"
		}
		if prev.Close < prevEMA9 {
			return nil, "no fresh fast ema reclaim"
		}
		stop = swingHigh(ctx.Candles, swingLookback)
	default:
		return nil, ""
	}

	if !riskWithinBand(last.Close, stop, t.atr) {
		return nil, fmt.Sprintf("follow risk outside %.2f-%.2f atr band", minRiskATR, maxRiskATR)
	}

	candidate := newCandidate(ctx, dir, shared.Follow, last.Close, stop, t)

	// Structure quality favors risk near the middle of the band and a recent impulse.
	risk := candidate.EntryPrice() - stop
	if risk < 0 {
		risk = -risk
	}
	structure := float64(15)
	if risk <= t.atr {
		structure += 10
	}
	finalizeScore(ctx, t, candidate, structure)
	candidate.Reason = "fast ema reclaim with trend"

	return candidate, ""
}

// detectReclaim detects a pullback entry: a recent dip into the vwap/slow ema value
// band, a rejection there, and price holding beyond the fast ema since.
func (e *Engine) detectReclaim(ctx *Context, t *tick, dir shared.Direction) (*shared.Candidate, string) {
	bandLow, bandHigh := t.vwap, t.ema20
	if bandLow > bandHigh {
		bandLow, bandHigh = bandHigh, bandLow
	}

	dipWindow := ctx.Candles[len(ctx.Candles)-reclaimDipLookback-reclaimHoldBars : len(ctx.Candles)-reclaimHoldBars]
	var dip *shared.Candlestick
	for idx := range dipWindow {
		candle := dipWindow[idx]
		switch dir {
		case shared.Long:
			if candle.Low <= bandHigh && candle.Low >= bandLow-t.atr {
				dip = candle
			}
		case shared.Short:
			if candle.High >= bandLow && candle.High <= bandHigh+t.atr {
				dip = candle
			}
		}
	}
	if dip == nil {
		return nil, "no dip into value band"
	}

	// The dip must have been rejected rather than accepted.
	switch dir {
	case shared.Long:
		if dip.Close <= bandLow {
			return nil, "value band dip accepted, not rejected"
		}
	case shared.Short:
		if dip.Close >= bandHigh {
			return nil, "value band dip accepted, not rejected"
		}
	}

	// Price must have held beyond the fast ema since the dip.
	hold := ctx.Candles[len(ctx.Candles)-reclaimHoldBars:]
	for idx := range hold {
		candle := hold[idx]
		if dir == shared.Long && candle.Close <= t.ema9 {
			return nil, "price not holding above fast ema"
		}
		if dir == shared.Short && candle.Close >= t.ema9 {
			return nil, "price not holding below fast ema"
		}
	}

	last := ctx.Candles[len(ctx.Candles)-1]
	var stop float64
	switch dir {
	case shared.Long:
		stop = dip.Low
	case shared.Short:
		stop = dip.High
	default:
		return nil, ""
	}

	if !riskWithinBand(last.Close, stop, t.atr) {
		return nil, fmt.Sprintf("reclaim risk outside %.2f-%.2f atr band", minRiskATR, maxRiskATR)
	}

	candidate := newCandidate(ctx, dir, shared.Reclaim, last.Close, stop, t)

	// The dip extreme anchors the stop, so structure quality tracks how cleanly the
	// band held and whether the rejection shows in the dip's wick.
	structure := float64(15)
	switch dir {
	case shared.Long:
		if dip.Low >= bandLow {
			structure += 7
		}
	case shared.Short:
		if dip.High <= bandHigh {
			structure += 7
		}
	}
	if dip.FetchKind() == shared.Pinbar {
		structure += 3
	}
	finalizeScore(ctx, t, candidate, structure)
	candidate.Reason = "value band rejection holding fast ema"

	return candidate, ""
}

// detectFade detects an exhaustion reversal against the prior move: an rsi extreme,
// a two step momentum turn, and price back through the fast ema. Fades carry a lower
// score ceiling than continuation patterns.
func (e *Engine) detectFade(ctx *Context, t *tick, dir shared.Direction) (*shared.Candidate, string) {
	if !t.rsiOK {
		return nil, "rsi unavailable"
	}

	last := ctx.Candles[len(ctx.Candles)-1]
	prev := ctx.Candles[len(ctx.Candles)-2]
	prior := ctx.Candles[len(ctx.Candles)-3]

	var stop float64
	switch dir {
	case shared.Long:
		if t.rsi > oversoldRSI {
			return nil, "no oversold extreme"
		}
		if !(prev.Close > prior.Close && last.Close > prev.Close) {
			return nil, "no two step momentum turn"
		}
		if last.Close <= t.ema9 {
			return nil, "turn not through fast ema"
		}
		stop = swingLow(ctx.Candles, swingLookback)
	case shared.Short:
		if t.rsi < overboughtRSI {
			return nil, "no overbought extreme"
		}
		if !(prev.Close < prior.Close && last.Close < prev.Close) {
			return nil, "no two step momentum turn"
		}
		if last.Close >= t.ema9 {
			return nil, "turn not through fast ema"
		}
		stop = swingHigh(ctx.Candles, swingLookback)
	default:
		return nil, ""
	}

	if !riskWithinBand(last.Close, stop, t.atr) {
		return nil, fmt.Sprintf("fade risk outside %.2f-%.2f atr band", minRiskATR, maxRiskATR)
	}

	candidate := newCandidate(ctx, dir, shared.Fade, last.Close, stop, t)
	finalizeScore(ctx, t, candidate, 12)
	candidate.Reason = "exhaustion turn through fast ema"

	return candidate, ""
}
