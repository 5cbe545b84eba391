package setup

import (
	"time"

	"github.com/calebres/thesis/indicator"
	"github.com/calebres/thesis/inference"
	"github.com/calebres/thesis/shared"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// minSetupWindow is the minimum number of closed candles needed to generate setups.
	minSetupWindow = 21
	// atrPeriod is the atr period used for risk normalization.
	atrPeriod = 14
	// chopBurstSlopeATR is the momentum burst slope in atr units that permits setups
	// during a non-trending regime.
	chopBurstSlopeATR = 1.2
	// chopBurstLookback is the number of candles the chop burst slope is measured over.
	chopBurstLookback = 3
	// highConvictionScore is the total score at which a candidate is considered high
	// conviction.
	highConvictionScore = 60
	// minHighConviction is the number of high conviction candidates below which early
	// ideas are synthesized.
	minHighConviction = 2
	// earlyIdeaScore is the total score assigned to synthesized early ideas.
	earlyIdeaScore = 20
)

// Context represents the per-tick inputs for setup generation.
type Context struct {
	// Market is the market being evaluated.
	Market string
	// Candles is the closed five minute window, oldest first.
	Candles []*shared.Candlestick
	// Forming is the in-progress five minute bucket, if any.
	Forming *shared.FormingCandle
	// Regime is the classified market state.
	Regime *inference.RegimeResult
	// Direction is the inferred directional read.
	Direction *inference.DirectionResult
	// Tactical is the fast bias read.
	Tactical *inference.TacticalResult
	// AverageVolume is the average candle volume over the recent window.
	AverageVolume float64
	// Now is the evaluation timestamp.
	Now time.Time
}

// tick carries indicator values computed once per generation pass.
type tick struct {
	atr        float64
	vwap       float64
	ema9       float64
	ema20      float64
	ema9Series []float64
	rsi        float64
	rsiOK      bool
	features   shared.FeatureBundle
	chopBurst  bool
}

// EngineConfig represents the setup engine configuration.
type EngineConfig struct {
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Engine generates scored trade candidates from market state.
type Engine struct {
	cfg *EngineConfig
}

// NewEngine initializes a new setup engine.
func NewEngine(cfg *EngineConfig) *Engine {
	return &Engine{cfg: cfg}
}

// computeTick computes the shared indicator values for a generation pass.
func (e *Engine) computeTick(ctx *Context) (*tick, bool) {
	atr, ok := indicator.ATR(atrPeriod, ctx.Candles)
	if !ok || atr <= 0 {
		return nil, false
	}

	vwap, ok := indicator.RollingVWAP(ctx.Candles)
	if !ok {
		return nil, false
	}

	ema9Series := indicator.EMASeries(9, ctx.Candles)
	ema20, ok := indicator.EMA(20, ctx.Candles)
	if len(ema9Series) < 2 || !ok {
		return nil, false
	}

	t := &tick{
		atr:        atr,
		vwap:       vwap,
		ema9:       ema9Series[len(ema9Series)-1],
		ema20:      ema20,
		ema9Series: ema9Series,
	}
	t.rsi, t.rsiOK = indicator.RSI(14, ctx.Candles)
	t.features = buildFeatures(ctx.Candles, ctx.AverageVolume, atr, ctx.Regime.VWAPSlope)

	// A momentum burst strong enough to override the chop gate must be aligned with
	// both vwap and the ema stack.
	window := ctx.Candles[len(ctx.Candles)-chopBurstLookback:]
	last := window[len(window)-1]
	slopeATR := (last.Close - window[0].Close) / atr
	switch {
	case slopeATR >= chopBurstSlopeATR:
		t.chopBurst = last.Close > vwap && t.ema9 > t.ema20
	case slopeATR <= -chopBurstSlopeATR:
		t.chopBurst = last.Close < vwap && t.ema9 < t.ema20
	}

	return t, true
}

// thesisDirection resolves the direction candidates are generated for, falling back to
// the tactical bias when the slower engine is unclear.
func (e *Engine) thesisDirection(ctx *Context) shared.Direction {
	if ctx.Direction != nil && ctx.Direction.Direction != shared.Unclear {
		return ctx.Direction.Direction
	}
	if ctx.Tactical != nil && ctx.Tactical.Tier == shared.Clear {
		return ctx.Tactical.Bias
	}

	return shared.Unclear
}

// Generate runs all pattern detectors against the provided context and returns the
// surviving candidates ranked best first.
func (e *Engine) Generate(ctx *Context) []*shared.Candidate {
	if len(ctx.Candles) < minSetupWindow || ctx.Regime == nil {
		return nil
	}

	t, ok := e.computeTick(ctx)
	if !ok {
		return nil
	}

	dir := e.thesisDirection(ctx)
	candidates := []*shared.Candidate{}
	blockers := []string{}

	// The chop gate permits setups in a non-trending regime only on an aligned
	// momentum burst.
	gated := !ctx.Regime.Regime.Trending() && !t.chopBurst

	if dir != shared.Unclear && !gated {
		detectors := []func(*Context, *tick, shared.Direction) (*shared.Candidate, string){
			e.detectFollow,
			e.detectReclaim,
			e.detectFade,
		}

		for idx := range detectors {
			candidate, blocked := detectors[idx](ctx, t, dir)
			if candidate == nil {
				if blocked != "" {
					blockers = append(blockers, blocked)
				}
				continue
			}

			e.applyContextFlags(ctx, t, candidate)

			if err := candidate.ValidateRiskGeometry(); err != nil {
				// Invalid risk geometry discards the candidate, not the tick.
				e.cfg.Logger.Warn().Msgf("discarding %s %s candidate: %v",
					candidate.Pattern.String(), candidate.Direction.String(), err)
				continue
			}

			candidates = append(candidates, candidate)
		}
	} else {
		switch {
		case dir == shared.Unclear:
			blockers = append(blockers, "no directional read")
		default:
			blockers = append(blockers, "chop regime without momentum burst")
		}
	}

	Rank(ctx.Regime.Regime, candidates)

	// Keep the best available idea visible downstream even when nothing is actionable.
	var highConviction int
	for idx := range candidates {
		if candidates[idx].Score.Total >= highConvictionScore {
			highConviction++
		}
	}

	if highConviction < minHighConviction {
		if early := e.synthesizeEarlyIdea(ctx, t, dir, blockers); early != nil {
			candidates = append(candidates, early)
		}
	}

	return candidates
}

// applyContextFlags attaches regime and volume context flags to the candidate.
func (e *Engine) applyContextFlags(ctx *Context, t *tick, candidate *shared.Candidate) {
	regime := ctx.Regime.Regime

	if !regime.Trending() {
		candidate.Flags = append(candidate.Flags, shared.ChopRisk)
	}
	if (regime == shared.TrendUp && candidate.Direction == shared.Short) ||
		(regime == shared.TrendDown && candidate.Direction == shared.Long) {
		candidate.Flags = append(candidate.Flags, shared.CounterRegime)
	}
	if t.features.DistanceFromEMA9 >= extendedATR || t.features.DistanceFromEMA9 <= -extendedATR {
		candidate.Flags = append(candidate.Flags, shared.Extended)
	}
	if ctx.Tactical != nil && ctx.Tactical.Shock {
		candidate.Flags = append(candidate.Flags, shared.ShockOverride)
	}

	candidate.Flags = append(candidate.Flags, volumeFlags(t.features, ctx.Candles, t.atr)...)
}

// synthesizeEarlyIdea builds a low conviction visibility candidate carrying the reason
// the best available idea is not yet actionable.
func (e *Engine) synthesizeEarlyIdea(ctx *Context, t *tick, dir shared.Direction, blockers []string) *shared.Candidate {
	if dir == shared.Unclear {
		if ctx.Tactical == nil || ctx.Tactical.Bias == shared.Unclear {
			return nil
		}
		dir = ctx.Tactical.Bias
	}

	last := ctx.Candles[len(ctx.Candles)-1]
	reason := "not yet actionable"
	if len(blockers) > 0 {
		reason = blockers[0]
	}

	var stop float64
	switch dir {
	case shared.Long:
		stop = last.Close - t.atr
	case shared.Short:
		stop = last.Close + t.atr
	}

	candidate := newCandidate(ctx, dir, shared.Follow, last.Close, stop, t)
	candidate.Flags = append(candidate.Flags, shared.EarlyIdea)
	candidate.Score = shared.ScoreBreakdown{Total: earlyIdeaScore}
	candidate.Reason = reason

	if err := candidate.ValidateRiskGeometry(); err != nil {
		return nil
	}

	return candidate
}

// newCandidate initializes a candidate with an entry zone around the reference price
// and targets laddered at one, two and three multiples of the initial risk.
func newCandidate(ctx *Context, dir shared.Direction, pattern shared.Pattern, reference float64, stop float64, t *tick) *shared.Candidate {
	var zone shared.EntryZone
	switch dir {
	case shared.Long:
		zone = shared.EntryZone{Low: reference - 0.1*t.atr, High: reference + 0.25*t.atr}
	case shared.Short:
		zone = shared.EntryZone{Low: reference - 0.25*t.atr, High: reference + 0.1*t.atr}
	}

	candidate := &shared.Candidate{
		ID:        uuid.New().String(),
		Market:    ctx.Market,
		Direction: dir,
		Pattern:   pattern,
		Entry:     zone,
		Stop:      stop,
		Flags:     []shared.Flag{},
		Features:  t.features,
		CreatedOn: ctx.Now,
	}

	entry := candidate.EntryPrice()
	risk := entry - stop
	for idx := range candidate.Targets {
		candidate.Targets[idx] = entry + float64(idx+1)*risk
	}

	return candidate
}
