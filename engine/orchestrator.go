package engine

import (
	"context"
	"time"

	"github.com/calebres/thesis/gateway"
	"github.com/calebres/thesis/inference"
	"github.com/calebres/thesis/shared"
	"github.com/rs/zerolog"
)

const (
	// bufferSize is the default buffer size for channels.
	bufferSize = 64
	// minCandidatesForDecision is the number of candidates required to consult the
	// gateway for a thesis.
	minCandidatesForDecision = 2
)

// Tick represents the per-bar inputs driving the orchestrator.
type Tick struct {
	// Candle is the latest closed five minute candle.
	Candle *shared.Candlestick
	// Candles is the closed five minute window, oldest first.
	Candles []*shared.Candlestick
	// Forming is the in-progress five minute bucket, if any.
	Forming *shared.FormingCandle
	// Regime is the classified market state.
	Regime *inference.RegimeResult
	// Candidates are the ranked setup candidates for the tick.
	Candidates []*shared.Candidate
}

// OrchestratorConfig represents the orchestrator configuration.
type OrchestratorConfig struct {
	// Market is the market being traded.
	Market string
	// InstanceID identifies this engine instance on emitted events.
	InstanceID string
	// Select asks the model to pick among candidates.
	Select func(ctx context.Context, req *gateway.SelectionRequest) *gateway.Decision
	// PublishEvent relays the provided domain event for delivery.
	PublishEvent func(event *shared.Event) error
	// PersistSnapshot persists the provided state snapshot.
	PersistSnapshot func(snapshot *Snapshot) error
	// Advisor is the secondary advisory governor sharing this orchestrator's
	// persistence, if any.
	Advisor *Advisor
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Orchestrator drives the trade lifecycle phase machine. All triggers are evaluated
// on closed candles, never on wicks.
type Orchestrator struct {
	cfg       *OrchestratorConfig
	state     ExecutionState
	debouncer *ThesisDebouncer
}

// NewOrchestrator initializes a new orchestrator.
func NewOrchestrator(cfg *OrchestratorConfig) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		debouncer: NewThesisDebouncer(thesisFlipMinInterval),
	}
}

// State returns a copy of the current execution state.
func (o *Orchestrator) State() ExecutionState {
	return o.state
}

// emit publishes the provided event.
func (o *Orchestrator) emit(event *shared.Event) {
	event.InstanceID = o.cfg.InstanceID
	if err := o.cfg.PublishEvent(event); err != nil {
		o.cfg.Logger.Error().Msgf("publishing %s event: %v", event.Type.String(), err)
	}
}

// seekThesis consults the gateway once enough candidates are available and
// establishes the thesis from its pick.
func (o *Orchestrator) seekThesis(ctx context.Context, tick *Tick, now time.Time) {
	if len(tick.Candidates) < minCandidatesForDecision {
		o.state.WaitReason = shared.AwaitingCandidates
		o.state.clearTrade()
		return
	}

	decision := o.cfg.Select(ctx, &gateway.SelectionRequest{
		Market:     o.cfg.Market,
		ClosedBars: tick.Candles,
		Forming:    tick.Forming,
		Candidates: tick.Candidates,
	})

	if decision.Choice == gateway.Pass {
		// A pass keeps the phase and clears stale pullback and entry fields.
		o.state.WaitReason = shared.GatewayPassed
		if decision.Degraded {
			o.state.WaitReason = shared.GatewayUnavailable
		}
		o.state.clearTrade()
		return
	}

	direction := decision.Choice.Direction()
	if !o.debouncer.Accept(direction, now) {
		o.cfg.Logger.Info().Msgf("thesis flip to %s debounced", direction.String())
		o.state.WaitReason = shared.FlipDebounced
		o.state.clearTrade()
		return
	}

	o.state.ThesisDirection = direction
	o.state.ThesisConfidence = decision.Confidence
	o.state.ThesisSetOn = now
	o.state.Phase = shared.WaitingForPullback
	o.state.WaitReason = shared.AwaitingPullback
	o.state.clearTrade()

	o.emit(&shared.Event{
		Type:      shared.ThesisEstablished,
		Timestamp: now,
		Thesis: &shared.ThesisPayload{
			Market:     o.cfg.Market,
			Direction:  direction,
			Confidence: decision.Confidence,
			Reason:     decision.Reason,
		},
	})
}

// seekPullback waits for a close against the thesis and captures its extreme.
func (o *Orchestrator) seekPullback(tick *Tick, now time.Time) {
	candle := tick.Candle

	var prev *shared.Candlestick
	if len(tick.Candles) >= 2 {
		prev = tick.Candles[len(tick.Candles)-2]
	}

	var against bool
	switch o.state.ThesisDirection {
	case shared.Long:
		against = candle.Close < candle.Open || (prev != nil && candle.Low < prev.Low)
	case shared.Short:
		against = candle.Close > candle.Open || (prev != nil && candle.High > prev.High)
	}

	if !against {
		o.state.WaitReason = shared.AwaitingPullback
		return
	}

	o.state.PullbackLow = candle.Low
	o.state.PullbackHigh = candle.High
	o.state.Phase = shared.WaitingForEntry
	o.state.WaitReason = shared.AwaitingEntryTrigger

	o.emit(&shared.Event{
		Type:      shared.PullbackCaptured,
		Timestamp: now,
		Pullback: &shared.PullbackPayload{
			Market:       o.cfg.Market,
			Direction:    o.state.ThesisDirection,
			PullbackHigh: candle.High,
			PullbackLow:  candle.Low,
		},
	})
}

// seekEntry enters when a close breaks back through the pullback extreme in the
// thesis direction. While waiting, a deeper pullback extends the captured extreme.
func (o *Orchestrator) seekEntry(tick *Tick, now time.Time) {
	candle := tick.Candle

	var triggered bool
	switch o.state.ThesisDirection {
	case shared.Long:
		triggered = candle.Close > o.state.PullbackHigh
		if !triggered && candle.Low < o.state.PullbackLow {
			o.state.PullbackLow = candle.Low
		}
	case shared.Short:
		triggered = candle.Close < o.state.PullbackLow
		if !triggered && candle.High > o.state.PullbackHigh {
			o.state.PullbackHigh = candle.High
		}
	}

	if !triggered {
		o.state.WaitReason = shared.AwaitingEntryTrigger
		return
	}

	entry := candle.Close
	var stop, risk float64
	switch o.state.ThesisDirection {
	case shared.Long:
		stop = o.state.PullbackLow
		risk = entry - stop
	case shared.Short:
		stop = o.state.PullbackHigh
		risk = stop - entry
	}

	if risk <= 0 {
		o.cfg.Logger.Warn().Msgf("rejecting %s entry with non-positive risk: entry %v, stop %v",
			o.state.ThesisDirection.String(), entry, stop)
		return
	}

	o.state.EntryPrice = entry
	o.state.EnteredOn = now
	o.state.Stop = stop
	switch o.state.ThesisDirection {
	case shared.Long:
		o.state.Targets = [2]float64{entry + risk, entry + 2*risk}
	case shared.Short:
		o.state.Targets = [2]float64{entry - risk, entry - 2*risk}
	}
	o.state.Phase = shared.InTrade
	o.state.WaitReason = shared.NoWaitReason

	o.emit(&shared.Event{
		Type:      shared.TradeEntered,
		Timestamp: now,
		Trade: &shared.TradePayload{
			Market:     o.cfg.Market,
			Direction:  o.state.ThesisDirection,
			EntryPrice: entry,
			StopPrice:  stop,
			Targets:    o.state.Targets,
		},
	})
}

// manageTrade exits on a close through the stop or the first target.
func (o *Orchestrator) manageTrade(tick *Tick, now time.Time) {
	candle := tick.Candle

	var reason shared.WaitReason
	switch o.state.ThesisDirection {
	case shared.Long:
		switch {
		case candle.Close <= o.state.Stop:
			reason = shared.StoppedOut
		case candle.Close >= o.state.Targets[0]:
			reason = shared.TargetHit
		}
	case shared.Short:
		switch {
		case candle.Close >= o.state.Stop:
			reason = shared.StoppedOut
		case candle.Close <= o.state.Targets[0]:
			reason = shared.TargetHit
		}
	}

	if reason == shared.NoWaitReason {
		return
	}

	o.emit(&shared.Event{
		Type:      shared.TradeExited,
		Timestamp: now,
		Trade: &shared.TradePayload{
			Market:     o.cfg.Market,
			Direction:  o.state.ThesisDirection,
			EntryPrice: o.state.EntryPrice,
			ExitPrice:  candle.Close,
			StopPrice:  o.state.Stop,
			Targets:    o.state.Targets,
			Reason:     reason,
		},
	})

	o.emit(&shared.Event{
		Type:      shared.ThesisCleared,
		Timestamp: now,
		Thesis: &shared.ThesisPayload{
			Market:     o.cfg.Market,
			Direction:  o.state.ThesisDirection,
			Confidence: o.state.ThesisConfidence,
			Reason:     reason.String(),
		},
	})

	o.state.WaitReason = reason
	o.state.clearTrade()
	o.state.clearThesis()
	o.state.Phase = shared.WaitingForThesis
}

// emitMindState publishes the per-tick decision snapshot.
func (o *Orchestrator) emitMindState(tick *Tick, now time.Time) {
	payload := &shared.MindStatePayload{
		Market:           o.cfg.Market,
		Phase:            o.state.Phase,
		ThesisDirection:  o.state.ThesisDirection,
		ThesisConfidence: o.state.ThesisConfidence,
		WaitReason:       o.state.WaitReason,
		CandidateCount:   len(tick.Candidates),
	}
	if tick.Regime != nil {
		payload.Regime = tick.Regime.Regime
	}
	if len(tick.Candidates) > 0 {
		payload.TopCandidate = tick.Candidates[0]
	}

	o.emit(&shared.Event{
		Type:      shared.MindStateUpdated,
		Timestamp: now,
		MindState: payload,
	})
}

// Process advances the phase machine with the provided tick.
func (o *Orchestrator) Process(ctx context.Context, tick *Tick) {
	if tick.Candle == nil {
		return
	}

	now := tick.Candle.Date
	before := o.state

	switch o.state.Phase {
	case shared.WaitingForThesis:
		o.seekThesis(ctx, tick, now)
	case shared.WaitingForPullback:
		o.seekPullback(tick, now)
	case shared.WaitingForEntry:
		o.seekEntry(tick, now)
	case shared.InTrade:
		o.manageTrade(tick, now)
	}

	o.emitMindState(tick, now)

	if o.state != before && o.cfg.PersistSnapshot != nil {
		if err := o.cfg.PersistSnapshot(o.Snapshot(now)); err != nil {
			o.cfg.Logger.Error().Msgf("persisting state snapshot: %v", err)
		}
	}
}

// Snapshot captures the orchestrator state for persistence.
func (o *Orchestrator) Snapshot(now time.Time) *Snapshot {
	snapshot := &Snapshot{
		Market:             o.cfg.Market,
		State:              o.state,
		DebouncedDirection: o.debouncer.Direction(),
		ThesisAcceptedOn:   o.debouncer.AcceptedOn(),
		CapturedOn:         now,
	}
	if o.cfg.Advisor != nil {
		snapshot.Governor = o.cfg.Advisor.governor.snapshot()
	}

	return snapshot
}

// Restore reinstates the orchestrator state from a snapshot.
func (o *Orchestrator) Restore(snapshot *Snapshot) {
	o.state = snapshot.State
	o.debouncer.Restore(snapshot.DebouncedDirection, snapshot.ThesisAcceptedOn)
	if o.cfg.Advisor != nil {
		o.cfg.Advisor.governor.restore(snapshot.Governor)
	}
}
