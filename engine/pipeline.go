package engine

import (
	"context"

	"github.com/calebres/thesis/indicator"
	"github.com/calebres/thesis/inference"
	"github.com/calebres/thesis/setup"
	"github.com/calebres/thesis/shared"
	"github.com/rs/zerolog"
)

const (
	// maxWindow is the number of closed five minute candles retained.
	maxWindow = 288
	// averageVolumePeriod is the lookback used for the average candle volume.
	averageVolumePeriod = 20
	// pipelineATRPeriod is the atr period used for advisory inputs.
	pipelineATRPeriod = 14
)

// PipelineConfig represents the decision pipeline configuration.
type PipelineConfig struct {
	// Market is the market being evaluated.
	Market string
	// FetchForming returns the in-progress five minute bucket for the market.
	FetchForming func() (shared.FormingCandle, bool)
	// FetchCaughtUpState returns whether the market is caught up on market data.
	FetchCaughtUpState func(market string) bool
	// FetchAverageVolume returns the average closed five minute candle volume over
	// the last n candles besides the most recent one.
	FetchAverageVolume func(n int32) float64
	// Setups generates scored trade candidates.
	Setups *setup.Engine
	// Orchestrator drives the decision phases.
	Orchestrator *Orchestrator
	// Advisor evaluates the secondary advisory signal, if any.
	Advisor *Advisor
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Pipeline turns closed five minute candles into orchestrator ticks. It retains
// the closed candle window, classifies the regime, infers direction and bias,
// generates candidates and relays the assembled tick.
type Pipeline struct {
	cfg           *PipelineConfig
	classifier    *inference.Classifier
	direction     *inference.DirectionEngine
	tactical      *inference.TacticalEngine
	candles       []*shared.Candlestick
	closedCandles chan shared.Candlestick
}

// NewPipeline initializes a new decision pipeline.
func NewPipeline(cfg *PipelineConfig) *Pipeline {
	return &Pipeline{
		cfg:           cfg,
		classifier:    inference.NewClassifier(),
		direction:     inference.NewDirectionEngine(),
		tactical:      inference.NewTacticalEngine(),
		candles:       make([]*shared.Candlestick, 0, maxWindow),
		closedCandles: make(chan shared.Candlestick, bufferSize),
	}
}

// SendClosedCandle relays the provided closed candle for processing.
func (p *Pipeline) SendClosedCandle(candle shared.Candlestick) {
	select {
	case p.closedCandles <- candle:
		// do nothing.
	default:
		p.cfg.Logger.Error().Msgf("closed candle channel at capacity: %d/%d",
			len(p.closedCandles), bufferSize)
	}
}

// averageVolume returns the average candle volume baseline for the tick.
func (p *Pipeline) averageVolume() float64 {
	if p.cfg.FetchAverageVolume == nil {
		return 0
	}

	return p.cfg.FetchAverageVolume(averageVolumePeriod)
}

// ProcessClosedCandle processes the provided closed candle synchronously.
func (p *Pipeline) ProcessClosedCandle(ctx context.Context, candle shared.Candlestick) {
	p.candles = append(p.candles, &candle)
	if len(p.candles) > maxWindow {
		p.candles = p.candles[len(p.candles)-maxWindow:]
	}

	if p.cfg.FetchCaughtUpState != nil && !p.cfg.FetchCaughtUpState(p.cfg.Market) {
		// Decisions wait until the market is caught up on market data.
		return
	}

	regime, err := p.classifier.Classify(p.candles)
	if err != nil {
		p.cfg.Logger.Debug().Msgf("classifying %s regime: %v", p.cfg.Market, err)
		return
	}

	direction, err := p.direction.Infer(p.candles)
	if err != nil {
		p.cfg.Logger.Debug().Msgf("inferring %s direction: %v", p.cfg.Market, err)
		return
	}

	tactical, err := p.tactical.Evaluate(p.candles)
	if err != nil {
		p.cfg.Logger.Debug().Msgf("evaluating %s tactical bias: %v", p.cfg.Market, err)
		return
	}

	var forming *shared.FormingCandle
	if p.cfg.FetchForming != nil {
		if f, ok := p.cfg.FetchForming(); ok {
			forming = &f
		}
	}

	window := make([]*shared.Candlestick, len(p.candles))
	copy(window, p.candles)

	candidates := p.cfg.Setups.Generate(&setup.Context{
		Market:        p.cfg.Market,
		Candles:       window,
		Forming:       forming,
		Regime:        regime,
		Direction:     direction,
		Tactical:      tactical,
		AverageVolume: p.averageVolume(),
		Now:           candle.Date,
	})

	p.cfg.Orchestrator.Process(ctx, &Tick{
		Candle:     window[len(window)-1],
		Candles:    window,
		Forming:    forming,
		Regime:     regime,
		Candidates: candidates,
	})

	if p.cfg.Advisor != nil {
		vwap, vwapOK := indicator.RollingVWAP(window)
		atr, atrOK := indicator.ATR(pipelineATRPeriod, window)
		if vwapOK && atrOK && atr > 0 {
			if err := p.cfg.Advisor.Evaluate(ctx, window, forming, vwap, atr, candle.Date); err != nil {
				p.cfg.Logger.Error().Msgf("evaluating %s advisory: %v", p.cfg.Market, err)
			}
		}
	}
}

// Run manages the lifecycle processes of the pipeline.
func (p *Pipeline) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case candle := <-p.closedCandles:
			p.ProcessClosedCandle(ctx, candle)
		}
	}
}
