package engine

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/calebres/thesis/gateway"
	"github.com/calebres/thesis/setup"
	"github.com/calebres/thesis/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog"
)

type pipelineHarness struct {
	pipeline *Pipeline
	events   []*shared.Event
	caughtUp bool
}

func newPipelineHarness() *pipelineHarness {
	h := &pipelineHarness{caughtUp: true}

	logger := zerolog.New(io.Discard)
	orchestrator := NewOrchestrator(&OrchestratorConfig{
		Market:     "^GSPC",
		InstanceID: "test",
		Select: func(ctx context.Context, req *gateway.SelectionRequest) *gateway.Decision {
			return &gateway.Decision{Choice: gateway.Pass}
		},
		PublishEvent: func(event *shared.Event) error {
			h.events = append(h.events, event)
			return nil
		},
		PersistSnapshot: func(snapshot *Snapshot) error { return nil },
		Logger:          &logger,
	})

	h.pipeline = NewPipeline(&PipelineConfig{
		Market:             "^GSPC",
		FetchCaughtUpState: func(market string) bool { return h.caughtUp },
		FetchAverageVolume: func(n int32) float64 { return 100 },
		Setups:             setup.NewEngine(&setup.EngineConfig{Logger: &logger}),
		Orchestrator:       orchestrator,
		Logger:             &logger,
	})

	return h
}

func pipelineCandle(date time.Time, close float64) shared.Candlestick {
	return shared.Candlestick{
		Open:      close - 0.5,
		High:      close + 1,
		Low:       close - 1.5,
		Close:     close,
		Volume:    100,
		Date:      date,
		Market:    "^GSPC",
		Timeframe: shared.FiveMinute,
	}
}

func TestPipelineEmitsTicks(t *testing.T) {
	h := newPipelineHarness()
	start := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

	// Ensure a grown window produces mind state updates per closed candle.
	for idx := range 30 {
		candle := pipelineCandle(start.Add(time.Minute*5*time.Duration(idx)), 100+float64(idx)*0.4)
		h.pipeline.ProcessClosedCandle(context.Background(), candle)
	}

	assert.True(t, len(h.events) > 0)
	assert.Equal(t, shared.MindStateUpdated, h.events[0].Type)
	assert.True(t, h.events[0].MindState != nil)
	assert.Equal(t, "^GSPC", h.events[0].MindState.Market)
}

func TestPipelineHoldsUntilCaughtUp(t *testing.T) {
	h := newPipelineHarness()
	h.caughtUp = false
	start := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

	// Ensure no decisions are made while catching up on market data.
	for idx := range 30 {
		candle := pipelineCandle(start.Add(time.Minute*5*time.Duration(idx)), 100+float64(idx)*0.4)
		h.pipeline.ProcessClosedCandle(context.Background(), candle)
	}

	assert.Equal(t, 0, len(h.events))

	// Ensure decisions resume once caught up, using the retained window.
	h.caughtUp = true
	candle := pipelineCandle(start.Add(time.Minute*5*30), 112.4)
	h.pipeline.ProcessClosedCandle(context.Background(), candle)

	assert.True(t, len(h.events) > 0)
}

func TestPipelineWindowTrimmed(t *testing.T) {
	h := newPipelineHarness()
	start := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

	for idx := range maxWindow + 10 {
		candle := pipelineCandle(start.Add(time.Minute*5*time.Duration(idx)), 100)
		h.pipeline.ProcessClosedCandle(context.Background(), candle)
	}

	assert.Equal(t, maxWindow, len(h.pipeline.candles))
}
