package inference

import (
	"testing"

	"github.com/calebres/thesis/shared"
	"github.com/peterldowns/testy/assert"
)

func TestDirectionEngineRequiresWindow(t *testing.T) {
	engine := NewDirectionEngine()

	// Ensure inference rejects undersized windows.
	_, err := engine.Infer(trendingCandles(100, 1, 6))
	assert.Error(t, err)
}

func TestDirectionEngineTrends(t *testing.T) {
	engine := NewDirectionEngine()

	// Ensure a strong rising window infers long.
	result, err := engine.Infer(trendingCandles(100, 1, 24))
	assert.NoError(t, err)
	assert.Equal(t, result.Direction, shared.Long)
	assert.True(t, result.Confidence > 50)
	assert.True(t, result.Confidence <= 100)

	// Ensure a strong falling window infers short.
	result, err = engine.Infer(trendingCandles(200, -1, 24))
	assert.NoError(t, err)
	assert.Equal(t, result.Direction, shared.Short)
	assert.True(t, result.Confidence > 50)
	assert.True(t, result.Confidence <= 100)
}

func TestDirectionEngineUnclear(t *testing.T) {
	engine := NewDirectionEngine()

	// Ensure a flat oscillating window infers no direction.
	candles := make([]*shared.Candlestick, 24)
	for idx := range candles {
		open := float64(100)
		close := float64(100.1)
		if idx%2 == 0 {
			open, close = close, open
		}
		candles[idx] = &shared.Candlestick{
			Open: open, Close: close, High: 100.3, Low: 99.8, Volume: 10,
		}
	}

	result, err := engine.Infer(candles)
	assert.NoError(t, err)
	assert.Equal(t, result.Direction, shared.Unclear)
	assert.Equal(t, result.Confidence, float64(0))
}

func TestDirectionEngineVeto(t *testing.T) {
	engine := NewDirectionEngine()

	// Build a window that fell hard then bounced over the last twelve candles: the
	// short window metrics qualify a long while price remains below vwap with a
	// bearish ema stack, so the veto must block the long.
	candles := trendingCandles(200, -3, 20)
	price := candles[len(candles)-1].Close
	bounce := trendingCandles(price, 0.8, 12)
	candles = append(candles, bounce...)

	result, err := engine.Infer(candles)
	assert.NoError(t, err)
	assert.Equal(t, result.Direction, shared.Unclear)

	var vetoed bool
	for idx := range result.Reasons {
		if result.Reasons[idx] == "vwap and ema alignment veto" {
			vetoed = true
		}
	}
	assert.True(t, vetoed)
}

func TestClampConfidence(t *testing.T) {
	// Ensure confidence values clamp to [0, 100].
	assert.Equal(t, clampConfidence(-5), float64(0))
	assert.Equal(t, clampConfidence(50), float64(50))
	assert.Equal(t, clampConfidence(140), float64(100))
}
