package inference

import (
	"testing"

	"github.com/calebres/thesis/shared"
	"github.com/peterldowns/testy/assert"
)

func TestTacticalEngineRequiresWindow(t *testing.T) {
	engine := NewTacticalEngine()

	// Ensure evaluation rejects undersized windows.
	_, err := engine.Evaluate(trendingCandles(100, 1, 4))
	assert.Error(t, err)
}

func TestTacticalEngineBias(t *testing.T) {
	engine := NewTacticalEngine()

	// Ensure a steadily rising window produces a clear long bias.
	result, err := engine.Evaluate(trendingCandles(100, 1, 12))
	assert.NoError(t, err)
	assert.Equal(t, result.Bias, shared.Long)
	assert.Equal(t, result.Tier, shared.Clear)
	assert.True(t, result.Score >= clearScore)
	assert.True(t, result.Confidence >= 0)
	assert.True(t, result.Confidence <= 100)

	// Ensure a steadily falling window produces a clear short bias.
	result, err = engine.Evaluate(trendingCandles(200, -1, 12))
	assert.NoError(t, err)
	assert.Equal(t, result.Bias, shared.Short)
	assert.Equal(t, result.Tier, shared.Clear)
	assert.True(t, result.Score <= -clearScore)
}

func TestTacticalEngineNoTier(t *testing.T) {
	engine := NewTacticalEngine()

	// Build a volatile leadup with small, alternating recent candles so no scored
	// signal or shock fires.
	candles := make([]*shared.Candlestick, 0, 12)
	for idx := 0; idx < 6; idx++ {
		// Wide ranging candles elevate the atr.
		open := float64(100)
		close := float64(101)
		if idx%2 == 0 {
			open, close = close, open
		}
		candles = append(candles, &shared.Candlestick{
			Open: open, Close: close, High: 104, Low: 97, Volume: 10,
		})
	}
	for idx := 0; idx < 6; idx++ {
		open := float64(100)
		close := float64(100.1)
		if idx%2 == 0 {
			open, close = close, open
		}
		candles = append(candles, &shared.Candlestick{
			Open: open, Close: close, High: 100.2, Low: 99.9, Volume: 10,
		})
	}

	result, err := engine.Evaluate(candles)
	assert.NoError(t, err)
	assert.False(t, result.Shock)
	assert.Equal(t, result.Tier, shared.NoTier)
	assert.Equal(t, result.Bias, shared.Unclear)
}

func TestTacticalEngineShockOverride(t *testing.T) {
	engine := NewTacticalEngine()

	// Build a quiet leadup with small candles, then a single violent red candle whose
	// true range dwarfs the atr.
	candles := make([]*shared.Candlestick, 0, 12)
	for idx := 0; idx < 11; idx++ {
		candles = append(candles, &shared.Candlestick{
			Open: 100, Close: 100.2, High: 100.4, Low: 99.9, Volume: 10,
		})
	}
	candles = append(candles, &shared.Candlestick{
		Open: 100.2, Close: 96, High: 100.3, Low: 95.8, Volume: 40,
	})

	result, err := engine.Evaluate(candles)
	assert.NoError(t, err)

	// Ensure the shock forces a clear tier using the shock candle's own color, even
	// though the scored bias of the window leans long.
	assert.True(t, result.Shock)
	assert.Equal(t, result.Tier, shared.Clear)
	assert.Equal(t, result.Bias, shared.Short)
	assert.True(t, result.Confidence >= shockConfidence)
	assert.NotEqual(t, result.ShockReason, "")
}
