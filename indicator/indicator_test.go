package indicator

import (
	"testing"
	"time"

	"github.com/calebres/thesis/shared"
	"github.com/peterldowns/testy/assert"
)

func candlesFromCloses(closes ...float64) []*shared.Candlestick {
	candles := make([]*shared.Candlestick, len(closes))
	for idx := range closes {
		candles[idx] = &shared.Candlestick{
			Open:   closes[idx],
			High:   closes[idx] + 1,
			Low:    closes[idx] - 1,
			Close:  closes[idx],
			Volume: 10,
		}
	}

	return candles
}

func TestEMA(t *testing.T) {
	// Ensure an ema cannot be computed without enough candles.
	_, ok := EMA(9, candlesFromCloses(1, 2, 3))
	assert.False(t, ok)

	// Ensure an ema over constant closes equals the close.
	ema, ok := EMA(3, candlesFromCloses(5, 5, 5, 5, 5))
	assert.True(t, ok)
	assert.Equal(t, ema, float64(5))

	// Ensure the ema tracks a rising series upward.
	rising, ok := EMA(3, candlesFromCloses(1, 2, 3, 4, 5, 6))
	assert.True(t, ok)
	assert.True(t, rising > 4)
	assert.True(t, rising < 6)

	// Ensure the series length matches the candle count.
	series := EMASeries(3, candlesFromCloses(1, 2, 3, 4, 5, 6))
	assert.Equal(t, len(series), 4)
}

func TestATR(t *testing.T) {
	// Ensure an atr cannot be computed without enough candles.
	_, ok := ATR(5, candlesFromCloses(1, 2))
	assert.False(t, ok)

	// Ensure the atr of uniform two point ranges is two.
	candles := candlesFromCloses(5, 5, 5, 5, 5, 5)
	atr, ok := ATR(5, candles)
	assert.True(t, ok)
	assert.Equal(t, atr, float64(2))

	// Ensure a range expansion lifts the atr.
	candles[len(candles)-1] = &shared.Candlestick{Open: 5, High: 12, Low: 2, Close: 10, Volume: 10}
	expanded, ok := ATR(5, candles)
	assert.True(t, ok)
	assert.True(t, expanded > atr)
}

func TestRSI(t *testing.T) {
	// Ensure an rsi cannot be computed without enough candles.
	_, ok := RSI(14, candlesFromCloses(1, 2, 3))
	assert.False(t, ok)

	// Ensure a monotonically rising series saturates the rsi.
	rsi, ok := RSI(5, candlesFromCloses(1, 2, 3, 4, 5, 6, 7))
	assert.True(t, ok)
	assert.Equal(t, rsi, float64(100))

	// Ensure a monotonically falling series pins the rsi near zero.
	rsi, ok = RSI(5, candlesFromCloses(7, 6, 5, 4, 3, 2, 1))
	assert.True(t, ok)
	assert.True(t, rsi < 1)

	// Ensure a mixed series lands between the extremes.
	rsi, ok = RSI(5, candlesFromCloses(5, 6, 5, 6, 5, 6, 5))
	assert.True(t, ok)
	assert.True(t, rsi > 0)
	assert.True(t, rsi < 100)
}

func TestBands(t *testing.T) {
	// Ensure bands cannot be computed without enough candles.
	_, ok := Bands(20, 2, candlesFromCloses(1, 2, 3))
	assert.False(t, ok)

	// Ensure bands over constant closes collapse onto the mean.
	bands, ok := Bands(5, 2, candlesFromCloses(5, 5, 5, 5, 5))
	assert.True(t, ok)
	assert.Equal(t, bands.Middle, float64(5))
	assert.Equal(t, bands.Upper, float64(5))
	assert.Equal(t, bands.Lower, float64(5))

	// Ensure dispersion widens the bands symmetrically.
	bands, ok = Bands(4, 2, candlesFromCloses(4, 6, 4, 6))
	assert.True(t, ok)
	assert.Equal(t, bands.Middle, float64(5))
	assert.True(t, bands.Upper > 5)
	assert.Equal(t, bands.Upper-bands.Middle, bands.Middle-bands.Lower)
}

func TestRollingVWAP(t *testing.T) {
	// Ensure a vwap cannot be computed from an empty window.
	_, ok := RollingVWAP(nil)
	assert.False(t, ok)

	// Ensure a vwap cannot be computed without volume.
	zeroVolume := []*shared.Candlestick{{High: 6, Low: 4, Close: 5}}
	_, ok = RollingVWAP(zeroVolume)
	assert.False(t, ok)

	// Ensure the vwap weights typical prices by volume.
	candles := []*shared.Candlestick{
		{High: 6, Low: 4, Close: 5, Volume: 1},
		{High: 12, Low: 8, Close: 10, Volume: 3},
	}
	vwap, ok := RollingVWAP(candles)
	assert.True(t, ok)
	assert.Equal(t, vwap, (5*1+10*3)/float64(4))
}

func TestVWAPGenerator(t *testing.T) {
	generator := NewVWAPGenerator("^GSPC", shared.FiveMinute)

	// Ensure candles with a mismatched timeframe are rejected.
	oneMinute := &shared.Candlestick{Timeframe: shared.OneMinute}
	_, err := generator.Update(oneMinute)
	assert.Error(t, err)

	// Ensure cumulative updates produce a volume weighted value.
	now := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	first := &shared.Candlestick{Timeframe: shared.FiveMinute, High: 6, Low: 4, Close: 5, Volume: 2, Date: now}
	vwap, err := generator.Update(first)
	assert.NoError(t, err)
	assert.Equal(t, vwap.Value, float64(5))

	second := &shared.Candlestick{Timeframe: shared.FiveMinute, High: 12, Low: 8, Close: 10, Volume: 2, Date: now.Add(time.Minute * 5)}
	vwap, err = generator.Update(second)
	assert.NoError(t, err)
	assert.Equal(t, vwap.Value, float64(7.5))

	// Ensure resetting the generator clears its accumulators.
	generator.Reset()
	assert.Equal(t, generator.TypicalPriceVolume.Load(), float64(0))
	assert.Equal(t, generator.Volume.Load(), float64(0))
}
