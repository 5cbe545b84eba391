package market

import (
	"math"
	"testing"
	"time"

	"github.com/calebres/thesis/shared"
	"github.com/peterldowns/testy/assert"
)

func oneMinuteCandle(date time.Time, open, high, low, close, volume float64) *shared.Candlestick {
	return &shared.Candlestick{
		Market:    "^GSPC",
		Timeframe: shared.OneMinute,
		Date:      date,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    volume,
	}
}

func TestAggregator(t *testing.T) {
	aggregator := NewAggregator("^GSPC")
	start := time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)

	// Ensure no forming bucket exists before the first tick.
	_, ok := aggregator.Forming()
	assert.False(t, ok)

	// Ensure five consecutive ticks within one epoch produce no closed candle.
	closes := []float64{5, 6, 4, 7, 6}
	for idx := range closes {
		candle := oneMinuteCandle(start.Add(time.Duration(idx)*time.Minute),
			closes[idx], closes[idx]+2, closes[idx]-2, closes[idx], 2)
		closed, flushed := aggregator.Push1m(candle)
		assert.False(t, flushed)
		assert.Nil(t, closed)
	}

	// Ensure the forming bucket tracks running values.
	forming, ok := aggregator.Forming()
	assert.True(t, ok)
	assert.Equal(t, forming.Open, float64(5))
	assert.Equal(t, forming.High, float64(9))
	assert.Equal(t, forming.Low, float64(2))
	assert.Equal(t, forming.Close, float64(6))
	assert.Equal(t, forming.Volume, float64(10))
	assert.Equal(t, forming.ProgressMinutes, uint32(5))

	// Ensure the first tick of the next epoch flushes exactly one closed candle
	// matching the accumulated extrema, first open and last close.
	next := oneMinuteCandle(start.Add(time.Minute*5), 6, 8, 5, 7, 3)
	closed, flushed := aggregator.Push1m(next)
	assert.True(t, flushed)
	assert.Equal(t, closed.Date, start)
	assert.Equal(t, closed.Open, float64(5))
	assert.Equal(t, closed.High, float64(9))
	assert.Equal(t, closed.Low, float64(2))
	assert.Equal(t, closed.Close, float64(6))
	assert.Equal(t, closed.Volume, float64(10))
	assert.Equal(t, closed.Timeframe, shared.FiveMinute)

	// Ensure further same-epoch ticks do not flush a duplicate candle.
	again := oneMinuteCandle(start.Add(time.Minute*6), 7, 9, 6, 8, 3)
	closed, flushed = aggregator.Push1m(again)
	assert.False(t, flushed)
	assert.Nil(t, closed)

	// Ensure a non-finite close is dropped without mutating the bucket.
	before, _ := aggregator.Forming()
	bad := oneMinuteCandle(start.Add(time.Minute*7), 7, 9, 6, math.NaN(), 3)
	closed, flushed = aggregator.Push1m(bad)
	assert.False(t, flushed)
	assert.Nil(t, closed)
	after, _ := aggregator.Forming()
	assert.Equal(t, before, after)

	inf := oneMinuteCandle(start.Add(time.Minute*7), 7, 9, 6, math.Inf(1), 3)
	_, flushed = aggregator.Push1m(inf)
	assert.False(t, flushed)
}

func TestAggregatorEpochAlignment(t *testing.T) {
	aggregator := NewAggregator("^GSPC")

	// Ensure a mid-bucket first tick still aligns its bucket to the epoch boundary.
	date := time.Date(2024, 3, 4, 9, 33, 0, 0, time.UTC)
	aggregator.Push1m(oneMinuteCandle(date, 5, 7, 3, 6, 2))

	forming, ok := aggregator.Forming()
	assert.True(t, ok)
	assert.Equal(t, forming.Start, time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC))
	assert.Equal(t, forming.End, time.Date(2024, 3, 4, 9, 35, 0, 0, time.UTC))
}
