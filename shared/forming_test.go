package shared

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
)

func TestFormingCandle(t *testing.T) {
	start := time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)
	end := start.Add(time.Minute * 5)

	first := &Candlestick{Market: "^GSPC", Open: 4, High: 6, Low: 3, Close: 5, Volume: 2, Date: start}
	forming := NewFormingCandle(first, start, end, FiveMinute)

	// Ensure the forming candle seeds from the first tick.
	assert.Equal(t, forming.Open, float64(4))
	assert.Equal(t, forming.ProgressMinutes, uint32(1))

	// Ensure updates extend extrema and accumulate volume.
	second := &Candlestick{Open: 5, High: 8, Low: 2, Close: 7, Volume: 3, Date: start.Add(time.Minute)}
	forming.Update(second)
	assert.Equal(t, forming.High, float64(8))
	assert.Equal(t, forming.Low, float64(2))
	assert.Equal(t, forming.Close, float64(7))
	assert.Equal(t, forming.Volume, float64(5))
	assert.Equal(t, forming.ProgressMinutes, uint32(2))

	// Ensure conversion to a closed candle carries the bucket start and accumulated fields.
	closed := forming.Closed()
	assert.Equal(t, closed.Date, start)
	assert.Equal(t, closed.Open, float64(4))
	assert.Equal(t, closed.High, float64(8))
	assert.Equal(t, closed.Low, float64(2))
	assert.Equal(t, closed.Close, float64(7))
	assert.Equal(t, closed.Volume, float64(5))
	assert.Equal(t, closed.Timeframe, FiveMinute)
}
