package shared

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/tidwall/gjson"
)

func TestFetchSentiment(t *testing.T) {
	// Ensure a green candle is bullish.
	green := &Candlestick{Open: 4, Close: 8, High: 9, Low: 3}
	assert.Equal(t, green.FetchSentiment(), Bullish)

	// Ensure a red candle is bearish.
	red := &Candlestick{Open: 8, Close: 4, High: 9, Low: 3}
	assert.Equal(t, red.FetchSentiment(), Bearish)

	// Ensure a flat candle is neutral.
	flat := &Candlestick{Open: 5, Close: 5, High: 6, Low: 4}
	assert.Equal(t, flat.FetchSentiment(), Neutral)
}

func TestFetchKind(t *testing.T) {
	// Ensure a full bodied candle is a marubozu.
	marubozu := &Candlestick{Open: 2, Close: 9, High: 10, Low: 1.5}
	assert.Equal(t, marubozu.FetchKind(), Marubozu)

	// Ensure a candle with a dominant wick is a pin bar.
	pinbar := &Candlestick{Open: 8.6, Close: 9, High: 9.4, Low: 3}
	assert.Equal(t, pinbar.FetchKind(), Pinbar)

	// Ensure a small bodied candle with even wicks is a doji.
	doji := &Candlestick{Open: 5.9, Close: 6.1, High: 8, Low: 4}
	assert.Equal(t, doji.FetchKind(), Doji)

	// Ensure a zero range candle has no discernible kind.
	flat := &Candlestick{Open: 5, Close: 5, High: 5, Low: 5}
	assert.Equal(t, flat.FetchKind(), Unknown)
}

func TestTrueRange(t *testing.T) {
	candle := &Candlestick{Open: 5, Close: 8, High: 9, Low: 4}

	// Ensure the high-low range dominates when the previous close is inside the candle.
	assert.Equal(t, candle.TrueRange(6), float64(5))

	// Ensure a gap below expands the true range.
	assert.Equal(t, candle.TrueRange(2), float64(7))

	// Ensure a gap above expands the true range.
	assert.Equal(t, candle.TrueRange(12), float64(8))
}

func TestFetchMomentum(t *testing.T) {
	prev := &Candlestick{Open: 4, Close: 5, High: 6, Low: 3, Volume: 10}

	// Ensure a marubozu with a substantive volume increase has high momentum.
	strong := &Candlestick{Open: 5, Close: 9, High: 9.2, Low: 4.9, Volume: 14}
	assert.Equal(t, FetchMomentum(strong, prev), High)

	// Ensure a marubozu with a mild volume increase has medium momentum.
	mild := &Candlestick{Open: 5, Close: 9, High: 9.2, Low: 4.9, Volume: 11}
	assert.Equal(t, FetchMomentum(mild, prev), Medium)

	// Ensure a marubozu without volume backing has low momentum.
	trap := &Candlestick{Open: 5, Close: 9, High: 9.2, Low: 4.9, Volume: 8}
	assert.Equal(t, FetchMomentum(trap, prev), Low)

	// Ensure momentum is low when the previous candle has no volume.
	empty := &Candlestick{Open: 4, Close: 5, High: 6, Low: 3}
	assert.Equal(t, FetchMomentum(strong, empty), Low)
}

func TestParseCandlesticks(t *testing.T) {
	loc, err := time.LoadLocation(NewYorkLocation)
	assert.NoError(t, err)

	payload := `[{"date":"2024-03-04 09:30:00","open":4.0,"high":9.0,"low":3.0,"close":8.0,"volume":2.0}]`
	data := gjson.Parse(payload).Array()

	// Ensure candlesticks can be parsed from json data.
	candles, err := ParseCandlesticks(data, "^GSPC", OneMinute, loc)
	assert.NoError(t, err)
	assert.Equal(t, len(candles), 1)
	assert.Equal(t, candles[0].Open, float64(4))
	assert.Equal(t, candles[0].High, float64(9))
	assert.Equal(t, candles[0].Low, float64(3))
	assert.Equal(t, candles[0].Close, float64(8))
	assert.Equal(t, candles[0].Market, "^GSPC")
	assert.Equal(t, candles[0].Timeframe, OneMinute)

	// Ensure a malformed date errors the parse.
	badPayload := `[{"date":"yesterday","open":4.0,"high":9.0,"low":3.0,"close":8.0,"volume":2.0}]`
	badData := gjson.Parse(badPayload).Array()
	_, err = ParseCandlesticks(badData, "^GSPC", OneMinute, loc)
	assert.Error(t, err)
}
