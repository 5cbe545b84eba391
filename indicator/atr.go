package indicator

import "github.com/calebres/thesis/shared"

// ATR computes the average true range over the provided candles using wilder smoothing.
// It requires period+1 candles to seed the first true range from a previous close.
func ATR(period int, candles []*shared.Candlestick) (float64, bool) {
	if period <= 0 || len(candles) < period+1 {
		return 0, false
	}

	var sum float64
	for idx := 1; idx <= period; idx++ {
		sum += candles[idx].TrueRange(candles[idx-1].Close)
	}

	atr := sum / float64(period)
	for idx := period + 1; idx < len(candles); idx++ {
		tr := candles[idx].TrueRange(candles[idx-1].Close)
		atr = (atr*float64(period-1) + tr) / float64(period)
	}

	return atr, true
}
