package indicator

import "github.com/calebres/thesis/shared"

// EMASeries computes an exponential moving average series over the provided candles.
// The series is seeded with a simple average of the first period closes.
func EMASeries(period int, candles []*shared.Candlestick) []float64 {
	if period <= 0 || len(candles) < period {
		return nil
	}

	series := make([]float64, 0, len(candles)-period+1)

	var sum float64
	for idx := 0; idx < period; idx++ {
		sum += candles[idx].Close
	}

	ema := sum / float64(period)
	series = append(series, ema)

	multiplier := 2 / (float64(period) + 1)
	for idx := period; idx < len(candles); idx++ {
		ema = (candles[idx].Close-ema)*multiplier + ema
		series = append(series, ema)
	}

	return series
}

// EMA computes the latest exponential moving average value over the provided candles.
func EMA(period int, candles []*shared.Candlestick) (float64, bool) {
	series := EMASeries(period, candles)
	if len(series) == 0 {
		return 0, false
	}

	return series[len(series)-1], true
}
