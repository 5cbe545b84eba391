package indicator

import "github.com/calebres/thesis/shared"

// RSI computes the relative strength index over the provided candles using wilder
// smoothing. It requires period+1 candles for the initial averages.
func RSI(period int, candles []*shared.Candlestick) (float64, bool) {
	if period <= 0 || len(candles) < period+1 {
		return 0, false
	}

	var avgGain, avgLoss float64
	for idx := 1; idx <= period; idx++ {
		change := candles[idx].Close - candles[idx-1].Close
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}

	avgGain /= float64(period)
	avgLoss /= float64(period)

	for idx := period + 1; idx < len(candles); idx++ {
		change := candles[idx].Close - candles[idx-1].Close

		var gain, loss float64
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}

		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100, true
	}

	rs := avgGain / avgLoss
	rsi := 100 - (100 / (1 + rs))

	return rsi, true
}
