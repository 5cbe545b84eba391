package indicator

import (
	"math"

	"github.com/calebres/thesis/shared"
)

// BandSet represents a bollinger style band set around a simple moving average.
type BandSet struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// Bands computes a band set over the last period closes of the provided candles.
func Bands(period int, multiplier float64, candles []*shared.Candlestick) (*BandSet, bool) {
	if period <= 0 || len(candles) < period {
		return nil, false
	}

	window := candles[len(candles)-period:]

	var sum float64
	for idx := range window {
		sum += window[idx].Close
	}
	mean := sum / float64(period)

	var variance float64
	for idx := range window {
		diff := window[idx].Close - mean
		variance += diff * diff
	}
	stddev := math.Sqrt(variance / float64(period))

	bands := &BandSet{
		Upper:  mean + multiplier*stddev,
		Middle: mean,
		Lower:  mean - multiplier*stddev,
	}

	return bands, true
}
