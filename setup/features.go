package setup

import (
	"github.com/calebres/thesis/indicator"
	"github.com/calebres/thesis/shared"
)

const (
	// impulseRangeFactor is the candle range relative to atr considered impulsive.
	impulseRangeFactor = 1.5
	// extendedATR is the distance from the short ema in atr units beyond which price is
	// considered extended from its mean.
	extendedATR = 1.5

	// Relative volume cutoffs. Independently tuned against reference tape; treat as
	// tunable constants rather than derived invariants.
	thinTapeRelVolume  = 0.7
	dryTapeRelVolume   = 0.45
	healthyRelVolume   = 0.9
	spikeRelVolume     = 2.0
	climaxRelVolume    = 3.0
	climaxRangeFactor  = 2.0
	dryTapeQualityCap  = 30.0
	thinTapeQualityCap = 55.0
)

// buildFeatures derives the context feature bundle for setup candidates generated on
// the provided window.
func buildFeatures(candles []*shared.Candlestick, averageVolume float64, atr float64, vwapSlope float64) shared.FeatureBundle {
	features := shared.FeatureBundle{
		VWAPSlope: vwapSlope,
	}

	last := candles[len(candles)-1]

	if atr > 0 {
		if vwap, ok := indicator.RollingVWAP(candles); ok {
			features.DistanceFromVWAP = (last.Close - vwap) / atr
		}
		if ema9, ok := indicator.EMA(9, candles); ok {
			features.DistanceFromEMA9 = (last.Close - ema9) / atr
		}

		// Short ema slope over the last few candles, in atr units per candle.
		series := indicator.EMASeries(9, candles)
		if len(series) >= 4 {
			features.EMASlope = (series[len(series)-1] - series[len(series)-4]) / (3 * atr)
		}

		// Timing relative to the most recent impulse candle.
		features.BarsSinceImpulse = len(candles)
		for idx := len(candles) - 1; idx >= 1; idx-- {
			tr := candles[idx].TrueRange(candles[idx-1].Close)
			if tr >= impulseRangeFactor*atr {
				features.BarsSinceImpulse = len(candles) - 1 - idx
				features.ImpulseRange = tr / atr
				break
			}
		}
	}

	if averageVolume > 0 {
		features.RelativeVolume = last.Volume / averageVolume
	}

	return features
}

// volumeFlags derives volume regime flags from the provided feature bundle.
func volumeFlags(features shared.FeatureBundle, candles []*shared.Candlestick, atr float64) []shared.Flag {
	flags := []shared.Flag{}
	if features.RelativeVolume == 0 {
		return flags
	}

	last := candles[len(candles)-1]
	candleRange := last.High - last.Low

	switch {
	case features.RelativeVolume >= climaxRelVolume && atr > 0 && candleRange >= climaxRangeFactor*atr:
		flags = append(flags, shared.ClimaxVol)
	case features.RelativeVolume >= spikeRelVolume:
		flags = append(flags, shared.VolSpike)
	case features.RelativeVolume < thinTapeRelVolume:
		flags = append(flags, shared.ThinTape)
	}

	return flags
}

// volumeQualityCap returns the quality score ceiling imposed by the volume regime.
func volumeQualityCap(relativeVolume float64) float64 {
	switch {
	case relativeVolume == 0:
		return 100
	case relativeVolume < dryTapeRelVolume:
		return dryTapeQualityCap
	case relativeVolume < thinTapeRelVolume:
		return thinTapeQualityCap
	default:
		return 100
	}
}
