package indicator

import (
	"fmt"
	"time"

	"github.com/calebres/thesis/shared"
	"go.uber.org/atomic"
)

const (
	// VwapResetTime is the session anchored vwap reset time (in new york time).
	VwapResetTime = "17:00:10"
)

// VWAP represents a unit VWAP entry for a market.
type VWAP struct {
	Value float64
	Date  time.Time
}

// RollingVWAP computes the volume weighted average price over the provided candles.
func RollingVWAP(candles []*shared.Candlestick) (float64, bool) {
	if len(candles) == 0 {
		return 0, false
	}

	var typicalPriceVolume, volume float64
	for idx := range candles {
		typicalPrice := (candles[idx].High + candles[idx].Low + candles[idx].Close) / 3
		typicalPriceVolume += typicalPrice * candles[idx].Volume
		volume += candles[idx].Volume
	}

	if volume == 0 {
		return 0, false
	}

	return typicalPriceVolume / volume, true
}

// VWAPGenerator represents the session anchored Volume Weighted Average Price indicator.
type VWAPGenerator struct {
	TypicalPriceVolume atomic.Float64
	Volume             atomic.Float64
	Current            atomic.Pointer[VWAP]
	Market             string
	Timeframe          shared.Timeframe
	LastUpdateTime     atomic.Pointer[time.Time]
}

// NewVWAPGenerator initializes a VWAP indicator for the provided market and timeframe.
func NewVWAPGenerator(market string, timeframe shared.Timeframe) *VWAPGenerator {
	return &VWAPGenerator{
		Market:    market,
		Timeframe: timeframe,
	}
}

// Update cummulatively updates the VWAP indicator with the provided candlestick data.
func (v *VWAPGenerator) Update(candle *shared.Candlestick) (*VWAP, error) {
	if candle.Timeframe != v.Timeframe {
		return nil, fmt.Errorf("expected candles with timeframe %s, got %s",
			v.Timeframe.String(), candle.Timeframe.String())
	}

	typicalPrice := (candle.High + candle.Low + candle.Close) / 3
	v.TypicalPriceVolume.Add(typicalPrice * candle.Volume)
	v.Volume.Add(candle.Volume)

	vwap := &VWAP{
		Date: candle.Date,
	}

	if v.TypicalPriceVolume.Load() == 0 {
		return vwap, nil
	}

	val := v.TypicalPriceVolume.Load() / v.Volume.Load()
	vwap.Value = val
	v.Current.Store(vwap)
	v.LastUpdateTime.Store(&candle.Date)

	return vwap, nil
}

// Reset resets the VWAP indicator after a trading session.
func (v *VWAPGenerator) Reset() {
	v.TypicalPriceVolume.Store(0)
	v.Volume.Store(0)
}
