package market

import (
	"fmt"

	"github.com/calebres/thesis/indicator"
	"github.com/calebres/thesis/shared"
)

// Market tracks the aggregated state of a single market.
type Market struct {
	market          string
	aggregator      *Aggregator
	oneMinSnapshot  *shared.CandlestickSnapshot
	fiveMinSnapshot *shared.CandlestickSnapshot
	sessionVWAP     *indicator.VWAPGenerator
}

// NewMarket initializes a new market.
func NewMarket(market string) (*Market, error) {
	oneMinSnapshot, err := shared.NewCandlestickSnapshot(shared.SnapshotSize)
	if err != nil {
		return nil, fmt.Errorf("creating one minute snapshot: %w", err)
	}

	fiveMinSnapshot, err := shared.NewCandlestickSnapshot(shared.SnapshotSize)
	if err != nil {
		return nil, fmt.Errorf("creating five minute snapshot: %w", err)
	}

	return &Market{
		market:          market,
		aggregator:      NewAggregator(market),
		oneMinSnapshot:  oneMinSnapshot,
		fiveMinSnapshot: fiveMinSnapshot,
		sessionVWAP:     indicator.NewVWAPGenerator(market, shared.FiveMinute),
	}, nil
}

// Update processes the provided one minute candle, returning a closed five minute
// candle when the update rolls the aggregation bucket over.
func (m *Market) Update(candle *shared.Candlestick) (*shared.Candlestick, bool, error) {
	if candle.Timeframe != shared.OneMinute {
		return nil, false, fmt.Errorf("expected candles with timeframe %s, got %s",
			shared.OneMinute.String(), candle.Timeframe.String())
	}

	// Stream reconnects and catch up fetches can replay bars already applied.
	if last := m.oneMinSnapshot.Last(); last != nil && !candle.Date.After(last.Date) {
		return nil, false, nil
	}

	m.oneMinSnapshot.Update(candle)

	closed, flushed := m.aggregator.Push1m(candle)
	if !flushed {
		return nil, false, nil
	}

	vwap, err := m.sessionVWAP.Update(closed)
	if err != nil {
		return nil, false, fmt.Errorf("updating session vwap: %w", err)
	}

	closed.VWAP = vwap.Value
	m.fiveMinSnapshot.Update(closed)

	return closed, true, nil
}

// Forming returns a copy of the in-progress five minute bucket, if any.
func (m *Market) Forming() (shared.FormingCandle, bool) {
	return m.aggregator.Forming()
}

// AverageVolume returns the average closed five minute candle volume over the last n
// candles besides the most recent one.
func (m *Market) AverageVolume(n int32) float64 {
	return m.fiveMinSnapshot.AverageVolumeN(n)
}

// ResetSessionVWAP resets the session anchored vwap at a session boundary.
func (m *Market) ResetSessionVWAP() {
	m.sessionVWAP.Reset()
}
