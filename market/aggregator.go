package market

import (
	"math"
	"time"

	"github.com/calebres/thesis/shared"
)

// Aggregator folds one minute candlesticks into five minute buckets aligned to
// five minute epoch boundaries.
type Aggregator struct {
	market  string
	forming *shared.FormingCandle
	epoch   int64
}

// NewAggregator initializes a new aggregator for the provided market.
func NewAggregator(market string) *Aggregator {
	return &Aggregator{
		market: market,
		epoch:  -1,
	}
}

// bucketEpoch returns the five minute epoch the provided time falls into.
func bucketEpoch(date time.Time) int64 {
	return date.Unix() / int64(shared.FiveMinute.Duration().Seconds())
}

// Push1m folds the provided one minute candle into the current bucket. The first tick of
// a new bucket flushes the previous forming bucket as a closed candle, returned exactly
// once per epoch boundary.
func (a *Aggregator) Push1m(candle *shared.Candlestick) (*shared.Candlestick, bool) {
	if math.IsNaN(candle.Close) || math.IsInf(candle.Close, 0) {
		// Drop malformed ticks without mutating the bucket.
		return nil, false
	}

	epoch := bucketEpoch(candle.Date)
	if epoch == a.epoch {
		a.forming.Update(candle)
		return nil, false
	}

	var closed *shared.Candlestick
	flushed := false
	if a.forming != nil {
		closed = a.forming.Closed()
		flushed = true
	}

	start := time.Unix(epoch*int64(shared.FiveMinute.Duration().Seconds()), 0).In(candle.Date.Location())
	a.forming = shared.NewFormingCandle(candle, start, start.Add(shared.FiveMinute.Duration()), shared.FiveMinute)
	a.epoch = epoch

	return closed, flushed
}

// Forming returns a copy of the in-progress bucket, if any.
func (a *Aggregator) Forming() (shared.FormingCandle, bool) {
	if a.forming == nil {
		return shared.FormingCandle{}, false
	}

	return *a.forming, true
}
