package shared

import "time"

// FormingCandle represents an in-progress candlestick bucket for a market.
type FormingCandle struct {
	Market          string
	Timeframe       Timeframe
	Start           time.Time
	End             time.Time
	ProgressMinutes uint32
	Open            float64
	High            float64
	Low             float64
	Close           float64
	Volume          float64
}

// NewFormingCandle initializes a forming candle from the first tick of a bucket.
func NewFormingCandle(candle *Candlestick, start time.Time, end time.Time, timeframe Timeframe) *FormingCandle {
	return &FormingCandle{
		Market:          candle.Market,
		Timeframe:       timeframe,
		Start:           start,
		End:             end,
		ProgressMinutes: 1,
		Open:            candle.Open,
		High:            candle.High,
		Low:             candle.Low,
		Close:           candle.Close,
		Volume:          candle.Volume,
	}
}

// Update folds the provided tick into the forming candle.
func (f *FormingCandle) Update(candle *Candlestick) {
	if candle.High > f.High {
		f.High = candle.High
	}
	if candle.Low < f.Low {
		f.Low = candle.Low
	}

	f.Close = candle.Close
	f.Volume += candle.Volume
	f.ProgressMinutes++
}

// Closed converts the forming candle into a closed candlestick stamped with the bucket start.
func (f *FormingCandle) Closed() *Candlestick {
	return &Candlestick{
		Market:    f.Market,
		Timeframe: f.Timeframe,
		Date:      f.Start,
		Open:      f.Open,
		High:      f.High,
		Low:       f.Low,
		Close:     f.Close,
		Volume:    f.Volume,
	}
}
