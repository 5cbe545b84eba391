package shared

import (
	"testing"

	"github.com/peterldowns/testy/assert"
)

func TestCandlestickSnapshot(t *testing.T) {
	// Ensure snapshot creation rejects invalid sizes.
	_, err := NewCandlestickSnapshot(0)
	assert.Error(t, err)
	_, err = NewCandlestickSnapshot(-1)
	assert.Error(t, err)

	snapshot, err := NewCandlestickSnapshot(4)
	assert.NoError(t, err)

	// Ensure an empty snapshot has no last entry.
	assert.Nil(t, snapshot.Last())

	// Ensure updates advance the snapshot.
	candles := make([]*Candlestick, 6)
	for idx := range candles {
		candles[idx] = &Candlestick{Close: float64(idx + 1), Volume: float64(idx + 1)}
		snapshot.Update(candles[idx])
	}

	// Ensure the oldest entries are overwritten once at capacity.
	assert.Equal(t, snapshot.Count(), int32(4))
	assert.Equal(t, snapshot.Last(), candles[5])

	set := snapshot.LastN(4)
	assert.Equal(t, len(set), 4)
	assert.Equal(t, set[0], candles[2])
	assert.Equal(t, set[3], candles[5])

	// Ensure LastN clamps when asked for more entries than stored.
	set = snapshot.LastN(10)
	assert.Equal(t, len(set), 4)

	// Ensure LastN rejects non-positive counts.
	assert.Nil(t, snapshot.LastN(0))

	// Ensure average volume excludes the most recent candle.
	average := snapshot.AverageVolumeN(3)
	assert.Equal(t, average, float64(3+4+5)/3)
}
