package fetch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/calebres/thesis/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog/log"
)

func TestHistoricalData(t *testing.T) {
	// Bars span the warmup window, the last bar sits beyond it. The payload is
	// newest first like a provider response.
	data := `[{"open":12,"close":13,"high":14,"low":11,"volume":6,"date":"2025-02-04 16:00:00"},
		{"open":11,"close":12,"high":13,"low":10,"volume":5,"date":"2025-02-04 09:35:00"},
		{"open":10,"close":11,"high":12,"low":9,"volume":4,"date":"2025-02-04 09:30:00"}]`

	path := filepath.Join(t.TempDir(), "historicdata.json")
	err := os.WriteFile(path, []byte(data), 0o644)
	assert.NoError(t, err)

	market := "^GSPC"
	var caughtUpCount int
	signalCaughtUp := func(signal shared.CaughtUpSignal) {
		caughtUpCount++
		signal.Status <- shared.Processed
	}

	candles := make([]shared.Candlestick, 0, 4)
	sendMarketUpdate := func(candle shared.Candlestick) {
		candles = append(candles, candle)
	}

	cfg := &HistoricDataConfig{
		Market:           market,
		Timeframe:        shared.FiveMinute,
		FilePath:         path,
		SignalCaughtUp:   signalCaughtUp,
		SendMarketUpdate: sendMarketUpdate,
		Logger:           &log.Logger,
	}

	// Ensure historic data can be initialized.
	historicData, err := NewHistoricData(cfg)
	assert.NoError(t, err)

	// Ensure the replay relays all bars oldest first and signals caught up once
	// the warmup window elapses.
	err = historicData.ProcessHistoricalData()
	assert.NoError(t, err)

	assert.Equal(t, 3, len(candles))
	assert.Equal(t, float64(10), candles[0].Open)
	assert.Equal(t, float64(12), candles[2].Open)
	assert.Equal(t, 1, caughtUpCount)
}

func TestHistoricalDataMissingFile(t *testing.T) {
	cfg := &HistoricDataConfig{
		Market:    "^GSPC",
		Timeframe: shared.FiveMinute,
		FilePath:  filepath.Join(t.TempDir(), "missing.json"),
		Logger:    &log.Logger,
	}

	// Ensure initialization fails when the data file does not exist.
	_, err := NewHistoricData(cfg)
	assert.Error(t, err)
}
