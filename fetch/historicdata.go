package fetch

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/calebres/thesis/shared"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

const (
	// replayWarmup is the leading span of a replay treated as catch up data.
	replayWarmup = time.Hour * 6
	// caughtUpTimeout bounds the wait for a caught up signal acknowledgement.
	caughtUpTimeout = time.Second * 3
)

// HistoricDataConfig represents the historic data source configuration.
type HistoricDataConfig struct {
	// Market represents the historic data market.
	Market string
	// Timeframe represents the timeframe for the historic data.
	Timeframe shared.Timeframe
	// FilePath is the filepath to the historic market data.
	FilePath string
	// SignalCaughtUp signals a market is caught up on market data.
	SignalCaughtUp func(signal shared.CaughtUpSignal)
	// SendMarketUpdate relays the provided market update for processing.
	SendMarketUpdate func(candle shared.Candlestick)
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// HistoricData represents historic market data replayed through the live
// processing path.
type HistoricData struct {
	cfg     *HistoricDataConfig
	candles []shared.Candlestick
}

// loadHistoricData loads the historic data bytes from the provided file path.
func loadHistoricData(filepath string) ([]gjson.Result, error) {
	readb, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("reading historic data from file with path '%s': %v", filepath, err)
	}

	b := gjson.ParseBytes(readb).Array()

	return b, nil
}

// NewHistoricData initializes a new historic data source.
func NewHistoricData(cfg *HistoricDataConfig) (*HistoricData, error) {
	b, err := loadHistoricData(cfg.FilePath)
	if err != nil {
		return nil, fmt.Errorf("loading historic data: %v", err)
	}

	_, loc, err := shared.NewYorkTime()
	if err != nil {
		return nil, fmt.Errorf("fetching new york location: %v", err)
	}

	candles, err := shared.ParseCandlesticks(b, cfg.Market, cfg.Timeframe, loc)
	if err != nil {
		return nil, fmt.Errorf("parsing candlesticks: %v", err)
	}

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Date.Before(candles[j].Date)
	})

	historicData := HistoricData{
		cfg:     cfg,
		candles: candles,
	}

	return &historicData, nil
}

// ProcessHistoricalData replays historical data for a market.
func (h *HistoricData) ProcessHistoricalData() error {
	if len(h.candles) == 0 {
		return fmt.Errorf("no historic data to process for %s", h.cfg.Market)
	}

	// Determine the range for the data provided.
	first := h.candles[0].Date
	last := h.candles[len(h.candles)-1].Date
	timeDiffInHours := last.Sub(first).Hours()

	h.cfg.Logger.Info().Msgf("processing historical data covering %.2f hours, from %s, to %s",
		timeDiffInHours, first.Format(time.RFC1123), last.Format(time.RFC1123))

	// The leading span of the replay mirrors the live catch up window, the
	// market is flagged caught up once it elapses.
	warmupEnd := first.Add(replayWarmup)

	var caughtUp bool
	for idx := range h.candles {
		candle := h.candles[idx]
		if candle.Date.After(warmupEnd) && !caughtUp {
			signal := shared.NewCaughtUpSignal(h.cfg.Market)
			h.cfg.SignalCaughtUp(signal)

			select {
			case <-signal.Status:
			case <-time.After(caughtUpTimeout):
				return fmt.Errorf("timed out awaiting caught up acknowledgement for %s", h.cfg.Market)
			}

			caughtUp = true
		}

		// Process historical data synchronously.
		h.cfg.SendMarketUpdate(candle)
	}

	return nil
}
