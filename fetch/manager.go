package fetch

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/calebres/thesis/shared"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

const (
	// bufferSize is the default buffer size for channels.
	bufferSize = 64
	// maxWorkers is the maximum number of concurrent workers.
	maxWorkers = 8
	// minSubscriberBuffer is the minimum buffer size for subscribers.
	minSubscriberBuffer = 24
)

// HistoricalDataSource fetches intraday historical market data.
type HistoricalDataSource interface {
	FetchIntradayHistorical(ctx context.Context, market string, timeframe shared.Timeframe, start time.Time, end time.Time) ([]gjson.Result, error)
}

// Ensure the REST client satisfies the historical data source interface.
var _ HistoricalDataSource = (*RESTClient)(nil)

// ManagerConfig represents the configuration for the market data manager.
type ManagerConfig struct {
	// Markets represents the collection of ids of the markets to fetch data for.
	Markets []string
	// ExchangeClient represents the market data provider client.
	ExchangeClient HistoricalDataSource
	// RelayCaughtUpSignal relays the provided caught up signal for processing.
	RelayCaughtUpSignal func(signal shared.CaughtUpSignal)
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Manager represents the market data manager. It catches markets up on historical
// bars and fans live updates out to subscribers.
type Manager struct {
	cfg              *ManagerConfig
	lastUpdatedTimes map[string]time.Time
	catchUpSignals   chan shared.CatchUpSignal
	subscribers      []*chan shared.Candlestick
	workers          chan struct{}
}

// NewManager initializes the market data manager.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	if cfg.ExchangeClient == nil {
		return nil, fmt.Errorf("exchange client is required")
	}

	mgr := &Manager{
		cfg:              cfg,
		lastUpdatedTimes: make(map[string]time.Time),
		catchUpSignals:   make(chan shared.CatchUpSignal, bufferSize),
		subscribers:      make([]*chan shared.Candlestick, 0, minSubscriberBuffer),
		workers:          make(chan struct{}, maxWorkers),
	}

	return mgr, nil
}

// Subscribe registers the provided subscriber for market updates.
func (m *Manager) Subscribe(sub *chan shared.Candlestick) {
	m.subscribers = append(m.subscribers, sub)
}

// notifySubscribers notifies subscribers of the new market update.
func (m *Manager) notifySubscribers(candle *shared.Candlestick) {
	for k := range m.subscribers {
		*m.subscribers[k] <- *candle
	}
}

// SendMarketUpdate relays the provided market update to subscribers.
func (m *Manager) SendMarketUpdate(candle shared.Candlestick) {
	m.notifySubscribers(&candle)
}

// SendCatchUpSignal relays the provided market catch up signal for processing.
func (m *Manager) SendCatchUpSignal(signal shared.CatchUpSignal) {
	select {
	case m.catchUpSignals <- signal:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("catchup signal channel at capacity: %d/%d",
			len(m.catchUpSignals), bufferSize)
	}
}

// handleCatchUpSignal processes the provided catch up signal.
func (m *Manager) handleCatchUpSignal(signal shared.CatchUpSignal) {
	data, err := m.cfg.ExchangeClient.FetchIntradayHistorical(context.Background(), signal.Market,
		signal.Timeframe, signal.Start, time.Time{})
	if err != nil {
		m.cfg.Logger.Error().Msgf("catching up on %s: %v", signal.Market, err)
		return
	}

	_, loc, err := shared.NewYorkTime()
	if err != nil {
		m.cfg.Logger.Error().Msgf("fetching new york location: %v", err)
		return
	}

	// Parse bars individually so a malformed bar is skipped without discarding
	// the rest of the payload.
	candles := make([]shared.Candlestick, 0, len(data))
	for idx := range data {
		parsed, err := shared.ParseCandlesticks(data[idx:idx+1], signal.Market, signal.Timeframe, loc)
		if err != nil {
			m.cfg.Logger.Error().Msgf("skipping %s bar at %q: %v", signal.Market,
				data[idx].Get("date").String(), err)
			continue
		}

		candles = append(candles, parsed[0])
	}

	// The provider returns bars newest first.
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Date.Before(candles[j].Date)
	})

	for idx := range candles {
		m.notifySubscribers(&candles[idx])
	}

	if len(candles) > 0 {
		m.lastUpdatedTimes[signal.Market] = candles[len(candles)-1].Date
	}

	signal.Status <- shared.Processed

	if m.cfg.RelayCaughtUpSignal != nil {
		m.cfg.RelayCaughtUpSignal(shared.NewCaughtUpSignal(signal.Market))
	}
}

// Run manages the lifecycle processes of the market data manager.
func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case signal := <-m.catchUpSignals:
			m.workers <- struct{}{}
			go func(signal *shared.CatchUpSignal) {
				m.handleCatchUpSignal(*signal)
				<-m.workers
			}(&signal)
		}
	}
}
