package market

import (
	"context"
	"fmt"
	"time"

	"github.com/calebres/thesis/shared"
	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

const (
	// bufferSize is the default buffer size for channels.
	bufferSize = 64
)

// ManagerConfig represents the market manager configuration.
type ManagerConfig struct {
	// Markets represents the collection of ids of the markets to manage.
	Markets []string
	// Subscribe registers the provided subscriber for market updates.
	Subscribe func(sub *chan shared.Candlestick)
	// RelayClosedCandle relays a closed five minute candle for processing.
	RelayClosedCandle func(candle shared.Candlestick)
	// CatchUp signals a catchup process for a market.
	CatchUp func(signal shared.CatchUpSignal)
	// JobScheduler represents the job scheduler.
	JobScheduler gocron.Scheduler
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Manager manages the lifecycle processes of all tracked markets.
type Manager struct {
	cfg             *ManagerConfig
	markets         map[string]*Market
	caughtUp        map[string]*atomic.Bool
	updateSignals   chan shared.Candlestick
	caughtUpSignals chan shared.CaughtUpSignal
	workers         map[string]chan struct{}
}

// NewManager initializes a new market manager.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	markets := make(map[string]*Market)
	caughtUp := make(map[string]*atomic.Bool)
	workers := make(map[string]chan struct{})
	for idx := range cfg.Markets {
		mkt, err := NewMarket(cfg.Markets[idx])
		if err != nil {
			return nil, fmt.Errorf("creating %s market: %w", cfg.Markets[idx], err)
		}

		markets[cfg.Markets[idx]] = mkt
		caughtUp[cfg.Markets[idx]] = atomic.NewBool(false)
		workers[cfg.Markets[idx]] = make(chan struct{}, 1)
	}

	mgr := &Manager{
		cfg:             cfg,
		markets:         markets,
		caughtUp:        caughtUp,
		updateSignals:   make(chan shared.Candlestick, bufferSize),
		caughtUpSignals: make(chan shared.CaughtUpSignal, bufferSize),
		workers:         workers,
	}

	if cfg.JobScheduler != nil {
		// Reset session anchored vwaps daily at the futures session boundary.
		_, err := cfg.JobScheduler.NewJob(
			gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(17, 0, 10))),
			gocron.NewTask(mgr.resetSessionVWAPs),
		)
		if err != nil {
			return nil, fmt.Errorf("scheduling session vwap reset: %w", err)
		}
	}

	sub := make(chan shared.Candlestick, bufferSize)
	if cfg.Subscribe != nil {
		cfg.Subscribe(&sub)
		go func() {
			for candle := range sub {
				mgr.SendMarketUpdate(candle)
			}
		}()
	}

	return mgr, nil
}

// SendMarketUpdate relays the provided candlestick for processing.
func (m *Manager) SendMarketUpdate(candle shared.Candlestick) {
	select {
	case m.updateSignals <- candle:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("market update channel at capacity: %d/%d",
			len(m.updateSignals), bufferSize)
	}
}

// SendCaughtUpSignal relays the provided caught up signal for processing.
func (m *Manager) SendCaughtUpSignal(signal shared.CaughtUpSignal) {
	select {
	case m.caughtUpSignals <- signal:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("caught up signal channel at capacity: %d/%d",
			len(m.caughtUpSignals), bufferSize)
	}
}

// FetchCaughtUpState returns whether the provided market is caught up on market data.
func (m *Manager) FetchCaughtUpState(market string) bool {
	state, ok := m.caughtUp[market]
	if !ok {
		return false
	}

	return state.Load()
}

// Forming returns a copy of the in-progress five minute bucket for the provided market.
func (m *Manager) Forming(market string) (shared.FormingCandle, bool) {
	mkt, ok := m.markets[market]
	if !ok {
		return shared.FormingCandle{}, false
	}

	return mkt.Forming()
}

// AverageVolume returns the average closed five minute candle volume for the provided
// market over the last n candles besides the most recent one.
func (m *Manager) AverageVolume(market string, n int32) float64 {
	mkt, ok := m.markets[market]
	if !ok {
		return 0
	}

	return mkt.AverageVolume(n)
}

// resetSessionVWAPs resets the session anchored vwaps of all tracked markets.
func (m *Manager) resetSessionVWAPs() {
	for _, mkt := range m.markets {
		mkt.ResetSessionVWAP()
	}
}

// ProcessCandleSync processes the provided candle synchronously, bypassing the
// update channel. Backtest replays use it to preserve strict bar order.
func (m *Manager) ProcessCandleSync(candle shared.Candlestick) {
	m.handleUpdateCandle(&candle)
}

// handleUpdateCandle processes the provided market update candle.
func (m *Manager) handleUpdateCandle(candle *shared.Candlestick) {
	mkt, ok := m.markets[candle.Market]
	if !ok {
		m.cfg.Logger.Error().Msgf("no market found with name %s for update", candle.Market)
		return
	}

	closed, flushed, err := mkt.Update(candle)
	if err != nil {
		m.cfg.Logger.Error().Msgf("updating %s market at %s: %v", candle.Market,
			candle.Date.Format(time.RFC3339), err)
		return
	}

	if flushed {
		m.cfg.RelayClosedCandle(*closed)
	}
}

// handleCaughtUpSignal processes the provided caught up signal.
func (m *Manager) handleCaughtUpSignal(signal shared.CaughtUpSignal) {
	state, ok := m.caughtUp[signal.Market]
	if !ok {
		m.cfg.Logger.Error().Msgf("no market found with name %s for caught up signal", signal.Market)
		return
	}

	state.Store(true)
	signal.Status <- shared.Processed
}

// catchUp signals a catch up for all tracked markets.
func (m *Manager) catchUp() {
	if m.cfg.CatchUp == nil {
		return
	}

	now, _, err := shared.NewYorkTime()
	if err != nil {
		m.cfg.Logger.Error().Msgf("fetching new york time: %v", err)
		return
	}

	for name := range m.markets {
		signal := shared.NewCatchUpSignal(name, shared.OneMinute, now.Add(-time.Hour*6))
		m.cfg.CatchUp(signal)
	}
}

// Run manages the lifecycle processes of the market manager.
func (m *Manager) Run(ctx context.Context) {
	m.catchUp()

	for {
		select {
		case <-ctx.Done():
			return
		case signal := <-m.caughtUpSignals:
			m.handleCaughtUpSignal(signal)
		case candle := <-m.updateSignals:
			// use the dedicated market worker to handle the update signal.
			m.workers[candle.Market] <- struct{}{}
			go func(candle *shared.Candlestick) {
				m.handleUpdateCandle(candle)
				<-m.workers[candle.Market]
			}(&candle)
		}
	}
}
