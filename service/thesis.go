package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/calebres/thesis/database"
	"github.com/calebres/thesis/engine"
	"github.com/calebres/thesis/fetch"
	"github.com/calebres/thesis/gateway"
	"github.com/calebres/thesis/market"
	"github.com/calebres/thesis/publish"
	"github.com/calebres/thesis/setup"
	"github.com/calebres/thesis/shared"
	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

// ThesisConfig represents the configuration struct for the thesis service.
type ThesisConfig struct {
	// Market is the instrument the engine trades.
	Market string
	// DataAPIKey is the market data provider API key.
	DataAPIKey string
	// GatewayURL is the decision gateway base url.
	GatewayURL string
	// GatewayAPIKey is the decision gateway API key.
	GatewayAPIKey string
	// GatewayModel is the model the decision gateway should use.
	GatewayModel string
	// DatabaseEndpoint is the database connection endpoint.
	DatabaseEndpoint string
	// DatabaseUser is the database user.
	DatabaseUser string
	// DatabasePass is the database user pass.
	DatabasePass string
	// Backtest is the backtesting flag.
	Backtest bool
	// BacktestDataFilepath is the filepath to the backtest data.
	BacktestDataFilepath string
	// Cancel is the context cancellation function.
	Cancel context.CancelFunc
}

// Validate asserts the config sane inputs.
func (cfg *ThesisConfig) Validate() error {
	var errs error

	if cfg.Market == "" {
		errs = errors.Join(errs, fmt.Errorf("no market provided for thesis service"))
	}
	if cfg.GatewayURL == "" {
		errs = errors.Join(errs, fmt.Errorf("gateway url cannot be an empty string"))
	}
	if cfg.Cancel == nil {
		errs = errors.Join(errs, fmt.Errorf("context cancellation function cannot be nil"))
	}
	switch cfg.Backtest {
	case true:
		if cfg.BacktestDataFilepath == "" {
			errs = errors.Join(errs, fmt.Errorf("backtest data filepath cannot be an empty string"))
		}
	case false:
		if cfg.DataAPIKey == "" {
			errs = errors.Join(errs, fmt.Errorf("data api key cannot be an empty string"))
		}
	}

	return errs
}

// Thesis represents the streaming decision engine service.
type Thesis struct {
	cfg           *ThesisConfig
	fetchManager  *fetch.Manager
	marketManager *market.Manager
	stream        *fetch.Stream
	historicData  *fetch.HistoricData
	pipeline      *engine.Pipeline
	orchestrator  *engine.Orchestrator
	publisher     *publish.Publisher
	store         database.StateStorer
	jobScheduler  gocron.Scheduler
	logger        *zerolog.Logger
	wg            sync.WaitGroup
}

// NewThesis initializes a new thesis service.
func NewThesis(ctx context.Context, cfg *ThesisConfig) (*Thesis, error) {
	var marketMgr *market.Manager

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	logger := log.With().Str("service", "thesis").Logger()
	instanceID := uuid.NewString()

	caughtUpFunc := func(signal shared.CaughtUpSignal) {
		if marketMgr != nil {
			marketMgr.SendCaughtUpSignal(signal)
		}
	}

	var store database.StateStorer
	if cfg.DatabaseEndpoint != "" {
		dbLogger := logger.With().Str("component", "database").Logger()
		db, err := database.NewDatabase(ctx, &database.DatabaseConfig{
			Endpoint: cfg.DatabaseEndpoint,
			User:     cfg.DatabaseUser,
			Pass:     cfg.DatabasePass,
			Logger:   &dbLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating database: %v", err)
		}

		store = db
	}

	// The sink logs delivered events and persists closed trades. Entry times are
	// tracked from trade entry events.
	publisherLogger := logger.With().Str("component", "publisher").Logger()
	var enteredOn time.Time
	sink := func(event *shared.Event) error {
		publisherLogger.Info().Msgf("%s event for %s", event.Type.String(), cfg.Market)

		switch event.Type {
		case shared.TradeEntered:
			enteredOn = event.Timestamp
		case shared.TradeExited:
			if store != nil {
				sctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
				defer cancel()
				return store.PersistClosedTrade(sctx, uuid.NewString(), event.Trade, enteredOn,
					event.Timestamp)
			}
		}

		return nil
	}

	publisher := publish.NewPublisher(&publish.PublisherConfig{
		Sink:   sink,
		Logger: &publisherLogger,
	})

	gatewayLogger := logger.With().Str("component", "gateway").Logger()
	gatewayClient := gateway.NewClient(&gateway.ClientConfig{
		BaseURL: cfg.GatewayURL,
		APIKey:  cfg.GatewayAPIKey,
		Model:   cfg.GatewayModel,
		Logger:  &gatewayLogger,
	})

	advisorLogger := logger.With().Str("component", "advisor").Logger()
	advisor := engine.NewAdvisor(&engine.AdvisorConfig{
		Market: cfg.Market,
		Advise: gatewayClient.Advise,
		PublishAdvisory: func(payload *shared.AdvisoryPayload) error {
			now, _, err := shared.NewYorkTime()
			if err != nil {
				return fmt.Errorf("fetching new york time: %v", err)
			}

			return publisher.Publish(&shared.Event{
				Type:       shared.AdvisoryPublished,
				Timestamp:  now,
				InstanceID: instanceID,
				Advisory:   payload,
			})
		},
		Logger: &advisorLogger,
	})

	orchestratorLogger := logger.With().Str("component", "orchestrator").Logger()
	orchestratorCfg := &engine.OrchestratorConfig{
		Market:       cfg.Market,
		InstanceID:   instanceID,
		Select:       gatewayClient.Select,
		PublishEvent: publisher.Publish,
		Advisor:      advisor,
		Logger:       &orchestratorLogger,
	}
	if store != nil {
		orchestratorCfg.PersistSnapshot = func(snapshot *engine.Snapshot) error {
			sctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
			defer cancel()
			return store.SaveSnapshot(sctx, snapshot)
		}
	}

	orchestrator := engine.NewOrchestrator(orchestratorCfg)

	if store != nil {
		snapshot, err := store.LoadSnapshot(ctx, cfg.Market)
		if err != nil {
			return nil, fmt.Errorf("loading state snapshot: %v", err)
		}
		if snapshot != nil {
			orchestrator.Restore(snapshot)
			logger.Info().Msgf("restored %s state captured on %s", cfg.Market,
				snapshot.CapturedOn.Format(time.RFC3339))
		}
	}

	fetchMgrLogger := logger.With().Str("component", "fetchmanager").Logger()
	fetchMgr, err := fetch.NewManager(&fetch.ManagerConfig{
		Markets: []string{cfg.Market},
		ExchangeClient: fetch.NewRESTClient(&fetch.RESTConfig{
			BaseURL: fetch.BaseURL,
			APIKey:  cfg.DataAPIKey,
		}),
		RelayCaughtUpSignal: caughtUpFunc,
		Logger:              &fetchMgrLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating fetch manager: %v", err)
	}

	setupLogger := logger.With().Str("component", "setup").Logger()
	pipelineLogger := logger.With().Str("component", "pipeline").Logger()
	pipeline := engine.NewPipeline(&engine.PipelineConfig{
		Market: cfg.Market,
		FetchForming: func() (shared.FormingCandle, bool) {
			if marketMgr == nil {
				return shared.FormingCandle{}, false
			}
			return marketMgr.Forming(cfg.Market)
		},
		FetchCaughtUpState: func(mkt string) bool {
			if marketMgr == nil {
				return false
			}
			return marketMgr.FetchCaughtUpState(mkt)
		},
		FetchAverageVolume: func(n int32) float64 {
			if marketMgr == nil {
				return 0
			}
			return marketMgr.AverageVolume(cfg.Market, n)
		},
		Setups:       setup.NewEngine(&setup.EngineConfig{Logger: &setupLogger}),
		Orchestrator: orchestrator,
		Advisor:      advisor,
		Logger:       &pipelineLogger,
	})

	jobScheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating job scheduler: %w", err)
	}

	relayClosedCandleFunc := func(candle shared.Candlestick) {
		if cfg.Backtest {
			// Backtests replay synchronously to preserve strict bar order.
			pipeline.ProcessClosedCandle(context.Background(), candle)
			return
		}

		pipeline.SendClosedCandle(candle)
	}

	catchUpFunc := fetchMgr.SendCatchUpSignal
	if cfg.Backtest {
		// Backtests are caught up by the replay itself.
		catchUpFunc = nil
	}

	marketMgrLogger := logger.With().Str("component", "marketmanager").Logger()
	marketMgr, err = market.NewManager(&market.ManagerConfig{
		Markets:           []string{cfg.Market},
		Subscribe:         fetchMgr.Subscribe,
		RelayClosedCandle: relayClosedCandleFunc,
		CatchUp:           catchUpFunc,
		JobScheduler:      jobScheduler,
		Logger:            &marketMgrLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating market manager: %v", err)
	}

	service := &Thesis{
		cfg:           cfg,
		fetchManager:  fetchMgr,
		marketManager: marketMgr,
		pipeline:      pipeline,
		orchestrator:  orchestrator,
		publisher:     publisher,
		store:         store,
		jobScheduler:  jobScheduler,
		logger:        &logger,
	}

	if cfg.Backtest {
		historicDataLogger := logger.With().Str("component", "historicdata").Logger()
		service.historicData, err = fetch.NewHistoricData(&fetch.HistoricDataConfig{
			Market:           cfg.Market,
			Timeframe:        shared.OneMinute,
			FilePath:         cfg.BacktestDataFilepath,
			SignalCaughtUp:   caughtUpFunc,
			SendMarketUpdate: marketMgr.ProcessCandleSync,
			Logger:           &historicDataLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating historic data: %v", err)
		}
	} else {
		streamLogger := logger.With().Str("component", "stream").Logger()
		service.stream = fetch.NewStream(&fetch.StreamConfig{
			URL:              fetch.StreamURL,
			APIKey:           cfg.DataAPIKey,
			Markets:          []string{cfg.Market},
			SendMarketUpdate: fetchMgr.SendMarketUpdate,
			Logger:           &streamLogger,
		})
	}

	return service, nil
}

// Run handles the lifecycle processes of the thesis service.
func (t *Thesis) Run(ctx context.Context) {
	t.jobScheduler.Start()
	defer func() {
		if err := t.jobScheduler.Shutdown(); err != nil {
			t.logger.Error().Msgf("shutting down job scheduler: %v", err)
		}
	}()

	t.wg.Add(4)

	go func() {
		t.publisher.Run(ctx)
		t.wg.Done()
	}()

	go func() {
		t.pipeline.Run(ctx)
		t.wg.Done()
	}()

	go func() {
		t.marketManager.Run(ctx)
		t.wg.Done()
	}()

	go func() {
		t.fetchManager.Run(ctx)
		t.wg.Done()
	}()

	if t.cfg.Backtest {
		go func() {
			// wait briefly for initialization.
			time.Sleep(time.Second * 1)
			if err := t.historicData.ProcessHistoricalData(); err != nil {
				t.logger.Error().Msgf("processing historical data: %v", err)
			}

			t.logger.Info().Msgf("backtest for %s done, review emitted events for performance",
				t.cfg.Market)
			t.cfg.Cancel()
		}()
	} else {
		t.wg.Add(1)
		go func() {
			t.stream.Run(ctx)
			t.wg.Done()
		}()
	}

	t.wg.Wait()
}
