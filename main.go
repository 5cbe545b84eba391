package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/calebres/thesis/service"
)

// handleTermination processes context cancellation signals or interrupt signals from the OS.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	// Listen for interrupt signals.
	signals := []os.Signal{os.Interrupt}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, signals...)

	// Wait for the context to be cancelled or an interrupt signal.
	for {
		select {
		case <-ctx.Done():
			return

		case <-interrupt:
			cancel()
		}
	}
}

func main() {
	var cfg Config
	err := loadConfig(&cfg, "")
	if err != nil {
		log.Printf("loading config: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	thesisCfg := service.ThesisConfig{
		Market:               cfg.Market,
		DataAPIKey:           cfg.DataAPIKey,
		GatewayURL:           cfg.GatewayURL,
		GatewayAPIKey:        cfg.GatewayAPIKey,
		GatewayModel:         cfg.GatewayModel,
		DatabaseEndpoint:     cfg.DatabaseEndpoint,
		DatabaseUser:         cfg.DatabaseUser,
		DatabasePass:         cfg.DatabasePass,
		Backtest:             cfg.Backtest,
		BacktestDataFilepath: cfg.BacktestDataFilepath,
		Cancel:               cancel,
	}
	thesis, err := service.NewThesis(ctx, &thesisCfg)
	if err != nil {
		log.Printf("creating thesis service: %v", err)
		return
	}

	go handleTermination(ctx, cancel)
	thesis.Run(ctx)
}
