package database

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/calebres/thesis/engine"
	"github.com/calebres/thesis/shared"
	"github.com/davecgh/go-spew/spew"
	rqlitehttp "github.com/rqlite/rqlite-go-http"
	"github.com/rs/zerolog"
)

const (
	// SQL statements.
	createSnapshotTableSQL = "CREATE TABLE IF NOT EXISTS snapshot (market TEXT PRIMARY KEY, data TEXT, capturedon INTEGER)"
	createTradeTableSQL    = "CREATE TABLE IF NOT EXISTS trade (id TEXT PRIMARY KEY, market TEXT, direction INTEGER, entryprice REAL, exitprice REAL, stopprice REAL, reason TEXT, enteredon INTEGER, exitedon INTEGER)"
	upsertSnapshotSQL      = "INSERT INTO snapshot(market, data, capturedon) VALUES(?,?,?) ON CONFLICT(market) DO UPDATE SET data = excluded.data, capturedon = excluded.capturedon"
	findSnapshotSQL        = "SELECT data FROM snapshot WHERE market = ?"
	persistClosedTradeSQL  = "INSERT INTO trade(id, market, direction, entryprice, exitprice, stopprice, reason, enteredon, exitedon) VALUES(?,?,?,?,?,?,?,?,?)"
)

// StateStorer defines the requirements for persisting engine state.
type StateStorer interface {
	// SaveSnapshot stores the provided state snapshot.
	SaveSnapshot(ctx context.Context, snapshot *engine.Snapshot) error
	// LoadSnapshot fetches the stored state snapshot for the provided market.
	LoadSnapshot(ctx context.Context, market string) (*engine.Snapshot, error)
	// PersistClosedTrade stores the provided closed trade.
	PersistClosedTrade(ctx context.Context, id string, trade *shared.TradePayload, enteredOn time.Time, exitedOn time.Time) error
}

// DatabaseConfig is the configuration for the database.
type DatabaseConfig struct {
	// Endpoint represents the database connection endpoint.
	Endpoint string
	// User is the database user.
	User string
	// Pass is the database user pass.
	Pass string
	// Logger is the database logger.
	Logger *zerolog.Logger
}

// Database represents the database connection.
type Database struct {
	cfg    *DatabaseConfig
	client *rqlitehttp.Client
}

// Ensure the database implements the StateStorer interface.
var _ StateStorer = (*Database)(nil)

// NewDatabase initializes a new database connection.
func NewDatabase(ctx context.Context, cfg *DatabaseConfig) (*Database, error) {
	httpc := &http.Client{Timeout: time.Second * 5}
	client, err := rqlitehttp.NewClient(cfg.Endpoint, httpc)
	if err != nil {
		return nil, fmt.Errorf("creating database client: %w", err)
	}

	client.SetBasicAuth(cfg.User, cfg.Pass)

	db := &Database{
		cfg:    cfg,
		client: client,
	}

	err = db.bootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrapping database: %w", err)
	}

	return db, nil
}

// bootstrap initializes the database.
func (db *Database) bootstrap(ctx context.Context) error {
	_, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{SQL: createSnapshotTableSQL},
		{SQL: createTradeTableSQL},
	}, &rqlitehttp.ExecuteOptions{
		Transaction: true,
		Timings:     true,
	})
	if err != nil {
		return err
	}

	return nil
}

// SaveSnapshot stores the provided state snapshot, replacing any prior snapshot for
// the market.
func (db *Database) SaveSnapshot(ctx context.Context, snapshot *engine.Snapshot) error {
	data, err := snapshot.Encode()
	if err != nil {
		return err
	}

	resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{
			SQL:              upsertSnapshotSQL,
			PositionalParams: []any{snapshot.Market, string(data), snapshot.CapturedOn.Unix()},
		},
	}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
	if err != nil {
		return err
	}

	has, idx, errStr := resp.HasError()
	if has {
		return fmt.Errorf("saving snapshot for %s: %d -> %s", snapshot.Market, idx, errStr)
	}

	return nil
}

// LoadSnapshot fetches the stored state snapshot for the provided market. A missing
// snapshot returns nil without error.
func (db *Database) LoadSnapshot(ctx context.Context, market string) (*engine.Snapshot, error) {
	resp, err := db.client.QuerySingle(ctx, findSnapshotSQL, market)
	if err != nil {
		return nil, err
	}

	results := resp.GetQueryResultsAssoc()
	if len(results) == 0 || len(results[0].Rows) == 0 {
		return nil, nil
	}

	data, ok := results[0].Rows[0]["data"].(string)
	if !ok {
		db.cfg.Logger.Error().Msgf("unexpected snapshot row for %s: %s",
			market, spew.Sdump(results[0].Rows[0]))
		return nil, fmt.Errorf("unexpected snapshot row shape for %s", market)
	}

	snapshot, err := engine.DecodeSnapshot([]byte(data))
	if err != nil {
		return nil, err
	}

	return snapshot, nil
}

// PersistClosedTrade stores the provided closed trade.
func (db *Database) PersistClosedTrade(ctx context.Context, id string, trade *shared.TradePayload, enteredOn time.Time, exitedOn time.Time) error {
	resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{
			SQL: persistClosedTradeSQL,
			PositionalParams: []any{id, trade.Market, trade.Direction, trade.EntryPrice,
				trade.ExitPrice, trade.StopPrice, trade.Reason.String(),
				enteredOn.Unix(), exitedOn.Unix()},
		},
	}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
	if err != nil {
		return err
	}

	has, idx, errStr := resp.HasError()
	if has {
		return fmt.Errorf("persisting closed trade %s: %d -> %s", id, idx, errStr)
	}

	return nil
}
