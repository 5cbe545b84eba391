package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/calebres/thesis/shared"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

const (
	// baseBackoff is the initial reconnect delay.
	baseBackoff = time.Second * 5
	// backoffFactor grows the reconnect delay on consecutive failures.
	backoffFactor = 1.5
	// maxBackoff caps the reconnect delay.
	maxBackoff = time.Minute
	// connLimitBackoffFloor is the minimum delay after a connection limit rejection.
	connLimitBackoffFloor = time.Second * 30
	// barWait bounds how long a read waits for the next streamed bar.
	barWait = time.Minute
)

// StreamConfig represents the streaming market data configuration.
type StreamConfig struct {
	// URL is the provider websocket url.
	URL string
	// APIKey is the provider API key.
	APIKey string
	// Markets represents the collection of ids of the markets to stream.
	Markets []string
	// SendMarketUpdate relays the provided market update for processing.
	SendMarketUpdate func(candle shared.Candlestick)
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Stream represents the streaming market data client. It maintains its connection
// across provider disconnects with capped exponential backoff.
type Stream struct {
	cfg     *StreamConfig
	backoff time.Duration
}

// NewStream instantiates a new streaming market data client.
func NewStream(cfg *StreamConfig) *Stream {
	return &Stream{
		cfg:     cfg,
		backoff: baseBackoff,
	}
}

// isConnLimitError reports whether the provider rejected the connection for
// exceeding its connection limit.
func isConnLimitError(err error) bool {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) && closeErr.Code == websocket.ClosePolicyViolation {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "connection limit")
}

// nextBackoff returns the delay before the next reconnect attempt and advances the
// backoff schedule.
func (s *Stream) nextBackoff(connLimit bool) time.Duration {
	wait := s.backoff

	s.backoff = time.Duration(float64(s.backoff) * backoffFactor)
	if s.backoff > maxBackoff {
		s.backoff = maxBackoff
	}

	if connLimit && wait < connLimitBackoffFloor {
		wait = connLimitBackoffFloor
	}

	return wait
}

// resetBackoff restores the backoff schedule after a healthy connection.
func (s *Stream) resetBackoff() {
	s.backoff = baseBackoff
}

// connect dials the provider and subscribes to the configured markets.
func (s *Stream) connect(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing market data stream: %w", err)
	}

	sub := map[string]any{
		"event": "subscribe",
		"data": map[string]any{
			"apiKey": s.cfg.APIKey,
			"ticker": s.cfg.Markets,
		},
	}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribing to markets: %w", err)
	}

	return conn, nil
}

// readBar reads the next streamed bar, waiting at most barWait. A bounded wait that
// elapses with no bar returns none without error.
func (s *Stream) readBar(conn *websocket.Conn, loc *time.Location) (*shared.Candlestick, error) {
	if err := conn.SetReadDeadline(time.Now().Add(barWait)); err != nil {
		return nil, fmt.Errorf("setting read deadline: %w", err)
	}

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return nil, nil
			}
			return nil, fmt.Errorf("reading streamed bar: %w", err)
		}

		result := gjson.ParseBytes(msg)
		market := result.Get("symbol").String()
		if market == "" {
			// Provider heartbeats and acks carry no symbol.
			continue
		}

		candles, err := shared.ParseCandlesticks([]gjson.Result{result}, market, shared.OneMinute, loc)
		if err != nil {
			return nil, fmt.Errorf("parsing streamed bar: %w", err)
		}

		return &candles[0], nil
	}
}

// Run manages the lifecycle processes of the stream.
func (s *Stream) Run(ctx context.Context) {
	_, loc, err := shared.NewYorkTime()
	if err != nil {
		s.cfg.Logger.Error().Msgf("fetching new york location: %v", err)
		return
	}

	for ctx.Err() == nil {
		conn, err := s.connect(ctx)
		if err != nil {
			wait := s.nextBackoff(isConnLimitError(err))
			s.cfg.Logger.Error().Msgf("stream connect failed, retrying in %s: %v", wait, err)

			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return
			}
			continue
		}

		s.resetBackoff()

		for ctx.Err() == nil {
			candle, err := s.readBar(conn, loc)
			if err != nil {
				s.cfg.Logger.Error().Msgf("stream read failed, reconnecting: %v", err)
				break
			}
			if candle == nil {
				// A read deadline leaves the connection unusable, reconnect.
				s.cfg.Logger.Info().Msgf("no bar within %s, reconnecting", barWait)
				break
			}

			s.cfg.SendMarketUpdate(*candle)
		}

		conn.Close()
	}
}
