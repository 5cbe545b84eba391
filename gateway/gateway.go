package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/calebres/thesis/shared"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

const (
	// selectPath is the decision endpoint path.
	selectPath = "/v1/select"
	// advisePath is the advisory endpoint path.
	advisePath = "/v1/advise"
	// maxConfidence is the upper bound of a valid confidence value.
	maxConfidence = float64(100)
)

// Choice represents the model's selection for a decision request.
type Choice int

const (
	Pass Choice = iota
	Long
	Short
)

// String stringifies the provided choice.
func (c Choice) String() string {
	switch c {
	case Pass:
		return "PASS"
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "unknown"
	}
}

// parseChoice parses a choice from the provided string.
func parseChoice(str string) (Choice, error) {
	switch str {
	case "PASS":
		return Pass, nil
	case "LONG":
		return Long, nil
	case "SHORT":
		return Short, nil
	default:
		return Pass, fmt.Errorf("unknown choice: %q", str)
	}
}

// Direction converts the choice to a market direction.
func (c Choice) Direction() shared.Direction {
	switch c {
	case Long:
		return shared.Long
	case Short:
		return shared.Short
	default:
		return shared.Unclear
	}
}

// SelectionRequest represents a decision request for the model.
type SelectionRequest struct {
	Market     string                 `json:"market"`
	ClosedBars []*shared.Candlestick  `json:"closedBars"`
	Forming    *shared.FormingCandle  `json:"formingBar,omitempty"`
	Candidates []*shared.Candidate    `json:"candidates"`
	Context    map[string]interface{} `json:"context,omitempty"`
}

// Decision represents the model's response to a decision request. Degraded marks a
// pass synthesized from a failure rather than chosen by the model.
type Decision struct {
	Choice     Choice
	Confidence float64
	Reason     string
	Degraded   bool
}

// AdvisoryRequest represents an advisory direction request for the model.
type AdvisoryRequest struct {
	Market     string                `json:"market"`
	ClosedBars []*shared.Candlestick `json:"closedBars"`
	Forming    *shared.FormingCandle `json:"formingBar,omitempty"`
}

// Advice represents the model's response to an advisory request.
type Advice struct {
	Direction  shared.Direction
	Confidence float64
	Reason     string
	Override   bool
}

// ClientConfig represents the configuration for the decision gateway client.
type ClientConfig struct {
	// BaseURL is the gateway base url.
	BaseURL string
	// APIKey is the gateway api key.
	APIKey string
	// Model is the model identifier sent with requests.
	Model string
	// Timeout is the per-request timeout.
	Timeout time.Duration
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Client represents the decision gateway client. Every degradation path resolves to a
// pass so the caller never trades on a broken response.
type Client struct {
	cfg   *ClientConfig
	httpc http.Client
}

// NewClient instantiates a new decision gateway client.
func NewClient(cfg *ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second * 10
	}

	return &Client{
		cfg:   cfg,
		httpc: http.Client{Timeout: cfg.Timeout},
	}
}

// post sends the provided payload to the gateway and returns the raw response body.
func (c *Client) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshalling gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating gateway request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("X-Model", c.cfg.Model)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending gateway request: %w", err)
	}

	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading gateway response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	return respBody, nil
}

// parseDecision parses and validates a decision from the provided response body.
func parseDecision(body []byte) (*Decision, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("malformed gateway response")
	}

	result := gjson.ParseBytes(body)

	selected := result.Get("selected")
	if !selected.Exists() {
		return nil, fmt.Errorf("gateway response missing selected field")
	}

	choice, err := parseChoice(selected.String())
	if err != nil {
		return nil, err
	}

	confidence := result.Get("confidence")
	if !confidence.Exists() {
		return nil, fmt.Errorf("gateway response missing confidence field")
	}
	if confidence.Float() < 0 || confidence.Float() > maxConfidence {
		return nil, fmt.Errorf("gateway confidence out of range: %v", confidence.Float())
	}

	return &Decision{
		Choice:     choice,
		Confidence: confidence.Float(),
		Reason:     result.Get("reason").String(),
	}, nil
}

// Select asks the model to pick among the provided candidates. Network errors,
// timeouts and malformed responses all degrade to a pass with the failure as the
// reason.
func (c *Client) Select(ctx context.Context, req *SelectionRequest) *Decision {
	body, err := c.post(ctx, selectPath, req)
	if err != nil {
		c.cfg.Logger.Error().Msgf("gateway selection degraded to pass: %v", err)
		return &Decision{Choice: Pass, Reason: err.Error(), Degraded: true}
	}

	decision, err := parseDecision(body)
	if err != nil {
		c.cfg.Logger.Error().Msgf("gateway selection degraded to pass: %v", err)
		return &Decision{Choice: Pass, Reason: err.Error(), Degraded: true}
	}

	return decision
}

// parseAdvice parses and validates an advisory read from the provided response body.
func parseAdvice(body []byte) (*Advice, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("malformed gateway response")
	}

	result := gjson.ParseBytes(body)

	selected := result.Get("direction")
	if !selected.Exists() {
		return nil, fmt.Errorf("gateway response missing direction field")
	}

	choice, err := parseChoice(selected.String())
	if err != nil {
		return nil, err
	}

	confidence := result.Get("confidence")
	if !confidence.Exists() {
		return nil, fmt.Errorf("gateway response missing confidence field")
	}
	if confidence.Float() < 0 || confidence.Float() > maxConfidence {
		return nil, fmt.Errorf("gateway confidence out of range: %v", confidence.Float())
	}

	return &Advice{
		Direction:  choice.Direction(),
		Confidence: confidence.Float(),
		Reason:     result.Get("reason").String(),
		Override:   result.Get("override").Bool(),
	}, nil
}

// Advise asks the model for a secondary directional read. Failures degrade to an
// unclear read with zero confidence.
func (c *Client) Advise(ctx context.Context, req *AdvisoryRequest) *Advice {
	body, err := c.post(ctx, advisePath, req)
	if err != nil {
		c.cfg.Logger.Error().Msgf("gateway advisory degraded: %v", err)
		return &Advice{Direction: shared.Unclear, Reason: err.Error()}
	}

	advice, err := parseAdvice(body)
	if err != nil {
		c.cfg.Logger.Error().Msgf("gateway advisory degraded: %v", err)
		return &Advice{Direction: shared.Unclear, Reason: err.Error()}
	}

	return advice
}
