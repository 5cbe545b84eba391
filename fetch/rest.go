package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/calebres/thesis/shared"
	"github.com/tidwall/gjson"
)

const (
	// BaseURL is the default market data provider base url.
	BaseURL = "https://financialmodelingprep.com/stable"
	// StreamURL is the default market data provider websocket url.
	StreamURL = "wss://websockets.financialmodelingprep.com"
)

// RESTConfig represents the configuration for the market data REST client.
type RESTConfig struct {
	// BaseURL is the provider base url.
	BaseURL string
	// APIKey is the provider API key.
	APIKey string
}

// RESTClient represents the market data provider REST client, used to catch up on
// historical bars.
type RESTClient struct {
	cfg   *RESTConfig
	httpc http.Client
	buf   *bytes.Buffer
}

// NewRESTClient instantiates a new market data REST client.
func NewRESTClient(cfg *RESTConfig) *RESTClient {
	return &RESTClient{
		cfg:   cfg,
		httpc: http.Client{Timeout: time.Second * 5},
		buf:   bytes.NewBuffer(make([]byte, 0, 512)),
	}
}

// formURL creates full urls including parameters for the api.
func (c *RESTClient) formURL(path string, params string) string {
	c.buf.WriteString(c.cfg.BaseURL)
	c.buf.WriteString(path)
	c.buf.WriteString("?")
	c.buf.WriteString(params)
	url := c.buf.String()
	c.buf.Reset()

	return url
}

// FetchIntradayHistorical fetches intraday historical market data.
func (c *RESTClient) FetchIntradayHistorical(ctx context.Context, market string, timeframe shared.Timeframe, start time.Time, end time.Time) ([]gjson.Result, error) {
	const oneMinuteHistoricalPath = "/historical-chart/1min"
	const fiveMinuteHistoricalPath = "/historical-chart/5min"

	params := url.Values{}
	params.Add("symbol", market)
	params.Add("apikey", c.cfg.APIKey)
	params.Add("from", start.Format(shared.DateLayout))
	if !end.IsZero() {
		params.Add("to", end.Format(shared.DateLayout))
	}

	var formedURL string

	switch timeframe {
	case shared.OneMinute:
		formedURL = c.formURL(oneMinuteHistoricalPath, params.Encode())
	case shared.FiveMinute:
		formedURL = c.formURL(fiveMinuteHistoricalPath, params.Encode())
	default:
		return nil, fmt.Errorf("unknown timeframe provided: %s", timeframe.String())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, formedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating historical data request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching intraday historical data (%s) for %s: %w",
			timeframe.String(), market, err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	data := gjson.ParseBytes(body).Array()

	return data, nil
}
