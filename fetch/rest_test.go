package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/calebres/thesis/shared"
	"github.com/peterldowns/testy/assert"
)

func TestRESTClient(t *testing.T) {
	// Ensure the rest client can be created.
	cfg := &RESTConfig{
		APIKey:  "key",
		BaseURL: "http://base",
	}

	rc := NewRESTClient(cfg)

	// Ensure urls can be formed accurately.
	params := url.Values{}
	params.Add("a", "bbb")
	params.Add("b", "ccc")

	path := "/path"
	formedUrl := rc.formURL(path, params.Encode())
	assert.Equal(t, formedUrl, "http://base/path?a=bbb&b=ccc")

	// Ensure fetching historical candles fails if the client is not configured properly.
	now, _, err := shared.NewYorkTime()
	assert.NoError(t, err)

	threeMonthsAgo := now.AddDate(0, -3, 0)
	_, err = rc.FetchIntradayHistorical(context.Background(), "^GSPC", shared.FiveMinute, threeMonthsAgo, time.Time{})
	assert.Error(t, err)

	// Ensure an unknown timeframe is rejected.
	_, err = rc.FetchIntradayHistorical(context.Background(), "^GSPC", shared.Timeframe(99), threeMonthsAgo, time.Time{})
	assert.Error(t, err)
}

func TestFetchIntradayHistorical(t *testing.T) {
	data := `[{"open":10,"close":12,"high":15,"low":8,"volume":5,"date":"2025-02-04 15:05:00"}]`

	var gotPath string
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		w.Write([]byte(data))
	}))
	defer srv.Close()

	rc := NewRESTClient(&RESTConfig{APIKey: "key", BaseURL: srv.URL})

	start := time.Date(2025, 2, 4, 9, 30, 0, 0, time.UTC)
	results, err := rc.FetchIntradayHistorical(context.Background(), "^GSPC", shared.OneMinute, start, time.Time{})
	assert.NoError(t, err)

	// Ensure the request targets the one minute path with the expected parameters.
	assert.Equal(t, "/historical-chart/1min", gotPath)
	assert.Equal(t, "^GSPC", gotQuery.Get("symbol"))
	assert.Equal(t, "key", gotQuery.Get("apikey"))
	assert.Equal(t, "2025-02-04 09:30:00", gotQuery.Get("from"))
	assert.Equal(t, "", gotQuery.Get("to"))

	// Ensure the payload parses into results.
	assert.Equal(t, 1, len(results))
	assert.Equal(t, float64(10), results[0].Get("open").Float())
}
