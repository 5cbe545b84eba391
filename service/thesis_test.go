package service

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
)

func TestThesisConfigValidate(t *testing.T) {
	baseCfg := &ThesisConfig{
		Market:     "^GSPC",
		DataAPIKey: "key",
		GatewayURL: "http://gateway",
		Cancel:     func() {},
	}

	tests := []struct {
		name        string
		modify      func(cfg *ThesisConfig)
		wantErr     bool
		errContains []string
	}{
		{
			name:    "valid config returns nil",
			modify:  func(cfg *ThesisConfig) {},
			wantErr: false,
		},
		{
			name:        "missing Market",
			modify:      func(cfg *ThesisConfig) { cfg.Market = "" },
			wantErr:     true,
			errContains: []string{"no market provided"},
		},
		{
			name:        "missing GatewayURL",
			modify:      func(cfg *ThesisConfig) { cfg.GatewayURL = "" },
			wantErr:     true,
			errContains: []string{"gateway url cannot be an empty string"},
		},
		{
			name:        "missing Cancel",
			modify:      func(cfg *ThesisConfig) { cfg.Cancel = nil },
			wantErr:     true,
			errContains: []string{"context cancellation function cannot be nil"},
		},
		{
			name:        "missing DataAPIKey live",
			modify:      func(cfg *ThesisConfig) { cfg.DataAPIKey = "" },
			wantErr:     true,
			errContains: []string{"data api key cannot be an empty string"},
		},
		{
			name: "missing backtest data filepath",
			modify: func(cfg *ThesisConfig) {
				cfg.Backtest = true
				cfg.BacktestDataFilepath = ""
			},
			wantErr:     true,
			errContains: []string{"backtest data filepath cannot be an empty string"},
		},
		{
			name: "backtest does not require data api key",
			modify: func(cfg *ThesisConfig) {
				cfg.Backtest = true
				cfg.BacktestDataFilepath = "data.json"
				cfg.DataAPIKey = ""
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *baseCfg
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				for _, substr := range tt.errContains {
					assert.True(t, strings.Contains(err.Error(), substr))
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// writeBacktestData generates a day of one minute bars with a gentle uptrend.
func writeBacktestData(t *testing.T) string {
	start := time.Date(2025, 2, 4, 9, 30, 0, 0, time.UTC)

	var buf bytes.Buffer
	buf.WriteString("[")
	const bars = 480
	for idx := 0; idx < bars; idx++ {
		if idx > 0 {
			buf.WriteString(",")
		}

		price := 100 + float64(idx)*0.02
		date := start.Add(time.Minute * time.Duration(idx))
		fmt.Fprintf(&buf,
			`{"open":%.2f,"high":%.2f,"low":%.2f,"close":%.2f,"volume":100,"date":"%s"}`,
			price-0.1, price+0.5, price-0.6, price, date.Format("2006-01-02 15:04:05"))
	}
	buf.WriteString("]")

	path := filepath.Join(t.TempDir(), "backtest.json")
	err := os.WriteFile(path, buf.Bytes(), 0o644)
	assert.NoError(t, err)

	return path
}

func TestThesisBacktest(t *testing.T) {
	gatewaySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/select":
			w.Write([]byte(`{"selected":"PASS","confidence":40,"reason":"no clear edge"}`))
		default:
			w.Write([]byte(`{"direction":"PASS","confidence":30,"reason":"mixed tape"}`))
		}
	}))
	defer gatewaySrv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := &ThesisConfig{
		Market:               "^GSPC",
		GatewayURL:           gatewaySrv.URL,
		Backtest:             true,
		BacktestDataFilepath: writeBacktestData(t),
		Cancel:               cancel,
	}
	assert.NoError(t, cfg.Validate())

	thesis, err := NewThesis(ctx, cfg)
	assert.NoError(t, err)

	// Ensure the backtest replays to completion and terminates the service.
	done := make(chan struct{})
	go func() {
		thesis.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second * 30):
		t.Fatal("backtest did not terminate")
	}
}
