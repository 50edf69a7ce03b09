// Package delta fetches OHLCV candles from the Delta Exchange public REST
// API and streams them over its websocket feed.
package delta

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/ronadasakalesha/RSI-Divergence-Bot/internal/model"
)

const defaultBaseURL = "https://api.india.delta.exchange"

// resolutionSeconds maps Delta resolution strings to their bar duration.
var resolutionSeconds = map[string]int64{
	"1m":  60,
	"3m":  180,
	"5m":  300,
	"15m": 900,
	"30m": 1800,
	"1h":  3600,
	"2h":  7200,
	"4h":  14400,
	"1d":  86400,
}

// ResolutionSeconds returns the bar duration for a Delta resolution string.
func ResolutionSeconds(resolution string) (int64, bool) {
	s, ok := resolutionSeconds[resolution]
	return s, ok
}

// RESTSource fetches closed candles via /v2/history/candles.
type RESTSource struct {
	baseURL    string
	symbol     string
	resolution string
	httpClient *http.Client
	now        func() time.Time
}

// NewRESTSource builds a Delta REST candle source. An empty baseURL selects
// the production API; resolution must be one of the supported Delta
// resolution strings ("5m", "1h", ...).
func NewRESTSource(baseURL, symbol, resolution string) (*RESTSource, error) {
	if _, ok := resolutionSeconds[resolution]; !ok {
		return nil, fmt.Errorf("delta: unsupported resolution %q", resolution)
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &RESTSource{
		baseURL:    baseURL,
		symbol:     symbol,
		resolution: resolution,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}, nil
}

func (s *RESTSource) Name() string { return "delta" }

type candleRow struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Fetch returns the most recent closed bars, oldest first. The still-forming
// candle reported by the API is dropped before returning.
func (s *RESTSource) Fetch(ctx context.Context, count int) ([]model.Bar, error) {
	secs := resolutionSeconds[s.resolution]
	end := s.now().Unix()
	// A few extra bars of slack so count closed bars survive the drop.
	start := end - secs*int64(count+5)

	q := url.Values{}
	q.Set("resolution", s.resolution)
	q.Set("symbol", s.symbol)
	q.Set("start", strconv.FormatInt(start, 10))
	q.Set("end", strconv.FormatInt(end, 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.baseURL+"/v2/history/candles?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("delta: request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("delta: candles %s/%s: %w", s.symbol, s.resolution, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("delta: candles %s/%s: status %d: %s", s.symbol, s.resolution, resp.StatusCode, body)
	}

	var out struct {
		Success bool        `json:"success"`
		Result  []candleRow `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("delta: decode candles: %w", err)
	}
	if !out.Success {
		return nil, fmt.Errorf("delta: candles %s/%s: success=false", s.symbol, s.resolution)
	}

	rows := out.Result
	sort.Slice(rows, func(i, j int) bool { return rows[i].Time < rows[j].Time })

	bars := make([]model.Bar, 0, len(rows))
	for _, r := range rows {
		bars = append(bars, model.Bar{
			Time: r.Time, Open: r.Open, High: r.High, Low: r.Low, Close: r.Close, Volume: r.Volume,
		})
	}
	// The newest row is the candle still forming. A bar whose period ends
	// exactly at the query boundary is not trusted as closed either.
	if len(bars) > 0 {
		last := bars[len(bars)-1]
		if last.Time+secs >= end {
			bars = bars[:len(bars)-1]
		}
	}
	if len(bars) > count {
		bars = bars[len(bars)-count:]
	}
	return bars, nil
}
