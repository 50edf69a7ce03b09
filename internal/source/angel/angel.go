// Package angel adapts the Angel One SmartAPI historical endpoint to the
// source interface.
package angel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ronadasakalesha/RSI-Divergence-Bot/internal/markethours"
	"github.com/ronadasakalesha/RSI-Divergence-Bot/internal/model"
	"github.com/ronadasakalesha/RSI-Divergence-Bot/pkg/smartconnect"
)

// intervalFor maps generic timeframe strings to SmartAPI interval names.
var intervalFor = map[string]string{
	"1m":  "ONE_MINUTE",
	"3m":  "THREE_MINUTE",
	"5m":  "FIVE_MINUTE",
	"10m": "TEN_MINUTE",
	"15m": "FIFTEEN_MINUTE",
	"30m": "THIRTY_MINUTE",
	"1h":  "ONE_HOUR",
	"1d":  "ONE_DAY",
}

// timeframeSeconds gives the bar duration for the supported timeframes.
var timeframeSeconds = map[string]int64{
	"1m": 60, "3m": 180, "5m": 300, "10m": 600,
	"15m": 900, "30m": 1800, "1h": 3600, "1d": 86400,
}

// CandleClient is the slice of the SmartAPI client this adapter needs.
type CandleClient interface {
	CandleData(ctx context.Context, req smartconnect.CandleRequest) ([]smartconnect.Candle, error)
}

// sessionRenewer is implemented by clients that can re-establish an expired
// session. *smartconnect.Client satisfies it.
type sessionRenewer interface {
	GenerateSession(ctx context.Context) error
}

// Source fetches NSE candles for one symbol token.
type Source struct {
	client    CandleClient
	symbol    string
	token     string
	timeframe string
	now       func() time.Time
}

// New builds an Angel One candle source. token is the SmartAPI symbol token
// (e.g. "99926000" for Nifty 50).
func New(client CandleClient, symbol, token, timeframe string) (*Source, error) {
	if _, ok := intervalFor[timeframe]; !ok {
		return nil, fmt.Errorf("angel: unsupported timeframe %q", timeframe)
	}
	return &Source{
		client:    client,
		symbol:    symbol,
		token:     token,
		timeframe: timeframe,
		now:       time.Now,
	}, nil
}

func (s *Source) Name() string { return "angel" }

// Fetch returns the most recent closed bars, oldest first. The query window
// reaches back far enough in IST trading time to cover count bars plus
// weekends; the still-forming candle is dropped.
func (s *Source) Fetch(ctx context.Context, count int) ([]model.Bar, error) {
	secs := timeframeSeconds[s.timeframe]
	now := s.now().In(markethours.IST)

	// Extra calendar slack: the market is closed most of the day, so the
	// window spans several days to guarantee enough trading bars.
	span := time.Duration(secs*int64(count+5)) * time.Second * 6
	if span < 48*time.Hour {
		span = 48 * time.Hour
	}
	from := now.Add(-span)

	const layout = "2006-01-02 15:04"
	req := smartconnect.CandleRequest{
		Exchange:    "NSE",
		SymbolToken: s.token,
		Interval:    intervalFor[s.timeframe],
		FromDate:    from.Format(layout),
		ToDate:      now.Format(layout),
	}
	candles, err := s.client.CandleData(ctx, req)
	if errors.Is(err, smartconnect.ErrSessionExpired) {
		// Re-establish the session and retry once, like the upstream bot's
		// login retry. A second expiry surfaces to the caller.
		if renewer, ok := s.client.(sessionRenewer); ok {
			if loginErr := renewer.GenerateSession(ctx); loginErr != nil {
				return nil, fmt.Errorf("angel: %s/%s: re-login: %w", s.symbol, s.timeframe, loginErr)
			}
			candles, err = s.client.CandleData(ctx, req)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("angel: %s/%s: %w", s.symbol, s.timeframe, err)
	}

	bars := make([]model.Bar, 0, len(candles))
	for _, c := range candles {
		bars = append(bars, model.Bar{
			Time: c.Time.Unix(), Open: c.Open, High: c.High, Low: c.Low,
			Close: c.Close, Volume: c.Volume,
		})
	}
	// Drop the newest row unless its period has fully elapsed; a bar ending
	// exactly now is still treated as forming.
	if n := len(bars); n > 0 && bars[n-1].Time+secs >= now.Unix() {
		bars = bars[:n-1]
	}
	if len(bars) > count {
		bars = bars[len(bars)-count:]
	}
	return bars, nil
}
