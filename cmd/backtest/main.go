// cmd/backtest replays historical candles from a CSV file through the
// divergence engine, printing every signal it would have fired. Useful for
// validating parameter changes against known history without live data.
//
// CSV columns: time,open,high,low,close,volume (header optional).
//
// Usage:
//
//	go run ./cmd/backtest --csv=data/BTCUSD_5m.csv --symbol=BTCUSD --tf=5m
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/ronadasakalesha/RSI-Divergence-Bot/internal/divergence"
	"github.com/ronadasakalesha/RSI-Divergence-Bot/internal/logger"
	"github.com/ronadasakalesha/RSI-Divergence-Bot/internal/model"
)

func main() {
	csvPath := flag.String("csv", "", "Path to candle CSV (time,open,high,low,close,volume)")
	symbol := flag.String("symbol", "BTCUSD", "Instrument symbol for signal labels")
	tf := flag.String("tf", "5m", "Timeframe label for signals")
	rsiLength := flag.Int("rsi", 14, "RSI length")
	lookback := flag.Int("lookback", 7, "Divergence lookback bars")
	buyMin := flag.Float64("buy-min", 40, "Minimum RSI for a BUY confirmation")
	sellMax := flag.Float64("sell-max", 60, "Maximum RSI for a SELL confirmation")
	flag.Parse()

	log := logger.Init("backtest", logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	if *csvPath == "" {
		log.Error("--csv is required")
		os.Exit(2)
	}
	bars, err := loadCSV(*csvPath)
	if err != nil {
		log.Error("load candles", "error", err)
		os.Exit(1)
	}
	if err := model.ValidateBars(bars); err != nil {
		log.Error("bad candle data", "error", err)
		os.Exit(1)
	}

	params := divergence.Params{
		RSILength:  *rsiLength,
		Lookback:   *lookback,
		BuyRSIMin:  *buyMin,
		SellRSIMax: *sellMax,
		MarginBars: 5,
	}
	eng := divergence.NewEngine(*symbol, *tf, params)

	log.Info("replaying", "bars", len(bars), "min_window", params.MinBars())

	counts := map[divergence.Kind]int{}
	for end := params.MinBars(); end <= len(bars); end++ {
		for _, ev := range eng.Evaluate(bars[:end]) {
			counts[ev.Kind]++
			fmt.Printf("%s  %-8s close=%.4f rsi=%.2f\n",
				barTime(ev.BarTime), ev.Kind, ev.Close, ev.RSI)
		}
	}

	fmt.Printf("\n%d bars replayed: DIVBEAR=%d DIVBULL=%d BUY=%d SELL=%d\n",
		len(bars),
		counts[divergence.KindDivBear], counts[divergence.KindDivBull],
		counts[divergence.KindBuy], counts[divergence.KindSell])
}

func barTime(ts int64) string {
	return model.Bar{Time: ts}.TS().UTC().Format("2006-01-02 15:04")
}

func loadCSV(path string) ([]model.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var bars []model.Bar
	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(rec) < 5 {
			return nil, fmt.Errorf("line %d: need at least 5 columns, got %d", line, len(rec))
		}
		ts, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			if line == 1 {
				continue // header row
			}
			return nil, fmt.Errorf("line %d: bad timestamp %q", line, rec[0])
		}
		var vals [5]float64
		for i := 1; i <= 4; i++ {
			if vals[i-1], err = strconv.ParseFloat(rec[i], 64); err != nil {
				return nil, fmt.Errorf("line %d: bad field %q", line, rec[i])
			}
		}
		if len(rec) > 5 {
			if vals[4], err = strconv.ParseFloat(rec[5], 64); err != nil {
				return nil, fmt.Errorf("line %d: bad volume %q", line, rec[5])
			}
		}
		bars = append(bars, model.Bar{
			Time: ts, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: vals[4],
		})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no candles in %s", path)
	}
	return bars, nil
}
