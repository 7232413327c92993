package provider

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"valuescreen/pkg/model"
)

const (
	pricesDir     = "prices"
	snapshotsFile = "snapshots.json"
	dateLayout    = "2006-01-02"
)

// snapshotRecord is one entry of snapshots.json. A missing section decodes
// to nil and is reported as ErrUnavailable.
type snapshotRecord struct {
	Name        string                     `json:"name"`
	Exchange    string                     `json:"exchange"`
	Fundamental *model.FundamentalSnapshot `json:"fundamental"`
	Market      *model.MarketSnapshot      `json:"market"`
	Sentiment   *model.SentimentSnapshot   `json:"sentiment"`
}

// FileProvider serves prices and snapshots from a local data directory:
//
//	<dir>/prices/<SYMBOL>.csv   date,open,high,low,close,volume
//	<dir>/snapshots.json        {"SYMBOL": {"fundamental": {...}, "market": {...}, "sentiment": {...}}}
//
// Symbols are matched case-insensitively and reported upper case. The
// directory listing and snapshots.json are read once per provider.
type FileProvider struct {
	dir string

	once      sync.Once
	snapshots map[string]snapshotRecord
	loadErr   error

	pricesOnce sync.Once
	prices     map[string]string // upper-case symbol -> file name
	pricesErr  error
}

// NewFileProvider creates a provider rooted at dir
func NewFileProvider(dir string) *FileProvider {
	return &FileProvider{dir: dir}
}

func (p *FileProvider) Name() string { return "file" }

func (p *FileProvider) fail(err error) error {
	return &ProviderError{Provider: p.Name(), Err: err}
}

// priceFiles indexes prices/*.csv by upper-case symbol
func (p *FileProvider) priceFiles() (map[string]string, error) {
	p.pricesOnce.Do(func() {
		p.prices = map[string]string{}
		entries, err := os.ReadDir(filepath.Join(p.dir, pricesDir))
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				p.pricesErr = err
			}
			return
		}
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || !strings.EqualFold(filepath.Ext(name), ".csv") {
				continue
			}
			sym := strings.ToUpper(strings.TrimSuffix(name, filepath.Ext(name)))
			if _, dup := p.prices[sym]; !dup {
				p.prices[sym] = name
			}
		}
	})
	return p.prices, p.pricesErr
}

// GetDailyCandles reads prices/<symbol>.csv and returns the last days rows.
// A symbol without a price file has an empty series.
func (p *FileProvider) GetDailyCandles(ctx context.Context, symbol string, days int) ([]model.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	files, err := p.priceFiles()
	if err != nil {
		return nil, p.fail(err)
	}
	name, ok := files[strings.ToUpper(symbol)]
	if !ok {
		return nil, nil
	}

	f, err := os.Open(filepath.Join(p.dir, pricesDir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, p.fail(err)
	}
	defer f.Close()

	candles, err := ReadCandles(f)
	if err != nil {
		return nil, p.fail(fmt.Errorf("%s: %w", symbol, err))
	}
	return tail(candles, days), nil
}

// ReadCandles parses a price CSV. The header row is optional; rows must be
// oldest first with strictly increasing dates.
func ReadCandles(r io.Reader) ([]model.Candle, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 6
	cr.TrimLeadingSpace = true

	var candles []model.Candle
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if line == 1 && strings.EqualFold(rec[0], "date") {
			continue
		}

		c, err := parseCandle(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		candles = append(candles, c)
	}

	if err := model.ValidateSeries(candles); err != nil {
		return nil, err
	}
	return candles, nil
}

func parseCandle(rec []string) (model.Candle, error) {
	t, err := time.Parse(dateLayout, rec[0])
	if err != nil {
		return model.Candle{}, fmt.Errorf("date: %w", err)
	}

	var ohlc [4]float64
	for i := range ohlc {
		v, err := strconv.ParseFloat(rec[i+1], 64)
		if err != nil {
			return model.Candle{}, fmt.Errorf("column %d: %w", i+2, err)
		}
		ohlc[i] = v
	}

	vol, err := strconv.ParseFloat(rec[5], 64)
	if err != nil {
		return model.Candle{}, fmt.Errorf("volume: %w", err)
	}

	return model.Candle{
		Time:   t,
		Open:   ohlc[0],
		High:   ohlc[1],
		Low:    ohlc[2],
		Close:  ohlc[3],
		Volume: int64(vol),
	}, nil
}

func (p *FileProvider) load() (map[string]snapshotRecord, error) {
	p.once.Do(func() {
		data, err := os.ReadFile(filepath.Join(p.dir, snapshotsFile))
		if errors.Is(err, fs.ErrNotExist) {
			p.snapshots = map[string]snapshotRecord{}
			return
		}
		if err != nil {
			p.loadErr = err
			return
		}
		var m map[string]snapshotRecord
		if err := json.Unmarshal(data, &m); err != nil {
			p.loadErr = fmt.Errorf("parse %s: %w", snapshotsFile, err)
			return
		}
		p.snapshots = make(map[string]snapshotRecord, len(m))
		for sym, rec := range m {
			p.snapshots[strings.ToUpper(sym)] = rec
		}
	})
	return p.snapshots, p.loadErr
}

func (p *FileProvider) record(ctx context.Context, symbol string) (snapshotRecord, error) {
	if err := ctx.Err(); err != nil {
		return snapshotRecord{}, err
	}
	m, err := p.load()
	if err != nil {
		return snapshotRecord{}, p.fail(err)
	}
	return m[strings.ToUpper(symbol)], nil
}

func (p *FileProvider) GetFundamentals(ctx context.Context, symbol string) (*model.FundamentalSnapshot, error) {
	rec, err := p.record(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if rec.Fundamental == nil {
		return nil, p.fail(fmt.Errorf("fundamentals for %s: %w", symbol, ErrUnavailable))
	}
	return rec.Fundamental, nil
}

func (p *FileProvider) GetMarket(ctx context.Context, symbol string) (*model.MarketSnapshot, error) {
	rec, err := p.record(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if rec.Market == nil {
		return nil, p.fail(fmt.Errorf("market data for %s: %w", symbol, ErrUnavailable))
	}
	return rec.Market, nil
}

func (p *FileProvider) GetSentiment(ctx context.Context, symbol string) (*model.SentimentSnapshot, error) {
	rec, err := p.record(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if rec.Sentiment == nil {
		return nil, p.fail(fmt.Errorf("sentiment for %s: %w", symbol, ErrUnavailable))
	}
	return rec.Sentiment, nil
}

// Symbols lists every symbol with a price file or a snapshot entry, sorted
func (p *FileProvider) Symbols(ctx context.Context) ([]model.Stock, error) {
	m, err := p.load()
	if err != nil {
		return nil, p.fail(err)
	}

	stocks := make(map[string]model.Stock, len(m))
	for sym, rec := range m {
		stocks[sym] = model.Stock{Symbol: sym, Name: rec.Name, Exchange: rec.Exchange}
	}

	files, err := p.priceFiles()
	if err != nil {
		return nil, p.fail(err)
	}
	for sym := range files {
		if _, ok := stocks[sym]; !ok {
			stocks[sym] = model.Stock{Symbol: sym}
		}
	}

	list := make([]model.Stock, 0, len(stocks))
	for _, s := range stocks {
		if s.Name == "" {
			s.Name = s.Symbol
		}
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Symbol < list[j].Symbol })
	return list, nil
}
