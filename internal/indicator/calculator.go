// Package indicator derives technical indicator series from a daily price
// series. Every output series is aligned one-to-one with the input; entries
// whose window has not filled are undefined (null), never zero.
package indicator

import (
	"fmt"
	"time"

	"github.com/guregu/null/v6"

	"valuescreen/internal/criteria"
	"valuescreen/pkg/model"
)

// Set holds the indicator series of one price series
type Set struct {
	Dates  []time.Time
	Close  []float64
	Volume []int64

	MAShort       []null.Float
	MAMid         []null.Float
	MALong        []null.Float
	PriceVsMALong []null.Float
	GoldenCross   []null.Bool

	RSI    []null.Float
	StochK []null.Float
	StochD []null.Float

	BBUpper    []null.Float
	BBMiddle   []null.Float
	BBLower    []null.Float
	BBPosition []null.Float

	OBV         []float64
	OBVMA       []null.Float
	VolumeRatio []null.Float
}

// Row is the indicator values of a single date
type Row struct {
	Date   time.Time `json:"date"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`

	MAShort       null.Float `json:"ma_short"`
	MAMid         null.Float `json:"ma_mid"`
	MALong        null.Float `json:"ma_long"`
	PriceVsMALong null.Float `json:"price_vs_ma_long"`
	GoldenCross   null.Bool  `json:"golden_cross"`

	RSI    null.Float `json:"rsi"`
	StochK null.Float `json:"stoch_k"`
	StochD null.Float `json:"stoch_d"`

	BBUpper    null.Float `json:"bb_upper"`
	BBMiddle   null.Float `json:"bb_middle"`
	BBLower    null.Float `json:"bb_lower"`
	BBPosition null.Float `json:"bb_position"`

	OBV         float64    `json:"obv"`
	OBVMA       null.Float `json:"obv_ma"`
	VolumeRatio null.Float `json:"volume_ratio"`
}

// Len returns the number of dates in the set
func (s *Set) Len() int {
	return len(s.Close)
}

// Row returns the values at index i
func (s *Set) Row(i int) Row {
	return Row{
		Date:          s.Dates[i],
		Close:         s.Close[i],
		Volume:        s.Volume[i],
		MAShort:       s.MAShort[i],
		MAMid:         s.MAMid[i],
		MALong:        s.MALong[i],
		PriceVsMALong: s.PriceVsMALong[i],
		GoldenCross:   s.GoldenCross[i],
		RSI:           s.RSI[i],
		StochK:        s.StochK[i],
		StochD:        s.StochD[i],
		BBUpper:       s.BBUpper[i],
		BBMiddle:      s.BBMiddle[i],
		BBLower:       s.BBLower[i],
		BBPosition:    s.BBPosition[i],
		OBV:           s.OBV[i],
		OBVMA:         s.OBVMA[i],
		VolumeRatio:   s.VolumeRatio[i],
	}
}

// Latest returns the most recent row; ok is false for an empty set
func (s *Set) Latest() (Row, bool) {
	if s.Len() == 0 {
		return Row{}, false
	}
	return s.Row(s.Len() - 1), true
}

// Calculator computes indicator sets with fixed windows
type Calculator struct {
	cfg criteria.Indicators
}

// NewCalculator creates a calculator after validating c
func NewCalculator(c criteria.Criteria) (*Calculator, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("indicator calculator: %w", err)
	}
	return &Calculator{cfg: c.Indicators}, nil
}

// Calculate computes all indicators for candles. It never fails: a series
// shorter than a window leaves that indicator undefined throughout.
func (c *Calculator) Calculate(candles []model.Candle) *Set {
	cl := closes(candles)

	set := &Set{
		Dates:  make([]time.Time, len(candles)),
		Close:  cl,
		Volume: make([]int64, len(candles)),
	}
	for i, candle := range candles {
		set.Dates[i] = candle.Time
		set.Volume[i] = candle.Volume
	}

	set.MAShort = SMA(cl, c.cfg.MAShort)
	set.MAMid = SMA(cl, c.cfg.MAMid)
	set.MALong = SMA(cl, c.cfg.MALong)
	set.PriceVsMALong = PriceVsMA(cl, set.MALong)
	set.GoldenCross = GoldenCross(set.MAShort, set.MAMid, set.MALong)

	set.RSI = RSI(cl, c.cfg.RSIPeriod)
	set.StochK, set.StochD = Stochastic(candles, c.cfg.StochWindow, c.cfg.StochSmooth)

	bands := Bollinger(cl, c.cfg.BollingerWindow, c.cfg.BollingerK)
	set.BBUpper = bands.Upper
	set.BBMiddle = bands.Middle
	set.BBLower = bands.Lower
	set.BBPosition = bands.Position

	set.OBV = OBV(candles)
	set.OBVMA = SMA(set.OBV, c.cfg.OBVWindow)
	set.VolumeRatio = VolumeRatio(candles, c.cfg.VolumeWindow)

	return set
}
