// Package criteria holds every threshold, window and ladder used by the
// indicator, signal, scoring and screening packages.
//
// A Criteria value is built once (Default or loaded from a config file),
// validated, and then handed by value to each component constructor. The
// constructors clone it, so nothing a caller does afterwards can change the
// thresholds of a running component.
package criteria

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"valuescreen/pkg/model"
)

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid criteria")

// Tier is one rung of a points ladder
type Tier struct {
	Bound  float64 `json:"bound" yaml:"bound" toml:"bound"`
	Points float64 `json:"points" yaml:"points" toml:"points" validate:"gte=0"`
}

// GradeTier maps a minimum total score to a grade and its recommendation
type GradeTier struct {
	MinScore       float64     `json:"min_score" yaml:"min_score" toml:"min_score"`
	Grade          model.Grade `json:"grade" yaml:"grade" toml:"grade" validate:"required"`
	Recommendation string      `json:"recommendation" yaml:"recommendation" toml:"recommendation" validate:"required"`
}

// Indicators holds indicator windows
type Indicators struct {
	MAShort         int     `json:"ma_short" yaml:"ma_short" toml:"ma_short" validate:"gt=0"`
	MAMid           int     `json:"ma_mid" yaml:"ma_mid" toml:"ma_mid" validate:"gt=0"`
	MALong          int     `json:"ma_long" yaml:"ma_long" toml:"ma_long" validate:"gt=0"`
	RSIPeriod       int     `json:"rsi_period" yaml:"rsi_period" toml:"rsi_period" validate:"gt=0"`
	StochWindow     int     `json:"stoch_window" yaml:"stoch_window" toml:"stoch_window" validate:"gt=0"`
	StochSmooth     int     `json:"stoch_smooth" yaml:"stoch_smooth" toml:"stoch_smooth" validate:"gt=0"`
	BollingerWindow int     `json:"bollinger_window" yaml:"bollinger_window" toml:"bollinger_window" validate:"gt=1"`
	BollingerK      float64 `json:"bollinger_k" yaml:"bollinger_k" toml:"bollinger_k" validate:"gt=0"`
	VolumeWindow    int     `json:"volume_window" yaml:"volume_window" toml:"volume_window" validate:"gt=0"`
	OBVWindow       int     `json:"obv_window" yaml:"obv_window" toml:"obv_window" validate:"gt=0"`
}

// Signals holds the thresholds of the signal rules
type Signals struct {
	RSIOversold              float64 `json:"rsi_oversold" yaml:"rsi_oversold" toml:"rsi_oversold" validate:"gte=0,lte=100"`
	RSIOverbought            float64 `json:"rsi_overbought" yaml:"rsi_overbought" toml:"rsi_overbought" validate:"gte=0,lte=100"`
	BollingerLowerTouch      float64 `json:"bollinger_lower_touch" yaml:"bollinger_lower_touch" toml:"bollinger_lower_touch"`
	BuyMinPriceVsMALong      float64 `json:"buy_min_price_vs_ma_long" yaml:"buy_min_price_vs_ma_long" toml:"buy_min_price_vs_ma_long"`
	InterestMinPriceVsMALong float64 `json:"interest_min_price_vs_ma_long" yaml:"interest_min_price_vs_ma_long" toml:"interest_min_price_vs_ma_long"`
	VolumeSurge              float64 `json:"volume_surge" yaml:"volume_surge" toml:"volume_surge" validate:"gt=0"`
	SellBelowMALongRatio     float64 `json:"sell_below_ma_long_ratio" yaml:"sell_below_ma_long_ratio" toml:"sell_below_ma_long_ratio" validate:"gt=0"`
}

// Scoring holds the composite score ladders and the grade table.
// "At least" ladders are ordered by descending bound, "at most" ladders by
// ascending bound; the first matching rung wins.
type Scoring struct {
	FundamentalCap float64 `json:"fundamental_cap" yaml:"fundamental_cap" toml:"fundamental_cap" validate:"gt=0"`
	MarketCap      float64 `json:"market_cap" yaml:"market_cap" toml:"market_cap" validate:"gt=0"`
	SentimentCap   float64 `json:"sentiment_cap" yaml:"sentiment_cap" toml:"sentiment_cap" validate:"gt=0"`

	ROE              []Tier  `json:"roe" yaml:"roe" toml:"roe" validate:"required,min=1,dive"`
	DebtRatioCeiling float64 `json:"debt_ratio_ceiling" yaml:"debt_ratio_ceiling" toml:"debt_ratio_ceiling" validate:"gt=0"`
	DebtBase         float64 `json:"debt_base" yaml:"debt_base" toml:"debt_base" validate:"gte=0"`
	DebtSlope        float64 `json:"debt_slope" yaml:"debt_slope" toml:"debt_slope" validate:"gte=0"`
	CurrentRatio     []Tier  `json:"current_ratio" yaml:"current_ratio" toml:"current_ratio" validate:"required,min=1,dive"`
	OperatingMargin  []Tier  `json:"operating_margin" yaml:"operating_margin" toml:"operating_margin" validate:"required,min=1,dive"`
	RevenueGrowth    []Tier  `json:"revenue_growth" yaml:"revenue_growth" toml:"revenue_growth" validate:"required,min=1,dive"`

	PER            []Tier `json:"per" yaml:"per" toml:"per" validate:"required,min=1,dive"`
	PBR            []Tier `json:"pbr" yaml:"pbr" toml:"pbr" validate:"required,min=1,dive"`
	Week52Position []Tier `json:"week52_position" yaml:"week52_position" toml:"week52_position" validate:"required,min=1,dive"`

	StrongUpside  float64 `json:"strong_upside" yaml:"strong_upside" toml:"strong_upside"`
	OpinionBuy    float64 `json:"opinion_buy" yaml:"opinion_buy" toml:"opinion_buy" validate:"gte=0"`
	OpinionHold   float64 `json:"opinion_hold" yaml:"opinion_hold" toml:"opinion_hold" validate:"gte=0"`
	OpinionSell   float64 `json:"opinion_sell" yaml:"opinion_sell" toml:"opinion_sell" validate:"gte=0"`
	Upside        []Tier  `json:"upside" yaml:"upside" toml:"upside" validate:"required,min=1,dive"`
	NewsSentiment []Tier  `json:"news_sentiment" yaml:"news_sentiment" toml:"news_sentiment" validate:"required,min=1,dive"`

	FundamentalFloor float64     `json:"fundamental_floor" yaml:"fundamental_floor" toml:"fundamental_floor" validate:"gte=0"`
	Grades           []GradeTier `json:"grades" yaml:"grades" toml:"grades" validate:"required,min=1,dive"`
	BelowLadder      GradeTier   `json:"below_ladder" yaml:"below_ladder" toml:"below_ladder"`
	FloorOverride    GradeTier   `json:"floor_override" yaml:"floor_override" toml:"floor_override"`
}

// Screening holds universe-level policy
type Screening struct {
	MinHistory   int `json:"min_history" yaml:"min_history" toml:"min_history" validate:"gt=0"`
	HistoryDays  int `json:"history_days" yaml:"history_days" toml:"history_days" validate:"gt=0"`
	RecentWindow int `json:"recent_window" yaml:"recent_window" toml:"recent_window" validate:"gt=0"`
}

// Criteria is the complete configuration surface of the ranking engine
type Criteria struct {
	Indicators Indicators `json:"indicators" yaml:"indicators" toml:"indicators"`
	Signals    Signals    `json:"signals" yaml:"signals" toml:"signals"`
	Scoring    Scoring    `json:"scoring" yaml:"scoring" toml:"scoring"`
	Screening  Screening  `json:"screening" yaml:"screening" toml:"screening"`
}

// Default returns the stock thresholds of the strategy
func Default() Criteria {
	return Criteria{
		Indicators: Indicators{
			MAShort:         20,
			MAMid:           60,
			MALong:          200,
			RSIPeriod:       14,
			StochWindow:     14,
			StochSmooth:     3,
			BollingerWindow: 20,
			BollingerK:      2,
			VolumeWindow:    20,
			OBVWindow:       20,
		},
		Signals: Signals{
			RSIOversold:              30,
			RSIOverbought:            70,
			BollingerLowerTouch:      0.02,
			BuyMinPriceVsMALong:      -20,
			InterestMinPriceVsMALong: -15,
			VolumeSurge:              1.5,
			SellBelowMALongRatio:     0.9,
		},
		Scoring: Scoring{
			FundamentalCap: 45,
			MarketCap:      30,
			SentimentCap:   25,

			ROE:              []Tier{{20, 15}, {15, 10}, {10, 5}},
			DebtRatioCeiling: 50,
			DebtBase:         10,
			DebtSlope:        5,
			CurrentRatio:     []Tier{{150, 8}, {120, 5}, {100, 2}},
			OperatingMargin:  []Tier{{15, 7}, {10, 5}, {5, 3}},
			RevenueGrowth:    []Tier{{15, 5}, {10, 3}, {5, 1}},

			PER:            []Tier{{15, 12}, {20, 8}, {25, 4}},
			PBR:            []Tier{{1.0, 8}, {1.5, 5}, {2.0, 2}},
			Week52Position: []Tier{{30, 10}, {50, 6}, {70, 3}},

			StrongUpside:  20,
			OpinionBuy:    15,
			OpinionHold:   10,
			OpinionSell:   5,
			Upside:        []Tier{{10, 8}, {0, 3}},
			NewsSentiment: []Tier{{0.3, 10}, {0.1, 7}, {-0.1, 5}, {-0.3, 2}},

			FundamentalFloor: 20,
			Grades: []GradeTier{
				{80, model.GradeAPlus, "strong buy"},
				{70, model.GradeA, "buy"},
				{60, model.GradeBPlus, "accumulate on weakness"},
				{50, model.GradeB, "hold"},
				{40, model.GradeC, "watch"},
			},
			BelowLadder:   GradeTier{0, model.GradeD, "avoid"},
			FloorOverride: GradeTier{0, model.GradeD, "unsuitable - fails fundamental floor"},
		},
		Screening: Screening{
			MinHistory:   100,
			HistoryDays:  250,
			RecentWindow: 20,
		},
	}
}

// Clone returns a deep copy so ladders are not shared with the caller
func (c Criteria) Clone() Criteria {
	out := c
	s := &out.Scoring
	s.ROE = cloneTiers(c.Scoring.ROE)
	s.CurrentRatio = cloneTiers(c.Scoring.CurrentRatio)
	s.OperatingMargin = cloneTiers(c.Scoring.OperatingMargin)
	s.RevenueGrowth = cloneTiers(c.Scoring.RevenueGrowth)
	s.PER = cloneTiers(c.Scoring.PER)
	s.PBR = cloneTiers(c.Scoring.PBR)
	s.Week52Position = cloneTiers(c.Scoring.Week52Position)
	s.Upside = cloneTiers(c.Scoring.Upside)
	s.NewsSentiment = cloneTiers(c.Scoring.NewsSentiment)
	s.Grades = append([]GradeTier(nil), c.Scoring.Grades...)
	return out
}

func cloneTiers(t []Tier) []Tier {
	return append([]Tier(nil), t...)
}

var validate = validator.New()

// Validate reports the first configuration problem, wrapped in ErrInvalid
func (c Criteria) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if c.Signals.RSIOversold >= c.Signals.RSIOverbought {
		return fmt.Errorf("%w: rsi_oversold %.2f must be below rsi_overbought %.2f",
			ErrInvalid, c.Signals.RSIOversold, c.Signals.RSIOverbought)
	}

	s := c.Scoring
	if total := s.FundamentalCap + s.MarketCap + s.SentimentCap; total > 100 {
		return fmt.Errorf("%w: category caps sum to %.2f, max 100", ErrInvalid, total)
	}

	atLeast := map[string][]Tier{
		"roe":              s.ROE,
		"current_ratio":    s.CurrentRatio,
		"operating_margin": s.OperatingMargin,
		"revenue_growth":   s.RevenueGrowth,
		"upside":           s.Upside,
		"news_sentiment":   s.NewsSentiment,
	}
	for _, name := range []string{"roe", "current_ratio", "operating_margin", "revenue_growth", "upside", "news_sentiment"} {
		if err := checkDescending(name, atLeast[name]); err != nil {
			return err
		}
	}

	atMost := map[string][]Tier{
		"per":             s.PER,
		"pbr":             s.PBR,
		"week52_position": s.Week52Position,
	}
	for _, name := range []string{"per", "pbr", "week52_position"} {
		if err := checkAscending(name, atMost[name]); err != nil {
			return err
		}
	}

	if s.FundamentalFloor > s.FundamentalCap {
		return fmt.Errorf("%w: fundamental_floor %.2f is above fundamental_cap %.2f",
			ErrInvalid, s.FundamentalFloor, s.FundamentalCap)
	}

	maxTotal := s.FundamentalCap + s.MarketCap + s.SentimentCap
	for _, g := range s.Grades {
		if g.MinScore < 0 || g.MinScore > maxTotal {
			return fmt.Errorf("%w: grade %s min_score %.2f outside [0, %.2f]", ErrInvalid, g.Grade, g.MinScore, maxTotal)
		}
	}
	for i := 1; i < len(s.Grades); i++ {
		if s.Grades[i].MinScore >= s.Grades[i-1].MinScore {
			return fmt.Errorf("%w: grade boundaries must strictly decrease (%s %.2f after %s %.2f)",
				ErrInvalid, s.Grades[i].Grade, s.Grades[i].MinScore, s.Grades[i-1].Grade, s.Grades[i-1].MinScore)
		}
	}
	if s.BelowLadder.Grade == "" || s.FloorOverride.Grade == "" {
		return fmt.Errorf("%w: below_ladder and floor_override grades are required", ErrInvalid)
	}

	if c.Screening.HistoryDays < c.Screening.MinHistory {
		return fmt.Errorf("%w: history_days %d is below min_history %d",
			ErrInvalid, c.Screening.HistoryDays, c.Screening.MinHistory)
	}

	return nil
}

func checkDescending(name string, tiers []Tier) error {
	for i := 1; i < len(tiers); i++ {
		if tiers[i].Bound >= tiers[i-1].Bound {
			return fmt.Errorf("%w: %s ladder bounds must strictly decrease", ErrInvalid, name)
		}
	}
	return nil
}

func checkAscending(name string, tiers []Tier) error {
	for i := 1; i < len(tiers); i++ {
		if tiers[i].Bound <= tiers[i-1].Bound {
			return fmt.Errorf("%w: %s ladder bounds must strictly increase", ErrInvalid, name)
		}
	}
	return nil
}
