package scoring

import (
	"math"

	"github.com/shopspring/decimal"

	"valuescreen/internal/criteria"
)

// Grades returns the grade table in lookup order followed by the grade used
// below the last rung
func (s *Scorer) Grades() []criteria.GradeTier {
	table := append([]criteria.GradeTier(nil), s.cfg.Grades...)
	return append(table, s.cfg.BelowLadder)
}

// Grade maps a total score to its grade tier without the fundamental floor
func (s *Scorer) Grade(total float64) criteria.GradeTier {
	if math.IsNaN(total) || math.IsInf(total, 0) {
		return s.cfg.BelowLadder
	}
	return s.grade(decimal.NewFromFloat(total))
}

func (s *Scorer) grade(total decimal.Decimal) criteria.GradeTier {
	for _, t := range s.cfg.Grades {
		if total.GreaterThanOrEqual(decimal.NewFromFloat(t.MinScore)) {
			return t
		}
	}
	return s.cfg.BelowLadder
}
