package fairness

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/arnavshah/internship-allocator-go/pkg/models"
	"github.com/arnavshah/internship-allocator-go/pkg/scoring"
)

// Boosts are the additive fairness adjustments, in score points
type Boosts struct {
	SC                   float64 `mapstructure:"sc" json:"sc"`
	ST                   float64 `mapstructure:"st" json:"st"`
	OBC                  float64 `mapstructure:"obc" json:"obc"`
	EWS                  float64 `mapstructure:"ews" json:"ews"`
	General              float64 `mapstructure:"general" json:"general"`
	Rural                float64 `mapstructure:"rural" json:"rural"`
	PastPenalty          float64 `mapstructure:"past_penalty" json:"past_penalty"`
	GenderBalance        float64 `mapstructure:"gender_balance" json:"gender_balance"`
	GenderBalanceEnabled bool    `mapstructure:"gender_balance_enabled" json:"gender_balance_enabled"`
}

// DefaultBoosts returns SC/ST +8, OBC +5, EWS +3, rural +4, repeat -5
func DefaultBoosts() Boosts {
	return Boosts{
		SC:            8,
		ST:            8,
		OBC:           5,
		EWS:           3,
		General:       0,
		Rural:         4,
		PastPenalty:   5,
		GenderBalance: 2,
	}
}

// Validate rejects negative magnitudes. The past penalty is a magnitude too.
func (b Boosts) Validate() error {
	for name, v := range map[string]float64{
		"sc": b.SC, "st": b.ST, "obc": b.OBC, "ews": b.EWS, "general": b.General,
		"rural": b.Rural, "past_penalty": b.PastPenalty, "gender_balance": b.GenderBalance,
	} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("boost %s must be a non-negative number, got %v", name, v)
		}
	}
	return nil
}

// Category returns the boost for a reservation category
func (b Boosts) Category(c models.Category) float64 {
	switch c {
	case models.CategorySC:
		return b.SC
	case models.CategoryST:
		return b.ST
	case models.CategoryOBC:
		return b.OBC
	case models.CategoryEWS:
		return b.EWS
	default:
		return b.General
	}
}

// Adjuster turns base scores into ranking priorities
type Adjuster struct {
	boosts Boosts
}

// NewAdjuster validates the boosts and returns an adjuster
func NewAdjuster(b Boosts) (*Adjuster, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &Adjuster{boosts: b}, nil
}

// Boosts returns the configured magnitudes
func (a *Adjuster) Boosts() Boosts {
	return a.boosts
}

// Adjust returns a copy of pair with AdjustedScore recomputed from the base
// score and the candidate's attributes. Boost factors already present on the
// pair are dropped first, so repeated calls give the same answer.
func (a *Adjuster) Adjust(pair models.ScoredPair, cand *models.Candidate) models.ScoredPair {
	factors := make([]models.Factor, 0, len(pair.Factors)+3)
	for _, f := range pair.Factors {
		if !isBoost(f.Kind) {
			factors = append(factors, f)
		}
	}

	adjusted := float64(pair.BaseScore)

	if v := a.boosts.Category(cand.Category); v != 0 {
		adjusted += v
		factors = append(factors, models.Factor{
			Kind:   models.FactorCategory,
			Tag:    "category:" + string(cand.Category) + signed(v),
			Points: v,
		})
	}
	if cand.Area == models.AreaRural && a.boosts.Rural != 0 {
		adjusted += a.boosts.Rural
		factors = append(factors, models.Factor{
			Kind:   models.FactorArea,
			Tag:    "area:" + string(models.AreaRural) + signed(a.boosts.Rural),
			Points: a.boosts.Rural,
		})
	}
	if cand.PastInternship && a.boosts.PastPenalty != 0 {
		adjusted -= a.boosts.PastPenalty
		factors = append(factors, models.Factor{
			Kind:   models.FactorPast,
			Tag:    "past" + signed(-a.boosts.PastPenalty),
			Points: -a.boosts.PastPenalty,
		})
	}

	pair.AdjustedScore = Clamp(adjusted)
	pair.Factors = factors
	return pair
}

// AdjustAll adjusts every pair into a new slice, in parallel
func (a *Adjuster) AdjustAll(ctx context.Context, pairs []models.ScoredPair, candidates []models.Candidate, workers int) ([]models.ScoredPair, error) {
	out := make([]models.ScoredPair, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	for _, r := range scoring.Shards(len(pairs), workers) {
		r := r
		g.Go(func() error {
			for i := r[0]; i < r[1]; i++ {
				if i%256 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				out[i] = a.Adjust(pairs[i], &candidates[pairs[i].CandidateIndex])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// GenderBoost is the live gender-balance boost for a candidate of gender g
// given the genders already committed to an internship.
func (a *Adjuster) GenderBoost(g models.Gender, counts map[models.Gender]int) float64 {
	if !a.boosts.GenderBalanceEnabled || a.boosts.GenderBalance == 0 || g == models.GenderUnspecified {
		return 0
	}
	top := 0
	for _, n := range counts {
		top = max(top, n)
	}
	if counts[g] < top {
		return a.boosts.GenderBalance
	}
	return 0
}

// GenderFactor tags an applied gender-balance boost
func GenderFactor(g models.Gender, v float64) models.Factor {
	return models.Factor{
		Kind:   models.FactorGender,
		Tag:    "gender:" + string(g) + signed(v),
		Points: v,
	}
}

// Clamp bounds an adjusted score to [0,100]
func Clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func isBoost(k models.FactorKind) bool {
	switch k {
	case models.FactorCategory, models.FactorArea, models.FactorPast, models.FactorGender:
		return true
	}
	return false
}

func signed(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if v >= 0 {
		return "+" + s
	}
	return s
}
