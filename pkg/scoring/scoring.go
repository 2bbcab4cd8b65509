package scoring

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/arnavshah/internship-allocator-go/pkg/models"
)

// Weights are the relative importance of each compatibility component
type Weights struct {
	Skills         float64 `mapstructure:"skills" json:"skills"`
	Location       float64 `mapstructure:"location" json:"location"`
	Sector         float64 `mapstructure:"sector" json:"sector"`
	Qualifications float64 `mapstructure:"qualifications" json:"qualifications"`
}

// DefaultWeights returns the 40/25/25/10 split
func DefaultWeights() Weights {
	return Weights{Skills: 40, Location: 25, Sector: 25, Qualifications: 10}
}

func (w Weights) total() float64 {
	return w.Skills + w.Location + w.Sector + w.Qualifications
}

// Validate rejects negative weights and an all-zero set
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"skills": w.Skills, "location": w.Location, "sector": w.Sector, "qualifications": w.Qualifications,
	} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("weight %s must be a non-negative number, got %v", name, v)
		}
	}
	if w.total() == 0 {
		return fmt.Errorf("weights must not all be zero")
	}
	return nil
}

// Calculator computes base compatibility scores
type Calculator struct {
	weights Weights
	scale   float64
}

// NewCalculator validates the weights and returns a calculator
func NewCalculator(w Weights) (*Calculator, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{weights: w, scale: 100 / w.total()}, nil
}

// Score returns the base score of a pair in [0,100] with its breakdown and factor tags
func (c *Calculator) Score(cand *models.Candidate, in *models.Internship) (int, models.Breakdown, []models.Factor) {
	var b models.Breakdown

	b.SkillOverlap = overlap(cand.Skills, in.RequiredSkills)
	b.SkillRatio = float64(b.SkillOverlap) / float64(max(1, len(in.RequiredSkills)))

	b.LocationRank = rank(cand.LocationPreferences, in.Location)
	b.LocationCredit = inverseRank(b.LocationRank)

	b.SectorRank = rank(cand.SectorInterests, in.Sector)
	b.SectorCredit = inverseRank(b.SectorRank)

	b.QualificationRatio = float64(overlap(cand.Qualifications, in.Qualifications)) /
		float64(max(1, len(in.Qualifications)))

	skillPts := c.scale * c.weights.Skills * b.SkillRatio
	locPts := c.scale * c.weights.Location * b.LocationCredit
	sectorPts := c.scale * c.weights.Sector * b.SectorCredit
	qualPts := c.scale * c.weights.Qualifications * b.QualificationRatio

	var factors []models.Factor
	if skillPts > 0 {
		factors = append(factors, models.Factor{
			Kind:   models.FactorSkills,
			Tag:    fmt.Sprintf("skills:%d/%d", b.SkillOverlap, len(in.RequiredSkills)),
			Points: skillPts,
		})
	}
	if locPts > 0 {
		factors = append(factors, models.Factor{
			Kind:   models.FactorLocation,
			Tag:    fmt.Sprintf("location:rank%d", b.LocationRank),
			Points: locPts,
		})
	}
	if sectorPts > 0 {
		factors = append(factors, models.Factor{
			Kind:   models.FactorSector,
			Tag:    fmt.Sprintf("sector:rank%d", b.SectorRank),
			Points: sectorPts,
		})
	}
	if qualPts > 0 {
		factors = append(factors, models.Factor{
			Kind:   models.FactorQualifications,
			Tag:    fmt.Sprintf("qualifications:%d/%d", overlap(cand.Qualifications, in.Qualifications), len(in.Qualifications)),
			Points: qualPts,
		})
	}

	score := int(math.Round(skillPts + locPts + sectorPts + qualPts))
	if score > 100 {
		score = 100
	}
	return score, b, factors
}

// ScoreAll scores every candidate x internship pair. Pairs are laid out
// candidate-major, so pairs[ci*len(internships)+ii] is (ci, ii). Workers own
// disjoint candidate ranges and write only to their own segment.
func (c *Calculator) ScoreAll(ctx context.Context, candidates []models.Candidate, internships []models.Internship, workers int) ([]models.ScoredPair, error) {
	nI := len(internships)
	pairs := make([]models.ScoredPair, len(candidates)*nI)
	if len(pairs) == 0 {
		return pairs, ctx.Err()
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, r := range Shards(len(candidates), workers) {
		r := r
		g.Go(func() error {
			for ci := r[0]; ci < r[1]; ci++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				cand := &candidates[ci]
				for ii := range internships {
					in := &internships[ii]
					score, b, factors := c.Score(cand, in)
					pairs[ci*nI+ii] = models.ScoredPair{
						CandidateID:     cand.ID,
						InternshipID:    in.ID,
						CandidateIndex:  ci,
						InternshipIndex: ii,
						BaseScore:       score,
						AdjustedScore:   float64(score),
						Components:      b,
						Factors:         factors,
					}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pairs, nil
}

// Shards splits [0,n) into at most workers contiguous half-open ranges.
// workers <= 0 means one per CPU.
func Shards(n, workers int) [][2]int {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > n {
		workers = n
	}
	if workers == 0 {
		return nil
	}
	size := (n + workers - 1) / workers
	out := make([][2]int, 0, workers)
	for start := 0; start < n; start += size {
		out = append(out, [2]int{start, min(start+size, n)})
	}
	return out
}

func overlap(have, want []string) int {
	if len(have) == 0 || len(want) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(have))
	for _, h := range have {
		set[strings.ToLower(h)] = struct{}{}
	}
	n := 0
	for _, w := range want {
		if _, ok := set[strings.ToLower(w)]; ok {
			n++
		}
	}
	return n
}

// rank is the 1-based position of target in prefs, 0 when absent
func rank(prefs []string, target string) int {
	t := strings.ToLower(strings.TrimSpace(target))
	if t == "" {
		return 0
	}
	for i, p := range prefs {
		if strings.ToLower(p) == t {
			return i + 1
		}
	}
	return 0
}

func inverseRank(r int) float64 {
	if r <= 0 {
		return 0
	}
	return 1 / float64(r)
}
