package fairness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/internship-allocator-go/pkg/models"
)

func newAdjuster(t *testing.T, b Boosts) *Adjuster {
	t.Helper()
	a, err := NewAdjuster(b)
	require.NoError(t, err)
	return a
}

func pair(base int) models.ScoredPair {
	return models.ScoredPair{
		CandidateID:   "c1",
		InternshipID:  "i1",
		BaseScore:     base,
		AdjustedScore: float64(base),
		Factors: []models.Factor{
			{Kind: models.FactorSkills, Tag: "skills:1/1", Points: float64(base)},
		},
	}
}

func TestAdjust_SCIsExactlyEightAboveGeneral(t *testing.T) {
	a := newAdjuster(t, DefaultBoosts())
	sc := a.Adjust(pair(50), &models.Candidate{Category: models.CategorySC, Area: models.AreaUrban})
	gen := a.Adjust(pair(50), &models.Candidate{Category: models.CategoryGeneral, Area: models.AreaUrban})

	assert.Equal(t, 58.0, sc.AdjustedScore)
	assert.Equal(t, 50.0, gen.AdjustedScore)
	assert.Equal(t, 8.0, sc.AdjustedScore-gen.AdjustedScore)
	assert.Equal(t, 50, sc.BaseScore, "base score is untouched")
	assert.Equal(t, "category:SC+8", sc.Factors[len(sc.Factors)-1].Tag)
}

func TestAdjust_AllBoostsAndTags(t *testing.T) {
	a := newAdjuster(t, DefaultBoosts())
	got := a.Adjust(pair(40), &models.Candidate{
		Category:       models.CategoryOBC,
		Area:           models.AreaRural,
		PastInternship: true,
	})

	// 40 + 5 + 4 - 5
	assert.Equal(t, 44.0, got.AdjustedScore)
	tags := []string{}
	for _, f := range got.Factors {
		tags = append(tags, f.Tag)
	}
	assert.Equal(t, []string{"skills:1/1", "category:OBC+5", "area:Rural+4", "past-5"}, tags)
}

func TestAdjust_Clamps(t *testing.T) {
	a := newAdjuster(t, DefaultBoosts())

	high := a.Adjust(pair(97), &models.Candidate{Category: models.CategoryST, Area: models.AreaRural})
	assert.Equal(t, 100.0, high.AdjustedScore)

	low := a.Adjust(pair(2), &models.Candidate{Category: models.CategoryGeneral, Area: models.AreaUrban, PastInternship: true})
	assert.Equal(t, 0.0, low.AdjustedScore)
}

func TestAdjust_Idempotent(t *testing.T) {
	a := newAdjuster(t, DefaultBoosts())
	cand := &models.Candidate{Category: models.CategoryEWS, Area: models.AreaRural}

	once := a.Adjust(pair(30), cand)
	twice := a.Adjust(once, cand)

	assert.Equal(t, once, twice)
	assert.Equal(t, 37.0, twice.AdjustedScore)
}

func TestAdjust_DoesNotMutateInput(t *testing.T) {
	a := newAdjuster(t, DefaultBoosts())
	in := pair(30)
	_ = a.Adjust(in, &models.Candidate{Category: models.CategorySC})

	assert.Equal(t, 30.0, in.AdjustedScore)
	assert.Len(t, in.Factors, 1)
}

func TestAdjustAll(t *testing.T) {
	a := newAdjuster(t, DefaultBoosts())
	candidates := []models.Candidate{
		{ID: "c0", Category: models.CategorySC},
		{ID: "c1", Category: models.CategoryGeneral, Area: models.AreaRural},
	}
	pairs := []models.ScoredPair{
		{CandidateIndex: 0, BaseScore: 10, AdjustedScore: 10},
		{CandidateIndex: 1, BaseScore: 10, AdjustedScore: 10},
		{CandidateIndex: 0, BaseScore: 20, AdjustedScore: 20},
	}

	out, err := a.AdjustAll(context.Background(), pairs, candidates, 2)
	require.NoError(t, err)

	assert.Equal(t, []float64{18, 14, 28}, []float64{out[0].AdjustedScore, out[1].AdjustedScore, out[2].AdjustedScore})
	assert.Equal(t, 10.0, pairs[0].AdjustedScore)
}

func TestAdjustAll_Cancelled(t *testing.T) {
	a := newAdjuster(t, DefaultBoosts())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.AdjustAll(ctx, []models.ScoredPair{{}}, []models.Candidate{{}}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewAdjuster_RejectsNegativeBoost(t *testing.T) {
	b := DefaultBoosts()
	b.Rural = -1
	_, err := NewAdjuster(b)
	assert.EqualError(t, err, "boost rural must be a non-negative number, got -1")
}

func TestGenderBoost(t *testing.T) {
	b := DefaultBoosts()
	disabled := newAdjuster(t, b)
	assert.Zero(t, disabled.GenderBoost(models.GenderFemale, map[models.Gender]int{models.GenderMale: 3}))

	b.GenderBalanceEnabled = true
	a := newAdjuster(t, b)
	counts := map[models.Gender]int{models.GenderMale: 2, models.GenderFemale: 1}

	assert.Equal(t, 2.0, a.GenderBoost(models.GenderFemale, counts))
	assert.Equal(t, 2.0, a.GenderBoost(models.GenderOther, counts))
	assert.Zero(t, a.GenderBoost(models.GenderMale, counts))
	assert.Zero(t, a.GenderBoost(models.GenderUnspecified, counts))
	assert.Zero(t, a.GenderBoost(models.GenderFemale, map[models.Gender]int{}))
}

func TestGenderFactor(t *testing.T) {
	f := GenderFactor(models.GenderFemale, 2)
	assert.Equal(t, models.FactorGender, f.Kind)
	assert.Equal(t, "gender:Female+2", f.Tag)
}
