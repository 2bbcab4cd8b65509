package allocator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/internship-allocator-go/pkg/fairness"
	"github.com/arnavshah/internship-allocator-go/pkg/models"
	"github.com/arnavshah/internship-allocator-go/pkg/scoring"
)

func pipelinePairs(t *testing.T, adj *fairness.Adjuster, candidates []models.Candidate, internships []models.Internship) []models.ScoredPair {
	t.Helper()
	calc, err := scoring.NewCalculator(scoring.DefaultWeights())
	require.NoError(t, err)
	pairs, err := calc.ScoreAll(context.Background(), candidates, internships, 2)
	require.NoError(t, err)
	pairs, err = adj.AdjustAll(context.Background(), pairs, candidates, 2)
	require.NoError(t, err)
	return pairs
}

func defaultAdjuster(t *testing.T, balance bool) *fairness.Adjuster {
	t.Helper()
	b := fairness.DefaultBoosts()
	b.GenderBalanceEnabled = balance
	adj, err := fairness.NewAdjuster(b)
	require.NoError(t, err)
	return adj
}

func run(t *testing.T, alloc *Allocator, candidates []models.Candidate, internships []models.Internship, pairs []models.ScoredPair) *models.RunResult {
	t.Helper()
	st, err := alloc.Assign(context.Background(), NewState(candidates, internships), pairs)
	require.NoError(t, err)
	return st.Result()
}

// manualPair builds an unadjusted pair with explicit indexes
func manualPair(candidates []models.Candidate, internships []models.Internship, ci, ii, base int) models.ScoredPair {
	return models.ScoredPair{
		CandidateID:     candidates[ci].ID,
		InternshipID:    internships[ii].ID,
		CandidateIndex:  ci,
		InternshipIndex: ii,
		BaseScore:       base,
		AdjustedScore:   float64(base),
		Factors:         []models.Factor{{Kind: models.FactorSkills, Tag: "skills", Points: float64(base)}},
	}
}

func TestAssign_ThreeCandidateExample(t *testing.T) {
	candidates := []models.Candidate{
		{ID: "A", Skills: []string{"python"}, Category: models.CategoryGeneral, Area: models.AreaUrban},
		{ID: "B", Skills: []string{"python"}, Category: models.CategorySC, Area: models.AreaUrban},
		{ID: "C", Skills: []string{}, Category: models.CategoryGeneral, Area: models.AreaUrban},
	}
	internships := []models.Internship{{ID: "I1", RequiredSkills: []string{"python"}, Capacity: 1}}
	adj := defaultAdjuster(t, false)

	res := run(t, NewAllocator(adj, Options{}), candidates, internships, pipelinePairs(t, adj, candidates, internships))

	require.Len(t, res.Assignments, 1)
	got := res.Assignments[0]
	assert.Equal(t, "B", got.CandidateID)
	assert.Equal(t, "I1", got.InternshipID)
	assert.Equal(t, 40, got.BaseScore)
	assert.Equal(t, 48.0, got.FinalScore)
	assert.Equal(t, []string{"A", "C"}, res.Unallocated)
	assert.Equal(t, []models.InternshipFill{{InternshipID: "I1", Capacity: 1, Filled: 1}}, res.Utilization)

	kinds := []models.FactorKind{}
	for _, f := range got.Factors {
		kinds = append(kinds, f.Kind)
	}
	assert.Equal(t, []models.FactorKind{models.FactorSkills, models.FactorCategory}, kinds)
}

func TestAssign_SCWinsSingleSlotOverGeneral(t *testing.T) {
	candidates := []models.Candidate{
		{ID: "a-general", Skills: []string{"go"}, Category: models.CategoryGeneral, Area: models.AreaUrban},
		{ID: "z-sc", Skills: []string{"go"}, Category: models.CategorySC, Area: models.AreaUrban},
	}
	internships := []models.Internship{{ID: "I1", RequiredSkills: []string{"go"}, Capacity: 1}}
	adj := defaultAdjuster(t, false)
	pairs := pipelinePairs(t, adj, candidates, internships)

	assert.Equal(t, 8.0, pairs[1].AdjustedScore-pairs[0].AdjustedScore)

	res := run(t, NewAllocator(adj, Options{}), candidates, internships, pairs)
	require.Len(t, res.Assignments, 1)
	assert.Equal(t, "z-sc", res.Assignments[0].CandidateID)
	assert.Equal(t, []string{"a-general"}, res.Unallocated)
}

func TestAssign_TieBreaks(t *testing.T) {
	candidates := []models.Candidate{{ID: "c2"}, {ID: "c1"}}
	internships := []models.Internship{{ID: "i2", Capacity: 1}, {ID: "i1", Capacity: 1}}
	pairs := []models.ScoredPair{
		manualPair(candidates, internships, 0, 0, 50),
		manualPair(candidates, internships, 0, 1, 50),
		manualPair(candidates, internships, 1, 0, 50),
		manualPair(candidates, internships, 1, 1, 50),
	}

	res := run(t, NewAllocator(nil, Options{}), candidates, internships, pairs)

	// c1 goes first and takes the lower internship id
	require.Len(t, res.Assignments, 2)
	assert.Equal(t, models.Assignment{CandidateID: "c1", InternshipID: "i1", BaseScore: 50, FinalScore: 50, Factors: pairs[3].Factors}, res.Assignments[0])
	assert.Equal(t, "c2", res.Assignments[1].CandidateID)
	assert.Equal(t, "i2", res.Assignments[1].InternshipID)
}

func TestAssign_HigherBaseBreaksAdjustedTie(t *testing.T) {
	candidates := []models.Candidate{{ID: "a"}, {ID: "b"}}
	internships := []models.Internship{{ID: "i", Capacity: 1}}
	pa := manualPair(candidates, internships, 0, 0, 40)
	pa.AdjustedScore = 48
	pb := manualPair(candidates, internships, 1, 0, 48)

	res := run(t, NewAllocator(nil, Options{}), candidates, internships, []models.ScoredPair{pa, pb})

	require.Len(t, res.Assignments, 1)
	assert.Equal(t, "b", res.Assignments[0].CandidateID)
}

func TestAssign_ZeroCapacity(t *testing.T) {
	candidates := []models.Candidate{
		{ID: "c1", Skills: []string{"go"}, Category: models.CategorySC, Area: models.AreaRural},
		{ID: "c2", Skills: []string{"go"}, Category: models.CategoryGeneral, Area: models.AreaUrban},
	}
	internships := []models.Internship{{ID: "closed", RequiredSkills: []string{"go"}, Capacity: 0}}
	adj := defaultAdjuster(t, false)

	res := run(t, NewAllocator(adj, Options{}), candidates, internships, pipelinePairs(t, adj, candidates, internships))

	assert.Empty(t, res.Assignments)
	assert.Equal(t, []string{"c1", "c2"}, res.Unallocated)
	assert.Equal(t, []models.InternshipFill{{InternshipID: "closed", Capacity: 0, Filled: 0}}, res.Utilization)
}

func TestAssign_EmptyInputs(t *testing.T) {
	internships := []models.Internship{{ID: "i2", Capacity: 3}, {ID: "i1", Capacity: 1}}

	res := run(t, NewAllocator(nil, Options{}), nil, internships, nil)

	assert.Empty(t, res.Assignments)
	assert.Empty(t, res.Unallocated)
	assert.Equal(t, []models.InternshipFill{
		{InternshipID: "i1", Capacity: 1},
		{InternshipID: "i2", Capacity: 3},
	}, res.Utilization)

	res = run(t, NewAllocator(nil, Options{}), []models.Candidate{{ID: "lonely"}}, nil, nil)
	assert.Equal(t, []string{"lonely"}, res.Unallocated)
}

func randomInput(seed int64, nc, ni int) ([]models.Candidate, []models.Internship) {
	rng := rand.New(rand.NewSource(seed))
	skills := []string{"go", "python", "sql", "excel", "java", "design"}
	cities := []string{"delhi", "pune", "mumbai", "chennai"}
	sectors := []string{"tech", "finance", "health"}
	genders := []models.Gender{models.GenderMale, models.GenderFemale, models.GenderOther, models.GenderUnspecified}
	pick := func(from []string, n int) []string {
		out := []string{}
		for _, i := range rng.Perm(len(from))[:n] {
			out = append(out, from[i])
		}
		return out
	}

	candidates := make([]models.Candidate, nc)
	for i := range candidates {
		candidates[i] = models.Candidate{
			ID:                  fmt.Sprintf("c%03d", i),
			Skills:              pick(skills, rng.Intn(4)),
			LocationPreferences: pick(cities, rng.Intn(3)),
			SectorInterests:     pick(sectors, rng.Intn(3)),
			Category:            models.Categories[rng.Intn(len(models.Categories))],
			Area:                models.Areas[rng.Intn(len(models.Areas))],
			Gender:              genders[rng.Intn(len(genders))],
			PastInternship:      rng.Intn(4) == 0,
		}
	}
	internships := make([]models.Internship, ni)
	for i := range internships {
		internships[i] = models.Internship{
			ID:             fmt.Sprintf("i%02d", i),
			RequiredSkills: pick(skills, 1+rng.Intn(3)),
			Location:       cities[rng.Intn(len(cities))],
			Sector:         sectors[rng.Intn(len(sectors))],
			Capacity:       rng.Intn(5),
		}
	}
	return candidates, internships
}

func TestAssign_CapacityAndSingleAssignment(t *testing.T) {
	for _, balance := range []bool{false, true} {
		t.Run(fmt.Sprintf("balance=%v", balance), func(t *testing.T) {
			candidates, internships := randomInput(7, 120, 15)
			adj := defaultAdjuster(t, balance)

			res := run(t, NewAllocator(adj, Options{CheckInterval: 16}), candidates, internships, pipelinePairs(t, adj, candidates, internships))

			capacity := map[string]int{}
			for _, in := range internships {
				capacity[in.ID] = in.Capacity
			}
			filled := map[string]int{}
			seen := map[string]int{}
			for _, a := range res.Assignments {
				filled[a.InternshipID]++
				seen[a.CandidateID]++
				assert.LessOrEqual(t, a.FinalScore, 100.0)
				assert.GreaterOrEqual(t, a.FinalScore, 0.0)
			}
			for _, id := range res.Unallocated {
				seen[id]++
			}
			for id, n := range filled {
				assert.LessOrEqual(t, n, capacity[id], "internship %s over capacity", id)
			}
			for _, u := range res.Utilization {
				assert.Equal(t, filled[u.InternshipID], u.Filled)
			}
			require.Len(t, seen, len(candidates))
			for id, n := range seen {
				assert.Equal(t, 1, n, "candidate %s appears %d times", id, n)
			}
		})
	}
}

func TestAssign_Deterministic(t *testing.T) {
	for _, balance := range []bool{false, true} {
		candidates, internships := randomInput(42, 80, 10)
		adj := defaultAdjuster(t, balance)
		alloc := NewAllocator(adj, Options{})

		first := run(t, alloc, candidates, internships, pipelinePairs(t, adj, candidates, internships))
		second := run(t, alloc, candidates, internships, pipelinePairs(t, adj, candidates, internships))

		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("balance=%v: runs differ (-first +second):\n%s", balance, diff)
		}
	}
}

func TestAssign_GenderBalance(t *testing.T) {
	candidates := []models.Candidate{
		{ID: "m1", Gender: models.GenderMale},
		{ID: "m2", Gender: models.GenderMale},
		{ID: "f1", Gender: models.GenderFemale},
	}
	internships := []models.Internship{{ID: "i1", Capacity: 2}}
	pairs := []models.ScoredPair{
		manualPair(candidates, internships, 0, 0, 50),
		manualPair(candidates, internships, 1, 0, 49),
		manualPair(candidates, internships, 2, 0, 48),
	}

	off := run(t, NewAllocator(defaultAdjuster(t, false), Options{}), candidates, internships, pairs)
	assert.Equal(t, []string{"f1"}, off.Unallocated)

	on := run(t, NewAllocator(defaultAdjuster(t, true), Options{}), candidates, internships, pairs)
	assert.Equal(t, []string{"m2"}, on.Unallocated)
	require.Len(t, on.Assignments, 2)
	assert.Equal(t, "f1", on.Assignments[0].CandidateID)
	assert.Equal(t, 50.0, on.Assignments[0].FinalScore)
	assert.Equal(t, 48, on.Assignments[0].BaseScore)
	last := on.Assignments[0].Factors[len(on.Assignments[0].Factors)-1]
	assert.Equal(t, "gender:Female+2", last.Tag)

	// the input pairs are never modified
	assert.Equal(t, 48.0, pairs[2].AdjustedScore)
	assert.Len(t, pairs[2].Factors, 1)
}

// rescanAssign is a quadratic reference for the balanced walk: before every
// commit it rescores each open pair with the live gender boost and takes the best.
func rescanAssign(adj *fairness.Adjuster, candidates []models.Candidate, internships []models.Internship, pairs []models.ScoredPair) map[string]float64 {
	remaining := make([]int, len(internships))
	counts := make([]map[models.Gender]int, len(internships))
	for i, in := range internships {
		remaining[i] = in.Capacity
		counts[i] = map[models.Gender]int{}
	}
	assigned := make([]bool, len(candidates))
	placed := map[string]float64{}

	for {
		best, bestScore := -1, 0.0
		for i := range pairs {
			p := &pairs[i]
			if assigned[p.CandidateIndex] || remaining[p.InternshipIndex] <= 0 {
				continue
			}
			g := candidates[p.CandidateIndex].Gender
			score := fairness.Clamp(p.AdjustedScore + adj.GenderBoost(g, counts[p.InternshipIndex]))
			if best < 0 || Less(p, score, &pairs[best], bestScore) {
				best, bestScore = i, score
			}
		}
		if best < 0 {
			return placed
		}
		p := &pairs[best]
		assigned[p.CandidateIndex] = true
		remaining[p.InternshipIndex]--
		if g := candidates[p.CandidateIndex].Gender; g != models.GenderUnspecified {
			counts[p.InternshipIndex][g]++
		}
		placed[p.CandidateID+"->"+p.InternshipID] = bestScore
	}
}

func TestAssign_BalancedWalkMatchesRescan(t *testing.T) {
	boosts := []float64{0, 2, 7.5, 15}
	for seed := int64(0); seed < 600; seed++ {
		rng := rand.New(rand.NewSource(seed))
		candidates, internships := randomInput(seed, 3+rng.Intn(10), 1+rng.Intn(4))

		b := fairness.DefaultBoosts()
		b.GenderBalanceEnabled = rng.Intn(4) != 0
		b.GenderBalance = boosts[rng.Intn(len(boosts))]
		adj, err := fairness.NewAdjuster(b)
		require.NoError(t, err)
		pairs := pipelinePairs(t, adj, candidates, internships)

		res := run(t, NewAllocator(adj, Options{CheckInterval: 3}), candidates, internships, pairs)

		got := map[string]float64{}
		for _, a := range res.Assignments {
			got[a.CandidateID+"->"+a.InternshipID] = a.FinalScore
		}
		want := rescanAssign(adj, candidates, internships, pairs)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("seed %d (balance=%v boost=%v): walk differs from rescan (-want +got):\n%s",
				seed, b.GenderBalanceEnabled, b.GenderBalance, diff)
		}
	}
}

func TestAssign_EligibilityFloor(t *testing.T) {
	candidates := []models.Candidate{{ID: "c1", Skills: []string{"go"}}}
	internships := []models.Internship{{ID: "near", Capacity: 1}, {ID: "skilled", Capacity: 1}}
	near := manualPair(candidates, internships, 0, 0, 60)
	skilled := manualPair(candidates, internships, 0, 1, 40)
	skilled.Components.SkillOverlap = 1
	pairs := []models.ScoredPair{near, skilled}

	res := run(t, NewAllocator(nil, Options{}), candidates, internships, pairs)
	assert.Equal(t, "near", res.Assignments[0].InternshipID)

	elig, err := NewEligibility("pair.skill_overlap > 0")
	require.NoError(t, err)
	res = run(t, NewAllocator(nil, Options{Eligibility: elig}), candidates, internships, pairs)
	require.Len(t, res.Assignments, 1)
	assert.Equal(t, "skilled", res.Assignments[0].InternshipID)

	elig, err = NewEligibility(`internship.capacity > 5 && candidate.category == "SC"`)
	require.NoError(t, err)
	res = run(t, NewAllocator(nil, Options{Eligibility: elig}), candidates, internships, pairs)
	assert.Empty(t, res.Assignments)
	assert.Equal(t, []string{"c1"}, res.Unallocated)
}

func TestNewEligibility(t *testing.T) {
	elig, err := NewEligibility("")
	require.NoError(t, err)
	assert.Nil(t, elig)

	for _, expr := range []string{"pair.", `"yes"`, "1 + 2"} {
		_, err := NewEligibility(expr)
		var eligErr *EligibilityError
		require.True(t, errors.As(err, &eligErr), "expression %q should be rejected", expr)
		assert.Equal(t, expr, eligErr.Expression)
	}
}

func TestAssign_EligibilityEvaluationError(t *testing.T) {
	candidates := []models.Candidate{{ID: "c1"}}
	internships := []models.Internship{{ID: "i1", Capacity: 1}}
	elig, err := NewEligibility("pair.no_such_fact > 0")
	require.NoError(t, err)

	_, err = NewAllocator(nil, Options{Eligibility: elig}).Assign(context.Background(), NewState(candidates, internships),
		[]models.ScoredPair{manualPair(candidates, internships, 0, 0, 10)})

	var eligErr *EligibilityError
	assert.True(t, errors.As(err, &eligErr))
}

func TestAssign_Cancelled(t *testing.T) {
	candidates, internships := randomInput(3, 10, 3)
	adj := defaultAdjuster(t, false)
	pairs := pipelinePairs(t, adj, candidates, internships)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAllocator(adj, Options{}).Assign(ctx, NewState(candidates, internships), pairs)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCommit_InvariantViolations(t *testing.T) {
	candidates := []models.Candidate{{ID: "c1"}, {ID: "c2"}}
	internships := []models.Internship{{ID: "i1", Capacity: 1}, {ID: "i2", Capacity: 1}}

	st := NewState(candidates, internships)
	p := manualPair(candidates, internships, 0, 0, 10)
	st.commit(&p, 10, 0)
	assert.Equal(t, Assigned, st.Status[0])
	assert.Equal(t, 0, st.Remaining[0])

	again := manualPair(candidates, internships, 0, 1, 10)
	assert.PanicsWithError(t, "invariant single-assignment violated: candidate c1 already assigned to i1", func() {
		st.commit(&again, 10, 0)
	})

	full := manualPair(candidates, internships, 1, 0, 10)
	assert.PanicsWithError(t, "invariant capacity violated: internship i1 remaining capacity -1", func() {
		st.commit(&full, 10, 0)
	})
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "unseen", Unseen.String())
	assert.Equal(t, "assigned", Assigned.String())
	assert.Equal(t, "unallocated", Unallocated.String())
}
