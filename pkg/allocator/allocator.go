package allocator

import (
	"container/heap"
	"context"
	"fmt"
	"sort"

	"github.com/arnavshah/internship-allocator-go/pkg/fairness"
	"github.com/arnavshah/internship-allocator-go/pkg/models"
)

// DefaultCheckInterval is how many pairs the commit walk visits between cancellation checks
const DefaultCheckInterval = 1024

// Status tracks where a candidate is in the assignment pass
type Status int

const (
	Unseen Status = iota
	Assigned
	Unallocated
)

func (s Status) String() string {
	switch s {
	case Assigned:
		return "assigned"
	case Unallocated:
		return "unallocated"
	default:
		return "unseen"
	}
}

// InvariantViolation is raised with panic when the walk corrupts its own state
type InvariantViolation struct {
	Invariant string
	Detail    string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant %s violated: %s", e.Invariant, e.Detail)
}

// Commit records one placement made by the walk
type Commit struct {
	Pair        models.ScoredPair
	FinalScore  float64
	GenderBoost float64
}

// State is the mutable context of one assignment pass. It is created per
// run and handed to Assign, which returns it after the walk.
type State struct {
	Candidates   []models.Candidate
	Internships  []models.Internship
	Remaining    []int
	GenderCounts []map[models.Gender]int
	Status       []Status
	AssignedTo   []int
	Commits      []Commit
}

// NewState seeds remaining capacity from the internships and marks every candidate Unseen
func NewState(candidates []models.Candidate, internships []models.Internship) *State {
	st := &State{
		Candidates:   candidates,
		Internships:  internships,
		Remaining:    make([]int, len(internships)),
		GenderCounts: make([]map[models.Gender]int, len(internships)),
		Status:       make([]Status, len(candidates)),
		AssignedTo:   make([]int, len(candidates)),
	}
	for i, in := range internships {
		st.Remaining[i] = in.Capacity
		st.GenderCounts[i] = make(map[models.Gender]int)
	}
	for i := range st.AssignedTo {
		st.AssignedTo[i] = -1
	}
	return st
}

func (st *State) commit(p *models.ScoredPair, final, genderBoost float64) {
	ci, ii := p.CandidateIndex, p.InternshipIndex
	if st.Status[ci] == Assigned {
		panic(&InvariantViolation{
			Invariant: "single-assignment",
			Detail:    fmt.Sprintf("candidate %s already assigned to %s", p.CandidateID, st.Internships[st.AssignedTo[ci]].ID),
		})
	}
	st.Remaining[ii]--
	if st.Remaining[ii] < 0 {
		panic(&InvariantViolation{
			Invariant: "capacity",
			Detail:    fmt.Sprintf("internship %s remaining capacity %d", p.InternshipID, st.Remaining[ii]),
		})
	}
	st.Status[ci] = Assigned
	st.AssignedTo[ci] = ii
	if g := st.Candidates[ci].Gender; g != models.GenderUnspecified {
		st.GenderCounts[ii][g]++
	}

	committed := *p
	committed.Factors = append([]models.Factor(nil), p.Factors...)
	if genderBoost > 0 {
		committed.Factors = append(committed.Factors, fairness.GenderFactor(st.Candidates[ci].Gender, genderBoost))
	}
	st.Commits = append(st.Commits, Commit{Pair: committed, FinalScore: final, GenderBoost: genderBoost})
}

// Options tune the assignment pass
type Options struct {
	// CheckInterval is the number of pairs visited between ctx checks
	CheckInterval int
	// Eligibility filters pairs before sorting; nil admits every pair
	Eligibility *Eligibility
}

// Allocator resolves a one-to-one candidate to internship assignment
type Allocator struct {
	adjuster *fairness.Adjuster
	opts     Options
}

// NewAllocator creates a new allocator instance
func NewAllocator(adjuster *fairness.Adjuster, opts Options) *Allocator {
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = DefaultCheckInterval
	}
	return &Allocator{adjuster: adjuster, opts: opts}
}

// Less orders pairs for the walk: higher score first, then higher base
// score, then lower candidate id, then lower internship id.
func Less(a *models.ScoredPair, aScore float64, b *models.ScoredPair, bScore float64) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	if a.BaseScore != b.BaseScore {
		return a.BaseScore > b.BaseScore
	}
	if a.CandidateID != b.CandidateID {
		return a.CandidateID < b.CandidateID
	}
	return a.InternshipID < b.InternshipID
}

// Assign walks the pairs in priority order and commits placements into st.
// Pairs must carry candidate and internship indexes into st's collections.
func (a *Allocator) Assign(ctx context.Context, st *State, pairs []models.ScoredPair) (*State, error) {
	order, err := a.eligible(ctx, st, pairs)
	if err != nil {
		return st, err
	}

	sort.Slice(order, func(i, j int) bool {
		pi, pj := &pairs[order[i]], &pairs[order[j]]
		return Less(pi, pi.AdjustedScore, pj, pj.AdjustedScore)
	})

	w := newWalk(a, st, pairs, order)
	if err := w.run(ctx); err != nil {
		return st, err
	}

	for ci := range st.Status {
		if st.Status[ci] == Unseen {
			st.Status[ci] = Unallocated
		}
	}
	return st, nil
}

func (a *Allocator) eligible(ctx context.Context, st *State, pairs []models.ScoredPair) ([]int, error) {
	order := make([]int, 0, len(pairs))
	for i := range pairs {
		if a.opts.Eligibility != nil {
			if i%a.opts.CheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
			p := &pairs[i]
			ok, err := a.opts.Eligibility.Allows(p, &st.Candidates[p.CandidateIndex], &st.Internships[p.InternshipIndex])
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		order = append(order, i)
	}
	return order, nil
}

// walk merges the pre-sorted pair order with an overlay heap of pairs whose
// priority moved after a gender-balance recount. A moved pair's slot in the
// sorted order is skipped; only its newest heap entry is live.
type walk struct {
	alloc     *Allocator
	st        *State
	pairs     []models.ScoredPair
	order     []int
	effective []float64
	gen       []int
	moved     []bool
	overlay   overlayHeap
	byIntern  [][]int
	balancing bool
}

func newWalk(a *Allocator, st *State, pairs []models.ScoredPair, order []int) *walk {
	w := &walk{
		alloc:     a,
		st:        st,
		pairs:     pairs,
		order:     order,
		balancing: a.adjuster != nil && a.adjuster.Boosts().GenderBalanceEnabled,
	}
	if !w.balancing {
		return w
	}
	w.effective = make([]float64, len(pairs))
	w.gen = make([]int, len(pairs))
	w.moved = make([]bool, len(pairs))
	w.byIntern = make([][]int, len(st.Internships))
	for _, idx := range order {
		w.effective[idx] = pairs[idx].AdjustedScore
		ii := pairs[idx].InternshipIndex
		w.byIntern[ii] = append(w.byIntern[ii], idx)
	}
	w.overlay.walk = w
	return w
}

func (w *walk) score(idx int) float64 {
	if w.balancing {
		return w.effective[idx]
	}
	return w.pairs[idx].AdjustedScore
}

// next yields the highest-priority live pair, or -1 when exhausted
func (w *walk) next(pos *int) int {
	if !w.balancing {
		if *pos >= len(w.order) {
			return -1
		}
		idx := w.order[*pos]
		*pos++
		return idx
	}

	for *pos < len(w.order) && w.moved[w.order[*pos]] {
		*pos++
	}
	for w.overlay.Len() > 0 && w.overlay.entries[0].gen != w.gen[w.overlay.entries[0].idx] {
		heap.Pop(&w.overlay)
	}

	haveSorted := *pos < len(w.order)
	haveHeap := w.overlay.Len() > 0
	switch {
	case !haveSorted && !haveHeap:
		return -1
	case haveHeap && (!haveSorted || w.before(w.overlay.entries[0], w.order[*pos])):
		return heap.Pop(&w.overlay).(overlayEntry).idx
	default:
		idx := w.order[*pos]
		*pos++
		return idx
	}
}

// before reports whether a live overlay entry outranks an unmoved sorted pair
func (w *walk) before(e overlayEntry, j int) bool {
	return Less(&w.pairs[e.idx], e.key, &w.pairs[j], w.pairs[j].AdjustedScore)
}

func (w *walk) run(ctx context.Context) error {
	interval := w.alloc.opts.CheckInterval
	pos := 0
	for steps := 0; ; steps++ {
		if steps%interval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		idx := w.next(&pos)
		if idx < 0 {
			return nil
		}

		p := &w.pairs[idx]
		ci, ii := p.CandidateIndex, p.InternshipIndex
		if w.st.Status[ci] == Assigned || w.st.Remaining[ii] <= 0 {
			continue
		}

		final := w.score(idx)
		w.st.commit(p, final, final-p.AdjustedScore)

		if w.balancing && w.st.Remaining[ii] > 0 {
			w.rebalance(ii)
		}
	}
}

// rebalance re-derives the gender-balance boost for the open pairs of one internship
func (w *walk) rebalance(ii int) {
	counts := w.st.GenderCounts[ii]
	for _, idx := range w.byIntern[ii] {
		p := &w.pairs[idx]
		if w.st.Status[p.CandidateIndex] == Assigned {
			continue
		}
		boost := w.alloc.adjuster.GenderBoost(w.st.Candidates[p.CandidateIndex].Gender, counts)
		next := fairness.Clamp(p.AdjustedScore + boost)
		if next == w.effective[idx] {
			continue
		}
		w.effective[idx] = next
		w.gen[idx]++
		w.moved[idx] = true
		heap.Push(&w.overlay, overlayEntry{idx: idx, gen: w.gen[idx], key: next})
	}
}

// overlayEntry keeps the score it was pushed with. A later recount pushes a
// fresh entry instead of changing this one, so the heap order stays valid.
type overlayEntry struct {
	idx int
	gen int
	key float64
}

type overlayHeap struct {
	walk    *walk
	entries []overlayEntry
}

func (h overlayHeap) Len() int { return len(h.entries) }
func (h overlayHeap) Less(i, j int) bool {
	a, b := h.entries[i], h.entries[j]
	return Less(&h.walk.pairs[a.idx], a.key, &h.walk.pairs[b.idx], b.key)
}
func (h overlayHeap) Swap(i, j int) { h.entries[i], h.entries[j] = h.entries[j], h.entries[i] }

func (h *overlayHeap) Push(x any) {
	h.entries = append(h.entries, x.(overlayEntry))
}

func (h *overlayHeap) Pop() any {
	old := h.entries
	n := len(old)
	x := old[n-1]
	h.entries = old[:n-1]
	return x
}

// Result renders the committed state: assignments by final score descending
// then candidate id, unallocated ids ascending, utilization by internship id.
// Reasons are left empty for the explanation stage.
func (st *State) Result() *models.RunResult {
	res := &models.RunResult{
		Assignments: make([]models.Assignment, 0, len(st.Commits)),
		Unallocated: []string{},
		Utilization: make([]models.InternshipFill, 0, len(st.Internships)),
	}

	for _, c := range st.Commits {
		cand := &st.Candidates[c.Pair.CandidateIndex]
		res.Assignments = append(res.Assignments, models.Assignment{
			CandidateID:    c.Pair.CandidateID,
			InternshipID:   c.Pair.InternshipID,
			BaseScore:      c.Pair.BaseScore,
			FinalScore:     c.FinalScore,
			Category:       cand.Category,
			Area:           cand.Area,
			Gender:         cand.Gender,
			PastInternship: cand.PastInternship,
			Factors:        c.Pair.Factors,
		})
	}
	sort.Slice(res.Assignments, func(i, j int) bool {
		a, b := res.Assignments[i], res.Assignments[j]
		if a.FinalScore != b.FinalScore {
			return a.FinalScore > b.FinalScore
		}
		return a.CandidateID < b.CandidateID
	})

	for ci, s := range st.Status {
		if s != Assigned {
			res.Unallocated = append(res.Unallocated, st.Candidates[ci].ID)
		}
	}
	sort.Strings(res.Unallocated)

	for ii, in := range st.Internships {
		res.Utilization = append(res.Utilization, models.InternshipFill{
			InternshipID: in.ID,
			Capacity:     in.Capacity,
			Filled:       in.Capacity - st.Remaining[ii],
		})
	}
	sort.Slice(res.Utilization, func(i, j int) bool {
		return res.Utilization[i].InternshipID < res.Utilization[j].InternshipID
	})

	return res
}
