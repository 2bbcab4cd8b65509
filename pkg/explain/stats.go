package explain

import (
	"fmt"
	"math"
	"sort"

	"github.com/arnavshah/internship-allocator-go/pkg/models"
)

// HighScoreThreshold is the final score counted as a high-quality placement
const HighScoreThreshold = 80

// Bucket is one bar of the score histogram
type Bucket struct {
	Label string `json:"label"`
	Min   int    `json:"min"`
	Max   int    `json:"max"`
	Count int    `json:"count"`
}

// CategoryComparison contrasts raw and boosted scores for one category
type CategoryComparison struct {
	Category      models.Category `json:"category"`
	Candidates    int             `json:"candidates"`
	Allocated     int             `json:"allocated"`
	PlacementRate float64         `json:"placement_rate"`
	AverageBase   float64         `json:"average_base"`
	AverageFinal  float64         `json:"average_final"`
}

// Utilization reports how full one internship ended up
type Utilization struct {
	InternshipID string  `json:"internship_id"`
	Title        string  `json:"title"`
	Capacity     int     `json:"capacity"`
	Filled       int     `json:"filled"`
	Rate         float64 `json:"rate"`
}

// Statistics is the run-level summary consumed by dashboards and reports
type Statistics struct {
	TotalCandidates     int                  `json:"total_candidates"`
	TotalInternships    int                  `json:"total_internships"`
	Allocated           int                  `json:"allocated"`
	Unallocated         int                  `json:"unallocated"`
	AverageScore        float64              `json:"average_score"`
	AverageBaseScore    float64              `json:"average_base_score"`
	HighScores          int                  `json:"high_scores"`
	UniqueCategories    int                  `json:"unique_categories"`
	ScoreHistogram      []Bucket             `json:"score_histogram"`
	ByCategory          map[string]int       `json:"by_category"`
	ByArea              map[string]int       `json:"by_area"`
	ByGender            map[string]int       `json:"by_gender"`
	ByPastParticipation map[string]int       `json:"by_past_participation"`
	BoostComparison     []CategoryComparison `json:"boost_comparison"`
	PlacementParity     float64              `json:"placement_parity"`
	TotalCapacity       int                  `json:"total_capacity"`
	OverallUtilization  float64              `json:"overall_utilization"`
	Utilization         []Utilization        `json:"utilization"`
}

// PastLabel renders the past-participation flag the way the results table shows it
func PastLabel(past bool) string {
	if past {
		return "Yes"
	}
	return "No"
}

// Summarize aggregates a run. candidates and internships are the inputs the
// run was computed from; they supply totals for people and seats that were
// never placed.
func Summarize(result *models.RunResult, candidates []models.Candidate, internships []models.Internship) Statistics {
	stats := Statistics{
		TotalCandidates:     len(candidates),
		TotalInternships:    len(internships),
		Allocated:           len(result.Assignments),
		Unallocated:         len(result.Unallocated),
		ScoreHistogram:      histogram(result.Assignments),
		ByCategory:          make(map[string]int),
		ByArea:              make(map[string]int),
		ByGender:            make(map[string]int),
		ByPastParticipation: map[string]int{"Yes": 0, "No": 0},
		BoostComparison:     []CategoryComparison{},
		Utilization:         []Utilization{},
	}
	for _, c := range models.Categories {
		stats.ByCategory[string(c)] = 0
	}
	for _, a := range models.Areas {
		stats.ByArea[string(a)] = 0
	}

	var sumFinal, sumBase float64
	seenCategory := make(map[models.Category]bool)
	for _, a := range result.Assignments {
		sumFinal += a.FinalScore
		sumBase += float64(a.BaseScore)
		if a.FinalScore >= HighScoreThreshold {
			stats.HighScores++
		}
		seenCategory[a.Category] = true
		stats.ByCategory[string(a.Category)]++
		stats.ByArea[string(a.Area)]++
		stats.ByGender[a.Gender.Label()]++
		stats.ByPastParticipation[PastLabel(a.PastInternship)]++
	}
	stats.UniqueCategories = len(seenCategory)
	if n := len(result.Assignments); n > 0 {
		stats.AverageScore = round2(sumFinal / float64(n))
		stats.AverageBaseScore = round2(sumBase / float64(n))
	}

	stats.BoostComparison = compareCategories(result, candidates)
	stats.PlacementParity = placementParity(stats.BoostComparison)

	filled := make(map[string]int, len(result.Utilization))
	for _, u := range result.Utilization {
		filled[u.InternshipID] = u.Filled
	}
	sorted := append([]models.Internship(nil), internships...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	totalFilled := 0
	for _, in := range sorted {
		u := Utilization{
			InternshipID: in.ID,
			Title:        in.Title,
			Capacity:     in.Capacity,
			Filled:       filled[in.ID],
		}
		if in.Capacity > 0 {
			u.Rate = round2(float64(u.Filled) / float64(in.Capacity))
		}
		stats.TotalCapacity += in.Capacity
		totalFilled += u.Filled
		stats.Utilization = append(stats.Utilization, u)
	}
	if stats.TotalCapacity > 0 {
		stats.OverallUtilization = round2(float64(totalFilled) / float64(stats.TotalCapacity))
	}

	return stats
}

func histogram(assignments []models.Assignment) []Bucket {
	buckets := make([]Bucket, 10)
	for i := range buckets {
		lo, hi := i*10, i*10+9
		if i == 9 {
			hi = 100
		}
		buckets[i] = Bucket{Label: fmt.Sprintf("%d-%d", lo, hi), Min: lo, Max: hi}
	}
	for _, a := range assignments {
		i := int(a.FinalScore) / 10
		if i > 9 {
			i = 9
		}
		if i < 0 {
			i = 0
		}
		buckets[i].Count++
	}
	return buckets
}

func compareCategories(result *models.RunResult, candidates []models.Candidate) []CategoryComparison {
	byCat := make(map[models.Category]*CategoryComparison)
	for _, c := range candidates {
		cmp, ok := byCat[c.Category]
		if !ok {
			cmp = &CategoryComparison{Category: c.Category}
			byCat[c.Category] = cmp
		}
		cmp.Candidates++
	}
	for _, a := range result.Assignments {
		cmp, ok := byCat[a.Category]
		if !ok {
			cmp = &CategoryComparison{Category: a.Category}
			byCat[a.Category] = cmp
		}
		cmp.Allocated++
		cmp.AverageBase += float64(a.BaseScore)
		cmp.AverageFinal += a.FinalScore
	}

	out := []CategoryComparison{}
	for _, c := range models.Categories {
		cmp, ok := byCat[c]
		if !ok {
			continue
		}
		if cmp.Allocated > 0 {
			cmp.AverageBase = round2(cmp.AverageBase / float64(cmp.Allocated))
			cmp.AverageFinal = round2(cmp.AverageFinal / float64(cmp.Allocated))
		}
		if cmp.Candidates > 0 {
			cmp.PlacementRate = round2(float64(cmp.Allocated) / float64(cmp.Candidates))
		}
		out = append(out, *cmp)
	}
	return out
}

// placementParity returns a percentage (0-100) describing how evenly
// categories were placed. 100% means every category has the same placement
// rate (standard deviation 0).
func placementParity(cmps []CategoryComparison) float64 {
	if len(cmps) == 0 {
		return 100.0
	}

	var sum float64
	for _, c := range cmps {
		sum += c.PlacementRate
	}
	if sum == 0 {
		return 100.0 // nobody placed anywhere is still even
	}
	mean := sum / float64(len(cmps))

	var varianceSum float64
	for _, c := range cmps {
		diff := c.PlacementRate - mean
		varianceSum += diff * diff
	}
	stdDev := math.Sqrt(varianceSum / float64(len(cmps)))

	score := (1.0 - (stdDev / mean)) * 100.0
	if score < 0 {
		return 0.0
	}
	return round2(score)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Records renders the results table rows in result order
func Records(result *models.RunResult, candidates []models.Candidate, internships []models.Internship) []models.AllocationRecord {
	names := make(map[string]string, len(candidates))
	for _, c := range candidates {
		names[c.ID] = c.Name
	}
	titles := make(map[string]string, len(internships))
	for _, in := range internships {
		titles[in.ID] = in.Title
	}

	out := make([]models.AllocationRecord, 0, len(result.Assignments))
	for _, a := range result.Assignments {
		out = append(out, models.AllocationRecord{
			Candidate:         names[a.CandidateID],
			Internship:        titles[a.InternshipID],
			Score:             round2(a.FinalScore),
			Reason:            a.Reason,
			Category:          string(a.Category),
			Gender:            a.Gender.Label(),
			Area:              string(a.Area),
			PastParticipation: PastLabel(a.PastInternship),
		})
	}
	return out
}
