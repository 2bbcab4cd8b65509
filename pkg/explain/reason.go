// Package explain renders reason sentences for placements and aggregates run
// statistics. Everything here reads a RunResult and never mutates it.
package explain

import (
	"sort"

	"github.com/arnavshah/internship-allocator-go/pkg/models"
)

// Reasons is the closed set of sentences a placement can be explained with
var Reasons = []string{
	ReasonSkillLocation, ReasonSkillSector, ReasonSkillQualification, ReasonSkill,
	ReasonLocationSector, ReasonLocationQualification, ReasonSectorQualification,
	ReasonLocation, ReasonSector, ReasonQualification,
	ReasonSkillCategory, ReasonLocationCategory, ReasonSectorCategory,
	ReasonSkillBoost, ReasonLocationBoost, ReasonSectorBoost, ReasonQualificationBoost,
	ReasonCategory, ReasonArea, ReasonGender, ReasonFallback,
}

const (
	ReasonSkillLocation         = "Strong skill and location match"
	ReasonSkillSector           = "Strong skill and sector match"
	ReasonSkillQualification    = "Strong skill and qualification match"
	ReasonSkill                 = "Strong skill match"
	ReasonLocationSector        = "Location and sector preference match"
	ReasonLocationQualification = "Location preference and qualification match"
	ReasonSectorQualification   = "Sector interest and qualification match"
	ReasonLocation              = "Preferred location match"
	ReasonSector                = "Preferred sector match"
	ReasonQualification         = "Qualification match"
	ReasonSkillCategory         = "Skill match with category-based priority boost"
	ReasonLocationCategory      = "Location match with category-based priority boost"
	ReasonSectorCategory        = "Sector match with category-based priority boost"
	ReasonSkillBoost            = "Skill match with fairness priority boost"
	ReasonLocationBoost         = "Location match with fairness priority boost"
	ReasonSectorBoost           = "Sector match with fairness priority boost"
	ReasonQualificationBoost    = "Qualification match with fairness priority boost"
	ReasonCategory              = "Category-based priority boost applied"
	ReasonArea                  = "Rural-area priority boost applied"
	ReasonGender                = "Gender-balance boost applied"
	ReasonFallback              = "Placed on remaining capacity"
)

var kindOrder = map[models.FactorKind]int{
	models.FactorSkills:         0,
	models.FactorLocation:       1,
	models.FactorSector:         2,
	models.FactorQualifications: 3,
	models.FactorCategory:       4,
	models.FactorArea:           5,
	models.FactorGender:         6,
}

var pairReasons = map[[2]models.FactorKind]string{
	{models.FactorSkills, models.FactorLocation}:         ReasonSkillLocation,
	{models.FactorSkills, models.FactorSector}:           ReasonSkillSector,
	{models.FactorSkills, models.FactorQualifications}:   ReasonSkillQualification,
	{models.FactorLocation, models.FactorSector}:         ReasonLocationSector,
	{models.FactorLocation, models.FactorQualifications}: ReasonLocationQualification,
	{models.FactorSector, models.FactorQualifications}:   ReasonSectorQualification,
	{models.FactorSkills, models.FactorCategory}:         ReasonSkillCategory,
	{models.FactorLocation, models.FactorCategory}:       ReasonLocationCategory,
	{models.FactorSector, models.FactorCategory}:         ReasonSectorCategory,
}

var singleReasons = map[models.FactorKind]string{
	models.FactorSkills:         ReasonSkill,
	models.FactorLocation:       ReasonLocation,
	models.FactorSector:         ReasonSector,
	models.FactorQualifications: ReasonQualification,
	models.FactorCategory:       ReasonCategory,
	models.FactorArea:           ReasonArea,
	models.FactorGender:         ReasonGender,
}

var boostReasons = map[models.FactorKind]string{
	models.FactorSkills:         ReasonSkillBoost,
	models.FactorLocation:       ReasonLocationBoost,
	models.FactorSector:         ReasonSectorBoost,
	models.FactorQualifications: ReasonQualificationBoost,
}

func isMatch(k models.FactorKind) bool {
	return k == models.FactorSkills || k == models.FactorLocation ||
		k == models.FactorSector || k == models.FactorQualifications
}

// TopFactors returns up to n positive factors, largest contribution first
func TopFactors(factors []models.Factor, n int) []models.Factor {
	pos := make([]models.Factor, 0, len(factors))
	for _, f := range factors {
		if _, known := kindOrder[f.Kind]; known && f.Points > 0 {
			pos = append(pos, f)
		}
	}
	sort.SliceStable(pos, func(i, j int) bool {
		if pos[i].Points != pos[j].Points {
			return pos[i].Points > pos[j].Points
		}
		return kindOrder[pos[i].Kind] < kindOrder[pos[j].Kind]
	})
	if len(pos) > n {
		pos = pos[:n]
	}
	return pos
}

// Reason maps the dominant one or two factors of a placement to a sentence
func Reason(factors []models.Factor) string {
	top := TopFactors(factors, 2)
	switch len(top) {
	case 0:
		return ReasonFallback
	case 1:
		return singleReasons[top[0].Kind]
	}

	a, b := top[0].Kind, top[1].Kind
	if kindOrder[b] < kindOrder[a] {
		a, b = b, a
	}
	if r, ok := pairReasons[[2]models.FactorKind{a, b}]; ok {
		return r
	}
	// a match paired with a non-category boost
	if isMatch(a) && !isMatch(b) {
		return boostReasons[a]
	}
	// two boosts: name the larger one
	return singleReasons[top[0].Kind]
}

// Explain returns a copy of result with every assignment's Reason filled in
func Explain(result *models.RunResult) *models.RunResult {
	out := &models.RunResult{
		Assignments: make([]models.Assignment, len(result.Assignments)),
		Unallocated: append([]string{}, result.Unallocated...),
		Utilization: append([]models.InternshipFill{}, result.Utilization...),
	}
	for i, a := range result.Assignments {
		a.Factors = append([]models.Factor(nil), a.Factors...)
		a.Reason = Reason(a.Factors)
		out.Assignments[i] = a
	}
	return out
}
