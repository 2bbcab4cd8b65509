// Package normalizer turns raw tabular rows into canonical candidate and
// internship entities, collecting row-level validation errors instead of
// failing the whole batch.
package normalizer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arnavshah/internship-allocator-go/pkg/models"
)

const (
	EntityCandidate  = "candidate"
	EntityInternship = "internship"
)

// ValidationError describes one rejected field of one input row
type ValidationError struct {
	Entity string `json:"entity"`
	Row    int    `json:"row"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s row %d: %s: %s", e.Entity, e.Row, e.Field, e.Reason)
}

// Result holds the entities that passed validation and the errors of those that did not
type Result struct {
	Candidates  []models.Candidate
	Internships []models.Internship
	Errors      []ValidationError
}

// Valid reports whether every row was accepted
func (r *Result) Valid() bool {
	return len(r.Errors) == 0
}

var candidateColumns = []string{
	"id", "name", "skills", "qualifications", "location_preferences",
	"sector_interests", "category", "area", "past_internship",
}

var internshipColumns = []string{
	"id", "title", "required_skills", "qualifications", "location", "sector", "capacity",
}

// column aliases used by the upload prototype
var candidateAliases = map[string]string{
	"location":  "location_preferences",
	"locations": "location_preferences",
	"past":      "past_internship",
	"interests": "sector_interests",
}

var internshipAliases = map[string]string{
	"skills": "required_skills",
}

// Normalize validates both collections. Rows with any error are excluded.
func Normalize(candidateRows, internshipRows []map[string]string) *Result {
	res := &Result{
		Candidates:  []models.Candidate{},
		Internships: []models.Internship{},
	}

	seen := make(map[string]bool)
	for i, raw := range candidateRows {
		row := canonicalRow(raw, candidateAliases)
		cand, errs := parseCandidate(row, i+1)
		if len(errs) == 0 && seen[cand.ID] {
			errs = append(errs, ValidationError{EntityCandidate, i + 1, "id", "duplicate id " + cand.ID})
		}
		if len(errs) > 0 {
			res.Errors = append(res.Errors, errs...)
			continue
		}
		seen[cand.ID] = true
		res.Candidates = append(res.Candidates, cand)
	}

	seen = make(map[string]bool)
	for i, raw := range internshipRows {
		row := canonicalRow(raw, internshipAliases)
		intern, errs := parseInternship(row, i+1)
		if len(errs) == 0 && seen[intern.ID] {
			errs = append(errs, ValidationError{EntityInternship, i + 1, "id", "duplicate id " + intern.ID})
		}
		if len(errs) > 0 {
			res.Errors = append(res.Errors, errs...)
			continue
		}
		seen[intern.ID] = true
		res.Internships = append(res.Internships, intern)
	}

	return res
}

// canonicalRow lower-cases and trims keys and values, resolving aliases.
// A canonical column always wins over its alias.
func canonicalRow(raw map[string]string, aliases map[string]string) map[string]string {
	row := make(map[string]string, len(raw))
	for k, v := range raw {
		key := strings.ToLower(strings.TrimSpace(k))
		if _, isAlias := aliases[key]; isAlias {
			continue
		}
		row[key] = strings.TrimSpace(v)
	}
	for k, v := range raw {
		key := strings.ToLower(strings.TrimSpace(k))
		if target, ok := aliases[key]; ok {
			if _, exists := row[target]; !exists {
				row[target] = strings.TrimSpace(v)
			}
		}
	}
	return row
}

func missingColumns(row map[string]string, required []string, entity string, line int) []ValidationError {
	var errs []ValidationError
	for _, col := range required {
		if _, ok := row[col]; !ok {
			errs = append(errs, ValidationError{entity, line, col, "column missing"})
		}
	}
	return errs
}

func parseCandidate(row map[string]string, line int) (models.Candidate, []ValidationError) {
	errs := missingColumns(row, candidateColumns, EntityCandidate, line)
	if len(errs) > 0 {
		return models.Candidate{}, errs
	}
	fail := func(field, reason string) {
		errs = append(errs, ValidationError{EntityCandidate, line, field, reason})
	}

	c := models.Candidate{
		ID:                  row["id"],
		Name:                row["name"],
		Skills:              SplitSet(row["skills"]),
		Qualifications:      SplitSet(row["qualifications"]),
		LocationPreferences: SplitSet(row["location_preferences"]),
		SectorInterests:     SplitSet(row["sector_interests"]),
	}
	if c.ID == "" {
		fail("id", "must not be empty")
	}
	if c.Name == "" {
		c.Name = c.ID
	}

	if cat, ok := models.ParseCategory(row["category"]); ok {
		c.Category = cat
	} else {
		fail("category", fmt.Sprintf("unknown category %q (want General, OBC, EWS, SC or ST)", row["category"]))
	}
	if area, ok := models.ParseArea(row["area"]); ok {
		c.Area = area
	} else {
		fail("area", fmt.Sprintf("unknown area %q (want Rural or Urban)", row["area"]))
	}
	if g, ok := models.ParseGender(row["gender"]); ok {
		c.Gender = g
	} else {
		fail("gender", fmt.Sprintf("unknown gender %q", row["gender"]))
	}
	if past, ok := parseFlag(row["past_internship"]); ok {
		c.PastInternship = past
	} else {
		fail("past_internship", fmt.Sprintf("not a boolean: %q", row["past_internship"]))
	}

	return c, errs
}

func parseInternship(row map[string]string, line int) (models.Internship, []ValidationError) {
	errs := missingColumns(row, internshipColumns, EntityInternship, line)
	if len(errs) > 0 {
		return models.Internship{}, errs
	}
	fail := func(field, reason string) {
		errs = append(errs, ValidationError{EntityInternship, line, field, reason})
	}

	in := models.Internship{
		ID:             row["id"],
		Title:          row["title"],
		RequiredSkills: SplitSet(row["required_skills"]),
		Qualifications: SplitSet(row["qualifications"]),
		Location:       row["location"],
		Sector:         row["sector"],
	}
	if in.ID == "" {
		fail("id", "must not be empty")
	}
	if in.Title == "" {
		in.Title = in.ID
	}

	raw := row["capacity"]
	if raw == "" {
		fail("capacity", "must not be empty")
	} else if capacity, err := strconv.Atoi(raw); err != nil {
		fail("capacity", fmt.Sprintf("not an integer: %q", raw))
	} else if capacity < 0 {
		fail("capacity", "must be >= 0")
	} else {
		in.Capacity = capacity
	}

	return in, errs
}

// SplitSet splits a comma list into trimmed, lower-cased, de-duplicated
// entries, keeping first-seen order.
func SplitSet(s string) []string {
	out := []string{}
	if strings.TrimSpace(s) == "" {
		return out
	}
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		item := strings.ToLower(strings.TrimSpace(part))
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

func parseFlag(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "false", "no", "n", "0":
		return false, true
	case "true", "yes", "y", "1":
		return true, true
	}
	return false, false
}
