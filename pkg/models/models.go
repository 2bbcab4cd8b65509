package models

import "strings"

// Category is a candidate's reservation category
type Category string

const (
	CategoryGeneral Category = "General"
	CategoryOBC     Category = "OBC"
	CategoryEWS     Category = "EWS"
	CategorySC      Category = "SC"
	CategoryST      Category = "ST"
)

// Categories lists every reservation category in reporting order
var Categories = []Category{CategoryGeneral, CategoryOBC, CategoryEWS, CategorySC, CategoryST}

// ParseCategory maps free-form input onto the closed category set
func ParseCategory(s string) (Category, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "general", "gen":
		return CategoryGeneral, true
	case "obc":
		return CategoryOBC, true
	case "ews":
		return CategoryEWS, true
	case "sc":
		return CategorySC, true
	case "st":
		return CategoryST, true
	}
	return "", false
}

// Area is where a candidate lives
type Area string

const (
	AreaRural Area = "Rural"
	AreaUrban Area = "Urban"
)

// Areas lists every area in reporting order
var Areas = []Area{AreaRural, AreaUrban}

// ParseArea maps free-form input onto the closed area set
func ParseArea(s string) (Area, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rural":
		return AreaRural, true
	case "urban":
		return AreaUrban, true
	}
	return "", false
}

// Gender is a candidate's declared gender. The zero value means not declared.
type Gender string

const (
	GenderUnspecified Gender = ""
	GenderMale        Gender = "Male"
	GenderFemale      Gender = "Female"
	GenderOther       Gender = "Other"
)

// ParseGender maps free-form input onto the gender set; empty input is valid
func ParseGender(s string) (Gender, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return GenderUnspecified, true
	case "m", "male":
		return GenderMale, true
	case "f", "female":
		return GenderFemale, true
	case "o", "other":
		return GenderOther, true
	}
	return "", false
}

// Label returns the display form used in result tables
func (g Gender) Label() string {
	if g == GenderUnspecified {
		return "Unspecified"
	}
	return string(g)
}

// Candidate represents a person applying for an internship
type Candidate struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Skills              []string `json:"skills"`
	Qualifications      []string `json:"qualifications"`
	LocationPreferences []string `json:"location_preferences"`
	SectorInterests     []string `json:"sector_interests"`
	Category            Category `json:"category"`
	Area                Area     `json:"area"`
	Gender              Gender   `json:"gender,omitempty"`
	PastInternship      bool     `json:"past_internship"`
}

// Internship represents an opening with a fixed number of seats
type Internship struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	RequiredSkills []string `json:"required_skills"`
	Qualifications []string `json:"qualifications"`
	Location       string   `json:"location"`
	Sector         string   `json:"sector"`
	Capacity       int      `json:"capacity"`
}

// FactorKind names the source of a score contribution
type FactorKind string

const (
	FactorSkills         FactorKind = "skills"
	FactorLocation       FactorKind = "location"
	FactorSector         FactorKind = "sector"
	FactorQualifications FactorKind = "qualifications"
	FactorCategory       FactorKind = "category"
	FactorArea           FactorKind = "area"
	FactorGender         FactorKind = "gender"
	FactorPast           FactorKind = "past"
)

// Factor is one tagged contribution to a pair's score
type Factor struct {
	Kind   FactorKind `json:"kind"`
	Tag    string     `json:"tag"`
	Points float64    `json:"points"`
}

// Breakdown holds the raw [0,1] credits behind a base score
type Breakdown struct {
	SkillOverlap       int     `json:"skill_overlap"`
	SkillRatio         float64 `json:"skill_ratio"`
	LocationRank       int     `json:"location_rank"`
	LocationCredit     float64 `json:"location_credit"`
	SectorRank         int     `json:"sector_rank"`
	SectorCredit       float64 `json:"sector_credit"`
	QualificationRatio float64 `json:"qualification_ratio"`
}

// ScoredPair is a candidate-internship pairing under consideration
type ScoredPair struct {
	CandidateID     string    `json:"candidate_id"`
	InternshipID    string    `json:"internship_id"`
	CandidateIndex  int       `json:"-"`
	InternshipIndex int       `json:"-"`
	BaseScore       int       `json:"base_score"`
	AdjustedScore   float64   `json:"adjusted_score"`
	Components      Breakdown `json:"components"`
	Factors         []Factor  `json:"factors"`
}

// Assignment represents a candidate placed on an internship
type Assignment struct {
	CandidateID    string   `json:"candidate_id"`
	InternshipID   string   `json:"internship_id"`
	BaseScore      int      `json:"base_score"`
	FinalScore     float64  `json:"final_score"`
	Reason         string   `json:"reason"`
	Category       Category `json:"category"`
	Area           Area     `json:"area"`
	Gender         Gender   `json:"gender,omitempty"`
	PastInternship bool     `json:"past_internship"`
	Factors        []Factor `json:"factors"`
}

// InternshipFill reports how many seats of an internship were used
type InternshipFill struct {
	InternshipID string `json:"internship_id"`
	Capacity     int    `json:"capacity"`
	Filled       int    `json:"filled"`
}

// RunResult is the outcome of one allocation run
type RunResult struct {
	Assignments []Assignment     `json:"assignments"`
	Unallocated []string         `json:"unallocated"`
	Utilization []InternshipFill `json:"utilization"`
}

// AllocationRecord is the row shape consumed by the results table.
// Field names are part of the public contract.
type AllocationRecord struct {
	Candidate         string  `json:"Candidate"`
	Internship        string  `json:"Internship"`
	Score             float64 `json:"Score"`
	Reason            string  `json:"Reason"`
	Category          string  `json:"Category"`
	Gender            string  `json:"Gender"`
	Area              string  `json:"Area"`
	PastParticipation string  `json:"Past Participation"`
}

// AllocateInput is the data structure for the JSON allocation endpoint
type AllocateInput struct {
	Candidates   []map[string]any `json:"candidates"`
	Internships  []map[string]any `json:"internships"`
	AllowPartial *bool            `json:"allow_partial,omitempty"`
}
