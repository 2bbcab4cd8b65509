package allocator

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/arnavshah/internship-allocator-go/pkg/models"
)

// Eligibility is a compiled floor expression deciding which pairs may be
// assigned at all. The expression sees three maps: pair, candidate and
// internship, e.g.
//
//	pair.skill_overlap > 0 || pair.location_rank > 0 || pair.sector_rank > 0
type Eligibility struct {
	expr string
	prg  cel.Program
}

// EligibilityError reports a floor expression that could not be compiled or evaluated
type EligibilityError struct {
	Expression string
	Err        error
}

func (e *EligibilityError) Error() string {
	return fmt.Sprintf("eligibility expression %q: %v", e.Expression, e.Err)
}

func (e *EligibilityError) Unwrap() error {
	return e.Err
}

// NewEligibility compiles expr. An empty expression yields nil, meaning every pair is eligible.
func NewEligibility(expr string) (*Eligibility, error) {
	if expr == "" {
		return nil, nil
	}

	factsType := cel.MapType(cel.StringType, cel.DynType)
	env, err := cel.NewEnv(
		cel.Variable("pair", factsType),
		cel.Variable("candidate", factsType),
		cel.Variable("internship", factsType),
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, &EligibilityError{Expression: expr, Err: err}
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, &EligibilityError{Expression: expr, Err: issues.Err()}
	}
	out := ast.OutputType()
	if !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, &EligibilityError{Expression: expr, Err: fmt.Errorf("must evaluate to bool, got %s", out)}
	}

	prg, err := env.Program(ast, cel.CostLimit(100000))
	if err != nil {
		return nil, &EligibilityError{Expression: expr, Err: err}
	}

	return &Eligibility{expr: expr, prg: prg}, nil
}

// Expression returns the source text
func (e *Eligibility) Expression() string {
	return e.expr
}

// Allows evaluates the floor for one pair
func (e *Eligibility) Allows(p *models.ScoredPair, c *models.Candidate, in *models.Internship) (bool, error) {
	out, _, err := e.prg.Eval(map[string]any{
		"pair":       pairFacts(p),
		"candidate":  candidateFacts(c),
		"internship": internshipFacts(in),
	})
	if err != nil {
		return false, &EligibilityError{Expression: e.expr, Err: err}
	}
	allowed, ok := out.Value().(bool)
	if !ok {
		return false, &EligibilityError{Expression: e.expr, Err: fmt.Errorf("result %v is not a bool", out.Value())}
	}
	return allowed, nil
}

func pairFacts(p *models.ScoredPair) map[string]any {
	return map[string]any{
		"skill_overlap":       int64(p.Components.SkillOverlap),
		"skill_ratio":         p.Components.SkillRatio,
		"location_rank":       int64(p.Components.LocationRank),
		"sector_rank":         int64(p.Components.SectorRank),
		"qualification_ratio": p.Components.QualificationRatio,
		"base_score":          int64(p.BaseScore),
		"adjusted_score":      p.AdjustedScore,
	}
}

func candidateFacts(c *models.Candidate) map[string]any {
	return map[string]any{
		"id":              c.ID,
		"category":        string(c.Category),
		"area":            string(c.Area),
		"gender":          string(c.Gender),
		"past_internship": c.PastInternship,
		"skills":          c.Skills,
	}
}

func internshipFacts(in *models.Internship) map[string]any {
	return map[string]any{
		"id":       in.ID,
		"location": in.Location,
		"sector":   in.Sector,
		"capacity": int64(in.Capacity),
		"skills":   in.RequiredSkills,
	}
}
