// Package engine composes the allocation pipeline: normalize, score, adjust,
// assign and explain. An Engine holds only validated configuration, so one
// instance can serve concurrent runs.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/arnavshah/internship-allocator-go/pkg/allocator"
	"github.com/arnavshah/internship-allocator-go/pkg/config"
	"github.com/arnavshah/internship-allocator-go/pkg/explain"
	"github.com/arnavshah/internship-allocator-go/pkg/fairness"
	"github.com/arnavshah/internship-allocator-go/pkg/logger"
	"github.com/arnavshah/internship-allocator-go/pkg/metrics"
	"github.com/arnavshah/internship-allocator-go/pkg/models"
	"github.com/arnavshah/internship-allocator-go/pkg/normalizer"
	"github.com/arnavshah/internship-allocator-go/pkg/scoring"
)

// Pipeline phase names, used in logs, metrics and CancellationError
const (
	PhaseNormalize = "normalize"
	PhaseScore     = "score"
	PhaseAdjust    = "adjust"
	PhaseAssign    = "assign"
	PhaseExplain   = "explain"
)

// Outcome is everything one Allocate call produces
type Outcome struct {
	RunID            string                       `json:"run_id"`
	Result           *models.RunResult            `json:"result"`
	Records          []models.AllocationRecord    `json:"records"`
	Statistics       explain.Statistics           `json:"statistics"`
	ValidationErrors []normalizer.ValidationError `json:"validation_errors"`
	Candidates       []models.Candidate           `json:"-"`
	Internships      []models.Internship          `json:"-"`
}

// Engine runs allocations with a fixed configuration
type Engine struct {
	cfg        config.EngineConfig
	calculator *scoring.Calculator
	adjuster   *fairness.Adjuster
	allocator  *allocator.Allocator
	log        logger.Logger
}

// New validates cfg and builds the pipeline stages. Any invalid setting
// yields a *ConfigurationError.
func New(cfg config.EngineConfig, log logger.Logger) (*Engine, error) {
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	calc, err := scoring.NewCalculator(cfg.Weights)
	if err != nil {
		return nil, &ConfigurationError{Field: "engine.weights", Reason: err.Error()}
	}
	adj, err := fairness.NewAdjuster(cfg.Boosts)
	if err != nil {
		return nil, &ConfigurationError{Field: "engine.boosts", Reason: err.Error()}
	}
	if cfg.Workers < 0 {
		return nil, &ConfigurationError{Field: "engine.workers", Reason: fmt.Sprintf("must be >= 0, got %d", cfg.Workers)}
	}
	if cfg.CheckInterval < 0 {
		return nil, &ConfigurationError{Field: "engine.check_interval", Reason: fmt.Sprintf("must be >= 0, got %d", cfg.CheckInterval)}
	}
	elig, err := allocator.NewEligibility(cfg.EligibilityExpression)
	if err != nil {
		return nil, &ConfigurationError{Field: "engine.eligibility_expression", Reason: err.Error()}
	}

	alloc := allocator.NewAllocator(adj, allocator.Options{
		CheckInterval: cfg.CheckInterval,
		Eligibility:   elig,
	})

	return &Engine{
		cfg:        cfg,
		calculator: calc,
		adjuster:   adj,
		allocator:  alloc,
		log:        log,
	}, nil
}

// Config returns the engine's validated configuration
func (e *Engine) Config() config.EngineConfig {
	return e.cfg
}

// Allocate normalizes raw rows and runs the pipeline over the rows that
// passed validation. Rejected rows come back in Outcome.ValidationErrors;
// whether they should fail the request is the caller's decision.
func (e *Engine) Allocate(ctx context.Context, candidateRows, internshipRows []map[string]string) (*Outcome, error) {
	runID := uuid.New().String()
	log := e.log.WithFields(map[string]interface{}{"run_id": runID})

	start := time.Now()
	norm := normalizer.Normalize(candidateRows, internshipRows)
	e.observe(PhaseNormalize, start)
	for _, ve := range norm.Errors {
		metrics.ValidationErrors.WithLabelValues(ve.Entity).Inc()
	}
	if len(norm.Errors) > 0 {
		log.Warn("Rejected input rows", map[string]interface{}{
			"errors":         len(norm.Errors),
			"candidates_ok":  len(norm.Candidates),
			"internships_ok": len(norm.Internships),
		})
	}
	if err := ctx.Err(); err != nil {
		metrics.AllocationRuns.WithLabelValues(metrics.OutcomeCancelled).Inc()
		return nil, &CancellationError{Phase: PhaseNormalize, Err: err}
	}

	result, err := e.run(ctx, log, norm.Candidates, norm.Internships)
	if err != nil {
		return nil, err
	}

	return &Outcome{
		RunID:            runID,
		Result:           result,
		Records:          explain.Records(result, norm.Candidates, norm.Internships),
		Statistics:       explain.Summarize(result, norm.Candidates, norm.Internships),
		ValidationErrors: append([]normalizer.ValidationError{}, norm.Errors...),
		Candidates:       norm.Candidates,
		Internships:      norm.Internships,
	}, nil
}

// Run allocates already-normalized entities and returns the explained result
func (e *Engine) Run(ctx context.Context, candidates []models.Candidate, internships []models.Internship) (*models.RunResult, error) {
	return e.run(ctx, e.log, candidates, internships)
}

func (e *Engine) run(ctx context.Context, log logger.Logger, candidates []models.Candidate, internships []models.Internship) (*models.RunResult, error) {
	if _, err := TotalCapacity(internships); err != nil {
		metrics.AllocationRuns.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, err
	}

	result, err := e.pipeline(ctx, log, candidates, internships)
	if err != nil {
		var cancelled *CancellationError
		if errors.As(err, &cancelled) {
			metrics.AllocationRuns.WithLabelValues(metrics.OutcomeCancelled).Inc()
			log.Warn("Allocation cancelled", map[string]interface{}{"phase": cancelled.Phase})
		} else {
			metrics.AllocationRuns.WithLabelValues(metrics.OutcomeInvalid).Inc()
			log.WithError(err).Error("Allocation failed", nil)
		}
		return nil, err
	}

	metrics.AllocationRuns.WithLabelValues(metrics.OutcomeSuccess).Inc()
	metrics.CandidatesPlaced.Add(float64(len(result.Assignments)))
	metrics.CandidatesUnallocated.Add(float64(len(result.Unallocated)))
	log.Info("Allocation completed", map[string]interface{}{
		"candidates":  len(candidates),
		"internships": len(internships),
		"allocated":   len(result.Assignments),
		"unallocated": len(result.Unallocated),
	})
	return result, nil
}

func (e *Engine) pipeline(ctx context.Context, log logger.Logger, candidates []models.Candidate, internships []models.Internship) (*models.RunResult, error) {
	start := time.Now()
	pairs, err := e.calculator.ScoreAll(ctx, candidates, internships, e.cfg.Workers)
	if err != nil {
		return nil, phaseError(PhaseScore, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, &CancellationError{Phase: PhaseScore, Err: err}
	}
	e.observe(PhaseScore, start)
	metrics.ScoredPairs.Observe(float64(len(pairs)))
	log.Debug("Scored pairs", map[string]interface{}{"pairs": len(pairs), "elapsed": time.Since(start).String()})

	start = time.Now()
	pairs, err = e.adjuster.AdjustAll(ctx, pairs, candidates, e.cfg.Workers)
	if err != nil {
		return nil, phaseError(PhaseAdjust, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, &CancellationError{Phase: PhaseAdjust, Err: err}
	}
	e.observe(PhaseAdjust, start)
	log.Debug("Adjusted pairs", map[string]interface{}{"elapsed": time.Since(start).String()})

	start = time.Now()
	st, err := e.allocator.Assign(ctx, allocator.NewState(candidates, internships), pairs)
	if err != nil {
		return nil, phaseError(PhaseAssign, err)
	}
	e.observe(PhaseAssign, start)
	log.Debug("Assigned pairs", map[string]interface{}{"commits": len(st.Commits), "elapsed": time.Since(start).String()})

	start = time.Now()
	result := explain.Explain(st.Result())
	e.observe(PhaseExplain, start)
	return result, nil
}

func (e *Engine) observe(phase string, start time.Time) {
	metrics.AllocationPhaseDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}

// phaseError classifies a stage failure
func phaseError(phase string, err error) error {
	if isCancellation(err) {
		return &CancellationError{Phase: phase, Err: err}
	}
	var eligErr *allocator.EligibilityError
	if errors.As(err, &eligErr) {
		return &ConfigurationError{Field: "engine.eligibility_expression", Reason: eligErr.Error()}
	}
	return fmt.Errorf("%s: %w", phase, err)
}

// TotalCapacity sums capacities, rejecting a total that does not fit in an int
func TotalCapacity(internships []models.Internship) (int, error) {
	total := 0
	for _, in := range internships {
		if in.Capacity > math.MaxInt-total {
			return 0, &ConfigurationError{
				Field:  "internships.capacity",
				Reason: fmt.Sprintf("total capacity overflows at internship %s", in.ID),
			}
		}
		total += in.Capacity
	}
	return total, nil
}
