// Package pipeline runs a benchmark: it builds the adapters a vendor set and
// pipeline call for, evaluates every query case in sequence and writes the
// run artifacts.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/hyperjump/kurabe/internal/config"
)

// ErrGuard marks a pipeline configuration that must not run.
var ErrGuard = errors.New("pipeline guard")

// LexicalOnlyProfile is the pipeline id reserved for pure BM25 runs.
const LexicalOnlyProfile = "bm25_only"

// CheckGuards rejects pipelines whose step set would make results
// incomparable. It runs before any input is read or artifact is created.
func CheckGuards(p *config.Pipeline) error {
	if p.ID == LexicalOnlyProfile {
		var bad []config.Step
		for _, s := range []config.Step{config.StepDense, config.StepFusion, config.StepRerank} {
			if p.Has(s) {
				bad = append(bad, s)
			}
		}
		if len(bad) > 0 {
			return fmt.Errorf("%w: %s must not include %v (steps=%v)", ErrGuard, LexicalOnlyProfile, bad, p.Steps)
		}
		if !p.Has(config.StepBM25) {
			return fmt.Errorf("%w: %s must include bm25 (steps=%v)", ErrGuard, LexicalOnlyProfile, p.Steps)
		}
	}
	if p.Has(config.StepFusion) && !(p.Has(config.StepDense) && p.Has(config.StepBM25)) {
		return fmt.Errorf("%w: fusion requires both dense and bm25 (steps=%v)", ErrGuard, p.Steps)
	}
	return nil
}
