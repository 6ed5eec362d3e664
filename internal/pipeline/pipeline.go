// Package pipeline runs the full analysis on one dataset: selection, term
// exploration, diagnostics of the untransformed model and Box-Cox refinement.
// Every intermediate artifact is kept on the returned Run.
package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/KaramelBytes/regdiag-cli/internal/dataset"
	"github.com/KaramelBytes/regdiag-cli/internal/diagnostics"
	"github.com/KaramelBytes/regdiag-cli/internal/model"
	"github.com/KaramelBytes/regdiag-cli/internal/selection"
	"github.com/KaramelBytes/regdiag-cli/internal/terms"
	"github.com/KaramelBytes/regdiag-cli/internal/transform"
)

// ErrEmptyModel means no strategy retained any predictor.
var ErrEmptyModel = errors.New("no predictor survived selection")

// Config gathers the options for every stage.
type Config struct {
	Response  string
	Selection selection.Options
	Refine    transform.Options
	// Curvature adds significant squared predictors before the interaction search.
	Curvature bool
	// SkipInteractions disables the pairwise interaction search.
	SkipInteractions bool
	Logger           *zerolog.Logger
}

// DefaultConfig uses the default options of every stage for close_price.
func DefaultConfig() Config {
	return Config{
		Response:  dataset.DefaultOptions().Response,
		Selection: selection.DefaultOptions(),
		Refine:    transform.DefaultOptions(),
	}
}

// Run is the provenance record of one pipeline execution.
type Run struct {
	ID            string
	Dataset       string
	Observations  int
	Predictors    []string
	Dropped       []string
	Candidates    *selection.Candidates
	Base          model.Spec
	Curvature     *terms.Exploration
	Interactions  *terms.Exploration
	Explored      model.Spec
	Initial       *model.Fitted
	InitialReport *diagnostics.Report
	Refinement    *transform.Refinement
	Notes         []string
	StartedAt     time.Time
	FinishedAt    time.Time
}

func (r *Run) note(format string, args ...any) {
	r.Notes = append(r.Notes, fmt.Sprintf(format, args...))
}

// Execute runs every stage on ds.
func Execute(ds *dataset.Dataset, cfg Config) (*Run, error) {
	log := cfg.Logger
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	if cfg.Selection.Logger == nil {
		cfg.Selection.Logger = log
	}
	if cfg.Refine.Logger == nil {
		cfg.Refine.Logger = log
	}
	resp := cfg.Response
	if resp == "" {
		resp = ds.Response()
	}
	src, err := ds.WithResponse(resp)
	if err != nil {
		return nil, err
	}
	run := &Run{
		ID:           uuid.NewString(),
		Dataset:      src.Name(),
		Observations: src.Len(),
		Predictors:   src.Predictors(),
		Dropped:      src.Dropped(),
		StartedAt:    time.Now(),
	}
	log.Info().Str("run", run.ID).Str("dataset", run.Dataset).Int("rows", run.Observations).Int("predictors", len(run.Predictors)).Msg("pipeline started")

	cands, err := selection.Select(src, src.Response(), cfg.Selection)
	if err != nil {
		return nil, fmt.Errorf("selection: %w", err)
	}
	run.Candidates = cands
	run.Base = cands.Common()
	if len(run.Base.Predictors()) == 0 {
		run.note("strategies share no predictor; using the backward-selection model")
		run.Base = cands.Backward.Spec
	}
	if len(run.Base.Predictors()) == 0 {
		return nil, fmt.Errorf("%s: %w", run.Dataset, ErrEmptyModel)
	}
	log.Info().Str("base", run.Base.String()).Msg("base model")

	alpha := cfg.Refine.Thresholds.Alpha
	explored := run.Base
	if cfg.Curvature {
		ex, err := terms.CheckCurvature(src, explored, alpha)
		if err != nil {
			return nil, fmt.Errorf("curvature: %w", err)
		}
		run.Curvature = ex
		explored = ex.Spec
	}
	if !cfg.SkipInteractions && len(explored.Predictors()) > 1 {
		ex, err := terms.CheckInteractions(src, explored, alpha)
		var ide *model.InsufficientDataError
		switch {
		case errors.As(err, &ide):
			run.note("interaction search skipped: %v", err)
		case err != nil:
			return nil, fmt.Errorf("interactions: %w", err)
		default:
			run.Interactions = ex
			explored = ex.Spec
		}
	}
	run.Explored = explored

	if run.Initial, err = model.Fit(src, explored); err != nil {
		return nil, fmt.Errorf("initial fit: %w", err)
	}
	run.InitialReport = diagnostics.Diagnose(run.Initial, cfg.Refine.Thresholds)
	log.Info().Int("failures", len(run.InitialReport.Failures())).Float64("r2", run.Initial.RSquared()).Msg("initial diagnostics")

	if run.Refinement, err = transform.Refine(src, explored, cfg.Refine); err != nil {
		return nil, fmt.Errorf("refine: %w", err)
	}
	if !run.Refinement.Converged {
		run.note("refinement stopped before every assumption held: %s", run.Refinement.StopReason)
	}
	run.FinishedAt = time.Now()
	log.Info().Str("run", run.ID).Dur("elapsed", run.FinishedAt.Sub(run.StartedAt)).Msg("pipeline finished")
	return run, nil
}
