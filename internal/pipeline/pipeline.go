// Package pipeline runs the import of one Hibiscus export as a sequence of
// named steps sharing a State.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bxservice/hibiscus-recon/internal/importer"
	"github.com/bxservice/hibiscus-recon/internal/logger"
	"github.com/bxservice/hibiscus-recon/internal/model"
	"github.com/bxservice/hibiscus-recon/internal/runlog"
	"github.com/bxservice/hibiscus-recon/internal/statement"
)

// Step is a single step of the pipeline.
type Step interface {
	Name() string
	Execute(ctx context.Context, state *State) error
}

// State holds what the steps of one run produced.
type State struct {
	RunID string
	File  string

	Deleted    int
	Load       *importer.Result
	Statements []model.BankStatement
	Matches    []statement.MatchSummary
	Payments   []model.Payment

	details string
}

// report sets the run log details of the current step.
func (s *State) report(format string, args ...any) {
	s.details = fmt.Sprintf(format, args...)
}

// SkipError is returned by a step that had nothing to do. The run goes on.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	return "skipped: " + e.Reason
}

func skip(reason string) error {
	return &SkipError{Reason: reason}
}

// Pipeline executes its steps in order and stops at the first failure.
type Pipeline struct {
	steps  []Step
	runLog string
	log    zerolog.Logger
	newID  func() string
	now    func() time.Time
}

// New creates a Pipeline. Step outcomes are appended to the CSV at runLog
// unless it is empty.
func New(log zerolog.Logger, runLog string, steps ...Step) *Pipeline {
	return &Pipeline{
		steps:  steps,
		runLog: runLog,
		log:    log,
		newID:  uuid.NewString,
		now:    time.Now,
	}
}

// StepNames returns the names of the steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.Name()
	}
	return names
}

// Run executes every step for file. The returned State is never nil and
// holds what the steps before a failure produced.
func (p *Pipeline) Run(ctx context.Context, file string) (*State, error) {
	state := &State{RunID: p.newID(), File: file}
	log := p.log.With().Str("run_id", state.RunID).Str("file", filepath.Base(file)).Logger()
	ctx = logger.WithContext(ctx, log)

	var entries []runlog.Entry
	defer func() { p.record(log, entries) }()

	log.Info().Int("steps", len(p.steps)).Msg("pipeline started")
	for i, step := range p.steps {
		stepLog := log.With().Str("step", step.Name()).Logger()
		stepLog.Debug().Msg("step started")

		state.details = ""
		start := p.now()
		err := step.Execute(ctx, state)
		elapsed := p.now().Sub(start)

		entry := runlog.Entry{
			Timestamp: p.now(),
			RunID:     state.RunID,
			Step:      step.Name(),
			File:      file,
			Details:   state.details,
		}

		var skipped *SkipError
		switch {
		case errors.As(err, &skipped):
			entry.Status = runlog.StatusSkipped
			entry.Details = skipped.Reason
			stepLog.Warn().Str("reason", skipped.Reason).Msg("step skipped")
		case err != nil:
			entry.Status = runlog.StatusFailed
			entry.Details = err.Error()
			entries = append(entries, entry)
			stepLog.Error().Err(err).Dur("duration", elapsed).Msg("step failed")
			return state, fmt.Errorf("pipeline step %d (%s) failed: %w", i+1, step.Name(), err)
		default:
			entry.Status = runlog.StatusOK
			stepLog.Info().Dur("duration", elapsed).Str("details", state.details).Msg("step finished")
		}
		entries = append(entries, entry)
	}
	log.Info().Msg("pipeline finished")
	return state, nil
}

// record appends entries to the run log. A run log that cannot be written
// is logged and does not fail the run.
func (p *Pipeline) record(log zerolog.Logger, entries []runlog.Entry) {
	if p.runLog == "" || len(entries) == 0 {
		return
	}
	if err := runlog.Append(p.runLog, entries); err != nil {
		log.Error().Err(err).Str("run_log", p.runLog).Msg("writing run log")
	}
}
