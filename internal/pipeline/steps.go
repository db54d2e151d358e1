package pipeline

import (
	"context"

	"github.com/bxservice/hibiscus-recon/internal/importer"
	"github.com/bxservice/hibiscus-recon/internal/matcher"
	"github.com/bxservice/hibiscus-recon/internal/statement"
)

// Step names as they appear in logs and the run log.
const (
	DeleteImportName   = "delete-import"
	LoadName           = "load"
	ImportName         = "import"
	MatchName          = "match"
	CreatePaymentsName = "create-payments"
)

// StagingCleaner removes all staging records.
type StagingCleaner interface {
	DeleteAllStaging(ctx context.Context) (int, error)
}

// DeleteImportStep clears the staging area left by earlier loads.
type DeleteImportStep struct {
	Staging StagingCleaner
}

func (s *DeleteImportStep) Name() string { return DeleteImportName }

func (s *DeleteImportStep) Execute(ctx context.Context, state *State) error {
	n, err := s.Staging.DeleteAllStaging(ctx)
	if err != nil {
		return err
	}
	state.Deleted = n
	state.report("%d staging records deleted", n)
	return nil
}

// LoadStep stages the rows of the run's file.
type LoadStep struct {
	Loader *importer.Loader
}

func (s *LoadStep) Name() string { return LoadName }

func (s *LoadStep) Execute(ctx context.Context, state *State) error {
	res, err := s.Loader.LoadFile(ctx, state.File)
	state.Load = res
	if err != nil {
		return err
	}
	state.report("%d lines staged, %d checksum warnings", len(res.Staged), len(res.Warnings))
	return nil
}

// ImportStep turns the staged rows into draft statements.
type ImportStep struct {
	Service *statement.Service
}

func (s *ImportStep) Name() string { return ImportName }

func (s *ImportStep) Execute(ctx context.Context, state *State) error {
	sts, err := s.Service.Import(ctx)
	state.Statements = append(state.Statements, sts...)
	if err != nil {
		return err
	}
	lines := 0
	for _, st := range sts {
		lines += len(st.Lines)
	}
	state.report("%d statements with %d lines", len(sts), lines)
	return nil
}

// MatchStep runs the matcher over the imported statements.
type MatchStep struct {
	Service *statement.Service
	Matcher matcher.Matcher
}

func (s *MatchStep) Name() string { return MatchName }

func (s *MatchStep) Execute(ctx context.Context, state *State) error {
	if s.Matcher == nil {
		return skip("no matcher configured")
	}
	var total statement.MatchSummary
	for _, st := range state.Statements {
		sum, err := s.Service.Match(ctx, st.ID, s.Matcher)
		if err != nil {
			return err
		}
		state.Matches = append(state.Matches, *sum)
		total.Lines += sum.Lines
		total.Matched += sum.Matched
		total.Noted += sum.Noted
		total.Failed = append(total.Failed, sum.Failed...)
	}
	state.report("%d lines: %d matched, %d noted, %d failed",
		total.Lines, total.Matched, total.Noted, len(total.Failed))
	return nil
}

// CreatePaymentsStep creates payments for lines matched to an invoice.
type CreatePaymentsStep struct {
	Service *statement.Service
}

func (s *CreatePaymentsStep) Name() string { return CreatePaymentsName }

func (s *CreatePaymentsStep) Execute(ctx context.Context, state *State) error {
	for _, st := range state.Statements {
		payments, err := s.Service.CreatePayments(ctx, st.ID)
		state.Payments = append(state.Payments, payments...)
		if err != nil {
			return err
		}
	}
	state.report("%d payments created", len(state.Payments))
	return nil
}

// Options selects the optional steps.
type Options struct {
	Match bool
	// CreatePayments only applies together with Match.
	CreatePayments bool
}

// Steps returns delete-import, load and import followed by the optional
// steps selected in opts.
func Steps(staging StagingCleaner, loader *importer.Loader, svc *statement.Service, m matcher.Matcher, opts Options) []Step {
	steps := []Step{
		&DeleteImportStep{Staging: staging},
		&LoadStep{Loader: loader},
		&ImportStep{Service: svc},
	}
	if opts.Match {
		steps = append(steps, &MatchStep{Service: svc, Matcher: m})
		if opts.CreatePayments {
			steps = append(steps, &CreatePaymentsStep{Service: svc})
		}
	}
	return steps
}
