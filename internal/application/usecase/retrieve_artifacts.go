package usecase

import (
	"context"
	"os"
	"sync/atomic"
	"time"

	"massdownloader/internal/application/dto"
	"massdownloader/internal/application/ports"
	"massdownloader/internal/domain/entity/artifact"
	"massdownloader/internal/domain/entity/outcome"
	"massdownloader/internal/domain/service"

	"golang.org/x/sync/errgroup"
)

// RetrieveArtifacts drives every input through
// locate -> resolve -> skip check -> fetch -> extract -> mirror
// and folds the outcomes into the run statistics.
type RetrieveArtifacts struct {
	locator     ports.Locator
	fetcher     ports.Fetcher
	extractor   ports.SourceExtractor
	consent     ports.ConsentGate
	diagnostics ports.Diagnostics
	mirror      *Mirror
	sourceDir   string
	locks       *keyedLock
	logger      ports.Logger
	metrics     ports.Metrics
}

type Option func(*RetrieveArtifacts)

// WithMirror uploads every freshly cached PDB to the mirror
func WithMirror(mirror *Mirror) Option {
	return func(r *RetrieveArtifacts) {
		r.mirror = mirror
	}
}

// WithSourceSubdir overrides where sources land inside a symbol cache
func WithSourceSubdir(dir string) Option {
	return func(r *RetrieveArtifacts) {
		r.sourceDir = dir
	}
}

func NewRetrieveArtifacts(
	locator ports.Locator,
	fetcher ports.Fetcher,
	extractor ports.SourceExtractor,
	consent ports.ConsentGate,
	diagnostics ports.Diagnostics,
	obs ports.Observability,
	opts ...Option,
) (*RetrieveArtifacts, error) {
	logger, metrics, err := obs.ComponentsScoped("usecase.retrieve_artifacts")
	if err != nil {
		return nil, err
	}

	r := &RetrieveArtifacts{
		locator:     locator,
		fetcher:     fetcher,
		extractor:   extractor,
		consent:     consent,
		diagnostics: diagnostics,
		sourceDir:   service.DefaultSourceSubdir,
		locks:       newKeyedLock(),
		logger:      logger,
		metrics:     metrics,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// run is the state shared by all inputs of one ProcessAll call
type run struct {
	req     *dto.RetrieveRequest
	layout  *service.CacheLayout
	consent *runConsent
	stats   *outcome.Accumulator
}

// ProcessAll processes every input and returns the statistics gathered so
// far. Per-input failures never surface as an error; only an invalid
// request, a declined license or an interrupted run do.
func (r *RetrieveArtifacts) ProcessAll(ctx context.Context, req *dto.RetrieveRequest) (outcome.Statistics, error) {
	if err := req.Validate(); err != nil {
		return outcome.Statistics{}, ErrRequestValidation(err)
	}
	if err := os.MkdirAll(req.OutputRoot, 0o755); err != nil {
		return outcome.Statistics{}, ErrCreateOutputRoot(req.OutputRoot, err)
	}

	state := &run{
		req:     req,
		layout:  service.NewCacheLayout(req.OutputRoot, r.sourceDir, r.logger),
		consent: newRunConsent(r.consent),
		stats:   outcome.NewAccumulator(),
	}

	r.logger.Info("Starting retrieval run",
		"inputs", len(req.Inputs),
		"output_root", req.OutputRoot,
		"symbol_cache", req.SymbolCache,
		"force", req.Force,
		"workers", req.Concurrency())

	start := time.Now()
	var err error
	if req.Concurrency() > 1 {
		err = r.processParallel(ctx, state)
	} else {
		err = r.processSequential(ctx, state)
	}

	stats := state.stats.Snapshot()
	r.metrics.RecordHistogram("retrieval.run_duration", time.Since(start).Seconds(), nil)
	r.metrics.RecordGauge("retrieval.files_processed", float64(stats.Processed), nil)
	r.metrics.RecordGauge("retrieval.files_not_processed", float64(stats.NotProcessed), nil)

	if err != nil {
		r.logger.Error("Retrieval run stopped",
			"error", err,
			"processed", stats.Processed,
			"not_processed", stats.NotProcessed,
			"not_attempted", len(req.Inputs)-stats.Total())
		r.metrics.RecordGauge("retrieval.files_not_attempted", float64(len(req.Inputs)-stats.Total()), nil)
		return stats, err
	}

	r.logger.Info("Retrieval run completed",
		"processed", stats.Processed,
		"not_processed", stats.NotProcessed,
		"skipped", stats.Skipped,
		"source_files", stats.SourceFiles)
	return stats, nil
}

func (r *RetrieveArtifacts) processSequential(ctx context.Context, state *run) error {
	for _, input := range state.req.Inputs {
		if err := ctx.Err(); err != nil {
			return ErrRunInterrupted(err)
		}

		result := r.processFile(ctx, state, input)
		r.record(state, result)

		if result.Kind.IsFatal() {
			r.diagnostics.ConsentDeclined()
			return artifact.ErrConsentDeclined
		}
	}
	return nil
}

// processParallel runs independent inputs on a bounded errgroup. Nothing new
// is started once the license is declined or the context is done; inputs
// already running finish normally.
func (r *RetrieveArtifacts) processParallel(ctx context.Context, state *run) error {
	var g errgroup.Group
	g.SetLimit(state.req.Concurrency())

	var stopped atomic.Bool
	for _, input := range state.req.Inputs {
		input := input
		if stopped.Load() {
			break
		}
		if err := ctx.Err(); err != nil {
			stopped.Store(true)
			g.Go(func() error { return ErrRunInterrupted(err) })
			break
		}

		g.Go(func() error {
			if stopped.Load() {
				return nil
			}
			if err := ctx.Err(); err != nil {
				stopped.Store(true)
				return ErrRunInterrupted(err)
			}

			result := r.processFile(ctx, state, input)
			r.record(state, result)

			if result.Kind.IsFatal() && stopped.CompareAndSwap(false, true) {
				r.diagnostics.ConsentDeclined()
				return artifact.ErrConsentDeclined
			}
			return nil
		})
	}
	return g.Wait()
}

func (r *RetrieveArtifacts) record(state *run, result outcome.Outcome) {
	state.stats.Record(result)

	kind := string(result.Kind)
	if result.Kind == outcome.KindNone {
		kind = "none"
	}
	r.metrics.IncrementCounter("retrieval.outcome", map[string]string{
		"status": string(result.Status),
		"kind":   kind,
	})

	if result.Status == outcome.StatusFailed {
		r.logger.Error("Input failed",
			"input", result.Input,
			"kind", string(result.Kind),
			"error", result.Err)
		return
	}

	r.metrics.AddCounter("retrieval.source_files", float64(result.SourceFiles), nil)
	r.logger.Info("Input finished",
		"input", result.Input,
		"status", string(result.Status),
		"source_files", result.SourceFiles)
}
