package usecase

import (
	"context"
	"errors"
	"time"

	"massdownloader/internal/application/ports"
	"massdownloader/internal/domain/entity/artifact"
	"massdownloader/internal/domain/entity/outcome"
	"massdownloader/internal/domain/service"
)

// processFile runs one input through the pipeline. It always returns an
// outcome; errors and panics from any stage are classified here.
func (r *RetrieveArtifacts) processFile(ctx context.Context, state *run, input string) (result outcome.Outcome) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			result = outcome.Failed(input, outcome.KindInternal, ErrStagePanic(rec))
		}
		if result.Status == outcome.StatusFailed {
			r.diagnostics.Failed(input, result.Kind, result.Err)
		}
		r.metrics.RecordHistogram("retrieval.duration", time.Since(start).Seconds(),
			map[string]string{"status": string(result.Status)})
	}()

	// 1. Locate the debug reference; structural failures never touch the cache
	desc, err := r.locator.Locate(input)
	if err != nil {
		return r.fail(input, err)
	}

	r.logger.Info("Located debug artifact",
		"input", input,
		"pdb", desc.Name,
		"version", desc.Version)

	return r.retrieve(ctx, state, input, desc)
}

// retrieve holds the artifact lock from directory creation to rollback so
// duplicate inputs never see each other's half-written entries.
func (r *RetrieveArtifacts) retrieve(ctx context.Context, state *run, input string, desc artifact.Descriptor) (result outcome.Outcome) {
	unlock := r.locks.Lock(desc.Key())
	defer unlock()

	var (
		paths    service.CachePaths
		resolved bool
	)
	defer func() {
		if rec := recover(); rec != nil {
			result = outcome.Failed(input, outcome.KindInternal, ErrStagePanic(rec))
		}
		if resolved && result.Status == outcome.StatusFailed && result.Kind.NeedsRollback() {
			r.logger.Info("Rolling back cache entry", "input", input, "path", paths.PdbDir)
			r.metrics.IncrementCounter("retrieval.rollbacks", map[string]string{"kind": string(result.Kind)})
			state.layout.Rollback(paths)
		}
	}()

	// 2. Resolve where the artifact lands
	if state.req.SymbolCache {
		var err error
		paths, err = state.layout.Resolve(desc)
		if err != nil {
			return r.fail(input, err)
		}
		resolved = true

		// 3. Skip artifacts a previous run already cached
		if !state.req.Force && state.layout.IsCached(paths) {
			resolved = false
			r.diagnostics.Skipped(input)
			return outcome.Skipped(input)
		}
	} else {
		paths = state.layout.Flat(desc)
	}

	r.diagnostics.Downloading(input)

	// 4. Fetch the PDB, from the mirror when it holds a copy
	pdb, restored := r.restore(ctx, state, input, desc, paths)
	if !restored {
		var err error
		pdb, err = r.fetcher.FetchPDB(ctx, desc, paths.PdbDir)
		if err != nil {
			return r.fail(input, err)
		}
		if pdb == nil {
			return r.fail(input, artifact.ErrNotFound)
		}
	}

	// 5. Extract the sources it references
	events := newSourceEvents(input, state.req.Verbose, r.diagnostics, r.logger)
	opts := ports.ExtractOptions{
		DestRoot:          paths.SourceRoot,
		UseSourceFilePath: !state.req.SymbolCache,
		Handler:           events,
		Consent:           state.consent,
	}
	if err := r.extractor.Extract(ctx, pdb.Path, opts); err != nil {
		if restored && errors.Is(err, artifact.ErrUnreadablePDB) {
			if discardErr := r.mirror.Discard(ctx, desc); discardErr != nil {
				r.logger.Error("Mirror cleanup failed", "input", input, "error", discardErr)
			}
		}
		return r.fail(input, err)
	}

	succeeded, failed := events.counts()
	if failed > 0 {
		r.metrics.AddCounter("retrieval.source_failures", float64(failed), nil)
	}

	// 6. Mirror the cache entry; a failed upload does not fail the input
	if state.req.SymbolCache && r.mirror != nil && !restored {
		if err := r.mirror.Upload(ctx, desc, pdb.Path); err != nil {
			r.logger.Error("Mirror upload failed", "input", input, "error", err)
		}
	}

	return outcome.Downloaded(input, succeeded)
}

// restore serves a cache miss from the mirror. Forced runs always go to
// the symbol server. A mirror failure falls back to the server.
func (r *RetrieveArtifacts) restore(ctx context.Context, state *run, input string, desc artifact.Descriptor, paths service.CachePaths) (*artifact.FetchedPDB, bool) {
	if r.mirror == nil || !state.req.SymbolCache || state.req.Force {
		return nil, false
	}

	pdb, err := r.mirror.Restore(ctx, desc, paths.PdbDir)
	if err != nil {
		r.logger.Error("Mirror restore failed, using the symbol server", "input", input, "error", err)
		return nil, false
	}
	return pdb, pdb != nil
}

func (r *RetrieveArtifacts) fail(input string, err error) outcome.Outcome {
	retrievalErr := service.NewRetrievalError(input, err)
	return outcome.Failed(input, retrievalErr.Kind, retrievalErr)
}
