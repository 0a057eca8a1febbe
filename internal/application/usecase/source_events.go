package usecase

import (
	"sync"

	"massdownloader/internal/application/ports"
)

// sourceEvents is the per-input handler bound to one Extract call. Failed
// files are reported and skipped, successful ones are counted.
type sourceEvents struct {
	input       string
	verbose     bool
	diagnostics ports.Diagnostics
	logger      ports.Logger

	mu        sync.Mutex
	succeeded int
	failed    int
}

func newSourceEvents(input string, verbose bool, diagnostics ports.Diagnostics, logger ports.Logger) *sourceEvents {
	return &sourceEvents{
		input:       input,
		verbose:     verbose,
		diagnostics: diagnostics,
		logger:      logger,
	}
}

func (s *sourceEvents) SourceFileDone(event ports.SourceFileEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.Err != nil {
		s.failed++
		s.logger.Error("Source file failed",
			"input", s.input,
			"source", event.Original,
			"error", event.Err)
		s.diagnostics.SourceFileFailed(s.input, event)
		return
	}

	s.succeeded++
	if s.verbose {
		s.diagnostics.SourceFileDownloaded(event)
	}
}

func (s *sourceEvents) counts() (succeeded, failed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.succeeded, s.failed
}
