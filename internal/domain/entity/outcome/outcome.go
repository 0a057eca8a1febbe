package outcome

import (
	"fmt"
	"sync"
)

type Status string

const (
	StatusDownloaded Status = "downloaded"
	StatusSkipped    Status = "skipped_already_cached"
	StatusFailed     Status = "failed"
)

// Kind is the failure taxonomy an input can end with
type Kind string

const (
	KindNone            Kind = ""
	KindStructural      Kind = "structural"
	KindNotFound        Kind = "not_found"
	KindTransport       Kind = "transport"
	KindUnreadablePDB   Kind = "unreadable_pdb"
	KindConsentDeclined Kind = "consent_declined"
	KindInternal        Kind = "internal"
)

// NeedsRollback reports whether a cache entry created for the input must be removed
func (k Kind) NeedsRollback() bool {
	switch k {
	case KindNotFound, KindTransport, KindUnreadablePDB, KindConsentDeclined, KindInternal:
		return true
	default:
		return false
	}
}

// IsFatal reports whether the whole run has to stop
func (k Kind) IsFatal() bool {
	return k == KindConsentDeclined
}

// Outcome is the result of processing one input file
type Outcome struct {
	Input       string
	Status      Status
	SourceFiles int
	Kind        Kind
	Err         error
}

func Downloaded(input string, sourceFiles int) Outcome {
	return Outcome{Input: input, Status: StatusDownloaded, SourceFiles: sourceFiles}
}

func Skipped(input string) Outcome {
	return Outcome{Input: input, Status: StatusSkipped}
}

func Failed(input string, kind Kind, err error) Outcome {
	return Outcome{Input: input, Status: StatusFailed, Kind: kind, Err: err}
}

func (o Outcome) String() string {
	switch o.Status {
	case StatusDownloaded:
		return fmt.Sprintf("%s: downloaded (%d source files)", o.Input, o.SourceFiles)
	case StatusFailed:
		return fmt.Sprintf("%s: failed (%s)", o.Input, o.Kind)
	default:
		return fmt.Sprintf("%s: %s", o.Input, o.Status)
	}
}

// Statistics aggregates the outcomes of one run
type Statistics struct {
	Processed    int
	NotProcessed int
	Skipped      int
	SourceFiles  int
}

func (s Statistics) Total() int {
	return s.Processed + s.NotProcessed
}

// Accumulator is the run-wide Statistics, safe for concurrent Record calls
type Accumulator struct {
	mu    sync.Mutex
	stats Statistics
}

func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Record folds one outcome in. It must be called exactly once per input.
func (a *Accumulator) Record(o Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch o.Status {
	case StatusDownloaded:
		a.stats.Processed++
		a.stats.SourceFiles += o.SourceFiles
	case StatusSkipped:
		a.stats.NotProcessed++
		a.stats.Skipped++
	default:
		a.stats.NotProcessed++
	}
}

func (a *Accumulator) Snapshot() Statistics {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}
