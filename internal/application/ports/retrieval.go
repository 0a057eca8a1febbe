package ports

import (
	"context"

	"massdownloader/internal/domain/entity/artifact"
	"massdownloader/internal/domain/entity/outcome"
)

// Locator extracts the PDB reference from a binary
type Locator interface {
	// Locate fails with artifact.ErrNotExecutable or artifact.ErrNoDebugInfo
	Locate(path string) (artifact.Descriptor, error)
}

// Fetcher downloads a PDB from the symbol server into destDir.
// A nil result with a nil error means the server does not have it.
type Fetcher interface {
	FetchPDB(ctx context.Context, desc artifact.Descriptor, destDir string) (*artifact.FetchedPDB, error)
}

// Location tells where a source file came from
type Location string

const (
	LocationCache      Location = "from cache"
	LocationDownloaded Location = "downloaded"
)

// SourceFileEvent is emitted once per source file the extractor attempts
type SourceFileEvent struct {
	// Path is the destination on disk
	Path string
	// Original is the path recorded in the PDB
	Original string
	Location Location
	Err      error
}

// SourceFileHandler receives extraction events synchronously
type SourceFileHandler interface {
	SourceFileDone(event SourceFileEvent)
}

type ConsentRequest struct {
	LicenseText string
}

// ConsentGate decides whether the operator accepts the server's terms
type ConsentGate interface {
	RequestConsent(ctx context.Context, req ConsentRequest) (bool, error)
}

// ExtractOptions are bound per call, the extractor keeps no subscriptions
type ExtractOptions struct {
	DestRoot string
	// UseSourceFilePath places files under their original absolute path
	UseSourceFilePath bool
	Handler           SourceFileHandler
	Consent           ConsentGate
}

// SourceExtractor walks a PDB's source file table and fetches every file.
// It returns artifact.ErrConsentDeclined when the gate says no and
// artifact.ErrUnreadablePDB when the PDB cannot be parsed; per-file
// failures are only reported through the handler.
type SourceExtractor interface {
	Extract(ctx context.Context, pdbPath string, opts ExtractOptions) error
}

// Diagnostics renders the user-visible progress lines of a run
type Diagnostics interface {
	Downloading(input string)
	Skipped(input string)
	Failed(input string, kind outcome.Kind, err error)
	SourceFileFailed(input string, event SourceFileEvent)
	SourceFileDownloaded(event SourceFileEvent)
	ConsentDeclined()
	Report(stats outcome.Statistics)
}
