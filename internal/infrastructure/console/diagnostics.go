// Package console prints the progress of a run for the operator
package console

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"massdownloader/internal/application/ports"
	"massdownloader/internal/domain/entity/outcome"
	"massdownloader/internal/domain/service"
)

// Diagnostics writes one line per event. Lines from concurrent workers never
// interleave.
type Diagnostics struct {
	mu  sync.Mutex
	out io.Writer
}

var _ ports.Diagnostics = (*Diagnostics)(nil)

func NewDiagnostics(out io.Writer) *Diagnostics {
	return &Diagnostics{out: out}
}

func (d *Diagnostics) printf(format string, args ...interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.out, format+"\n", args...)
}

func (d *Diagnostics) Downloading(input string) {
	d.printf("Downloading symbols for %s", input)
}

func (d *Diagnostics) Skipped(input string) {
	d.printf("Skipping %s, its PDB is already in the cache", input)
}

func (d *Diagnostics) Failed(input string, kind outcome.Kind, err error) {
	err = cause(err)
	switch kind {
	case outcome.KindStructural:
		d.printf("%s is not a PE file or has no debug information (%s): %v", input, kind, err)
	case outcome.KindNotFound:
		d.printf("The PDB for %s is not on the symbol server (%s)", input, kind)
	case outcome.KindTransport:
		d.printf("Could not reach the symbol server for %s (%s): %v", input, kind, err)
	case outcome.KindUnreadablePDB:
		d.printf("The PDB for %s could not be read (%s): %v", input, kind, err)
	case outcome.KindConsentDeclined:
		d.printf("Sources for %s were not downloaded, the license was declined (%s)", input, kind)
	default:
		d.printf("Processing %s failed (%s): %v", input, kind, err)
	}
}

// cause drops the input and kind a RetrievalError prefixes, the line
// already names both
func cause(err error) error {
	var retrievalErr *service.RetrievalError
	if errors.As(err, &retrievalErr) && retrievalErr.Err != nil {
		return retrievalErr.Err
	}
	return err
}

func (d *Diagnostics) SourceFileFailed(input string, event ports.SourceFileEvent) {
	d.printf("  Failed to download %s for %s: %v", event.Original, input, event.Err)
}

func (d *Diagnostics) SourceFileDownloaded(event ports.SourceFileEvent) {
	d.printf("  %s (%s)", event.Path, event.Location)
}

func (d *Diagnostics) ConsentDeclined() {
	d.printf("The license agreement was not accepted, stopping.")
}

func (d *Diagnostics) Report(stats outcome.Statistics) {
	d.printf("Files processed: %d, files not processed: %d, source files downloaded: %d",
		stats.Processed, stats.NotProcessed, stats.SourceFiles)
}
