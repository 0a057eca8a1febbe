package srcsrv

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"sync"

	"massdownloader/internal/application/ports"
	"massdownloader/internal/domain/entity/artifact"
	"massdownloader/internal/infrastructure/pdb"
)

// Transport downloads what a srcsrv stream points at
type Transport interface {
	DownloadFile(ctx context.Context, rawURL, dest string) error
	FetchText(ctx context.Context, rawURL string) (string, error)
}

var ErrUnsupportedTarget = errors.New("unsupported source server target")

type Extractor struct {
	transport  Transport
	licenseURL string
	logger     ports.Logger
	metrics    ports.Metrics

	licenseMu   sync.Mutex
	licenseText *string
}

// NewExtractor builds an extractor. When licenseURL is set its text is shown
// to the consent gate before the first source file goes over the network.
func NewExtractor(transport Transport, licenseURL string, obs ports.Observability) (*Extractor, error) {
	if transport == nil {
		return nil, fmt.Errorf("transport is required")
	}

	logger, metrics, err := obs.ComponentsScoped("srcsrv.extractor")
	if err != nil {
		return nil, err
	}

	return &Extractor{
		transport:  transport,
		licenseURL: licenseURL,
		logger:     logger,
		metrics:    metrics,
	}, nil
}

// extraction is the state of one Extract call
type extraction struct {
	opts      ports.ExtractOptions
	pdbPath   string
	consented bool
}

func (x *Extractor) Extract(ctx context.Context, pdbPath string, opts ports.ExtractOptions) error {
	stream, err := x.readStream(pdbPath)
	if err != nil {
		return err
	}
	if stream == nil {
		x.logger.Info("PDB has no source server data", "pdb", pdbPath)
		return nil
	}

	target, ok := stream.Variable("SRCSRVTRG")
	if !ok {
		x.logger.Info("Source server stream has no target", "pdb", pdbPath)
	}

	run := &extraction{opts: opts, pdbPath: pdbPath}
	for _, fields := range stream.Files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := x.extractFile(ctx, run, stream, target, fields); err != nil {
			return err
		}
	}
	return nil
}

// readStream returns nil without error when the PDB carries no srcsrv data
func (x *Extractor) readStream(pdbPath string) (*Stream, error) {
	file, err := pdb.Open(pdbPath)
	if err != nil {
		return nil, artifact.ErrUnreadablePDBWith(err)
	}
	defer file.Close()

	data, err := file.NamedStream(pdb.SourceServerStream)
	if errors.Is(err, pdb.ErrStreamNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, artifact.ErrUnreadablePDBWith(err)
	}

	stream, err := Parse(data)
	if err != nil {
		return nil, artifact.ErrUnreadablePDBWith(err)
	}
	return stream, nil
}

// extractFile handles one source file entry. Only consent problems are
// returned; everything else becomes a failed event.
func (x *Extractor) extractFile(ctx context.Context, run *extraction, stream *Stream, target string, fields []string) error {
	event := ports.SourceFileEvent{}
	if len(fields) > 0 {
		event.Original = fields[0]
	}

	dest, err := destination(run.opts.DestRoot, fields, run.opts.UseSourceFilePath)
	if err != nil {
		x.emit(run, event, err)
		return nil
	}
	event.Path = dest

	if info, err := os.Stat(dest); err == nil && info.Mode().IsRegular() {
		event.Location = ports.LocationCache
		x.emit(run, event, nil)
		return nil
	}

	rawURL, err := targetURL(stream, target, fields)
	if err != nil {
		x.emit(run, event, err)
		return nil
	}

	if err := x.ensureConsent(ctx, run); err != nil {
		return err
	}

	event.Location = ports.LocationDownloaded
	x.emit(run, event, x.transport.DownloadFile(ctx, rawURL, dest))
	return nil
}

func targetURL(stream *Stream, target string, fields []string) (string, error) {
	if target == "" {
		return "", fmt.Errorf("%w: SRCSRVTRG is not defined", ErrUnsupportedTarget)
	}

	expanded, err := stream.Expand(target, fields, "")
	if err != nil {
		return "", err
	}

	u, err := url.Parse(expanded)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedTarget, expanded)
	}
	return expanded, nil
}

func (x *Extractor) emit(run *extraction, event ports.SourceFileEvent, err error) {
	event.Err = err

	result := "success"
	if err != nil {
		result = "failure"
	} else if event.Location == ports.LocationCache {
		result = "cached"
	}
	x.metrics.IncrementCounter("srcsrv.files", map[string]string{"result": result})

	if run.opts.Handler != nil {
		run.opts.Handler.SourceFileDone(event)
	}
}

// ensureConsent asks the gate once per extraction, before the first
// network download. Without a license URL there is nothing to agree to.
func (x *Extractor) ensureConsent(ctx context.Context, run *extraction) error {
	if run.consented || x.licenseURL == "" {
		return nil
	}

	text, err := x.license(ctx)
	if err != nil {
		return artifact.ErrTransportWith(fmt.Errorf("fetch license: %w", err))
	}

	if run.opts.Consent == nil {
		return artifact.ErrConsentDeclined
	}
	accepted, err := run.opts.Consent.RequestConsent(ctx, ports.ConsentRequest{LicenseText: text})
	if err != nil {
		return fmt.Errorf("consent gate: %w", err)
	}
	if !accepted {
		x.logger.Info("License declined", "pdb", run.pdbPath)
		return artifact.ErrConsentDeclined
	}

	run.consented = true
	return nil
}

// license fetches the license text once per extractor
func (x *Extractor) license(ctx context.Context) (string, error) {
	x.licenseMu.Lock()
	defer x.licenseMu.Unlock()

	if x.licenseText != nil {
		return *x.licenseText, nil
	}

	text, err := x.transport.FetchText(ctx, x.licenseURL)
	if err != nil {
		return "", err
	}
	x.licenseText = &text
	return text, nil
}
