// Package symsrv talks to a symbol server over HTTP. It downloads PDBs by
// their name and version and serves as the transport for source files and
// license text referenced from a PDB.
package symsrv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"massdownloader/internal/application/ports"
	"massdownloader/internal/domain/entity/artifact"

	"github.com/go-resty/resty/v2"
)

// Options configures the HTTP client
type Options struct {
	ServerURL string
	UserAgent string
	Timeout   time.Duration
}

type Client struct {
	server  string
	http    *resty.Client
	logger  ports.Logger
	metrics ports.Metrics
}

// StatusError is a response outside the 2xx range
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

func NewClient(opts Options, obs ports.Observability) (*Client, error) {
	server := strings.TrimRight(opts.ServerURL, "/")
	if server == "" {
		return nil, fmt.Errorf("symbol server URL is required")
	}

	logger, metrics, err := obs.ComponentsScoped("symsrv.client")
	if err != nil {
		return nil, err
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetLogger(restyLogger{logger: logger})
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}

	return &Client{
		server:  server,
		http:    client,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// PDBURL returns where the server keeps desc
func (c *Client) PDBURL(desc artifact.Descriptor) string {
	return c.server + "/" + url.PathEscape(desc.Name) + "/" + url.PathEscape(desc.Version) + "/" + url.PathEscape(desc.Name)
}

// FetchPDB downloads desc into destDir/Name
func (c *Client) FetchPDB(ctx context.Context, desc artifact.Descriptor, destDir string) (*artifact.FetchedPDB, error) {
	target := c.PDBURL(desc)
	dest := filepath.Join(destDir, desc.Name)

	size, err := c.download(ctx, "pdb", target, dest)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", artifact.ErrNotFound, desc)
		}
		return nil, artifact.ErrTransportWith(err)
	}

	c.logger.Info("PDB downloaded", "pdb", desc.Name, "version", desc.Version, "bytes", size)
	return &artifact.FetchedPDB{Path: dest, Size: size}, nil
}

// DownloadFile fetches rawURL into dest
func (c *Client) DownloadFile(ctx context.Context, rawURL, dest string) error {
	_, err := c.download(ctx, "source", rawURL, dest)
	return err
}

// FetchText returns the body of rawURL as a string
func (c *Client) FetchText(ctx context.Context, rawURL string) (string, error) {
	resp, err := c.http.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		c.recordRequest("text", "error")
		return "", err
	}
	if resp.IsError() {
		c.recordRequest("text", strconv.Itoa(resp.StatusCode()))
		return "", &StatusError{URL: rawURL, Code: resp.StatusCode()}
	}

	c.recordRequest("text", strconv.Itoa(resp.StatusCode()))
	return resp.String(), nil
}

// download streams the body into a temp file next to dest and renames it
// into place once complete
func (c *Client) download(ctx context.Context, kind, rawURL, dest string) (int64, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(rawURL)
	if err != nil {
		c.recordRequest(kind, "error")
		return 0, err
	}
	body := resp.RawBody()
	defer body.Close()

	c.recordRequest(kind, strconv.Itoa(resp.StatusCode()))
	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return 0, &StatusError{URL: rawURL, Code: resp.StatusCode()}
	}

	size, err := writeFile(dest, body)
	if err != nil {
		return 0, err
	}
	c.metrics.AddCounter("symsrv.bytes", float64(size), map[string]string{"kind": kind})
	return size, nil
}

func (c *Client) recordRequest(kind, status string) {
	c.metrics.IncrementCounter("symsrv.requests", map[string]string{
		"kind":   kind,
		"status": status,
	})
}

func writeFile(dest string, r io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.part")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return 0, err
	}
	return size, nil
}

// restyLogger sends resty's own messages to the component logger
type restyLogger struct {
	logger ports.Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.logger.Error("HTTP client error", "detail", strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.logger.Info("HTTP client warning", "detail", strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l restyLogger) Debugf(format string, v ...interface{}) {}
