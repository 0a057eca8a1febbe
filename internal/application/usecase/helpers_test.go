package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"massdownloader/internal/application/ports"
	"massdownloader/internal/domain/entity/artifact"

	"github.com/stretchr/testify/require"
)

var (
	validDesc = artifact.Descriptor{Name: "valid.pdb", Version: "0123456789ABCDEF0123456789ABCDEF1"}
	otherDesc = artifact.Descriptor{Name: "other.pdb", Version: "FEDCBA9876543210FEDCBA98765432102"}
)

// fakeFetcher writes a small PDB into destDir the way the real fetcher does
type fakeFetcher struct {
	mu       sync.Mutex
	calls    map[string]int
	failWith map[string]error
	missing  map[string]bool
	partial  bool
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		calls:    make(map[string]int),
		failWith: make(map[string]error),
		missing:  make(map[string]bool),
	}
}

func (f *fakeFetcher) FetchPDB(ctx context.Context, desc artifact.Descriptor, destDir string) (*artifact.FetchedPDB, error) {
	f.mu.Lock()
	f.calls[desc.Key()]++
	err := f.failWith[desc.Key()]
	missing := f.missing[desc.Key()]
	f.mu.Unlock()

	if f.partial {
		if writeErr := os.WriteFile(filepath.Join(destDir, desc.Name+".tmp"), []byte("half"), 0o644); writeErr != nil {
			return nil, writeErr
		}
	}
	if err != nil {
		return nil, err
	}
	if missing {
		return nil, nil
	}

	dest := filepath.Join(destDir, desc.Name)
	content := []byte("MSF " + desc.Key())
	if err := os.WriteFile(dest, content, 0o644); err != nil {
		return nil, err
	}
	return &artifact.FetchedPDB{Path: dest, Size: int64(len(content))}, nil
}

func (f *fakeFetcher) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// fakeExtractor plays the source extraction driver: it writes files below
// DestRoot and reports one event per file.
type fakeExtractor struct {
	files      []string
	failing    []string
	askConsent bool
	panicWith  interface{}
	failWith   error

	mu    sync.Mutex
	calls []ports.ExtractOptions
}

func (f *fakeExtractor) Extract(ctx context.Context, pdbPath string, opts ports.ExtractOptions) error {
	f.mu.Lock()
	f.calls = append(f.calls, opts)
	f.mu.Unlock()

	if f.panicWith != nil {
		panic(f.panicWith)
	}
	if f.failWith != nil {
		return f.failWith
	}
	if f.askConsent {
		accepted, err := opts.Consent.RequestConsent(ctx, ports.ConsentRequest{LicenseText: "terms of use"})
		if err != nil {
			return err
		}
		if !accepted {
			return artifact.ErrConsentDeclined
		}
	}

	for _, name := range f.files {
		dest := filepath.Join(opts.DestRoot, filepath.FromSlash(name))
		location := ports.LocationDownloaded
		if _, err := os.Stat(dest); err == nil {
			location = ports.LocationCache
		} else {
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(dest, []byte("// "+name), 0o644); err != nil {
				return err
			}
		}
		opts.Handler.SourceFileDone(ports.SourceFileEvent{Path: dest, Original: name, Location: location})
	}
	for _, name := range f.failing {
		opts.Handler.SourceFileDone(ports.SourceFileEvent{Original: name, Err: errors.New("404 Not Found")})
	}
	return nil
}

func (f *fakeExtractor) options() []ports.ExtractOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ports.ExtractOptions(nil), f.calls...)
}

// snapshotTree maps every regular file under root to its content
func snapshotTree(t *testing.T, root string) map[string]string {
	t.Helper()
	tree := make(map[string]string)
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		tree[filepath.ToSlash(rel)] = string(content)
		return nil
	})
	require.NoError(t, err)
	return tree
}

// artifactDirs lists the top-level cache entries, leaving out the source tree
func artifactDirs(t *testing.T, root string) []string {
	t.Helper()
	entries, err := os.ReadDir(root)
	require.NoError(t, err)

	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() && entry.Name() != "src" {
			dirs = append(dirs, entry.Name())
		}
	}
	return dirs
}
