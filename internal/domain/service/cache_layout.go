package service

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"massdownloader/internal/application/ports"
	"massdownloader/internal/domain/entity/artifact"
)

// DefaultSourceSubdir is where Visual Studio looks for reference sources
// inside a symbol cache.
const DefaultSourceSubdir = "src/source/.net/8.0"

// CachePaths is where one artifact lands on disk. It is recomputed per
// input and never persisted.
type CachePaths struct {
	// NameDir is root/<name>, empty in flat mode
	NameDir    string
	PdbDir     string
	PdbFile    string
	SourceRoot string
}

type CacheLayout struct {
	root         string
	sourceSubdir string
	logger       ports.Logger
}

func NewCacheLayout(root, sourceSubdir string, logger ports.Logger) *CacheLayout {
	if sourceSubdir == "" {
		sourceSubdir = DefaultSourceSubdir
	}
	return &CacheLayout{
		root:         filepath.Clean(root),
		sourceSubdir: filepath.FromSlash(sourceSubdir),
		logger:       logger,
	}
}

// Paths computes root/<name>/<version>/<name>. The two level nesting is
// what symbol server clients expect.
func (l *CacheLayout) Paths(desc artifact.Descriptor) CachePaths {
	nameDir := filepath.Join(l.root, desc.Name)
	pdbDir := filepath.Join(nameDir, desc.Version)
	return CachePaths{
		NameDir:    nameDir,
		PdbDir:     pdbDir,
		PdbFile:    filepath.Join(pdbDir, desc.Name),
		SourceRoot: filepath.Join(l.root, l.sourceSubdir),
	}
}

// Resolve computes the paths and creates the versioned directory so the
// fetcher can write into it.
func (l *CacheLayout) Resolve(desc artifact.Descriptor) (CachePaths, error) {
	if err := validateSegment(desc.Name); err != nil {
		return CachePaths{}, err
	}
	if err := validateSegment(desc.Version); err != nil {
		return CachePaths{}, err
	}

	paths := l.Paths(desc)
	if err := os.MkdirAll(paths.PdbDir, 0o755); err != nil {
		return CachePaths{}, ErrCreateCacheDir(paths.PdbDir, err)
	}
	return paths, nil
}

// Flat is the layout used without a symbol cache: the PDB goes straight
// into the output root and sources keep their original paths below it.
func (l *CacheLayout) Flat(desc artifact.Descriptor) CachePaths {
	return CachePaths{
		PdbDir:     l.root,
		PdbFile:    filepath.Join(l.root, desc.Name),
		SourceRoot: l.root,
	}
}

// IsCached reports whether the PDB is already in place
func (l *CacheLayout) IsCached(paths CachePaths) bool {
	info, err := os.Stat(paths.PdbFile)
	return err == nil && info.Mode().IsRegular()
}

// Rollback undoes Resolve: the versioned directory goes away with
// whatever was written into it, then the name directory if nothing else
// lives there. It never fails the caller.
func (l *CacheLayout) Rollback(paths CachePaths) {
	if paths.NameDir == "" {
		return
	}

	if err := os.RemoveAll(paths.PdbDir); err != nil {
		l.logger.Error("failed to remove versioned cache directory", "path", paths.PdbDir, "error", err)
		return
	}

	parent := filepath.Dir(paths.PdbDir)
	if parent != paths.NameDir {
		l.logger.Error("cache directory is not below its name directory",
			"path", paths.PdbDir, "name_dir", paths.NameDir)
		return
	}

	entries, err := os.ReadDir(parent)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			l.logger.Error("failed to read name cache directory", "path", parent, "error", err)
		}
		return
	}
	if len(entries) > 0 {
		return
	}

	if err := os.Remove(parent); err != nil && !errors.Is(err, fs.ErrNotExist) {
		l.logger.Error("failed to remove name cache directory", "path", parent, "error", err)
	}
}

func validateSegment(s string) error {
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) || strings.ContainsRune(s, 0) {
		return ErrInvalidPathSegment(s)
	}
	return nil
}
