package usecase

import (
	"context"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"

	"massdownloader/internal/application/ports"
	"massdownloader/internal/domain/entity/artifact"
)

// Mirror keeps a copy of cached PDBs in an object store using the same
// name/version/name layout as the local cache. A cache miss is served from
// the mirror before the symbol server is asked.
type Mirror struct {
	storage ports.Storage
	logger  ports.Logger
	metrics ports.Metrics
}

func NewMirror(storage ports.Storage, obs ports.Observability) (*Mirror, error) {
	logger, metrics, err := obs.ComponentsScoped("usecase.mirror")
	if err != nil {
		return nil, err
	}
	return &Mirror{
		storage: storage,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Key is the object key a descriptor is mirrored to
func (m *Mirror) Key(desc artifact.Descriptor) string {
	return path.Join(desc.Name, desc.Version, desc.Name)
}

// Restore copies the mirrored PDB into destDir. A nil result with a nil
// error means the mirror does not hold desc.
func (m *Mirror) Restore(ctx context.Context, desc artifact.Descriptor, destDir string) (*artifact.FetchedPDB, error) {
	key := m.Key(desc)

	exists, err := m.storage.Exists(ctx, key)
	if err != nil {
		m.metrics.IncrementCounter("mirror.failures", map[string]string{"stage": "exists"})
		return nil, ErrMirrorRestore(key, err)
	}
	if !exists {
		m.metrics.IncrementCounter("mirror.misses", nil)
		return nil, nil
	}

	body, err := m.storage.Get(ctx, key)
	if errors.Is(err, ports.ErrObjectNotFound) {
		m.metrics.IncrementCounter("mirror.misses", nil)
		return nil, nil
	}
	if err != nil {
		m.metrics.IncrementCounter("mirror.failures", map[string]string{"stage": "get"})
		return nil, ErrMirrorRestore(key, err)
	}
	defer body.Close()

	dest := filepath.Join(destDir, desc.Name)
	size, err := copyInto(dest, body)
	if err != nil {
		m.metrics.IncrementCounter("mirror.failures", map[string]string{"stage": "write"})
		return nil, ErrMirrorRestore(key, err)
	}

	m.logger.Info("PDB restored from mirror", "key", key, "size", size)
	m.metrics.IncrementCounter("mirror.restores", nil)
	return &artifact.FetchedPDB{Path: dest, Size: size}, nil
}

// Discard drops the mirrored copy of desc, used when it turned out unreadable
func (m *Mirror) Discard(ctx context.Context, desc artifact.Descriptor) error {
	key := m.Key(desc)
	if err := m.storage.Delete(ctx, key); err != nil {
		m.metrics.IncrementCounter("mirror.failures", map[string]string{"stage": "delete"})
		return ErrMirrorDiscard(key, err)
	}

	m.logger.Info("Unreadable PDB removed from mirror", "key", key)
	m.metrics.IncrementCounter("mirror.discards", nil)
	return nil
}

// Upload stores the PDB unless the store already has it
func (m *Mirror) Upload(ctx context.Context, desc artifact.Descriptor, pdbPath string) error {
	key := m.Key(desc)

	exists, err := m.storage.Exists(ctx, key)
	if err != nil {
		m.metrics.IncrementCounter("mirror.failures", map[string]string{"stage": "exists"})
		return ErrMirrorUpload(key, err)
	}
	if exists {
		m.logger.Info("PDB already mirrored", "key", key)
		m.metrics.IncrementCounter("mirror.skipped", nil)
		return nil
	}

	file, err := os.Open(pdbPath)
	if err != nil {
		m.metrics.IncrementCounter("mirror.failures", map[string]string{"stage": "open"})
		return ErrMirrorOpen(err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		m.metrics.IncrementCounter("mirror.failures", map[string]string{"stage": "open"})
		return ErrMirrorOpen(err)
	}

	metadata := ports.ObjectMetadata{
		ContentType:   "application/octet-stream",
		ContentLength: info.Size(),
		UserMetadata: map[string]string{
			"pdb_name":    desc.Name,
			"pdb_version": desc.Version,
		},
	}

	if err := m.storage.Put(ctx, key, file, metadata); err != nil {
		m.metrics.IncrementCounter("mirror.failures", map[string]string{"stage": "put"})
		return ErrMirrorUpload(key, err)
	}

	m.logger.Info("PDB mirrored", "key", key, "size", info.Size())
	m.metrics.IncrementCounter("mirror.uploads", nil)
	m.metrics.AddCounter("mirror.bytes", float64(info.Size()), nil)
	return nil
}

// copyInto writes r next to dest and renames it into place, so an
// interrupted restore never leaves a PDB the skip check would accept
func copyInto(dest string, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.part")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	size, err := io.Copy(tmp, r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return 0, err
	}
	return size, nil
}
