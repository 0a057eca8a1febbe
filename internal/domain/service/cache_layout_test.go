package service

import (
	"os"
	"path/filepath"
	"testing"

	"massdownloader/internal/domain/entity/artifact"
	"massdownloader/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDescriptor(t *testing.T) artifact.Descriptor {
	t.Helper()
	desc, err := artifact.NewDescriptor(`C:\build\obj\System.Private.CoreLib.pdb`, "1A2B3C4D5E6F70819293A4B5C6D7E8F91")
	require.NoError(t, err)
	return desc
}

func TestCacheLayout_Paths(t *testing.T) {
	root := t.TempDir()
	layout := NewCacheLayout(root, "", mocks.NewQuietLogger())
	desc := testDescriptor(t)

	paths := layout.Paths(desc)

	assert.Equal(t, filepath.Join(root, desc.Name), paths.NameDir)
	assert.Equal(t, filepath.Join(root, desc.Name, desc.Version), paths.PdbDir)
	assert.Equal(t, filepath.Join(root, desc.Name, desc.Version, desc.Name), paths.PdbFile)
	assert.Equal(t, filepath.Join(root, "src", "source", ".net", "8.0"), paths.SourceRoot)

	_, err := os.Stat(paths.PdbDir)
	assert.True(t, os.IsNotExist(err), "Paths must not touch the filesystem")
}

func TestCacheLayout_CustomSourceSubdir(t *testing.T) {
	root := t.TempDir()
	layout := NewCacheLayout(root, "src/custom", mocks.NewQuietLogger())

	paths := layout.Paths(testDescriptor(t))

	assert.Equal(t, filepath.Join(root, "src", "custom"), paths.SourceRoot)
}

func TestCacheLayout_Resolve(t *testing.T) {
	t.Run("creates the versioned directory", func(t *testing.T) {
		root := t.TempDir()
		layout := NewCacheLayout(root, "", mocks.NewQuietLogger())

		paths, err := layout.Resolve(testDescriptor(t))

		require.NoError(t, err)
		info, err := os.Stat(paths.PdbDir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.False(t, layout.IsCached(paths))
	})

	t.Run("rejects unsafe segments", func(t *testing.T) {
		root := t.TempDir()
		layout := NewCacheLayout(root, "", mocks.NewQuietLogger())

		tests := []artifact.Descriptor{
			{Name: "..", Version: "ABC1"},
			{Name: "a.pdb", Version: "."},
			{Name: "a.pdb", Version: "AB/C1"},
			{Name: `x\y.pdb`, Version: "ABC1"},
			{Name: "", Version: "ABC1"},
		}
		for _, desc := range tests {
			_, err := layout.Resolve(desc)
			assert.Error(t, err, "descriptor %+v", desc)
		}

		entries, err := os.ReadDir(root)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestCacheLayout_IsCached(t *testing.T) {
	root := t.TempDir()
	layout := NewCacheLayout(root, "", mocks.NewQuietLogger())
	paths, err := layout.Resolve(testDescriptor(t))
	require.NoError(t, err)

	assert.False(t, layout.IsCached(paths))

	require.NoError(t, os.Mkdir(paths.PdbFile, 0o755))
	assert.False(t, layout.IsCached(paths), "a directory is not a cached PDB")

	require.NoError(t, os.Remove(paths.PdbFile))
	require.NoError(t, os.WriteFile(paths.PdbFile, []byte("pdb"), 0o644))
	assert.True(t, layout.IsCached(paths))
}

func TestCacheLayout_Rollback(t *testing.T) {
	t.Run("removes version and empty name directory", func(t *testing.T) {
		root := t.TempDir()
		layout := NewCacheLayout(root, "", mocks.NewQuietLogger())
		paths, err := layout.Resolve(testDescriptor(t))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(paths.PdbFile+".partial", []byte("x"), 0o644))

		layout.Rollback(paths)

		_, err = os.Stat(paths.NameDir)
		assert.True(t, os.IsNotExist(err))
		_, err = os.Stat(root)
		assert.NoError(t, err, "the cache root itself stays")
	})

	t.Run("keeps sibling versions", func(t *testing.T) {
		root := t.TempDir()
		layout := NewCacheLayout(root, "", mocks.NewQuietLogger())
		desc := testDescriptor(t)
		sibling := artifact.Descriptor{Name: desc.Name, Version: "FFFF1"}

		siblingPaths, err := layout.Resolve(sibling)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(siblingPaths.PdbFile, []byte("pdb"), 0o644))

		paths, err := layout.Resolve(desc)
		require.NoError(t, err)

		layout.Rollback(paths)

		_, err = os.Stat(paths.PdbDir)
		assert.True(t, os.IsNotExist(err))
		assert.True(t, layout.IsCached(siblingPaths))
	})

	t.Run("is idempotent", func(t *testing.T) {
		root := t.TempDir()
		layout := NewCacheLayout(root, "", mocks.NewQuietLogger())
		paths, err := layout.Resolve(testDescriptor(t))
		require.NoError(t, err)

		layout.Rollback(paths)
		layout.Rollback(paths)

		_, err = os.Stat(paths.NameDir)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("flat paths are left alone", func(t *testing.T) {
		root := t.TempDir()
		layout := NewCacheLayout(root, "", mocks.NewQuietLogger())
		paths := layout.Flat(testDescriptor(t))
		require.NoError(t, os.WriteFile(paths.PdbFile, []byte("pdb"), 0o644))

		layout.Rollback(paths)

		assert.FileExists(t, paths.PdbFile)
	})
}

func TestCacheLayout_Flat(t *testing.T) {
	root := t.TempDir()
	layout := NewCacheLayout(root, "", mocks.NewQuietLogger())
	desc := testDescriptor(t)

	paths := layout.Flat(desc)

	assert.Empty(t, paths.NameDir)
	assert.Equal(t, root, paths.PdbDir)
	assert.Equal(t, filepath.Join(root, desc.Name), paths.PdbFile)
	assert.Equal(t, root, paths.SourceRoot)
}
