package artifact

import (
	"fmt"
	"strings"
)

// Descriptor identifies the debug artifact a binary was linked against.
// It is produced once by the locator and never modified afterwards.
type Descriptor struct {
	// Name is the PDB file name without any directory part
	Name string
	// Version is the symbol server matching key (GUID + age)
	Version string
	// SourceRootHint is the source root embedded in the binary, if any
	SourceRootHint string
}

// NewDescriptor validates and builds a descriptor from a raw CodeView path
func NewDescriptor(pdbPath, version string) (Descriptor, error) {
	name := BaseName(pdbPath)
	if name == "" || name == "." || name == ".." {
		return Descriptor{}, ErrInvalidName(pdbPath)
	}
	if strings.TrimSpace(version) == "" {
		return Descriptor{}, ErrEmptyVersion
	}

	return Descriptor{
		Name:    name,
		Version: strings.ToUpper(version),
	}, nil
}

// Key returns the name/version pair used to address the artifact
func (d Descriptor) Key() string {
	return d.Name + "/" + d.Version
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s (%s)", d.Name, d.Version)
}

// BaseName strips any Windows or POSIX directory component from a PDB path.
// CodeView records carry the linker's absolute output path.
func BaseName(p string) string {
	p = strings.TrimRight(p, `\/`)
	if idx := strings.LastIndexAny(p, `\/`); idx != -1 {
		p = p[idx+1:]
	}
	return strings.TrimSpace(p)
}

// FetchedPDB is a PDB that landed on disk
type FetchedPDB struct {
	Path string
	Size int64
}
