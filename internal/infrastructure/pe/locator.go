// Package pe finds the CodeView record a linker leaves in a PE image and
// turns it into the symbol server key of the matching PDB.
package pe

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"massdownloader/internal/application/ports"
	"massdownloader/internal/domain/entity/artifact"
)

const (
	debugDirectoryIndex = 6 // IMAGE_DIRECTORY_ENTRY_DEBUG
	debugEntrySize      = 28
	debugTypeCodeView   = 2

	// CodeView records larger than this are not produced by any linker
	maxCodeViewSize = 64 * 1024
)

// debugDirectoryEntry is IMAGE_DEBUG_DIRECTORY
type debugDirectoryEntry struct {
	Characteristics  uint32
	TimeDateStamp    uint32
	MajorVersion     uint16
	MinorVersion     uint16
	Type             uint32
	SizeOfData       uint32
	AddressOfRawData uint32
	PointerToRawData uint32
}

type Locator struct {
	logger ports.Logger
}

func NewLocator(obs ports.Observability) (*Locator, error) {
	logger, err := obs.LoggerScoped("pe.locator")
	if err != nil {
		return nil, err
	}
	return &Locator{logger: logger}, nil
}

// Locate reads the debug directory of the PE file at path
func (l *Locator) Locate(path string) (artifact.Descriptor, error) {
	file, err := os.Open(path)
	if err != nil {
		return artifact.Descriptor{}, artifact.ErrNotExecutableWith(err)
	}
	defer file.Close()

	return LocateReader(file)
}

// LocateReader is Locate over an already opened image
func LocateReader(r io.ReaderAt) (artifact.Descriptor, error) {
	image, err := pe.NewFile(r)
	if err != nil {
		return artifact.Descriptor{}, artifact.ErrNotExecutableWith(err)
	}
	defer image.Close()

	dir, ok := debugDirectory(image)
	if !ok || dir.VirtualAddress == 0 || dir.Size < debugEntrySize {
		return artifact.Descriptor{}, artifact.ErrNoDebugInfo
	}

	raw, err := readRVA(image, dir.VirtualAddress, dir.Size)
	if err != nil {
		return artifact.Descriptor{}, fmt.Errorf("%w: %w", artifact.ErrNoDebugInfo, err)
	}

	for off := 0; off+debugEntrySize <= len(raw); off += debugEntrySize {
		var entry debugDirectoryEntry
		if err := binary.Read(bytes.NewReader(raw[off:off+debugEntrySize]), binary.LittleEndian, &entry); err != nil {
			return artifact.Descriptor{}, fmt.Errorf("%w: %w", artifact.ErrNoDebugInfo, err)
		}
		if entry.Type != debugTypeCodeView || entry.SizeOfData == 0 || entry.SizeOfData > maxCodeViewSize {
			continue
		}

		data := make([]byte, entry.SizeOfData)
		if _, err := r.ReadAt(data, int64(entry.PointerToRawData)); err != nil {
			return artifact.Descriptor{}, fmt.Errorf("%w: %w", artifact.ErrNoDebugInfo, err)
		}

		desc, err := parseCodeView(data)
		if err != nil {
			continue
		}
		return desc, nil
	}

	return artifact.Descriptor{}, artifact.ErrNoDebugInfo
}

func debugDirectory(image *pe.File) (pe.DataDirectory, bool) {
	switch oh := image.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		if oh.NumberOfRvaAndSizes <= debugDirectoryIndex {
			return pe.DataDirectory{}, false
		}
		return oh.DataDirectory[debugDirectoryIndex], true
	case *pe.OptionalHeader64:
		if oh.NumberOfRvaAndSizes <= debugDirectoryIndex {
			return pe.DataDirectory{}, false
		}
		return oh.DataDirectory[debugDirectoryIndex], true
	default:
		return pe.DataDirectory{}, false
	}
}

// readRVA reads size bytes at a virtual address from the section mapping it
func readRVA(image *pe.File, rva, size uint32) ([]byte, error) {
	for _, section := range image.Sections {
		extent := section.VirtualSize
		if section.Size > extent {
			extent = section.Size
		}
		if rva < section.VirtualAddress || rva >= section.VirtualAddress+extent {
			continue
		}

		offset := rva - section.VirtualAddress
		if avail := extent - offset; size > avail {
			size = avail
		}
		buf := make([]byte, size)
		n, err := section.ReadAt(buf, int64(offset))
		if err != nil && err != io.EOF {
			return nil, err
		}
		return buf[:n], nil
	}
	return nil, fmt.Errorf("debug directory at RVA %#x is outside every section", rva)
}

// parseCodeView decodes an RSDS (PDB 7.0) or NB10 (PDB 2.0) record
func parseCodeView(data []byte) (artifact.Descriptor, error) {
	if len(data) < 4 {
		return artifact.Descriptor{}, fmt.Errorf("codeview record too short")
	}

	switch string(data[:4]) {
	case "RSDS":
		if len(data) < 24 {
			return artifact.Descriptor{}, fmt.Errorf("RSDS record too short")
		}
		data1 := binary.LittleEndian.Uint32(data[4:8])
		data2 := binary.LittleEndian.Uint16(data[8:10])
		data3 := binary.LittleEndian.Uint16(data[10:12])
		data4 := data[12:20]
		age := binary.LittleEndian.Uint32(data[20:24])

		var version strings.Builder
		fmt.Fprintf(&version, "%08X%04X%04X", data1, data2, data3)
		for _, b := range data4 {
			fmt.Fprintf(&version, "%02X", b)
		}
		fmt.Fprintf(&version, "%X", age)

		return artifact.NewDescriptor(cString(data[24:]), version.String())

	case "NB10":
		if len(data) < 16 {
			return artifact.Descriptor{}, fmt.Errorf("NB10 record too short")
		}
		signature := binary.LittleEndian.Uint32(data[8:12])
		age := binary.LittleEndian.Uint32(data[12:16])

		return artifact.NewDescriptor(cString(data[16:]), fmt.Sprintf("%X%X", signature, age))

	default:
		return artifact.Descriptor{}, fmt.Errorf("unknown codeview signature %q", data[:4])
	}
}

func cString(b []byte) string {
	if idx := bytes.IndexByte(b, 0); idx != -1 {
		b = b[:idx]
	}
	return string(b)
}
