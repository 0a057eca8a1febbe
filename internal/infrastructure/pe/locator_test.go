package pe

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"massdownloader/internal/domain/entity/artifact"
	"massdownloader/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testGUID = []byte{
	0x4d, 0x3c, 0x2b, 0x1a, // data1 = 1A2B3C4D
	0x6f, 0x5e, // data2 = 5E6F
	0x81, 0x70, // data3 = 7081
	0x92, 0x93, 0xa4, 0xb5, 0xc6, 0xd7, 0xe8, 0xf9,
}

func rsdsRecord(age uint32, path string) []byte {
	var buf bytes.Buffer
	buf.WriteString("RSDS")
	buf.Write(testGUID)
	binary.Write(&buf, binary.LittleEndian, age)
	buf.WriteString(path)
	buf.WriteByte(0)
	return buf.Bytes()
}

// buildImage assembles a minimal PE32+ file with one .rdata section. When
// codeView is nil the debug data directory is left empty.
func buildImage(t *testing.T, codeView []byte) []byte {
	t.Helper()
	return buildImageWithDirSize(t, codeView, debugEntrySize)
}

// buildImageWithDirSize is buildImage with the debug directory size the
// header advertises
func buildImageWithDirSize(t *testing.T, codeView []byte, dirSize uint32) []byte {
	t.Helper()
	const (
		peOffset      = 0x40
		sectionRVA    = 0x1000
		sectionOffset = 0x200
		sectionSize   = 0x200
	)

	var buf bytes.Buffer
	dos := make([]byte, peOffset)
	copy(dos, "MZ")
	binary.LittleEndian.PutUint32(dos[0x3c:], peOffset)
	buf.Write(dos)
	buf.WriteString("PE\x00\x00")

	var oh pe.OptionalHeader64
	oh.Magic = 0x20b
	oh.SectionAlignment = 0x1000
	oh.FileAlignment = 0x200
	oh.SizeOfImage = 0x2000
	oh.SizeOfHeaders = sectionOffset
	oh.NumberOfRvaAndSizes = 16
	if codeView != nil {
		oh.DataDirectory[debugDirectoryIndex] = pe.DataDirectory{VirtualAddress: sectionRVA, Size: dirSize}
	}

	fh := pe.FileHeader{
		Machine:              pe.IMAGE_FILE_MACHINE_AMD64,
		NumberOfSections:     1,
		SizeOfOptionalHeader: uint16(binary.Size(oh)),
		Characteristics:      0x22,
	}
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, fh))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, oh))

	section := pe.SectionHeader32{
		VirtualSize:      sectionSize,
		VirtualAddress:   sectionRVA,
		SizeOfRawData:    sectionSize,
		PointerToRawData: sectionOffset,
		Characteristics:  0x40000040,
	}
	copy(section.Name[:], ".rdata")
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, section))

	image := make([]byte, sectionOffset+sectionSize)
	copy(image, buf.Bytes())

	if codeView != nil {
		entry := debugDirectoryEntry{
			Type:             debugTypeCodeView,
			SizeOfData:       uint32(len(codeView)),
			AddressOfRawData: sectionRVA + debugEntrySize,
			PointerToRawData: sectionOffset + debugEntrySize,
		}
		var eb bytes.Buffer
		require.NoError(t, binary.Write(&eb, binary.LittleEndian, entry))
		copy(image[sectionOffset:], eb.Bytes())
		copy(image[sectionOffset+debugEntrySize:], codeView)
	}
	return image
}

func TestLocateReader_RSDS(t *testing.T) {
	image := buildImage(t, rsdsRecord(3, `D:\a\_work\1\s\artifacts\obj\System.Private.CoreLib.pdb`))

	desc, err := LocateReader(bytes.NewReader(image))

	require.NoError(t, err)
	assert.Equal(t, "System.Private.CoreLib.pdb", desc.Name)
	assert.Equal(t, "1A2B3C4D5E6F70819293A4B5C6D7E8F93", desc.Version)
}

func TestLocateReader_OversizedDebugDirectory(t *testing.T) {
	image := buildImageWithDirSize(t, rsdsRecord(3, "System.Linq.pdb"), 0xFFFFFFF0)

	desc, err := LocateReader(bytes.NewReader(image))

	require.NoError(t, err)
	assert.Equal(t, "System.Linq.pdb", desc.Name)
}

func TestLocateReader_NoDebugDirectory(t *testing.T) {
	image := buildImage(t, nil)

	_, err := LocateReader(bytes.NewReader(image))

	assert.ErrorIs(t, err, artifact.ErrNoDebugInfo)
}

func TestLocateReader_NotExecutable(t *testing.T) {
	_, err := LocateReader(bytes.NewReader([]byte("just some text, not an image")))

	assert.ErrorIs(t, err, artifact.ErrNotExecutable)
}

func TestLocateReader_UnknownCodeView(t *testing.T) {
	image := buildImage(t, []byte("XXXXgarbage"))

	_, err := LocateReader(bytes.NewReader(image))

	assert.ErrorIs(t, err, artifact.ErrNoDebugInfo)
}

func TestLocator_Locate(t *testing.T) {
	locator, err := NewLocator(mocks.NewQuietObservability())
	require.NoError(t, err)

	dir := t.TempDir()
	valid := filepath.Join(dir, "valid.exe")
	require.NoError(t, os.WriteFile(valid, buildImage(t, rsdsRecord(1, "/build/valid.pdb")), 0o644))

	desc, err := locator.Locate(valid)
	require.NoError(t, err)
	assert.Equal(t, "valid.pdb", desc.Name)

	_, err = locator.Locate(filepath.Join(dir, "missing.dll"))
	assert.ErrorIs(t, err, artifact.ErrNotExecutable)
}

func TestParseCodeView(t *testing.T) {
	t.Run("nb10", func(t *testing.T) {
		var buf bytes.Buffer
		buf.WriteString("NB10")
		binary.Write(&buf, binary.LittleEndian, uint32(0))
		binary.Write(&buf, binary.LittleEndian, uint32(0x3F2A11C0))
		binary.Write(&buf, binary.LittleEndian, uint32(0x1))
		buf.WriteString(`c:\old\mscorlib.pdb`)
		buf.WriteByte(0)

		desc, err := parseCodeView(buf.Bytes())

		require.NoError(t, err)
		assert.Equal(t, "mscorlib.pdb", desc.Name)
		assert.Equal(t, "3F2A11C01", desc.Version)
	})

	t.Run("age in hex", func(t *testing.T) {
		desc, err := parseCodeView(rsdsRecord(0x1a, "x.pdb"))

		require.NoError(t, err)
		assert.Equal(t, "1A2B3C4D5E6F70819293A4B5C6D7E8F91A", desc.Version)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := parseCodeView([]byte("RSDS\x01\x02"))
		assert.Error(t, err)
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := parseCodeView(rsdsRecord(1, ""))
		assert.Error(t, err)
	})
}
