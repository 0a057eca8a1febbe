// Package pdb reads the multi-stream file container PDBs are stored in.
// Only what the source extractor needs is decoded: the stream directory
// and the table of named streams in the PDB info stream.
package pdb

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var msfMagic = []byte("Microsoft C/C++ MSF 7.00\r\n\x1aDS\x00\x00\x00")

const (
	superBlockSize = 56
	nilStreamSize  = 0xFFFFFFFF

	// version, signature, age and GUID precede the named stream map
	infoHeaderSize = 28

	// InfoStream is the fixed index of the PDB info stream
	InfoStream = 1

	// SourceServerStream is the named stream srcsrv data is written to
	SourceServerStream = "/src/srcsrv"
)

var (
	ErrNotMSF         = errors.New("not an MSF 7.00 file")
	ErrCorrupt        = errors.New("corrupt MSF file")
	ErrStreamNotFound = errors.New("stream not found")
)

func errCorrupt(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrCorrupt, fmt.Sprintf(format, args...))
}

type superBlock struct {
	BlockSize         uint32
	FreeBlockMapBlock uint32
	NumBlocks         uint32
	NumDirectoryBytes uint32
	Unknown           uint32
	BlockMapAddr      uint32
}

// File is an opened PDB
type File struct {
	r       io.ReaderAt
	closer  io.Closer
	sb      superBlock
	sizes   []uint32
	blocks  [][]uint32
	streams map[string]uint32
}

// Open opens the PDB at path
func Open(path string) (*File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}

	f, err := NewFile(file, stat.Size())
	if err != nil {
		file.Close()
		return nil, err
	}
	f.closer = file
	return f, nil
}

// NewFile reads the superblock and stream directory from r
func NewFile(r io.ReaderAt, size int64) (*File, error) {
	header := make([]byte, superBlockSize)
	if _, err := r.ReadAt(header, 0); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotMSF, err)
	}
	if !bytes.Equal(header[:len(msfMagic)], msfMagic) {
		return nil, ErrNotMSF
	}

	f := &File{r: r}
	if err := binary.Read(bytes.NewReader(header[len(msfMagic):]), binary.LittleEndian, &f.sb); err != nil {
		return nil, errCorrupt("superblock: %v", err)
	}

	switch f.sb.BlockSize {
	case 512, 1024, 2048, 4096:
	default:
		return nil, errCorrupt("block size %d", f.sb.BlockSize)
	}
	if size > 0 && int64(f.sb.NumBlocks)*int64(f.sb.BlockSize) > size {
		return nil, errCorrupt("%d blocks do not fit in %d bytes", f.sb.NumBlocks, size)
	}

	if err := f.readDirectory(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}

func (f *File) blockCount(size uint32) uint32 {
	return (size + f.sb.BlockSize - 1) / f.sb.BlockSize
}

func (f *File) readBlock(index uint32) ([]byte, error) {
	if index >= f.sb.NumBlocks {
		return nil, errCorrupt("block %d out of range", index)
	}
	buf := make([]byte, f.sb.BlockSize)
	if _, err := f.r.ReadAt(buf, int64(index)*int64(f.sb.BlockSize)); err != nil && err != io.EOF {
		return nil, errCorrupt("block %d: %v", index, err)
	}
	return buf, nil
}

// readBlocks concatenates blocks and trims the result to size
func (f *File) readBlocks(indices []uint32, size uint32) ([]byte, error) {
	data := make([]byte, 0, len(indices)*int(f.sb.BlockSize))
	for _, index := range indices {
		block, err := f.readBlock(index)
		if err != nil {
			return nil, err
		}
		data = append(data, block...)
	}
	if uint32(len(data)) < size {
		return nil, errCorrupt("short stream")
	}
	return data[:size], nil
}

func (f *File) readDirectory() error {
	dirBlocks := f.blockCount(f.sb.NumDirectoryBytes)
	if dirBlocks == 0 || dirBlocks*4 > f.sb.BlockSize {
		return errCorrupt("directory of %d bytes", f.sb.NumDirectoryBytes)
	}

	blockMap, err := f.readBlock(f.sb.BlockMapAddr)
	if err != nil {
		return err
	}
	indices := make([]uint32, dirBlocks)
	for i := range indices {
		indices[i] = binary.LittleEndian.Uint32(blockMap[i*4:])
	}

	dir, err := f.readBlocks(indices, f.sb.NumDirectoryBytes)
	if err != nil {
		return err
	}

	rd := &reader{buf: dir}
	numStreams, err := rd.u32()
	if err != nil {
		return errCorrupt("stream count: %v", err)
	}
	if uint64(numStreams)*4 > uint64(len(dir)) {
		return errCorrupt("%d streams", numStreams)
	}

	f.sizes = make([]uint32, numStreams)
	for i := range f.sizes {
		if f.sizes[i], err = rd.u32(); err != nil {
			return errCorrupt("stream sizes: %v", err)
		}
	}

	f.blocks = make([][]uint32, numStreams)
	for i, size := range f.sizes {
		if size == nilStreamSize {
			continue
		}
		count := f.blockCount(size)
		list := make([]uint32, count)
		for j := range list {
			if list[j], err = rd.u32(); err != nil {
				return errCorrupt("block list of stream %d: %v", i, err)
			}
		}
		f.blocks[i] = list
	}
	return nil
}

// Stream returns the content of stream index
func (f *File) Stream(index int) ([]byte, error) {
	if index < 0 || index >= len(f.sizes) {
		return nil, fmt.Errorf("%w: index %d", ErrStreamNotFound, index)
	}
	size := f.sizes[index]
	if size == nilStreamSize || size == 0 {
		return []byte{}, nil
	}
	return f.readBlocks(f.blocks[index], size)
}

// NamedStream returns the content of the stream registered under name
func (f *File) NamedStream(name string) ([]byte, error) {
	if err := f.loadInfo(); err != nil {
		return nil, err
	}

	index, ok := f.streams[name]
	if !ok {
		for key, value := range f.streams {
			if strings.EqualFold(key, name) {
				index, ok = value, true
				break
			}
		}
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStreamNotFound, name)
	}
	return f.Stream(int(index))
}

// loadInfo decodes the named stream table of the info stream once
func (f *File) loadInfo() error {
	if f.streams != nil {
		return nil
	}

	data, err := f.Stream(InfoStream)
	if err != nil {
		return err
	}

	rd := &reader{buf: data}
	if _, err := rd.bytes(infoHeaderSize); err != nil {
		return errCorrupt("info stream: %v", err)
	}

	streams, err := readNamedStreamMap(rd)
	if err != nil {
		return err
	}
	f.streams = streams
	return nil
}

// readNamedStreamMap decodes the serialized string buffer and hash table
// that map stream names to stream indices
func readNamedStreamMap(rd *reader) (map[string]uint32, error) {
	strLen, err := rd.u32()
	if err != nil {
		return nil, errCorrupt("name buffer: %v", err)
	}
	names, err := rd.bytes(int(strLen))
	if err != nil {
		return nil, errCorrupt("name buffer: %v", err)
	}

	size, err := rd.u32()
	if err != nil {
		return nil, errCorrupt("hash size: %v", err)
	}
	capacity, err := rd.u32()
	if err != nil {
		return nil, errCorrupt("hash capacity: %v", err)
	}
	if size > capacity {
		return nil, errCorrupt("hash size %d above capacity %d", size, capacity)
	}

	present, err := rd.bitVector()
	if err != nil {
		return nil, errCorrupt("present buckets: %v", err)
	}
	if _, err := rd.bitVector(); err != nil {
		return nil, errCorrupt("deleted buckets: %v", err)
	}
	if uint64(capacity) > uint64(len(present))*32 {
		return nil, errCorrupt("hash capacity %d beyond %d present words", capacity, len(present))
	}

	streams := make(map[string]uint32, size)
	for bucket := uint32(0); bucket < capacity; bucket++ {
		if !bitSet(present, bucket) {
			continue
		}
		offset, err := rd.u32()
		if err != nil {
			return nil, errCorrupt("hash entry: %v", err)
		}
		index, err := rd.u32()
		if err != nil {
			return nil, errCorrupt("hash entry: %v", err)
		}
		if offset >= uint32(len(names)) {
			return nil, errCorrupt("name offset %d", offset)
		}
		streams[cString(names[offset:])] = index
	}
	return streams, nil
}

func bitSet(words []uint32, bit uint32) bool {
	word := bit / 32
	if word >= uint32(len(words)) {
		return false
	}
	return words[word]&(1<<(bit%32)) != 0
}

func cString(b []byte) string {
	if idx := bytes.IndexByte(b, 0); idx != -1 {
		b = b[:idx]
	}
	return string(b)
}

type reader struct {
	buf []byte
	off int
}

func (r *reader) u32() (uint32, error) {
	if r.off+4 > len(r.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.buf) {
		return nil, io.ErrUnexpectedEOF
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) bitVector() ([]uint32, error) {
	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	if uint64(count)*4 > uint64(len(r.buf)-r.off) {
		return nil, io.ErrUnexpectedEOF
	}
	words := make([]uint32, count)
	for i := range words {
		if words[i], err = r.u32(); err != nil {
			return nil, err
		}
	}
	return words, nil
}
