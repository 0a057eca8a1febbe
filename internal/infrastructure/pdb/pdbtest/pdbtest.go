// Package pdbtest writes small MSF files for tests of code that reads PDBs
package pdbtest

import (
	"bytes"
	"encoding/binary"
	"sort"
)

const blockSize = 4096

var magic = []byte("Microsoft C/C++ MSF 7.00\r\n\x1aDS\x00\x00\x00")

// Build returns a PDB holding an info stream that names every entry of
// named. Streams 0 and 1 are reserved; named streams follow in name order.
func Build(named map[string][]byte) []byte {
	names := make([]string, 0, len(named))
	for name := range named {
		names = append(names, name)
	}
	sort.Strings(names)

	streams := [][]byte{{}, nil}
	index := make(map[string]uint32, len(names))
	for _, name := range names {
		index[name] = uint32(len(streams))
		streams = append(streams, named[name])
	}
	streams[1] = infoStream(names, index)

	return layout(streams)
}

func infoStream(names []string, index map[string]uint32) []byte {
	le := binary.LittleEndian
	var buf, strs bytes.Buffer

	binary.Write(&buf, le, uint32(20000404))
	binary.Write(&buf, le, uint32(1))
	binary.Write(&buf, le, uint32(1))
	buf.Write(make([]byte, 16))

	offsets := make([]uint32, len(names))
	for i, name := range names {
		offsets[i] = uint32(strs.Len())
		strs.WriteString(name)
		strs.WriteByte(0)
	}
	binary.Write(&buf, le, uint32(strs.Len()))
	buf.Write(strs.Bytes())

	// one bucket per name, all present
	words := make([]uint32, (len(names)+31)/32)
	for i := range names {
		words[i/32] |= 1 << (uint(i) % 32)
	}
	binary.Write(&buf, le, uint32(len(names)))
	binary.Write(&buf, le, uint32(len(names)))
	binary.Write(&buf, le, uint32(len(words)))
	for _, w := range words {
		binary.Write(&buf, le, w)
	}
	binary.Write(&buf, le, uint32(0))

	for i, name := range names {
		binary.Write(&buf, le, offsets[i])
		binary.Write(&buf, le, index[name])
	}
	return buf.Bytes()
}

// layout writes the superblock in block 0, the block map in block 2, the
// directory in block 3 and stream data from block 4 on
func layout(streams [][]byte) []byte {
	le := binary.LittleEndian
	next := uint32(4)

	var dir bytes.Buffer
	binary.Write(&dir, le, uint32(len(streams)))
	for _, s := range streams {
		binary.Write(&dir, le, uint32(len(s)))
	}

	var chunks [][]byte
	for _, s := range streams {
		for off := 0; off < len(s); off += blockSize {
			end := off + blockSize
			if end > len(s) {
				end = len(s)
			}
			binary.Write(&dir, le, next)
			chunks = append(chunks, s[off:end])
			next++
		}
	}

	image := make([]byte, int(next)*blockSize)
	copy(image, magic)
	header := image[len(magic):]
	le.PutUint32(header[0:], blockSize)
	le.PutUint32(header[4:], 1)
	le.PutUint32(header[8:], next)
	le.PutUint32(header[12:], uint32(dir.Len()))
	le.PutUint32(header[20:], 2)

	le.PutUint32(image[2*blockSize:], 3)
	copy(image[3*blockSize:], dir.Bytes())
	for i, chunk := range chunks {
		copy(image[(4+i)*blockSize:], chunk)
	}
	return image
}
