// Copyright (c) 2025 dreamhelium
// SPDX-License-Identifier: MIT

// Package mca implements the Minecraft "Anvil" region-file container: a
// 32x32 grid of chunk slots, each holding at most one compressed NBT
// document, multiplexed into one file behind a 4096-byte-sector offset
// table and a parallel timestamp table.
//
// The sector-offset bit packing (a 24-bit sector offset and an 8-bit sector
// count sharing one 4-byte word) mirrors Minecraft's own Anvil layout;
// reading and writing chunk payloads delegates to the sibling package nbt
// for the NBT codec itself.
package mca

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/dreamhelium/go-nbt"
)

const (
	sectorSize    = 4096
	chunkSlots    = 1024
	headerSectors = 2
)

// slot holds one chunk's on-disk bookkeeping and payload. An empty slot has
// sectorOffset == 0 and data == nil.
type slot struct {
	sectorOffset uint32
	sectorCount  uint8
	timestamp    int32
	compression  uint8
	data         []byte // compressed NBT blob, excludes the length+compression-type header
}

// Region is an open Anvil region file: up to chunkSlots chunk slots, plus
// the region's grid coordinates when they could be recovered from the
// filename ("r.<x>.<z>.mca").
type Region struct {
	X, Z     int
	HasCoord bool

	path  string
	slots [chunkSlots]slot
}

var filenamePattern = regexp.MustCompile(`r\.(-?\d+)\.(-?\d+)\.mca$`)

func coordFromFilename(path string) (x, z int, ok bool) {
	m := filenamePattern.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return 0, 0, false
	}
	xv, err1 := strconv.Atoi(m[1])
	zv, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return xv, zv, true
}

// OpenOptions configures Open. The zero value fails the whole read on the
// first malformed chunk (SkipChunkError=false).
type OpenOptions struct {
	// SkipChunkError nulls out a malformed chunk slot instead of aborting
	// the whole read with ErrBadMca.
	SkipChunkError bool
	Progress       nbt.ProgressFunc
	ProgressCtx    any
	Cancel         *nbt.CancelHandle
}

// Create creates a new, empty region ready for SetChunk and Write/Close. The
// filename-coordinate convention is applied if path's basename matches
// "r.<x>.<z>.mca"; it is not an error when it doesn't, since an anonymous
// writer carries no filename at all.
func Create(path string) *Region {
	r := &Region{path: path}
	r.X, r.Z, r.HasCoord = coordFromFilename(path)
	return r
}

// Open opens an existing region file for reading, parsing both header
// sectors and every present chunk's compressed payload eagerly: the whole
// document must fit in memory once decompressed, and this codec has no
// partial/streaming parse.
func Open(path string, opts *OpenOptions) (*Region, *nbt.Error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newErrf(nbt.ErrInternal, "open %s: %v", path, err)
	}
	r, derr := ReadFrom(f, opts)
	if derr != nil {
		f.Close()
		return nil, derr
	}
	f.Close()
	r.path = path
	r.X, r.Z, r.HasCoord = coordFromFilename(path)
	return r, nil
}

// ReadFrom parses a region from an arbitrary io.ReaderAt, for callers that
// have no on-disk file (e.g. an in-memory buffer, or a reader obtained some
// other way). ra must also expose its total size, either by being an
// *os.File or by implementing `Size() int64`.
func ReadFrom(ra io.ReaderAt, opts *OpenOptions) (*Region, *nbt.Error) {
	if opts == nil {
		opts = &OpenOptions{}
	}
	size, derr := readerSize(ra)
	if derr != nil {
		return nil, derr
	}
	if size < 2*sectorSize {
		return nil, newErr(nbt.ErrBadMca, "region shorter than the two header sectors")
	}

	header := make([]byte, 2*sectorSize)
	n, err := ra.ReadAt(header, 0)
	if (err != nil && err != io.EOF) || n < 8192 {
		return nil, newErr(nbt.ErrBadMca, "could not read 8192 bytes of header")
	}

	r := &Region{}
	for i := 0; i < chunkSlots; i++ {
		word := header[i*4 : i*4+4]
		offset := uint32(word[0])<<16 | uint32(word[1])<<8 | uint32(word[2])
		count := word[3]
		r.slots[i].sectorOffset = offset
		r.slots[i].sectorCount = count
	}
	for i := 0; i < chunkSlots; i++ {
		ts := header[sectorSize+i*4 : sectorSize+i*4+4]
		r.slots[i].timestamp = int32(binary.BigEndian.Uint32(ts))
	}

	progress := newProgress(opts.Progress, opts.ProgressCtx)
	for i := 0; i < chunkSlots; i++ {
		if opts.Cancel.Cancelled() {
			return nil, newErr(nbt.ErrCancelled, "mca read cancelled")
		}
		progress.report(i, chunkSlots)
		s := &r.slots[i]
		if s.sectorOffset == 0 {
			continue
		}
		if derr := readChunk(ra, size, s); derr != nil {
			if opts.SkipChunkError {
				*s = slot{}
				continue
			}
			return nil, derr
		}
	}
	return r, nil
}

func readerSize(ra io.ReaderAt) (int64, *nbt.Error) {
	if f, ok := ra.(*os.File); ok {
		fi, err := f.Stat()
		if err != nil {
			return 0, newErrf(nbt.ErrInternal, "stat: %v", err)
		}
		return fi.Size(), nil
	}
	if sz, ok := ra.(interface{ Size() int64 }); ok {
		return sz.Size(), nil
	}
	return 0, newErr(nbt.ErrInternal, "reader does not expose a size")
}

func readChunk(ra io.ReaderAt, fileSize int64, s *slot) *nbt.Error {
	byteOffset := int64(s.sectorOffset) * sectorSize
	if byteOffset+4 > fileSize {
		return newErr(nbt.ErrBadMca, "chunk offset beyond end of file")
	}
	lenBuf := make([]byte, 4)
	if _, err := ra.ReadAt(lenBuf, byteOffset); err != nil && err != io.EOF {
		return newErrf(nbt.ErrBadMca, "read chunk length: %v", err)
	}
	length := binary.BigEndian.Uint32(lenBuf)
	if length == 0 {
		return newErr(nbt.ErrBadMca, "chunk declares zero length")
	}
	if byteOffset+4+int64(length) > fileSize {
		return newErr(nbt.ErrBadMca, "chunk payload beyond end of file")
	}
	body := make([]byte, length)
	if _, err := ra.ReadAt(body, byteOffset+4); err != nil && err != io.EOF {
		return newErrf(nbt.ErrBadMca, "read chunk payload: %v", err)
	}
	s.compression = body[0]
	s.data = body[1:]
	return nil
}

// ChunkCount returns the number of non-empty chunk slots.
func (r *Region) ChunkCount() int {
	n := 0
	for i := range r.slots {
		if r.slots[i].sectorOffset != 0 || r.slots[i].data != nil {
			n++
		}
	}
	return n
}

// HasChunk reports whether slot i holds a chunk. i must be in [0, 1024).
func (r *Region) HasChunk(i int) bool {
	return r.slots[i].data != nil
}

// Chunk returns slot i's raw compressed NBT blob and its compression-type
// tag (2 = ZLIB, the primary in-world format; the codec accepts others
// leniently), and whether the slot is present.
func (r *Region) Chunk(i int) (compression uint8, data []byte, ok bool) {
	s := &r.slots[i]
	if s.data == nil {
		return 0, nil, false
	}
	return s.compression, s.data, true
}

// Timestamp returns slot i's last-modification Unix epoch value.
func (r *Region) Timestamp(i int) int32 {
	return r.slots[i].timestamp
}

// SetChunk stores a compressed NBT blob (already compressed by the caller,
// e.g. via nbt.Encode with a ZLIB CompressionFormat) into slot i, along with
// its compression-type tag and modification timestamp. i must be in
// [0, 1024).
func (r *Region) SetChunk(i int, compression uint8, data []byte, timestamp int32) {
	cp := make([]byte, len(data))
	copy(cp, data)
	r.slots[i] = slot{compression: compression, data: cp, timestamp: timestamp}
}

// ClearChunk empties slot i.
func (r *Region) ClearChunk(i int) {
	r.slots[i] = slot{}
}

// ParseNBT decodes slot i's blob as a single NBT document via the sibling
// nbt package, routing it through the compression gateway first exactly as
// a standalone document would be. Callers wanting the lenient
// failure-counting behaviour across every chunk should use ParseAll instead.
func (r *Region) ParseNBT(i int, opts *nbt.DecodeOptions) (*nbt.DecodeResult, *nbt.Error) {
	_, data, ok := r.Chunk(i)
	if !ok {
		return nil, newErr(nbt.ErrInternal, "slot has no chunk")
	}
	return nbt.Decode(data, opts)
}

// ParseAll decodes every present chunk's NBT document. It never aborts on a
// single malformed chunk: each failure is counted and the corresponding
// result entry is left nil.
func (r *Region) ParseAll(opts *nbt.DecodeOptions) (results [chunkSlots]*nbt.DecodeResult, failures int) {
	for i := 0; i < chunkSlots; i++ {
		if !r.HasChunk(i) {
			continue
		}
		res, err := r.ParseNBT(i, opts)
		if err != nil {
			failures++
			continue
		}
		results[i] = res
	}
	return results, failures
}

// Write serialises the region to w in slot order: a running
// "next free sector" cursor starts at headerSectors, each present slot's
// length-prefixed blob is written there, and both header sectors are
// rewritten once every slot's final location is known. When w also has a
// Truncate(int64) error method (as *os.File does), it is then sized to a
// multiple of sectorSize; other writers are not padded.
func (r *Region) Write(w io.WriterAt) *nbt.Error {
	cursorSector := uint32(headerSectors)

	for i := 0; i < chunkSlots; i++ {
		s := &r.slots[i]
		if s.data == nil {
			s.sectorOffset = 0
			s.sectorCount = 0
			continue
		}
		byteOffset := int64(cursorSector) * sectorSize
		body := make([]byte, 5+len(s.data))
		binary.BigEndian.PutUint32(body[0:4], uint32(1+len(s.data)))
		body[4] = s.compression
		copy(body[5:], s.data)

		if _, err := w.WriteAt(body, byteOffset); err != nil {
			return newErrf(nbt.ErrInternal, "write chunk %d: %v", i, err)
		}
		sectors := ceilDiv(len(body), sectorSize)
		if sectors > 0xFF {
			return newErrf(nbt.ErrInternal, "chunk %d spans too many sectors (%d)", i, sectors)
		}
		s.sectorOffset = cursorSector
		s.sectorCount = uint8(sectors)
		cursorSector += uint32(sectors)
	}

	header := make([]byte, 2*sectorSize)
	for i := 0; i < chunkSlots; i++ {
		s := &r.slots[i]
		word := header[i*4 : i*4+4]
		word[0] = byte(s.sectorOffset >> 16)
		word[1] = byte(s.sectorOffset >> 8)
		word[2] = byte(s.sectorOffset)
		word[3] = s.sectorCount
	}
	for i := 0; i < chunkSlots; i++ {
		binary.BigEndian.PutUint32(header[sectorSize+i*4:sectorSize+i*4+4], uint32(r.slots[i].timestamp))
	}
	if _, err := w.WriteAt(header, 0); err != nil {
		return newErrf(nbt.ErrInternal, "write header: %v", err)
	}

	finalSize := int64(cursorSector) * sectorSize
	if finalSize == 0 {
		finalSize = 2 * sectorSize
	}
	if pf, ok := w.(interface{ Truncate(int64) error }); ok {
		if err := pf.Truncate(finalSize); err != nil {
			return newErrf(nbt.ErrInternal, "pad file: %v", err)
		}
	}
	return nil
}

func ceilDiv(n, d int) int {
	return (n + d - 1) / d
}

// Close writes the region back to its backing path via a temp-file-plus-
// rename swap, whether it was built with Create or obtained from Open and
// then mutated with SetChunk/ClearChunk. Calling Close on a Region with no
// known path (one built purely around ReadFrom/Write) is a no-op.
func (r *Region) Close() *nbt.Error {
	if r.path == "" {
		return nil
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return newErrf(nbt.ErrInternal, "create directory: %v", err)
	}
	tmp, err := os.CreateTemp(dir, "mca_*.tmp")
	if err != nil {
		return newErrf(nbt.ErrInternal, "create temp file: %v", err)
	}
	tempPath := tmp.Name()

	if derr := r.Write(tmp); derr != nil {
		tmp.Close()
		os.Remove(tempPath)
		return derr
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tempPath)
		return newErrf(nbt.ErrInternal, "close temp file: %v", err)
	}
	os.Remove(r.path)
	if err := os.Rename(tempPath, r.path); err != nil {
		os.Remove(tempPath)
		return newErrf(nbt.ErrInternal, "rename into place: %v", err)
	}
	return nil
}

func newErr(kind nbt.ErrorKind, detail string) *nbt.Error {
	return &nbt.Error{Offset: -1, Kind: kind, Detail: detail}
}

func newErrf(kind nbt.ErrorKind, format string, args ...any) *nbt.Error {
	return &nbt.Error{Offset: -1, Kind: kind, Detail: fmt.Sprintf(format, args...)}
}
