// Copyright (c) 2025 dreamhelium
// SPDX-License-Identifier: MIT

package mca

import (
	"os"
	"path/filepath"
	"testing"

	nbt "github.com/dreamhelium/go-nbt"
)

func encodeChunk(t *testing.T, name string, value int8) []byte {
	t.Helper()
	tree := nbt.NewTree()
	root := tree.BuildCompound(name, true)
	tree.Append(root, tree.BuildByte("v", true, value))
	out, err := nbt.Encode(tree, root, &nbt.EncodeOptions{Format: nbt.ZLIB})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return out
}

func TestCreateWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "r.3.-2.mca")

	r := Create(path)
	if !r.HasCoord || r.X != 3 || r.Z != -2 {
		t.Fatalf("coords = %d,%d,%v want 3,-2,true", r.X, r.Z, r.HasCoord)
	}

	r.SetChunk(0, 2, encodeChunk(t, "chunkA", 1), 1000)
	r.SetChunk(5, 2, encodeChunk(t, "chunkB", 2), 2000)
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	fi, statErr := os.Stat(path)
	if statErr != nil {
		t.Fatalf("Stat: %v", statErr)
	}
	if fi.Size()%sectorSize != 0 {
		t.Fatalf("file size %d is not a multiple of %d", fi.Size(), sectorSize)
	}

	r2, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !r2.HasCoord || r2.X != 3 || r2.Z != -2 {
		t.Fatalf("reopened coords = %d,%d,%v", r2.X, r2.Z, r2.HasCoord)
	}
	if r2.ChunkCount() != 2 {
		t.Fatalf("chunk count = %d, want 2", r2.ChunkCount())
	}
	if r2.Timestamp(0) != 1000 || r2.Timestamp(5) != 2000 {
		t.Fatalf("timestamps not preserved: %d, %d", r2.Timestamp(0), r2.Timestamp(5))
	}

	comp, data, ok := r2.Chunk(0)
	if !ok || comp != 2 {
		t.Fatalf("chunk 0 missing or wrong compression tag: %v %v", ok, comp)
	}
	if len(data) == 0 {
		t.Fatalf("chunk 0 data empty")
	}

	res, derr := r2.ParseNBT(0, nil)
	if derr != nil {
		t.Fatalf("ParseNBT: %v", derr)
	}
	if name, _ := res.Tree.Name(res.Root); name != "chunkA" {
		t.Fatalf("chunk 0 name = %q, want chunkA", name)
	}
}

func TestOffsetsDoNotOverlap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "r.0.0.mca")
	r := Create(path)
	for i := 0; i < 10; i++ {
		r.SetChunk(i, 2, encodeChunk(t, "c", int8(i)), int32(i))
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r2, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	type span struct{ start, end uint32 }
	var spans []span
	for i := 0; i < chunkSlots; i++ {
		s := &r2.slots[i]
		if s.sectorOffset == 0 {
			continue
		}
		spans = append(spans, span{s.sectorOffset, s.sectorOffset + uint32(s.sectorCount)})
	}
	for i := range spans {
		for j := range spans {
			if i == j {
				continue
			}
			if spans[i].start < spans[j].end && spans[j].start < spans[i].end {
				t.Fatalf("overlapping sector spans: %v and %v", spans[i], spans[j])
			}
		}
	}
}

func TestOpenWithoutCoordinateFilename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "anonymous.bin")
	r := Create(path)
	if r.HasCoord {
		t.Fatalf("expected no coordinates recovered from a non-matching filename")
	}
	r.SetChunk(0, 2, encodeChunk(t, "x", 1), 1)
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	r2, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if r2.HasCoord {
		t.Fatalf("expected HasCoord false on reopen of a non-matching filename")
	}
}

func TestOpenSkipChunkErrorNullsMalformedSlot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "r.1.1.mca")

	// Hand-craft a file with a valid header claiming a chunk at sector 2
	// whose length runs past the end of the file.
	buf := make([]byte, 3*sectorSize)
	buf[3] = 1 // slot 0: offset=2 (0,0,2) count=1
	buf[0], buf[1], buf[2] = 0, 0, 2
	// declare an absurd length at byte 8192
	buf[2*sectorSize] = 0xFF
	buf[2*sectorSize+1] = 0xFF
	buf[2*sectorSize+2] = 0xFF
	buf[2*sectorSize+3] = 0xFF
	if err := os.WriteFile(path, buf, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := Open(path, nil); err == nil {
		t.Fatalf("expected BadMca without SkipChunkError")
	}

	r, err := Open(path, &OpenOptions{SkipChunkError: true})
	if err != nil {
		t.Fatalf("Open with SkipChunkError: %v", err)
	}
	if r.HasChunk(0) {
		t.Fatalf("expected slot 0 to be nulled out")
	}
}

func TestParseAllCountsFailuresWithoutAborting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "r.0.0.mca")
	r := Create(path)
	r.SetChunk(0, 2, encodeChunk(t, "ok", 1), 1)
	r.SetChunk(1, 2, []byte{0xFF, 0xFF, 0xFF}, 1) // not valid zlib
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r2, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	results, failures := r2.ParseAll(nil)
	if failures != 1 {
		t.Fatalf("failures = %d, want 1", failures)
	}
	if results[0] == nil {
		t.Fatalf("expected slot 0 to parse successfully")
	}
	if results[1] != nil {
		t.Fatalf("expected slot 1 to be nil after a parse failure")
	}
}
