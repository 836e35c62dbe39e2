// Copyright (c) 2025 dreamhelium
// SPDX-License-Identifier: MIT

package nbt

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"io"
)

// CompressionFormat selects the framing the encoder applies to its output.
// The decoder never needs one: it detects framing from the input's leading
// bytes.
type CompressionFormat int

const (
	// Raw writes the encoded tag tree with no compression framing.
	Raw CompressionFormat = iota
	// GZIP wraps the encoded tag tree in gzip framing (the format used by
	// most standalone .dat files, e.g. level.dat).
	GZIP
	// ZLIB wraps the encoded tag tree in zlib framing (the format used by
	// chunk blobs inside an MCA region file).
	ZLIB
)

const decompressChunkSize = 64 * 1024

// detectFraming inspects the leading bytes of data and returns the detected
// format and a reader positioned at the start of data.
func detectFraming(data []byte) (CompressionFormat, io.Reader) {
	if len(data) >= 2 && data[0] == 0x1F && data[1] == 0x8B {
		return GZIP, bytes.NewReader(data)
	}
	if len(data) >= 1 && data[0] == 0x78 {
		return ZLIB, bytes.NewReader(data)
	}
	return Raw, bytes.NewReader(data)
}

// decompress identifies the framing on data and returns a freshly owned,
// fully decompressed buffer. Growth proceeds in decompressChunkSize steps so
// the cancellation handle can be polled between chunks.
func decompress(data []byte, cancel *CancelHandle) ([]byte, *Error) {
	format, r := detectFraming(data)

	var src io.Reader
	switch format {
	case GZIP:
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, newErrf(ErrDecompress, -1, "gzip: %v", err)
		}
		defer gr.Close()
		src = gr
	case ZLIB:
		zr, err := zlib.NewReader(r)
		if err != nil {
			return nil, newErrf(ErrDecompress, -1, "zlib: %v", err)
		}
		defer zr.Close()
		src = zr
	default:
		// Raw: copy verbatim, still honouring cancellation between chunks
		// for consistency with the compressed paths.
		src = r
	}

	var out []byte
	chunk := make([]byte, decompressChunkSize)
	for {
		if cancel.Cancelled() {
			return nil, newErr(ErrCancelled, -1, "decompression cancelled")
		}
		n, err := src.Read(chunk)
		if n > 0 {
			out = append(out, chunk[:n]...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, newErrf(ErrDecompress, -1, "%v", err)
		}
	}
	return out, nil
}

// compressOutput applies format to data, producing the bytes to write.
func compressOutput(data []byte, format CompressionFormat) ([]byte, *Error) {
	switch format {
	case Raw:
		return data, nil
	case GZIP:
		var buf bytes.Buffer
		w, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
		if err != nil {
			return nil, newErrf(ErrDecompress, -1, "gzip: %v", err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, newErrf(ErrDecompress, -1, "gzip write: %v", err)
		}
		if err := w.Close(); err != nil {
			return nil, newErrf(ErrDecompress, -1, "gzip close: %v", err)
		}
		return buf.Bytes(), nil
	case ZLIB:
		var buf bytes.Buffer
		w, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
		if err != nil {
			return nil, newErrf(ErrDecompress, -1, "zlib: %v", err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, newErrf(ErrDecompress, -1, "zlib write: %v", err)
		}
		if err := w.Close(); err != nil {
			return nil, newErrf(ErrDecompress, -1, "zlib close: %v", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, newErrf(ErrInternal, -1, "unknown compression format %d", int(format))
	}
}
