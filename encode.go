// Copyright (c) 2025 dreamhelium
// SPDX-License-Identifier: MIT

package nbt

import (
	"github.com/dreamhelium/go-nbt/internal/cursor"
	"github.com/dreamhelium/go-nbt/mutf8"
)

// EncodeOptions configures a single Encode call. The zero value disables
// progress reporting and cancellation and writes uncompressed (Raw) output.
type EncodeOptions struct {
	Format      CompressionFormat
	Progress    ProgressFunc
	ProgressCtx any
	Cancel      *CancelHandle
}

type encoder struct {
	tree     *Tree
	w        *cursor.Writer
	progress *progressSink
	cancel   *CancelHandle
	total    int
	done     int
}

// Encode walks root's subtree, producing an uncompressed wire form, then
// applies the requested compression framing. The tree itself cannot be
// malformed — kind and list-homogeneity are enforced by the tree's builder
// and structural-mutation API — so encoding fails on cancellation, on a
// compression error, or with ErrInternal when a name or String payload
// encodes to more than 65535 MUTF-8 bytes or a node has no encodable kind.
func Encode(tree *Tree, root NodeID, opts *EncodeOptions) ([]byte, *Error) {
	if opts == nil {
		opts = &EncodeOptions{}
	}
	e := &encoder{
		tree:     tree,
		w:        cursor.NewWriter(),
		progress: newProgressSink(opts.Progress, opts.ProgressCtx, 0, 100),
		cancel:   opts.Cancel,
		total:    countNodes(tree, root),
	}
	if err := e.writeNamedTag(root); err != nil {
		return nil, err
	}
	e.progress.report(1, CurrentMessages().ParsingFinished)

	out, err := compressOutput(e.w.Bytes(), opts.Format)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func countNodes(tree *Tree, id NodeID) int {
	n := 1
	for _, c := range tree.Children(id) {
		n += countNodes(tree, c)
	}
	return n
}

func (e *encoder) checkCancelled() *Error {
	if e.cancel.Cancelled() {
		return newErr(ErrCancelled, -1, "encoding cancelled")
	}
	return nil
}

func (e *encoder) reportProgress() {
	e.done++
	if e.total == 0 {
		return
	}
	e.progress.report(float64(e.done)/float64(e.total), CurrentMessages().ParsingTree)
}

func (e *encoder) writeName(id NodeID) *Error {
	name, has := e.tree.Name(id)
	if !has {
		e.w.Uint16(0)
		return nil
	}
	mb := mutf8.Encode(name)
	if len(mb) > 0xFFFF {
		return newErrf(ErrInternal, -1, "name %q too long to encode (%d bytes)", name, len(mb))
	}
	e.w.Uint16(uint16(len(mb)))
	e.w.Raw(mb)
	return nil
}

// writeNamedTag writes a tag with its kind-and-name header: used at the
// outermost level and for every child of a Compound.
func (e *encoder) writeNamedTag(id NodeID) *Error {
	if err := e.checkCancelled(); err != nil {
		return err
	}
	e.reportProgress()

	kind := e.tree.Kind(id)
	e.w.Uint8(uint8(kind))
	if err := e.writeName(id); err != nil {
		return err
	}
	return e.writePayload(id)
}

// writeBarePayload writes a tag's payload with no kind/name header: used for
// elements of a List.
func (e *encoder) writeBarePayload(id NodeID) *Error {
	if err := e.checkCancelled(); err != nil {
		return err
	}
	e.reportProgress()
	return e.writePayload(id)
}

func (e *encoder) writePayload(id NodeID) *Error {
	switch kind := e.tree.Kind(id); kind {
	case TagByte:
		e.w.Int8(int8(e.tree.Int64(id)))
	case TagShort:
		e.w.Int16(int16(e.tree.Int64(id)))
	case TagInt:
		e.w.Int32(int32(e.tree.Int64(id)))
	case TagLong:
		e.w.Int64(e.tree.Int64(id))
	case TagFloat:
		e.w.Float32(float32(e.tree.Float64(id)))
	case TagDouble:
		e.w.Float64(e.tree.Float64(id))
	case TagByteArray:
		raw := e.tree.Bytes(id)
		e.w.Int32(int32(len(raw)))
		e.w.Raw(raw)
	case TagString:
		mb := mutf8.Encode(e.tree.String(id))
		if len(mb) > 0xFFFF {
			return newErrf(ErrInternal, -1, "string payload too long to encode (%d bytes)", len(mb))
		}
		e.w.Uint16(uint16(len(mb)))
		e.w.Raw(mb)
	case TagList:
		return e.writeList(id)
	case TagCompound:
		return e.writeCompound(id)
	case TagIntArray:
		arr := e.tree.IntArray(id)
		e.w.Int32(int32(len(arr)))
		for _, v := range arr {
			e.w.Int32(v)
		}
	case TagLongArray:
		arr := e.tree.LongArray(id)
		e.w.Int32(int32(len(arr)))
		for _, v := range arr {
			e.w.Int64(v)
		}
	default:
		return newErrf(ErrInternal, -1, "unencodable tag kind %v", kind)
	}
	return nil
}

// writeList writes element-kind, length, then every element's bare payload:
// an empty list writes element-kind End; a nonempty one writes its first
// child's kind, which every child is guaranteed to share.
func (e *encoder) writeList(id NodeID) *Error {
	children := e.tree.Children(id)
	elemKind := TagEnd
	if len(children) > 0 {
		elemKind = e.tree.Kind(children[0])
	}
	e.w.Uint8(uint8(elemKind))
	e.w.Int32(int32(len(children)))
	for _, c := range children {
		if err := e.writeBarePayload(c); err != nil {
			return err
		}
	}
	return nil
}

// writeCompound writes every child with its full named-tag header, then a
// single End byte.
func (e *encoder) writeCompound(id NodeID) *Error {
	for _, c := range e.tree.Children(id) {
		if err := e.writeNamedTag(c); err != nil {
			return err
		}
	}
	e.w.Uint8(uint8(TagEnd))
	return nil
}
