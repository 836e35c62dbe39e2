// Copyright (c) 2025 dreamhelium
// SPDX-License-Identifier: MIT

package nbt

import (
	"github.com/dreamhelium/go-nbt/internal/cursor"
	"github.com/dreamhelium/go-nbt/mutf8"
	lru "github.com/hashicorp/golang-lru/v2"
)

// keyCache interns decoded Compound/List-member key strings. Minecraft
// documents repeat a small alphabet of key names enormously (id, Pos,
// Count, tag, ...); sharing one Go string header per distinct key avoids
// reallocating the same bytes on every occurrence in a large document. It
// is process-wide and read/write safe for concurrent decodes on disjoint
// inputs — the cache itself holds no tree state, only strings, so sharing
// it never risks concurrent mutation of any one tree.
var keyCache, _ = lru.New[string, string](4096)

func internKey(s string) string {
	if v, ok := keyCache.Get(s); ok {
		return v
	}
	keyCache.Add(s, s)
	return s
}

// DecodeOptions configures a single Decode call. The zero value disables
// progress reporting and cancellation.
type DecodeOptions struct {
	Progress    ProgressFunc
	ProgressCtx any
	Cancel      *CancelHandle
}

// DecodeResult is returned by Decode on success (including the non-fatal
// LeftoverData case).
type DecodeResult struct {
	Tree     *Tree
	Root     NodeID
	Leftover bool
}

type decoder struct {
	tree     *Tree
	r        *cursor.Reader
	progress *progressSink
	cancel   *CancelHandle
}

// Decode routes data through the compression gateway then parses the
// resulting bytes as a single NBT document. On success it always
// returns a *DecodeResult; Leftover is set, and err is nil, when parsing
// finished before reaching the end of input (ErrLeftoverData is non-fatal).
// Any other error aborts the operation and returns a nil result.
func Decode(data []byte, opts *DecodeOptions) (*DecodeResult, *Error) {
	if opts == nil {
		opts = &DecodeOptions{}
	}
	plain, derr := decompress(data, opts.Cancel)
	if derr != nil {
		return nil, derr
	}

	d := &decoder{
		tree:     NewTree(),
		r:        cursor.NewReader(plain),
		progress: newProgressSink(opts.Progress, opts.ProgressCtx, 0, 100),
		cancel:   opts.Cancel,
	}

	root := d.tree.alloc(node{kind: TagEnd})
	if err := d.parseTag(root, false); err != nil {
		return nil, err
	}

	leftover := d.r.Remaining() > 0
	d.progress.report(1, CurrentMessages().ParsingFinished)

	return &DecodeResult{Tree: d.tree, Root: root, Leftover: leftover}, nil
}

func (d *decoder) checkCancelled() *Error {
	if d.cancel.Cancelled() {
		return newErr(ErrCancelled, int64(d.r.Pos()), "decoding cancelled")
	}
	return nil
}

func (d *decoder) reportProgress() {
	if d.r.Len() == 0 {
		return
	}
	frac := float64(d.r.Pos()) / float64(d.r.Len())
	d.progress.report(frac, CurrentMessages().ParsingTree)
}

// readRawName reads a name header: a uint16 length and that many
// MUTF-8 bytes. It reports only short reads (UnexpectedEndOfInput); the
// caller transcodes the returned bytes and classifies a transcode failure
// as BadKey.
func (d *decoder) readRawName() ([]byte, *Error) {
	n, ok := d.r.Uint16()
	if !ok {
		return nil, newErr(ErrUnexpectedEndOfInput, int64(d.r.Pos()), "truncated name length")
	}
	raw, ok := d.r.Bytes(int(n))
	if !ok {
		return nil, newErr(ErrUnexpectedEndOfInput, int64(d.r.Pos()), "truncated name bytes")
	}
	return raw, nil
}

// parseTag parses one tag's kind, name, and payload into node. node must
// already exist in d.tree; its kind is TagEnd when the caller has not yet
// read the kind byte (the outermost frame), and already set when the caller
// pre-seeded it (Compound and List children).
func (d *decoder) parseTag(id NodeID, skipName bool) *Error {
	if err := d.checkCancelled(); err != nil {
		return err
	}
	d.reportProgress()

	n := d.tree.get(id)
	if n.kind == TagEnd {
		kindByte, ok := d.r.Uint8()
		if !ok {
			return newErr(ErrUnexpectedEndOfInput, int64(d.r.Pos()), "truncated tag kind")
		}
		kind := TagKind(kindByte)
		if !kind.IsValid() {
			return newErrf(ErrBadTag, int64(d.r.Pos())-1, "tag kind %d out of range", kindByte)
		}
		n.kind = kind
	}

	if !skipName {
		raw, err := d.readRawName()
		if err != nil {
			return err
		}
		if len(raw) == 0 {
			n.hasName = false
			n.name = ""
		} else {
			name, derr := mutf8.Decode(raw)
			if derr != nil {
				return newErrf(ErrBadKey, int64(d.r.Pos()), "name: %v", derr)
			}
			n.hasName = true
			n.name = internKey(name)
		}
	}

	switch n.kind {
	case TagByte:
		v, ok := d.r.Int8()
		if !ok {
			return newErr(ErrUnexpectedEndOfInput, int64(d.r.Pos()), "truncated byte payload")
		}
		n.i64 = int64(v)
	case TagShort:
		v, ok := d.r.Int16()
		if !ok {
			return newErr(ErrUnexpectedEndOfInput, int64(d.r.Pos()), "truncated short payload")
		}
		n.i64 = int64(v)
	case TagInt:
		v, ok := d.r.Int32()
		if !ok {
			return newErr(ErrUnexpectedEndOfInput, int64(d.r.Pos()), "truncated int payload")
		}
		n.i64 = int64(v)
	case TagLong:
		v, ok := d.r.Int64()
		if !ok {
			return newErr(ErrUnexpectedEndOfInput, int64(d.r.Pos()), "truncated long payload")
		}
		n.i64 = v
	case TagFloat:
		v, ok := d.r.Float32()
		if !ok {
			return newErr(ErrUnexpectedEndOfInput, int64(d.r.Pos()), "truncated float payload")
		}
		n.f64 = float64(v)
	case TagDouble:
		v, ok := d.r.Float64()
		if !ok {
			return newErr(ErrUnexpectedEndOfInput, int64(d.r.Pos()), "truncated double payload")
		}
		n.f64 = v
	case TagByteArray:
		return d.parseByteArray(n)
	case TagString:
		return d.parseString(n)
	case TagList:
		return d.parseList(id)
	case TagCompound:
		return d.parseCompound(id)
	case TagIntArray:
		return d.parseIntArray(n)
	case TagLongArray:
		return d.parseLongArray(n)
	}
	return nil
}

func (d *decoder) parseByteArray(n *node) *Error {
	length, ok := d.r.Int32()
	if !ok {
		return newErr(ErrUnexpectedEndOfInput, int64(d.r.Pos()), "truncated byte-array length")
	}
	raw, ok := d.r.Bytes(int(length))
	if !ok {
		return newErr(ErrUnexpectedEndOfInput, int64(d.r.Pos()), "truncated byte-array payload")
	}
	n.raw = raw
	return nil
}

func (d *decoder) parseString(n *node) *Error {
	length, ok := d.r.Uint16()
	if !ok {
		return newErr(ErrUnexpectedEndOfInput, int64(d.r.Pos()), "truncated string length")
	}
	raw, ok := d.r.Bytes(int(length))
	if !ok {
		return newErr(ErrUnexpectedEndOfInput, int64(d.r.Pos()), "truncated string payload")
	}
	s, err := mutf8.Decode(raw)
	if err != nil {
		return newErrf(ErrBadUtf8, int64(d.r.Pos()), "string payload: %v", err)
	}
	n.str = s
	return nil
}

func (d *decoder) parseIntArray(n *node) *Error {
	length, ok := d.r.Int32()
	if !ok {
		return newErr(ErrUnexpectedEndOfInput, int64(d.r.Pos()), "truncated int-array length")
	}
	if length < 0 {
		return newErr(ErrUnexpectedEndOfInput, int64(d.r.Pos()), "negative int-array length")
	}
	if int64(length)*4 > int64(d.r.Remaining()) {
		return newErr(ErrUnexpectedEndOfInput, int64(d.r.Pos()), "int-array length exceeds remaining input")
	}
	out := make([]int32, length)
	for i := range out {
		v, ok := d.r.Int32()
		if !ok {
			return newErr(ErrUnexpectedEndOfInput, int64(d.r.Pos()), "truncated int-array element")
		}
		out[i] = v
	}
	n.i32 = out
	return nil
}

func (d *decoder) parseLongArray(n *node) *Error {
	length, ok := d.r.Int32()
	if !ok {
		return newErr(ErrUnexpectedEndOfInput, int64(d.r.Pos()), "truncated long-array length")
	}
	if length < 0 {
		return newErr(ErrUnexpectedEndOfInput, int64(d.r.Pos()), "negative long-array length")
	}
	if int64(length)*8 > int64(d.r.Remaining()) {
		return newErr(ErrUnexpectedEndOfInput, int64(d.r.Pos()), "long-array length exceeds remaining input")
	}
	out := make([]int64, length)
	for i := range out {
		v, ok := d.r.Int64()
		if !ok {
			return newErr(ErrUnexpectedEndOfInput, int64(d.r.Pos()), "truncated long-array element")
		}
		out[i] = v
	}
	n.i64s = out
	return nil
}

func (d *decoder) parseList(id NodeID) *Error {
	elemByte, ok := d.r.Uint8()
	if !ok {
		return newErr(ErrUnexpectedEndOfInput, int64(d.r.Pos()), "truncated list element-kind")
	}
	elemKind := TagKind(elemByte)
	length, ok := d.r.Int32()
	if !ok {
		return newErr(ErrUnexpectedEndOfInput, int64(d.r.Pos()), "truncated list length")
	}
	if elemKind == TagEnd && length > 0 {
		return newErrf(ErrBadList, int64(d.r.Pos()), "list declares element-kind End with length %d", length)
	}
	if elemKind != TagEnd && !elemKind.IsValid() {
		return newErrf(ErrBadList, int64(d.r.Pos()), "list element-kind %d is invalid", elemByte)
	}
	if length < 0 {
		return newErrf(ErrBadList, int64(d.r.Pos()), "negative list length %d", length)
	}

	d.tree.get(id).elemKind = elemKind
	d.tree.get(id).children = make([]NodeID, 0, length)

	for i := int32(0); i < length; i++ {
		if err := d.checkCancelled(); err != nil {
			return err
		}
		child := d.tree.alloc(node{kind: elemKind, parent: id})
		n := d.tree.get(id)
		n.children = append(n.children, child)
		if err := d.parseTag(child, true); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) parseCompound(id NodeID) *Error {
	for {
		if err := d.checkCancelled(); err != nil {
			return err
		}
		kindByte, ok := d.r.Uint8()
		if !ok {
			return newErr(ErrUnexpectedEndOfInput, int64(d.r.Pos()), "truncated compound: expected tag kind or End")
		}
		if kindByte == byte(TagEnd) {
			return nil
		}
		kind := TagKind(kindByte)
		if !kind.IsValid() {
			return newErrf(ErrBadTag, int64(d.r.Pos())-1, "tag kind %d out of range", kindByte)
		}
		child := d.tree.alloc(node{kind: kind, parent: id})
		n := d.tree.get(id)
		n.children = append(n.children, child)
		if err := d.parseTag(child, false); err != nil {
			return err
		}
	}
}
