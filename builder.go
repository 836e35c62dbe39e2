// Copyright (c) 2025 dreamhelium
// SPDX-License-Identifier: MIT

package nbt

// The Build* methods create detached roots (Parent == NodeID(0)) of the
// requested kind. A detached root has no parent until it is Append-ed,
// Prepend-ed, or inserted into a Compound or List via this Tree.

func nameOf(name string, named bool) (string, bool) {
	if !named {
		return "", false
	}
	return name, true
}

// BuildByte creates a detached Byte node. Pass named=false to build an
// unnamed node suitable for appending into a List.
func (t *Tree) BuildByte(name string, named bool, v int8) NodeID {
	n, has := nameOf(name, named)
	return t.alloc(node{kind: TagByte, name: n, hasName: has, i64: int64(v)})
}

// BuildShort creates a detached Short node.
func (t *Tree) BuildShort(name string, named bool, v int16) NodeID {
	n, has := nameOf(name, named)
	return t.alloc(node{kind: TagShort, name: n, hasName: has, i64: int64(v)})
}

// BuildInt creates a detached Int node.
func (t *Tree) BuildInt(name string, named bool, v int32) NodeID {
	n, has := nameOf(name, named)
	return t.alloc(node{kind: TagInt, name: n, hasName: has, i64: int64(v)})
}

// BuildLong creates a detached Long node.
func (t *Tree) BuildLong(name string, named bool, v int64) NodeID {
	n, has := nameOf(name, named)
	return t.alloc(node{kind: TagLong, name: n, hasName: has, i64: v})
}

// BuildFloat creates a detached Float node.
func (t *Tree) BuildFloat(name string, named bool, v float32) NodeID {
	n, has := nameOf(name, named)
	return t.alloc(node{kind: TagFloat, name: n, hasName: has, f64: float64(v)})
}

// BuildDouble creates a detached Double node.
func (t *Tree) BuildDouble(name string, named bool, v float64) NodeID {
	n, has := nameOf(name, named)
	return t.alloc(node{kind: TagDouble, name: n, hasName: has, f64: v})
}

// BuildByteArray creates a detached ByteArray node. v is copied.
func (t *Tree) BuildByteArray(name string, named bool, v []byte) NodeID {
	n, has := nameOf(name, named)
	cp := make([]byte, len(v))
	copy(cp, v)
	return t.alloc(node{kind: TagByteArray, name: n, hasName: has, raw: cp})
}

// BuildString creates a detached String node holding a UTF-8 string.
func (t *Tree) BuildString(name string, named bool, v string) NodeID {
	n, has := nameOf(name, named)
	return t.alloc(node{kind: TagString, name: n, hasName: has, str: v})
}

// BuildIntArray creates a detached IntArray node. v is copied.
func (t *Tree) BuildIntArray(name string, named bool, v []int32) NodeID {
	n, has := nameOf(name, named)
	cp := make([]int32, len(v))
	copy(cp, v)
	return t.alloc(node{kind: TagIntArray, name: n, hasName: has, i32: cp})
}

// BuildLongArray creates a detached LongArray node. v is copied.
func (t *Tree) BuildLongArray(name string, named bool, v []int64) NodeID {
	n, has := nameOf(name, named)
	cp := make([]int64, len(v))
	copy(cp, v)
	return t.alloc(node{kind: TagLongArray, name: n, hasName: has, i64s: cp})
}

// BuildCompound creates a detached, empty Compound node.
func (t *Tree) BuildCompound(name string, named bool) NodeID {
	n, has := nameOf(name, named)
	return t.alloc(node{kind: TagCompound, name: n, hasName: has})
}

// BuildList creates a detached, empty List node with the given recorded
// element-kind. Pass TagEnd for a list with no declared element type yet;
// the first appended child still succeeds regardless of elemKind, per the
// append rules below.
func (t *Tree) BuildList(name string, named bool, elemKind TagKind) NodeID {
	n, has := nameOf(name, named)
	return t.alloc(node{kind: TagList, name: n, hasName: has, elemKind: elemKind})
}

// detached reports whether id names a root with no parent.
func (t *Tree) detached(id NodeID) bool {
	n := t.get(id)
	return n != nil && n.parent == 0
}

// checkListAppend validates that child may become a new element of a List
// parent: if the list already has at least one child, child's kind must
// equal the first child's kind. An empty list accepts any kind for its
// first child, regardless of its declared elemKind.
func (t *Tree) checkListAppend(parent *node, child NodeID) *Error {
	if len(parent.children) == 0 {
		return nil
	}
	first := t.get(parent.children[0])
	childNode := t.get(child)
	if first.kind != childNode.kind {
		return newErrf(ErrListTypeMismatch, -1,
			"list element-kind is %v, cannot append %v", first.kind, childNode.kind)
	}
	return nil
}

func (t *Tree) checkParentKind(id NodeID) (*node, *Error) {
	p := t.get(id)
	if p == nil {
		return nil, newErr(ErrInternal, -1, "nil parent")
	}
	if p.kind != TagCompound && p.kind != TagList {
		return nil, newErrf(ErrWrongKind, -1, "parent kind %v is neither Compound nor List", p.kind)
	}
	return p, nil
}

// Append adds child as the last child of parent. parent must be a Compound
// or List node; child must currently be a detached root.
func (t *Tree) Append(parent, child NodeID) *Error {
	p, err := t.checkParentKind(parent)
	if err != nil {
		return err
	}
	if !t.detached(child) {
		return newErr(ErrInternal, -1, "child already has a parent")
	}
	if p.kind == TagList {
		if err := t.checkListAppend(p, child); err != nil {
			return err
		}
	}
	p.children = append(p.children, child)
	t.get(child).parent = parent
	return nil
}

// Prepend adds child as the first child of parent.
func (t *Tree) Prepend(parent, child NodeID) *Error {
	p, err := t.checkParentKind(parent)
	if err != nil {
		return err
	}
	if !t.detached(child) {
		return newErr(ErrInternal, -1, "child already has a parent")
	}
	if p.kind == TagList {
		if err := t.checkListAppend(p, child); err != nil {
			return err
		}
	}
	p.children = append([]NodeID{child}, p.children...)
	t.get(child).parent = parent
	return nil
}

func (t *Tree) indexOfChild(parent *node, sibling NodeID) int {
	for i, c := range parent.children {
		if c == sibling {
			return i
		}
	}
	return -1
}

// InsertBefore inserts child immediately before sibling in parent's child
// list. If sibling is NodeID(0), child is inserted at the front, matching
// Prepend.
func (t *Tree) InsertBefore(parent, sibling, child NodeID) *Error {
	p, err := t.checkParentKind(parent)
	if err != nil {
		return err
	}
	if !t.detached(child) {
		return newErr(ErrInternal, -1, "child already has a parent")
	}
	if sibling == 0 {
		return t.Prepend(parent, child)
	}
	idx := t.indexOfChild(p, sibling)
	if idx < 0 {
		return newErr(ErrInternal, -1, "sibling is not a child of parent")
	}
	if p.kind == TagList {
		if errK := t.checkListAppend(p, child); errK != nil {
			return errK
		}
	}
	p.children = append(p.children[:idx], append([]NodeID{child}, p.children[idx:]...)...)
	t.get(child).parent = parent
	return nil
}

// InsertAfter inserts child immediately after sibling in parent's child
// list. If sibling is NodeID(0), child is added as the last child, matching
// Append.
func (t *Tree) InsertAfter(parent, sibling, child NodeID) *Error {
	p, err := t.checkParentKind(parent)
	if err != nil {
		return err
	}
	if !t.detached(child) {
		return newErr(ErrInternal, -1, "child already has a parent")
	}
	if sibling == 0 {
		return t.Append(parent, child)
	}
	idx := t.indexOfChild(p, sibling)
	if idx < 0 {
		return newErr(ErrInternal, -1, "sibling is not a child of parent")
	}
	if p.kind == TagList {
		if errK := t.checkListAppend(p, child); errK != nil {
			return errK
		}
	}
	p.children = append(p.children[:idx+1], append([]NodeID{child}, p.children[idx+1:]...)...)
	t.get(child).parent = parent
	return nil
}

// ChildByIndex returns the id of parent's i'th child, or an OutOfRange error
// when i is past the end.
func (t *Tree) ChildByIndex(parent NodeID, i int) (NodeID, *Error) {
	p := t.get(parent)
	if p == nil {
		return 0, newErr(ErrInternal, -1, "nil parent")
	}
	if i < 0 || i >= len(p.children) {
		return 0, newErrf(ErrOutOfRange, -1, "index %d out of range (%d children)", i, len(p.children))
	}
	return p.children[i], nil
}

// ChildByName returns the id of the first child of parent whose name
// byte-identically matches name, or NodeID(0) if none match.
func (t *Tree) ChildByName(parent NodeID, name string) NodeID {
	p := t.get(parent)
	if p == nil {
		return 0
	}
	for _, c := range p.children {
		cn := t.get(c)
		if cn.hasName && cn.name == name {
			return c
		}
	}
	return 0
}

// Detach unlinks id from its parent without freeing it, transferring
// ownership to the caller. id becomes a detached root.
func (t *Tree) Detach(id NodeID) *Error {
	n := t.get(id)
	if n == nil {
		return newErr(ErrInternal, -1, "nil node")
	}
	if n.parent == 0 {
		return nil
	}
	p := t.get(n.parent)
	idx := t.indexOfChild(p, id)
	if idx >= 0 {
		p.children = append(p.children[:idx], p.children[idx+1:]...)
	}
	n.parent = 0
	return nil
}

// freeSubtree recursively clears a subtree's storage. The arena slot is not
// reclaimed (no free list), matching the lifecycle note that freeing a node
// frees its subtree: after this call id and its descendants must not be
// used again.
func (t *Tree) freeSubtree(id NodeID) {
	n := t.get(id)
	if n == nil {
		return
	}
	for _, c := range n.children {
		t.freeSubtree(c)
	}
	*n = node{}
}

// RemoveByIndex detaches and frees parent's i'th child.
func (t *Tree) RemoveByIndex(parent NodeID, i int) *Error {
	id, err := t.ChildByIndex(parent, i)
	if err != nil {
		return err
	}
	if err := t.Detach(id); err != nil {
		return err
	}
	t.freeSubtree(id)
	return nil
}

// RemoveByName detaches and frees parent's first child named name.
func (t *Tree) RemoveByName(parent NodeID, name string) *Error {
	id := t.ChildByName(parent, name)
	if id == 0 {
		return newErrf(ErrInternal, -1, "no child named %q", name)
	}
	if err := t.Detach(id); err != nil {
		return err
	}
	t.freeSubtree(id)
	return nil
}

// Rename replaces id's name. Fails with ErrListChildRename if id's parent
// is a List, since list children carry no name.
func (t *Tree) Rename(id NodeID, name string) *Error {
	n := t.get(id)
	if n == nil {
		return newErr(ErrInternal, -1, "nil node")
	}
	if p := t.get(n.parent); p != nil && p.kind == TagList {
		return newErr(ErrListChildRename, -1, "cannot rename a list element")
	}
	n.name = name
	n.hasName = true
	return nil
}

// DeepCopy produces an independent detached subtree with the same kinds,
// names, payloads, and child order as id.
func (t *Tree) DeepCopy(id NodeID) NodeID {
	n := t.get(id)
	if n == nil {
		return 0
	}
	cp := node{
		kind:     n.kind,
		hasName:  n.hasName,
		name:     n.name,
		i64:      n.i64,
		f64:      n.f64,
		str:      n.str,
		elemKind: n.elemKind,
	}
	if n.raw != nil {
		cp.raw = append([]byte(nil), n.raw...)
	}
	if n.i32 != nil {
		cp.i32 = append([]int32(nil), n.i32...)
	}
	if n.i64s != nil {
		cp.i64s = append([]int64(nil), n.i64s...)
	}
	newID := t.alloc(cp)
	for _, c := range n.children {
		childCopy := t.DeepCopy(c)
		t.get(childCopy).parent = newID
		t.get(newID).children = append(t.get(newID).children, childCopy)
	}
	return newID
}
