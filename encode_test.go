// Copyright (c) 2025 dreamhelium
// SPDX-License-Identifier: MIT

package nbt

import (
	"bytes"
	"testing"
)

func TestEncodeByteTagMatchesWireForm(t *testing.T) {
	tree := NewTree()
	root := tree.BuildByte("hello", true, 42)
	out, err := Encode(tree, root, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := []byte{0x01, 0x00, 0x05, 'h', 'e', 'l', 'l', 'o', 0x2A}
	if !bytes.Equal(out, want) {
		t.Fatalf("Encode = % X, want % X", out, want)
	}
}

func TestEncodeEmptyCompoundMatchesWireForm(t *testing.T) {
	tree := NewTree()
	root := tree.BuildCompound("x", true)
	out, err := Encode(tree, root, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := []byte{0x0A, 0x00, 0x01, 'x', 0x00}
	if !bytes.Equal(out, want) {
		t.Fatalf("Encode = % X, want % X", out, want)
	}
}

func TestEncodeListOfIntsMatchesWireForm(t *testing.T) {
	tree := NewTree()
	root := tree.BuildCompound("", false)
	list := tree.BuildList("L", true, TagInt)
	if err := tree.Append(root, list); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := tree.Append(list, tree.BuildInt("", false, 1)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := tree.Append(list, tree.BuildInt("", false, 2)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	out, err := Encode(tree, root, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := []byte{
		0x0A, 0x00, 0x00,
		0x09, 0x00, 0x01, 'L',
		0x03,
		0x00, 0x00, 0x00, 0x02,
		0x00, 0x00, 0x00, 0x01,
		0x00, 0x00, 0x00, 0x02,
		0x00,
	}
	if !bytes.Equal(out, want) {
		t.Fatalf("Encode = % X, want % X", out, want)
	}
}

func TestEncodeEmptyListWritesElementKindEnd(t *testing.T) {
	tree := NewTree()
	root := tree.BuildList("", false, TagEnd)
	out, err := Encode(tree, root, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := []byte{0x09, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	if !bytes.Equal(out, want) {
		t.Fatalf("Encode = % X, want %X", out, want)
	}
}

func TestEncodeUncompressedRoundTripsToOriginalBytes(t *testing.T) {
	original := []byte{
		0x0A, 0x00, 0x03, 'f', 'o', 'o',
		0x08, 0x00, 0x03, 'k', 'e', 'y', 0x00, 0x03, 'b', 'a', 'r',
		0x04, 0x00, 0x03, 'l', 'e', 'n', 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x2A,
		0x00,
	}
	res, err := Decode(original, nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	out, eerr := Encode(res.Tree, res.Root, nil)
	if eerr != nil {
		t.Fatalf("Encode: %v", eerr)
	}
	if !bytes.Equal(out, original) {
		t.Fatalf("round trip = % X, want % X", out, original)
	}
}

func TestEncodeDecodeStructurallyEqualForBuiltTree(t *testing.T) {
	tree := NewTree()
	root := tree.BuildCompound("root", true)
	tree.Append(root, tree.BuildString("name", true, "Steve"))
	tree.Append(root, tree.BuildIntArray("pos", true, []int32{1, -2, 3}))
	tree.Append(root, tree.BuildLongArray("uuid", true, []int64{1, 2}))
	inv := tree.BuildList("inventory", true, TagCompound)
	tree.Append(root, inv)
	item := tree.BuildCompound("", false)
	tree.Append(item, tree.BuildByte("Count", true, 1))
	tree.Append(item, tree.BuildString("id", true, "minecraft:stone"))
	tree.Append(inv, item)

	out, err := Encode(tree, root, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	res, derr := Decode(out, nil)
	if derr != nil {
		t.Fatalf("Decode: %v", derr)
	}
	rt := res.Tree
	rr := res.Root
	if rt.Kind(rr) != TagCompound {
		t.Fatalf("root kind mismatch")
	}
	if rt.String(rt.ChildByName(rr, "name")) != "Steve" {
		t.Fatalf("name mismatch")
	}
	posArr := rt.IntArray(rt.ChildByName(rr, "pos"))
	if len(posArr) != 3 || posArr[1] != -2 {
		t.Fatalf("pos mismatch: %v", posArr)
	}
	uuidArr := rt.LongArray(rt.ChildByName(rr, "uuid"))
	if len(uuidArr) != 2 || uuidArr[0] != 1 {
		t.Fatalf("uuid mismatch: %v", uuidArr)
	}
	rInv := rt.ChildByName(rr, "inventory")
	if rt.ChildCount(rInv) != 1 {
		t.Fatalf("expected one inventory item")
	}
	rItem := rt.Child(rInv, 0)
	if rt.Int64(rt.ChildByName(rItem, "Count")) != 1 {
		t.Fatalf("count mismatch")
	}
	if rt.String(rt.ChildByName(rItem, "id")) != "minecraft:stone" {
		t.Fatalf("id mismatch")
	}
}

func TestEncodeGzipFramingDetectableByHeader(t *testing.T) {
	tree := NewTree()
	root := tree.BuildCompound("x", true)
	out, err := Encode(tree, root, &EncodeOptions{Format: GZIP})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if out[0] != 0x1F || out[1] != 0x8B {
		t.Fatalf("expected gzip header, got % X", out[:2])
	}
	res, derr := Decode(out, nil)
	if derr != nil {
		t.Fatalf("Decode: %v", derr)
	}
	if res.Tree.Kind(res.Root) != TagCompound {
		t.Fatalf("round trip through gzip failed")
	}
}

func TestEncodeCancellation(t *testing.T) {
	tree := NewTree()
	root := tree.BuildCompound("", true)
	cancel := NewCancelHandle()
	cancel.Cancel()
	_, err := Encode(tree, root, &EncodeOptions{Cancel: cancel})
	if err == nil || err.Kind != ErrCancelled {
		t.Fatalf("err = %v, want Cancelled", err)
	}
}
