// Copyright (c) 2025 dreamhelium
// SPDX-License-Identifier: MIT

/*
Package nbt implements Minecraft's NBT ("Named Binary Tag") binary format:
a recursive-descent decoder and encoder, a Modified UTF-8 transcoder for its
string payloads (package mutf8), a compression gateway that detects and
applies GZIP/ZLIB/raw framing, and an editable in-memory tag tree that
callers can build, inspect, and mutate before re-encoding.

The region-file container format ("MCA") that multiplexes up to 1024
compressed NBT chunk documents into a single file lives in the sibling
package mca, which calls back into this package to parse and emit each
chunk's blob.

# Features

  - Pure Go implementation — no cgo, no external parser generator
  - Arena-based tag tree: nodes are addressed by NodeID handle, not pointer,
    so a tree has no cycles and DeepCopy/Remove are straightforward subtree
    walks
  - Decodes and encodes GZIP, ZLIB, or raw NBT framing
  - Optional progress callback and cancellation handle on every entry point
  - A small process-wide, replaceable registry of diagnostic strings

# Basic Usage

Decoding a document:

	result, err := nbt.Decode(data, nil)
	if err != nil {
		log.Fatal(err)
	}
	if result.Leftover {
		log.Println("trailing bytes after the document")
	}
	name, _ := result.Tree.Name(result.Root)

Building and encoding a document:

	tree := nbt.NewTree()
	root := tree.BuildCompound("", true)
	tree.Append(root, tree.BuildByte("hello", true, 42))

	out, err := nbt.Encode(tree, root, &nbt.EncodeOptions{Format: nbt.GZIP})
	if err != nil {
		log.Fatal(err)
	}

# Limitations

This package focuses on the core of NBT and deliberately leaves out:

  - No schema validation of game-specific tag contents
  - No streaming partial parse — a document must fit in memory once
    decompressed
  - No multi-threaded parse of a single document
  - No human-readable "SNBT" printing (a distinct textual format, out of
    scope here)
*/
package nbt
