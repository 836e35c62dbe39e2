// Copyright (c) 2025 dreamhelium
// SPDX-License-Identifier: MIT

package mutf8

import (
	"bytes"
	"strings"
	"testing"
)

func TestEncodeNulByte(t *testing.T) {
	got := Encode("\x00")
	want := []byte{0xC0, 0x80}
	if !bytes.Equal(got, want) {
		t.Fatalf("Encode(NUL) = % X, want % X", got, want)
	}
}

func TestDecodeNulByte(t *testing.T) {
	got, err := Decode([]byte{0xC0, 0x80})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != "\x00" {
		t.Fatalf("Decode(C0 80) = %q, want NUL", got)
	}
}

func TestSupplementaryCodePoint(t *testing.T) {
	s := "A\U0001D11E"
	encoded := Encode(s)
	want := []byte{0x41, 0xED, 0xA0, 0xB4, 0xED, 0xB4, 0x9E}
	if !bytes.Equal(encoded, want) {
		t.Fatalf("Encode(%q) = % X, want % X", s, encoded, want)
	}
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded != s {
		t.Fatalf("round trip = %q, want %q", decoded, s)
	}
}

func TestRoundTripArbitraryStrings(t *testing.T) {
	cases := []string{
		"",
		"hello",
		"A𝄞B",
		strings.Repeat("x", 300),
		"\x00\x00null-studded\x00",
		"日本語のキー",
		"emoji 🎮🧱 stack",
	}
	for _, s := range cases {
		enc := Encode(s)
		dec, err := Decode(enc)
		if err != nil {
			t.Fatalf("Decode(Encode(%q)): %v", s, err)
		}
		if dec != s {
			t.Fatalf("round trip %q -> % X -> %q", s, enc, dec)
		}
	}
}

func TestDecodeRejects4ByteLeaders(t *testing.T) {
	for lead := 0xF0; lead <= 0xFF; lead++ {
		_, err := Decode([]byte{byte(lead), 0x80, 0x80, 0x80})
		if err == nil {
			t.Fatalf("Decode with leading byte %#02X: expected error, got none", lead)
		}
	}
}

func TestDecodeRejectsBareContinuation(t *testing.T) {
	_, err := Decode([]byte{0x80})
	if err == nil {
		t.Fatalf("expected error for bare continuation byte")
	}
}

func TestDecodeRejectsTruncatedUnits(t *testing.T) {
	cases := [][]byte{
		{0xC0},
		{0xE0, 0x80},
	}
	for _, c := range cases {
		if _, err := Decode(c); err == nil {
			t.Fatalf("Decode(% X): expected truncation error", c)
		}
	}
}
