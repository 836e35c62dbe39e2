// Copyright (c) 2025 dreamhelium
// SPDX-License-Identifier: MIT

package nbt

import "sync/atomic"

// Messages holds the human-readable status strings the decoder and encoder
// report through a ProgressFunc. Replace the process-wide default with
// SetMessages to localise them; the swap is a single atomic pointer store,
// so it is safe to race with readers but callers should not replace messages
// concurrently with decoding unless they are fine with one in-flight
// operation seeing a mix of old and new strings.
type Messages struct {
	Decompressing       string
	ParsingFile         string
	ParsingTree         string
	ParsingFinished     string
	ParsingFailed       string
	LeftoverDataWarning string
}

func defaultMessages() *Messages {
	return &Messages{
		Decompressing:       "Decompressing.",
		ParsingFile:         "Parsing file.",
		ParsingTree:         "Parsing NBT file to NBT node tree.",
		ParsingFinished:     "Parsing finished!",
		ParsingFailed:       "Parsing file failed.",
		LeftoverDataWarning: "Some leftover data detected after parsing.",
	}
}

var messages atomic.Pointer[Messages]

func init() {
	messages.Store(defaultMessages())
}

// CurrentMessages returns the active diagnostic message registry.
func CurrentMessages() *Messages {
	return messages.Load()
}

// SetMessages replaces the process-wide diagnostic message registry. Pass
// nil to restore the built-in English strings.
func SetMessages(m *Messages) {
	if m == nil {
		m = defaultMessages()
	}
	messages.Store(m)
}
