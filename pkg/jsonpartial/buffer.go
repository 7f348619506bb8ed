// Package jsonpartial implements the shared per-tool-call byte buffer every
// streaming assembler (Anthropic, Chat Completions, Responses) accumulates
// tool-argument JSON fragments into, publishing a best-effort parse after
// each append without ever mutating a shared object in place.
package jsonpartial

import (
	"encoding/json"

	"github.com/kaptinlin/jsonrepair"

	"github.com/harborwave/llmkit/pkg/value"
)

// Buffer accumulates raw JSON text fragments and exposes the last
// successfully parsed value.Value. It never regresses: TryParse only
// replaces the last-good parse when the accumulated bytes parse to a
// complete JSON value (object, per the streaming tool-argument contract),
// so callers can always keep exposing the previous result on failure.
type Buffer struct {
	raw      []byte
	lastGood value.Value
	hasGood  bool
}

// NewBuffer returns an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append adds fragment to the accumulated bytes.
func (b *Buffer) Append(fragment string) {
	b.raw = append(b.raw, fragment...)
}

// Raw returns the accumulated bytes as a string, for diagnostics or the
// Responses API's `{_rawArguments}` fallback.
func (b *Buffer) Raw() string {
	return string(b.raw)
}

// TryParse attempts to parse the accumulated buffer as a JSON value.
// It first tries a strict encoding/json decode; on failure it asks
// github.com/kaptinlin/jsonrepair to close whatever is open (truncated
// strings, missing closing brackets) and retries. If jsonrepair itself
// can't produce parseable JSON (e.g. a multibyte UTF-8 rune split across
// fragment boundaries, which jsonrepair doesn't attempt to fix), it falls
// back to the teacher's own bracket-stack closer as a last resort. On any
// success the result becomes the new last-good parse and is returned with
// ok=true; on total failure, the previous last-good parse (if any) is
// returned with ok=false so callers can tell "kept stale" from "fresh".
func (b *Buffer) TryParse() (value.Value, bool) {
	if v, ok := tryStrictParse(b.raw); ok {
		b.lastGood = v
		b.hasGood = true
		return v, true
	}

	if repaired, err := jsonrepair.JSONRepair(string(b.raw)); err == nil {
		if v, ok := tryStrictParse([]byte(repaired)); ok {
			b.lastGood = v
			b.hasGood = true
			return v, true
		}
	}

	if fixed := FixJSON(string(b.raw)); fixed != "" {
		if v, ok := tryStrictParse([]byte(fixed)); ok {
			b.lastGood = v
			b.hasGood = true
			return v, true
		}
	}

	return b.lastGood, false
}

// LastGood returns the most recent successful parse and whether one exists
// yet.
func (b *Buffer) LastGood() (value.Value, bool) {
	return b.lastGood, b.hasGood
}

func tryStrictParse(raw []byte) (value.Value, bool) {
	if len(raw) == 0 {
		return value.Null(), false
	}
	var v value.Value
	if err := json.Unmarshal(raw, &v); err != nil {
		return value.Null(), false
	}
	return v, true
}
