// Package sse implements a minimal Server-Sent Events line parser: the
// lowest-level primitive every streaming provider assembler decodes its
// wire bytes through.
package sse

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// maxTokenSize bounds a single SSE line. Provider payloads can carry large
// base64 attachments or long streamed tool-argument fragments on a single
// data: line, so the scanner's default 64KiB bufio.Scanner token limit is
// raised well past anything a chat completion chunk should plausibly need.
const maxTokenSize = 4 * 1024 * 1024

// Event is one decoded Server-Sent Event: the "event"/"data"/"id"/"retry"
// fields accumulated across a run of lines up to the terminating blank line.
// Data joins multiple "data:" lines with "\n", per the SSE spec.
type Event struct {
	Event string
	Data  string
	ID    string
	Retry int
}

// Parser turns a byte stream into a sequence of Events. Next returns
// io.EOF once the underlying reader is exhausted with no further event
// pending; any other error is a hard read failure.
type Parser struct {
	scanner *bufio.Scanner
	done    bool
}

// New wraps r in an SSE line parser.
func New(r io.Reader) *Parser {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxTokenSize)
	return &Parser{scanner: scanner}
}

// Next returns the next event, or io.EOF when the stream ends cleanly.
func (p *Parser) Next() (*Event, error) {
	if p.done {
		return nil, io.EOF
	}

	var ev Event
	var dataLines []string
	haveEvent := false

	for p.scanner.Scan() {
		line := p.scanner.Text()

		if line == "" {
			if haveEvent {
				ev.Data = strings.Join(dataLines, "\n")
				return &ev, nil
			}
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		haveEvent = true

		switch field {
		case "event":
			ev.Event = value
		case "data":
			dataLines = append(dataLines, value)
		case "id":
			ev.ID = value
		case "retry":
			if n, err := strconv.Atoi(value); err == nil {
				ev.Retry = n
			}
		}
	}

	if err := p.scanner.Err(); err != nil {
		p.done = true
		return nil, err
	}

	p.done = true
	if haveEvent {
		ev.Data = strings.Join(dataLines, "\n")
		return &ev, nil
	}
	return nil, io.EOF
}

// IsDone reports whether ev is the provider's sentinel terminating event —
// a bare "data: [DONE]" payload (OpenAI/OpenAI Responses/Chat Completions
// convention) or an explicit "done" event type.
func IsDone(ev *Event) bool {
	return ev.Data == "[DONE]" || ev.Event == "done"
}

// DataPayloads lazily yields each event's Data field as a string, skipping
// events with empty data, stopping at the first IsDone sentinel or at
// io.EOF. Its Next method reports (payload, ok); ok is false once the
// sequence is exhausted (whether by [DONE], EOF, or an upstream read error,
// which is then available via Err).
type DataPayloads struct {
	parser *Parser
	err    error
}

// NewDataPayloads builds a lazy payload sequence over r.
func NewDataPayloads(r io.Reader) *DataPayloads {
	return &DataPayloads{parser: New(r)}
}

// Next returns the next non-empty data payload, or ok=false when the
// sequence ends. Call Err afterward to distinguish a clean end from a read
// failure.
func (d *DataPayloads) Next() (string, bool) {
	for {
		ev, err := d.parser.Next()
		if err != nil {
			if err != io.EOF {
				d.err = err
			}
			return "", false
		}
		if IsDone(ev) {
			return "", false
		}
		if ev.Data == "" {
			continue
		}
		return ev.Data, true
	}
}

// Err returns the terminal read error, if the sequence ended because of one
// rather than a clean EOF or [DONE] sentinel.
func (d *DataPayloads) Err() error {
	return d.err
}
