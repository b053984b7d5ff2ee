package sse

import (
	"bufio"
	"io"
	"strings"
)

// Reader parses SSE events from a source io.Reader. When a tee writer is
// configured every raw line is copied to it verbatim, which is how the OpenAI
// transport captures a wire transcript in debug mode.
type Reader struct {
	scanner *bufio.Scanner
	tee     io.Writer

	// current accumulates fields for the event being built.
	current Event
	hasData bool
}

// Option configures a Reader.
type Option func(*Reader)

// WithTee copies every raw line read from the source to w.
func WithTee(w io.Writer) Option {
	return func(r *Reader) {
		r.tee = w
	}
}

// NewReader returns a Reader over src.
func NewReader(src io.Reader, opts ...Option) *Reader {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	r := &Reader{scanner: scanner}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Next blocks until a complete event is available and returns it. Next
// returns io.EOF once the source is exhausted; an event left open by a stream
// that ended without a trailing blank line is still delivered first.
func (r *Reader) Next() (Event, error) {
	for r.scanner.Scan() {
		raw := r.scanner.Text()

		if r.tee != nil {
			// bufio.Scanner strips the newline, reinsert it for the transcript.
			if _, err := io.WriteString(r.tee, raw+"\n"); err != nil {
				return Event{}, err
			}
		}

		// A blank line ends the current event.
		if raw == "" {
			if r.hasData {
				return r.flush(), nil
			}
			// Leading blank lines and keep-alives.
			continue
		}

		// Comments
		if strings.HasPrefix(raw, ":") {
			continue
		}

		r.parseLine(raw)
	}

	if err := r.scanner.Err(); err != nil {
		return Event{}, err
	}

	if r.hasData {
		return r.flush(), nil
	}

	return Event{}, io.EOF
}

// parseLine accumulates a single "field:value" line into the current event.
// The first space after the colon is optional and stripped if present.
func (r *Reader) parseLine(line string) {
	field, value, ok := strings.Cut(line, ":")
	if ok {
		value = strings.TrimPrefix(value, " ")
	}

	switch field {
	case "data":
		if r.hasData && r.current.Data != "" {
			r.current.Data += "\n"
		}
		r.current.Data += value
		r.hasData = true
	case "event":
		r.current.Type = value
		r.hasData = true
	case "id":
		r.current.ID = value
		r.hasData = true
	default:
		// "retry" and unknown fields are ignored.
	}
}

func (r *Reader) flush() Event {
	ev := r.current
	r.current = Event{}
	r.hasData = false
	return ev
}
