// Package sse decodes Server-Sent Events from an OpenAI-compatible streaming
// completion response. Only the reading half of the protocol is implemented.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// DoneData is the sentinel payload OpenAI-compatible servers send as the last
// event of a stream.
const DoneData = "[DONE]"

// Event represents a single parsed SSE event, delimited by a blank line
// in the upstream byte stream.
type Event struct {
	// Type is the SSE event type from the "event:" field.
	// An empty string means the default "message" type.
	Type string

	// Data is the concatenated contents of all "data:" lines for this event,
	// joined with "\n".
	Data string

	// ID is the last event ID from the "id:" field, if present.
	ID string
}

// Done reports whether the event is the end-of-stream sentinel.
func (e Event) Done() bool {
	return e.Data == DoneData
}
