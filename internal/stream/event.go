// Package stream consumes the server-driven progress stream of a
// long-running entity-similarity scan. The wire format is SSE-style text
// (an "event:" line, a "data:" line, a blank line); the transport may split
// or merge records arbitrarily, so framing is handled by an explicit
// Decoder and dispatch preserves emission order.
package stream

import "encoding/json"

// EventType tags a stream record. Unrecognized tags are dropped silently
// at dispatch.
type EventType string

const (
	EventStart        EventType = "start"
	EventTypeStart    EventType = "type_start"
	EventProgress     EventType = "progress"
	EventTypeComplete EventType = "type_complete"
	EventComplete     EventType = "complete"
	EventCancelled    EventType = "cancelled"
	EventError        EventType = "error"
)

// Event is one decoded stream record. Data holds the record's JSON payload
// as emitted by the server.
type Event struct {
	Type EventType
	Data json.RawMessage
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// ScanStarted is the payload of a "start" event.
type ScanStarted struct {
	ScanID      string   `json:"scan_id"`
	CaseID      string   `json:"case_id"`
	EntityTypes []string `json:"entity_types"`
}

// TypeProgress is the payload of "type_start", "progress" and
// "type_complete" events.
type TypeProgress struct {
	EntityType string          `json:"entity_type"`
	Processed  int             `json:"processed"`
	Total      int             `json:"total"`
	Matches    json.RawMessage `json:"matches,omitempty"`
}

// ScanComplete is the payload of a "complete" event.
type ScanComplete struct {
	ScanID       string `json:"scan_id"`
	TotalMatches int    `json:"total_matches"`
}

// Handlers holds the caller's per-event callbacks. Nil slots are no-ops.
// OnTransportError is invoked once when the underlying read fails for a
// reason other than cancellation; it is not a stream event.
type Handlers struct {
	OnStart        func(Event)
	OnTypeStart    func(Event)
	OnProgress     func(Event)
	OnTypeComplete func(Event)
	OnComplete     func(Event)
	OnCancelled    func(Event)
	OnError        func(Event)

	OnTransportError func(error)
}

// dispatch routes one event to its callback. Unknown types fall through to
// a no-op rather than silently corrupting the sequence.
func (h Handlers) dispatch(ev Event) {
	var fn func(Event)
	switch ev.Type {
	case EventStart:
		fn = h.OnStart
	case EventTypeStart:
		fn = h.OnTypeStart
	case EventProgress:
		fn = h.OnProgress
	case EventTypeComplete:
		fn = h.OnTypeComplete
	case EventComplete:
		fn = h.OnComplete
	case EventCancelled:
		fn = h.OnCancelled
	case EventError:
		fn = h.OnError
	default:
		return
	}
	if fn != nil {
		fn(ev)
	}
}
