package stream

import (
	"encoding/json"
	"log/slog"
	"strings"
)

// Decoder reassembles logical event records from arbitrarily fragmented
// reads. It keeps three pieces of state across Feed calls: the carry-over
// buffer (a line split across two reads), the currently open event's type,
// and its accumulated data lines. The framing logic is pure with respect
// to I/O, so it can be driven with synthetic byte sequences in tests.
type Decoder struct {
	buf       string
	eventType string
	dataLines []string
	log       *slog.Logger
}

func NewDecoder() *Decoder {
	return &Decoder{log: slog.Default().With("component", "stream")}
}

// Feed appends a fragment of the stream and returns every event completed
// by it, in wire order. Text after the last newline stays buffered for the
// next call.
func (d *Decoder) Feed(p []byte) []Event {
	d.buf += string(p)

	cut := strings.LastIndexByte(d.buf, '\n')
	if cut == -1 {
		return nil
	}
	lines := strings.Split(d.buf[:cut], "\n")
	d.buf = d.buf[cut+1:]

	var events []Event
	for _, line := range lines {
		if ev, ok := d.consumeLine(line); ok {
			events = append(events, ev)
		}
	}
	return events
}

// Flush drains whatever remains at end-of-stream: the buffered partial
// line is processed as a final line, and an open record missing its
// terminating blank line is closed.
func (d *Decoder) Flush() []Event {
	var events []Event
	if d.buf != "" {
		line := d.buf
		d.buf = ""
		if ev, ok := d.consumeLine(line); ok {
			events = append(events, ev)
		}
	}
	if ev, ok := d.closeRecord(); ok {
		events = append(events, ev)
	}
	return events
}

func (d *Decoder) consumeLine(line string) (Event, bool) {
	line = strings.TrimSuffix(line, "\r")

	// A blank line terminates the open record.
	if line == "" {
		return d.closeRecord()
	}

	if rest, ok := strings.CutPrefix(line, "event:"); ok {
		d.eventType = strings.TrimSpace(rest)
		return Event{}, false
	}
	if rest, ok := strings.CutPrefix(line, "data:"); ok {
		d.dataLines = append(d.dataLines, strings.TrimPrefix(rest, " "))
		return Event{}, false
	}

	// Comments and unknown field names are ignored per the SSE convention.
	return Event{}, false
}

// closeRecord parses the accumulated data of the open record. Malformed
// JSON is logged and skipped; one bad record never aborts the stream.
func (d *Decoder) closeRecord() (Event, bool) {
	if d.eventType == "" && len(d.dataLines) == 0 {
		return Event{}, false
	}
	evType := d.eventType
	data := strings.Join(d.dataLines, "\n")
	d.eventType = ""
	d.dataLines = nil

	if evType == "" {
		return Event{}, false
	}
	if !json.Valid([]byte(data)) {
		d.log.Warn("dropping event with malformed data", "event", evType, "data", data)
		return Event{}, false
	}
	return Event{Type: EventType(evType), Data: json.RawMessage(data)}, true
}
