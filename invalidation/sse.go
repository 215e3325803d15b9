package invalidation

import (
	"bufio"
	"io"
	"strings"
)

// event is a single server-sent event. Events without an explicit
// "event:" field carry the protocol default name "message".
type event struct {
	name string
	data string
}

// eventReader decodes a text/event-stream body into events. Only the fields
// the backend uses are handled: "event", "data" and comment lines; "id" and
// "retry" are ignored because reconnect policy is owned by the Channel.
type eventReader struct {
	scanner *bufio.Scanner
}

func newEventReader(r io.Reader) *eventReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 64*1024)
	return &eventReader{scanner: scanner}
}

// Next blocks until a complete event has been read. It returns io.EOF when
// the stream ends cleanly and the underlying read error otherwise.
func (r *eventReader) Next() (event, error) {
	ev := event{name: "message"}
	sawField := false
	var data []string

	for r.scanner.Scan() {
		line := r.scanner.Text()

		if line == "" {
			if !sawField {
				continue // stray separator between events
			}
			ev.data = strings.Join(data, "\n")
			return ev, nil
		}
		if strings.HasPrefix(line, ":") {
			continue // comment / heartbeat line
		}

		field, value := splitField(line)
		switch field {
		case "event":
			ev.name = value
			sawField = true
		case "data":
			data = append(data, value)
			sawField = true
		}
	}

	if err := r.scanner.Err(); err != nil {
		return event{}, err
	}
	return event{}, io.EOF
}

func splitField(line string) (field, value string) {
	field, value, found := strings.Cut(line, ":")
	if !found {
		return line, ""
	}
	// The wire format allows a single optional space after the colon.
	value = strings.TrimPrefix(value, " ")
	return field, value
}
