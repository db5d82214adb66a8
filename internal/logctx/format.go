package logctx

import (
	"strings"
	"time"
)

// Fixed width so columns line up across events
const timestampLayout string = "2006-01-02T15:04:05.000000000Z07:00"

// Stringify full event (always newline terminated)
func (event Event) Format() (text string) {
	var parts []string
	if !event.Timestamp.IsZero() {
		parts = append(parts, "["+event.Timestamp.Format(timestampLayout)+"]")
	}
	if len(event.Tags) > 0 {
		parts = append(parts, "["+strings.Join(event.Tags, "/")+"]")
	}
	if event.Severity != "" {
		parts = append(parts, "["+event.Severity+"]")
	}
	if event.Message != "" {
		parts = append(parts, strings.TrimRight(event.Message, "\n"))
	}

	text = strings.Join(parts, " ") + "\n"
	return
}

// Timestamp in the same layout used by Format
func formatTimestamp(timestamp time.Time) (formatted string) {
	formatted = timestamp.Format(timestampLayout)
	return
}
