// Envelope schema and transport addressing shared by agent and collector
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Builds the envelope for one complete line read from path
func (tmpl Template) Wrap(path string, line string, at time.Time) (envelope Envelope) {
	tags := tmpl.Tags
	if tags == nil {
		tags = []string{}
	}
	fields := tmpl.Fields
	if fields == nil {
		fields = map[string]any{}
	}

	envelope = Envelope{
		Source:     SourceURI(tmpl.Host, path),
		Type:       tmpl.Type,
		Tags:       tags,
		Fields:     fields,
		Timestamp:  at.UTC().Format(TimestampLayout),
		SourceHost: tmpl.Host,
		SourcePath: path,
		Message:    StripTerminator(line),
	}
	return
}

// file://<host><absolute-path>
func SourceURI(host string, path string) (uri string) {
	uri = SourceScheme + host + path
	return
}

// Removes one trailing line terminator (\n or \r\n)
func StripTerminator(line string) (stripped string) {
	stripped = strings.TrimSuffix(line, "\n")
	stripped = strings.TrimSuffix(stripped, "\r")
	return
}

// Serializes envelope to one self-contained JSON message
func (envelope Envelope) Marshal() (payload []byte, err error) {
	payload, err = json.Marshal(envelope)
	if err != nil {
		err = fmt.Errorf("failed to serialize envelope from '%s': %w", envelope.SourcePath, err)
	}
	return
}

// Parses one JSON message into an envelope.
// Missing tags/fields are normalized to empty values.
func Unmarshal(payload []byte) (envelope Envelope, err error) {
	err = json.Unmarshal(payload, &envelope)
	if err != nil {
		err = fmt.Errorf("invalid envelope payload: %w", err)
		return
	}
	if envelope.Tags == nil {
		envelope.Tags = []string{}
	}
	if envelope.Fields == nil {
		envelope.Fields = map[string]any{}
	}
	return
}

// Converts a decoded lumberjack event (generic JSON object) into an envelope
func FromEvent(event any) (envelope Envelope, err error) {
	raw, err := json.Marshal(event)
	if err != nil {
		err = fmt.Errorf("unable to re-encode event: %w", err)
		return
	}
	envelope, err = Unmarshal(raw)
	return
}

// Single-line text rendering for human-readable outputs
// Fmt: '2020-01-01T10:10:10.123456Z app1 /var/log/syslog [linux-syslog]: this is a log message'
func (envelope Envelope) Text() (text string) {
	text = envelope.Timestamp + " " +
		envelope.SourceHost + " " +
		envelope.SourcePath + " " +
		"[" + envelope.Type + "]: " +
		envelope.Message
	if len(envelope.Tags) > 0 {
		text += " tags=" + strings.Join(envelope.Tags, ",")
	}
	return
}
