package journald

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"logpush/internal/global"
	"logpush/internal/logctx"
	"logpush/pkg/protocol"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const maxErrorBody int64 = 512

// Uploads one envelope as a journal entry
func (mod *OutModule) Write(ctx context.Context, envelope protocol.Envelope) (entriesWritten int, err error) {
	if mod == nil {
		return
	}

	// Original read time when parseable, arrival time otherwise
	realtime := time.Now()
	if parsed, parseErr := time.Parse(protocol.TimestampLayout, envelope.Timestamp); parseErr == nil {
		realtime = parsed
	}

	fields := map[string]string{
		"__REALTIME_TIMESTAMP": strconv.FormatInt(realtime.UnixMicro(), 10), // Required field
		"_BOOT_ID":             mod.bootID,                                  // Required field
		"MESSAGE":              envelope.Message,                            // Required field
		"HOSTNAME":             envelope.SourceHost,
		"SYSLOG_IDENTIFIER":    envelope.Type,
		"SYSLOG_TIMESTAMP":     envelope.Timestamp,
		"LOG_SOURCE":           envelope.Source,
		"LOG_FILE_PATH":        envelope.SourcePath,
		"LOG_TAGS":             strings.Join(envelope.Tags, ","),
	}
	for key, value := range envelope.Fields {
		name := fieldName(key)
		text := fieldValue(value)
		if name == "" || text == "" {
			logctx.LogEvent(ctx, global.VerbosityProgress, global.WarnLog,
				"skipping field '%s' not representable in journal\n", key)
			continue
		}
		if _, reserved := fields[name]; reserved {
			continue
		}
		fields[name] = text
	}

	err = mod.upload(ctx, encodeEntry(fields))
	if err != nil {
		err = fmt.Errorf("%w (source '%s')", err, envelope.Source)
		return
	}
	entriesWritten = 1
	return
}

// Posts export format payload to the journal-remote upload endpoint
func (mod *OutModule) upload(ctx context.Context, payload []byte) (err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, mod.url, bytes.NewReader(payload))
	if err != nil {
		err = fmt.Errorf("failed request creation: %w", err)
		return
	}
	req.Header.Set("Content-Type", exportContentType)
	req.Header.Del("Expect") // Unsupported by journal remote server

	resp, err := mod.sink.Do(req)
	if err != nil {
		err = fmt.Errorf("failed HTTP request: %w", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		err = fmt.Errorf("journald upload received HTTP status '%s'", resp.Status)
		if len(body) > 0 {
			err = fmt.Errorf("%w: %s", err, strings.TrimSpace(string(body)))
		}
		return
	}
	return
}

// Gracefully stops module (err always nil)
func (mod *OutModule) Shutdown() (err error) {
	if mod == nil {
		return
	}
	if mod.sink != nil {
		mod.sink.CloseIdleConnections()
	}
	return
}
