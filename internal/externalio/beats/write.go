package beats

import (
	"context"
	"fmt"
	"logpush/internal/global"
	"logpush/pkg/protocol"
	"os"
)

// Sends one envelope as a lumberjack event and waits for the ACK
func (mod *OutModule) Write(ctx context.Context, envelope protocol.Envelope) (logsSent int, err error) {
	if mod == nil {
		return
	}

	fields := map[string]interface{}{
		// Envelope fields
		"source":      envelope.Source,
		"type":        envelope.Type,
		"tags":        envelope.Tags,
		"fields":      envelope.Fields,
		"timestamp":   envelope.Timestamp,
		"source_host": envelope.SourceHost,
		"source_path": envelope.SourcePath,
		"message":     envelope.Message,

		// Minimum fields expected by beats consumers
		"@timestamp": envelope.Timestamp,
		"host": map[string]interface{}{
			"name":     envelope.SourceHost,
			"hostname": envelope.SourceHost,
		},
		"log": map[string]interface{}{
			"file": map[string]interface{}{
				"path": envelope.SourcePath,
			},
		},
		"agent": map[string]interface{}{
			"name":    envelope.SourceHost,
			"program": global.ProgBaseName,
			"version": global.ProgVersion,
			"type":    "filebeat",
			"pid":     os.Getpid(),
		},
	}
	events := []interface{}{fields}

	logsSent, err = mod.sink.Send(events)
	if err != nil {
		err = fmt.Errorf("send to %s failed: %w", mod.endpoint, err)
		return
	}
	return
}

func (mod *OutModule) Endpoint() (endpoint string) {
	endpoint = mod.endpoint
	return
}
