// Lumberjack v2 (beats) transport. Every send is acknowledged by the receiving side.
package beats

import (
	"fmt"
	"logpush/internal/global"
	"logpush/pkg/protocol"
	"net"

	ljclient "github.com/elastic/go-lumber/client/v2"
	ljserver "github.com/elastic/go-lumber/server/v2"
)

// Creates new beats (lumberjack) output module. Returns nil nil if no address.
func NewOutput(address string) (module *OutModule, err error) {
	if address == "" {
		return
	}

	endpoint, err := protocol.NormalizeAddress(address)
	if err != nil {
		return
	}

	compression := ljclient.CompressionLevel(0)
	timeout := ljclient.Timeout(global.DefaultSendTimeout)

	client, err := ljclient.SyncDial(endpoint, compression, timeout)
	if err != nil {
		err = fmt.Errorf("failed connection to beats server: %w", err)
		return
	}

	module = &OutModule{
		sink:     client,
		endpoint: endpoint,
	}
	return
}

// Creates new beats (lumberjack) input module listening on address. Returns nil nil if no address.
func NewInput(address string) (module *InModule, err error) {
	if address == "" {
		return
	}

	endpoint, err := protocol.NormalizeAddress(address)
	if err != nil {
		return
	}

	listener, err := net.Listen("tcp", endpoint)
	if err != nil {
		err = fmt.Errorf("failed to bind %s: %w", endpoint, err)
		return
	}

	server, err := ljserver.NewWithListener(listener)
	if err != nil {
		listener.Close()
		err = fmt.Errorf("failed to start beats server on %s: %w", endpoint, err)
		return
	}

	module = &InModule{
		source:   server,
		listener: listener,
	}
	return
}
