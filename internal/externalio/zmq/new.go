// ZeroMQ push/pull transport. One envelope per message frame, no acknowledgement.
package zmq

import (
	"context"
	"fmt"
	"logpush/internal/global"
	"logpush/pkg/protocol"

	"github.com/go-zeromq/zmq4"
)

// Creates new zmq output module connected to address. Returns nil nil if no address.
func NewOutput(ctx context.Context, address string) (module *OutModule, err error) {
	if address == "" {
		return
	}

	endpoint, err := protocol.Endpoint(address)
	if err != nil {
		return
	}

	socket := zmq4.NewPush(ctx,
		zmq4.WithDialerRetry(global.DefaultReconnectDelay),
		zmq4.WithDialerMaxRetries(global.DefaultReconnectAttempts),
	)
	err = socket.Dial(endpoint)
	if err != nil {
		socket.Close()
		err = fmt.Errorf("failed connection to collector at %s: %w", endpoint, err)
		return
	}

	module = &OutModule{
		sink:     socket,
		endpoint: endpoint,
	}
	return
}

// Creates new zmq input module listening on address. Returns nil nil if no address.
func NewInput(ctx context.Context, address string) (module *InModule, err error) {
	if address == "" {
		return
	}

	endpoint, err := protocol.Endpoint(address)
	if err != nil {
		return
	}

	socket := zmq4.NewPull(ctx)
	err = socket.Listen(endpoint)
	if err != nil {
		socket.Close()
		err = fmt.Errorf("failed to bind %s: %w", endpoint, err)
		return
	}

	module = &InModule{
		source:   socket,
		endpoint: endpoint,
	}
	return
}
