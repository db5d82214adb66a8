package zmq

import (
	"context"
	"fmt"
)

// Blocks for the next message and returns its frames as raw payloads.
// Fails once the socket is closed or its context is cancelled.
func (mod *InModule) Read(ctx context.Context) (payloads [][]byte, err error) {
	msg, err := mod.source.Recv()
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
			return
		}
		err = fmt.Errorf("receive on %s failed: %w", mod.endpoint, err)
		return
	}

	payloads = make([][]byte, 0, len(msg.Frames))
	for _, frame := range msg.Frames {
		if len(frame) == 0 {
			continue
		}
		payloads = append(payloads, frame)
	}
	return
}

// Bound local address (resolved port when listening on port 0)
func (mod *InModule) Address() (address string) {
	if addr := mod.source.Addr(); addr != nil {
		address = addr.String()
		return
	}
	address = mod.endpoint
	return
}
