package zmq

import (
	"context"
	"fmt"
	"logpush/pkg/protocol"

	"github.com/go-zeromq/zmq4"
)

// Sends one envelope as a single JSON frame
func (mod *OutModule) Write(ctx context.Context, envelope protocol.Envelope) (sent int, err error) {
	if mod == nil {
		return
	}

	payload, err := envelope.Marshal()
	if err != nil {
		return
	}

	err = mod.sink.Send(zmq4.NewMsg(payload))
	if err != nil {
		err = fmt.Errorf("send to %s failed: %w", mod.endpoint, err)
		return
	}
	sent = 1
	return
}

func (mod *OutModule) Endpoint() (endpoint string) {
	endpoint = mod.endpoint
	return
}
