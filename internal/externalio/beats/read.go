package beats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrServerClosed = errors.New("beats server closed")

// Waits for the next batch, acknowledges it and returns every event re-encoded as JSON
func (mod *InModule) Read(ctx context.Context) (payloads [][]byte, err error) {
	select {
	case <-ctx.Done():
		err = ctx.Err()
		return
	case batch, ok := <-mod.source.ReceiveChan():
		if !ok || batch == nil {
			err = ErrServerClosed
			return
		}
		defer batch.ACK()

		for _, event := range batch.Events {
			payload, encErr := json.Marshal(event)
			if encErr != nil {
				err = errors.Join(err, fmt.Errorf("unable to encode received event: %w", encErr))
				continue
			}
			payloads = append(payloads, payload)
		}
	}
	return
}

// Bound local address
func (mod *InModule) Address() (address string) {
	address = mod.listener.Addr().String()
	return
}
