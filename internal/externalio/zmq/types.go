package zmq

import (
	"github.com/go-zeromq/zmq4"
)

// PUSH side, connected to one collector
type OutModule struct {
	sink     zmq4.Socket
	endpoint string
}

// PULL side, bound on the collector address
type InModule struct {
	source   zmq4.Socket
	endpoint string
}
