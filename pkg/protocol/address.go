package protocol

import (
	"fmt"
	"strings"
)

// Appends the default port to addresses without a colon
func NormalizeAddress(address string) (normalized string, err error) {
	address = strings.TrimSpace(address)
	address = strings.TrimPrefix(address, TransportScheme)
	if address == "" {
		err = fmt.Errorf("transport address is empty")
		return
	}

	normalized = address
	if !strings.Contains(address, ":") {
		normalized = address + ":" + DefaultPort
	}
	return
}

// Full transport endpoint (tcp://host:port) for a configured address
func Endpoint(address string) (endpoint string, err error) {
	normalized, err := NormalizeAddress(address)
	if err != nil {
		return
	}
	endpoint = TransportScheme + normalized
	return
}
