package workers

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDefinition = errors.New("invalid worker definition")
	ErrDuplicateID       = errors.New("duplicate worker id")
	ErrUnknownType       = errors.New("unknown worker type")
	ErrUnknownSink       = errors.New("unknown output worker")
)

// Problem with one worker definition. The definition (or edge) is skipped.
type ConfigError struct {
	Index int // position in the configured list
	ID    string
	Err   error
}

func (cfgErr *ConfigError) Error() (text string) {
	id := cfgErr.ID
	if id == "" {
		id = "<none>"
	}
	text = fmt.Sprintf("worker #%d (id '%s'): %v", cfgErr.Index+1, id, cfgErr.Err)
	return
}

func (cfgErr *ConfigError) Unwrap() (err error) {
	err = cfgErr.Err
	return
}
