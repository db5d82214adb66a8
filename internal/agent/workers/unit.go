package workers

import (
	"context"
	"fmt"
	"logpush/internal/queue/fifo"
	"logpush/pkg/protocol"
	"runtime/debug"
	"slices"
)

func newUnit(spec Spec, queue *fifo.Queue[protocol.Envelope], runner Runner) (new *Unit) {
	new = &Unit{
		spec:   spec,
		Queue:  queue,
		runner: runner,
		state:  StateCreated,
		done:   make(chan struct{}),
	}
	return
}

func (unit *Unit) ID() (id string) {
	id = unit.spec.ID
	return
}

func (unit *Unit) Type() (unitType UnitType) {
	unitType = unit.spec.Type
	return
}

// Validated definition the unit was built from
func (unit *Unit) Spec() (spec Spec) {
	spec = unit.spec
	return
}

func (unit *Unit) State() (state State) {
	unit.mutex.Lock()
	defer unit.mutex.Unlock()
	state = unit.state
	return
}

// Error that moved the unit to failed, nil otherwise
func (unit *Unit) Err() (err error) {
	unit.mutex.Lock()
	defer unit.mutex.Unlock()
	err = unit.err
	return
}

// Envelopes handled so far: built from lines (watch) or sent (emit)
func (unit *Unit) Events() (count uint64) {
	count = unit.runner.Processed()
	return
}

// Resolved output worker ids
func (unit *Unit) Sinks() (ids []string) {
	ids = slices.Clone(unit.sinks)
	return
}

// Closed once the unit goroutine has exited
func (unit *Unit) Done() (done <-chan struct{}) {
	done = unit.done
	return
}

func (unit *Unit) setState(state State, err error) {
	unit.mutex.Lock()
	defer unit.mutex.Unlock()
	unit.state = state
	if err != nil {
		unit.err = err
	}
}

// Executes the runner, converting panics into a failure
func (unit *Unit) run(ctx context.Context) (err error) {
	defer func() {
		if fatalError := recover(); fatalError != nil {
			err = fmt.Errorf("panic in worker '%s': %v\n%s", unit.ID(), fatalError, debug.Stack())
		}
	}()
	err = unit.runner.Run(ctx)
	return
}
