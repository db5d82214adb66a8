// Builds worker units from definitions, wires their queues and supervises their goroutines
package workers

import (
	"context"
	"errors"
	"fmt"
	"logpush/internal/agent/listener"
	"logpush/internal/agent/output"
	"logpush/internal/atomics"
	"logpush/internal/global"
	"logpush/internal/logctx"
	"logpush/internal/metrics"
	"logpush/internal/queue/fifo"
	"logpush/pkg/protocol"
	"slices"
	"strings"
)

// Creates new worker manager. Envelopes are stamped with hostname.
func NewManager(ctx context.Context, hostname string, registry *metrics.Registry) (new *Manager) {
	ctx = logctx.AppendCtxTag(ctx, global.NSWorkers)
	if registry == nil {
		registry = metrics.New()
	}

	new = &Manager{
		Namespace: logctx.GetTagList(ctx),
		ctx:       ctx,
		hostname:  hostname,
		metrics:   registry,
		units:     make(map[string]*Unit),
	}
	return
}

// Validates definitions and builds one unit per valid definition, then resolves output edges.
// Every rejected definition or edge is logged and returned; the rest are kept.
func (manager *Manager) Configure(defs []Definition) (errs []error) {
	manager.Mu.Lock()
	defer manager.Mu.Unlock()

	if manager.started {
		errs = append(errs, fmt.Errorf("workers cannot be configured after start"))
		return
	}

	specs, errs := ParseDefinitions(defs)

	for _, spec := range specs {
		if _, exists := manager.units[spec.ID]; exists {
			errs = append(errs, &ConfigError{Index: manager.indexOf(defs, spec.ID), ID: spec.ID,
				Err: fmt.Errorf("%w: '%s' is already configured", ErrDuplicateID, spec.ID)})
			continue
		}

		unit, err := manager.build(spec)
		if err != nil {
			errs = append(errs, &ConfigError{Index: manager.indexOf(defs, spec.ID), ID: spec.ID, Err: err})
			continue
		}
		manager.units[spec.ID] = unit
		manager.order = append(manager.order, spec.ID)
	}

	// Edges resolve against the full set, so forward references are allowed
	for _, id := range manager.order {
		unit := manager.units[id]

		forwarder, canForward := unit.runner.(Forwarder)
		for _, sinkID := range unit.spec.Output {
			sink, found := manager.units[sinkID]
			if !found {
				errs = append(errs, &ConfigError{Index: manager.indexOf(defs, id), ID: id,
					Err: fmt.Errorf("%w: '%s'", ErrUnknownSink, sinkID)})
				continue
			}
			if !canForward {
				logctx.LogEvent(manager.ctx, global.VerbosityStandard, global.WarnLog,
					"worker '%s' (%s) does not forward envelopes, ignoring output '%s'\n", id, unit.Type(), sinkID)
				continue
			}
			forwarder.AddSink(sinkID, sink.Queue)
			unit.sinks = append(unit.sinks, sinkID)
		}
		unit.setState(StateConfigured, nil)
	}

	for _, err := range errs {
		logctx.LogEvent(manager.ctx, global.VerbosityStandard, global.ErrorLog,
			"configuration error, skipping: %v\n", err)
	}
	return
}

// Position of the first definition with id, for error reporting
func (manager *Manager) indexOf(defs []Definition, id string) (index int) {
	for i, def := range defs {
		if strings.EqualFold(strings.TrimSpace(def.ID), id) {
			index = i
			return
		}
	}
	index = -1
	return
}

// Creates queue and runner for one spec
func (manager *Manager) build(spec Spec) (unit *Unit, err error) {
	unitCtx := logctx.AppendCtxTag(manager.ctx, spec.ID)

	switch spec.Type {
	case TypeWatch:
		var queue *fifo.Queue[protocol.Envelope]
		queue, err = fifo.New[protocol.Envelope](logctx.GetTagList(unitCtx), 0, fifo.PolicyUnbounded)
		if err != nil {
			return
		}

		var source *listener.FileSource
		source, err = listener.NewFileSource(unitCtx, listener.SourceConf{
			ID:    spec.ID,
			Files: spec.Watch.Files,
			Template: protocol.Template{
				Host:   manager.hostname,
				Type:   spec.Watch.LogType,
				Tags:   spec.Watch.Tags,
				Fields: spec.Watch.Fields,
			},
			TailLines: spec.Watch.TailLines,
			Mode:      spec.Watch.Mode,
			Interval:  spec.Watch.Interval,
		}, queue, manager.metrics)
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
			return
		}
		unit = newUnit(spec, queue, source)
	case TypeEmit:
		var queue *fifo.Queue[protocol.Envelope]
		queue, err = fifo.New[protocol.Envelope](logctx.GetTagList(unitCtx), spec.Emit.QueueCapacity, spec.Emit.QueuePolicy)
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
			return
		}

		var emitter *output.Emitter
		emitter, err = output.New(unitCtx, output.EmitterConf{
			ID:           spec.ID,
			Address:      spec.Emit.Address,
			Protocol:     spec.Emit.Protocol,
			PollInterval: spec.Emit.PollInterval,
			Reconnect:    spec.Emit.Reconnect,
		}, queue, manager.metrics)
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
			return
		}
		unit = newUnit(spec, queue, emitter)
	default:
		err = fmt.Errorf("%w: '%s'", ErrUnknownType, spec.Type)
		return
	}

	err = manager.metrics.RegisterQueue(spec.ID, unit.Queue.Metrics)
	if err != nil {
		logctx.LogEvent(unitCtx, global.VerbosityStandard, global.WarnLog, "%v\n", err)
		err = nil
	}
	return
}

// Opens every emitter connection, then launches every unit in its own goroutine.
// Nothing is launched if a connection fails; the failed units are marked failed.
func (manager *Manager) Start() (err error) {
	manager.Mu.Lock()
	defer manager.Mu.Unlock()

	if manager.started {
		err = fmt.Errorf("workers already started")
		return
	}
	if len(manager.order) == 0 {
		err = fmt.Errorf("no valid workers configured")
		return
	}

	// New context per unit so one unit can be stopped without touching the others
	for _, id := range manager.order {
		unit := manager.units[id]
		unitCtx := logctx.Inherit(context.Background(), manager.ctx)
		unitCtx = logctx.AppendCtxTag(unitCtx, id)
		unit.ctx, unit.cancel = context.WithCancel(unitCtx)
	}

	var opened []*Unit
	var openErrs []error
	for _, id := range manager.order {
		unit := manager.units[id]
		opener, ok := unit.runner.(Opener)
		if !ok {
			continue
		}

		unit.setState(StateRunning, nil)
		openErr := opener.Open(unit.ctx)
		if openErr != nil {
			unit.setState(StateFailed, openErr)
			logctx.LogEvent(unit.ctx, global.VerbosityStandard, global.ErrorLog, "%v\n", openErr)
			openErrs = append(openErrs, openErr)
			continue
		}
		opened = append(opened, unit)
	}
	if len(openErrs) > 0 {
		for _, unit := range opened {
			unit.runner.(Opener).Close()
			unit.setState(StateStopped, nil)
		}
		for _, id := range manager.order {
			manager.units[id].cancel()
		}
		err = errors.Join(openErrs...)
		return
	}

	manager.started = true
	for _, id := range manager.order {
		unit := manager.units[id]
		unit.setState(StateRunning, nil)

		manager.wg.Add(1)
		go func() {
			defer manager.wg.Done()
			defer close(unit.done)
			manager.supervise(unit)
		}()
	}

	logctx.LogEvent(manager.ctx, global.VerbosityStandard, global.InfoLog,
		"started %d worker(s)\n", len(manager.order))
	return
}

// Runs one unit to completion and records how it ended
func (manager *Manager) supervise(unit *Unit) {
	logctx.LogEvent(unit.ctx, global.VerbosityProgress, global.InfoLog, "worker '%s' (%s) running\n", unit.ID(), unit.Type())

	err := unit.run(unit.ctx)

	if opener, ok := unit.runner.(Opener); ok {
		closeErr := opener.Close()
		if closeErr != nil {
			logctx.LogEvent(unit.ctx, global.VerbosityStandard, global.WarnLog,
				"failed closing connection of worker '%s': %v\n", unit.ID(), closeErr)
		}
	}

	if err != nil && unit.ctx.Err() == nil {
		unit.setState(StateFailed, err)
		logctx.LogEvent(unit.ctx, global.VerbosityStandard, global.ErrorLog,
			"worker '%s' exited (%s): %v\n", unit.ID(), StateFailed, err)

		// Nothing consumes this queue anymore; refuse producers instead of blocking or growing
		unit.Queue.Close()
		abandoned := len(unit.Queue.Drain())
		logctx.LogEvent(unit.ctx, global.VerbosityStandard, global.WarnLog,
			"closed queue of failed worker '%s', abandoned %d queued envelope(s)\n", unit.ID(), abandoned)
		return
	}

	unit.setState(StateStopped, nil)
	logctx.LogEvent(unit.ctx, global.VerbosityStandard, global.InfoLog,
		"worker '%s' exited (%s) after %d envelope(s)\n", unit.ID(), StateStopped, unit.Events())
}

// Stops watch units first, gives emitters a bounded time to drain their queues,
// then cancels every remaining unit and closes all queues
func (manager *Manager) Stop() {
	manager.Mu.Lock()
	units := manager.unitsLocked()
	started := manager.started
	manager.Mu.Unlock()

	if started {
		manager.stopType(units, TypeWatch)
		manager.drain(units)
	}

	for _, unit := range units {
		if unit.cancel != nil {
			unit.cancel()
		}
	}
	manager.wg.Wait()

	for _, unit := range units {
		unit.Queue.Close()
		if depth := unit.Queue.Len(); depth > 0 {
			logctx.LogEvent(manager.ctx, global.VerbosityProgress, global.WarnLog,
				"abandoned %d queued envelope(s) of worker '%s'\n", depth, unit.ID())
		}
	}
}

// Cancels all units of one type and waits for them to exit
func (manager *Manager) stopType(units []*Unit, unitType UnitType) {
	for _, unit := range units {
		if unit.Type() == unitType && unit.cancel != nil {
			unit.cancel()
		}
	}
	for _, unit := range units {
		if unit.Type() == unitType {
			<-unit.Done()
		}
	}
}

// Waits for running emitters to empty their queues
func (manager *Manager) drain(units []*Unit) {
	ctx, cancel := context.WithTimeout(context.Background(), global.DefaultDrainTimeout)
	defer cancel()

	for _, unit := range units {
		if unit.Type() != TypeEmit || unit.State() != StateRunning {
			continue
		}
		reachedZero, last := atomics.WaitUntilZero(ctx, &unit.Queue.Metrics.Depth)
		if !reachedZero {
			logctx.LogEvent(manager.ctx, global.VerbosityStandard, global.WarnLog,
				"queue of worker '%s' did not empty in time: %d envelope(s) left\n", unit.ID(), last)
		}
	}
}

// Blocks until every started unit has exited
func (manager *Manager) Wait() {
	manager.wg.Wait()
}

// Units in declaration order
func (manager *Manager) Units() (units []*Unit) {
	manager.Mu.Lock()
	defer manager.Mu.Unlock()
	units = manager.unitsLocked()
	return
}

func (manager *Manager) unitsLocked() (units []*Unit) {
	units = make([]*Unit, 0, len(manager.order))
	for _, id := range manager.order {
		units = append(units, manager.units[id])
	}
	return
}

// Looks up a unit by id (case-insensitive)
func (manager *Manager) Unit(id string) (unit *Unit, found bool) {
	manager.Mu.Lock()
	defer manager.Mu.Unlock()
	unit, found = manager.units[strings.ToLower(strings.TrimSpace(id))]
	return
}

// Number of units currently running
func (manager *Manager) Running() (count int) {
	for _, unit := range manager.Units() {
		if unit.State() == StateRunning {
			count++
		}
	}
	return
}

// Ids of units in the given state
func (manager *Manager) InState(state State) (ids []string) {
	for _, unit := range manager.Units() {
		if unit.State() == state {
			ids = append(ids, unit.ID())
		}
	}
	slices.Sort(ids)
	return
}
