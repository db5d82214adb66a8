package workers

import (
	"fmt"
	"logpush/internal/agent/listener"
	"logpush/internal/agent/output"
	"logpush/internal/global"
	"logpush/internal/queue/fifo"
	"logpush/pkg/protocol"
	"strings"
	"time"
)

// Validates every definition in order. Rejected definitions are reported in errs and
// left out of specs; a later definition reusing an id (any case) is rejected.
func ParseDefinitions(defs []Definition) (specs []Spec, errs []error) {
	seen := make(map[string]struct{}, len(defs))

	for index, def := range defs {
		spec, err := def.Validate()
		if err != nil {
			errs = append(errs, &ConfigError{Index: index, ID: def.ID, Err: err})
			continue
		}

		if _, duplicate := seen[spec.ID]; duplicate {
			errs = append(errs, &ConfigError{Index: index, ID: def.ID,
				Err: fmt.Errorf("%w: '%s' is already defined", ErrDuplicateID, spec.ID)})
			continue
		}
		seen[spec.ID] = struct{}{}
		specs = append(specs, spec)
	}
	return
}

// Checks one definition on its own and converts it to its typed form
func (def Definition) Validate() (spec Spec, err error) {
	spec.ID = strings.ToLower(strings.TrimSpace(def.ID))
	if spec.ID == "" {
		err = fmt.Errorf("%w: missing id", ErrInvalidDefinition)
		return
	}

	unitType := strings.ToLower(strings.TrimSpace(def.Type))
	if unitType == "" {
		err = fmt.Errorf("%w: missing type", ErrInvalidDefinition)
		return
	}

	for _, sink := range def.Output {
		sink = strings.ToLower(strings.TrimSpace(sink))
		if sink == "" {
			continue
		}
		spec.Output = append(spec.Output, sink)
	}

	switch UnitType(unitType) {
	case TypeWatch:
		spec.Type = TypeWatch
		spec.Watch, err = def.watchSpec()
	case TypeEmit:
		spec.Type = TypeEmit
		spec.Emit, err = def.emitSpec()
	default:
		err = fmt.Errorf("%w: '%s' (expected %s or %s)", ErrUnknownType, def.Type, TypeWatch, TypeEmit)
	}
	return
}

func (def Definition) watchSpec() (watch *WatchSpec, err error) {
	var files []string
	for _, pattern := range def.Files {
		pattern = strings.TrimSpace(pattern)
		if pattern != "" {
			files = append(files, pattern)
		}
	}
	if len(files) == 0 {
		err = fmt.Errorf("%w: watch worker requires at least one entry in 'files'", ErrInvalidDefinition)
		return
	}
	if def.TailLines < 0 {
		err = fmt.Errorf("%w: 'tailLines' cannot be negative", ErrInvalidDefinition)
		return
	}

	mode := listener.Mode(strings.ToLower(def.Mode))
	switch mode {
	case "":
		mode = listener.ModePoll
	case listener.ModePoll, listener.ModeNotify:
	default:
		err = fmt.Errorf("%w: unknown mode '%s' (expected %s or %s)", ErrInvalidDefinition, def.Mode, listener.ModePoll, listener.ModeNotify)
		return
	}

	interval, err := parseDuration("interval", def.Interval, global.DefaultPollInterval)
	if err != nil {
		return
	}

	logType := def.LogType
	if logType == "" {
		logType = global.DefaultLogType
	}

	watch = &WatchSpec{
		Files:     files,
		LogType:   logType,
		Tags:      def.Tags,
		Fields:    def.Fields,
		TailLines: def.TailLines,
		Mode:      mode,
		Interval:  interval,
	}
	return
}

func (def Definition) emitSpec() (emit *EmitSpec, err error) {
	if strings.TrimSpace(def.Address) == "" {
		err = fmt.Errorf("%w: emit worker requires 'address'", ErrInvalidDefinition)
		return
	}
	address, err := protocol.NormalizeAddress(def.Address)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
		return
	}

	transport := strings.ToLower(def.Protocol)
	switch transport {
	case "":
		transport = output.ProtocolZMQ
	case output.ProtocolZMQ, output.ProtocolLumberjack:
	default:
		err = fmt.Errorf("%w: unknown protocol '%s' (expected %s or %s)", ErrInvalidDefinition, def.Protocol, output.ProtocolZMQ, output.ProtocolLumberjack)
		return
	}

	policy, err := fifo.ParsePolicy(strings.ToLower(def.Queue.Policy))
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
		return
	}
	capacity := def.Queue.Capacity
	if capacity < 0 {
		err = fmt.Errorf("%w: queue capacity cannot be negative", ErrInvalidDefinition)
		return
	}
	if policy != fifo.PolicyUnbounded && capacity == 0 {
		capacity = fifo.DefaultCapacity()
	}

	pollInterval, err := parseDuration("pollInterval", def.PollInterval, global.DefaultDequeueWait)
	if err != nil {
		return
	}

	reconnect := output.ReconnectConf{
		Enabled:     def.Reconnect.Enabled,
		MaxAttempts: def.Reconnect.MaxAttempts,
	}
	if reconnect.MaxAttempts < 0 {
		err = fmt.Errorf("%w: reconnect maxAttempts cannot be negative", ErrInvalidDefinition)
		return
	}
	if reconnect.Enabled && reconnect.MaxAttempts == 0 {
		reconnect.MaxAttempts = global.DefaultReconnectAttempts
	}
	reconnect.InitialDelay, err = parseDuration("reconnect.initialDelay", def.Reconnect.InitialDelay, global.DefaultReconnectDelay)
	if err != nil {
		return
	}
	reconnect.MaxDelay, err = parseDuration("reconnect.maxDelay", def.Reconnect.MaxDelay, global.DefaultReconnectMaxDelay)
	if err != nil {
		return
	}
	if reconnect.MaxDelay < reconnect.InitialDelay {
		reconnect.MaxDelay = reconnect.InitialDelay
	}

	emit = &EmitSpec{
		Address:       address,
		Protocol:      transport,
		QueueCapacity: capacity,
		QueuePolicy:   policy,
		Reconnect:     reconnect,
		PollInterval:  pollInterval,
	}
	return
}

// Parses a positive duration, empty means fallback
func parseDuration(key string, value string, fallback time.Duration) (duration time.Duration, err error) {
	if strings.TrimSpace(value) == "" {
		duration = fallback
		return
	}
	duration, err = time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		err = fmt.Errorf("%w: invalid '%s': %w", ErrInvalidDefinition, key, err)
		return
	}
	if duration <= 0 {
		err = fmt.Errorf("%w: '%s' must be positive", ErrInvalidDefinition, key)
		return
	}
	return
}
