package simulator

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/speedwagon-io/sensorsim/internal/generator"
	"github.com/speedwagon-io/sensorsim/internal/lib/logger/sl"
	"github.com/speedwagon-io/sensorsim/internal/metrics"
	"github.com/speedwagon-io/sensorsim/internal/model"
	"github.com/speedwagon-io/sensorsim/internal/sink"
)

// Unit is one simulated sensor running its own emission loop.
//
// State changes are broadcast by closing the current changed channel and
// replacing it, so both the pause gate and the interval wait wake up on any
// transition, including stop.
type Unit struct {
	log      *slog.Logger
	identity model.Identity
	instance uuid.UUID
	gen      *generator.Generator
	sink     sink.Sink
	metrics  *metrics.Metrics
	onExit   func(*Unit)

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	state   model.State
	changed chan struct{}
	err     error

	// stepMu is held for one generate+append step.
	stepMu  sync.Mutex
	lastTS  time.Time
	emitted atomic.Int64

	done chan struct{}
}

func newUnit(
	log *slog.Logger,
	identity model.Identity,
	gen *generator.Generator,
	s sink.Sink,
	m *metrics.Metrics,
	onExit func(*Unit),
) *Unit {
	instance := uuid.New()
	ctx, cancel := context.WithCancel(context.Background())

	return &Unit{
		log: log.With(
			slog.String("sensor_id", identity.ID),
			slog.String("sensor_type", string(identity.Kind)),
			slog.String("instance", instance.String()),
		),
		identity: identity,
		instance: instance,
		gen:      gen,
		sink:     s,
		metrics:  m,
		onExit:   onExit,
		ctx:      ctx,
		cancel:   cancel,
		state:    model.StateRunning,
		changed:  make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (u *Unit) ID() string {
	return u.identity.ID
}

func (u *Unit) Identity() model.Identity {
	return u.identity
}

func (u *Unit) Status() model.State {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

// Err returns the fatal error that stopped the unit, if any.
func (u *Unit) Err() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.err
}

// Done is closed once the loop has exited and the unit has deregistered.
func (u *Unit) Done() <-chan struct{} {
	return u.done
}

// Emitted returns the number of readings the sink accepted.
func (u *Unit) Emitted() int64 {
	return u.emitted.Load()
}

func (u *Unit) Info() model.SensorInfo {
	u.mu.Lock()
	state, err := u.state, u.err
	u.mu.Unlock()

	info := model.SensorInfo{
		SensorID:   u.identity.ID,
		SensorType: u.identity.Kind,
		Status:     state,
		Interval:   u.identity.Interval.Seconds(),
		Emitted:    u.emitted.Load(),
	}
	if err != nil {
		info.Error = err.Error()
	}
	return info
}

// Pause stops emission until Resume. A step already in flight completes
// before Pause returns; none starts afterwards.
func (u *Unit) Pause() {
	if u.transition(model.StatePaused, model.StateRunning) {
		u.log.Info("sensor paused")
	}
	u.stepMu.Lock()
	u.stepMu.Unlock()
}

func (u *Unit) Resume() {
	if u.transition(model.StateRunning, model.StatePaused) {
		u.log.Info("sensor resumed")
	}
}

// Stop ends the loop and blocks until the unit has deregistered.
// It is safe to call any number of times.
func (u *Unit) Stop() {
	if u.transition(model.StateStopped, model.StateRunning, model.StatePaused) {
		u.log.Info("stopping sensor")
	}
	<-u.done
}

func (u *Unit) transition(to model.State, from ...model.State) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !slices.Contains(from, u.state) {
		return false
	}
	u.setStateLocked(to)
	return true
}

func (u *Unit) setStateLocked(to model.State) {
	u.state = to
	close(u.changed)
	u.changed = make(chan struct{})
}

func (u *Unit) run() {
	defer u.exit()

	u.log.Info("sensor started", slog.Duration("interval", u.identity.Interval))

	for {
		if !u.awaitRunning() {
			return
		}

		if err := u.step(); err != nil {
			u.fail(err)
			return
		}

		u.awaitInterval()
	}
}

// awaitRunning blocks while paused. It reports false once the unit is stopped.
func (u *Unit) awaitRunning() bool {
	for {
		u.mu.Lock()
		state, changed := u.state, u.changed
		u.mu.Unlock()

		switch state {
		case model.StateRunning:
			return true
		case model.StateStopped:
			return false
		}

		<-changed
	}
}

// awaitInterval waits for the interval to elapse or for any state change.
func (u *Unit) awaitInterval() {
	u.mu.Lock()
	state, changed := u.state, u.changed
	u.mu.Unlock()

	if state == model.StateStopped {
		return
	}

	timer := time.NewTimer(u.identity.Interval)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-changed:
	}
}

// step generates and persists one reading. Only a generator error is
// returned; sink failures are logged and the reading is dropped.
func (u *Unit) step() error {
	u.stepMu.Lock()
	defer u.stepMu.Unlock()

	if u.Status() != model.StateRunning {
		return nil
	}

	value, err := u.gen.Value(u.identity.Kind)
	if err != nil {
		return err
	}

	reading := model.NewReading(u.identity, u.now(), value)

	if err := u.sink.Append(u.ctx, reading); err != nil {
		u.metrics.SinkError(u.identity.Kind)
		u.log.Error("failed to persist reading", sl.Err(err))
		return nil
	}

	u.emitted.Add(1)
	u.metrics.ReadingEmitted(u.identity.Kind)
	u.log.Debug("reading emitted", slog.Float64("value", value))
	return nil
}

// now returns a timestamp that never goes backwards for this unit.
func (u *Unit) now() time.Time {
	ts := time.Now().UTC()
	if ts.Before(u.lastTS) {
		ts = u.lastTS
	}
	u.lastTS = ts
	return ts
}

func (u *Unit) fail(err error) {
	u.mu.Lock()
	u.err = err
	if u.state != model.StateStopped {
		u.setStateLocked(model.StateStopped)
	}
	u.mu.Unlock()

	u.metrics.UnitFailed(u.identity.Kind)

	var unsupported *model.UnsupportedKindError
	if errors.As(err, &unsupported) {
		u.log.Error("sensor misconfigured, stopping", sl.Err(err))
		return
	}
	u.log.Error("sensor failed, stopping", sl.Err(err))
}

func (u *Unit) exit() {
	u.cancel()

	u.mu.Lock()
	if u.state != model.StateStopped {
		u.setStateLocked(model.StateStopped)
	}
	u.mu.Unlock()

	if u.onExit != nil {
		u.onExit(u)
	}

	u.log.Info("sensor stopped", slog.Int64("emitted", u.emitted.Load()))
	close(u.done)
}
