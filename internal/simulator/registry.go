// Package simulator runs a fleet of periodic sensor units and the registry
// through which they are controlled.
package simulator

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/speedwagon-io/sensorsim/internal/generator"
	"github.com/speedwagon-io/sensorsim/internal/metrics"
	"github.com/speedwagon-io/sensorsim/internal/model"
	"github.com/speedwagon-io/sensorsim/internal/sink"
)

// Registry tracks every live unit. Units remove themselves when their loop exits.
type Registry struct {
	log        *slog.Logger
	sink       sink.Sink
	metrics    *metrics.Metrics
	masterSeed uint64

	mu      sync.RWMutex
	units   map[string]*Unit
	order   []*Unit
	closing bool

	wg sync.WaitGroup
}

type Option func(*Registry)

// WithMasterSeed makes every unit's value sequence reproducible.
func WithMasterSeed(seed uint64) Option {
	return func(r *Registry) {
		r.masterSeed = seed
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

func NewRegistry(log *slog.Logger, s sink.Sink, opts ...Option) *Registry {
	r := &Registry{
		log:        log,
		sink:       s,
		masterSeed: uint64(time.Now().UnixNano()),
		units:      make(map[string]*Unit),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add creates, registers and starts a unit for identity.
func (r *Registry) Add(identity model.Identity) (*Unit, error) {
	if identity.ID == "" {
		return nil, ErrEmptyID
	}
	if identity.Interval <= 0 {
		return nil, fmt.Errorf("add sensor %q: %w", identity.ID, ErrInvalidInterval)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closing {
		return nil, ErrShuttingDown
	}

	if existing, ok := r.units[identity.ID]; ok {
		if existing.Status() != model.StateStopped {
			return nil, &DuplicateIDError{ID: identity.ID}
		}
		// still tearing down: the new unit takes the id over
		r.removeLocked(existing)
	}

	gen := generator.New(generator.SeedFor(r.masterSeed, identity.ID))
	u := newUnit(r.log, identity, gen, r.sink, r.metrics, r.remove)

	r.units[identity.ID] = u
	r.order = append(r.order, u)
	r.metrics.SetActive(len(r.units))

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		u.run()
	}()

	return u, nil
}

func (r *Registry) Lookup(id string) (*Unit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.units[id]
	if !ok {
		return nil, fmt.Errorf("lookup %q: %w", id, ErrNotFound)
	}
	return u, nil
}

// List returns the registered units in insertion order.
func (r *Registry) List() []*Unit {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.order)
}

// Infos returns the status of every registered unit in insertion order.
func (r *Registry) Infos() []model.SensorInfo {
	units := r.List()
	infos := make([]model.SensorInfo, 0, len(units))
	for _, u := range units {
		infos = append(infos, u.Info())
	}
	return infos
}

func (r *Registry) Pause(id string) error {
	u, err := r.Lookup(id)
	if err != nil {
		return err
	}
	u.Pause()
	return nil
}

func (r *Registry) Resume(id string) error {
	u, err := r.Lookup(id)
	if err != nil {
		return err
	}
	u.Resume()
	return nil
}

// Stop stops the unit and returns once it is no longer registered.
func (r *Registry) Stop(id string) error {
	u, err := r.Lookup(id)
	if err != nil {
		return err
	}
	u.Stop()
	return nil
}

func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.units)
}

// ShutdownAll stops every unit and waits until the registry is empty and
// all unit goroutines have returned. The registry accepts no new units
// afterwards.
func (r *Registry) ShutdownAll(ctx context.Context) error {
	r.mu.Lock()
	r.closing = true
	units := slices.Clone(r.order)
	r.mu.Unlock()

	r.log.Info("shutting down sensors", slog.Int("count", len(units)))

	done := make(chan struct{})
	go func() {
		var wg sync.WaitGroup
		for _, u := range units {
			wg.Add(1)
			go func(u *Unit) {
				defer wg.Done()
				u.Stop()
			}(u)
		}
		wg.Wait()
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.log.Info("all sensors stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown with %d sensors still active: %w", r.ActiveCount(), ctx.Err())
	}
}

func (r *Registry) remove(u *Unit) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeLocked(u)
}

func (r *Registry) removeLocked(u *Unit) {
	if current, ok := r.units[u.ID()]; ok && current == u {
		delete(r.units, u.ID())
	}
	r.order = slices.DeleteFunc(r.order, func(other *Unit) bool {
		return other == u
	})
	r.metrics.SetActive(len(r.units))
}
