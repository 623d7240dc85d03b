package simulator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/speedwagon-io/sensorsim/internal/lib/logger/sl"
	"github.com/speedwagon-io/sensorsim/internal/model"
)

const (
	tick    = 20 * time.Millisecond
	waitFor = 2 * time.Second
)

var errSinkDown = errors.New("sink unavailable")

// memorySink records appended readings; failNext makes the next n appends fail.
// When gate is set, every append signals entered and blocks until gate is closed.
type memorySink struct {
	mu       sync.Mutex
	readings []model.Reading
	failNext int
	failures int
	gate     chan struct{}
	entered  chan struct{}
}

func (s *memorySink) Append(ctx context.Context, r model.Reading) error {
	s.mu.Lock()
	gate, entered := s.gate, s.entered
	s.mu.Unlock()

	if gate != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNext > 0 {
		s.failNext--
		s.failures++
		return errSinkDown
	}
	s.readings = append(s.readings, r)
	return nil
}

func (s *memorySink) Close() error {
	return nil
}

func (s *memorySink) count(sensorID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, r := range s.readings {
		if r.SensorID == sensorID {
			n++
		}
	}
	return n
}

func (s *memorySink) snapshot() []model.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Reading, len(s.readings))
	copy(out, s.readings)
	return out
}

// hold makes appends block until the returned release func is called.
// release is also registered as a cleanup so a failed test cannot leave a unit stuck.
func (s *memorySink) hold(t *testing.T) (entered <-chan struct{}, release func()) {
	t.Helper()

	gate := make(chan struct{})
	in := make(chan struct{}, 1)

	s.mu.Lock()
	s.gate, s.entered = gate, in
	s.mu.Unlock()

	release = sync.OnceFunc(func() { close(gate) })
	t.Cleanup(release)
	return in, release
}

func newTestRegistry(t *testing.T, opts ...Option) (*Registry, *memorySink) {
	t.Helper()

	s := &memorySink{}
	opts = append([]Option{WithMasterSeed(42)}, opts...)
	r := NewRegistry(sl.Discard(), s, opts...)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitFor)
		defer cancel()
		require.NoError(t, r.ShutdownAll(ctx))
	})

	return r, s
}

func identity(id string, kind model.Kind, interval time.Duration) model.Identity {
	return model.NewIdentity(id, kind, interval)
}

func waitForCount(t *testing.T, s *memorySink, sensorID string, atLeast int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return s.count(sensorID) >= atLeast
	}, waitFor, time.Millisecond, "expected at least %d readings from %s", atLeast, sensorID)
}

func waitDone(t *testing.T, u *Unit) {
	t.Helper()
	select {
	case <-u.Done():
	case <-time.After(waitFor):
		t.Fatalf("unit %s did not exit", u.ID())
	}
}
