package simulator

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedwagon-io/sensorsim/internal/model"
)

func TestUnit_EmitsPeriodically(t *testing.T) {
	r, s := newTestRegistry(t)

	u, err := r.Add(identity("TEMP-001", model.KindTemperature, tick))
	require.NoError(t, err)
	assert.Equal(t, model.StateRunning, u.Status())

	waitForCount(t, s, "TEMP-001", 3)

	for _, reading := range s.snapshot() {
		assert.Equal(t, "TEMP-001", reading.SensorID)
		assert.Equal(t, model.KindTemperature, reading.Kind)
		assert.Equal(t, model.UnitCelsius, reading.Unit)
	}
}

func TestUnit_PauseHaltsEmission(t *testing.T) {
	r, s := newTestRegistry(t)

	u, err := r.Add(identity("HUM-001", model.KindHumidity, tick))
	require.NoError(t, err)
	waitForCount(t, s, "HUM-001", 1)

	u.Pause()
	assert.Equal(t, model.StatePaused, u.Status())
	paused := s.count("HUM-001")

	time.Sleep(5 * tick)
	assert.Equal(t, paused, s.count("HUM-001"), "paused unit emitted a reading")

	// pausing twice is a no-op
	u.Pause()
	assert.Equal(t, model.StatePaused, u.Status())

	u.Resume()
	assert.Equal(t, model.StateRunning, u.Status())
	waitForCount(t, s, "HUM-001", paused+1)
}

func TestUnit_PauseWaitsForInFlightAppend(t *testing.T) {
	r, s := newTestRegistry(t)
	entered, release := s.hold(t)

	u, err := r.Add(identity("TEMP-001", model.KindTemperature, tick))
	require.NoError(t, err)

	select {
	case <-entered:
	case <-time.After(waitFor):
		t.Fatal("first append never started")
	}

	paused := make(chan struct{})
	go func() {
		u.Pause()
		close(paused)
	}()

	require.Eventually(t, func() bool {
		return u.Status() == model.StatePaused
	}, waitFor, time.Millisecond)

	select {
	case <-paused:
		t.Fatal("Pause returned while an append was still in flight")
	case <-time.After(5 * tick):
	}

	release()

	select {
	case <-paused:
	case <-time.After(waitFor):
		t.Fatal("Pause did not return after the append completed")
	}

	// the in-flight reading lands, nothing after it
	assert.Equal(t, 1, s.count("TEMP-001"))
	time.Sleep(5 * tick)
	assert.Equal(t, 1, s.count("TEMP-001"))
	assert.Equal(t, int64(1), u.Emitted())
	assert.Equal(t, model.StatePaused, u.Status())
}

func TestUnit_ResumeWithinOneInterval(t *testing.T) {
	r, s := newTestRegistry(t)

	interval := 200 * time.Millisecond
	u, err := r.Add(identity("NOISE-001", model.KindNoise, interval))
	require.NoError(t, err)
	waitForCount(t, s, "NOISE-001", 1)

	u.Pause()
	before := s.count("NOISE-001")
	time.Sleep(interval + interval/2)
	require.Equal(t, before, s.count("NOISE-001"))

	u.Resume()
	require.Eventually(t, func() bool {
		return s.count("NOISE-001") > before
	}, interval+100*time.Millisecond, time.Millisecond)
}

func TestUnit_StopIsFinalAndIdempotent(t *testing.T) {
	r, s := newTestRegistry(t)

	u, err := r.Add(identity("TEMP-001", model.KindTemperature, tick))
	require.NoError(t, err)
	waitForCount(t, s, "TEMP-001", 1)

	u.Stop()
	assert.Equal(t, model.StateStopped, u.Status())
	stopped := s.count("TEMP-001")

	assert.NotPanics(t, func() {
		u.Stop()
		u.Resume()
		u.Pause()
	})
	assert.Equal(t, model.StateStopped, u.Status())

	time.Sleep(5 * tick)
	assert.Equal(t, stopped, s.count("TEMP-001"), "stopped unit emitted a reading")
	assert.Equal(t, int64(stopped), u.Emitted())
	assert.NoError(t, u.Err())
}

func TestUnit_StopInterruptsIntervalWait(t *testing.T) {
	r, s := newTestRegistry(t)

	u, err := r.Add(identity("TEMP-001", model.KindTemperature, time.Hour))
	require.NoError(t, err)
	waitForCount(t, s, "TEMP-001", 1)

	start := time.Now()
	u.Stop()
	assert.Less(t, time.Since(start), time.Second)
	waitDone(t, u)
}

func TestUnit_StopInterruptsPauseGate(t *testing.T) {
	r, s := newTestRegistry(t)

	u, err := r.Add(identity("TEMP-001", model.KindTemperature, tick))
	require.NoError(t, err)
	waitForCount(t, s, "TEMP-001", 1)

	u.Pause()
	time.Sleep(3 * tick) // let the loop settle on the pause gate

	start := time.Now()
	u.Stop()
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, model.StateStopped, u.Status())
}

func TestUnit_UnsupportedKindStopsOnlyThatUnit(t *testing.T) {
	r, s := newTestRegistry(t)

	good, err := r.Add(identity("TEMP-001", model.KindTemperature, tick))
	require.NoError(t, err)

	bad, err := r.Add(identity("PRES-001", model.Kind("pressure"), tick))
	require.NoError(t, err)

	waitDone(t, bad)

	var unsupported *model.UnsupportedKindError
	require.True(t, errors.As(bad.Err(), &unsupported))
	assert.Equal(t, model.Kind("pressure"), unsupported.Kind)
	assert.Equal(t, model.StateStopped, bad.Status())
	assert.Contains(t, bad.Info().Error, "pressure")
	assert.Zero(t, s.count("PRES-001"))

	_, err = r.Lookup("PRES-001")
	assert.ErrorIs(t, err, ErrNotFound)

	waitForCount(t, s, "TEMP-001", 2)
	assert.Equal(t, model.StateRunning, good.Status())
}

func TestUnit_SinkErrorsDoNotStopTheLoop(t *testing.T) {
	r, s := newTestRegistry(t)

	s.mu.Lock()
	s.failNext = 3
	s.mu.Unlock()

	u, err := r.Add(identity("HUM-001", model.KindHumidity, tick))
	require.NoError(t, err)

	waitForCount(t, s, "HUM-001", 2)
	assert.Equal(t, model.StateRunning, u.Status())
	assert.NoError(t, u.Err())

	s.mu.Lock()
	assert.Equal(t, 3, s.failures)
	s.mu.Unlock()
}

func TestUnit_TimestampsNonDecreasing(t *testing.T) {
	r, s := newTestRegistry(t)

	_, err := r.Add(identity("NOISE-001", model.KindNoise, time.Millisecond))
	require.NoError(t, err)
	waitForCount(t, s, "NOISE-001", 20)

	var last time.Time
	for _, reading := range s.snapshot() {
		assert.False(t, reading.Timestamp.Before(last))
		last = reading.Timestamp
	}
}

func TestUnit_Info(t *testing.T) {
	r, s := newTestRegistry(t)

	u, err := r.Add(identity("TEMP-001", model.KindTemperature, 2*time.Second))
	require.NoError(t, err)
	waitForCount(t, s, "TEMP-001", 1)

	u.Pause()
	info := u.Info()
	assert.Equal(t, "TEMP-001", info.SensorID)
	assert.Equal(t, model.KindTemperature, info.SensorType)
	assert.Equal(t, model.StatePaused, info.Status)
	assert.Equal(t, 2.0, info.Interval)
	assert.Equal(t, int64(1), info.Emitted)
	assert.Empty(t, info.Error)
}
