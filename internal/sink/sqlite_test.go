package sink

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedwagon-io/sensorsim/internal/lib/logger/sl"
	"github.com/speedwagon-io/sensorsim/internal/model"
)

func TestSQLiteSink_AppendAndCount(t *testing.T) {
	s, err := NewSQLiteSink(sl.Discard(), filepath.Join(t.TempDir(), "readings.db"))
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, s.Append(ctx, testReading("TEMP-001", model.KindTemperature, 22.5)))
	require.NoError(t, s.Append(ctx, testReading("NOISE-001", model.KindNoise, 41.3)))

	count, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	var id, kind, unit string
	var value float64
	err = s.db.QueryRowContext(ctx,
		"SELECT sensor_id, sensor_type, value, unit FROM readings ORDER BY seq LIMIT 1",
	).Scan(&id, &kind, &value, &unit)
	require.NoError(t, err)
	assert.Equal(t, "TEMP-001", id)
	assert.Equal(t, "temperature", kind)
	assert.Equal(t, 22.5, value)
	assert.Equal(t, "°C", unit)

	assert.NoError(t, s.Health(ctx))
}

func TestSQLiteSink_CountsExistingReadingsOnReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readings.db")
	ctx := context.Background()

	first, err := NewSQLiteSink(sl.Discard(), path)
	require.NoError(t, err)
	require.NoError(t, first.Append(ctx, testReading("TEMP-001", model.KindTemperature, 21.7)))
	require.NoError(t, first.Append(ctx, testReading("TEMP-001", model.KindTemperature, 22.1)))
	require.NoError(t, first.Close())

	reopened, err := NewSQLiteSink(sl.Discard(), path)
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, reopened.Append(ctx, testReading("TEMP-001", model.KindTemperature, 22.4)))
	count, err = reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestSQLiteSink_ConcurrentAppends(t *testing.T) {
	s, err := NewSQLiteSink(sl.Discard(), filepath.Join(t.TempDir(), "readings.db"))
	require.NoError(t, err)
	defer s.Close()

	var wg sync.WaitGroup
	for u := 0; u < 4; u++ {
		wg.Add(1)
		go func(u int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				assert.NoError(t, s.Append(context.Background(),
					testReading(fmt.Sprintf("HUM-%03d", u), model.KindHumidity, 50)))
			}
		}(u)
	}
	wg.Wait()

	count, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(100), count)
}

func TestSQLiteSink_AppendAfterClose(t *testing.T) {
	s, err := NewSQLiteSink(sl.Discard(), filepath.Join(t.TempDir(), "readings.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	err = s.Append(context.Background(), testReading("TEMP-001", model.KindTemperature, 20))
	assert.ErrorIs(t, err, ErrClosed)
}
