package sink

import (
	"context"
	"log/slog"

	"github.com/speedwagon-io/sensorsim/internal/model"
)

// LogSink logs readings instead of persisting them (dry-run).
type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Append(ctx context.Context, reading model.Reading) error {
	s.log.Info("READING",
		slog.String("sensor_id", reading.SensorID),
		slog.String("sensor_type", string(reading.Kind)),
		slog.Float64("value", reading.Value),
		slog.String("unit", reading.Unit),
		slog.Time("timestamp", reading.Timestamp),
	)
	return nil
}

func (s *LogSink) Health(ctx context.Context) error {
	return nil
}

func (s *LogSink) Close() error {
	return nil
}
