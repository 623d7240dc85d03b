// Package sink persists readings to an append-only record stream.
package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/speedwagon-io/sensorsim/internal/model"
)

const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
	BackendLog    = "log"
)

var ErrClosed = errors.New("sink closed")

// Sink appends one reading per call. Implementations serialize concurrent
// callers and either write the whole record or nothing.
type Sink interface {
	Append(ctx context.Context, reading model.Reading) error
	Close() error
}

// WriteError is returned when a reading could not be persisted.
// The reading is lost; callers may simply try again with the next one.
type WriteError struct {
	Backend  string
	SensorID string
	Err      error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s sink: write reading for %s: %v", e.Backend, e.SensorID, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// New builds the sink for the configured backend.
func New(log *slog.Logger, backend, path string) (Sink, error) {
	switch backend {
	case BackendCSV:
		return NewCSVSink(log, path), nil
	case BackendSQLite:
		return NewSQLiteSink(log, path)
	case BackendLog:
		return NewLogSink(log), nil
	default:
		return nil, fmt.Errorf("unknown sink backend %q", backend)
	}
}
