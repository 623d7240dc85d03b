package sink

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/speedwagon-io/sensorsim/internal/lib/logger/sl"
	"github.com/speedwagon-io/sensorsim/internal/model"
)

// CSVSink writes readings as CSV rows. The file and its header are created
// on the first append; an existing non-empty file is appended to as is.
type CSVSink struct {
	log  *slog.Logger
	path string

	mu     sync.Mutex
	file   *os.File
	size   int64
	closed bool
}

func NewCSVSink(log *slog.Logger, path string) *CSVSink {
	return &CSVSink{
		log:  log,
		path: path,
	}
}

func (s *CSVSink) Append(ctx context.Context, reading model.Reading) error {
	if err := ctx.Err(); err != nil {
		return s.writeErr(reading, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.writeErr(reading, ErrClosed)
	}

	if s.file == nil {
		if err := s.open(); err != nil {
			return s.writeErr(reading, err)
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if s.size == 0 {
		if err := w.Write(model.RecordHeader); err != nil {
			return s.writeErr(reading, fmt.Errorf("failed to encode header: %w", err))
		}
	}
	if err := w.Write(reading.Record()); err != nil {
		return s.writeErr(reading, fmt.Errorf("failed to encode record: %w", err))
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return s.writeErr(reading, fmt.Errorf("failed to encode record: %w", err))
	}

	n, err := s.file.Write(buf.Bytes())
	if err != nil {
		if n > 0 {
			// drop the torn tail so the stream stays parseable
			if terr := s.file.Truncate(s.size); terr != nil {
				s.log.Error("failed to roll back partial record",
					slog.String("path", s.path),
					sl.Err(terr),
				)
			}
		}
		return s.writeErr(reading, fmt.Errorf("failed to write record: %w", err))
	}
	s.size += int64(n)

	return nil
}

func (s *CSVSink) open() error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create sink directory: %w", err)
		}
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", s.path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to stat %s: %w", s.path, err)
	}

	s.file = f
	s.size = info.Size()

	s.log.Info("record stream opened",
		slog.String("path", s.path),
		slog.Int64("size", s.size),
	)
	return nil
}

func (s *CSVSink) writeErr(reading model.Reading, err error) error {
	return &WriteError{Backend: BackendCSV, SensorID: reading.SensorID, Err: err}
}

// Health reports whether the sink still accepts appends.
func (s *CSVSink) Health(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.file == nil {
		return nil
	}
	return s.file.Close()
}
