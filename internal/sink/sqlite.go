package sink

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/speedwagon-io/sensorsim/internal/model"
)

// SQLiteSink stores readings in a single table; the autoincrement sequence
// keeps the order in which appends were serialized.
type SQLiteSink struct {
	log *slog.Logger
	db  *sql.DB

	mu     sync.Mutex
	closed bool
}

func NewSQLiteSink(log *slog.Logger, dbPath string) (*SQLiteSink, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sink directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteSink{
		log: log,
		db:  db,
	}

	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Info("readings table ready", slog.String("path", dbPath))

	return s, nil
}

func (s *SQLiteSink) migrate(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS readings (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			sensor_id TEXT NOT NULL,
			sensor_type TEXT NOT NULL,
			value REAL NOT NULL,
			unit TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_readings_sensor_id ON readings(sensor_id);
	`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

func (s *SQLiteSink) Append(ctx context.Context, reading model.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.writeErr(reading, ErrClosed)
	}

	query := `
		INSERT INTO readings (timestamp, sensor_id, sensor_type, value, unit)
		VALUES (?, ?, ?, ?, ?)
	`

	record := reading.Record()
	_, err := s.db.ExecContext(ctx, query,
		record[0],
		reading.SensorID,
		string(reading.Kind),
		reading.Value,
		reading.Unit,
	)
	if err != nil {
		return s.writeErr(reading, fmt.Errorf("failed to store reading: %w", err))
	}

	return nil
}

func (s *SQLiteSink) writeErr(reading model.Reading, err error) error {
	return &WriteError{Backend: BackendSQLite, SensorID: reading.SensorID, Err: err}
}

// Count returns the number of stored readings.
func (s *SQLiteSink) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM readings").Scan(&count)
	return count, err
}

func (s *SQLiteSink) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
