package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// LogWriter writes each event as one structured log line.
type LogWriter struct {
	logger *zap.Logger
}

// NewLogWriter creates a LogWriter.
func NewLogWriter(logger *zap.Logger) *LogWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogWriter{logger: logger}
}

// Write logs the event at info level.
func (w *LogWriter) Write(e Event) error {
	w.logger.Info("telemetry",
		zap.String("id", e.ID),
		zap.String("trace_id", e.TraceID),
		zap.String("kind", string(e.Kind)),
		zap.String("category", e.Category),
		zap.String("subkey", e.Subkey),
		zap.Int("order", e.Order),
		zap.String("provider_model", e.ProviderModel),
		zap.String("decision", e.Decision),
		zap.String("credential", e.Credential),
		zap.Float64("estimated_cost_usd", e.EstimatedCostUSD),
		zap.Time("timestamp", e.Timestamp),
	)
	return nil
}

// SQLiteWriter archives events in a SQLite database.
type SQLiteWriter struct {
	db *sql.DB
}

const createEventsTable = `
CREATE TABLE IF NOT EXISTS telemetry_events (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL,
	trace_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	category TEXT NOT NULL,
	subkey TEXT NOT NULL DEFAULT '',
	ord INTEGER NOT NULL,
	provider_model TEXT NOT NULL,
	decision TEXT NOT NULL,
	credential TEXT NOT NULL DEFAULT '',
	estimated_cost_usd REAL NOT NULL DEFAULT 0,
	fallback_count INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_telemetry_trace ON telemetry_events(trace_id);
`

// OpenSQLite opens (or creates) the archive at dbPath and runs migrations.
func OpenSQLite(dbPath string) (*SQLiteWriter, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open telemetry db: %w", err)
	}
	if _, err := db.Exec(createEventsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate telemetry db: %w", err)
	}
	return &SQLiteWriter{db: db}, nil
}

// Write inserts one event.
func (w *SQLiteWriter) Write(e Event) error {
	_, err := w.db.Exec(
		`INSERT INTO telemetry_events (id, trace_id, kind, category, subkey, ord, provider_model, decision, credential, estimated_cost_usd, fallback_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.TraceID, string(e.Kind), e.Category, e.Subkey, e.Order, e.ProviderModel,
		e.Decision, e.Credential, e.EstimatedCostUSD, e.FallbackCount, e.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("archive event: %w", err)
	}
	return nil
}

// Recent returns up to limit of the newest archived events, oldest first.
func (w *SQLiteWriter) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := w.db.QueryContext(ctx,
		`SELECT id, trace_id, kind, category, subkey, ord, provider_model, decision, credential, estimated_cost_usd, fallback_count, created_at
		 FROM (SELECT * FROM telemetry_events ORDER BY seq DESC LIMIT ?) ORDER BY seq ASC`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e    Event
			kind string
			ts   time.Time
		)
		if err := rows.Scan(&e.ID, &e.TraceID, &kind, &e.Category, &e.Subkey, &e.Order, &e.ProviderModel,
			&e.Decision, &e.Credential, &e.EstimatedCostUSD, &e.FallbackCount, &ts); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Kind = Kind(kind)
		e.Timestamp = ts
		events = append(events, e)
	}
	return events, rows.Err()
}

// Close releases the database connection.
func (w *SQLiteWriter) Close() error {
	return w.db.Close()
}
