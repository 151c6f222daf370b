package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"askrelay/pkg/types"
)

// schema holds terminal session outcomes only. Pending sessions are never
// persisted; a restart loses them by design.
const schema = `
CREATE TABLE IF NOT EXISTS resolutions (
	id               TEXT PRIMARY KEY,
	ask_id           TEXT NOT NULL,
	status           TEXT NOT NULL,
	answers          TEXT NOT NULL,
	note             TEXT,
	requested_at_iso TEXT NOT NULL,
	resolved_at_iso  TEXT NOT NULL,
	source           TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_resolutions_resolved_at ON resolutions(resolved_at_iso);
`

// Manager implements the ResolutionLog interface on sqlite
type Manager struct {
	db           *sql.DB
	writeChannel chan writeOperation // Single-writer pattern for SQLite
	shutdown     chan struct{}
	wg           sync.WaitGroup
	closed       bool
	mu           sync.RWMutex // Protect closed status
}

// writeOperation represents a database write operation
type writeOperation struct {
	operation func(*sql.DB) error
	result    chan error
}

// NewManager opens the resolution log database and starts the write loop
func NewManager(databasePath string) (*Manager, error) {
	db, err := sql.Open("sqlite3", databasePath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := applySQLiteOptimizations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply SQLite optimizations: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	manager := &Manager{
		db:           db,
		writeChannel: make(chan writeOperation, 100),
		shutdown:     make(chan struct{}),
	}

	// Single-writer goroutine prevents SQLite write contention
	manager.wg.Add(1)
	go manager.writeLoop()

	return manager, nil
}

// writeLoop processes all write operations in a single goroutine,
// retrying each failed write exactly once
func (m *Manager) writeLoop() {
	defer m.wg.Done()

	for {
		select {
		case op := <-m.writeChannel:
			err := op.operation(m.db)
			if err != nil {
				log.Printf("Database write failed, retrying in 5 seconds: %v", err)
				time.Sleep(5 * time.Second)
				err = op.operation(m.db)
				if err != nil {
					log.Printf("Database write failed after retry: %v", err)
				}
			}
			op.result <- err

		case <-m.shutdown:
			log.Println("Database write loop shutting down")
			return
		}
	}
}

// executeWrite queues a write operation and waits for completion
func (m *Manager) executeWrite(operation func(*sql.DB) error) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return fmt.Errorf("database manager is closed")
	}
	m.mu.RUnlock()

	result := make(chan error, 1)

	select {
	case m.writeChannel <- writeOperation{operation: operation, result: result}:
		return <-result
	case <-time.After(30 * time.Second):
		return fmt.Errorf("write operation timeout")
	case <-m.shutdown:
		return fmt.Errorf("database manager is shutting down")
	}
}

// RecordResolution appends one terminal outcome to the log
func (m *Manager) RecordResolution(ctx context.Context, record *types.ResolutionRecord) error {
	return m.executeWrite(func(db *sql.DB) error {
		answersJSON, err := json.Marshal(record.Answers)
		if err != nil {
			return fmt.Errorf("failed to marshal answers: %w", err)
		}

		query := `
			INSERT INTO resolutions (id, ask_id, status, answers, note, requested_at_iso, resolved_at_iso, source)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err = db.ExecContext(ctx, query,
			record.ID,
			record.AskID,
			record.Status,
			string(answersJSON),
			record.Note,
			record.RequestedAtISO,
			record.ResolvedAtISO,
			record.Source,
		)
		if err != nil {
			return fmt.Errorf("failed to insert resolution: %w", err)
		}

		return nil
	})
}

// ListResolutions returns logged outcomes, most recent first
func (m *Manager) ListResolutions(ctx context.Context, limit int) ([]*types.ResolutionRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	// Read operations can be concurrent - no need for writeChannel
	query := `
		SELECT id, ask_id, status, answers, note, requested_at_iso, resolved_at_iso, source
		FROM resolutions
		ORDER BY resolved_at_iso DESC
		LIMIT ?
	`

	rows, err := m.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query resolutions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*types.ResolutionRecord

	for rows.Next() {
		var record types.ResolutionRecord
		var answersJSON string
		var note sql.NullString

		err := rows.Scan(
			&record.ID,
			&record.AskID,
			&record.Status,
			&answersJSON,
			&note,
			&record.RequestedAtISO,
			&record.ResolvedAtISO,
			&record.Source,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resolution row: %w", err)
		}

		if err := json.Unmarshal([]byte(answersJSON), &record.Answers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal answers: %w", err)
		}

		if note.Valid {
			record.Note = &note.String
		}

		records = append(records, &record)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating resolution rows: %w", err)
	}

	return records, nil
}

// HealthCheck validates database connectivity
func (m *Manager) HealthCheck(ctx context.Context) error {
	if err := m.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if _, err := m.db.QueryContext(ctx, "SELECT COUNT(*) FROM resolutions LIMIT 1"); err != nil {
		return fmt.Errorf("database read test failed: %w", err)
	}

	return nil
}

// Close shuts down the database manager
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil // Already closed
	}
	m.closed = true
	m.mu.Unlock()

	close(m.shutdown)
	m.wg.Wait()

	if err := m.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

// applySQLiteOptimizations applies performance pragmas
func applySQLiteOptimizations(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute pragma %s: %w", pragma, err)
		}
	}

	return nil
}
