// Package sqlite persists command log records in SQLite so a run can be
// inspected after the process exits.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	_ "modernc.org/sqlite"

	"github.com/louisbranch/drivechain/internal/driver/cmdlog"
	"github.com/louisbranch/drivechain/internal/driver/cmdlog/sqlite/migrations"
	"github.com/louisbranch/drivechain/internal/platform/storage/sqlitemigrate"
)

const timeFormat = time.RFC3339Nano

// propsEncMode encodes console props deterministically so identical
// records produce identical blobs.
var propsEncMode cbor.EncMode

func init() {
	var err error
	propsEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("cmdlog sqlite: cbor encoder initialization failed: " + err.Error())
	}
}

// Store is a SQLite-backed cmdlog.Reporter.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a store at path, applying embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(context.Background(), sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Report upserts record. Records keep the position of their first report
// within the run.
func (s *Store) Report(ctx context.Context, record cmdlog.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("record id is required")
	}
	if strings.TrimSpace(record.RunID) == "" {
		return fmt.Errorf("run id is required")
	}

	var props []byte
	if record.Props != nil {
		encoded, err := propsEncMode.Marshal(record.Props)
		if err != nil {
			return fmt.Errorf("encode props: %w", err)
		}
		props = encoded
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO command_logs (
    id, run_id, seq, name, message, state, timeout_ms, element, props, error, started_at, ended_at
) VALUES (
    ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM command_logs WHERE run_id = ?),
    ?, ?, ?, ?, ?, ?, ?, ?, ?
)
ON CONFLICT(id) DO UPDATE SET
    message = excluded.message,
    state = excluded.state,
    timeout_ms = excluded.timeout_ms,
    element = excluded.element,
    props = excluded.props,
    error = excluded.error,
    ended_at = excluded.ended_at`,
		record.ID, record.RunID, record.RunID,
		record.Name, record.Message, record.State, record.Timeout.Milliseconds(),
		record.Element, props, record.Error,
		formatTime(record.StartedAt), formatTime(record.EndedAt),
	)
	if err != nil {
		return fmt.Errorf("put command log: %w", err)
	}
	return nil
}

// ListRun returns the records of runID in report order.
func (s *Store) ListRun(ctx context.Context, runID string) ([]cmdlog.Record, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, run_id, name, message, state, timeout_ms, element, props, error, started_at, ended_at
FROM command_logs
WHERE run_id = ?
ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("list command logs: %w", err)
	}
	defer rows.Close()

	var records []cmdlog.Record
	for rows.Next() {
		var (
			record    cmdlog.Record
			timeoutMS int64
			props     []byte
			started   string
			ended     string
		)
		if err := rows.Scan(
			&record.ID, &record.RunID, &record.Name, &record.Message, &record.State,
			&timeoutMS, &record.Element, &props, &record.Error, &started, &ended,
		); err != nil {
			return nil, fmt.Errorf("scan command log: %w", err)
		}
		record.Timeout = time.Duration(timeoutMS) * time.Millisecond
		if len(props) > 0 {
			if err := cbor.Unmarshal(props, &record.Props); err != nil {
				return nil, fmt.Errorf("decode props for %s: %w", record.ID, err)
			}
		}
		if record.StartedAt, err = parseTime(started); err != nil {
			return nil, fmt.Errorf("parse started_at for %s: %w", record.ID, err)
		}
		if record.EndedAt, err = parseTime(ended); err != nil {
			return nil, fmt.Errorf("parse ended_at for %s: %w", record.ID, err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate command logs: %w", err)
	}
	return records, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeFormat)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeFormat, value)
}

var _ cmdlog.Reporter = (*Store)(nil)
