package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/complyx/complyx/pkg/schema"
)

// Dialect selects the SQL driver and placeholder style.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

const createTable = `CREATE TABLE IF NOT EXISTS audit_log (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	user_id     TEXT NOT NULL,
	action      TEXT NOT NULL,
	details     TEXT,
	ip_address  TEXT,
	user_agent  TEXT,
	ts          BIGINT NOT NULL
)`

const createIndex = `CREATE INDEX IF NOT EXISTS idx_audit_log_document ON audit_log (document_id, ts)`

// SQLLog stores the trail in SQLite or PostgreSQL.
type SQLLog struct {
	db      *sql.DB
	dialect Dialect
}

// OpenSQL opens the audit database and creates the table if needed.
// For SQLite the dsn is a file path.
func OpenSQL(ctx context.Context, dialect Dialect, dsn string) (*SQLLog, error) {
	var driver string
	switch dialect {
	case DialectSQLite:
		driver = "sqlite"
		if dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	case DialectPostgres:
		driver = "postgres"
	default:
		return nil, fmt.Errorf("unsupported audit dialect %q", dialect)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dialect == DialectSQLite {
		// SQLite only supports one writer at a time.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to configure sqlite: %w", err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	for _, stmt := range []string{createTable, createIndex} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create audit schema: %w", err)
		}
	}

	return &SQLLog{db: db, dialect: dialect}, nil
}

// rebind rewrites ? placeholders into $n for PostgreSQL.
func (l *SQLLog) rebind(query string) string {
	if l.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (l *SQLLog) Append(ctx context.Context, e schema.AuditLogEntry) error {
	if err := validate(&e); err != nil {
		return err
	}
	var details sql.NullString
	if len(e.Details) > 0 {
		details = sql.NullString{String: string(e.Details), Valid: true}
	}

	_, err := l.db.ExecContext(ctx, l.rebind(
		`INSERT INTO audit_log (id, document_id, user_id, action, details, ip_address, user_agent, ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		e.ID, e.DocumentID, e.UserID, string(e.Action), details, e.IPAddress, e.UserAgent, e.Timestamp.UnixNano())
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (l *SQLLog) ListByDocument(ctx context.Context, documentID string) ([]schema.AuditLogEntry, error) {
	rows, err := l.db.QueryContext(ctx, l.rebind(
		`SELECT id, document_id, user_id, action, details, ip_address, user_agent, ts
		 FROM audit_log WHERE document_id = ? ORDER BY ts, id`), documentID)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	out := make([]schema.AuditLogEntry, 0)
	for rows.Next() {
		var (
			e       schema.AuditLogEntry
			action  string
			details sql.NullString
			ip, ua  sql.NullString
			ts      int64
		)
		if err := rows.Scan(&e.ID, &e.DocumentID, &e.UserID, &action, &details, &ip, &ua, &ts); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Action = schema.AuditAction(action)
		if details.Valid {
			e.Details = []byte(details.String)
		}
		e.IPAddress = ip.String
		e.UserAgent = ua.String
		e.Timestamp = time.Unix(0, ts).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database.
func (l *SQLLog) Close() error {
	return l.db.Close()
}
