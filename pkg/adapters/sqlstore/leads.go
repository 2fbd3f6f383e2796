// Package sqlstore implements the lead repository on SQLite or PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "embed"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/aretw0/leadflow/internal/logging"
	"github.com/aretw0/leadflow/pkg/domain"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Postgres connection pool configuration.
const (
	DefaultMaxOpenConns    = 25
	DefaultMaxIdleConns    = 25
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

//go:embed migrations_postgres.sql
var postgresMigrations string

const leadColumns = `session_id, name, email, phone, score, interest, category, stage, tags, notes, last_message, last_seen, created_at, updated_at`

// Leads implements ports.LeadRepository on database/sql.
type Leads struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

// Option configures Leads.
type Option func(*Leads)

// WithLogger configures a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Leads) {
		l.logger = logger
	}
}

// Open connects to the database and applies migrations.
// For SQLite the DSN is a file path whose directory is created if needed.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Leads, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN not set")
	}

	l := &Leads{driver: driver, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(l)
	}

	var migrations string
	switch driver {
	case DriverSQLite:
		if !strings.HasPrefix(dsn, "file:") && !strings.Contains(dsn, ":memory:") {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		migrations = sqliteMigrations
	case DriverPostgres:
		migrations = postgresMigrations
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	l.logger.Debug("Opening lead database", "driver", driver)
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// SQLite allows a single writer; one connection keeps transactions serialized.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(DefaultMaxOpenConns)
		db.SetMaxIdleConns(DefaultMaxIdleConns)
		db.SetConnMaxLifetime(DefaultConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", driver, err)
	}
	if _, err := db.ExecContext(ctx, migrations); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	l.logger.Debug("Lead database migrations applied", "driver", driver)

	l.db = db
	return l, nil
}

// Close closes the database.
func (l *Leads) Close() error {
	return l.db.Close()
}

// rebind turns ? placeholders into $n for PostgreSQL.
func (l *Leads) rebind(query string) string {
	if l.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*domain.Lead, error) {
	var (
		lead                       domain.Lead
		tags                       string
		lastSeen, created, updated int64
		email, phone               string
	)
	err := row.Scan(&lead.SessionID, &lead.Name, &email, &phone, &lead.Score, &lead.Interest,
		&lead.Category, &lead.Stage, &tags, &lead.Notes, &lead.LastMessage, &lastSeen, &created, &updated)
	if err != nil {
		return nil, err
	}
	lead.SetEmail(email)
	lead.SetPhone(phone)
	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &lead.Tags); err != nil {
			return nil, fmt.Errorf("corrupt tags for %s: %w", lead.SessionID, err)
		}
	}
	lead.LastSeen = time.UnixMilli(lastSeen)
	lead.CreatedAt = time.UnixMilli(created)
	lead.UpdatedAt = time.UnixMilli(updated)
	return &lead, nil
}

func (l *Leads) Get(ctx context.Context, sessionID string) (*domain.Lead, error) {
	row := l.db.QueryRowContext(ctx, l.rebind(`SELECT `+leadColumns+` FROM leads WHERE session_id = ?`), sessionID)
	lead, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrLeadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load lead %s: %w", sessionID, err)
	}
	return lead, nil
}

func (l *Leads) Upsert(ctx context.Context, sessionID string, update domain.LeadUpdate) (*domain.Lead, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	_, err = tx.ExecContext(ctx, l.rebind(
		`INSERT INTO leads (session_id, stage, last_seen, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (session_id) DO NOTHING`),
		sessionID, domain.StageNew, now.UnixMilli(), now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to ensure lead %s: %w", sessionID, err)
	}

	query := `SELECT ` + leadColumns + ` FROM leads WHERE session_id = ?`
	if l.driver == DriverPostgres {
		query += ` FOR UPDATE`
	}
	lead, err := scanLead(tx.QueryRowContext(ctx, l.rebind(query), sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock lead %s: %w", sessionID, err)
	}

	lead.Apply(update, now)

	tags, err := json.Marshal(lead.Tags)
	if err != nil {
		return nil, err
	}
	if lead.Tags == nil {
		tags = []byte("[]")
	}
	_, err = tx.ExecContext(ctx, l.rebind(
		`UPDATE leads SET name = ?, email = ?, phone = ?, score = ?, interest = ?, category = ?, stage = ?,
		 tags = ?, notes = ?, last_message = ?, last_seen = ?, updated_at = ? WHERE session_id = ?`),
		lead.Name, lead.Email, lead.Phone, lead.Score, lead.Interest, lead.Category, lead.Stage,
		string(tags), lead.Notes, lead.LastMessage, lead.LastSeen.UnixMilli(), lead.UpdatedAt.UnixMilli(), sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to update lead %s: %w", sessionID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit lead %s: %w", sessionID, err)
	}
	l.logger.Debug("Lead upserted", "session_id", sessionID, "score", lead.Score, "stage", lead.Stage)
	return lead, nil
}

func (l *Leads) AppendNote(ctx context.Context, sessionID, note string) error {
	_, err := l.Upsert(ctx, sessionID, domain.LeadUpdate{Note: note})
	return err
}

func (l *Leads) List(ctx context.Context) ([]domain.Lead, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT `+leadColumns+` FROM leads ORDER BY score DESC, updated_at DESC, session_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	defer rows.Close()

	var leads []domain.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead row: %w", err)
		}
		leads = append(leads, *lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate lead rows: %w", err)
	}
	return leads, nil
}

func (l *Leads) Delete(ctx context.Context, sessionID string) error {
	_, err := l.db.ExecContext(ctx, l.rebind(`DELETE FROM leads WHERE session_id = ?`), sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete lead %s: %w", sessionID, err)
	}
	return nil
}
