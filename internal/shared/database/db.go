package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/mrmushfiq/llm0-observability-gateway/internal/shared/models"
)

// ErrNotFound is returned by the lookup methods when no row matches
var ErrNotFound = errors.New("record not found")

type DB struct {
	conn    *sql.DB
	dialect dialect
	now     func() time.Time
}

// New creates a new database connection for driver "postgres" or "sqlite"
func New(driver, databaseURL string) (*DB, error) {
	var d dialect
	switch driver {
	case "postgres":
		d = postgresDialect
	case "sqlite":
		d = sqliteDialect
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := sql.Open(d.driver, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	if driver == "sqlite" {
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(25)
		conn.SetMaxIdleConns(10)
		conn.SetConnMaxLifetime(5 * time.Minute)
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return &DB{conn: conn, dialect: d, now: time.Now}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Driver reports which dialect the connection uses
func (db *DB) Driver() string {
	return db.dialect.driver
}

// Migrate creates the request and response tables if they do not exist
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range db.dialect.schema {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// InsertRequest stores a request record and returns its id. When rec.ID is
// empty the database generates one.
func (db *DB) InsertRequest(ctx context.Context, rec *models.RequestRecord) (string, error) {
	body := rec.Body
	if len(body) == 0 {
		body = models.JSONBody(nil)
	}
	createdAt := db.now().UTC()

	var row *sql.Row
	if rec.ID != "" {
		row = db.conn.QueryRowContext(ctx, db.dialect.insertRequestWithID,
			rec.ID, rec.Path, string(body), rec.CredentialDigest, rec.UserID, rec.PromptID, createdAt)
	} else {
		row = db.conn.QueryRowContext(ctx, db.dialect.insertRequest,
			rec.Path, string(body), rec.CredentialDigest, rec.UserID, rec.PromptID, createdAt)
	}

	var id string
	if err := row.Scan(&id); err != nil {
		return "", fmt.Errorf("insert request: %w", err)
	}
	return id, nil
}

// InsertResponse stores the response record for an existing request
func (db *DB) InsertResponse(ctx context.Context, rec *models.ResponseRecord) (string, error) {
	body := rec.Body
	if len(body) == 0 {
		body = models.JSONBody(nil)
	}

	var id string
	err := db.conn.QueryRowContext(ctx, db.dialect.insertResponse,
		rec.RequestID, string(body), rec.Status, db.now().UTC()).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert response for request %s: %w", rec.RequestID, err)
	}
	return id, nil
}

// GetRequest retrieves a request record by id
func (db *DB) GetRequest(ctx context.Context, id string) (*models.RequestRecord, error) {
	var (
		rec  models.RequestRecord
		body string
	)
	err := db.conn.QueryRowContext(ctx, db.dialect.selectRequest, id).Scan(
		&rec.ID,
		&rec.Path,
		&body,
		&rec.CredentialDigest,
		&rec.UserID,
		&rec.PromptID,
		&rec.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	rec.Body = []byte(body)
	return &rec, nil
}

// GetResponse retrieves the response record attached to a request id
func (db *DB) GetResponse(ctx context.Context, requestID string) (*models.ResponseRecord, error) {
	var (
		rec  models.ResponseRecord
		body string
	)
	err := db.conn.QueryRowContext(ctx, db.dialect.selectResponse, requestID).Scan(
		&rec.ID,
		&rec.RequestID,
		&body,
		&rec.Status,
		&rec.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	rec.Body = []byte(body)
	return &rec, nil
}
