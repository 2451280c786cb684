package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mr1hm/go-disaster-reports/internal/models"
)

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// One connection: writes are serialized and ":memory:" stays a single database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("error enabling foreign keys: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS disasters (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			disaster_type TEXT NOT NULL,
			location TEXT NOT NULL,
			severity REAL NOT NULL,
			time_occurred TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS alerts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			disaster_id INTEGER NOT NULL,
			alert_type TEXT NOT NULL,
			message TEXT NOT NULL,
			time_sent TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (disaster_id) REFERENCES disasters(id)
		);

		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			expires_at DATETIME NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_alerts_disaster_id ON alerts(disaster_id);
		CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

func (s *SQLiteDB) CreateUser(ctx context.Context, u *models.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, active, created_at) VALUES (?, ?, ?, ?)`,
		u.Username, u.PasswordHash, u.Active, u.CreatedAt,
	)
	if err != nil {
		if hasCode(err, sqlite3.SQLITE_CONSTRAINT_UNIQUE) {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("error inserting user: %w", err)
	}

	u.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("error reading user id: %w", err)
	}
	return nil
}

func (s *SQLiteDB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, active, created_at FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func (s *SQLiteDB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, active, created_at FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Active, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error scanning user: %w", err)
	}
	return &u, nil
}

func (s *SQLiteDB) CreateDisaster(ctx context.Context, d *models.Disaster) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO disasters (disaster_type, location, severity, time_occurred, created_at) VALUES (?, ?, ?, ?, ?)`,
		d.DisasterType, d.Location, d.Severity, d.TimeOccurred, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error inserting disaster: %w", err)
	}

	d.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("error reading disaster id: %w", err)
	}
	return nil
}

func (s *SQLiteDB) ListDisasters(ctx context.Context) ([]models.Disaster, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, disaster_type, location, severity, time_occurred, created_at FROM disasters ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("error querying disasters: %w", err)
	}
	defer rows.Close()

	disasters := []models.Disaster{}
	for rows.Next() {
		var d models.Disaster
		if err := rows.Scan(&d.ID, &d.DisasterType, &d.Location, &d.Severity, &d.TimeOccurred, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning disaster: %w", err)
		}
		disasters = append(disasters, d)
	}
	return disasters, rows.Err()
}

// CreateAlert checks the disaster and inserts the alert in one transaction.
func (s *SQLiteDB) CreateAlert(ctx context.Context, a *models.Alert) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM disasters WHERE id = ?)`, a.DisasterID).Scan(&exists); err != nil {
		return fmt.Errorf("error checking disaster: %w", err)
	}
	if !exists {
		return ErrUnknownDisaster
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO alerts (disaster_id, alert_type, message, time_sent, created_at) VALUES (?, ?, ?, ?, ?)`,
		a.DisasterID, a.AlertType, a.Message, a.TimeSent, a.CreatedAt,
	)
	if err != nil {
		if hasCode(err, sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY) {
			return ErrUnknownDisaster
		}
		return fmt.Errorf("error inserting alert: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("error reading alert id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing alert: %w", err)
	}

	a.ID = id
	return nil
}

func (s *SQLiteDB) ListAlerts(ctx context.Context) ([]models.Alert, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, disaster_id, alert_type, message, time_sent, created_at FROM alerts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("error querying alerts: %w", err)
	}
	defer rows.Close()

	alerts := []models.Alert{}
	for rows.Next() {
		var a models.Alert
		if err := rows.Scan(&a.ID, &a.DisasterID, &a.AlertType, &a.Message, &a.TimeSent, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (s *SQLiteDB) CreateSession(ctx context.Context, sess *models.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		sess.ID, sess.UserID, sess.CreatedAt.UTC(), sess.ExpiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("error inserting session: %w", err)
	}
	return nil
}

func (s *SQLiteDB) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var sess models.Session
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, expires_at FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.UserID, &sess.CreatedAt, &sess.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error scanning session: %w", err)
	}
	return &sess, nil
}

func (s *SQLiteDB) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	return nil
}

func (s *SQLiteDB) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("error purging sessions: %w", err)
	}
	return res.RowsAffected()
}

// hasCode matches an extended result code exactly. The driver reports
// extended codes, so a NOT NULL failure never reads as a UNIQUE one.
func hasCode(err error, code int) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	return serr.Code() == code
}
