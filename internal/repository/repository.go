package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mr1hm/go-disaster-reports/internal/models"
)

var (
	ErrDuplicateUsername = errors.New("username already exists")
	ErrUnknownDisaster   = errors.New("disaster does not exist")
)

// Lookups return (nil, nil) when the record is absent.

type UserRepository interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

type DisasterRepository interface {
	CreateDisaster(ctx context.Context, d *models.Disaster) error
	ListDisasters(ctx context.Context) ([]models.Disaster, error)
}

type AlertRepository interface {
	CreateAlert(ctx context.Context, a *models.Alert) error
	ListAlerts(ctx context.Context) ([]models.Alert, error)
}

type SessionRepository interface {
	CreateSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// Store is the single durable store behind every handler.
type Store interface {
	UserRepository
	DisasterRepository
	AlertRepository
	SessionRepository
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Store = (*SQLiteDB)(nil)
	_ Store = (*PostgresDB)(nil)
)

// Open returns the store for driver. For sqlite the parent directory of path
// is created if needed.
func Open(driver, path, url string) (Store, error) {
	switch driver {
	case "sqlite":
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("error creating database directory: %w", err)
			}
		}
		return NewSQLiteDB(path)
	case "postgres":
		return NewPostgresDB(url)
	default:
		return nil, fmt.Errorf("unknown database driver: %s", driver)
	}
}
