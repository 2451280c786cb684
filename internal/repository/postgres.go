package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mr1hm/go-disaster-reports/internal/models"
)

// PostgresDB is the gorm-backed store used when DB_DRIVER=postgres.
type PostgresDB struct {
	db *gorm.DB
}

func NewPostgresDB(dsn string) (*PostgresDB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("error getting sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Disaster{}, &models.Alert{}, &models.Session{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return &PostgresDB{db: db}, nil
}

func (p *PostgresDB) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (p *PostgresDB) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (p *PostgresDB) CreateUser(ctx context.Context, u *models.User) error {
	err := p.db.WithContext(ctx).Create(u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateUsername
	}
	if err != nil {
		return fmt.Errorf("error inserting user: %w", err)
	}
	return nil
}

func (p *PostgresDB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return p.firstUser(ctx, "username = ?", username)
}

func (p *PostgresDB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return p.firstUser(ctx, "id = ?", id)
}

func (p *PostgresDB) firstUser(ctx context.Context, query string, arg any) (*models.User, error) {
	var u models.User
	err := p.db.WithContext(ctx).Where(query, arg).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying user: %w", err)
	}
	return &u, nil
}

func (p *PostgresDB) CreateDisaster(ctx context.Context, d *models.Disaster) error {
	if err := p.db.WithContext(ctx).Create(d).Error; err != nil {
		return fmt.Errorf("error inserting disaster: %w", err)
	}
	return nil
}

func (p *PostgresDB) ListDisasters(ctx context.Context) ([]models.Disaster, error) {
	disasters := []models.Disaster{}
	if err := p.db.WithContext(ctx).Order("id").Find(&disasters).Error; err != nil {
		return nil, fmt.Errorf("error querying disasters: %w", err)
	}
	return disasters, nil
}

func (p *PostgresDB) CreateAlert(ctx context.Context, a *models.Alert) error {
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Disaster{}).Where("id = ?", a.DisasterID).Count(&count).Error; err != nil {
			return fmt.Errorf("error checking disaster: %w", err)
		}
		if count == 0 {
			return ErrUnknownDisaster
		}
		return tx.Omit("Disaster").Create(a).Error
	})
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return ErrUnknownDisaster
	}
	if err != nil && !errors.Is(err, ErrUnknownDisaster) {
		return fmt.Errorf("error inserting alert: %w", err)
	}
	return err
}

func (p *PostgresDB) ListAlerts(ctx context.Context) ([]models.Alert, error) {
	alerts := []models.Alert{}
	if err := p.db.WithContext(ctx).Order("id").Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("error querying alerts: %w", err)
	}
	return alerts, nil
}

func (p *PostgresDB) CreateSession(ctx context.Context, s *models.Session) error {
	if err := p.db.WithContext(ctx).Omit("User").Create(s).Error; err != nil {
		return fmt.Errorf("error inserting session: %w", err)
	}
	return nil
}

func (p *PostgresDB) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var s models.Session
	err := p.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying session: %w", err)
	}
	return &s, nil
}

func (p *PostgresDB) DeleteSession(ctx context.Context, id string) error {
	if err := p.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Session{}).Error; err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	return nil
}

func (p *PostgresDB) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res := p.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.Session{})
	if res.Error != nil {
		return 0, fmt.Errorf("error purging sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}
