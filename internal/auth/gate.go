package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/go-disaster-reports/internal/metrics"
	"github.com/mr1hm/go-disaster-reports/internal/models"
	"github.com/mr1hm/go-disaster-reports/internal/repository"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveUser       = errors.New("user is not active")
)

// Identity is the authenticated principal attached to a request.
// A nil *Identity means the request is anonymous.
type Identity struct {
	UserID    int64
	Username  string
	SessionID string
}

type Store interface {
	repository.UserRepository
	repository.SessionRepository
}

type Options struct {
	Secret     []byte
	TTL        time.Duration
	BcryptCost int
	Clock      clockwork.Clock
	Metrics    *metrics.Metrics
}

// Gate turns credentials into sessions and sessions back into identities.
type Gate struct {
	store   Store
	secret  []byte
	ttl     time.Duration
	cost    int
	clock   clockwork.Clock
	metrics *metrics.Metrics
}

func NewGate(store Store, opts Options) *Gate {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Gate{
		store:   store,
		secret:  opts.Secret,
		ttl:     opts.TTL,
		cost:    opts.BcryptCost,
		clock:   opts.Clock,
		metrics: opts.Metrics,
	}
}

// Register hashes the password and creates an active user.
func (g *Gate) Register(ctx context.Context, username, password string) (*models.User, error) {
	hash, err := HashPassword(password, g.cost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    g.clock.Now().UTC(),
	}
	if err := g.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	slog.Info("user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Login verifies the credentials and opens a new session. The returned token
// is what the client presents on later requests.
func (g *Gate) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	user, err := g.store.GetUserByUsername(ctx, username)
	if err != nil {
		return "", nil, err
	}
	if user == nil {
		g.countLogin("unknown_user")
		return "", nil, ErrUserNotFound
	}
	if !CheckPassword(password, user.PasswordHash) {
		g.countLogin("bad_password")
		return "", nil, ErrInvalidCredentials
	}
	if !user.Active {
		g.countLogin("inactive")
		return "", nil, ErrInactiveUser
	}

	now := g.clock.Now().UTC()
	sess := &models.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(g.ttl),
	}
	if err := g.store.CreateSession(ctx, sess); err != nil {
		return "", nil, err
	}

	token, err := signToken(g.secret, sess.ID, user.ID, sess.CreatedAt, sess.ExpiresAt)
	if err != nil {
		return "", nil, fmt.Errorf("error signing session token: %w", err)
	}

	g.countLogin("success")
	slog.Info("user logged in", "user_id", user.ID)
	return token, user, nil
}

// Logout ends the session named by token. Unknown or invalid tokens are
// already anonymous, so they are not an error.
func (g *Gate) Logout(ctx context.Context, token string) error {
	sessionID, _, err := parseToken(g.secret, token, g.clock.Now)
	if err != nil {
		return nil
	}
	return g.store.DeleteSession(ctx, sessionID)
}

// Restore resolves a token to an identity. Anything short of a valid token,
// a live session and an active user yields (nil, nil).
func (g *Gate) Restore(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, nil
	}

	sessionID, userID, err := parseToken(g.secret, token, g.clock.Now)
	if err != nil {
		return nil, nil
	}

	sess, err := g.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.UserID != userID || sess.Expired(g.clock.Now()) {
		return nil, nil
	}

	user, err := g.store.GetUserByID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.Active {
		return nil, nil
	}

	return &Identity{UserID: user.ID, Username: user.Username, SessionID: sess.ID}, nil
}

// PurgeExpired removes sessions that can no longer be restored.
func (g *Gate) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := g.store.DeleteExpiredSessions(ctx, g.clock.Now().UTC())
	if err != nil {
		return 0, err
	}
	if g.metrics != nil {
		g.metrics.SessionsPurged.Add(float64(n))
	}
	return n, nil
}

func (g *Gate) countLogin(outcome string) {
	if g.metrics != nil {
		g.metrics.LoginAttempts.WithLabelValues(outcome).Inc()
	}
}
