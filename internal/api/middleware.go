package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-disaster-reports/internal/auth"
)

const (
	identityKey   = "identity"
	dashboardPath = "/dashboard"
	loginPath     = "/login"
)

// RequireAuth rejects anonymous API requests with a 401.
func (h *Handler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := h.restore(c)
		if err != nil {
			respondError(c, err)
			return
		}
		if id == nil {
			respondError(c, errUnauthenticated)
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// RequirePageAuth sends anonymous browsers to the login page, remembering
// where they were headed.
func (h *Handler) RequirePageAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := h.restore(c)
		if err != nil {
			respondError(c, err)
			return
		}
		if id == nil {
			next := dashboardPath
			if c.Request.Method == http.MethodGet {
				next = c.Request.URL.RequestURI()
			}
			c.Redirect(http.StatusFound, loginPath+"?next="+url.QueryEscape(next))
			c.Abort()
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

func (h *Handler) restore(c *gin.Context) (*auth.Identity, error) {
	return h.gate.Restore(c.Request.Context(), h.tokenFromRequest(c))
}

// tokenFromRequest prefers a bearer token over the session cookie.
func (h *Handler) tokenFromRequest(c *gin.Context) string {
	if authz := c.GetHeader("Authorization"); authz != "" {
		scheme, token, ok := strings.Cut(authz, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if token, err := c.Cookie(h.cookie.Name); err == nil {
		return token
	}
	return ""
}

func identityFrom(c *gin.Context) *auth.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*auth.Identity)
	return id
}

func (h *Handler) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, token, int(h.cookie.MaxAge.Seconds()), "/", "", h.cookie.Secure, true)
}

func (h *Handler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
}

// safeNext only follows same-site relative paths.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return dashboardPath
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return dashboardPath
	}
	return next
}

// RequestLogger writes one structured line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if id := identityFrom(c); id != nil {
			attrs = append(attrs, "user_id", id.UserID)
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			slog.Error("request", attrs...)
		case c.Writer.Status() >= http.StatusBadRequest:
			slog.Warn("request", attrs...)
		default:
			slog.Debug("request", attrs...)
		}
	}
}
