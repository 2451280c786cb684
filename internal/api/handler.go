package api

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-disaster-reports/internal/auth"
	"github.com/mr1hm/go-disaster-reports/internal/metrics"
	"github.com/mr1hm/go-disaster-reports/internal/models"
	"github.com/mr1hm/go-disaster-reports/internal/repository"
)

//go:embed templates/*.html
var templateFS embed.FS

// Store is the part of the entity store the handlers touch directly. Users
// and sessions are reached through the auth gate.
type Store interface {
	repository.DisasterRepository
	repository.AlertRepository
	Ping(ctx context.Context) error
}

type Notifier interface {
	Notify(ctx context.Context, a *models.Alert)
}

type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

type Handler struct {
	store    Store
	gate     *auth.Gate
	notifier Notifier
	metrics  *metrics.Metrics
	cookie   CookieConfig
}

func NewHandler(store Store, gate *auth.Gate, notifier Notifier, m *metrics.Metrics, cookie CookieConfig) *Handler {
	return &Handler{
		store:    store,
		gate:     gate,
		notifier: notifier,
		metrics:  m,
		cookie:   cookie,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	configureValidator()
	r.SetHTMLTemplate(template.Must(template.New("").ParseFS(templateFS, "templates/*.html")))

	r.GET("/health", h.health)

	r.GET("/login", h.loginPage)
	r.POST("/login", h.login)
	r.GET("/register", h.registerPage)
	r.POST("/register", h.register)

	api := r.Group("", h.RequireAuth())
	api.GET("/disasters", h.listDisasters)
	api.POST("/disasters", h.createDisaster)
	api.GET("/alerts", h.listAlerts)
	api.POST("/alerts", h.createAlert)

	pages := r.Group("", h.RequirePageAuth())
	pages.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, dashboardPath) })
	pages.GET("/dashboard", h.dashboard)
	pages.POST("/add_disaster", h.addDisaster)
	pages.POST("/add_alert", h.addAlert)
	pages.GET("/logout", h.logout)
}

type disasterRequest struct {
	DisasterType string   `json:"disaster_type" form:"disaster_type" binding:"required,notblank,max=100"`
	Location     string   `json:"location" form:"location" binding:"required,notblank,max=200"`
	Severity     *float64 `json:"severity" form:"severity" binding:"required,min=0,max=10"`
	TimeOccurred string   `json:"time_occurred" form:"time_occurred" binding:"required,notblank,max=64"`
}

func (r *disasterRequest) model() *models.Disaster {
	return &models.Disaster{
		DisasterType: r.DisasterType,
		Location:     r.Location,
		Severity:     *r.Severity,
		TimeOccurred: r.TimeOccurred,
	}
}

type alertRequest struct {
	DisasterID int64  `json:"disaster_id" form:"disaster_id" binding:"required,gt=0"`
	AlertType  string `json:"alert_type" form:"alert_type" binding:"required,notblank,max=100"`
	Message    string `json:"message" form:"message" binding:"required,notblank,max=1000"`
	TimeSent   string `json:"time_sent" form:"time_sent" binding:"required,notblank,max=64"`
}

func (r *alertRequest) model() *models.Alert {
	return &models.Alert{
		DisasterID: r.DisasterID,
		AlertType:  r.AlertType,
		Message:    r.Message,
		TimeSent:   r.TimeSent,
	}
}

func (h *Handler) listDisasters(c *gin.Context) {
	disasters, err := h.store.ListDisasters(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, disasters)
}

func (h *Handler) createDisaster(c *gin.Context) {
	var req disasterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	d, err := h.saveDisaster(c, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (h *Handler) listAlerts(c *gin.Context) {
	alerts, err := h.store.ListAlerts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, alerts)
}

func (h *Handler) createAlert(c *gin.Context) {
	var req alertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	a, err := h.saveAlert(c, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *Handler) saveDisaster(c *gin.Context, req *disasterRequest) (*models.Disaster, error) {
	d := req.model()
	if err := h.store.CreateDisaster(c.Request.Context(), d); err != nil {
		return nil, err
	}
	if h.metrics != nil {
		h.metrics.DisastersCreated.Inc()
	}
	return d, nil
}

// saveAlert persists the alert and hands it to the notifier. The notifier
// only sees alerts that made it into the store.
func (h *Handler) saveAlert(c *gin.Context, req *alertRequest) (*models.Alert, error) {
	a := req.model()
	if err := h.store.CreateAlert(c.Request.Context(), a); err != nil {
		return nil, err
	}
	if h.metrics != nil {
		h.metrics.AlertsCreated.Inc()
	}
	if h.notifier != nil {
		h.notifier.Notify(c.Request.Context(), a)
	}
	return a, nil
}

func (h *Handler) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
