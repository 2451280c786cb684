package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.DisastersCreated.Inc()
	m.LoginAttempts.WithLabelValues("success").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["disaster_reports_disasters_created_total"])
	assert.True(t, names["disaster_reports_login_attempts_total"])
}

func TestNew_DoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}

func TestMiddleware_ObservesRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewForTesting()

	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/disasters", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/disasters", "/nope"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		router.ServeHTTP(w, req)
	}

	assert.Equal(t, 1, testutil.CollectAndCount(m.RequestDuration.WithLabelValues("GET", "/disasters", "200").(prometheus.Histogram)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.RequestDuration))
}
