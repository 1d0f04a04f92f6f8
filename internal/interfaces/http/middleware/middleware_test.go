package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"

	"github.com/turtacn/astragrid/internal/infrastructure/monitoring"
	"github.com/turtacn/astragrid/internal/interfaces/http/middleware"
	"github.com/turtacn/astragrid/pkg/constants"
	"github.com/turtacn/astragrid/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestObservabilityMiddleware(t *testing.T) {
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	router := gin.New()
	router.Use(middleware.ObservabilityMiddleware(otel.Tracer("test-tracer"), metrics))
	router.GET("/scans/:scan_id", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/scans/SCAN-1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("/scans/:scan_id", "GET", "200")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.HTTPActiveRequests.WithLabelValues("/scans/:scan_id", "GET")))
}

func TestRequestID_GeneratesAndPropagates(t *testing.T) {
	router := gin.New()
	router.Use(middleware.RequestID())
	var seen interface{}
	router.GET("/x", func(c *gin.Context) {
		seen = c.Request.Context().Value(constants.ContextKeyRequestID)
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	generated := w.Header().Get(middleware.HeaderRequestID)
	assert.NotEmpty(t, generated)
	assert.Equal(t, generated, seen)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(middleware.HeaderRequestID, "req-42")
	router.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get(middleware.HeaderRequestID))
}

func TestRecovery_Returns500(t *testing.T) {
	router := gin.New()
	router.Use(middleware.Recovery(logger.NewNoopLogger()), middleware.Logging(logger.NewNoopLogger()))
	router.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"internal"`)
}
