package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestGinPrometheusMiddleware_CountsByRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinPrometheusMiddleware("metrics-test"))
	router.GET("/reviews", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := testutil.ToFloat64(HttpRequestsTotal.WithLabelValues("metrics-test", "GET", "/reviews", "200"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/reviews", nil)
	router.ServeHTTP(w, req)

	after := testutil.ToFloat64(HttpRequestsTotal.WithLabelValues("metrics-test", "GET", "/reviews", "200"))
	assert.Equal(t, before+1, after)
}

func TestGinPrometheusMiddleware_SkipsHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinPrometheusMiddleware("metrics-health-test"))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, 0.0, testutil.ToFloat64(HttpRequestsTotal.WithLabelValues("metrics-health-test", "GET", "/health", "200")))
}

func TestRecordConnectAttempt(t *testing.T) {
	ok := testutil.ToFloat64(DbConnectAttempts.WithLabelValues("connect-test", "success"))
	failed := testutil.ToFloat64(DbConnectAttempts.WithLabelValues("connect-test", "failed"))

	RecordConnectAttempt("connect-test", nil)
	RecordConnectAttempt("connect-test", errors.New("boom"))

	assert.Equal(t, ok+1, testutil.ToFloat64(DbConnectAttempts.WithLabelValues("connect-test", "success")))
	assert.Equal(t, failed+1, testutil.ToFloat64(DbConnectAttempts.WithLabelValues("connect-test", "failed")))
}
