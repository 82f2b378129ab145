package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thirdhand/marketplace/internal/domain/identity"
	"github.com/thirdhand/marketplace/internal/infrastructure/auth"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func setupTestMeter(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = mp.Shutdown(context.Background())
	})
	return mp, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func findMetricByName(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func requestCounts(t *testing.T, rm metricdata.ResourceMetrics) metricdata.Sum[int64] {
	t.Helper()
	m := findMetricByName(rm, "http_server_request_total")
	require.NotNil(t, m, "http_server_request_total metric not found")
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected Sum data for counter")
	return sum
}

func TestHTTPMetrics_DisabledOrWithoutProvider(t *testing.T) {
	for name, cfg := range map[string]HTTPMetricsConfig{
		"disabled":    {Enabled: false},
		"no provider": {Enabled: true},
	} {
		t.Run(name, func(t *testing.T) {
			router := gin.New()
			router.Use(HTTPMetrics(cfg))
			router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestHTTPMetricsWithMeter_CountsByRouteAndStatus(t *testing.T) {
	mp, reader := setupTestMeter(t)

	router := gin.New()
	router.Use(HTTPMetricsWithMeter(mp.Meter("http.server"), nil))
	router.GET("/api/v1/artworks/:id", func(c *gin.Context) {
		if c.Param("id") == "missing" {
			c.Status(http.StatusNotFound)
			return
		}
		c.String(http.StatusOK, "artwork")
	})

	for _, path := range []string{"/api/v1/artworks/a", "/api/v1/artworks/b", "/api/v1/artworks/missing", "/nowhere"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	sum := requestCounts(t, collectMetrics(t, reader))

	counts := map[string]int64{}
	var total int64
	for _, dp := range sum.DataPoints {
		route, _ := dp.Attributes.Value("http.route")
		status, _ := dp.Attributes.Value("http.status_code")
		counts[route.AsString()+" "+status.Emit()] += dp.Value
		total += dp.Value
	}
	assert.Equal(t, int64(4), total)
	assert.Equal(t, int64(2), counts["/api/v1/artworks/:id 200"])
	assert.Equal(t, int64(1), counts["/api/v1/artworks/:id 404"])
	assert.Equal(t, int64(1), counts["unknown 404"])
}

func TestHTTPMetricsWithMeter_RoleAttribute(t *testing.T) {
	mp, reader := setupTestMeter(t)
	jwtService := newTestJWTService()
	token, _ := issueToken(t, jwtService, identity.RoleAdmin)

	router := gin.New()
	router.Use(HTTPMetricsWithMeter(mp.Meter("http.server"), nil))
	router.GET("/admin", JWTAuth(validatorFor(jwtService, auth.NewInMemoryTokenBlacklist()), nil), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	router.ServeHTTP(httptest.NewRecorder(), req)

	sum := requestCounts(t, collectMetrics(t, reader))
	require.Len(t, sum.DataPoints, 1)
	role, ok := sum.DataPoints[0].Attributes.Value(attribute.Key("user.role"))
	require.True(t, ok)
	assert.Equal(t, "admin", role.AsString())
}

func TestHTTPMetricsWithMeter_Sizes(t *testing.T) {
	mp, reader := setupTestMeter(t)

	router := gin.New()
	router.Use(HTTPMetricsWithMeter(mp.Meter("http.server"), nil))
	router.POST("/echo", func(c *gin.Context) { c.String(http.StatusOK, strings.Repeat("y", 2048)) })

	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(strings.Repeat("x", 1000)))
	router.ServeHTTP(httptest.NewRecorder(), req)

	rm := collectMetrics(t, reader)
	for name, want := range map[string]float64{
		"http_server_request_size_bytes":  1000,
		"http_server_response_size_bytes": 2048,
	} {
		m := findMetricByName(rm, name)
		require.NotNil(t, m, name)
		hist, ok := m.Data.(metricdata.Histogram[float64])
		require.True(t, ok)
		require.Len(t, hist.DataPoints, 1)
		assert.Equal(t, want, hist.DataPoints[0].Sum, name)
	}
	require.NotNil(t, findMetricByName(rm, "http_server_request_duration_seconds"))
}

func TestHTTPMetricsWithMeter_ActiveRequestsSettle(t *testing.T) {
	mp, reader := setupTestMeter(t)

	router := gin.New()
	router.Use(HTTPMetricsWithMeter(mp.Meter("http.server"), nil))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))

	m := findMetricByName(collectMetrics(t, reader), "http_server_active_requests")
	require.NotNil(t, m)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(0), sum.DataPoints[0].Value)
}

func TestStatusClass(t *testing.T) {
	tests := map[int]string{
		200: "2xx",
		201: "2xx",
		302: "3xx",
		404: "4xx",
		429: "4xx",
		500: "5xx",
		503: "5xx",
		100: "other",
	}
	for status, want := range tests {
		assert.Equal(t, want, StatusClass(status), status)
	}
}
