package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestClientRoundTripper sends two requests through an instrumented transport and expects both to
// be counted under their status codes.
func TestClientRoundTripper(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	reg := prometheus.NewRegistry()
	m := NewClient(reg)
	httpClient := &http.Client{Transport: m.InstrumentRoundTripper(nil)}
	defer httpClient.CloseIdleConnections()

	for _, path := range []string{"/", "/missing"} {
		response, err := httpClient.Get(server.URL + path)
		require.NoError(t, err)
		response.Body.Close()
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests("get", http.StatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests("get", http.StatusNotFound)))
}

// TestServerMiddleware expects matched requests to be recorded with their route template.
func TestServerMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewServer(reg, "api")
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/contacts/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/metrics", Handler(reg))

	for _, path := range []string{"/contacts/1", "/contacts/2", "/nowhere"} {
		request, _ := http.NewRequest("GET", path, nil)
		router.ServeHTTP(httptest.NewRecorder(), request)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests("/contacts/:id", "GET", http.StatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests("unmatched", "GET", http.StatusNotFound)))

	recorder := httptest.NewRecorder()
	request, _ := http.NewRequest("GET", "/metrics", nil)
	router.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, strings.Contains(recorder.Body.String(), "contacts_api_http_requests_total"))
}
