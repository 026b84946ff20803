package metrics

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/slicingmelon/go-apiserver/internal/apierror"
	"github.com/slicingmelon/go-apiserver/internal/httpparser"
	"github.com/slicingmelon/go-apiserver/internal/response"
)

// CheckAPIKey implements the bearer gate shared by /metrics, /metricsp
// and /version (spec §4.7: "require Authorization: Bearer <API_KEY> when
// API_KEY is configured"). An empty apiKey disables the gate entirely.
func CheckAPIKey(req *httpparser.Request, apiKey string) error {
	if apiKey == "" {
		return nil
	}
	auth := req.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) || strings.TrimPrefix(auth, prefix) != apiKey {
		return apierror.Unauthorized("Invalid or missing API key")
	}
	return nil
}

// JSONHandler serves the /metrics endpoint: a JSON snapshot of the
// registry, gated by CheckAPIKey.
func (r *Registry) JSONHandler(apiKey string) func(req *httpparser.Request, resp *response.Response) error {
	return func(req *httpparser.Request, resp *response.Response) error {
		if err := CheckAPIKey(req, apiKey); err != nil {
			return err
		}
		return resp.JSON(200, r.Snapshot())
	}
}

// PrometheusHandler serves /metricsp: the standard Prometheus text
// exposition format, rendered via promhttp against the default
// registry, gated by CheckAPIKey.
func PrometheusHandler(apiKey string) func(req *httpparser.Request, resp *response.Response) error {
	delegate := promhttp.Handler()
	return func(req *httpparser.Request, resp *response.Response) error {
		if err := CheckAPIKey(req, apiKey); err != nil {
			return err
		}

		rec := httptest.NewRecorder()
		httpReq := httptest.NewRequest(http.MethodGet, "/metricsp", nil)
		delegate.ServeHTTP(rec, httpReq)

		resp.Status = rec.Code
		resp.Body = bytes.TrimRight(rec.Body.Bytes(), "\n")
		resp.Set("Content-Type", "text/plain; version=0.0.4")
		return nil
	}
}
