package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExporterAccumulatesCycles(t *testing.T) {
	e := NewExporter()

	for i := 0; i < 2; i++ {
		c := New()
		c.RecordProxies("vless", 3)
		c.RecordFailure("vmess", errors.New("invalid base64"))
		c.RecordSaved(2)
		c.RecordSource("feed", 5, nil)
		c.RecordSource("channel", 0, errors.New("timeout"))
		e.Observe(c)
	}

	assert.Equal(t, 6.0, testutil.ToFloat64(e.found.WithLabelValues("vless")))
	assert.Equal(t, 2.0, testutil.ToFloat64(e.failures.WithLabelValues("vmess")))
	assert.Equal(t, 4.0, testutil.ToFloat64(e.saved))
	assert.Equal(t, 10.0, testutil.ToFloat64(e.documents.WithLabelValues("feed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(e.sourceErrors.WithLabelValues("channel")))
	assert.Equal(t, 2.0, testutil.ToFloat64(e.cycles))
	assert.Greater(t, testutil.ToFloat64(e.lastCycle), 0.0)
}

func TestExporterHandler(t *testing.T) {
	e := NewExporter()
	c := New()
	c.RecordProxies("trojan", 1)
	e.Observe(c)

	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `proxyscraper_proxies_found_total{protocol="trojan"} 1`)
	assert.Contains(t, rec.Body.String(), "proxyscraper_collect_cycles_total 1")
}
