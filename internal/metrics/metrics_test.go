package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberkv/ember/internal/metrics"
)

func TestObserveCommandAndScrape(t *testing.T) {
	m := metrics.New()
	m.ObserveCommand("get")
	m.ObserveCommand("get")
	m.ObserveCommand("set")
	m.ConnectionsOpened.Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `ember_commands_total{verb="get"} 2`)
	assert.Contains(t, body, `ember_commands_total{verb="set"} 1`)
	assert.Contains(t, body, "ember_connections_opened_total 1")
}
