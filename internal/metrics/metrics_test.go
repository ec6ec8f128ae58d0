package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTotals struct {
	urls   int64
	clicks int64
	users  int64
}

func (s staticTotals) MappingTotals(context.Context) (int64, int64, error) {
	return s.urls, s.clicks, nil
}

func (s staticTotals) CountUsers(context.Context) (int64, error) {
	return s.users, nil
}

func TestMetricsExposition(t *testing.T) {
	m := New()
	m.RegisterStoreCollector(staticTotals{urls: 3, clicks: 7, users: 2})

	m.RecordShorten()
	m.RecordShorten()
	m.RecordRedirect()
	m.RecordRateLimited()
	m.RecordHTTPStatus(200)
	m.RecordHTTPStatus(404)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	exposition := string(body)
	assert.Contains(t, exposition, "shortener_urls_created_total 2")
	assert.Contains(t, exposition, "shortener_redirects_total 1")
	assert.Contains(t, exposition, "shortener_rate_limited_total 1")
	assert.Contains(t, exposition, `shortener_http_responses_total{status_code="200"} 1`)
	assert.Contains(t, exposition, "shortener_mappings 3")
	assert.Contains(t, exposition, "shortener_clicks 7")
	assert.Contains(t, exposition, "shortener_users 2")
}

func TestRegistriesAreIsolated(t *testing.T) {
	// Two instances must not collide on registration.
	a := New()
	b := New()
	a.RecordShorten()

	rec := httptest.NewRecorder()
	b.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Contains(t, rec.Body.String(), "shortener_urls_created_total 0")
}
