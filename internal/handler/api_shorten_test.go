package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casimirlb/shortener/internal/models"
)

func TestAPIShortenHandler(t *testing.T) {
	type want struct {
		statusCode  int
		contentType string
		checkResult bool
	}

	tests := []struct {
		name string
		body string
		auth map[string]string
		want want
	}{
		{
			name: "positive test with bearer token",
			body: `{"url":"https://example.com/page"}`,
			want: want{
				statusCode:  http.StatusCreated,
				contentType: "application/json",
				checkResult: true,
			},
		},
		{
			name: "positive test with custom code",
			body: `{"url":"https://example.com/page","custom_code":"demo"}`,
			want: want{
				statusCode:  http.StatusCreated,
				contentType: "application/json",
				checkResult: true,
			},
		},
		{
			name: "negative: empty URL",
			body: `{"url":""}`,
			want: want{statusCode: http.StatusBadRequest},
		},
		{
			name: "negative: invalid JSON",
			body: `{"url":"https://example.com",}`,
			want: want{statusCode: http.StatusBadRequest},
		},
		{
			name: "negative: unknown field",
			body: `{"url":"https://example.com","surprise":true}`,
			want: want{statusCode: http.StatusBadRequest},
		},
		{
			name: "negative: invalid URL",
			body: `{"url":"not a url"}`,
			want: want{statusCode: http.StatusBadRequest},
		},
		{
			name: "negative: blocked URL",
			body: `{"url":"https://bit.ly/abc"}`,
			want: want{statusCode: http.StatusForbidden},
		},
		{
			name: "negative: reserved custom code",
			body: `{"url":"https://example.com","custom_code":"metrics"}`,
			want: want{statusCode: http.StatusBadRequest},
		},
		{
			name: "negative: no credentials",
			body: `{"url":"https://example.com"}`,
			auth: map[string]string{},
			want: want{statusCode: http.StatusUnauthorized},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			authHeaders := tt.auth
			if authHeaders == nil {
				token := env.loginAs(t, "alice", "correct-horse", false)
				authHeaders = map[string]string{"Authorization": "Bearer " + token}
			}

			resp := env.do(t, http.MethodPost, "/api/shorten", tt.body, jsonHeaders(authHeaders))

			assert.Equal(t, tt.want.statusCode, resp.StatusCode)
			if tt.want.contentType != "" {
				assert.Equal(t, tt.want.contentType, resp.Header.Get("Content-Type"))
			}

			if tt.want.checkResult {
				var result models.MappingResponse
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
				assert.NotEmpty(t, result.ShortCode)
				assert.Contains(t, result.ShortURL, testBaseURL+"/")
			}
		})
	}
}

func TestAPIShortenCodeConflict(t *testing.T) {
	env := newTestEnv(t)
	token := env.loginAs(t, "alice", "correct-horse", false)
	headers := jsonHeaders(map[string]string{"Authorization": "Bearer " + token})

	resp := env.do(t, http.MethodPost, "/api/shorten", `{"url":"https://example.com","custom_code":"demo"}`, headers)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/shorten", `{"url":"https://other.example","custom_code":"demo"}`, headers)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPIShortenWithAPIKey(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/shorten", `{"url":"https://example.com"}`,
		jsonHeaders(map[string]string{"X-API-Key": testAPIKey}))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result models.MappingResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))

	// Service-created mappings are owned by the synthetic service user.
	m, err := env.store.GetMapping(context.Background(), result.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, "service", m.OwnerID)
}
