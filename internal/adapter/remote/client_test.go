package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/wardsync/internal/config"
	"github.com/heartmarshall/wardsync/internal/domain"
)

type staticToken struct {
	token string
	err   error
}

func (s staticToken) Token(context.Context) (string, error) { return s.token, s.err }

type captured struct {
	mu       sync.Mutex
	method   string
	path     string
	auth     string
	ctype    string
	body     string
	requests int
}

func newServer(t *testing.T, status int, respBody string) (*httptest.Server, *captured) {
	t.Helper()
	c := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.method, c.path, c.auth, c.ctype, c.body = r.Method, r.URL.Path, r.Header.Get("Authorization"), r.Header.Get("Content-Type"), string(b)
		c.requests++
		c.mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(respBody))
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func newClient(t *testing.T, baseURL string, tokens tokenSource) *Client {
	t.Helper()
	c, err := NewClient(config.RemoteConfig{
		BaseURL:          baseURL,
		Timeout:          2 * time.Second,
		PatientsEndpoint: "/api/patients",
	}, tokens, slog.Default())
	require.NoError(t, err)
	return c
}

func TestSend_Success_SendsBearerAndBody(t *testing.T) {
	t.Parallel()
	srv, got := newServer(t, http.StatusOK, `{"ok":true}`)
	c := newClient(t, srv.URL, staticToken{token: "tok-1"})

	resp, err := c.Send(context.Background(), http.MethodPut, "/api/patients/7", json.RawMessage(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body))

	assert.Equal(t, http.MethodPut, got.method)
	assert.Equal(t, "/api/patients/7", got.path)
	assert.Equal(t, "Bearer tok-1", got.auth)
	assert.Equal(t, "application/json", got.ctype)
	assert.JSONEq(t, `{"a":1}`, got.body)
}

func TestSend_NoToken_NoAuthorizationHeader(t *testing.T) {
	t.Parallel()
	srv, got := newServer(t, http.StatusNoContent, ``)
	c := newClient(t, srv.URL, staticToken{})

	_, err := c.Send(context.Background(), http.MethodDelete, "/api/patients/7", nil)
	require.NoError(t, err)
	assert.Empty(t, got.auth)
}

func TestSend_TokenReadError_StillSends(t *testing.T) {
	t.Parallel()
	srv, got := newServer(t, http.StatusCreated, `{}`)
	c := newClient(t, srv.URL, staticToken{err: errors.New("settings unavailable")})

	_, err := c.Send(context.Background(), http.MethodPost, "/api/patients", json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.Empty(t, got.auth)
	assert.Equal(t, 1, got.requests)
}

func TestSend_Non2xx_IsRemoteWriteError(t *testing.T) {
	t.Parallel()
	for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusInternalServerError} {
		srv, _ := newServer(t, status, `{"ok":false}`)
		c := newClient(t, srv.URL, staticToken{})

		_, err := c.Send(context.Background(), http.MethodPost, "/api/patients", json.RawMessage(`{}`))
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrRemoteWrite)

		var rwe *domain.RemoteWriteError
		require.True(t, errors.As(err, &rwe))
		assert.Equal(t, status, rwe.StatusCode)
		assert.Equal(t, "/api/patients", rwe.Endpoint)
	}
}

func TestSend_NetworkError_IsRemoteWriteError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newClient(t, url, staticToken{})
	_, err := c.Send(context.Background(), http.MethodPost, "/api/patients", json.RawMessage(`{}`))
	require.ErrorIs(t, err, domain.ErrRemoteWrite)

	var rwe *domain.RemoteWriteError
	require.True(t, errors.As(err, &rwe))
	assert.Zero(t, rwe.StatusCode)
}

func TestCreatePatient_ReturnsID(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string id", `{"ok":true,"id":"42","hospitalizationId":"7"}`, "42"},
		{"numeric id", `{"ok":true,"id":42}`, "42"},
		{"no id", `{"ok":true}`, ""},
		{"null id", `{"ok":true,"id":null}`, ""},
		{"large numeric id", `{"id":9007199254740993}`, "9007199254740993"},
		{"empty body", ``, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv, got := newServer(t, http.StatusCreated, tt.body)
			c := newClient(t, srv.URL, staticToken{token: "tok"})

			id, err := c.CreatePatient(context.Background(), json.RawMessage(`{"identificacion":"1"}`))
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
			assert.Equal(t, http.MethodPost, got.method)
			assert.Equal(t, "/api/patients", got.path)
		})
	}
}

func TestCreatePatient_UnexpectedIDType(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t, http.StatusCreated, `{"id":{"value":1}}`)
	c := newClient(t, srv.URL, staticToken{})

	_, err := c.CreatePatient(context.Background(), json.RawMessage(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected type")
}

func TestResolve(t *testing.T) {
	t.Parallel()
	c := newClient(t, "https://hospital.example.org/v1/", staticToken{})

	assert.Equal(t, "https://hospital.example.org/v1/api/patients", c.resolve("/api/patients"))
	assert.Equal(t, "https://hospital.example.org/v1/api/patients", c.resolve("api/patients"))
	assert.Equal(t, "https://other.example.org/x", c.resolve("https://other.example.org/x"))
}

func TestProbe(t *testing.T) {
	t.Parallel()
	up, _ := newServer(t, http.StatusOK, `ok`)
	down, _ := newServer(t, http.StatusServiceUnavailable, ``)

	assert.NoError(t, newClient(t, up.URL, staticToken{}).Probe(context.Background(), "/health"))
	assert.Error(t, newClient(t, down.URL, staticToken{}).Probe(context.Background(), "/health"))
}
