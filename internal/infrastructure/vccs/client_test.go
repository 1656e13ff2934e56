package vccs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-credential-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", time.Second)
}

func TestClient_Add_SendsWireContract(t *testing.T) {
	var got request
	var path string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(response{OK: true})
	})

	out := c.Add(context.Background(), "u1", "c1", "abcd")

	assert.True(t, out.OK())
	assert.Equal(t, "/add", path)
	assert.Equal(t, request{UserRef: "u1", CredentialID: "c1", Secret: "abcd"}, got)
}

func TestClient_Add_NotOK_IsRejected(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(response{OK: false, Reason: "duplicate"})
	})

	out := c.Add(context.Background(), "u1", "c1", "abcd")

	assert.Equal(t, domain.OutcomeRejected, out.Status)
	assert.Equal(t, "duplicate", out.Reason)
}

func TestClient_ClientError_IsRejected(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	assert.Equal(t, domain.OutcomeRejected, c.Add(context.Background(), "u1", "c1", "x").Status)
}

func TestClient_ServerError_IsUnreachable(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	out := c.Revoke(context.Background(), "u1", "c1", "reset")

	assert.Equal(t, domain.OutcomeUnreachable, out.Status)
	assert.ErrorIs(t, out.Err(), domain.ErrServiceUnreachable)
}

func TestClient_BadBody_IsUnreachable(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	})
	assert.Equal(t, domain.OutcomeUnreachable, c.Revoke(context.Background(), "u1", "c1", "r").Status)
}

func TestClient_Revoke_SendsReason(t *testing.T) {
	var got request
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(response{OK: true})
	})

	require.True(t, c.Revoke(context.Background(), "u1", "c1", "reset").OK())
	assert.Equal(t, "reset", got.Reason)
	assert.Empty(t, got.Secret)
}

func TestClient_Verify_TransportFailure_IsFalse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()
	c := NewClient(srv.URL, time.Second)

	assert.False(t, c.Verify(context.Background(), "u1", "c1", "abcd"))
}

func TestClient_Verify_Match(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req request
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(response{OK: req.Secret == "abcd"})
	})

	assert.True(t, c.Verify(context.Background(), "u1", "c1", "abcd"))
	assert.False(t, c.Verify(context.Background(), "u1", "c1", "fghi"))
}
