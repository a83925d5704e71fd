// ABOUTME: Tests for the device-flow auth client against a fake OAuth server
// ABOUTME: Covers code issuance, every poll outcome, and refresh semantics
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuth(t *testing.T, handler http.Handler) *Auth {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	a := NewAuth("client-id", "client-secret", nil)
	a.deviceCodeURL = srv.URL + "/device/code"
	a.tokenURL = srv.URL + "/token"
	return a
}

func TestRequestDeviceCode(t *testing.T) {
	a := newTestAuth(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "/device/code", r.URL.Path)
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		assert.Equal(t, calendarScope, r.PostForm.Get("scope"))
		json.NewEncoder(w).Encode(map[string]any{
			"device_code":      "dev-1",
			"user_code":        "ABCD-EFGH",
			"verification_url": "https://www.google.com/device",
			"expires_in":       1800,
			"interval":         5,
		})
	}))

	code, err := a.RequestDeviceCode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "dev-1", code.DeviceCode)
	assert.Equal(t, "ABCD-EFGH", code.UserCode)
	assert.Equal(t, 5, code.Interval)

	now := time.Now()
	assert.WithinDuration(t, now.Add(30*time.Minute), code.ExpiresAt(now), time.Second)
}

func TestRequestDeviceCodeServerError(t *testing.T) {
	a := newTestAuth(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad client", http.StatusBadRequest)
	}))

	_, err := a.RequestDeviceCode(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestPollForTokenOutcomes(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       map[string]any
		wantStatus PollStatus
	}{
		{
			"success", http.StatusOK,
			map[string]any{"access_token": "at", "refresh_token": "rt", "expires_in": 3600, "token_type": "Bearer"},
			PollSuccess,
		},
		{"pending", http.StatusPreconditionRequired, map[string]any{"error": "authorization_pending"}, PollPending},
		{"slow down", http.StatusTooManyRequests, map[string]any{"error": "slow_down"}, PollSlowDown},
		{"denied", http.StatusForbidden, map[string]any{"error": "access_denied"}, PollDenied},
		{"expired", http.StatusBadRequest, map[string]any{"error": "expired_token"}, PollExpired},
		{"unknown error reads as pending", http.StatusBadRequest, map[string]any{"error": "invalid_grant"}, PollPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAuth(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, r.ParseForm())
				assert.Equal(t, deviceGrantType, r.PostForm.Get("grant_type"))
				assert.Equal(t, "dev-1", r.PostForm.Get("device_code"))
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(tt.body)
			}))

			res := a.PollForToken(context.Background(), "dev-1")
			assert.Equal(t, tt.wantStatus, res.Status)
			if tt.wantStatus == PollSuccess {
				require.NotNil(t, res.Tokens)
				assert.Equal(t, "at", res.Tokens.AccessToken)
				assert.Equal(t, "rt", res.Tokens.RefreshToken)
				assert.False(t, res.Tokens.IsExpired())
			} else {
				assert.Nil(t, res.Tokens)
			}
		})
	}
}

func TestPollForTokenTransportErrorIsPending(t *testing.T) {
	a := NewAuth("client-id", "client-secret", nil)
	a.tokenURL = "http://127.0.0.1:1/token" // nothing listens here

	res := a.PollForToken(context.Background(), "dev-1")
	assert.Equal(t, PollPending, res.Status)
}

func TestRefreshTokenKeepsOriginalRefreshToken(t *testing.T) {
	a := newTestAuth(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "rt-original", r.PostForm.Get("refresh_token"))
		// Google omits refresh_token on refresh responses.
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "at-new", "expires_in": 3600, "token_type": "Bearer",
		})
	}))

	tok, err := a.RefreshToken(context.Background(), "rt-original")
	require.NoError(t, err)
	assert.Equal(t, "at-new", tok.AccessToken)
	assert.Equal(t, "rt-original", tok.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.ExpiresAt, 5*time.Second)
}

func TestRefreshTokenFailure(t *testing.T) {
	a := newTestAuth(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": "invalid_grant"}`)
	}))

	_, err := a.RefreshToken(context.Background(), "rt-revoked")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRefreshFailed)
}

func TestRequestDeviceCodeDefaultsInterval(t *testing.T) {
	a := newTestAuth(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"device_code": "dev-1", "user_code": "X", "verification_url": "u", "expires_in": 900,
		})
	}))

	code, err := a.RequestDeviceCode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, code.Interval)
}
