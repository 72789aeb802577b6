package identity

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedJWT(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestSignInWithCustomToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	idToken := signedJWT(t, exp)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/accounts:signInWithCustomToken", r.URL.Path)
		assert.Equal(t, "api-key", r.URL.Query().Get("key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "custom-1", body["token"])
		assert.Equal(t, true, body["returnSecureToken"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"idToken":      idToken,
			"refreshToken": "refresh-1",
			"expiresIn":    "3600",
			"localId":      "user-1",
		})
	}))
	defer srv.Close()

	c := &Client{APIKey: "api-key", AuthURL: srv.URL, HTTPClient: srv.Client()}
	cred, err := c.SignInWithCustomToken(t.Context(), "custom-1")
	require.NoError(t, err)
	assert.Equal(t, idToken, cred.IDToken)
	assert.Equal(t, "refresh-1", cred.RefreshToken)
	assert.Equal(t, "user-1", cred.UserID)
	assert.True(t, cred.Expiry.Equal(exp), "expiry %v want %v", cred.Expiry, exp)
}

func TestSignInWithCustomTokenFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"INVALID_CUSTOM_TOKEN"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := &Client{APIKey: "k", AuthURL: srv.URL, HTTPClient: srv.Client()}
	_, err := c.SignInWithCustomToken(t.Context(), "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "INVALID_CUSTOM_TOKEN")
}

func TestSignInRequiresAPIKey(t *testing.T) {
	c := &Client{}
	_, err := c.SignInWithCustomToken(t.Context(), "custom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing API key")
}

func TestRefresh(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	idToken := signedJWT(t, exp)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "api-key", r.URL.Query().Get("key"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "refresh-1", r.PostForm.Get("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token":  idToken,
			"expires_in":    "3600",
			"token_type":    "Bearer",
			"refresh_token": "refresh-2",
			"id_token":      idToken,
			"user_id":       "user-1",
		})
	}))
	defer srv.Close()

	c := &Client{APIKey: "api-key", TokenURL: srv.URL + "/v1/token", HTTPClient: srv.Client()}
	cred, err := c.Refresh(t.Context(), "refresh-1")
	require.NoError(t, err)
	assert.Equal(t, idToken, cred.IDToken)
	assert.Equal(t, "refresh-2", cred.RefreshToken)
	assert.Equal(t, "user-1", cred.UserID)
	assert.True(t, cred.Expiry.Equal(exp))
}

func TestRefreshRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	c := &Client{APIKey: "k", TokenURL: srv.URL, HTTPClient: srv.Client()}
	_, err := c.Refresh(t.Context(), "stale")
	require.Error(t, err)
}

func TestRefreshWithoutToken(t *testing.T) {
	c := &Client{APIKey: "k"}
	_, err := c.Refresh(t.Context(), " ")
	require.ErrorIs(t, err, ErrNoRefreshToken)
}

func TestExpiryFromJWT(t *testing.T) {
	exp := time.Now().Add(-time.Minute).Truncate(time.Second)
	got, ok := ExpiryFromJWT(signedJWT(t, exp))
	require.True(t, ok)
	assert.True(t, got.Equal(exp))

	_, ok = ExpiryFromJWT("not-a-jwt")
	assert.False(t, ok)
}
