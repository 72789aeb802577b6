package login

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const redirectURI = "http://127.0.0.1:8765/auth/kakao/callback"

func TestAuthCodeURLPrefersConfiguredURL(t *testing.T) {
	cfg := Config{LoginURL: "https://backend.example/auth/kakao/login", ClientID: "ignored"}
	got, state, err := cfg.AuthCodeURL()
	require.NoError(t, err)
	assert.Equal(t, "https://backend.example/auth/kakao/login", got)
	assert.Empty(t, state)
}

func TestAuthCodeURLBuildsKakaoURL(t *testing.T) {
	cfg := Config{RedirectURI: redirectURI, ClientID: "client-1"}
	got, state, err := cfg.AuthCodeURL()
	require.NoError(t, err)
	require.NotEmpty(t, state)

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "kauth.kakao.com", u.Host)
	assert.Equal(t, "/oauth/authorize", u.Path)
	assert.Equal(t, "client-1", u.Query().Get("client_id"))
	assert.Equal(t, redirectURI, u.Query().Get("redirect_uri"))
	assert.Equal(t, "code", u.Query().Get("response_type"))
	assert.Equal(t, state, u.Query().Get("state"))
}

func TestAuthCodeURLRequiresClientID(t *testing.T) {
	_, _, err := Config{RedirectURI: redirectURI}.AuthCodeURL()
	require.Error(t, err)
}

func TestParseRedirect(t *testing.T) {
	r, ok, err := ParseRedirect("https://kauth.kakao.com/oauth/authorize?x=1", redirectURI)
	require.NoError(t, err)
	assert.False(t, ok)

	r, ok, err = ParseRedirect(redirectURI+"?code=abc123&state=s1", redirectURI)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc123", r.Code)
	assert.Equal(t, "s1", r.State)
	assert.NoError(t, r.Err())

	r, ok, err = ParseRedirect(redirectURI+"#access_token=tok-1", redirectURI)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "tok-1", r.Token)

	r, ok, err = ParseRedirect(redirectURI, redirectURI)
	require.NoError(t, err)
	require.True(t, ok)
	assert.ErrorIs(t, r.Err(), ErrNoCredential)

	r, _, _ = ParseRedirect(redirectURI+"?error=access_denied&error_description=user+cancelled", redirectURI)
	require.Error(t, r.Err())
	assert.Contains(t, r.Err().Error(), "user cancelled")
}

func TestDecodePayloadShapes(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		shape Shape
		token string
		user  string
	}{
		{"token", `{"token":"t1","user_id":"u1","firebase_token":"f1","nickname":"준"}`, ShapeToken, "t1", "u1"},
		{"jwt", `{"jwt":"j1","kakao_id":12345}`, ShapeJWT, "j1", "12345"},
		{"app token", `{"app_token":"a1","id":"u3"}`, ShapeAppToken, "a1", "u3"},
		{"nested", `{"data":{"token":"t4","user_id":"u4"}}`, ShapeToken, "t4", "u4"},
		{"token wins", `{"app_token":"a5","token":"t5"}`, ShapeToken, "t5", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := DecodePayload([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.shape, p.Shape)
			assert.Equal(t, tt.token, p.Token)
			assert.Equal(t, tt.user, p.UserID)
		})
	}

	p, err := DecodePayload([]byte(`{"token":"t1","firebase_token":"f1","nickname":"준"}`))
	require.NoError(t, err)
	assert.Equal(t, "f1", p.FirebaseToken)
	assert.Equal(t, "준", p.Nickname)

	_, err = DecodePayload([]byte(`{"message":"ok"}`))
	assert.ErrorIs(t, err, ErrUnknownPayload)

	_, err = DecodePayload([]byte(`not json`))
	assert.Error(t, err)
}

func TestDecodeMessage(t *testing.T) {
	r, err := DecodeMessage([]byte(`{"type":"login","code":"c1"}`), redirectURI)
	require.NoError(t, err)
	assert.Equal(t, "c1", r.Code)

	r, err = DecodeMessage([]byte(`{"jwt":"j1"}`), redirectURI)
	require.NoError(t, err)
	assert.Equal(t, "j1", r.Token)

	r, err = DecodeMessage([]byte(redirectURI+"?code=c2"), redirectURI)
	require.NoError(t, err)
	assert.Equal(t, "c2", r.Code)

	_, err = DecodeMessage([]byte(`{"type":"ready"}`), redirectURI)
	assert.ErrorIs(t, err, ErrNoCredential)

	_, err = DecodeMessage([]byte("hello"), redirectURI)
	assert.Error(t, err)
}

func TestExchangerExchangeCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/auth/kakao/callback", r.URL.Path)
		assert.Equal(t, "code-1", r.URL.Query().Get("code"))
		assert.Equal(t, "http://127.0.0.1:8765/cb", r.URL.Query().Get("redirect_uri"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"app_token":"app-1","user_id":"u1","firebase_token":"fb-1"}`))
	}))
	defer srv.Close()

	e := &Exchanger{URL: srv.URL + "/auth/kakao/callback", RedirectURI: "http://127.0.0.1:8765/cb", HTTPClient: srv.Client()}
	p, err := e.ExchangeCode(t.Context(), "code-1")
	require.NoError(t, err)
	assert.Equal(t, ShapeAppToken, p.Shape)
	assert.Equal(t, "app-1", p.Token)
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, "fb-1", p.FirebaseToken)
}

func TestExchangerFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid code", http.StatusUnauthorized)
	}))
	defer srv.Close()

	e := &Exchanger{URL: srv.URL, HTTPClient: srv.Client()}
	_, err := e.ExchangeCode(t.Context(), "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestWaitForCallback(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	uri := "http://" + ln.Addr().String() + "/auth/kakao/callback"

	type result struct {
		r   Redirect
		err error
	}
	done := make(chan result, 1)
	go func() {
		r, err := WaitForCallback(t.Context(), ln, uri, "state-1")
		done <- result{r, err}
	}()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get(uri + "?code=c9&state=state-1")
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.Equal(t, "c9", res.r.Code)
	case <-time.After(3 * time.Second):
		t.Fatal("callback did not return")
	}
}

func TestWaitForCallbackStateMismatch(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	uri := "http://" + ln.Addr().String() + "/cb"

	done := make(chan error, 1)
	go func() {
		_, err := WaitForCallback(t.Context(), ln, uri, "expected")
		done <- err
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get(uri + "?code=c1&state=other")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return true
	}, 2*time.Second, 20*time.Millisecond)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrStateMismatch)
	case <-time.After(3 * time.Second):
		t.Fatal("callback did not return")
	}
}

func TestWaitForCallbackCancelled(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err = WaitForCallback(ctx, ln, "http://"+ln.Addr().String()+"/cb", "")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestWaitForCallbackPostedMessage(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	uri := "http://" + ln.Addr().String() + "/auth/kakao/callback"

	type result struct {
		r   Redirect
		err error
	}
	done := make(chan result, 1)
	go func() {
		r, err := WaitForCallback(t.Context(), ln, uri, "")
		done <- result{r, err}
	}()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Post(uri, "text/plain", strings.NewReader("not a message"))
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(uri, "application/json", strings.NewReader(`{"jwt":"jwt-1","state":"s"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.Equal(t, "jwt-1", res.r.Token)
	case <-time.After(3 * time.Second):
		t.Fatal("callback did not return")
	}
}
