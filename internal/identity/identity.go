// Package identity talks to the identity provider that turns backend-issued
// custom tokens into short-lived ID tokens and refreshes them.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	defaultAuthURL  = "https://identitytoolkit.googleapis.com"
	defaultTokenURL = "https://securetoken.googleapis.com/v1/token"
)

// Credential is the result of a successful sign-in or refresh.
type Credential struct {
	IDToken      string
	RefreshToken string
	Expiry       time.Time
	UserID       string
}

// ErrNoRefreshToken is returned by Refresh when there is no live provider
// session to refresh.
var ErrNoRefreshToken = errors.New("identity: no refresh token")

type Client struct {
	APIKey     string
	AuthURL    string
	TokenURL   string
	HTTPClient *http.Client
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 12 * time.Second}
}

func (c *Client) keyed(base string) (string, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return "", fmt.Errorf("identity: missing API key")
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("identity: parse url: %w", err)
	}
	q := u.Query()
	q.Set("key", c.APIKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// SignInWithCustomToken exchanges a custom token for an ID token and refresh
// token.
func (c *Client) SignInWithCustomToken(ctx context.Context, customToken string) (Credential, error) {
	if strings.TrimSpace(customToken) == "" {
		return Credential{}, fmt.Errorf("identity: custom token is empty")
	}
	base := strings.TrimRight(strings.TrimSpace(c.AuthURL), "/")
	if base == "" {
		base = defaultAuthURL
	}
	endpoint, err := c.keyed(base + "/v1/accounts:signInWithCustomToken")
	if err != nil {
		return Credential{}, err
	}
	payload, err := json.Marshal(map[string]any{
		"token":             customToken,
		"returnSecureToken": true,
	})
	if err != nil {
		return Credential{}, fmt.Errorf("marshal sign-in payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return Credential{}, fmt.Errorf("create sign-in request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return Credential{}, fmt.Errorf("execute sign-in request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Credential{}, fmt.Errorf("read sign-in response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Credential{}, fmt.Errorf("sign-in request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed signInResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Credential{}, fmt.Errorf("decode sign-in response: %w", err)
	}
	if parsed.IDToken == "" {
		return Credential{}, fmt.Errorf("sign-in response has no idToken")
	}
	return Credential{
		IDToken:      parsed.IDToken,
		RefreshToken: parsed.RefreshToken,
		Expiry:       expiryOf(parsed.IDToken, parsed.ExpiresIn),
		UserID:       parsed.LocalID,
	}, nil
}

// Refresh runs the refresh_token grant against the secure token endpoint and
// returns a forced-fresh ID token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (Credential, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return Credential{}, ErrNoRefreshToken
	}
	tokenURL := strings.TrimSpace(c.TokenURL)
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}
	endpoint, err := c.keyed(tokenURL)
	if err != nil {
		return Credential{}, err
	}
	conf := &oauth2.Config{
		Endpoint: oauth2.Endpoint{TokenURL: endpoint, AuthStyle: oauth2.AuthStyleInParams},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient())
	tok, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) && rerr.Response != nil {
			return Credential{}, fmt.Errorf("refresh request failed with status %d: %s", rerr.Response.StatusCode, strings.TrimSpace(string(rerr.Body)))
		}
		return Credential{}, fmt.Errorf("execute refresh request: %w", err)
	}
	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		return Credential{}, fmt.Errorf("refresh response has no id_token")
	}
	userID, _ := tok.Extra("user_id").(string)
	expiry := tok.Expiry
	if exp, ok := ExpiryFromJWT(idToken); ok {
		expiry = exp
	}
	next := tok.RefreshToken
	if next == "" {
		next = refreshToken
	}
	return Credential{IDToken: idToken, RefreshToken: next, Expiry: expiry, UserID: userID}, nil
}

type signInResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	LocalID      string `json:"localId"`
}

func expiryOf(idToken, expiresIn string) time.Time {
	if exp, ok := ExpiryFromJWT(idToken); ok {
		return exp
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(expiresIn)); err == nil && secs > 0 {
		return time.Now().Add(time.Duration(secs) * time.Second)
	}
	return time.Time{}
}
