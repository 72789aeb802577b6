package login

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Exchanger trades a one-time authorization code for the backend's login
// payload by calling the backend's Kakao callback (URL) with the code.
// RedirectURI, when set, is passed along as redirect_uri so the backend can
// present the same value to the provider that the authorization request used.
type Exchanger struct {
	URL         string
	RedirectURI string
	HTTPClient  *http.Client
}

func (e *Exchanger) httpClient() *http.Client {
	if e.HTTPClient != nil {
		return e.HTTPClient
	}
	return &http.Client{Timeout: 12 * time.Second}
}

func (e *Exchanger) ExchangeCode(ctx context.Context, code string) (Payload, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Payload{}, fmt.Errorf("authorization code is required")
	}
	u, err := url.Parse(strings.TrimSpace(e.URL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Payload{}, fmt.Errorf("invalid exchange url %q", e.URL)
	}
	q := u.Query()
	q.Set("code", code)
	if redirect := strings.TrimSpace(e.RedirectURI); redirect != "" {
		q.Set("redirect_uri", redirect)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Payload{}, fmt.Errorf("create exchange request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient().Do(req)
	if err != nil {
		return Payload{}, fmt.Errorf("execute exchange request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Payload{}, fmt.Errorf("read exchange response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Payload{}, fmt.Errorf("exchange request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return DecodePayload(body)
}
