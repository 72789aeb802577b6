// Package api is the REST client for the Dang-Doctor backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dang-doctor/doctor-fe/internal/logutil"
)

const defaultBaseURL = "http://localhost:8000"

// TokenSource hands out the bearer token for authenticated calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// RequestError is a non-2xx response. Status and Body are kept verbatim for
// display.
type RequestError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *RequestError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("%s %s failed with status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("%s %s failed with status %d: %s", e.Method, e.Path, e.Status, body)
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenSource
	Logger     *slog.Logger
}

func (c *Client) base() string {
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if base == "" {
		return defaultBaseURL
	}
	return base
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 15 * time.Second}
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return logutil.Discard()
}

// AuthorizationHeader formats a bearer token the way every authenticated
// endpoint expects it.
func AuthorizationHeader(token string) string {
	return "Bearer " + token
}

type request struct {
	method      string
	path        string
	body        io.Reader
	contentType string
	auth        bool
}

func jsonBody(v any) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(b), nil
}

// do executes r and returns the response body of a 2xx response.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	defer logutil.NewTimingLogger(c.logger(), time.Now(), "api request", "method", r.method, "path", r.path)()

	req, err := http.NewRequestWithContext(ctx, r.method, c.base()+r.path, r.body)
	if err != nil {
		return nil, fmt.Errorf("create %s %s request: %w", r.method, r.path, err)
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.auth {
		if c.Tokens == nil {
			return nil, fmt.Errorf("%s %s: no token source configured", r.method, r.path)
		}
		token, err := c.Tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", r.method, r.path, err)
		}
		req.Header.Set("Authorization", AuthorizationHeader(token))
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute %s %s request: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s %s response: %w", r.method, r.path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RequestError{Method: r.method, Path: r.path, Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
