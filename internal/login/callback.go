package login

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

const maxMessageBytes = 64 << 10

const callbackPage = `<!doctype html><html><body><p>로그인 완료. 터미널로 돌아가세요.</p></body></html>`

// WaitForCallback serves redirectURI's path on ln until the provider redirects
// the browser back, then returns what it carried. The login page may instead
// POST a message (JSON or a redirect URL) to the same path. When wantState is
// non-empty the redirect state must match it.
func WaitForCallback(ctx context.Context, ln net.Listener, redirectURI, wantState string) (Redirect, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return Redirect{}, fmt.Errorf("parse redirect uri: %w", err)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	results := make(chan Redirect, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		got := redirectFromValues(r.URL.Query())
		if r.Method == http.MethodPost {
			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMessageBytes))
			if err != nil {
				http.Error(w, "message too large", http.StatusRequestEntityTooLarge)
				return
			}
			msg, err := DecodeMessage(body, redirectURI)
			if err != nil && msg.Error == "" {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			got = mergeRedirect(msg, got)
		}
		select {
		case results <- got:
		default:
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(callbackPage))
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	select {
	case <-ctx.Done():
		return Redirect{}, ctx.Err()
	case err := <-serveErr:
		return Redirect{}, fmt.Errorf("serve login callback: %w", err)
	case r := <-results:
		if err := r.Err(); err != nil {
			return r, err
		}
		if wantState != "" && r.State != wantState {
			return r, ErrStateMismatch
		}
		return r, nil
	}
}
