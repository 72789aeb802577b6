package session

import (
	"log/slog"
	"time"
)

const defaultFreshnessSkew = 2 * time.Minute

// Option configures a Store.
type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithIdentityProvider(p IdentityProvider) Option {
	return func(s *Store) { s.idp = p }
}

func WithTokenIssuer(i TokenIssuer) Option {
	return func(s *Store) { s.issuer = i }
}

func WithCodeExchanger(e CodeExchanger) Option {
	return func(s *Store) { s.exchanger = e }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithFreshnessSkew sets how long before its expiry a cached ID token stops
// being handed out.
func WithFreshnessSkew(d time.Duration) Option {
	return func(s *Store) {
		if d >= 0 {
			s.skew = d
		}
	}
}
