// Package session owns the process's authenticated session: it loads and
// persists it through a kv.Store and produces bearer tokens for API calls,
// refreshing them through the identity provider when needed.
package session

import (
	"context"
	"maps"
	"time"

	"github.com/dang-doctor/doctor-fe/internal/identity"
	"github.com/dang-doctor/doctor-fe/internal/login"
)

// Session is the persisted session blob. Field names match the stored JSON.
type Session struct {
	UserID        string         `json:"user_id,omitempty"`
	Nickname      string         `json:"nickname,omitempty"`
	PrimaryToken  string         `json:"access_token,omitempty"`
	FirebaseToken string         `json:"firebase_token,omitempty"`
	IDToken       string         `json:"idToken,omitempty"`
	IDTokenExpiry time.Time      `json:"idTokenExpiry"`
	RefreshToken  string         `json:"refresh_token,omitempty"`
	Preferences   map[string]any `json:"prefs,omitempty"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

func (s Session) clone() Session {
	if s.Preferences != nil {
		s.Preferences = maps.Clone(s.Preferences)
	}
	return s
}

// Credentials is what a login attempt carries. Token wins over Code.
type Credentials struct {
	Token         string
	Code          string
	UserID        string
	FirebaseToken string
	Nickname      string
}

// TokenUpdate replaces the non-empty token fields of the current session.
type TokenUpdate struct {
	PrimaryToken  string
	FirebaseToken string
}

// UserPatch replaces the non-empty user fields of the current session.
type UserPatch struct {
	UserID   string
	Nickname string
}

// IdentityProvider issues and refreshes short-lived ID tokens.
type IdentityProvider interface {
	SignInWithCustomToken(ctx context.Context, customToken string) (identity.Credential, error)
	Refresh(ctx context.Context, refreshToken string) (identity.Credential, error)
}

// TokenIssuer asks the backend for a custom token for a user.
type TokenIssuer interface {
	IssueFirebaseToken(ctx context.Context, userID string) (string, error)
}

// CodeExchanger turns a one-time authorization code into a login payload.
type CodeExchanger interface {
	ExchangeCode(ctx context.Context, code string) (login.Payload, error)
}

// TokenSource says which step of the refresh chain produced a token.
type TokenSource int

const (
	SourceUnavailable TokenSource = iota
	SourceCached
	SourceRefreshed
	SourceStored
	SourceIssued
)

func (s TokenSource) String() string {
	switch s {
	case SourceCached:
		return "cached"
	case SourceRefreshed:
		return "refreshed"
	case SourceStored:
		return "stored"
	case SourceIssued:
		return "issued"
	default:
		return "unavailable"
	}
}

// TokenResult is the outcome of RefreshToken. Token is empty and Err is set
// when Source is SourceUnavailable.
type TokenResult struct {
	Token  string
	Source TokenSource
	Err    error
}

func (r TokenResult) OK() bool { return r.Source != SourceUnavailable && r.Token != "" }
