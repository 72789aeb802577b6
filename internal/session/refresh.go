package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dang-doctor/doctor-fe/internal/identity"
	"github.com/dang-doctor/doctor-fe/internal/kv"
)

var errStoredTokenExpired = errors.New("stored token has expired")

const refreshFlightTimeout = 30 * time.Second

// RefreshToken produces a bearer token, trying in order: the cached ID token
// while it is fresh, a refresh through the identity provider, the stored bare
// token, and finally a backend-issued custom token exchanged with the identity
// provider. It never panics; when every step fails the result is
// SourceUnavailable with the last error.
//
// Concurrent callers share one refresh. The shared refresh is detached from
// any single caller's cancellation; a caller whose ctx ends stops waiting and
// gets SourceUnavailable while the others still receive the result.
func (s *Store) RefreshToken(ctx context.Context) TokenResult {
	ch := s.refresh.DoChan("token", func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshFlightTimeout)
		defer cancel()
		return s.refreshToken(flightCtx), nil
	})
	select {
	case res := <-ch:
		return res.Val.(TokenResult)
	case <-ctx.Done():
		return TokenResult{Source: SourceUnavailable, Err: fmt.Errorf("%w: %w", ErrAuthUnavailable, ctx.Err())}
	}
}

func (s *Store) refreshToken(ctx context.Context) TokenResult {
	snap, ok := s.Current()
	now := s.now()
	var lastErr error

	if ok && snap.IDToken != "" {
		if expiry := idTokenExpiry(snap); !expiry.IsZero() && now.Add(s.skew).Before(expiry) {
			return TokenResult{Token: snap.IDToken, Source: SourceCached}
		}
		s.logger.Debug("cached id token is stale")
	}

	if ok && snap.RefreshToken != "" && s.idp != nil {
		cred, err := s.idp.Refresh(ctx, snap.RefreshToken)
		if err == nil {
			s.storeCredential(cred, "")
			return TokenResult{Token: cred.IDToken, Source: SourceRefreshed}
		}
		s.logger.Warn("identity refresh failed", "err", err)
		lastErr = fmt.Errorf("refresh id token: %w", err)
	}

	if token, err := s.storedToken(ctx, snap, now); err == nil {
		return TokenResult{Token: token, Source: SourceStored}
	} else if !errors.Is(err, errNoStoredToken) {
		lastErr = err
	}

	if ok && snap.UserID != "" && s.issuer != nil && s.idp != nil {
		cred, custom, err := s.issue(ctx, snap.UserID)
		if err == nil {
			s.storeCredential(cred, custom)
			return TokenResult{Token: cred.IDToken, Source: SourceIssued}
		}
		s.logger.Warn("token issuance failed", "user_id", snap.UserID, "err", err)
		lastErr = err
	}

	if lastErr == nil {
		return TokenResult{Source: SourceUnavailable, Err: ErrAuthUnavailable}
	}
	return TokenResult{Source: SourceUnavailable, Err: fmt.Errorf("%w: %w", ErrAuthUnavailable, lastErr)}
}

var errNoStoredToken = errors.New("no stored token")

// storedToken returns the bare token from storage, falling back to the
// in-memory primary token when storage has none or cannot be read. A JWT whose
// exp has passed is rejected; opaque tokens are accepted as is.
func (s *Store) storedToken(ctx context.Context, snap Session, now time.Time) (string, error) {
	token, found, err := s.kv.Get(ctx, kv.AccessTokenKey)
	if err != nil {
		s.logger.Warn("read stored token failed", "err", fmt.Errorf("%w: %w", ErrPersistenceUnavailable, err))
	}
	token = strings.TrimSpace(token)
	if err != nil || !found || token == "" {
		token = snap.PrimaryToken
	}
	if token == "" {
		return "", errNoStoredToken
	}
	if exp, ok := identity.ExpiryFromJWT(token); ok && !now.Before(exp) {
		return "", errStoredTokenExpired
	}
	return token, nil
}

func (s *Store) issue(ctx context.Context, userID string) (identity.Credential, string, error) {
	custom, err := s.issuer.IssueFirebaseToken(ctx, userID)
	if err != nil {
		return identity.Credential{}, "", fmt.Errorf("issue custom token: %w", err)
	}
	cred, err := s.idp.SignInWithCustomToken(ctx, custom)
	if err != nil {
		return identity.Credential{}, "", fmt.Errorf("sign in with custom token: %w", err)
	}
	return cred, custom, nil
}

// storeCredential records a provider-issued credential on the live session.
// It is dropped if the user logged out meanwhile.
func (s *Store) storeCredential(cred identity.Credential, customToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return
	}
	next := s.current.clone()
	applyCredential(&next, cred)
	if customToken != "" {
		next.FirebaseToken = customToken
	}
	next.UpdatedAt = s.now()
	s.current = &next
	s.scheduleLocked(&next, nil)
}

// Token is RefreshToken shaped for HTTP clients.
func (s *Store) Token(ctx context.Context) (string, error) {
	res := s.RefreshToken(ctx)
	if !res.OK() {
		if res.Err == nil {
			return "", ErrAuthUnavailable
		}
		return "", res.Err
	}
	return res.Token, nil
}

func applyCredential(sess *Session, cred identity.Credential) {
	sess.IDToken = cred.IDToken
	sess.IDTokenExpiry = cred.Expiry
	if cred.RefreshToken != "" {
		sess.RefreshToken = cred.RefreshToken
	}
	if sess.UserID == "" && cred.UserID != "" {
		sess.UserID = cred.UserID
	}
}

func idTokenExpiry(sess Session) time.Time {
	if !sess.IDTokenExpiry.IsZero() {
		return sess.IDTokenExpiry
	}
	exp, _ := identity.ExpiryFromJWT(sess.IDToken)
	return exp
}
