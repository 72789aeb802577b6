// Package login drives the social login flow outside a web view: it builds the
// provider login URL, intercepts the redirect back to the app, and exchanges
// the one-time code for the backend's login payload.
package login

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// Kakao OAuth endpoints used when no login URL is configured.
var KakaoEndpoint = oauth2.Endpoint{
	AuthURL:  "https://kauth.kakao.com/oauth/authorize",
	TokenURL: "https://kauth.kakao.com/oauth/token",
}

var (
	// ErrNoCredential means the redirect reached the app without a code or
	// token.
	ErrNoCredential = errors.New("login redirect carried no code or token")
	// ErrStateMismatch means the redirect state does not match the one sent.
	ErrStateMismatch = errors.New("login redirect state mismatch")
)

// Config describes where the login page lives and where it redirects to.
type Config struct {
	LoginURL    string
	RedirectURI string
	ClientID    string
	Endpoint    oauth2.Endpoint
}

// AuthCodeURL returns the URL the user should open. A configured LoginURL is
// returned as is (the backend owns its state); otherwise an authorization URL
// is built against the provider endpoint with a fresh state value.
func (c Config) AuthCodeURL() (loginURL, state string, err error) {
	if u := strings.TrimSpace(c.LoginURL); u != "" {
		return u, "", nil
	}
	if strings.TrimSpace(c.ClientID) == "" {
		return "", "", fmt.Errorf("login URL or client id is required")
	}
	if strings.TrimSpace(c.RedirectURI) == "" {
		return "", "", fmt.Errorf("redirect URI is required")
	}
	endpoint := c.Endpoint
	if endpoint.AuthURL == "" {
		endpoint = KakaoEndpoint
	}
	conf := &oauth2.Config{
		ClientID:    c.ClientID,
		RedirectURL: c.RedirectURI,
		Endpoint:    endpoint,
	}
	state = uuid.NewString()
	return conf.AuthCodeURL(state), state, nil
}

// Redirect is what the provider handed back on the redirect URI.
type Redirect struct {
	Code             string
	Token            string
	State            string
	Error            string
	ErrorDescription string
}

// Err reports a provider-side denial or a redirect with nothing usable.
func (r Redirect) Err() error {
	if r.Error != "" {
		if r.ErrorDescription != "" {
			return fmt.Errorf("login denied: %s: %s", r.Error, r.ErrorDescription)
		}
		return fmt.Errorf("login denied: %s", r.Error)
	}
	if r.Code == "" && r.Token == "" {
		return ErrNoCredential
	}
	return nil
}

// ParseRedirect inspects a navigation target. ok is false when rawURL does not
// point at redirectURI, meaning navigation should proceed normally. Parameters
// are read from the query string and then the fragment.
func ParseRedirect(rawURL, redirectURI string) (r Redirect, ok bool, err error) {
	rawURL = strings.TrimSpace(rawURL)
	redirectURI = strings.TrimSpace(redirectURI)
	if redirectURI == "" || !strings.HasPrefix(rawURL, redirectURI) {
		return Redirect{}, false, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return Redirect{}, true, fmt.Errorf("parse redirect url: %w", err)
	}
	r = redirectFromValues(u.Query())
	if u.Fragment != "" {
		frag, ferr := url.ParseQuery(u.Fragment)
		if ferr == nil {
			r = mergeRedirect(r, redirectFromValues(frag))
		}
	}
	return r, true, nil
}

func redirectFromValues(v url.Values) Redirect {
	token := v.Get("token")
	if token == "" {
		token = v.Get("access_token")
	}
	return Redirect{
		Code:             v.Get("code"),
		Token:            token,
		State:            v.Get("state"),
		Error:            v.Get("error"),
		ErrorDescription: v.Get("error_description"),
	}
}

func mergeRedirect(base, extra Redirect) Redirect {
	if base.Code == "" {
		base.Code = extra.Code
	}
	if base.Token == "" {
		base.Token = extra.Token
	}
	if base.State == "" {
		base.State = extra.State
	}
	if base.Error == "" {
		base.Error = extra.Error
		base.ErrorDescription = extra.ErrorDescription
	}
	return base
}
