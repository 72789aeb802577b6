// Package kv is the whole-value key/value persistence used for session state.
// Values are opaque strings; writers replace the full value.
package kv

import (
	"context"
	"errors"
	"strings"
)

// Keys owned by the session store.
const (
	SessionKey     = "session_user"
	AccessTokenKey = "kakao_access_token"
)

// ErrEmptyKey is returned for blank keys.
var ErrEmptyKey = errors.New("kv key is required")

// Store is a string key/value store with last-writer-wins semantics.
// Get reports found=false for absent keys. Delete of an absent key is not an
// error.
type Store interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

func normalizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrEmptyKey
	}
	return key, nil
}
