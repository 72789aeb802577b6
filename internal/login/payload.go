package login

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Shape names which known login response layout a payload was decoded from.
type Shape string

const (
	ShapeToken    Shape = "token"
	ShapeJWT      Shape = "jwt"
	ShapeAppToken Shape = "app_token"
)

// Payload is the backend's answer to a successful login.
type Payload struct {
	Shape         Shape
	Token         string
	UserID        string
	FirebaseToken string
	Nickname      string
}

// ErrUnknownPayload is returned when a login response matches none of the
// known shapes.
var ErrUnknownPayload = errors.New("login payload has no token, jwt or app_token")

type shapeDecoder struct {
	shape  Shape
	decode func(fields map[string]json.RawMessage) (string, bool)
}

// Shapes are tried in order; the first that yields a token wins.
var shapeDecoders = []shapeDecoder{
	{ShapeToken, func(f map[string]json.RawMessage) (string, bool) { return stringField(f, "token") }},
	{ShapeJWT, func(f map[string]json.RawMessage) (string, bool) { return stringField(f, "jwt") }},
	{ShapeAppToken, func(f map[string]json.RawMessage) (string, bool) { return stringField(f, "app_token") }},
}

// DecodePayload decodes a login response body. Objects nested under "data"
// are unwrapped first.
func DecodePayload(body []byte) (Payload, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return Payload{}, fmt.Errorf("decode login payload: %w", err)
	}
	if inner, ok := fields["data"]; ok {
		var nested map[string]json.RawMessage
		if err := json.Unmarshal(inner, &nested); err == nil && len(nested) > 0 {
			fields = nested
		}
	}
	for _, d := range shapeDecoders {
		token, ok := d.decode(fields)
		if !ok {
			continue
		}
		p := Payload{Shape: d.shape, Token: token}
		p.UserID, _ = firstString(fields, "user_id", "kakao_id", "id")
		p.FirebaseToken, _ = stringField(fields, "firebase_token")
		p.Nickname, _ = stringField(fields, "nickname")
		return p, nil
	}
	return Payload{}, ErrUnknownPayload
}

// DecodeMessage decodes a page-to-app message posted by the login page. The
// message is either a JSON object carrying code/token fields or a redirect URL.
func DecodeMessage(data []byte, redirectURI string) (Redirect, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Redirect{}, ErrNoCredential
	}
	if data[0] == '{' {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(data, &fields); err != nil {
			return Redirect{}, fmt.Errorf("decode login message: %w", err)
		}
		r := Redirect{}
		r.Code, _ = stringField(fields, "code")
		r.Token, _ = firstString(fields, "token", "jwt", "app_token", "access_token")
		r.State, _ = stringField(fields, "state")
		r.Error, _ = stringField(fields, "error")
		return r, r.Err()
	}
	r, ok, err := ParseRedirect(string(data), redirectURI)
	if err != nil {
		return Redirect{}, err
	}
	if !ok {
		return Redirect{}, fmt.Errorf("login message is neither JSON nor a redirect: %q", truncate(string(data), 64))
	}
	return r, r.Err()
}

// stringField accepts JSON strings and numbers; numeric ids are common for
// social accounts.
func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		return s, s != ""
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

func firstString(fields map[string]json.RawMessage, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := stringField(fields, k); ok {
			return v, true
		}
	}
	return "", false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
