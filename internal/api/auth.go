package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// IssueFirebaseToken asks the backend for a custom identity-provider token
// for userID. The route is unauthenticated.
func (c *Client) IssueFirebaseToken(ctx context.Context, userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", fmt.Errorf("user id is required")
	}
	body, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/auth/firebase/refresh-token/" + url.PathEscape(userID),
	})
	if err != nil {
		return "", err
	}
	var parsed struct {
		FirebaseToken string `json:"firebase_token"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode firebase token response: %w", err)
	}
	if parsed.FirebaseToken == "" {
		return "", fmt.Errorf("firebase token response is empty")
	}
	return parsed.FirebaseToken, nil
}
