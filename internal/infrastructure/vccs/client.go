package vccs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-credential-api/internal/domain"
)

const (
	actionAdd    = "add"
	actionVerify = "verify"
	actionRevoke = "revoke"
)

type request struct {
	UserRef      string `json:"user_ref"`
	CredentialID string `json:"credential_id"`
	Secret       string `json:"secret,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

type response struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// Client talks to the remote verification service over JSON/HTTP.
// Each call is a single attempt bounded by the configured timeout.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Add(ctx context.Context, userRef, credentialID, secret string) domain.Outcome {
	return c.call(ctx, actionAdd, request{UserRef: userRef, CredentialID: credentialID, Secret: secret})
}

// Verify reports false for anything but a confirmed match, including transport errors.
func (c *Client) Verify(ctx context.Context, userRef, credentialID, secret string) bool {
	return c.call(ctx, actionVerify, request{UserRef: userRef, CredentialID: credentialID, Secret: secret}).OK()
}

func (c *Client) Revoke(ctx context.Context, userRef, credentialID, reason string) domain.Outcome {
	return c.call(ctx, actionRevoke, request{UserRef: userRef, CredentialID: credentialID, Reason: reason})
}

func (c *Client) call(ctx context.Context, action string, body request) domain.Outcome {
	payload, err := json.Marshal(body)
	if err != nil {
		return domain.Rejected(fmt.Sprintf("encode %s request: %v", action, err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+action, bytes.NewReader(payload))
	if err != nil {
		return domain.Unreachable(fmt.Sprintf("build %s request: %v", action, err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport errors carry the URL, never the request body.
		return domain.Unreachable(fmt.Sprintf("%s: %v", action, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return domain.Unreachable(fmt.Sprintf("%s: status %d", action, resp.StatusCode))
	case resp.StatusCode >= 400:
		return domain.Rejected(fmt.Sprintf("%s: status %d", action, resp.StatusCode))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return domain.Unreachable(fmt.Sprintf("%s: unexpected status %d", action, resp.StatusCode))
	}

	var out response
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&out); err != nil {
		return domain.Unreachable(fmt.Sprintf("decode %s response: %v", action, err))
	}
	if !out.OK {
		reason := out.Reason
		if reason == "" {
			reason = action + " declined"
		}
		return domain.Rejected(reason)
	}
	return domain.Success()
}
