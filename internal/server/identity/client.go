// Package identity talks to the identity provider's REST API: password
// sign-in for the admin login and account lookup for session verification.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/inkstudio/internal/common"
)

const (
	lookupPath = "/v1/accounts:lookup"
	signInPath = "/v1/accounts:signInWithPassword"

	// maxResponseBytes bounds how much of a provider response is read.
	maxResponseBytes = 1 << 20
)

// Account is a verified account as returned by the lookup endpoint.
type Account struct {
	LocalID       string `json:"localId"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
	Disabled      bool   `json:"disabled"`
}

// SignIn is the result of a successful password sign-in.
type SignIn struct {
	IDToken   string `json:"idToken"`
	Email     string `json:"email"`
	LocalID   string `json:"localId"`
	ExpiresIn string `json:"expiresIn"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client is a thin REST client. The zero value is not usable; use NewClient.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a client for baseURL (e.g. "https://identitytoolkit.googleapis.com"
// or an emulator address). When hc is nil, http.DefaultClient is used.
func NewClient(baseURL, apiKey string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    hc,
	}
}

// LookupAccount resolves idToken to the account it belongs to.
//
// A rejected token yields common.ErrInvalidToken. Transport failures and 5xx
// answers yield common.ErrorIdentityUnavailable. Callers must treat both as
// "not verified".
func (c *Client) LookupAccount(ctx context.Context, idToken string) (*Account, error) {
	var out struct {
		Users []Account `json:"users"`
	}

	if err := c.post(ctx, lookupPath, map[string]any{"idToken": idToken}, &out, common.ErrInvalidToken); err != nil {
		return nil, fmt.Errorf("account lookup: %w", err)
	}
	if len(out.Users) != 1 {
		return nil, fmt.Errorf("account lookup: %d accounts: %w", len(out.Users), common.ErrInvalidToken)
	}
	return &out.Users[0], nil
}

// SignInWithPassword exchanges credentials for an ID token. Wrong
// credentials yield common.ErrorUnauthorized.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*SignIn, error) {
	var out SignIn

	err := c.post(ctx, signInPath, map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &out, common.ErrorUnauthorized)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	if out.IDToken == "" {
		return nil, fmt.Errorf("sign in: empty token: %w", common.ErrorIdentityUnavailable)
	}
	return &out, nil
}

// post sends body as JSON and decodes a 200 answer into out. A 4xx answer
// is reported as rejected, wrapped with the provider's error message.
func (c *Client) post(ctx context.Context, path string, body, out any, rejected error) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	endpoint := c.baseURL + path + "?key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrorIdentityUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: read response: %w", common.ErrorIdentityUnavailable, err)
	}

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: status %d", common.ErrorIdentityUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("%w: %s", rejected, apiErr.Error.Message)
		}
		return fmt.Errorf("%w: status %d", rejected, resp.StatusCode)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode response: %w", common.ErrorIdentityUnavailable, err)
	}
	return nil
}
