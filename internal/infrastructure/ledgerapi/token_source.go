package ledgerapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/batchly/backend/internal/domain/ledger"
)

// OAuthTokenSource implements the TokenSource port against the ledger
// system's OAuth token endpoint using the refresh_token grant.
type OAuthTokenSource struct {
	config     *Config
	httpClient *http.Client
}

// NewOAuthTokenSource creates a new token source with the given configuration
func NewOAuthTokenSource(config *Config) (*OAuthTokenSource, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.TokenURL == "" {
		return nil, fmt.Errorf("ledgerapi: token URL is required")
	}

	return &OAuthTokenSource{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// tokenResponse is the wire shape of a token exchange response
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Refresh exchanges the refresh token for a new token pair. Any failure to
// exchange is treated as an expired authorization: the connection needs the
// user to reconnect.
func (s *OAuthTokenSource) Refresh(ctx context.Context, conn *ledger.LedgerConnection) (string, string, time.Time, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", conn.RefreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("ledgerapi: failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(s.config.ClientID, s.config.ClientSecret)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("%w: %v", ledger.ErrLedgerUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("ledgerapi: failed to read token response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return "", "", time.Time{}, fmt.Errorf("%w: HTTP %d", ledger.ErrLedgerUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", "", time.Time{}, fmt.Errorf("%w: token exchange failed with HTTP %d", ledger.ErrLedgerAuthExpired, resp.StatusCode)
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return "", "", time.Time{}, fmt.Errorf("%w: malformed token response: %v", ledger.ErrLedgerAuthExpired, err)
	}
	if token.AccessToken == "" {
		return "", "", time.Time{}, fmt.Errorf("%w: empty access token", ledger.ErrLedgerAuthExpired)
	}

	// Some providers rotate the refresh token, some echo the old one
	refreshToken := token.RefreshToken
	if refreshToken == "" {
		refreshToken = conn.RefreshToken
	}

	expiresAt := time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	return token.AccessToken, refreshToken, expiresAt, nil
}

// Ensure OAuthTokenSource implements TokenSource
var _ ledger.TokenSource = (*OAuthTokenSource)(nil)
