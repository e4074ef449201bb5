package crm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rockcreekarms/ordersync-backend/pkg/config"
	pkgerrors "github.com/rockcreekarms/ordersync-backend/pkg/errors"
	"github.com/rockcreekarms/ordersync-backend/pkg/logger"
)

const tokenExpirySkew = 60 * time.Second

// TokenSource supplies a live CRM access token.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
	Invalidate()
}

// TokenProvider exchanges the long-lived refresh token for short-lived access
// tokens, caching them until shortly before expiry.
type TokenProvider struct {
	mu           sync.Mutex
	httpClient   *http.Client
	accountsHost string
	clientID     string
	clientSecret string
	refreshToken string
	logger       *logger.Logger
	now          func() time.Time

	accessToken string
	expiresAt   time.Time
}

var errRefreshCredsRequired = errors.New("crm client id, secret, and refresh token are required")

// NewTokenProvider validates the OAuth credentials and returns a provider.
func NewTokenProvider(cfg config.CRMConfig, logg *logger.Logger) (*TokenProvider, error) {
	if strings.TrimSpace(cfg.ClientID) == "" ||
		strings.TrimSpace(cfg.ClientSecret) == "" ||
		strings.TrimSpace(cfg.RefreshToken) == "" {
		return nil, errRefreshCredsRequired
	}
	return &TokenProvider{
		httpClient:   &http.Client{Timeout: cfg.CallTimeout},
		accountsHost: strings.TrimRight(cfg.AccountsHost, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		refreshToken: cfg.RefreshToken,
		logger:       logg,
		now:          time.Now,
	}, nil
}

// AccessToken returns the cached token or refreshes it when expired.
func (p *TokenProvider) AccessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.accessToken != "" && p.now().Before(p.expiresAt.Add(-tokenExpirySkew)) {
		return p.accessToken, nil
	}
	return p.refresh(ctx)
}

// Invalidate drops the cached token so the next call refreshes.
func (p *TokenProvider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accessToken = ""
	p.expiresAt = time.Time{}
}

func (p *TokenProvider) refresh(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", p.clientID)
	form.Set("client_secret", p.clientSecret)
	form.Set("refresh_token", p.refreshToken)

	endpoint := p.accountsHost + "/oauth/v2/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "building token refresh request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refreshing crm access token")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading token refresh response")
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
		Error       string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding token refresh response")
	}
	if resp.StatusCode != http.StatusOK || payload.Error != "" || payload.AccessToken == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("crm token refresh rejected (status %d, error %q)", resp.StatusCode, payload.Error))
	}

	p.accessToken = payload.AccessToken
	p.expiresAt = p.now().Add(time.Duration(payload.ExpiresIn) * time.Second)

	if p.logger != nil {
		p.logger.Info(ctx, "crm access token refreshed")
	}
	return p.accessToken, nil
}
