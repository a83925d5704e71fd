// ABOUTME: OAuth2 device-flow client for Google: device code, polling, refresh
// ABOUTME: Poll outcomes are classified so the UI can react to each state
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/harperreed/agenda/models"
)

const (
	defaultDeviceCodeURL = "https://oauth2.googleapis.com/device/code"
	defaultTokenURL      = "https://oauth2.googleapis.com/token"
	calendarScope        = "https://www.googleapis.com/auth/calendar"
	deviceGrantType      = "urn:ietf:params:oauth:grant-type:device_code"
)

// ErrRefreshFailed marks a failed token refresh; the caller drops back to the
// unauthenticated state rather than treating it as fatal.
var ErrRefreshFailed = errors.New("token refresh failed")

// DeviceCode is what the user needs to complete sign-in in a browser.
type DeviceCode struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURL string `json:"verification_url"`
	ExpiresIn       int    `json:"expires_in"`
	Interval        int    `json:"interval"`
}

// ExpiresAt returns the wall-clock moment the device code stops working.
func (d DeviceCode) ExpiresAt(now time.Time) time.Time {
	return now.Add(time.Duration(d.ExpiresIn) * time.Second)
}

// PollStatus classifies one token poll attempt.
type PollStatus int

const (
	// PollPending means the user has not finished signing in yet.
	PollPending PollStatus = iota
	// PollSuccess means Tokens on the result are valid.
	PollSuccess
	// PollSlowDown means the server asked for a longer interval.
	PollSlowDown
	// PollDenied means the user rejected the request; polling must stop.
	PollDenied
	// PollExpired means the device code lapsed; polling must stop.
	PollExpired
)

// PollResult is the outcome of one PollForToken call.
type PollResult struct {
	Status PollStatus
	Tokens *models.TokenInfo
}

// Auth performs the device-flow exchanges for one OAuth client.
type Auth struct {
	clientID     string
	clientSecret string
	httpClient   *http.Client
	logger       *slog.Logger

	// Overridable in tests.
	deviceCodeURL string
	tokenURL      string
}

// NewAuth returns an Auth for the given OAuth client credentials.
func NewAuth(clientID, clientSecret string, logger *slog.Logger) *Auth {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auth{
		clientID:      clientID,
		clientSecret:  clientSecret,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		logger:        logger,
		deviceCodeURL: defaultDeviceCodeURL,
		tokenURL:      defaultTokenURL,
	}
}

// RequestDeviceCode starts a device-flow sign-in and returns the code the
// user must enter at the verification URL.
func (a *Auth) RequestDeviceCode(ctx context.Context) (*DeviceCode, error) {
	form := url.Values{
		"client_id": {a.clientID},
		"scope":     {calendarScope},
	}

	a.logger.Info("oauth request", "method", "POST", "url", a.deviceCodeURL)
	resp, err := a.postForm(ctx, a.deviceCodeURL, form)
	if err != nil {
		return nil, fmt.Errorf("requesting device code: %w", err)
	}
	defer resp.Body.Close()
	a.logger.Info("oauth response", "status", resp.StatusCode, "url", a.deviceCodeURL)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("device code request returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var code DeviceCode
	if err := json.NewDecoder(resp.Body).Decode(&code); err != nil {
		return nil, fmt.Errorf("decoding device code response: %w", err)
	}
	if code.Interval <= 0 {
		code.Interval = 5
	}
	return &code, nil
}

// tokenResponse is the raw token endpoint payload; the error field is set on
// non-200 device-flow responses.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Error        string `json:"error"`
}

func (t tokenResponse) toTokenInfo(now time.Time) models.TokenInfo {
	return models.TokenInfo{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    now.Add(time.Duration(t.ExpiresIn) * time.Second),
		TokenType:    t.TokenType,
	}
}

// PollForToken makes one token attempt for a pending device code. Transient
// transport failures classify as pending: the poll loop keeps its cadence and
// retries, since a dropped poll costs nothing.
func (a *Auth) PollForToken(ctx context.Context, deviceCode string) PollResult {
	form := url.Values{
		"client_id":     {a.clientID},
		"client_secret": {a.clientSecret},
		"device_code":   {deviceCode},
		"grant_type":    {deviceGrantType},
	}

	resp, err := a.postForm(ctx, a.tokenURL, form)
	if err != nil {
		a.logger.Warn("token poll transport error", "error", err)
		return PollResult{Status: PollPending}
	}
	defer resp.Body.Close()

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		a.logger.Warn("token poll decode error", "error", err)
		return PollResult{Status: PollPending}
	}

	switch {
	case resp.StatusCode == http.StatusOK && tok.AccessToken != "":
		a.logger.Info("oauth tokens obtained")
		info := tok.toTokenInfo(time.Now())
		return PollResult{Status: PollSuccess, Tokens: &info}
	case tok.Error == "authorization_pending":
		return PollResult{Status: PollPending}
	case tok.Error == "slow_down":
		return PollResult{Status: PollSlowDown}
	case tok.Error == "access_denied":
		a.logger.Info("oauth denied by user")
		return PollResult{Status: PollDenied}
	case tok.Error == "expired_token":
		a.logger.Info("oauth device code expired")
		return PollResult{Status: PollExpired}
	default:
		a.logger.Warn("token poll unexpected response", "status", resp.StatusCode, "oauthError", tok.Error)
		return PollResult{Status: PollPending}
	}
}

// RefreshToken exchanges a refresh token for fresh access material. Google
// usually omits the refresh token from the response; the original one is
// carried over so it survives the round trip.
func (a *Auth) RefreshToken(ctx context.Context, refreshToken string) (*models.TokenInfo, error) {
	form := url.Values{
		"client_id":     {a.clientID},
		"client_secret": {a.clientSecret},
		"refresh_token": {refreshToken},
		"grant_type":    {"refresh_token"},
	}

	a.logger.Info("oauth request", "method", "POST", "url", a.tokenURL, "grant", "refresh_token")
	resp, err := a.postForm(ctx, a.tokenURL, form)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRefreshFailed, err)
	}
	defer resp.Body.Close()
	a.logger.Info("oauth response", "status", resp.StatusCode, "url", a.tokenURL)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: server returned %d: %s", ErrRefreshFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %s", ErrRefreshFailed, err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: response carried no access token", ErrRefreshFailed)
	}

	info := tok.toTokenInfo(time.Now())
	if info.RefreshToken == "" {
		info.RefreshToken = refreshToken
	}
	return &info, nil
}

func (a *Auth) postForm(ctx context.Context, endpoint string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.httpClient.Do(req)
}
