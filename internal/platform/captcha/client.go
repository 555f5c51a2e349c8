package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Haiikyu/reveelbox-sub002/internal/common/config"
)

// Verifier checks a captcha token with the external provider. It is injected
// into the giveaway service so tests can substitute a deterministic fake.
type Verifier interface {
	Verify(ctx context.Context, token string) (bool, error)
}

type client struct {
	httpClient *http.Client
	verifyURL  string
	secret     string
}

// NewClient builds a Verifier backed by a siteverify-style HTTP endpoint.
func NewClient(cfg *config.Config) Verifier {
	return &client{
		httpClient: &http.Client{Timeout: cfg.Captcha.Timeout},
		verifyURL:  cfg.Captcha.VerifyURL,
		secret:     cfg.Captcha.Secret,
	}
}

type verifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

func (c *client) Verify(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	form := url.Values{}
	form.Set("secret", c.secret)
	form.Set("response", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("failed to build captcha request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("captcha provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("captcha provider returned status %d", resp.StatusCode)
	}

	var body verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("failed to decode captcha response: %w", err)
	}

	return body.Success, nil
}

// Static is a Verifier that always returns a fixed result. Used in tests and
// local development without a captcha provider.
type Static bool

func (s Static) Verify(ctx context.Context, token string) (bool, error) {
	return bool(s), nil
}
