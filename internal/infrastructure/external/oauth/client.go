package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	authApp "storefront/internal/application/auth"
	"storefront/internal/domain/auth"
	"storefront/internal/infrastructure/config"
)

// Client 以授權碼向 Google/GitHub 換取使用者身分。
type Client struct {
	google config.OAuthProviderConfig
	github config.OAuthProviderConfig

	// 測試時可改指到 httptest server。
	googleTokenURL string
	googleUserURL  string
	githubTokenURL string
	githubUserURL  string

	httpClient *http.Client
}

func NewClient(cfg config.OAuthConfig) *Client {
	return &Client{
		google:         cfg.Google,
		github:         cfg.GitHub,
		googleTokenURL: "https://oauth2.googleapis.com/token",
		googleUserURL:  "https://openidconnect.googleapis.com/v1/userinfo",
		githubTokenURL: "https://github.com/login/oauth/access_token",
		githubUserURL:  "https://api.github.com/user",
		httpClient:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Exchange 實作 ProviderClient。
func (c *Client) Exchange(ctx context.Context, provider auth.Provider, code string) (authApp.Identity, error) {
	switch provider {
	case auth.ProviderGoogle:
		return c.exchangeGoogle(ctx, code)
	case auth.ProviderGitHub:
		return c.exchangeGitHub(ctx, code)
	default:
		return authApp.Identity{}, fmt.Errorf("unsupported oauth provider %q", provider)
	}
}

func (c *Client) exchangeGoogle(ctx context.Context, code string) (authApp.Identity, error) {
	token, err := c.fetchToken(ctx, c.googleTokenURL, url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"client_id":     {c.google.ClientID},
		"client_secret": {c.google.ClientSecret},
		"redirect_uri":  {c.google.RedirectURL},
	})
	if err != nil {
		return authApp.Identity{}, err
	}

	var info struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := c.fetchUser(ctx, c.googleUserURL, token, &info); err != nil {
		return authApp.Identity{}, err
	}
	return authApp.Identity{
		Provider:   auth.ProviderGoogle,
		ProviderID: info.Sub,
		Email:      info.Email,
		Name:       info.Name,
	}, nil
}

func (c *Client) exchangeGitHub(ctx context.Context, code string) (authApp.Identity, error) {
	token, err := c.fetchToken(ctx, c.githubTokenURL, url.Values{
		"code":          {code},
		"client_id":     {c.github.ClientID},
		"client_secret": {c.github.ClientSecret},
	})
	if err != nil {
		return authApp.Identity{}, err
	}

	var info struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
		Login string `json:"login"`
	}
	if err := c.fetchUser(ctx, c.githubUserURL, token, &info); err != nil {
		return authApp.Identity{}, err
	}
	name := info.Name
	if name == "" {
		name = info.Login
	}
	return authApp.Identity{
		Provider:   auth.ProviderGitHub,
		ProviderID: strconv.FormatInt(info.ID, 10),
		Email:      info.Email,
		Name:       name,
	}, nil
}

func (c *Client) fetchToken(ctx context.Context, endpoint string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("oauth token exchange failed status=%d body=%s", resp.StatusCode, string(raw))
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("oauth provider returned empty access token")
	}
	return body.AccessToken, nil
}

func (c *Client) fetchUser(ctx context.Context, endpoint, token string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("oauth userinfo failed status=%d body=%s", resp.StatusCode, string(raw))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
