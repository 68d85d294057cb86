package githubapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/khoahotran/devconnector/internal/config"
	"github.com/khoahotran/devconnector/internal/domain/github"
	"github.com/khoahotran/devconnector/pkg/logger"
)

const (
	userAgent       = "devconnector"
	requestTimeout  = 10 * time.Second
	maxResponseSize = 1 << 20
)

// Client lists a user's public repositories through the GitHub REST API.
// With a token configured, requests are authenticated and get the higher
// rate limit.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     logger.Logger
}

func NewClient(cfg config.Config, log logger.Logger) *Client {
	httpClient := &http.Client{Timeout: requestTimeout}
	if cfg.Github.Token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Github.Token})
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		httpClient = oauth2.NewClient(ctx, src)
		httpClient.Timeout = requestTimeout
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.Github.APIURL, "/"),
		logger:     log,
	}
}

func (c *Client) reposURL(username string) string {
	return fmt.Sprintf("%s/users/%s/repos?per_page=5&sort=created&direction=desc", c.baseURL, url.PathEscape(username))
}

// ListRepos returns the five most recently created repositories of username.
// Any non-200 answer is reported as github.ErrGithubProfileNotFound.
func (c *Client) ListRepos(ctx context.Context, username string) ([]github.Repo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.reposURL(username), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create github request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call github: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("Failed to close response body", zap.Error(closeErr))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		c.logger.Info("GitHub returned non-OK status",
			zap.String("username", username),
			zap.Int("status", resp.StatusCode))
		return nil, github.ErrGithubProfileNotFound
	}

	var repos []github.Repo
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&repos); err != nil {
		return nil, fmt.Errorf("failed to decode github repos: %w", err)
	}
	return repos, nil
}
