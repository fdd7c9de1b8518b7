package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"blog-sync/internal/auth"
)

const (
	DefaultAPIURL     = "https://api.github.com"
	DefaultGraphQLURL = "https://api.github.com/graphql"

	acceptV3  = "application/vnd.github.v3+json"
	userAgent = "blog-sync"

	maxErrorBody = 64 << 10
)

// InstallationToken binds the App to one repository. It is resolved per
// invocation and never cached.
type InstallationToken struct {
	InstallationID int64
	Repo           string
}

// AuthResolutionError is returned when the installation lookup fails. Status is
// the HTTP status returned by GitHub.
type AuthResolutionError struct {
	Status int
	Body   string
}

func (e *AuthResolutionError) Error() string {
	return fmt.Sprintf("installation lookup failed: status %d: %s", e.Status, e.Body)
}

// Retryable is true for server-side failures. The resolver itself never retries.
func (e *AuthResolutionError) Retryable() bool { return e.Status >= 500 }

type InstallationResolver struct {
	baseURL string
	client  *http.Client
}

func NewInstallationResolver(baseURL string, client *http.Client) *InstallationResolver {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &InstallationResolver{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// Resolve looks up the App installation for repo ("owner/name") using the
// assertion as bearer credential. It makes exactly one request.
func (r *InstallationResolver) Resolve(ctx context.Context, repo string, assertion auth.SignedAssertion) (InstallationToken, error) {
	if strings.Count(repo, "/") != 1 || strings.HasPrefix(repo, "/") || strings.HasSuffix(repo, "/") {
		return InstallationToken{}, fmt.Errorf("invalid repository %q", repo)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/repos/"+repo+"/installation", nil)
	if err != nil {
		return InstallationToken{}, err
	}
	req.Header.Set("Authorization", "Bearer "+assertion.Token)
	req.Header.Set("Accept", acceptV3)
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return InstallationToken{}, fmt.Errorf("installation lookup: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return InstallationToken{}, fmt.Errorf("installation lookup: read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return InstallationToken{}, &AuthResolutionError{Status: resp.StatusCode, Body: string(body)}
	}

	var payload struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.ID == 0 {
		return InstallationToken{}, &AuthResolutionError{Status: resp.StatusCode, Body: "unexpected installation response: " + string(body)}
	}
	return InstallationToken{InstallationID: payload.ID, Repo: repo}, nil
}
