// Package launchpad provides a client for the parts of the Launchpad REST API
// used to build rocks remotely: git repositories, access tokens and CI builds.
package launchpad

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

	"github.com/google/uuid"

	"github.com/canonical/rocks-toolbox/src/provider"
)

const (
	// ProductionAPIRoot is the base URL for the Launchpad API.
	ProductionAPIRoot = "https://api.launchpad.net/devel"
	// StagingAPIRoot is the base URL for the Launchpad staging API.
	StagingAPIRoot = "https://api.staging.launchpad.net/devel"
)

// APIRoot maps a Launchpad service name to its API root. Unknown names are
// treated as a literal API root URL.
func APIRoot(service string) string {
	switch service {
	case "", "production":
		return ProductionAPIRoot
	case "staging":
		return StagingAPIRoot
	case "qastaging":
		return "https://api.qastaging.launchpad.net/devel"
	}
	return strings.TrimRight(service, "/")
}

// Client is a Launchpad API client.
type Client struct {
	apiRoot    string
	creds      *Credentials
	httpClient *http.Client
	now        func() time.Time
}

// Person represents a Launchpad person.
type Person struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	SelfLink    string `json:"self_link"`
	WebLink     string `json:"web_link"`
}

// GitRepository represents a Launchpad git repository.
type GitRepository struct {
	Name        string `json:"name"`
	UniqueName  string `json:"unique_name"`
	SelfLink    string `json:"self_link"`
	WebLink     string `json:"web_link"`
	GitHTTPSURL string `json:"git_https_url"`
}

// StatusReport represents a revision status report attached to a commit.
type StatusReport struct {
	Title       string `json:"title"`
	CIBuildLink string `json:"ci_build_link"`
	Result      string `json:"result"`
	CommitSHA1  string `json:"commit_sha1"`
}

// CIBuild represents a Launchpad CI build.
type CIBuild struct {
	SelfLink             string     `json:"self_link"`
	WebLink              string     `json:"web_link"`
	Title                string     `json:"title"`
	ArchTag              string     `json:"arch_tag"`
	BuildState           string     `json:"buildstate"`
	BuildLogURL          string     `json:"build_log_url"`
	DistroArchSeriesLink string     `json:"distro_arch_series_link"`
	DateBuilt            *time.Time `json:"datebuilt"`
}

type statusReportCollection struct {
	TotalSize          int            `json:"total_size"`
	Entries            []StatusReport `json:"entries"`
	NextCollectionLink string         `json:"next_collection_link"`
}

// NewClient creates a new Launchpad API client.
func NewClient(apiRoot string, creds *Credentials) *Client {
	return &Client{
		apiRoot: strings.TrimRight(apiRoot, "/"),
		creds:   creds,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		now: time.Now,
	}
}

// Me fetches the person the credentials belong to.
func (c *Client) Me(ctx context.Context) (*Person, error) {
	var person Person
	if err := c.getJSON(ctx, c.resolve("/people/+me"), nil, &person); err != nil {
		return nil, err
	}
	return &person, nil
}

// NewGitRepository creates a personal git repository for owner.
func (c *Client) NewGitRepository(ctx context.Context, ownerLink, name string) (*GitRepository, error) {
	form := url.Values{}
	form.Set("ws.op", "new")
	form.Set("name", name)
	form.Set("owner", ownerLink)
	form.Set("target", ownerLink)

	resp, err := c.post(ctx, c.resolve("/+git"), form)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Launchpad answers a named POST that creates an object with 201 and a
	// Location header; some deployments return the representation directly.
	if resp.StatusCode == http.StatusCreated {
		location := resp.Header.Get("Location")
		if location == "" {
			return nil, fmt.Errorf("repository created without a Location header")
		}
		var repo GitRepository
		if err := c.getJSON(ctx, location, nil, &repo); err != nil {
			return nil, fmt.Errorf("failed to load created repository: %w", err)
		}
		return &repo, nil
	}

	var repo GitRepository
	if err := json.NewDecoder(resp.Body).Decode(&repo); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &repo, nil
}

// GetGitRepositoryByPath looks a repository up by its path,
// e.g. "~user/+git/name". Returns provider.ErrNotFound if it does not exist.
func (c *Client) GetGitRepositoryByPath(ctx context.Context, path string) (*GitRepository, error) {
	query := url.Values{}
	query.Set("ws.op", "getByPath")
	query.Set("path", path)

	var repo *GitRepository
	if err := c.getJSON(ctx, c.resolve("/+git"), query, &repo); err != nil {
		return nil, err
	}
	if repo == nil {
		return nil, fmt.Errorf("repository %s: %w", path, provider.ErrNotFound)
	}
	return repo, nil
}

// Delete deletes the object at link.
func (c *Client) Delete(ctx context.Context, link string) error {
	resp, err := c.do(ctx, http.MethodDelete, c.resolve(link), nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// IssueAccessToken issues a personal access token for a git repository.
func (c *Client) IssueAccessToken(ctx context.Context, repoLink, description string, scopes []string, expires time.Time) (string, error) {
	scopesJSON, err := json.Marshal(scopes)
	if err != nil {
		return "", fmt.Errorf("failed to encode scopes: %w", err)
	}

	form := url.Values{}
	form.Set("ws.op", "issueAccessToken")
	form.Set("description", description)
	form.Set("scopes", string(scopesJSON))
	form.Set("date_expires", expires.UTC().Format(time.RFC3339))

	resp, err := c.post(ctx, c.resolve(repoLink), form)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var token string
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("failed to decode access token: %w", err)
	}
	if token == "" {
		return "", fmt.Errorf("empty access token returned")
	}
	return token, nil
}

// GetStatusReports lists the status reports of a commit, following pagination.
func (c *Client) GetStatusReports(ctx context.Context, repoLink, commitSHA1 string) ([]StatusReport, error) {
	query := url.Values{}
	query.Set("ws.op", "getStatusReports")
	query.Set("commit_sha1", commitSHA1)

	var reports []StatusReport
	next := c.resolve(repoLink)
	for next != "" {
		var page statusReportCollection
		if err := c.getJSON(ctx, next, query, &page); err != nil {
			return nil, err
		}
		reports = append(reports, page.Entries...)
		next = page.NextCollectionLink
		// next_collection_link already carries the query string
		query = nil
	}
	return reports, nil
}

// GetCIBuild loads a CI build.
func (c *Client) GetCIBuild(ctx context.Context, link string) (*CIBuild, error) {
	var build CIBuild
	if err := c.getJSON(ctx, c.resolve(link), nil, &build); err != nil {
		return nil, err
	}
	return &build, nil
}

// GetArtifactURLs lists the URLs of the files a CI build produced.
func (c *Client) GetArtifactURLs(ctx context.Context, buildLink string) ([]string, error) {
	query := url.Values{}
	query.Set("ws.op", "getArtifactURLs")

	var urls []string
	if err := c.getJSON(ctx, c.resolve(buildLink), query, &urls); err != nil {
		return nil, err
	}
	return urls, nil
}

// Download fetches a file such as a build log or an artifact. Files are
// served from the librarian, so the request is only signed when it targets
// the API itself.
func (c *Client) Download(ctx context.Context, fileURL string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", fileURL, err)
	}
	return data, nil
}

func (c *Client) resolve(link string) string {
	if strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		return link
	}
	return c.apiRoot + "/" + strings.TrimLeft(link, "/")
}

func (c *Client) getJSON(ctx context.Context, target string, query url.Values, out interface{}) error {
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + query.Encode()
	}

	resp, err := c.do(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, target string, form url.Values) (*http.Response, error) {
	return c.do(ctx, http.MethodPost, target, form)
}

// do executes a request and maps error statuses. The caller closes the body
// of a successful response.
func (c *Client) do(ctx context.Context, method, target string, form url.Values) (*http.Response, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if strings.HasPrefix(target, c.apiRoot) {
		req.Header.Set("Accept", "application/json")
		if c.creds != nil {
			req.Header.Set("Authorization", c.authorization())
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return nil, fmt.Errorf("%w: %s", provider.ErrAuthFailed, strings.TrimSpace(string(respBody)))
		case http.StatusNotFound:
			return nil, fmt.Errorf("%s: %w", target, provider.ErrNotFound)
		}
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	return resp, nil
}

// authorization builds an OAuth 1.0 PLAINTEXT Authorization header.
func (c *Client) authorization() string {
	signature := c.creds.ConsumerSecret + "&" + c.creds.AccessSecret
	params := []struct{ key, value string }{
		{"oauth_consumer_key", c.creds.ConsumerKey},
		{"oauth_token", c.creds.AccessToken},
		{"oauth_signature_method", "PLAINTEXT"},
		{"oauth_signature", signature},
		{"oauth_timestamp", strconv.FormatInt(c.now().Unix(), 10)},
		{"oauth_nonce", uuid.NewString()},
		{"oauth_version", "1.0"},
	}

	parts := []string{`OAuth realm="https://api.launchpad.net/"`}
	for _, p := range params {
		parts = append(parts, fmt.Sprintf("%s=%q", p.key, percentEncode(p.value)))
	}
	return strings.Join(parts, ", ")
}

func percentEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
