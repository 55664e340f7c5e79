package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"ContentIngestor/internal/domain"
	"ContentIngestor/internal/reader"
)

const defaultGitHubAPI = "https://api.github.com"

// GitHubClient lists repository releases with page-number paging.
type GitHubClient struct {
	http    *HTTPClient
	baseURL string
	token   string
}

// NewGitHubClient builds a client; an empty baseURL targets api.github.com.
func NewGitHubClient(httpClient *HTTPClient, baseURL, token string) *GitHubClient {
	if baseURL == "" {
		baseURL = defaultGitHubAPI
	}
	return &GitHubClient{http: httpClient, baseURL: strings.TrimSuffix(baseURL, "/"), token: token}
}

// Releases fetches one page for repo ("owner/name"). More pages follow only
// when the Link header carries rel="next".
func (g *GitHubClient) Releases(ctx context.Context, repo string, req reader.PageRequest) (reader.Page[domain.GitHubRelease], error) {
	if strings.Count(repo, "/") != 1 {
		return reader.Page[domain.GitHubRelease]{}, errors.Newf("invalid repository %q", repo)
	}

	q := url.Values{}
	q.Set("per_page", strconv.Itoa(req.Size))
	q.Set("page", strconv.Itoa(req.Number))
	endpoint := fmt.Sprintf("%s/repos/%s/releases?%s", g.baseURL, repo, q.Encode())

	headers := map[string]string{"Accept": "application/vnd.github+json"}
	if g.token != "" {
		headers["Authorization"] = "Bearer " + g.token
	}

	body, header, err := g.http.Fetch(ctx, endpoint, headers)
	if err != nil {
		return reader.Page[domain.GitHubRelease]{}, errors.Wrapf(err, "list releases %s page %d", repo, req.Number)
	}

	var releases []domain.GitHubRelease
	if err := json.Unmarshal(body, &releases); err != nil {
		return reader.Page[domain.GitHubRelease]{}, errors.Wrap(err, "decode releases")
	}

	return reader.Page[domain.GitHubRelease]{
		Items:   releases,
		HasMore: len(releases) > 0 && hasNextLink(header.Values("Link")),
	}, nil
}

// hasNextLink reports whether an RFC 8288 Link header lists a rel="next"
// target, e.g. `<https://api.github.com/...&page=3>; rel="next", <...>; rel="last"`.
func hasNextLink(values []string) bool {
	for _, value := range values {
		for _, link := range strings.Split(value, ",") {
			params := strings.Split(link, ";")
			for _, param := range params[1:] {
				key, val, ok := strings.Cut(strings.TrimSpace(param), "=")
				if !ok || !strings.EqualFold(strings.TrimSpace(key), "rel") {
					continue
				}
				for _, rel := range strings.Fields(strings.Trim(strings.TrimSpace(val), `"`)) {
					if strings.EqualFold(rel, "next") {
						return true
					}
				}
			}
		}
	}
	return false
}
