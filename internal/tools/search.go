package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"
)

// DefaultSearchURL is the SerpAPI endpoint used when none is configured
const DefaultSearchURL = "https://serpapi.com"

const (
	// NoSummary is returned when the first result has no snippet
	NoSummary = "No summary available."
	// NoResults is returned when the search finds nothing
	NoResults = "No relevant search results found."
)

// SearchClient queries SerpAPI
type SearchClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewSearchClient creates a client allowing perSecond requests with a burst of one.
// perSecond <= 0 disables limiting.
func NewSearchClient(baseURL, apiKey string, perSecond float64, httpClient *http.Client) *SearchClient {
	if baseURL == "" {
		baseURL = DefaultSearchURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &SearchClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

type searchResponse struct {
	OrganicResults []struct {
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
	Error string `json:"error"`
}

// Search returns the snippet of the first organic result
func (c *SearchClient) Search(ctx context.Context, query string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("search API key is not set")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("failed to wait for rate limiter: %w", err)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search.json?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if result.Error != "" {
			return "", fmt.Errorf("search returned status %d: %s", resp.StatusCode, result.Error)
		}
		return "", fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	if len(result.OrganicResults) == 0 {
		return NoResults, nil
	}
	if s := strings.TrimSpace(result.OrganicResults[0].Snippet); s != "" {
		return s, nil
	}
	return NoSummary, nil
}
