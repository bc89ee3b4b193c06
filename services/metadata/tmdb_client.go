package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"movieverse/services/identity"
)

const tmdbBaseURL = "https://api.themoviedb.org/3"

type tmdbClient struct {
	apiKey string
	httpc  *http.Client

	// Rate limiting
	throttleMu  sync.Mutex
	lastRequest time.Time
	minInterval time.Duration
}

func newTMDBClient(apiKey string, httpc *http.Client) *tmdbClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	return &tmdbClient{
		apiKey:      strings.TrimSpace(apiKey),
		httpc:       httpc,
		minInterval: 20 * time.Millisecond, // TMDB has generous rate limits
	}
}

func (c *tmdbClient) isConfigured() bool {
	return c != nil && c.apiKey != ""
}

// doGET performs an HTTP GET with rate limiting and retry with exponential backoff
func (c *tmdbClient) doGET(ctx context.Context, endpoint string, v any) error {
	var lastErr error
	backoff := 300 * time.Millisecond

	for attempt := 0; attempt < 3; attempt++ {
		c.throttleMu.Lock()
		since := time.Since(c.lastRequest)
		if since < c.minInterval {
			time.Sleep(c.minInterval - since)
		}
		c.lastRequest = time.Now()
		c.throttleMu.Unlock()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}

		resp, err := c.httpc.Do(req)
		if err != nil {
			lastErr = err
			log.Printf("[tmdb] http error (attempt %d/3): %v", attempt+1, err)
			time.Sleep(backoff)
			backoff *= 2
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			log.Printf("[tmdb] rate limited or server error (attempt %d/3): status %d", attempt+1, resp.StatusCode)
			lastErr = fmt.Errorf("tmdb request failed: %s", resp.Status)
			time.Sleep(backoff)
			backoff *= 2
			continue
		}

		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return fmt.Errorf("tmdb request failed: %s", resp.Status)
		}

		err = json.NewDecoder(resp.Body).Decode(v)
		resp.Body.Close()
		if err != nil {
			return err
		}
		return nil
	}

	return lastErr
}

func (c *tmdbClient) endpoint(path string, params map[string]string) string {
	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("language", "en-US")
	for k, v := range params {
		q.Set(k, v)
	}
	return tmdbBaseURL + path + "?" + q.Encode()
}

type tmdbListResponse struct {
	Results []identity.TMDBRecord `json:"results"`
}

// trending returns this week's trending movies.
func (c *tmdbClient) trending(ctx context.Context) ([]identity.TMDBRecord, error) {
	if !c.isConfigured() {
		return nil, errors.New("tmdb api key not configured")
	}

	var payload tmdbListResponse
	if err := c.doGET(ctx, c.endpoint("/trending/movie/week", nil), &payload); err != nil {
		return nil, err
	}
	return payload.Results, nil
}

// search returns movie search results for the query.
func (c *tmdbClient) search(ctx context.Context, query string) ([]identity.TMDBRecord, error) {
	if !c.isConfigured() {
		return nil, errors.New("tmdb api key not configured")
	}

	var payload tmdbListResponse
	endpoint := c.endpoint("/search/movie", map[string]string{"query": query})
	if err := c.doGET(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	return payload.Results, nil
}

// details fetches a movie with its external ids in one round trip.
func (c *tmdbClient) details(ctx context.Context, tmdbID int64) (identity.TMDBRecord, error) {
	if !c.isConfigured() {
		return identity.TMDBRecord{}, errors.New("tmdb api key not configured")
	}

	var rec identity.TMDBRecord
	endpoint := c.endpoint("/movie/"+strconv.FormatInt(tmdbID, 10),
		map[string]string{"append_to_response": "external_ids"})
	if err := c.doGET(ctx, endpoint, &rec); err != nil {
		return identity.TMDBRecord{}, err
	}
	return rec, nil
}
