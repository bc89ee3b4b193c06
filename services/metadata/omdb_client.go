package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"movieverse/services/identity"
)

const omdbBaseURL = "https://www.omdbapi.com/"

type omdbClient struct {
	apiKey string
	httpc  *http.Client

	// Rate limiting
	throttleMu  sync.Mutex
	lastRequest time.Time
	minInterval time.Duration
}

func newOMDBClient(apiKey string, httpc *http.Client) *omdbClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	return &omdbClient{
		apiKey:      strings.TrimSpace(apiKey),
		httpc:       httpc,
		minInterval: 100 * time.Millisecond, // free tier is 1000 req/day
	}
}

func (c *omdbClient) isConfigured() bool {
	return c != nil && c.apiKey != ""
}

// doGET performs an HTTP GET with rate limiting and retry with exponential backoff
func (c *omdbClient) doGET(ctx context.Context, endpoint string, v any) error {
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
			log.Printf("[omdb] http error (attempt %d/3): %v", attempt+1, err)
			time.Sleep(backoff)
			backoff *= 2
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			log.Printf("[omdb] rate limited or server error (attempt %d/3): status %d", attempt+1, resp.StatusCode)
			lastErr = fmt.Errorf("omdb request failed: %s", resp.Status)
			time.Sleep(backoff)
			backoff *= 2
			continue
		}

		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return fmt.Errorf("omdb request failed: %s", resp.Status)
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

func (c *omdbClient) endpoint(params map[string]string) string {
	q := url.Values{}
	q.Set("apikey", c.apiKey)
	for k, v := range params {
		q.Set(k, v)
	}
	return omdbBaseURL + "?" + q.Encode()
}

// byTitle looks a single movie up by title, optionally narrowed by year.
func (c *omdbClient) byTitle(ctx context.Context, title, year string) (identity.OMDBRecord, error) {
	if !c.isConfigured() {
		return identity.OMDBRecord{}, errors.New("omdb api key not configured")
	}

	params := map[string]string{"t": title, "plot": "full"}
	if year != "" && year != "N/A" {
		params["y"] = year
	}

	var rec identity.OMDBRecord
	if err := c.doGET(ctx, c.endpoint(params), &rec); err != nil {
		return identity.OMDBRecord{}, err
	}
	if !rec.OK() {
		return identity.OMDBRecord{}, fmt.Errorf("omdb lookup %q: %s", title, rec.Error)
	}
	return rec, nil
}

// byID looks a single movie up by IMDb id.
func (c *omdbClient) byID(ctx context.Context, imdbID string) (identity.OMDBRecord, error) {
	if !c.isConfigured() {
		return identity.OMDBRecord{}, errors.New("omdb api key not configured")
	}

	var rec identity.OMDBRecord
	if err := c.doGET(ctx, c.endpoint(map[string]string{"i": imdbID, "plot": "full"}), &rec); err != nil {
		return identity.OMDBRecord{}, err
	}
	if !rec.OK() {
		return identity.OMDBRecord{}, fmt.Errorf("omdb lookup %s: %s", imdbID, rec.Error)
	}
	return rec, nil
}

type omdbSearchResponse struct {
	Search   []identity.OMDBRecord `json:"Search"`
	Response string                `json:"Response"`
	Error    string                `json:"Error"`
}

// search returns the first page of title matches.
func (c *omdbClient) search(ctx context.Context, query string) ([]identity.OMDBRecord, error) {
	if !c.isConfigured() {
		return nil, errors.New("omdb api key not configured")
	}

	var payload omdbSearchResponse
	if err := c.doGET(ctx, c.endpoint(map[string]string{"s": query}), &payload); err != nil {
		return nil, err
	}
	if payload.Response != "True" {
		// "Movie not found!" is an empty result, not a failure.
		return nil, nil
	}
	return payload.Search, nil
}
