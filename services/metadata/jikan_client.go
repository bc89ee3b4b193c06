package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"movieverse/services/identity"
)

const jikanBaseURL = "https://api.jikan.moe/v4"

// jikanClient talks to the Jikan (MyAnimeList) API. No key required, but the
// public instance enforces roughly 3 requests per second.
type jikanClient struct {
	httpc *http.Client

	throttleMu  sync.Mutex
	lastRequest time.Time
	minInterval time.Duration
}

func newJikanClient(httpc *http.Client) *jikanClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	return &jikanClient{
		httpc:       httpc,
		minInterval: 400 * time.Millisecond,
	}
}

func (c *jikanClient) doGET(ctx context.Context, endpoint string, v any) error {
	var lastErr error
	backoff := 500 * time.Millisecond

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
			log.Printf("[jikan] http error (attempt %d/3): %v", attempt+1, err)
			time.Sleep(backoff)
			backoff *= 2
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			log.Printf("[jikan] rate limited or server error (attempt %d/3): status %d", attempt+1, resp.StatusCode)
			lastErr = fmt.Errorf("jikan request failed: %s", resp.Status)
			time.Sleep(backoff)
			backoff *= 2
			continue
		}

		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return fmt.Errorf("jikan request failed: %s", resp.Status)
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

type jikanListResponse struct {
	Data []identity.JikanRecord `json:"data"`
}

type jikanSingleResponse struct {
	Data identity.JikanRecord `json:"data"`
}

// search returns anime matching the query.
func (c *jikanClient) search(ctx context.Context, query string) ([]identity.JikanRecord, error) {
	endpoint := jikanBaseURL + "/anime?" + url.Values{"q": {query}, "sfw": {"true"}}.Encode()
	var payload jikanListResponse
	if err := c.doGET(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

// top returns the current top-rated anime.
func (c *jikanClient) top(ctx context.Context) ([]identity.JikanRecord, error) {
	var payload jikanListResponse
	if err := c.doGET(ctx, jikanBaseURL+"/top/anime", &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

// details fetches a single anime by its MyAnimeList id.
func (c *jikanClient) details(ctx context.Context, malID int64) (identity.JikanRecord, error) {
	var payload jikanSingleResponse
	endpoint := jikanBaseURL + "/anime/" + strconv.FormatInt(malID, 10)
	if err := c.doGET(ctx, endpoint, &payload); err != nil {
		return identity.JikanRecord{}, err
	}
	return payload.Data, nil
}
