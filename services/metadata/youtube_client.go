package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const youtubeBaseURL = "https://www.googleapis.com/youtube/v3"

type youtubeClient struct {
	apiKey string
	httpc  *http.Client
}

func newYouTubeClient(apiKey string, httpc *http.Client) *youtubeClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	return &youtubeClient{apiKey: strings.TrimSpace(apiKey), httpc: httpc}
}

func (c *youtubeClient) isConfigured() bool {
	return c != nil && c.apiKey != ""
}

type youtubeSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
	} `json:"items"`
}

// Trailer is a playable trailer reference.
type Trailer struct {
	VideoID string `json:"videoId"`
	Title   string `json:"title"`
	URL     string `json:"url"`
}

// searchTrailer finds the most relevant official trailer for the movie.
func (c *youtubeClient) searchTrailer(ctx context.Context, title, year string) (Trailer, error) {
	if !c.isConfigured() {
		return Trailer{}, errors.New("youtube api key not configured")
	}

	query := title + " official trailer"
	if year != "" && year != "N/A" {
		query = title + " " + year + " official trailer"
	}

	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("part", "snippet")
	q.Set("type", "video")
	q.Set("maxResults", "1")
	q.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, youtubeBaseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return Trailer{}, err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return Trailer{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return Trailer{}, fmt.Errorf("youtube search failed: %s", resp.Status)
	}

	var payload youtubeSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Trailer{}, err
	}
	if len(payload.Items) == 0 || payload.Items[0].ID.VideoID == "" {
		return Trailer{}, fmt.Errorf("no trailer found for %q", title)
	}

	item := payload.Items[0]
	return Trailer{
		VideoID: item.ID.VideoID,
		Title:   item.Snippet.Title,
		URL:     "https://www.youtube.com/watch?v=" + item.ID.VideoID,
	}, nil
}
