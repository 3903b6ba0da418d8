package search

import (
	"context"
	"net/url"
	"strconv"

	"github.com/c360studio/semcoach/recommend"
)

const (
	defaultYouTubeURL = "https://www.googleapis.com/youtube/v3"
	youTubeWatchURL   = "https://www.youtube.com/watch?v="
	youTubeReason     = "課題に近い動画をYouTubeから取得しました。"
)

// YouTube searches videos through the YouTube Data API.
type YouTube struct {
	endpoint
}

// NewYouTube creates the video backend.
func NewYouTube(apiKey string, opts ...BackendOption) *YouTube {
	return &YouTube{endpoint: newEndpoint(apiKey, defaultYouTubeURL, opts)}
}

func (y *YouTube) Source() recommend.Source { return recommend.SourceVideo }

func (y *YouTube) Configured() bool { return y.apiKey != "" }

type youTubeResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"snippet"`
	} `json:"items"`
}

func (y *YouTube) Search(ctx context.Context, query string, limit int) ([]recommend.Candidate, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("maxResults", strconv.Itoa(limit))
	params.Set("q", query)
	params.Set("key", y.apiKey)

	var resp youTubeResponse
	if err := y.getJSON(ctx, y.baseURL+"/search?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	out := make([]recommend.Candidate, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.ID.VideoID == "" {
			continue
		}
		out = append(out, newCandidate(recommend.SourceVideo,
			item.Snippet.Title, "YouTube動画",
			youTubeWatchURL+url.QueryEscape(item.ID.VideoID),
			item.Snippet.Description, youTubeReason))
	}
	return out, nil
}
