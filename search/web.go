package search

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/c360studio/semcoach/recommend"
)

const (
	defaultWebURL = "https://www.googleapis.com/customsearch/v1"
	webReason     = "関連する記事をウェブ検索から取得しました。"

	// maxWebResults is the Custom Search API's per-request ceiling.
	maxWebResults = 10
)

// Web searches articles through Google Custom Search.
type Web struct {
	endpoint
	engineID string
}

// NewWeb creates the article backend. engineID is the search engine (cx) id.
func NewWeb(apiKey, engineID string, opts ...BackendOption) *Web {
	return &Web{
		endpoint: newEndpoint(apiKey, defaultWebURL, opts),
		engineID: strings.TrimSpace(engineID),
	}
}

func (w *Web) Source() recommend.Source { return recommend.SourceArticle }

func (w *Web) Configured() bool { return w.apiKey != "" && w.engineID != "" }

type webResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
}

func (w *Web) Search(ctx context.Context, query string, limit int) ([]recommend.Candidate, error) {
	params := url.Values{}
	params.Set("key", w.apiKey)
	params.Set("cx", w.engineID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(min(limit, maxWebResults)))

	var resp webResponse
	if err := w.getJSON(ctx, w.baseURL+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	out := make([]recommend.Candidate, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Link == "" {
			continue
		}
		out = append(out, newCandidate(recommend.SourceArticle,
			item.Title, "記事", item.Link, item.Snippet, webReason))
	}
	return out, nil
}
