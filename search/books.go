package search

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/c360studio/semcoach/recommend"
)

const (
	defaultBooksURL = "https://www.googleapis.com/books/v1"
	booksReason     = "課題に関連する書籍情報を取得しました。"
)

// Books searches Google Books.
type Books struct {
	endpoint
}

// NewBooks creates the book backend.
func NewBooks(apiKey string, opts ...BackendOption) *Books {
	return &Books{endpoint: newEndpoint(apiKey, defaultBooksURL, opts)}
}

func (b *Books) Source() recommend.Source { return recommend.SourceBook }

func (b *Books) Configured() bool { return b.apiKey != "" }

type booksResponse struct {
	Items []struct {
		ID         string `json:"id"`
		VolumeInfo struct {
			Title       string   `json:"title"`
			Subtitle    string   `json:"subtitle"`
			Authors     []string `json:"authors"`
			Description string   `json:"description"`
			InfoLink    string   `json:"infoLink"`
			PreviewLink string   `json:"previewLink"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

func (b *Books) Search(ctx context.Context, query string, limit int) ([]recommend.Candidate, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(limit))
	params.Set("key", b.apiKey)

	var resp booksResponse
	if err := b.getJSON(ctx, b.baseURL+"/volumes?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	out := make([]recommend.Candidate, 0, len(resp.Items))
	for _, item := range resp.Items {
		info := item.VolumeInfo
		link := info.InfoLink
		if link == "" {
			link = info.PreviewLink
		}
		if link == "" {
			continue
		}

		title := info.Title
		if info.Subtitle != "" {
			title += ": " + info.Subtitle
		}
		desc := info.Description
		if len(info.Authors) > 0 {
			authors := strings.Join(info.Authors, ", ")
			if desc == "" {
				desc = authors
			} else {
				desc = authors + " / " + desc
			}
		}
		out = append(out, newCandidate(recommend.SourceBook, title, "書籍", link, desc, booksReason))
	}
	return out, nil
}
