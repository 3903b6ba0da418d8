package recommend

import (
	"net/url"
)

const (
	searchLinkTitlePrefix = "検索候補: "
	searchLinkDescription = "関連情報を探すための検索リンクです。"
	searchLinkReason      = "関連する検索結果を直接確認できるよう検索リンクを提示します。"
	searchBaseURL         = "https://www.google.com/search?q="
)

// SearchLinks synthesizes Count search-engine links from queries, padding
// with filler queries when fewer than Count distinct queries are given.
func SearchLinks(queries []string) []Candidate {
	qs := padQueries(nil, queries)
	qs = padQueries(qs, fillerQueries)

	links := make([]Candidate, 0, len(qs))
	for _, q := range qs {
		u := searchBaseURL + url.QueryEscape(q)
		links = append(links, Candidate{
			ID:          CandidateID(u),
			Title:       searchLinkTitlePrefix + q,
			URL:         u,
			Source:      SourceSearch,
			Description: searchLinkDescription,
			Reason:      searchLinkReason,
		})
	}
	return links
}
