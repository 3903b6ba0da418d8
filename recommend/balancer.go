package recommend

// primarySources is the round-robin order.
var primarySources = []Source{SourceVideo, SourceArticle, SourceBook}

// Balance picks up to Count candidates with distinct urls, cycling through
// video, article and book so that no source crowds out the others. Search
// links are used only once the primary sources are exhausted. Anything left
// unplaced (unknown sources) is taken last in input order.
func Balance(candidates []Candidate) []Candidate {
	pool := Dedupe(candidates)

	buckets := make(map[Source][]Candidate, len(primarySources)+1)
	for _, c := range pool {
		buckets[c.Source] = append(buckets[c.Source], c)
	}

	out := make([]Candidate, 0, Count)
	used := make(map[string]bool, Count)
	take := func(c Candidate) {
		out = append(out, c)
		used[c.URL] = true
	}

	for len(out) < Count {
		progressed := false
		for _, src := range primarySources {
			if len(out) == Count {
				break
			}
			if len(buckets[src]) == 0 {
				continue
			}
			take(buckets[src][0])
			buckets[src] = buckets[src][1:]
			progressed = true
		}
		if !progressed {
			break
		}
	}

	for _, c := range buckets[SourceSearch] {
		if len(out) == Count {
			break
		}
		take(c)
	}

	for _, c := range pool {
		if len(out) == Count {
			break
		}
		if !used[c.URL] {
			take(c)
		}
	}

	return out
}
