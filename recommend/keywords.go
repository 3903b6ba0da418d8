package recommend

import (
	"strings"
	"sync"
	"unicode"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// KeywordExtractor pulls noun-like keywords out of mixed Japanese and English text.
type KeywordExtractor struct {
	t *tokenizer.Tokenizer
}

// NewKeywordExtractor loads the IPA dictionary. Loading is slow, so share one
// extractor per process.
func NewKeywordExtractor() (*KeywordExtractor, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &KeywordExtractor{t: t}, nil
}

var sharedExtractor = sync.OnceValues(NewKeywordExtractor)

// DefaultKeywordExtractor returns the process-wide extractor, or nil if the
// dictionary failed to load.
func DefaultKeywordExtractor() *KeywordExtractor {
	k, err := sharedExtractor()
	if err != nil {
		return nil
	}
	return k
}

// englishStopwords are skipped when extracting ASCII keywords.
var englishStopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true, "this": true,
	"was": true, "were": true, "are": true, "have": true, "has": true, "had": true,
	"but": true, "not": true, "you": true, "our": true, "they": true, "them": true,
	"from": true, "into": true, "about": true, "today": true, "yesterday": true,
	"very": true, "really": true, "some": true, "also": true, "just": true,
	"what": true, "when": true, "which": true, "will": true, "would": true,
	"could": true, "should": true, "been": true, "there": true, "their": true,
}

// japaneseNounKinds are the second-level IPA noun classes kept as keywords.
var japaneseNounKinds = map[string]bool{
	"一般":     true,
	"固有名詞":   true,
	"サ変接続":   true,
	"形容動詞語幹": true,
}

// Keywords returns up to limit distinct keywords in order of first appearance.
// Consecutive Japanese nouns are joined into one compound keyword.
func (k *KeywordExtractor) Keywords(text string, limit int) []string {
	if limit <= 0 {
		return nil
	}
	if k == nil || k.t == nil {
		return asciiKeywords(text, limit)
	}

	var out []string
	seen := make(map[string]bool)
	add := func(kw string) bool {
		if kw == "" || seen[kw] {
			return len(out) >= limit
		}
		seen[kw] = true
		out = append(out, kw)
		return len(out) >= limit
	}

	var compound strings.Builder
	flush := func() bool {
		kw := compound.String()
		compound.Reset()
		if len([]rune(kw)) < 2 {
			return false
		}
		return add(kw)
	}

	for _, tok := range k.t.Tokenize(text) {
		surface := strings.TrimSpace(tok.Surface)
		if surface == "" {
			if flush() {
				return out
			}
			continue
		}
		if isASCIIWord(surface) {
			if flush() {
				return out
			}
			if w := asciiKeyword(surface); w != "" && add(w) {
				return out
			}
			continue
		}
		pos := tok.POS()
		if len(pos) >= 2 && pos[0] == "名詞" && japaneseNounKinds[pos[1]] {
			compound.WriteString(surface)
			continue
		}
		if flush() {
			return out
		}
	}
	flush()
	return out
}

// asciiKeywords is the dictionary-free path: split on anything that is not a
// letter or digit.
func asciiKeywords(text string, limit int) []string {
	var out []string
	seen := make(map[string]bool)
	for _, f := range strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		w := f
		if isASCIIWord(f) {
			w = asciiKeyword(f)
		} else if len([]rune(f)) < 2 {
			w = ""
		}
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
		if len(out) >= limit {
			break
		}
	}
	return out
}

func asciiKeyword(word string) string {
	w := strings.ToLower(word)
	if len(w) < 3 || englishStopwords[w] {
		return ""
	}
	return w
}

func isASCIIWord(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '\'') {
			return false
		}
	}
	return s != ""
}

// containsJapanese reports whether text has kana or kanji.
func containsJapanese(text string) bool {
	for _, r := range text {
		if unicode.In(r, unicode.Hiragana, unicode.Katakana, unicode.Han) {
			return true
		}
	}
	return false
}
