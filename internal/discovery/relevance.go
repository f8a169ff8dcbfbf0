package discovery

import (
	"strings"

	"github.com/Clark-Hu/ai-tool-finder/internal/domain"
)

// synonyms expands a query token into related vocabulary.
var synonyms = map[string][]string{
	"ai":    {"artificial intelligence", "machine learning", "ml", "neural", "intelligent"},
	"video": {"video", "videos", "movie", "movies", "film", "films", "clip", "clips"},
	"maker": {"maker", "creator", "builder", "generator", "editor", "editing", "creation", "build"},
	"image": {"image", "images", "picture", "pictures", "photo", "photos", "graphic", "graphics"},
	"audio": {"audio", "sound", "music", "voice", "podcast"},
	"text":  {"text", "writing", "write", "content", "article", "blog"},
	"code":  {"code", "coding", "programming", "developer", "development"},
}

// intent maps query vocabulary to the category it implies.
type intent struct {
	words    []string
	category domain.Category
	// boost is added to the score when the intent is satisfied.
	boost int
}

var intents = []intent{
	{words: []string{"video", "movie", "film", "clip"}, category: domain.CategoryVideo, boost: 25},
	{words: []string{"image", "picture", "photo", "graphic"}, category: domain.CategoryImage, boost: 25},
	{words: []string{"audio", "sound", "music", "voice"}, category: domain.CategoryAudio},
	{words: []string{"text", "writing", "content", "article"}, category: domain.CategoryText},
	{words: []string{"code", "coding", "programming", "developer"}, category: domain.CategoryCode},
}

var (
	makerWords  = []string{"maker", "creator", "builder", "generator"}
	createWords = []string{"create", "generate", "make"}
)

// Match reports whether view is relevant to query and how strongly. The score
// only orders results within one request.
func Match(query string, view domain.ToolView) (bool, int) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true, 0
	}
	tokens := strings.Fields(q)

	f := newFields(view.Tool)

	if !matches(q, tokens, f, view.Tool) {
		return false, 0
	}
	return true, score(q, tokens, f, view.Tool)
}

type fields struct {
	name, desc, cats, slug, all string
}

func newFields(t domain.Tool) fields {
	f := fields{
		name: strings.ToLower(t.Name),
		desc: strings.ToLower(t.Description),
		cats: strings.ToLower(t.CategoryText()),
		slug: strings.ToLower(t.Slug),
	}
	f.all = f.name + " " + f.desc + " " + f.cats + " " + f.slug
	return f
}

func (f fields) contains(s string) bool {
	return strings.Contains(f.name, s) ||
		strings.Contains(f.desc, s) ||
		strings.Contains(f.cats, s) ||
		strings.Contains(f.slug, s) ||
		strings.Contains(f.all, s)
}

func matches(q string, tokens []string, f fields, t domain.Tool) bool {
	if f.contains(q) {
		return true
	}

	allFound, anyFound := true, false
	for _, tok := range tokens {
		if f.contains(tok) {
			anyFound = true
		} else {
			allFound = false
		}
	}
	if allFound || (anyFound && intentSatisfied(tokens, t)) {
		return true
	}

	// A single token, raw or expanded, is enough to keep the tool.
	for _, tok := range tokens {
		for _, word := range append([]string{tok}, synonyms[tok]...) {
			if strings.Contains(f.all, word) {
				return true
			}
		}
	}
	return false
}

func intentSatisfied(tokens []string, t domain.Tool) bool {
	for _, in := range intents {
		if anyIn(tokens, in.words) && t.HasCategory(in.category) {
			return true
		}
	}
	return false
}

func score(q string, tokens []string, f fields, t domain.Tool) int {
	s := 0

	switch {
	case f.name == q:
		s += 100
	case strings.HasPrefix(f.name, q):
		s += 50
	case strings.Contains(f.name, q):
		s += 30
	}

	switch {
	case f.slug == q:
		s += 90
	case strings.Contains(f.slug, q):
		s += 25
	}

	if strings.Contains(f.desc, q) {
		s += 15
	}
	if strings.Contains(f.cats, q) {
		s += 25
	}

	if allIn(tokens, f.name) {
		s += 40
	}
	if allIn(tokens, f.desc) {
		s += 20
	}
	if allIn(tokens, f.cats) {
		s += 30
	}

	// Token-level fuzzy containment only applies to multi-word queries.
	if len(tokens) > 1 {
		nameWords := strings.Fields(f.name)
		matched := 0
		for _, tok := range tokens {
			if fuzzyNameWord(tok, nameWords) ||
				strings.Contains(f.name, tok) ||
				strings.Contains(f.desc, tok) ||
				strings.Contains(f.cats, tok) {
				matched++
			}
		}
		s += matched * 15
		if matched == len(tokens) {
			s += 20
		}
	}

	for _, in := range intents {
		if in.boost > 0 && anyIn(tokens, in.words) && t.HasCategory(in.category) {
			s += in.boost
		}
	}

	if anyIn(tokens, makerWords) {
		for _, w := range createWords {
			if strings.Contains(f.desc, w) {
				s += 20
				break
			}
		}
	}
	return s
}

func fuzzyNameWord(tok string, nameWords []string) bool {
	for _, w := range nameWords {
		if strings.Contains(w, tok) || strings.Contains(tok, w) {
			return true
		}
	}
	return false
}

func allIn(tokens []string, s string) bool {
	for _, tok := range tokens {
		if !strings.Contains(s, tok) {
			return false
		}
	}
	return true
}

func anyIn(tokens, vocab []string) bool {
	for _, tok := range tokens {
		for _, v := range vocab {
			if tok == v {
				return true
			}
		}
	}
	return false
}
