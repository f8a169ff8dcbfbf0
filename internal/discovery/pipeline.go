package discovery

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Clark-Hu/ai-tool-finder/internal/domain"
)

// SortOrder selects how the filtered set is ordered.
type SortOrder string

const (
	SortPopular SortOrder = "popular"
	SortRating  SortOrder = "rating"
	SortReviews SortOrder = "reviews"
	SortNewest  SortOrder = "newest"
)

// SortOrders lists every accepted sort value.
var SortOrders = []SortOrder{SortPopular, SortRating, SortReviews, SortNewest}

// ParseSortOrder validates a raw sort value. Empty input yields "".
func ParseSortOrder(raw string) (SortOrder, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return "", nil
	}
	for _, s := range SortOrders {
		if SortOrder(raw) == s {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown sort %q", raw)
}

// Filter holds the structural predicates of a discovery query. Zero values
// disable the predicate.
type Filter struct {
	Category domain.Category
	Pricing  []domain.PricingType
}

func (f Filter) keep(v domain.ToolView) bool {
	if f.Category != "" && !v.HasCategory(f.Category) {
		return false
	}
	if len(f.Pricing) > 0 {
		for _, p := range f.Pricing {
			if v.PricingType == p {
				return true
			}
		}
		return false
	}
	return true
}

// Apply returns the views satisfying every predicate, in input order.
func (f Filter) Apply(views []domain.ToolView) []domain.ToolView {
	out := make([]domain.ToolView, 0, len(views))
	for _, v := range views {
		if f.keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// Rank runs relevance, filtering and ordering over views, which must be in
// loader order. An empty sort means "popular" without a query and relevance
// order with one.
func Rank(views []domain.ToolView, query string, filter Filter, order SortOrder) []domain.ToolView {
	if strings.TrimSpace(query) != "" {
		views = byRelevance(views, query)
	}
	views = filter.Apply(views)

	if order == "" {
		if strings.TrimSpace(query) != "" {
			return views
		}
		order = SortPopular
	}
	SortViews(views, order)
	return views
}

// SortViews orders views in place. Equal keys keep their relative order.
func SortViews(views []domain.ToolView, order SortOrder) {
	var less func(a, b domain.ToolView) bool
	switch order {
	case SortRating:
		less = func(a, b domain.ToolView) bool {
			if a.AvgRating != b.AvgRating {
				return a.AvgRating > b.AvgRating
			}
			return a.TotalRatings > b.TotalRatings
		}
	case SortReviews:
		less = func(a, b domain.ToolView) bool {
			if a.TotalRatings != b.TotalRatings {
				return a.TotalRatings > b.TotalRatings
			}
			return a.AvgRating > b.AvgRating
		}
	case SortNewest:
		less = func(a, b domain.ToolView) bool {
			return a.CreatedAt.After(b.CreatedAt)
		}
	default:
		less = popularLess
	}
	sort.SliceStable(views, func(i, j int) bool {
		return less(views[i], views[j])
	})
}

func popularLess(a, b domain.ToolView) bool {
	pa, pb := a.PopularityScore(), b.PopularityScore()
	if pa != pb {
		return pa > pb
	}
	return a.TotalRatings > b.TotalRatings
}

type scored struct {
	view  domain.ToolView
	score int
}

// byRelevance keeps matching views ordered by descending score. Equal scores
// fall back to the popular order.
func byRelevance(views []domain.ToolView, query string) []domain.ToolView {
	hits := make([]scored, 0, len(views))
	for _, v := range views {
		if ok, s := Match(query, v); ok {
			hits = append(hits, scored{view: v, score: s})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return popularLess(hits[i].view, hits[j].view)
	})

	out := make([]domain.ToolView, len(hits))
	for i, h := range hits {
		out[i] = h.view
	}
	return out
}
