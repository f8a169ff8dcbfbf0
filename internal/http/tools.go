package httpserver

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Clark-Hu/ai-tool-finder/internal/apperr"
	"github.com/Clark-Hu/ai-tool-finder/internal/discovery"
	"github.com/Clark-Hu/ai-tool-finder/internal/domain"
)

type toolResponse struct {
	ID            string    `json:"id"`
	Slug          string    `json:"slug"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	URL           string    `json:"url"`
	LogoURL       *string   `json:"logo_url"`
	Categories    []string  `json:"categories"`
	PricingType   string    `json:"pricing_type"`
	StartingPrice *float64  `json:"starting_price"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	TotalRatings int     `json:"total_ratings"`
	AvgRating    float64 `json:"avg_rating"`

	GoodForCreatorsPct    float64 `json:"good_for_creators_pct"`
	WorthMoneyPct         float64 `json:"worth_money_pct"`
	EasyToUsePct          float64 `json:"easy_to_use_pct"`
	AccuratePct           float64 `json:"accurate_pct"`
	ReliablePct           float64 `json:"reliable_pct"`
	BeginnerFriendlyPct   float64 `json:"beginner_friendly_pct"`
	GoodForCreatorsCount  int     `json:"good_for_creators_count"`
	WorthMoneyCount       int     `json:"worth_money_count"`
	EasyToUseCount        int     `json:"easy_to_use_count"`
	AccurateCount         int     `json:"accurate_count"`
	ReliableCount         int     `json:"reliable_count"`
	BeginnerFriendlyCount int     `json:"beginner_friendly_count"`
}

type toolListResponse struct {
	Tools    []toolResponse `json:"tools"`
	Page     int            `json:"page"`
	Limit    int            `json:"limit"`
	Total    int            `json:"total"`
	HasMore  bool           `json:"has_more"`
	Degraded bool           `json:"degraded"`
}

type toolDetailResponse struct {
	Tool toolResponse `json:"tool"`
}

type compareResponse struct {
	Tools []toolResponse `json:"tools"`
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	q, err := buildDiscoverQuery(r.URL.Query(), s.cfg.DefaultPageLimit, s.cfg.MaxPageLimit)
	if err != nil {
		s.respondAppError(w, r, "list tools", err)
		return
	}

	res, err := s.tools.Discover(r.Context(), q)
	if err != nil {
		s.respondAppError(w, r, "list tools", err)
		return
	}
	if res.Degraded {
		s.logger.Warn("served partial catalogue", zap.Int("tools", res.Total))
	}

	s.respondJSON(w, http.StatusOK, toolListResponse{
		Tools:    toToolResponses(res.Tools),
		Page:     res.Page,
		Limit:    res.Limit,
		Total:    res.Total,
		HasMore:  res.HasMore,
		Degraded: res.Degraded,
	})
}

func (s *Server) handleGetTool(w http.ResponseWriter, r *http.Request) {
	slug, err := url.PathUnescape(chi.URLParam(r, "slug"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, apperr.CodeValidation, "invalid slug parameter", nil)
		return
	}

	v, err := s.tools.Get(r.Context(), strings.TrimSpace(slug))
	if err != nil {
		s.respondAppError(w, r, "get tool", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toolDetailResponse{Tool: toToolResponse(v)})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	slugs := splitList(r.URL.Query()["slugs"])

	views, err := s.tools.Compare(r.Context(), slugs)
	if err != nil {
		s.respondAppError(w, r, "compare tools", err)
		return
	}
	s.respondJSON(w, http.StatusOK, compareResponse{Tools: toToolResponses(views)})
}

// buildDiscoverQuery parses the list query string. limit is capped at maxLimit.
func buildDiscoverQuery(query url.Values, defaultLimit, maxLimit int) (discovery.Query, error) {
	q := discovery.Query{
		Text:  strings.TrimSpace(query.Get("query")),
		Page:  1,
		Limit: defaultLimit,
	}
	if q.Text == "" {
		q.Text = strings.TrimSpace(query.Get("q"))
	}

	if val := strings.TrimSpace(query.Get("page")); val != "" {
		page, err := strconv.Atoi(val)
		if err != nil || page < 1 {
			return q, apperr.Validation("page must be a positive integer")
		}
		q.Page = page
	}
	if val := strings.TrimSpace(query.Get("limit")); val != "" {
		limit, err := strconv.Atoi(val)
		if err != nil || limit < 1 {
			return q, apperr.Validation("limit must be a positive integer")
		}
		q.Limit = limit
	}
	if maxLimit > 0 && q.Limit > maxLimit {
		q.Limit = maxLimit
	}

	if val := strings.TrimSpace(query.Get("category")); val != "" && !strings.EqualFold(val, "all") {
		cat, ok := parseCategory(val)
		if !ok {
			return q, apperr.Validationf("unknown category %q", val)
		}
		q.Filter.Category = cat
	}
	for _, raw := range splitList(query["pricing"]) {
		p, ok := parsePricing(raw)
		if !ok {
			return q, apperr.Validationf("unknown pricing type %q", raw)
		}
		q.Filter.Pricing = append(q.Filter.Pricing, p)
	}

	order, err := discovery.ParseSortOrder(query.Get("sort"))
	if err != nil {
		return q, apperr.Validation(err.Error())
	}
	q.Sort = order
	return q, nil
}

// splitList flattens repeated and comma-separated values, dropping blanks.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseCategory(raw string) (domain.Category, bool) {
	for _, c := range domain.Categories {
		if strings.EqualFold(string(c), raw) {
			return c, true
		}
	}
	return "", false
}

func parsePricing(raw string) (domain.PricingType, bool) {
	for _, p := range domain.PricingTypes {
		if strings.EqualFold(string(p), raw) {
			return p, true
		}
	}
	return "", false
}

func toToolResponses(views []domain.ToolView) []toolResponse {
	out := make([]toolResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toToolResponse(v))
	}
	return out
}

func toToolResponse(v domain.ToolView) toolResponse {
	cats := make([]string, len(v.Categories))
	for i, c := range v.Categories {
		cats[i] = string(c)
	}
	return toolResponse{
		ID:            v.ID,
		Slug:          v.Slug,
		Name:          v.Name,
		Description:   v.Description,
		URL:           v.URL,
		LogoURL:       v.LogoURL,
		Categories:    cats,
		PricingType:   string(v.PricingType),
		StartingPrice: v.StartingPrice,
		CreatedAt:     v.CreatedAt,
		UpdatedAt:     v.UpdatedAt,

		TotalRatings: v.TotalRatings,
		AvgRating:    v.AvgRating,

		GoodForCreatorsPct:    v.Pct(domain.TagGoodForCreators),
		WorthMoneyPct:         v.Pct(domain.TagWorthMoney),
		EasyToUsePct:          v.Pct(domain.TagEasyToUse),
		AccuratePct:           v.Pct(domain.TagAccurate),
		ReliablePct:           v.Pct(domain.TagReliable),
		BeginnerFriendlyPct:   v.Pct(domain.TagBeginnerFriendly),
		GoodForCreatorsCount:  v.Count(domain.TagGoodForCreators),
		WorthMoneyCount:       v.Count(domain.TagWorthMoney),
		EasyToUseCount:        v.Count(domain.TagEasyToUse),
		AccurateCount:         v.Count(domain.TagAccurate),
		ReliableCount:         v.Count(domain.TagReliable),
		BeginnerFriendlyCount: v.Count(domain.TagBeginnerFriendly),
	}
}
