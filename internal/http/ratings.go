package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/Clark-Hu/ai-tool-finder/internal/domain"
	"github.com/Clark-Hu/ai-tool-finder/internal/rating"
)

type ratingRequest struct {
	ToolID           string  `json:"tool_id"`
	FingerprintHash  string  `json:"fingerprint_hash"`
	Stars            *int    `json:"stars"`
	GoodForCreators  bool    `json:"good_for_creators"`
	WorthMoney       bool    `json:"worth_money"`
	EasyToUse        bool    `json:"easy_to_use"`
	Accurate         bool    `json:"accurate"`
	Reliable         bool    `json:"reliable"`
	BeginnerFriendly bool    `json:"beginner_friendly"`
	Comment          *string `json:"comment"`
}

// ratingResponse never carries the fingerprint.
type ratingResponse struct {
	ID               string    `json:"id"`
	ToolID           string    `json:"tool_id"`
	Stars            int       `json:"stars"`
	GoodForCreators  bool      `json:"good_for_creators"`
	WorthMoney       bool      `json:"worth_money"`
	EasyToUse        bool      `json:"easy_to_use"`
	Accurate         bool      `json:"accurate"`
	Reliable         bool      `json:"reliable"`
	BeginnerFriendly bool      `json:"beginner_friendly"`
	Comment          *string   `json:"comment"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type ratingEnvelope struct {
	Rating *ratingResponse `json:"rating"`
}

type ratingListResponse struct {
	Ratings []ratingResponse `json:"ratings"`
}

func (s *Server) handleSubmitRating(w http.ResponseWriter, r *http.Request) {
	var req ratingRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	stored, outcome, err := s.ratings.Submit(r.Context(), req.submission())
	if err != nil {
		s.respondAppError(w, r, "submit rating", err)
		return
	}

	status := http.StatusOK
	if outcome == rating.OutcomeCreated {
		status = http.StatusCreated
	}
	resp := toRatingResponse(stored)
	s.respondJSON(w, status, ratingEnvelope{Rating: &resp})
}

// handleGetRatings returns the caller's own rating when a fingerprint is given
// and the newest ratings for the tool otherwise.
func (s *Server) handleGetRatings(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	toolID := strings.TrimSpace(query.Get("tool_id"))

	if fp := strings.TrimSpace(query.Get("fingerprint_hash")); fp != "" {
		mine, err := s.ratings.Mine(r.Context(), toolID, fp)
		if err != nil {
			s.respondAppError(w, r, "get rating", err)
			return
		}
		var env ratingEnvelope
		if mine != nil {
			resp := toRatingResponse(*mine)
			env.Rating = &resp
		}
		s.respondJSON(w, http.StatusOK, env)
		return
	}

	recent, err := s.ratings.Recent(r.Context(), toolID)
	if err != nil {
		s.respondAppError(w, r, "list ratings", err)
		return
	}
	out := make([]ratingResponse, 0, len(recent))
	for _, rt := range recent {
		out = append(out, toRatingResponse(rt))
	}
	s.respondJSON(w, http.StatusOK, ratingListResponse{Ratings: out})
}

func (req ratingRequest) submission() rating.Submission {
	var tags domain.TagSet
	tags[domain.TagGoodForCreators] = req.GoodForCreators
	tags[domain.TagWorthMoney] = req.WorthMoney
	tags[domain.TagEasyToUse] = req.EasyToUse
	tags[domain.TagAccurate] = req.Accurate
	tags[domain.TagReliable] = req.Reliable
	tags[domain.TagBeginnerFriendly] = req.BeginnerFriendly
	return rating.Submission{
		ToolID:          req.ToolID,
		FingerprintHash: req.FingerprintHash,
		Stars:           req.Stars,
		Tags:            tags,
		Comment:         req.Comment,
	}
}

func toRatingResponse(r domain.Rating) ratingResponse {
	return ratingResponse{
		ID:               r.ID,
		ToolID:           r.ToolID,
		Stars:            r.Stars,
		GoodForCreators:  r.Tags[domain.TagGoodForCreators],
		WorthMoney:       r.Tags[domain.TagWorthMoney],
		EasyToUse:        r.Tags[domain.TagEasyToUse],
		Accurate:         r.Tags[domain.TagAccurate],
		Reliable:         r.Tags[domain.TagReliable],
		BeginnerFriendly: r.Tags[domain.TagBeginnerFriendly],
		Comment:          r.Comment,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}
