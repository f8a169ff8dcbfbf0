// Package discovery materializes the tool catalogue, joins it with rating
// statistics and answers search, browse and compare queries over it.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Clark-Hu/ai-tool-finder/internal/apperr"
	"github.com/Clark-Hu/ai-tool-finder/internal/domain"
	"github.com/Clark-Hu/ai-tool-finder/internal/repository"
)

// MaxCompare is the largest number of slugs a comparison accepts.
const MaxCompare = 3

// ToolStore is the entity store the service reads from.
type ToolStore interface {
	ToolPager
	GetBySlug(ctx context.Context, slug string) (domain.Tool, error)
	ListBySlugs(ctx context.Context, slugs []string) ([]domain.Tool, error)
}

// RatingSource reads the rating log. A nil toolIDs reads every rating.
type RatingSource interface {
	ListSamples(ctx context.Context, toolIDs []string) ([]domain.RatingSample, error)
}

// Query is one discovery request.
type Query struct {
	Text   string
	Filter Filter
	Sort   SortOrder
	Page   int
	Limit  int
}

// Result is one page of ranked tools.
type Result struct {
	Tools   []domain.ToolView
	Page    int
	Limit   int
	HasMore bool
	// Total counts the tools that survived matching and filtering.
	Total int
	// Degraded is set when the catalogue could only be partially loaded.
	Degraded bool
}

// Service answers discovery queries. It holds no per-request state.
type Service struct {
	tools   ToolStore
	ratings RatingSource
	opts    LoaderOptions
	logger  *zap.Logger
}

// NewService wires a Service over its stores.
func NewService(tools ToolStore, ratings RatingSource, opts LoaderOptions, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		tools:   tools,
		ratings: ratings,
		opts:    opts,
		logger:  logger.Named("discovery"),
	}
}

// Discover loads the catalogue and the rating log concurrently, then ranks and
// paginates the joined views.
func (s *Service) Discover(ctx context.Context, q Query) (Result, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}

	var (
		loaded  LoadResult
		samples []domain.RatingSample
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		loaded, err = LoadAll(gctx, s.tools, s.opts, s.logger)
		return err
	})
	g.Go(func() error {
		samples = s.fetchSamples(gctx, nil)
		return nil
	})
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		return Result{}, err
	}

	ids := make(map[string]struct{}, len(loaded.Tools))
	for _, t := range loaded.Tools {
		ids[t.ID] = struct{}{}
	}
	views := mergeViews(loaded.Tools, AggregateStats(samples, ids))
	ranked := Rank(views, q.Text, q.Filter, q.Sort)

	res := Result{
		Tools:    Paginate(ranked, q.Page, q.Limit),
		Page:     q.Page,
		Limit:    q.Limit,
		HasMore:  HasMore(len(ranked), q.Page, q.Limit),
		Total:    len(ranked),
		Degraded: loaded.Degraded,
	}
	s.logger.Debug("discovery query served",
		zap.String("query", q.Text),
		zap.String("sort", string(q.Sort)),
		zap.Int("loaded", len(loaded.Tools)),
		zap.Int("matched", len(ranked)),
		zap.Int("returned", len(res.Tools)),
		zap.Bool("degraded", loaded.Degraded))
	return res, nil
}

// Get returns a single tool with its statistics.
func (s *Service) Get(ctx context.Context, slug string) (domain.ToolView, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return domain.ToolView{}, apperr.Validation("slug is required")
	}

	tool, err := callWithTimeout(ctx, s.opts.CallTimeout, func(c context.Context) (domain.Tool, error) {
		return s.tools.GetBySlug(c, slug)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ToolView{}, apperr.NotFound(fmt.Sprintf("tool %q not found", slug))
		}
		return domain.ToolView{}, apperr.Unavailable("load tool", err)
	}

	samples := s.fetchSamples(ctx, []string{tool.ID})
	stats := AggregateStats(samples, map[string]struct{}{tool.ID: {}})
	return domain.ToolView{Tool: tool, Stats: stats[tool.ID]}, nil
}

// Compare returns the tools named by slugs in input order, skipping slugs that
// do not exist. Statistics are computed over the compared tools only.
func (s *Service) Compare(ctx context.Context, slugs []string) ([]domain.ToolView, error) {
	wanted := make([]string, 0, len(slugs))
	seen := make(map[string]struct{}, len(slugs))
	for _, raw := range slugs {
		slug := strings.TrimSpace(raw)
		if slug == "" {
			continue
		}
		if _, dup := seen[slug]; dup {
			continue
		}
		seen[slug] = struct{}{}
		wanted = append(wanted, slug)
	}
	if len(wanted) == 0 {
		return nil, apperr.Validation("at least one slug is required")
	}
	if len(wanted) > MaxCompare {
		return nil, apperr.Validationf("at most %d slugs can be compared", MaxCompare)
	}

	tools, err := callWithTimeout(ctx, s.opts.CallTimeout, func(c context.Context) ([]domain.Tool, error) {
		return s.tools.ListBySlugs(c, wanted)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apperr.Unavailable("load compared tools", err)
	}

	bySlug := make(map[string]domain.Tool, len(tools))
	ids := make([]string, 0, len(tools))
	only := make(map[string]struct{}, len(tools))
	for _, t := range tools {
		bySlug[t.Slug] = t
		ids = append(ids, t.ID)
		only[t.ID] = struct{}{}
	}

	stats := AggregateStats(s.fetchSamples(ctx, ids), only)

	out := make([]domain.ToolView, 0, len(wanted))
	for _, slug := range wanted {
		t, ok := bySlug[slug]
		if !ok {
			s.logger.Debug("compare slug not found", zap.String("slug", slug))
			continue
		}
		out = append(out, domain.ToolView{Tool: t, Stats: stats[t.ID]})
	}
	return out, nil
}

// fetchSamples reads the rating log. A failure degrades to no ratings.
func (s *Service) fetchSamples(ctx context.Context, toolIDs []string) []domain.RatingSample {
	samples, err := callWithTimeout(ctx, s.opts.CallTimeout, func(c context.Context) ([]domain.RatingSample, error) {
		return s.ratings.ListSamples(c, toolIDs)
	})
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("rating log unavailable, serving zero stats", zap.Error(err))
		}
		return nil
	}
	return samples
}
