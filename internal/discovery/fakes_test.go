package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Clark-Hu/ai-tool-finder/internal/domain"
	"github.com/Clark-Hu/ai-tool-finder/internal/repository"
)

var errStore = errors.New("store unavailable")

// fakeTools serves tools from memory the way the Postgres repository does.
type fakeTools struct {
	mu       sync.Mutex
	tools    []domain.Tool
	countErr error
	// failPage makes the n-th Page call (zero based) fail; -1 disables it.
	failPage int
	// endless makes Page always return a full window.
	endless bool
	// block makes Page wait for its context to end.
	block  bool
	limits []int
}

func newFakeTools(tools []domain.Tool) *fakeTools {
	return &fakeTools{tools: tools, failPage: -1}
}

func (f *fakeTools) Count(ctx context.Context) (int64, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return int64(len(f.tools)), nil
}

func (f *fakeTools) Page(ctx context.Context, offset, limit int) ([]domain.Tool, error) {
	f.mu.Lock()
	call := len(f.limits)
	f.limits = append(f.limits, limit)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if call == f.failPage {
		return nil, errStore
	}
	if f.endless {
		out := make([]domain.Tool, limit)
		for i := range out {
			out[i] = makeTool(fmt.Sprintf("gen-%d", offset+i), time.Unix(int64(offset+i), 0))
		}
		return out, nil
	}
	if offset >= len(f.tools) {
		return []domain.Tool{}, nil
	}
	end := offset + limit
	if end > len(f.tools) {
		end = len(f.tools)
	}
	return append([]domain.Tool(nil), f.tools[offset:end]...), nil
}

func (f *fakeTools) GetBySlug(ctx context.Context, slug string) (domain.Tool, error) {
	for _, t := range f.tools {
		if t.Slug == slug {
			return t, nil
		}
	}
	return domain.Tool{}, repository.ErrNotFound
}

func (f *fakeTools) ListBySlugs(ctx context.Context, slugs []string) ([]domain.Tool, error) {
	want := make(map[string]bool, len(slugs))
	for _, s := range slugs {
		want[s] = true
	}
	var out []domain.Tool
	// Reverse order so callers cannot rely on store order.
	for i := len(f.tools) - 1; i >= 0; i-- {
		if want[f.tools[i].Slug] {
			out = append(out, f.tools[i])
		}
	}
	return out, nil
}

// fakeRatings serves rating samples from memory.
type fakeRatings struct {
	samples []domain.RatingSample
	err     error
	calls   [][]string
}

func (f *fakeRatings) ListSamples(ctx context.Context, toolIDs []string) ([]domain.RatingSample, error) {
	f.calls = append(f.calls, toolIDs)
	if f.err != nil {
		return nil, f.err
	}
	if toolIDs == nil {
		return f.samples, nil
	}
	want := make(map[string]bool, len(toolIDs))
	for _, id := range toolIDs {
		want[id] = true
	}
	var out []domain.RatingSample
	for _, s := range f.samples {
		if want[s.ToolID] {
			out = append(out, s)
		}
	}
	return out, nil
}

func makeTool(slug string, createdAt time.Time, cats ...domain.Category) domain.Tool {
	if len(cats) == 0 {
		cats = []domain.Category{domain.CategoryProductivity}
	}
	return domain.Tool{
		ID:          "id-" + slug,
		Slug:        slug,
		Name:        slug,
		Description: "A tool called " + slug,
		URL:         "https://" + slug + ".example",
		Categories:  cats,
		PricingType: domain.PricingFree,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

// newestFirst returns n tools with distinct created_at, newest first.
func newestFirst(n int) []domain.Tool {
	base := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	tools := make([]domain.Tool, n)
	for i := 0; i < n; i++ {
		tools[i] = makeTool(fmt.Sprintf("tool-%02d", i), base.Add(-time.Duration(i)*time.Hour))
	}
	return tools
}

func sample(toolID string, stars int, tags ...domain.Tag) domain.RatingSample {
	s := domain.RatingSample{ToolID: toolID, Stars: stars}
	for _, t := range tags {
		s.Tags[t] = true
	}
	return s
}

func view(slug string, avg float64, total int) domain.ToolView {
	return domain.ToolView{
		Tool:  makeTool(slug, time.Time{}),
		Stats: domain.Stats{AvgRating: avg, TotalRatings: total},
	}
}

func slugs(views []domain.ToolView) []string {
	out := make([]string, len(views))
	for i, v := range views {
		out[i] = v.Slug
	}
	return out
}
