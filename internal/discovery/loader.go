package discovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Clark-Hu/ai-tool-finder/internal/apperr"
	"github.com/Clark-Hu/ai-tool-finder/internal/domain"
)

// ToolPager is an entity store that serves tools in bounded windows ordered
// by created_at descending.
type ToolPager interface {
	Count(ctx context.Context) (int64, error)
	Page(ctx context.Context, offset, limit int) ([]domain.Tool, error)
}

// LoaderOptions bounds a full load.
type LoaderOptions struct {
	// BatchSize is the window requested per page.
	BatchSize int
	// MaxPages caps iterations when the store never reports an end.
	MaxPages int
	// CallTimeout bounds each Count and Page call. Zero means no extra bound.
	CallTimeout time.Duration
}

// DefaultLoaderOptions matches the store's 1000-row window.
func DefaultLoaderOptions() LoaderOptions {
	return LoaderOptions{BatchSize: 1000, MaxPages: 100, CallTimeout: 5 * time.Second}
}

// LoadResult is the accumulated entity set of one load.
type LoadResult struct {
	Tools []domain.Tool
	// Total is the count the store reported, nil when counting failed.
	Total *int64
	Pages int
	// Degraded is set when the load stopped early and Tools may be incomplete.
	Degraded bool
}

// LoadAll pulls every tool from src in store order. A failing page ends the
// loop with whatever was accumulated; only a load that obtained nothing is an
// error. Cancelling ctx aborts with ctx.Err().
func LoadAll(ctx context.Context, src ToolPager, opts LoaderOptions, logger *zap.Logger) (LoadResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultLoaderOptions().BatchSize
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultLoaderOptions().MaxPages
	}

	var res LoadResult

	total, err := callWithTimeout(ctx, opts.CallTimeout, src.Count)
	switch {
	case err != nil && ctx.Err() != nil:
		return LoadResult{}, ctx.Err()
	case err != nil:
		logger.Warn("tool count unavailable, loading until an empty page", zap.Error(err))
	default:
		res.Total = &total
	}

	if res.Total != nil && *res.Total == 0 {
		res.Tools = []domain.Tool{}
		return res, nil
	}

	var lastErr error
	offset := 0
	for {
		if res.Pages >= opts.MaxPages {
			res.Degraded = true
			logger.Warn("tool load hit page cap",
				zap.Int("max_pages", opts.MaxPages),
				zap.Int("loaded", len(res.Tools)))
			break
		}

		limit := opts.BatchSize
		if res.Total != nil {
			if remaining := int(*res.Total) - offset; remaining < limit {
				limit = remaining
			}
		}

		page, err := callWithTimeout(ctx, opts.CallTimeout, func(c context.Context) ([]domain.Tool, error) {
			return src.Page(c, offset, limit)
		})
		if err != nil {
			if ctx.Err() != nil {
				return LoadResult{}, ctx.Err()
			}
			lastErr = err
			res.Degraded = true
			logger.Warn("tool page failed, continuing with partial set",
				zap.Int("offset", offset),
				zap.Int("loaded", len(res.Tools)),
				zap.Error(err))
			break
		}
		res.Pages++
		if len(page) == 0 {
			break
		}

		res.Tools = append(res.Tools, page...)
		offset += len(page)

		logger.Debug("tool page loaded",
			zap.Int("page", res.Pages),
			zap.Int("rows", len(page)),
			zap.Int("loaded", len(res.Tools)))

		if res.Total != nil && int64(len(res.Tools)) >= *res.Total {
			break
		}
	}

	if len(res.Tools) == 0 && res.Degraded {
		if lastErr == nil {
			lastErr = errors.New("page cap reached without rows")
		}
		return res, apperr.Unavailable("load tools", lastErr)
	}
	if res.Tools == nil {
		res.Tools = []domain.Tool{}
	}
	return res, nil
}

// callWithTimeout runs fn under a child context bounded by d.
func callWithTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}
	callCtx := ctx
	if d > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	v, err := fn(callCtx)
	if err != nil && callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		return v, fmt.Errorf("store call timed out after %s: %w", d, err)
	}
	return v, err
}
