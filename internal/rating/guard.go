// Package rating enforces one rating per (tool, anonymous fingerprint) pair.
package rating

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Clark-Hu/ai-tool-finder/internal/apperr"
	"github.com/Clark-Hu/ai-tool-finder/internal/domain"
	"github.com/Clark-Hu/ai-tool-finder/internal/repository"
	"github.com/Clark-Hu/ai-tool-finder/internal/validation"
)

// RecentLimit is how many ratings Recent returns.
const RecentLimit = 50

// Outcome tells the caller whether a submission created or replaced a rating.
type Outcome int

const (
	OutcomeCreated Outcome = iota + 1
	OutcomeUpdated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	default:
		return "unknown"
	}
}

// Store is the rating log as seen by the guard.
type Store interface {
	InTx(ctx context.Context, fn func(repository.RatingWriter) error) error
	GetByIdentity(ctx context.Context, toolID, fingerprint string) (domain.Rating, error)
	ListRecent(ctx context.Context, toolID string, limit int) ([]domain.Rating, error)
}

// Submission is one rating as sent by a client. Omitted tags are false.
type Submission struct {
	ToolID          string        `json:"tool_id" validate:"required,uuid"`
	FingerprintHash string        `json:"fingerprint_hash" validate:"required,max=256"`
	Stars           *int          `json:"stars" validate:"required,min=1,max=5"`
	Tags            domain.TagSet `json:"-"`
	Comment         *string       `json:"comment"`
}

// Options tunes store access.
type Options struct {
	// CallTimeout bounds each store call: the whole write transaction for
	// Submit, the single read for Mine and Recent. Zero means no extra bound.
	CallTimeout time.Duration
}

// DefaultOptions matches the discovery loader's per-call bound.
func DefaultOptions() Options {
	return Options{CallTimeout: 5 * time.Second}
}

// Guard validates submissions and writes them through the rating log.
type Guard struct {
	store     Store
	opts      Options
	validator *validation.Validator
	logger    *zap.Logger
}

// NewGuard constructs a Guard.
func NewGuard(store Store, opts Options, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{
		store:     store,
		opts:      opts,
		validator: validation.New(),
		logger:    logger.Named("rating"),
	}
}

// bound derives the context for one store call.
func (g *Guard) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.opts.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.opts.CallTimeout)
}

// storeTimedOut reports whether err comes from the call bound rather than
// from the caller giving up. Drivers do not always wrap the context error,
// so the call context is consulted too.
func storeTimedOut(ctx, callCtx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded)
}

// Submit stores s as the fingerprint's only rating for the tool, replacing
// the content of an existing one in place.
func (g *Guard) Submit(ctx context.Context, s Submission) (domain.Rating, Outcome, error) {
	s.ToolID = strings.TrimSpace(s.ToolID)
	s.FingerprintHash = strings.TrimSpace(s.FingerprintHash)
	if err := g.validator.Validate(s); err != nil {
		return domain.Rating{}, 0, err
	}

	want := domain.Rating{
		ToolID:          s.ToolID,
		Stars:           *s.Stars,
		Tags:            s.Tags,
		Comment:         normalizeComment(s.Comment),
		FingerprintHash: s.FingerprintHash,
	}

	var (
		stored  domain.Rating
		outcome Outcome
	)
	txCtx, cancel := g.bound(ctx)
	defer cancel()
	err := g.store.InTx(txCtx, func(w repository.RatingWriter) error {
		exists, err := w.ToolExists(txCtx, want.ToolID)
		if err != nil {
			return err
		}
		if !exists {
			return apperr.NotFound(fmt.Sprintf("tool %s not found", want.ToolID))
		}

		stored, outcome, err = g.upsert(txCtx, w, want)
		return err
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.Rating{}, 0, ctxErr
		}
		if storeTimedOut(ctx, txCtx, err) {
			g.logger.Warn("rating write timed out",
				zap.String("tool_id", want.ToolID),
				zap.Duration("timeout", g.opts.CallTimeout))
			return domain.Rating{}, 0, apperr.Unavailable("store rating timed out", err)
		}
		var coded *apperr.Error
		if errors.As(err, &coded) {
			return domain.Rating{}, 0, err
		}
		return domain.Rating{}, 0, apperr.Internal("store rating", err)
	}

	g.logger.Info("rating stored",
		zap.String("tool_id", stored.ToolID),
		zap.String("rating_id", stored.ID),
		zap.Stringer("outcome", outcome))
	return stored, outcome, nil
}

func (g *Guard) upsert(ctx context.Context, w repository.RatingWriter, want domain.Rating) (domain.Rating, Outcome, error) {
	if stored, ok, err := g.updateExisting(ctx, w, want); err != nil || ok {
		return stored, OutcomeUpdated, err
	}

	stored, err := w.Insert(ctx, want)
	if err == nil {
		return stored, OutcomeCreated, nil
	}
	if !errors.Is(err, repository.ErrDuplicate) {
		return domain.Rating{}, 0, err
	}

	// A concurrent submission for the same pair committed first.
	stored, ok, err := g.updateExisting(ctx, w, want)
	if err != nil {
		return domain.Rating{}, 0, err
	}
	if !ok {
		return domain.Rating{}, 0, fmt.Errorf("rating for tool %s reported duplicate but was not found", want.ToolID)
	}
	return stored, OutcomeUpdated, nil
}

// updateExisting overwrites the oldest row for the pair, if any.
func (g *Guard) updateExisting(ctx context.Context, w repository.RatingWriter, want domain.Rating) (domain.Rating, bool, error) {
	rows, err := w.FindByIdentity(ctx, want.ToolID, want.FingerprintHash)
	if err != nil {
		return domain.Rating{}, false, err
	}
	if len(rows) == 0 {
		return domain.Rating{}, false, nil
	}
	if len(rows) > 1 {
		ids := make([]string, len(rows))
		for i, r := range rows {
			ids[i] = r.ID
		}
		g.logger.Error("multiple ratings stored for one fingerprint, updating the oldest",
			zap.String("tool_id", want.ToolID),
			zap.Strings("rating_ids", ids))
	}

	stored, err := w.Update(ctx, rows[0].ID, want)
	if err != nil {
		return domain.Rating{}, false, err
	}
	return stored, true, nil
}

// Mine returns the rating a fingerprint holds for a tool, or nil.
func (g *Guard) Mine(ctx context.Context, toolID, fingerprint string) (*domain.Rating, error) {
	toolID, fingerprint = strings.TrimSpace(toolID), strings.TrimSpace(fingerprint)
	if _, err := uuid.Parse(toolID); err != nil {
		return nil, apperr.Validation("tool_id must be a valid UUID")
	}
	if fingerprint == "" {
		return nil, apperr.Validation("fingerprint_hash is required")
	}

	callCtx, cancel := g.bound(ctx)
	defer cancel()
	r, err := g.store.GetByIdentity(callCtx, toolID, fingerprint)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, apperr.Unavailable("load rating", err)
	}
	return &r, nil
}

// Recent returns the newest ratings for a tool.
func (g *Guard) Recent(ctx context.Context, toolID string) ([]domain.Rating, error) {
	toolID = strings.TrimSpace(toolID)
	if _, err := uuid.Parse(toolID); err != nil {
		return nil, apperr.Validation("tool_id must be a valid UUID")
	}
	callCtx, cancel := g.bound(ctx)
	defer cancel()
	ratings, err := g.store.ListRecent(callCtx, toolID, RecentLimit)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, apperr.Unavailable("load ratings", err)
	}
	return ratings, nil
}

// normalizeComment trims the comment, drops it when blank and truncates it to
// MaxCommentLength characters.
func normalizeComment(c *string) *string {
	if c == nil {
		return nil
	}
	s := strings.TrimSpace(*c)
	if s == "" {
		return nil
	}
	if utf8.RuneCountInString(s) > domain.MaxCommentLength {
		s = string([]rune(s)[:domain.MaxCommentLength])
	}
	return &s
}
