package rating

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Clark-Hu/ai-tool-finder/internal/apperr"
	"github.com/Clark-Hu/ai-tool-finder/internal/domain"
	"github.com/Clark-Hu/ai-tool-finder/internal/repository"
)

// memStore is an in-memory rating log. Transactions are serialised and roll
// back by restoring a snapshot.
type memStore struct {
	mu    sync.Mutex
	now   time.Time
	tools map[string]bool
	rows  []domain.Rating
	seq   int

	// beforeInsert runs once inside Insert, simulating a concurrent writer
	// that commits the same pair first.
	beforeInsert func(s *memStore)
	insertErr    error
}

func newMemStore(toolIDs ...string) *memStore {
	s := &memStore{
		now:   time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC),
		tools: make(map[string]bool),
	}
	for _, id := range toolIDs {
		s.tools[id] = true
	}
	return s
}

func (s *memStore) tick() time.Time {
	s.now = s.now.Add(time.Minute)
	return s.now
}

func (s *memStore) add(r domain.Rating) domain.Rating {
	s.seq++
	r.ID = fmt.Sprintf("rating-%03d", s.seq)
	r.CreatedAt = s.tick()
	r.UpdatedAt = r.CreatedAt
	s.rows = append(s.rows, r)
	return r
}

func (s *memStore) InTx(ctx context.Context, fn func(repository.RatingWriter) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := append([]domain.Rating(nil), s.rows...)
	if err := fn(&memTx{s: s}); err != nil {
		s.rows = snapshot
		return err
	}
	return nil
}

func (s *memStore) GetByIdentity(_ context.Context, toolID, fingerprint string) (domain.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.find(toolID, fingerprint)
	if len(rows) == 0 {
		return domain.Rating{}, repository.ErrNotFound
	}
	return rows[0], nil
}

func (s *memStore) ListRecent(_ context.Context, toolID string, limit int) ([]domain.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Rating, 0)
	for i := len(s.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if s.rows[i].ToolID == toolID {
			out = append(out, s.rows[i])
		}
	}
	return out, nil
}

func (s *memStore) find(toolID, fingerprint string) []domain.Rating {
	out := make([]domain.Rating, 0)
	for _, r := range s.rows {
		if r.ToolID == toolID && r.FingerprintHash == fingerprint {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *memStore) count(toolID, fingerprint string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.find(toolID, fingerprint))
}

type memTx struct {
	s *memStore
}

func (t *memTx) ToolExists(_ context.Context, toolID string) (bool, error) {
	return t.s.tools[toolID], nil
}

func (t *memTx) FindByIdentity(_ context.Context, toolID, fingerprint string) ([]domain.Rating, error) {
	return t.s.find(toolID, fingerprint), nil
}

func (t *memTx) Insert(_ context.Context, r domain.Rating) (domain.Rating, error) {
	if hook := t.s.beforeInsert; hook != nil {
		t.s.beforeInsert = nil
		hook(t.s)
	}
	if t.s.insertErr != nil {
		return domain.Rating{}, t.s.insertErr
	}
	if len(t.s.find(r.ToolID, r.FingerprintHash)) > 0 {
		return domain.Rating{}, repository.ErrDuplicate
	}
	return t.s.add(r), nil
}

func (t *memTx) Update(_ context.Context, id string, r domain.Rating) (domain.Rating, error) {
	for i := range t.s.rows {
		if t.s.rows[i].ID != id {
			continue
		}
		row := &t.s.rows[i]
		row.Stars = r.Stars
		row.Tags = r.Tags
		row.Comment = r.Comment
		row.UpdatedAt = t.s.tick()
		return *row, nil
	}
	return domain.Rating{}, repository.ErrNotFound
}

func stars(n int) *int { return &n }

func strPtr(s string) *string { return &s }

func TestSubmitCreatesThenUpdates(t *testing.T) {
	toolID := uuid.NewString()
	st := newMemStore(toolID)
	guard := NewGuard(st, Options{}, zap.NewNop())
	ctx := context.Background()

	first, outcome, err := guard.Submit(ctx, Submission{
		ToolID:          toolID,
		FingerprintHash: "fp-1",
		Stars:           stars(2),
		Comment:         strPtr("meh"),
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)
	assert.Equal(t, 2, first.Stars)

	var tags domain.TagSet
	tags[domain.TagReliable] = true
	second, outcome, err := guard.Submit(ctx, Submission{
		ToolID:          toolID,
		FingerprintHash: "fp-1",
		Stars:           stars(5),
		Tags:            tags,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, outcome)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
	assert.Equal(t, 5, second.Stars)
	assert.True(t, second.Tags[domain.TagReliable])
	assert.Nil(t, second.Comment, "omitted comment clears the old one")
	assert.Equal(t, 1, st.count(toolID, "fp-1"))
}

func TestSubmitDistinctFingerprintsCreateDistinctRows(t *testing.T) {
	toolID := uuid.NewString()
	st := newMemStore(toolID)
	guard := NewGuard(st, Options{}, nil)

	for _, fp := range []string{"a", "b"} {
		_, outcome, err := guard.Submit(context.Background(), Submission{ToolID: toolID, FingerprintHash: fp, Stars: stars(4)})
		require.NoError(t, err)
		assert.Equal(t, OutcomeCreated, outcome)
	}
	assert.Equal(t, 1, st.count(toolID, "a"))
	assert.Equal(t, 1, st.count(toolID, "b"))
}

func TestSubmitValidation(t *testing.T) {
	toolID := uuid.NewString()
	guard := NewGuard(newMemStore(toolID), Options{}, nil)

	tests := []struct {
		name  string
		sub   Submission
		field string
	}{
		{"missing stars", Submission{ToolID: toolID, FingerprintHash: "fp"}, "stars"},
		{"stars too low", Submission{ToolID: toolID, FingerprintHash: "fp", Stars: stars(0)}, "stars"},
		{"stars too high", Submission{ToolID: toolID, FingerprintHash: "fp", Stars: stars(6)}, "stars"},
		{"bad tool id", Submission{ToolID: "not-a-uuid", FingerprintHash: "fp", Stars: stars(3)}, "tool_id"},
		{"blank fingerprint", Submission{ToolID: toolID, FingerprintHash: "   ", Stars: stars(3)}, "fingerprint_hash"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := guard.Submit(context.Background(), tt.sub)
			require.ErrorIs(t, err, apperr.ErrValidation)

			var appErr *apperr.Error
			require.True(t, errors.As(err, &appErr))
			details, ok := appErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Contains(t, details, tt.field)
		})
	}
}

func TestSubmitUnknownTool(t *testing.T) {
	guard := NewGuard(newMemStore(), Options{}, nil)

	_, _, err := guard.Submit(context.Background(), Submission{
		ToolID:          uuid.NewString(),
		FingerprintHash: "fp",
		Stars:           stars(3),
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSubmitNormalizesComment(t *testing.T) {
	toolID := uuid.NewString()
	guard := NewGuard(newMemStore(toolID), Options{}, nil)

	long := strings.Repeat("é", domain.MaxCommentLength+50)
	r, _, err := guard.Submit(context.Background(), Submission{
		ToolID: toolID, FingerprintHash: "fp", Stars: stars(3), Comment: &long,
	})
	require.NoError(t, err)
	require.NotNil(t, r.Comment)
	assert.Equal(t, domain.MaxCommentLength, len([]rune(*r.Comment)))

	r, _, err = guard.Submit(context.Background(), Submission{
		ToolID: toolID, FingerprintHash: "fp", Stars: stars(3), Comment: strPtr("   "),
	})
	require.NoError(t, err)
	assert.Nil(t, r.Comment)
}

func TestSubmitLosingInsertRaceUpdates(t *testing.T) {
	toolID := uuid.NewString()
	st := newMemStore(toolID)
	st.beforeInsert = func(s *memStore) {
		s.add(domain.Rating{ToolID: toolID, FingerprintHash: "fp", Stars: 1})
	}
	guard := NewGuard(st, Options{}, nil)

	r, outcome, err := guard.Submit(context.Background(), Submission{ToolID: toolID, FingerprintHash: "fp", Stars: stars(4)})
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, outcome)
	assert.Equal(t, 4, r.Stars)
	assert.Equal(t, 1, st.count(toolID, "fp"))
}

func TestSubmitExistingDuplicatesUpdatesOldestAndLogs(t *testing.T) {
	toolID := uuid.NewString()
	st := newMemStore(toolID)
	oldest := st.add(domain.Rating{ToolID: toolID, FingerprintHash: "fp", Stars: 1})
	newer := st.add(domain.Rating{ToolID: toolID, FingerprintHash: "fp", Stars: 2})

	core, logs := observer.New(zapcore.ErrorLevel)
	guard := NewGuard(st, Options{}, zap.New(core))

	r, outcome, err := guard.Submit(context.Background(), Submission{ToolID: toolID, FingerprintHash: "fp", Stars: stars(5)})
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, outcome)
	assert.Equal(t, oldest.ID, r.ID)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, []any{oldest.ID, newer.ID}, entries[0].ContextMap()["rating_ids"])
}

func TestSubmitStoreFailureRollsBack(t *testing.T) {
	toolID := uuid.NewString()
	st := newMemStore(toolID)
	st.insertErr = errors.New("connection reset")
	guard := NewGuard(st, Options{}, nil)

	_, _, err := guard.Submit(context.Background(), Submission{ToolID: toolID, FingerprintHash: "fp", Stars: stars(3)})
	assert.ErrorIs(t, err, apperr.ErrInternal)
	assert.Zero(t, st.count(toolID, "fp"))
}

func TestSubmitConcurrentSamePair(t *testing.T) {
	toolID := uuid.NewString()
	st := newMemStore(toolID)
	guard := NewGuard(st, Options{}, nil)

	var wg sync.WaitGroup
	outcomes := make([]Outcome, 10)
	for i := range outcomes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, o, err := guard.Submit(context.Background(), Submission{ToolID: toolID, FingerprintHash: "fp", Stars: stars(i%5 + 1)})
			assert.NoError(t, err)
			outcomes[i] = o
		}(i)
	}
	wg.Wait()

	created := 0
	for _, o := range outcomes {
		if o == OutcomeCreated {
			created++
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, st.count(toolID, "fp"))
}

func TestMine(t *testing.T) {
	toolID := uuid.NewString()
	st := newMemStore(toolID)
	guard := NewGuard(st, Options{}, nil)

	got, err := guard.Mine(context.Background(), toolID, "fp")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, _, err = guard.Submit(context.Background(), Submission{ToolID: toolID, FingerprintHash: "fp", Stars: stars(4)})
	require.NoError(t, err)

	got, err = guard.Mine(context.Background(), toolID, "fp")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 4, got.Stars)

	_, err = guard.Mine(context.Background(), "bogus", "fp")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = guard.Mine(context.Background(), toolID, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestRecentCapsAndOrders(t *testing.T) {
	toolID := uuid.NewString()
	st := newMemStore(toolID)
	for i := 0; i < RecentLimit+5; i++ {
		st.add(domain.Rating{ToolID: toolID, FingerprintHash: fmt.Sprintf("fp-%d", i), Stars: 3})
	}
	guard := NewGuard(st, Options{}, nil)

	got, err := guard.Recent(context.Background(), toolID)
	require.NoError(t, err)
	require.Len(t, got, RecentLimit)
	assert.True(t, got[0].CreatedAt.After(got[1].CreatedAt))

	_, err = guard.Recent(context.Background(), "nope")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

// stalledStore never answers until its context ends, like a pool that cannot
// hand out a connection or a row lock that is never released.
type stalledStore struct{}

func (stalledStore) InTx(ctx context.Context, _ func(repository.RatingWriter) error) error {
	<-ctx.Done()
	return fmt.Errorf("begin rating tx: %w", ctx.Err())
}

func (stalledStore) GetByIdentity(ctx context.Context, _, _ string) (domain.Rating, error) {
	<-ctx.Done()
	return domain.Rating{}, ctx.Err()
}

func (stalledStore) ListRecent(ctx context.Context, _ string, _ int) ([]domain.Rating, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestStoreCallsAreBounded(t *testing.T) {
	toolID := uuid.NewString()
	guard := NewGuard(stalledStore{}, Options{CallTimeout: 20 * time.Millisecond}, nil)

	start := time.Now()
	_, _, err := guard.Submit(context.Background(), Submission{ToolID: toolID, FingerprintHash: "fp", Stars: stars(5)})
	assert.ErrorIs(t, err, apperr.ErrUnavailable)
	assert.Less(t, time.Since(start), 2*time.Second)

	_, err = guard.Mine(context.Background(), toolID, "fp")
	assert.ErrorIs(t, err, apperr.ErrUnavailable)

	_, err = guard.Recent(context.Background(), toolID)
	assert.ErrorIs(t, err, apperr.ErrUnavailable)
}

func TestSubmitCallerCancellationIsNotUnavailable(t *testing.T) {
	guard := NewGuard(stalledStore{}, Options{CallTimeout: time.Minute}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err := guard.Submit(ctx, Submission{ToolID: uuid.NewString(), FingerprintHash: "fp", Stars: stars(5)})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, apperr.ErrUnavailable)
}
