package repository

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/ai-tool-finder/internal/domain"
	"github.com/Clark-Hu/ai-tool-finder/internal/testutil/pgtest"
)

type testEnv struct {
	*pgtest.DB
	repository *Repository
}

func newTestEnv(t testing.TB) *testEnv {
	t.Helper()
	db := pgtest.Start(t)
	return &testEnv{DB: db, repository: NewWithPool(db.Pool)}
}

func (e *testEnv) cleanup() {
	e.Cleanup()
}

func mustCreateTool(t testing.TB, env *testEnv, slug string) domain.Tool {
	t.Helper()
	price := 9.99
	tool, inserted, err := env.repository.Tools.UpsertBySlug(env.Ctx, ToolUpsertParams{
		Slug:          slug,
		Name:          "Tool " + slug,
		Description:   "Generate things for " + slug,
		URL:           "https://" + slug + ".example",
		Categories:    []domain.Category{domain.CategoryVideo, domain.CategoryProductivity},
		PricingType:   domain.PricingFreemium,
		StartingPrice: &price,
	})
	if err != nil {
		t.Fatalf("create tool %q: %v", slug, err)
	}
	if !inserted {
		t.Fatalf("create tool %q: expected insert", slug)
	}
	return tool
}

// setCreatedAt pins created_at so ordering assertions are exact.
func setCreatedAt(t testing.TB, env *testEnv, id string, at time.Time) {
	t.Helper()
	if _, err := env.Pool.Exec(env.Ctx, `UPDATE tools SET created_at = $2 WHERE id::text = $1`, id, at); err != nil {
		t.Fatalf("set created_at: %v", err)
	}
}

func TestToolsRepository_UpsertGetList(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()

	tool := mustCreateTool(t, env, "runway")
	assert.Equal(t, []domain.Category{domain.CategoryVideo, domain.CategoryProductivity}, tool.Categories)
	require.NotNil(t, tool.StartingPrice)
	assert.InDelta(t, 9.99, *tool.StartingPrice, 0.001)
	assert.Nil(t, tool.LogoURL)

	updated, inserted, err := env.repository.Tools.UpsertBySlug(env.Ctx, ToolUpsertParams{
		Slug:        "runway",
		Name:        "Runway ML",
		URL:         "https://runwayml.com",
		Categories:  []domain.Category{domain.CategoryVideo},
		PricingType: domain.PricingPaid,
	})
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, tool.ID, updated.ID)
	assert.Equal(t, "Runway ML", updated.Name)
	assert.Nil(t, updated.StartingPrice)
	assert.Equal(t, tool.CreatedAt.UTC(), updated.CreatedAt.UTC())

	got, err := env.repository.Tools.GetBySlug(env.Ctx, "runway")
	require.NoError(t, err)
	assert.Equal(t, domain.PricingPaid, got.PricingType)

	_, err = env.repository.Tools.GetBySlug(env.Ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	mustCreateTool(t, env, "canva")
	listed, err := env.repository.Tools.ListBySlugs(env.Ctx, []string{"canva", "runway", "missing"})
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	byName, err := env.repository.Tools.ListFirstByName(env.Ctx, 10)
	require.NoError(t, err)
	require.Len(t, byName, 2)
	assert.Equal(t, "runway", byName[0].Slug)
	assert.Equal(t, "canva", byName[1].Slug)
}

func TestToolsRepository_CountAndPage(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()

	base := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	const n = 5
	for i := 0; i < n; i++ {
		tool := mustCreateTool(t, env, fmt.Sprintf("tool-%d", i))
		setCreatedAt(t, env, tool.ID, base.Add(time.Duration(i)*time.Hour))
	}

	count, err := env.repository.Tools.Count(env.Ctx)
	require.NoError(t, err)
	assert.EqualValues(t, n, count)

	first, err := env.repository.Tools.Page(env.Ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "tool-4", first[0].Slug)
	assert.Equal(t, "tool-3", first[1].Slug)

	last, err := env.repository.Tools.Page(env.Ctx, 4, 2)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, "tool-0", last[0].Slug)

	beyond, err := env.repository.Tools.Page(env.Ctx, 10, 2)
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func TestRatingsRepository_InsertUpdateAndRead(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()

	tool := mustCreateTool(t, env, "midjourney")
	comment := "great"

	var first domain.Rating
	err := env.repository.Ratings.InTx(env.Ctx, func(w RatingWriter) error {
		exists, err := w.ToolExists(env.Ctx, tool.ID)
		if err != nil || !exists {
			return fmt.Errorf("tool exists = %v, err = %v", exists, err)
		}
		var tags domain.TagSet
		tags[domain.TagAccurate] = true
		first, err = w.Insert(env.Ctx, domain.Rating{
			ToolID:          tool.ID,
			Stars:           4,
			Tags:            tags,
			Comment:         &comment,
			FingerprintHash: "fp-1",
		})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 4, first.Stars)
	assert.True(t, first.Tags[domain.TagAccurate])

	err = env.repository.Ratings.InTx(env.Ctx, func(w RatingWriter) error {
		_, err := w.Insert(env.Ctx, domain.Rating{ToolID: tool.ID, Stars: 2, FingerprintHash: "fp-1"})
		return err
	})
	assert.ErrorIs(t, err, ErrDuplicate)

	err = env.repository.Ratings.InTx(env.Ctx, func(w RatingWriter) error {
		rows, err := w.FindByIdentity(env.Ctx, tool.ID, "fp-1")
		if err != nil {
			return err
		}
		if len(rows) != 1 {
			return fmt.Errorf("rows = %d, want 1", len(rows))
		}
		_, err = w.Update(env.Ctx, rows[0].ID, domain.Rating{Stars: 2})
		return err
	})
	require.NoError(t, err)

	mine, err := env.repository.Ratings.GetByIdentity(env.Ctx, tool.ID, "fp-1")
	require.NoError(t, err)
	assert.Equal(t, 2, mine.Stars)
	assert.Nil(t, mine.Comment)
	assert.False(t, mine.Tags[domain.TagAccurate])
	assert.Equal(t, first.CreatedAt.UTC(), mine.CreatedAt.UTC())

	_, err = env.repository.Ratings.GetByIdentity(env.Ctx, tool.ID, "fp-unknown")
	assert.ErrorIs(t, err, ErrNotFound)

	recent, err := env.repository.Ratings.ListRecent(env.Ctx, tool.ID, 50)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestRatingsRepository_InTxRollsBackOnError(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()

	tool := mustCreateTool(t, env, "copilot")
	boom := errors.New("boom")

	err := env.repository.Ratings.InTx(env.Ctx, func(w RatingWriter) error {
		if _, err := w.Insert(env.Ctx, domain.Rating{ToolID: tool.ID, Stars: 5, FingerprintHash: "fp"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	samples, err := env.repository.Ratings.ListSamples(env.Ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestRatingsRepository_ListSamples(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()

	a := mustCreateTool(t, env, "tool-a")
	b := mustCreateTool(t, env, "tool-b")

	for i, toolID := range []string{a.ID, a.ID, b.ID} {
		fp := fmt.Sprintf("fp-%d", i)
		err := env.repository.Ratings.InTx(env.Ctx, func(w RatingWriter) error {
			var tags domain.TagSet
			tags[domain.TagReliable] = i%2 == 0
			_, err := w.Insert(env.Ctx, domain.Rating{ToolID: toolID, Stars: i + 3, Tags: tags, FingerprintHash: fp})
			return err
		})
		require.NoError(t, err)
	}

	all, err := env.repository.Ratings.ListSamples(env.Ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	onlyB, err := env.repository.Ratings.ListSamples(env.Ctx, []string{b.ID, "not-a-uuid"})
	require.NoError(t, err)
	require.Len(t, onlyB, 1)
	assert.Equal(t, b.ID, onlyB[0].ToolID)
	assert.Equal(t, 5, onlyB[0].Stars)
	assert.True(t, onlyB[0].Tags[domain.TagReliable])

	none, err := env.repository.Ratings.ListSamples(env.Ctx, []string{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRatingsRepository_ConcurrentInsertsSamePair(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()

	tool := mustCreateTool(t, env, "race")
	const workers = 8

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		inserted   int
		duplicates int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(stars int) {
			defer wg.Done()
			err := env.repository.Ratings.InTx(env.Ctx, func(w RatingWriter) error {
				_, err := w.Insert(env.Ctx, domain.Rating{ToolID: tool.ID, Stars: stars, FingerprintHash: "same"})
				return err
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				inserted++
			case errors.Is(err, ErrDuplicate):
				duplicates++
			default:
				t.Errorf("insert: %v", err)
			}
		}(i%5 + 1)
	}
	wg.Wait()

	assert.Equal(t, 1, inserted)
	assert.Equal(t, workers-1, duplicates)
}

func BenchmarkToolsRepositoryPage(b *testing.B) {
	env := newTestEnv(b)
	defer env.cleanup()

	for i := 0; i < 200; i++ {
		mustCreateTool(b, env, fmt.Sprintf("bench-%d", i))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := env.repository.Tools.Page(env.Ctx, 0, 100); err != nil {
			b.Fatalf("page: %v", err)
		}
	}
}
