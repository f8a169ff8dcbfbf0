package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/ai-tool-finder/internal/domain"
)

// RatingsRepository provides helpers for the rating log.
type RatingsRepository struct {
	pool *pgxpool.Pool
}

const ratingColumns = `
    id::text,
    tool_id::text,
    stars,
    good_for_creators,
    worth_money,
    easy_to_use,
    accurate,
    reliable,
    beginner_friendly,
    comment,
    anon_fingerprint_hash,
    created_at,
    updated_at
`

// RatingWriter is the set of writes available inside a rating transaction.
type RatingWriter interface {
	// ToolExists reports whether a tool with the given id is stored.
	ToolExists(ctx context.Context, toolID string) (bool, error)
	// FindByIdentity returns every row for the pair, oldest first.
	FindByIdentity(ctx context.Context, toolID, fingerprint string) ([]domain.Rating, error)
	// Insert stores a new rating. It returns ErrDuplicate if the pair already exists.
	Insert(ctx context.Context, rating domain.Rating) (domain.Rating, error)
	// Update overwrites the content fields of the row with the given id.
	Update(ctx context.Context, id string, rating domain.Rating) (domain.Rating, error)
}

// InTx runs fn inside a transaction that is committed when fn returns nil and
// rolled back otherwise.
func (r *RatingsRepository) InTx(ctx context.Context, fn func(RatingWriter) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin rating tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(&ratingTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit rating tx: %w", err)
	}
	return nil
}

// ListSamples returns the aggregation projection of the rating log. A nil
// toolIDs reads the whole log; otherwise only the listed tools are read.
func (r *RatingsRepository) ListSamples(ctx context.Context, toolIDs []string) ([]domain.RatingSample, error) {
	const base = `
        SELECT tool_id::text, stars,
               good_for_creators, worth_money, easy_to_use,
               accurate, reliable, beginner_friendly
        FROM ratings
    `

	var (
		rows pgx.Rows
		err  error
	)
	if toolIDs == nil {
		rows, err = r.pool.Query(ctx, base)
	} else {
		ids := parseUUIDs(toolIDs)
		if len(ids) == 0 {
			return []domain.RatingSample{}, nil
		}
		rows, err = r.pool.Query(ctx, base+` WHERE tool_id = ANY($1)`, ids)
	}
	if err != nil {
		return nil, fmt.Errorf("list rating samples: %w", err)
	}
	defer rows.Close()

	samples := make([]domain.RatingSample, 0)
	for rows.Next() {
		var (
			s     domain.RatingSample
			stars int16
		)
		if err := rows.Scan(
			&s.ToolID,
			&stars,
			&s.Tags[domain.TagGoodForCreators],
			&s.Tags[domain.TagWorthMoney],
			&s.Tags[domain.TagEasyToUse],
			&s.Tags[domain.TagAccurate],
			&s.Tags[domain.TagReliable],
			&s.Tags[domain.TagBeginnerFriendly],
		); err != nil {
			return nil, err
		}
		s.Stars = int(stars)
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

// GetByIdentity retrieves the rating a fingerprint holds for a tool.
func (r *RatingsRepository) GetByIdentity(ctx context.Context, toolID, fingerprint string) (domain.Rating, error) {
	id, err := uuid.Parse(toolID)
	if err != nil {
		return domain.Rating{}, ErrNotFound
	}
	query := fmt.Sprintf(`
        SELECT %s FROM ratings
        WHERE tool_id = $1 AND anon_fingerprint_hash = $2
        ORDER BY created_at, id
        LIMIT 1
    `, ratingColumns)
	rating, err := scanRating(r.pool.QueryRow(ctx, query, id, fingerprint))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Rating{}, ErrNotFound
		}
		return domain.Rating{}, err
	}
	return rating, nil
}

// ListRecent returns the newest ratings left on a tool.
func (r *RatingsRepository) ListRecent(ctx context.Context, toolID string, limit int) ([]domain.Rating, error) {
	id, err := uuid.Parse(toolID)
	if err != nil || limit <= 0 {
		return []domain.Rating{}, nil
	}
	query := fmt.Sprintf(`
        SELECT %s FROM ratings
        WHERE tool_id = $1
        ORDER BY created_at DESC, id DESC
        LIMIT $2
    `, ratingColumns)
	rows, err := r.pool.Query(ctx, query, id, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent ratings: %w", err)
	}
	return collectRatings(rows)
}

type ratingTx struct {
	tx pgx.Tx
}

func (t *ratingTx) ToolExists(ctx context.Context, toolID string) (bool, error) {
	id, err := uuid.Parse(toolID)
	if err != nil {
		return false, nil
	}
	var exists bool
	if err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tools WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check tool exists: %w", err)
	}
	return exists, nil
}

func (t *ratingTx) FindByIdentity(ctx context.Context, toolID, fingerprint string) ([]domain.Rating, error) {
	id, err := uuid.Parse(toolID)
	if err != nil {
		return []domain.Rating{}, nil
	}
	query := fmt.Sprintf(`
        SELECT %s FROM ratings
        WHERE tool_id = $1 AND anon_fingerprint_hash = $2
        ORDER BY created_at, id
        FOR UPDATE
    `, ratingColumns)
	rows, err := t.tx.Query(ctx, query, id, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("find rating by identity: %w", err)
	}
	return collectRatings(rows)
}

func (t *ratingTx) Insert(ctx context.Context, rating domain.Rating) (domain.Rating, error) {
	id, err := uuid.Parse(rating.ToolID)
	if err != nil {
		return domain.Rating{}, fmt.Errorf("insert rating: invalid tool id %q", rating.ToolID)
	}
	query := fmt.Sprintf(`
        INSERT INTO ratings (
            tool_id, stars,
            good_for_creators, worth_money, easy_to_use,
            accurate, reliable, beginner_friendly,
            comment, anon_fingerprint_hash
        )
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        ON CONFLICT ON CONSTRAINT ratings_tool_fingerprint_key DO NOTHING
        RETURNING %s
    `, ratingColumns)

	args := append([]any{id, rating.Stars}, tagArgs(rating.Tags)...)
	args = append(args, rating.Comment, rating.FingerprintHash)

	stored, err := scanRating(t.tx.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows || isUniqueViolation(err) {
			return domain.Rating{}, ErrDuplicate
		}
		return domain.Rating{}, fmt.Errorf("insert rating: %w", err)
	}
	return stored, nil
}

func (t *ratingTx) Update(ctx context.Context, id string, rating domain.Rating) (domain.Rating, error) {
	rowID, err := uuid.Parse(id)
	if err != nil {
		return domain.Rating{}, ErrNotFound
	}
	query := fmt.Sprintf(`
        UPDATE ratings
        SET stars = $2,
            good_for_creators = $3,
            worth_money = $4,
            easy_to_use = $5,
            accurate = $6,
            reliable = $7,
            beginner_friendly = $8,
            comment = $9,
            updated_at = now()
        WHERE id = $1
        RETURNING %s
    `, ratingColumns)

	args := append([]any{rowID, rating.Stars}, tagArgs(rating.Tags)...)
	args = append(args, rating.Comment)

	stored, err := scanRating(t.tx.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Rating{}, ErrNotFound
		}
		return domain.Rating{}, fmt.Errorf("update rating: %w", err)
	}
	return stored, nil
}

func tagArgs(tags domain.TagSet) []any {
	args := make([]any, 0, len(domain.Tags))
	for _, tag := range domain.Tags {
		args = append(args, tags[tag])
	}
	return args
}

func parseUUIDs(raw []string) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		if id, err := uuid.Parse(s); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func collectRatings(rows pgx.Rows) ([]domain.Rating, error) {
	defer rows.Close()

	items := make([]domain.Rating, 0)
	for rows.Next() {
		rating, err := scanRating(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rating)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanRating(row pgx.Row) (domain.Rating, error) {
	var (
		rating domain.Rating
		stars  int16
	)
	err := row.Scan(
		&rating.ID,
		&rating.ToolID,
		&stars,
		&rating.Tags[domain.TagGoodForCreators],
		&rating.Tags[domain.TagWorthMoney],
		&rating.Tags[domain.TagEasyToUse],
		&rating.Tags[domain.TagAccurate],
		&rating.Tags[domain.TagReliable],
		&rating.Tags[domain.TagBeginnerFriendly],
		&rating.Comment,
		&rating.FingerprintHash,
		&rating.CreatedAt,
		&rating.UpdatedAt,
	)
	if err != nil {
		return domain.Rating{}, err
	}
	rating.Stars = int(stars)
	return rating, nil
}
