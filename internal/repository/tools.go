package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/ai-tool-finder/internal/domain"
)

// ToolsRepository provides persistence helpers for tool entities.
type ToolsRepository struct {
	pool *pgxpool.Pool
}

const toolColumns = `
    id::text,
    slug,
    name,
    description,
    url,
    logo_url,
    categories,
    pricing_type,
    starting_price::float8,
    created_at,
    updated_at
`

// ToolUpsertParams bundles the fields written by the seeding path.
type ToolUpsertParams struct {
	Slug          string
	Name          string
	Description   string
	URL           string
	LogoURL       *string
	Categories    []domain.Category
	PricingType   domain.PricingType
	StartingPrice *float64
}

// Count returns the number of stored tools.
func (r *ToolsRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tools`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tools: %w", err)
	}
	return n, nil
}

// Page returns up to limit tools starting at offset, newest first. Ties on
// created_at are broken by id so consecutive windows never overlap.
func (r *ToolsRepository) Page(ctx context.Context, offset, limit int) ([]domain.Tool, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		return []domain.Tool{}, nil
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	query := fmt.Sprintf(`SELECT %s FROM tools ORDER BY created_at DESC, id DESC OFFSET $1 LIMIT $2`, toolColumns)
	rows, err := r.pool.Query(ctx, query, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("page tools: %w", err)
	}
	return collectTools(rows)
}

// GetBySlug fetches a tool by its public slug.
func (r *ToolsRepository) GetBySlug(ctx context.Context, slug string) (domain.Tool, error) {
	query := fmt.Sprintf(`SELECT %s FROM tools WHERE slug = $1`, toolColumns)
	tool, err := scanTool(r.pool.QueryRow(ctx, query, slug))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Tool{}, ErrNotFound
		}
		return domain.Tool{}, err
	}
	return tool, nil
}

// ListBySlugs fetches every tool whose slug is in slugs. Order is unspecified.
func (r *ToolsRepository) ListBySlugs(ctx context.Context, slugs []string) ([]domain.Tool, error) {
	if len(slugs) == 0 {
		return []domain.Tool{}, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM tools WHERE slug = ANY($1)`, toolColumns)
	rows, err := r.pool.Query(ctx, query, slugs)
	if err != nil {
		return nil, fmt.Errorf("list tools by slug: %w", err)
	}
	return collectTools(rows)
}

// ListFirstByName returns the first n tools ordered case-insensitively by name.
func (r *ToolsRepository) ListFirstByName(ctx context.Context, n int) ([]domain.Tool, error) {
	if n <= 0 {
		return []domain.Tool{}, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM tools ORDER BY lower(name), id LIMIT $1`, toolColumns)
	rows, err := r.pool.Query(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("list tools by name: %w", err)
	}
	return collectTools(rows)
}

// UpsertBySlug inserts a tool or refreshes the descriptive fields of the one
// already holding the slug. The bool reports whether a row was inserted.
func (r *ToolsRepository) UpsertBySlug(ctx context.Context, params ToolUpsertParams) (domain.Tool, bool, error) {
	query := fmt.Sprintf(`
        INSERT INTO tools (slug, name, description, url, logo_url, categories, pricing_type, starting_price)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (slug)
        DO UPDATE SET name = EXCLUDED.name,
                      description = EXCLUDED.description,
                      url = EXCLUDED.url,
                      logo_url = EXCLUDED.logo_url,
                      categories = EXCLUDED.categories,
                      pricing_type = EXCLUDED.pricing_type,
                      starting_price = EXCLUDED.starting_price,
                      updated_at = now()
        RETURNING %s, (xmax = 0) AS inserted
    `, toolColumns)

	categories := make([]string, len(params.Categories))
	for i, c := range params.Categories {
		categories[i] = string(c)
	}

	var inserted bool
	tool, err := scanTool(r.pool.QueryRow(ctx, query,
		params.Slug,
		params.Name,
		params.Description,
		params.URL,
		params.LogoURL,
		categories,
		string(params.PricingType),
		params.StartingPrice,
	), &inserted)
	if err != nil {
		return domain.Tool{}, false, fmt.Errorf("upsert tool %q: %w", params.Slug, err)
	}
	return tool, inserted, nil
}

func collectTools(rows pgx.Rows) ([]domain.Tool, error) {
	defer rows.Close()

	items := make([]domain.Tool, 0)
	for rows.Next() {
		tool, err := scanTool(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, tool)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// scanTool reads toolColumns, followed by any extra RETURNING columns.
func scanTool(row pgx.Row, extra ...any) (domain.Tool, error) {
	var (
		tool        domain.Tool
		categories  []string
		pricingType string
		createdAt   time.Time
		updatedAt   time.Time
	)

	dest := []any{
		&tool.ID,
		&tool.Slug,
		&tool.Name,
		&tool.Description,
		&tool.URL,
		&tool.LogoURL,
		&categories,
		&pricingType,
		&tool.StartingPrice,
		&createdAt,
		&updatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return domain.Tool{}, err
	}

	tool.Categories = make([]domain.Category, len(categories))
	for i, c := range categories {
		tool.Categories[i] = domain.Category(strings.TrimSpace(c))
	}
	tool.PricingType = domain.PricingType(pricingType)
	tool.CreatedAt = createdAt
	tool.UpdatedAt = updatedAt
	return tool, nil
}
