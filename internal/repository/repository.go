package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/ai-tool-finder/internal/store"
)

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicate indicates a write collided with a unique constraint.
	ErrDuplicate = errors.New("repository: duplicate")
)

// MaxPageSize is the largest window Page will serve in one call.
const MaxPageSize = 1000

// Repository aggregates all domain-specific repositories.
type Repository struct {
	Tools   *ToolsRepository
	Ratings *RatingsRepository
}

// New constructs a Repository backed by the provided store.
func New(st *store.Store) *Repository {
	return NewWithPool(st.Pool())
}

// NewWithPool allows constructing repositories directly from a pgx pool.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{
		Tools:   &ToolsRepository{pool: pool},
		Ratings: &RatingsRepository{pool: pool},
	}
}
