package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/remediation-review/internal/domain"
)

// ReviewerRepository encapsulates reviewer account persistence.
type ReviewerRepository interface {
	Insert(ctx context.Context, reviewer *domain.Reviewer) error
	GetByID(ctx context.Context, id string) (*domain.Reviewer, error)
	GetByEmail(ctx context.Context, email string) (*domain.Reviewer, error)
}

type reviewerRepository struct {
	pool *pgxpool.Pool
}

// NewReviewerRepository instantiates the repository.
func NewReviewerRepository(pool *pgxpool.Pool) ReviewerRepository {
	return &reviewerRepository{pool: pool}
}

const reviewerColumns = `id, name, email, password_hash, role, is_active, created_at, updated_at`

func (r *reviewerRepository) Insert(ctx context.Context, reviewer *domain.Reviewer) error {
	const query = `
        INSERT INTO reviewers (id, name, email, password_hash, role, is_active)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		reviewer.ID,
		reviewer.Name,
		reviewer.Email,
		reviewer.PasswordHash,
		reviewer.Role,
		reviewer.IsActive,
	).Scan(&reviewer.CreatedAt, &reviewer.UpdatedAt)
}

func (r *reviewerRepository) GetByID(ctx context.Context, id string) (*domain.Reviewer, error) {
	const query = `SELECT ` + reviewerColumns + ` FROM reviewers WHERE id=$1`
	return r.fetch(ctx, query, id)
}

func (r *reviewerRepository) GetByEmail(ctx context.Context, email string) (*domain.Reviewer, error) {
	const query = `SELECT ` + reviewerColumns + ` FROM reviewers WHERE LOWER(email)=LOWER($1)`
	return r.fetch(ctx, query, email)
}

func (r *reviewerRepository) fetch(ctx context.Context, query string, arg any) (*domain.Reviewer, error) {
	var reviewer domain.Reviewer
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&reviewer.ID,
		&reviewer.Name,
		&reviewer.Email,
		&reviewer.PasswordHash,
		&reviewer.Role,
		&reviewer.IsActive,
		&reviewer.CreatedAt,
		&reviewer.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &reviewer, nil
}
