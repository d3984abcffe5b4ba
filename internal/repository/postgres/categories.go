package postgres

import (
	"context"

	"github.com/evently/evently/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CategoryRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *CategoryRepo) With(db DB) *CategoryRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *CategoryRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Create inserts a category. The unique index on name surfaces as
// repository.ErrConflict.
func (r *CategoryRepo) Create(ctx context.Context, c *domain.Category) error {
	const op = "postgres.CategoryRepo.Create"

	_, err := r.handle().Exec(ctx,
		`INSERT INTO categories (id, name, description, is_active, created_at)
	 	 VALUES ($1, $2, $3, TRUE, $4)`,
		c.ID, c.Name, c.Description, c.CreatedAt,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *CategoryRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	const op = "postgres.CategoryRepo.Get"

	var c domain.Category
	err := r.handle().QueryRow(ctx,
		`SELECT id, name, description, is_active, created_at
	 	 FROM categories WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Name, &c.Description, &c.Active, &c.CreatedAt)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &c, nil
}

func (r *CategoryRepo) List(ctx context.Context) ([]domain.Category, error) {
	const op = "postgres.CategoryRepo.List"

	rows, err := r.handle().Query(ctx,
		`SELECT id, name, description, is_active, created_at
	 	 FROM categories WHERE is_active ORDER BY name`,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Active, &c.CreatedAt); err != nil {
			return nil, wrapDBErr(op, err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return categories, nil
}
