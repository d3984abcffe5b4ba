package postgres

import (
	"context"

	"github.com/evently/evently/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type VenueRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *VenueRepo) With(db DB) *VenueRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *VenueRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *VenueRepo) Create(ctx context.Context, v *domain.Venue) error {
	const op = "postgres.VenueRepo.Create"

	_, err := r.handle().Exec(ctx,
		`INSERT INTO venues (id, name, address, city, capacity, is_active, created_at)
	 	 VALUES ($1, $2, $3, $4, $5, TRUE, $6)`,
		v.ID, v.Name, v.Address, v.City, v.Capacity, v.CreatedAt,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *VenueRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Venue, error) {
	const op = "postgres.VenueRepo.Get"

	var v domain.Venue
	err := r.handle().QueryRow(ctx,
		`SELECT id, name, address, city, capacity, is_active, created_at
	 	 FROM venues WHERE id = $1`,
		id,
	).Scan(&v.ID, &v.Name, &v.Address, &v.City, &v.Capacity, &v.Active, &v.CreatedAt)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &v, nil
}

func (r *VenueRepo) List(ctx context.Context) ([]domain.Venue, error) {
	const op = "postgres.VenueRepo.List"

	rows, err := r.handle().Query(ctx,
		`SELECT id, name, address, city, capacity, is_active, created_at
	 	 FROM venues WHERE is_active ORDER BY name`,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var venues []domain.Venue
	for rows.Next() {
		var v domain.Venue
		if err := rows.Scan(&v.ID, &v.Name, &v.Address, &v.City, &v.Capacity, &v.Active, &v.CreatedAt); err != nil {
			return nil, wrapDBErr(op, err)
		}
		venues = append(venues, v)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return venues, nil
}
