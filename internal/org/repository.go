package org

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound indicates that the requested unit does not exist.
	ErrNotFound = errors.New("org: not found")
	// ErrDuplicate indicates a unit code collision.
	ErrDuplicate = errors.New("org: duplicate")
)

// RepositoryPort defines data access methods for org units.
type RepositoryPort interface {
	ListActiveUnits(ctx context.Context) ([]Unit, error)
	ListByParent(ctx context.Context, parentID int64) ([]Unit, error)
	GetUnit(ctx context.Context, id int64) (Unit, error)
	CreateUnit(ctx context.Context, unit Unit) (Unit, error)
	UpdateUnit(ctx context.Context, unit Unit) (Unit, error)
	ArchiveUnit(ctx context.Context, id int64) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const unitColumns = `id, parent_id, type, status, code, name, created_at, updated_at`

func scanUnit(row pgx.Row) (Unit, error) {
	var unit Unit
	err := row.Scan(&unit.ID, &unit.ParentID, &unit.Type, &unit.Status, &unit.Code, &unit.Name, &unit.CreatedAt, &unit.UpdatedAt)
	return unit, err
}

// ListActiveUnits returns every non-archived unit, the snapshot the
// hierarchy index is built from.
func (r *Repository) ListActiveUnits(ctx context.Context) ([]Unit, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+unitColumns+` FROM org_units WHERE status = $1 ORDER BY id`, StatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUnits(rows)
}

// ListByParent returns direct child rows of the given unit.
func (r *Repository) ListByParent(ctx context.Context, parentID int64) ([]Unit, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+unitColumns+` FROM org_units WHERE parent_id = $1 AND status = $2 ORDER BY code`, parentID, StatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUnits(rows)
}

// GetUnit fetches a unit by id regardless of status.
func (r *Repository) GetUnit(ctx context.Context, id int64) (Unit, error) {
	unit, err := scanUnit(r.pool.QueryRow(ctx, `SELECT `+unitColumns+` FROM org_units WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Unit{}, ErrNotFound
		}
		return Unit{}, err
	}
	return unit, nil
}

// CreateUnit inserts a new unit.
func (r *Repository) CreateUnit(ctx context.Context, unit Unit) (Unit, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO org_units (parent_id, type, status, code, name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		 RETURNING id, created_at, updated_at`,
		unit.ParentID, unit.Type, unit.Status, unit.Code, unit.Name).
		Scan(&unit.ID, &unit.CreatedAt, &unit.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Unit{}, ErrDuplicate
		}
		return Unit{}, err
	}
	return unit, nil
}

// UpdateUnit updates name, type and parent of an existing unit.
func (r *Repository) UpdateUnit(ctx context.Context, unit Unit) (Unit, error) {
	updated, err := scanUnit(r.pool.QueryRow(ctx,
		`UPDATE org_units SET parent_id = $2, type = $3, name = $4, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+unitColumns,
		unit.ID, unit.ParentID, unit.Type, unit.Name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Unit{}, ErrNotFound
		}
		return Unit{}, err
	}
	return updated, nil
}

// ArchiveUnit soft-deletes a unit by flipping its status.
func (r *Repository) ArchiveUnit(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE org_units SET status = $2, updated_at = NOW() WHERE id = $1`, id, StatusArchived)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func collectUnits(rows pgx.Rows) ([]Unit, error) {
	var units []Unit
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	return units, rows.Err()
}

var _ RepositoryPort = (*Repository)(nil)
