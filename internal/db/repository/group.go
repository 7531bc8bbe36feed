package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"warden/internal/domain"
)

type GroupRepo struct {
	writeDB *sql.DB
	readDB  *sql.DB
}

func NewGroupRepo(writeDB, readDB *sql.DB) *GroupRepo {
	return &GroupRepo{writeDB: writeDB, readDB: readDB}
}

func (r *GroupRepo) Create(ctx context.Context, g *domain.Group) (*domain.Group, error) {
	out := &domain.Group{
		ID:        g.ID,
		Name:      g.Name,
		CreatedAt: time.Now().UTC(),
	}
	if out.ID == "" {
		out.ID = uuid.NewString()
	}

	_, err := r.writeDB.ExecContext(ctx,
		`INSERT INTO acgs (id, name, created_at) VALUES (?, ?, ?)`,
		out.ID, out.Name, out.CreatedAt,
	)
	if err != nil {
		return nil, mapDBError(err)
	}
	return out, nil
}

func (r *GroupRepo) GetByID(ctx context.Context, id string) (*domain.Group, error) {
	return r.scanGroup(r.readDB.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM acgs WHERE id = ?`, id))
}

func (r *GroupRepo) GetByName(ctx context.Context, name string) (*domain.Group, error) {
	return r.scanGroup(r.readDB.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM acgs WHERE name = ?`, name))
}

func (r *GroupRepo) List(ctx context.Context) ([]domain.Group, error) {
	rows, err := r.readDB.QueryContext(ctx,
		`SELECT id, name, created_at FROM acgs ORDER BY name`)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close()

	groups := []domain.Group{}
	for rows.Next() {
		var g domain.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// Delete removes only the group row. Memberships and implant policies that
// reference the ID are left in place and simply stop matching.
func (r *GroupRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.writeDB.ExecContext(ctx, `DELETE FROM acgs WHERE id = ?`, id)
	if err != nil {
		return false, mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *GroupRepo) scanGroup(row *sql.Row) (*domain.Group, error) {
	var g domain.Group
	if err := row.Scan(&g.ID, &g.Name, &g.CreatedAt); err != nil {
		return nil, mapDBError(err)
	}
	return &g, nil
}
