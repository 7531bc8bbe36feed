package repository

import (
	"context"
	"database/sql"
)

// AdminRepo tracks which user IDs hold the admin role. Presence of a row is
// the whole signal.
type AdminRepo struct {
	writeDB *sql.DB
	readDB  *sql.DB
}

func NewAdminRepo(writeDB, readDB *sql.DB) *AdminRepo {
	return &AdminRepo{writeDB: writeDB, readDB: readDB}
}

func (r *AdminRepo) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var n int
	err := r.readDB.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM admins WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return false, mapDBError(err)
	}
	return n > 0, nil
}

func (r *AdminRepo) Add(ctx context.Context, userID string) error {
	_, err := r.writeDB.ExecContext(ctx,
		`INSERT OR IGNORE INTO admins (user_id) VALUES (?)`, userID)
	return mapDBError(err)
}

func (r *AdminRepo) Remove(ctx context.Context, userID string) error {
	_, err := r.writeDB.ExecContext(ctx,
		`DELETE FROM admins WHERE user_id = ?`, userID)
	return mapDBError(err)
}

func (r *AdminRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.readDB.QueryRowContext(ctx, `SELECT COUNT(1) FROM admins`).Scan(&n)
	if err != nil {
		return 0, mapDBError(err)
	}
	return n, nil
}
