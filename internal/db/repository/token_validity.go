package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// TokenValidityRepo stores the per-user floor on token issuance time as unix
// milliseconds. No row means no floor.
type TokenValidityRepo struct {
	writeDB *sql.DB
	readDB  *sql.DB
}

func NewTokenValidityRepo(writeDB, readDB *sql.DB) *TokenValidityRepo {
	return &TokenValidityRepo{writeDB: writeDB, readDB: readDB}
}

func (r *TokenValidityRepo) MinValidity(ctx context.Context, userID string) (time.Time, error) {
	var ms int64
	err := r.readDB.QueryRowContext(ctx,
		`SELECT min_token_validity FROM token_validity WHERE user_id = ?`, userID).Scan(&ms)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, mapDBError(err)
	}
	return time.UnixMilli(ms).UTC(), nil
}

// Advance raises the floor to the given instant. MAX() in the upsert keeps
// the floor monotonic under concurrent revocations.
func (r *TokenValidityRepo) Advance(ctx context.Context, userID string, to time.Time) error {
	_, err := r.writeDB.ExecContext(ctx,
		`INSERT INTO token_validity (user_id, min_token_validity) VALUES (?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
		   min_token_validity = MAX(min_token_validity, excluded.min_token_validity)`,
		userID, to.UnixMilli(),
	)
	return mapDBError(err)
}

func (r *TokenValidityRepo) Delete(ctx context.Context, userID string) error {
	_, err := r.writeDB.ExecContext(ctx,
		`DELETE FROM token_validity WHERE user_id = ?`, userID)
	return mapDBError(err)
}
