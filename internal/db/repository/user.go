package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"warden/internal/domain"
)

type UserRepo struct {
	writeDB *sql.DB
	readDB  *sql.DB
}

func NewUserRepo(writeDB, readDB *sql.DB) *UserRepo {
	return &UserRepo{writeDB: writeDB, readDB: readDB}
}

func (r *UserRepo) Create(ctx context.Context, name, passwordHash string) (*domain.User, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	_, err := r.writeDB.ExecContext(ctx,
		`INSERT INTO users (id, name, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		id, name, passwordHash, now,
	)
	if err != nil {
		return nil, mapDBError(err)
	}

	return &domain.User{ID: id, Name: name, ACGs: []string{}, CreatedAt: now}, nil
}

func (r *UserRepo) GetByName(ctx context.Context, name string) (*domain.User, error) {
	row := r.readDB.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM users WHERE name = ?`, name)
	return r.scanUser(ctx, row)
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.readDB.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM users WHERE id = ?`, id)
	return r.scanUser(ctx, row)
}

func (r *UserRepo) GetCredentialsByName(ctx context.Context, name string) (*domain.UserCredentials, error) {
	row := r.readDB.QueryRowContext(ctx,
		`SELECT id, name, password_hash, created_at FROM users WHERE name = ?`, name)

	var creds domain.UserCredentials
	if err := row.Scan(&creds.ID, &creds.Name, &creds.PasswordHash, &creds.CreatedAt); err != nil {
		return nil, mapDBError(err)
	}

	acgs, err := r.acgsFor(ctx, creds.ID)
	if err != nil {
		return nil, err
	}
	creds.ACGs = acgs
	return &creds, nil
}

func (r *UserRepo) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	res, err := r.writeDB.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id)
	if err != nil {
		return mapDBError(err)
	}
	return requireRowAffected(res, "user not found")
}

// SetACGs replaces the user's group memberships with the given set.
func (r *UserRepo) SetACGs(ctx context.Context, id string, acgs []string) error {
	tx, err := r.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM users WHERE id = ?`, id).Scan(&exists); err != nil {
		return mapDBError(err)
	}
	if exists == 0 {
		return domain.ErrNotFound("user %s not found", id)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_acgs WHERE user_id = ?`, id); err != nil {
		return mapDBError(err)
	}
	for _, acg := range acgs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO user_acgs (user_id, acg_id) VALUES (?, ?)`, id, acg); err != nil {
			return mapDBError(err)
		}
	}

	return tx.Commit()
}

func (r *UserRepo) Delete(ctx context.Context, id string) error {
	_, err := r.writeDB.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	return mapDBError(err)
}

func (r *UserRepo) scanUser(ctx context.Context, row *sql.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Name, &u.CreatedAt); err != nil {
		return nil, mapDBError(err)
	}
	acgs, err := r.acgsFor(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.ACGs = acgs
	return &u, nil
}

func (r *UserRepo) acgsFor(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.readDB.QueryContext(ctx,
		`SELECT acg_id FROM user_acgs WHERE user_id = ? ORDER BY acg_id`, userID)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close()

	acgs := []string{}
	for rows.Next() {
		var acg string
		if err := rows.Scan(&acg); err != nil {
			return nil, err
		}
		acgs = append(acgs, acg)
	}
	return acgs, rows.Err()
}

func requireRowAffected(res sql.Result, msg string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("%s", msg)
	}
	return nil
}
