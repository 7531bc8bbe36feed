package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"warden/internal/domain"
)

const (
	roleReadOnly = "read_only"
	roleOperator = "operator"
)

type ImplantRepo struct {
	writeDB *sql.DB
	readDB  *sql.DB
}

func NewImplantRepo(writeDB, readDB *sql.DB) *ImplantRepo {
	return &ImplantRepo{writeDB: writeDB, readDB: readDB}
}

// Upsert records a check-in. A new implant gets a fresh row with empty access
// control lists; an existing one keeps its lists and refreshes the beacon
// fields. The implant is always marked active afterwards.
func (r *ImplantRepo) Upsert(ctx context.Context, imp *domain.Implant) (*domain.Implant, error) {
	id := uuid.NewString()
	_, err := r.writeDB.ExecContext(ctx,
		`INSERT INTO implants (id, implant_id, ip, os, beacon_interval_seconds, last_checkin_at, is_active)
		 VALUES (?, ?, ?, ?, ?, ?, 1)
		 ON CONFLICT (implant_id) DO UPDATE SET
		   ip = excluded.ip,
		   os = excluded.os,
		   beacon_interval_seconds = excluded.beacon_interval_seconds,
		   last_checkin_at = excluded.last_checkin_at,
		   is_active = 1`,
		id, imp.ImplantID, imp.IP, imp.OS, imp.BeaconIntervalSeconds, imp.LastCheckinAt.UTC(),
	)
	if err != nil {
		return nil, mapDBError(err)
	}
	return r.GetByImplantID(ctx, imp.ImplantID)
}

func (r *ImplantRepo) GetByImplantID(ctx context.Context, implantID string) (*domain.Implant, error) {
	row := r.readDB.QueryRowContext(ctx,
		`SELECT id, implant_id, ip, os, beacon_interval_seconds, last_checkin_at, is_active
		 FROM implants WHERE implant_id = ?`, implantID)

	imp, err := scanImplant(row)
	if err != nil {
		return nil, err
	}
	if err := r.attachACGs(ctx, imp); err != nil {
		return nil, err
	}
	return imp, nil
}

func (r *ImplantRepo) List(ctx context.Context) ([]domain.Implant, error) {
	rows, err := r.readDB.QueryContext(ctx,
		`SELECT id, implant_id, ip, os, beacon_interval_seconds, last_checkin_at, is_active
		 FROM implants ORDER BY implant_id`)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close()

	implants := []domain.Implant{}
	for rows.Next() {
		imp, err := scanImplant(rows)
		if err != nil {
			return nil, err
		}
		implants = append(implants, *imp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range implants {
		if err := r.attachACGs(ctx, &implants[i]); err != nil {
			return nil, err
		}
	}
	return implants, nil
}

// SetACGs replaces both access control lists for the implant.
func (r *ImplantRepo) SetACGs(ctx context.Context, implantID string, readOnly, operator []string) error {
	tx, err := r.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var rowID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM implants WHERE implant_id = ?`, implantID).Scan(&rowID)
	if err != nil {
		return mapDBError(err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM implant_acgs WHERE implant_id = ?`, rowID); err != nil {
		return mapDBError(err)
	}
	for _, acg := range readOnly {
		if err := insertImplantACG(ctx, tx, rowID, acg, roleReadOnly); err != nil {
			return err
		}
	}
	for _, acg := range operator {
		if err := insertImplantACG(ctx, tx, rowID, acg, roleOperator); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *ImplantRepo) Delete(ctx context.Context, implantID string) error {
	_, err := r.writeDB.ExecContext(ctx,
		`DELETE FROM implants WHERE implant_id = ?`, implantID)
	return mapDBError(err)
}

// DeactivateStale marks implants inactive when the last check-in is more than
// graceMultiplier beacon intervals in the past.
func (r *ImplantRepo) DeactivateStale(ctx context.Context, now time.Time, graceMultiplier int64) (int64, error) {
	res, err := r.writeDB.ExecContext(ctx,
		`UPDATE implants SET is_active = 0
		 WHERE is_active = 1
		   AND CAST(strftime('%s', last_checkin_at) AS INTEGER) + beacon_interval_seconds * ? < ?`,
		graceMultiplier, now.UTC().Unix(),
	)
	if err != nil {
		return 0, mapDBError(err)
	}
	return res.RowsAffected()
}

func insertImplantACG(ctx context.Context, tx *sql.Tx, rowID, acg, role string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO implant_acgs (implant_id, acg_id, role) VALUES (?, ?, ?)`,
		rowID, acg, role)
	return mapDBError(err)
}

func (r *ImplantRepo) attachACGs(ctx context.Context, imp *domain.Implant) error {
	rows, err := r.readDB.QueryContext(ctx,
		`SELECT acg_id, role FROM implant_acgs WHERE implant_id = ? ORDER BY acg_id`, imp.ID)
	if err != nil {
		return mapDBError(err)
	}
	defer rows.Close()

	imp.ReadOnlyACGs = []string{}
	imp.OperatorACGs = []string{}
	for rows.Next() {
		var acg, role string
		if err := rows.Scan(&acg, &role); err != nil {
			return err
		}
		switch role {
		case roleReadOnly:
			imp.ReadOnlyACGs = append(imp.ReadOnlyACGs, acg)
		case roleOperator:
			imp.OperatorACGs = append(imp.OperatorACGs, acg)
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanImplant(row rowScanner) (*domain.Implant, error) {
	var (
		imp    domain.Implant
		active int
	)
	err := row.Scan(&imp.ID, &imp.ImplantID, &imp.IP, &imp.OS,
		&imp.BeaconIntervalSeconds, &imp.LastCheckinAt, &active)
	if err != nil {
		return nil, mapDBError(err)
	}
	imp.IsActive = active != 0
	return &imp, nil
}
