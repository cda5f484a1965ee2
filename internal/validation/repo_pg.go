package validation

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Upsert(ctx context.Context, rec Record) error {
	const query = `
INSERT INTO validation_records (owner_id, category, verdict, payload, summary, updated_at, updated_by)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (owner_id, category) DO UPDATE SET
  verdict = EXCLUDED.verdict,
  payload = EXCLUDED.payload,
  summary = EXCLUDED.summary,
  updated_at = EXCLUDED.updated_at,
  updated_by = EXCLUDED.updated_by`
	_, err := r.DB.ExecContext(ctx, query,
		rec.OwnerID,
		string(rec.Category),
		int(rec.Verdict),
		[]byte(rec.Payload),
		rec.Summary,
		rec.UpdatedAt,
		rec.UpdatedBy,
	)
	return err
}

const selectRecord = `
SELECT owner_id, category, verdict, payload, summary, updated_at, updated_by
FROM validation_records`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (Record, error) {
	var rec Record
	var category string
	var verdict int
	var payload []byte
	if err := s.Scan(&rec.OwnerID, &category, &verdict, &payload, &rec.Summary, &rec.UpdatedAt, &rec.UpdatedBy); err != nil {
		return Record{}, err
	}
	rec.Category = Category(category)
	rec.Verdict = Verdict(verdict)
	rec.Payload = payload
	return rec, nil
}

func (r *PGRepo) Get(ctx context.Context, ownerID string, category Category) (Record, error) {
	rec, err := scanRecord(r.DB.QueryRowContext(ctx, selectRecord+`
WHERE owner_id = $1 AND category = $2`, ownerID, string(category)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

func (r *PGRepo) ListByOwner(ctx context.Context, ownerID string) ([]Record, error) {
	rows, err := r.DB.QueryContext(ctx, selectRecord+`
WHERE owner_id = $1
ORDER BY category`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *PGRepo) ListOwnerIDs(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT DISTINCT owner_id FROM validation_records ORDER BY owner_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
