package documents

import (
	"context"
	"database/sql"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO tenant_documents (
    id,
    owner_id,
    role,
    type_tag,
    file_name,
    storage_key,
    mime_type,
    size_bytes,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.DB.ExecContext(ctx, query,
		doc.ID,
		doc.OwnerID,
		string(doc.Role),
		doc.TypeTag,
		doc.FileName,
		doc.StorageKey,
		doc.MimeType,
		doc.SizeBytes,
		doc.CreatedAt,
	)
	return err
}

func (r *PGRepo) ListCurrent(ctx context.Context, ownerID string) ([]Document, error) {
	const query = `
SELECT id, owner_id, role, type_tag, file_name, storage_key, mime_type, size_bytes, created_at
FROM tenant_documents
WHERE owner_id = $1 AND superseded_at IS NULL
ORDER BY created_at ASC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var doc Document
		var role string
		if err := rows.Scan(
			&doc.ID,
			&doc.OwnerID,
			&role,
			&doc.TypeTag,
			&doc.FileName,
			&doc.StorageKey,
			&doc.MimeType,
			&doc.SizeBytes,
			&doc.CreatedAt,
		); err != nil {
			return nil, err
		}
		doc.Role = Role(role)
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (r *PGRepo) Supersede(ctx context.Context, ownerID, documentID string, at time.Time) error {
	const query = `
UPDATE tenant_documents
SET superseded_at = COALESCE(superseded_at, $3)
WHERE owner_id = $1 AND id = $2`
	res, err := r.DB.ExecContext(ctx, query, ownerID, documentID, at)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
