package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/pawankonwar/imagesight/internal/domain/faults"
)

type FaultRepository struct {
	db *sql.DB
}

func NewFaultRepository(db *sql.DB) *FaultRepository { return &FaultRepository{db: db} }

func (r *FaultRepository) Save(ctx context.Context, f *faults.Fault) error {
	const q = `
INSERT INTO analysis_faults (stage, message, image_url, created_at)
VALUES (?,?,?,?);
`
	created := f.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	res, err := r.db.ExecContext(ctx, q, f.Stage, f.Message, f.ImageURL, created)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		f.ID = id
	}
	return nil
}

func (r *FaultRepository) Latest(ctx context.Context, limit int) ([]*faults.Fault, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, stage, message, image_url, created_at
FROM analysis_faults
ORDER BY created_at DESC, id DESC
LIMIT ?;
`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*faults.Fault, 0)
	for rows.Next() {
		var f faults.Fault
		if err := rows.Scan(&f.ID, &f.Stage, &f.Message, &f.ImageURL, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}
