package mysql

import (
	"context"
	"database/sql"
	"errors"

	domain "github.com/pawankonwar/imagesight/internal/domain/analyses"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Create inserts the record and assigns the auto-increment id.
func (r *AnalysisRepository) Create(ctx context.Context, a *domain.Analysis) error {
	const q = `
INSERT INTO analyses
  (description, objects, text, dominant_colors, category, image_url, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?);
`
	objects, text, colors, err := encodeLists(a)
	if err != nil {
		return &domain.PersistenceError{Op: "create", Err: err}
	}
	res, err := r.db.ExecContext(ctx, q,
		a.Description, objects, text, colors, a.Category, a.ImageURL, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return &domain.PersistenceError{Op: "create", Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return &domain.PersistenceError{Op: "create", Err: err}
	}
	a.ID = id
	return nil
}

// ListAll returns every record, most recent first. No pagination: the
// history view consumes the full set.
func (r *AnalysisRepository) ListAll(ctx context.Context) ([]*domain.Analysis, error) {
	const q = `
SELECT id, description, objects, text, dominant_colors, category, image_url, created_at, updated_at
FROM analyses
ORDER BY created_at DESC, id DESC;
`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list", Err: err}
	}
	defer rows.Close()

	out := make([]*domain.Analysis, 0)
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, &domain.PersistenceError{Op: "list", Err: err}
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.PersistenceError{Op: "list", Err: err}
	}
	return out, nil
}

// Get fetches one record by id.
func (r *AnalysisRepository) Get(ctx context.Context, id int64) (*domain.Analysis, error) {
	const q = `
SELECT id, description, objects, text, dominant_colors, category, image_url, created_at, updated_at
FROM analyses
WHERE id=? LIMIT 1;
`
	a, err := scanAnalysis(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, &domain.PersistenceError{Op: "get", Err: err}
	}
	return a, nil
}

// Delete removes one record by id.
func (r *AnalysisRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM analyses WHERE id=?;`, id)
	if err != nil {
		return &domain.PersistenceError{Op: "delete", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &domain.PersistenceError{Op: "delete", Err: err}
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
