package postgres

import (
	"encoding/json"

	domain "github.com/pawankonwar/imagesight/internal/domain/analyses"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// encodeLists marshals the slice-valued fields into their JSONB columns,
// storing empty arrays in place of nil slices.
func encodeLists(a *domain.Analysis) (objects, text, colors []byte, err error) {
	objs := a.Objects
	if objs == nil {
		objs = []domain.DetectedObject{}
	}
	lines := a.Text
	if lines == nil {
		lines = []string{}
	}
	cols := a.DominantColors
	if cols == nil {
		cols = []string{}
	}
	if objects, err = json.Marshal(objs); err != nil {
		return nil, nil, nil, err
	}
	if text, err = json.Marshal(lines); err != nil {
		return nil, nil, nil, err
	}
	if colors, err = json.Marshal(cols); err != nil {
		return nil, nil, nil, err
	}
	return objects, text, colors, nil
}

// scanAnalysis decodes one row, defaulting JSONB columns to empty slices.
func scanAnalysis(rs rowScanner) (*domain.Analysis, error) {
	var a domain.Analysis
	var objects, text, colors []byte
	if err := rs.Scan(
		&a.ID, &a.Description, &objects, &text, &colors,
		&a.Category, &a.ImageURL, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.Objects = []domain.DetectedObject{}
	a.Text = []string{}
	a.DominantColors = []string{}
	if len(objects) > 0 {
		_ = json.Unmarshal(objects, &a.Objects)
	}
	if len(text) > 0 {
		_ = json.Unmarshal(text, &a.Text)
	}
	if len(colors) > 0 {
		_ = json.Unmarshal(colors, &a.DominantColors)
	}
	return &a, nil
}
