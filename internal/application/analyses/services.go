package analyses

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"

	"github.com/pawankonwar/imagesight/internal/application"
	domain "github.com/pawankonwar/imagesight/internal/domain/analyses"
	"github.com/pawankonwar/imagesight/internal/domain/faults"
)

// Service implements the ingestion pipeline use-cases.
// Safe for concurrent use; all state lives behind the injected ports.
type Service struct {
	Repo   domain.Repository
	Blobs  domain.BlobStore
	Vision domain.Vision
	Faults faults.Repository
	Clock  application.Clock
}

// UploadCommand carries one raw upload through the pipeline.
type UploadCommand struct {
	Data        []byte
	ContentType string
	Ext         string
}

//
// ==== USE CASES ====
//

// AnalyzeUpload runs the full pipeline: store blob → vision model →
// normalize → persist record. Steps are strictly sequential with no retries.
// The blob is deliberately kept when a later stage fails: the image is still
// a valid upload even if its analysis never landed. Such failures are logged
// as faults instead.
func (s *Service) AnalyzeUpload(ctx context.Context, cmd UploadCommand) (*domain.Analysis, error) {
	if len(cmd.Data) == 0 {
		return nil, domain.ErrInvalidInput
	}

	locator, err := s.Blobs.Put(ctx, cmd.Data, cmd.ContentType, cmd.Ext)
	if err != nil {
		// nothing stored yet, nothing to compensate
		return nil, err
	}

	return s.analyzeAndPersist(ctx, locator, locator)
}

// AnalyzeInline runs the same pipeline on inline bytes without storing a
// blob: the image travels to the model as a base64 data URL and the record
// carries no locator.
func (s *Service) AnalyzeInline(ctx context.Context, data []byte, mimeType string) (*domain.Analysis, error) {
	if len(data) == 0 {
		return nil, domain.ErrInvalidInput
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	ref := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
	return s.analyzeAndPersist(ctx, ref, "")
}

// analyzeAndPersist covers the shared tail of both ingestion paths.
// imageRef goes to the model; locator (possibly empty) goes into the record.
func (s *Service) analyzeAndPersist(ctx context.Context, imageRef, locator string) (*domain.Analysis, error) {
	raw, err := s.Vision.Analyze(ctx, imageRef)
	if err != nil {
		s.recordFault(ctx, faults.StageAnalyze, err, locator)
		return nil, err
	}

	fields, err := domain.Normalize(raw)
	if err != nil {
		s.recordFault(ctx, faults.StageNormalize, err, locator)
		return nil, err
	}

	now := s.Clock.Now()
	rec := &domain.Analysis{
		Description:    fields.Description,
		Objects:        fields.Objects,
		Text:           fields.Text,
		DominantColors: fields.DominantColors,
		Category:       fields.Category,
		ImageURL:       locator,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.Repo.Create(ctx, rec); err != nil {
		// accepted leak: the blob outlives the failed record
		s.recordFault(ctx, faults.StagePersist, err, locator)
		return nil, err
	}
	return rec, nil
}

// Delete removes a record and, best-effort, its blob. Blob removal failure
// never blocks record deletion; an orphaned blob beats an undeletable row.
func (s *Service) Delete(ctx context.Context, id int64) error {
	rec, err := s.Repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if rec.ImageURL != "" {
		if err := s.Blobs.Remove(ctx, rec.ImageURL); err != nil {
			log.Printf("blob delete failed for analysis %d: %v", id, err)
			s.recordFault(ctx, faults.StageBlobDelete, err, rec.ImageURL)
		}
	}
	return s.Repo.Delete(ctx, id)
}

// History returns all records as the store ordered them, most recent first.
func (s *Service) History(ctx context.Context) ([]*domain.Analysis, error) {
	return s.Repo.ListAll(ctx)
}

// Get fetches one record by id.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Analysis, error) {
	return s.Repo.Get(ctx, id)
}

// RecentFaults lists the latest recorded pipeline faults.
func (s *Service) RecentFaults(ctx context.Context, limit int) ([]*faults.Fault, error) {
	return s.Faults.Latest(ctx, limit)
}

// recordFault writes a fault row best-effort; a failing fault log must never
// mask the original pipeline error.
func (s *Service) recordFault(ctx context.Context, stage string, cause error, locator string) {
	if s.Faults == nil {
		return
	}
	f := &faults.Fault{
		Stage:     stage,
		Message:   cause.Error(),
		ImageURL:  locator,
		CreatedAt: s.Clock.Now(),
	}
	if err := s.Faults.Save(ctx, f); err != nil {
		log.Printf("fault log write failed (stage=%s): %v", stage, err)
	}
}
