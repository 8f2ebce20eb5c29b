package analyses

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	domain "github.com/pawankonwar/imagesight/internal/domain/analyses"
	"github.com/pawankonwar/imagesight/internal/domain/faults"
)

//
// ==== fakes ====
//

type fakeRepo struct {
	records    map[int64]*domain.Analysis
	nextID     int64
	failCreate bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[int64]*domain.Analysis)}
}

func (f *fakeRepo) Create(ctx context.Context, a *domain.Analysis) error {
	if f.failCreate {
		return &domain.PersistenceError{Op: "create", Err: errors.New("db down")}
	}
	f.nextID++
	a.ID = f.nextID
	cp := *a
	f.records[a.ID] = &cp
	return nil
}

func (f *fakeRepo) ListAll(ctx context.Context) ([]*domain.Analysis, error) {
	out := make([]*domain.Analysis, 0, len(f.records))
	for _, a := range f.records {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (f *fakeRepo) Get(ctx context.Context, id int64) (*domain.Analysis, error) {
	a, ok := f.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return a, nil
}

func (f *fakeRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := f.records[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.records, id)
	return nil
}

type fakeBlobs struct {
	puts       int
	removed    []string
	failPut    bool
	failRemove bool
}

func (f *fakeBlobs) Put(ctx context.Context, data []byte, contentType, ext string) (string, error) {
	if f.failPut {
		return "", &domain.StorageWriteError{Err: errors.New("minio down")}
	}
	f.puts++
	return fmt.Sprintf("http://minio.local/images/uploads/%d%s", f.puts, ext), nil
}

func (f *fakeBlobs) Remove(ctx context.Context, locator string) error {
	if f.failRemove {
		return &domain.StorageDeleteError{Locator: locator, Err: errors.New("minio down")}
	}
	f.removed = append(f.removed, locator)
	return nil
}

type fakeVision struct {
	raw    string
	err    error
	gotRef string
	calls  int
}

func (f *fakeVision) Analyze(ctx context.Context, imageRef string) (string, error) {
	f.calls++
	f.gotRef = imageRef
	if f.err != nil {
		return "", f.err
	}
	return f.raw, nil
}

type fakeFaults struct {
	saved []*faults.Fault
}

func (f *fakeFaults) Save(ctx context.Context, fl *faults.Fault) error {
	fl.ID = int64(len(f.saved) + 1)
	f.saved = append(f.saved, fl)
	return nil
}

func (f *fakeFaults) Latest(ctx context.Context, limit int) ([]*faults.Fault, error) {
	return f.saved, nil
}

type tickingClock struct {
	t time.Time
}

func (c *tickingClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

const goodRaw = `{"description":"a cat","objects":[{"name":"cat","confidence":0.9}],"text":["hi"],"dominant_colors":["#112233"],"category":"animal"}`

func newService(repo *fakeRepo, blobs *fakeBlobs, vision *fakeVision, fl *fakeFaults) *Service {
	return &Service{
		Repo:   repo,
		Blobs:  blobs,
		Vision: vision,
		Faults: fl,
		Clock:  &tickingClock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
	}
}

//
// ==== upload pipeline ====
//

func TestAnalyzeUpload_HappyPath(t *testing.T) {
	repo := newFakeRepo()
	blobs := &fakeBlobs{}
	vision := &fakeVision{raw: goodRaw}
	svc := newService(repo, blobs, vision, &fakeFaults{})

	rec, err := svc.AnalyzeUpload(context.Background(), UploadCommand{
		Data: []byte("img"), ContentType: "image/jpeg", Ext: ".jpg",
	})
	if err != nil {
		t.Fatalf("AnalyzeUpload failed: %v", err)
	}
	if rec.ID == 0 {
		t.Error("expected assigned id")
	}
	if rec.ImageURL == "" {
		t.Error("expected locator on record")
	}
	if vision.gotRef != rec.ImageURL {
		t.Errorf("model got %q, want the locator %q", vision.gotRef, rec.ImageURL)
	}
	if rec.Description == nil || *rec.Description != "a cat" {
		t.Errorf("description = %v", rec.Description)
	}
	if rec.CreatedAt.IsZero() || !rec.CreatedAt.Equal(rec.UpdatedAt) {
		t.Errorf("timestamps not set on create: %v / %v", rec.CreatedAt, rec.UpdatedAt)
	}

	// round trip: stored record matches what was returned
	got, err := repo.Get(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ImageURL != rec.ImageURL || len(got.Objects) != 1 || got.Objects[0].Name != "cat" {
		t.Errorf("stored record differs: %+v", got)
	}
}

func TestAnalyzeUpload_EmptyInput(t *testing.T) {
	svc := newService(newFakeRepo(), &fakeBlobs{}, &fakeVision{raw: goodRaw}, &fakeFaults{})
	if _, err := svc.AnalyzeUpload(context.Background(), UploadCommand{}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAnalyzeUpload_StorageFailure(t *testing.T) {
	repo := newFakeRepo()
	vision := &fakeVision{raw: goodRaw}
	svc := newService(repo, &fakeBlobs{failPut: true}, vision, &fakeFaults{})

	_, err := svc.AnalyzeUpload(context.Background(), UploadCommand{Data: []byte("img")})
	var werr *domain.StorageWriteError
	if !errors.As(err, &werr) {
		t.Fatalf("expected StorageWriteError, got %v", err)
	}
	if vision.calls != 0 {
		t.Error("model must not be called when storage fails")
	}
	if len(repo.records) != 0 {
		t.Error("no record may exist after storage failure")
	}
}

func TestAnalyzeUpload_ModelFailureKeepsBlob(t *testing.T) {
	repo := newFakeRepo()
	blobs := &fakeBlobs{}
	fl := &fakeFaults{}
	svc := newService(repo, blobs, &fakeVision{err: &domain.ModelUnavailableError{Err: errors.New("timeout")}}, fl)

	_, err := svc.AnalyzeUpload(context.Background(), UploadCommand{Data: []byte("img")})
	var uerr *domain.ModelUnavailableError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected ModelUnavailableError, got %v", err)
	}
	if blobs.puts != 1 || len(blobs.removed) != 0 {
		t.Error("blob must be kept when analysis fails")
	}
	if len(repo.records) != 0 {
		t.Error("no record may exist after analysis failure")
	}
	if len(fl.saved) != 1 || fl.saved[0].Stage != faults.StageAnalyze {
		t.Errorf("expected one analyze fault, got %+v", fl.saved)
	}
}

func TestAnalyzeUpload_MalformedResponseKeepsBlob(t *testing.T) {
	repo := newFakeRepo()
	blobs := &fakeBlobs{}
	fl := &fakeFaults{}
	svc := newService(repo, blobs, &fakeVision{raw: "certainly, no json though"}, fl)

	_, err := svc.AnalyzeUpload(context.Background(), UploadCommand{Data: []byte("img")})
	var merr *domain.MalformedAnalysisError
	if !errors.As(err, &merr) {
		t.Fatalf("expected MalformedAnalysisError, got %v", err)
	}
	if merr.Raw != "certainly, no json though" {
		t.Errorf("raw text not retained: %q", merr.Raw)
	}
	if blobs.puts != 1 || len(blobs.removed) != 0 {
		t.Error("blob must be kept when normalization fails")
	}
	if len(fl.saved) != 1 || fl.saved[0].Stage != faults.StageNormalize {
		t.Errorf("expected one normalize fault, got %+v", fl.saved)
	}
}

func TestAnalyzeUpload_PersistFailureKeepsBlob(t *testing.T) {
	repo := newFakeRepo()
	repo.failCreate = true
	blobs := &fakeBlobs{}
	fl := &fakeFaults{}
	svc := newService(repo, blobs, &fakeVision{raw: goodRaw}, fl)

	_, err := svc.AnalyzeUpload(context.Background(), UploadCommand{Data: []byte("img")})
	var perr *domain.PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if len(blobs.removed) != 0 {
		t.Error("blob cleanup is out of scope for persistence failure")
	}
	if len(fl.saved) != 1 || fl.saved[0].Stage != faults.StagePersist {
		t.Errorf("expected one persist fault, got %+v", fl.saved)
	}
}

func TestAnalyzeUpload_DistinctIDs(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo, &fakeBlobs{}, &fakeVision{raw: goodRaw}, &fakeFaults{})

	a, err := svc.AnalyzeUpload(context.Background(), UploadCommand{Data: []byte("img")})
	if err != nil {
		t.Fatal(err)
	}
	b, err := svc.AnalyzeUpload(context.Background(), UploadCommand{Data: []byte("img")})
	if err != nil {
		t.Fatal(err)
	}
	if a.ID == b.ID {
		t.Fatalf("ids must be distinct, both %d", a.ID)
	}
	list, _ := svc.History(context.Background())
	if len(list) != 2 {
		t.Fatalf("expected both records in history, got %d", len(list))
	}
}

func TestHistory_MostRecentFirst(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo, &fakeBlobs{}, &fakeVision{raw: goodRaw}, &fakeFaults{})

	for i := 0; i < 3; i++ {
		if _, err := svc.AnalyzeUpload(context.Background(), UploadCommand{Data: []byte("img")}); err != nil {
			t.Fatal(err)
		}
	}
	list, err := svc.History(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(list); i++ {
		if list[i].CreatedAt.After(list[i-1].CreatedAt) {
			t.Fatalf("history not in descending created_at order: %v after %v",
				list[i].CreatedAt, list[i-1].CreatedAt)
		}
	}
}

//
// ==== inline analyze ====
//

func TestAnalyzeInline_UsesDataURL(t *testing.T) {
	repo := newFakeRepo()
	blobs := &fakeBlobs{}
	vision := &fakeVision{raw: goodRaw}
	svc := newService(repo, blobs, vision, &fakeFaults{})

	rec, err := svc.AnalyzeInline(context.Background(), []byte("img"), "image/png")
	if err != nil {
		t.Fatalf("AnalyzeInline failed: %v", err)
	}
	if !strings.HasPrefix(vision.gotRef, "data:image/png;base64,") {
		t.Errorf("model ref = %q, want data URL", vision.gotRef)
	}
	if rec.ImageURL != "" {
		t.Errorf("inline analysis must not carry a locator, got %q", rec.ImageURL)
	}
	if blobs.puts != 0 {
		t.Error("inline analysis must not store a blob")
	}
}

//
// ==== delete ====
//

func TestDelete_RemovesBlobAndRecord(t *testing.T) {
	repo := newFakeRepo()
	blobs := &fakeBlobs{}
	svc := newService(repo, blobs, &fakeVision{raw: goodRaw}, &fakeFaults{})

	rec, err := svc.AnalyzeUpload(context.Background(), UploadCommand{Data: []byte("img")})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(context.Background(), rec.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if len(blobs.removed) != 1 || blobs.removed[0] != rec.ImageURL {
		t.Errorf("blob not removed: %v", blobs.removed)
	}
	if _, err := svc.Get(context.Background(), rec.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("record still present after delete: %v", err)
	}
}

func TestDelete_BlobFailureStillDeletesRecord(t *testing.T) {
	repo := newFakeRepo()
	blobs := &fakeBlobs{}
	fl := &fakeFaults{}
	svc := newService(repo, blobs, &fakeVision{raw: goodRaw}, fl)

	rec, err := svc.AnalyzeUpload(context.Background(), UploadCommand{Data: []byte("img")})
	if err != nil {
		t.Fatal(err)
	}
	blobs.failRemove = true

	if err := svc.Delete(context.Background(), rec.ID); err != nil {
		t.Fatalf("Delete must not fail on blob removal: %v", err)
	}
	if _, err := svc.Get(context.Background(), rec.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Error("record must be deleted even when blob removal fails")
	}
	if len(fl.saved) != 1 || fl.saved[0].Stage != faults.StageBlobDelete {
		t.Errorf("expected one blob-delete fault, got %+v", fl.saved)
	}
}

func TestDelete_UnknownID(t *testing.T) {
	svc := newService(newFakeRepo(), &fakeBlobs{}, &fakeVision{raw: goodRaw}, &fakeFaults{})
	if err := svc.Delete(context.Background(), 42); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete_NoLocatorSkipsBlobStore(t *testing.T) {
	repo := newFakeRepo()
	blobs := &fakeBlobs{failRemove: true}
	svc := newService(repo, blobs, &fakeVision{raw: goodRaw}, &fakeFaults{})

	rec, err := svc.AnalyzeInline(context.Background(), []byte("img"), "")
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(context.Background(), rec.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
}
