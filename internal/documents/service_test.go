package documents

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"tenant-validation/internal/shared/storage/object"
	"tenant-validation/internal/shared/storage/object/local"
)

func newTestService(t *testing.T) (*Service, *local.Store) {
	t.Helper()
	store := local.New(t.TempDir())
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &Service{
		Store:      store,
		Repo:       NewMemoryRepo(),
		Classifier: newTestClassifier(t),
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
	}, store
}

func TestUploadSupersedesSingularRole(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	first, err := svc.Upload(ctx, "owner-1", "ine_frontal", "ine.jpg", strings.NewReader("first"))
	if err != nil {
		t.Fatalf("first upload: %v", err)
	}
	second, err := svc.Upload(ctx, "owner-1", "identificacion frontal", "ine2.jpg", strings.NewReader("second"))
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if second.Role != RoleIDFront {
		t.Fatalf("expected id_front, got %s", second.Role)
	}

	docs, err := svc.List(ctx, "owner-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != second.ID {
		t.Fatalf("expected only the replacement, got %+v", docs)
	}

	if _, err := store.Open(ctx, first.StorageKey); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected old blob deleted, got %v", err)
	}
	rc, err := store.Open(ctx, second.StorageKey)
	if err != nil {
		t.Fatalf("open new blob: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != "second" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestUploadAccumulatesIncomeProofs(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	for _, name := range []string{"enero.pdf", "febrero.pdf", "marzo.pdf"} {
		if _, err := svc.Upload(ctx, "owner-2", "comprobante_ingresos", name, strings.NewReader("%PDF-1.4")); err != nil {
			t.Fatalf("upload %s: %v", name, err)
		}
	}
	classified, err := svc.Current(ctx, "owner-2")
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if len(classified.IncomeProofs) != 3 || classified.IncomeProofs[0].FileName != "enero.pdf" {
		t.Fatalf("unexpected income proofs %+v", classified.IncomeProofs)
	}
	if !classified.IncomeProofs[0].IsPDF() {
		t.Fatalf("expected pdf mime, got %s", classified.IncomeProofs[0].MimeType)
	}
}

func TestUploadRejectsBadInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	cases := []struct{ owner, tag, name string }{
		{"", "selfie", "a.jpg"},
		{"o", "", "a.jpg"},
		{"o", "selfie", " "},
		{"o", "selfie", "../a.jpg"},
	}
	for _, c := range cases {
		if _, err := svc.Upload(ctx, c.owner, c.tag, c.name, strings.NewReader("x")); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Upload(%q,%q,%q) = %v, want ErrInvalidInput", c.owner, c.tag, c.name, err)
		}
	}
}

type failingRepo struct{ *MemoryRepo }

func (failingRepo) Create(context.Context, Document) error { return errors.New("db down") }

func TestUploadCleansBlobWhenRowFails(t *testing.T) {
	dir := t.TempDir()
	store := local.New(dir)
	svc := &Service{Store: store, Repo: failingRepo{NewMemoryRepo()}, Classifier: newTestClassifier(t)}
	if _, err := svc.Upload(context.Background(), "o", "selfie", "me.jpg", strings.NewReader("x")); err == nil {
		t.Fatalf("expected error")
	}
	entries, err := filepathGlob(dir)
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no blobs left, got %v", entries)
	}
}
