package history

import (
	"context"
	"errors"
	"testing"

	"setka/internal/domain"
	"setka/internal/generation"
	"setka/internal/providers/image"
	"setka/internal/storage"
)

type memRepo struct {
	entries []domain.HistoryEntry
	err     error
}

func (m *memRepo) Insert(_ context.Context, e *domain.HistoryEntry) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memRepo) Get(context.Context, string, string) (*domain.HistoryEntry, error) {
	return nil, domain.ErrNotFound
}

func (m *memRepo) ListByUser(context.Context, string, int) ([]domain.HistoryEntry, error) {
	return m.entries, nil
}

func (m *memRepo) Delete(context.Context, string, string) (*domain.HistoryEntry, error) {
	return nil, domain.ErrNotFound
}

func success(id string) generation.Result {
	return generation.Result{
		ID:          id,
		BatchID:     "b1",
		Status:      generation.StatusSuccess,
		Prompt:      "fox",
		AspectRatio: domain.AspectSquare,
		Provider:    "gemini",
		Image:       &image.Asset{Data: []byte("png-bytes"), MIMEType: "image/png"},
	}
}

func TestSinkRecordsSuccess(t *testing.T) {
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}
	repo := &memRepo{}
	sink := NewSink(store, repo, "u1", nil)
	sink.newID = func() string { return "h1" }

	sink.Publish(generation.Result{ID: "p", Status: generation.StatusPending})
	sink.Publish(generation.Result{ID: "e", Status: generation.StatusError, Reason: "boom"})
	sink.Publish(success("angle_1"))

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(repo.entries))
	}
	e := repo.entries[0]
	if e.ID != "h1" || e.StorageKey != "history/u1/b1/angle_1.png" || e.Prompt != "fox" || e.UserID != "u1" {
		t.Fatalf("unexpected entry %+v", e)
	}
	data, err := store.Read(context.Background(), e.StorageKey)
	if err != nil || string(data) != "png-bytes" {
		t.Fatalf("stored image = %q, %v", data, err)
	}
}

type failingBlobs struct{}

func (failingBlobs) Write(context.Context, string, []byte) (string, error) {
	return "", errors.New("disk full")
}

func TestSinkSwallowsFailures(t *testing.T) {
	repo := &memRepo{}
	NewSink(failingBlobs{}, repo, "u1", nil).Publish(success("x"))
	if len(repo.entries) != 0 {
		t.Fatal("nothing should be inserted when the image cannot be stored")
	}

	store, _ := storage.NewFileStore(t.TempDir())
	NewSink(store, &memRepo{err: errors.New("db down")}, "u1", nil).Publish(success("y"))
}
