package storage

import (
	"context"
	"errors"
	"testing"
)

func TestWriteReadDelete(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}
	ctx := context.Background()

	key, err := store.Write(ctx, "/history/u1/b1/i1.png", []byte("png"))
	if err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if key != "history/u1/b1/i1.png" {
		t.Fatalf("canonical key = %q", key)
	}
	data, err := store.Read(ctx, key)
	if err != nil || string(data) != "png" {
		t.Fatalf("Read = %q, %v", data, err)
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := store.Read(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("deleting twice should succeed, got %v", err)
	}
}

func TestSanitizeKeyRejectsTraversal(t *testing.T) {
	for _, key := range []string{"", "  ", "../etc/passwd", "a/../../b", "."} {
		if _, err := sanitizeKey(key); err == nil {
			t.Fatalf("sanitizeKey(%q) should fail", key)
		}
	}
}

func TestImageKey(t *testing.T) {
	tests := []struct {
		mime string
		want string
	}{
		{mime: "image/png", want: "history/u1/b1/angle_1.png"},
		{mime: "image/jpeg", want: "history/u1/b1/angle_1.jpg"},
		{mime: "", want: "history/u1/b1/angle_1.png"},
	}
	for _, tc := range tests {
		if got := ImageKey("u1", "b1", "angle_1", tc.mime); got != tc.want {
			t.Fatalf("ImageKey(%q) = %q, want %q", tc.mime, got, tc.want)
		}
	}
	if got := ImageKey("../u1", "b1", "x", "image/png"); got != "history/__u1/b1/x.png" {
		t.Fatalf("ImageKey should neutralize traversal, got %q", got)
	}
}
