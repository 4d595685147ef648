package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestUploadAndDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFSStore(dir, "http://localhost:8080/media/")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	url, ref, err := s.Upload(ctx, FolderThumbnails, "Cover.PNG", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasPrefix(ref, "thumbnails/") || !strings.HasSuffix(ref, ".png") {
		t.Fatalf("unexpected ref %q", ref)
	}
	if url != "http://localhost:8080/media/"+ref {
		t.Fatalf("unexpected url %q", url)
	}
	b, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(ref)))
	if err != nil || string(b) != "png-bytes" {
		t.Fatalf("read back: %q %v", b, err)
	}

	if err := s.Delete(ctx, ref); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(ref))); !os.IsNotExist(err) {
		t.Fatalf("file still present: %v", err)
	}
	// deleting twice is fine
	if err := s.Delete(ctx, ref); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestUploadsGetDistinctRefs(t *testing.T) {
	s, _ := NewFSStore(t.TempDir(), "/media")
	_, a, _ := s.Upload(context.Background(), "contents", "a.mp4", strings.NewReader("1"))
	_, b, _ := s.Upload(context.Background(), "contents", "a.mp4", strings.NewReader("2"))
	if a == b {
		t.Fatalf("refs collide: %s", a)
	}
}

func TestDeleteRejectsTraversal(t *testing.T) {
	s, _ := NewFSStore(t.TempDir(), "/media")
	for _, ref := range []string{"../etc/passwd", "a/../../b", "/abs"} {
		if err := s.Delete(context.Background(), ref); err != ErrInvalidRef {
			t.Fatalf("%q: want ErrInvalidRef, got %v", ref, err)
		}
	}
}

func TestFolderIsSanitized(t *testing.T) {
	s, _ := NewFSStore(t.TempDir(), "/media")
	_, ref, err := s.Upload(context.Background(), "../../x", "f.txt", strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(ref, "x/") {
		t.Fatalf("unexpected ref %q", ref)
	}
}
