package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStorage(t *testing.T) (Storage, string) {
	t.Helper()
	rootDir := t.TempDir()
	s, err := New(rootDir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s, rootDir
}

func TestNew(t *testing.T) {
	s, rootDir := newTestStorage(t)
	if s == nil {
		t.Fatal("New() returned nil storage")
	}

	contentDir := filepath.Join(rootDir, "storage", "content", ContentHashAlgorithm)
	if _, err := os.Stat(contentDir); os.IsNotExist(err) {
		t.Errorf("content directory not created: %s", contentDir)
	}
}

func TestDigestHelpers(t *testing.T) {
	digest := ContentDigest("0123456789abcdef")
	if digest != "xxh3:0123456789abcdef" {
		t.Errorf("ContentDigest() = %v", digest)
	}

	if got := ParseFilenameFromDigest(digest); got != "0123456789abcdef" {
		t.Errorf("ParseFilenameFromDigest() = %v", got)
	}

	if got := ParseFilenameFromDigest("plain"); got != "plain" {
		t.Errorf("ParseFilenameFromDigest() without algorithm = %v", got)
	}
}

func TestStorage_WriteContent(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()

	info, err := s.WriteContent(ctx, strings.NewReader("avatar bytes"))
	if err != nil {
		t.Fatalf("WriteContent() error = %v", err)
	}

	if info.Size() != int64(len("avatar bytes")) {
		t.Errorf("WriteContent() size = %d", info.Size())
	}

	if len(info.Name()) != 16 {
		t.Errorf("WriteContent() name = %q, want 16 hex characters", info.Name())
	}

	// Identical bodies share a file.
	again, err := s.WriteContent(ctx, strings.NewReader("avatar bytes"))
	if err != nil {
		t.Fatalf("WriteContent() error = %v", err)
	}
	if again.Name() != info.Name() {
		t.Errorf("identical content got different names %q and %q", info.Name(), again.Name())
	}

	if got, want := Digest([]byte("avatar bytes")), ContentDigest(info.Name()); got != want {
		t.Errorf("Digest() = %v, want %v", got, want)
	}

	other, err := s.WriteContent(ctx, strings.NewReader("other bytes"))
	if err != nil {
		t.Fatalf("WriteContent() error = %v", err)
	}
	if other.Name() == info.Name() {
		t.Error("different content got the same name")
	}
}

func TestStorage_WriteContentLeavesNoTempFiles(t *testing.T) {
	s, rootDir := newTestStorage(t)
	ctx := context.Background()

	for range 3 {
		if _, err := s.WriteContent(ctx, strings.NewReader("same")); err != nil {
			t.Fatalf("WriteContent() error = %v", err)
		}
	}

	matches, err := filepath.Glob(filepath.Join(rootDir, "storage", "content", ContentHashAlgorithm, TempContentPattern))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Errorf("temporary files left behind: %v", matches)
	}
}

func TestStorage_StatAndReadContent(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()

	info, err := s.WriteContent(ctx, bytes.NewReader([]byte{0x89, 'P', 'N', 'G'}))
	if err != nil {
		t.Fatalf("WriteContent() error = %v", err)
	}

	if _, err := s.StatContent(ctx, info.Name()); err != nil {
		t.Fatalf("StatContent() error = %v", err)
	}

	data, err := s.ReadContent(ctx, info.Name())
	if err != nil {
		t.Fatalf("ReadContent() error = %v", err)
	}
	if !bytes.Equal(data, []byte{0x89, 'P', 'N', 'G'}) {
		t.Errorf("ReadContent() = %v", data)
	}

	if _, err := s.StatContent(ctx, "missing"); !os.IsNotExist(err) {
		t.Errorf("StatContent() on missing content error = %v", err)
	}
}

func TestStorage_RejectsEscapingFilenames(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()

	for _, name := range []string{"", "../escape", "a/b", ".content-123"} {
		if _, err := s.ReadContent(ctx, name); err == nil {
			t.Errorf("ReadContent(%q) expected error", name)
		}
		if err := s.Prune(ctx, name); err == nil {
			t.Errorf("Prune(%q) expected error", name)
		}
	}
}

func TestStorage_GetContentPath(t *testing.T) {
	s, rootDir := newTestStorage(t)

	path := s.GetContentPath(context.Background(), "test123")
	expectedPath := filepath.Join(rootDir, "storage", "content", ContentHashAlgorithm, "test123")
	if path != expectedPath {
		t.Errorf("GetContentPath() = %v, want %v", path, expectedPath)
	}
}

func TestStorage_Export(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()

	info, err := s.WriteContent(ctx, strings.NewReader("exported avatar"))
	if err != nil {
		t.Fatalf("WriteContent() error = %v", err)
	}

	dest := filepath.Join(t.TempDir(), "nested", "avatar.png")
	if err := s.Export(ctx, info.Name(), dest); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("failed to read exported file: %v", err)
	}
	if string(data) != "exported avatar" {
		t.Errorf("exported content = %q", data)
	}

	if err := s.Export(ctx, "missing", filepath.Join(t.TempDir(), "x")); err == nil {
		t.Error("Export() of missing content expected error")
	}
}

func TestStorage_PruneAndSize(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()

	if err := s.Prune(ctx, "nonexistent"); err != nil {
		t.Errorf("Prune() on non-existent file error = %v", err)
	}

	a, err := s.WriteContent(ctx, strings.NewReader("aaaa"))
	if err != nil {
		t.Fatalf("WriteContent() error = %v", err)
	}
	if _, err := s.WriteContent(ctx, strings.NewReader("bbbbbb")); err != nil {
		t.Fatalf("WriteContent() error = %v", err)
	}

	size, err := s.Size(ctx)
	if err != nil {
		t.Fatalf("Size() error = %v", err)
	}
	if size != 10 {
		t.Errorf("Size() = %d, want 10", size)
	}

	if err := s.Prune(ctx, a.Name()); err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if _, err := s.StatContent(ctx, a.Name()); !os.IsNotExist(err) {
		t.Errorf("content still exists after prune")
	}

	size, err = s.Size(ctx)
	if err != nil {
		t.Fatalf("Size() error = %v", err)
	}
	if size != 6 {
		t.Errorf("Size() after prune = %d, want 6", size)
	}
}
