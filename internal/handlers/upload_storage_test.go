package handlers

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSafeDeleteUpload(t *testing.T) {
	dir := t.TempDir()
	prev := uploadRoot
	SetUploadRoot(dir)
	t.Cleanup(func() { uploadRoot = prev })

	coverDir := filepath.Join(dir, "uploads", "covers")
	if err := os.MkdirAll(coverDir, 0o755); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(coverDir, "cover.jpg")
	if err := os.WriteFile(target, []byte("img"), 0o644); err != nil {
		t.Fatal(err)
	}

	safeDeleteUpload("/public/uploads/covers/cover.jpg")

	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Fatal("expected file to be deleted")
	}
}

// Cover uploads carry a resized _thumb sibling; deleting the original must
// remove the thumbnail too or replaced covers leak files on disk.
func TestSafeDeleteUploadRemovesThumbnail(t *testing.T) {
	dir := t.TempDir()
	prev := uploadRoot
	SetUploadRoot(dir)
	t.Cleanup(func() { uploadRoot = prev })

	coverDir := filepath.Join(dir, "uploads", "covers")
	if err := os.MkdirAll(coverDir, 0o755); err != nil {
		t.Fatal(err)
	}
	original := filepath.Join(coverDir, "cover.png")
	thumb := filepath.Join(coverDir, "cover_thumb.png")
	for _, path := range []string{original, thumb} {
		if err := os.WriteFile(path, []byte("img"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	safeDeleteUpload("/public/uploads/covers/cover.png")

	if _, err := os.Stat(original); !os.IsNotExist(err) {
		t.Fatal("expected original to be deleted")
	}
	if _, err := os.Stat(thumb); !os.IsNotExist(err) {
		t.Fatal("expected thumbnail to be deleted with the original")
	}
}

func TestSafeDeleteUploadIgnoresUnsafePaths(t *testing.T) {
	dir := t.TempDir()
	prev := uploadRoot
	SetUploadRoot(dir)
	t.Cleanup(func() { uploadRoot = prev })

	outside := filepath.Join(dir, "..", "escape.txt")
	outside = filepath.Clean(outside)
	if err := os.WriteFile(outside, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Remove(outside) })

	safeDeleteUpload("/public/../escape.txt")
	safeDeleteUpload("/etc/passwd")
	safeDeleteUpload("")

	if _, err := os.Stat(outside); err != nil {
		t.Fatal("file outside the upload root must not be deleted")
	}
}
