package bagit

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHashReaderMultipleAlgorithms(t *testing.T) {
	digests, n, err := HashReader(strings.NewReader("hello world"), []string{"md5", "sha256"})
	if err != nil {
		t.Fatalf("HashReader: %v", err)
	}
	if n != int64(len("hello world")) {
		t.Errorf("n = %d, want %d", n, len("hello world"))
	}
	if digests["md5"] != "5eb63bbbe01eeed093cb22bb8f5acdc3" {
		t.Errorf("md5 = %s", digests["md5"])
	}
	if digests["sha256"] != "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9" {
		t.Errorf("sha256 = %s", digests["sha256"])
	}
}

func TestHasherPoolHashFilesStrict(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "a.txt"), "hello")
	writeTestFile(t, filepath.Join(dir, "b.txt"), "world")

	pool := &HasherPool{Processes: 2}
	tasks := []hashTask{
		{Path: filepath.Join(dir, "a.txt"), Key: "data/a.txt"},
		{Path: filepath.Join(dir, "b.txt"), Key: "data/b.txt"},
	}
	results, err := pool.HashFiles(context.Background(), tasks, []string{"md5"})
	if err != nil {
		t.Fatalf("HashFiles: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if _, ok := results["data/a.txt"]["md5"]; !ok {
		t.Error("missing digest for data/a.txt")
	}
}

func TestHasherPoolHashFilesFatalOnMissing(t *testing.T) {
	dir := t.TempDir()
	pool := &HasherPool{Processes: 1}
	tasks := []hashTask{{Path: filepath.Join(dir, "missing.txt"), Key: "data/missing.txt"}}
	_, err := pool.HashFiles(context.Background(), tasks, []string{"md5"})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestHasherPoolHashFilesTolerantSingleFailureIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "a.txt"), "hello")

	pool := &HasherPool{Processes: 2}
	tasks := []hashTask{
		{Path: filepath.Join(dir, "a.txt"), Key: "data/a.txt"},
		{Path: filepath.Join(dir, "missing.txt"), Key: "data/missing.txt"},
	}
	digests, failures, err := pool.HashFilesTolerant(context.Background(), tasks, []string{"md5"})
	if err != nil {
		t.Fatalf("expected no fatal error, got %v", err)
	}
	if _, ok := digests["data/a.txt"]; !ok {
		t.Error("missing digest for data/a.txt")
	}
	if _, ok := failures["data/missing.txt"]; !ok {
		t.Error("expected a failure recorded for data/missing.txt")
	}
}

func TestHasherPoolHashFilesTolerantAllFailuresIsFatal(t *testing.T) {
	dir := t.TempDir()
	pool := &HasherPool{Processes: 1}
	tasks := []hashTask{{Path: filepath.Join(dir, "missing.txt"), Key: "data/missing.txt"}}
	_, _, err := pool.HashFilesTolerant(context.Background(), tasks, []string{"md5"})
	if err == nil {
		t.Fatal("expected fatal error when every task fails")
	}
	var bagErr *BagError
	if !errors.As(err, &bagErr) || bagErr.Kind != ErrInsufficientPermissions {
		t.Errorf("expected ErrInsufficientPermissions, got %v", err)
	}
}

func writeTestFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}
