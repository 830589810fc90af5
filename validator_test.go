package bagit

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func makeValidBag(t *testing.T) string {
	t.Helper()
	dir := setupPlainDir(t)
	if _, err := MakeBag(context.Background(), dir, BuildOptions{Checksums: []string{"md5"}}); err != nil {
		t.Fatalf("MakeBag: %v", err)
	}
	return dir
}

func TestValidateValidBag(t *testing.T) {
	dir := makeValidBag(t)
	bag, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := bag.Validate(context.Background(), ValidateOptions{}); err != nil {
		t.Errorf("Validate valid bag: %v", err)
	}
}

func TestValidateDetectsFlippedByte(t *testing.T) {
	dir := makeValidBag(t)
	path := filepath.Join(dir, "data", "a.txt")
	if err := os.WriteFile(path, []byte("Hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	bag, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	err = bag.Validate(context.Background(), ValidateOptions{})
	if err == nil {
		t.Fatal("expected validation error for flipped byte")
	}
	var bagErr *BagError
	if !errors.As(err, &bagErr) || bagErr.Kind != ErrValidation {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	foundMismatch := false
	for _, d := range bagErr.Details {
		if d.Kind == DetailChecksumMismatch && d.Path == "data/a.txt" {
			foundMismatch = true
		}
	}
	if !foundMismatch {
		t.Errorf("expected a ChecksumMismatch detail for data/a.txt, got %v", bagErr.Details)
	}
}

func TestValidateFastIgnoresFlippedByte(t *testing.T) {
	dir := makeValidBag(t)
	path := filepath.Join(dir, "data", "a.txt")
	if err := os.WriteFile(path, []byte("Hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	bag, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := bag.Validate(context.Background(), ValidateOptions{Fast: true}); err != nil {
		t.Errorf("fast validation should not notice a same-length content change: %v", err)
	}
}

func TestValidateMissingFileProducesExactlyOneDetail(t *testing.T) {
	dir := makeValidBag(t)
	if err := os.Remove(filepath.Join(dir, "data", "a.txt")); err != nil {
		t.Fatal(err)
	}
	bag, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	err = bag.Validate(context.Background(), ValidateOptions{})
	if err == nil {
		t.Fatal("expected validation error for missing file")
	}
	var bagErr *BagError
	if !errors.As(err, &bagErr) || bagErr.Kind != ErrValidation {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	var forA []ValidationDetail
	for _, d := range bagErr.Details {
		if d.Path == "data/a.txt" {
			forA = append(forA, d)
		}
	}
	if len(forA) != 1 || forA[0].Kind != DetailFileMissing {
		t.Errorf("expected exactly one FileMissing detail for data/a.txt, got %v", forA)
	}
}

func TestValidateUnsafeManifestPathRejectedBeforeFixity(t *testing.T) {
	dir := makeValidBag(t)
	manifestPath := filepath.Join(dir, "manifest-md5.txt")
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		t.Fatal(err)
	}
	tampered := string(raw) + "deadbeefdeadbeefdeadbeefdeadbeef  data/../../etc/passwd\n"
	if err := os.WriteFile(manifestPath, []byte(tampered), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = Load(dir)
	if err == nil {
		t.Fatal("expected Load to reject an unsafe manifest path")
	}
	var bagErr *BagError
	if !errors.As(err, &bagErr) || bagErr.Kind != ErrUnsafePath {
		t.Fatalf("expected ErrUnsafePath, got %v", err)
	}
}

func TestValidateOxumMismatch(t *testing.T) {
	dir := makeValidBag(t)
	if err := os.WriteFile(filepath.Join(dir, "data", "extra.txt"), []byte("surprise"), 0o644); err != nil {
		t.Fatal(err)
	}
	bag, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	err = bag.Validate(context.Background(), ValidateOptions{Fast: true})
	if err == nil {
		t.Fatal("expected Payload-Oxum mismatch")
	}
	var bagErr *BagError
	if !errors.As(err, &bagErr) || bagErr.Kind != ErrOxumMismatch {
		t.Fatalf("expected ErrOxumMismatch, got %v", err)
	}
}

func TestValidateCompletenessOnlySkipsFixity(t *testing.T) {
	dir := makeValidBag(t)
	if err := os.WriteFile(filepath.Join(dir, "data", "a.txt"), []byte("Hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	bag, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := bag.Validate(context.Background(), ValidateOptions{CompletenessOnly: true}); err != nil {
		t.Errorf("completeness-only validation should ignore content changes: %v", err)
	}
}
