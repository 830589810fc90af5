// Package atomicfile writes files by staging content in a sibling temp
// file and renaming it into place, so a crash or interruption never leaves
// a half-written manifest or tag file behind. The pattern is adapted from
// store.moveCloser in bendo's file_store.go.
package atomicfile

import (
	"os"
	"path/filepath"
)

// Writer stages writes to a hidden temp file beside the eventual target,
// swapping it into place on Close.
type Writer struct {
	f      *os.File
	target string
	done   bool
}

// Create opens a staging file beside target. Callers must call Close to
// publish the content, or Abort to discard it.
func Create(target string) (*Writer, error) {
	dir := filepath.Dir(target)
	f, err := os.CreateTemp(dir, ".bagit-tmp-*")
	if err != nil {
		return nil, err
	}
	return &Writer{f: f, target: target}, nil
}

func (w *Writer) Write(p []byte) (int, error) {
	return w.f.Write(p)
}

// Close flushes and fsyncs the staging file, then renames it over target.
func (w *Writer) Close() error {
	if w.done {
		return nil
	}
	w.done = true
	if err := w.f.Sync(); err != nil {
		w.f.Close()
		os.Remove(w.f.Name())
		return err
	}
	if err := w.f.Close(); err != nil {
		os.Remove(w.f.Name())
		return err
	}
	return os.Rename(w.f.Name(), w.target)
}

// Abort discards the staging file without touching target.
func (w *Writer) Abort() error {
	if w.done {
		return nil
	}
	w.done = true
	w.f.Close()
	return os.Remove(w.f.Name())
}

// WriteFile atomically replaces target with data.
func WriteFile(target string, data []byte, perm os.FileMode) error {
	w, err := Create(target)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Abort()
		return err
	}
	if err := os.Chmod(w.f.Name(), perm); err != nil {
		w.Abort()
		return err
	}
	return w.Close()
}
