package bagit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ndlib/bagit/internal/metrics"
)

// SaveOptions configures (*Bag).Save.
type SaveOptions struct {
	// Manifests, when true, re-walks and re-hashes the payload and
	// rewrites manifest-*.txt and Payload-Oxum. When false, only the tag
	// file and tagmanifests are rewritten, for callers that only changed
	// bag-info.txt metadata.
	Manifests bool
	Processes int
	Metrics   metrics.Sink
}

// Save writes the bag's in-memory state back to disk and reloads it, so
// the in-memory view matches what Load would now return.
func (b *Bag) Save(ctx context.Context, opts SaveOptions) error {
	if opts.Metrics != nil {
		b.metrics = opts.Metrics
	} else {
		opts.Metrics = b.metrics
	}

	if !canWrite(b.root) {
		return wrapError(ErrInaccessibleBag, b.root, fmt.Errorf("bag directory is not writable"))
	}

	if opts.Manifests {
		if err := precheckPermissions(b.root); err != nil {
			return err
		}
		payloadFiles, err := walkSorted(b.DataDir())
		if err != nil {
			return err
		}
		pool := &HasherPool{Processes: opts.Processes, Sink: opts.Metrics}
		tasks := make([]hashTask, 0, len(payloadFiles))
		for _, rel := range payloadFiles {
			key := "data/" + filepath.ToSlash(rel)
			tasks = append(tasks, hashTask{Path: filepath.Join(b.DataDir(), rel), Key: key})
		}
		digestsByPath, err := pool.HashFiles(ctx, tasks, b.algorithms)
		if err != nil {
			return err
		}

		store := NewManifestStore()
		var payloadBytes int64
		for _, t := range tasks {
			for alg, digest := range digestsByPath[t.Key] {
				store.Insert(t.Key, alg, digest)
			}
		}
		for _, rel := range payloadFiles {
			if fi, err := os.Stat(filepath.Join(b.DataDir(), rel)); err == nil {
				payloadBytes += fi.Size()
			}
		}
		b.manifests = store
		b.info.Set("Payload-Oxum", fmt.Sprintf("%d.%d", payloadBytes, len(payloadFiles)))
		if _, ok := b.info.Get("Bagging-Date"); !ok {
			b.info.Set("Bagging-Date", b.clock.Now().Format("2006-01-02"))
		}

		for _, alg := range b.algorithms {
			target := filepath.Join(b.root, manifestFileName(alg, false))
			if err := writeManifestFile(target, b.manifests, alg, false); err != nil {
				return err
			}
		}
	}

	if err := writeTagFile(b.TagFilePath(), b.info); err != nil {
		return err
	}
	if err := writeTagManifests(b.root, b.algorithms); err != nil {
		return err
	}

	reloaded, err := Load(b.root)
	if err != nil {
		return err
	}
	reloaded.metrics = b.metrics
	*b = *reloaded
	return nil
}
