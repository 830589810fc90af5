package bagit

import (
	"context"
	"encoding/hex"
	"hash"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/getsentry/raven-go"
	"github.com/ndlib/bagit/internal/concurrency"
	"github.com/ndlib/bagit/internal/metrics"
)

const hashBlockSize = 1 << 20

// FileDigests maps a lowercase algorithm name to its lowercase hex digest
// for one file.
type FileDigests map[string]string

// HashReader computes every named algorithm's digest for r in a single
// pass, using io.MultiWriter the way util/hashwriter.go combines its pair
// of hashers.
func HashReader(r io.Reader, algorithms []string) (FileDigests, int64, error) {
	hashers := make(map[string]hash.Hash, len(algorithms))
	writers := make([]io.Writer, 0, len(algorithms))
	for _, alg := range algorithms {
		h, ok := NewHash(alg)
		if !ok {
			continue
		}
		hashers[alg] = h
		writers = append(writers, h)
	}
	mw := io.MultiWriter(writers...)
	buf := make([]byte, hashBlockSize)
	n, err := io.CopyBuffer(mw, r, buf)
	if err != nil {
		return nil, n, err
	}
	out := make(FileDigests, len(hashers))
	for alg, h := range hashers {
		out[alg] = hex.EncodeToString(h.Sum(nil))
	}
	return out, n, nil
}

// HashFile opens path and computes every named algorithm's digest.
func HashFile(path string, algorithms []string) (FileDigests, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	return HashReader(f, algorithms)
}

// HasherPool bounds the number of files hashed concurrently and reports
// progress to an optional metrics sink, mirroring util/gate.go's
// channel-based semaphore.
type HasherPool struct {
	Processes int
	Sink      metrics.Sink
}

func (p *HasherPool) processes() int {
	if p.Processes < 1 {
		return 1
	}
	return p.Processes
}

type hashTask struct {
	Path string // host filesystem path to hash
	Key  string // manifest-relative path used to key the result
}

type hashResult struct {
	Key     string
	Digests FileDigests
	Size    int64
	Err     error
}

func (p *HasherPool) run(ctx context.Context, tasks []hashTask, algorithms []string) ([]hashResult, bool) {
	gate := concurrency.NewGate(p.processes())
	results := make([]hashResult, len(tasks))
	var wg sync.WaitGroup
	var cancelled bool
	var mu sync.Mutex

	for i, task := range tasks {
		select {
		case <-ctx.Done():
			mu.Lock()
			cancelled = true
			mu.Unlock()
		default:
		}
		mu.Lock()
		isCancelled := cancelled
		mu.Unlock()
		if isCancelled {
			results[i] = hashResult{Key: task.Key, Err: ctx.Err()}
			continue
		}

		gate.Enter()
		wg.Add(1)
		go func(i int, task hashTask) {
			defer wg.Done()
			defer gate.Leave()

			select {
			case <-ctx.Done():
				mu.Lock()
				cancelled = true
				mu.Unlock()
				results[i] = hashResult{Key: task.Key, Err: ctx.Err()}
				return
			default:
			}

			digests, size, err := HashFile(task.Path, algorithms)
			results[i] = hashResult{Key: task.Key, Digests: digests, Size: size, Err: err}
			if p.Sink != nil {
				if err == nil {
					p.Sink.BumpFilesHashed(1)
					p.Sink.BumpBytesHashed(size)
				} else {
					p.Sink.BumpChecksumMismatch(1)
				}
			}
			if err != nil && !os.IsNotExist(err) {
				// A goroutine has no other channel back to the caller for
				// something gone wrong beyond the per-task error slot, so
				// report it the way file_store.go's background writer does.
				raven.CaptureError(err, nil)
			}
		}(i, task)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	return results, cancelled
}

// HashFiles hashes every task and fails fast: the first per-task error is
// fatal, wrapped as ErrInsufficientPermissions. It is used by the builder,
// where every payload file is expected to be readable.
func (p *HasherPool) HashFiles(ctx context.Context, tasks []hashTask, algorithms []string) (map[string]FileDigests, error) {
	results, cancelled := p.run(ctx, tasks, algorithms)
	if cancelled {
		if p.Sink != nil {
			p.Sink.BumpCancelled(1)
		}
		return nil, &BagError{Kind: ErrCancelled}
	}
	out := make(map[string]FileDigests, len(results))
	for _, r := range results {
		if r.Err != nil {
			return nil, wrapError(ErrInsufficientPermissions, r.Key, r.Err)
		}
		out[r.Key] = r.Digests
	}
	return out, nil
}

// HashFilesTolerant hashes every task and collects per-task errors instead
// of aborting, so the caller (the validator) can turn a missing or
// unreadable file into a ChecksumMismatch detail. It only raises a fatal
// error when every single task failed, per the propagation policy.
func (p *HasherPool) HashFilesTolerant(ctx context.Context, tasks []hashTask, algorithms []string) (map[string]FileDigests, map[string]error, error) {
	results, cancelled := p.run(ctx, tasks, algorithms)
	if cancelled {
		if p.Sink != nil {
			p.Sink.BumpCancelled(1)
		}
		return nil, nil, &BagError{Kind: ErrCancelled}
	}
	digests := make(map[string]FileDigests)
	failures := make(map[string]error)
	for _, r := range results {
		if r.Err != nil {
			failures[r.Key] = r.Err
			continue
		}
		digests[r.Key] = r.Digests
	}
	if len(tasks) > 0 && len(failures) == len(tasks) {
		keys := make([]string, 0, len(failures))
		for k := range failures {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return digests, failures, wrapError(ErrInsufficientPermissions, keys[0], failures[keys[0]])
	}
	return digests, failures, nil
}
