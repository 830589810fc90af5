package bagit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ndlib/bagit/internal/metrics"
)

// ValidateOptions configures (*Bag).Validate.
type ValidateOptions struct {
	// Fast checks only the declared Payload-Oxum against the files present
	// under data/, without reading or hashing any file contents.
	Fast bool
	// CompletenessOnly checks that the manifested and on-disk file sets
	// agree, without computing or comparing any digests.
	CompletenessOnly bool
	Processes        int
	Metrics          metrics.Sink
}

// Validate reconciles the bag's three views of its contents — the
// filesystem under data/, the payload manifests, and (for 0.97) the
// tagmanifests — and returns a *BagError with Kind == ErrValidation whose
// Details list every discrepancy found, rather than stopping at the
// first one. A nil return means the bag is valid under the requested
// options.
func (b *Bag) Validate(ctx context.Context, opts ValidateOptions) error {
	if opts.Metrics != nil {
		b.metrics = opts.Metrics
	} else {
		opts.Metrics = b.metrics
	}

	if err := b.validateStructure(); err != nil {
		return err
	}

	if opts.Fast {
		return b.validateOxum()
	}

	details, err := b.validateCorrespondenceAndFixity(ctx, opts)
	if err != nil {
		return err
	}
	if len(details) > 0 {
		sort.Slice(details, func(i, j int) bool { return details[i].Path < details[j].Path })
		return &BagError{Kind: ErrValidation, Path: b.root, Details: details}
	}
	return nil
}

func (b *Bag) validateStructure() error {
	if fi, err := os.Stat(b.DataDir()); err != nil {
		if os.IsNotExist(err) {
			return wrapError(ErrValidation, b.root, fmt.Errorf("missing data/ directory"))
		}
		return err
	} else if !fi.IsDir() {
		return wrapError(ErrValidation, b.root, fmt.Errorf("data is not a directory"))
	}
	if len(b.algorithms) == 0 {
		return wrapError(ErrValidation, b.root, fmt.Errorf("no checksum algorithms declared"))
	}
	bagitPath := filepath.Join(b.root, "bagit.txt")
	raw, err := os.ReadFile(bagitPath)
	if err != nil {
		return wrapError(ErrInvalidBagitTxt, bagitPath, err)
	}
	if hasUTF8BOM(raw) {
		return wrapError(ErrInvalidBagitTxt, bagitPath, fmt.Errorf("bagit.txt must not begin with a byte-order mark"))
	}
	if b.version.Major > 0 || b.version.Minor >= 96 {
		tagPath := b.TagFilePath()
		if _, err := os.Stat(tagPath); err != nil && os.IsNotExist(err) {
			return wrapError(ErrValidation, tagPath, fmt.Errorf("missing %s", filepath.Base(tagPath)))
		}
	}
	return nil
}

func (b *Bag) validateOxum() error {
	oxum, ok := b.info.Get("Payload-Oxum")
	if !ok {
		return wrapError(ErrOxumMissing, b.root, fmt.Errorf("no Payload-Oxum declared"))
	}
	wantBytes, wantCount, err := parseOxum(oxum)
	if err != nil {
		return wrapError(ErrOxumMissing, b.root, err)
	}
	gotBytes, gotCount, err := sumPayload(b.DataDir())
	if err != nil {
		return err
	}
	if gotBytes != wantBytes || gotCount != wantCount {
		return wrapError(ErrOxumMismatch, b.root, fmt.Errorf(
			"Payload-Oxum declares %d.%d but data/ has %d bytes in %d files", wantBytes, wantCount, gotBytes, gotCount))
	}
	return nil
}

func parseOxum(s string) (bytes int64, count int64, err error) {
	parts := strings.SplitN(s, ".", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed Payload-Oxum %q", s)
	}
	bytes, err = strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed Payload-Oxum %q", s)
	}
	count, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed Payload-Oxum %q", s)
	}
	return bytes, count, nil
}

func sumPayload(dataDir string) (totalBytes int64, count int64, err error) {
	err = filepath.Walk(dataDir, func(p string, fi os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if fi.IsDir() {
			return nil
		}
		totalBytes += fi.Size()
		count++
		return nil
	})
	return totalBytes, count, err
}

func (b *Bag) validateCorrespondenceAndFixity(ctx context.Context, opts ValidateOptions) ([]ValidationDetail, error) {
	onDiskRel, err := walkSorted(b.DataDir())
	if err != nil {
		return nil, err
	}
	onDisk := make(map[string]bool, len(onDiskRel))
	for _, rel := range onDiskRel {
		onDisk["data/"+filepath.ToSlash(rel)] = true
	}

	inManifest := make(map[string]bool)
	for _, p := range b.manifests.PayloadEntries() {
		inManifest[p] = true
	}

	var missing, unexpected []string
	for p := range inManifest {
		if !onDisk[p] {
			missing = append(missing, p)
		}
	}
	for p := range onDisk {
		if !inManifest[p] {
			unexpected = append(unexpected, p)
		}
	}
	sort.Strings(missing)
	sort.Strings(unexpected)

	var details []ValidationDetail
	for _, p := range missing {
		details = append(details, ValidationDetail{Kind: DetailFileMissing, Path: p})
	}
	for _, p := range unexpected {
		details = append(details, ValidationDetail{Kind: DetailUnexpectedFile, Path: p})
	}

	if b.version.RequiresTagManifestDeclaration() {
		for _, p := range b.manifests.TagEntries() {
			host, err := resolveSafe(b.root, p, false)
			if err != nil {
				return nil, err
			}
			if _, err := os.Stat(host); err != nil && os.IsNotExist(err) {
				details = append(details, ValidationDetail{Kind: DetailFileMissing, Path: p})
			}
		}
	}

	if opts.CompletenessOnly {
		return details, nil
	}

	// Only attempt fixity on paths confirmed present on disk: a missing
	// file has already produced exactly one FileMissing detail above, and
	// must not also produce a ChecksumMismatch.
	var checkPaths []string
	for p := range inManifest {
		if onDisk[p] {
			checkPaths = append(checkPaths, p)
		}
	}
	if b.version.RequiresTagManifestDeclaration() {
		for _, p := range b.manifests.TagEntries() {
			host, err := resolveSafe(b.root, p, false)
			if err != nil {
				return nil, err
			}
			if _, err := os.Stat(host); err == nil {
				checkPaths = append(checkPaths, p)
			}
		}
	}
	sort.Strings(checkPaths)

	pool := &HasherPool{Processes: opts.Processes, Sink: opts.Metrics}
	tasks := make([]hashTask, 0, len(checkPaths))
	for _, p := range checkPaths {
		host, err := resolveSafe(b.root, p, strings.HasPrefix(p, "data/"))
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, hashTask{Path: host, Key: p})
	}

	digestsByPath, failures, err := pool.HashFilesTolerant(ctx, tasks, b.algorithms)
	if err != nil {
		return nil, err
	}

	for _, p := range checkPaths {
		if ferr, ok := failures[p]; ok {
			found := "could not read"
			if os.IsNotExist(ferr) {
				found = "does not exist"
			}
			details = append(details, ValidationDetail{Kind: DetailChecksumMismatch, Path: p, Found: found})
			continue
		}
		declared, _ := b.manifests.Digests(p)
		got := digestsByPath[p]
		for alg, wantDigest := range declared {
			gotDigest, ok := got[alg]
			if !ok {
				continue
			}
			if !strings.EqualFold(gotDigest, wantDigest) {
				if opts.Metrics != nil {
					opts.Metrics.BumpChecksumMismatch(1)
				}
				details = append(details, ValidationDetail{
					Kind: DetailChecksumMismatch, Path: p, Algorithm: alg,
					Expected: wantDigest, Found: gotDigest,
				})
			}
		}
	}

	return details, nil
}
