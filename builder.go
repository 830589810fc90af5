package bagit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/facebookgo/clock"
	"github.com/ndlib/bagit/internal/atomicfile"
	"github.com/ndlib/bagit/internal/metrics"
	"github.com/pkg/errors"
)

// BuildMode selects how MakeBag treats an existing directory.
type BuildMode int

const (
	// ModeCreate bags a plain directory: every existing top-level entry is
	// moved under data/.
	ModeCreate BuildMode = iota
	// ModeRebag re-derives manifests and tag files for a directory that is
	// already a bag, after the payload under data/ has been edited by hand.
	ModeRebag
)

// BuildOptions configures MakeBag.
type BuildOptions struct {
	BagInfo       *TagMap
	Checksums     []string
	Processes     int
	Mode          BuildMode
	Clock         clock.Clock
	Metrics       metrics.Sink
	SoftwareAgent string
}

func (o BuildOptions) checksums() []string {
	if len(o.Checksums) == 0 {
		return []string{DefaultAlgorithm}
	}
	return o.Checksums
}

func (o BuildOptions) clockOrDefault() clock.Clock {
	if o.Clock == nil {
		return clock.New()
	}
	return o.Clock
}

func (o BuildOptions) softwareAgent() string {
	if o.SoftwareAgent == "" {
		return "bagit-go/1.0"
	}
	return o.SoftwareAgent
}

// MakeBag converts bagDir into a conforming bag: existing content is moved
// under data/ (ModeCreate) or re-read from data/ (ModeRebag), then hashed,
// manifested, and tagged.
func MakeBag(ctx context.Context, bagDir string, opts BuildOptions) (*Bag, error) {
	info, err := os.Stat(bagDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, wrapError(ErrNotFound, bagDir, err)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, wrapError(ErrNotFound, bagDir, fmt.Errorf("%s is not a directory", bagDir))
	}

	if err := precheckPermissions(bagDir); err != nil {
		return nil, err
	}

	if opts.Mode == ModeRebag {
		if err := rebagExtractPayload(bagDir); err != nil {
			return nil, err
		}
	}

	if err := promoteToData(bagDir); err != nil {
		return nil, err
	}

	dataDir := filepath.Join(bagDir, "data")
	payloadFiles, err := walkSorted(dataDir)
	if err != nil {
		return nil, err
	}

	algorithms := opts.checksums()
	pool := &HasherPool{Processes: opts.Processes, Sink: opts.Metrics}
	tasks := make([]hashTask, 0, len(payloadFiles))
	for _, rel := range payloadFiles {
		key := "data/" + filepath.ToSlash(rel)
		tasks = append(tasks, hashTask{Path: filepath.Join(dataDir, rel), Key: key})
	}

	digestsByPath, err := pool.HashFiles(ctx, tasks, algorithms)
	if err != nil {
		return nil, err
	}

	store := NewManifestStore()
	var payloadBytes int64
	for _, t := range tasks {
		for alg, digest := range digestsByPath[t.Key] {
			store.Insert(t.Key, alg, digest)
		}
		fi, err := os.Stat(t.Path)
		if err == nil {
			payloadBytes += fi.Size()
		}
	}

	for _, alg := range algorithms {
		target := filepath.Join(bagDir, manifestFileName(alg, false))
		if err := writeManifestFile(target, store, alg, false); err != nil {
			return nil, err
		}
	}

	if err := writeBagitTxt(bagDir); err != nil {
		return nil, err
	}

	clk := opts.clockOrDefault()
	tagInfo := opts.BagInfo
	if tagInfo == nil {
		tagInfo = NewTagMap()
	}
	mergeAutoFields(tagInfo, clk, opts.softwareAgent(), payloadBytes, len(payloadFiles))

	tagFilePath := filepath.Join(bagDir, CurrentVersion.TagFileName())
	if err := writeTagFile(tagFilePath, tagInfo); err != nil {
		return nil, err
	}

	if err := writeTagManifests(bagDir, algorithms); err != nil {
		return nil, err
	}

	return Load(bagDir)
}

// precheckPermissions walks bagDir and fails fast, before any file is
// moved or hashed, if something can't be read or the directory can't be
// written to.
func precheckPermissions(bagDir string) error {
	if !canWrite(bagDir) {
		return wrapError(ErrInsufficientPermissions, bagDir, errors.New("directory is not writable"))
	}
	var unreadable []string
	err := filepath.Walk(bagDir, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return nil
		}
		if !canRead(p) {
			unreadable = append(unreadable, p)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(unreadable) > 0 {
		return wrapError(ErrInsufficientPermissions, unreadable[0], fmt.Errorf("%d file(s) could not be read", len(unreadable)))
	}
	return nil
}

// promoteToData moves every existing top-level entry of bagDir into a new
// data/ subdirectory, via a sibling staging directory so a crash midway
// never leaves bagDir in a half-moved state that looks like a valid bag.
func promoteToData(bagDir string) error {
	entries, err := os.ReadDir(bagDir)
	if err != nil {
		return err
	}
	perm := os.FileMode(0o755)
	if fi, err := os.Stat(bagDir); err == nil {
		perm = fi.Mode().Perm()
	}

	staging, err := os.MkdirTemp(bagDir, ".bagit-data-*")
	if err != nil {
		return err
	}
	for _, e := range entries {
		src := filepath.Join(bagDir, e.Name())
		dst := filepath.Join(staging, e.Name())
		if err := os.Rename(src, dst); err != nil {
			return err
		}
	}
	dataDir := filepath.Join(bagDir, "data")
	if err := os.Rename(staging, dataDir); err != nil {
		return err
	}
	return os.Chmod(bagDir, perm)
}

// rebagExtractPayload prepares an existing bag for a fresh MakeBag pass by
// staging data/'s children back up to bagDir root and discarding every
// other top-level file (old manifests, tag files), so ModeCreate's
// promoteToData logic can run unmodified afterward.
func rebagExtractPayload(bagDir string) error {
	dataDir := filepath.Join(bagDir, "data")
	if _, err := os.Stat(dataDir); err != nil {
		return wrapError(ErrNotFound, dataDir, err)
	}

	staging, err := os.MkdirTemp(filepath.Dir(bagDir), ".bagit-rebag-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(staging)

	if err := os.Rename(dataDir, filepath.Join(staging, "data")); err != nil {
		return err
	}

	entries, err := os.ReadDir(bagDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(bagDir, e.Name())); err != nil {
			return err
		}
	}

	payloadEntries, err := os.ReadDir(filepath.Join(staging, "data"))
	if err != nil {
		return err
	}
	for _, e := range payloadEntries {
		src := filepath.Join(staging, "data", e.Name())
		dst := filepath.Join(bagDir, e.Name())
		if err := os.Rename(src, dst); err != nil {
			return err
		}
	}
	return nil
}

// walkSorted returns every regular file under root, relative to root,
// in lexical order. filepath.Walk already visits entries in lexical
// order within a directory, so no additional sort is needed beyond relying
// on that documented behavior.
func walkSorted(root string) ([]string, error) {
	var out []string
	err := filepath.Walk(root, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		out = append(out, rel)
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return out, nil
}

func mergeAutoFields(tm *TagMap, clk clock.Clock, agent string, payloadBytes int64, payloadCount int) {
	if _, ok := tm.Get("Bagging-Date"); !ok {
		tm.Set("Bagging-Date", clk.Now().Format("2006-01-02"))
	}
	if _, ok := tm.Get("Bag-Software-Agent"); !ok {
		tm.Set("Bag-Software-Agent", agent)
	}
	tm.Set("Payload-Oxum", fmt.Sprintf("%d.%d", payloadBytes, payloadCount))
}

func writeManifestFile(target string, store *ManifestStore, algorithm string, tag bool) error {
	var b strings.Builder
	if err := WriteManifest(&b, store, algorithm, tag); err != nil {
		return err
	}
	return atomicfile.WriteFile(target, []byte(b.String()), 0o644)
}

func writeTagFile(target string, tm *TagMap) error {
	var b strings.Builder
	if err := EmitTagFile(&b, tm); err != nil {
		return err
	}
	return atomicfile.WriteFile(target, []byte(b.String()), 0o644)
}

// writeBagitTxt writes the exact two-line bagit.txt declaration for
// CurrentVersion, before the tag file merges in Payload-Oxum and friends.
func writeBagitTxt(bagDir string) error {
	contents := fmt.Sprintf("BagIt-Version: %s\nTag-File-Character-Encoding: UTF-8\n", CurrentVersion.String())
	return atomicfile.WriteFile(filepath.Join(bagDir, "bagit.txt"), []byte(contents), 0o644)
}

// writeTagManifests hashes every tag file at the bag root (everything
// except the tagmanifest files themselves) and writes
// tagmanifest-<alg>.txt for each algorithm.
func writeTagManifests(bagDir string, algorithms []string) error {
	entries, err := os.ReadDir(bagDir)
	if err != nil {
		return err
	}
	var tagFiles []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "tagmanifest-") {
			continue
		}
		tagFiles = append(tagFiles, name)
	}
	sort.Strings(tagFiles)

	store := NewManifestStore()
	for _, name := range tagFiles {
		digests, _, err := HashFile(filepath.Join(bagDir, name), algorithms)
		if err != nil {
			return wrapError(ErrInsufficientPermissions, name, err)
		}
		for alg, digest := range digests {
			store.Insert(name, alg, digest)
		}
	}
	for _, alg := range algorithms {
		target := filepath.Join(bagDir, manifestFileName(alg, true))
		if err := writeManifestFile(target, store, alg, true); err != nil {
			return err
		}
	}
	return nil
}
