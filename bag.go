package bagit

import (
	"path/filepath"

	"github.com/facebookgo/clock"
	"github.com/ndlib/bagit/internal/metrics"
)

// Bag is an in-memory view of a bag directory: its declared version and
// encoding, its tag metadata, and the manifest entries loaded from or
// destined for disk. The filesystem under Root is the system of record;
// a Bag is a read/write lens over it, not an independent store.
type Bag struct {
	root       string
	version    BagVersion
	encoding   string
	info       *TagMap
	manifests  *ManifestStore
	algorithms []string

	clock   clock.Clock
	metrics metrics.Sink
}

// Root returns the bag's base directory.
func (b *Bag) Root() string { return b.root }

// Version returns the declared BagIt-Version.
func (b *Bag) Version() BagVersion { return b.version }

// Encoding returns the declared Tag-File-Character-Encoding.
func (b *Bag) Encoding() string { return b.encoding }

// Info returns the bag's primary tag file contents (bag-info.txt or
// package-info.txt, depending on Version).
func (b *Bag) Info() *TagMap { return b.info }

// Manifests returns the bag's combined payload and tag manifest entries.
func (b *Bag) Manifests() *ManifestStore { return b.manifests }

// Algorithms returns the checksum algorithms declared by this bag's
// manifests, sorted.
func (b *Bag) Algorithms() []string { return b.algorithms }

// DataDir returns the path to the bag's payload directory.
func (b *Bag) DataDir() string { return filepath.Join(b.root, "data") }

// TagFilePath returns the path to the bag's version-appropriate primary
// tag file.
func (b *Bag) TagFilePath() string { return filepath.Join(b.root, b.version.TagFileName()) }
