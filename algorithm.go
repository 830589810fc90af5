package bagit

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"sort"
	"strings"

	"github.com/zeebo/xxh3"
)

// DefaultAlgorithm is used when a caller builds a bag without naming any
// checksum algorithms.
const DefaultAlgorithm = "sha512"

type hashFactory func() hash.Hash

// algorithmRegistry lists the digest algorithms this package can compute.
// xxh3 is not part of RFC 8493; it is offered under the spec's allowance
// that additional algorithms MAY be supported if the host crypto library
// exposes them, for callers that want a fast non-cryptographic check.
var algorithmRegistry = map[string]hashFactory{
	"md5":    md5.New,
	"sha1":   sha1.New,
	"sha256": sha256.New,
	"sha512": sha512.New,
	"xxh3":   func() hash.Hash { return xxh3.New() },
}

// NewHash returns a fresh hash.Hash for the named algorithm. The name is
// matched case-insensitively.
func NewHash(name string) (hash.Hash, bool) {
	f, ok := algorithmRegistry[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return f(), true
}

// SupportedAlgorithms returns the registered algorithm names, sorted.
func SupportedAlgorithms() []string {
	names := make([]string, 0, len(algorithmRegistry))
	for name := range algorithmRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// manifestFileName and algorithmFromManifestName let loader.go and builder.go agree on the
// manifest-<algorithm>.txt / tagmanifest-<algorithm>.txt naming scheme.
func manifestFileName(algorithm string, tag bool) string {
	if tag {
		return "tagmanifest-" + strings.ToLower(algorithm) + ".txt"
	}
	return "manifest-" + strings.ToLower(algorithm) + ".txt"
}

// algorithmFromManifestName extracts the algorithm name from a
// manifest-<alg>.txt or tagmanifest-<alg>.txt base name.
func algorithmFromManifestName(base string, tag bool) (string, bool) {
	prefix := "manifest-"
	if tag {
		prefix = "tagmanifest-"
	}
	if !strings.HasPrefix(base, prefix) || !strings.HasSuffix(base, ".txt") {
		return "", false
	}
	return base[len(prefix) : len(base)-len(".txt")], true
}
