package bagit

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/facebookgo/clock"
)

// Load reads an existing bag directory and returns its in-memory view,
// without touching anything on disk. It does not verify fixity; call
// (*Bag).Validate for that.
func Load(bagDir string) (*Bag, error) {
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

	bagitPath := filepath.Join(bagDir, "bagit.txt")
	raw, err := os.ReadFile(bagitPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, wrapError(ErrInvalidBagitTxt, bagitPath, err)
		}
		return nil, err
	}
	if hasUTF8BOM(raw) {
		return nil, wrapError(ErrInvalidBagitTxt, bagitPath, fmt.Errorf("bagit.txt must not begin with a byte-order mark"))
	}

	declTags, err := ParseTagFile(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	versionStr, ok := declTags.Get("BagIt-Version")
	if !ok {
		return nil, wrapError(ErrInvalidBagitTxt, bagitPath, fmt.Errorf("missing BagIt-Version"))
	}
	version, ok := parseVersion(versionStr)
	if !ok || !version.Supported() {
		return nil, wrapError(ErrInvalidBagitTxt, bagitPath, fmt.Errorf("unsupported BagIt-Version %q", versionStr))
	}
	encoding, ok := declTags.Get("Tag-File-Character-Encoding")
	if !ok {
		return nil, wrapError(ErrInvalidBagitTxt, bagitPath, fmt.Errorf("missing Tag-File-Character-Encoding"))
	}
	if !strings.EqualFold(encoding, "UTF-8") {
		return nil, wrapError(ErrInvalidBagitTxt, bagitPath, fmt.Errorf("unsupported Tag-File-Character-Encoding %q", encoding))
	}

	bag := &Bag{
		root:      bagDir,
		version:   version,
		encoding:  encoding,
		manifests: NewManifestStore(),
		clock:     clock.New(),
	}

	tagFilePath := filepath.Join(bagDir, version.TagFileName())
	if f, err := os.Open(tagFilePath); err == nil {
		info, parseErr := ParseTagFile(f)
		f.Close()
		if parseErr != nil {
			return nil, parseErr
		}
		bag.info = info
	} else if os.IsNotExist(err) {
		bag.info = NewTagMap()
	} else {
		return nil, err
	}

	if err := loadManifestFamily(bagDir, "manifest-*.txt", false, bag.manifests); err != nil {
		return nil, err
	}
	if version.RequiresTagManifestDeclaration() {
		if err := loadManifestFamily(bagDir, "tagmanifest-*.txt", true, bag.manifests); err != nil {
			return nil, err
		}
	}

	bag.algorithms = bag.manifests.Algorithms()
	if len(bag.algorithms) == 0 {
		return nil, wrapError(ErrMalformedManifest, bagDir, fmt.Errorf("no manifest-*.txt files found"))
	}

	return bag, nil
}

func hasUTF8BOM(b []byte) bool {
	return len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF
}

// loadManifestFamily globs pattern under bagDir, parses each match, checks
// that every algorithm in the family agrees on the set of paths it covers,
// and confirms every path is safe before any fixity work happens.
func loadManifestFamily(bagDir, pattern string, tag bool, store *ManifestStore) error {
	matches, err := filepath.Glob(filepath.Join(bagDir, pattern))
	if err != nil {
		return err
	}
	sort.Strings(matches)

	byAlgorithm := make(map[string][]string)
	for _, match := range matches {
		base := filepath.Base(match)
		alg, ok := algorithmFromManifestName(base, tag)
		if !ok {
			continue
		}
		f, err := os.Open(match)
		if err != nil {
			return err
		}
		paths, err := loadManifestInto(store, f, alg)
		f.Close()
		if err != nil {
			return err
		}
		byAlgorithm[alg] = paths
	}

	if err := checkManifestSetAgreement(byAlgorithm); err != nil {
		return err
	}

	for _, paths := range byAlgorithm {
		for _, p := range paths {
			if _, err := resolveSafe(bagDir, p, !tag); err != nil {
				return err
			}
		}
		break
	}
	return nil
}
