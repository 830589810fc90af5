package bagit

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// EscapeManifestPath replaces CR and LF in a manifest-relative path with
// their percent-hex forms, so a forged newline in a file name can't smuggle
// a new manifest record when the line is later read back.
func EscapeManifestPath(p string) string {
	p = strings.ReplaceAll(p, "\r", "%0D")
	p = strings.ReplaceAll(p, "\n", "%0A")
	return p
}

// UnescapeManifestPath is the inverse of EscapeManifestPath. The hex escape
// is matched case-insensitively, per spec.
func UnescapeManifestPath(p string) string {
	var b strings.Builder
	b.Grow(len(p))
	for i := 0; i < len(p); i++ {
		if p[i] == '%' && i+2 < len(p) {
			hex := strings.ToUpper(p[i+1 : i+3])
			switch hex {
			case "0D":
				b.WriteByte('\r')
				i += 2
				continue
			case "0A":
				b.WriteByte('\n')
				i += 2
				continue
			}
		}
		b.WriteByte(p[i])
	}
	return b.String()
}

var reservedDeviceNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// isPayloadSafe rejects a manifest-relative path that could escape the bag
// root or collide with a reserved device name. requireDataPrefix is true
// when validating a payload manifest/fetch entry, which must live under
// data/.
func isPayloadSafe(p string, requireDataPrefix bool) error {
	if p == "" {
		return errors.New("empty path")
	}
	if strings.ContainsAny(p, "\x00") {
		return errors.New("path contains a NUL byte")
	}
	if path.IsAbs(p) {
		return errors.Errorf("absolute path %q", p)
	}
	if hasDriveOrUNCPrefix(p) {
		return errors.Errorf("path %q carries a drive letter or UNC prefix", p)
	}
	clean := path.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return errors.Errorf("path %q escapes the bag root", p)
	}
	for _, seg := range strings.Split(clean, "/") {
		if seg == ".." {
			return errors.Errorf("path %q contains a .. segment", p)
		}
		name := seg
		if i := strings.LastIndexByte(name, '.'); i >= 0 {
			name = name[:i]
		}
		if reservedDeviceNames[strings.ToUpper(name)] {
			return errors.Errorf("path %q uses the reserved device name %q", p, seg)
		}
	}
	if requireDataPrefix && clean != "data" && !strings.HasPrefix(clean, "data/") {
		return errors.Errorf("payload path %q does not begin with data/", p)
	}
	return nil
}

func hasDriveOrUNCPrefix(p string) bool {
	if strings.HasPrefix(p, `\\`) || strings.HasPrefix(p, "//") {
		return true
	}
	if len(p) >= 2 && p[1] == ':' {
		c := p[0]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			return true
		}
	}
	return false
}

// resolveSafe turns a manifest-relative path into a host path under root,
// after checking isPayloadSafe and confirming the realized path does not
// escape root via symlink-free lexical resolution.
func resolveSafe(root, manifestPath string, requireDataPrefix bool) (string, error) {
	if err := isPayloadSafe(manifestPath, requireDataPrefix); err != nil {
		return "", wrapError(ErrUnsafePath, manifestPath, err)
	}
	host := filepath.Join(root, filepath.FromSlash(manifestPath))
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	absHost, err := filepath.Abs(host)
	if err != nil {
		return "", err
	}
	if absHost != absRoot && !strings.HasPrefix(absHost, absRoot+string(filepath.Separator)) {
		return "", wrapError(ErrUnsafePath, manifestPath, errors.New("realized path escapes the bag root"))
	}
	return host, nil
}

// splitManifestLine splits a manifest line into its digest and path fields.
// It tolerates either one or two spaces between them (Open Question 1) and
// preserves internal whitespace in the path.
func splitManifestLine(line string) (digest, manifestPath string, ok bool) {
	line = strings.TrimPrefix(line, "*")
	i := strings.IndexAny(line, " \t")
	if i < 0 {
		return "", "", false
	}
	digest = line[:i]
	rest := strings.TrimLeft(line[i:], " \t")
	if digest == "" || rest == "" {
		return "", "", false
	}
	return digest, rest, true
}
