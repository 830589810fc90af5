package bagit

import "testing"

func TestEscapeUnescapeManifestPath(t *testing.T) {
	cases := []struct {
		raw, escaped string
	}{
		{"data/plain.txt", "data/plain.txt"},
		{"data/weird\rname.txt", "data/weird%0Dname.txt"},
		{"data/weird\nname.txt", "data/weird%0Aname.txt"},
	}
	for _, c := range cases {
		if got := EscapeManifestPath(c.raw); got != c.escaped {
			t.Errorf("EscapeManifestPath(%q) = %q, want %q", c.raw, got, c.escaped)
		}
		if got := UnescapeManifestPath(c.escaped); got != c.raw {
			t.Errorf("UnescapeManifestPath(%q) = %q, want %q", c.escaped, got, c.raw)
		}
	}
}

func TestUnescapeManifestPathCaseInsensitive(t *testing.T) {
	if got := UnescapeManifestPath("data/x%0ay.txt"); got != "data/x\ny.txt" {
		t.Errorf("lowercase escape not recognized, got %q", got)
	}
}

func TestIsPayloadSafe(t *testing.T) {
	cases := []struct {
		name     string
		path     string
		needData bool
		wantErr  bool
	}{
		{"ok payload path", "data/a/b.txt", true, false},
		{"ok tag path", "bagit.txt", false, false},
		{"traversal", "data/../etc/passwd", true, true},
		{"bare traversal", "../etc/passwd", true, true},
		{"absolute", "/etc/passwd", true, true},
		{"missing data prefix", "a/b.txt", true, true},
		{"windows drive", `C:\Windows\win.ini`, true, true},
		{"unc path", `\\host\share\file`, true, true},
		{"reserved device", "data/CON.txt", true, true},
		{"reserved device no ext", "data/nul", true, true},
		{"empty", "", true, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := isPayloadSafe(c.path, c.needData)
			if (err != nil) != c.wantErr {
				t.Errorf("isPayloadSafe(%q, %v) error = %v, wantErr %v", c.path, c.needData, err, c.wantErr)
			}
		})
	}
}

func TestSplitManifestLine(t *testing.T) {
	cases := []struct {
		line       string
		wantDigest string
		wantPath   string
		wantOK     bool
	}{
		{"abc123  data/a.txt", "abc123", "data/a.txt", true},
		{"abc123 data/a.txt", "abc123", "data/a.txt", true},
		{"abc123   data/a b.txt", "abc123", "data/a b.txt", true},
		{"*abc123  data/a.txt", "abc123", "data/a.txt", true},
		{"nofieldshere", "", "", false},
		{"", "", "", false},
	}
	for _, c := range cases {
		digest, path, ok := splitManifestLine(c.line)
		if ok != c.wantOK || digest != c.wantDigest || path != c.wantPath {
			t.Errorf("splitManifestLine(%q) = (%q, %q, %v), want (%q, %q, %v)",
				c.line, digest, path, ok, c.wantDigest, c.wantPath, c.wantOK)
		}
	}
}
