package bagit

import (
	"strings"
	"testing"
)

func TestParseTagFileBasic(t *testing.T) {
	input := "BagIt-Version: 0.97\nTag-File-Character-Encoding: UTF-8\n"
	tm, err := ParseTagFile(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseTagFile: %v", err)
	}
	if v, ok := tm.Get("BagIt-Version"); !ok || v != "0.97" {
		t.Errorf("BagIt-Version = %q, %v", v, ok)
	}
	if v, ok := tm.Get("Tag-File-Character-Encoding"); !ok || v != "UTF-8" {
		t.Errorf("Tag-File-Character-Encoding = %q, %v", v, ok)
	}
}

func TestParseTagFileContinuationLines(t *testing.T) {
	input := "Contact-Name: Jane\n  Doe\n# a comment\nSource-Organization: Acme\n"
	tm, err := ParseTagFile(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseTagFile: %v", err)
	}
	if v, _ := tm.Get("Contact-Name"); v != "Jane Doe" {
		t.Errorf("Contact-Name = %q, want %q", v, "Jane Doe")
	}
	if v, _ := tm.Get("Source-Organization"); v != "Acme" {
		t.Errorf("Source-Organization = %q, want %q", v, "Acme")
	}
}

func TestParseTagFileRepeatedLabel(t *testing.T) {
	input := "Contact-Name: Jane\nContact-Name: Bob\n"
	tm, err := ParseTagFile(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseTagFile: %v", err)
	}
	all := tm.All("Contact-Name")
	if len(all) != 2 || all[0] != "Jane" || all[1] != "Bob" {
		t.Errorf("Contact-Name values = %v", all)
	}
}

func TestEmitTagFileOrdersTailFields(t *testing.T) {
	tm := NewTagMap()
	tm.Set("Source-Organization", "Acme")
	tm.Set("Payload-Oxum", "10.1")
	tm.Set("Bagging-Date", "2026-08-01")
	tm.Set("Contact-Name", "Jane")

	var b strings.Builder
	if err := EmitTagFile(&b, tm); err != nil {
		t.Fatalf("EmitTagFile: %v", err)
	}
	lines := strings.Split(strings.TrimRight(b.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines: %v", len(lines), lines)
	}
	if !strings.HasPrefix(lines[0], "Contact-Name:") || !strings.HasPrefix(lines[1], "Source-Organization:") {
		t.Errorf("non-tail fields not lexically sorted first: %v", lines[:2])
	}
	if !strings.HasPrefix(lines[2], "Bagging-Date:") || !strings.HasPrefix(lines[3], "Payload-Oxum:") {
		t.Errorf("tail fields not emitted last in order: %v", lines[2:])
	}
}

func TestEmitTagFileStripsEmbeddedNewlines(t *testing.T) {
	tm := NewTagMap()
	tm.Set("Contact-Name", "Jane\r\nDoe")
	var b strings.Builder
	if err := EmitTagFile(&b, tm); err != nil {
		t.Fatalf("EmitTagFile: %v", err)
	}
	if strings.Count(b.String(), "\n") != 1 {
		t.Errorf("expected exactly one newline, got %q", b.String())
	}
}

func TestEmitTagFileFoldsLongLines(t *testing.T) {
	tm := NewTagMap()
	longValue := strings.Repeat("word ", 30)
	tm.Set("Description", strings.TrimSpace(longValue))
	var b strings.Builder
	if err := EmitTagFile(&b, tm); err != nil {
		t.Fatalf("EmitTagFile: %v", err)
	}
	for _, line := range strings.Split(strings.TrimRight(b.String(), "\n"), "\n") {
		if len(line) > tagFileLineWidth {
			t.Errorf("line exceeds %d columns: %q", tagFileLineWidth, line)
		}
	}

	reparsed, err := ParseTagFile(strings.NewReader(b.String()))
	if err != nil {
		t.Fatalf("ParseTagFile of folded output: %v", err)
	}
	if v, _ := reparsed.Get("Description"); v != strings.TrimSpace(longValue) {
		t.Errorf("round-trip mismatch: got %q", v)
	}
}
