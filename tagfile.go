package bagit

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
)

// TagMap holds the label/value pairs of a tag file (bagit.txt, bag-info.txt,
// package-info.txt). A label may repeat (e.g. multiple Contact-Name
// entries); order of first appearance is preserved for iteration via Keys.
type TagMap struct {
	order  []string
	values map[string][]string
}

// NewTagMap returns an empty TagMap ready for use.
func NewTagMap() *TagMap {
	return &TagMap{values: make(map[string][]string)}
}

// Add appends a value under label, preserving any existing values.
func (t *TagMap) Add(label, value string) {
	if _, ok := t.values[label]; !ok {
		t.order = append(t.order, label)
	}
	t.values[label] = append(t.values[label], value)
}

// Set replaces all values under label with a single value.
func (t *TagMap) Set(label, value string) {
	if _, ok := t.values[label]; !ok {
		t.order = append(t.order, label)
	}
	t.values[label] = []string{value}
}

// Get returns the first value recorded under label, if any.
func (t *TagMap) Get(label string) (string, bool) {
	vs, ok := t.values[label]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// All returns every value recorded under label, in the order added.
func (t *TagMap) All(label string) []string {
	return t.values[label]
}

// Keys returns the distinct labels in order of first appearance.
func (t *TagMap) Keys() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Delete removes every value recorded under label.
func (t *TagMap) Delete(label string) {
	if _, ok := t.values[label]; !ok {
		return
	}
	delete(t.values, label)
	for i, k := range t.order {
		if k == label {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// ParseTagFile parses an RFC 2822-style tag file: "Label: value" records,
// each optionally continued on following lines that begin with whitespace.
// Blank lines and lines beginning with "#" are skipped.
func ParseTagFile(r io.Reader) (*TagMap, error) {
	tm := NewTagMap()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var label string
	var value strings.Builder
	flush := func() {
		if label != "" {
			tm.Add(label, strings.TrimSpace(value.String()))
		}
		label = ""
		value.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" || strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		if (line[0] == ' ' || line[0] == '\t') && label != "" {
			value.WriteByte(' ')
			value.WriteString(strings.TrimSpace(line))
			continue
		}
		flush()
		i := strings.IndexByte(line, ':')
		if i < 0 {
			return nil, wrapError(ErrInvalidBagitTxt, "", fmt.Errorf("tag line without a colon: %q", line))
		}
		label = strings.TrimSpace(line[:i])
		value.WriteString(strings.TrimSpace(line[i+1:]))
	}
	flush()
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return tm, nil
}

// tagFileTailOrder lists labels that, when present, are emitted last and in
// this relative order, matching the convention that auto-computed fields
// trail hand-authored ones.
var tagFileTailOrder = []string{"Bagging-Date", "Bag-Software-Agent", "Payload-Oxum"}

// EmitTagFile writes tm as RFC 2822-style records, wrapping any value line
// that would exceed 79 characters onto a continuation line. Labels are
// written in lexical order except for the tail fields, which always come
// last.
func EmitTagFile(w io.Writer, tm *TagMap) error {
	tail := make(map[string]int, len(tagFileTailOrder))
	for i, k := range tagFileTailOrder {
		tail[k] = i
	}

	keys := tm.Keys()
	sort.SliceStable(keys, func(i, j int) bool {
		ti, iTail := tail[keys[i]]
		tj, jTail := tail[keys[j]]
		switch {
		case iTail && jTail:
			return ti < tj
		case iTail:
			return false
		case jTail:
			return true
		default:
			return keys[i] < keys[j]
		}
	})

	for _, label := range keys {
		for _, value := range tm.All(label) {
			value = strings.ReplaceAll(value, "\r", "")
			value = strings.ReplaceAll(value, "\n", "")
			if err := writeFolded(w, label, value); err != nil {
				return err
			}
		}
	}
	return nil
}

const tagFileLineWidth = 79

func writeFolded(w io.Writer, label, value string) error {
	line := fmt.Sprintf("%s: %s", label, value)
	if len(line) <= tagFileLineWidth {
		_, err := fmt.Fprintf(w, "%s\n", line)
		return err
	}
	words := strings.Fields(value)
	if len(words) == 0 {
		_, err := fmt.Fprintf(w, "%s\n", line)
		return err
	}
	cur := fmt.Sprintf("%s: %s", label, words[0])
	var out strings.Builder
	for _, word := range words[1:] {
		if len(cur)+1+len(word) > tagFileLineWidth {
			out.WriteString(cur)
			out.WriteString("\n")
			cur = "  " + word
			continue
		}
		cur += " " + word
	}
	out.WriteString(cur)
	out.WriteString("\n")
	_, err := io.WriteString(w, out.String())
	return err
}
