package bagit

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
)

// FetchEntry is one declared URL to be fetched into the bag payload. This
// package parses fetch.txt but never performs the retrieval itself.
type FetchEntry struct {
	URL string
	// Length is the declared payload size in bytes, or -1 if the length
	// field was "-" (unknown).
	Length int64
	Path   string
}

// ParseFetchFile parses a fetch.txt body: each line is
// "URL LENGTH PATH", where PATH may contain internal spaces and LENGTH may
// be "-" for unknown.
func ParseFetchFile(r io.Reader) ([]FetchEntry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var entries []FetchEntry
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, wrapError(ErrMalformedManifest, "", fmt.Errorf("malformed fetch.txt line: %q", line))
		}
		rawURL := fields[0]
		lengthField := fields[1]
		path := UnescapeManifestPath(strings.Join(fields[2:], " "))

		length := int64(-1)
		if lengthField != "-" {
			n, err := strconv.ParseInt(lengthField, 10, 64)
			if err != nil {
				return nil, wrapError(ErrMalformedManifest, "", fmt.Errorf("malformed fetch.txt length %q", lengthField))
			}
			length = n
		}

		parsed, err := url.Parse(rawURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return nil, wrapError(ErrMalformedManifest, "", fmt.Errorf("malformed fetch.txt URL %q", rawURL))
		}

		if err := isPayloadSafe(path, true); err != nil {
			return nil, wrapError(ErrUnsafePath, path, err)
		}

		entries = append(entries, FetchEntry{URL: rawURL, Length: length, Path: path})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
