package bagit

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorKind classifies a BagError. It is the Go rendering of the BagError
// sum type in the spec: one concrete type, discriminated by Kind, rather
// than a family of exception classes.
type ErrorKind int

const (
	// ErrNotFound means the bag directory is missing.
	ErrNotFound ErrorKind = iota + 1
	// ErrInsufficientPermissions means a file could not be read, or a
	// directory could not be moved or written to, during creation.
	ErrInsufficientPermissions
	// ErrInaccessibleBag means the bag root is not writable when Save is
	// invoked.
	ErrInaccessibleBag
	// ErrInvalidBagitTxt means bagit.txt is missing a mandatory tag, has a
	// byte-order mark, or declares an unsupported version or encoding.
	ErrInvalidBagitTxt
	// ErrUnsafePath means a manifest or fetch entry resolves outside the
	// bag root.
	ErrUnsafePath
	// ErrMalformedManifest means a manifest line has no two
	// whitespace-separated fields, or two manifests disagree about the set
	// of files they cover.
	ErrMalformedManifest
	// ErrOxumMissing means fast validation was requested but no
	// Payload-Oxum is declared.
	ErrOxumMissing
	// ErrOxumMismatch means a declared Payload-Oxum disagrees with the
	// files actually present under data/.
	ErrOxumMismatch
	// ErrValidation is the aggregate error returned when Validate finds
	// one or more structural, correspondence, or fixity problems. For
	// correspondence and fixity problems its Details field carries one
	// ValidationDetail per problem found; a structural problem (no data/
	// directory, no checksum algorithm, no tag file) is returned on its own
	// with empty Details and the reason in the wrapped cause.
	ErrValidation
	// ErrCancelled means an external interruption stopped a worker pool
	// operation before it finished.
	ErrCancelled
)

func (k ErrorKind) String() string {
	switch k {
	case ErrNotFound:
		return "NotFound"
	case ErrInsufficientPermissions:
		return "InsufficientPermissions"
	case ErrInaccessibleBag:
		return "InaccessibleBag"
	case ErrInvalidBagitTxt:
		return "InvalidBagitTxt"
	case ErrUnsafePath:
		return "UnsafePath"
	case ErrMalformedManifest:
		return "MalformedManifest"
	case ErrOxumMissing:
		return "OxumMissing"
	case ErrOxumMismatch:
		return "OxumMismatch"
	case ErrValidation:
		return "BagValidationError"
	case ErrCancelled:
		return "Cancelled"
	default:
		return "BagError"
	}
}

// BagError is the single error type returned by every exported operation in
// this package. Callers classify it by Kind; errors.As and errors.Unwrap
// both work. errors.Cause (github.com/pkg/errors) does not stop at a
// *BagError: it follows Cause past it to the underlying error, so use
// errors.As to recover the *BagError from a wrapped chain.
type BagError struct {
	Kind    ErrorKind
	Path    string
	Details []ValidationDetail
	cause   error
}

func (e *BagError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Path != "" {
		fmt.Fprintf(&b, " (%s)", e.Path)
	}
	if e.cause != nil {
		fmt.Fprintf(&b, ": %s", e.cause.Error())
	}
	if e.Kind == ErrValidation {
		for _, d := range e.Details {
			fmt.Fprintf(&b, "\n  %s", d.String())
		}
	}
	return b.String()
}

// Unwrap lets errors.Is/errors.As see through to the underlying cause.
func (e *BagError) Unwrap() error { return e.cause }

// Cause implements the github.com/pkg/errors causer interface.
func (e *BagError) Cause() error { return e.cause }

func wrapError(kind ErrorKind, path string, cause error) *BagError {
	if cause != nil {
		cause = errors.Wrap(cause, kind.String())
	}
	return &BagError{Kind: kind, Path: path, cause: cause}
}

// DetailKind discriminates the per-file findings aggregated inside a
// ErrValidation BagError.
type DetailKind int

const (
	// DetailFileMissing: a manifest entry names a file that does not
	// exist.
	DetailFileMissing DetailKind = iota + 1
	// DetailUnexpectedFile: a file exists that no manifest entry names.
	DetailUnexpectedFile
	// DetailChecksumMismatch: a file's computed digest disagrees with its
	// recorded manifest entry, or the file could not be read at all.
	DetailChecksumMismatch
)

// ValidationDetail is one finding surfaced by Validate.
type ValidationDetail struct {
	Kind      DetailKind
	Path      string
	Algorithm string
	Expected  string
	Found     string
}

func (d ValidationDetail) String() string {
	switch d.Kind {
	case DetailFileMissing:
		return fmt.Sprintf("FileMissing(%s)", d.Path)
	case DetailUnexpectedFile:
		return fmt.Sprintf("UnexpectedFile(%s)", d.Path)
	case DetailChecksumMismatch:
		return fmt.Sprintf("ChecksumMismatch(path=%s, algorithm=%s, expected=%s, found=%s)",
			d.Path, d.Algorithm, d.Expected, d.Found)
	default:
		return "unknown validation detail"
	}
}
