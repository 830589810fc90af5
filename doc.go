/*
Package bagit implements enough of the BagIt File Packaging specification
(RFC 8493, and the pre-RFC drafts back to 0.93) to convert a directory into a
conforming bag, load an existing bag back off disk, and validate its
structural and fixity properties.

A bag wraps an arbitrary payload directory with manifests, checksums, and
plain-text tag files so that the package can be verified bit-exactly after
transmission or long-term storage. See https://tools.ietf.org/html/rfc8493.

The three entry points are MakeBag, Load, and (*Bag).Validate. MakeBag
converts a plain directory in place; Load opens an existing bag read-only;
Validate reconciles the three views of a bag's contents (filesystem, payload
manifests, tagmanifests) and reports every discrepancy it finds rather than
stopping at the first one.

This package does not retrieve the URLs declared in a fetch.txt, does not
produce archive or compression formats, and does not mutate payload file
contents beyond the one-time move into data/ performed by MakeBag. Argument
parsing, logging setup and batch orchestration belong to callers; see
cmd/bagit for a thin example.
*/
package bagit
