// Package metrics defines the counters this module reports while hashing
// and validating bags, backed by facebookgo/stats the way bendo's
// server/fixity.go reports its background fixity-check counters.
package metrics

import "github.com/facebookgo/stats"

// Sink receives counts as work happens. A nil Sink is valid wherever this
// module accepts one: its callers check for nil and then make no Bump*
// call at all.
type Sink interface {
	BumpFilesHashed(n int)
	BumpBytesHashed(n int64)
	BumpChecksumMismatch(n int)
	BumpCancelled(n int)
}

// StatsSink adapts a facebookgo/stats.Client into a Sink.
type StatsSink struct {
	Client stats.Client
}

func (s StatsSink) BumpFilesHashed(n int) {
	stats.BumpSum(s.Client, "bagit.files_hashed", float64(n))
}

func (s StatsSink) BumpBytesHashed(n int64) {
	stats.BumpSum(s.Client, "bagit.bytes_hashed", float64(n))
}

func (s StatsSink) BumpChecksumMismatch(n int) {
	stats.BumpSum(s.Client, "bagit.checksum_mismatch", float64(n))
}

func (s StatsSink) BumpCancelled(n int) {
	stats.BumpSum(s.Client, "bagit.cancelled", float64(n))
}
