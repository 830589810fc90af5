// Package concurrency provides the small worker-pool primitives used to
// bound parallelism while hashing or walking a bag's payload.
package concurrency

// Gate is a counting semaphore built on a buffered channel, the same shape
// as bendo's util.Gate: Enter blocks until a slot is free, Leave releases
// one.
type Gate chan struct{}

// NewGate returns a Gate allowing up to n concurrent holders. n < 1 is
// treated as 1.
func NewGate(n int) Gate {
	if n < 1 {
		n = 1
	}
	return make(Gate, n)
}

func (g Gate) Enter() { g <- struct{}{} }

func (g Gate) Leave() { <-g }
