package hash

import "github.com/cespare/xxhash/v2"

// Sum computes the xxHash64 of data.
func Sum(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// Digest accumulates an xxHash64 over several writes.
type Digest struct {
	d *xxhash.Digest
}

// NewDigest creates an empty Digest.
func NewDigest() *Digest {
	return &Digest{d: xxhash.New()}
}

// Write adds p to the running hash. It never fails.
func (d *Digest) Write(p []byte) {
	_, _ = d.d.Write(p)
}

// Sum64 returns the hash of everything written so far.
func (d *Digest) Sum64() uint64 {
	return d.d.Sum64()
}
