// Package randutil centralises RNG construction so every wheel draw and
// test gets a reproducible source from a single int64 seed.
package randutil

import (
	crand "crypto/rand"
	"encoding/binary"
	rand "math/rand/v2"
)

// New returns a *rand.Rand seeded deterministically from seed. rand/v2's
// PCG wants two 64-bit seeds, so the single seed is stretched with a
// splitmix-style finalizer.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(stretch(u), stretch(u^0x9e3779b97f4a7c15)))
}

// NewEntropy returns a *rand.Rand seeded from the OS entropy source, for
// production wheel draws where reproducibility is not wanted.
func NewEntropy() *rand.Rand {
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		// crypto/rand failing is unrecoverable at startup
		panic("randutil: crypto/rand unavailable: " + err.Error())
	}
	return New(int64(binary.LittleEndian.Uint64(buf[:])))
}

func stretch(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
