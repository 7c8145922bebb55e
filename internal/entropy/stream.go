package entropy

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/big"
)

const (
	// Keep these domains stable; changing them changes every draw outcome.
	RarityDomain = "redemption/v1/rarity"
	PoolDomain   = "redemption/v1/pool"
)

// Stream is a deterministic byte stream derived from sha256(seed || counter).
// Two streams seeded from the same material under different domains are
// independent.
type Stream struct {
	seed    [32]byte
	counter uint64
	buf     [32]byte
	bufPos  int
}

// NewStream seeds a stream with a domain-separated hash of parts.
func NewStream(domain string, parts ...[]byte) *Stream {
	return &Stream{seed: HashDomain(domain, parts...), bufPos: 32}
}

func (s *Stream) Read(p []byte) {
	for len(p) > 0 {
		if s.bufPos >= len(s.buf) {
			s.refill()
		}
		n := copy(p, s.buf[s.bufPos:])
		s.bufPos += n
		p = p[n:]
	}
}

func (s *Stream) refill() {
	var in [32 + 8]byte
	copy(in[:32], s.seed[:])
	binary.LittleEndian.PutUint64(in[32:], s.counter)
	s.counter++
	s.buf = sha256.Sum256(in[:])
	s.bufPos = 0
}

// Intn draws uniformly from [0, n) by rejection sampling.
func (s *Stream) Intn(n uint64) (uint64, error) {
	if n == 0 {
		return 0, fmt.Errorf("n must be > 0")
	}
	if n == 1 {
		return 0, nil
	}
	max := new(big.Int).SetUint64(n)
	bitLen := max.BitLen()
	nbytes := (bitLen + 7) / 8
	excess := uint(nbytes*8 - bitLen)

	buf := make([]byte, nbytes)
	for tries := 0; tries < 1_000_000; tries++ {
		s.Read(buf)
		if excess != 0 {
			buf[0] &= byte(0xff >> excess)
		}
		v := new(big.Int).SetBytes(buf)
		if v.Cmp(max) < 0 {
			return v.Uint64(), nil
		}
	}
	return 0, fmt.Errorf("failed to draw Intn after many tries (n=%d)", n)
}

// HashDomain hashes parts under a domain tag. Each part is length-prefixed to
// avoid ambiguous concatenations.
func HashDomain(domain string, parts ...[]byte) [32]byte {
	h := sha256.New()
	_, _ = h.Write([]byte(domain))

	var lenBuf [4]byte
	for _, p := range parts {
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(p)))
		_, _ = h.Write(lenBuf[:])
		_, _ = h.Write(p)
	}

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// RarityRoll derives the rarity entropy in [1,100] from a randomness signature.
func RarityRoll(sig []byte) (uint64, error) {
	v, err := NewStream(RarityDomain, sig).Intn(100)
	if err != nil {
		return 0, err
	}
	return v + 1, nil
}

// PoolDraw derives an independent draw in [0, n) from the same signature.
func PoolDraw(sig []byte, n uint64) (uint64, error) {
	return NewStream(PoolDomain, sig).Intn(n)
}
