package rng

// xorshift128p is a 128-bit xorshift+ generator producing one 64-bit
// word per step. It is fast and statistically adequate for operation
// reordering, but it is NOT cryptographically secure: its output must
// never feed key material, nonces, or anything secret-dependent.
//
// See https://en.wikipedia.org/wiki/Xorshift#xorshift+
type xorshift128p struct {
	state  [2]uint64
	seeded bool
}

func (x *xorshift128p) seed(a, b uint64) {
	x.state[0] = a
	x.state[1] = b
	x.seeded = true
}

func (x *xorshift128p) next() uint64 {
	t0 := x.state[0]
	t1 := x.state[1]
	x.state[0] = t1

	t0 ^= t0 << 23
	t0 ^= t0 >> 18
	t0 ^= t1 ^ (t1 >> 5)

	x.state[1] = t0

	return t0 + t1
}
