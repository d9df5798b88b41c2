// Package agent implements the Policy capability spec §4.5/§9 describe:
// pure functions of a market.View and a wallet.Wallet that return the
// trades an agent wants to make this block, plus a describe/snapshot/
// restore surface for save-and-resume tests.
package agent

// RNG is a splitmix64 generator. None of the example repos in this pack
// carry a dedicated PRNG dependency, and spec §9 requires RNG state to be
// directly introspectable for snapshot/restore (math/rand's generators
// don't expose their internal state for that) — so this is a small,
// from-scratch implementation rather than a stdlib or third-party one.
// splitmix64 is the same generator Go's runtime uses internally to seed
// map iteration and has well-documented statistical properties for a
// single substream per agent.
type RNG struct {
	state uint64
}

// NewRNG constructs an RNG at the given seed.
func NewRNG(seed uint64) *RNG {
	return &RNG{state: seed}
}

// DeriveAgentSeed mixes a run-level seed with an agent's index to produce
// an independent substream seed per agent (spec §9: "never use a global
// generator; each agent owns a substream").
func DeriveAgentSeed(runSeed uint64, agentIndex int) uint64 {
	mixed := runSeed + uint64(agentIndex)*0x9E3779B97F4A7C15
	z := mixed
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// Uint64 returns the next value in the stream and advances it.
func (r *RNG) Uint64() uint64 {
	r.state += 0x9E3779B97F4A7C15
	z := r.state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// Float64 returns a uniform value in [0, 1).
func (r *RNG) Float64() float64 {
	return float64(r.Uint64()>>11) * (1.0 / (1 << 53))
}

// Intn returns a uniform value in [0, n).
func (r *RNG) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.Uint64() % uint64(n))
}

// State returns the generator's current internal state, for snapshotting.
func (r *RNG) State() uint64 { return r.state }

// SetState restores a previously captured state.
func (r *RNG) SetState(s uint64) { r.state = s }
