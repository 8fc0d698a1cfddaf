// Package orbband implements OrbBandsplit, the diagnostic block-to-lane
// bucketing primitive of spec.md §4.8: split a byte stream into
// fixed-width blocks, find the first tick at which the engine's combined
// orbit phase encodes each block, and bucket blocks into lanes by that
// tick.
package orbband

import (
	"github.com/y3llowvests/k8dnz"
	"github.com/y3llowvests/k8dnz/internal/container"
	"github.com/y3llowvests/k8dnz/internal/k8err"
)

// DefaultMod is the spec-mandated default modulus: 2^32-1 preserves lane
// entropy. Mod2to32 is documented for completeness but degenerates to a
// single lane for most recipes (see Config.Mod's doc comment).
const (
	DefaultMod uint64 = 1<<32 - 1
	Mod2to32   uint64 = 1 << 32
)

// Config parameterizes one OrbBandsplit run.
type Config struct {
	BlockBytes  int    // block width in bytes, 1-4 (encoded as a little-endian uint32)
	Mod         uint64 // modulus for the phase/encoding comparison; DefaultMod unless degeneracy is explicitly wanted
	BucketShift uint   // right-shift applied to tfirst before bucketing
	BucketMod   uint64 // number of lanes: lane = (tfirst >> BucketShift) mod BucketMod
	MaxTicks    uint64 // search budget per block; StreamExhausted if exceeded
	TagBits     uint8  // 0 selects one byte per tag; 1-8 selects packed TG1 tags
}

// Result holds OrbBandsplit's two output streams: Data (input blocks in
// original order, zero-padded to a whole number of blocks) and Tags (lane
// assignments, one per block).
type Result struct {
	Data []byte
	Tags []byte // one byte per block when Config.TagBits == 0
	TG1  container.TG1
	// Packed is true when Tags should be read via container.TG1 (Config.TagBits != 0).
	Packed bool
}

// Run splits input into Config.BlockBytes-wide blocks, computes each
// block's lane via TFirst, and returns the .data.bin / .tags.bin payloads.
func Run(recipe k8dnz.Recipe, cfg Config, input []byte) (Result, error) {
	if cfg.BlockBytes < 1 || cfg.BlockBytes > 4 {
		return Result{}, k8err.New(k8err.ParamMismatch, "orbband: block_bytes must be in [1,4]")
	}
	if cfg.Mod == 0 || cfg.BucketMod == 0 {
		return Result{}, k8err.New(k8err.ParamMismatch, "orbband: mod and bucket_mod must be nonzero")
	}

	padded := padToBlocks(input, cfg.BlockBytes)
	numBlocks := len(padded) / cfg.BlockBytes

	walker := newPhaseWalker(recipe)
	lanes := make([]uint32, numBlocks)
	for i := 0; i < numBlocks; i++ {
		block := padded[i*cfg.BlockBytes : (i+1)*cfg.BlockBytes]
		enc := encodeBlock(block)
		t, err := walker.tfirst(enc, cfg.Mod, cfg.MaxTicks)
		if err != nil {
			return Result{}, err
		}
		lanes[i] = uint32((t >> cfg.BucketShift) % cfg.BucketMod)
	}

	if cfg.TagBits == 0 {
		tags := make([]byte, numBlocks)
		for i, l := range lanes {
			tags[i] = byte(l)
		}
		return Result{Data: padded, Tags: tags}, nil
	}

	var payload []byte
	for i, l := range lanes {
		payload = container.PutTag(payload, cfg.TagBits, i, l)
	}
	tg1 := container.TG1{TagBits: cfg.TagBits, Count: uint32(numBlocks), Payload: payload}
	return Result{Data: padded, TG1: tg1, Packed: true}, nil
}

func padToBlocks(input []byte, blockBytes int) []byte {
	rem := len(input) % blockBytes
	if rem == 0 {
		out := make([]byte, len(input))
		copy(out, input)
		return out
	}
	out := make([]byte, len(input)+(blockBytes-rem))
	copy(out, input)
	return out
}

// encodeBlock interprets a 1-4 byte block as a little-endian uint32,
// zero-extending shorter blocks.
func encodeBlock(block []byte) uint32 {
	var v uint32
	for i, b := range block {
		v |= uint32(b) << (8 * uint(i))
	}
	return v
}

// phaseWalker advances the combined A+C orbit phase one tick at a time,
// independent of the CadenceEngine's lockstep/rim machinery: OrbBandsplit
// is defined directly over "engine phase", not over emissions, so it
// replays only the unconditional per-tick phase advance (spec.md §4.2 step
// 1) and never enters lockstep.
type phaseWalker struct {
	base k8dnz.Turn // A.Phase + C.Phase at tick 0
	step k8dnz.Turn // A.Omega + C.Omega, guaranteed nonzero by Recipe's own invariant
}

func newPhaseWalker(r k8dnz.Recipe) *phaseWalker {
	return &phaseWalker{
		base: r.OrbitA.Phase.Add(r.OrbitC.Phase),
		step: r.OrbitA.Omega.Add(r.OrbitC.Omega),
	}
}

// tfirst finds the smallest t in [0, maxTicks] such that
// phaseAt(t).Shift(32) mod mod == target mod mod, per spec.md §4.8's
// tfirst(block, mod). The search is linear in t but each step is O(1); it
// is bounded by maxTicks and fails with StreamExhausted rather than
// searching forever, since mod values near 2^32 can make a match
// arbitrarily rare for an unlucky target (the mod=2^32 degeneracy spec.md
// calls out is the extreme case of this).
func (w *phaseWalker) tfirst(target uint32, mod, maxTicks uint64) (uint64, error) {
	wantedMod := uint64(target) % mod
	cur := w.base
	for t := uint64(0); t <= maxTicks; t++ {
		val := uint64(cur.Shift(32)) % mod
		if val == wantedMod {
			return t, nil
		}
		cur = cur.Add(w.step)
	}
	return 0, k8err.New(k8err.StreamExhausted, "orbband: tfirst search exceeded max_ticks")
}
