package timemap

import (
	"encoding/binary"

	"github.com/y3llowvests/k8dnz"
	"github.com/y3llowvests/k8dnz/internal/container"
	"github.com/y3llowvests/k8dnz/internal/k8err"
)

// Law selects a gen-law start-position rule, spec.md §4.5.
type Law uint8

const (
	LawClosedForm Law = iota
	LawJumpWalk
)

// GenLawConfig parameterizes a law-driven (window-search-free) fit.
type GenLawConfig struct {
	Law             Law
	RecipeID        uint64 // stable identifier for the recipe, typically its Checksum
	N               uint64 // number of output symbols
	Window          uint64 // legal window W the start must land within
	ClosedFormA     uint64 // closed-form multiplier constant
	JumpWalkM       uint64 // jump-walk multiplier
	JumpWalkC       uint64 // jump-walk increment
	Mode            k8dnz.Mode
	BitsPerEmission uint8
	MaxTicksCap     uint64
}

// GenLaw deterministically computes a contiguous TM1 (TM1[i] = s+i) without
// any window search, per spec.md §4.5's closed-form and jump-walk laws.
func GenLaw(cfg GenLawConfig) (container.TM1, error) {
	if cfg.Window == 0 {
		return container.TM1{}, k8err.New(k8err.ParamMismatch, "timemap: gen-law window must be nonzero")
	}
	var s uint64
	switch cfg.Law {
	case LawClosedForm:
		s = (fnv1a64RecipeN(cfg.RecipeID, cfg.N) * cfg.ClosedFormA) % cfg.Window
	case LawJumpWalk:
		s = jumpWalk(cfg.Window, cfg.JumpWalkM, cfg.JumpWalkC)
	default:
		return container.TM1{}, k8err.New(k8err.ParamMismatch, "timemap: unknown law type")
	}

	indices := make([]uint64, cfg.N)
	for i := range indices {
		indices[i] = s + uint64(i)
	}
	return container.NewTM1FromIndices(uint8(cfg.Mode), cfg.BitsPerEmission, cfg.MaxTicksCap, indices), nil
}

// fnv1a64RecipeN computes the 64-bit FNV-1a hash of recipeID||N (each as an
// 8-byte little-endian field), the closed-form law's fnv1a(recipe_id || N)
// term. It is hand-rolled rather than taken from stdlib hash/fnv because
// the law needs a pure function over two fixed uint64 inputs, not an
// io.Writer-shaped hash.Hash: FNV-1a's accumulation is three lines either
// way, and a pure function avoids allocating a hash.Hash per candidate.
func fnv1a64RecipeN(recipeID, n uint64) uint64 {
	const (
		offsetBasis uint64 = 0xCBF29CE484222325
		prime       uint64 = 0x100000001B3
	)
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], recipeID)
	binary.LittleEndian.PutUint64(buf[8:16], n)

	h := offsetBasis
	for _, b := range buf {
		h ^= uint64(b)
		h *= prime
	}
	return h
}

// jumpWalk iterates s_{k+1} = (s_k*m + c) mod w for K = floor(log2(w))
// steps from s_0 = 0, per spec.md §4.5.
func jumpWalk(w, m, c uint64) uint64 {
	k := log2Floor(w)
	s := uint64(0)
	for i := uint64(0); i < k; i++ {
		s = (s*m + c) % w
	}
	return s
}

func log2Floor(w uint64) uint64 {
	if w == 0 {
		return 0
	}
	n := uint64(0)
	for w > 1 {
		w >>= 1
		n++
	}
	return n
}
