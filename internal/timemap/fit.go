package timemap

import (
	"sort"

	"github.com/klauspost/compress/zstd"

	"github.com/y3llowvests/k8dnz"
	"github.com/y3llowvests/k8dnz/internal/bitmap"
	"github.com/y3llowvests/k8dnz/internal/container"
	"github.com/y3llowvests/k8dnz/internal/k8err"
	"github.com/y3llowvests/k8dnz/internal/pool"
)

// Objective selects the scalar a window-search candidate is scored by.
type Objective uint8

const (
	ObjectiveMatches Objective = iota
	ObjectiveZstd
	ObjectivePenalized
)

// FitConfig parameterizes a window-search fit (fit-xor / fit-xor-chunked),
// spec.md §4.5. Chunked selects fit-xor-chunked; when false the whole
// target is treated as one chunk (fit-xor).
type FitConfig struct {
	Recipe          k8dnz.Recipe
	Mapping         bitmap.Mapping
	BitsPerEmission uint8
	ResidualMode    container.ResidualMode
	Objective       Objective
	Chunked         bool
	ChunkSize       uint64
	StartEmission   uint64
	SearchEmissions uint64
	Lookahead       uint64
	ScanStep        uint64
	TransPenalty    int64
	ZstdLevel       int
	// RefineTopK, when nonzero and Objective is not ObjectiveMatches,
	// restricts the expensive objective scoring pass to the K candidate
	// starts with the highest raw match count instead of every candidate in
	// [lo, hi]. Zero scores every candidate with the real objective.
	RefineTopK uint64
}

// FitResult is the outcome of a window search: a TM1 index map and a
// residual in the unpacked one-symbol-per-byte form symbolSource produces.
// Improved is false when the best candidate found scored no better than a
// trivial all-zero match, mirroring spec.md §4.5's NoImprovement: the
// caller still gets a usable TM1 and residual, just flagged as unimproved.
type FitResult struct {
	TM1             container.TM1
	ResidualSymbols []byte
	BitsPerEmission uint8
	Modulus         uint32
	Score           int64
	Improved        bool
}

// ResidualPayload packs r.ResidualSymbols into the wire form the caller
// writes out: plain bytes for a byte-mode fit (BitsPerEmission == 8 /
// modulus 256), or an LSB-first packed BFn-ready bit payload otherwise.
func (r FitResult) ResidualPayload() []byte {
	if r.Modulus == 256 {
		return r.ResidualSymbols
	}
	return packBitfieldSymbols(r.ResidualSymbols, r.BitsPerEmission)
}

// FitWindow searches the generator stream (after cfg.Mapping) for the best
// window(s) matching target, per spec.md §4.5.
func FitWindow(cfg FitConfig, target []byte) (FitResult, error) {
	n := uint64(len(target))
	searchHi := cfg.StartEmission + cfg.SearchEmissions
	minPositions := searchHi + n
	symbols, modulus, err := symbolSource(cfg.Recipe, cfg.Mapping, cfg.BitsPerEmission, minPositions)
	if err != nil {
		return FitResult{}, err
	}

	chunkSize := cfg.ChunkSize
	if !cfg.Chunked || chunkSize == 0 || chunkSize > n {
		chunkSize = n
	}

	var indices []uint64
	var residual []byte
	var total int64
	searchLo := cfg.StartEmission
	lookBound := searchHi

	for pos := uint64(0); pos < n; {
		end := pos + chunkSize
		if end > n {
			end = n
		}
		chunkTarget := target[pos:end]
		start, score, chunkResidual, found := searchChunk(cfg, symbols, modulus, chunkTarget, searchLo, lookBound)
		if !found {
			return FitResult{}, k8err.New(k8err.StreamExhausted, "timemap: no candidate window fits within search_emissions")
		}
		for i := range chunkTarget {
			indices = append(indices, start+uint64(i))
		}
		residual = append(residual, chunkResidual...)
		total += score

		searchLo = start
		lookBound = start + cfg.Lookahead
		if lookBound > searchHi {
			lookBound = searchHi
		}
		pos = end
	}

	tm1 := container.NewTM1FromIndices(uint8(cfg.Recipe.Mode), cfg.BitsPerEmission, cfg.Recipe.MaxTicksCap, indices)
	return FitResult{
		TM1:             tm1,
		ResidualSymbols: residual,
		BitsPerEmission: cfg.BitsPerEmission,
		Modulus:         modulus,
		Score:           total,
		Improved:        total > 0,
	}, nil
}

// searchChunk scans candidate starts s in [lo, hi] (stepped by
// cfg.ScanStep, default 1), each requiring a full chunkTarget-length
// window within symbols, and returns the highest-scoring start. Ties go to
// the smaller s, which falls out of ascending iteration plus a strict
// greater-than replacement test.
func searchChunk(cfg FitConfig, symbols []byte, modulus uint32, chunkTarget []byte, lo, hi uint64) (start uint64, score int64, residual []byte, ok bool) {
	step := cfg.ScanStep
	if step == 0 {
		step = 1
	}
	l := uint64(len(chunkTarget))

	starts := make([]uint64, 0, (hi-lo)/step+1)
	for s := lo; s <= hi && s+l <= uint64(len(symbols)); s += step {
		starts = append(starts, s)
	}
	if cfg.RefineTopK > 0 && cfg.Objective != ObjectiveMatches && uint64(len(starts)) > cfg.RefineTopK {
		starts = topKByMatches(starts, symbols, chunkTarget, cfg.RefineTopK)
	}

	found := false
	var bestScore int64
	var bestStart uint64
	var bestResidual []byte

	// Each candidate start needs a scratch residual buffer only long
	// enough to live until it's scored; pool.Get/Put keeps the thousands
	// of per-candidate allocations a wide search_emissions range produces
	// off the GC, matching how the pool is meant to absorb a hot
	// fixed-size-buffer-per-iteration loop.
	for _, s := range starts {
		cand := symbols[s : s+l]
		scratch := pool.Get(int(l))
		computeResidualInto(scratch, cfg.ResidualMode, cand, chunkTarget, modulus)
		sc := scoreResidual(cfg, modulus, cand, chunkTarget, scratch)
		if !found || sc > bestScore {
			found = true
			bestScore = sc
			bestStart = s
			if bestResidual != nil {
				pool.Put(bestResidual)
			}
			bestResidual = scratch
		} else {
			pool.Put(scratch)
		}
	}
	// The winning scratch buffer is pool-owned; FitResult hands the
	// residual to the caller permanently, so it is copied out here and the
	// pool buffer released rather than leaking a pooled slice past this
	// function's return.
	if bestResidual != nil {
		owned := append([]byte(nil), bestResidual...)
		pool.Put(bestResidual)
		bestResidual = owned
	}
	return bestStart, bestScore, bestResidual, found
}

// topKByMatches ranks candidates by raw match count against chunkTarget and
// keeps the K with the highest counts, returned sorted by start ascending
// so the caller's ascending-iteration tie-break (smaller start wins) still
// applies within the reduced set.
func topKByMatches(starts []uint64, symbols, chunkTarget []byte, k uint64) []uint64 {
	l := uint64(len(chunkTarget))
	type ranked struct {
		start uint64
		count int
	}
	scored := make([]ranked, len(starts))
	for i, s := range starts {
		scored[i] = ranked{start: s, count: countMatches(symbols[s:s+l], chunkTarget)}
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].count != scored[j].count {
			return scored[i].count > scored[j].count
		}
		return scored[i].start < scored[j].start
	})
	if uint64(len(scored)) > k {
		scored = scored[:k]
	}
	out := make([]uint64, len(scored))
	for i, r := range scored {
		out[i] = r.start
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// scoreResidual scores a candidate window already diffed into residual,
// per cfg.Objective.
func scoreResidual(cfg FitConfig, modulus uint32, cand, target, residual []byte) int64 {
	switch cfg.Objective {
	case ObjectiveZstd:
		return -int64(zstdSize(residual, cfg.ZstdLevel))
	case ObjectivePenalized:
		m := countMatches(cand, target)
		tr := countTransitions(cand)
		return int64(m) - cfg.TransPenalty*int64(tr)
	default: // ObjectiveMatches
		return int64(countMatches(cand, target))
	}
}

func countMatches(cand, target []byte) int {
	n := 0
	for i := range target {
		if cand[i] == target[i] {
			n++
		}
	}
	return n
}

// countTransitions counts adjacent-symbol changes within cand, the
// "transitions" term of the matches-minus-penalty objective: a window that
// jitters a lot between symbols is penalized relative to a smoother one
// with the same raw match count.
func countTransitions(cand []byte) int {
	n := 0
	for i := 1; i < len(cand); i++ {
		if cand[i] != cand[i-1] {
			n++
		}
	}
	return n
}

// computeResidualInto writes r[i] = target[i] (op) cand[i] into out, which
// must already be at least len(target) long.
func computeResidualInto(out []byte, mode container.ResidualMode, cand, target []byte, modulus uint32) {
	for i := range target {
		switch mode {
		case container.ResidualSub:
			out[i] = byte((uint32(target[i]) + modulus - uint32(cand[i])%modulus) % modulus)
		default: // ResidualXOR
			out[i] = target[i] ^ cand[i]
		}
	}
}

// ZstdSize returns the compressed size of data at the given zstd level; the
// CLI's bf-lanes reporter uses it to show what a residual payload would
// score under the zstd fit objective without re-running a fit.
func ZstdSize(data []byte, level int) int {
	return zstdSize(data, level)
}

// zstdSize returns the compressed size of data at the given zstd level,
// the ObjectiveZstd minimization target. A fresh encoder is created per
// call, so each scored candidate pays for one encoder setup.
func zstdSize(data []byte, level int) int {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(encoderLevel(level)))
	if err != nil {
		return len(data)
	}
	defer enc.Close()
	return len(enc.EncodeAll(data, nil))
}

// encoderLevel maps the CLI's --zstd-level integer onto the package's
// four named speed tiers; the exact numeric boundaries don't matter for a
// fitter objective, only that higher --zstd-level asks for more
// compression effort.
func encoderLevel(level int) zstd.EncoderLevel {
	switch {
	case level <= 1:
		return zstd.SpeedFastest
	case level <= 6:
		return zstd.SpeedDefault
	case level <= 12:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}
