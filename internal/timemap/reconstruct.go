package timemap

import (
	"github.com/y3llowvests/k8dnz"
	"github.com/y3llowvests/k8dnz/internal/bitmap"
	"github.com/y3llowvests/k8dnz/internal/container"
	"github.com/y3llowvests/k8dnz/internal/k8err"
)

// ReconstructConfig parameterizes the inverse of a fit: regenerate the
// generator stream, apply the same BitMapping, and invert the residual at
// every TM1 index, per spec.md §4.6.
type ReconstructConfig struct {
	Recipe          k8dnz.Recipe
	Mapping         bitmap.Mapping
	BitsPerEmission uint8
	ResidualMode    container.ResidualMode
	MaxTicks        uint64
}

// Reconstruct regenerates the N output symbols tm1 describes, combining
// each regenerated symbol with its residual via the inverse of
// cfg.ResidualMode. residual must hold len(tm1.Indices()) unpacked symbols
// (see unpackBitfieldSymbols for the bitfield wire form).
//
// cfg.MaxTicks must be >= tm1.MaxTicksUsed or this returns
// ReconstructShort without attempting regeneration: the reconstructor
// never widens the caller's tick budget on its own, per spec.md §4.6.
func Reconstruct(cfg ReconstructConfig, tm1 container.TM1, residual []byte) ([]byte, error) {
	if cfg.MaxTicks < tm1.MaxTicksUsed {
		return nil, k8err.New(k8err.ReconstructShort, "timemap: reconstruct max_ticks is below the fit-time max_ticks")
	}
	indices := tm1.Indices()
	if len(indices) == 0 {
		return nil, nil
	}
	if len(residual) != len(indices) {
		return nil, k8err.New(k8err.ParamMismatch, "timemap: residual length does not match timemap index count")
	}

	recipe := cfg.Recipe
	recipe.MaxTicksCap = cfg.MaxTicks
	minPositions := indices[len(indices)-1] + 1
	symbols, modulus, err := symbolSource(recipe, cfg.Mapping, cfg.BitsPerEmission, minPositions)
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(indices))
	for i, idx := range indices {
		xhat := symbols[idx]
		switch cfg.ResidualMode {
		case container.ResidualSub:
			out[i] = byte((uint32(residual[i]) + uint32(xhat)) % modulus)
		default: // ResidualXOR
			out[i] = residual[i] ^ xhat
		}
	}
	return out, nil
}
