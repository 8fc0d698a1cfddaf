package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/y3llowvests/k8dnz"
	"github.com/y3llowvests/k8dnz/internal/bitmap"
	"github.com/y3llowvests/k8dnz/internal/container"
	"github.com/y3llowvests/k8dnz/internal/k8err"
)

// recipeFlags holds the subset of RecipeSpec the CLI exposes directly,
// layered on top of a named --profile preset the way cwebp's -preset
// establishes defaults before individual flags override them.
type recipeFlags struct {
	profile     string
	mode        string
	maxTicksCap uint64
}

func buildRecipe(f recipeFlags) (k8dnz.Recipe, error) {
	var spec k8dnz.RecipeSpec
	switch f.profile {
	case "tuned", "":
		spec = k8dnz.TunedProfile()
	case "baseline":
		spec = k8dnz.BaselineProfile()
	default:
		return k8dnz.Recipe{}, k8err.New(k8err.ParamMismatch, fmt.Sprintf("unknown --profile %q", f.profile))
	}
	switch f.mode {
	case "", "pair":
		spec.Mode = k8dnz.ModePair
	case "rgbpair":
		spec.Mode = k8dnz.ModeRGBPair
	default:
		return k8dnz.Recipe{}, k8err.New(k8err.ParamMismatch, fmt.Sprintf("unknown --mode %q", f.mode))
	}
	if f.maxTicksCap != 0 {
		spec.MaxTicksCap = f.maxTicksCap
	}
	return k8dnz.New(spec)
}

// parseBitMapping parses the --map flag family into a bitmap.Mapping. The
// kind name selects which of the remaining flags apply, mirroring how
// --alpha_filter only means something once -lossless picks VP8L in
// cmd/gwebp.
func parseBitMapping(kind string, seed uint64, sub string, bitsPerEmission uint8, tau int32, smoothShift uint) (bitmap.Mapping, error) {
	m := bitmap.Mapping{Seed: seed, BitsPerEmission: bitsPerEmission, Tau: tau, SmoothShift: smoothShift}
	switch kind {
	case "identity":
		m.Kind = bitmap.Identity
	case "splitmix64":
		m.Kind = bitmap.SplitMix64
	case "text40-field":
		m.Kind = bitmap.Text40Field
	case "bitfield":
		m.Kind = bitmap.Bitfield
		switch sub {
		case "geom":
			m.Sub = bitmap.Geom
		case "hash":
			m.Sub = bitmap.Hash
		case "lowpass-thresh":
			m.Sub = bitmap.LowpassThresh
		default:
			return bitmap.Mapping{}, k8err.New(k8err.ParamMismatch, fmt.Sprintf("unknown --bit-mapping %q", sub))
		}
	default:
		return bitmap.Mapping{}, k8err.New(k8err.ParamMismatch, fmt.Sprintf("unknown --map %q", kind))
	}
	return m, nil
}

func parseResidualMode(mode string) (container.ResidualMode, error) {
	switch mode {
	case "", "xor":
		return container.ResidualXOR, nil
	case "sub":
		return container.ResidualSub, nil
	default:
		return 0, k8err.New(k8err.ParamMismatch, fmt.Sprintf("unknown --residual-mode %q", mode))
	}
}

// writeFileAtomic writes data to path by first writing to path+".tmp" and
// renaming over the final name, so a crash or interrupt mid-write never
// leaves a truncated output file in place (spec.md §5).
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return k8err.Wrap(k8err.Other, fmt.Sprintf("write %s", tmp), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return k8err.Wrap(k8err.Other, fmt.Sprintf("rename %s -> %s", tmp, path), err)
	}
	return nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, k8err.Wrap(k8err.Other, fmt.Sprintf("read %s", path), err)
	}
	return data, nil
}

// defaultOutputPath mirrors gwebp's <input>.<ext> default-output convention
// when -o is not given.
func defaultOutputPath(input, ext string) string {
	base := input
	if e := filepath.Ext(base); e != "" {
		base = base[:len(base)-len(e)]
	}
	return base + ext
}

// xorBytes combines plaintext and keystream byte for byte; len(keystream)
// must be >= len(plaintext). The .ark "encryption" is keystream XOR
// obfuscation (spec.md §1 Non-goals), so the same function both encodes and
// decodes.
func xorBytes(plaintext, keystream []byte) []byte {
	out := make([]byte, len(plaintext))
	for i := range plaintext {
		out[i] = plaintext[i] ^ keystream[i]
	}
	return out
}

// keystreamFor generates at least n bytes of recipe's byte-stream view and
// truncates to exactly n, the shared encode/decode keystream derivation.
func keystreamFor(recipe k8dnz.Recipe, n int) ([]byte, error) {
	bpe := recipe.Mode.BytesPerEmission()
	emissions := (uint64(n) + uint64(bpe) - 1) / uint64(bpe)
	if emissions == 0 {
		emissions = 1
	}
	stream, err := k8dnz.ByteStream(recipe, emissions)
	if err != nil {
		return nil, err
	}
	if len(stream) < n {
		return nil, k8err.New(k8err.StreamExhausted, "keystream shorter than input")
	}
	return stream[:n], nil
}
