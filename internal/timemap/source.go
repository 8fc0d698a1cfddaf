// Package timemap implements TimemapFitter and Reconstructor, spec.md
// §4.5-4.6: turning a target byte sequence into a TM1 index map plus a
// residual (by window search or by a deterministic law), and the inverse
// operation that regenerates the original bytes from them.
package timemap

import (
	"github.com/y3llowvests/k8dnz"
	"github.com/y3llowvests/k8dnz/internal/bitmap"
	"github.com/y3llowvests/k8dnz/internal/k8err"
)

// bytesPerEmission reports how many raw stream bytes one engine emission
// contributes, per the recipe's Mode.
func bytesPerEmission(mode k8dnz.Mode) uint64 {
	if mode == k8dnz.ModeRGBPair {
		return 6
	}
	return 1
}

// symbolSource regenerates recipe's byte stream, applies mapping, and
// returns a flat one-byte-per-position symbol array together with the
// modulus each symbol is drawn from (256 for a byte-mode mapping, 2^bpe
// for a bitfield mapping). It guarantees at least minPositions symbols or
// returns StreamExhausted.
func symbolSource(recipe k8dnz.Recipe, mapping bitmap.Mapping, bitsPerEmission uint8, minPositions uint64) ([]byte, uint32, error) {
	bpe := bytesPerEmission(recipe.Mode)
	capEmissions := (minPositions + bpe - 1) / bpe
	if capEmissions == 0 {
		capEmissions = 1
	}
	raw, _ := k8dnz.ByteStream(recipe, capEmissions)

	mapped, err := bitmap.Apply(mapping, raw)
	if err != nil {
		return nil, 0, err
	}

	var symbols []byte
	var modulus uint32
	if mapped.Bytes != nil {
		symbols = mapped.Bytes
		modulus = 256
	} else {
		symbols = unpackBitfieldSymbols(mapped.Bits, mapped.BitCount, bitsPerEmission)
		modulus = uint32(1) << bitsPerEmission
	}

	if uint64(len(symbols)) < minPositions {
		return symbols, modulus, k8err.New(k8err.StreamExhausted, "timemap: generator stream exhausted before reaching the requested search range")
	}
	return symbols, modulus, nil
}

// unpackBitfieldSymbols expands a LSB-first packed bit payload into one
// byte per bpe-bit group, each holding that group's value in its low bpe
// bits. This is the un-packed form the fitter and reconstructor match and
// diff against; the packed BFn wire form is only assembled at the very end
// by the caller (cmd/k8dnz), via internal/container.
func unpackBitfieldSymbols(bits []byte, bitCount uint32, bpe uint8) []byte {
	if bpe == 0 {
		return nil
	}
	n := bitCount / uint32(bpe)
	out := make([]byte, n)
	for i := uint32(0); i < n; i++ {
		var v byte
		for b := uint8(0); b < bpe; b++ {
			bitIdx := i*uint32(bpe) + uint32(b)
			bit := (bits[bitIdx/8] >> (bitIdx % 8)) & 1
			v |= bit << b
		}
		out[i] = v
	}
	return out
}

// packBitfieldSymbols is unpackBitfieldSymbols's inverse, used to turn a
// fitter's unpacked residual/target symbols back into an LSB-first packed
// payload for BFn encoding.
func packBitfieldSymbols(symbols []byte, bpe uint8) []byte {
	out := make([]byte, (uint64(len(symbols))*uint64(bpe)+7)/8)
	for i, v := range symbols {
		for b := uint8(0); b < bpe; b++ {
			bitIdx := uint64(i)*uint64(bpe) + uint64(b)
			if (v>>b)&1 != 0 {
				out[bitIdx/8] |= 1 << (bitIdx % 8)
			}
		}
	}
	return out
}
