// Package k8dnz implements a deterministic fixed-point "program + patch"
// codec: a CadenceEngine generates a byte stream from a compact Recipe, and
// a TimemapFitter/Reconstructor pair turns any target byte sequence into a
// small index map plus residual against that stream.
//
// The package supports:
//   - A CadenceEngine driven by two coupled orbits with lockstep detection
//   - A FieldModel with a deterministic quantizer producing PairToken/RGBPair streams
//   - BitMapping transforms (identity, splitmix64, text40-field, bitfield)
//   - TimemapFitter window search (fit-xor, fit-xor-chunked) and law-driven
//     index generation (gen-law)
//   - Reconstructor: regenerate the stream and invert the residual
//   - .ark/K8R/TM1/BFn/TG1/K8P2 container formats with CRC32 framing
//   - OrbBandsplit, a diagnostic block-to-lane bucketing primitive
//   - A Merkle driver composing any number of leaf artifacts via K8P2
//
// Basic usage for generating a byte stream:
//
//	recipe, err := k8dnz.New(k8dnz.TunedProfile())
//	data, err := k8dnz.ByteStream(recipe, emissions)
package k8dnz
