// Package bitmap implements the BitMapping family: the fixed set of
// transforms that turn a generator's flattened byte stream into either the
// byte stream or the bit stream a TimemapFitter matches against, per
// spec.md §4.4.
//
// Mapping is a tagged struct rather than an interface. The family is a
// closed set fixed at four kinds, one of them (Bitfield) further split into
// sub-modes; nothing outside this package ever needs to add a new kind, so
// a switch over a Kind value is the right shape, matching how
// internal/container picks its wire format by a small enum rather than by
// a plugin registry.
package bitmap

// Kind selects one of the four BitMapping families.
type Kind uint8

const (
	Identity Kind = iota
	SplitMix64
	Text40Field
	Bitfield
)

func (k Kind) String() string {
	switch k {
	case Identity:
		return "identity"
	case SplitMix64:
		return "splitmix64"
	case Text40Field:
		return "text40-field"
	case Bitfield:
		return "bitfield"
	default:
		return "unknown"
	}
}

// BitfieldSub selects one of the three bit-extraction rules used when
// Kind == Bitfield.
type BitfieldSub uint8

const (
	Geom BitfieldSub = iota
	Hash
	LowpassThresh
)

func (s BitfieldSub) String() string {
	switch s {
	case Geom:
		return "geom"
	case Hash:
		return "hash"
	case LowpassThresh:
		return "lowpass-thresh"
	default:
		return "unknown"
	}
}

// Mapping is the fully-parameterized configuration of one BitMapping. Only
// the fields relevant to Kind (and, for Bitfield, to Sub) are consulted.
type Mapping struct {
	Kind Kind
	Seed uint64 // SplitMix64, Text40Field, Bitfield/Hash

	Sub             BitfieldSub
	BitsPerEmission uint8 // Bitfield only; 1, 2, or 8

	Tau         int32 // Bitfield/LowpassThresh threshold
	SmoothShift uint  // Bitfield/LowpassThresh moving-average shift
}

// Output is the result of applying a Mapping to a byte stream: exactly one
// of Bytes or Bits is populated, matching spec.md §4.4's "byte stream...or
// bit stream" contract.
type Output struct {
	Bytes []byte // populated for Identity, SplitMix64, Text40Field

	Bits     []byte // packed LSB-first payload, populated for Bitfield
	BitCount uint32 // number of valid bits in Bits
}

// posMixK is the odd multiplier used to fold a stream position into the
// splitmix64 seed for the SplitMix64 and Bitfield/Hash mappings, distinct
// from the golden-ratio constant the field model and FieldSeed defaults
// use so the two mixing domains never collide on the same input.
const posMixK = 0x2545F4914F6CDD1D

// splitMix64 is the standard public-domain SplitMix64 step, independently
// implemented here (rather than imported from the root package) because
// it is unexported there; both copies are the same well-known mixing
// function named in spec.md §4.4.
func splitMix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	z := x
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// text40Alphabet is the 40-character printable set text40-field maps
// emissions onto: the 26 lowercase letters, 10 digits, space, and three
// punctuation marks, chosen to be unambiguous in a terminal dump.
var text40Alphabet = [40]byte{
	'a', 'b', 'c', 'd', 'e', 'f', 'g', 'h', 'i', 'j',
	'k', 'l', 'm', 'n', 'o', 'p', 'q', 'r', 's', 't',
	'u', 'v', 'w', 'x', 'y', 'z', '0', '1', '2', '3',
	'4', '5', '6', '7', '8', '9', ' ', '.', ',', '_',
}

// Apply runs m against stream, the flattened byte-stream view of a
// generator's output (pair or rgbpair), and returns the transformed byte
// or bit stream.
func Apply(m Mapping, stream []byte) (Output, error) {
	switch m.Kind {
	case Identity:
		return Output{Bytes: identity(stream)}, nil
	case SplitMix64:
		return Output{Bytes: splitMix64Map(m.Seed, stream)}, nil
	case Text40Field:
		return Output{Bytes: text40Field(m.Seed, stream)}, nil
	case Bitfield:
		return bitfield(m, stream)
	default:
		return Output{}, errUnknownKind(m.Kind)
	}
}

type errUnknownKind Kind

func (e errUnknownKind) Error() string { return "bitmap: unknown mapping kind" }

// identity passes the stream through unchanged.
func identity(stream []byte) []byte {
	out := make([]byte, len(stream))
	copy(out, stream)
	return out
}

// splitMix64Map implements b -> b XOR low8(splitmix64(seed XOR pos*K)):
// XOR with a deterministic per-position keystream byte, which is its own
// inverse given (seed, pos), satisfying spec.md §4.4's "reversible given
// (seed, pos)".
func splitMix64Map(seed uint64, stream []byte) []byte {
	out := make([]byte, len(stream))
	for pos, b := range stream {
		ks := byte(splitMix64(seed ^ (uint64(pos) * posMixK)))
		out[pos] = b ^ ks
	}
	return out
}

// Unapply inverts the SplitMix64 mapping that Apply performs; XOR with the same keystream recovers
// the original stream.
func Unapply(m Mapping, mapped []byte) ([]byte, error) {
	if m.Kind != SplitMix64 {
		return nil, errNotInvertible(m.Kind)
	}
	return splitMix64Map(m.Seed, mapped), nil
}

type errNotInvertible Kind

func (e errNotInvertible) Error() string { return "bitmap: mapping kind is not invertible" }

// text40Field maps each byte into one of the 40 printable-text classes via
// a seeded lookup table. It is lossy (40 classes for 256 byte values) and
// is used only for matching, never for reconstruction.
func text40Field(seed uint64, stream []byte) []byte {
	var table [256]byte
	for v := 0; v < 256; v++ {
		class := splitMix64(seed^uint64(v)) % uint64(len(text40Alphabet))
		table[v] = text40Alphabet[class]
	}
	out := make([]byte, len(stream))
	for i, b := range stream {
		out[i] = table[b]
	}
	return out
}

// bitfield reinterprets stream as bits_per_emission bits per input byte,
// using the sub-mode m.Sub, and packs the result LSB-first.
func bitfield(m Mapping, stream []byte) (Output, error) {
	n := m.BitsPerEmission
	if n != 1 && n != 2 && n != 8 {
		return Output{}, errBadBitsPerEmission(n)
	}
	w := newBitWriter(len(stream) * int(n))
	switch m.Sub {
	case Geom:
		for _, b := range stream {
			for i := uint8(0); i < n; i++ {
				w.push((b >> (i % 8)) & 1)
			}
		}
	case Hash:
		for pos, b := range stream {
			for i := uint8(0); i < n; i++ {
				mix := splitMix64(m.Seed ^ (uint64(pos) * posMixK) ^ uint64(i))
				w.push(byte(popcount64(mix) & 1))
			}
			_ = b // byte value itself does not enter the hash mode
		}
	case LowpassThresh:
		lowpassThresh(m, stream, w)
	default:
		return Output{}, errBadSub(m.Sub)
	}
	return Output{Bits: w.bytes, BitCount: uint32(w.count)}, nil
}

// lowpassThresh computes the moving average LP(t) = LP(t-1) +
// ((I(t)-LP(t-1)) >> smooth_shift) over the stream (treating each byte as
// I(t), the only intensity signal a BitMapping has access to under
// spec.md §4.4's byte-stream-in contract) and emits one bit per input
// byte: 1 iff LP(t) >= tau. bits_per_emission does not apply to this
// sub-mode; one threshold bit is produced per byte regardless.
func lowpassThresh(m Mapping, stream []byte, w *bitWriter) {
	var lp int32
	for _, b := range stream {
		it := int32(b)
		lp = lp + ((it - lp) >> m.SmoothShift)
		var bit byte
		if lp >= m.Tau {
			bit = 1
		}
		w.push(bit)
	}
}

func popcount64(x uint64) int {
	count := 0
	for x != 0 {
		count++
		x &= x - 1
	}
	return count
}

type errBadBitsPerEmission uint8

func (e errBadBitsPerEmission) Error() string {
	return "bitmap: bits_per_emission must be 1, 2, or 8"
}

type errBadSub BitfieldSub

func (e errBadSub) Error() string { return "bitmap: unknown bitfield sub-mode" }

// bitWriter packs bits LSB-first into a byte slice, matching
// internal/container's BFn payload convention.
type bitWriter struct {
	bytes []byte
	count int
}

func newBitWriter(capBits int) *bitWriter {
	return &bitWriter{bytes: make([]byte, (capBits+7)/8)}
}

func (w *bitWriter) push(bit byte) {
	if bit != 0 {
		w.bytes[w.count/8] |= 1 << uint(w.count%8)
	}
	w.count++
}
