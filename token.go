package k8dnz

// PairToken is one emission's token under Mode Pair: two independent
// quantized field samples, one per side of the lockstep pair. It packs to
// a single byte: high nibble = a, low nibble = b (spec.md §3).
type PairToken struct {
	A, B uint8
}

// PackByte packs t into its 1-byte wire representation.
func (t PairToken) PackByte() byte {
	return (t.A&0xF)<<4 | (t.B & 0xF)
}

// UnpackPairToken is the inverse of PackByte.
func UnpackPairToken(b byte) PairToken {
	return PairToken{A: b >> 4, B: b & 0xF}
}

// RGBPair is one emission's token under Mode RGBPair: two RGB triples, one
// per side of the pair, flattened as [rA,gA,bA,rC,gC,bC].
type RGBPair struct {
	RA, GA, BA uint8
	RC, GC, BC uint8
}

// Bytes returns the 6-byte flattened representation of p.
func (p RGBPair) Bytes() [6]byte {
	return [6]byte{p.RA, p.GA, p.BA, p.RC, p.GC, p.BC}
}

// RGBPairFromBytes is the inverse of Bytes.
func RGBPairFromBytes(b [6]byte) RGBPair {
	return RGBPair{RA: b[0], GA: b[1], BA: b[2], RC: b[3], GC: b[4], BC: b[5]}
}

// StreamIndex returns the flattened byte-stream position of lane `lane`
// (0..5) within RGBPair emission `emission`: pos = emission*6 + lane.
func StreamIndex(emission uint64, lane int) uint64 {
	return emission*6 + uint64(lane)
}
