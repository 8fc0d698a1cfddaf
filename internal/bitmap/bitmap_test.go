package bitmap

import "testing"

func TestIdentityPassesThrough(t *testing.T) {
	in := []byte{1, 2, 3, 4}
	out, err := Apply(Mapping{Kind: Identity}, in)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	for i := range in {
		if out.Bytes[i] != in[i] {
			t.Fatalf("byte %d: got %d want %d", i, out.Bytes[i], in[i])
		}
	}
}

func TestSplitMix64RoundTrip(t *testing.T) {
	in := []byte{0, 1, 2, 3, 4, 5, 255, 128}
	m := Mapping{Kind: SplitMix64, Seed: 12345}
	out, err := Apply(m, in)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	back, err := Unapply(m, out.Bytes)
	if err != nil {
		t.Fatalf("Unapply: %v", err)
	}
	for i := range in {
		if back[i] != in[i] {
			t.Fatalf("round trip byte %d: got %d want %d", i, back[i], in[i])
		}
	}
}

func TestSplitMix64IsNotTrivialPassthrough(t *testing.T) {
	in := make([]byte, 64)
	m := Mapping{Kind: SplitMix64, Seed: 999}
	out, _ := Apply(m, in)
	same := true
	for i := range in {
		if out.Bytes[i] != in[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("expected splitmix64 mapping to change an all-zero stream")
	}
}

func TestText40FieldStaysInAlphabet(t *testing.T) {
	in := []byte{0, 1, 2, 100, 200, 255}
	out, err := Apply(Mapping{Kind: Text40Field, Seed: 7}, in)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	inAlphabet := func(b byte) bool {
		for _, c := range text40Alphabet {
			if c == b {
				return true
			}
		}
		return false
	}
	for _, b := range out.Bytes {
		if !inAlphabet(b) {
			t.Fatalf("byte %q not in the 40-character alphabet", b)
		}
	}
}

func TestText40FieldDeterministic(t *testing.T) {
	in := []byte{10, 20, 30}
	a, _ := Apply(Mapping{Kind: Text40Field, Seed: 42}, in)
	b, _ := Apply(Mapping{Kind: Text40Field, Seed: 42}, in)
	for i := range a.Bytes {
		if a.Bytes[i] != b.Bytes[i] {
			t.Fatalf("text40-field not deterministic at %d", i)
		}
	}
}

func TestBitfieldGeomExtractsLowBits(t *testing.T) {
	in := []byte{0b00000101, 0b00000010}
	out, err := Apply(Mapping{Kind: Bitfield, Sub: Geom, BitsPerEmission: 2}, in)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if out.BitCount != 4 {
		t.Fatalf("BitCount = %d, want 4", out.BitCount)
	}
	want := []byte{1, 0, 0, 1} // byte0 bits0,1 = 1,0 ; byte1 bits0,1 = 0,1
	for i, w := range want {
		got := (out.Bits[i/8] >> uint(i%8)) & 1
		if got != w {
			t.Fatalf("bit %d = %d, want %d", i, got, w)
		}
	}
}

func TestBitfieldRejectsBadBitsPerEmission(t *testing.T) {
	_, err := Apply(Mapping{Kind: Bitfield, Sub: Geom, BitsPerEmission: 3}, []byte{1})
	if err == nil {
		t.Fatalf("expected error for bits_per_emission=3")
	}
}

func TestBitfieldHashDeterministic(t *testing.T) {
	in := []byte{1, 2, 3, 4, 5}
	m := Mapping{Kind: Bitfield, Sub: Hash, Seed: 77, BitsPerEmission: 1}
	a, _ := Apply(m, in)
	b, _ := Apply(m, in)
	if string(a.Bits) != string(b.Bits) {
		t.Fatalf("hash bitfield not deterministic")
	}
}

func TestBitfieldLowpassThreshProducesOneBitPerByte(t *testing.T) {
	in := []byte{0, 0, 0, 200, 200, 200, 200}
	m := Mapping{Kind: Bitfield, Sub: LowpassThresh, BitsPerEmission: 1, Tau: 100, SmoothShift: 1}
	out, err := Apply(m, in)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if out.BitCount != uint32(len(in)) {
		t.Fatalf("BitCount = %d, want %d", out.BitCount, len(in))
	}
	// The first bytes are all below tau; LP should still be below tau there.
	if (out.Bits[0] & 1) != 0 {
		t.Fatalf("expected bit 0 low while LP has not risen yet")
	}
	// After several high-intensity bytes, LP should have crossed tau.
	last := (out.Bits[0] >> 6) & 1
	if last == 0 {
		t.Fatalf("expected LP to cross tau by the last byte")
	}
}

func TestUnapplyRejectsNonInvertibleKinds(t *testing.T) {
	if _, err := Unapply(Mapping{Kind: Identity}, []byte{1, 2}); err == nil {
		t.Fatalf("expected error: identity has no registered inverse in this package")
	}
}
