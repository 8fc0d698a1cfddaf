package k8dnz

import "testing"

func TestPairTokenPackUnpack(t *testing.T) {
	tok := PairToken{A: 0xA, B: 0x3}
	b := tok.PackByte()
	if b != 0xA3 {
		t.Fatalf("PackByte = %#x, want 0xa3", b)
	}
	got := UnpackPairToken(b)
	if got != tok {
		t.Fatalf("UnpackPairToken = %+v, want %+v", got, tok)
	}
}

func TestRGBPairBytesRoundTrip(t *testing.T) {
	p := RGBPair{RA: 1, GA: 2, BA: 3, RC: 4, GC: 5, BC: 6}
	b := p.Bytes()
	if b != [6]byte{1, 2, 3, 4, 5, 6} {
		t.Fatalf("Bytes = %v", b)
	}
	got := RGBPairFromBytes(b)
	if got != p {
		t.Fatalf("RGBPairFromBytes = %+v, want %+v", got, p)
	}
}

func TestStreamIndex(t *testing.T) {
	if got := StreamIndex(3, 4); got != 22 {
		t.Fatalf("StreamIndex(3,4) = %d, want 22", got)
	}
}
