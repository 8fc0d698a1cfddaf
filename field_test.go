package k8dnz

import "testing"

func TestQuantizeShiftPreservesRange(t *testing.T) {
	q := Quant{Bins: 256, Shift: 0}
	clamp := Clamp{Lo: -128, Hi: 127}
	for _, raw := range []int32{-1000, -128, 0, 127, 1000} {
		sym := q.Quantize(raw, clamp)
		if sym >= q.Bins {
			t.Fatalf("Quantize(%d) = %d out of range [0,%d)", raw, sym, q.Bins)
		}
	}
}

func TestQuantizeShiftIsPureRelabeling(t *testing.T) {
	clamp := Clamp{Lo: -128, Hi: 127}
	q0 := Quant{Bins: 16, Shift: 0}
	q3 := Quant{Bins: 16, Shift: 3}
	for raw := int32(-128); raw <= 127; raw += 7 {
		s0 := q0.Quantize(raw, clamp)
		s3 := q3.Quantize(raw, clamp)
		if (s0+3)%16 != s3 {
			t.Fatalf("shift did not relabel linearly at raw=%d: s0=%d s3=%d", raw, s0, s3)
		}
	}
}

func TestSplitMix64Deterministic(t *testing.T) {
	a := splitMix64(42)
	b := splitMix64(42)
	if a != b {
		t.Fatalf("splitMix64 not deterministic")
	}
	if splitMix64(42) == splitMix64(43) {
		t.Fatalf("splitMix64 collided on adjacent inputs (extremely unlikely)")
	}
}

func TestSinTurnTableBounds(t *testing.T) {
	for _, v := range sinQ14 {
		if v < -16384 || v > 16384 {
			t.Fatalf("sinQ14 entry %d out of Q14 range", v)
		}
	}
}
