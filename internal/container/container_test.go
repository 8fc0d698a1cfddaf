package container

import (
	"bytes"
	"testing"

	"github.com/y3llowvests/k8dnz/internal/k8err"
)

func TestArkRoundTrip(t *testing.T) {
	a := Ark{RecipeBytes: []byte("recipe-bytes"), Data: []byte("In the beginning there was a deterministic cadence.")}
	enc := a.Encode()
	got, err := DecodeArk(enc)
	if err != nil {
		t.Fatalf("DecodeArk: %v", err)
	}
	if !bytes.Equal(got.RecipeBytes, a.RecipeBytes) || !bytes.Equal(got.Data, a.Data) {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestArkCRCMismatch(t *testing.T) {
	a := Ark{RecipeBytes: []byte("r"), Data: []byte("d")}
	enc := a.Encode()
	enc[len(enc)-1] ^= 0xFF
	if _, err := DecodeArk(enc); err == nil {
		t.Fatalf("expected crc mismatch error")
	} else if ke, ok := err.(*k8err.Error); !ok || ke.Kind != k8err.BadFormat {
		t.Fatalf("expected BadFormat, got %v", err)
	}
}

func TestArkMagicMismatch(t *testing.T) {
	enc := Ark{RecipeBytes: []byte("r")}.Encode()
	enc[0] = 'X'
	if _, err := DecodeArk(enc); err == nil {
		t.Fatalf("expected magic mismatch error")
	}
}

func TestK8RRoundTrip(t *testing.T) {
	recs := []TLVRecord{
		{ID: 1, Value: []byte{1, 2, 3, 4}},
		{ID: 2, Value: []byte{}},
		{ID: 99, Value: []byte("unknown-forward-preserved")},
	}
	enc := EncodeK8R(3, recs)
	version, got, err := DecodeK8R(enc)
	if err != nil {
		t.Fatalf("DecodeK8R: %v", err)
	}
	if version != 3 {
		t.Fatalf("version = %d, want 3", version)
	}
	if len(got) != len(recs) {
		t.Fatalf("record count = %d, want %d", len(got), len(recs))
	}
	for i, r := range recs {
		if got[i].ID != r.ID || !bytes.Equal(got[i].Value, r.Value) {
			t.Fatalf("record %d mismatch: %+v vs %+v", i, got[i], r)
		}
	}
}

func TestTM1RoundTripAndMonotonic(t *testing.T) {
	indices := []uint64{10, 11, 15, 1000, 1000001}
	tm := NewTM1FromIndices(ModePair, 8, 80_000_000, indices)
	enc := tm.Encode()
	got, err := DecodeTM1(enc)
	if err != nil {
		t.Fatalf("DecodeTM1: %v", err)
	}
	if got.Count() != len(indices) {
		t.Fatalf("count = %d, want %d", got.Count(), len(indices))
	}
	gotIdx := got.Indices()
	for i, want := range indices {
		if gotIdx[i] != want {
			t.Fatalf("index %d = %d, want %d", i, gotIdx[i], want)
		}
	}
	if got.MaxTicksUsed != 80_000_000 {
		t.Fatalf("max_ticks_used = %d, want 80000000", got.MaxTicksUsed)
	}
}

func TestTM1EmptyRoundTrip(t *testing.T) {
	tm := NewTM1FromIndices(ModePair, 8, 0, nil)
	enc := tm.Encode()
	got, err := DecodeTM1(enc)
	if err != nil {
		t.Fatalf("DecodeTM1: %v", err)
	}
	if got.Count() != 0 {
		t.Fatalf("count = %d, want 0", got.Count())
	}
}

func TestTM1RejectsNonMonotonic(t *testing.T) {
	tm := NewTM1FromIndices(ModePair, 8, 0, []uint64{5, 10, 3})
	// Non-increasing input: the 10->3 step wraps to a huge delta, which
	// decode must reject when it re-adds the deltas.
	enc := tm.Encode()
	got, err := DecodeTM1(enc)
	if err == nil {
		t.Fatalf("expected monotonicity error, got %+v", got)
	}
}

func TestBFRoundTrip(t *testing.T) {
	var payload []byte
	payload = SetBit(payload, 0, 1)
	payload = SetBit(payload, 3, 1)
	payload = SetBit(payload, 9, 1)
	bf := BF{Version: 1, BitsPerEmission: 2, TotalSymbols: 16, Mode: ResidualXOR, Payload: payload}
	enc, err := bf.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(enc) < bfHeaderSize+4 {
		t.Fatalf("encoded BF too short")
	}
	got, err := DecodeBF(enc)
	if err != nil {
		t.Fatalf("DecodeBF: %v", err)
	}
	if got.BitsPerEmission != 2 || got.TotalSymbols != 16 || got.Mode != ResidualXOR {
		t.Fatalf("header mismatch: %+v", got)
	}
	if GetBit(got.Payload, 0) != 1 || GetBit(got.Payload, 3) != 1 || GetBit(got.Payload, 9) != 1 || GetBit(got.Payload, 1) != 0 {
		t.Fatalf("bit mismatch after round trip: %08b", got.Payload)
	}
}

func TestBFRoundTripDensePayload(t *testing.T) {
	// A residual XORed against unrelated content is typically dense (~4 set
	// bits per byte), not near-zero; DecodeBF must accept it regardless of
	// how many bits are set.
	payload := bytes.Repeat([]byte{0xA5, 0x3C, 0xFF, 0x00}, 8)
	bf := BF{Version: 1, BitsPerEmission: 8, TotalSymbols: uint32(len(payload)), Mode: ResidualXOR, Payload: payload}
	enc, err := bf.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := DecodeBF(enc)
	if err != nil {
		t.Fatalf("DecodeBF: %v", err)
	}
	if !bytes.Equal(got.Payload, payload) {
		t.Fatalf("payload mismatch after round trip")
	}
}

func TestK8P2RoundTrip(t *testing.T) {
	p := K8P2{A: bytes.Repeat([]byte{0xAB}, 2343), B: bytes.Repeat([]byte{0xCD}, 2344)}
	enc := p.Pack()
	got, err := UnpackK8P2(enc)
	if err != nil {
		t.Fatalf("UnpackK8P2: %v", err)
	}
	if !bytes.Equal(got.A, p.A) || !bytes.Equal(got.B, p.B) {
		t.Fatalf("round trip mismatch")
	}
}

func TestTG1RoundTrip(t *testing.T) {
	var payload []byte
	payload = PutTag(payload, 6, 0, 37)
	payload = PutTag(payload, 6, 1, 63)
	payload = PutTag(payload, 6, 2, 0)
	tg := TG1{TagBits: 6, Count: 3, Payload: payload}
	enc := tg.Encode()
	got, err := DecodeTG1(enc)
	if err != nil {
		t.Fatalf("DecodeTG1: %v", err)
	}
	if GetTag(got.Payload, 6, 0) != 37 || GetTag(got.Payload, 6, 1) != 63 || GetTag(got.Payload, 6, 2) != 0 {
		t.Fatalf("tag mismatch after round trip")
	}
}

func TestVarintRoundTrip(t *testing.T) {
	vals := []uint64{0, 1, 127, 128, 300, 1 << 40, ^uint64(0)}
	var buf []byte
	for _, v := range vals {
		buf = AppendVarint(buf, v)
	}
	off := 0
	for _, want := range vals {
		got, n, err := ReadVarint(buf, off)
		if err != nil {
			t.Fatalf("ReadVarint: %v", err)
		}
		if got != want {
			t.Fatalf("got %d want %d", got, want)
		}
		off += n
	}
}
