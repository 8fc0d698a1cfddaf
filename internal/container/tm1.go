package container

import (
	"encoding/binary"

	"github.com/y3llowvests/k8dnz/internal/k8err"
)

// Mode values stored in a TM1 header, per spec.md §3.
const (
	ModePair    uint8 = 0
	ModeRGBPair uint8 = 1
)

// TM1 is the parsed form of a timemap file: magic "TM1\0", version, mode,
// bits-per-emission, count, base index, delta-encoded indices, and a
// trailing CRC32. TM1 indices are strictly increasing; the first index
// equals Base.
type TM1 struct {
	Version         uint8
	Mode            uint8
	BitsPerEmission uint8
	Base            uint64
	Deltas          []uint64 // Deltas[i] = index[i] - index[i-1] for i>0; Deltas[0] is unused (count == len(Deltas))
	MaxTicksUsed    uint64   // fit-time max_ticks, stored so reconstruct can fail fast (SPEC_FULL Open Question / redesign flag)
}

// Count returns the number of emission indices this TM1 describes.
func (t TM1) Count() int {
	return len(t.Deltas)
}

// Indices expands the delta-encoded form into the full strictly-increasing
// index list. Returns an empty slice for an empty timemap.
func (t TM1) Indices() []uint64 {
	n := t.Count()
	if n == 0 {
		return nil
	}
	out := make([]uint64, n)
	out[0] = t.Base
	for i := 1; i < n; i++ {
		out[i] = out[i-1] + t.Deltas[i]
	}
	return out
}

// NewTM1FromIndices builds a TM1 from a strictly increasing list of stream
// indices.
func NewTM1FromIndices(mode, bitsPerEmission uint8, maxTicksUsed uint64, indices []uint64) TM1 {
	if len(indices) == 0 {
		return TM1{Version: 1, Mode: mode, BitsPerEmission: bitsPerEmission, MaxTicksUsed: maxTicksUsed}
	}
	deltas := make([]uint64, len(indices))
	for i := 1; i < len(indices); i++ {
		deltas[i] = indices[i] - indices[i-1]
	}
	return TM1{
		Version:         1,
		Mode:            mode,
		BitsPerEmission: bitsPerEmission,
		Base:            indices[0],
		Deltas:          deltas,
		MaxTicksUsed:    maxTicksUsed,
	}
}

// Encode serializes t to the TM1 wire format. Count, Base and the
// varint-encoded deltas for indices 1..count-1 (the unused Deltas[0] is not
// written) follow the header; MaxTicksUsed is appended as a trailing varint
// field before the CRC. DecodeTM1 requires that field, so blobs without it
// are rejected.
func (t TM1) Encode() []byte {
	buf := make([]byte, 0, 32+len(t.Deltas)*2)
	buf = append(buf, MagicTM1[:]...)
	buf = append(buf, t.Version, t.Mode, t.BitsPerEmission)
	count := t.Count()
	buf = putU32(buf, uint32(count))
	buf = putU64(buf, t.Base)
	for i := 1; i < count; i++ {
		buf = AppendVarint(buf, t.Deltas[i])
	}
	buf = AppendVarint(buf, t.MaxTicksUsed)
	crc := CRC(buf)
	buf = putU32(buf, crc)
	return buf
}

// DecodeTM1 parses a TM1 blob, verifying magic, monotonicity, and CRC.
func DecodeTM1(data []byte) (TM1, error) {
	if err := checkMagic(data, MagicTM1, "tm1"); err != nil {
		return TM1{}, err
	}
	if len(data) < 4+1+1+1+4+8+4 {
		return TM1{}, k8err.New(k8err.BadFormat, "tm1: truncated header")
	}
	off := 4
	version := data[off]
	off++
	mode := data[off]
	off++
	bpe := data[off]
	off++
	count := binary.LittleEndian.Uint32(data[off:])
	off += 4
	base := binary.LittleEndian.Uint64(data[off:])
	off += 8

	deltas := make([]uint64, count)
	for i := uint32(1); i < count; i++ {
		v, n, err := ReadVarint(data, off)
		if err != nil {
			return TM1{}, k8err.Wrap(k8err.BadFormat, "tm1: delta", err)
		}
		deltas[i] = v
		off += n
	}
	maxTicksUsed, n, err := ReadVarint(data, off)
	if err != nil {
		return TM1{}, k8err.Wrap(k8err.BadFormat, "tm1: max_ticks_used", err)
	}
	off += n

	if off+4 > len(data) {
		return TM1{}, k8err.New(k8err.BadFormat, "tm1: truncated crc")
	}
	wantCRC := binary.LittleEndian.Uint32(data[off:])
	if gotCRC := CRC(data[:off]); gotCRC != wantCRC {
		return TM1{}, k8err.New(k8err.BadFormat, "tm1: crc mismatch")
	}

	t := TM1{Version: version, Mode: mode, BitsPerEmission: bpe, Base: base, Deltas: deltas, MaxTicksUsed: maxTicksUsed}
	prev := base
	for i := 1; i < int(count); i++ {
		cur := prev + deltas[i]
		if cur <= prev {
			return TM1{}, k8err.New(k8err.BadFormat, "tm1: indices not strictly increasing")
		}
		prev = cur
	}
	return t, nil
}
