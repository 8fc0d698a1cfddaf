// Package container implements the bit-exact wire formats from spec.md §3
// and §4.7: the .ark artifact, the K8R recipe blob, the TM1 timing map, the
// BFn packed residual, the K8P2 two-child pack, and the TG1 lane-tag
// payload. All integers are little-endian; every format except K8P2 carries
// a trailing CRC32 (IEEE polynomial 0xEDB88320) computed over every
// preceding byte.
//
// This package is adapted from deepteams-webp/internal/container: the same
// magic+length+CRC framing discipline, the same small validated value types,
// generalized from RIFF/VP8X chunks to K8DNZ's own formats.
package container

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/y3llowvests/k8dnz/internal/k8err"
)

// Magic values. Every magic is 4 ASCII bytes, as spec.md §6 requires.
var (
	MagicARK1 = [4]byte{'A', 'R', 'K', '1'}
	MagicK8R1 = [4]byte{'K', '8', 'R', '1'}
	MagicTM1  = [4]byte{'T', 'M', '1', 0}
	MagicBF1  = [4]byte{'B', 'F', '1', 0}
	MagicBF2  = [4]byte{'B', 'F', '2', 0}
	MagicBF8  = [4]byte{'B', 'F', '8', 0}
	MagicK8P2 = [4]byte{'K', '8', 'P', '2'}
	MagicTG1  = [4]byte{'T', 'G', '1', 0}
)

// CRCTable is the shared IEEE CRC32 table used by every container format.
var CRCTable = crc32.IEEETable

// CRC computes the IEEE CRC32 of b.
func CRC(b []byte) uint32 { return crc32.Checksum(b, CRCTable) }

// checkMagic compares the first 4 bytes of data against want, returning a
// BadFormat error on mismatch.
func checkMagic(data []byte, want [4]byte, context string) error {
	if len(data) < 4 {
		return k8err.New(k8err.BadFormat, context+": truncated magic")
	}
	var got [4]byte
	copy(got[:], data[:4])
	if got != want {
		return k8err.New(k8err.BadFormat, context+": magic mismatch")
	}
	return nil
}

// AppendVarint appends a base-128 LEB unsigned varint (little-endian group
// order, continuation bit in the high bit of each byte) to buf.
func AppendVarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

// ReadVarint reads a varint starting at data[off], returning the value, the
// number of bytes consumed, and an error if data is truncated mid-varint.
func ReadVarint(data []byte, off int) (uint64, int, error) {
	var v uint64
	var shift uint
	for i := 0; ; i++ {
		if off+i >= len(data) {
			return 0, 0, k8err.New(k8err.BadFormat, "truncated varint")
		}
		b := data[off+i]
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, i + 1, nil
		}
		shift += 7
		if shift >= 64 {
			return 0, 0, k8err.New(k8err.BadFormat, "varint too long")
		}
	}
}

// putU32 / putU64 are little-endian append helpers shared by every format.
func putU32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func putU64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}
