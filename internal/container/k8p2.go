package container

import (
	"encoding/binary"

	"github.com/y3llowvests/k8dnz/internal/k8err"
)

// K8P2 is a self-delimiting two-child pack: "K8P2" || version:u8 ||
// len_A:u32LE || len_B:u32LE || A_bytes || B_bytes. It carries no CRC of its
// own (spec.md §3) — K8P2 payloads are themselves fit and reconstructed as
// an opaque byte target by the Merkle driver, which supplies its own
// integrity via the surrounding .ark/TM1/BFn CRCs.
type K8P2 struct {
	A []byte
	B []byte
}

// Pack serializes p to the K8P2 wire format.
func (p K8P2) Pack() []byte {
	buf := make([]byte, 0, 4+1+4+4+len(p.A)+len(p.B))
	buf = append(buf, MagicK8P2[:]...)
	buf = append(buf, 1) // version
	buf = putU32(buf, uint32(len(p.A)))
	buf = putU32(buf, uint32(len(p.B)))
	buf = append(buf, p.A...)
	buf = append(buf, p.B...)
	return buf
}

// UnpackK8P2 parses a K8P2 pack, verifying magic and lengths.
func UnpackK8P2(data []byte) (K8P2, error) {
	if err := checkMagic(data, MagicK8P2, "k8p2"); err != nil {
		return K8P2{}, err
	}
	if len(data) < 4+1+4+4 {
		return K8P2{}, k8err.New(k8err.BadFormat, "k8p2: truncated header")
	}
	off := 5 // magic + version
	lenA := binary.LittleEndian.Uint32(data[off:])
	off += 4
	lenB := binary.LittleEndian.Uint32(data[off:])
	off += 4
	if uint64(off)+uint64(lenA)+uint64(lenB) != uint64(len(data)) {
		return K8P2{}, k8err.New(k8err.BadFormat, "k8p2: length mismatch")
	}
	a := append([]byte(nil), data[off:off+int(lenA)]...)
	off += int(lenA)
	b := append([]byte(nil), data[off:off+int(lenB)]...)
	return K8P2{A: a, B: b}, nil
}
