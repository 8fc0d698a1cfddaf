package container

import (
	"encoding/binary"

	"github.com/y3llowvests/k8dnz/internal/k8err"
)

// Ark is the parsed form of a .ark container: "ARK1" || recipe_len:u32LE ||
// recipe_bytes || data_len:u64LE || data_bytes || crc32:u32LE. The CRC
// covers every byte before it, per spec.md §3.
type Ark struct {
	RecipeBytes []byte
	Data        []byte
}

// Encode serializes a to the .ark wire format.
func (a Ark) Encode() []byte {
	buf := make([]byte, 0, 4+4+len(a.RecipeBytes)+8+len(a.Data)+4)
	buf = append(buf, MagicARK1[:]...)
	buf = putU32(buf, uint32(len(a.RecipeBytes)))
	buf = append(buf, a.RecipeBytes...)
	buf = putU64(buf, uint64(len(a.Data)))
	buf = append(buf, a.Data...)
	crc := CRC(buf)
	buf = putU32(buf, crc)
	return buf
}

// DecodeArk parses a .ark container, verifying magic, lengths, and CRC.
func DecodeArk(data []byte) (Ark, error) {
	if err := checkMagic(data, MagicARK1, "ark"); err != nil {
		return Ark{}, err
	}
	if len(data) < 4+4+8+4 {
		return Ark{}, k8err.New(k8err.BadFormat, "ark: truncated header")
	}
	off := 4
	recipeLen := binary.LittleEndian.Uint32(data[off:])
	off += 4
	if uint64(off)+uint64(recipeLen) > uint64(len(data)) {
		return Ark{}, k8err.New(k8err.BadFormat, "ark: recipe length overruns buffer")
	}
	recipeBytes := data[off : off+int(recipeLen)]
	off += int(recipeLen)
	if off+8 > len(data) {
		return Ark{}, k8err.New(k8err.BadFormat, "ark: truncated data length")
	}
	dataLen := binary.LittleEndian.Uint64(data[off:])
	off += 8
	if uint64(off)+dataLen+4 > uint64(len(data)) {
		return Ark{}, k8err.New(k8err.BadFormat, "ark: data length overruns buffer")
	}
	payload := data[off : off+int(dataLen)]
	off += int(dataLen)
	wantCRC := binary.LittleEndian.Uint32(data[off : off+4])
	gotCRC := CRC(data[:off])
	if gotCRC != wantCRC {
		return Ark{}, k8err.New(k8err.BadFormat, "ark: crc mismatch")
	}
	return Ark{RecipeBytes: append([]byte(nil), recipeBytes...), Data: append([]byte(nil), payload...)}, nil
}
