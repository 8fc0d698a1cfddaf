package container

import (
	"encoding/binary"

	"github.com/y3llowvests/k8dnz/internal/k8err"
)

// ResidualMode selects how residual symbols combine with generator symbols.
type ResidualMode uint8

const (
	ResidualXOR ResidualMode = 0
	ResidualSub ResidualMode = 1
)

// bfHeaderSize is the padded BFn header size spec.md §3 requires: magic(4) +
// version(1) + bits_per_emission(1) + total_symbols(4) + residual_mode(1) +
// padding(13) = 24.
const bfHeaderSize = 24

// BF is the parsed form of a packed bitfield residual: magic "BF1"/"BF2"/
// "BF8", version, bits_per_emission, total_symbols, residual_mode, a
// LSB-first packed bit payload, and a trailing CRC32.
type BF struct {
	Version         uint8
	BitsPerEmission uint8 // 1, 2, or 8 selects the BF1/BF2/BF8 magic
	TotalSymbols    uint32
	Mode            ResidualMode
	Payload         []byte // packed bits, LSB-first within each byte
}

func magicForBits(bits uint8) ([4]byte, error) {
	switch bits {
	case 1:
		return MagicBF1, nil
	case 2:
		return MagicBF2, nil
	case 8:
		return MagicBF8, nil
	default:
		return [4]byte{}, k8err.New(k8err.ParamMismatch, "bf: bits_per_emission must be 1, 2, or 8")
	}
}

// Encode serializes b to its padded-24-byte-header wire format.
func (b BF) Encode() ([]byte, error) {
	magic, err := magicForBits(b.BitsPerEmission)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, bfHeaderSize, bfHeaderSize+len(b.Payload)+4)
	copy(buf[0:4], magic[:])
	buf[4] = b.Version
	buf[5] = b.BitsPerEmission
	binary.LittleEndian.PutUint32(buf[6:10], b.TotalSymbols)
	buf[10] = byte(b.Mode)
	// buf[11:24] stays zero padding.
	buf = append(buf, b.Payload...)
	crc := CRC(buf)
	buf = putU32(buf, crc)
	return buf, nil
}

// DecodeBF parses a BFn blob, verifying magic, header size, and CRC.
func DecodeBF(data []byte) (BF, error) {
	if len(data) < bfHeaderSize+4 {
		return BF{}, k8err.New(k8err.BadFormat, "bf: truncated header")
	}
	var got [4]byte
	copy(got[:], data[:4])
	var bits uint8
	switch got {
	case MagicBF1:
		bits = 1
	case MagicBF2:
		bits = 2
	case MagicBF8:
		bits = 8
	default:
		return BF{}, k8err.New(k8err.BadFormat, "bf: magic mismatch")
	}
	version := data[4]
	headerBits := data[5]
	if headerBits != bits {
		return BF{}, k8err.New(k8err.BadFormat, "bf: bits_per_emission disagrees with magic")
	}
	totalSymbols := binary.LittleEndian.Uint32(data[6:10])
	mode := ResidualMode(data[10])

	payloadEnd := len(data) - 4
	payload := append([]byte(nil), data[bfHeaderSize:payloadEnd]...)

	wantCRC := binary.LittleEndian.Uint32(data[payloadEnd:])
	if gotCRC := CRC(data[:payloadEnd]); gotCRC != wantCRC {
		return BF{}, k8err.New(k8err.BadFormat, "bf: crc mismatch")
	}

	return BF{Version: version, BitsPerEmission: bits, TotalSymbols: totalSymbols, Mode: mode, Payload: payload}, nil
}

// GetBit returns bit i (0-indexed, LSB-first within each byte) of a packed
// BFn payload.
func GetBit(payload []byte, i int) int {
	byteIdx := i / 8
	if byteIdx >= len(payload) {
		return 0
	}
	return int((payload[byteIdx] >> uint(i%8)) & 1)
}

// SetBit sets bit i (0-indexed, LSB-first within each byte) of a packed
// BFn payload, growing it if necessary.
func SetBit(payload []byte, i int, v int) []byte {
	byteIdx := i / 8
	for byteIdx >= len(payload) {
		payload = append(payload, 0)
	}
	if v != 0 {
		payload[byteIdx] |= 1 << uint(i%8)
	} else {
		payload[byteIdx] &^= 1 << uint(i%8)
	}
	return payload
}
