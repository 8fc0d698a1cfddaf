package container

import (
	"encoding/binary"

	"github.com/y3llowvests/k8dnz/internal/k8err"
)

// TLVRecord is one field of a K8R recipe blob: a stable numeric field ID
// plus its raw value bytes. Field IDs are defined by recipe.go; this
// package only knows how to frame them.
type TLVRecord struct {
	ID    uint16
	Value []byte
}

// EncodeK8R serializes version and records to the K8R wire format:
// "K8R1" || version:u8 || record* || crc32:u32LE, where each record is
// id:u16LE || len:u32LE || value. Records are emitted in the order given,
// so callers that must forward-preserve unknown records should append them
// last.
func EncodeK8R(version uint8, records []TLVRecord) []byte {
	buf := make([]byte, 0, 64)
	buf = append(buf, MagicK8R1[:]...)
	buf = append(buf, version)
	for _, r := range records {
		var idBuf [2]byte
		binary.LittleEndian.PutUint16(idBuf[:], r.ID)
		buf = append(buf, idBuf[:]...)
		buf = putU32(buf, uint32(len(r.Value)))
		buf = append(buf, r.Value...)
	}
	crc := CRC(buf)
	buf = putU32(buf, crc)
	return buf
}

// DecodeK8R parses a K8R blob into its version and ordered records,
// verifying magic and CRC. Unknown field IDs are returned like any other
// record; it is the caller's responsibility (recipe.go) to recognize known
// IDs and forward-preserve the rest.
func DecodeK8R(data []byte) (version uint8, records []TLVRecord, err error) {
	if err = checkMagic(data, MagicK8R1, "k8r"); err != nil {
		return 0, nil, err
	}
	if len(data) < 4+1+4 {
		return 0, nil, k8err.New(k8err.BadFormat, "k8r: truncated header")
	}
	off := 4
	version = data[off]
	off++
	end := len(data) - 4
	for off < end {
		if off+6 > end {
			return 0, nil, k8err.New(k8err.BadFormat, "k8r: truncated record header")
		}
		id := binary.LittleEndian.Uint16(data[off:])
		off += 2
		vlen := binary.LittleEndian.Uint32(data[off:])
		off += 4
		if off+int(vlen) > end {
			return 0, nil, k8err.New(k8err.BadFormat, "k8r: record value overruns buffer")
		}
		val := append([]byte(nil), data[off:off+int(vlen)]...)
		off += int(vlen)
		records = append(records, TLVRecord{ID: id, Value: val})
	}
	wantCRC := binary.LittleEndian.Uint32(data[end:])
	if gotCRC := CRC(data[:end]); gotCRC != wantCRC {
		return 0, nil, k8err.New(k8err.BadFormat, "k8r: crc mismatch")
	}
	return version, records, nil
}
