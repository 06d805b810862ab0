package world

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// DecodeRLE decodes base64(varint pairs) of (block_id, run_len) into palette ids.
func DecodeRLE(b64 string) ([]uint16, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode voxels: %w", err)
	}
	var out []uint16
	for i := 0; i < len(raw); {
		id, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if id > 0xFFFF {
			return nil, fmt.Errorf("block id too large: %d", id)
		}
		for k := uint64(0); k < run; k++ {
			out = append(out, uint16(id))
		}
	}
	return out, nil
}

// EncodeRLE is the inverse of DecodeRLE. Used by tests and worldtest.
func EncodeRLE(ids []uint16) string {
	var buf []byte
	var tmp [binary.MaxVarintLen64]byte
	for i := 0; i < len(ids); {
		id := ids[i]
		run := 1
		for j := i + 1; j < len(ids) && ids[j] == id; j++ {
			run++
		}
		n := binary.PutUvarint(tmp[:], uint64(id))
		buf = append(buf, tmp[:n]...)
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf = append(buf, tmp[:n]...)
		i += run
	}
	return base64.StdEncoding.EncodeToString(buf)
}
