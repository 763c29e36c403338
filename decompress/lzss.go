package decompress

import (
	"errors"
	"fmt"
)

var errLZSS = errors.New("lzss stream exhausted before expected size")

// decodeLZSS expands an LZSS stream into exactly expected bytes.
//
// The stream is a sequence of groups: one control byte whose bits are
// consumed LSB first, followed by eight items. A clear bit means the
// next byte is a literal. A set bit means the next two bytes are a
// little-endian codeword: the high nibble holds the phrase length
// minus two, the low 12 bits hold the distance back from the current
// output position. Phrases may overlap their own output, so the copy
// runs byte at a time.
func decodeLZSS(raw []byte, expected int) ([]byte, error) {
	out := make([]byte, 0, expected)
	pos := 0

	for len(out) < expected {
		if pos >= len(raw) {
			return nil, errLZSS
		}
		control := raw[pos]
		pos++

		for bit := 0; bit < 8 && len(out) < expected; bit++ {
			if control&(1<<bit) == 0 {
				if pos >= len(raw) {
					return nil, errLZSS
				}
				out = append(out, raw[pos])
				pos++
				continue
			}

			if pos+1 >= len(raw) {
				return nil, errLZSS
			}
			cw := uint16(raw[pos]) | uint16(raw[pos+1])<<8
			pos += 2

			length := int(cw>>12) + 2
			dist := int(cw & 0x0FFF)
			if dist == 0 || dist > len(out) {
				return nil, fmt.Errorf("lzss back-reference distance %d at output %d", dist, len(out))
			}
			for i := 0; i < length && len(out) < expected; i++ {
				out = append(out, out[len(out)-dist])
			}
		}
	}
	return out, nil
}
