package cabfile

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecksumWords(t *testing.T) {
	assert.Equal(t, uint32(0), Checksum(0, nil))
	assert.Equal(t, uint32(0x04030201), Checksum(0, []byte{1, 2, 3, 4}))
	assert.Equal(t, uint32(0x04030201^0x08070605), Checksum(0, []byte{1, 2, 3, 4, 5, 6, 7, 8}))
	assert.Equal(t, uint32(0xdeadbeef^0x04030201), Checksum(0xdeadbeef, []byte{1, 2, 3, 4}))
}

func TestChecksumTail(t *testing.T) {
	// the last byte lands in the lowest position
	assert.Equal(t, uint32(0x01), Checksum(0, []byte{1}))
	assert.Equal(t, uint32(0x0102), Checksum(0, []byte{1, 2}))
	assert.Equal(t, uint32(0x010203), Checksum(0, []byte{1, 2, 3}))
	assert.Equal(t, uint32(0x04030201^0x050607), Checksum(0, []byte{1, 2, 3, 4, 5, 6, 7}))
}

func TestBlockChecksum(t *testing.T) {
	payload := []byte("hello, world")
	hdr := make([]byte, 4)
	binary.LittleEndian.PutUint16(hdr[0:], uint16(len(payload)))
	binary.LittleEndian.PutUint16(hdr[2:], uint16(len(payload)))
	want := Checksum(Checksum(0, payload), hdr)
	assert.Equal(t, want, BlockChecksum(uint16(len(payload)), uint16(len(payload)), nil, payload))
	// reserve bytes are covered
	withReserve := BlockChecksum(uint16(len(payload)), uint16(len(payload)), []byte{0xaa, 0xbb, 0xcc, 0xdd}, payload)
	assert.NotEqual(t, want, withReserve)
	// every bit of the lengths and payload matters
	for i := 0; i < len(payload)*8; i++ {
		flipped := append([]byte(nil), payload...)
		flipped[i/8] ^= 1 << (i % 8)
		assert.NotEqual(t, want, BlockChecksum(uint16(len(payload)), uint16(len(payload)), nil, flipped), "bit %d", i)
	}
	assert.NotEqual(t, want, BlockChecksum(uint16(len(payload)), uint16(len(payload))+1, nil, payload))
}
