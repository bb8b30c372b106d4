package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRC16IBM(t *testing.T) {
	assert.Equal(t, uint16(0xBB3D), crc16IBM([]byte("123456789")))
	assert.Equal(t, uint16(0), crc16IBM(nil))
}

func TestPacket_RoundTrip(t *testing.T) {
	payload := []byte{7, 0, 0}
	pkt := BuildPacket(payload)
	require.Len(t, pkt, 8+3+4)
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 3}, pkt[:8])

	got, n, err := ParsePacket(pkt)
	require.NoError(t, err)
	assert.Equal(t, len(pkt), n)
	assert.Equal(t, payload, got)
}

func TestParsePacket_Incomplete(t *testing.T) {
	pkt := BuildPacket([]byte{7, 0, 0})
	for i := 0; i < len(pkt); i++ {
		_, n, err := ParsePacket(pkt[:i])
		assert.ErrorIs(t, err, ErrIncompletePacket, "len %d", i)
		assert.Zero(t, n)
	}
}

func TestParsePacket_Consecutive(t *testing.T) {
	a := BuildPacket([]byte{7, 0, 0})
	b := BuildPacket([]byte{7, 1, 0, 0, 0, 1, 0, 1})
	buf := append(append([]byte{}, a...), b...)

	p1, n1, err := ParsePacket(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{7, 0, 0}, p1)

	p2, n2, err := ParsePacket(buf[n1:])
	require.NoError(t, err)
	assert.Equal(t, len(buf), n1+n2)
	assert.Equal(t, byte(1), p2[1])
}

func TestParsePacket_Invalid(t *testing.T) {
	t.Run("preamble", func(t *testing.T) {
		pkt := BuildPacket([]byte{7, 0, 0})
		pkt[0] = 1
		_, _, err := ParsePacket(pkt)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "preamble")
	})
	t.Run("size", func(t *testing.T) {
		_, _, err := ParsePacket([]byte{0, 0, 0, 0, 0, 0, 0, 0})
		require.Error(t, err)
		_, _, err = ParsePacket([]byte{0, 0, 0, 0, 0x7F, 0, 0, 0})
		require.Error(t, err)
	})
	t.Run("crc", func(t *testing.T) {
		pkt := BuildPacket([]byte{7, 0, 0})
		pkt[len(pkt)-1] ^= 0xFF
		_, n, err := ParsePacket(pkt)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "crc")
		assert.Equal(t, len(pkt), n)
	})
}

func TestBuildAck(t *testing.T) {
	assert.Equal(t, []byte{0, 0, 0, 2}, BuildAck(2))
	assert.Equal(t, []byte{0, 0, 0, 0}, BuildAck(0))
}
