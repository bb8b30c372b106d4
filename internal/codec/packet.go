package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Sobre TCP el payload del codec viaja así:
// 00000000 | dataSize(4B) | payload | crc(4B)
// El CRC-16/IBM va en los 2 bytes bajos.

// ErrIncompletePacket indica que faltan bytes; el caller debe seguir leyendo.
var ErrIncompletePacket = errors.New("incomplete packet")

// MaxPacketData limita dataSize para no acumular basura indefinidamente.
const MaxPacketData = 64 * 1024

func crc16IBM(b []byte) uint16 {
	var crc uint16
	for _, v := range b {
		crc ^= uint16(v)
		for i := 0; i < 8; i++ {
			if (crc & 1) == 1 {
				crc = (crc >> 1) ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

// BuildPacket envuelve un payload de codec en el sobre TCP.
func BuildPacket(payload []byte) []byte {
	out := make([]byte, 8, 8+len(payload)+4)
	binary.BigEndian.PutUint32(out[4:8], uint32(len(payload)))
	out = append(out, payload...)
	out = binary.BigEndian.AppendUint32(out, uint32(crc16IBM(payload)))
	return out
}

// ParsePacket extrae el primer paquete de buf. Devuelve el payload y
// cuántos bytes de buf consumió.
func ParsePacket(buf []byte) ([]byte, int, error) {
	if len(buf) < 8 {
		return nil, 0, ErrIncompletePacket
	}
	if binary.BigEndian.Uint32(buf[0:4]) != 0 {
		return nil, 0, fmt.Errorf("invalid preamble (expected 0x00000000, got %x)", buf[0:4])
	}
	dataLen := int(binary.BigEndian.Uint32(buf[4:8]))
	if dataLen == 0 || dataLen > MaxPacketData {
		return nil, 0, fmt.Errorf("invalid data size %d", dataLen)
	}
	total := 8 + dataLen + 4
	if len(buf) < total {
		return nil, 0, ErrIncompletePacket
	}
	payload := buf[8 : 8+dataLen]
	want := binary.BigEndian.Uint32(buf[8+dataLen : total])
	if got := uint32(crc16IBM(payload)); got != want {
		return nil, total, fmt.Errorf("crc mismatch: got %04x, want %04x", got, want)
	}
	return payload, total, nil
}

// BuildAck es la respuesta al dispositivo: cantidad de records aceptados.
func BuildAck(accepted int) []byte {
	return binary.BigEndian.AppendUint32(nil, uint32(accepted))
}
