package ring

import "encoding/binary"

// putHeader writes a little-endian frame header carrying payloadLen.
func putHeader(buf []byte, payloadLen uint32) {
	binary.LittleEndian.PutUint32(buf, payloadLen)
}

// getHeader decodes a little-endian frame header.
func getHeader(buf []byte) uint32 {
	return binary.LittleEndian.Uint32(buf)
}
