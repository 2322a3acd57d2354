package protocol

import (
	"bytes"
	"encoding/binary"
)

// Encoder writes the little-endian binary layout hived uses for signing.
type Encoder struct {
	buf bytes.Buffer
}

func (e *Encoder) Uint8(v uint8) {
	e.buf.WriteByte(v)
}

func (e *Encoder) Uint16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	e.buf.Write(b[:])
}

func (e *Encoder) Uint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf.Write(b[:])
}

func (e *Encoder) Int64(v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	e.buf.Write(b[:])
}

// Varint writes an unsigned LEB128 integer.
func (e *Encoder) Varint(v uint64) {
	var b [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(b[:], v)
	e.buf.Write(b[:n])
}

func (e *Encoder) String(s string) {
	e.Varint(uint64(len(s)))
	e.buf.WriteString(s)
}

func (e *Encoder) Strings(ss []string) {
	e.Varint(uint64(len(ss)))
	for _, s := range ss {
		e.String(s)
	}
}

func (e *Encoder) Bytes(b []byte) {
	e.buf.Write(b)
}

func (e *Encoder) Result() []byte {
	return e.buf.Bytes()
}
