package codec

import (
	"encoding/binary"
	"fmt"
	"io"

	parseErrors "agtree/errors"
)

// ChunkSize is the size of one storage chunk of an OutputByteBuffer.
const ChunkSize = 32 * 1024

// OutputByteBuffer is an append-only byte buffer backed by fixed-size chunks,
// so growing it never copies bytes already written. It is not safe for
// concurrent use.
type OutputByteBuffer struct {
	chunks [][]byte
	size   int
	tmp    [binary.MaxVarintLen64]byte
}

// NewOutputByteBuffer returns an empty buffer.
func NewOutputByteBuffer() *OutputByteBuffer {
	return &OutputByteBuffer{}
}

// Len returns the number of bytes written.
func (b *OutputByteBuffer) Len() int {
	return b.size
}

func (b *OutputByteBuffer) tail() []byte {
	if n := len(b.chunks); n > 0 && len(b.chunks[n-1]) < ChunkSize {
		return b.chunks[n-1]
	}
	b.chunks = append(b.chunks, make([]byte, 0, ChunkSize))
	return b.chunks[len(b.chunks)-1]
}

// Write appends p. It never fails.
func (b *OutputByteBuffer) Write(p []byte) (int, error) {
	n := len(p)
	for len(p) > 0 {
		chunk := b.tail()
		k := min(ChunkSize-len(chunk), len(p))
		b.chunks[len(b.chunks)-1] = append(chunk, p[:k]...)
		p = p[k:]
	}
	b.size += n
	return n, nil
}

// WriteUint8 appends one byte.
func (b *OutputByteBuffer) WriteUint8(v uint8) {
	chunk := b.tail()
	b.chunks[len(b.chunks)-1] = append(chunk, v)
	b.size++
}

// WriteUint32 appends v in little-endian order.
func (b *OutputByteBuffer) WriteUint32(v uint32) {
	binary.LittleEndian.PutUint32(b.tmp[:4], v)
	_, _ = b.Write(b.tmp[:4])
}

// WriteUvarint appends v as an unsigned varint.
func (b *OutputByteBuffer) WriteUvarint(v uint64) {
	n := binary.PutUvarint(b.tmp[:], v)
	_, _ = b.Write(b.tmp[:n])
}

// WriteString appends a length-prefixed string.
func (b *OutputByteBuffer) WriteString(s string) {
	b.WriteUvarint(uint64(len(s)))
	_, _ = b.Write([]byte(s))
}

// Bytes returns a copy of the written bytes.
func (b *OutputByteBuffer) Bytes() []byte {
	out := make([]byte, 0, b.size)
	for _, chunk := range b.chunks {
		out = append(out, chunk...)
	}
	return out
}

// WriteTo writes the buffer contents to w.
func (b *OutputByteBuffer) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, chunk := range b.chunks {
		n, err := w.Write(chunk)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// InputByteBuffer reads from a byte slice with a cursor. The first failed
// read sets a sticky error; later reads return zero values.
type InputByteBuffer struct {
	data []byte
	pos  int
	err  error
}

// NewInputByteBuffer returns a buffer reading data.
func NewInputByteBuffer(data []byte) *InputByteBuffer {
	return &InputByteBuffer{data: data}
}

// Err returns the first read error.
func (b *InputByteBuffer) Err() error {
	return b.err
}

// Remaining returns the number of unread bytes.
func (b *InputByteBuffer) Remaining() int {
	return len(b.data) - b.pos
}

func (b *InputByteBuffer) fail(what string) {
	if b.err == nil {
		b.err = fmt.Errorf("%w: reading %s at offset %d", parseErrors.ErrCorruptBuffer, what, b.pos)
	}
}

// ReadUint8 reads one byte.
func (b *InputByteBuffer) ReadUint8() uint8 {
	if b.err != nil || b.pos >= len(b.data) {
		b.fail("byte")
		return 0
	}
	v := b.data[b.pos]
	b.pos++
	return v
}

// ReadUint32 reads a little-endian uint32.
func (b *InputByteBuffer) ReadUint32() uint32 {
	if b.err != nil || b.pos+4 > len(b.data) {
		b.fail("uint32")
		return 0
	}
	v := binary.LittleEndian.Uint32(b.data[b.pos:])
	b.pos += 4
	return v
}

// ReadUvarint reads an unsigned varint.
func (b *InputByteBuffer) ReadUvarint() uint64 {
	if b.err != nil {
		return 0
	}
	v, n := binary.Uvarint(b.data[b.pos:])
	if n <= 0 {
		b.fail("varint")
		return 0
	}
	b.pos += n
	return v
}

// ReadString reads a length-prefixed string.
func (b *InputByteBuffer) ReadString() string {
	n := b.ReadUvarint()
	if b.err != nil {
		return ""
	}
	if n > uint64(len(b.data)-b.pos) {
		b.fail("string")
		return ""
	}
	s := string(b.data[b.pos : b.pos+int(n)])
	b.pos += int(n)
	return s
}
