// Package stream provides fixed-width big-endian integer I/O over a byte
// reader and byte writer, the primitive layer every higher package in this
// module is built on.
package stream

import (
	"encoding/binary"
	"io"
)

// ReadU1 reads an unsigned 8-bit integer.
func ReadU1(r io.Reader) (uint8, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadU2 reads a big-endian unsigned 16-bit integer.
func ReadU2(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

// ReadU4 reads a big-endian unsigned 32-bit integer.
func ReadU4(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

// ReadI2 reads a big-endian signed 16-bit integer.
func ReadI2(r io.Reader) (int16, error) {
	v, err := ReadU2(r)
	return int16(v), err
}

// ReadI4 reads a big-endian signed 32-bit integer.
func ReadI4(r io.Reader) (int32, error) {
	v, err := ReadU4(r)
	return int32(v), err
}

// ReadBytes reads exactly n bytes, returning io.ErrUnexpectedEOF on a short read.
func ReadBytes(r io.Reader, n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return buf, nil
}

// WriteU1 writes an unsigned 8-bit integer.
func WriteU1(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

// WriteU2 writes a big-endian unsigned 16-bit integer.
func WriteU2(w io.Writer, v uint16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

// WriteU4 writes a big-endian unsigned 32-bit integer.
func WriteU4(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

// WriteI2 writes a big-endian signed 16-bit integer.
func WriteI2(w io.Writer, v int16) error {
	return WriteU2(w, uint16(v))
}

// WriteI4 writes a big-endian signed 32-bit integer.
func WriteI4(w io.Writer, v int32) error {
	return WriteU4(w, uint32(v))
}
