// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/mimblenet/mnd/chaincfg/chainhash"
	"github.com/mimblenet/mnd/pedersen"
)

// MaxVarIntPayload is the maximum payload size for a variable length integer.
const MaxVarIntPayload = 9

// littleEndian is a convenience variable since binary.LittleEndian is quite
// long.
var littleEndian = binary.LittleEndian

// binaryFreeListMaxItems is the number of buffers to keep in the free list to
// use for binary serialization and deserialization.
const binaryFreeListMaxItems = 1024

// binaryFreeList defines a concurrent safe free list of byte slices (up to
// the maximum number defined by the binaryFreeListMaxItems constant) that
// have a cap of 8 (thus it supports up to a uint64).  It is used to provide
// temporary buffers for serializing and deserializing primitive numbers to
// and from their binary encoding in order to greatly reduce the number of
// allocations required.
type binaryFreeList chan []byte

// Borrow returns a byte slice from the free list with a length of 8.  A new
// buffer is allocated if there are not any available on the free list.
func (l binaryFreeList) Borrow() []byte {
	var buf []byte
	select {
	case buf = <-l:
	default:
		buf = make([]byte, 8)
	}
	return buf[:8]
}

// Return puts the provided byte slice back on the free list.  The buffer MUST
// have been obtained via the Borrow function and therefore have a cap of 8.
func (l binaryFreeList) Return(buf []byte) {
	select {
	case l <- buf:
	default:
		// Let it go to the garbage collector.
	}
}

// binarySerializer provides a free list of buffers to use for serializing and
// deserializing primitive integer values to and from io.Readers and
// io.Writers.
var binarySerializer binaryFreeList = make(chan []byte, binaryFreeListMaxItems)

// readUint8 reads a single byte from r.
func readUint8(r io.Reader, value *uint8) error {
	buf := binarySerializer.Borrow()[:1]
	_, err := io.ReadFull(r, buf)
	if err == nil {
		*value = buf[0]
	}
	binarySerializer.Return(buf[:8])
	return err
}

// readUint16LE reads a little-endian encoded uint16 from r.
func readUint16LE(r io.Reader, value *uint16) error {
	buf := binarySerializer.Borrow()[:2]
	_, err := io.ReadFull(r, buf)
	if err == nil {
		*value = littleEndian.Uint16(buf)
	}
	binarySerializer.Return(buf[:8])
	return err
}

// readUint32LE reads a little-endian encoded uint32 from r.
func readUint32LE(r io.Reader, value *uint32) error {
	buf := binarySerializer.Borrow()[:4]
	_, err := io.ReadFull(r, buf)
	if err == nil {
		*value = littleEndian.Uint32(buf)
	}
	binarySerializer.Return(buf[:8])
	return err
}

// readUint64LE reads a little-endian encoded uint64 from r.
func readUint64LE(r io.Reader, value *uint64) error {
	buf := binarySerializer.Borrow()
	_, err := io.ReadFull(r, buf)
	if err == nil {
		*value = littleEndian.Uint64(buf)
	}
	binarySerializer.Return(buf)
	return err
}

// writeUint8 writes a single byte to w.
func writeUint8(w io.Writer, value uint8) error {
	buf := binarySerializer.Borrow()[:1]
	buf[0] = value
	_, err := w.Write(buf)
	binarySerializer.Return(buf[:8])
	return err
}

// writeUint16LE writes a little-endian encoded uint16 to w.
func writeUint16LE(w io.Writer, value uint16) error {
	buf := binarySerializer.Borrow()[:2]
	littleEndian.PutUint16(buf, value)
	_, err := w.Write(buf)
	binarySerializer.Return(buf[:8])
	return err
}

// writeUint32LE writes a little-endian encoded uint32 to w.
func writeUint32LE(w io.Writer, value uint32) error {
	buf := binarySerializer.Borrow()[:4]
	littleEndian.PutUint32(buf, value)
	_, err := w.Write(buf)
	binarySerializer.Return(buf[:8])
	return err
}

// writeUint64LE writes a little-endian encoded uint64 to w.
func writeUint64LE(w io.Writer, value uint64) error {
	buf := binarySerializer.Borrow()
	littleEndian.PutUint64(buf, value)
	_, err := w.Write(buf)
	binarySerializer.Return(buf)
	return err
}

// readElement reads the next sequence of bytes from r using little endian
// depending on the concrete type of element pointed to.
func readElement(r io.Reader, element interface{}) error {
	// Attempt to read the element based on the concrete type via fast
	// type assertions first.
	switch e := element.(type) {
	case *uint8:
		return readUint8(r, e)

	case *uint16:
		return readUint16LE(r, e)

	case *uint32:
		return readUint32LE(r, e)

	case *uint64:
		return readUint64LE(r, e)

	case *int64:
		var v uint64
		err := readUint64LE(r, &v)
		if err == nil {
			*e = int64(v)
		}
		return err

	case *chainhash.Hash:
		_, err := io.ReadFull(r, e[:])
		return err

	case *pedersen.Commitment:
		_, err := io.ReadFull(r, e[:])
		return err

	case *pedersen.Signature:
		_, err := io.ReadFull(r, e[:])
		return err

	case *pedersen.RangeProof:
		_, err := io.ReadFull(r, e[:])
		return err

	case *[32]byte:
		_, err := io.ReadFull(r, e[:])
		return err

	case *OutputFeatures:
		var v uint8
		err := readUint8(r, &v)
		if err == nil {
			*e = OutputFeatures(v)
		}
		return err

	case *KernelFeatures:
		var v uint8
		err := readUint8(r, &v)
		if err == nil {
			*e = KernelFeatures(v)
		}
		return err
	}

	return fmt.Errorf("unsupported element type %T", element)
}

// readElements reads multiple items from r.  It is equivalent to multiple
// calls to readElement.
func readElements(r io.Reader, elements ...interface{}) error {
	for _, element := range elements {
		err := readElement(r, element)
		if err != nil {
			return err
		}
	}
	return nil
}

// writeElement writes the little endian representation of element to w.
func writeElement(w io.Writer, element interface{}) error {
	// Attempt to write the element based on the concrete type via fast
	// type assertions first.
	switch e := element.(type) {
	case uint8:
		return writeUint8(w, e)

	case uint16:
		return writeUint16LE(w, e)

	case uint32:
		return writeUint32LE(w, e)

	case uint64:
		return writeUint64LE(w, e)

	case int64:
		return writeUint64LE(w, uint64(e))

	case *chainhash.Hash:
		_, err := w.Write(e[:])
		return err

	case *pedersen.Commitment:
		_, err := w.Write(e[:])
		return err

	case *pedersen.Signature:
		_, err := w.Write(e[:])
		return err

	case *pedersen.RangeProof:
		_, err := w.Write(e[:])
		return err

	case *[32]byte:
		_, err := w.Write(e[:])
		return err

	case OutputFeatures:
		return writeUint8(w, uint8(e))

	case KernelFeatures:
		return writeUint8(w, uint8(e))
	}

	return fmt.Errorf("unsupported element type %T", element)
}

// writeElements writes multiple items to w.  It is equivalent to multiple
// calls to writeElement.
func writeElements(w io.Writer, elements ...interface{}) error {
	for _, element := range elements {
		err := writeElement(w, element)
		if err != nil {
			return err
		}
	}
	return nil
}

// nonCanonicalVarIntFormat is the common format string used for
// non-canonically encoded variable length integer errors.
var nonCanonicalVarIntFormat = "non-canonical varint %x - discriminant %x " +
	"must encode a value greater than %x"

// ReadVarInt reads a variable length integer from r and returns it as a
// uint64.
func ReadVarInt(r io.Reader) (uint64, error) {
	var discriminant uint8
	if err := readUint8(r, &discriminant); err != nil {
		return 0, err
	}

	var rv uint64
	switch discriminant {
	case 0xff:
		var sv uint64
		if err := readUint64LE(r, &sv); err != nil {
			return 0, err
		}
		rv = sv

		// The encoding is not canonical if the value could have been
		// encoded using fewer bytes.
		min := uint64(0x100000000)
		if rv < min {
			str := fmt.Sprintf(nonCanonicalVarIntFormat, rv,
				discriminant, min)
			return 0, messageError("ReadVarInt",
				ErrNonCanonicalVarInt, str)
		}

	case 0xfe:
		var sv uint32
		if err := readUint32LE(r, &sv); err != nil {
			return 0, err
		}
		rv = uint64(sv)

		// The encoding is not canonical if the value could have been
		// encoded using fewer bytes.
		min := uint64(0x10000)
		if rv < min {
			str := fmt.Sprintf(nonCanonicalVarIntFormat, rv,
				discriminant, min)
			return 0, messageError("ReadVarInt",
				ErrNonCanonicalVarInt, str)
		}

	case 0xfd:
		var sv uint16
		if err := readUint16LE(r, &sv); err != nil {
			return 0, err
		}
		rv = uint64(sv)

		// The encoding is not canonical if the value could have been
		// encoded using fewer bytes.
		min := uint64(0xfd)
		if rv < min {
			str := fmt.Sprintf(nonCanonicalVarIntFormat, rv,
				discriminant, min)
			return 0, messageError("ReadVarInt",
				ErrNonCanonicalVarInt, str)
		}

	default:
		rv = uint64(discriminant)
	}

	return rv, nil
}

// WriteVarInt serializes val to w using a variable number of bytes depending
// on its value.
func WriteVarInt(w io.Writer, val uint64) error {
	if val < 0xfd {
		return writeUint8(w, uint8(val))
	}

	if val <= 0xffff {
		err := writeUint8(w, 0xfd)
		if err != nil {
			return err
		}
		return writeUint16LE(w, uint16(val))
	}

	if val <= 0xffffffff {
		err := writeUint8(w, 0xfe)
		if err != nil {
			return err
		}
		return writeUint32LE(w, uint32(val))
	}

	err := writeUint8(w, 0xff)
	if err != nil {
		return err
	}
	return writeUint64LE(w, val)
}

// VarIntSerializeSize returns the number of bytes it would take to serialize
// val as a variable length integer.
func VarIntSerializeSize(val uint64) int {
	// The value is small enough to be represented by itself, so it's
	// just 1 byte.
	if val < 0xfd {
		return 1
	}

	// Discriminant 1 byte plus 2 bytes for the uint16.
	if val <= 0xffff {
		return 3
	}

	// Discriminant 1 byte plus 4 bytes for the uint32.
	if val <= 0xffffffff {
		return 5
	}

	// Discriminant 1 byte plus 8 bytes for the uint64.
	return 9
}
