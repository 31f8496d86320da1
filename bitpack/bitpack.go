// Copyright ©2015 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bitpack implements a growable, arbitrary-width bit-packed byte
// buffer. Values are appended with a caller-chosen width up to 64 bits and
// read back by bit offset, independent of the natural alignment of the host
// integer type.
//
// Packing is LSB-first within each byte: appends walk whole destination
// bytes at a time and finish with a final partial byte, following the same
// shape as a straightforward C bitarray implementation (set a run of bits
// inside one byte, then move to the next byte). Header integers elsewhere in
// seedcore are fixed 64-bit big-endian and are not encoded through this
// type.
package bitpack

import (
	"encoding/binary"
	"io"

	"github.com/kortschak/seedcore"
)

const maxWidth = 64

// Width returns the minimum bit width needed to represent any value in
// [0, maxValue], the ceil(log2(...)) computation the dataset and index
// on-disk formats use throughout for their record field widths.
func Width(maxValue uint64) uint8 {
	var w uint8
	for (uint64(1) << w) <= maxValue {
		w++
	}
	if w == 0 {
		w = 1
	}
	return w
}

// Writer is a growable bit-packed buffer. The zero value is ready to use.
type Writer struct {
	data   []byte
	length uint64 // number of bits written
}

// NewWriter returns a Writer with capacity for at least n bits preallocated.
func NewWriter(n uint64) *Writer {
	return &Writer{data: make([]byte, 0, (n+7)/8)}
}

// Len returns the number of bits written so far.
func (w *Writer) Len() uint64 { return w.length }

// Bytes returns the number of whole bytes needed to hold the bits written
// so far.
func (w *Writer) Bytes() int64 { return int64((w.length + 7) / 8) }

// Append packs the low width bits of value onto the end of the buffer.
// It panics if width exceeds 64; this is a programmer error, not a runtime
// condition callers are expected to recover from.
func (w *Writer) Append(value uint64, width uint8) {
	if width > maxWidth {
		panic("bitpack: width exceeds 64 bits")
	}
	if width == 0 {
		return
	}
	if width < 64 {
		value &= (uint64(1) << width) - 1
	}

	newLength := w.length + uint64(width)
	needBytes := int((newLength + 7) / 8)
	for len(w.data) < needBytes {
		w.data = append(w.data, 0)
	}

	bitInByte := uint8(w.length & 7)
	byteIdx := w.length / 8
	done := uint8(0)
	todo := width
	for {
		taken := uint8(8) - bitInByte
		if taken >= todo {
			w.data[byteIdx] |= byte((value>>done)&bitmask(todo)) << bitInByte
			break
		}
		w.data[byteIdx] |= byte((value>>done)&bitmask(taken)) << bitInByte
		todo -= taken
		done += taken
		bitInByte = 0
		byteIdx++
	}
	w.length = newLength
}

func bitmask(n uint8) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << n) - 1
}

// WriteTo writes the packed bytes (rounded up to a whole byte) to w,
// satisfying io.WriterTo.
func (w *Writer) WriteTo(dst io.Writer) (int64, error) {
	n, err := dst.Write(w.data)
	return int64(n), err
}

// WriteHeaderInt writes a single 64-bit big-endian integer, used for the
// fixed headers described in the dataset and index file formats.
func WriteHeaderInt(dst io.Writer, v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	_, err := dst.Write(buf[:])
	return err
}

// ReadHeaderInt reads a single 64-bit big-endian integer.
func ReadHeaderInt(src io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(src, buf[:]); err != nil {
		return 0, seedcore.Wrap(seedcore.ShortRead, err)
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

// Reader provides fixed-width random access into a packed byte buffer.
type Reader struct {
	data []byte
}

// NewReader wraps an existing packed byte slice for random access reads.
// The slice is not copied.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// FromWriter returns a Reader over the bytes currently held by w without
// copying them.
func FromWriter(w *Writer) *Reader {
	return &Reader{data: w.data}
}

// ReadFrom reads byteSize bytes from src and returns a Reader over them.
func ReadFrom(src io.Reader, byteSize int64) (*Reader, error) {
	buf := make([]byte, byteSize)
	if _, err := io.ReadFull(src, buf); err != nil {
		return nil, seedcore.Wrap(seedcore.ShortRead, err)
	}
	return &Reader{data: buf}, nil
}

// Bytes returns the underlying packed byte slice.
func (r *Reader) Bytes() []byte { return r.data }

// Get reads width bits starting at bit offset start and returns them
// right-aligned in the low bits of the result. It panics if width exceeds
// 64 or the read runs past the end of the buffer, both programmer errors.
func (r *Reader) Get(start uint64, width uint8) uint64 {
	if width > maxWidth {
		panic("bitpack: width exceeds 64 bits")
	}
	if width == 0 {
		return 0
	}
	end := start + uint64(width)
	if (end+7)/8 > uint64(len(r.data)) {
		panic("bitpack: read past end of buffer")
	}

	bitInByte := uint8(start & 7)
	byteIdx := start / 8
	var data uint64
	done := uint8(0)
	todo := width
	for {
		taken := uint8(8) - bitInByte
		if taken >= todo {
			data |= (uint64(r.data[byteIdx]) >> bitInByte & bitmask(todo)) << done
			break
		}
		data |= (uint64(r.data[byteIdx]) >> bitInByte & bitmask(taken)) << done
		todo -= taken
		done += taken
		bitInByte = 0
		byteIdx++
	}
	return data
}
