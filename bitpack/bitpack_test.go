// Copyright ©2015 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bitpack

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestAppendGetRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	var widths []uint8
	var values []uint64
	w := NewWriter(0)
	for i := 0; i < 2000; i++ {
		width := uint8(1 + rnd.Intn(64))
		var value uint64
		if width == 64 {
			value = rnd.Uint64()
		} else {
			value = rnd.Uint64() & ((uint64(1) << width) - 1)
		}
		widths = append(widths, width)
		values = append(values, value)
		w.Append(value, width)
	}

	r := FromWriter(w)
	var offset uint64
	for i, width := range widths {
		got := r.Get(offset, width)
		if got != values[i] {
			t.Fatalf("record %d: got %d, want %d (width %d)", i, got, values[i], width)
		}
		offset += uint64(width)
	}
}

func TestAppendStraddlesByteBoundary(t *testing.T) {
	w := NewWriter(0)
	w.Append(1, 1)     // bit 0
	w.Append(0x7f, 7)   // bits 1-7, fills first byte
	w.Append(0x2a, 9)   // straddles into second/third byte
	r := FromWriter(w)
	if got := r.Get(0, 1); got != 1 {
		t.Errorf("bit 0: got %d want 1", got)
	}
	if got := r.Get(1, 7); got != 0x7f {
		t.Errorf("bits 1-7: got %d want 0x7f", got)
	}
	if got := r.Get(8, 9); got != 0x2a {
		t.Errorf("bits 8-16: got %d want 0x2a", got)
	}
}

func TestWidthOverflowPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for width > 64")
		}
	}()
	w := NewWriter(0)
	w.Append(1, 65)
}

func TestHeaderIntRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := uint64(0x0102030405060708)
	if err := WriteHeaderInt(&buf, want); err != nil {
		t.Fatal(err)
	}
	got, err := ReadHeaderInt(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("got %x want %x", got, want)
	}
}

func TestReadFromShortRead(t *testing.T) {
	_, err := ReadFrom(bytes.NewReader([]byte{1, 2}), 10)
	if err == nil {
		t.Fatal("expected short read error")
	}
}

func TestWidth(t *testing.T) {
	cases := []struct {
		max  uint64
		want uint8
	}{
		{0, 1}, {1, 1}, {2, 2}, {3, 2}, {4, 3}, {255, 8}, {256, 9},
	}
	for _, c := range cases {
		if got := Width(c.max); got != c.want {
			t.Errorf("Width(%d) = %d, want %d", c.max, got, c.want)
		}
	}
}

func TestBytesRounding(t *testing.T) {
	w := NewWriter(0)
	for i := 0; i < 9; i++ {
		w.Append(1, 1)
	}
	if w.Bytes() != 2 {
		t.Errorf("got %d bytes want 2", w.Bytes())
	}
}
