package bitio

import (
	"bytes"
	"testing"
)

func TestReaderReadBits(t *testing.T) {
	// 0b10110011, 0b01001100
	r := NewReader([]byte{0b10110011, 0b01001100})

	got, err := r.ReadBits(4)
	if err != nil || got != 0b1011 {
		t.Fatalf("ReadBits(4) = %v, %v, want 0b1011, nil", got, err)
	}
	got, err = r.ReadBits(4)
	if err != nil || got != 0b0011 {
		t.Fatalf("ReadBits(4) = %v, %v, want 0b0011, nil", got, err)
	}
	got, err = r.ReadBits(8)
	if err != nil || got != 0b01001100 {
		t.Fatalf("ReadBits(8) = %v, %v, want 0b01001100, nil", got, err)
	}
}

func TestReaderSingleBits(t *testing.T) {
	r := NewReader([]byte{0b10110011})
	want := []int{1, 0, 1, 1, 0, 0, 1, 1}
	for i, w := range want {
		got, err := r.ReadBit()
		if err != nil {
			t.Fatalf("bit %d: unexpected error %v", i, err)
		}
		if got != w {
			t.Fatalf("bit %d = %d, want %d", i, got, w)
		}
	}
}

func TestReaderPastEnd(t *testing.T) {
	r := NewReader([]byte{0xFF})
	if _, err := r.ReadBits(9); err == nil {
		t.Fatal("expected error reading past end of stream")
	}
}

func TestWriterStuffing(t *testing.T) {
	w := NewWriter()
	w.WriteBits(0xFF, 8)
	w.Flush()
	want := []byte{0xFF, 0x00}
	if !bytes.Equal(w.Bytes(), want) {
		t.Fatalf("Bytes() = %x, want %x", w.Bytes(), want)
	}
}

func TestWriterPadsWithOnes(t *testing.T) {
	w := NewWriter()
	w.WriteBits(0b101, 3) // 3 bits, then pad 5 bits of 1
	w.Flush()
	want := byte(0b10111111)
	got := w.Bytes()
	if len(got) != 1 || got[0] != want {
		t.Fatalf("Bytes() = %08b, want %08b", got, want)
	}
}

func TestWriterRoundTripsThroughReader(t *testing.T) {
	w := NewWriter()
	values := []struct {
		v uint32
		n int
	}{
		{0b1, 1}, {0b0110, 4}, {0b11111111, 8}, {0b101, 3}, {0xFF, 8}, {0b1, 1},
	}
	for _, tc := range values {
		w.WriteBits(tc.v, tc.n)
	}
	w.Flush()

	// de-stuff before reading back, mirroring how jpegcodec feeds bitio.Reader
	stuffed := w.Bytes()
	var destuffed []byte
	for i := 0; i < len(stuffed); i++ {
		destuffed = append(destuffed, stuffed[i])
		if stuffed[i] == 0xFF {
			i++ // skip the stuffed 0x00
		}
	}

	r := NewReader(destuffed)
	for _, tc := range values {
		got, err := r.ReadBits(tc.n)
		if err != nil {
			t.Fatalf("ReadBits(%d): %v", tc.n, err)
		}
		if got != tc.v {
			t.Fatalf("ReadBits(%d) = %b, want %b", tc.n, got, tc.v)
		}
	}
}
