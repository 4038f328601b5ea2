package jpegcodec

import (
	"bytes"
	"errors"
	"testing"

	"dctdm/pkg/dctdmerr"
	"dctdm/pkg/huffman"
)

// TestZigzagInvolution is invariant 6: natural->zigzag->natural is the
// identity over all 64 positions.
func TestZigzagInvolution(t *testing.T) {
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			zi := zzIndex[row][col]
			pos := naturalPos[zi]
			if pos[0] != row || pos[1] != col {
				t.Fatalf("naturalPos[zzIndex[%d][%d]] = %v, want (%d, %d)", row, col, pos, row, col)
			}
		}
	}
	seen := make(map[int]bool)
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			zi := zzIndex[row][col]
			if seen[zi] {
				t.Fatalf("zigzag index %d assigned twice", zi)
			}
			seen[zi] = true
		}
	}
	if len(seen) != 64 {
		t.Fatalf("expected 64 distinct zigzag indices, got %d", len(seen))
	}
}

// testDCTable and testACTable build small but real canonical tables
// covering every symbol the test blocks below need.
func testDCTable(t *testing.T) *huffman.Table {
	t.Helper()
	var bits [16]byte
	// 9 DC size categories (0..8), one code each, lengths chosen to form a
	// valid canonical prefix code (standard JPEG luma DC table shape).
	bits[1] = 1
	bits[2] = 5
	bits[3] = 1
	bits[4] = 1
	bits[5] = 1
	symbols := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8}
	tbl, err := huffman.Build(bits, symbols)
	if err != nil {
		t.Fatalf("build DC table: %v", err)
	}
	return tbl
}

func testACTable(t *testing.T) *huffman.Table {
	t.Helper()
	var bits [16]byte
	// Enough AC symbols to cover EOB(0x00), ZRL(0xF0), and a handful of
	// (run,size) symbols used by the test blocks below.
	symbols := []byte{0x00, 0x01, 0x02, 0x11, 0x12, 0xF0}
	bits[1] = 1
	bits[2] = 2
	bits[3] = 2
	bits[4] = 1
	tbl, err := huffman.Build(bits, symbols)
	if err != nil {
		t.Fatalf("build AC table: %v", err)
	}
	return tbl
}

func flatQuantTable(id int, value byte) *QuantTable {
	qt := &QuantTable{ID: id}
	for i := range qt.Values {
		qt.Values[i] = value
	}
	return qt
}

// nonUniformQuantTable returns a table whose natural-order values are all
// distinct, so a zigzag/natural permutation mistake anywhere in the
// DQT read/write path changes the decoded coefficients rather than being
// invisible (a flat table is invariant under any permutation of itself).
func nonUniformQuantTable(id int) *QuantTable {
	qt := &QuantTable{ID: id}
	for i := range qt.Values {
		qt.Values[i] = byte(i + 1)
	}
	return qt
}

func buildTestStore(t *testing.T) *Store {
	t.Helper()
	store := &Store{
		Frame: Frame{
			Width:  8,
			Height: 8,
			Components: [numComponents]ComponentInfo{
				{ID: 1, HSamp: 1, VSamp: 1, QuantID: 0, DCTable: 0, ACTable: 0},
				{ID: 2, HSamp: 1, VSamp: 1, QuantID: 1, DCTable: 1, ACTable: 1},
				{ID: 3, HSamp: 1, VSamp: 1, QuantID: 1, DCTable: 1, ACTable: 1},
			},
		},
		QuantTables: map[int]*QuantTable{
			0: flatQuantTable(0, 2),
			1: flatQuantTable(1, 4),
		},
		HuffmanTables: map[int]*huffman.Table{
			huffmanKey(0, 0): testDCTable(t),
			huffmanKey(1, 0): testACTable(t),
			huffmanKey(0, 1): testDCTable(t),
			huffmanKey(1, 1): testACTable(t),
		},
	}

	var y Block
	y[0][0] = 40 // DC, multiple of quant value 2
	y[0][1] = 2  // AC at zigzag index 1, quantized magnitude 1
	var cb Block
	cb[0][0] = -20
	var cr Block
	cr[0][0] = 16

	store.MCUs = []MCU{{BX: 0, BY: 0, Y: y, Cb: cb, Cr: cr}}
	return store
}

// TestEncodeDecodeRoundTrip is invariant 1 / scenario S4: a store encoded
// to bytes and decoded back yields the same coefficients.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	store := buildTestStore(t)
	data, err := Encode(store)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if len(got.MCUs) != len(store.MCUs) {
		t.Fatalf("got %d MCUs, want %d", len(got.MCUs), len(store.MCUs))
	}
	want := store.MCUs[0]
	have := got.MCUs[0]
	if have.Y != want.Y {
		t.Fatalf("Y block = %v, want %v", have.Y, want.Y)
	}
	if have.Cb != want.Cb {
		t.Fatalf("Cb block = %v, want %v", have.Cb, want.Cb)
	}
	if have.Cr != want.Cr {
		t.Fatalf("Cr block = %v, want %v", have.Cr, want.Cr)
	}
}

// TestDQTRoundTripPreservesNaturalOrder guards against a zigzag/natural
// mixup in the DQT read/write path: writeDQT emits Values permuted into
// zigzag order, so parseDQT must apply the inverse permutation on read, not
// copy the wire bytes straight into Values. A flat table can't catch this
// because it is invariant under any permutation.
func TestDQTRoundTripPreservesNaturalOrder(t *testing.T) {
	store := buildTestStore(t)
	store.QuantTables[0] = nonUniformQuantTable(0)

	data, err := Encode(store)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	want := store.QuantTables[0]
	have := got.QuantTables[0]
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			if have.At(row, col) != want.At(row, col) {
				t.Fatalf("QuantTable.At(%d,%d) = %d, want %d", row, col, have.At(row, col), want.At(row, col))
			}
		}
	}
}

// TestDecodeRejectsMissingSOI is part of invariant 7: malformed input
// reports a typed error rather than panicking.
func TestDecodeRejectsMissingSOI(t *testing.T) {
	_, err := Decode([]byte{0x00, 0x01, 0x02})
	if err == nil {
		t.Fatal("expected error for missing SOI")
	}
	var kindErr *dctdmerr.Error
	if !errors.As(err, &kindErr) {
		t.Fatalf("expected *dctdmerr.Error, got %T: %v", err, err)
	}
	if kindErr.Kind != dctdmerr.MalformedStream {
		t.Fatalf("kind = %v, want %v", kindErr.Kind, dctdmerr.MalformedStream)
	}
}

// TestDecodeRejectsProgressive is scenario S5: a progressive SOF marker
// (SOF2, 0xFFC2) is rejected as unsupported rather than misdecoded.
func TestDecodeRejectsProgressive(t *testing.T) {
	data := []byte{0xFF, 0xD8, 0xFF, 0xC2, 0x00, 0x02}
	_, err := Decode(data)
	if err == nil {
		t.Fatal("expected error for progressive SOF")
	}
	var kindErr *dctdmerr.Error
	if !errors.As(err, &kindErr) {
		t.Fatalf("expected *dctdmerr.Error, got %T: %v", err, err)
	}
	if kindErr.Kind != dctdmerr.UnsupportedFormat {
		t.Fatalf("kind = %v, want %v", kindErr.Kind, dctdmerr.UnsupportedFormat)
	}
}

// TestDecodeRejectsRestartInterval is part of invariant 7: a DRI marker
// must be rejected outright rather than silently skipped as a generic
// length-prefixed segment.
func TestDecodeRejectsRestartInterval(t *testing.T) {
	data := []byte{0xFF, 0xD8, 0xFF, 0xDD, 0x00, 0x04, 0x00, 0x08}
	_, err := Decode(data)
	if err == nil {
		t.Fatal("expected error for DRI marker")
	}
	var kindErr *dctdmerr.Error
	if !errors.As(err, &kindErr) {
		t.Fatalf("expected *dctdmerr.Error, got %T: %v", err, err)
	}
	if kindErr.Kind != dctdmerr.UnsupportedFormat {
		t.Fatalf("kind = %v, want %v", kindErr.Kind, dctdmerr.UnsupportedFormat)
	}
}

// TestDecodeScanRejectsRestartMarker guards against a restart marker inside
// the entropy-coded scan being mistaken for the end of the scan: destuff
// stops at any 0xFF not followed by 0x00, which includes RSTn bytes, so
// decodeScan must recognize that case and fail cleanly instead of silently
// truncating the scan.
func TestDecodeScanRejectsRestartMarker(t *testing.T) {
	store := buildTestStore(t)
	data, err := Encode(store)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// Splice an RST0 marker (0xFFD0) into the entropy-coded scan, before
	// the EOI marker, to simulate a restart-interval stream.
	eoi := []byte{0xFF, 0xD9}
	idx := bytes.LastIndex(data, eoi)
	if idx < 0 {
		t.Fatal("could not find EOI in encoded stream")
	}
	spliced := append([]byte{}, data[:idx]...)
	spliced = append(spliced, 0xFF, 0xD0)
	spliced = append(spliced, data[idx:]...)

	_, err = Decode(spliced)
	if err == nil {
		t.Fatal("expected error for restart marker inside scan")
	}
	var kindErr *dctdmerr.Error
	if !errors.As(err, &kindErr) {
		t.Fatalf("expected *dctdmerr.Error, got %T: %v", err, err)
	}
	if kindErr.Kind != dctdmerr.UnsupportedFormat {
		t.Fatalf("kind = %v, want %v", kindErr.Kind, dctdmerr.UnsupportedFormat)
	}
}

func TestDestuffStopsAtMarker(t *testing.T) {
	data := []byte{0x01, 0xFF, 0x00, 0x02, 0xFF, 0xD9}
	out, consumed := destuff(data)
	want := []byte{0x01, 0xFF, 0x02}
	if string(out) != string(want) {
		t.Fatalf("destuff = %v, want %v", out, want)
	}
	if consumed != 4 {
		t.Fatalf("consumed = %d, want 4", consumed)
	}
}
