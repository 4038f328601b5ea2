// Package jpegcodec implements a baseline-JPEG decoder and encoder that
// expose and re-emit per-MCU quantized DCT coefficient blocks (rather than
// reconstructed pixels), so a steganographic payload can be embedded into
// the coefficients and survive a decode/re-encode cycle unchanged.
//
// Only baseline DCT, 8-bit precision, 4:4:4 sampling, no restart markers
// and no arithmetic coding are supported; anything else is rejected with a
// dctdmerr.UnsupportedFormat error rather than decoded incorrectly.
package jpegcodec

import "dctdm/pkg/huffman"

// Component indices in the compressed stream, fixed at Y, Cb, Cr.
const (
	CompY = iota
	CompCb
	CompCr
	numComponents = 3
)

// QuantTable is a quantization table in natural (row-major) order: index
// row*8+col addresses the table directly. The wire format transmits tables
// in zigzag order; that permutation is applied only at the marker-parsing
// and file-writing boundary.
type QuantTable struct {
	ID     int
	Values [64]byte
}

// At returns the quantization value for natural position (row, col).
func (q *QuantTable) At(row, col int) int {
	return int(q.Values[row*8+col])
}

// ComponentInfo describes one of the frame's three components as declared
// in SOF0.
type ComponentInfo struct {
	ID       byte
	HSamp    byte
	VSamp    byte
	QuantID  byte
	DCTable  byte // Huffman DC table selector, set from the SOS header
	ACTable  byte // Huffman AC table selector, set from the SOS header
}

// Frame holds the SOF0-declared geometry. Only 1x1 sampling (4:4:4) on all
// three components is accepted.
type Frame struct {
	Width      int
	Height     int
	Components [numComponents]ComponentInfo
}

// MCUWide and MCUHigh are the frame's size in minimum-coded-units (one 8x8
// block per component at 4:4:4 sampling).
func (f *Frame) MCUWide() int { return f.Width / 8 }
func (f *Frame) MCUHigh() int { return f.Height / 8 }

// Block is one component's 8x8 block of dequantized DCT coefficients,
// addressed [row][col] in natural order; Block[0][0] is the DC coefficient.
type Block [8][8]int32

// MCU is one minimum-coded-unit: one 8x8 block per component, in raster
// position (BX, BY).
type MCU struct {
	BX, BY  int
	Y       Block
	Cb      Block
	Cr      Block
}

// Store is the in-memory, interchange-format record of a decoded JPEG: all
// MCUs in raster order, plus the quantization and Huffman tables they were
// decoded against. It is the only shared state between the decoder, the
// DCTDM embedder, and the encoder — owned by the decoder, handed by move to
// the embedder, then by move to the encoder.
type Store struct {
	Frame         Frame
	MCUs          []MCU
	QuantTables   map[int]*QuantTable      // keyed by table ID (0..3)
	HuffmanTables map[int]*huffman.Table   // keyed 0,1 for DC; 16,17 for AC
}

// QuantTableFor returns the quantization table for a component by its
// index in Frame.Components (CompY, CompCb, CompCr).
func (s *Store) QuantTableFor(compIdx int) *QuantTable {
	id := int(s.Frame.Components[compIdx].QuantID)
	return s.QuantTables[id]
}

// huffmanKey combines a table class (0=DC, 1=AC) and id into the key used
// by HuffmanTables, matching the DHT marker's own encoding.
func huffmanKey(class, id int) int { return class*16 + id }
