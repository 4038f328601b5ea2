package jpegcodec

import (
	"bytes"
	"encoding/binary"
	"sort"

	"dctdm/pkg/bitio"
)

// Encode serializes store back into a complete baseline JFIF JPEG byte
// stream: SOI, an APP0/JFIF header, one DQT segment per quantization table,
// SOF0, one DHT segment per Huffman table, SOS, the entropy-coded scan, and
// EOI.
func Encode(store *Store) ([]byte, error) {
	var buf bytes.Buffer

	buf.Write([]byte{0xFF, 0xD8}) // SOI
	writeAPP0(&buf)
	writeDQT(&buf, store)
	writeSOF0(&buf, store)
	writeDHT(&buf, store)
	writeSOS(&buf, store)

	w := bitio.NewWriter()
	encodeScan(w, store)
	w.Flush()
	buf.Write(w.Bytes())

	buf.Write([]byte{0xFF, 0xD9}) // EOI
	return buf.Bytes(), nil
}

func writeAPP0(buf *bytes.Buffer) {
	buf.Write([]byte{0xFF, 0xE0})
	writeU16(buf, 16) // segment length, including itself
	buf.WriteString("JFIF\x00")
	buf.Write([]byte{1, 1}) // version 1.1
	buf.WriteByte(0)        // density units: none
	writeU16(buf, 1)        // Xdensity
	writeU16(buf, 1)        // Ydensity
	buf.WriteByte(0)        // thumbnail width
	buf.WriteByte(0)        // thumbnail height
}

func writeDQT(buf *bytes.Buffer, store *Store) {
	ids := sortedQuantIDs(store)
	for _, id := range ids {
		qt := store.QuantTables[id]
		buf.Write([]byte{0xFF, 0xDB})
		writeU16(buf, 2+1+64)
		buf.WriteByte(0<<4 | byte(id)) // precision 0 (8-bit) in high nibble
		var zz [64]byte
		for row := 0; row < 8; row++ {
			for col := 0; col < 8; col++ {
				zz[zzIndex[row][col]] = qt.Values[row*8+col]
			}
		}
		buf.Write(zz[:])
	}
}

func writeSOF0(buf *bytes.Buffer, store *Store) {
	buf.Write([]byte{0xFF, 0xC0})
	writeU16(buf, 8+3*numComponents)
	buf.WriteByte(8) // precision
	writeU16(buf, uint16(store.Frame.Height))
	writeU16(buf, uint16(store.Frame.Width))
	buf.WriteByte(numComponents)
	for _, c := range store.Frame.Components {
		buf.WriteByte(c.ID)
		buf.WriteByte(0x11) // 1x1 sampling
		buf.WriteByte(c.QuantID)
	}
}

func writeDHT(buf *bytes.Buffer, store *Store) {
	keys := sortedHuffmanKeys(store)
	for _, key := range keys {
		table := store.HuffmanTables[key]
		class := key / 16
		id := key % 16
		bits, symbols := table.Export()

		buf.Write([]byte{0xFF, 0xC4})
		writeU16(buf, uint16(2+1+16+len(symbols)))
		buf.WriteByte(byte(class<<4) | byte(id))
		buf.Write(bits[:])
		buf.Write(symbols)
	}
}

func writeSOS(buf *bytes.Buffer, store *Store) {
	buf.Write([]byte{0xFF, 0xDA})
	writeU16(buf, uint16(6+2*numComponents))
	buf.WriteByte(numComponents)
	for _, c := range store.Frame.Components {
		buf.WriteByte(c.ID)
		buf.WriteByte(c.DCTable<<4 | c.ACTable)
	}
	buf.WriteByte(0)  // spectral selection start
	buf.WriteByte(63) // spectral selection end
	buf.WriteByte(0)  // successive approximation
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func sortedQuantIDs(store *Store) []int {
	ids := make([]int, 0, len(store.QuantTables))
	for id := range store.QuantTables {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func sortedHuffmanKeys(store *Store) []int {
	keys := make([]int, 0, len(store.HuffmanTables))
	for k := range store.HuffmanTables {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
