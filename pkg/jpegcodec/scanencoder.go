package jpegcodec

import (
	"dctdm/pkg/bitio"
	"dctdm/pkg/huffman"
)

// encodeScan writes every MCU in store, in raster order, to w using the
// store's own Huffman tables. The caller is responsible for having emitted
// the SOS header first and for flushing and byte-aligning w afterward.
func encodeScan(w *bitio.Writer, store *Store) {
	var dcPred [numComponents]int32

	for _, mcu := range store.MCUs {
		for comp := 0; comp < numComponents; comp++ {
			ci := store.Frame.Components[comp]
			dcTable := store.HuffmanTables[huffmanKey(0, int(ci.DCTable))]
			acTable := store.HuffmanTables[huffmanKey(1, int(ci.ACTable))]
			quant := store.QuantTableFor(comp)

			var block *Block
			switch comp {
			case CompY:
				block = &mcu.Y
			case CompCb:
				block = &mcu.Cb
			case CompCr:
				block = &mcu.Cr
			}

			encodeBlock(w, block, dcTable, acTable, quant, &dcPred[comp])
		}
	}
}

// quantizeLinear returns the 64 quantized coefficients of block in zigzag
// order, ready for run-length coding.
func quantizeLinear(block *Block, quant *QuantTable) [64]int32 {
	var lin [64]int32
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			q := quant.At(row, col)
			v := float64(block[row][col]) / float64(q)
			lin[zzIndex[row][col]] = roundHalfAwayFromZero(v)
		}
	}
	return lin
}

// encodeBlock writes one block's DC difference and run-length-coded AC
// coefficients. pred is the running DC predictor for this component,
// updated in place.
func encodeBlock(w *bitio.Writer, block *Block, dcTable, acTable *huffman.Table, quant *QuantTable, pred *int32) {
	lin := quantizeLinear(block, quant)

	dc := lin[0]
	diff := dc - *pred
	*pred = dc

	size := bitsize(diff)
	code, _ := dcTable.Code(byte(size))
	w.WriteBits(uint32(code.Bits), int(code.Len))
	if size > 0 {
		w.WriteBits(unextend(diff, size), size)
	}

	run := 0
	for zi := 1; zi < 64; zi++ {
		v := lin[zi]
		if v == 0 {
			run++
			continue
		}
		for run >= 16 {
			zrl, _ := acTable.Code(0xF0)
			w.WriteBits(uint32(zrl.Bits), int(zrl.Len))
			run -= 16
		}
		s := bitsize(v)
		rs := byte(run<<4) | byte(s)
		c, _ := acTable.Code(rs)
		w.WriteBits(uint32(c.Bits), int(c.Len))
		w.WriteBits(unextend(v, s), s)
		run = 0
	}
	if run > 0 {
		eob, _ := acTable.Code(0x00)
		w.WriteBits(uint32(eob.Bits), int(eob.Len))
	}
}
