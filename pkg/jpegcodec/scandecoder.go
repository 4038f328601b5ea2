package jpegcodec

import (
	"fmt"

	"dctdm/pkg/bitio"
	"dctdm/pkg/dctdmerr"
	"dctdm/pkg/huffman"
)

// destuff strips JPEG byte-stuffing (0xFF 0x00 -> 0xFF) from the entropy
// segment starting at data[0], stopping at the first 0xFF byte that is not
// followed by 0x00 (the next marker). It returns the de-stuffed bytes and
// the number of raw bytes consumed, not including the terminating marker.
func destuff(data []byte) ([]byte, int) {
	out := make([]byte, 0, len(data))
	i := 0
	for i < len(data) {
		b := data[i]
		if b == 0xFF {
			if i+1 < len(data) && data[i+1] == 0x00 {
				out = append(out, 0xFF)
				i += 2
				continue
			}
			break
		}
		out = append(out, b)
		i++
	}
	return out, i
}

// decodeScan reads one entropy-coded scan (everything following the SOS
// header, up to but not including the next marker) and populates
// store.MCUs in raster order. It returns the number of raw bytes consumed.
func decodeScan(data []byte, store *Store) (int, error) {
	const op = "jpegcodec.decodeScan"

	destuffed, consumed := destuff(data)
	if consumed+1 < len(data) && data[consumed] == 0xFF {
		marker := data[consumed+1]
		if marker >= 0xD0 && marker <= 0xD7 {
			return 0, dctdmerr.New(dctdmerr.UnsupportedFormat, op, fmt.Errorf("restart markers are not supported"))
		}
	}
	r := bitio.NewReader(destuffed)

	mcuWide := store.Frame.MCUWide()
	mcuHigh := store.Frame.MCUHigh()
	if mcuWide == 0 || mcuHigh == 0 {
		return 0, dctdmerr.New(dctdmerr.MalformedStream, op, fmt.Errorf("frame dimensions are not 8-aligned"))
	}

	var dcPred [numComponents]int32
	store.MCUs = make([]MCU, 0, mcuWide*mcuHigh)

	for by := 0; by < mcuHigh; by++ {
		for bx := 0; bx < mcuWide; bx++ {
			mcu := MCU{BX: bx, BY: by}
			for comp := 0; comp < numComponents; comp++ {
				ci := store.Frame.Components[comp]
				dcTable := store.HuffmanTables[huffmanKey(0, int(ci.DCTable))]
				acTable := store.HuffmanTables[huffmanKey(1, int(ci.ACTable))]
				if dcTable == nil || acTable == nil {
					return 0, dctdmerr.New(dctdmerr.MalformedStream, op,
						fmt.Errorf("missing huffman table for component %d", comp))
				}
				quant := store.QuantTableFor(comp)
				if quant == nil {
					return 0, dctdmerr.New(dctdmerr.MalformedStream, op,
						fmt.Errorf("missing quant table for component %d", comp))
				}

				block, err := decodeBlock(r, dcTable, acTable, quant, &dcPred[comp])
				if err != nil {
					return 0, err
				}

				switch comp {
				case CompY:
					mcu.Y = block
				case CompCb:
					mcu.Cb = block
				case CompCr:
					mcu.Cr = block
				}
			}
			store.MCUs = append(store.MCUs, mcu)
		}
	}

	return consumed, nil
}

// decodeBlock decodes one 8x8 block: a DC difference relative to pred
// (updated in place) followed by a run-length-coded AC sequence terminated
// by EOB, then dequantizes every coefficient and places it in natural
// order.
func decodeBlock(r *bitio.Reader, dcTable, acTable *huffman.Table, quant *QuantTable, pred *int32) (Block, error) {
	const op = "jpegcodec.decodeBlock"
	var block Block

	dcSize, err := dcTable.Decode(r)
	if err != nil {
		return block, err
	}
	var diff int32
	if dcSize > 0 {
		bits, err := r.ReadBits(int(dcSize))
		if err != nil {
			return block, dctdmerr.New(dctdmerr.MalformedStream, op, err)
		}
		diff = extend(bits, int(dcSize))
	}
	*pred += diff

	row, col := naturalPos[0][0], naturalPos[0][1]
	block[row][col] = *pred * int32(quant.At(row, col))

	zi := 1
	for zi < 64 {
		rs, err := acTable.Decode(r)
		if err != nil {
			return block, err
		}
		run := int(rs >> 4)
		size := int(rs & 0x0F)

		if rs == 0x00 { // EOB
			break
		}
		if rs == 0xF0 { // ZRL: 16 zero coefficients
			zi += 16
			continue
		}

		zi += run
		if zi >= 64 {
			return block, dctdmerr.New(dctdmerr.MalformedStream, op, fmt.Errorf("AC run overruns block"))
		}

		bits, err := r.ReadBits(size)
		if err != nil {
			return block, dctdmerr.New(dctdmerr.MalformedStream, op, err)
		}
		coeff := extend(bits, size)

		pos := naturalPos[zi]
		block[pos[0]][pos[1]] = coeff * int32(quant.At(pos[0], pos[1]))
		zi++
	}

	return block, nil
}
