// Package transcode is the external collaborator that turns an arbitrary
// cover image into a baseline JPEG before pkg/jpegcodec ever sees it. It is
// intentionally outside the DCTDM core: pkg/dctdm and pkg/jpegcodec only
// ever operate on baseline 4:4:4 JPEG bytes, and a caller reaches for this
// package first when a cover might be a different format, a progressive
// JPEG, or uses chroma subsampling.
//
// The standard library's image/jpeg encoder cannot serve this: it always
// emits 4:2:0 chroma subsampling for color images (and a single-component
// stream for grayscale ones), neither of which pkg/jpegcodec's decoder
// accepts. Instead this package performs its own forward DCT and feeds the
// resulting coefficients straight into pkg/jpegcodec.Encode, which emits
// 1x1 sampling on all three components by construction.
package transcode

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"dctdm/pkg/dctdmerr"
	"dctdm/pkg/huffman"
	"dctdm/pkg/jpegcodec"
)

// Quality is the re-encode quality, on the standard 1-100 IJG scale, used
// to derive the quantization tables for any cover that needs transcoding.
// 100 minimizes additional generational loss before the DCTDM layer does
// its own, deliberate, coefficient-level modification.
const Quality = 100

const (
	quantLumaID   = 0
	quantChromaID = 1

	dcLumaKey   = 0
	acLumaKey   = 16
	dcChromaKey = 1
	acChromaKey = 17
)

// ToBaselineJPEG decodes data using whichever registered image format
// matches (PNG, GIF, BMP, TIFF, or a JPEG that pkg/jpegcodec itself
// rejects) and re-encodes it as a baseline 4:4:4 JPEG at Quality. If data is
// already a cover pkg/jpegcodec can decode, it is returned unchanged.
func ToBaselineJPEG(data []byte) ([]byte, error) {
	const op = "transcode.ToBaselineJPEG"

	if _, err := jpegcodec.Decode(data); err == nil {
		return data, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, dctdmerr.New(dctdmerr.UnsupportedFormat, op, err)
	}

	store, err := storeFromImage(img)
	if err != nil {
		return nil, dctdmerr.New(dctdmerr.UnsupportedFormat, op, err)
	}

	out, err := jpegcodec.Encode(store)
	if err != nil {
		return nil, dctdmerr.New(dctdmerr.IOError, op, err)
	}
	return out, nil
}

// storeFromImage builds a coefficient store directly from pixels: each 8x8
// region is converted to YCbCr, level-shifted, and run through a forward
// DCT, so the result is exactly what pkg/jpegcodec.Decode would have
// produced had it been given a real 4:4:4 encoder's output. Dimensions not
// already a multiple of 8 are padded by replicating the edge pixel, the way
// any block-based JPEG encoder handles a non-MCU-aligned image.
func storeFromImage(img image.Image) (*jpegcodec.Store, error) {
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, fmt.Errorf("transcode: image has zero dimension")
	}

	mcuWide := (bounds.Dx() + 7) / 8
	mcuHigh := (bounds.Dy() + 7) / 8

	huffmanTables, err := standardHuffmanTables()
	if err != nil {
		return nil, err
	}

	store := &jpegcodec.Store{
		Frame: jpegcodec.Frame{
			Width:  mcuWide * 8,
			Height: mcuHigh * 8,
			Components: [3]jpegcodec.ComponentInfo{
				{ID: 1, HSamp: 1, VSamp: 1, QuantID: quantLumaID, DCTable: 0, ACTable: 0},
				{ID: 2, HSamp: 1, VSamp: 1, QuantID: quantChromaID, DCTable: 1, ACTable: 1},
				{ID: 3, HSamp: 1, VSamp: 1, QuantID: quantChromaID, DCTable: 1, ACTable: 1},
			},
		},
		QuantTables: map[int]*jpegcodec.QuantTable{
			quantLumaID:   scaledQuantTable(quantLumaID, Quality),
			quantChromaID: scaledQuantTable(quantChromaID, Quality),
		},
		HuffmanTables: huffmanTables,
		MCUs:          make([]jpegcodec.MCU, 0, mcuWide*mcuHigh),
	}
	lumaQuant := store.QuantTables[quantLumaID]
	chromaQuant := store.QuantTables[quantChromaID]

	for by := 0; by < mcuHigh; by++ {
		for bx := 0; bx < mcuWide; bx++ {
			origin := image.Pt(bounds.Min.X+bx*8, bounds.Min.Y+by*8)
			var yPix, cbPix, crPix [8][8]float64
			extractYCbCrBlock(img, bounds, origin, &yPix, &cbPix, &crPix)

			store.MCUs = append(store.MCUs, jpegcodec.MCU{
				BX: bx,
				BY: by,
				Y:  coefficientBlock(yPix, lumaQuant),
				Cb: coefficientBlock(cbPix, chromaQuant),
				Cr: coefficientBlock(crPix, chromaQuant),
			})
		}
	}

	return store, nil
}

// extractYCbCrBlock samples the 8x8 region of img whose top-left corner is
// origin, clamping at the image edge. Mirrors the generic image.Image path
// a block-based JPEG encoder uses for arbitrary pixel formats.
func extractYCbCrBlock(img image.Image, bounds image.Rectangle, origin image.Point, y, cb, cr *[8][8]float64) {
	xmax := bounds.Max.X - 1
	ymax := bounds.Max.Y - 1
	for j := 0; j < 8; j++ {
		py := origin.Y + j
		if py > ymax {
			py = ymax
		}
		for i := 0; i < 8; i++ {
			px := origin.X + i
			if px > xmax {
				px = xmax
			}
			r, g, b, _ := img.At(px, py).RGBA()
			yy, cbv, crv := color.RGBToYCbCr(uint8(r>>8), uint8(g>>8), uint8(b>>8))
			y[j][i] = float64(yy) - 128
			cb[j][i] = float64(cbv) - 128
			cr[j][i] = float64(crv) - 128
		}
	}
}

// coefficientBlock runs a level-shifted pixel block through the forward DCT
// and quantizes it against quant, storing the result the way pkg/jpegcodec
// expects: Block holds the dequantized coefficient (quantized value times
// the table's step), not the raw quantized integer.
func coefficientBlock(pix [8][8]float64, quant *jpegcodec.QuantTable) jpegcodec.Block {
	freq := forwardDCT(pix)
	var block jpegcodec.Block
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			step := quant.At(row, col)
			q := roundHalfAwayFromZero(freq[row][col] / float64(step))
			block[row][col] = q * int32(step)
		}
	}
	return block
}

var cosTable [8][8]float64

func init() {
	for n := 0; n < 8; n++ {
		for k := 0; k < 8; k++ {
			cosTable[n][k] = math.Cos(float64(2*n+1) * float64(k) * math.Pi / 16)
		}
	}
}

func dctScale(k int) float64 {
	if k == 0 {
		return 1 / math.Sqrt2
	}
	return 1
}

// forwardDCT computes the type-II discrete cosine transform of an 8x8
// block of level-shifted samples, using the same normalization as the
// standard JPEG inverse DCT (ITU-T T.81 A.3.3), so any compliant decoder
// reconstructs the original samples from the quantized result.
func forwardDCT(pix [8][8]float64) [8][8]float64 {
	var out [8][8]float64
	for u := 0; u < 8; u++ {
		for v := 0; v < 8; v++ {
			var sum float64
			for row := 0; row < 8; row++ {
				for col := 0; col < 8; col++ {
					sum += pix[row][col] * cosTable[row][u] * cosTable[col][v]
				}
			}
			out[u][v] = 0.25 * dctScale(u) * dctScale(v) * sum
		}
	}
	return out
}

func roundHalfAwayFromZero(v float64) int32 {
	if v >= 0 {
		return int32(v + 0.5)
	}
	return -int32(-v + 0.5)
}

// unscaledLuma and unscaledChroma are the standard Annex K.1 base
// quantization tables, in natural (row-major) order.
var unscaledLuma = [64]byte{
	16, 11, 10, 16, 24, 40, 51, 61,
	12, 12, 14, 19, 26, 58, 60, 55,
	14, 13, 16, 24, 40, 57, 69, 56,
	14, 17, 22, 29, 51, 87, 80, 62,
	18, 22, 37, 56, 68, 109, 103, 77,
	24, 35, 55, 64, 81, 104, 113, 92,
	49, 64, 78, 87, 103, 121, 120, 101,
	72, 92, 95, 98, 112, 100, 103, 99,
}

var unscaledChroma = [64]byte{
	17, 18, 24, 47, 99, 99, 99, 99,
	18, 21, 26, 66, 99, 99, 99, 99,
	24, 26, 56, 99, 99, 99, 99, 99,
	47, 66, 99, 99, 99, 99, 99, 99,
	99, 99, 99, 99, 99, 99, 99, 99,
	99, 99, 99, 99, 99, 99, 99, 99,
	99, 99, 99, 99, 99, 99, 99, 99,
	99, 99, 99, 99, 99, 99, 99, 99,
}

// scaledQuantTable scales the standard base table to quality using the same
// IJG scaling formula every baseline JPEG encoder uses. At Quality=100 this
// reduces to a flat table of 1s (lossless relative to the DCT itself).
func scaledQuantTable(id, quality int) *jpegcodec.QuantTable {
	base := unscaledLuma
	if id == quantChromaID {
		base = unscaledChroma
	}
	if quality < 1 {
		quality = 1
	} else if quality > 100 {
		quality = 100
	}
	scale := 200 - quality*2
	if quality < 50 {
		scale = 5000 / quality
	}

	qt := &jpegcodec.QuantTable{ID: id}
	for i, b := range base {
		v := (int(b)*scale + 50) / 100
		if v < 1 {
			v = 1
		} else if v > 255 {
			v = 255
		}
		qt.Values[i] = byte(v)
	}
	return qt
}

// standardHuffmanTables builds the fixed Huffman tables from ITU-T T.81
// Annex K.3, the same tables nearly every baseline JPEG encoder assumes
// when it has no input Huffman statistics to optimize against.
func standardHuffmanTables() (map[int]*huffman.Table, error) {
	specs := []struct {
		key     int
		bits    [16]byte
		symbols []byte
	}{
		{dcLumaKey, lumaDCBits, lumaDCSymbols},
		{acLumaKey, lumaACBits, lumaACSymbols},
		{dcChromaKey, chromaDCBits, chromaDCSymbols},
		{acChromaKey, chromaACBits, chromaACSymbols},
	}

	tables := make(map[int]*huffman.Table, len(specs))
	for _, s := range specs {
		t, err := huffman.Build(s.bits, s.symbols)
		if err != nil {
			return nil, fmt.Errorf("transcode: standard Huffman table: %w", err)
		}
		tables[s.key] = t
	}
	return tables, nil
}

var (
	lumaDCBits    = [16]byte{0, 1, 5, 1, 1, 1, 1, 1, 1, 0, 0, 0, 0, 0, 0, 0}
	lumaDCSymbols = []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}

	lumaACBits    = [16]byte{0, 2, 1, 3, 3, 2, 4, 3, 5, 5, 4, 4, 0, 0, 1, 125}
	lumaACSymbols = []byte{
		0x01, 0x02, 0x03, 0x00, 0x04, 0x11, 0x05, 0x12,
		0x21, 0x31, 0x41, 0x06, 0x13, 0x51, 0x61, 0x07,
		0x22, 0x71, 0x14, 0x32, 0x81, 0x91, 0xa1, 0x08,
		0x23, 0x42, 0xb1, 0xc1, 0x15, 0x52, 0xd1, 0xf0,
		0x24, 0x33, 0x62, 0x72, 0x82, 0x09, 0x0a, 0x16,
		0x17, 0x18, 0x19, 0x1a, 0x25, 0x26, 0x27, 0x28,
		0x29, 0x2a, 0x34, 0x35, 0x36, 0x37, 0x38, 0x39,
		0x3a, 0x43, 0x44, 0x45, 0x46, 0x47, 0x48, 0x49,
		0x4a, 0x53, 0x54, 0x55, 0x56, 0x57, 0x58, 0x59,
		0x5a, 0x63, 0x64, 0x65, 0x66, 0x67, 0x68, 0x69,
		0x6a, 0x73, 0x74, 0x75, 0x76, 0x77, 0x78, 0x79,
		0x7a, 0x83, 0x84, 0x85, 0x86, 0x87, 0x88, 0x89,
		0x8a, 0x92, 0x93, 0x94, 0x95, 0x96, 0x97, 0x98,
		0x99, 0x9a, 0xa2, 0xa3, 0xa4, 0xa5, 0xa6, 0xa7,
		0xa8, 0xa9, 0xaa, 0xb2, 0xb3, 0xb4, 0xb5, 0xb6,
		0xb7, 0xb8, 0xb9, 0xba, 0xc2, 0xc3, 0xc4, 0xc5,
		0xc6, 0xc7, 0xc8, 0xc9, 0xca, 0xd2, 0xd3, 0xd4,
		0xd5, 0xd6, 0xd7, 0xd8, 0xd9, 0xda, 0xe1, 0xe2,
		0xe3, 0xe4, 0xe5, 0xe6, 0xe7, 0xe8, 0xe9, 0xea,
		0xf1, 0xf2, 0xf3, 0xf4, 0xf5, 0xf6, 0xf7, 0xf8,
		0xf9, 0xfa,
	}

	chromaDCBits    = [16]byte{0, 3, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0, 0, 0, 0, 0}
	chromaDCSymbols = []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}

	chromaACBits    = [16]byte{0, 2, 1, 2, 4, 4, 3, 4, 7, 5, 4, 4, 0, 1, 2, 119}
	chromaACSymbols = []byte{
		0x00, 0x01, 0x02, 0x03, 0x11, 0x04, 0x05, 0x21,
		0x31, 0x06, 0x12, 0x41, 0x51, 0x07, 0x61, 0x71,
		0x13, 0x22, 0x32, 0x81, 0x08, 0x14, 0x42, 0x91,
		0xa1, 0xb1, 0xc1, 0x09, 0x23, 0x33, 0x52, 0xf0,
		0x15, 0x62, 0x72, 0xd1, 0x0a, 0x16, 0x24, 0x34,
		0xe1, 0x25, 0xf1, 0x17, 0x18, 0x19, 0x1a, 0x26,
		0x27, 0x28, 0x29, 0x2a, 0x35, 0x36, 0x37, 0x38,
		0x39, 0x3a, 0x43, 0x44, 0x45, 0x46, 0x47, 0x48,
		0x49, 0x4a, 0x53, 0x54, 0x55, 0x56, 0x57, 0x58,
		0x59, 0x5a, 0x63, 0x64, 0x65, 0x66, 0x67, 0x68,
		0x69, 0x6a, 0x73, 0x74, 0x75, 0x76, 0x77, 0x78,
		0x79, 0x7a, 0x82, 0x83, 0x84, 0x85, 0x86, 0x87,
		0x88, 0x89, 0x8a, 0x92, 0x93, 0x94, 0x95, 0x96,
		0x97, 0x98, 0x99, 0x9a, 0xa2, 0xa3, 0xa4, 0xa5,
		0xa6, 0xa7, 0xa8, 0xa9, 0xaa, 0xb2, 0xb3, 0xb4,
		0xb5, 0xb6, 0xb7, 0xb8, 0xb9, 0xba, 0xc2, 0xc3,
		0xc4, 0xc5, 0xc6, 0xc7, 0xc8, 0xc9, 0xca, 0xd2,
		0xd3, 0xd4, 0xd5, 0xd6, 0xd7, 0xd8, 0xd9, 0xda,
		0xe2, 0xe3, 0xe4, 0xe5, 0xe6, 0xe7, 0xe8, 0xe9,
		0xea, 0xf2, 0xf3, 0xf4, 0xf5, 0xf6, 0xf7, 0xf8,
		0xf9, 0xfa,
	}
)
