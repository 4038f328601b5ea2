package dctdm

import (
	"fmt"

	"dctdm/pkg/dctdmerr"
	"dctdm/pkg/jpegcodec"
)

// Options configures an embed or extract pass. Delta is the quantization
// step delta; Password, if non-empty, enables the password layer.
type Options struct {
	Delta    int
	Password string
}

// frameBits returns the payload's wire framing: a 16-bit big-endian length
// in characters, followed by one 8-bit code point per character. Code
// points above 255 are truncated to their low byte, per the inherited
// framing restriction.
func frameBits(message string) []byte {
	runes := []rune(message)
	bits := make([]byte, 0, 16+8*len(runes))
	bits = append(bits, u16Bits(uint16(len(runes)))...)
	for _, r := range runes {
		bits = append(bits, byteBits(byte(r))...)
	}
	return bits
}

func u16Bits(v uint16) []byte {
	bits := make([]byte, 16)
	for i := 0; i < 16; i++ {
		bits[i] = byte((v >> uint(15-i)) & 1)
	}
	return bits
}

func byteBits(v byte) []byte {
	bits := make([]byte, 8)
	for i := 0; i < 8; i++ {
		bits[i] = (v >> uint(7-i)) & 1
	}
	return bits
}

// embedFramed writes message into the Y-channel AC coefficients of store,
// in place, using the DCT difference modulation scheme: each adjacent
// coefficient pair carries two bits by nudging their quantized difference
// into one of four epsilon bins while preserving the pair's mean.
//
// message has already had the password layer applied by the caller (see
// Package password) if encryption was requested; embedFramed only frames
// and embeds bytes, it does not itself encrypt.
func embedFramed(store *jpegcodec.Store, message string, opts Options) error {
	const op = "dctdm.Embed"
	if opts.Delta <= 0 {
		return dctdmerr.New(dctdmerr.MalformedStream, op, fmt.Errorf("delta must be positive"))
	}

	bits := frameBits(message)
	positions := pairPositions()

	capacityPairs := len(store.MCUs) * len(positions)
	neededPairs := (len(bits) + 1) / 2
	if neededPairs > capacityPairs {
		return dctdmerr.New(dctdmerr.CapacityExceeded, op,
			fmt.Errorf("need %d pairs, cover provides %d", neededPairs, capacityPairs))
	}

	quant := store.QuantTableFor(jpegcodec.CompY)
	bitIdx := 0

outer:
	for mi := range store.MCUs {
		block := &store.MCUs[mi].Y
		for _, p := range positions {
			if bitIdx >= len(bits) {
				break outer
			}
			b1 := bits[bitIdx]
			var b2 byte
			if bitIdx+1 < len(bits) {
				b2 = bits[bitIdx+1]
			}
			embedPair(block, quant, p, opts.Delta, b1, b2)
			bitIdx += 2
		}
	}

	return nil
}

func embedPair(block *jpegcodec.Block, quant *jpegcodec.QuantTable, p pairPos, delta int, b1, b2 byte) {
	q1 := quantizedAt(block, quant, p.row, p.col1)
	q2 := quantizedAt(block, quant, p.row, p.col2)

	d := q1 - q2
	absD := d
	if absD < 0 {
		absD = -absD
	}
	k := absD / delta

	eps1 := float64(k*delta) + float64(delta)/4
	eps2 := float64(k*delta) + 3*float64(delta)/4

	var dPrime float64
	switch {
	case b1 == 0 && b2 == 0:
		dPrime = eps1
	case b1 == 0 && b2 == 1:
		dPrime = eps2
	case b1 == 1 && b2 == 0:
		dPrime = -eps2
	default:
		dPrime = -eps1
	}

	mu := float64(q1+q2) / 2
	q1Prime := roundHalfAwayFromZero(mu + dPrime/2)
	q2Prime := roundHalfAwayFromZero(mu - dPrime/2)

	setQuantized(block, quant, p.row, p.col1, q1Prime)
	setQuantized(block, quant, p.row, p.col2, q2Prime)
}

func quantizedAt(block *jpegcodec.Block, quant *jpegcodec.QuantTable, row, col int) int {
	q := quant.At(row, col)
	return int(roundHalfAwayFromZero(float64(block[row][col]) / float64(q)))
}

func setQuantized(block *jpegcodec.Block, quant *jpegcodec.QuantTable, row, col int, q int32) {
	block[row][col] = q * int32(quant.At(row, col))
}

func roundHalfAwayFromZero(v float64) int32 {
	if v >= 0 {
		return int32(v + 0.5)
	}
	return -int32(-v + 0.5)
}
