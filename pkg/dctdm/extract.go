package dctdm

import (
	"fmt"

	"dctdm/pkg/dctdmerr"
	"dctdm/pkg/jpegcodec"
)

const maxPayloadChars = 10000

// extractFramed walks store's Y-channel coefficient pairs in the same
// order as embedFramed and recovers the framed message bytes. The returned
// string is the raw payload (still password-encrypted and base64-wrapped,
// if the sidecar says so) — callers apply the password layer afterward.
func extractFramed(store *jpegcodec.Store, opts Options) (string, error) {
	const op = "dctdm.Extract"
	if opts.Delta <= 0 {
		return "", dctdmerr.New(dctdmerr.MalformedStream, op, fmt.Errorf("delta must be positive"))
	}

	positions := pairPositions()
	quant := store.QuantTableFor(jpegcodec.CompY)

	var bits []byte
	var length int
	haveLength := false

	for mi := range store.MCUs {
		block := &store.MCUs[mi].Y
		for _, p := range positions {
			b1, b2 := extractPair(block, quant, p, opts.Delta)
			bits = append(bits, b1, b2)

			if !haveLength && len(bits) >= 16 {
				length = int(bitsToU16(bits[:16]))
				if length == 0 || length > maxPayloadChars {
					return "", dctdmerr.New(dctdmerr.InvalidPayloadLength, op,
						fmt.Errorf("payload length %d out of range", length))
				}
				haveLength = true
			}

			if haveLength && len(bits) >= 16+8*length {
				return bitsToString(bits[16 : 16+8*length]), nil
			}
		}
	}

	return "", dctdmerr.New(dctdmerr.Truncated, op, fmt.Errorf("cover exhausted before payload was fully read"))
}

func extractPair(block *jpegcodec.Block, quant *jpegcodec.QuantTable, p pairPos, delta int) (byte, byte) {
	q1 := quantizedAt(block, quant, p.row, p.col1)
	q2 := quantizedAt(block, quant, p.row, p.col2)

	d := q1 - q2
	absD := d
	if absD < 0 {
		absD = -absD
	}
	k := absD / delta
	boundary := k*delta + delta/2

	switch {
	case d >= 0 && absD < boundary:
		return 0, 0
	case d >= 0:
		return 0, 1
	case absD >= boundary:
		return 1, 0
	default:
		return 1, 1
	}
}

func bitsToU16(bits []byte) uint16 {
	var v uint16
	for _, b := range bits {
		v = v<<1 | uint16(b)
	}
	return v
}

func bitsToString(bits []byte) string {
	n := len(bits) / 8
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		var v byte
		for j := 0; j < 8; j++ {
			v = v<<1 | bits[i*8+j]
		}
		out[i] = v
	}
	return string(out)
}
