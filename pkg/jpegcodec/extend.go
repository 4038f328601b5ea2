package jpegcodec

// extend decodes a signed-magnitude VLC value: r is the raw s-bit pattern
// read from the stream, and the result is r itself if r is in the upper
// half of the s-bit range, or r - (2^s - 1) otherwise. s == 0 always yields
// 0. Both halves of the round trip (here and unextend in the encoder) must
// agree on the 2^(s-1) threshold.
func extend(r uint32, s int) int32 {
	if s == 0 {
		return 0
	}
	vt := int32(1) << uint(s-1)
	v := int32(r)
	if v < vt {
		return v - (int32(1)<<uint(s) - 1)
	}
	return v
}

// bitsize returns the number of bits needed to represent |v|, i.e. the
// size field the encoder writes alongside a DC diff or AC coefficient.
// bitsize(0) == 0.
func bitsize(v int32) int {
	if v < 0 {
		v = -v
	}
	n := 0
	for v > 0 {
		n++
		v >>= 1
	}
	return n
}

// unextend is the encoder-side inverse of extend: given a value and its
// bit size s, returns the s-bit pattern to emit after the Huffman code.
func unextend(v int32, s int) uint32 {
	if v >= 0 {
		return uint32(v)
	}
	return uint32(v + (int32(1)<<uint(s) - 1))
}

// roundHalfAwayFromZero rounds a float to the nearest integer, breaking
// ties away from zero (JPEG quantization rounding, not banker's rounding).
func roundHalfAwayFromZero(v float64) int32 {
	if v >= 0 {
		return int32(v + 0.5)
	}
	return -int32(-v + 0.5)
}
