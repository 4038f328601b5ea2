package jpegcodec

// zzIndex[row][col] is the zigzag index that natural position (row, col)
// maps to. This is the table the decoder uses to place each decoded
// coefficient into the in-memory block (stored in natural order, per the
// storage convention), and the encoder uses in reverse to linearize a
// block back into zigzag order for entropy coding.
var zzIndex = [8][8]int{
	{0, 1, 5, 6, 14, 15, 27, 28},
	{2, 4, 7, 13, 16, 26, 29, 42},
	{3, 8, 12, 17, 25, 30, 41, 43},
	{9, 11, 18, 24, 31, 40, 44, 53},
	{10, 19, 23, 32, 39, 45, 52, 54},
	{20, 22, 33, 38, 46, 51, 55, 60},
	{21, 34, 37, 47, 50, 56, 59, 61},
	{35, 36, 48, 49, 57, 58, 62, 63},
}

// naturalPos is the inverse of zzIndex: naturalPos[i] gives the (row, col)
// that zigzag index i maps to.
var naturalPos = func() [64][2]int {
	var inv [64][2]int
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			inv[zzIndex[row][col]] = [2]int{row, col}
		}
	}
	return inv
}()
