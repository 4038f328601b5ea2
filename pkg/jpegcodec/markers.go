package jpegcodec

import (
	"encoding/binary"
	"fmt"

	"dctdm/pkg/dctdmerr"
	"dctdm/pkg/huffman"
)

const (
	markerSOI  = 0xFFD8
	markerEOI  = 0xFFD9
	markerSOF0 = 0xFFC0
	markerDHT  = 0xFFC4
	markerDQT  = 0xFFDB
	markerSOS  = 0xFFDA
	markerDRI  = 0xFFDD
)

// Decode parses a baseline JFIF JPEG and returns the coefficient store: all
// MCU blocks in raster order plus the quantization and Huffman tables they
// were decoded against. Non-baseline profiles (progressive, arithmetic
// coding, non-4:4:4 sampling, restart intervals, non-8-bit precision) are
// rejected with dctdmerr.UnsupportedFormat before a scan is attempted.
func Decode(data []byte) (*Store, error) {
	const op = "jpegcodec.Decode"

	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return nil, dctdmerr.New(dctdmerr.MalformedStream, op, fmt.Errorf("missing SOI marker"))
	}

	store := &Store{
		QuantTables:   make(map[int]*QuantTable),
		HuffmanTables: make(map[int]*huffman.Table),
	}

	pos := 2
	var sofSeen, sosSeen bool

	for {
		if pos+2 > len(data) {
			return nil, dctdmerr.New(dctdmerr.MalformedStream, op, fmt.Errorf("truncated marker at offset %d", pos))
		}
		marker := int(binary.BigEndian.Uint16(data[pos : pos+2]))
		pos += 2

		if marker == markerEOI {
			break
		}

		switch {
		case marker >= 0xFFE0 && marker <= 0xFFEF, marker == 0xFFFE:
			// APPn / COM: length-prefixed, skip.
			n, err := segmentLen(data, pos)
			if err != nil {
				return nil, dctdmerr.New(dctdmerr.MalformedStream, op, err)
			}
			pos += n

		case marker == markerDQT:
			n, seg, err := segment(data, pos)
			if err != nil {
				return nil, dctdmerr.New(dctdmerr.MalformedStream, op, err)
			}
			if err := parseDQT(seg, store); err != nil {
				return nil, dctdmerr.New(dctdmerr.MalformedStream, op, err)
			}
			pos += n

		case marker == markerDHT:
			n, seg, err := segment(data, pos)
			if err != nil {
				return nil, dctdmerr.New(dctdmerr.MalformedStream, op, err)
			}
			if err := parseDHT(seg, store); err != nil {
				return nil, err
			}
			pos += n

		case marker == markerSOF0:
			n, seg, err := segment(data, pos)
			if err != nil {
				return nil, dctdmerr.New(dctdmerr.MalformedStream, op, err)
			}
			if err := parseSOF0(seg, &store.Frame); err != nil {
				return nil, err
			}
			sofSeen = true
			pos += n

		case marker == markerSOS:
			if !sofSeen {
				return nil, dctdmerr.New(dctdmerr.MalformedStream, op, fmt.Errorf("SOS before SOF0"))
			}
			n, seg, err := segment(data, pos)
			if err != nil {
				return nil, dctdmerr.New(dctdmerr.MalformedStream, op, err)
			}
			if err := parseSOS(seg, &store.Frame); err != nil {
				return nil, err
			}
			pos += n

			consumed, err := decodeScan(data[pos:], store)
			if err != nil {
				return nil, err
			}
			pos += consumed
			sosSeen = true

		case marker >= 0xFFC1 && marker <= 0xFFCF && marker != markerDHT:
			return nil, dctdmerr.New(dctdmerr.UnsupportedFormat, op,
				fmt.Errorf("unsupported SOF variant or arithmetic coding, marker 0x%04X", marker))

		case marker == 0xFFCC:
			return nil, dctdmerr.New(dctdmerr.UnsupportedFormat, op, fmt.Errorf("arithmetic coding conditioning not supported"))

		case marker == markerDRI:
			return nil, dctdmerr.New(dctdmerr.UnsupportedFormat, op, fmt.Errorf("restart intervals are not supported"))

		default:
			n, err := segmentLen(data, pos)
			if err != nil {
				return nil, dctdmerr.New(dctdmerr.MalformedStream, op, err)
			}
			pos += n
		}

		if pos >= len(data) {
			break
		}
	}

	if !sofSeen || !sosSeen {
		return nil, dctdmerr.New(dctdmerr.MalformedStream, op, fmt.Errorf("missing SOF0 or SOS segment"))
	}

	return store, nil
}

// segmentLen reads the big-endian 16-bit length (including the length
// field itself) at pos and returns the number of bytes to advance.
func segmentLen(data []byte, pos int) (int, error) {
	if pos+2 > len(data) {
		return 0, fmt.Errorf("truncated segment length at offset %d", pos)
	}
	length := int(binary.BigEndian.Uint16(data[pos : pos+2]))
	if length < 2 || pos+length > len(data) {
		return 0, fmt.Errorf("invalid segment length at offset %d", pos)
	}
	return length, nil
}

// segment returns the segment payload (excluding the 2-byte length field)
// and the number of bytes to advance past the whole segment.
func segment(data []byte, pos int) (int, []byte, error) {
	n, err := segmentLen(data, pos)
	if err != nil {
		return 0, nil, err
	}
	return n, data[pos+2 : pos+n], nil
}

func parseDQT(seg []byte, store *Store) error {
	for off := 0; off < len(seg); {
		pq := seg[off] >> 4
		tq := int(seg[off] & 0x0F)
		off++
		if pq != 0 {
			return fmt.Errorf("only 8-bit quantization tables are supported")
		}
		if off+64 > len(seg) {
			return fmt.Errorf("truncated DQT table %d", tq)
		}
		qt := &QuantTable{ID: tq}
		for zi := 0; zi < 64; zi++ {
			pos := naturalPos[zi]
			qt.Values[pos[0]*8+pos[1]] = seg[off+zi]
		}
		off += 64
		store.QuantTables[tq] = qt
	}
	return nil
}

func parseDHT(seg []byte, store *Store) error {
	const op = "jpegcodec.parseDHT"
	for off := 0; off < len(seg); {
		if off+17 > len(seg) {
			return dctdmerr.New(dctdmerr.MalformedStream, op, fmt.Errorf("truncated DHT header"))
		}
		class := int(seg[off] >> 4)
		id := int(seg[off] & 0x0F)
		off++

		var bits [16]byte
		copy(bits[:], seg[off:off+16])
		off += 16

		total := 0
		for _, c := range bits {
			total += int(c)
		}
		if off+total > len(seg) {
			return dctdmerr.New(dctdmerr.MalformedStream, op, fmt.Errorf("truncated DHT symbol list"))
		}
		symbols := make([]byte, total)
		copy(symbols, seg[off:off+total])
		off += total

		table, err := huffman.Build(bits, symbols)
		if err != nil {
			return dctdmerr.New(dctdmerr.MalformedStream, op, err)
		}
		store.HuffmanTables[huffmanKey(class, id)] = table
	}
	return nil
}

func parseSOF0(seg []byte, frame *Frame) error {
	const op = "jpegcodec.parseSOF0"
	if len(seg) < 6 {
		return dctdmerr.New(dctdmerr.MalformedStream, op, fmt.Errorf("truncated SOF0"))
	}
	precision := seg[0]
	if precision != 8 {
		return dctdmerr.New(dctdmerr.UnsupportedFormat, op, fmt.Errorf("unsupported precision %d", precision))
	}
	frame.Height = int(binary.BigEndian.Uint16(seg[1:3]))
	frame.Width = int(binary.BigEndian.Uint16(seg[3:5]))
	numComp := int(seg[5])
	if numComp != numComponents {
		return dctdmerr.New(dctdmerr.UnsupportedFormat, op, fmt.Errorf("expected 3 components, got %d", numComp))
	}
	if len(seg) < 6+numComp*3 {
		return dctdmerr.New(dctdmerr.MalformedStream, op, fmt.Errorf("truncated SOF0 component list"))
	}
	for i := 0; i < numComp; i++ {
		off := 6 + i*3
		samp := seg[off+1]
		if samp != 0x11 {
			return dctdmerr.New(dctdmerr.UnsupportedFormat, op,
				fmt.Errorf("component %d sampling 0x%02X is not 4:4:4", i, samp))
		}
		frame.Components[i] = ComponentInfo{
			ID:      seg[off],
			HSamp:   1,
			VSamp:   1,
			QuantID: seg[off+2],
		}
	}
	return nil
}

func parseSOS(seg []byte, frame *Frame) error {
	const op = "jpegcodec.parseSOS"
	if len(seg) < 1 {
		return dctdmerr.New(dctdmerr.MalformedStream, op, fmt.Errorf("truncated SOS"))
	}
	numComp := int(seg[0])
	if numComp != numComponents {
		return dctdmerr.New(dctdmerr.UnsupportedFormat, op, fmt.Errorf("expected 3 scan components, got %d", numComp))
	}
	if len(seg) < 1+numComp*2 {
		return dctdmerr.New(dctdmerr.MalformedStream, op, fmt.Errorf("truncated SOS component list"))
	}
	for i := 0; i < numComp; i++ {
		off := 1 + i*2
		id := seg[off]
		tables := seg[off+1]
		for c := range frame.Components {
			if frame.Components[c].ID == id {
				frame.Components[c].DCTable = tables >> 4
				frame.Components[c].ACTable = tables & 0x0F
			}
		}
	}
	return nil
}
