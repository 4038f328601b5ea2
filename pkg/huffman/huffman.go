// Package huffman builds JPEG canonical Huffman decode trees from a BITS
// table and a flat symbol list, and derives the inverse symbol->(code,
// length) table the scan encoder needs.
//
// The tree is an arena of indexed nodes rather than nested heterogeneous
// lists (the shape the original Python source uses): each node is either an
// internal node with two child indices or a leaf carrying a symbol byte.
package huffman

import (
	"fmt"
	"sort"

	"dctdm/pkg/bitio"
	"dctdm/pkg/dctdmerr"
)

const noChild = -1

type node struct {
	leaf   bool
	symbol byte
	child0 int32
	child1 int32
}

// Code is a canonical Huffman code: the low Len bits of Bits, MSB-first.
type Code struct {
	Bits uint16
	Len  uint8
}

// Table is a built Huffman decode tree plus its inverse encode table.
type Table struct {
	nodes   []node
	inverse map[byte]Code
}

// Build constructs a canonical Huffman tree from the 16-element BITS array
// (count of codes of each length 1..16) and the symbols in canonical order.
// Insertion is left-first at each depth: unused leaf slots are filled
// left-to-right before the tree descends to the next depth, matching the
// DHT marker's canonical code assignment.
func Build(bits [16]byte, symbols []byte) (*Table, error) {
	t := &Table{inverse: make(map[byte]Code, len(symbols))}
	t.nodes = append(t.nodes, node{child0: noChild, child1: noChild}) // root

	var total int
	for _, c := range bits {
		total += int(c)
	}
	if total != len(symbols) {
		return nil, fmt.Errorf("huffman: BITS table declares %d symbols, got %d", total, len(symbols))
	}

	pos := 0
	code := uint32(0)
	for length := 1; length <= 16; length++ {
		count := int(bits[length-1])
		for i := 0; i < count; i++ {
			sym := symbols[pos]
			pos++
			if err := t.insert(code, length, sym); err != nil {
				return nil, err
			}
			code++
		}
		code <<= 1
	}

	t.buildInverse()
	return t, nil
}

// insert places sym at the tree position reached by the Len-bit code,
// MSB-first, creating internal nodes on demand.
func (t *Table) insert(code uint32, length int, sym byte) error {
	cur := int32(0)
	for depth := 0; depth < length; depth++ {
		bit := (code >> uint(length-1-depth)) & 1
		n := &t.nodes[cur]
		if n.leaf {
			return fmt.Errorf("huffman: code collides with existing leaf")
		}
		var child *int32
		if bit == 0 {
			child = &n.child0
		} else {
			child = &n.child1
		}
		if *child == noChild {
			t.nodes = append(t.nodes, node{child0: noChild, child1: noChild})
			next := int32(len(t.nodes) - 1)
			// append may have moved the arena, so re-address the parent.
			if bit == 0 {
				t.nodes[cur].child0 = next
			} else {
				t.nodes[cur].child1 = next
			}
			cur = next
			continue
		}
		cur = *child
	}
	leaf := &t.nodes[cur]
	if leaf.child0 != noChild || leaf.child1 != noChild {
		return fmt.Errorf("huffman: leaf position already has children")
	}
	leaf.leaf = true
	leaf.symbol = sym
	return nil
}

func (t *Table) buildInverse() {
	var walk func(idx int32, code uint16, length uint8)
	walk = func(idx int32, code uint16, length uint8) {
		n := t.nodes[idx]
		if n.leaf {
			t.inverse[n.symbol] = Code{Bits: code, Len: length}
			return
		}
		if n.child0 != noChild {
			walk(n.child0, code<<1, length+1)
		}
		if n.child1 != noChild {
			walk(n.child1, code<<1|1, length+1)
		}
	}
	if len(t.nodes) > 0 {
		walk(0, 0, 0)
	}
}

// Decode descends the tree bit by bit from r until it reaches a leaf,
// returning the decoded symbol.
func (t *Table) Decode(r *bitio.Reader) (byte, error) {
	cur := int32(0)
	for {
		n := t.nodes[cur]
		if n.leaf {
			return n.symbol, nil
		}
		bit, err := r.ReadBit()
		if err != nil {
			return 0, dctdmerr.Wrap(dctdmerr.MalformedStream, "huffman.Decode", "%w", err)
		}
		var next int32
		if bit == 0 {
			next = n.child0
		} else {
			next = n.child1
		}
		if next == noChild {
			return 0, dctdmerr.New(dctdmerr.MalformedStream, "huffman.Decode",
				fmt.Errorf("traversed to a nonexistent child"))
		}
		cur = next
	}
}

// Code returns the canonical (bits, length) for symbol, as used by the
// scan encoder.
func (t *Table) Code(symbol byte) (Code, bool) {
	c, ok := t.inverse[symbol]
	return c, ok
}

// Export derives the BITS-table and symbol list a DHT marker needs to
// reproduce this exact tree: BITS[length-1] is the count of codes of that
// length, and symbols lists each length's symbols in ascending code order,
// which for a canonical code is the same order Build originally assigned
// them in.
func (t *Table) Export() (bits [16]byte, symbols []byte) {
	byLength := make(map[uint8][]byte)
	for sym, c := range t.inverse {
		byLength[c.Len] = append(byLength[c.Len], sym)
	}
	for length := uint8(1); length <= 16; length++ {
		syms := byLength[length]
		sort.Slice(syms, func(i, j int) bool {
			ci, _ := t.Code(syms[i])
			cj, _ := t.Code(syms[j])
			return ci.Bits < cj.Bits
		})
		bits[length-1] = byte(len(syms))
		symbols = append(symbols, syms...)
	}
	return bits, symbols
}
