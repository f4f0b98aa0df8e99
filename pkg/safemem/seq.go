// Copyright 2018 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package safemem

import (
	"bytes"
	"fmt"
)

// A BlockSeq represents a sequence of Blocks, each of which has non-zero
// length.
//
// BlockSeqs are immutable and may be copied by value. The zero value of
// BlockSeq represents an empty sequence.
type BlockSeq struct {
	// blocks is shared between BlockSeqs derived from one another and is
	// never written after construction. Invariant: every Block in blocks
	// is non-empty.
	blocks []Block
}

// BlockSeqOf returns a BlockSeq representing the single Block b.
func BlockSeqOf(b Block) BlockSeq {
	if b.length == 0 {
		return BlockSeq{}
	}
	return BlockSeq{blocks: []Block{b}}
}

// BlockSeqFromSlice returns a BlockSeq representing all Blocks in slice.
// Empty Blocks are skipped.
//
// BlockSeqFromSlice does not retain slice.
func BlockSeqFromSlice(slice []Block) BlockSeq {
	blocks := make([]Block, 0, len(slice))
	for _, b := range slice {
		if b.length != 0 {
			blocks = append(blocks, b)
		}
	}
	if len(blocks) == 0 {
		return BlockSeq{}
	}
	return BlockSeq{blocks: blocks}
}

// IsEmpty returns true if bs contains no Blocks.
//
// Invariants: bs.IsEmpty() == (bs.NumBlocks() == 0) == (bs.NumBytes() == 0).
// (Of these, prefer to use bs.IsEmpty().)
func (bs BlockSeq) IsEmpty() bool {
	return len(bs.blocks) == 0
}

// NumBlocks returns the number of Blocks in bs.
func (bs BlockSeq) NumBlocks() int {
	return len(bs.blocks)
}

// NumBytes returns the sum of Block.Len() for all Blocks in bs.
func (bs BlockSeq) NumBytes() uint64 {
	var n uint64
	for _, b := range bs.blocks {
		n += uint64(b.length)
	}
	return n
}

// Head returns the first Block in bs.
//
// Preconditions: !bs.IsEmpty().
func (bs BlockSeq) Head() Block {
	if bs.IsEmpty() {
		panic("empty BlockSeq")
	}
	return bs.blocks[0]
}

// Tail returns a BlockSeq consisting of all Blocks in bs after the first.
//
// Preconditions: !bs.IsEmpty().
func (bs BlockSeq) Tail() BlockSeq {
	if bs.IsEmpty() {
		panic("empty BlockSeq")
	}
	if len(bs.blocks) == 1 {
		return BlockSeq{}
	}
	return BlockSeq{blocks: bs.blocks[1:]}
}

// Blocks returns the Blocks in bs as a new slice.
func (bs BlockSeq) Blocks() []Block {
	return append([]Block(nil), bs.blocks...)
}

// DropFirst returns a BlockSeq equivalent to bs, but with the first n bytes
// omitted. If n > bs.NumBytes(), DropFirst returns an empty BlockSeq.
//
// Preconditions: n >= 0.
func (bs BlockSeq) DropFirst(n int) BlockSeq {
	if n < 0 {
		panic(fmt.Sprintf("invalid n: %d", n))
	}
	return bs.DropFirst64(uint64(n))
}

// DropFirst64 is equivalent to DropFirst but takes an uint64.
func (bs BlockSeq) DropFirst64(n uint64) BlockSeq {
	blocks := bs.blocks
	for len(blocks) != 0 && n >= uint64(blocks[0].length) {
		n -= uint64(blocks[0].length)
		blocks = blocks[1:]
	}
	if len(blocks) == 0 {
		return BlockSeq{}
	}
	if n == 0 {
		return BlockSeq{blocks: blocks}
	}
	out := make([]Block, len(blocks))
	copy(out, blocks)
	out[0] = out[0].DropFirst64(n)
	return BlockSeq{blocks: out}
}

// TakeFirst returns a BlockSeq equivalent to the first n bytes of bs. If n >
// bs.NumBytes(), TakeFirst returns a BlockSeq equivalent to bs.
//
// Preconditions: n >= 0.
func (bs BlockSeq) TakeFirst(n int) BlockSeq {
	if n < 0 {
		panic(fmt.Sprintf("invalid n: %d", n))
	}
	return bs.TakeFirst64(uint64(n))
}

// TakeFirst64 is equivalent to TakeFirst but takes a uint64.
func (bs BlockSeq) TakeFirst64(n uint64) BlockSeq {
	var out []Block
	for _, b := range bs.blocks {
		if n == 0 {
			break
		}
		b = b.TakeFirst64(n)
		n -= uint64(b.length)
		out = append(out, b)
	}
	if len(out) == 0 {
		return BlockSeq{}
	}
	return BlockSeq{blocks: out}
}

// String implements fmt.Stringer.String.
func (bs BlockSeq) String() string {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, b := range bs.blocks {
		if i != 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(b.String())
	}
	buf.WriteByte(']')
	return buf.String()
}

// CopySeq copies srcs.NumBytes() or dsts.NumBytes() bytes, whichever is less,
// from srcs to dsts and returns the number of bytes copied. Blocks are
// consumed in order, so a source range is scattered across destination
// Blocks exactly as a contiguous copy would lay it out.
func CopySeq(dsts, srcs BlockSeq) (uint64, error) {
	var done uint64
	for !dsts.IsEmpty() && !srcs.IsEmpty() {
		dst := dsts.Head()
		src := srcs.Head()
		n, err := Copy(dst, src)
		done += uint64(n)
		if err != nil {
			return done, err
		}
		dsts = dsts.DropFirst(n)
		srcs = srcs.DropFirst(n)
	}
	return done, nil
}

// ZeroSeq sets all bytes in dsts to 0 and returns the number of bytes zeroed.
func ZeroSeq(dsts BlockSeq) (uint64, error) {
	var done uint64
	for !dsts.IsEmpty() {
		n, err := Zero(dsts.Head())
		done += uint64(n)
		if err != nil {
			return done, err
		}
		dsts = dsts.Tail()
	}
	return done, nil
}
