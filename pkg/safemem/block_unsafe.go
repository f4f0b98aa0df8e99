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

// Package safemem provides the Block and BlockSeq types, which describe
// windows of physical memory that the kernel reads and writes on behalf of a
// user address space.
package safemem

import (
	"fmt"
	"unsafe"
)

// A Block is a range of contiguous bytes, similar to []byte but with the
// following differences:
//
//   - The memory represented by a Block may be backed by the physical memory
//     arena rather than the Go heap.
//
//   - Block is a value type, so Blocks may be compared directly.
//
// Blocks are immutable and may be copied by value. The zero value of Block
// represents an empty range.
type Block struct {
	start  unsafe.Pointer
	length int
}

// BlockFromSafeSlice returns a Block equivalent to slice.
func BlockFromSafeSlice(slice []byte) Block {
	if len(slice) == 0 {
		return Block{}
	}
	return Block{
		start:  unsafe.Pointer(&slice[0]),
		length: len(slice),
	}
}

// DropFirst returns a Block equivalent to b, but with the first n bytes
// omitted. It is analogous to the [n:] operation on a slice, except that if n
// > b.Len(), DropFirst returns an empty Block instead of panicking.
//
// Preconditions: n >= 0.
func (b Block) DropFirst(n int) Block {
	if n < 0 {
		panic(fmt.Sprintf("invalid n: %d", n))
	}
	return b.DropFirst64(uint64(n))
}

// DropFirst64 is equivalent to DropFirst but takes a uint64.
func (b Block) DropFirst64(n uint64) Block {
	if n >= uint64(b.length) {
		return Block{}
	}
	return Block{
		start:  unsafe.Add(b.start, n),
		length: b.length - int(n),
	}
}

// TakeFirst returns a Block equivalent to the first n bytes of b. It is
// analogous to the [:n] operation on a slice, except that if n > b.Len(),
// TakeFirst returns a copy of b instead of panicking.
//
// Preconditions: n >= 0.
func (b Block) TakeFirst(n int) Block {
	if n < 0 {
		panic(fmt.Sprintf("invalid n: %d", n))
	}
	return b.TakeFirst64(uint64(n))
}

// TakeFirst64 is equivalent to TakeFirst but takes a uint64.
func (b Block) TakeFirst64(n uint64) Block {
	if n == 0 {
		return Block{}
	}
	if n >= uint64(b.length) {
		return b
	}
	return Block{
		start:  b.start,
		length: int(n),
	}
}

// ToSlice returns a []byte equivalent to b.
func (b Block) ToSlice() []byte {
	if b.length == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(b.start), b.length)
}

// Addr returns b's start address as a uintptr. It returns uintptr instead of
// unsafe.Pointer so that code using safemem cannot obtain unsafe.Pointers
// without importing the unsafe package explicitly.
//
// Note that a uintptr is not recognized as a pointer by the garbage collector,
// such that if there are no uses of b after a call to b.Addr() and the address
// is to Go-managed memory, the returned uintptr does not prevent garbage
// collection of the pointee.
func (b Block) Addr() uintptr {
	return uintptr(b.start)
}

// Len returns b's length in bytes.
func (b Block) Len() int {
	return b.length
}

// IsEmpty returns true if b has length 0.
func (b Block) IsEmpty() bool {
	return b.length == 0
}

// String implements fmt.Stringer.String.
func (b Block) String() string {
	if uintptr(b.start) == 0 && b.length == 0 {
		return "<nil>"
	}
	return fmt.Sprintf("[%#x-%#x)", uintptr(b.start), uintptr(b.start)+uintptr(b.length))
}

// Copy copies src.Len() or dst.Len() bytes, whichever is less, from src
// to dst and returns the number of bytes copied.
func Copy(dst, src Block) (int, error) {
	return copy(dst.ToSlice(), src.ToSlice()), nil
}

// Zero sets all bytes in dst to 0 and returns the number of bytes zeroed.
func Zero(dst Block) (int, error) {
	clear(dst.ToSlice())
	return dst.length, nil
}
