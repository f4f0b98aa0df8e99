// Copyright 2026 The gVisor Authors.
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

package hostarch

import "fmt"

// Addr represents a virtual address.
type Addr uintptr

// RoundDown returns the address rounded down to the nearest page boundary.
func (v Addr) RoundDown() Addr {
	return v & ^Addr(PageOffsetMask)
}

// RoundUp returns the address rounded up to the nearest page boundary. ok is
// true iff rounding up did not wrap around.
func (v Addr) RoundUp() (addr Addr, ok bool) {
	addr = Addr(v + PageSize - 1).RoundDown()
	ok = addr >= v
	return
}

// MustRoundUp is equivalent to RoundUp, but panics if rounding up wraps
// around.
func (v Addr) MustRoundUp() Addr {
	addr, ok := v.RoundUp()
	if !ok {
		panic(fmt.Sprintf("hostarch.Addr %#x.RoundUp() wraps", v))
	}
	return addr
}

// IsPageAligned returns true if v is aligned to a page boundary.
func (v Addr) IsPageAligned() bool {
	return v&PageOffsetMask == 0
}

// PageOffset returns the offset of v into the current page.
func (v Addr) PageOffset() uint64 {
	return uint64(v & PageOffsetMask)
}

// PageNumber returns the number of the page containing v.
func (v Addr) PageNumber() PageNumber {
	return PageNumber(v >> PageShift)
}

// AddLength adds the given length to start and returns the result. ok is true
// iff adding the length did not overflow the range of Addr.
//
// Note: This function is usually used to get the end of an address range
// defined by its start address and length. Since the resulting end is
// exclusive, end == 0 is technically valid, and corresponds to a range that
// extends to the end of the address space, but ok will be false. This isn't
// expected to ever come up in practice.
func (v Addr) AddLength(length uint64) (end Addr, ok bool) {
	end = v + Addr(length)
	// The second half of the following check is needed in case uintptr is
	// smaller than 64 bits.
	ok = end >= v && length <= uint64(^Addr(0))
	return
}

// ToRange returns [v, v+length).
func (v Addr) ToRange(length uint64) (AddrRange, bool) {
	end, ok := v.AddLength(length)
	return AddrRange{v, end}, ok
}

// PageNumber is a virtual page number.
type PageNumber uint64

// Addr returns the first address of the page.
func (p PageNumber) Addr() Addr {
	return Addr(p) << PageShift
}

// AddrRange is a range of Addrs.
//
// type AddrRange <generated by go_generics>
type AddrRange struct {
	Start Addr
	End   Addr
}

// WellFormed returns true if ar.Start <= ar.End.
func (ar AddrRange) WellFormed() bool {
	return ar.Start <= ar.End
}

// Length returns the length of the range.
func (ar AddrRange) Length() uint64 {
	return uint64(ar.End - ar.Start)
}

// NumPages returns the number of pages overlapped by the range.
func (ar AddrRange) NumPages() uint64 {
	if ar.Length() == 0 {
		return 0
	}
	return uint64(ar.End.MustRoundUp().PageNumber() - ar.Start.PageNumber())
}

// Contains returns true if ar contains x.
func (ar AddrRange) Contains(x Addr) bool {
	return ar.Start <= x && x < ar.End
}

// Overlaps returns true if ar and ar2 overlap.
func (ar AddrRange) Overlaps(ar2 AddrRange) bool {
	return ar.Start < ar2.End && ar2.Start < ar.End
}

// IsSupersetOf returns true if ar is a superset of ar2; that is, if
// ar.Start <= ar2.Start and ar2.End <= ar.End.
func (ar AddrRange) IsSupersetOf(ar2 AddrRange) bool {
	return ar.Start <= ar2.Start && ar2.End <= ar.End
}

// Intersect returns a range consisting of the intersection between ar and
// ar2. If ar and ar2 do not overlap, Intersect returns a range with
// unspecified bounds, but for which Length() == 0.
func (ar AddrRange) Intersect(ar2 AddrRange) AddrRange {
	if ar.Start < ar2.Start {
		ar.Start = ar2.Start
	}
	if ar.End > ar2.End {
		ar.End = ar2.End
	}
	if ar.End < ar.Start {
		ar.End = ar.Start
	}
	return ar
}

// IsPageAligned returns true if ar.Start.IsPageAligned() and
// ar.End.IsPageAligned().
func (ar AddrRange) IsPageAligned() bool {
	return ar.Start.IsPageAligned() && ar.End.IsPageAligned()
}

// String implements fmt.Stringer.String.
func (ar AddrRange) String() string {
	return fmt.Sprintf("[%#x, %#x)", ar.Start, ar.End)
}

// PageRoundUp returns the range rounded out to whole pages. ok is false if
// rounding the end up wraps around.
func (ar AddrRange) PageRoundUp() (AddrRange, bool) {
	end, ok := ar.End.RoundUp()
	return AddrRange{ar.Start.RoundDown(), end}, ok
}
