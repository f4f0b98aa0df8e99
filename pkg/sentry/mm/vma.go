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

package mm

import (
	"fmt"

	"github.com/google/btree"
	"gvisor.dev/uvm/pkg/hostarch"
)

// vmaHintAnon is the maps hint of anonymous mappings.
const vmaHintAnon = "[anon]"

// A vma represents a virtual memory area created by MMap.
type vma struct {
	// ar is the page-aligned range covered by the vma. ar is never empty.
	ar hostarch.AddrRange

	// perms is the access granted to user mode.
	perms hostarch.AccessType

	// hint is the name shown in the maps listing.
	hint string
}

func (v *vma) String() string {
	return fmt.Sprintf("%v %v %s", v.ar, v.perms, v.hint)
}

// VMA is an exported snapshot of a vma.
type VMA struct {
	Range hostarch.AddrRange
	Perms hostarch.AccessType
	Hint  string
}

// vmaSet is the set of vmas of a MemoryManager, ordered by start address.
// Members never overlap.
type vmaSet struct {
	tree *btree.BTreeG[*vma]
}

// vmaDegree is the btree node degree.
const vmaDegree = 8

func vmaLess(a, b *vma) bool {
	return a.ar.Start < b.ar.Start
}

func newVMASet() vmaSet {
	return vmaSet{tree: btree.NewG(vmaDegree, vmaLess)}
}

// pivot returns a key that sorts at addr.
func pivot(addr hostarch.Addr) *vma {
	return &vma{ar: hostarch.AddrRange{Start: addr, End: addr}}
}

// len returns the number of vmas.
func (s *vmaSet) len() int {
	return s.tree.Len()
}

// span returns the total number of bytes covered by vmas.
func (s *vmaSet) span() uint64 {
	var n uint64
	s.tree.Ascend(func(v *vma) bool {
		n += v.ar.Length()
		return true
	})
	return n
}

// forEachOverlapping calls fn, in address order, for each vma that overlaps
// ar. fn must not mutate s.
func (s *vmaSet) forEachOverlapping(ar hostarch.AddrRange, fn func(v *vma) bool) {
	// The vma containing ar.Start, if any, starts at or before it.
	start := ar.Start
	s.tree.DescendLessOrEqual(pivot(ar.Start), func(v *vma) bool {
		if v.ar.End > ar.Start {
			start = v.ar.Start
		}
		return false
	})
	s.tree.AscendRange(pivot(start), pivot(ar.End), func(v *vma) bool {
		if !v.ar.Overlaps(ar) {
			return true
		}
		return fn(v)
	})
}

// overlaps returns true if any vma overlaps ar.
func (s *vmaSet) overlaps(ar hostarch.AddrRange) bool {
	found := false
	s.forEachOverlapping(ar, func(*vma) bool {
		found = true
		return false
	})
	return found
}

// covers returns true if every byte of ar is covered by some vma.
func (s *vmaSet) covers(ar hostarch.AddrRange) bool {
	next := ar.Start
	s.forEachOverlapping(ar, func(v *vma) bool {
		if v.ar.Start > next {
			return false
		}
		next = v.ar.End
		return next < ar.End
	})
	return next >= ar.End
}

// insert adds v.
//
// Preconditions: v does not overlap any vma in s.
func (s *vmaSet) insert(v *vma) {
	if s.overlaps(v.ar) {
		panic(fmt.Sprintf("vma %v overlaps an existing vma", v))
	}
	s.tree.ReplaceOrInsert(v)
}

// remove removes ar from the set, shrinking or splitting vmas that extend
// outside it.
func (s *vmaSet) remove(ar hostarch.AddrRange) {
	var victims []*vma
	s.forEachOverlapping(ar, func(v *vma) bool {
		victims = append(victims, v)
		return true
	})
	for _, v := range victims {
		s.tree.Delete(v)
		if v.ar.Start < ar.Start {
			s.tree.ReplaceOrInsert(&vma{
				ar:    hostarch.AddrRange{Start: v.ar.Start, End: ar.Start},
				perms: v.perms,
				hint:  v.hint,
			})
		}
		if v.ar.End > ar.End {
			s.tree.ReplaceOrInsert(&vma{
				ar:    hostarch.AddrRange{Start: ar.End, End: v.ar.End},
				perms: v.perms,
				hint:  v.hint,
			})
		}
	}
}

// snapshot returns every vma in address order.
func (s *vmaSet) snapshot() []VMA {
	vmas := make([]VMA, 0, s.len())
	s.tree.Ascend(func(v *vma) bool {
		vmas = append(vmas, VMA{Range: v.ar, Perms: v.perms, Hint: v.hint})
		return true
	})
	return vmas
}

// clear removes every vma.
func (s *vmaSet) clear() {
	s.tree.Clear(false)
}
