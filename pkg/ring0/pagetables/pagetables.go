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

// Package pagetables provides a three-level (Sv39-style) radix page table
// mapping virtual page numbers to physical frame numbers.
//
// Lower levels are allocated on demand and released as soon as they become
// empty, so a sparse address space costs only the tables on its populated
// paths.
package pagetables

import (
	"gvisor.dev/uvm/pkg/abi/linux/errno"
	"gvisor.dev/uvm/pkg/errors"
	"gvisor.dev/uvm/pkg/hostarch"
)

var (
	// ErrAlreadyMapped is returned by Map when the page already has a valid
	// entry.
	ErrAlreadyMapped = errors.New(errno.EEXIST, "page already mapped")

	// ErrNotMapped is returned by Unmap when the page has no valid entry.
	ErrNotMapped = errors.New(errno.EINVAL, "page not mapped")

	// ErrOutOfRange is returned for page numbers the tables cannot describe.
	ErrOutOfRange = errors.New(errno.EINVAL, "page number out of range")
)

// satpModeSv39 is the translation mode field of a Token.
const satpModeSv39 = 8 << 60

// PageTables is a set of page tables.
//
// PageTables is not safe for concurrent use; the owning address space
// serializes access.
type PageTables struct {
	// Allocator is used to allocate nodes.
	Allocator Allocator

	// root is the pagetable root. It is never freed.
	root *PTEs

	// rootPhysical is the frame number of root.
	rootPhysical uint64
}

// New returns new PageTables.
func New(a Allocator) *PageTables {
	p := new(PageTables)
	p.Init(a)
	return p
}

// Init initializes a set of PageTables.
func (p *PageTables) Init(allocator Allocator) {
	p.Allocator = allocator
	p.root = p.Allocator.NewPTEs()
	p.rootPhysical = p.Allocator.PhysicalFor(p.root)
}

// mapVisitor is used for map.
type mapVisitor struct {
	target uint64 // Input.
	opts   MapOpts
	prev   bool // Output.
}

// visit is used for map.
func (v *mapVisitor) visit(start uintptr, pte *PTE) bool {
	if pte.Valid() {
		v.prev = true
		return false
	}
	pte.Set(v.target, v.opts)
	return true
}

func (*mapVisitor) requiresAlloc() bool { return true }

// Map installs a mapping from vpn to the physical frame pfn.
//
// Returns ErrAlreadyMapped, leaving the existing entry untouched, if vpn is
// already mapped.
//
// Precondition: opts.AccessType must grant some access.
func (p *PageTables) Map(vpn hostarch.PageNumber, pfn uint64, opts MapOpts) error {
	start, err := pageAddr(vpn)
	if err != nil {
		return err
	}
	w := Walker{
		pageTables: p,
		visitor: &mapVisitor{
			target: pfn,
			opts:   opts,
		},
	}
	w.iterateRange(start, start+pteSize)
	if w.visitor.(*mapVisitor).prev {
		return ErrAlreadyMapped
	}
	return nil
}

// unmapVisitor is used for unmap.
type unmapVisitor struct {
	prev  PTE
	count int
}

func (*unmapVisitor) requiresAlloc() bool { return false }

// visit unmaps the given entry.
func (v *unmapVisitor) visit(start uintptr, pte *PTE) bool {
	v.prev = *pte
	pte.Clear()
	v.count++
	return true
}

// Unmap clears the mapping of vpn and returns the cleared entry, so that the
// caller can release the frame it named.
//
// Returns ErrNotMapped if vpn has no valid entry.
func (p *PageTables) Unmap(vpn hostarch.PageNumber) (PTE, error) {
	start, err := pageAddr(vpn)
	if err != nil {
		return 0, err
	}
	w := Walker{
		pageTables: p,
		visitor:    &unmapVisitor{},
	}
	w.iterateRange(start, start+pteSize)
	p.Allocator.Recycle()
	v := w.visitor.(*unmapVisitor)
	if v.count == 0 {
		return 0, ErrNotMapped
	}
	return v.prev, nil
}

// lookupVisitor is used for lookup.
type lookupVisitor struct {
	pte   PTE
	found bool
}

func (*lookupVisitor) requiresAlloc() bool { return false }

// visit matches the given address.
func (v *lookupVisitor) visit(start uintptr, pte *PTE) bool {
	v.pte = *pte
	v.found = true
	return false
}

// Translate returns the entry mapping vpn, if any. It has no side effects.
func (p *PageTables) Translate(vpn hostarch.PageNumber) (PTE, bool) {
	start, err := pageAddr(vpn)
	if err != nil {
		return 0, false
	}
	w := Walker{
		pageTables: p,
		visitor:    &lookupVisitor{},
	}
	w.iterateRange(start, start+pteSize)
	v := w.visitor.(*lookupVisitor)
	return v.pte, v.found
}

// funcVisitor adapts a function to a visitor.
type funcVisitor struct {
	fn func(vpn hostarch.PageNumber, pte PTE) bool
}

func (*funcVisitor) requiresAlloc() bool { return false }

func (v *funcVisitor) visit(start uintptr, pte *PTE) bool {
	return v.fn(hostarch.Addr(start).PageNumber(), *pte)
}

// Visit calls fn for every valid entry in ascending vpn order, stopping early
// if fn returns false. fn must not modify p.
func (p *PageTables) Visit(fn func(vpn hostarch.PageNumber, pte PTE) bool) {
	w := Walker{
		pageTables: p,
		visitor:    &funcVisitor{fn: fn},
	}
	w.iterateRange(0, maxAddr)
}

// clearVisitor clears every entry it visits.
type clearVisitor struct{}

func (clearVisitor) requiresAlloc() bool { return false }

func (clearVisitor) visit(start uintptr, pte *PTE) bool {
	pte.Clear()
	return true
}

// Release clears every entry and returns all lower level tables to the
// Allocator. The tables remain usable and empty afterward.
//
// Frames named by the cleared entries are not freed; callers that own them
// must collect them with Visit first.
func (p *PageTables) Release() {
	w := Walker{
		pageTables: p,
		visitor:    clearVisitor{},
	}
	w.iterateRange(0, maxAddr)
	p.Allocator.Recycle()
}

// Token returns the satp register value that would activate these tables:
// the Sv39 mode in the top bits and the root frame in the low bits.
func (p *PageTables) Token() uint64 {
	return satpModeSv39 | p.rootPhysical
}

// pageAddr returns the first address of vpn.
func pageAddr(vpn hostarch.PageNumber) (uintptr, error) {
	if vpn >= 1<<hostarch.VPNBits {
		return 0, ErrOutOfRange
	}
	return uintptr(vpn.Addr()), nil
}
