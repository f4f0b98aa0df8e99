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

package pagetables

import (
	"fmt"

	"gvisor.dev/uvm/pkg/hostarch"
)

// Sv39 geometry: three levels of 512 entries each.
const (
	pteShift = 12
	pmdShift = 21
	pudShift = 30

	pteMask = 0x1ff << pteShift
	pmdMask = 0x1ff << pmdShift
	pudMask = 0x1ff << pudShift

	pteSize = 1 << pteShift
	pmdSize = 1 << pmdShift
	pudSize = 1 << pudShift

	// maxAddr is the exclusive upper bound of addresses the tables can
	// describe.
	maxAddr = 1 << (hostarch.VPNBits + pteShift)

	entriesPerPage = 512
)

// Entry bits.
const (
	present    = 1 << 0
	readable   = 1 << 1
	writable   = 1 << 2
	executable = 1 << 3
	user       = 1 << 4

	ppnShift = 10
	ppnMask  = (1<<44 - 1) << ppnShift
)

// MapOpts are the options for a leaf mapping.
type MapOpts struct {
	// AccessType defines permissions.
	AccessType hostarch.AccessType

	// User indicates the page is accessible from user mode.
	User bool
}

// String implements fmt.Stringer.String.
func (o MapOpts) String() string {
	u := '-'
	if o.User {
		u = 'u'
	}
	return fmt.Sprintf("%s%c", o.AccessType, u)
}

// PTE is a page table entry.
type PTE uint64

// PTEs is a collection of entries.
type PTEs [entriesPerPage]PTE

// Clear clears this PTE.
func (p *PTE) Clear() {
	*p = 0
}

// Valid returns true iff this entry is valid.
func (p *PTE) Valid() bool {
	return *p&present != 0
}

// IsLeaf returns true iff this entry maps a page rather than pointing at the
// next level of the table. Only valid entries are meaningful.
func (p *PTE) IsLeaf() bool {
	return *p&(readable|writable|executable) != 0
}

// Opts returns the PTE options.
//
// These are all options except Valid.
func (p *PTE) Opts() MapOpts {
	return MapOpts{
		AccessType: hostarch.AccessType{
			Read:    *p&readable != 0,
			Write:   *p&writable != 0,
			Execute: *p&executable != 0,
		},
		User: *p&user != 0,
	}
}

// Frame returns the frame number held by the entry.
func (p *PTE) Frame() uint64 {
	return uint64(*p&ppnMask) >> ppnShift
}

// Set sets this PTE value.
//
// A leaf entry must grant at least one of read, write or execute; entries
// with none of these bits point at the next table level.
func (p *PTE) Set(frame uint64, opts MapOpts) {
	if !opts.AccessType.Any() {
		panic(fmt.Sprintf("leaf entry for frame %#x has no access", frame))
	}
	v := PTE(present) | PTE(frame<<ppnShift)&ppnMask
	if opts.AccessType.Read {
		v |= readable
	}
	if opts.AccessType.Write {
		v |= writable
	}
	if opts.AccessType.Execute {
		v |= executable
	}
	if opts.User {
		v |= user
	}
	*p = v
}

// setPageTable points this PTE at the next level table ptes.
func (p *PTE) setPageTable(pt *PageTables, ptes *PTEs) {
	*p = PTE(present) | PTE(pt.Allocator.PhysicalFor(ptes)<<ppnShift)&ppnMask
}

// String implements fmt.Stringer.String.
func (p PTE) String() string {
	if !p.Valid() {
		return "invalid"
	}
	if !p.IsLeaf() {
		return fmt.Sprintf("table@%#x", p.Frame())
	}
	return fmt.Sprintf("%#x %s", p.Frame(), p.Opts())
}
