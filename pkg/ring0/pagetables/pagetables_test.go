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
	"testing"

	"github.com/google/go-cmp/cmp"
	"gvisor.dev/uvm/pkg/hostarch"
)

type mapping struct {
	VPN   hostarch.PageNumber
	Frame uint64
	Opts  MapOpts
}

func checkMappings(t *testing.T, pt *PageTables, want []mapping) {
	t.Helper()
	var got []mapping
	pt.Visit(func(vpn hostarch.PageNumber, pte PTE) bool {
		got = append(got, mapping{vpn, pte.Frame(), pte.Opts()})
		return true
	})
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mappings mismatch (-want +got):\n%s", diff)
	}
}

var (
	userRW = MapOpts{AccessType: hostarch.ReadWrite, User: true}
	userR  = MapOpts{AccessType: hostarch.Read, User: true}
)

func TestMapAndTranslate(t *testing.T) {
	pt := New(NewRuntimeAllocator())

	if err := pt.Map(0x400, 42, userRW); err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	pte, ok := pt.Translate(0x400)
	if !ok {
		t.Fatalf("Translate(0x400) found nothing")
	}
	if got, want := pte.Frame(), uint64(42); got != want {
		t.Errorf("Frame = %#x, want %#x", got, want)
	}
	if got := pte.Opts(); got != userRW {
		t.Errorf("Opts = %v, want %v", got, userRW)
	}
	if _, ok := pt.Translate(0x401); ok {
		t.Errorf("Translate(0x401) found a mapping")
	}
}

func TestMapAlreadyMapped(t *testing.T) {
	pt := New(NewRuntimeAllocator())

	if err := pt.Map(0x400, 42, userRW); err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	if err := pt.Map(0x400, 47, userR); err != ErrAlreadyMapped {
		t.Errorf("second Map got err %v, want %v", err, ErrAlreadyMapped)
	}
	checkMappings(t, pt, []mapping{{0x400, 42, userRW}})
}

func TestUnmap(t *testing.T) {
	pt := New(NewRuntimeAllocator())

	// Map and unmap one entry.
	if err := pt.Map(0x400, 42, userRW); err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	pte, err := pt.Unmap(0x400)
	if err != nil {
		t.Fatalf("Unmap failed: %v", err)
	}
	if got, want := pte.Frame(), uint64(42); got != want {
		t.Errorf("Unmap returned frame %#x, want %#x", got, want)
	}

	checkMappings(t, pt, nil)

	if _, err := pt.Unmap(0x400); err != ErrNotMapped {
		t.Errorf("second Unmap got err %v, want %v", err, ErrNotMapped)
	}
}

func TestUnmapReleasesTables(t *testing.T) {
	a := NewRuntimeAllocator()
	pt := New(a)

	// Root only.
	if got := a.Live(); got != 1 {
		t.Fatalf("Live = %d after New, want 1", got)
	}
	if err := pt.Map(0x400, 42, userRW); err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	if err := pt.Map(0x401, 43, userRW); err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	if got := a.Live(); got != 3 {
		t.Fatalf("Live = %d after Map, want 3", got)
	}
	if _, err := pt.Unmap(0x400); err != nil {
		t.Fatalf("Unmap failed: %v", err)
	}
	if got := a.Live(); got != 3 {
		t.Errorf("Live = %d with one page still mapped, want 3", got)
	}
	if _, err := pt.Unmap(0x401); err != nil {
		t.Fatalf("Unmap failed: %v", err)
	}
	if got := a.Live(); got != 1 {
		t.Errorf("Live = %d after unmapping everything, want 1", got)
	}
}

func TestReadOnly(t *testing.T) {
	pt := New(NewRuntimeAllocator())

	// Map one entry.
	if err := pt.Map(0x400, 42, userR); err != nil {
		t.Fatalf("Map failed: %v", err)
	}

	checkMappings(t, pt, []mapping{{0x400, 42, userR}})
}

func TestSerialEntries(t *testing.T) {
	pt := New(NewRuntimeAllocator())

	// Map two sequential entries.
	if err := pt.Map(0x400, 42, userRW); err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	if err := pt.Map(0x401, 47, userRW); err != nil {
		t.Fatalf("Map failed: %v", err)
	}

	checkMappings(t, pt, []mapping{
		{0x400, 42, userRW},
		{0x401, 47, userRW},
	})
}

func TestSpanningEntries(t *testing.T) {
	pt := New(NewRuntimeAllocator())

	// Span a pud boundary with two pages.
	const last = (pudSize >> pteShift) - 1
	if err := pt.Map(last, 42, userR); err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	if err := pt.Map(last+1, 43, userR); err != nil {
		t.Fatalf("Map failed: %v", err)
	}

	checkMappings(t, pt, []mapping{
		{last, 42, userR},
		{last + 1, 43, userR},
	})
}

func TestSparseEntries(t *testing.T) {
	a := NewRuntimeAllocator()
	pt := New(a)

	// Map two entries in different puds.
	const far = 1<<hostarch.VPNBits - 1
	if err := pt.Map(0x400, 42, userRW); err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	if err := pt.Map(far, 47, userR); err != nil {
		t.Fatalf("Map failed: %v", err)
	}

	checkMappings(t, pt, []mapping{
		{0x400, 42, userRW},
		{far, 47, userR},
	})

	// One root plus a pmd and a pte table per populated path.
	if got, want := a.Live(), 5; got != want {
		t.Errorf("Live = %d, want %d", got, want)
	}
}

func TestOutOfRange(t *testing.T) {
	pt := New(NewRuntimeAllocator())

	if err := pt.Map(1<<hostarch.VPNBits, 42, userRW); err != ErrOutOfRange {
		t.Errorf("Map beyond the table got err %v, want %v", err, ErrOutOfRange)
	}
	if _, ok := pt.Translate(1 << hostarch.VPNBits); ok {
		t.Errorf("Translate beyond the table found a mapping")
	}
}

func TestVisitStops(t *testing.T) {
	pt := New(NewRuntimeAllocator())
	for vpn := hostarch.PageNumber(0x10); vpn < 0x14; vpn++ {
		if err := pt.Map(vpn, uint64(vpn), userRW); err != nil {
			t.Fatalf("Map(%#x) failed: %v", vpn, err)
		}
	}

	var seen []hostarch.PageNumber
	pt.Visit(func(vpn hostarch.PageNumber, pte PTE) bool {
		seen = append(seen, vpn)
		return len(seen) < 2
	})
	if diff := cmp.Diff([]hostarch.PageNumber{0x10, 0x11}, seen); diff != "" {
		t.Errorf("visited pages mismatch (-want +got):\n%s", diff)
	}
}

func TestRelease(t *testing.T) {
	a := NewRuntimeAllocator()
	pt := New(a)
	for _, vpn := range []hostarch.PageNumber{0x1, 0x400, 0x40000} {
		if err := pt.Map(vpn, 42, userRW); err != nil {
			t.Fatalf("Map(%#x) failed: %v", vpn, err)
		}
	}

	pt.Release()

	checkMappings(t, pt, nil)
	if got := a.Live(); got != 1 {
		t.Errorf("Live = %d after Release, want 1", got)
	}

	// Tables are reusable.
	if err := pt.Map(0x1, 43, userR); err != nil {
		t.Fatalf("Map after Release failed: %v", err)
	}
	checkMappings(t, pt, []mapping{{0x1, 43, userR}})
}

func TestToken(t *testing.T) {
	pt := New(NewRuntimeAllocator())
	tok := pt.Token()
	if got, want := tok>>60, uint64(8); got != want {
		t.Errorf("Token mode = %d, want %d", got, want)
	}
	if tok&(1<<44-1) == 0 {
		t.Errorf("Token %#x carries no root frame", tok)
	}
}

func TestPTEString(t *testing.T) {
	var pte PTE
	if got, want := pte.String(), "invalid"; got != want {
		t.Errorf("String = %q, want %q", got, want)
	}
	pte.Set(0x80001, userRW)
	if got, want := pte.String(), "0x80001 rw-u"; got != want {
		t.Errorf("String = %q, want %q", got, want)
	}
}
