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
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gvisor.dev/uvm/pkg/abi/linux"
	"gvisor.dev/uvm/pkg/hostarch"
	"gvisor.dev/uvm/pkg/sentry/contexttest"
)

func blockLens(t *testing.T, mm *MemoryManager, addr hostarch.Addr, length uint64, at hostarch.AccessType, opts IOOpts) ([]int, error) {
	t.Helper()
	mm.mappingMu.RLock()
	defer mm.mappingMu.RUnlock()
	bs, err := TranslateBuffer(mm.pt, mm.mf, addr, length, at, opts)
	if err != nil {
		return nil, err
	}
	var lens []int
	for _, b := range bs.Blocks() {
		lens = append(lens, b.Len())
	}
	if got := bs.NumBytes(); got != length {
		t.Errorf("TranslateBuffer(%#x, %d) covers %d bytes", addr, length, got)
	}
	return lens, nil
}

func TestTranslateBufferSplitsAtPages(t *testing.T) {
	ctx := contexttest.Context(t)
	mm := testMemoryManager(t, ctx)
	if err := mm.MMap(ctx, 0x10000, 4*page, linux.PROT_READ|linux.PROT_WRITE); err != nil {
		t.Fatalf("MMap failed: %v", err)
	}

	for _, test := range []struct {
		name   string
		addr   hostarch.Addr
		length uint64
		want   []int
	}{
		{"empty", 0x10000, 0, nil},
		{"one byte", 0x10123, 1, []int{1}},
		{"whole page", 0x10000, page, []int{page}},
		{"within a page", 0x10100, 0x200, []int{0x200}},
		{"ends at page boundary", 0x10ff0, 0x10, []int{0x10}},
		{"straddles one boundary", 0x10ff0, 0x20, []int{0x10, 0x10}},
		{"three pages", 0x10800, 2 * page, []int{0x800, page, 0x800}},
		{"all four", 0x10000, 4 * page, []int{page, page, page, page}},
	} {
		t.Run(test.name, func(t *testing.T) {
			got, err := blockLens(t, mm, test.addr, test.length, hostarch.Read, IOOpts{})
			if err != nil {
				t.Fatalf("TranslateBuffer failed: %v", err)
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("block lengths mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTranslateBufferTwoPageSplit(t *testing.T) {
	ctx := contexttest.Context(t)
	mm := testMemoryManager(t, ctx)
	if err := mm.MMap(ctx, 0x10000, 2*page, linux.PROT_READ); err != nil {
		t.Fatalf("MMap failed: %v", err)
	}

	const length = 16
	for k := 1; k < length; k++ {
		addr := hostarch.Addr(0x11000 - k)
		got, err := blockLens(t, mm, addr, length, hostarch.Read, IOOpts{})
		if err != nil {
			t.Fatalf("TranslateBuffer(%#x) failed: %v", addr, err)
		}
		if diff := cmp.Diff([]int{k, length - k}, got); diff != "" {
			t.Errorf("TranslateBuffer(%#x) block lengths mismatch (-want +got):\n%s", addr, diff)
		}
	}
}

func TestTranslateBufferFaults(t *testing.T) {
	ctx := contexttest.Context(t)
	mm := testMemoryManager(t, ctx)
	if err := mm.MMap(ctx, 0x10000, page, linux.PROT_READ); err != nil {
		t.Fatalf("MMap failed: %v", err)
	}
	if err := mm.MMap(ctx, 0x11000, page, linux.PROT_READ|linux.PROT_WRITE); err != nil {
		t.Fatalf("MMap failed: %v", err)
	}

	for _, test := range []struct {
		name   string
		addr   hostarch.Addr
		length uint64
		at     hostarch.AccessType
		opts   IOOpts
		want   error
	}{
		{"read mapped", 0x10000, 2 * page, hostarch.Read, IOOpts{}, nil},
		{"unmapped", 0x20000, 8, hostarch.Read, IOOpts{}, ErrUnmappedAccess},
		{"runs off the end", 0x11ff8, 16, hostarch.Read, IOOpts{}, ErrUnmappedAccess},
		{"starts before", 0xfff8, 16, hostarch.Read, IOOpts{}, ErrUnmappedAccess},
		{"null", 0, 8, hostarch.Read, IOOpts{}, ErrUnmappedAccess},
		{"beyond user space", hostarch.MaxUserAddress, 8, hostarch.Read, IOOpts{}, ErrUnmappedAccess},
		{"wraps", 0xfffffffffffffff8, 16, hostarch.Read, IOOpts{}, ErrUnmappedAccess},
		{"write read-only", 0x10ff8, 16, hostarch.Write, IOOpts{}, ErrAccessViolation},
		{"write read-write", 0x11000, 16, hostarch.Write, IOOpts{}, nil},
		{"execute", 0x11000, 16, hostarch.Execute, IOOpts{}, ErrAccessViolation},
		{"write read-only ignoring permissions", 0x10ff8, 16, hostarch.Write, IOOpts{IgnorePermissions: true}, nil},
		{"unmapped ignoring permissions", 0x20000, 8, hostarch.Write, IOOpts{IgnorePermissions: true}, ErrUnmappedAccess},
	} {
		t.Run(test.name, func(t *testing.T) {
			if _, err := blockLens(t, mm, test.addr, test.length, test.at, test.opts); err != test.want {
				t.Errorf("TranslateBuffer got err %v, want %v", err, test.want)
			}
		})
	}
}

func TestCopyRoundTrip(t *testing.T) {
	ctx := contexttest.Context(t)
	mm := testMemoryManager(t, ctx)
	if err := mm.MMap(ctx, 0x10000, 3*page, linux.PROT_READ|linux.PROT_WRITE); err != nil {
		t.Fatalf("MMap failed: %v", err)
	}

	src := make([]byte, page+100)
	for i := range src {
		src[i] = byte(i * 7)
	}
	addr := hostarch.Addr(0x10f00)
	if n, err := mm.CopyOut(ctx, addr, src, IOOpts{}); n != len(src) || err != nil {
		t.Fatalf("CopyOut = (%d, %v), want (%d, nil)", n, err, len(src))
	}
	dst := make([]byte, len(src))
	if n, err := mm.CopyIn(ctx, addr, dst, IOOpts{}); n != len(dst) || err != nil {
		t.Fatalf("CopyIn = (%d, %v), want (%d, nil)", n, err, len(dst))
	}
	if !bytes.Equal(src, dst) {
		t.Errorf("CopyIn returned different bytes than CopyOut wrote")
	}

	// Only the written bytes changed.
	around := make([]byte, 0x100)
	if _, err := mm.CopyIn(ctx, addr-0x100, around, IOOpts{}); err != nil {
		t.Fatalf("CopyIn failed: %v", err)
	}
	if !bytes.Equal(around, make([]byte, len(around))) {
		t.Errorf("bytes before the copy were modified: %x", around)
	}

	if n, err := mm.ZeroOut(ctx, addr+1, uint64(len(src)-2), IOOpts{}); n != uint64(len(src)-2) || err != nil {
		t.Fatalf("ZeroOut = (%d, %v), want (%d, nil)", n, err, len(src)-2)
	}
	if _, err := mm.CopyIn(ctx, addr, dst, IOOpts{}); err != nil {
		t.Fatalf("CopyIn failed: %v", err)
	}
	want := make([]byte, len(src))
	want[0], want[len(want)-1] = src[0], src[len(src)-1]
	if !bytes.Equal(want, dst) {
		t.Errorf("ZeroOut left %x, want %x", dst, want)
	}
}

func TestCopyOutFailureWritesNothing(t *testing.T) {
	ctx := contexttest.Context(t)
	mm := testMemoryManager(t, ctx)
	if err := mm.MMap(ctx, 0x10000, page, linux.PROT_READ|linux.PROT_WRITE); err != nil {
		t.Fatalf("MMap failed: %v", err)
	}
	if err := mm.MMap(ctx, 0x11000, page, linux.PROT_READ); err != nil {
		t.Fatalf("MMap failed: %v", err)
	}

	src := bytes.Repeat([]byte{0xaa}, 32)
	for _, addr := range []hostarch.Addr{0x10ff0, 0xfff0} {
		if n, err := mm.CopyOut(ctx, addr, src, IOOpts{}); n != 0 || err == nil {
			t.Errorf("CopyOut(%#x) = (%d, %v), want failure", addr, n, err)
		}
	}

	got := make([]byte, 2*page)
	if _, err := mm.CopyIn(ctx, 0x10000, got, IOOpts{}); err != nil {
		t.Fatalf("CopyIn failed: %v", err)
	}
	if !bytes.Equal(got, make([]byte, len(got))) {
		t.Errorf("failed CopyOut modified memory")
	}

	// The kernel may write read-only pages on its own behalf.
	if _, err := mm.CopyOut(ctx, 0x10ff0, src, IOOpts{IgnorePermissions: true}); err != nil {
		t.Errorf("CopyOut ignoring permissions failed: %v", err)
	}
}

func TestCopyZeroLength(t *testing.T) {
	ctx := contexttest.Context(t)
	mm := testMemoryManager(t, ctx)
	if n, err := mm.CopyOut(ctx, 0xdead0000, nil, IOOpts{}); n != 0 || err != nil {
		t.Errorf("CopyOut of nothing = (%d, %v), want (0, nil)", n, err)
	}
	if n, err := mm.CopyIn(ctx, 0xdead0000, nil, IOOpts{}); n != 0 || err != nil {
		t.Errorf("CopyIn of nothing = (%d, %v), want (0, nil)", n, err)
	}
}
