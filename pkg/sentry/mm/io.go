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
	"sync"
	"time"

	"gvisor.dev/uvm/pkg/context"
	"gvisor.dev/uvm/pkg/hostarch"
	"gvisor.dev/uvm/pkg/log"
	"gvisor.dev/uvm/pkg/ring0/pagetables"
	"gvisor.dev/uvm/pkg/safemem"
	"gvisor.dev/uvm/pkg/sentry/pgalloc"
)

// The kernel never dereferences user addresses. Every copy to or from user
// memory first translates the whole user range, page by page, into internal
// mappings of the frames backing it (a safemem.BlockSeq), and only then
// copies. Adjacent user pages are usually not adjacent in physical memory, so
// the sequence holds one Block per page touched.

// IOOpts contains options applicable to user memory I/O.
type IOOpts struct {
	// If IgnorePermissions is true, application-defined memory protections
	// set by mmap(2) are ignored: any mapped page may be read or written.
	IgnorePermissions bool
}

// faultLogger reports translation faults. A task looping over a bad pointer
// must not flood the log.
var faultLogger = sync.OnceValue(func() log.Logger {
	return log.RateLimitedLoggerBurst(log.Log(), time.Second, 8)
})

// TranslateBuffer returns internal mappings of the frames backing the user
// range [addr, addr+length) of the address space described by pt. The
// returned sequence has one Block per page touched, in address order: the
// first and last Blocks are clipped to the range and interior Blocks cover
// whole pages.
//
// If any page of the range is unmapped, TranslateBuffer returns
// ErrUnmappedAccess. Unless opts.IgnorePermissions is set, every page must
// also be user-accessible and grant at, else ErrAccessViolation.
//
// The Blocks remain valid only while the pages stay mapped; callers must
// prevent concurrent unmapping.
func TranslateBuffer(pt *pagetables.PageTables, mf *pgalloc.MemoryFile, addr hostarch.Addr, length uint64, at hostarch.AccessType, opts IOOpts) (safemem.BlockSeq, error) {
	if length == 0 {
		return safemem.BlockSeq{}, nil
	}
	ar, ok := addr.ToRange(length)
	if !ok || ar.End > hostarch.MaxUserAddress {
		return safemem.BlockSeq{}, ErrUnmappedAccess
	}

	blocks := make([]safemem.Block, 0, ar.NumPages())
	for start := ar.Start; start < ar.End; {
		pte, ok := pt.Translate(start.PageNumber())
		if !ok {
			faultLogger().Debugf("Unmapped user access at %#x in %v", start, ar)
			return safemem.BlockSeq{}, ErrUnmappedAccess
		}
		if !opts.IgnorePermissions {
			if po := pte.Opts(); !po.User || !po.AccessType.SupersetOf(at) {
				faultLogger().Debugf("%v access at %#x in %v denied by %v", at, start, ar, po)
				return safemem.BlockSeq{}, ErrAccessViolation
			}
		}
		end := start.RoundDown() + hostarch.PageSize
		if end > ar.End {
			end = ar.End
		}
		b := mf.MapInternal(pgalloc.FrameNumber(pte.Frame()))
		blocks = append(blocks, b.DropFirst64(start.PageOffset()).TakeFirst64(uint64(end-start)))
		start = end
	}
	return safemem.BlockSeqFromSlice(blocks), nil
}

// withInternalMappings translates [addr, addr+length) and calls f with the
// result while holding mm.mappingMu, so that the frames cannot be freed
// during the copy.
func (mm *MemoryManager) withInternalMappings(ctx context.Context, addr hostarch.Addr, length uint64, at hostarch.AccessType, opts IOOpts, f func(safemem.BlockSeq) (uint64, error)) (uint64, error) {
	mm.mappingMu.RLock()
	defer mm.mappingMu.RUnlock()
	ims, err := TranslateBuffer(mm.pt, mm.mf, addr, length, at, opts)
	if err != nil {
		ctx.Debugf("MM I/O error at %#x+%d: %v", addr, length, err)
		return 0, err
	}
	return f(ims)
}

// CopyOut copies src to the user range starting at addr. Either all of src
// is copied or, if the range cannot be written, nothing is.
func (mm *MemoryManager) CopyOut(ctx context.Context, addr hostarch.Addr, src []byte, opts IOOpts) (int, error) {
	if len(src) == 0 {
		return 0, nil
	}
	n, err := mm.withInternalMappings(ctx, addr, uint64(len(src)), hostarch.Write, opts, func(ims safemem.BlockSeq) (uint64, error) {
		return safemem.CopySeq(ims, safemem.BlockSeqOf(safemem.BlockFromSafeSlice(src)))
	})
	return int(n), err
}

// CopyIn copies the user range starting at addr into dst.
func (mm *MemoryManager) CopyIn(ctx context.Context, addr hostarch.Addr, dst []byte, opts IOOpts) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	n, err := mm.withInternalMappings(ctx, addr, uint64(len(dst)), hostarch.Read, opts, func(ims safemem.BlockSeq) (uint64, error) {
		return safemem.CopySeq(safemem.BlockSeqOf(safemem.BlockFromSafeSlice(dst)), ims)
	})
	return int(n), err
}

// ZeroOut zeroes toZero bytes of user memory starting at addr.
func (mm *MemoryManager) ZeroOut(ctx context.Context, addr hostarch.Addr, toZero uint64, opts IOOpts) (uint64, error) {
	if toZero == 0 {
		return 0, nil
	}
	return mm.withInternalMappings(ctx, addr, toZero, hostarch.Write, opts, safemem.ZeroSeq)
}
