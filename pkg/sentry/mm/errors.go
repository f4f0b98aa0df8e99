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

package mm

import (
	"gvisor.dev/uvm/pkg/abi/linux/errno"
	"gvisor.dev/uvm/pkg/errors"
)

// Errors returned by MemoryManager operations. Each failure has its own
// value, so callers compare by identity; the errno is what user space would
// see if it saw more than -1.
var (
	// ErrUnaligned is returned when an address that must be page-aligned is
	// not.
	ErrUnaligned = errors.New(errno.EINVAL, "address not page-aligned")

	// ErrInvalidPermission is returned when a protection argument has bits
	// outside PROT_READ|PROT_WRITE|PROT_EXEC.
	ErrInvalidPermission = errors.New(errno.EINVAL, "unknown protection bits")

	// ErrEmptyPermission is returned when a protection argument grants no
	// access at all.
	ErrEmptyPermission = errors.New(errno.EINVAL, "mapping grants no access")

	// ErrInvalidRange is returned when a range wraps around or extends past
	// the user address limit.
	ErrInvalidRange = errors.New(errno.EINVAL, "range outside user address space")

	// ErrOverlapExisting is returned by MMap when part of the range is
	// already mapped.
	ErrOverlapExisting = errors.New(errno.EEXIST, "range overlaps an existing mapping")

	// ErrNotMapped is returned by MUnmap when part of the range is not
	// mapped.
	ErrNotMapped = errors.New(errno.EINVAL, "range not mapped")

	// ErrBelowHeapOrigin is returned by Sbrk when the break would move below
	// the start of the heap.
	ErrBelowHeapOrigin = errors.New(errno.EINVAL, "break below heap origin")

	// ErrUnmappedAccess is returned by the buffer translator when a page of
	// the range is not mapped.
	ErrUnmappedAccess = errors.New(errno.EFAULT, "access to unmapped page")

	// ErrAccessViolation is returned by the buffer translator when a page of
	// the range is mapped without the required access.
	ErrAccessViolation = errors.New(errno.EFAULT, "access violates page permissions")
)
