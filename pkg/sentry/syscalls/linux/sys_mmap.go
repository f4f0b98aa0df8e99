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

package linux

import (
	"gvisor.dev/uvm/pkg/sentry/arch"
	"gvisor.dev/uvm/pkg/sentry/kernel"
)

// Mmap implements the mmap syscall: mmap(start, len, prot). The mapping is
// anonymous and populated immediately. It returns 0 on success.
func Mmap(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	addr := args[0].Pointer()
	length := args[1].Uint64()
	prot := args[2].Uint64()

	if err := t.MemoryManager().MMap(t, addr, length, prot); err != nil {
		return 0, nil, err
	}
	return 0, nil, nil
}

// Munmap implements the munmap syscall: munmap(start, len).
func Munmap(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	addr := args[0].Pointer()
	length := args[1].Uint64()

	return 0, nil, t.MemoryManager().MUnmap(t, addr, length)
}

// Sbrk implements the sbrk syscall: sbrk(delta). It returns the break before
// the change.
func Sbrk(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	delta := int64(args[0].Int())

	old, err := t.MemoryManager().Sbrk(t, delta)
	if err != nil {
		return 0, nil, err
	}
	return uintptr(old), nil, nil
}
