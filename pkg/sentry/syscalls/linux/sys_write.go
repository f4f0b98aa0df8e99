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
	"gvisor.dev/uvm/pkg/abi/linux"
	"gvisor.dev/uvm/pkg/errors/linuxerr"
	"gvisor.dev/uvm/pkg/sentry/arch"
	"gvisor.dev/uvm/pkg/sentry/kernel"
)

// MAX_RW_COUNT is the maximum size in bytes of a single write.
const MAX_RW_COUNT = 1 << 20

// Write implements the write syscall: write(fd, buf, len). Only standard
// output is supported; it is the kernel console. It returns the number of
// bytes written.
func Write(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	fd := args[0].Int()
	addr := args[1].Pointer()
	size := args[2].SizeT()

	if fd != linux.STDOUT_FILENO {
		return 0, nil, linuxerr.EBADF
	}

	// Check that the size is legitimate.
	si := int(size)
	if si < 0 {
		return 0, nil, linuxerr.EINVAL
	}
	if si > MAX_RW_COUNT {
		si = MAX_RW_COUNT
	}
	if si == 0 {
		return 0, nil, nil
	}

	buf := make([]byte, si)
	if _, err := t.CopyInBytes(addr, buf); err != nil {
		return 0, nil, err
	}
	n, err := t.Kernel().WriteConsole(buf)
	if n == 0 && err != nil {
		return 0, nil, linuxerr.EIO
	}
	return uintptr(n), nil, nil
}
