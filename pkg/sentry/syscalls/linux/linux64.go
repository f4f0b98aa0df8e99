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

// Package linux provides the syscall table of the RISC-V teaching ABI.
package linux

import (
	"gvisor.dev/uvm/pkg/abi/linux"
	"gvisor.dev/uvm/pkg/sentry/arch"
	"gvisor.dev/uvm/pkg/sentry/kernel"
	"gvisor.dev/uvm/pkg/sentry/syscalls"
)

// RISCV64 is the table of supported syscalls, keyed by the number a task
// loads into a7 before ecall. Numbers not in the table fail with ENOSYS.
var RISCV64 = &kernel.SyscallTable{
	Arch: arch.RISCV64,
	Table: map[uintptr]kernel.Syscall{
		linux.SYS_WRITE:     syscalls.Supported("write", Write),
		linux.SYS_EXIT:      syscalls.Supported("exit", Exit),
		linux.SYS_YIELD:     syscalls.Supported("sched_yield", SchedYield),
		linux.SYS_GET_TIME:  syscalls.Supported("get_time", GetTime),
		linux.SYS_SBRK:      syscalls.Supported("sbrk", Sbrk),
		linux.SYS_MUNMAP:    syscalls.Supported("munmap", Munmap),
		linux.SYS_MMAP:      syscalls.Supported("mmap", Mmap),
		linux.SYS_TASK_INFO: syscalls.Supported("task_info", TaskInfo),
	},
	Missing: syscalls.Missing,
}

func init() {
	kernel.RegisterSyscallTable(RISCV64)
}
