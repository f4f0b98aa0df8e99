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

// Syscall numbers of the RISC-V ABI.
const (
	SYS_WRITE     = 64
	SYS_EXIT      = 93
	SYS_YIELD     = 124
	SYS_GET_TIME  = 169
	SYS_SBRK      = 214
	SYS_MUNMAP    = 215
	SYS_MMAP      = 222
	SYS_TASK_INFO = 410
)

// MaxSyscallNum bounds the syscall numbers whose invocations are counted in
// TaskInfo.SyscallTimes.
const MaxSyscallNum = 500

// STDOUT_FILENO is the only descriptor write(2) accepts.
const STDOUT_FILENO = 1
