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

// Package syscalls is the interface from the application to the kernel.
// Traditionally, syscalls is the interface that is used by applications to
// request services from the kernel of a operating system. We provide a
// user-mode kernel that needs to handle those requests coming from
// applications. Therefore, we still use the term "syscalls" to denote this
// interface.
//
// Note that the stubs in this package may merely provide the interface, not
// the actual implementation. It just makes writing syscall stubs
// straightforward.
package syscalls

import (
	"sync"
	"time"

	"gvisor.dev/uvm/pkg/errors/linuxerr"
	"gvisor.dev/uvm/pkg/log"
	"gvisor.dev/uvm/pkg/sentry/arch"
	"gvisor.dev/uvm/pkg/sentry/kernel"
)

// Supported returns a syscall that is fully supported.
func Supported(name string, fn kernel.SyscallFn) kernel.Syscall {
	return kernel.Syscall{
		Name: name,
		Fn:   fn,
	}
}

// Error returns a syscall handler that will always give the passed error.
func Error(name string, err error) kernel.Syscall {
	return kernel.Syscall{
		Name: name,
		Fn: func(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
			return 0, nil, err
		},
	}
}

// ErrorWithEvent gives a syscall function that reports an unimplemented
// syscall and returns the passed error.
func ErrorWithEvent(name string, err error) kernel.Syscall {
	return kernel.Syscall{
		Name: name,
		Fn: func(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
			UnimplementedEvent(t, name)
			return 0, nil, err
		},
	}
}

// Missing is the kernel.MissingFn of the syscall tables in this package. It
// reports the syscall and fails with ENOSYS.
func Missing(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
	UnimplementedEvent(t, t.SyscallTable().LookupName(sysno))
	return 0, linuxerr.ENOSYS
}

// unimplementedLogger reports unimplemented syscalls. A task spinning on one
// must not flood the log.
var unimplementedLogger = sync.OnceValue(func() log.Logger {
	return log.BasicRateLimitedLogger(time.Second)
})

// UnimplementedEvent reports that t invoked an unimplemented syscall.
func UnimplementedEvent(t *kernel.Task, name string) {
	unimplementedLogger().Warningf("Unimplemented syscall %s by task %d (%s), %v", name, t.ThreadID(), t.Name(), t.Arch())
}
