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

package kernel

import (
	"gvisor.dev/uvm/pkg/abi/linux"
	"gvisor.dev/uvm/pkg/errors/linuxerr"
	"gvisor.dev/uvm/pkg/sentry/arch"
)

// failureReturn is the value returned to user mode by every failed syscall.
// The reason is logged, not reported.
const failureReturn = ^uintptr(0)

// Syscall handles the syscall described by t's registers, as after the task
// trapped on ecall: the number and arguments are read from the registers,
// the result is stored back and the instruction pointer moved past the
// ecall. It returns true if the task exited.
//
// Preconditions: The caller must be running on the task goroutine.
func (t *Task) Syscall() (exited bool) {
	if t.Exited() {
		t.Warningf("Syscall on exited task")
		return true
	}
	sysno := t.arch.SyscallNo()
	args := t.arch.SyscallArgs()

	rval, ctrl, err := t.executeSyscall(sysno, args)
	if err != nil {
		rval = failureReturn
	}
	if ctrl != nil && ctrl.exit {
		t.doExit()
		return true
	}
	if ctrl == nil || !ctrl.ignoreReturn {
		t.arch.SetReturn(rval)
	}
	t.arch.SkipSyscallInstruction()
	return false
}

// Invoke loads a syscall into t's registers and handles it. It returns the
// value user mode would see in a0, and whether the task exited.
//
// Preconditions: The caller must be running on the task goroutine.
func (t *Task) Invoke(sysno uintptr, args arch.SyscallArguments) (int64, bool) {
	t.arch.SetSyscall(sysno, args)
	if t.Syscall() {
		return 0, true
	}
	return int64(t.arch.Return()), false
}

// executeSyscall counts and executes the syscall.
func (t *Task) executeSyscall(sysno uintptr, args arch.SyscallArguments) (rval uintptr, ctrl *SyscallControl, err error) {
	t.mu.Lock()
	t.startLocked()
	if sysno < linux.MaxSyscallNum {
		t.syscallTimes[sysno]++
	}
	t.mu.Unlock()

	s := t.k.syscalls
	strace := s.FeatureEnable.Word(sysno)&StraceEnableLog != 0
	if strace {
		t.Debugf("%s(%v, %v, %v)", s.LookupName(sysno), args[0], args[1], args[2])
	}

	if fn := s.Lookup(sysno); fn != nil {
		rval, ctrl, err = fn(t, args)
	} else if s.Missing != nil {
		rval, err = s.Missing(t, sysno, args)
	} else {
		err = linuxerr.ENOSYS
	}

	if err != nil {
		t.Debugf("%s failed: %v (errno %d)", s.LookupName(sysno), err, linuxerr.ErrnoOf(err))
	} else if strace {
		t.Debugf("%s = %#x", s.LookupName(sysno), rval)
	}
	return rval, ctrl, err
}
