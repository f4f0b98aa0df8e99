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
	"sync"
	"time"

	"gvisor.dev/uvm/pkg/abi/linux"
	"gvisor.dev/uvm/pkg/hostarch"
	"gvisor.dev/uvm/pkg/marshal"
	"gvisor.dev/uvm/pkg/sentry/arch"
	"gvisor.dev/uvm/pkg/sentry/ktime"
	"gvisor.dev/uvm/pkg/sentry/mm"
	"gvisor.dev/uvm/pkg/sentry/pgalloc"
)

// ThreadID is a task ID.
type ThreadID int32

// copyScratchBufferLen is large enough for every record copied by the
// syscalls in this kernel.
const copyScratchBufferLen = linux.SizeOfTaskInfo

// Task represents a thread of execution in the untrusted app. It
// includes registers and any thread-specific state that you would
// normally expect.
//
// Each task is driven by a single goroutine, the task goroutine. Methods
// documented as such may only be called from it.
type Task struct {
	// k is the Kernel that this task belongs to. k is immutable.
	k *Kernel

	// tid is the task's ID. tid is immutable.
	tid ThreadID

	// name is the task's name. name is immutable.
	name string

	// logPrefix is prepended to messages logged on the task's behalf.
	// logPrefix is immutable.
	logPrefix string

	// image is the task's address space. image is immutable; its contents
	// are released when the task exits.
	image *mm.MemoryManager

	// arch is the task's register state.
	//
	// arch is exclusive to the task goroutine.
	arch *arch.Context64

	// copyScratchBuffer is a buffer available to CopyIn/CopyOut
	// implementations that require an intermediate buffer to copy data
	// into/out of. It prevents these buffers from being allocated/zeroed in
	// each syscall and eventually garbage collected.
	//
	// copyScratchBuffer is exclusive to the task goroutine.
	copyScratchBuffer [copyScratchBufferLen]byte

	// mu protects the fields below.
	mu sync.Mutex

	// status is the task's position in its life cycle.
	status linux.TaskStatus

	// syscallTimes counts the syscalls invoked by the task, indexed by
	// syscall number. Numbers at or above linux.MaxSyscallNum are not
	// counted.
	syscallTimes [linux.MaxSyscallNum]uint32

	// started is set once the task has been scheduled.
	started bool

	// startTime is the time the task was first scheduled. It is valid only
	// if started is set.
	startTime ktime.Time

	// exitCode is the code passed to exit.
	exitCode int32

	// yieldCount is the number of times the task has yielded.
	yieldCount uint64
}

// CopyScratchBuffer returns a scratch buffer to be used in CopyIn/CopyOut
// functions. It must only be used within those functions and can only be used
// by the task goroutine; it exists to improve performance and thus
// intentionally lacks any synchronization.
//
// Callers should pass a constant value as an argument if possible, which will
// allow the compiler to inline and optimize out the if statement below.
func (t *Task) CopyScratchBuffer(size int) []byte {
	if size > copyScratchBufferLen {
		return make([]byte, size)
	}
	return t.copyScratchBuffer[:size]
}

// CopyOutBytes is a fast version of CopyOut if the caller can serialize the
// data without reflection and pass in a byte slice.
//
// This Task's address space must be active.
func (t *Task) CopyOutBytes(addr hostarch.Addr, src []byte) (int, error) {
	return t.image.CopyOut(t, addr, src, mm.IOOpts{})
}

// CopyInBytes is a fast version of CopyIn if the caller can serialize the
// data without reflection and pass in a byte slice.
//
// This Task's address space must be active.
func (t *Task) CopyInBytes(addr hostarch.Addr, dst []byte) (int, error) {
	return t.image.CopyIn(t, addr, dst, mm.IOOpts{})
}

var _ marshal.CopyContext = (*Task)(nil)

// Kernel returns the Kernel containing t.
func (t *Task) Kernel() *Kernel {
	return t.k
}

// ThreadID returns t's ID.
func (t *Task) ThreadID() ThreadID {
	return t.tid
}

// Name returns t's name.
func (t *Task) Name() string {
	return t.name
}

// MemoryManager returns t's address space.
func (t *Task) MemoryManager() *mm.MemoryManager {
	return t.image
}

// Arch returns t's register state.
//
// Preconditions: The caller must be running on the task goroutine.
func (t *Task) Arch() *arch.Context64 {
	return t.arch
}

// SyscallTable returns t's syscall table.
func (t *Task) SyscallTable() *SyscallTable {
	return t.k.syscalls
}

// Status returns t's position in its life cycle.
func (t *Task) Status() linux.TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// ExitCode returns the code t passed to exit. It is meaningful only once t
// has exited.
func (t *Task) ExitCode() int32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exitCode
}

// SyscallCount returns the number of times t has invoked syscall sysno.
func (t *Task) SyscallCount(sysno uintptr) uint32 {
	if sysno >= linux.MaxSyscallNum {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.syscallTimes[sysno]
}

// TaskInfo returns a snapshot of t's status, syscall counts and time since
// it was first scheduled.
func (t *Task) TaskInfo() linux.TaskInfo {
	now := t.k.clock.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	ti := linux.TaskInfo{
		Status:       t.status,
		SyscallTimes: t.syscallTimes,
	}
	if t.started {
		ti.Time = uint64(now.Sub(t.startTime) / time.Millisecond)
	}
	return ti
}

// Value implements context.Context.Value.
func (t *Task) Value(key any) any {
	switch key {
	case CtxKernel:
		return t.k
	case CtxTask:
		return t
	case pgalloc.CtxMemoryFile:
		return t.k.mf
	case ktime.CtxMonotonicClock:
		return t.k.clock
	default:
		return nil
	}
}

// Deadline implements context.Context.Deadline.
func (*Task) Deadline() (time.Time, bool) {
	return time.Time{}, false
}

// Done implements context.Context.Done. Syscalls in this kernel never
// block, so a task is never cancelled.
func (*Task) Done() <-chan struct{} {
	return nil
}

// Err implements context.Context.Err.
func (*Task) Err() error {
	return nil
}
