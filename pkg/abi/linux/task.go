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

package linux

import (
	"fmt"

	"gvisor.dev/uvm/pkg/hostarch"
	"gvisor.dev/uvm/pkg/marshal"
)

// TaskStatus is the scheduling state of a task.
type TaskStatus uint32

// Task states, in the order a task moves through them.
const (
	TaskUnInit TaskStatus = iota
	TaskReady
	TaskRunning
	TaskExited
)

// String implements fmt.Stringer.String.
func (s TaskStatus) String() string {
	switch s {
	case TaskUnInit:
		return "UnInit"
	case TaskReady:
		return "Ready"
	case TaskRunning:
		return "Running"
	case TaskExited:
		return "Exited"
	default:
		return fmt.Sprintf("TaskStatus(%d)", uint32(s))
	}
}

// Offsets of TaskInfo fields in its marshalled form. The struct is laid out
// with natural alignment, so 4 bytes of padding precede Time.
const (
	TaskInfoStatusOffset       = 0
	TaskInfoSyscallTimesOffset = 4
	TaskInfoTimeOffset         = 2008

	// SizeOfTaskInfo is the size of a TaskInfo struct in bytes.
	SizeOfTaskInfo = 2016
)

// TaskInfo is the snapshot written by task_info.
type TaskInfo struct {
	// Status is the task's state at the time of the call.
	Status TaskStatus

	// SyscallTimes counts invocations of each syscall, the current call
	// included.
	SyscallTimes [MaxSyscallNum]uint32

	// Time is the time since the task was first scheduled, in milliseconds.
	Time uint64
}

var _ marshal.Marshallable = (*TaskInfo)(nil)

// SizeBytes implements marshal.Marshallable.SizeBytes.
func (ti *TaskInfo) SizeBytes() int {
	return SizeOfTaskInfo
}

// MarshalBytes implements marshal.Marshallable.MarshalBytes.
func (ti *TaskInfo) MarshalBytes(dst []byte) {
	dst = dst[:SizeOfTaskInfo]
	hostarch.ByteOrder.PutUint32(dst[TaskInfoStatusOffset:], uint32(ti.Status))
	for i, n := range ti.SyscallTimes {
		hostarch.ByteOrder.PutUint32(dst[TaskInfoSyscallTimesOffset+4*i:], n)
	}
	clear(dst[TaskInfoSyscallTimesOffset+4*MaxSyscallNum : TaskInfoTimeOffset])
	hostarch.ByteOrder.PutUint64(dst[TaskInfoTimeOffset:], ti.Time)
}

// UnmarshalBytes implements marshal.Marshallable.UnmarshalBytes.
func (ti *TaskInfo) UnmarshalBytes(src []byte) {
	src = src[:SizeOfTaskInfo]
	ti.Status = TaskStatus(hostarch.ByteOrder.Uint32(src[TaskInfoStatusOffset:]))
	for i := range ti.SyscallTimes {
		ti.SyscallTimes[i] = hostarch.ByteOrder.Uint32(src[TaskInfoSyscallTimesOffset+4*i:])
	}
	ti.Time = hostarch.ByteOrder.Uint64(src[TaskInfoTimeOffset:])
}

// CopyOut implements marshal.Marshallable.CopyOut.
func (ti *TaskInfo) CopyOut(cc marshal.CopyContext, addr hostarch.Addr) (int, error) {
	return marshal.CopyOut(cc, addr, ti)
}

// CopyIn implements marshal.Marshallable.CopyIn.
func (ti *TaskInfo) CopyIn(cc marshal.CopyContext, addr hostarch.Addr) (int, error) {
	return marshal.CopyIn(cc, addr, ti)
}
