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
	"fmt"
	"sort"
	"sync"

	"gvisor.dev/uvm/pkg/sentry/arch"
)

// SyscallFn is a syscall implementation.
type SyscallFn func(t *Task, args arch.SyscallArguments) (uintptr, *SyscallControl, error)

// MissingFn is a syscall to be called when an implementation is missing.
type MissingFn func(t *Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error)

// Possible flags for SyscallFlagsTable.enable.
const (
	// syscallPresent indicates that this is not a missing syscall.
	//
	// This flag is used internally in SyscallFlagsTable.
	syscallPresent = 1 << iota

	// StraceEnableLog enables syscall log tracing.
	StraceEnableLog
)

// Syscall includes the syscall implementation and compatibility information.
type Syscall struct {
	// Name is the syscall name.
	Name string
	// Fn is the implementation of the syscall.
	Fn SyscallFn
}

// SyscallControl is returned by syscalls to control the behavior of
// Task.doSyscall.
type SyscallControl struct {
	// exit is set if the task exits as a result of the syscall. The task
	// does not return to user mode.
	exit bool

	// ignoreReturn is true if the syscall's return value must not be stored
	// in the task's registers.
	ignoreReturn bool
}

// CtrlDoExit is returned by the implementations of the exit syscall. The
// exit code is taken from the task, see Task.PrepareExit.
var CtrlDoExit = &SyscallControl{exit: true, ignoreReturn: true}

// SyscallTable is a lookup table of system calls.
type SyscallTable struct {
	// Arch is the architecture that this syscall table targets.
	Arch arch.Arch

	// Table is the collection of functions.
	Table map[uintptr]Syscall

	// lookup is a fixed-size array that holds the syscalls (indexed by
	// their numbers). It is used for fast look ups.
	lookup []SyscallFn

	// Missing is the syscall to be called when an implementation is
	// missing.
	Missing MissingFn

	// FeatureEnable stores the strace enable bits.
	FeatureEnable SyscallFlagsTable
}

// maxSyscallNum bounds the syscall numbers a table may contain.
const maxSyscallNum = 1024

// allSyscallTables contains all known tables.
var allSyscallTables []*SyscallTable

// SyscallTables returns a read-only slice of registered SyscallTables.
func SyscallTables() []*SyscallTable {
	return allSyscallTables
}

// LookupSyscallTable returns the SyscallCall table for the architecture.
func LookupSyscallTable(a arch.Arch) (*SyscallTable, bool) {
	for _, s := range allSyscallTables {
		if s.Arch == a {
			return s, true
		}
	}
	return nil, false
}

// RegisterSyscallTable registers a new syscall table for use by a Kernel.
func RegisterSyscallTable(s *SyscallTable) {
	if max := s.MaxSysno(); max >= maxSyscallNum {
		panic(fmt.Sprintf("SyscallTable %+v contains too large syscall number %d", s, max))
	}
	if _, ok := LookupSyscallTable(s.Arch); ok {
		panic(fmt.Sprintf("Duplicate SyscallTable registered for arch %v", s.Arch))
	}
	allSyscallTables = append(allSyscallTables, s)
	s.Init()
}

// Init initializes the system call table.
//
// This should normally be called only during registration.
func (s *SyscallTable) Init() {
	if s.Table == nil {
		// Ensure non-nil lookup table.
		s.Table = make(map[uintptr]Syscall)
	}

	max := s.MaxSysno() // Checked during RegisterSyscallTable.

	// Initialize the fast-lookup table.
	s.lookup = make([]SyscallFn, max+1)
	for num, sc := range s.Table {
		s.lookup[num] = sc.Fn
	}

	// Initialize all features.
	s.FeatureEnable.init(s.Table, max)
}

// Lookup returns the syscall implementation, if one exists.
func (s *SyscallTable) Lookup(sysno uintptr) SyscallFn {
	if sysno < uintptr(len(s.lookup)) {
		return s.lookup[sysno]
	}

	return nil
}

// LookupName looks up a syscall name.
func (s *SyscallTable) LookupName(sysno uintptr) string {
	if sc, ok := s.Table[sysno]; ok {
		return sc.Name
	}
	return fmt.Sprintf("sys_%d", sysno) // Unlikely.
}

// mapLookup is similar to Lookup, except that it only uses the syscall table,
// that is, it skips the fast look array. This is available for benchmarking.
func (s *SyscallTable) mapLookup(sysno uintptr) SyscallFn {
	if sc, ok := s.Table[sysno]; ok {
		return sc.Fn
	}
	return nil
}

// MaxSysno returns the largest system call number.
func (s *SyscallTable) MaxSysno() (max uintptr) {
	for num := range s.Table {
		if num > max {
			max = num
		}
	}
	return max
}

// Sysnos returns the table's syscall numbers in increasing order.
func (s *SyscallTable) Sysnos() []uintptr {
	nums := make([]uintptr, 0, len(s.Table))
	for num := range s.Table {
		nums = append(nums, num)
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	return nums
}

// SyscallFlagsTable manages a set of enable/disable bit fields on a per-syscall
// basis.
type SyscallFlagsTable struct {
	// mu protects the fields below.
	mu sync.Mutex

	// enable contains the enable bits for each syscall.
	//
	// missing syscalls have the same value in enable as missingEnable to
	// avoid an extra branch in Word.
	enable []uint32

	// missingEnable contains the enable bits for missing syscalls.
	missingEnable uint32
}

// init initializes the struct, with all syscalls in table set to enable.
//
// max is the largest syscall number in table.
func (e *SyscallFlagsTable) init(table map[uintptr]Syscall, max uintptr) {
	e.enable = make([]uint32, max+1)
	for num := range table {
		e.enable[num] = syscallPresent
	}
}

// Word returns the enable bitfield for sysno.
func (e *SyscallFlagsTable) Word(sysno uintptr) uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if sysno < uintptr(len(e.enable)) {
		return e.enable[sysno]
	}
	return e.missingEnable
}

// Enable sets enable bit bit for all syscalls based on s.
//
// Syscalls missing from s are disabled.
//
// Syscalls missing from the initial table passed to Init cannot be added as
// individual syscalls. If present in s they will be ignored.
//
// Callers to Word may see either the old or new value while this function
// is executing.
func (e *SyscallFlagsTable) Enable(bit uint32, s map[uintptr]bool, missingEnable bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	missingVal := e.missingEnable
	if missingEnable {
		missingVal |= bit
	} else {
		missingVal &^= bit
	}
	e.missingEnable = missingVal

	for num := range e.enable {
		val := e.enable[num]
		if !bitPresent(val) {
			// Missing.
			e.enable[num] = missingVal
			continue
		}

		if s[uintptr(num)] {
			val |= bit
		} else {
			val &^= bit
		}
		e.enable[num] = val
	}
}

// EnableAll sets enable bit bit for all syscalls, present and missing.
func (e *SyscallFlagsTable) EnableAll(bit uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.missingEnable |= bit
	for num := range e.enable {
		val := e.enable[num]
		if !bitPresent(val) {
			// Missing.
			e.enable[num] = e.missingEnable
			continue
		}

		val |= bit
		e.enable[num] = val
	}
}

// bitPresent returns true if val contains the syscallPresent bit.
func bitPresent(val uint32) bool {
	return val&syscallPresent != 0
}
