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

package arch

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSyscallArgumentConversions(t *testing.T) {
	a := SyscallArgument{Value: ^uintptr(0)}
	if got := a.Int(); got != -1 {
		t.Errorf("Int() = %d, want -1", got)
	}
	if got := a.Int64(); got != -1 {
		t.Errorf("Int64() = %d, want -1", got)
	}
	if got := a.Uint(); got != 0xffffffff {
		t.Errorf("Uint() = %#x, want 0xffffffff", got)
	}

	// A negative 32-bit value passed in a wider register.
	b := SyscallArgument{Value: 0xfffff000}
	if got := b.Int(); got != -4096 {
		t.Errorf("Int() = %d, want -4096", got)
	}
	if got := b.Uint64(); got != 0xfffff000 {
		t.Errorf("Uint64() = %#x, want 0xfffff000", got)
	}
	if got := b.Pointer(); got != 0xfffff000 {
		t.Errorf("Pointer() = %#x, want 0xfffff000", got)
	}
}

func TestContext64Syscall(t *testing.T) {
	c := NewContext64(0x10000, 0x7fff0000)
	args := SyscallArguments{{Value: 0x1000}, {Value: 4096}, {Value: 3}}
	c.SetSyscall(222, args)

	if got := c.SyscallNo(); got != 222 {
		t.Errorf("SyscallNo() = %d, want 222", got)
	}
	if diff := cmp.Diff(args, c.SyscallArgs()); diff != "" {
		t.Errorf("SyscallArgs mismatch (-want +got):\n%s", diff)
	}

	c.SetReturn(^uintptr(0))
	if got := c.Return(); got != ^uintptr(0) {
		t.Errorf("Return() = %#x, want -1", got)
	}
	if got := c.SyscallArgs()[0].Int64(); got != -1 {
		t.Errorf("a0 = %d after SetReturn, want -1", got)
	}

	c.SkipSyscallInstruction()
	if got, want := c.IP(), uintptr(0x10004); got != want {
		t.Errorf("IP() = %#x, want %#x", got, want)
	}
	if got, want := c.Stack(), uintptr(0x7fff0000); got != want {
		t.Errorf("Stack() = %#x, want %#x", got, want)
	}
}
