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
	"fmt"
)

// Registers of the RISC-V integer register file, by ABI name.
const (
	RegRA = 1
	RegSP = 2
	RegA0 = 10
	RegA1 = 11
	RegA2 = 12
	RegA3 = 13
	RegA4 = 14
	RegA5 = 15
	RegA7 = 17

	// NumRegs is the number of integer registers, x0 included.
	NumRegs = 32
)

// ecallSize is the length of the ecall instruction.
const ecallSize = 4

// Registers is the user register state saved on trap entry.
type Registers struct {
	// X is the integer register file. X[0] is hardwired to zero.
	X [NumRegs]uintptr

	// Sepc is the address of the trapping instruction.
	Sepc uintptr
}

// Context64 represents a RISC-V 64-bit user context.
//
// Syscalls follow the Linux RISC-V convention: the number is passed in a7,
// arguments in a0 through a5, and the result is returned in a0.
type Context64 struct {
	Regs Registers
}

var _ Context = (*Context64)(nil)

// NewContext64 returns a context that starts executing at entry with the
// given stack pointer.
func NewContext64(entry, stack uintptr) *Context64 {
	c := &Context64{}
	c.Regs.Sepc = entry
	c.Regs.X[RegSP] = stack
	return c
}

// Arch implements Context.Arch.
func (c *Context64) Arch() Arch {
	return RISCV64
}

// SyscallNo implements Context.SyscallNo.
func (c *Context64) SyscallNo() uintptr {
	return c.Regs.X[RegA7]
}

// SyscallArgs implements Context.SyscallArgs.
func (c *Context64) SyscallArgs() SyscallArguments {
	return SyscallArguments{
		SyscallArgument{Value: c.Regs.X[RegA0]},
		SyscallArgument{Value: c.Regs.X[RegA1]},
		SyscallArgument{Value: c.Regs.X[RegA2]},
		SyscallArgument{Value: c.Regs.X[RegA3]},
		SyscallArgument{Value: c.Regs.X[RegA4]},
		SyscallArgument{Value: c.Regs.X[RegA5]},
	}
}

// SetSyscall loads a syscall number and its arguments, as user code does
// before executing ecall.
func (c *Context64) SetSyscall(sysno uintptr, args SyscallArguments) {
	c.Regs.X[RegA7] = sysno
	for i, a := range args {
		c.Regs.X[RegA0+i] = a.Value
	}
}

// Return implements Context.Return.
func (c *Context64) Return() uintptr {
	return c.Regs.X[RegA0]
}

// SetReturn implements Context.SetReturn.
func (c *Context64) SetReturn(value uintptr) {
	c.Regs.X[RegA0] = value
}

// IP implements Context.IP.
func (c *Context64) IP() uintptr {
	return c.Regs.Sepc
}

// SetIP implements Context.SetIP.
func (c *Context64) SetIP(value uintptr) {
	c.Regs.Sepc = value
}

// Stack implements Context.Stack.
func (c *Context64) Stack() uintptr {
	return c.Regs.X[RegSP]
}

// SetStack implements Context.SetStack.
func (c *Context64) SetStack(value uintptr) {
	c.Regs.X[RegSP] = value
}

// SkipSyscallInstruction advances the instruction pointer past the ecall
// that trapped, so that the task resumes after it.
func (c *Context64) SkipSyscallInstruction() {
	c.Regs.Sepc += ecallSize
}

// String implements fmt.Stringer.
func (c *Context64) String() string {
	return fmt.Sprintf("pc=%#x sp=%#x a0=%#x a7=%#x", c.Regs.Sepc, c.Regs.X[RegSP], c.Regs.X[RegA0], c.Regs.X[RegA7])
}
