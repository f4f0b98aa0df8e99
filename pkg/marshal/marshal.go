// Copyright 2020 The gVisor Authors.
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

// Package marshal defines the Marshallable interface for serializing
// fixed-layout ABI structures to and from user memory.
//
// Implementations encode field by field in hostarch.ByteOrder, so a
// structure's bytes never depend on the Go compiler's memory layout.
package marshal

import (
	"gvisor.dev/uvm/pkg/hostarch"
)

// CopyContext defines the memory operations required to marshal to and from
// user memory. Typically, kernel.Task is used to provide implementations for
// these operations.
type CopyContext interface {
	// CopyScratchBuffer provides a task goroutine-local scratch buffer. See
	// kernel.CopyScratchBuffer.
	CopyScratchBuffer(size int) []byte

	// CopyOutBytes writes the contents of b to the task's memory. See
	// kernel.CopyOutBytes.
	CopyOutBytes(addr hostarch.Addr, b []byte) (int, error)

	// CopyInBytes reads the contents of the task's memory to b. See
	// kernel.CopyInBytes.
	CopyInBytes(addr hostarch.Addr, b []byte) (int, error)
}

// Marshallable represents operations on a type that can be marshalled to and
// from memory.
type Marshallable interface {
	// SizeBytes is the size of the memory representation of a type in
	// marshalled form.
	SizeBytes() int

	// MarshalBytes serializes a copy of a type to dst.
	// Precondition: dst must be at least SizeBytes() in length.
	MarshalBytes(dst []byte)

	// UnmarshalBytes deserializes a type from src.
	// Precondition: src must be at least SizeBytes() in length.
	UnmarshalBytes(src []byte)

	// CopyIn deserializes a Marshallable type from a task's memory. This may
	// only be called from a task goroutine. This is more efficient than calling
	// UnmarshalBytes on a Marshallable type, as it avoids an intermediate
	// buffer allocation.
	CopyIn(cc CopyContext, addr hostarch.Addr) (int, error)

	// CopyOut serializes a Marshallable type to a task's memory. This may only
	// be called from a task goroutine.
	//
	// Nothing is written unless the whole range is writable.
	CopyOut(cc CopyContext, addr hostarch.Addr) (int, error)
}

// CopyOut marshals m into a scratch buffer from cc and writes it to addr.
// It is the common implementation of Marshallable.CopyOut.
func CopyOut(cc CopyContext, addr hostarch.Addr, m Marshallable) (int, error) {
	buf := cc.CopyScratchBuffer(m.SizeBytes())
	m.MarshalBytes(buf)
	return cc.CopyOutBytes(addr, buf)
}

// CopyIn reads m's bytes from addr into a scratch buffer from cc and
// unmarshals them. It is the common implementation of Marshallable.CopyIn.
func CopyIn(cc CopyContext, addr hostarch.Addr, m Marshallable) (int, error) {
	buf := cc.CopyScratchBuffer(m.SizeBytes())
	n, err := cc.CopyInBytes(addr, buf)
	if err != nil {
		return n, err
	}
	m.UnmarshalBytes(buf)
	return n, nil
}
