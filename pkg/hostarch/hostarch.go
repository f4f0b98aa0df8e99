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

// Package hostarch describes the virtual memory geometry shared by the
// kernel and its user address spaces.
package hostarch

import "encoding/binary"

const (
	// PageShift is the binary log of the page size.
	PageShift = 12

	// PageSize is the size of a page in bytes.
	PageSize = 1 << PageShift

	// PageOffsetMask masks the offset of an address within its page.
	PageOffsetMask = PageSize - 1

	// VPNBits is the width of a virtual page number in a three-level
	// (Sv39-style) address space.
	VPNBits = 27

	// MaxUserAddress is the exclusive upper bound of user virtual addresses.
	MaxUserAddress Addr = 1 << (VPNBits + PageShift - 1)
)

// ByteOrder is the byte order of all in-memory ABI structures.
var ByteOrder = binary.LittleEndian
