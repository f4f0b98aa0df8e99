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

package mm

import (
	"bytes"
	"fmt"
	"strings"

	"gvisor.dev/uvm/pkg/hostarch"
)

// vmaHintHeap is the maps hint of the heap.
const vmaHintHeap = "[heap]"

// ReadMaps returns the contents of a /proc/[pid]/maps style listing of mm:
// one line per mapping, the heap included, in address order.
func (mm *MemoryManager) ReadMaps() []byte {
	mm.mappingMu.RLock()
	defer mm.mappingMu.RUnlock()

	var b bytes.Buffer
	heap := mm.heapPagesLocked()
	heapDone := heap.Length() == 0
	mm.vmas.tree.Ascend(func(v *vma) bool {
		if !heapDone && heap.Start < v.ar.Start {
			writeMapsEntry(&b, heap, hostarch.ReadWrite, vmaHintHeap)
			heapDone = true
		}
		writeMapsEntry(&b, v.ar, v.perms, v.hint)
		return true
	})
	if !heapDone {
		writeMapsEntry(&b, heap, hostarch.ReadWrite, vmaHintHeap)
	}
	return b.Bytes()
}

// writeMapsEntry appends a maps entry, including the trailing newline. All
// mappings are private and anonymous, so the offset, device and inode fields
// are zero.
func writeMapsEntry(b *bytes.Buffer, ar hostarch.AddrRange, perms hostarch.AccessType, hint string) {
	start := b.Len()
	fmt.Fprintf(b, "%08x-%08x %sp %08x %02x:%02x %d ", ar.Start, ar.End, perms, 0, 0, 0, 0)
	if hint != "" {
		// Per linux, we pad until the 74th character.
		if pad := 73 - (b.Len() - start); pad > 0 {
			b.WriteString(strings.Repeat(" ", pad))
		}
		b.WriteString(hint)
	}
	b.WriteString("\n")
}
