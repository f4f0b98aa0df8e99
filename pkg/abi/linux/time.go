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

package linux

import (
	"time"

	"gvisor.dev/uvm/pkg/hostarch"
	"gvisor.dev/uvm/pkg/marshal"
)

// SizeOfTimeval is the size of a Timeval struct in bytes.
const SizeOfTimeval = 16

// Timeval is the structure written by get_time: seconds and microseconds of
// the monotonic clock.
type Timeval struct {
	Sec  int64
	Usec int64
}

var _ marshal.Marshallable = (*Timeval)(nil)

// ToDuration returns the time elapsed since the clock's origin.
func (tv Timeval) ToDuration() time.Duration {
	return time.Duration(tv.Sec)*time.Second + time.Duration(tv.Usec)*time.Microsecond
}

// NsecToTimeval translates nanoseconds to a Timeval, truncating to whole
// microseconds.
func NsecToTimeval(nsec int64) (tv Timeval) {
	tv.Sec = nsec / 1e9
	tv.Usec = nsec % 1e9 / 1e3
	return
}

// DurationToTimeval translates time.Duration to Timeval.
func DurationToTimeval(dur time.Duration) Timeval {
	return NsecToTimeval(dur.Nanoseconds())
}

// SizeBytes implements marshal.Marshallable.SizeBytes.
func (tv *Timeval) SizeBytes() int {
	return SizeOfTimeval
}

// MarshalBytes implements marshal.Marshallable.MarshalBytes.
func (tv *Timeval) MarshalBytes(dst []byte) {
	hostarch.ByteOrder.PutUint64(dst[0:8], uint64(tv.Sec))
	hostarch.ByteOrder.PutUint64(dst[8:16], uint64(tv.Usec))
}

// UnmarshalBytes implements marshal.Marshallable.UnmarshalBytes.
func (tv *Timeval) UnmarshalBytes(src []byte) {
	tv.Sec = int64(hostarch.ByteOrder.Uint64(src[0:8]))
	tv.Usec = int64(hostarch.ByteOrder.Uint64(src[8:16]))
}

// CopyOut implements marshal.Marshallable.CopyOut.
func (tv *Timeval) CopyOut(cc marshal.CopyContext, addr hostarch.Addr) (int, error) {
	return marshal.CopyOut(cc, addr, tv)
}

// CopyIn implements marshal.Marshallable.CopyIn.
func (tv *Timeval) CopyIn(cc marshal.CopyContext, addr hostarch.Addr) (int, error) {
	return marshal.CopyIn(cc, addr, tv)
}
