// Copyright 2021 The gVisor Authors.
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

// Package linuxerr contains syscall error codes exported as error interface
// pointers. This allows for fast comparison and return operations comparable
// to unix.Errno constants.
package linuxerr

import (
	goerrors "errors"

	"golang.org/x/sys/unix"
	"gvisor.dev/uvm/pkg/abi/linux/errno"
	"gvisor.dev/uvm/pkg/errors"
)

// The following errors are semantically identical to Errno of type
// unix.Errno. However, since the types are distinct (these are
// *errors.Error), they are not directly comparable. The Errno method returns
// an Errno number such that the error can be compared to unix.Errno (e.g.
// unix.Errno(EPERM.Errno()) == unix.EPERM is true).
var (
	noError *errors.Error = nil
	EPERM                 = errors.New(errno.EPERM, "operation not permitted")
	ENOENT                = errors.New(errno.ENOENT, "no such file or directory")
	EINTR                 = errors.New(errno.EINTR, "interrupted system call")
	EIO                   = errors.New(errno.EIO, "I/O error")
	EBADF                 = errors.New(errno.EBADF, "bad file number")
	EAGAIN                = errors.New(errno.EAGAIN, "try again")
	ENOMEM                = errors.New(errno.ENOMEM, "out of memory")
	EACCES                = errors.New(errno.EACCES, "permission denied")
	EFAULT                = errors.New(errno.EFAULT, "bad address")
	EBUSY                 = errors.New(errno.EBUSY, "device or resource busy")
	EEXIST                = errors.New(errno.EEXIST, "file exists")
	EINVAL                = errors.New(errno.EINVAL, "invalid argument")
	ENOSYS                = errors.New(errno.ENOSYS, "invalid system call number")
)

var errorMap = map[unix.Errno]*errors.Error{
	unix.EPERM:  EPERM,
	unix.ENOENT: ENOENT,
	unix.EINTR:  EINTR,
	unix.EIO:    EIO,
	unix.EBADF:  EBADF,
	unix.EAGAIN: EAGAIN,
	unix.ENOMEM: ENOMEM,
	unix.EACCES: EACCES,
	unix.EFAULT: EFAULT,
	unix.EBUSY:  EBUSY,
	unix.EEXIST: EEXIST,
	unix.EINVAL: EINVAL,
	unix.ENOSYS: ENOSYS,
}

// ErrorFromUnix returns a linuxerr from a unix.Errno. An errno with no
// registered linuxerr is returned as is.
func ErrorFromUnix(err unix.Errno) error {
	if err == unix.Errno(0) {
		return nil
	}
	if e, ok := errorMap[err]; ok {
		return e
	}
	return err
}

// ToError converts a linuxerr to an error type.
func ToError(err *errors.Error) error {
	if err == noError {
		return nil
	}
	return err
}

// ToUnix converts a linuxerr to a unix.Errno.
func ToUnix(e *errors.Error) unix.Errno {
	var unixErr unix.Errno
	if e != noError {
		unixErr = unix.Errno(e.Errno())
	}
	return unixErr
}

// Equals compares a linuxerr to a given error.
func Equals(e *errors.Error, err error) bool {
	var unixErr unix.Errno
	if e != noError {
		unixErr = unix.Errno(e.Errno())
	}
	if err == nil {
		err = noError
	}
	return e == err || unixErr == err
}

// ErrnoOf returns the errno carried by err, which may wrap an *errors.Error
// or a unix.Errno. Any other non-nil error is reported as EINVAL.
func ErrnoOf(err error) unix.Errno {
	if err == nil {
		return 0
	}
	var e *errors.Error
	if goerrors.As(err, &e) {
		return ToUnix(e)
	}
	var ue unix.Errno
	if goerrors.As(err, &ue) {
		return ue
	}
	return unix.EINVAL
}
