// Copyright 2025 Intel Corporation. All Rights Reserved.
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

package mapping

import (
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/intel/pagesteer/pkg/pageset"
)

// SystemError is a failed system call, carrying the OS error code.
type SystemError struct {
	// Op is the failed operation, for instance "mmap" or "open".
	Op string
	// Addr is the address the operation was issued for, if any.
	Addr pageset.Addr
	// Errno is the error code returned by the kernel.
	Errno unix.Errno
}

// Error returns the error as a string.
func (e *SystemError) Error() string {
	if e.Addr == 0 {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Errno)
	}
	return fmt.Sprintf("%s at %s failed: %v", e.Op, e.Addr, e.Errno)
}

// Unwrap returns the underlying errno.
func (e *SystemError) Unwrap() error {
	return e.Errno
}

// IsSystemError checks if err is, or wraps, a SystemError.
func IsSystemError(err error) bool {
	var serr *SystemError
	return errors.As(err, &serr)
}

func sysError(op string, addr pageset.Addr, errno unix.Errno) error {
	return &SystemError{Op: op, Addr: addr, Errno: errno}
}

func invalidArg(format string, args ...interface{}) error {
	return errors.Wrapf(pageset.ErrInvalidArgument, format, args...)
}
