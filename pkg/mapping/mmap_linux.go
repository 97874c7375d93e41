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
	"golang.org/x/sys/unix"

	"github.com/intel/pagesteer/pkg/pageset"
)

const (
	protRW = unix.PROT_READ | unix.PROT_WRITE
	// flags for a single fixed page of a shared file
	fixedSharedFlags = unix.MAP_FIXED | unix.MAP_SHARED | unix.MAP_POPULATE
	// flags for populated private anonymous memory
	anonFlags = unix.MAP_PRIVATE | unix.MAP_ANONYMOUS | unix.MAP_POPULATE
)

func mmap(addr pageset.Addr, size uintptr, prot, flags, fd int) (pageset.Addr, error) {
	ret, _, errno := unix.Syscall6(unix.SYS_MMAP, uintptr(addr), size,
		uintptr(prot), uintptr(flags), uintptr(fd), 0)
	if errno != 0 {
		return 0, sysError("mmap", addr, errno)
	}
	return pageset.Addr(ret), nil
}

func munmap(addr pageset.Addr, size uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_MUNMAP, uintptr(addr), size, 0)
	if errno != 0 {
		return sysError("munmap", addr, errno)
	}
	return nil
}

func mremap(old pageset.Addr, size uintptr, newAddr pageset.Addr) (pageset.Addr, error) {
	ret, _, errno := unix.Syscall6(unix.SYS_MREMAP, uintptr(old), size, size,
		unix.MREMAP_MAYMOVE|unix.MREMAP_FIXED, uintptr(newAddr), 0)
	if errno != 0 {
		return 0, sysError("mremap", old, errno)
	}
	return pageset.Addr(ret), nil
}

func mlock(addr pageset.Addr, size uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_MLOCK, uintptr(addr), size, 0)
	if errno != 0 {
		return sysError("mlock", addr, errno)
	}
	return nil
}

func munlock(addr pageset.Addr, size uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_MUNLOCK, uintptr(addr), size, 0)
	if errno != 0 {
		return sysError("munlock", addr, errno)
	}
	return nil
}

// errnoOf extracts the errno from an error returned by x/sys/unix.
func errnoOf(err error) unix.Errno {
	if errno, ok := err.(unix.Errno); ok {
		return errno
	}
	return unix.EIO
}
