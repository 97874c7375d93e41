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

// Package mapping wraps the memory-mapping system calls used to steer the
// page allocator. Every call validates page alignment and reports failures
// of the kernel as *SystemError.
package mapping

import (
	"golang.org/x/sys/unix"

	"github.com/intel/pagesteer/pkg/pageset"
)

// MapPages maps one page of fd at each of the given addresses, fixed,
// shared and populated. Mapping stops at the first failure; pages mapped
// before it stay mapped.
func MapPages(pages []pageset.Addr, fd int) error {
	for _, page := range pages {
		if !pageset.IsPageAligned(page) {
			return invalidArg("MapPages: address %s is not page-aligned", page)
		}
		if _, err := mmap(page, pageset.PageSize, protRW, fixedSharedFlags, fd); err != nil {
			return err
		}
	}
	return nil
}

// UnmapPages unmaps one page at each of the given addresses. Unmapping
// stops at the first failure.
func UnmapPages(pages []pageset.Addr) error {
	for _, page := range pages {
		if !pageset.IsPageAligned(page) {
			return invalidArg("UnmapPages: address %s is not page-aligned", page)
		}
		if err := munmap(page, pageset.PageSize); err != nil {
			return err
		}
	}
	return nil
}

// MapAnonymous maps size bytes of private, populated anonymous memory.
func MapAnonymous(size uintptr) (pageset.Addr, error) {
	if err := checkSize("MapAnonymous", size); err != nil {
		return 0, err
	}
	return mmap(0, size, protRW, anonFlags, -1)
}

// MapShared maps size bytes of fd, shared and populated. If fixed is set
// the mapping is placed exactly at addr, otherwise addr is only a hint.
func MapShared(addr pageset.Addr, size uintptr, fd int, fixed bool) (pageset.Addr, error) {
	if !pageset.IsPageAligned(addr) {
		return 0, invalidArg("MapShared: address %s is not page-aligned", addr)
	}
	if err := checkSize("MapShared", size); err != nil {
		return 0, err
	}
	flags := fixedSharedFlags
	if !fixed {
		flags &^= unix.MAP_FIXED
	}
	return mmap(addr, size, protRW, flags, fd)
}

// Remap moves the mapping of size bytes at old to newAddr without copying.
func Remap(old pageset.Addr, size uintptr, newAddr pageset.Addr) (pageset.Addr, error) {
	if !pageset.IsPageAligned(old) || !pageset.IsPageAligned(newAddr) {
		return 0, invalidArg("Remap: %s or %s is not page-aligned", old, newAddr)
	}
	if err := checkSize("Remap", size); err != nil {
		return 0, err
	}
	return mremap(old, size, newAddr)
}

// Unmap unmaps size bytes at addr.
func Unmap(addr pageset.Addr, size uintptr) error {
	if !pageset.IsPageAligned(addr) {
		return invalidArg("Unmap: address %s is not page-aligned", addr)
	}
	if err := checkSize("Unmap", size); err != nil {
		return err
	}
	return munmap(addr, size)
}

// Lock locks size bytes at addr into memory.
func Lock(addr pageset.Addr, size uintptr) error {
	if !pageset.IsPageAligned(addr) {
		return invalidArg("Lock: address %s is not page-aligned", addr)
	}
	return mlock(addr, size)
}

// Unlock unlocks size bytes at addr.
func Unlock(addr pageset.Addr, size uintptr) error {
	if !pageset.IsPageAligned(addr) {
		return invalidArg("Unlock: address %s is not page-aligned", addr)
	}
	return munlock(addr, size)
}

func checkSize(op string, size uintptr) error {
	if size == 0 || size%pageset.PageSize != 0 {
		return invalidArg("%s: size 0x%x is not a positive multiple of the page size", op, size)
	}
	return nil
}
