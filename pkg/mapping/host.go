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
	logger "github.com/intel/pagesteer/pkg/log"
	"github.com/intel/pagesteer/pkg/pageset"
	"github.com/intel/pagesteer/pkg/sysfs"
)

var log = logger.Get("mapping")

// Mapper is the set of memory and file operations the allocator steering
// protocols are built from.
type Mapper interface {
	// MapPages maps one page of fd at each address, fixed and shared.
	MapPages(pages []pageset.Addr, fd int) error
	// UnmapPages unmaps one page at each address.
	UnmapPages(pages []pageset.Addr) error
	// MapAnonymous maps populated private anonymous memory.
	MapAnonymous(size uintptr) (pageset.Addr, error)
	// MapShared maps fd shared and populated, at addr if fixed is set.
	MapShared(addr pageset.Addr, size uintptr, fd int, fixed bool) (pageset.Addr, error)
	// Remap moves a mapping to newAddr without copying.
	Remap(old pageset.Addr, size uintptr, newAddr pageset.Addr) (pageset.Addr, error)
	// Unmap unmaps a range.
	Unmap(addr pageset.Addr, size uintptr) error
	// Lock locks a range into memory.
	Lock(addr pageset.Addr, size uintptr) error
	// Unlock unlocks a range.
	Unlock(addr pageset.Addr, size uintptr) error
	// OpenTmpFile creates an unnamed temporary file in dir.
	OpenTmpFile(dir string) (int, error)
	// WriteMarker writes the dirtying marker to fd.
	WriteMarker(fd int) error
	// Close closes fd.
	Close(fd int) error
	// FreeMemory returns the amount of free physical memory in bytes.
	FreeMemory() (uint64, error)
}

// Host implements Mapper with real system calls.
type Host struct{}

var _ Mapper = &Host{}

// NewHost returns a Mapper operating on the calling process.
func NewHost() *Host {
	return &Host{}
}

func (*Host) MapPages(pages []pageset.Addr, fd int) error {
	log.Debug("mapping %d pages of fd %d", len(pages), fd)
	return MapPages(pages, fd)
}

func (*Host) UnmapPages(pages []pageset.Addr) error {
	log.Debug("unmapping %d pages", len(pages))
	return UnmapPages(pages)
}

func (*Host) MapAnonymous(size uintptr) (pageset.Addr, error) {
	addr, err := MapAnonymous(size)
	if err == nil {
		log.Debug("mapped 0x%x bytes of anonymous memory at %s", size, addr)
	}
	return addr, err
}

func (*Host) MapShared(addr pageset.Addr, size uintptr, fd int, fixed bool) (pageset.Addr, error) {
	return MapShared(addr, size, fd, fixed)
}

func (*Host) Remap(old pageset.Addr, size uintptr, newAddr pageset.Addr) (pageset.Addr, error) {
	log.Debug("remapping 0x%x bytes from %s to %s", size, old, newAddr)
	return Remap(old, size, newAddr)
}

func (*Host) Unmap(addr pageset.Addr, size uintptr) error {
	return Unmap(addr, size)
}

func (*Host) Lock(addr pageset.Addr, size uintptr) error {
	return Lock(addr, size)
}

func (*Host) Unlock(addr pageset.Addr, size uintptr) error {
	return Unlock(addr, size)
}

func (*Host) OpenTmpFile(dir string) (int, error) {
	return OpenTmpFile(dir)
}

func (*Host) WriteMarker(fd int) error {
	return WriteMarker(fd)
}

func (*Host) Close(fd int) error {
	return Close(fd)
}

func (*Host) FreeMemory() (uint64, error) {
	pages, err := sysfs.AvailablePhysPages()
	if err != nil {
		return 0, err
	}
	return pages * pageset.PageSize, nil
}
