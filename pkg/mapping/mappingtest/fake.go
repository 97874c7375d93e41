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

// Package mappingtest provides an in-memory Mapper for tests. It keeps
// track of mapped and locked pages, open descriptors and the physical
// frames backing each page, so that the steering state machines can be
// exercised without privileges.
package mappingtest

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/intel/pagesteer/pkg/mapping"
	"github.com/intel/pagesteer/pkg/oracle"
	"github.com/intel/pagesteer/pkg/pageset"
)

const (
	// AnonBase is where the first anonymous mapping is placed.
	AnonBase = pageset.Addr(0x7f0000000000)
	// PhysBase is the first physical frame handed out.
	PhysBase = uint64(0x100000000)
	// FirstFd is the first descriptor handed out.
	FirstFd = 3
)

// Fake is a Mapper operating on in-memory tables.
type Fake struct {
	mu sync.Mutex
	// FreeBytes is returned by FreeMemory.
	FreeBytes uint64
	// Frame, if set, picks the physical address for a newly populated
	// anonymous page. Frames are handed out sequentially otherwise.
	Frame func(va pageset.Addr) uint64
	// Fail, if set, is called before every operation with the name of the
	// underlying system call. A non-nil return fails the operation.
	Fail func(op string, addr pageset.Addr) error

	pages     map[pageset.Addr]page
	locked    map[pageset.Addr]struct{}
	files     map[int]*file
	nextFd    int
	nextAnon  pageset.Addr
	nextFrame uint64
	ops       []string
}

type page struct {
	fd   int
	phys uint64
}

type file struct {
	dir    string
	phys   uint64
	marked bool
}

var _ mapping.Mapper = &Fake{}

// NewFake returns a fake with the given amount of free memory.
func NewFake(free uint64) *Fake {
	return &Fake{
		FreeBytes: free,
		pages:     map[pageset.Addr]page{},
		locked:    map[pageset.Addr]struct{}{},
		files:     map[int]*file{},
		nextFd:    FirstFd,
		nextAnon:  AnonBase,
		nextFrame: PhysBase,
	}
}

// MapPages maps one page of fd at each address.
func (f *Fake) MapPages(pages []pageset.Addr, fd int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, va := range pages {
		if !pageset.IsPageAligned(va) {
			return invalidArg("MapPages: address %s is not page-aligned", va)
		}
		if err := f.check("mmap", va); err != nil {
			return err
		}
		file, ok := f.files[fd]
		if !ok {
			return sysError("mmap", va, unix.EBADF)
		}
		f.pages[va] = page{fd: fd, phys: file.phys}
	}
	return nil
}

// UnmapPages unmaps one page at each address.
func (f *Fake) UnmapPages(pages []pageset.Addr) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, va := range pages {
		if !pageset.IsPageAligned(va) {
			return invalidArg("UnmapPages: address %s is not page-aligned", va)
		}
		if err := f.check("munmap", va); err != nil {
			return err
		}
		f.unmap(va)
	}
	return nil
}

// MapAnonymous maps populated anonymous memory.
func (f *Fake) MapAnonymous(size uintptr) (pageset.Addr, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := checkSize("MapAnonymous", size); err != nil {
		return 0, err
	}
	if err := f.check("mmap", 0); err != nil {
		return 0, err
	}
	if uint64(size) > f.FreeBytes {
		return 0, sysError("mmap", 0, unix.ENOMEM)
	}

	addr := f.reserve(size)
	for off := uintptr(0); off < size; off += pageset.PageSize {
		va := addr.Add(off)
		f.pages[va] = page{fd: -1, phys: f.frame(va)}
	}
	return addr, nil
}

// MapShared maps fd at addr, or at an address of our choosing unless fixed.
func (f *Fake) MapShared(addr pageset.Addr, size uintptr, fd int, fixed bool) (pageset.Addr, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !pageset.IsPageAligned(addr) {
		return 0, invalidArg("MapShared: address %s is not page-aligned", addr)
	}
	if err := checkSize("MapShared", size); err != nil {
		return 0, err
	}
	if err := f.check("mmap", addr); err != nil {
		return 0, err
	}
	file, ok := f.files[fd]
	if !ok {
		return 0, sysError("mmap", addr, unix.EBADF)
	}
	if !fixed {
		addr = f.reserve(size)
	}
	for off := uintptr(0); off < size; off += pageset.PageSize {
		f.pages[addr.Add(off)] = page{fd: fd, phys: file.phys + uint64(off)}
	}
	return addr, nil
}

// Remap moves the pages at old to newAddr, replacing whatever was there.
func (f *Fake) Remap(old pageset.Addr, size uintptr, newAddr pageset.Addr) (pageset.Addr, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !pageset.IsPageAligned(old) || !pageset.IsPageAligned(newAddr) {
		return 0, invalidArg("Remap: %s or %s is not page-aligned", old, newAddr)
	}
	if err := checkSize("Remap", size); err != nil {
		return 0, err
	}
	if err := f.check("mremap", old); err != nil {
		return 0, err
	}

	moved := make([]page, 0, size/pageset.PageSize)
	for off := uintptr(0); off < size; off += pageset.PageSize {
		p, ok := f.pages[old.Add(off)]
		if !ok {
			return 0, sysError("mremap", old, unix.EFAULT)
		}
		moved = append(moved, p)
	}
	for off := uintptr(0); off < size; off += pageset.PageSize {
		f.unmap(old.Add(off))
		f.unmap(newAddr.Add(off))
	}
	for i, p := range moved {
		f.pages[newAddr.Add(uintptr(i)*pageset.PageSize)] = p
	}
	return newAddr, nil
}

// Unmap unmaps a range. Holes in the range are ignored.
func (f *Fake) Unmap(addr pageset.Addr, size uintptr) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !pageset.IsPageAligned(addr) {
		return invalidArg("Unmap: address %s is not page-aligned", addr)
	}
	if err := checkSize("Unmap", size); err != nil {
		return err
	}
	if err := f.check("munmap", addr); err != nil {
		return err
	}
	for off := uintptr(0); off < size; off += pageset.PageSize {
		f.unmap(addr.Add(off))
	}
	return nil
}

// Lock locks a fully mapped range.
func (f *Fake) Lock(addr pageset.Addr, size uintptr) error {
	return f.setLocked("mlock", addr, size, true)
}

// Unlock unlocks a fully mapped range.
func (f *Fake) Unlock(addr pageset.Addr, size uintptr) error {
	return f.setLocked("munlock", addr, size, false)
}

func (f *Fake) setLocked(op string, addr pageset.Addr, size uintptr, lock bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !pageset.IsPageAligned(addr) {
		return invalidArg("%s: address %s is not page-aligned", op, addr)
	}
	if err := f.check(op, addr); err != nil {
		return err
	}
	end := pageset.RoundUp(addr.Add(size), pageset.PageSize)
	for va := addr; va < end; va = va.Add(pageset.PageSize) {
		if _, ok := f.pages[va]; !ok {
			return sysError(op, addr, unix.ENOMEM)
		}
	}
	for va := addr; va < end; va = va.Add(pageset.PageSize) {
		if lock {
			f.locked[va] = struct{}{}
		} else {
			delete(f.locked, va)
		}
	}
	return nil
}

// OpenTmpFile opens a new descriptor backed by a fresh physical frame.
func (f *Fake) OpenTmpFile(dir string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("open", 0); err != nil {
		return -1, err
	}
	fd := f.nextFd
	f.nextFd++
	f.files[fd] = &file{dir: dir, phys: f.frame(0)}
	return fd, nil
}

// WriteMarker marks fd written.
func (f *Fake) WriteMarker(fd int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("write", 0); err != nil {
		return err
	}
	file, ok := f.files[fd]
	if !ok {
		return sysError("write", 0, unix.EBADF)
	}
	file.marked = true
	return nil
}

// Close closes fd. Pages mapped from fd stay mapped.
func (f *Fake) Close(fd int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("close", 0); err != nil {
		return err
	}
	if _, ok := f.files[fd]; !ok {
		return sysError("close", 0, unix.EBADF)
	}
	delete(f.files, fd)
	return nil
}

// FreeMemory returns FreeBytes.
func (f *Fake) FreeMemory() (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("sysinfo", 0); err != nil {
		return 0, err
	}
	return f.FreeBytes, nil
}

// Translate returns the physical address backing addr. It can be used as
// the translation function of an oracletest.Fake.
func (f *Fake) Translate(addr pageset.Addr) (oracle.PhysAddr, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	va := pageset.RoundDown(addr, pageset.PageSize)
	p, ok := f.pages[va]
	if !ok {
		return 0, errors.Wrapf(oracle.ErrNotPresent, "%s", addr)
	}
	return oracle.PhysAddr(p.phys + uint64(addr-va)), nil
}

// FilePhys returns the physical address of the page of fd.
func (f *Fake) FilePhys(fd int) (oracle.PhysAddr, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[fd]
	if !ok {
		return 0, false
	}
	return oracle.PhysAddr(file.phys), true
}

// OpenFds returns the open descriptors in ascending order.
func (f *Fake) OpenFds() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	fds := make([]int, 0, len(f.files))
	for fd := range f.files {
		fds = append(fds, fd)
	}
	sort.Ints(fds)
	return fds
}

// Marked checks if the marker has been written to fd.
func (f *Fake) Marked(fd int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[fd]
	return ok && file.marked
}

// Mapped checks if the page at addr is mapped.
func (f *Fake) Mapped(addr pageset.Addr) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.pages[addr]
	return ok
}

// MappedPages returns the number of mapped pages.
func (f *Fake) MappedPages() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pages)
}

// MappedFrom returns the number of pages mapped from fd.
func (f *Fake) MappedFrom(fd int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	cnt := 0
	for _, p := range f.pages {
		if p.fd == fd {
			cnt++
		}
	}
	return cnt
}

// Locked checks if the page at addr is locked.
func (f *Fake) Locked(addr pageset.Addr) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.locked[addr]
	return ok
}

// LockedPages returns the number of locked pages.
func (f *Fake) LockedPages() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.locked)
}

// Ops returns the log of successful and failed operations, one entry per
// call as "op addr".
func (f *Fake) Ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ops...)
}

// Count returns the number of times op has been attempted.
func (f *Fake) Count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	cnt := 0
	for _, entry := range f.ops {
		if len(entry) >= len(op) && entry[:len(op)] == op && (len(entry) == len(op) || entry[len(op)] == ' ') {
			cnt++
		}
	}
	return cnt
}

// FailOp returns a Fail function failing the n-th (counting from 1) call
// of op with errno, or every call of op if n is 0.
func FailOp(op string, n int, errno unix.Errno) func(string, pageset.Addr) error {
	calls := 0
	return func(o string, addr pageset.Addr) error {
		if o != op {
			return nil
		}
		calls++
		if n == 0 || calls == n {
			return sysError(op, addr, errno)
		}
		return nil
	}
}

func (f *Fake) check(op string, addr pageset.Addr) error {
	f.ops = append(f.ops, fmt.Sprintf("%s %s", op, addr))
	if f.Fail != nil {
		return f.Fail(op, addr)
	}
	return nil
}

func (f *Fake) unmap(va pageset.Addr) {
	delete(f.pages, va)
	delete(f.locked, va)
}

func (f *Fake) reserve(size uintptr) pageset.Addr {
	addr := f.nextAnon
	f.nextAnon = pageset.RoundUp(addr.Add(size+pageset.PageTableSpan), pageset.PageTableSpan)
	return addr
}

func (f *Fake) frame(va pageset.Addr) uint64 {
	if f.Frame != nil && va != 0 {
		return f.Frame(va)
	}
	pa := f.nextFrame
	f.nextFrame += uint64(pageset.PageSize)
	return pa
}

func checkSize(op string, size uintptr) error {
	if size == 0 || size%pageset.PageSize != 0 {
		return invalidArg("%s: size 0x%x is not a positive multiple of the page size", op, size)
	}
	return nil
}

func sysError(op string, addr pageset.Addr, errno unix.Errno) error {
	return &mapping.SystemError{Op: op, Addr: addr, Errno: errno}
}

func invalidArg(format string, args ...interface{}) error {
	return errors.Wrapf(pageset.ErrInvalidArgument, format, args...)
}
