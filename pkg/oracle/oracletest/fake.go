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

// Package oracletest provides an in-memory oracle for tests.
package oracletest

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/intel/pagesteer/pkg/oracle"
	"github.com/intel/pagesteer/pkg/pageset"
)

// Fake is an Oracle answering from in-memory tables.
type Fake struct {
	mu sync.Mutex
	// Pages maps page-aligned virtual addresses to physical pages.
	Pages map[pageset.Addr]oracle.PhysAddr
	// Mem holds the 8-byte values of physical memory.
	Mem map[oracle.PhysAddr]uint64
	// PCP is the value returned by Blocks.
	PCP uint64
	// Translate, if set, overrides the Pages table.
	Translate func(pageset.Addr) (oracle.PhysAddr, error)
	// Read, if set, overrides the Mem table.
	Read func(oracle.PhysAddr) (uint64, error)
	// Err, if set, is returned by every query.
	Err error

	closed bool
}

var _ oracle.Oracle = &Fake{}

// NewFake returns an empty fake oracle.
func NewFake() *Fake {
	return &Fake{
		Pages: map[pageset.Addr]oracle.PhysAddr{},
		Mem:   map[oracle.PhysAddr]uint64{},
	}
}

// MapRange records that size bytes at addr are backed by contiguous
// physical memory starting at pa.
func (f *Fake) MapRange(addr pageset.Addr, pa oracle.PhysAddr, size uintptr) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for off := uintptr(0); off < size; off += pageset.PageSize {
		f.Pages[addr.Add(off)] = pa + oracle.PhysAddr(off)
	}
}

// Blocks returns PCP.
func (f *Fake) Blocks() (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return 0, f.Err
	}
	return f.PCP, nil
}

// VirtToPhys translates using Translate or the Pages table.
func (f *Fake) VirtToPhys(addr pageset.Addr) (oracle.PhysAddr, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return 0, f.Err
	}
	if f.Translate != nil {
		return f.Translate(addr)
	}
	page := pageset.RoundDown(addr, pageset.PageSize)
	pa, ok := f.Pages[page]
	if !ok {
		return 0, errors.Wrapf(oracle.ErrNotPresent, "%s", addr)
	}
	return pa + oracle.PhysAddr(addr-page), nil
}

// ReadPhys reads using Read or the Mem table, unset memory reads as zero.
func (f *Fake) ReadPhys(pa oracle.PhysAddr) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return 0, f.Err
	}
	if f.Read != nil {
		return f.Read(pa)
	}
	return f.Mem[pa], nil
}

// Close marks the oracle closed.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Closed checks if the oracle has been closed.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
