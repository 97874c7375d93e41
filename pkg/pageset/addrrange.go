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

package pageset

import (
	"fmt"
	"strings"
)

// AddrRange is a range of pages starting at an address.
type AddrRange struct {
	addr   Addr
	length uint64 // in pages
}

// NewAddrRange returns the range covering [start, stop). The bounds are
// swapped if stop is below start.
func NewAddrRange(start, stop Addr) *AddrRange {
	if stop < start {
		start, stop = stop, start
	}
	return &AddrRange{addr: start, length: uint64(stop-start) / PageSize}
}

// ParseAddrRange parses a range given as "start", "start-stop" or
// "start+size". Addresses are hex, with or without a 0x prefix. Size
// accepts the units of ParseBytes. A single address covers one page.
func ParseAddrRange(s string) (*AddrRange, error) {
	s = strings.TrimSpace(s)

	if idx := strings.IndexByte(s, '+'); idx >= 0 {
		start, err := ParseAddr(s[:idx])
		if err != nil {
			return nil, err
		}
		size, err := ParseBytes(s[idx+1:])
		if err != nil {
			return nil, invalidArg("invalid address range %q: %v", s, err)
		}
		return NewAddrRange(start, start+Addr(size)), nil
	}

	if idx := strings.IndexByte(s, '-'); idx >= 0 {
		start, err := ParseAddr(s[:idx])
		if err != nil {
			return nil, err
		}
		stop, err := ParseAddr(s[idx+1:])
		if err != nil {
			return nil, err
		}
		return NewAddrRange(start, stop), nil
	}

	start, err := ParseAddr(s)
	if err != nil {
		return nil, err
	}
	return NewAddrRange(start, start+PageSize), nil
}

// Start returns the first address of the range.
func (r *AddrRange) Start() Addr {
	return r.addr
}

// End returns the first address past the range.
func (r *AddrRange) End() Addr {
	return r.addr + Addr(r.length*PageSize)
}

// EndAddr returns the address of the last page in the range.
func (r *AddrRange) EndAddr() Addr {
	if r.length == 0 {
		return r.addr
	}
	return r.End() - PageSize
}

// Length returns the length of the range in pages.
func (r *AddrRange) Length() uint64 {
	return r.length
}

// Size returns the size of the range in bytes.
func (r *AddrRange) Size() uintptr {
	return uintptr(r.length * PageSize)
}

// Contains checks if addr is within the range.
func (r *AddrRange) Contains(addr Addr) bool {
	return r.addr <= addr && addr < r.End()
}

// Pages returns the addresses of all pages in the range.
func (r *AddrRange) Pages() ([]Addr, error) {
	if !IsPageAligned(r.addr) {
		return nil, invalidArg("range start %s is not page-aligned", r.addr)
	}
	pages := make([]Addr, 0, r.length)
	for i := uint64(0); i < r.length; i++ {
		pages = append(pages, r.addr+Addr(i*PageSize))
	}
	return pages, nil
}

// String returns the range as "start-end (pages)".
func (r *AddrRange) String() string {
	return fmt.Sprintf("%s-%s (%d pages)", r.addr, r.End(), r.length)
}
