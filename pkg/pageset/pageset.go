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
	"math/rand"

	"github.com/pkg/errors"
)

const (
	// PageShift is the log2 of the page size.
	PageShift = 12
	// PageSize is the size of a single page.
	PageSize = 1 << PageShift
	// PageBlockOrder is the order of the allocator's page-block granule.
	PageBlockOrder = 9
	// PageBlockSize is the size of a page-block (2 MiB).
	PageBlockSize = PageSize << PageBlockOrder
	// PageTableSpan is the virtual range covered by one last-level page table.
	PageTableSpan = 1 << 21
	// MaxSpanOrder is the largest span order, covering a 47-bit user
	// address space.
	MaxSpanOrder = 47 - PageShift
)

// ErrInvalidArgument is returned for misaligned addresses, bad strides and
// out-of-range counts. It is a caller bug and should never be retried.
var ErrInvalidArgument = errors.New("invalid argument")

// Addr is a virtual address.
type Addr uintptr

// NewAddr returns the given page-aligned address or an error.
func NewAddr(addr uintptr) (Addr, error) {
	a := Addr(addr)
	if !a.IsPageAligned() {
		return 0, invalidArg("address %s is not page-aligned", a)
	}
	return a, nil
}

// IsPageAligned checks if the address is page-aligned.
func (a Addr) IsPageAligned() bool {
	return IsPageAligned(a)
}

// Add returns the address offset by off bytes.
func (a Addr) Add(off uintptr) Addr {
	return a + Addr(off)
}

// Uintptr returns the address as an uintptr.
func (a Addr) Uintptr() uintptr {
	return uintptr(a)
}

// String returns the address in hex.
func (a Addr) String() string {
	return fmt.Sprintf("0x%x", uintptr(a))
}

// IsPageAligned checks if addr is page-aligned.
func IsPageAligned(addr Addr) bool {
	return addr&(PageSize-1) == 0
}

// PagesInSpan returns the 2^order page addresses starting at base.
func PagesInSpan(base Addr, order uint) ([]Addr, error) {
	if !IsPageAligned(base) {
		return nil, invalidArg("span base %s is not page-aligned", base)
	}
	if order > MaxSpanOrder {
		return nil, invalidArg("span order %d out of range", order)
	}
	count := 1 << order
	if last := base + Addr(count*PageSize-1); last < base {
		return nil, invalidArg("span of order %d at %s wraps around", order, base)
	}

	pages := make([]Addr, 0, count)
	for i := 0; i < count; i++ {
		pages = append(pages, base+Addr(i*PageSize))
	}

	return pages, nil
}

// StridedAddresses returns count addresses starting at base, stride bytes apart.
func StridedAddresses(base Addr, count int, stride uintptr) ([]Addr, error) {
	if count == 0 {
		return []Addr{}, nil
	}
	if count < 0 {
		return nil, invalidArg("negative address count %d", count)
	}
	if stride == 0 {
		return nil, invalidArg("stride must be non-zero")
	}
	if stride%PageSize != 0 {
		return nil, invalidArg("stride 0x%x is not a multiple of the page size", stride)
	}
	if !IsPageAligned(base) {
		return nil, invalidArg("base address %s is not page-aligned", base)
	}

	addrs := make([]Addr, 0, count)
	for i := 0; i < count; i++ {
		addrs = append(addrs, base+Addr(uintptr(i)*stride))
	}

	return addrs, nil
}

// RandomPagesInBlock returns count distinct pages picked uniformly at random
// from the block of blockSize bytes starting at block.
func RandomPagesInBlock(block Addr, blockSize uintptr, count int) ([]Addr, error) {
	return RandomPagesInBlockFrom(nil, block, blockSize, count)
}

// RandomPagesInBlockFrom is like RandomPagesInBlock but draws from rnd. A nil
// rnd uses the global source of math/rand.
func RandomPagesInBlockFrom(rnd *rand.Rand, block Addr, blockSize uintptr, count int) ([]Addr, error) {
	if blockSize == 0 || blockSize%PageSize != 0 {
		return nil, invalidArg("block size 0x%x is not a positive multiple of the page size", blockSize)
	}
	if !IsPageAligned(block) {
		return nil, invalidArg("block address %s is not page-aligned", block)
	}
	total := int(blockSize / PageSize)
	if count <= 0 || count > total {
		return nil, invalidArg("page count %d out of range 1-%d", count, total)
	}

	var perm []int
	if rnd != nil {
		perm = rnd.Perm(total)
	} else {
		perm = rand.Perm(total)
	}

	pages := make([]Addr, 0, count)
	for _, idx := range perm[:count] {
		pages = append(pages, block+Addr(idx*PageSize))
	}

	return pages, nil
}

// ErasePages removes all victims from pages in place, returning the number
// of entries removed.
func ErasePages(pages *[]Addr, victims []Addr) (int, error) {
	if len(victims) == 0 {
		return 0, nil
	}

	drop := make(map[Addr]struct{}, len(victims))
	for _, v := range victims {
		if !IsPageAligned(v) {
			return 0, invalidArg("victim address %s is not page-aligned", v)
		}
		drop[v] = struct{}{}
	}

	kept := (*pages)[:0]
	for _, p := range *pages {
		if _, ok := drop[p]; !ok {
			kept = append(kept, p)
		}
	}
	removed := len(*pages) - len(kept)
	*pages = kept

	return removed, nil
}

// RoundDown rounds addr down to a multiple of align, which must be a power of two.
func RoundDown(addr Addr, align uintptr) Addr {
	return addr &^ Addr(align-1)
}

// RoundUp rounds addr up to a multiple of align, which must be a power of two.
func RoundUp(addr Addr, align uintptr) Addr {
	return RoundDown(addr+Addr(align-1), align)
}

// FlipBit returns addr with the given bit inverted.
func FlipBit(addr Addr, bit uint) Addr {
	return addr ^ Addr(1)<<bit
}

func invalidArg(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}
