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

package oracle

import (
	"encoding/binary"
	"os"

	"github.com/pkg/errors"

	"github.com/intel/pagesteer/pkg/pageset"
)

const (
	pagemapEntrySize = 8
	pagemapPresent   = uint64(1) << 63
	pagemapSwapped   = uint64(1) << 62
	pagemapPFNMask   = uint64(1)<<55 - 1
)

// ErrNoPFN is returned when pagemap hides frame numbers from us.
var ErrNoPFN = errors.New("pagemap frame numbers hidden, CAP_SYS_ADMIN required")

// pagemap translates addresses using a pagemap file.
type pagemap struct {
	f *os.File
}

func openPagemap(o *Options) (Oracle, error) {
	f, err := os.Open(o.Pagemap)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open pagemap")
	}
	return &pagemap{f: f}, nil
}

// decodePagemapEntry converts a pagemap entry for addr to a physical address.
func decodePagemapEntry(addr pageset.Addr, entry uint64) (PhysAddr, error) {
	if entry&pagemapPresent == 0 {
		if entry&pagemapSwapped != 0 {
			return 0, errors.Wrapf(ErrNotPresent, "%s is swapped out", addr)
		}
		return 0, errors.Wrapf(ErrNotPresent, "%s", addr)
	}
	pfn := entry & pagemapPFNMask
	if pfn == 0 {
		return 0, ErrNoPFN
	}
	return PhysAddr(pfn*pageset.PageSize + uint64(addr)%pageset.PageSize), nil
}

func (p *pagemap) entry(addr pageset.Addr) (uint64, error) {
	buf := make([]byte, pagemapEntrySize)
	off := int64(uint64(addr) / pageset.PageSize * pagemapEntrySize)
	if _, err := p.f.ReadAt(buf, off); err != nil {
		return 0, errors.Wrapf(err, "failed to read pagemap entry of %s", addr)
	}
	return binary.LittleEndian.Uint64(buf), nil
}

func (p *pagemap) VirtToPhys(addr pageset.Addr) (PhysAddr, error) {
	entry, err := p.entry(addr)
	if err != nil {
		return 0, err
	}
	return decodePagemapEntry(addr, entry)
}

func (p *pagemap) Blocks() (uint64, error) {
	return 0, ErrUnsupported
}

func (p *pagemap) ReadPhys(PhysAddr) (uint64, error) {
	return 0, ErrUnsupported
}

func (p *pagemap) Close() error {
	return p.f.Close()
}

func init() {
	Register(PagemapBackend, openPagemap)
}
