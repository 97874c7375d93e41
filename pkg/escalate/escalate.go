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

// Package escalate implements migratetype escalation and the page-table
// install protocol. A bait block is released while page tables are
// sprayed, so that the allocator steals the bait block for page-table
// allocations. The target page is then freed into that block and a page
// table is installed on it by mapping the spray file once more. The
// installed page table becomes visible through the file's own mapping.
package escalate

import (
	"github.com/pkg/errors"

	logger "github.com/intel/pagesteer/pkg/log"
	"github.com/intel/pagesteer/pkg/mapping"
	"github.com/intel/pagesteer/pkg/pageset"
)

var log = logger.Get("escalate")

// BaitAllocator allocates pages at the order of a released bait block,
// forcing the allocator to split or steal that block.
type BaitAllocator func() error

// PCPEvictor evicts the per-CPU page lists of the calling CPU.
type PCPEvictor interface {
	Evict() error
}

// BlockMerge unmaps the 2^order pages at target so that the allocator can
// merge them back into a free block. For non-zero orders the per-CPU lists
// are evicted, pushing the freed pages to the global free lists.
func BlockMerge(m mapping.Mapper, ev PCPEvictor, target pageset.Addr, order uint) error {
	if order != 0 && ev == nil {
		return errors.Wrapf(pageset.ErrInvalidArgument, "no PCP evictor for order %d merge", order)
	}

	pages, err := pageset.PagesInSpan(target, order)
	if err != nil {
		return err
	}
	if err := m.UnmapPages(pages); err != nil {
		return errors.Wrapf(err, "failed to merge order %d block at %s", order, target)
	}

	if order == 0 {
		return nil
	}

	if err := ev.Evict(); err != nil {
		return errors.Wrapf(err, "failed to evict PCP after merging %s", target)
	}

	return nil
}

// MigratetypeEscalation releases the order-sized bait block at bait and
// runs alloc, so that the allocator has to serve alloc from the freed
// block, converting its migratetype.
func MigratetypeEscalation(m mapping.Mapper, ev PCPEvictor, bait pageset.Addr, order uint, alloc BaitAllocator) error {
	if alloc == nil {
		return errors.Wrap(pageset.ErrInvalidArgument, "no bait allocator")
	}
	if err := BlockMerge(m, ev, bait, order); err != nil {
		return errors.Wrap(err, "failed to release bait")
	}
	if err := alloc(); err != nil {
		return errors.Wrap(err, "bait allocation failed")
	}
	return nil
}
