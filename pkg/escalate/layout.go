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

package escalate

import (
	"fmt"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/intel/pagesteer/pkg/pageset"
)

const (
	// TargetOffset is the offset of the target page in a fixed layout.
	TargetOffset = 0x10000
	// BaitOrder is the order of the bait block.
	BaitOrder = pageset.PageBlockOrder

	// half of a page-block, the target region of a layout
	targetRegion = pageset.PageBlockSize / 2
	// highest bit flipped by a random layout
	maxFlipBit = pageset.PageShift + pageset.PageBlockOrder - 1
)

// Layout places the pages of an install round inside an acquired block.
type Layout struct {
	// Target is the page which should end up as a page table.
	Target pageset.Addr
	// FileTarget, if set, is freed right before the spray file is
	// instantiated, steering the file page next to the target.
	FileTarget pageset.Addr
	// Bait is the start of the bait block.
	Bait pageset.Addr
	// BaitOrder is the order of the bait block.
	BaitOrder uint
}

// FixedLayout puts the target at TargetOffset and the bait block at the
// middle of the first page-block.
func FixedLayout(block pageset.Addr) Layout {
	return Layout{
		Target:    block.Add(TargetOffset),
		Bait:      block.Add(pageset.PageBlockSize / 2),
		BaitOrder: BaitOrder,
	}
}

// RandomLayout puts the target at a random page of the first half
// page-block, and the file target at the target with one random address
// bit flipped. The flipped bit is above the neighbours of the target and
// below the half page-block, so both pages stay in the same region and
// the same page colour class.
func RandomLayout(block pageset.Addr, rnd *rand.Rand) (Layout, error) {
	// keep both neighbours of the target within the region
	pages, err := pageset.RandomPagesInBlockFrom(rnd, block.Add(pageset.PageSize),
		targetRegion-2*pageset.PageSize, 1)
	if err != nil {
		return Layout{}, err
	}

	lowest := pageset.PageShift + 1
	var bit int
	if rnd != nil {
		bit = lowest + rnd.Intn(maxFlipBit-lowest)
	} else {
		bit = lowest + rand.Intn(maxFlipBit-lowest)
	}

	return Layout{
		Target:     pages[0],
		FileTarget: pageset.FlipBit(pages[0], uint(bit)),
		Bait:       block.Add(pageset.PageBlockSize / 2),
		BaitOrder:  BaitOrder,
	}, nil
}

// NewLayout creates a layout of the given kind for block.
func NewLayout(kind string, block pageset.Addr, rnd *rand.Rand) (Layout, error) {
	switch kind {
	case FixedLayoutKind:
		return FixedLayout(block), nil
	case RandomLayoutKind:
		return RandomLayout(block, rnd)
	}
	return Layout{}, errors.Wrapf(pageset.ErrInvalidArgument, "unknown layout %q", kind)
}

// Validate checks that the layout fits in the block of the given size and
// that the target, its neighbours, the file target and the bait block do
// not overlap.
func (l Layout) Validate(block pageset.Addr, size uintptr) error {
	end := block.Add(size)
	inBlock := func(a pageset.Addr, n uintptr) bool {
		return a >= block && a.Add(n) <= end
	}

	for _, a := range []pageset.Addr{l.Target, l.FileTarget, l.Bait} {
		if !pageset.IsPageAligned(a) {
			return errors.Wrapf(pageset.ErrInvalidArgument, "layout %s: %s not page-aligned", l, a)
		}
	}

	bait := uintptr(pageset.PageSize) << l.BaitOrder
	neighbourhood := l.Target - pageset.PageSize
	switch {
	case !inBlock(neighbourhood, 3*pageset.PageSize):
		return errors.Wrapf(pageset.ErrInvalidArgument, "layout %s: target not within block", l)
	case !inBlock(l.Bait, bait):
		return errors.Wrapf(pageset.ErrInvalidArgument, "layout %s: bait not within block", l)
	case overlaps(neighbourhood, 3*pageset.PageSize, l.Bait, bait):
		return errors.Wrapf(pageset.ErrInvalidArgument, "layout %s: target overlaps bait", l)
	}

	if l.FileTarget != 0 {
		switch {
		case !inBlock(l.FileTarget, pageset.PageSize):
			return errors.Wrapf(pageset.ErrInvalidArgument, "layout %s: file target not within block", l)
		case overlaps(l.FileTarget, pageset.PageSize, neighbourhood, 3*pageset.PageSize),
			overlaps(l.FileTarget, pageset.PageSize, l.Bait, bait):
			return errors.Wrapf(pageset.ErrInvalidArgument, "layout %s: file target overlaps", l)
		}
	}

	return nil
}

// String returns the layout as a string.
func (l Layout) String() string {
	if l.FileTarget == 0 {
		return fmt.Sprintf("<target %s, bait %s/%d>", l.Target, l.Bait, l.BaitOrder)
	}
	return fmt.Sprintf("<target %s, file %s, bait %s/%d>", l.Target, l.FileTarget, l.Bait, l.BaitOrder)
}

func overlaps(a pageset.Addr, alen uintptr, b pageset.Addr, blen uintptr) bool {
	return a < b.Add(blen) && b < a.Add(alen)
}
