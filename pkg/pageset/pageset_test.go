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
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

const testBase = Addr(0x100000000)

func TestIsPageAligned(t *testing.T) {
	require.True(t, IsPageAligned(testBase))
	require.False(t, IsPageAligned(testBase+1))
	require.True(t, IsPageAligned(0))
	require.False(t, IsPageAligned(testBase+PageSize/2))

	_, err := NewAddr(uintptr(testBase) + 8)
	require.True(t, errors.Is(err, ErrInvalidArgument))
	a, err := NewAddr(uintptr(testBase))
	require.NoError(t, err)
	require.Equal(t, "0x100000000", a.String())
}

func TestPagesInSpan(t *testing.T) {
	for order := uint(0); order <= PageBlockOrder+1; order++ {
		pages, err := PagesInSpan(testBase, order)
		require.NoError(t, err)
		require.Len(t, pages, 1<<order)
		require.Equal(t, testBase, pages[0])
		for i := 1; i < len(pages); i++ {
			require.Equal(t, pages[i-1]+PageSize, pages[i])
		}
	}

	_, err := PagesInSpan(testBase+1, 0)
	require.Equal(t, ErrInvalidArgument, errors.Cause(err))
}

func TestPagesInSpanOrderRange(t *testing.T) {
	for _, order := range []uint{MaxSpanOrder + 1, 52, 63, 64, 200} {
		pages, err := PagesInSpan(testBase, order)
		require.Nil(t, pages, "order %d", order)
		require.Equal(t, ErrInvalidArgument, errors.Cause(err), "order %d", order)
	}

	top := Addr(^uintptr(0)) &^ (PageSize - 1)
	_, err := PagesInSpan(top, 1)
	require.Equal(t, ErrInvalidArgument, errors.Cause(err))

	pages, err := PagesInSpan(top, 0)
	require.NoError(t, err)
	require.Equal(t, []Addr{top}, pages)
}

func TestStridedAddresses(t *testing.T) {
	tcs := []struct {
		name    string
		base    Addr
		count   int
		stride  uintptr
		expect  []Addr
		invalid bool
	}{
		{
			name:   "page stride",
			base:   testBase,
			count:  3,
			stride: PageSize,
			expect: []Addr{testBase, testBase + PageSize, testBase + 2*PageSize},
		},
		{
			name:   "page table stride",
			base:   testBase,
			count:  2,
			stride: PageTableSpan,
			expect: []Addr{testBase, testBase + PageTableSpan},
		},
		{
			name:   "zero count",
			base:   testBase,
			count:  0,
			stride: PageSize,
			expect: []Addr{},
		},
		{
			name:    "zero stride",
			base:    testBase,
			count:   1,
			invalid: true,
		},
		{
			name:    "unaligned stride",
			base:    testBase,
			count:   1,
			stride:  PageSize + 1,
			invalid: true,
		},
		{
			name:    "unaligned base",
			base:    testBase + 0x10,
			count:   1,
			stride:  PageSize,
			invalid: true,
		},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			addrs, err := StridedAddresses(tc.base, tc.count, tc.stride)
			if tc.invalid {
				require.True(t, errors.Is(err, ErrInvalidArgument))
				return
			}
			require.NoError(t, err)
			require.Empty(t, cmp.Diff(tc.expect, addrs))
		})
	}
}

func TestStridedAddressesAreUnique(t *testing.T) {
	for _, stride := range []uintptr{PageSize, 2 * PageSize} {
		for n := 1; n <= 64; n++ {
			addrs, err := StridedAddresses(testBase, n, stride)
			require.NoError(t, err)
			seen := map[Addr]struct{}{}
			for _, a := range addrs {
				_, dup := seen[a]
				require.False(t, dup, "duplicate address %s", a)
				seen[a] = struct{}{}
			}
		}
	}
}

func TestRandomPagesInBlock(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	const blockSize = 8 * PageSize

	hits := map[Addr]int{}
	for i := 0; i < 1000; i++ {
		pages, err := RandomPagesInBlockFrom(rnd, testBase, blockSize, 1)
		require.NoError(t, err)
		require.Len(t, pages, 1)
		require.True(t, pages[0] >= testBase && pages[0] < testBase+blockSize)
		require.True(t, IsPageAligned(pages[0]))
		hits[pages[0]]++
	}
	require.Len(t, hits, blockSize/PageSize, "every page should be reachable")

	pages, err := RandomPagesInBlockFrom(rnd, testBase, blockSize, blockSize/PageSize)
	require.NoError(t, err)
	all, err := PagesInSpan(testBase, 3)
	require.NoError(t, err)
	require.ElementsMatch(t, all, pages)

	pages, err = RandomPagesInBlock(testBase, PageBlockSize, 16)
	require.NoError(t, err)
	require.Len(t, pages, 16)

	invalid := []struct {
		block     Addr
		blockSize uintptr
		count     int
	}{
		{testBase, 0, 1},
		{testBase, PageSize + 1, 1},
		{testBase + 1, PageSize, 1},
		{testBase, PageSize, 0},
		{testBase, PageSize, 2},
	}
	for _, tc := range invalid {
		_, err := RandomPagesInBlock(tc.block, tc.blockSize, tc.count)
		require.True(t, errors.Is(err, ErrInvalidArgument), "%+v", tc)
	}
}

func TestErasePages(t *testing.T) {
	pages, err := PagesInSpan(testBase, 4)
	require.NoError(t, err)
	orig := append([]Addr{}, pages...)

	n, err := ErasePages(&pages, nil)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Equal(t, orig, pages)

	victims := []Addr{orig[0], orig[5], orig[15]}
	n, err = ErasePages(&pages, victims)
	require.NoError(t, err)
	require.Equal(t, len(victims), n)
	require.Len(t, pages, len(orig)-len(victims))
	for _, v := range victims {
		require.NotContains(t, pages, v)
	}

	n, err = ErasePages(&pages, []Addr{testBase + 1})
	require.True(t, errors.Is(err, ErrInvalidArgument))
	require.Zero(t, n)
	require.Len(t, pages, len(orig)-len(victims))
}

func TestRounding(t *testing.T) {
	require.Equal(t, testBase, RoundDown(testBase+PageBlockSize-1, PageBlockSize))
	require.Equal(t, testBase+PageBlockSize, RoundUp(testBase+1, PageBlockSize))
	require.Equal(t, testBase, RoundUp(testBase, PageBlockSize))
	require.Equal(t, testBase+0x4000, FlipBit(testBase, 14))
	require.Equal(t, testBase, FlipBit(FlipBit(testBase, 14), 14))
}
