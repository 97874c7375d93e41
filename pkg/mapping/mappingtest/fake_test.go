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

package mappingtest

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/intel/pagesteer/pkg/mapping"
	"github.com/intel/pagesteer/pkg/oracle"
	"github.com/intel/pagesteer/pkg/pageset"
)

func TestFakeAccounting(t *testing.T) {
	f := NewFake(16 << 20)

	fd, err := f.OpenTmpFile("/tmp")
	require.NoError(t, err)
	require.Equal(t, []int{FirstFd}, f.OpenFds())
	require.NoError(t, f.WriteMarker(fd))
	require.True(t, f.Marked(fd))

	pages, err := pageset.StridedAddresses(0x100000000, 3, pageset.PageTableSpan)
	require.NoError(t, err)
	require.NoError(t, f.MapPages(pages, fd))
	require.Equal(t, 3, f.MappedFrom(fd))

	pa, ok := f.FilePhys(fd)
	require.True(t, ok)
	got, err := f.Translate(pages[2].Add(8))
	require.NoError(t, err)
	require.Equal(t, pa+8, got)

	require.NoError(t, f.UnmapPages(pages[1:]))
	require.Equal(t, 1, f.MappedPages())
	require.NoError(t, f.Close(fd))
	require.Empty(t, f.OpenFds())
	require.True(t, f.Mapped(pages[0]))

	_, err = f.Translate(pages[1])
	require.True(t, errors.Is(err, oracle.ErrNotPresent))

	require.True(t, mapping.IsSystemError(f.Close(fd)))
}

func TestFakeAnonymousAndRemap(t *testing.T) {
	f := NewFake(16 << 20)

	addr, err := f.MapAnonymous(4 * pageset.PageSize)
	require.NoError(t, err)
	require.Equal(t, AnonBase, addr)

	first, err := f.Translate(addr)
	require.NoError(t, err)
	last, err := f.Translate(addr.Add(3 * pageset.PageSize))
	require.NoError(t, err)
	require.Equal(t, first+3*oracle.PhysAddr(pageset.PageSize), last)

	dst := pageset.Addr(0x200000000)
	moved, err := f.Remap(addr.Add(pageset.PageSize), 2*pageset.PageSize, dst)
	require.NoError(t, err)
	require.Equal(t, dst, moved)
	require.False(t, f.Mapped(addr.Add(pageset.PageSize)))

	pa, err := f.Translate(dst)
	require.NoError(t, err)
	require.Equal(t, first+oracle.PhysAddr(pageset.PageSize), pa)

	require.NoError(t, f.Lock(dst, 2*pageset.PageSize))
	require.Equal(t, 2, f.LockedPages())
	require.True(t, mapping.IsSystemError(f.Lock(dst, 3*pageset.PageSize)))
	require.NoError(t, f.Unmap(dst, 4*pageset.PageSize))
	require.Zero(t, f.LockedPages())

	_, err = f.MapAnonymous(32 << 20)
	require.True(t, errors.Is(err, unix.ENOMEM))
}

func TestFakeFailures(t *testing.T) {
	f := NewFake(16 << 20)
	f.Fail = FailOp("open", 2, unix.EMFILE)

	_, err := f.OpenTmpFile("/tmp")
	require.NoError(t, err)
	_, err = f.OpenTmpFile("/tmp")
	require.True(t, errors.Is(err, unix.EMFILE))
	_, err = f.OpenTmpFile("/tmp")
	require.NoError(t, err)
	require.Equal(t, 3, f.Count("open"))

	err = f.MapPages([]pageset.Addr{0x1001}, FirstFd)
	require.True(t, errors.Is(err, pageset.ErrInvalidArgument))
}
