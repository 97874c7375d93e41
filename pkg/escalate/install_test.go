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
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/intel/pagesteer/pkg/mapping/mappingtest"
	"github.com/intel/pagesteer/pkg/pageset"
	"github.com/intel/pagesteer/pkg/pcp"
)

func testOptions() *Options {
	o := DefaultOptions()
	o.SprayCount = 64
	return o
}

// setupTarget maps a block and locks the neighbourhood of the target.
func setupTarget(t *testing.T, m *mappingtest.Fake, l func(pageset.Addr) Layout) Layout {
	blk := mapRegion(t, m, testBlockSize)
	layout := l(blk)
	require.NoError(t, m.Lock(layout.Target-pageset.PageSize, 3*pageset.PageSize))
	return layout
}

func TestInstall(t *testing.T) {
	m := mappingtest.NewFake(64 << 20)
	ev := &fakeEvictor{}
	p := NewProtocol(m, ev, testOptions())
	l := setupTarget(t, m, FixedLayout)

	ic, err := p.Install(l, p.InstallAddr())
	require.NoError(t, err)
	require.Equal(t, pageset.Addr(0x100000000+pageset.PageTableSpan), ic.Installed)
	require.True(t, m.Marked(ic.Fd))
	require.Equal(t, 1, ev.calls)

	// the file mapping, the first spray slot and the installed page remain
	require.Equal(t, 3, m.MappedFrom(ic.Fd))
	require.True(t, m.Mapped(ic.FileMapping))
	require.True(t, m.Locked(ic.FileMapping))
	require.True(t, m.Mapped(0x100000000))
	require.True(t, m.Mapped(ic.Installed))

	// target and bait have been freed, the neighbours of the target stay
	require.False(t, m.Mapped(l.Target))
	require.False(t, m.Mapped(l.Bait))
	require.True(t, m.Locked(l.Target-pageset.PageSize))
	require.True(t, m.Locked(l.Target+pageset.PageSize))

	fd := ic.Fd
	mark := len(m.Ops())
	require.NoError(t, ic.Release())
	require.Equal(t, []string{
		"close 0x0",
		fmt.Sprintf("munlock %s", ic.FileMapping),
		fmt.Sprintf("munmap %s", ic.FileMapping),
		fmt.Sprintf("munmap %s", ic.Installed),
		"munmap 0x100000000",
	}, m.Ops()[mark:])
	require.True(t, ic.Released())
	require.Empty(t, m.OpenFds())
	require.Zero(t, m.MappedFrom(fd))

	// release happens exactly once
	require.NoError(t, ic.Release())
	require.Len(t, m.Ops(), mark+5)
}

func TestInstallFileTarget(t *testing.T) {
	m := mappingtest.NewFake(64 << 20)
	p := NewProtocol(m, &fakeEvictor{}, testOptions())
	l := setupTarget(t, m, func(blk pageset.Addr) Layout {
		l := FixedLayout(blk)
		l.FileTarget = l.Target + 8*pageset.PageSize
		return l
	})
	require.True(t, m.Mapped(l.FileTarget))

	ic, err := p.Install(l, p.InstallAddr())
	require.NoError(t, err)
	require.False(t, m.Mapped(l.FileTarget))
	require.NoError(t, ic.Release())
}

func TestInstallFailures(t *testing.T) {
	tcs := []struct {
		name string
		fail func(string, pageset.Addr) error
		ev   *fakeEvictor
	}{
		{name: "tmpfile", fail: mappingtest.FailOp("open", 1, unix.EMFILE)},
		{name: "marker", fail: mappingtest.FailOp("write", 1, unix.ENOSPC)},
		{name: "file mapping", fail: mappingtest.FailOp("mmap", 1, unix.ENOMEM)},
		{name: "file lock", fail: mappingtest.FailOp("mlock", 1, unix.EAGAIN)},
		{name: "spray", fail: mappingtest.FailOp("mmap", 20, unix.ENOMEM)},
		{name: "unspray", fail: mappingtest.FailOp("munmap", 520, unix.EINVAL)},
		{name: "install", fail: mappingtest.FailOp("mmap", 2+64, unix.ENOMEM)},
		{name: "eviction", ev: &fakeEvictor{err: errors.New("evict failed")}},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			m := mappingtest.NewFake(64 << 20)
			ev := tc.ev
			if ev == nil {
				ev = &fakeEvictor{}
			}
			p := NewProtocol(m, ev, testOptions())
			l := setupTarget(t, m, FixedLayout)
			m.Fail = tc.fail

			ic, err := p.Install(l, p.InstallAddr())
			require.Error(t, err)
			require.Nil(t, ic)

			// nothing but the remains of the block are left behind
			require.Empty(t, m.OpenFds())
			require.Equal(t, m.MappedPages(), mappedIn(m, l.Target-0x10000, testBlockSize))
			require.LessOrEqual(t, m.LockedPages(), 3)
		})
	}
}

func TestInstallMisaligned(t *testing.T) {
	m := mappingtest.NewFake(64 << 20)
	p := NewProtocol(m, nil, testOptions())
	_, ok := p.ev.(*pcp.Evictor)
	require.True(t, ok)

	_, err := p.Install(FixedLayout(testBlock), 0x100000001)
	require.True(t, errors.Is(err, pageset.ErrInvalidArgument))
	require.Empty(t, m.OpenFds())
}

func mappedIn(m *mappingtest.Fake, start pageset.Addr, size uintptr) int {
	cnt := 0
	for va := start; va < start.Add(size); va = va.Add(pageset.PageSize) {
		if m.Mapped(va) {
			cnt++
		}
	}
	return cnt
}
