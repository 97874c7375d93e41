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
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/intel/pagesteer/pkg/mapping"
	"github.com/intel/pagesteer/pkg/mapping/mappingtest"
	"github.com/intel/pagesteer/pkg/pageset"
)

type fakeEvictor struct {
	calls int
	err   error
}

func (e *fakeEvictor) Evict() error {
	e.calls++
	return e.err
}

func mapRegion(t *testing.T, m *mappingtest.Fake, size uintptr) pageset.Addr {
	addr, err := m.MapAnonymous(size)
	require.NoError(t, err)
	return addr
}

func TestBlockMerge(t *testing.T) {
	m := mappingtest.NewFake(64 << 20)
	ev := &fakeEvictor{}
	base := mapRegion(t, m, 8*pageset.PageSize)

	require.NoError(t, BlockMerge(m, ev, base, 0))
	require.False(t, m.Mapped(base))
	require.Equal(t, 7, m.MappedPages())
	require.Zero(t, ev.calls)

	require.NoError(t, BlockMerge(m, ev, base.Add(4*pageset.PageSize), 2))
	require.Equal(t, 3, m.MappedPages())
	require.Equal(t, 1, ev.calls)

	err := BlockMerge(m, nil, base, 1)
	require.True(t, errors.Is(err, pageset.ErrInvalidArgument))
	err = BlockMerge(m, ev, base+1, 0)
	require.True(t, errors.Is(err, pageset.ErrInvalidArgument))

	ev.err = &mapping.SystemError{Op: "mmap", Errno: unix.ENOMEM}
	err = BlockMerge(m, ev, base, 1)
	require.True(t, errors.Is(err, unix.ENOMEM))
}

func TestMigratetypeEscalation(t *testing.T) {
	m := mappingtest.NewFake(64 << 20)
	ev := &fakeEvictor{}
	bait := mapRegion(t, m, pageset.PageBlockSize)

	allocated := false
	alloc := func() error {
		// the bait block must be gone by the time we allocate
		require.Zero(t, m.MappedPages())
		require.Equal(t, 1, ev.calls)
		allocated = true
		return nil
	}

	require.NoError(t, MigratetypeEscalation(m, ev, bait, BaitOrder, alloc))
	require.True(t, allocated)

	err := MigratetypeEscalation(m, ev, bait, BaitOrder, func() error {
		return errors.New("out of bait")
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "out of bait")

	err = MigratetypeEscalation(m, ev, bait, BaitOrder, nil)
	require.True(t, errors.Is(err, pageset.ErrInvalidArgument))
}

func TestSpray(t *testing.T) {
	m := mappingtest.NewFake(64 << 20)
	fd, err := m.OpenTmpFile("/dev/shm")
	require.NoError(t, err)

	s := &Spray{Base: 0x100000000, Count: 16, Stride: pageset.PageTableSpan, Fd: fd}
	addrs, err := s.Addresses()
	require.NoError(t, err)
	require.Len(t, addrs, 16)
	require.Equal(t, s.Base.Add(pageset.PageTableSpan), addrs[1])

	require.NoError(t, s.Map(m))
	require.Equal(t, 16, m.MappedFrom(fd))
	require.NoError(t, s.Unmap(m))
	require.Equal(t, 1, m.MappedFrom(fd))
	require.True(t, m.Mapped(s.Base))
	require.NoError(t, s.Release(m))
	require.Zero(t, m.MappedPages())

	m.Fail = mappingtest.FailOp("mmap", 5, unix.ENOMEM)
	err = s.Map(m)
	require.True(t, errors.Is(err, unix.ENOMEM))
	require.Equal(t, 4, m.MappedPages())
	m.Fail = nil
	require.NoError(t, s.Clear(m))
	require.Zero(t, m.MappedPages())

	bad := &Spray{Base: 0x100000000, Count: 2, Stride: 100, Fd: fd}
	require.True(t, errors.Is(bad.Map(m), pageset.ErrInvalidArgument))
	require.NoError(t, (&Spray{}).Release(m))
}
