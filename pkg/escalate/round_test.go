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

	"github.com/intel/pagesteer/pkg/block"
	"github.com/intel/pagesteer/pkg/mapping/mappingtest"
	"github.com/intel/pagesteer/pkg/oracle"
	"github.com/intel/pagesteer/pkg/oracle/oracletest"
	"github.com/intel/pagesteer/pkg/pageset"
)

// page table entry flags: present, writable, user, accessed, dirty
const pteFlags = 0x67

type roundSetup struct {
	m     *mappingtest.Fake
	o     *oracletest.Fake
	ev    *fakeEvictor
	round *Round
	reads []oracle.PhysAddr
}

// setupRound creates a round on fakes. If installs pass, reading the
// target returns an entry pointing to the spray file.
func setupRound(t *testing.T, opts *Options, passes bool) *roundSetup {
	s := &roundSetup{
		m:  mappingtest.NewFake(1<<20 + 16<<20),
		o:  oracletest.NewFake(),
		ev: &fakeEvictor{},
	}
	s.o.Translate = s.m.Translate
	s.o.Read = func(pa oracle.PhysAddr) (uint64, error) {
		s.reads = append(s.reads, pa)
		fds := s.m.OpenFds()
		if !passes || len(fds) != 1 {
			return 0, nil
		}
		file, _ := s.m.FilePhys(fds[0])
		return uint64(file) | pteFlags, nil
	}

	acq := block.NewAcquirer(s.m, s.o, &block.Options{
		Reserve:   1 << 20,
		BlockSize: testBlockSize,
	})
	s.round = NewRound(acq, NewProtocol(s.m, s.ev, opts), s.o, opts)

	return s
}

func (s *roundSetup) requireClean(t *testing.T) {
	require.Empty(t, s.m.OpenFds())
	require.Zero(t, s.m.MappedPages())
	require.Zero(t, s.m.LockedPages())
}

func TestRoundPasses(t *testing.T) {
	s := setupRound(t, testOptions(), true)

	res, err := s.round.Run()
	require.NoError(t, err)
	require.True(t, res.Passed)
	require.Equal(t, FixedLayout(testBlock), res.Layout)
	require.Equal(t, uint64(res.FilePhys), res.Value&FrameMask)
	require.Equal(t, []oracle.PhysAddr{res.TargetPhys}, s.reads)
	require.NotZero(t, res.Duration)
	require.Equal(t, 1, s.ev.calls)
	s.requireClean(t)
}

func TestRoundFails(t *testing.T) {
	s := setupRound(t, testOptions(), false)

	res, err := s.round.Run()
	require.NoError(t, err)
	require.False(t, res.Passed)
	require.Zero(t, res.Value)
	s.requireClean(t)
}

func TestRoundRandomLayout(t *testing.T) {
	opts := testOptions()
	opts.Layout = RandomLayoutKind
	opts.Seed = 42

	for i := 0; i < 5; i++ {
		s := setupRound(t, opts, true)
		res, err := s.round.Run()
		require.NoError(t, err)
		require.True(t, res.Passed)
		require.NotZero(t, res.Layout.FileTarget)
		s.requireClean(t)
	}
}

func TestRoundErrors(t *testing.T) {
	tcs := []struct {
		name  string
		fail  func(string, pageset.Addr) error
		errno unix.Errno
	}{
		// mmap calls: drain, file mapping, 64 spray pages, install
		{name: "spray", fail: mappingtest.FailOp("mmap", 10, unix.ENOMEM), errno: unix.ENOMEM},
		{name: "install", fail: mappingtest.FailOp("mmap", 67, unix.ENOMEM), errno: unix.ENOMEM},
		{name: "target lock", fail: mappingtest.FailOp("mlock", 1, unix.EAGAIN), errno: unix.EAGAIN},
		{name: "spray file", fail: mappingtest.FailOp("open", 1, unix.EMFILE), errno: unix.EMFILE},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			s := setupRound(t, testOptions(), true)
			s.m.Fail = tc.fail

			res, err := s.round.Run()
			require.Nil(t, res)
			require.True(t, errors.Is(err, tc.errno), "%v", err)
			s.requireClean(t)
		})
	}
}

func TestRoundSprayFailureClosesFd(t *testing.T) {
	s := setupRound(t, testOptions(), true)
	before := len(s.m.OpenFds())

	// fail halfway through the spray, with the spray file open and locked
	failing := mappingtest.FailOp("mmap", 34, unix.ENOMEM)
	failed := false
	s.m.Fail = func(op string, addr pageset.Addr) error {
		err := failing(op, addr)
		if err != nil {
			failed = true
		}
		return err
	}

	res, err := s.round.Run()
	require.Nil(t, res)
	require.True(t, errors.Is(err, unix.ENOMEM), "%v", err)
	require.True(t, failed)
	require.Equal(t, 1, s.m.Count("open"))
	require.Equal(t, 1, s.m.Count("close"))
	require.Equal(t, before, len(s.m.OpenFds()))
	s.requireClean(t)
}

func TestRoundCleanupError(t *testing.T) {
	s := setupRound(t, testOptions(), true)
	s.m.Fail = mappingtest.FailOp("close", 1, unix.EIO)

	res, err := s.round.Run()
	require.Nil(t, res)
	require.True(t, errors.Is(err, unix.EIO))
	require.Zero(t, s.m.MappedPages())
	require.Zero(t, s.m.LockedPages())
}

func TestRoundOracleError(t *testing.T) {
	s := setupRound(t, testOptions(), true)
	s.o.Read = func(oracle.PhysAddr) (uint64, error) {
		return 0, errors.New("read failed")
	}

	_, err := s.round.Run()
	require.Error(t, err)
	s.requireClean(t)
}
