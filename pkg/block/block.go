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

// Package block acquires virtually mapped blocks backed by physically
// contiguous memory. The kernel gives no such guarantee to userspace, so
// a block is found heuristically: drain nearly all free memory, pick the
// block at the tail of the drain, then verify its contiguity.
package block

import (
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	logger "github.com/intel/pagesteer/pkg/log"
	"github.com/intel/pagesteer/pkg/mapping"
	"github.com/intel/pagesteer/pkg/oracle"
	"github.com/intel/pagesteer/pkg/pageset"
)

var (
	log = logger.Get("block")
	// retry logging is rate limited, acquisition can take thousands of attempts
	retryLog = logger.RateLimit(log, logger.Interval(time.Second))

	// ErrNotContiguous is returned when the contiguity check of a block fails.
	ErrNotContiguous = errors.New("block is not physically contiguous")
	// ErrTooManyAttempts is returned when MaxAttempts attempts have failed.
	ErrTooManyAttempts = errors.New("too many failed attempts")

	// not enough memory to drain
	errDrain = errors.New("cannot drain memory")
)

// Stats counts the attempts of the last Acquire call.
type Stats struct {
	Attempts      int
	Mismatches    int
	DrainFailures int
}

// Acquirer acquires physically contiguous blocks.
type Acquirer struct {
	m     mapping.Mapper
	o     oracle.Oracle
	opt   *Options
	stats Stats
}

// NewAcquirer creates an acquirer. Nil options select the runtime configuration.
func NewAcquirer(m mapping.Mapper, o oracle.Oracle, opts *Options) *Acquirer {
	if opts == nil {
		opts = opt
	}
	return &Acquirer{m: m, o: o, opt: opts}
}

// BlockSize returns the size of the acquired blocks.
func (a *Acquirer) BlockSize() uintptr {
	return uintptr(a.opt.BlockSize)
}

// Stats returns the statistics of the last Acquire call.
func (a *Acquirer) Stats() Stats {
	return a.stats
}

// TryAcquire makes a single attempt to acquire a block at addr. If the
// contiguity check fails the block is unmapped and ErrNotContiguous is
// returned.
func (a *Acquirer) TryAcquire(addr pageset.Addr) (pageset.Addr, error) {
	size := a.BlockSize()
	if !pageset.IsPageAligned(addr) {
		return 0, errors.Wrapf(pageset.ErrInvalidArgument, "block address %s is not page-aligned", addr)
	}
	if size == 0 || size%pageset.PageSize != 0 {
		return 0, errors.Wrapf(pageset.ErrInvalidArgument, "invalid block size %s", a.opt.BlockSize)
	}

	drain, drainSize, err := a.drain()
	if err != nil {
		return 0, err
	}

	block, err := a.relocate(drain, drainSize, addr)
	if uerr := a.m.Unmap(drain, drainSize); uerr != nil {
		errs := multierror.Append(nil, errors.Wrap(uerr, "failed to release drain"))
		if err == nil && block != 0 {
			if berr := a.m.Unmap(block, size); berr != nil {
				errs = multierror.Append(errs, errors.Wrapf(berr, "failed to release block %s", block))
			}
		}
		return 0, errs.ErrorOrNil()
	}
	if err != nil {
		return 0, err
	}

	if err := a.checkContiguous(block); err != nil {
		if uerr := a.m.Unmap(block, size); uerr != nil {
			log.Error("failed to release block %s: %v", block, uerr)
		}
		return 0, err
	}

	return block, nil
}

// Acquire acquires a block at addr, retrying until success or until
// MaxAttempts attempts have failed. Drain failures and contiguity
// mismatches are retried without backoff, other errors are returned.
func (a *Acquirer) Acquire(addr pageset.Addr) (pageset.Addr, error) {
	a.stats = Stats{}
	start := time.Now()

	for {
		a.stats.Attempts++
		attempts.Inc()

		block, err := a.TryAcquire(addr)
		if err == nil {
			acquisitions.Inc()
			log.Debug("acquired block %s after %d attempts in %s", block, a.stats.Attempts,
				time.Since(start))
			return block, nil
		}

		switch {
		case errors.Is(err, ErrNotContiguous):
			a.stats.Mismatches++
			mismatches.Inc()
		case errors.Is(err, errDrain), mapping.IsSystemError(err):
			a.stats.DrainFailures++
			drainFailures.Inc()
		default:
			return 0, err
		}

		retryLog.Debug("attempt %d failed: %v", a.stats.Attempts, err)

		if a.opt.MaxAttempts > 0 && a.stats.Attempts >= a.opt.MaxAttempts {
			return 0, errors.Wrapf(ErrTooManyAttempts, "block at %s: %d attempts (%d mismatches, %d drain failures)",
				addr, a.stats.Attempts, a.stats.Mismatches, a.stats.DrainFailures)
		}
	}
}

// drain maps all free memory above the reserve.
func (a *Acquirer) drain() (pageset.Addr, uintptr, error) {
	free, err := a.m.FreeMemory()
	if err != nil {
		return 0, 0, errors.Wrap(err, "failed to query free memory")
	}

	reserve := uint64(a.opt.Reserve)
	if free <= reserve+uint64(a.BlockSize()) {
		return 0, 0, errors.Wrapf(errDrain, "%d bytes free, %d reserved", free, reserve)
	}
	size := uintptr(pageset.RoundDown(pageset.Addr(free-reserve), pageset.PageSize))

	addr, err := a.m.MapAnonymous(size)
	if err != nil {
		return 0, 0, errors.Wrap(err, "failed to drain memory")
	}

	return addr, size, nil
}

// relocate parks the block at the tail of the drain at addr.
func (a *Acquirer) relocate(drain pageset.Addr, drainSize uintptr, addr pageset.Addr) (pageset.Addr, error) {
	size := a.BlockSize()
	last := drain.Add(drainSize - pageset.PageSize)

	pa, err := a.o.VirtToPhys(last)
	if err != nil {
		return 0, oracleError(err, last)
	}

	offset := uintptr(uint64(pa) % uint64(size))
	if uintptr(last-drain) < offset+size {
		return 0, errors.Wrapf(errDrain, "drain of %d bytes too small for a block", drainSize)
	}
	candidate := last - pageset.Addr(offset) - pageset.Addr(size)

	block, err := a.m.Remap(candidate, size, addr)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to relocate block %s", candidate)
	}

	log.Debug("relocated candidate %s (tail at %s) to %s", candidate, pa, block)

	return block, nil
}

// checkContiguous verifies that the block starts at a block-aligned
// physical address and ends exactly one block later.
func (a *Acquirer) checkContiguous(block pageset.Addr) error {
	size := uint64(a.BlockSize())
	lastPage := block.Add(uintptr(size) - pageset.PageSize)

	first, err := a.o.VirtToPhys(block)
	if err != nil {
		return oracleError(err, block)
	}
	last, err := a.o.VirtToPhys(lastPage)
	if err != nil {
		return oracleError(err, lastPage)
	}

	if uint64(first)%size != 0 || uint64(last)%size != size-pageset.PageSize {
		return errors.Wrapf(ErrNotContiguous, "%s: first page at %s, last page at %s", block, first, last)
	}

	return nil
}

func oracleError(err error, addr pageset.Addr) error {
	return errors.Wrapf(err, "failed to translate %s", addr)
}
