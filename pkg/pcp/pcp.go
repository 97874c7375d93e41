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

// Package pcp evicts the per-CPU page lists of the calling CPU, pushing
// cached free pages back to the global free lists of the buddy allocator.
// After eviction the next page allocation on the same CPU is served by
// the global path.
package pcp

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	logger "github.com/intel/pagesteer/pkg/log"
	"github.com/intel/pagesteer/pkg/mapping"
	"github.com/intel/pagesteer/pkg/oracle"
	"github.com/intel/pagesteer/pkg/pageset"
)

var log = logger.Get("pcp")

// Flush maps and immediately releases size bytes of populated anonymous
// memory, overflowing the per-CPU lists into the global free lists.
func Flush(m mapping.Mapper, size uintptr) error {
	addr, err := m.MapAnonymous(size)
	if err != nil {
		return errors.Wrap(err, "pcp flush")
	}
	if err := m.Unmap(addr, size); err != nil {
		return errors.Wrap(err, "pcp flush")
	}
	return nil
}

// Evict is the stronger variant of Flush. It maps populated anonymous
// memory and creates a number of one-page temporary files, each dirtied
// with a marker, then releases all of them together. Everything acquired
// is released on every path, so eviction is never partial.
func Evict(m mapping.Mapper, o *Options) (retErr error) {
	var (
		anon = pageset.Addr(0)
		fds  = make([]int, 0, o.TmpFiles)
	)

	defer func() {
		var errs error
		if anon != 0 {
			if err := m.Unmap(anon, uintptr(o.AnonSize)); err != nil {
				errs = multierror.Append(errs, err)
			}
		}
		for _, fd := range fds {
			if err := m.Close(fd); err != nil {
				errs = multierror.Append(errs, err)
			}
		}
		if errs != nil {
			if retErr == nil {
				retErr = errors.Wrap(errs, "pcp evict: release failed")
			} else {
				retErr = multierror.Append(retErr, errs)
			}
		}
	}()

	if o.AnonSize > 0 {
		addr, err := m.MapAnonymous(uintptr(o.AnonSize))
		if err != nil {
			return errors.Wrap(err, "pcp evict")
		}
		anon = addr
	}

	for i := 0; i < o.TmpFiles; i++ {
		fd, err := m.OpenTmpFile(o.TmpDir)
		if err != nil {
			return errors.Wrapf(err, "pcp evict: tmpfile #%d", i)
		}
		fds = append(fds, fd)
		if err := m.WriteMarker(fd); err != nil {
			return errors.Wrapf(err, "pcp evict: tmpfile #%d", i)
		}
	}

	return nil
}

// Evictor evicts the per-CPU lists using a configured method.
type Evictor struct {
	m   mapping.Mapper
	opt *Options
}

// NewEvictor creates an evictor. Nil options select the runtime configuration.
func NewEvictor(m mapping.Mapper, o *Options) *Evictor {
	if o == nil {
		o = opt
	}
	return &Evictor{m: m, opt: o}
}

// Evict runs one eviction.
func (e *Evictor) Evict() error {
	var err error

	switch e.opt.Method {
	case MethodFlush:
		err = Flush(e.m, uintptr(e.opt.FlushSize))
	case MethodEvict:
		err = Evict(e.m, e.opt)
	default:
		return errors.Wrapf(pageset.ErrInvalidArgument, "unknown pcp eviction method %q", e.opt.Method)
	}

	evictions.WithLabelValues(e.opt.Method, result(err)).Inc()
	if err != nil {
		log.Debug("%s failed: %v", e.opt.Method, err)
	}
	return err
}

// Measure reads the per-CPU list page count before and after an eviction.
func (e *Evictor) Measure(o oracle.Oracle) (before, after uint64, err error) {
	if before, err = o.Blocks(); err != nil {
		return 0, 0, errors.Wrap(err, "pcp measure")
	}
	if err = e.Evict(); err != nil {
		return before, 0, err
	}
	if after, err = o.Blocks(); err != nil {
		return before, 0, errors.Wrap(err, "pcp measure")
	}

	pcpPages.Set(float64(after))
	log.Info("PCP list holds %d pages before and %d pages after eviction", before, after)

	return before, after, nil
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
