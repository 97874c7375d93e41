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

package oracle

import (
	"github.com/hashicorp/go-multierror"

	"github.com/intel/pagesteer/pkg/pageset"
)

// composite answers each query with a dedicated oracle.
type composite struct {
	translator Oracle
	reader     Oracle
	counter    Oracle
}

// Compose returns an Oracle which translates with translator, reads with
// reader and counts PCP pages with counter. counter may be nil. Closing the
// result closes all given oracles.
func Compose(translator, reader, counter Oracle) Oracle {
	return &composite{
		translator: translator,
		reader:     reader,
		counter:    counter,
	}
}

func openPagemapDevMem(o *Options) (Oracle, error) {
	translator, err := openPagemap(o)
	if err != nil {
		return nil, err
	}
	reader, err := openDevMem(o)
	if err != nil {
		translator.Close()
		return nil, err
	}
	return Compose(translator, reader, nil), nil
}

func (c *composite) Blocks() (uint64, error) {
	if c.counter == nil {
		return 0, ErrUnsupported
	}
	return c.counter.Blocks()
}

func (c *composite) VirtToPhys(addr pageset.Addr) (PhysAddr, error) {
	return c.translator.VirtToPhys(addr)
}

func (c *composite) ReadPhys(pa PhysAddr) (uint64, error) {
	return c.reader.ReadPhys(pa)
}

func (c *composite) Close() error {
	var errs *multierror.Error
	closed := map[Oracle]struct{}{}
	for _, o := range []Oracle{c.translator, c.reader, c.counter} {
		if o == nil {
			continue
		}
		if _, ok := closed[o]; ok {
			continue
		}
		closed[o] = struct{}{}
		if err := o.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

func init() {
	Register(PagemapDevMemBackend, openPagemapDevMem)
}
