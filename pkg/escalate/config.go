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
	"github.com/pkg/errors"

	"github.com/intel/pagesteer/pkg/config"
	"github.com/intel/pagesteer/pkg/pageset"
)

const (
	// FixedLayoutKind selects FixedLayout.
	FixedLayoutKind = "fixed"
	// RandomLayoutKind selects RandomLayout.
	RandomLayoutKind = "random"
)

// Options configures install rounds.
type Options struct {
	// SprayBase is the address of the first spray page.
	SprayBase pageset.Addr `json:"sprayBase"`
	// SprayCount is the number of page tables sprayed.
	SprayCount int `json:"sprayCount"`
	// SprayStride is the distance of spray pages.
	SprayStride pageset.Bytes `json:"sprayStride"`
	// SprayDir is where the spray file is created.
	SprayDir string `json:"sprayDir"`
	// InstallAddr is where the page table is installed, 0 for the
	// second spray slot.
	InstallAddr pageset.Addr `json:"installAddr"`
	// BlockAddr is where acquired blocks are mapped.
	BlockAddr pageset.Addr `json:"blockAddr"`
	// Layout is the layout kind, fixed or random.
	Layout string `json:"layout"`
	// Seed seeds random layouts, 0 uses the global source.
	Seed int64 `json:"seed"`
	// RateWindow is the number of rounds the success rate is tracked over.
	RateWindow int `json:"rateWindow"`
	// KeepGoing continues with the next round after a round error.
	KeepGoing bool `json:"keepGoing"`
	// Pause is the time slept between rounds.
	Pause config.Duration `json:"pause"`
}

var opt = defaultOptions().(*Options)

func defaultOptions() interface{} {
	return &Options{
		SprayBase:   0x100000000,
		SprayCount:  63000,
		SprayStride: pageset.PageTableSpan,
		SprayDir:    "/dev/shm",
		BlockAddr:   0x200000000000,
		Layout:      FixedLayoutKind,
		RateWindow:  20,
	}
}

// DefaultOptions returns the default round options.
func DefaultOptions() *Options {
	return defaultOptions().(*Options)
}

// Validate checks the options for obvious errors.
func (o *Options) Validate() error {
	switch {
	case o.SprayCount < 2:
		return errors.Wrapf(pageset.ErrInvalidArgument, "spray count %d too small", o.SprayCount)
	case o.SprayStride == 0 || int64(o.SprayStride)%pageset.PageSize != 0:
		return errors.Wrapf(pageset.ErrInvalidArgument, "invalid spray stride %s", o.SprayStride)
	case !pageset.IsPageAligned(o.SprayBase), !pageset.IsPageAligned(o.InstallAddr),
		!pageset.IsPageAligned(o.BlockAddr):
		return errors.Wrap(pageset.ErrInvalidArgument, "spray, install and block addresses must be page-aligned")
	case o.Layout != FixedLayoutKind && o.Layout != RandomLayoutKind:
		return errors.Wrapf(pageset.ErrInvalidArgument, "unknown layout %q", o.Layout)
	case o.Pause < 0:
		return errors.Wrapf(pageset.ErrInvalidArgument, "negative pause %s", o.Pause)
	}
	return nil
}

// Config returns a copy of the runtime round options.
func Config() *Options {
	o := *opt
	return &o
}

const configHelp = `Page-table install rounds.
Each round acquires a block at blockAddr, escalates its bait with a spray
of sprayCount page tables, sprayStride apart from sprayBase, then installs
a page table at installAddr. The default install address is the second
spray slot. Rounds are run pause apart.`

func init() {
	config.Register("escalate", configHelp, opt, defaultOptions,
		config.WithNotify(func(event config.Event, _ config.Source) error {
			if event != config.UpdateEvent {
				return nil
			}
			return opt.Validate()
		}))
}
