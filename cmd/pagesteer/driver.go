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

// This file implements the commands of the driver.

package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/intel/pagesteer/pkg/block"
	"github.com/intel/pagesteer/pkg/config"
	"github.com/intel/pagesteer/pkg/escalate"
	"github.com/intel/pagesteer/pkg/mapping"
	"github.com/intel/pagesteer/pkg/oracle"
	"github.com/intel/pagesteer/pkg/pageset"
	"github.com/intel/pagesteer/pkg/pcp"
	"github.com/intel/pagesteer/pkg/sysfs"
)

// OpenFn opens the oracle used by the commands.
type OpenFn func() (oracle.Oracle, error)

// Driver runs commands against a mapper and a lazily opened oracle.
type Driver struct {
	w    io.Writer
	f    *flag.FlagSet
	m    mapping.Mapper
	o    oracle.Oracle
	open OpenFn
}

type command struct {
	name    string
	usage   string
	machine bool
	fn      func(*Driver, []string) error
}

var commands = []command{
	{"pcp", "measure the per-CPU list page count around evictions", true, (*Driver).cmdPCP},
	{"block", "acquire physically contiguous blocks", true, (*Driver).cmdBlock},
	{"install", "run page-table install rounds", true, (*Driver).cmdInstall},
	{"translate", "translate virtual addresses or read physical ones", true, (*Driver).cmdTranslate},
	{"status", "show free memory and per-CPU list state", false, (*Driver).cmdStatus},
	{"config", "describe or dump the configuration", false, (*Driver).cmdConfig},
}

func lookupCommand(name string) (*command, bool) {
	for i := range commands {
		if commands[i].name == name {
			return &commands[i], true
		}
	}
	return nil, false
}

// NeedsMachine tells if the named command touches memory or the oracle.
func NeedsMachine(name string) bool {
	cmd, ok := lookupCommand(name)
	return ok && cmd.machine
}

// NewDriver creates a driver writing command output to w.
func NewDriver(w io.Writer, m mapping.Mapper, open OpenFn) *Driver {
	return &Driver{
		w:    w,
		m:    m,
		open: open,
	}
}

func (d *Driver) output(format string, a ...interface{}) {
	fmt.Fprintf(d.w, format, a...)
}

func (d *Driver) openOracle() (oracle.Oracle, error) {
	if d.o != nil {
		return d.o, nil
	}
	o, err := d.open()
	if err != nil {
		return nil, err
	}
	d.o = o
	return o, nil
}

// Close closes the oracle if it was opened.
func (d *Driver) Close() error {
	if d.o == nil {
		return nil
	}
	err := d.o.Close()
	d.o = nil
	return err
}

// Run runs the command given as the first argument.
func (d *Driver) Run(args []string) error {
	if len(args) == 0 {
		return errors.New("missing command")
	}

	cmd, ok := lookupCommand(args[0])
	if !ok {
		return errors.Errorf("unknown command %q", args[0])
	}

	d.f = flag.NewFlagSet(cmd.name, flag.ContinueOnError)
	d.f.SetOutput(d.w)
	d.f.Usage = func() {
		d.output("usage: %s [options]: %s\n", cmd.name, cmd.usage)
		d.f.PrintDefaults()
	}

	log.Debug("running command %s %s", cmd.name, strings.Join(args[1:], " "))
	return cmd.fn(d, args[1:])
}

// Usage writes the list of commands.
func Usage(w io.Writer) {
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", cmd.name, cmd.usage)
	}
}

func (d *Driver) cmdPCP(args []string) error {
	o := pcp.Config()
	count := d.f.Int("count", 1, "number of evictions to measure")
	d.f.StringVar(&o.Method, "method", o.Method, "eviction method, flush or evict")
	d.f.Var(&o.FlushSize, "flush-size", "size of the region released by a flush")
	d.f.IntVar(&o.TmpFiles, "tmpfiles", o.TmpFiles, "number of files released by an evict")
	if err := d.f.Parse(args); err != nil {
		return err
	}

	or, err := d.openOracle()
	if err != nil {
		return err
	}

	ev := pcp.NewEvictor(d.m, o)
	for i := 0; i < *count; i++ {
		before, after, err := ev.Measure(or)
		if err != nil {
			return errors.Wrapf(err, "%s eviction #%d failed", o.Method, i)
		}
		d.output("%s #%d: %d -> %d pages\n", o.Method, i, before, after)
	}
	return nil
}

func (d *Driver) cmdBlock(args []string) error {
	o := block.Config()
	addr := escalate.Config().BlockAddr
	count := d.f.Int("count", 1, "number of blocks to acquire")
	d.f.Var(&addr, "addr", "address acquired blocks are mapped at")
	d.f.Var(&o.Reserve, "reserve", "free memory left undrained")
	d.f.Var(&o.BlockSize, "block-size", "size of the acquired blocks")
	d.f.IntVar(&o.MaxAttempts, "attempts", o.MaxAttempts, "attempts per block, 0 for unlimited")
	if err := d.f.Parse(args); err != nil {
		return err
	}

	or, err := d.openOracle()
	if err != nil {
		return err
	}

	acq := block.NewAcquirer(d.m, or, o)
	for i := 0; i < *count; i++ {
		blk, err := acq.Acquire(addr)
		if err != nil {
			return errors.Wrapf(err, "block #%d", i)
		}
		pa, err := or.VirtToPhys(blk)
		if err == nil {
			d.output("block #%d: %s -> %s (%s)\n", i, blk, pa, o.BlockSize)
		}
		if uerr := d.m.Unmap(blk, acq.BlockSize()); uerr != nil && err == nil {
			err = uerr
		}
		if err != nil {
			return errors.Wrapf(err, "block #%d", i)
		}
	}

	s := acq.Stats()
	d.output("attempts: %d, mismatches: %d, drain failures: %d\n",
		s.Attempts, s.Mismatches, s.DrainFailures)
	return nil
}

func (d *Driver) cmdInstall(args []string) error {
	o := escalate.Config()
	rounds := d.f.Int("rounds", opt.Rounds, "number of rounds to run")
	verbose := d.f.Bool("v", false, "print the layout and addresses of every round")
	d.f.StringVar(&o.Layout, "layout", o.Layout, "layout kind, fixed or random")
	d.f.Int64Var(&o.Seed, "seed", o.Seed, "seed of random layouts, 0 for a random seed")
	d.f.IntVar(&o.SprayCount, "spray-count", o.SprayCount, "number of page tables sprayed")
	d.f.BoolVar(&o.KeepGoing, "keep-going", o.KeepGoing, "continue after rounds failing with an error")
	if err := d.f.Parse(args); err != nil {
		return err
	}
	if err := o.Validate(); err != nil {
		return err
	}

	or, err := d.openOracle()
	if err != nil {
		return err
	}

	proto := escalate.NewProtocol(d.m, pcp.NewEvictor(d.m, nil), o)
	round := escalate.NewRound(block.NewAcquirer(d.m, or, nil), proto, or, o)
	runner := escalate.NewRunner(round, o)

	s, err := runner.Run(*rounds, func(i int, res *escalate.Result, err error) {
		switch {
		case err != nil:
			d.output("round #%d: error: %v\n", i, err)
		case *verbose:
			d.output("round #%d: passed=%v %s target %s file %s entry 0x%x (%s)\n",
				i, res.Passed, res.Layout, res.TargetPhys, res.FilePhys, res.Value, res.Duration)
		default:
			d.output("round #%d: passed=%v (%s)\n", i, res.Passed, res.Duration)
		}
	})

	d.output("rounds: %d, passed: %d, failed: %d, errors: %d\n",
		s.Rounds, s.Passed, s.Failed, s.Errors)
	d.output("success rate: %.2f, average pass time: %s\n", s.Rate, s.AveragePassTime())

	return err
}

func (d *Driver) cmdTranslate(args []string) error {
	phys := d.f.Bool("phys", false, "read the 8-byte values at physical addresses")
	if err := d.f.Parse(args); err != nil {
		return err
	}
	if d.f.NArg() == 0 {
		return errors.Wrap(pageset.ErrInvalidArgument, "missing address")
	}

	or, err := d.openOracle()
	if err != nil {
		return err
	}

	for _, arg := range d.f.Args() {
		addr, err := pageset.ParseAddr(arg)
		if err != nil {
			return err
		}
		if *phys {
			v, err := or.ReadPhys(oracle.PhysAddr(addr))
			if err != nil {
				return err
			}
			d.output("%s: 0x%016x\n", oracle.PhysAddr(addr), v)
			continue
		}
		pa, err := or.VirtToPhys(addr)
		if err != nil {
			return err
		}
		d.output("%s -> %s\n", addr, pa)
	}
	return nil
}

func (d *Driver) cmdStatus(args []string) error {
	if err := d.f.Parse(args); err != nil {
		return err
	}

	free, err := d.m.FreeMemory()
	if err != nil {
		return err
	}
	d.output("free memory: %s\n", pageset.Bytes(free))

	if mi, err := sysfs.ReadMemInfo(sysfs.MemInfoPath); err != nil {
		log.Warn("%v", err)
	} else {
		d.output("available: %s, mlocked: %s, page tables: %s\n",
			pageset.Bytes(mi.MemAvailable), pageset.Bytes(mi.Mlocked), pageset.Bytes(mi.PageTables))
	}

	if zones, err := sysfs.ReadBuddyInfo(sysfs.BuddyInfoPath); err != nil {
		log.Warn("%v", err)
	} else {
		for _, z := range zones {
			d.output("node %d zone %s: %d free pages in page-blocks\n",
				z.Node, z.Zone, z.FreePages(pageset.PageBlockOrder))
		}
	}

	or, err := d.openOracle()
	if err != nil {
		d.output("pcp: unavailable (%v)\n", err)
		return nil
	}
	pages, err := or.Blocks()
	if err != nil {
		d.output("pcp: unavailable (%v)\n", err)
		return nil
	}
	d.output("pcp: %d pages\n", pages)
	return nil
}

func (d *Driver) cmdConfig(args []string) error {
	dump := d.f.Bool("dump", false, "dump the active configuration instead of describing it")
	if err := d.f.Parse(args); err != nil {
		return err
	}

	if !*dump {
		config.Describe(d.w, d.f.Args()...)
		return nil
	}

	data, err := config.GetConfig()
	if err != nil {
		return err
	}
	data.Print(func(format string, a ...interface{}) {
		d.output(format+"\n", a...)
	})
	return nil
}
