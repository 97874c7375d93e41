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

package main

import (
	"flag"
	"fmt"
	"os"
	"syscall"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/intel/pagesteer/pkg/config"
	logger "github.com/intel/pagesteer/pkg/log"
	"github.com/intel/pagesteer/pkg/mapping"
	"github.com/intel/pagesteer/pkg/metrics"
	"github.com/intel/pagesteer/pkg/oracle"
	"github.com/intel/pagesteer/pkg/pidfile"
	"github.com/intel/pagesteer/pkg/sysfs"
	"github.com/intel/pagesteer/pkg/utils"
	"github.com/intel/pagesteer/pkg/utils/cpuset"
	"github.com/intel/pagesteer/pkg/version"
)

var log = logger.Get("pagesteer")

func exit(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, "pagesteer: "+format+"\n", a...)
	logger.Flush()
	os.Exit(1)
}

func usage() {
	w := flag.CommandLine.Output()
	fmt.Fprintf(w, "usage: %s [options] command [command options]\n\ncommands:\n", os.Args[0])
	Usage(w)
	fmt.Fprintf(w, "\noptions:\n")
	flag.PrintDefaults()
}

func main() {
	optConfig := flag.String("config", "", "configuration file to load")
	version.AddFlag(flag.CommandLine)
	flag.Usage = usage
	flag.Parse()

	logger.SetStdLogger("stdlog")
	logger.SetupDebugToggleSignal(syscall.SIGUSR1)

	if *optConfig != "" {
		if err := config.SetConfigFromFile(*optConfig); err != nil {
			exit("%v", err)
		}
	}

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	err := run(flag.Args())
	logger.Flush()

	switch {
	case errors.Is(err, flag.ErrHelp):
		os.Exit(2)
	case err != nil:
		exit("%v", err)
	}
}

func run(args []string) (retErr error) {
	d := NewDriver(os.Stdout, mapping.NewHost(), oracle.OpenDefault)
	defer func() {
		if err := d.Close(); err != nil {
			retErr = multierror.Append(retErr, err)
		}
	}()

	if !NeedsMachine(args[0]) {
		return d.Run(args)
	}

	lock := pidfile.New(opt.PidFile)
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			retErr = multierror.Append(retErr, err)
		}
	}()

	cpus, err := pinnedCPU()
	if err != nil {
		return err
	}
	restore, err := utils.PinThread(cpus)
	if err != nil {
		return err
	}
	defer restore()

	log.Info("%s running %s on CPU %s", version.String(), args[0], cpus)

	defer func() {
		if err := dumpMetrics(opt.MetricsFile); err != nil {
			retErr = multierror.Append(retErr, err)
		}
	}()

	return d.Run(args)
}

func pinnedCPU() (cpuset.CPUSet, error) {
	allowed, err := utils.CurrentCPUs()
	if err != nil {
		return cpuset.New(), err
	}
	online, err := sysfs.OnlineCPUs()
	if err != nil {
		return cpuset.New(), err
	}
	return SelectCPU(opt.CPU, allowed, online)
}

// SelectCPU picks the single CPU to run on. An empty request picks the
// first CPU both allowed and online.
func SelectCPU(request string, allowed, online cpuset.CPUSet) (cpuset.CPUSet, error) {
	usable := allowed.Intersection(online)

	if request == "" {
		if usable.IsEmpty() {
			return cpuset.New(), errors.New("no usable CPUs")
		}
		return cpuset.New(usable.List()[0]), nil
	}

	cpus, err := cpuset.Parse(request)
	if err != nil {
		return cpuset.New(), errors.Wrapf(err, "invalid CPU %q", request)
	}
	if cpus.Size() != 1 {
		return cpuset.New(), errors.Errorf("invalid CPU %q, need exactly one CPU", request)
	}
	if !cpus.IsSubsetOf(usable) {
		return cpuset.New(), errors.Errorf("CPU %s is not usable (allowed %s, online %s)",
			cpus, cpuset.ShortCPUSet(allowed), cpuset.ShortCPUSet(online))
	}
	return cpus, nil
}

func dumpMetrics(path string) error {
	if path == "" {
		return nil
	}

	g, err := metrics.NewMetricGatherer()
	if err != nil {
		return err
	}

	if path == "-" {
		return metrics.Dump(os.Stdout, g)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create metrics file")
	}
	if err := metrics.Dump(f, g); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
