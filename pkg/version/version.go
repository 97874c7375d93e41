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

// Package version tags built binaries with version metadata. Override
// the defaults at link time, for instance:
//
//	-ldflags "-X=github.com/intel/pagesteer/pkg/version.Version=<version> \
//	          -X=github.com/intel/pagesteer/pkg/version.Build=<build-id>"
package version

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
)

var (
	// Version is our version as given by 'git describe'.
	Version = "unknown"
	// Build is the SHA1 of the repository we've been built from.
	Build = "unknown"
)

// Fprint writes version information about this binary to w.
func Fprint(w io.Writer) {
	fmt.Fprintf(w, "%s version information:\n", filepath.Base(os.Args[0]))
	fmt.Fprintf(w, "  - version: %s\n", Version)
	fmt.Fprintf(w, "  - build:   %s\n", Build)
	fmt.Fprintf(w, "  - go:      %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// String returns a one-line version string.
func String() string {
	return Version + " (" + Build + ")"
}

// flag.Value hooking into -version.
type versionFlag struct {
	fs *flag.FlagSet
}

func (versionFlag) IsBoolFlag() bool {
	return true
}

func (v versionFlag) Set(value string) error {
	print, err := strconv.ParseBool(value)
	if err != nil {
		return err
	}
	if print {
		Fprint(v.fs.Output())
		os.Exit(0)
	}
	return nil
}

func (versionFlag) String() string {
	return "false"
}

// AddFlag puts a -version option in place in the given flag set.
func AddFlag(fs *flag.FlagSet) {
	fs.Var(versionFlag{fs: fs}, "version", "print version information and exit")
}
