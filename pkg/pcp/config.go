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

package pcp

import (
	"github.com/intel/pagesteer/pkg/config"
	"github.com/intel/pagesteer/pkg/pageset"
)

const (
	// MethodFlush releases one large anonymous region.
	MethodFlush = "flush"
	// MethodEvict releases anonymous memory and many dirtied tmpfiles.
	MethodEvict = "evict"
)

// Options configures PCP eviction.
type Options struct {
	// Method is the eviction method used by the Evictor.
	Method string `json:"method"`
	// FlushSize is the size of the region released by a flush.
	FlushSize pageset.Bytes `json:"flushSize"`
	// AnonSize is the anonymous memory released by an evict.
	AnonSize pageset.Bytes `json:"anonSize"`
	// TmpFiles is the number of one-page files released by an evict.
	TmpFiles int `json:"tmpFiles"`
	// TmpDir is where the files are created.
	TmpDir string `json:"tmpDir"`
}

var opt = defaultOptions().(*Options)

func defaultOptions() interface{} {
	return &Options{
		Method:    MethodFlush,
		FlushSize: 32 << 20,
		AnonSize:  2 << 20,
		TmpFiles:  1000,
		TmpDir:    "/tmp",
	}
}

// DefaultOptions returns the default eviction options.
func DefaultOptions() *Options {
	return defaultOptions().(*Options)
}

// Config returns a copy of the runtime eviction options.
func Config() *Options {
	o := *opt
	return &o
}

const configHelp = `PCP eviction.
Method flush maps and releases flushSize bytes of anonymous memory. Method
evict releases anonSize bytes of anonymous memory together with tmpFiles
one-page files created in tmpDir.`

func init() {
	config.Register("pcp", configHelp, opt, defaultOptions)
}
