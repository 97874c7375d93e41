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

package block

import (
	"github.com/intel/pagesteer/pkg/config"
	"github.com/intel/pagesteer/pkg/pageset"
)

// Options configures block acquisition.
type Options struct {
	// Reserve is the amount of free memory left undrained.
	Reserve pageset.Bytes `json:"reserve"`
	// BlockSize is the size of the acquired blocks.
	BlockSize pageset.Bytes `json:"blockSize"`
	// MaxAttempts bounds the attempts of a single acquisition, 0 is unlimited.
	MaxAttempts int `json:"maxAttempts"`
}

var opt = defaultOptions().(*Options)

func defaultOptions() interface{} {
	return &Options{
		Reserve:   0xc0000000,
		BlockSize: 2 * pageset.PageBlockSize,
	}
}

// DefaultOptions returns the default acquisition options.
func DefaultOptions() *Options {
	return defaultOptions().(*Options)
}

// Config returns a copy of the runtime acquisition options.
func Config() *Options {
	o := *opt
	return &o
}

const configHelp = `Contiguous block acquisition.
All free memory except reserve is drained before picking a candidate
block of blockSize bytes. A reserve too small makes draining fail. Such
attempts are retried, like attempts failing the contiguity check, up to
maxAttempts times.`

func init() {
	config.Register("block", configHelp, opt, defaultOptions)
}
