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

package version

import (
	"bytes"
	"flag"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFprint(t *testing.T) {
	buf := &bytes.Buffer{}
	Fprint(buf)
	require.Contains(t, buf.String(), "version: "+Version)
	require.Contains(t, buf.String(), "build:   "+Build)
	require.Equal(t, Version+" ("+Build+")", String())
}

func TestFlag(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	AddFlag(fs)
	require.NoError(t, fs.Parse([]string{"-version=false"}))
	require.Error(t, fs.Parse([]string{"-version=maybe"}))
}
