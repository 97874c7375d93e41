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

// Package testutils has assertion helpers shared by our tests.
package testutils

import (
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/require"
)

// RequireErrors checks that err is a multierror with count errors and
// that its message contains all the given substrings. A count of 0
// requires err to be nil, a negative count accepts any non-nil error.
func RequireErrors(t *testing.T, err error, count int, substrings ...string) {
	t.Helper()

	if count == 0 {
		require.NoError(t, err)
		return
	}

	require.Error(t, err)
	if count > 0 {
		merr, ok := err.(*multierror.Error)
		require.True(t, ok, "expected multierror, got %#v", err)
		require.Len(t, merr.Errors, count, "unexpected errors: %v", merr)
	}
	for _, s := range substrings {
		require.Contains(t, err.Error(), s)
	}
}
