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

package log

import (
	stdlog "log"
	"strings"
)

// stdlogger is an io.Writer passing lines of the standard log package
// to a Logger.
type stdlogger struct {
	l Logger
}

// SetStdLogger redirects the standard log package to the logger of the
// given source, or the default logger if source is empty. Messages are
// emitted at info level.
func SetStdLogger(source string) {
	var l Logger = Default()
	if source != "" {
		l = log.get(source)
	}

	stdlog.SetPrefix("")
	stdlog.SetFlags(0)
	stdlog.SetOutput(&stdlogger{l: l})
}

func (s *stdlogger) Write(p []byte) (int, error) {
	s.l.Info("%s", strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}
