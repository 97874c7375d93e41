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

package config

import (
	"fmt"
	"os"
)

// pkg/log registers itself as a configuration module, so it can't be
// imported here. It sets our logger with SetLogger instead.

// Logger is our set of logging functions.
type Logger struct {
	DebugEnabled func() bool
	Debug        func(string, ...interface{})
	Info         func(string, ...interface{})
	Warning      func(string, ...interface{})
	Error        func(string, ...interface{})
	Fatal        func(string, ...interface{})
	Panic        func(string, ...interface{})
}

// log is our Logger.
var log = defaultLogger()

// SetLogger sets our logger. Unset functions are left intact.
func SetLogger(logger Logger) {
	if logger.DebugEnabled != nil {
		log.DebugEnabled = logger.DebugEnabled
	}
	if logger.Debug != nil {
		log.Debug = logger.Debug
	}
	if logger.Info != nil {
		log.Info = logger.Info
	}
	if logger.Warning != nil {
		log.Warning = logger.Warning
	}
	if logger.Error != nil {
		log.Error = logger.Error
	}
	if logger.Fatal != nil {
		log.Fatal = logger.Fatal
	}
	if logger.Panic != nil {
		log.Panic = logger.Panic
	}
}

func defaultLogger() Logger {
	return Logger{
		DebugEnabled: func() bool { return false },
		Debug:        func(string, ...interface{}) {},
		Info:         logmsg("I: [config] "),
		Warning:      logmsg("W: [config] "),
		Error:        logmsg("E: [config] "),
		Fatal: func(format string, args ...interface{}) {
			logmsg("E: [config] fatal error: ")(format, args...)
			os.Exit(1)
		},
		Panic: func(format string, args ...interface{}) {
			logmsg("E: [config] ")(format, args...)
			panic(fmt.Sprintf(format, args...))
		},
	}
}

func logmsg(prefix string) func(string, ...interface{}) {
	return func(format string, args ...interface{}) {
		fmt.Fprintf(os.Stderr, prefix+format+"\n", args...)
	}
}
