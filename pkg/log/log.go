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
	"fmt"
	"sort"
	"strings"
	"sync"
)

// logging is the runtime state shared by all loggers.
type logging struct {
	sync.RWMutex
	level    Level                // lowest unsuppressed severity
	active   Backend              // currently active backend
	backend  map[string]BackendFn // registered backends
	loggers  map[string]*logger   // loggers by source
	forced   bool                 // forced full debugging
	maxAlign int                  // longest source name seen
}

// log is our logging runtime state.
var log = &logging{
	level:   DefaultLevel,
	backend: make(map[string]BackendFn),
	loggers: make(map[string]*logger),
}

// Get returns the named Logger, creating it if necessary.
func Get(source string) Logger {
	return log.get(source)
}

// NewLogger is an alias for Get.
func NewLogger(source string) Logger {
	return log.get(source)
}

// SetLevel sets the lowest severity level of messages to pass through.
func SetLevel(level Level) {
	log.Lock()
	defer log.Unlock()
	log.setLevel(level)
}

// SetBackend activates the named Backend.
func SetBackend(name string) error {
	log.Lock()
	defer log.Unlock()
	return log.setBackend(name)
}

// Flush flushes any initially buffered messages of the active backend.
func Flush() {
	log.RLock()
	active := log.active
	log.RUnlock()
	if active != nil {
		active.Flush()
	}
}

// Sync waits until all pending messages are emitted.
func Sync() {
	log.RLock()
	active := log.active
	log.RUnlock()
	if active != nil {
		active.Sync()
	}
}

// Sources returns the names of all known logger sources.
func Sources() []string {
	log.RLock()
	defer log.RUnlock()

	names := make([]string, 0, len(log.loggers))
	for name := range log.loggers {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// get returns the logger for source, creating it if necessary.
func (log *logging) get(source string) *logger {
	source = strings.Trim(source, "[] ")

	log.Lock()
	defer log.Unlock()

	if l, ok := log.loggers[source]; ok {
		return l
	}

	l := newLogger(source, opt.Enable.isEnabled(source), opt.Debug.isEnabled(source))
	log.loggers[source] = l

	if len(source) > log.maxAlign {
		log.maxAlign = len(source)
		if log.active != nil {
			log.active.SetSourceAlignment(log.maxAlign)
		}
	}

	return l
}

// setLevel sets the severity threshold, with the lock held.
func (log *logging) setLevel(level Level) {
	log.level = level
}

// setBackend switches to the named backend, with the lock held.
func (log *logging) setBackend(name string) error {
	if log.active != nil && log.active.Name() == name {
		return nil
	}

	fn, ok := log.backend[name]
	if !ok {
		return loggerError("unknown logger backend %q", name)
	}

	old := log.active
	log.active = fn()
	log.active.SetSourceAlignment(log.maxAlign)

	if old != nil {
		old.Flush()
		old.Stop()
	}

	return nil
}

// update updates the logging and debugging state of all loggers, with the lock held.
func (log *logging) update(enable, debug srcmap) {
	for source, l := range log.loggers {
		if enable != nil {
			l.logging = enable.isEnabled(source)
		}
		if debug != nil {
			l.debugging = debug.isEnabled(source)
		}
	}
}

// forceDebug turns forced full debugging on or off.
func (log *logging) forceDebug(state bool) bool {
	log.Lock()
	defer log.Unlock()

	old := log.forced
	log.forced = state

	return old
}

// debugForced returns whether full debugging is forced on.
func (log *logging) debugForced() bool {
	log.RLock()
	defer log.RUnlock()
	return log.forced
}

// isEnabled checks if the given source is enabled in the map.
func (m srcmap) isEnabled(source string) bool {
	if state, ok := m[source]; ok {
		return state
	}
	if state, ok := m["*"]; ok {
		return state
	}
	return false
}

func loggerError(format string, args ...interface{}) error {
	return fmt.Errorf("logger: "+format, args...)
}
