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
	"encoding/json"
	"flag"
	"sort"
	"strings"

	pkgcfg "github.com/intel/pagesteer/pkg/config"
	"github.com/intel/pagesteer/pkg/utils"
)

const (
	// DefaultLevel is the default logging severity level.
	DefaultLevel = LevelInfo
	// command-line argument prefix.
	optPrefix = "logger"
	// Flag for enabling/disabling normal non-debug logging for sources.
	optEnable = optPrefix + "-sources"
	// Flag for enabling/disabling debug logging for sources.
	optDebug = optPrefix + "-debug"
	// Flag for selecting logging level.
	optLevel = optPrefix + "-level"
	// Flag for selecting logging backend.
	optLogger = optPrefix
	// configModule is our module name in the runtime configuration.
	configModule = optPrefix
)

// Logger options configurable via the command line or pkg/config.
type options struct {
	// Level is the logging severity/level.
	Level Level
	// Enable is a map for enabling/disabling normal logging for sources.
	Enable srcmap
	// Debug is a map for enabling/disabling debug logging for sources.
	Debug srcmap
	// Logger is the name of the logger backend to use.
	Logger backendName
}

// srcmap tracks logging or debugging settings for sources.
type srcmap map[string]bool

// backendName is a name for a Backend.
type backendName string

// Default configuration given on the command line (or set via pkg/flag).
var defaults = &options{
	Logger: FmtBackendName,
	Level:  DefaultLevel,
	Enable: srcmap{"*": true},
	Debug:  make(srcmap),
}

// Runtime configuration, from the command line or a configuration file.
var opt = &options{
	Logger: FmtBackendName,
	Level:  DefaultLevel,
	Enable: srcmap{"*": true},
	Debug:  make(srcmap),
}

// Set sets the level from the given name.
func (l *Level) Set(value string) error {
	level, err := parseLevel(value)
	if err != nil {
		return err
	}

	*l = level
	opt.Level = level
	SetLevel(level)

	return nil
}

// MarshalJSON is the JSON marshaller for Level.
func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON is the JSON unmarshaller for Level.
func (l *Level) UnmarshalJSON(raw []byte) error {
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return loggerError("invalid logging level %s: %v", string(raw), err)
	}
	level, err := parseLevel(name)
	if err != nil {
		return err
	}
	*l = level
	return nil
}

// levelNames are indexed by Level.
var levelNames = [levelHighest]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warning",
	LevelError: "error",
	LevelPanic: "panic",
	LevelFatal: "fatal",
}

func parseLevel(value string) (Level, error) {
	value = strings.ToLower(value)
	for l, name := range levelNames {
		if name == value {
			return Level(l), nil
		}
	}
	return LevelInfo, loggerError("invalid logging level %s", value)
}

// String returns the name of the level, unknown levels are reported as info.
func (l Level) String() string {
	if l < 0 || l >= levelHighest {
		l = LevelInfo
	}
	return levelNames[l]
}

// Set sets the name of the active Backend.
func (n *backendName) Set(value string) error {
	if err := SetBackend(value); err != nil {
		return err
	}
	*n = backendName(value)
	opt.Logger = *n

	return nil
}

// String returns the name of the active backend.
func (n backendName) String() string {
	return string(n)
}

// Set sets entries of srcmap by parsing the given value.
func (m *srcmap) Set(value string) error {
	log.Lock()
	defer log.Unlock()

	sm := *m
	prev, state, src := "", "", ""
	for _, entry := range strings.Split(value, ",") {
		statesrc := strings.Split(entry, ":")
		switch len(statesrc) {
		case 2:
			state, src = statesrc[0], statesrc[1]
		case 1:
			state, src = "", statesrc[0]
		default:
			return loggerError("invalid state spec '%s' in source map", entry)
		}

		if state != "" {
			prev = state
		} else {
			state = prev
			if state == "" {
				state = "on"
			}
		}
		enabled, err := utils.ParseEnabled(state)
		if err != nil {
			return loggerError("invalid state '%s' in source map", state)
		}
		sm[sourceName(src)] = enabled
	}

	// propagate command-line to runtime defaults, reconfigure loggers
	if m == &defaults.Enable {
		opt.Enable.copy(sm)
		log.update(opt.Enable, nil)
	}
	if m == &defaults.Debug {
		opt.Debug.copy(sm)
		log.update(nil, opt.Debug)
	}

	return nil
}

// String returns the srcmap as an "on:a,b,off:c" list.
func (m *srcmap) String() string {
	log.RLock()
	defer log.RUnlock()

	on, off := m.split()
	switch {
	case len(off) == 0:
		return "on:" + strings.Join(on, ",")
	case len(on) == 0:
		return "off:" + strings.Join(off, ",")
	}
	return "on:" + strings.Join(on, ",") + ",off:" + strings.Join(off, ",")
}

// split returns the sorted enabled and disabled sources.
func (m srcmap) split() ([]string, []string) {
	on, off := []string{}, []string{}
	for src, state := range m {
		if state {
			on = append(on, src)
		} else {
			off = append(off, src)
		}
	}
	sort.Strings(on)
	sort.Strings(off)
	return on, off
}

// MarshalJSON is the JSON marshaller for srcmap.
func (m srcmap) MarshalJSON() ([]byte, error) {
	on, off := m.split()
	return json.Marshal(map[string][]string{"on": on, "off": off})
}

// UnmarshalJSON accepts a {state: [sources]} map, with any state
// ParseEnabled understands, or a string in command line syntax.
func (m *srcmap) UnmarshalJSON(raw []byte) error {
	*m = make(srcmap)

	states := map[string][]string{}
	if err := json.Unmarshal(raw, &states); err == nil {
		for state, sources := range states {
			enabled, err := utils.ParseEnabled(state)
			if err != nil {
				return loggerError("invalid state '%s' in logger source map", state)
			}
			for _, src := range sources {
				(*m)[sourceName(src)] = enabled
			}
		}
		return nil
	}

	value := ""
	if err := json.Unmarshal(raw, &value); err != nil {
		return loggerError("failed to unmarshal logger source map '%s': %v", string(raw), err)
	}
	if err := m.Set(value); err != nil {
		return loggerError("failed to unmarshal logger source map '%s': %v", string(raw), err)
	}
	return nil
}

// sourceName maps the "all" alias to the wildcard source.
func sourceName(src string) string {
	if src == "all" {
		return "*"
	}
	return src
}

// copy state from another srcmap.
func (m srcmap) copy(o srcmap) {
	for src, state := range o {
		m[src] = state
	}
}

// configNotify is the configuration change notification callback for options.
func (o *options) configNotify(event pkgcfg.Event, src pkgcfg.Source) error {
	deflog.InfoBlock("  ", "logger configuration %v:\nlevel: %v, backend: %v\nlogging: %s\ndebugging: %s",
		event, opt.Level, opt.Logger, opt.Enable.String(), opt.Debug.String())

	log.Lock()
	defer log.Unlock()

	log.setLevel(opt.Level)
	if err := log.setBackend(opt.Logger.String()); err != nil {
		return err
	}

	if opt.Enable == nil {
		opt.Enable = make(srcmap)
	}
	if opt.Debug == nil {
		opt.Debug = make(srcmap)
	}
	if len(opt.Enable) == 0 {
		opt.Enable.copy(defaults.Enable)
	}
	if len(opt.Debug) == 0 {
		opt.Debug.copy(defaults.Debug)
	}
	log.update(opt.Enable, opt.Debug)

	return nil
}

func defaultOptions() interface{} {
	o := &options{
		Logger: defaults.Logger,
		Level:  defaults.Level,
		Enable: make(srcmap),
		Debug:  make(srcmap),
	}
	o.Enable.copy(defaults.Enable)
	o.Debug.copy(defaults.Debug)
	return o
}

// Register us for command line parsing and configuration handling.
func init() {
	cfglog := log.get("config")
	pkgcfg.SetLogger(pkgcfg.Logger{
		DebugEnabled: cfglog.DebugEnabled,
		Debug:        cfglog.Debug,
		Info:         cfglog.Info,
		Warning:      cfglog.Warn,
		Error:        cfglog.Error,
		Fatal:        cfglog.Fatal,
		Panic:        cfglog.Panic,
	})

	flag.Var(&defaults.Logger, optLogger,
		"override logger backend to use.")
	flag.Var(&defaults.Level, optLevel,
		"lowest severity level to pass through (info, warning, error)")
	flag.Var(&defaults.Enable, optEnable,
		"comma-separated list of source names to enable/disable.\n"+
			"Specify '*' or 'all' to enable all sources, which is also the default.\n"+
			"Prefix a source or list with 'off:' to disable.")
	flag.Var(&defaults.Debug, optDebug,
		"comma-separated list of source names to enable debug messages for.\n"+
			"Specify '*' or 'all' to enable all sources.\n"+
			"Prefix a source or list with 'off:' to disable, which is also the default state.")

	pkgcfg.Register(configModule, configHelp, opt, defaultOptions,
		pkgcfg.WithNotify(opt.configNotify))
}
