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
	"os"
)

// Level describes the severity of log messages.
type Level int

const (
	// LevelDebug is the severity for debug messages.
	LevelDebug Level = iota
	// LevelInfo is the severity for informational messages.
	LevelInfo
	// LevelWarn is the severity for warnings.
	LevelWarn
	// LevelError is the severity for errors.
	LevelError
	// LevelPanic is the severity for panic messages.
	LevelPanic
	// LevelFatal is the severity for fatal errors.
	LevelFatal
	// levelHighest is the highest externally visible level
	levelHighest
)

// Logger produces log messages for a single source.
type Logger interface {
	// Debug formats and emits a debug message.
	Debug(format string, args ...interface{})
	// Info formats and emits an informational message.
	Info(format string, args ...interface{})
	// Warn formats and emits a warning message.
	Warn(format string, args ...interface{})
	// Error formats and emits an error message.
	Error(format string, args ...interface{})
	// Panic formats and emits an error message then panics with the same.
	Panic(format string, args ...interface{})
	// Fatal formats and emits an error message and os.Exit()'s with status 1.
	Fatal(format string, args ...interface{})

	// DebugBlock formats and emits a multiline debug message.
	DebugBlock(prefix string, format string, args ...interface{})
	// InfoBlock formats and emits a multiline information message.
	InfoBlock(prefix string, format string, args ...interface{})
	// WarnBlock formats and emits a multiline warning message.
	WarnBlock(prefix string, format string, args ...interface{})
	// ErrorBlock formats and emits a multiline error message.
	ErrorBlock(prefix string, format string, args ...interface{})

	// EnableDebug enables debug messages for this Logger.
	EnableDebug(bool) bool
	// DebugEnabled checks if debug messages are enabled for this Logger.
	DebugEnabled() bool

	// Source returns the source name of this Logger.
	Source() string
}

// logger is the Logger of one source. The flags are guarded by the
// lock of the logging state.
type logger struct {
	source    string
	logging   bool
	debugging bool
}

func newLogger(source string, logging, debugging bool) *logger {
	return &logger{
		source:    source,
		logging:   logging,
		debugging: debugging,
	}
}

// EnableDebug turns debug messages on or off, returning the old state.
func (l *logger) EnableDebug(state bool) bool {
	log.Lock()
	defer log.Unlock()

	old := l.debugging
	l.debugging = state
	return old
}

// DebugEnabled checks if debug messages are on.
func (l *logger) DebugEnabled() bool {
	log.RLock()
	defer log.RUnlock()
	return l.debugging
}

// Source returns the source name of the logger.
func (l *logger) Source() string {
	return l.source
}

func (l *logger) Debug(format string, args ...interface{}) {
	l.emit(LevelDebug, format, args...)
}

func (l *logger) Info(format string, args ...interface{}) {
	l.emit(LevelInfo, format, args...)
}

func (l *logger) Warn(format string, args ...interface{}) {
	l.emit(LevelWarn, format, args...)
}

func (l *logger) Error(format string, args ...interface{}) {
	l.emit(LevelError, format, args...)
}

// Fatal emits the message regardless of the configuration then exits.
func (l *logger) Fatal(format string, args ...interface{}) {
	l.backend().Log(LevelFatal, l.source, format, args...)
	os.Exit(1)
}

// Panic emits the message regardless of the configuration then panics.
func (l *logger) Panic(format string, args ...interface{}) {
	l.backend().Log(LevelPanic, l.source, format, args...)
	panic(fmt.Sprintf(l.source+" "+format, args...))
}

func (l *logger) DebugBlock(prefix string, format string, args ...interface{}) {
	l.emitBlock(LevelDebug, prefix, format, args...)
}

func (l *logger) InfoBlock(prefix string, format string, args ...interface{}) {
	l.emitBlock(LevelInfo, prefix, format, args...)
}

func (l *logger) WarnBlock(prefix string, format string, args ...interface{}) {
	l.emitBlock(LevelWarn, prefix, format, args...)
}

func (l *logger) ErrorBlock(prefix string, format string, args ...interface{}) {
	l.emitBlock(LevelError, prefix, format, args...)
}

func (l *logger) emit(level Level, format string, args ...interface{}) {
	if b := l.passes(level); b != nil {
		b.Log(level, l.source, format, args...)
	}
}

func (l *logger) emitBlock(level Level, prefix, format string, args ...interface{}) {
	if b := l.passes(level); b != nil {
		b.Block(level, l.source, prefix, format, args...)
	}
}

// passes returns the active backend if a message of level is emitted.
func (l *logger) passes(level Level) Backend {
	log.RLock()
	defer log.RUnlock()

	switch {
	case level == LevelDebug:
		if !l.debugging && !log.forced {
			return nil
		}
	case level < log.level:
		return nil
	case level == LevelInfo && !l.logging:
		return nil
	}
	return log.active
}

func (l *logger) backend() Backend {
	log.RLock()
	defer log.RUnlock()
	return log.active
}
