/*
 * Copyright (c) 2018 VMware, Inc.
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy of this software and
 * associated documentation files (the "Software"), to deal in the Software without restriction, including
 * without limitation the rights to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is furnished to do
 * so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all copies or substantial
 * portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR IMPLIED, INCLUDING BUT
 * NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 * IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
 * WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE
 * SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 */

// Package logger defines the logging abstraction used throughout the library.
//
// Applications may plug in any backend by implementing the Logger interface.
// A logrus-backed implementation is provided and used by default.
package logger

// Fields carries structured key/value context attached to log entries.
type Fields map[string]interface{}

// Logger is the minimal leveled logger the library writes to.
type Logger interface {
	// Debugf logs a formatted message at debug level.
	Debugf(format string, args ...interface{})

	// Infof logs a formatted message at info level.
	Infof(format string, args ...interface{})

	// Warnf logs a formatted message at warn level.
	Warnf(format string, args ...interface{})

	// Errorf logs a formatted message at error level.
	Errorf(format string, args ...interface{})

	// Fatalf logs a formatted message at fatal level and exits the process.
	Fatalf(format string, args ...interface{})

	// Panicf logs a formatted message at panic level and panics.
	Panicf(format string, args ...interface{})

	// WithFields returns a logger that attaches the given fields to every entry.
	WithFields(fields Fields) Logger
}

// GetDefaultLogger returns the library's default logger: logrus at info level
// writing to standard error.
func GetDefaultLogger() Logger {
	return NewLogrusLogger(InfoLevel)
}
