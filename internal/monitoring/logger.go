package monitoring

import (
	"io"
	"log"
)

// Logf receives every pipeline progress line. It writes through the standard
// logger until replaced.
var Logf func(format string, v ...any) = log.Printf

// SetLogger installs f as the progress logger. A nil f silences logging.
func SetLogger(f func(format string, v ...any)) {
	if f == nil {
		Logf = func(string, ...any) {}
		return
	}
	Logf = f
}

// SetLogWriter sends progress lines to w with timestamps.
func SetLogWriter(w io.Writer) {
	Logf = log.New(w, "", log.LstdFlags|log.Lmicroseconds).Printf
}
