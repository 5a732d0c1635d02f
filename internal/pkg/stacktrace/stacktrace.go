// Package stacktrace renders the current call stack for panic logs.
package stacktrace

import (
	"runtime"
	"strconv"
	"strings"
)

const (
	maxDepth = 64
	marker   = "/internal/"
)

// Frames lists the callers of the function invoking it as file:line. Only
// frames of this module's internal packages are kept when there are any.
// Inside a deferred recover the panicking frames are included.
func Frames() []string {
	pcs := make([]uintptr, maxDepth)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var all, own []string
	for {
		f, more := frames.Next()
		loc := f.File + ":" + strconv.Itoa(f.Line)
		all = append(all, loc)
		if i := strings.LastIndex(f.File, marker); i >= 0 {
			own = append(own, loc[i+1:])
		}
		if !more {
			break
		}
	}

	if len(own) > 0 {
		return own
	}
	return all
}
