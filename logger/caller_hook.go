package logger

import (
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// skipPrefixes lists import paths whose frames are never reported as the
// caller: logrus internals and the wrapper methods in this package.
var skipPrefixes = []string{
	"github.com/sirupsen/logrus",
	"github.com/sigma-quantiphi/polymarket-pandas/logger",
}

// callerHook rewrites the caller logrus reports so log lines point at the
// call site in application code rather than at the wrappers here.
type callerHook struct{}

func (h *callerHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire sets the entry's Caller to the first frame outside the skip list.
func (h *callerHook) Fire(entry *logrus.Entry) error {
	pcs := make([]uintptr, 16)
	// Start past runtime.Callers, this method and the logrus hook dispatch.
	n := runtime.Callers(6, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if frame.Function != "" && !skippedFrame(frame.Function) {
			entry.Caller = &frame
			return nil
		}
		if !more {
			return nil
		}
	}
}

func skippedFrame(fn string) bool {
	for _, prefix := range skipPrefixes {
		if strings.Contains(fn, prefix) {
			return true
		}
	}
	return false
}
