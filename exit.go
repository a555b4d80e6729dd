package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/skeema/tablecheck/internal/util"
)

// Exit codes, mostly following BSD's `man sysexits`. Drift between hosts is
// not an error: a completed audit exits 0 regardless of findings.
const (
	CodeSuccess    = 0
	CodeFatalError = 2
	CodeBadUsage   = 64
	CodeNoInput    = 66
	CodeBadConfig  = 78
)

// ExitValue is an error carrying the process exit code it should produce.
type ExitValue struct {
	Code int
	err  error
}

func (ev *ExitValue) Error() string {
	if ev == nil {
		return ""
	}
	return ev.err.Error()
}

func (ev *ExitValue) Unwrap() error {
	return ev.err
}

// NewExitValue returns an ExitValue with a formatted message.
func NewExitValue(code int, format string, a ...any) *ExitValue {
	return &ExitValue{Code: code, err: fmt.Errorf(format, a...)}
}

// WrapExitCode returns an ExitValue which wraps err.
func WrapExitCode(code int, err error) *ExitValue {
	return &ExitValue{Code: code, err: err}
}

// ExitCode returns CodeSuccess for a nil err, the code of the first
// ExitValue in err's chain, or CodeFatalError for any other error.
func ExitCode(err error) int {
	var ev *ExitValue
	if err == nil {
		return CodeSuccess
	} else if !errors.As(err, &ev) {
		return CodeFatalError
	} else if ev == nil {
		return CodeSuccess
	}
	return ev.Code
}

func realExit(code int) {
	// Avoid bumping Aborted_clients on every host we touched
	util.CloseCachedConnectionPools()
	os.Exit(code)
}

// tests replace this
var exitFunc = realExit

// Exit logs err, if any, and terminates the program with its exit code.
func Exit(err error) {
	code := ExitCode(err)
	if code != CodeSuccess {
		if msg := err.Error(); msg != "" {
			log.Error(msg)
		}
	}
	log.Debugf("Exit code %d", code)
	exitFunc(code)
}

// panicHandler must be deferred directly by main. It converts an uncaught
// panic into a logged CodeFatalError exit.
func panicHandler() {
	if iface := recover(); iface != nil {
		log.Debug(string(debug.Stack()))
		Exit(fmt.Errorf("Uncaught panic in %s: %v\nThis is a bug in tablecheck. Use --debug to view the full stack trace.", panicLocation(), iface))
	}
}

// panicLocation returns the innermost frame outside of the runtime package,
// as seen from panicHandler.
func panicLocation() string {
	pc := make([]uintptr, 16)
	frames := runtime.CallersFrames(pc[:runtime.Callers(3, pc)])
	for {
		frame, more := frames.Next()
		if frame.Function != "" && !strings.HasPrefix(frame.Function, "runtime.") {
			return fmt.Sprintf("%s at %s:%d", frame.Function, frame.File, frame.Line)
		}
		if !more {
			return "unknown location"
		}
	}
}
