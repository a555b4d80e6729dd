package main

import (
	"errors"
	"fmt"
	"testing"
)

func TestExitCode(t *testing.T) {
	cases := []struct {
		err      error
		expected int
	}{
		{nil, CodeSuccess},
		{errors.New("plain error"), CodeFatalError},
		{NewExitValue(CodeBadUsage, "missing --tables"), CodeBadUsage},
		{fmt.Errorf("wrapped: %w", NewExitValue(CodeNoInput, "no file")), CodeNoInput},
		{WrapExitCode(CodeBadConfig, errors.New("no credentials")), CodeBadConfig},
		{(*ExitValue)(nil), CodeSuccess},
	}
	for _, c := range cases {
		if actual := ExitCode(c.err); actual != c.expected {
			t.Errorf("Expected ExitCode(%v) to return %d, instead found %d", c.err, c.expected, actual)
		}
	}
}

func TestExitValueError(t *testing.T) {
	var err error = NewExitValue(CodeBadConfig, "no hosts for section %s (%t)", "s1", true)
	expected := "no hosts for section s1 (true)"
	if actual := err.Error(); actual != expected {
		t.Errorf("Expected message %q, instead found %q", expected, actual)
	}
	var ev *ExitValue
	if actual := ev.Error(); actual != "" {
		t.Errorf("Expected nil ExitValue to have blank message, instead found %q", actual)
	}

	inner := errors.New("inner")
	if wrapped := WrapExitCode(CodeFatalError, inner); !errors.Is(wrapped, inner) {
		t.Error("Expected WrapExitCode result to wrap original error, but it does not")
	}
}

func TestExit(t *testing.T) {
	var exited []int
	exitFunc = func(code int) {
		exited = append(exited, code)
	}
	defer func() {
		exitFunc = realExit
	}()
	Exit(nil)
	Exit(NewExitValue(CodeNoInput, "Unable to read all.dblist"))
	if len(exited) != 2 || exited[0] != CodeSuccess || exited[1] != CodeNoInput {
		t.Errorf("Unexpected exit codes %v", exited)
	}
}

func TestPanicHandler(t *testing.T) {
	var exited []int
	exitFunc = func(code int) {
		exited = append(exited, code)
	}
	defer func() {
		exitFunc = realExit
	}()
	func() {
		defer panicHandler()
		panic("unexpected nil table")
	}()
	if len(exited) != 1 || exited[0] != CodeFatalError {
		t.Errorf("Expected panic to exit with code %d, instead found %v", CodeFatalError, exited)
	}
}
