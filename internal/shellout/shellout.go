// Package shellout runs external commands through the shell: maintenance
// scripts that dump wiki configuration, and the docker CLI used by
// integration tests.
package shellout

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Command is a shell command-line, along with settings controlling how it
// gets run.
type Command struct {
	command   string
	printable string    // redacted form of command, if it contains secrets
	stdin     io.Reader // defaults to os.Stdin
	stderr    io.Writer // defaults to os.Stderr
	timeout   time.Duration
	cancel    context.CancelFunc
}

// New returns a Command for the supplied command-line.
func New(commandLine string) *Command {
	return &Command{command: commandLine}
}

// WithTimeout returns a copy of c which is killed if it runs longer than d.
// A zero duration means no timeout.
func (c Command) WithTimeout(d time.Duration) *Command {
	c.timeout = d
	return &c
}

// WithStdin returns a copy of c reading standard input from r.
func (c Command) WithStdin(r io.Reader) *Command {
	c.stdin = r
	return &c
}

// WithStderr returns a copy of c writing standard error to w.
func (c Command) WithStderr(w io.Writer) *Command {
	c.stderr = w
	return &c
}

// WithVariables returns a copy of c with placeholders of the form {NAME}
// replaced by the shell-escaped value of vars["NAME"]. Placeholder names are
// case-insensitive; keys of vars must be upper-case. Appending an X to a
// placeholder name, for example {PASSWORDX}, substitutes the value as usual
// but redacts it in String(). Shell expansions like ${HOME} and Go template
// actions like {{json .}} are left untouched. Any other unknown placeholder
// is an error.
func (c Command) WithVariables(vars map[string]string) (*Command, error) {
	var real, printable strings.Builder
	var redacted bool
	rest := c.command
	for {
		start := strings.IndexByte(rest, '{')
		if start < 0 {
			break
		}
		end := strings.IndexByte(rest[start+1:], '}')
		if end < 0 {
			return &c, fmt.Errorf("Variable name missing closing brace: %s", rest[start:])
		}
		end += start + 1
		literal, placeholder := rest[:start], rest[start:end+1]
		rest = rest[end+1:]

		name := strings.ToUpper(placeholder[1 : len(placeholder)-1])
		value, ok := vars[name]
		var hide bool
		if !ok && strings.HasSuffix(name, "X") {
			value, ok = vars[strings.TrimSuffix(name, "X")]
			hide = ok
		}
		if !ok {
			isShellVar := strings.HasSuffix(literal, "$")
			isTemplate := strings.HasPrefix(placeholder, "{{")
			if !isShellVar && !isTemplate {
				return &c, fmt.Errorf("Unknown variable %s", name)
			}
			real.WriteString(literal + placeholder)
			printable.WriteString(literal + placeholder)
			continue
		}
		real.WriteString(literal + escapeVarValue(value))
		if hide {
			redacted = true
			value = "XXXXX"
		}
		printable.WriteString(literal + escapeVarValue(value))
	}
	real.WriteString(rest)
	printable.WriteString(rest)
	c.command = real.String()
	if redacted {
		c.printable = printable.String()
	}
	return &c, nil
}

// WithVariablesStrict is like WithVariables, but panics on error. Only use it
// for command-lines that are not supplied by the user.
func (c Command) WithVariablesStrict(vars map[string]string) *Command {
	c2, err := c.WithVariables(vars)
	if err != nil {
		panic(err)
	}
	return c2
}

// String returns the command-line, with any redacted variables masked.
func (c *Command) String() string {
	if c.printable != "" {
		return c.printable
	}
	return c.command
}

// RunCaptureCombined runs the command, blocking until it completes, and
// returns its STDOUT and STDERR interleaved in one string. It is an error to
// call this on a Command which has WithStderr set.
func (c *Command) RunCaptureCombined() (string, error) {
	if c.stderr != nil && c.stderr != os.Stderr {
		return "", errors.New("RunCaptureCombined cannot be used on a Command with STDERR redirected")
	}
	return c.run(true)
}

// RunCaptureSeparate runs the command, blocking until it completes, and
// returns its STDOUT and STDERR as separate strings. It is an error to call
// this on a Command which has WithStderr set.
func (c *Command) RunCaptureSeparate() (stdout, stderr string, err error) {
	if c.stderr != nil && c.stderr != os.Stderr {
		return "", "", errors.New("RunCaptureSeparate cannot be used on a Command with STDERR redirected")
	}
	var errBuf bytes.Buffer
	stdout, err = c.WithStderr(&errBuf).run(false)
	return stdout, errBuf.String(), err
}

func (c *Command) run(combined bool) (string, error) {
	if c.command == "" {
		return "", errors.New("Attempted to shell out to an empty command string")
	}
	cmd := c.cmd()
	if c.cancel != nil {
		defer c.cancel()
	}
	cmd.Stdin = c.stdin
	if cmd.Stdin == nil {
		cmd.Stdin = os.Stdin
	}
	var out []byte
	var err error
	if combined {
		out, err = cmd.CombinedOutput()
	} else {
		cmd.Stderr = c.stderr
		if cmd.Stderr == nil {
			cmd.Stderr = os.Stderr
		}
		out, err = cmd.Output()
	}
	return string(out), err
}
