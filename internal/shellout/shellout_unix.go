//go:build !windows

package shellout

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

func (c *Command) cmd() *exec.Cmd {
	if c.timeout <= 0 {
		return exec.Command("/bin/sh", "-c", c.command)
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	c.cancel = cancel
	return exec.CommandContext(ctx, "/bin/sh", "-c", c.command)
}

// safeUnquoted matches values which /bin/sh treats as a single literal word
// without any quoting.
var safeUnquoted = regexp.MustCompile(`^[\w/@%=:.,+-]*$`)

// escapeVarValue single-quotes value so that the shell treats it as one
// argument. Embedded single quotes are closed, double-quoted, and reopened.
func escapeVarValue(value string) string {
	if safeUnquoted.MatchString(value) {
		return value
	}
	return fmt.Sprintf("'%s'", strings.ReplaceAll(value, "'", `'"'"'`))
}
