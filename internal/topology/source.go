package topology

import (
	"fmt"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/skeema/tablecheck/internal/shellout"
)

// ReadConfigFile loads a Topology from a file containing the JSON form of
// $wgLBFactoryConf.
func ReadConfigFile(path, domain string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t, err := ParseLBFactoryConf(data, domain)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// RunConfigCommand shells out to commandLine and loads a Topology from its
// STDOUT. The command string may contain a {WIKI} placeholder, which is
// replaced by the supplied wiki name. Output on STDERR is fatal unless it
// consists only of warnings, which MediaWiki maintenance scripts commonly
// emit.
func RunConfigCommand(commandLine, wiki, domain string, timeout time.Duration) (*Topology, error) {
	out, err := runWikiCommand(commandLine, wiki, timeout)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(out) == "" {
		return nil, fmt.Errorf("Command %q returned no database configuration", commandLine)
	}
	return ParseLBFactoryConf([]byte(out), domain)
}

func runWikiCommand(commandLine, wiki string, timeout time.Duration) (string, error) {
	c, err := shellout.New(commandLine).WithTimeout(timeout).WithVariables(map[string]string{
		"WIKI": wiki,
	})
	if err != nil {
		return "", err
	}
	log.Debugf("Running command: %s", c)
	stdout, stderr, err := c.RunCaptureSeparate()
	if err != nil {
		return "", fmt.Errorf("Command %s failed: %w", c, err)
	}
	for _, line := range strings.Split(strings.TrimSpace(stderr), "\n") {
		if line == "" {
			continue
		} else if strings.HasPrefix(line, "Warning") {
			log.Debugf("Command %s: %s", c, line)
		} else {
			return "", fmt.Errorf("Command %s emitted errors: %s", c, strings.TrimSpace(stderr))
		}
	}
	return stdout, nil
}
