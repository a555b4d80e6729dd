package util

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/skeema/mybase"
	terminal "golang.org/x/term"
)

// NoPassword is the default value of the password option, distinguishing
// "not supplied" from "supplied with no value".
const NoPassword = "<no password>"

// AddGlobalOptions adds tablecheck's global options to the supplied
// mybase.Command, which is typically the top-level command suite.
func AddGlobalOptions(cmd *mybase.Command) {
	cmd.AddOption(mybase.StringOption("user", 'u', "", "Username to connect to database hosts"))
	cmd.AddOption(mybase.StringOption("password", 'p', NoPassword, "Password for database user; supply with no value to prompt").ValueOptional())
	cmd.AddOption(mybase.StringOption("port", 'P', "3306", "Port to use for database hosts that do not specify one"))
	cmd.AddOption(mybase.StringOption("domain", 0, "", "Domain name to append to every database host name"))
	cmd.AddOption(mybase.StringOption("connect-options", 'o', "", "Comma-separated session options to set upon connecting to each database host"))
	cmd.AddOption(mybase.StringOption("settings", 0, "", "Path to an option file with a [settings] section"))
	cmd.AddOption(mybase.BoolOption("debug", 0, false, "Enable debug logging"))
	cmd.AddOption(mybase.BoolOption("my-cnf", 0, true, "Parse ~/.my.cnf for configuration"))
}

// AddGlobalConfigFiles takes the mybase.Config generated from the CLI and adds
// global option files as sources, followed by the file named by --settings
// if any. Later files take precedence over earlier ones.
func AddGlobalConfigFiles(cfg *mybase.Config) {
	var globalFilePaths []string

	// Tests must not be affected by option files of whoever runs them
	if cfg.IsTest {
		globalFilePaths = []string{"fake-etc/tablecheck.cnf", "fake-home/.my.cnf"}
	} else {
		globalFilePaths = []string{"/etc/tablecheck.cnf", "/usr/local/etc/tablecheck.cnf"}
		if home, err := os.UserHomeDir(); home != "" && err == nil {
			globalFilePaths = append(globalFilePaths, filepath.Join(home, ".my.cnf"), filepath.Join(home, ".tablecheck"))
		}
	}
	for _, path := range globalFilePaths {
		isMyCnf := strings.HasSuffix(path, ".my.cnf")
		if isMyCnf && !cfg.GetBool("my-cnf") {
			continue
		}
		addOptionFile(cfg, path, isMyCnf)
	}

	// The settings file is named on the CLI, so a missing one is an error the
	// user should hear about
	if settings := cfg.Get("settings"); settings != "" {
		if f := mybase.NewFile(settings); !f.Exists() {
			log.Warnf("Settings file %s does not exist", settings)
		} else {
			addOptionFile(cfg, settings, false)
		}
	}
}

func addOptionFile(cfg *mybase.Config, path string, isMyCnf bool) {
	f := mybase.NewFile(path)
	if !f.Exists() {
		return
	}
	if err := f.Read(); err != nil {
		log.Warnf("Ignoring option file %s due to read error: %s", f.Path(), err)
		return
	}
	if isMyCnf {
		f.IgnoreUnknownOptions = true
		f.IgnoreOptions("host", "port", "database")
	}
	if err := f.Parse(cfg); err != nil {
		log.Warnf("Ignoring option file %s due to parse error: %s", f.Path(), err)
		return
	}
	if isMyCnf {
		_ = f.UseSection("tablecheck", "client", "mysql") // missing sections are fine
	} else {
		_ = f.UseSection("settings")
	}
	cfg.AddSource(f)
}

// ProcessSpecialGlobalOptions handles global options with unusual semantics:
// obtaining a password from MYSQL_PWD or a TTY prompt, and enabling debug
// logging.
func ProcessSpecialGlobalOptions(cfg *mybase.Config) error {
	if !cfg.Supplied("password") {
		if val := os.Getenv("MYSQL_PWD"); val != "" {
			cfg.CLI.OptionValues["password"] = val
			cfg.MarkDirty()
		}
	} else if cfg.Get("password") == "" {
		var err error
		cfg.CLI.OptionValues["password"], err = PromptPassword()
		cfg.MarkDirty()
		fmt.Println()
		if err != nil {
			return err
		}
	}
	if cfg.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	return nil
}

// Password returns the configured password, or "" if none was supplied.
func Password(cfg *mybase.Config) string {
	if pw := cfg.Get("password"); pw != NoPassword {
		return pw
	}
	return ""
}

// PromptPassword reads a password from STDIN without echoing the typed
// characters. Requires that STDIN is a TTY.
func PromptPassword() (string, error) {
	stdin := int(os.Stdin.Fd())
	if !terminal.IsTerminal(stdin) {
		return "", errors.New("STDIN must be a TTY to read password")
	}
	fmt.Printf("Enter password: ")
	bytePassword, err := terminal.ReadPassword(stdin)
	if err != nil {
		return "", err
	}
	return string(bytePassword), nil
}

// ConnectParams returns the DSN param string for connections to database
// hosts: conservative timeouts, overridden by anything in connect-options.
// Driver params which would change how results are read may not be set.
func ConnectParams(cfg *mybase.Config) (string, error) {
	banned := map[string]bool{
		"allowallfiles":     true,
		"clientfoundrows":   true,
		"columnswithalias":  true,
		"interpolateparams": true,
		"loc":               true,
		"multistatements":   true,
		"parsetime":         true,
	}
	options, err := SplitConnectOptions(cfg.Get("connect-options"))
	if err != nil {
		return "", err
	}
	v := url.Values{}
	v.Set("timeout", "5s")
	v.Set("readTimeout", "20s")
	v.Set("writeTimeout", "5s")
	for name, value := range options {
		if banned[strings.ToLower(name)] {
			return "", fmt.Errorf("connect-options is not allowed to contain %s", name)
		}
		v.Set(name, value)
	}
	return v.Encode(), nil
}

// SplitConnectOptions splits a comma-separated list of name=value connection
// options into a map. Single-quoted values may contain commas and escaped
// single quotes; backslash-escaped commas are also permitted anywhere in a
// value.
func SplitConnectOptions(connectOpts string) (map[string]string, error) {
	if connectOpts == "" {
		return map[string]string{}, nil
	}
	if strings.HasSuffix(connectOpts, `\`) {
		return nil, fmt.Errorf("Trailing backslash in connect-options %q", connectOpts)
	}
	result := make(map[string]string)
	var start int
	var name string
	var inQuote, escapeNext bool

	// Trailing comma terminates the final option
	for n, c := range connectOpts + "," {
		if escapeNext {
			escapeNext = false
			continue
		}
		switch c {
		case '\\':
			escapeNext = true
		case '\'':
			if name == "" {
				return result, fmt.Errorf("Invalid quote character in option name at byte offset %d in connect-options %q", n, connectOpts)
			}
			inQuote = !inQuote
		case '=':
			if inQuote {
				continue
			} else if name != "" {
				return result, fmt.Errorf("Invalid equals-sign character in option value at byte offset %d in connect-options %q", n, connectOpts)
			}
			name = connectOpts[start:n]
			start = n + 1
		case ',':
			if inQuote {
				continue
			} else if start == n {
				return result, fmt.Errorf("Invalid comma placement in option value at byte offset %d in connect-options %q", n, connectOpts)
			} else if name == "" {
				return result, fmt.Errorf("Option %s is missing a value at byte offset %d in connect-options %q", connectOpts[start:n], n, connectOpts)
			} else if _, already := result[name]; already {
				return result, fmt.Errorf("Option %s is set multiple times in connect-options %q", name, connectOpts)
			}
			result[name] = connectOpts[start:n]
			name = ""
			start = n + 1
		}
	}
	if inQuote {
		return result, fmt.Errorf("Unterminated quote in connect-options %q", connectOpts)
	}
	return result, nil
}
