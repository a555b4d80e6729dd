package topology

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Credentials are the database user and password used to connect to every
// host.
type Credentials struct {
	User     string `json:"wgDBuser"`
	Password string `json:"wgDBpassword"`
}

// ParseCredentials decodes the JSON output of a MediaWiki configuration dump
// containing wgDBuser and wgDBpassword. Both values are required.
func ParseCredentials(data []byte) (Credentials, error) {
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return creds, fmt.Errorf("Unable to decode database credentials: %w", err)
	}
	if creds.User == "" {
		return creds, errors.New("Missing value for wgDBuser in database credentials")
	}
	if creds.Password == "" {
		return creds, errors.New("Missing value for wgDBpassword in database credentials")
	}
	return creds, nil
}

// RunCredsCommand shells out to commandLine and parses its STDOUT with
// ParseCredentials. As with RunConfigCommand, a {WIKI} placeholder may be
// used.
func RunCredsCommand(commandLine, wiki string, timeout time.Duration) (Credentials, error) {
	out, err := runWikiCommand(commandLine, wiki, timeout)
	if err != nil {
		return Credentials{}, err
	}
	return ParseCredentials([]byte(out))
}
