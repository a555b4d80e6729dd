package main

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/skeema/mybase"
	"github.com/skeema/tablecheck/internal/collect"
	"github.com/skeema/tablecheck/internal/dbhost"
	"github.com/skeema/tablecheck/internal/util"
)

// hostConnector opens a session on a database host by name. Hosts may
// include a :port suffix; otherwise the --port option applies.
type hostConnector struct {
	user        string
	password    string
	defaultPort int
	params      string
	delay       time.Duration
}

// newConnector is a package var so that tests may substitute fake sessions.
var newConnector = func(cfg *mybase.Config, rc *runConfig, delay time.Duration) (collect.Connector, error) {
	params, err := util.ConnectParams(cfg)
	if err != nil {
		return nil, WrapExitCode(CodeBadConfig, err)
	}
	port, err := cfg.GetInt("port")
	if err != nil {
		return nil, NewExitValue(CodeBadConfig, "Invalid value for --port: %s", err)
	}
	return &hostConnector{
		user:        rc.User,
		password:    rc.Password,
		defaultPort: port,
		params:      params + "&interpolateParams=true",
		delay:       delay,
	}, nil
}

// DSN returns the go-sql-driver/mysql DSN for host.
func (hc *hostConnector) DSN(host string) (string, error) {
	name, port, err := dbhost.SplitHostOptionalPort(host)
	if err != nil {
		return "", err
	}
	if port == 0 {
		port = hc.defaultPort
	}
	userAndPass := hc.user
	if hc.password != "" {
		userAndPass += ":" + hc.password
	}
	addr := net.JoinHostPort(trimBrackets(name), strconv.Itoa(port))
	return fmt.Sprintf("%s@tcp(%s)/?%s", userAndPass, addr, hc.params), nil
}

// Connect satisfies collect.Connector.
func (hc *hostConnector) Connect(host string) (collect.Session, error) {
	dsn, err := hc.DSN(host)
	if err != nil {
		return nil, err
	}
	inst, err := util.NewInstance("mysql", dsn)
	if err != nil {
		return nil, err
	}
	sess, err := inst.Session(hc.delay)
	if err != nil {
		return nil, hc.connectError(err)
	}
	return sess, nil
}

// connectError distinguishes credential and privilege failures, which affect
// every host alike, from other connection errors.
func (hc *hostConnector) connectError(err error) error {
	if dbhost.IsAccessError(err) {
		return fmt.Errorf("access denied for user %q, check --user and --password or --creds-command: %w", hc.user, err)
	}
	return err
}

func trimBrackets(host string) string {
	if len(host) > 1 && host[0] == '[' && host[len(host)-1] == ']' {
		return host[1 : len(host)-1]
	}
	return host
}
