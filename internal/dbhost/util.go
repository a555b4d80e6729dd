package dbhost

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// EscapeIdentifier wraps input in backticks, doubling any backticks within.
func EscapeIdentifier(input string) string {
	return "`" + strings.ReplaceAll(input, "`", "``") + "`"
}

// likeLiteral returns a quoted string literal suitable for SHOW TABLES LIKE,
// matching input exactly: LIKE wildcards are escaped along with quotes and
// backslashes.
func likeLiteral(input string) string {
	r := strings.NewReplacer(`\`, `\\\\`, `'`, `\'`, `%`, `\%`, `_`, `\_`)
	return "'" + r.Replace(input) + "'"
}

// SplitHostOptionalPort splits an address of the form host, host:port, [ipv6]
// or [ipv6]:port. The port is 0 if none was present. Brackets around an ipv6
// address are retained, since a DSN needs them.
func SplitHostOptionalPort(hostaddr string) (string, int, error) {
	if hostaddr == "" {
		return "", 0, errors.New("Cannot parse blank host address")
	}
	if (hostaddr[0] == '[' && hostaddr[len(hostaddr)-1] == ']') || !strings.Contains(hostaddr, ":") {
		return hostaddr, 0, nil
	}
	host, portString, err := net.SplitHostPort(hostaddr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portString)
	if err != nil {
		return "", 0, err
	} else if port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port %d supplied", port)
	}
	if hostaddr[0] == '[' {
		host = "[" + host + "]"
	}
	return host, port, nil
}

// baseDSN strips the database name and params from a go-sql-driver/mysql DSN,
// returning everything through the final slash.
func baseDSN(dsn string) string {
	pos := strings.LastIndexByte(dsn, '/')
	return dsn[:pos+1]
}

// paramMap returns the params of a DSN. When a param appears more than once,
// the first value wins. mysql.ParseDSN is not used here since it moves driver
// params out of its Params field.
func paramMap(dsn string) map[string]string {
	_, query, ok := strings.Cut(dsn, "?")
	result := make(map[string]string)
	if !ok {
		return result
	}
	values, _ := url.ParseQuery(query)
	for key := range values {
		result[key] = values.Get(key)
	}
	return result
}
