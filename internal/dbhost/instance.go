// Package dbhost connects to MySQL and MariaDB servers and reads table
// definitions from them.
package dbhost

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// Instance is a database server at a specific address, along with the
// credentials and connection params used to reach it.
type Instance struct {
	BaseDSN       string // DSN ending in a slash: no database name or params
	Driver        string
	User          string
	Password      string
	Host          string
	Port          int
	SocketPath    string
	defaultParams map[string]string
	pools         []*sqlx.DB
	m             sync.Mutex
}

// NewInstance returns an Instance for the supplied driver and DSN. Only the
// "mysql" driver is supported. Any database name in the DSN is ignored; any
// params become defaults for every connection.
func NewInstance(driver, dsn string) (*Instance, error) {
	if driver != "mysql" {
		return nil, fmt.Errorf("Unsupported driver %q", driver)
	}
	parsed, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	instance := &Instance{
		BaseDSN:       baseDSN(dsn),
		Driver:        driver,
		User:          parsed.User,
		Password:      parsed.Passwd,
		defaultParams: paramMap(dsn),
	}
	if parsed.Net == "unix" {
		instance.Host = "localhost"
		instance.SocketPath = parsed.Addr
	} else if instance.Host, instance.Port, err = SplitHostOptionalPort(parsed.Addr); err != nil {
		return nil, err
	}
	return instance, nil
}

// String returns host:port, or localhost:/path/to/socket.
func (instance *Instance) String() string {
	if instance.SocketPath != "" {
		return instance.Host + ":" + instance.SocketPath
	} else if instance.Port == 0 {
		return instance.Host
	}
	return instance.Host + ":" + strconv.Itoa(instance.Port)
}

// BuildParamString merges the instance's default params with overrides, which
// must be formatted as a URL query string like "foo=bar&fizz=buzz".
func (instance *Instance) BuildParamString(overrides string) string {
	v := url.Values{}
	for name, value := range instance.defaultParams {
		v.Set(name, value)
	}
	parsed, _ := url.ParseQuery(overrides)
	for name := range parsed {
		v.Set(name, parsed.Get(name))
	}
	return v.Encode()
}

// Session opens a new Session on a dedicated connection. Successive
// statements on the session are separated by delay.
func (instance *Instance) Session(delay time.Duration) (*Session, error) {
	dsn := instance.BaseDSN + "?" + instance.BuildParamString("")
	db, err := sqlx.Connect(instance.Driver, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	conn, err := db.Connx(context.Background())
	if err != nil {
		db.Close()
		return nil, err
	}
	instance.m.Lock()
	instance.pools = append(instance.pools, db)
	instance.m.Unlock()
	return &Session{
		instance: instance,
		db:       db,
		conn:     conn,
		delay:    delay,
		sleep:    time.Sleep,
	}, nil
}

// CanConnect returns true if a connection to the instance can be made with
// its configured credentials, along with the error if not.
func (instance *Instance) CanConnect() (bool, error) {
	db, err := sqlx.Connect(instance.Driver, instance.BaseDSN+"?"+instance.BuildParamString(""))
	if db != nil {
		db.Close()
	}
	return err == nil, err
}

func (instance *Instance) release(db *sqlx.DB) {
	instance.m.Lock()
	defer instance.m.Unlock()
	for n := range instance.pools {
		if instance.pools[n] == db {
			instance.pools = append(instance.pools[:n], instance.pools[n+1:]...)
			break
		}
	}
	db.Close()
}

// CloseAll closes the connection pools of any Sessions not yet closed.
func (instance *Instance) CloseAll() {
	instance.m.Lock()
	defer instance.m.Unlock()
	for _, db := range instance.pools {
		db.Close()
	}
	instance.pools = nil
}
