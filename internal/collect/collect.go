// Package collect gathers raw table definitions from every host in scope and
// assembles them into a layout.Matrix.
package collect

import (
	"errors"
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/skeema/tablecheck/internal/layout"
)

// Status classifies the outcome of fetching one table definition.
type Status int

// Constants enumerating fetch outcomes
const (
	StatusExists     Status = iota // table exists; Fetch.DDL is populated
	StatusAbsent                   // database exists but table does not
	StatusNoDatabase               // host does not serve the database
	StatusError                    // some other failure; see Fetch.Err
)

func (s Status) String() string {
	switch s {
	case StatusExists:
		return "exists"
	case StatusAbsent:
		return "absent"
	case StatusNoDatabase:
		return "no database"
	default:
		return "error"
	}
}

// Fetch is the result of asking a Session for one table's definition.
type Fetch struct {
	Status Status
	DDL    string
	Err    error
}

// ErrSwitchDatabase is wrapped by Fetch.Err when the failure happened while
// selecting the database, rather than while reading the table. The whole
// (host, database) cell is then unusable.
var ErrSwitchDatabase = errors.New("unable to switch to database")

// ErrNothingCollected is returned by Collector.Collect if no host could be
// reached.
var ErrNothingCollected = errors.New("no database hosts could be reached")

// Session is an open connection to one database host.
type Session interface {
	FetchTableDDL(database, table string) Fetch
	ServerVersion() (string, error)
	Close() error
}

// Connector opens Sessions.
type Connector interface {
	Connect(host string) (Session, error)
}

// Source lists the hosts to visit, and which databases each one serves.
type Source interface {
	ListHosts() []string
	ListDatabasesServedBy(host string) []string
}

// Stats summarizes a collection run.
type Stats struct {
	HostsAttempted int
	HostsReached   int
	Tables         int // tables found and parsed
	Absent         int
	Errors         int
	Malformed      int
}

func (st Stats) String() string {
	return fmt.Sprintf("%d of %d hosts reached, %d tables read, %d absent, %d errors, %d malformed",
		st.HostsReached, st.HostsAttempted, st.Tables, st.Absent, st.Errors, st.Malformed)
}

// Collector visits every host from Source, one at a time, and reads each of
// Tables from each database the host serves.
type Collector struct {
	Source    Source
	Connector Connector
	Tables    []string
	Out       io.Writer // receives a version line per host; may be nil
}

// Collect builds the Matrix. Per-host and per-table problems are logged and
// absorbed; an error is only returned if no host at all could be reached.
func (c *Collector) Collect() (layout.Matrix, Stats, error) {
	m := make(layout.Matrix)
	var stats Stats
	for _, host := range c.Source.ListHosts() {
		databases := c.Source.ListDatabasesServedBy(host)
		if len(databases) == 0 {
			log.Debugf("Skipping %s: serves none of the requested wikis", host)
			continue
		}
		stats.HostsAttempted++
		sess, err := c.Connector.Connect(host)
		if err != nil {
			log.Warnf("Skipping %s: %s", host, err)
			continue
		}
		stats.HostsReached++
		m.AddHost(host)
		c.reportVersion(host, sess)
		for _, database := range databases {
			if db, ok := c.collectDatabase(sess, host, database, &stats); ok {
				m.Set(host, database, db)
			}
		}
		if err := sess.Close(); err != nil {
			log.Debugf("Error closing session to %s: %s", host, err)
		}
	}
	if stats.HostsReached == 0 {
		return m, stats, ErrNothingCollected
	}
	return m, stats, nil
}

func (c *Collector) reportVersion(host string, sess Session) {
	version, err := sess.ServerVersion()
	if err != nil {
		log.Debugf("Unable to determine server version of %s: %s", host, err)
		return
	}
	if c.Out != nil {
		fmt.Fprintf(c.Out, "dbhost: %s version: %s\n", host, version)
	}
}

// collectDatabase reads every requested table of database on one host. The
// bool return is false if the host turned out not to serve the database.
func (c *Collector) collectDatabase(sess Session, host, database string, stats *Stats) (layout.Database, bool) {
	db := make(layout.Database, len(c.Tables))
	for _, table := range c.Tables {
		f := sess.FetchTableDDL(database, table)
		switch f.Status {
		case StatusNoDatabase:
			log.Debugf("%s does not have database %s", host, database)
			return nil, false
		case StatusAbsent:
			stats.Absent++
			db[table] = nil
		case StatusError:
			if errors.Is(f.Err, ErrSwitchDatabase) {
				log.Warnf("Skipping %s on %s: %s", database, host, f.Err)
				stats.Errors++
				return nil, false
			}
			log.Warnf("Unable to read table %s.%s on %s: %s", database, table, host, f.Err)
			stats.Errors++
			db[table] = nil
		case StatusExists:
			t, err := layout.ParseCreateTable(f.DDL)
			if err != nil {
				log.Errorf("Table %s.%s on %s: %s", database, table, host, err)
				stats.Malformed++
				db[table] = nil
				continue
			}
			stats.Tables++
			db[table] = t
		}
	}
	return db, true
}

// Plan writes, without connecting anywhere, which wikis would be checked on
// which hosts. It returns the number of hosts with any work to do.
func Plan(w io.Writer, src Source, tables []string) int {
	var count int
	fmt.Fprintf(w, "tables: %s\n", strings.Join(tables, ", "))
	for _, host := range src.ListHosts() {
		databases := src.ListDatabasesServedBy(host)
		if len(databases) == 0 {
			continue
		}
		count++
		fmt.Fprintf(w, "would check dbhost: %s wikis: %s\n", host, strings.Join(databases, ", "))
	}
	return count
}
