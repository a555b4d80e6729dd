package layout

import (
	"slices"
)

// Database maps table names to their layout on one host. A nil value means
// the table was requested but does not exist (or could not be read).
type Database map[string]*Table

// Matrix holds every collected layout, indexed by host and then by database
// name. It is sparse: a host that could not be reached has no entry at all,
// and a host that does not serve a database has no entry for that database.
type Matrix map[string]map[string]Database

// AddHost records that host was reachable, even if it ends up serving no
// databases.
func (m Matrix) AddHost(host string) {
	if _, ok := m[host]; !ok {
		m[host] = make(map[string]Database)
	}
}

// Set stores the layout of database on host.
func (m Matrix) Set(host, database string, db Database) {
	m.AddHost(host)
	m[host][database] = db
}

// Get returns the layout of database on host, and whether one was collected.
func (m Matrix) Get(host, database string) (Database, bool) {
	db, ok := m[host][database]
	return db, ok
}

// HasHost returns true if host was reachable during collection.
func (m Matrix) HasHost(host string) bool {
	_, ok := m[host]
	return ok
}

// Databases returns the sorted names of databases collected from host.
func (m Matrix) Databases(host string) []string {
	names := make([]string, 0, len(m[host]))
	for name := range m[host] {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Keys computes the DatabaseKey of every (host, database) entry in m.
func (m Matrix) Keys(ignore []string) KeyMatrix {
	km := make(KeyMatrix, len(m))
	for host, dbs := range m {
		km[host] = make(map[string]Key, len(dbs))
		for name, db := range dbs {
			km[host][name] = DatabaseKey(db, ignore)
		}
	}
	return km
}

// KeyMatrix is the canonical-key projection of a Matrix.
type KeyMatrix map[string]map[string]Key

// Get returns the key for database on host, and whether one exists.
func (km KeyMatrix) Get(host, database string) (Key, bool) {
	key, ok := km[host][database]
	return key, ok
}
