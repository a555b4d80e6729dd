package dbhost

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/skeema/tablecheck/internal/collect"
)

// Session is a single connection to an Instance, used for reading table
// definitions one statement at a time. It is not safe for concurrent use.
type Session struct {
	instance   *Instance
	db         *sqlx.DB
	conn       *sqlx.Conn
	delay      time.Duration
	sleep      func(time.Duration)
	statements int
	database   string // database most recently selected with USE
}

// Instance returns the instance this session is connected to.
func (s *Session) Instance() *Instance {
	return s.instance
}

// pause waits out the politeness delay before every statement but the first.
func (s *Session) pause() {
	if s.statements > 0 && s.delay > 0 {
		s.sleep(s.delay)
	}
	s.statements++
}

func (s *Session) exec(query string) error {
	s.pause()
	_, err := s.conn.ExecContext(context.Background(), query)
	return err
}

func (s *Session) selectRows(dest interface{}, query string) error {
	s.pause()
	return s.conn.SelectContext(context.Background(), dest, query)
}

// Use switches the session's default database, unless it is already
// selected.
func (s *Session) Use(database string) error {
	if database == s.database {
		return nil
	}
	if err := s.exec("USE " + EscapeIdentifier(database)); err != nil {
		return err
	}
	s.database = database
	return nil
}

// TableExists returns true if table exists in the current database.
func (s *Session) TableExists(table string) (bool, error) {
	var names []string
	if err := s.selectRows(&names, "SHOW TABLES LIKE "+likeLiteral(table)); err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// ShowCreateTable returns the CREATE TABLE statement of a table in the
// current database.
func (s *Session) ShowCreateTable(table string) (string, error) {
	var rows []struct {
		TableName       string `db:"Table"`
		CreateStatement string `db:"Create Table"`
	}
	if err := s.selectRows(&rows, "SHOW CREATE TABLE "+EscapeIdentifier(table)); err != nil {
		return "", err
	} else if len(rows) != 1 {
		return "", fmt.Errorf("SHOW CREATE TABLE %s returned %d rows", table, len(rows))
	}
	return rows[0].CreateStatement, nil
}

// FetchTableDDL reads the definition of database.table, classifying the
// outcome.
func (s *Session) FetchTableDDL(database, table string) collect.Fetch {
	if err := s.Use(database); IsUnknownDatabase(err) {
		return collect.Fetch{Status: collect.StatusNoDatabase, Err: err}
	} else if err != nil {
		return collect.Fetch{Status: collect.StatusError, Err: fmt.Errorf("%w %s: %w", collect.ErrSwitchDatabase, database, err)}
	}
	if exists, err := s.TableExists(table); err != nil {
		return collect.Fetch{Status: collect.StatusError, Err: err}
	} else if !exists {
		return collect.Fetch{Status: collect.StatusAbsent}
	}
	ddl, err := s.ShowCreateTable(table)
	if IsNoSuchTable(err) { // dropped between statements
		return collect.Fetch{Status: collect.StatusAbsent}
	} else if err != nil {
		return collect.Fetch{Status: collect.StatusError, Err: err}
	}
	return collect.Fetch{Status: collect.StatusExists, DDL: ddl}
}

type variableRow struct {
	Name  string `db:"Variable_name"`
	Value string `db:"Value"`
}

func (s *Session) variables(pattern string) (map[string]string, error) {
	var rows []variableRow
	if err := s.selectRows(&rows, "SHOW VARIABLES LIKE '"+pattern+"'"); err != nil {
		return nil, err
	}
	result := make(map[string]string, len(rows))
	for _, row := range rows {
		result[row.Name] = row.Value
	}
	return result, nil
}

// ServerVersion returns the value of the version server variable.
func (s *Session) ServerVersion() (string, error) {
	vars, err := s.variables("version")
	if err != nil {
		return "", err
	}
	version, ok := vars["version"]
	if !ok {
		return "", errors.New("version variable not found")
	}
	return version, nil
}

// Flavor identifies the server's vendor and version.
func (s *Session) Flavor() (Flavor, error) {
	vars, err := s.variables("version%")
	if err != nil {
		return FlavorUnknown, err
	}
	return IdentifyFlavor(vars["version"], vars["version_comment"]), nil
}

// Close releases the session's connection and its pool.
func (s *Session) Close() error {
	err := s.conn.Close()
	s.instance.release(s.db)
	return err
}
