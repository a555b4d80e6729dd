package dbhost

import (
	"errors"

	"github.com/VividCortex/mysqlerr"
	"github.com/go-sql-driver/mysql"
)

// IsDatabaseError returns true if err, or any error it wraps, was returned by
// a database server. If specificErrors are supplied, the server's error number
// must also match one of them.
func IsDatabaseError(err error, specificErrors ...uint16) bool {
	var merr *mysql.MySQLError
	if !errors.As(err, &merr) {
		return false
	}
	if len(specificErrors) == 0 {
		return true
	}
	for _, num := range specificErrors {
		if merr.Number == num {
			return true
		}
	}
	return false
}

// IsUnknownDatabase returns true if err indicates the requested database does
// not exist on the server.
func IsUnknownDatabase(err error) bool {
	return IsDatabaseError(err, mysqlerr.ER_BAD_DB_ERROR)
}

// IsNoSuchTable returns true if err indicates the requested table does not
// exist.
func IsNoSuchTable(err error) bool {
	return IsDatabaseError(err, mysqlerr.ER_NO_SUCH_TABLE)
}

// IsAccessError returns true if err indicates a problem with credentials or
// privileges. Retrying the same request is pointless.
func IsAccessError(err error) bool {
	return IsDatabaseError(err,
		mysqlerr.ER_ACCESS_DENIED_ERROR,
		mysqlerr.ER_BAD_HOST_ERROR,
		mysqlerr.ER_DBACCESS_DENIED_ERROR,
		mysqlerr.ER_HOST_NOT_PRIVILEGED,
		mysqlerr.ER_HOST_IS_BLOCKED,
		mysqlerr.ER_TABLEACCESS_DENIED_ERROR,
		mysqlerr.ER_SPECIFIC_ACCESS_DENIED_ERROR,
	)
}
