package sqlstore

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	pgUniqueViolation    = "23505"
	mysqlDuplicateEntry  = 1062
	sqliteUniqueViolated = sqlite3.SQLITE_CONSTRAINT_UNIQUE
)

// dialect captures the differences between the supported SQL engines.
type dialect struct {
	name        string // store driver name from config
	driverName  string // database/sql driver
	gooseName   string
	migrations  string // directory under migrations/
	numbered    bool   // $1, $2 placeholders instead of ?
	returningID bool   // INSERT ... RETURNING id instead of LastInsertId
	// prepareDSN rewrites the configured DSN into what the store needs, when set.
	prepareDSN func(dsn string) (string, error)
	// uniqueIdent extracts the identifier that names the violated unique
	// constraint, or reports false when err is not a unique violation.
	uniqueIdent func(err error) (string, bool)
}

var dialects = map[string]dialect{
	"postgres": {
		name:        "postgres",
		driverName:  "pgx",
		gooseName:   "postgres",
		migrations:  "migrations/postgres",
		numbered:    true,
		returningID: true,
		uniqueIdent: func(err error) (string, bool) {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
				return pgErr.ConstraintName, true
			}
			return "", false
		},
	},
	"mysql": {
		name:       "mysql",
		driverName: "mysql",
		gooseName:  "mysql",
		migrations: "migrations/mysql",
		prepareDSN: mysqlDSN,
		uniqueIdent: func(err error) (string, bool) {
			var myErr *mysql.MySQLError
			if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
				return myErr.Message, true
			}
			return "", false
		},
	},
	"sqlite": {
		name:       "sqlite",
		driverName: "sqlite",
		gooseName:  "sqlite3",
		migrations: "migrations/sqlite",
		uniqueIdent: func(err error) (string, bool) {
			var sqErr *sqlite.Error
			if errors.As(err, &sqErr) && sqErr.Code() == sqliteUniqueViolated {
				return sqErr.Error(), true
			}
			return "", false
		},
	},
}

// mysqlDSN makes the driver scan DATETIME columns into UTC time.Time values
// and report matched rather than changed rows from UPDATE.
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("sqlstore: parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.ClientFoundRows = true
	return cfg.FormatDSN(), nil
}

func lookupDialect(driver string) (dialect, error) {
	d, ok := dialects[strings.ToLower(driver)]
	if !ok {
		return dialect{}, fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}
	return d, nil
}

// rebind rewrites ? placeholders for engines that use numbered parameters.
// Queries in this package never contain literal question marks.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
