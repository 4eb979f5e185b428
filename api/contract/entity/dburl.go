package entity

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Supported database dialects.
const (
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
	DialectSQLite   = "sqlite"
)

var (
	ErrUnknownDialect = errors.New("unknown database dialect")
	ErrInvalidURL     = errors.New("invalid database URL")
)

// InferDialect returns the dialect ("postgres", "mysql", or "sqlite")
// based on the URL scheme.
func InferDialect(dbURL string) (string, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "postgres", "postgresql":
		return DialectPostgres, nil
	case "mysql":
		return DialectMySQL, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownDialect, u.Scheme)
	}
}

// DriverAndDSN maps a database URL onto a database/sql driver name and
// its DSN. Postgres URLs pass through unchanged for the pgx stdlib
// driver; MySQL URLs are rewritten into the go-sql-driver format;
// SQLite URLs reduce to the file path.
func DriverAndDSN(dbURL string) (driver, dsn string, err error) {
	dialect, err := InferDialect(dbURL)
	if err != nil {
		return "", "", err
	}

	switch dialect {
	case DialectPostgres:
		return "pgx", dbURL, nil

	case DialectMySQL:
		u, err := url.Parse(dbURL)
		if err != nil {
			return "", "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
		}
		user := ""
		if u.User != nil {
			user = u.User.Username()
			if pw, ok := u.User.Password(); ok {
				user += ":" + pw
			}
		}
		host := u.Host
		if host == "" {
			host = "127.0.0.1:3306"
		}
		dbname := strings.TrimPrefix(u.Path, "/")
		return "mysql", fmt.Sprintf("%s@tcp(%s)/%s", user, host, dbname), nil

	case DialectSQLite:
		u, err := url.Parse(dbURL)
		if err != nil {
			return "", "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
		}
		path := u.Opaque
		if path == "" {
			path = u.Host + u.Path
		}
		if path == "" {
			return "", "", fmt.Errorf("%w: sqlite URL has no path", ErrInvalidURL)
		}
		return "sqlite", path, nil
	}
	return "", "", fmt.Errorf("%w: %s", ErrUnknownDialect, dialect)
}
