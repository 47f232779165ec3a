package dbconfig

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

type Driver string

const (
	DriverSqlite   Driver = "sqlite"
	DriverLibsql   Driver = "libsql"
	DriverPostgres Driver = "postgres"
)

// Struct selects a backend by whichever field is set: Dsn opens postgres,
// Url opens a remote libsql database, File opens a local sqlite file.
type Struct struct {
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
	Dsn       string `json:"dsn"`
}

func (config Struct) Driver() Driver {
	switch {
	case config.Dsn != "":
		return DriverPostgres
	case config.Url != "":
		return DriverLibsql
	default:
		return DriverSqlite
	}
}

func (config Struct) OpenDB() (*sql.DB, error) {
	switch config.Driver() {
	case DriverPostgres:
		return sql.Open("pgx", config.Dsn)
	case DriverLibsql:
		values := url.Values{}
		if config.AuthToken != "" {
			values.Add("authToken", config.AuthToken)
		}
		target := config.Url
		if len(values) > 0 {
			target += "?" + values.Encode()
		}
		return sql.Open("libsql", target)
	}

	if config.File == "" {
		return nil, fmt.Errorf("a path was not specified")
	}
	if config.File == ":memory:" {
		db, err := sql.Open("sqlite", config.File)
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(1)
		return db, nil
	}

	dbpath, err := filepath.Abs(config.File)
	if err != nil {
		return nil, err
	}
	_, statErr := os.Stat(dbpath)
	if os.IsNotExist(statErr) {
		err = os.MkdirAll(filepath.Dir(dbpath), 0755)
		if err != nil {
			return nil, err
		}
		f, err := os.Create(dbpath)
		if err != nil {
			return nil, err
		}
		f.Close()
	}

	db, err := sql.Open("sqlite", dbpath)
	if err != nil {
		return nil, err
	}
	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	return db, nil
}
