package testutil

import (
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chrisw65/market-profile/lib/configutil/dbconfig"
)

type DBParams struct {
	// if unspecified, it will skip applying a schema
	Schema string
	// if unspecified, a file in the test's temp directory is used
	Path string
}

// SetupDB opens a sqlite database through dbconfig that is closed when the
// test finishes.
func SetupDB(t testing.TB, params DBParams) *sql.DB {
	t.Helper()

	path := params.Path
	if path == "" {
		path = filepath.Join(t.TempDir(), "test.db")
	}
	db, err := dbconfig.Struct{File: path}.OpenDB()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	if params.Schema != "" {
		_, err = db.Exec(params.Schema)
		if err != nil && !strings.Contains(err.Error(), "already exists") {
			t.Fatal(err)
		}
	}
	return db
}
