/*
Package sqlite3adapter provides a sqldataset.Adapter for SQLite3
database files.
*/
package sqlite3adapter

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Adapter opens sample tables stored in an SQLite3 file.
type Adapter struct {
	db *sql.DB
}

/*
New takes the path to an SQLite3 file and a limit for concurrently
open connections (0 means no limit) and returns an adapter for it.
*/
func New(filepath string, maxConns int) (*Adapter, error) {
	db, err := sql.Open("sqlite3", filepath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite3 database %s: %v", filepath, err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
	}
	return &Adapter{db: db}, nil
}

// DB returns the open handle to the SQLite3 database.
func (a *Adapter) DB() *sql.DB {
	return a.db
}

// Close releases the database connections.
func (a *Adapter) Close() error {
	return a.db.Close()
}
