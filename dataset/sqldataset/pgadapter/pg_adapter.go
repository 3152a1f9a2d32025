/*
Package pgadapter provides a sqldataset.Adapter for PostgreSQL
databases.
*/
package pgadapter

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Adapter opens sample tables stored on a PostgreSQL server.
type Adapter struct {
	db *sql.DB
}

/*
New takes a PostgreSQL connection URL and returns an adapter for the
database it points to.
*/
func New(url string) (*Adapter, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("opening postgresql database %s: %v", url, err)
	}
	return &Adapter{db: db}, nil
}

// DB returns the open handle to the PostgreSQL database.
func (a *Adapter) DB() *sql.DB {
	return a.db
}

// Close releases the database connections.
func (a *Adapter) Close() error {
	return a.db.Close()
}
