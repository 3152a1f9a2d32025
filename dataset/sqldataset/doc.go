/*
Package sqldataset loads sample datasets from SQL databases. It works
on any database/sql backend through a small Adapter interface;
the sqlite3adapter and pgadapter subpackages provide adapters for
SQLite3 files and PostgreSQL servers.

The samples are expected in a single table whose columns are the
feature values in order, with the class label as the last column.
*/
package sqldataset
