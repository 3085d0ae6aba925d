// Package sqlite provides the default SQLite-backed console storage.
package sqlite
