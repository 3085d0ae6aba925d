// Package storage defines the console's durable client storage contract.
//
// The console keeps a handful of string values across restarts (the session
// token today). Handlers and the session store depend on this interface so
// the SQLite and Redis drivers stay interchangeable.
package storage
