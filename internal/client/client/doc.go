// Package client bootstraps the local persistence of the dogstack terminal
// client: it opens the SQLite database (modernc.org/sqlite, no cgo) and applies
// the embedded goose migrations.
//
// The database only holds the auth_storage table, a key/value store used by
// the backend client to keep the current session across restarts. Profile
// rows and images always live on the backend and are never cached here.
package client
