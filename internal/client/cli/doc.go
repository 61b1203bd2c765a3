// Package cli provides the interactive dogstack terminal client.
//
// It wires configuration, the local session database, the backend client and
// the session, profile, upload and deep-link components into a REPL whose
// command set follows the current screen stack (see navigation.Select).
//
// Typical flow: restore the stored session, handle the link the client was
// started with, start the loopback callback listener and the foreground
// watcher, then read commands until the user exits.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, StartForegroundWatcher, and runREPL for details.
package cli
