// Package persistence implements the per-subscription config store used by
// the satellite controller.
//
// The store holds small fallible key/value settings: the user's
// attach-enabled flag per subscription and the device-level satellite mode
// flag. Writes happen before any hardware command is issued; a failed
// write aborts the whole operation.
//
// # File Format
//
// FileStore persists settings as a single versioned JSON document. The
// file is rewritten atomically on every Set; settings are tiny and the
// simplicity beats partial-write recovery logic.
package persistence
