// Package database provides SQLite-based run history storage.
//
// Each executed script is recorded as a run with its page, branch, and
// save counts, plus one row per stored media file. The history command
// reads these records back to show past crawls.
//
// SQLite via modernc.org/sqlite keeps the store a single file with a
// CGO-free driver, and WAL mode gives good concurrent read performance.
package database
