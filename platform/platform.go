// Package platform implements the SQLite-backed services maintained by
// Classboard's background jobs: auth sessions, the application cache, reward
// leaderboards, message analysis, and fee billing. Each service is a thin
// store over the shared database; the jobs package wires them into the
// scheduler.
package platform

import "time"

// SQLiteTime is the timestamp layout used in the platform tables.
// It matches SQLite's datetime('now') so Go-written and SQL-written
// timestamps compare correctly.
const SQLiteTime = "2006-01-02 15:04:05"

func nowUTC() string {
	return time.Now().UTC().Format(SQLiteTime)
}
