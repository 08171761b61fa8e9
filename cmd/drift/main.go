// Package main provides the drift CLI for snapshot-based schema migrations.
//
// The CLI supports:
//   - new: Create a migration file carrying the latest schema snapshot
//   - diff: Show the operations between two snapshot files
//   - script: Render the full migration script for offline review
//   - apply: Apply pending migrations to a database
//   - revert: Roll back the most recently applied migration
//   - status: Show applied and pending migrations
//
// Commands that require database access (apply, revert, status) need --db,
// DRIFT_DATABASE_URL, or database settings in drift.yaml. Commands that only
// work with files (new, diff, script) do not need database access.
package main

func main() {
	Execute()
}
