// Package history records deployment runs in a local SQLite database.
//
// Each invocation of the build flow inserts one row when it starts, fills in
// the remote job id once Studio accepts the request, and closes the row with
// the outcome: the saved artifact on success, or the error message otherwise.
// The schema is versioned; a database created by an incompatible release is
// rejected with ErrSchemaMismatch instead of being migrated in place.
package history
