// Package history persists finished download runs in SQLite.
//
// Every job Result is recorded as one row in runs plus one row per work item
// in run_items (succeeded, failed and untried). The CLI reads the store for
// `ytbatch history` and rebuilds retry jobs from it. The schema is embedded
// and versioned; a mismatched database is rejected rather than migrated.
package history
