// Package database owns the sqlite-backed persistence layer: the main catalog
// database (categories and fonts) plus the repository subpackages.
//
// Repositories live in subpackages:
//
//   - fonts: catalog rows with search and upsert semantics
//   - kvstore: sync metadata and preview token caches
//   - legacy: one-time import from the synced legacy schema
//
// All repositories serialize physical access internally and are safe for
// concurrent use from worker goroutines and the request path.
package database
