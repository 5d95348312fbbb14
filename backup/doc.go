// Package backup makes compressed copies of logdb log files and
// stores them locally or in an S3-compatible bucket.
//
// Compression format is picked by file extension:
//   - .zst: zstd
//   - .br: brotli
//   - .gz: gzip
//
// A copy is a plain log file once decompressed, so restoring is
// decompressing it to a new path and opening that with logdb.Open:
//
//	err := backup.Snapshot(db, "data.log.zst")
//	...
//	err = backup.Restore("restored.log", "data.log.zst")
//	db2, err := logdb.Open("restored.log")
package backup
