// Package logdb implements a persistent key-value store backed by
// a single append-only log file.
//
// Every write is appended to the log as one line of text and the
// in-memory index is rebuilt by replaying the log when the database
// is opened.
//
// # Log Format
//
// One record per line:
//
//	[op:put, key:"name", val:"grok"]
//
// Keys and values are written as-is, without escaping, so Put rejects
// keys and values that contain a double quote, the ", " separator or
// a line break. Lines that don't parse as a known record (garbage, blank
// lines, partially written lines, operations this version doesn't know)
// are skipped during replay.
//
// # Basic Usage
//
//	db, err := logdb.Open("data.log")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	err = db.Put("name", "grok")
//	v, ok := db.Get("name")
//
// Optional settings are fields on [DB], filled in before calling [OpenDB]:
//
//	db := &logdb.DB{
//	    Path:      "data.log",
//	    SyncWrite: true,
//	}
//	err := logdb.OpenDB(db)
//
// # Durability
//
// Put flushes the write buffer to the file before returning and only then
// updates the index. With SyncWrite it also calls fsync.
//
// # Thread Safety
//
// A DB is not safe for concurrent use. Callers must serialize access.
// Only one DB should have a given log file open.
package logdb
