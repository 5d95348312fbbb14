package logdb

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/devadrianapostol/toydb/log"
)

const defaultBufferSize = 4096

var (
	// ErrClosed is returned by Put after Close
	ErrClosed = errors.New("db is closed")
)

// Stats describes what happened since the DB was opened
type Stats struct {
	// records applied during replay
	Replayed int
	// lines skipped during replay (blank, malformed or unknown)
	Skipped int
	// successful Put calls since open
	Puts int
}

// DB is a key-value store persisted in an append-only log file.
// Set the exported fields and call OpenDB, or use Open for defaults.
type DB struct {
	// Path of the log file. Created if it doesn't exist
	Path string

	// if true, will call file.Sync() after every Put
	// Put always flushes its buffer to the file, this also asks the OS
	// to write it to stable storage, which is much slower
	SyncWrite bool

	// size of the write buffer, 0 means default
	BufferSize int

	// if set, called for every record applied to the index,
	// both during replay and after a successful Put
	OnRecord func(rec *Record)

	index map[string]string
	file  *os.File
	w     *bufio.Writer
	stats Stats

	// true if the log might end with a partial line, in which case
	// we start the next append with a newline
	needsNewline bool
}

// Open opens the log file at path, creating it if needed, and replays it.
func Open(path string) (*DB, error) {
	db := &DB{
		Path: path,
	}
	if err := OpenDB(db); err != nil {
		return nil, err
	}
	return db, nil
}

// OpenDB opens db.Path and rebuilds the index by replaying the log.
// On error db is left closed.
func OpenDB(db *DB) error {
	if db.Path == "" {
		return fmt.Errorf("logdb: Path is not set")
	}
	if db.BufferSize <= 0 {
		db.BufferSize = defaultBufferSize
	}
	timeStart := time.Now()

	file, err := os.OpenFile(db.Path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("logdb: failed to open '%s': %w", db.Path, err)
	}

	db.index = map[string]string{}
	db.stats = Stats{}
	db.needsNewline = false
	if err = db.replay(); err != nil {
		file.Close()
		db.index = nil
		return err
	}

	db.file = file
	db.w = bufio.NewWriterSize(file, db.BufferSize)

	dur := time.Since(timeStart)
	log.Verbosef("logdb: opened '%s' in %s, %d records, %d keys, %d skipped lines\n", db.Path, dur, db.stats.Replayed, len(db.index), db.stats.Skipped)
	log.EventWithDuration("logdb_open", dur, "path", db.Path, "records", db.stats.Replayed, "keys", len(db.index), "skipped", db.stats.Skipped)
	return nil
}

// replay reads the log from the beginning and applies every record to the index
func (db *DB) replay() error {
	f, err := os.Open(db.Path)
	if err != nil {
		return fmt.Errorf("logdb: failed to open '%s' for reading: %w", db.Path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	lineNo := 0
	for {
		line, err := r.ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("logdb: failed to read '%s': %w", db.Path, err)
		}
		if line == "" {
			// io.EOF on a line boundary
			break
		}
		lineNo++
		if !strings.HasSuffix(line, "\n") {
			db.needsNewline = true
		}
		if rec, ok := ParseLine(line); ok {
			db.apply(rec)
			db.stats.Replayed++
		} else {
			if strings.TrimSpace(line) != "" {
				log.Verbosef("logdb: '%s' line %d: skipping '%s'\n", db.Path, lineNo, strings.TrimSpace(line))
			}
			db.stats.Skipped++
		}
		if err == io.EOF {
			break
		}
	}
	return nil
}

func (db *DB) apply(rec *Record) {
	switch rec.Op {
	case OpPut:
		db.index[rec.Key] = rec.Value
	}
	if db.OnRecord != nil {
		db.OnRecord(rec)
	}
}

// appendLine writes line to the log and flushes it to the file
func (db *DB) appendLine(line string) error {
	var err error
	if db.needsNewline {
		err = db.w.WriteByte('\n')
	}
	if err == nil {
		_, err = db.w.WriteString(line)
	}
	if err == nil {
		err = db.w.WriteByte('\n')
	}
	if err == nil {
		err = db.w.Flush()
	}
	if err == nil && db.SyncWrite {
		err = db.file.Sync()
	}
	if err != nil {
		// bufio.Writer errors are sticky and whatever didn't make it
		// to the file is dropped. part of the line might have been written
		db.w.Reset(db.file)
		db.needsNewline = true
		return fmt.Errorf("logdb: failed to append to '%s': %w", db.Path, err)
	}
	db.needsNewline = false
	return nil
}

// Put durably sets key to value.
// The record is flushed to the log file before the index is updated.
// If Put returns an error, the index is unchanged.
func (db *DB) Put(key string, value string) error {
	if db.file == nil {
		return ErrClosed
	}
	rec := &Record{
		Op:    OpPut,
		Key:   key,
		Value: value,
	}
	if err := ValidateRecord(rec); err != nil {
		return err
	}
	if err := db.appendLine(MarshalRecord(rec)); err != nil {
		return err
	}
	db.apply(rec)
	db.stats.Puts++
	return nil
}

// Get returns the current value of key. It doesn't do any I/O.
func (db *DB) Get(key string) (string, bool) {
	v, ok := db.index[key]
	return v, ok
}

// Has returns true if key has a value
func (db *DB) Has(key string) bool {
	_, ok := db.index[key]
	return ok
}

// Len returns number of keys
func (db *DB) Len() int {
	return len(db.index)
}

// Keys returns all keys, sorted
func (db *DB) Keys() []string {
	keys := make([]string, 0, len(db.index))
	for k := range db.index {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (db *DB) Stats() Stats {
	return db.stats
}

// Close flushes and closes the log file.
// The index remains readable after Close. Calling Close more than once is a no-op.
func (db *DB) Close() error {
	if db == nil || db.file == nil {
		return nil
	}
	err1 := db.w.Flush()
	err2 := db.file.Close()
	db.file = nil
	db.w = nil
	if err1 != nil {
		return fmt.Errorf("logdb: failed to flush '%s': %w", db.Path, err1)
	}
	if err2 != nil {
		return fmt.Errorf("logdb: failed to close '%s': %w", db.Path, err2)
	}
	return nil
}
