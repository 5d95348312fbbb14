package backup

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/devadrianapostol/toydb/logdb"

	"github.com/alecthomas/assert"
)

func createTestDB(t *testing.T, dir string) *logdb.DB {
	db, err := logdb.Open(filepath.Join(dir, "data.log"))
	assert.NoError(t, err)
	for i := 0; i < 100; i++ {
		k := "key_" + string(rune('a'+i%26))
		v := strings.Repeat(k, i%7)
		assert.NoError(t, db.Put(k, v))
	}
	return db
}

func TestSnapshotRestore(t *testing.T) {
	dir := t.TempDir()
	db := createTestDB(t, dir)
	defer db.Close()
	orig, err := os.ReadFile(db.Path)
	assert.NoError(t, err)

	for _, ext := range []string{ExtZstd, ExtBrotli, ExtGzip} {
		snapshotPath := filepath.Join(dir, "snapshot"+ext)
		err := Snapshot(db, snapshotPath)
		assert.NoError(t, err, "Snapshot() %s", ext)

		r, err := OpenMaybeCompressed(snapshotPath)
		assert.NoError(t, err)
		d, err := io.ReadAll(r)
		assert.NoError(t, err)
		assert.NoError(t, r.Close())
		assert.Equal(t, string(orig), string(d), "format %s", ext)

		restoredPath := filepath.Join(dir, "restored"+ext+".log")
		err = Restore(restoredPath, snapshotPath)
		assert.NoError(t, err)

		db2, err := logdb.Open(restoredPath)
		assert.NoError(t, err)
		assert.Equal(t, db.Keys(), db2.Keys())
		for _, k := range db.Keys() {
			v1, _ := db.Get(k)
			v2, ok := db2.Get(k)
			assert.True(t, ok)
			assert.Equal(t, v1, v2)
		}
		assert.NoError(t, db2.Close())
	}
}

func TestRestoreDoesNotOverwrite(t *testing.T) {
	dir := t.TempDir()
	db := createTestDB(t, dir)
	defer db.Close()

	snapshotPath := filepath.Join(dir, "snapshot.zst")
	assert.NoError(t, Snapshot(db, snapshotPath))
	err := Restore(db.Path, snapshotPath)
	assert.True(t, errors.Is(err, os.ErrExist), "got %v", err)
}

func TestRestoreUncompressed(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "copy.txt")
	s := `[op:put, key:"name", val:"grok"]` + "\n"
	assert.NoError(t, os.WriteFile(src, []byte(s), 0644))

	dst := filepath.Join(dir, "restored.log")
	assert.NoError(t, Restore(dst, src))
	db, err := logdb.Open(dst)
	assert.NoError(t, err)
	defer db.Close()
	v, ok := db.Get("name")
	assert.True(t, ok)
	assert.Equal(t, "grok", v)
}

func TestCompressErrors(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "data.log")
	assert.NoError(t, os.WriteFile(src, []byte("garbage\n"), 0644))

	err := CompressFile(filepath.Join(dir, "data.log.bz2"), src)
	assert.True(t, errors.Is(err, ErrUnknownFormat), "got %v", err)

	err = CompressFile(filepath.Join(dir, "out.zst"), filepath.Join(dir, "missing.log"))
	assert.Error(t, err)
	_, err = os.Stat(filepath.Join(dir, "out.zst"))
	assert.True(t, os.IsNotExist(err))

	// not really compressed
	bad := filepath.Join(dir, "bad.gz")
	assert.NoError(t, os.WriteFile(bad, []byte("not gzip"), 0644))
	err = Restore(filepath.Join(dir, "restored.log"), bad)
	assert.Error(t, err)
	_, err = os.Stat(filepath.Join(dir, "restored.log"))
	assert.True(t, os.IsNotExist(err))
}

func TestConfigValidate(t *testing.T) {
	var c *Config
	assert.Error(t, c.Validate())
	c = &Config{Access: "a", Secret: "s", Bucket: "b"}
	assert.Error(t, c.Validate())
	c.Endpoint = "localhost:9000"
	assert.NoError(t, c.Validate())

	_, err := New(context.Background(), &Config{})
	assert.Error(t, err)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/zstd", contentTypeForPath("backups/data.log.zst"))
	assert.Equal(t, "application/x-brotli", contentTypeForPath("data.log.BR"))
	assert.Equal(t, "application/gzip", contentTypeForPath("data.log.gz"))
	assert.Equal(t, "text/plain; charset=utf-8", contentTypeForPath("data.log"))
}
