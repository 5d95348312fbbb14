package atomicfile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/assert"
)

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}

func fileSize(t *testing.T, path string) int64 {
	st, err := os.Stat(path)
	assert.NoError(t, err)
	return st.Size()
}

func TestSimulateError(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "export.json")
	f, err := New(dst)
	assert.NoError(t, err)
	assert.True(t, fileExists(f.tmpPath))
	_, err = f.Write([]byte("foo"))
	assert.NoError(t, err)

	errSimulated := errors.New("simulated")
	f.err = errSimulated
	err = f.Close()
	assert.Equal(t, errSimulated, err)
	assert.False(t, fileExists(f.tmpPath))
	assert.False(t, fileExists(dst))
	// on second Close() should get the same error
	err = f.Close()
	assert.Equal(t, errSimulated, err)
}

func TestTempFileInDestinationDir(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "data.log.zst")
	f, err := New(dst)
	assert.NoError(t, err)
	defer f.RemoveIfNotClosed()
	assert.Equal(t, dir, filepath.Dir(f.tmpPath))
	assert.True(t, strings.HasPrefix(filepath.Base(f.tmpPath), "data.log.zst.tmp"))
	assert.Equal(t, dst, f.Name())
}

func writeWithPanicCancel(t *testing.T, f *File) {
	defer f.RemoveIfNotClosed()

	_, err := f.Write([]byte("foo"))
	assert.NoError(t, err)
	panic("simulating a crash")
}

func recoverCancelPanic(t *testing.T, f *File) {
	defer func() {
		err := recover()
		assert.True(t, err != nil, "expected to panic")
	}()

	writeWithPanicCancel(t, f)
}

func TestCancelOnPanic(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "export.json")
	f, err := New(dst)
	assert.NoError(t, err)
	recoverCancelPanic(t, f)
	assert.False(t, fileExists(f.tmpPath))
	assert.False(t, fileExists(dst))
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "export.json")
	{
		f, err := New(dst)
		assert.NoError(t, err)
		_ = f.Close()
		assert.True(t, fileExists(dst))
		assert.Equal(t, int64(0), fileSize(t, dst))
		assert.False(t, fileExists(f.tmpPath))
	}

	d := []byte(`[op:put, key:"name", val:"grok"]` + "\n")
	{
		f, err := New(dst)
		assert.NoError(t, err)
		n, err := f.Write(d)
		assert.NoError(t, err)
		assert.Equal(t, len(d), n)
		n2, err := f.ReadFrom(strings.NewReader(string(d)))
		assert.NoError(t, err)
		assert.Equal(t, int64(len(d)), n2)
		// destination still has the old content until Close
		assert.Equal(t, int64(0), fileSize(t, dst))
		err = f.Close()
		assert.NoError(t, err)
		assert.False(t, fileExists(f.tmpPath))
		assert.Equal(t, int64(2*len(d)), fileSize(t, dst))
		// calling Close twice is a no-op
		err = f.Close()
		assert.NoError(t, err)
	}

	{
		// RemoveIfNotClosed sets an error state and keeps the old file
		f, err := New(dst)
		assert.NoError(t, err)
		f.RemoveIfNotClosed()
		_, err = f.Write(d)
		assert.Equal(t, ErrCancelled, err)
		assert.Equal(t, ErrCancelled, f.Close())
		assert.Equal(t, ErrCancelled, f.Close())
		assert.Equal(t, int64(2*len(d)), fileSize(t, dst))
	}

	// we can't create files in directories that don't exist
	// so verify we do an early check
	{
		f, err := New(filepath.Join(dir, "foo", "bar.txt"))
		assert.Error(t, err)
		assert.True(t, f == nil)
	}
}
