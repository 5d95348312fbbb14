package backup

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/devadrianapostol/toydb/atomicfile"
	"github.com/devadrianapostol/toydb/logdb"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// ErrUnknownFormat is returned when compression format can't be
// determined from file extension
var ErrUnknownFormat = errors.New("unknown compression format")

// supported file extensions
const (
	ExtZstd   = ".zst"
	ExtBrotli = ".br"
	ExtGzip   = ".gz"
)

// implement io.ReadCloser over os.File wrapped with io.Reader.
// io.Closer goes to os.File, io.Reader goes to wrapping reader
type readerWrappedFile struct {
	f     *os.File
	r     io.Reader
	close func()
}

func (rc *readerWrappedFile) Close() error {
	if rc.close != nil {
		rc.close()
	}
	return rc.f.Close()
}

func (rc *readerWrappedFile) Read(p []byte) (int, error) {
	return rc.r.Read(p)
}

func formatFromPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ExtZstd, ExtBrotli, ExtGzip:
		return ext
	}
	return ""
}

// OpenMaybeCompressed opens a file that might be compressed with zstd,
// brotli or gzip, based on file extension.
// Files with other extensions are returned as-is.
func OpenMaybeCompressed(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	switch formatFromPath(path) {
	case ExtZstd:
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return &readerWrappedFile{f: f, r: zr, close: zr.Close}, nil
	case ExtBrotli:
		return &readerWrappedFile{f: f, r: brotli.NewReader(f)}, nil
	case ExtGzip:
		gr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return &readerWrappedFile{f: f, r: gr}, nil
	}
	return f, nil
}

func newCompressWriter(w io.Writer, format string) (io.WriteCloser, error) {
	switch format {
	case ExtZstd:
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	case ExtBrotli:
		return brotli.NewWriterLevel(w, brotli.BestCompression), nil
	case ExtGzip:
		return gzip.NewWriterLevel(w, gzip.BestCompression)
	}
	return nil, ErrUnknownFormat
}

// CompressFile writes a compressed copy of srcPath to dstPath.
// Compression format is determined by extension of dstPath (.zst, .br or .gz).
// dstPath is written atomically.
func CompressFile(dstPath string, srcPath string) error {
	format := formatFromPath(dstPath)
	if format == "" {
		return fmt.Errorf("backup: '%s': %w", dstPath, ErrUnknownFormat)
	}
	fSrc, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer fSrc.Close()

	fDst, err := atomicfile.New(dstPath)
	if err != nil {
		return err
	}
	defer fDst.RemoveIfNotClosed()

	w, err := newCompressWriter(fDst, format)
	if err != nil {
		return err
	}
	if _, err = io.Copy(w, fSrc); err != nil {
		w.Close()
		return fmt.Errorf("backup: compressing '%s' failed with '%w'", srcPath, err)
	}
	if err = w.Close(); err != nil {
		return err
	}
	return fDst.Close()
}

// Restore decompresses srcPath into a new log file dstLogPath.
// It refuses to overwrite an existing file.
func Restore(dstLogPath string, srcPath string) error {
	if _, err := os.Stat(dstLogPath); err == nil {
		return fmt.Errorf("backup: '%s' already exists: %w", dstLogPath, os.ErrExist)
	}
	r, err := OpenMaybeCompressed(srcPath)
	if err != nil {
		return err
	}
	defer r.Close()

	fDst, err := atomicfile.New(dstLogPath)
	if err != nil {
		return err
	}
	defer fDst.RemoveIfNotClosed()
	if _, err = fDst.ReadFrom(r); err != nil {
		return fmt.Errorf("backup: decompressing '%s' failed with '%w'", srcPath, err)
	}
	return fDst.Close()
}

// Snapshot writes a compressed copy of the log of db to dstPath.
// Every Put flushes the log so the copy has all records written so far.
func Snapshot(db *logdb.DB, dstPath string) error {
	return CompressFile(dstPath, db.Path)
}
