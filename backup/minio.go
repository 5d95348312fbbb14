package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/devadrianapostol/toydb/atomicfile"
	"github.com/devadrianapostol/toydb/log"
	"github.com/devadrianapostol/toydb/logdb"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config describes an S3-compatible bucket where log snapshots are stored
type Config struct {
	Access   string
	Secret   string
	Bucket   string
	Endpoint string
	Region   string
	// use http instead of https, e.g. for a local minio server
	Insecure     bool
	RequestTrace io.Writer
}

// Validate returns an error if a required field is missing
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("must provide config")
	}
	if c.Access == "" || c.Secret == "" || c.Bucket == "" || c.Endpoint == "" {
		return errors.New("must provide Access, Secret, Bucket and Endpoint in config")
	}
	return nil
}

type Client struct {
	Client *minio.Client
	Bucket string
}

// New creates a client and verifies that the bucket exists
func New(ctx context.Context, config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	c := config
	mc, err := minio.New(c.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.Access, c.Secret, ""),
		Region: c.Region,
		Secure: !c.Insecure,
	})
	if err != nil {
		return nil, err
	}
	if c.RequestTrace != nil {
		mc.TraceOn(c.RequestTrace)
	}
	found, err := mc.BucketExists(ctx, c.Bucket)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("bucket '%s' doesn't exist", c.Bucket)
	}

	return &Client{
		Client: mc,
		Bucket: c.Bucket,
	}, nil
}

func (c *Client) Exists(ctx context.Context, remotePath string) bool {
	_, err := c.Client.StatObject(ctx, c.Bucket, remotePath, minio.StatObjectOptions{})
	return err == nil
}

// Upload uploads a local file
func (c *Client) Upload(ctx context.Context, remotePath string, path string) (minio.UploadInfo, error) {
	opts := minio.PutObjectOptions{
		ContentType: contentTypeForPath(remotePath),
	}
	return c.Client.FPutObject(ctx, c.Bucket, remotePath, path, opts)
}

// UploadSnapshot compresses the log of db and uploads it as remotePath.
// Compression format is determined by extension of remotePath.
func (c *Client) UploadSnapshot(ctx context.Context, db *logdb.DB, remotePath string) (minio.UploadInfo, error) {
	var res minio.UploadInfo
	format := formatFromPath(remotePath)
	if format == "" {
		return res, fmt.Errorf("backup: '%s': %w", remotePath, ErrUnknownFormat)
	}
	tmpDir, err := os.MkdirTemp("", "toydb-snapshot")
	if err != nil {
		return res, err
	}
	defer os.RemoveAll(tmpDir)

	tmpPath := filepath.Join(tmpDir, "snapshot"+format)
	if err = Snapshot(db, tmpPath); err != nil {
		return res, err
	}
	res, err = c.Upload(ctx, remotePath, tmpPath)
	if err != nil {
		log.Errorf("backup: uploading snapshot of '%s' as '%s' failed with '%s'\n", db.Path, remotePath, err)
		return res, err
	}
	log.Event("backup_upload", "path", db.Path, "remote", remotePath, "size", res.Size)
	return res, nil
}

// Download downloads remotePath to dstPath. dstPath is written atomically.
func (c *Client) Download(ctx context.Context, dstPath string, remotePath string) error {
	obj, err := c.Client.GetObject(ctx, c.Bucket, remotePath, minio.GetObjectOptions{})
	if err != nil {
		return err
	}
	defer obj.Close()

	// ensure there's a dir for destination file
	err = os.MkdirAll(filepath.Dir(dstPath), 0755)
	if err != nil {
		return err
	}

	f, err := atomicfile.New(dstPath)
	if err != nil {
		return err
	}
	defer f.RemoveIfNotClosed()
	if _, err = f.ReadFrom(obj); err != nil {
		return err
	}
	return f.Close()
}

// List returns info about objects whose names start with prefix
func (c *Client) List(ctx context.Context, prefix string) ([]minio.ObjectInfo, error) {
	opts := minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}
	var res []minio.ObjectInfo
	for oi := range c.Client.ListObjects(ctx, c.Bucket, opts) {
		if oi.Err != nil {
			return nil, oi.Err
		}
		res = append(res, oi)
	}
	return res, nil
}

func (c *Client) Remove(ctx context.Context, remotePath string) error {
	return c.Client.RemoveObject(ctx, c.Bucket, remotePath, minio.RemoveObjectOptions{})
}

func contentTypeForPath(path string) string {
	switch formatFromPath(path) {
	case ExtZstd:
		return "application/zstd"
	case ExtBrotli:
		return "application/x-brotli"
	case ExtGzip:
		return "application/gzip"
	}
	return "text/plain; charset=utf-8"
}
