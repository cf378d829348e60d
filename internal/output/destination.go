package output

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
)

// Destination is a manifest target that becomes visible only on Commit.
type Destination interface {
	io.Writer
	Commit() error
	Abort()
}

// OpenDestination opens a local file path or a gs://bucket/object URL.
func OpenDestination(ctx context.Context, path string) (Destination, error) {
	if strings.HasPrefix(path, "gs://") {
		return openGCS(ctx, path)
	}
	return openLocal(path)
}

// localDestination writes to a temporary sibling and renames on commit.
type localDestination struct {
	file *os.File
	path string
}

func openLocal(path string) (*localDestination, error) {
	if path == "" {
		return nil, fmt.Errorf("output path is required")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary output file: %w", err)
	}
	return &localDestination{file: f, path: path}, nil
}

func (d *localDestination) Write(p []byte) (int, error) {
	return d.file.Write(p)
}

func (d *localDestination) Commit() error {
	if err := d.file.Close(); err != nil {
		os.Remove(d.file.Name())
		return fmt.Errorf("failed to close output file: %w", err)
	}
	if err := os.Chmod(d.file.Name(), 0644); err != nil {
		os.Remove(d.file.Name())
		return fmt.Errorf("failed to set output permissions: %w", err)
	}
	if err := os.Rename(d.file.Name(), d.path); err != nil {
		os.Remove(d.file.Name())
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}

func (d *localDestination) Abort() {
	d.file.Close()
	os.Remove(d.file.Name())
}

// gcsDestination streams to a Cloud Storage object. The object only exists
// once the writer is closed; cancelling the context abandons the upload.
type gcsDestination struct {
	client *storage.Client
	writer *storage.Writer
	cancel context.CancelFunc
}

func openGCS(ctx context.Context, path string) (*gcsDestination, error) {
	bucket, object, err := ParseGSPath(path)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	wctx, cancel := context.WithCancel(ctx)
	w := client.Bucket(bucket).Object(object).NewWriter(wctx)
	w.ContentType = "text/csv"

	return &gcsDestination{client: client, writer: w, cancel: cancel}, nil
}

func (d *gcsDestination) Write(p []byte) (int, error) {
	return d.writer.Write(p)
}

func (d *gcsDestination) Commit() error {
	defer d.client.Close()
	defer d.cancel()
	if err := d.writer.Close(); err != nil {
		return fmt.Errorf("failed to upload manifest: %w", err)
	}
	return nil
}

func (d *gcsDestination) Abort() {
	d.cancel()
	d.writer.Close()
	d.client.Close()
}

// ParseGSPath splits gs://bucket/object into its parts.
func ParseGSPath(path string) (bucket, object string, err error) {
	pathParts := strings.SplitN(strings.TrimPrefix(path, "gs://"), "/", 2)
	if len(pathParts) != 2 || pathParts[0] == "" || pathParts[1] == "" {
		return "", "", fmt.Errorf("invalid Cloud Storage path %q: expected gs://bucket/object", path)
	}
	return pathParts[0], pathParts[1], nil
}
