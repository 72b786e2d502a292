// Package storage keeps uploaded images and releases them when the record
// that referenced them is deleted.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/xid"
)

// Store saves images and removes them by the public URL it handed out.
type Store interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	Remove(ctx context.Context, url string) error
}

// ErrUnsupportedType is returned for file names without an image extension.
var ErrUnsupportedType = errors.New("storage: unsupported image type")

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

// Disk stores files in one directory and serves them under URLPrefix.
type Disk struct {
	dir       string
	urlPrefix string
}

var _ Store = (*Disk)(nil)

// NewDisk creates dir if needed. urlPrefix is the path the directory is
// served from, e.g. "/media/".
func NewDisk(dir, urlPrefix string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: creating %s: %w", dir, err)
	}
	if !strings.HasSuffix(urlPrefix, "/") {
		urlPrefix += "/"
	}
	return &Disk{dir: dir, urlPrefix: urlPrefix}, nil
}

// Dir is the directory files are written to.
func (d *Disk) Dir() string { return d.dir }

// Save writes r under a fresh name keeping the extension of name, and
// returns its public URL.
func (d *Disk) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if !imageExts[ext] {
		return "", ErrUnsupportedType
	}

	file := xid.New().String() + ext
	full := filepath.Join(d.dir, file)

	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("storage: creating %s: %w", file, err)
	}

	if _, err := io.Copy(f, contextReader{ctx: ctx, r: r}); err != nil {
		f.Close()
		os.Remove(full)
		return "", fmt.Errorf("storage: writing %s: %w", file, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(full)
		return "", fmt.Errorf("storage: closing %s: %w", file, err)
	}

	return d.urlPrefix + file, nil
}

// Remove deletes the file behind url. An empty URL, a URL this store did not
// issue (a Google profile photo, say) or an already missing file is not an
// error.
func (d *Disk) Remove(ctx context.Context, url string) error {
	if url == "" || !strings.HasPrefix(url, d.urlPrefix) {
		return nil
	}

	file := path.Base(strings.TrimPrefix(url, d.urlPrefix))
	if file == "." || file == "/" || file == ".." {
		return nil
	}

	err := os.Remove(filepath.Join(d.dir, file))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: removing %s: %w", file, err)
	}
	return nil
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
