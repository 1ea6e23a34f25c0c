// Package filestore keeps uploaded files on local disk and serves their
// public URLs.
package filestore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidName = errors.New("invalid file name")

type Disk struct {
	dir       string
	publicURL string
	now       func() time.Time
}

// NewDisk creates dir when missing. publicURL is the server base URL used
// to build file URLs.
func NewDisk(dir, publicURL string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Disk{dir: dir, publicURL: strings.TrimRight(publicURL, "/"), now: time.Now}, nil
}

func (d *Disk) Dir() string { return d.dir }

// NewName builds "<prefix>-<unix ms>-<random><ext>" keeping the extension
// of the original name.
func (d *Disk) NewName(prefix, original string) string {
	u := uuid.New()
	n := binary.BigEndian.Uint32(u[:4]) % 1_000_000_000
	return fmt.Sprintf("%s-%d-%d%s", prefix, d.now().UnixMilli(), n, strings.ToLower(filepath.Ext(original)))
}

// Save writes src to name and returns the number of bytes written. A
// partial file is removed on failure.
func (d *Disk) Save(name string, src io.Reader) (int64, error) {
	path, err := d.Path(name)
	if err != nil {
		return 0, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", name, err)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, fmt.Errorf("write %s: %w", name, err)
	}
	return n, nil
}

func (d *Disk) Open(name string) (*os.File, error) {
	path, err := d.Path(name)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Remove deletes name. A missing file is reported as os.ErrNotExist.
func (d *Disk) Remove(name string) error {
	path, err := d.Path(name)
	if err != nil {
		return err
	}
	return os.Remove(path)
}

// Path resolves name inside the upload dir, rejecting anything that is not
// a plain file name.
func (d *Disk) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", ErrInvalidName
	}
	return filepath.Join(d.dir, name), nil
}

// URL is the public URL of name.
func (d *Disk) URL(name string) string {
	return d.publicURL + "/uploads/" + name
}

// NameFromURL extracts the stored file name from a URL built by URL.
func NameFromURL(url string) string {
	if i := strings.LastIndex(url, "/"); i >= 0 {
		return url[i+1:]
	}
	return url
}
