// Package archive installs zip bundles into a directory that is owned
// entirely by the bundle: the directory is emptied and repopulated on every
// install. Entry names are checked before anything on disk changes.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrUnsafePath is returned for an entry that would land outside the target
// directory.
var ErrUnsafePath = errors.New("unsafe archive entry")

// ErrTooLarge is returned when the uncompressed content exceeds the limit.
var ErrTooLarge = errors.New("archive content exceeds size limit")

// Summary describes a completed install.
type Summary struct {
	Files int
	Dirs  int
	Bytes int64
}

// Option configures Install.
type Option func(*options)

type options struct {
	maxBytes int64
}

// WithMaxBytes caps the total uncompressed size. Zero means no cap.
func WithMaxBytes(n int64) Option {
	return func(o *options) { o.maxBytes = n }
}

// Install replaces the contents of targetDir with the entries of the zip
// bundle. Every entry name is validated first; a single unsafe entry aborts
// the install with ErrUnsafePath and leaves targetDir untouched.
func Install(bundle []byte, targetDir string, opts ...Option) (*Summary, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	zr, err := zip.NewReader(bytes.NewReader(bundle), int64(len(bundle)))
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, fmt.Errorf("opening zip bundle: %w", err)
	}

	names := make([]string, len(zr.File))
	var declared uint64
	for i, f := range zr.File {
		name, err := SafeName(f.Name)
		if err != nil {
			return nil, err
		}
		if f.Mode()&os.ModeSymlink != 0 {
			return nil, fmt.Errorf("%w: %q is a symbolic link", ErrUnsafePath, f.Name)
		}
		names[i] = name
		declared += f.UncompressedSize64
	}
	if o.maxBytes > 0 && declared > uint64(o.maxBytes) {
		return nil, fmt.Errorf("%w: %d bytes declared, limit %d", ErrTooLarge, declared, o.maxBytes)
	}

	if err := os.RemoveAll(targetDir); err != nil {
		return nil, fmt.Errorf("clearing %s: %w", targetDir, err)
	}
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", targetDir, err)
	}

	sum := &Summary{}
	for i, f := range zr.File {
		if names[i] == "" {
			continue
		}
		dest := filepath.Join(targetDir, filepath.FromSlash(names[i]))

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0755); err != nil {
				return sum, fmt.Errorf("creating directory %s: %w", names[i], err)
			}
			sum.Dirs++
			continue
		}

		remaining := int64(-1)
		if o.maxBytes > 0 {
			remaining = o.maxBytes - sum.Bytes
		}
		n, err := extractFile(f, dest, remaining)
		sum.Bytes += n
		if err != nil {
			return sum, fmt.Errorf("extracting %s: %w", names[i], err)
		}
		sum.Files++
	}
	return sum, nil
}

// SafeName normalizes a zip entry name to a slash-separated relative path.
// Absolute names, drive letters and any name that climbs out of the root
// through ".." are rejected with ErrUnsafePath. The root itself normalizes
// to "".
func SafeName(name string) (string, error) {
	n := strings.ReplaceAll(name, `\`, "/")
	if strings.HasPrefix(n, "/") || hasDriveLetter(n) {
		return "", fmt.Errorf("%w: %q is absolute", ErrUnsafePath, name)
	}
	for _, seg := range strings.Split(n, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q escapes the target directory", ErrUnsafePath, name)
		}
	}
	clean := path.Clean(n)
	if clean == "." {
		return "", nil
	}
	return clean, nil
}

func hasDriveLetter(n string) bool {
	if len(n) < 2 || n[1] != ':' {
		return false
	}
	c := n[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func extractFile(f *zip.File, dest string, remaining int64) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, err
	}
	rc, err := f.Open()
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	perm := f.Mode().Perm()
	if perm == 0 {
		perm = 0644
	}
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	var src io.Reader = rc
	if remaining >= 0 {
		src = io.LimitReader(rc, remaining+1)
	}
	n, err := io.Copy(out, src)
	if err != nil {
		return n, err
	}
	if remaining >= 0 && n > remaining {
		return n, ErrTooLarge
	}
	return n, out.Close()
}
