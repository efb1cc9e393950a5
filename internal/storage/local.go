package storage

import (
	"context"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/juju/errors"
)

// Local keeps files under Root; references are paths relative to it.
type Local struct {
	Root string
}

func NewLocal(root string) (*Local, error) {
	if !filepath.IsAbs(root) {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, errors.Trace(err)
		}
		root = abs
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Annotatef(err, "creating media dir %s", root)
	}
	return &Local{Root: root}, nil
}

func (l *Local) Put(_ context.Context, namespace string, fh *multipart.FileHeader) (string, error) {
	ref, err := objectName(namespace, fh.Filename)
	if err != nil {
		return "", err
	}
	src, err := fh.Open()
	if err != nil {
		return "", errors.Annotate(err, "opening upload")
	}
	defer src.Close()

	full := filepath.Join(l.Root, filepath.FromSlash(ref))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", errors.Trace(err)
	}
	dst, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", errors.Trace(err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(full)
		return "", errors.Annotatef(err, "writing %s", ref)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(full)
		return "", errors.Trace(err)
	}
	return ref, nil
}

func (l *Local) Delete(_ context.Context, ref string) error {
	clean, err := cleanRef(ref)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(l.Root, filepath.FromSlash(clean)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return errors.Trace(err)
}

// Path resolves ref to a file under Root, or fails for traversal attempts.
func (l *Local) Path(ref string) (string, error) {
	clean, err := cleanRef(ref)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.Root, filepath.FromSlash(clean)), nil
}
