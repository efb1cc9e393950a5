// Package storage persists uploaded files and hands back a reference that is
// stored on the owning record.
package storage

import (
	"context"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/juju/errors"
)

// Namespaces used by the catalog.
const (
	ServiceImages      = "service_images"
	AgentServiceImages = "agent_service_images"
)

// Store is implemented by Local and S3.
type Store interface {
	Put(ctx context.Context, namespace string, fh *multipart.FileHeader) (string, error)
	Delete(ctx context.Context, ref string) error
}

// objectName builds "<namespace>/<uuid><ext>" keeping the lowercase extension
// of the upload.
func objectName(namespace, filename string) (string, error) {
	if namespace == "" || strings.ContainsAny(namespace, `/\.`) {
		return "", errors.NotValidf("namespace %q", namespace)
	}
	return namespace + "/" + uuid.NewString() + strings.ToLower(filepath.Ext(filename)), nil
}

// cleanRef rejects references that could escape the storage root.
func cleanRef(ref string) (string, error) {
	lower := strings.ToLower(ref)
	if ref == "" || strings.Contains(lower, "..") || strings.Contains(lower, "%2e") || strings.Contains(ref, "\x00") {
		return "", errors.NotValidf("reference %q", ref)
	}
	clean := filepath.ToSlash(filepath.Clean(ref))
	if clean == "." || strings.HasPrefix(clean, "/") {
		return "", errors.NotValidf("reference %q", ref)
	}
	return clean, nil
}

// DeleteQuietly removes ref when set and reports whether it failed. It is
// used for cleanup paths where the primary operation already decided the
// outcome.
func DeleteQuietly(ctx context.Context, s Store, ref *string) error {
	if s == nil || ref == nil || *ref == "" {
		return nil
	}
	return s.Delete(ctx, *ref)
}
