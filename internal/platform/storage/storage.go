// Package storage is component A: the content store. It exposes a small
// object-storage contract (put/put_thumb/get/delete/signed_url) over the
// path convention from spec.md 4.A, generalized from the teacher's
// internal/app/storage_provider.go bucket-service abstraction.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// Kind distinguishes the three path families a caller can put/get.
type Kind string

const (
	KindMedia     Kind = "media"
	KindThumbnail Kind = "thumbnail"
	KindExport    Kind = "export"
)

// Store is component A's contract. Implementations establish bucket
// existence lazily on first write and treat delete as idempotent.
type Store interface {
	// Put writes media bytes under "{tenant_id}/{media_id}{ext}" and
	// returns the stored path.
	Put(ctx context.Context, tenantID, mediaID, ext string, r io.Reader, mime string) (string, error)

	// PutThumbnail writes a pre-rendered thumbnail under
	// "{tenant_id}/{media_id}_thumb.jpg".
	PutThumbnail(ctx context.Context, tenantID, mediaID string, r io.Reader) (string, error)

	// PutExport writes a dataset export under
	// "{tenant_id}/{dataset_id}/{version_tag}.{fmt_ext}".
	PutExport(ctx context.Context, tenantID, datasetID, versionTag, fmtExt string, r io.Reader) (string, error)

	Get(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete absorbs "not found" errors so repeated deletes are safe.
	Delete(ctx context.Context, path string) error

	SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)
}

// MediaPath builds the path convention for an original media upload.
func MediaPath(tenantID, mediaID, ext string) string {
	return fmt.Sprintf("%s/%s%s", tenantID, mediaID, normalizeExt(ext))
}

// ThumbnailPath builds the path convention for a generated thumbnail.
func ThumbnailPath(tenantID, mediaID string) string {
	return fmt.Sprintf("%s/%s_thumb.jpg", tenantID, mediaID)
}

// ExportPath builds the path convention for a dataset version export.
func ExportPath(tenantID, datasetID, versionTag, fmtExt string) string {
	return fmt.Sprintf("%s/%s/%s.%s", tenantID, datasetID, versionTag, strings.TrimPrefix(fmtExt, "."))
}

func normalizeExt(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		return "." + ext
	}
	return ext
}

// IsNotFound reports whether err represents a missing object, the one
// error class Delete and Get must treat specially (Delete absorbs it;
// Get propagates it as-is for callers to classify via apierr).
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return asNotFound(err, &nf)
}

// NotFoundError marks a missing object path.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("storage: object not found: %s", e.Path)
}

func asNotFound(err error, target **NotFoundError) bool {
	for err != nil {
		if nf, ok := err.(*NotFoundError); ok {
			*target = nf
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
