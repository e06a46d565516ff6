package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
)

// DiskStore persists objects under a root directory on local disk. It is
// the dev/emulator-mode fallback generalized from the teacher's
// gcs_emulator storage mode: same contract, no cloud dependency required
// to run the stack locally.
type DiskStore struct {
	log           *logger.Logger
	root          string
	publicBaseURL string
}

// NewDiskStore creates the root directory lazily on first write, matching
// the "bucket existence established lazily" rule in spec.md 4.A.
func NewDiskStore(log *logger.Logger, root, publicBaseURL string) *DiskStore {
	return &DiskStore{
		log:           log.With("component", "DiskStore"),
		root:          root,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

func (d *DiskStore) Put(ctx context.Context, tenantID, mediaID, ext string, r io.Reader, mime string) (string, error) {
	path := MediaPath(tenantID, mediaID, ext)
	return path, d.write(path, r)
}

func (d *DiskStore) PutThumbnail(ctx context.Context, tenantID, mediaID string, r io.Reader) (string, error) {
	path := ThumbnailPath(tenantID, mediaID)
	return path, d.write(path, r)
}

func (d *DiskStore) PutExport(ctx context.Context, tenantID, datasetID, versionTag, fmtExt string, r io.Reader) (string, error) {
	path := ExportPath(tenantID, datasetID, versionTag, fmtExt)
	return path, d.write(path, r)
}

func (d *DiskStore) write(path string, r io.Reader) error {
	full := filepath.Join(d.root, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("storage: create dir: %w", err)
	}
	f, err := os.Create(full)
	if err != nil {
		return fmt.Errorf("storage: create object: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("storage: write object: %w", err)
	}
	return nil
}

func (d *DiskStore) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	full := filepath.Join(d.root, filepath.FromSlash(path))
	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Path: path}
		}
		return nil, fmt.Errorf("storage: open object: %w", err)
	}
	return f, nil
}

// Delete is idempotent: a missing file is not an error.
func (d *DiskStore) Delete(ctx context.Context, path string) error {
	full := filepath.Join(d.root, filepath.FromSlash(path))
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: delete object: %w", err)
	}
	return nil
}

func (d *DiskStore) SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	if d.publicBaseURL == "" {
		return "", fmt.Errorf("storage: no public base url configured")
	}
	expires := time.Now().Add(ttl).Unix()
	return fmt.Sprintf("%s/%s?expires=%d", d.publicBaseURL, path, expires), nil
}
