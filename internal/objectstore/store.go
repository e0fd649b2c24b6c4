// Package objectstore is the object-store client named in spec.md: upload,
// delete, and URL resolution for per-tenant binary artifacts (originals,
// generated PDFs). Grounded on the teacher's internal/storage/file_storage.go
// local-filesystem implementation, generalized from a single flat baseDir to
// tenant-scoped subpaths so isolation between tenants is enforced by the
// store itself rather than by callers remembering to prefix paths.
package objectstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Kind distinguishes artifacts for logging and future type-specific handling
// (e.g. image re-encoding); it carries no behavior differences today.
type Kind int

const (
	KindOriginal Kind = iota
	KindGeneratedInvoice
)

// Store is the object-store contract every orchestrator depends on.
type Store interface {
	// Put writes content under the given tenant and relative key, creating
	// parent directories as needed, and returns a path the store can later
	// resolve back to bytes via URL or Get.
	Put(tenantID, key string, content []byte, kind Kind) (storedPath string, err error)
	// Get reads back content previously stored at storedPath.
	Get(storedPath string) ([]byte, error)
	// Delete removes the object at storedPath. Deleting a missing object is
	// not an error, mirroring the bounded-rollback requirement in spec.md
	// §4.3 step 5 (delete uploaded original on append failure).
	Delete(storedPath string) error
	// URL resolves storedPath to a reference a human or downstream system can
	// use to reach the object.
	URL(storedPath string) string
}

// LocalStore implements Store on the local filesystem, rooted at baseDir with
// one subdirectory per tenant so a path traversal or id collision in one
// tenant can never reach another tenant's files.
type LocalStore struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalStore returns a Store rooted at baseDir. baseDir is created if
// missing.
func NewLocalStore(baseDir string, logger *zap.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create object store base dir: %w", err)
	}
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve object store base dir: %w", err)
	}
	return &LocalStore{baseDir: absBase, logger: logger}, nil
}

func (s *LocalStore) Put(tenantID, key string, content []byte, kind Kind) (string, error) {
	fullPath, err := s.resolve(tenantID, key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("create object directories: %w", err)
	}
	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		s.logger.Error("failed to write object",
			zap.String("tenant_id", tenantID), zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("write object: %w", err)
	}

	s.logger.Debug("object stored",
		zap.String("tenant_id", tenantID), zap.String("key", key),
		zap.Int("size", len(content)), zap.Int("kind", int(kind)))
	return fullPath, nil
}

func (s *LocalStore) Get(storedPath string) ([]byte, error) {
	if err := s.validate(storedPath); err != nil {
		return nil, err
	}
	return os.ReadFile(storedPath)
}

func (s *LocalStore) Delete(storedPath string) error {
	if err := s.validate(storedPath); err != nil {
		return err
	}
	if err := os.Remove(storedPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (s *LocalStore) URL(storedPath string) string {
	return "file://" + storedPath
}

// resolve joins baseDir/tenantID/key and refuses any result that escapes the
// tenant's own subtree, so a malicious or malformed key can never read or
// overwrite another tenant's objects.
func (s *LocalStore) resolve(tenantID, key string) (string, error) {
	tenantBase := filepath.Join(s.baseDir, tenantID)
	fullPath := filepath.Join(tenantBase, key)

	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("resolve object path: %w", err)
	}
	absTenantBase, err := filepath.Abs(tenantBase)
	if err != nil {
		return "", fmt.Errorf("resolve tenant base: %w", err)
	}
	if !strings.HasPrefix(absPath, absTenantBase+string(filepath.Separator)) && absPath != absTenantBase {
		return "", fmt.Errorf("key escapes tenant directory: %s", key)
	}
	return absPath, nil
}

func (s *LocalStore) validate(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if !strings.HasPrefix(absPath, s.baseDir+string(filepath.Separator)) && absPath != s.baseDir {
		return fmt.Errorf("path escapes object store base directory: %s", fullPath)
	}
	return nil
}
