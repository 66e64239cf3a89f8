package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// UploadStore persists uploaded PDFs on disk under a base directory.
//
// Layout:
//
//	{base}/papers/{paperID}_{timestamp}_{originalName}
//	{base}/teams/{teamID}/references/{referenceID}_{originalName}
type UploadStore struct {
	baseDir string
}

// NewUploadStore ensures the base directory exists and returns a handle.
func NewUploadStore(baseDir string) (*UploadStore, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &UploadStore{baseDir: baseDir}, nil
}

// PaperPath returns the relative storage path for a paper upload.
func (s *UploadStore) PaperPath(paperID int64, originalName string) string {
	ts := time.Now().UTC().Format("20060102150405")
	return filepath.Join("papers", fmt.Sprintf("%d_%s_%s", paperID, ts, sanitizeName(originalName)))
}

// ReferencePath returns the relative storage path for a reference upload.
func (s *UploadStore) ReferencePath(teamID, referenceID int64, originalName string) string {
	return filepath.Join("teams", fmt.Sprintf("%d", teamID), "references",
		fmt.Sprintf("%d_%s", referenceID, sanitizeName(originalName)))
}

// Replace streams the reader into relPath, deleting priorPath first when set.
// The delete-then-write sequence is not atomic; a crash in between loses the
// prior file.
func (s *UploadStore) Replace(relPath, priorPath string, r io.Reader) error {
	if priorPath != "" {
		if err := s.Delete(priorPath); err != nil {
			return err
		}
	}

	path := s.resolve(relPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare upload directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create upload file: %w", err)
	}
	defer file.Close() //nolint:errcheck
	if _, err := io.Copy(file, r); err != nil {
		return fmt.Errorf("write upload stream: %w", err)
	}
	return nil
}

// Open returns a read-only handle for the stored file.
func (s *UploadStore) Open(relPath string) (*os.File, error) {
	file, err := os.Open(s.resolve(relPath))
	if err != nil {
		return nil, fmt.Errorf("open upload file: %w", err)
	}
	return file, nil
}

// Exists reports whether the stored file is present on disk.
func (s *UploadStore) Exists(relPath string) bool {
	if relPath == "" {
		return false
	}
	_, err := os.Stat(s.resolve(relPath))
	return err == nil
}

// Delete removes a stored file if present.
func (s *UploadStore) Delete(relPath string) error {
	if relPath == "" {
		return nil
	}
	if err := os.Remove(s.resolve(relPath)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete upload file: %w", err)
	}
	return nil
}

// Path exposes the underlying absolute path.
func (s *UploadStore) Path(relPath string) string {
	return s.resolve(relPath)
}

func (s *UploadStore) resolve(relPath string) string {
	if filepath.IsAbs(relPath) {
		return relPath
	}
	return filepath.Join(s.baseDir, relPath)
}

func sanitizeName(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, string(os.PathSeparator), "_")
	if name == "" || name == "." {
		name = "upload.pdf"
	}
	return name
}
