package clinical

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medrex/clinic-backend/pkg/config"
	"github.com/medrex/clinic-backend/pkg/logger"
	"github.com/medrex/clinic-backend/pkg/types"
)

// FileStore persists uploaded report files under a date-partitioned
// directory tree
type FileStore struct {
	config *config.UploadConfig
	logger *logger.Logger
}

// NewFileStore creates a new report file store
func NewFileStore(cfg *config.UploadConfig, log *logger.Logger) *FileStore {
	return &FileStore{
		config: cfg,
		logger: log,
	}
}

// Save validates and writes an uploaded file, returning its path
// relative to the upload directory
func (fs *FileStore) Save(file multipart.File, header *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(header.Filename), "."))
	if !fs.extensionAllowed(ext) {
		return "", types.NewValidationError(types.ErrCodeValidationFailed,
			fmt.Sprintf("File type not allowed. Allowed types: %s", strings.Join(fs.config.AllowedExtensions, ", ")),
			map[string]interface{}{"filename": header.Filename})
	}

	if fs.config.MaxSizeBytes > 0 && header.Size > fs.config.MaxSizeBytes {
		return "", types.NewValidationError(types.ErrCodeValidationFailed,
			fmt.Sprintf("File exceeds the maximum size of %d bytes", fs.config.MaxSizeBytes), nil)
	}

	relDir := filepath.Join("reports", time.Now().Format("2006/01/02"))
	absDir := filepath.Join(fs.config.Dir, relDir)
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	relPath := filepath.Join(relDir, uuid.New().String()+"."+ext)
	absPath := filepath.Join(fs.config.Dir, relPath)

	dst, err := os.Create(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(absPath)
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}

	fs.logger.WithField("path", relPath).Debug("Report file stored")
	return relPath, nil
}

// Open opens a stored file by its relative path. Paths escaping the
// upload directory are rejected.
func (fs *FileStore) Open(relPath string) (*os.File, error) {
	cleaned := filepath.Clean(relPath)
	if cleaned == "" || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "Invalid file path", nil)
	}

	f, err := os.Open(filepath.Join(fs.config.Dir, cleaned))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, types.NewNotFoundError("FILE_NOT_FOUND", "Report file not found")
		}
		return nil, fmt.Errorf("failed to open report file: %w", err)
	}

	return f, nil
}

// Remove deletes a stored file. Missing files are not an error.
func (fs *FileStore) Remove(relPath string) error {
	cleaned := filepath.Clean(relPath)
	if cleaned == "" || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return types.NewValidationError(types.ErrCodeInvalidInput, "Invalid file path", nil)
	}

	if err := os.Remove(filepath.Join(fs.config.Dir, cleaned)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove report file: %w", err)
	}

	return nil
}

func (fs *FileStore) extensionAllowed(ext string) bool {
	for _, allowed := range fs.config.AllowedExtensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}
