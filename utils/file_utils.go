package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	// Base directory for storing uploaded files
	uploadBaseDir = "uploads"
	// Base URL for serving files
	baseURL = "/uploads"
	// Maximum file size (10MB)
	maxFileSize = 10 * 1024 * 1024
)

// Allowed proof extensions. Bill proofs and payment screenshots are images or
// PDFs; the workflow core only ever stores the returned URL string.
var allowedProofExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".pdf":  true,
}

// cleanFilename removes any potentially dangerous characters from the filename
func cleanFilename(filename string) string {
	// Remove any path components
	filename = filepath.Base(filename)
	// Remove any non-alphanumeric characters except for dots and hyphens
	reg := regexp.MustCompile(`[^a-zA-Z0-9.-]`)
	return reg.ReplaceAllString(filename, "")
}

// ValidateProofFile checks extension and size limits for an uploaded proof
func ValidateProofFile(filename string, size int64) error {
	if size > maxFileSize {
		return fmt.Errorf("file too large. Maximum size is %d bytes", maxFileSize)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedProofExts[ext] {
		return fmt.Errorf("unsupported proof format. Allowed formats: jpg, jpeg, png, gif, pdf")
	}
	return nil
}

// InitializeStorage creates necessary directories for file storage
func InitializeStorage() error {
	dirs := []string{
		uploadBaseDir,
		filepath.Join(uploadBaseDir, "bills"),
		filepath.Join(uploadBaseDir, "payments"),
		filepath.Join(uploadBaseDir, "settlements"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}
	}
	return nil
}

// SaveProofFile stores an uploaded proof under the given subdirectory with a
// collision-free name and returns the URL the request document stores.
func SaveProofFile(fileData []byte, filename string, subDir string) (string, error) {
	if err := ValidateProofFile(filename, int64(len(fileData))); err != nil {
		return "", err
	}
	if err := InitializeStorage(); err != nil {
		return "", err
	}

	storedName := uuid.New().String() + "-" + cleanFilename(filename)
	fullPath := filepath.Join(uploadBaseDir, subDir, storedName)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(fullPath, fileData, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %v", err)
	}

	return fmt.Sprintf("%s/%s/%s", baseURL, subDir, storedName), nil
}
