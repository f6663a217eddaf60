package validation

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
)

// FileConstraints defines the accepted types for an upload slot. The size
// limit is not part of the constraint set: it comes from configuration and
// is passed to ValidateFile per call.
type FileConstraints struct {
	AllowedMimeTypes  map[string]bool
	AllowedExtensions map[string]bool
}

var (
	// ImageConstraints accepts the image formats http.DetectContentType
	// can identify from magic numbers.
	ImageConstraints = FileConstraints{
		AllowedMimeTypes: map[string]bool{
			"image/jpeg": true,
			"image/png":  true,
			"image/gif":  true,
			"image/webp": true,
		},
		AllowedExtensions: map[string]bool{
			".jpg":  true,
			".jpeg": true,
			".png":  true,
			".gif":  true,
			".webp": true,
		},
	}

	// DocumentConstraints accepts PDF documents.
	DocumentConstraints = FileConstraints{
		AllowedMimeTypes: map[string]bool{
			"application/pdf": true,
		},
		AllowedExtensions: map[string]bool{
			".pdf": true,
		},
	}
)

// ValidateFile validates a file upload against one or more constraint sets
// and returns the content type detected from the file bytes. If multiple
// constraints are provided, the file must match at least one. Example:
// ValidateFile(header, maxSize, ImageConstraints, DocumentConstraints)
// allows images OR PDFs. The detected type, not the client-declared one,
// is what gets stored and later served.
func ValidateFile(header *multipart.FileHeader, maxSize int64, constraints ...FileConstraints) (string, error) {
	if len(constraints) == 0 {
		return "", fmt.Errorf("no file constraints provided")
	}

	// Check size first, before reading any content
	if header.Size > maxSize {
		return "", NewError(fmt.Sprintf("file too large: maximum size is %d MB", maxSize/(1<<20)))
	}

	detectedType, err := sniffContentType(header)
	if err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))

	for _, constraint := range constraints {
		if constraint.AllowedMimeTypes[detectedType] && constraint.AllowedExtensions[ext] {
			return detectedType, nil
		}
	}

	return "", NewError(fmt.Sprintf("invalid file type (detected: %s)", detectedType))
}

// sniffContentType detects the real content type from the file's magic
// numbers. A forged Content-Type header cannot get past this.
func sniffContentType(header *multipart.FileHeader) (string, error) {
	file, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// http.DetectContentType reads at most 512 bytes
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	return http.DetectContentType(buffer[:n]), nil
}
