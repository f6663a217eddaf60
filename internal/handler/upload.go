package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/tasknest/tasknest/internal/service"
	"github.com/tasknest/tasknest/internal/validation"
)

// parseMultipart bounds the request body by the configured upload limit and
// parses the form. Attachment payloads are buffered fully in memory, so the
// limit is what keeps memory use bounded.
func parseMultipart(w http.ResponseWriter, r *http.Request, maxSize int64) error {
	// Allow headroom for the non-file form fields
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+1<<20)

	err := r.ParseMultipartForm(maxSize)
	if err != nil {
		return errors.New("invalid multipart form or file too large")
	}

	return nil
}

// formUpload reads the named file field into an Upload, validating type and
// size before anything is stored. A missing file is not an error; the
// caller decides whether the upload was required.
func formUpload(r *http.Request, field string, maxSize int64, constraints ...validation.FileConstraints) (*service.Upload, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, errors.New("invalid file upload")
	}
	defer func() { _ = file.Close() }()

	mimeType, err := validation.ValidateFile(header, maxSize, constraints...)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.New("failed to read file upload")
	}

	return &service.Upload{
		OriginalName: header.Filename,
		MimeType:     mimeType,
		Size:         header.Size,
		Data:         data,
	}, nil
}

// formString returns the form value and whether the field was supplied
// with a non-empty value. Partial updates apply only supplied fields.
func formString(r *http.Request, key string) (string, bool) {
	value := r.FormValue(key)
	return value, value != ""
}
