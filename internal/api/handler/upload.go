package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/biosphere-bio/workflow-api/internal/api/response"
	"github.com/biosphere-bio/workflow-api/internal/config"
)

// NewUploadFileHandler returns the handler for POST /api/v1/upload: a
// standalone extension-validated upload, stored under the upload
// directory keyed by the client filename.
func NewUploadFileHandler(storage config.StorageConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, storage.MaxUploadBytes)

		file, header, err := r.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				response.Error(w, http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE",
					fmt.Sprintf("Upload exceeds the %d byte limit", storage.MaxUploadBytes), nil)
				return
			}
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "A file upload is required", nil)
			return
		}
		defer file.Close()

		if !storage.AllowsFilename(header.Filename) {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR",
				fmt.Sprintf("File extension not allowed. Must be one of: %s",
					strings.Join(storage.ExtensionList(), ", ")), nil)
			return
		}

		data, err := io.ReadAll(file)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "IO_ERROR", "Could not read the upload", nil)
			return
		}

		path := filepath.Join(storage.UploadDir, filepath.Base(header.Filename))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			response.Error(w, http.StatusInternalServerError, "IO_ERROR", "Could not persist the upload", nil)
			return
		}

		response.JSON(w, map[string]string{
			"filename":     header.Filename,
			"path":         path,
			"content_type": mimetype.Detect(data).String(),
			"status":       "success",
		})
	}
}
