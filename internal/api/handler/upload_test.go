package handler_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biosphere-bio/workflow-api/internal/api/handler"
)

func TestUploadFile_StoresAndDescribes(t *testing.T) {
	storage := testStorage(t)
	h := handler.NewUploadFileHandler(storage)

	body, contentType := multipartBody(t, "reads.fasta", []byte(">seq1\nACGT\n"), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var got map[string]string
	decodeData(t, rr.Body, &got)
	assert.Equal(t, "reads.fasta", got["filename"])
	assert.Equal(t, "success", got["status"])
	assert.NotEmpty(t, got["content_type"])

	saved, err := os.ReadFile(filepath.Join(storage.UploadDir, "reads.fasta"))
	require.NoError(t, err)
	assert.Equal(t, ">seq1\nACGT\n", string(saved))
}

func TestUploadFile_StripsClientPath(t *testing.T) {
	storage := testStorage(t)
	h := handler.NewUploadFileHandler(storage)

	body, contentType := multipartBody(t, "../../etc/cells.csv", []byte("a,b\n"), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.FileExists(t, filepath.Join(storage.UploadDir, "cells.csv"))
}

func TestUploadFile_DisallowedExtension(t *testing.T) {
	h := handler.NewUploadFileHandler(testStorage(t))

	body, contentType := multipartBody(t, "notes.docx", []byte("PK"), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	code, _ := decodeError(t, rr.Body)
	assert.Equal(t, "VALIDATION_ERROR", code)
}

func TestUploadFile_MissingFile(t *testing.T) {
	h := handler.NewUploadFileHandler(testStorage(t))

	body, contentType := multipartBody(t, "", nil, map[string]string{"other": "field"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
