package validation

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("person@example.com"))
	assert.Error(t, ValidateEmail(""))
	assert.Error(t, ValidateEmail("no-at-sign"))
	assert.Error(t, ValidateEmail(strings.Repeat("a", 250)+"@example.com"))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("a-long-enough-secret"))
	assert.Error(t, ValidatePassword("short"))
	assert.Error(t, ValidatePassword("password12345"))
	assert.Error(t, ValidatePassword(strings.Repeat("x", 73)))
}

func uploadHeader(t *testing.T, filename string, data []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := httptest.NewRequest("POST", "/", body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, r.ParseMultipartForm(1<<20))

	return r.MultipartForm.File["image"][0]
}

func TestValidateFile(t *testing.T) {
	jpeg := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, make([]byte, 32)...)
	png := append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, make([]byte, 32)...)

	assert.NoError(t, ValidateFile(uploadHeader(t, "photo.jpg", jpeg), ImageConstraints))
	assert.NoError(t, ValidateFile(uploadHeader(t, "photo.png", png), ImageConstraints))

	// Content sniffing beats the filename.
	err := ValidateFile(uploadHeader(t, "script.jpg", []byte("#!/bin/sh\necho hi")), ImageConstraints)
	assert.Error(t, err)

	// Extension must still match.
	err = ValidateFile(uploadHeader(t, "photo.gif", jpeg), ImageConstraints)
	assert.Error(t, err)
}

func TestValidateFile_TooLarge(t *testing.T) {
	header := uploadHeader(t, "photo.jpg", []byte{0xFF, 0xD8, 0xFF, 0xE0})
	header.Size = ImageConstraints.MaxSize + 1

	err := ValidateFile(header, ImageConstraints)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file too large")
}
