// internal/utils/validator/document_test.go
package validator

import (
	"bytes"
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrewriter/pkg/logger"
)

func fileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	mr := multipart.NewReader(&buf, mw.Boundary())
	form, err := mr.ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })

	headers := form.File["file"]
	require.Len(t, headers, 1)
	return headers[0]
}

func TestValidateFileDocx(t *testing.T) {
	v := NewDocumentValidator(logger.NewTestLogger(), nil)

	// zip 魔数开头的 docx
	content := append([]byte{0x50, 0x4b, 0x03, 0x04}, bytes.Repeat([]byte{0}, 64)...)
	result, err := v.ValidateFile(fileHeader(t, "report.docx", content))
	require.NoError(t, err)

	assert.True(t, result.IsValid)
	assert.Equal(t, ".docx", result.FileInfo.Extension)
	assert.NotEmpty(t, result.FileInfo.Hash)
	assert.Len(t, result.FileInfo.Hash, 64)
}

func TestValidateFileRejectsWrongExtension(t *testing.T) {
	v := NewDocumentValidator(logger.NewTestLogger(), nil)

	result, err := v.ValidateFile(fileHeader(t, "notes.txt", []byte("plain text")))
	require.NoError(t, err)

	assert.False(t, result.IsValid)
	require.NotEmpty(t, result.Errors)
	assert.Equal(t, "INVALID_FILE_TYPE", result.Errors[0].Code)
}

func TestValidateFileRejectsFakeDocx(t *testing.T) {
	v := NewDocumentValidator(logger.NewTestLogger(), nil)

	result, err := v.ValidateFile(fileHeader(t, "fake.docx", []byte("not a zip at all")))
	require.NoError(t, err)

	assert.False(t, result.IsValid)
	found := false
	for _, e := range result.Errors {
		if e.Code == "INVALID_DOCX" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidateFileRejectsOversized(t *testing.T) {
	v := NewDocumentValidator(logger.NewTestLogger(), &ValidatorConfig{
		MaxFileSize: 8,
		AllowedTypes: map[string][]string{
			".docx": {"application/zip"},
		},
	})

	content := append([]byte{0x50, 0x4b, 0x03, 0x04}, bytes.Repeat([]byte{0}, 64)...)
	result, err := v.ValidateFile(fileHeader(t, "big.docx", content))
	require.NoError(t, err)

	assert.False(t, result.IsValid)
	assert.Equal(t, "FILE_TOO_LARGE", result.Errors[0].Code)
}
