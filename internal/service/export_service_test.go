package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/smart-haryana-gateway/pkg/errors"
	"github.com/noah-isme/smart-haryana-gateway/pkg/storage"
)

func newExportFixture(t *testing.T) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	f := newIssueFixture()
	signer := storage.NewSignedURLSigner("export-secret", time.Hour)
	svc := NewExportService(f.svc, files, signer, ExportConfig{APIPrefix: "/api/v1/"}, nil, nil)
	return svc, files
}

func TestExportServiceGenerateCSVAndDownload(t *testing.T) {
	svc, _ := newExportFixture(t)

	result, err := svc.Generate(context.Background(), clientSession(), ExportRequest{Format: "CSV", Status: "all", Sort: "oldest"})
	require.NoError(t, err)
	assert.Equal(t, "csv", result.Format)
	assert.Equal(t, 4, result.Count)
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/exports/"))

	token := strings.TrimPrefix(result.URL, "/api/v1/exports/")
	file, err := svc.Download(token)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.True(t, strings.HasSuffix(file.Filename, ".csv"))

	lines := strings.Split(strings.TrimSpace(string(file.Data)), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "ID,Title,Status,Priority,Problem Type,District,Assigned To,Reported", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1,Pothole on NH-9,pending,high"))
}

func TestExportServiceGeneratePDF(t *testing.T) {
	svc, _ := newExportFixture(t)

	result, err := svc.Generate(context.Background(), adminSession(), ExportRequest{Format: "pdf", Status: "pending"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count)

	file, err := svc.Download(strings.TrimPrefix(result.URL, "/api/v1/exports/"))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Data, []byte("%PDF")))
}

func TestExportServiceValidation(t *testing.T) {
	svc, _ := newExportFixture(t)

	_, err := svc.Generate(context.Background(), clientSession(), ExportRequest{Format: "xlsx"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Generate(context.Background(), clientSession(), ExportRequest{Format: "csv", Sort: "random"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestExportServiceDownloadRejectsBadTokens(t *testing.T) {
	svc, files := newExportFixture(t)

	_, err := svc.Download("not-a-token")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	expired := storage.NewSignedURLSigner("export-secret", time.Nanosecond)
	token, _, err := expired.Sign("exp-1", "user_7/old.csv", "user:7")
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	_, err = svc.Download(token)
	assert.True(t, errors.Is(err, appErrors.ErrGone))

	result, err := svc.Generate(context.Background(), clientSession(), ExportRequest{Format: "csv"})
	require.NoError(t, err)
	removed, err := files.CleanupOlderThan(-time.Minute)
	require.NoError(t, err)
	require.Len(t, removed, 1)

	_, err = svc.Download(strings.TrimPrefix(result.URL, "/api/v1/exports/"))
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
