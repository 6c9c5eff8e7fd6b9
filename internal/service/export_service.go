package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/smart-haryana-gateway/internal/dto"
	"github.com/noah-isme/smart-haryana-gateway/internal/issueview"
	"github.com/noah-isme/smart-haryana-gateway/internal/models"
	appErrors "github.com/noah-isme/smart-haryana-gateway/pkg/errors"
	"github.com/noah-isme/smart-haryana-gateway/pkg/export"
	"github.com/noah-isme/smart-haryana-gateway/pkg/storage"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

var exportHeaders = []string{"ID", "Title", "Status", "Priority", "Problem Type", "District", "Assigned To", "Reported"}

var exportWeights = map[string]float64{
	"ID":           0.5,
	"Title":        3,
	"Status":       1,
	"Priority":     0.8,
	"Problem Type": 1.4,
	"District":     1.2,
	"Assigned To":  1.6,
	"Reported":     1.4,
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Read(filename string) ([]byte, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportRequest selects the view to export.
type ExportRequest struct {
	Format string `json:"format" validate:"required,oneof=csv pdf"`
	Status string `json:"status"`
	Sort   string `json:"sort"`
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportFile is a stored export ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders the caller's issue view to files behind signed links.
type ExportService struct {
	issues    scopeLoader
	storage   fileStorage
	csv       csvRenderer
	pdf       pdfRenderer
	signer    *storage.SignedURLSigner
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(issues scopeLoader, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, validate *validator.Validate, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		issues:    issues,
		storage:   files,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(exportWeights),
		signer:    signer,
		validator: newValidator(validate),
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Generate renders the caller's filtered and sorted view and returns a signed link.
func (s *ExportService) Generate(ctx context.Context, session models.Session, req ExportRequest) (*dto.ExportResponse, error) {
	req.Format = strings.ToLower(strings.TrimSpace(req.Format))
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid export request")
	}
	selector, err := issueview.ParseSelector(req.Status)
	if err != nil {
		return nil, err
	}
	sortKey, err := issueview.ParseSortKey(req.Sort)
	if err != nil {
		return nil, err
	}

	issues, stale, err := s.issues.All(ctx, session)
	if err != nil {
		return nil, err
	}
	applied := issueview.Apply(issues, issueview.Query{Status: selector, Sort: sortKey})
	dataset := buildIssueDataset(applied)

	var payload []byte
	switch req.Format {
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, exportTitle(session, selector))
	default:
		payload, err = s.csv.Render(dataset)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	id := uuid.NewString()
	filename := fmt.Sprintf("%s/issues_%s_%s.%s",
		sanitizeFilename(ScopeFor(session.Profile)),
		s.now().UTC().Format("20060102_150405"),
		id[:8],
		req.Format,
	)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Sign(id, relPath, ScopeFor(session.Profile))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export link")
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	s.logger.Info("export generated",
		zap.String("id", id),
		zap.String("format", req.Format),
		zap.Int("rows", len(applied)),
		zap.Int64("user_id", session.Profile.ID),
	)
	return &dto.ExportResponse{
		ID:        id,
		Format:    req.Format,
		URL:       fmt.Sprintf("%s/exports/%s", prefix, token),
		Count:     len(applied),
		Stale:     stale,
		ExpiresAt: expiresAt.UTC(),
	}, nil
}

// Download resolves a signed token to the stored file.
func (s *ExportService) Download(token string) (*ExportFile, error) {
	link, err := s.signer.Verify(token)
	if errors.Is(err, storage.ErrLinkExpired) {
		return nil, appErrors.Wrap(err, appErrors.ErrGone.Code, appErrors.ErrGone.Status, "download link expired")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid download link")
	}
	relPath := link.Path
	data, err := s.storage.Read(relPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read export")
	}
	contentType := "text/csv"
	if strings.HasSuffix(relPath, "."+ExportFormatPDF) {
		contentType = "application/pdf"
	}
	return &ExportFile{Filename: path.Base(relPath), ContentType: contentType, Data: data}, nil
}

// Cleanup removes exports older than ttl, defaulting to the configured ResultTTL.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	removed, err := s.storage.CleanupOlderThan(ttl)
	if err != nil {
		return removed, err
	}
	if len(removed) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(removed)))
	}
	return removed, nil
}

func buildIssueDataset(issues []models.Issue) export.Dataset {
	rows := make([]map[string]string, 0, len(issues))
	for _, issue := range issues {
		assignee := ""
		if issue.AssignedTo != nil {
			assignee = issue.AssignedTo.User.FullName
		}
		rows = append(rows, map[string]string{
			"ID":           strconv.FormatInt(issue.ID, 10),
			"Title":        issue.Title,
			"Status":       string(issue.Status),
			"Priority":     string(issueview.ClassifyPriority(issue.Priority)),
			"Problem Type": issue.ProblemType,
			"District":     issue.District,
			"Assigned To":  assignee,
			"Reported":     issue.CreatedAt.UTC().Format("2006-01-02 15:04"),
		})
	}
	return export.Dataset{Headers: exportHeaders, Rows: rows}
}

func exportTitle(session models.Session, selector string) string {
	title := "Civic issues"
	if session.Profile.District != "" && session.Profile.Role == models.RoleClient {
		title += " - " + session.Profile.District
	}
	if selector != issueview.SelectorAll {
		title += " (" + selector + ")"
	}
	return title
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
