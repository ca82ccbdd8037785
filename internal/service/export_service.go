package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-quest-api/internal/dto"
	"github.com/noah-isme/classroom-quest-api/internal/models"
	"github.com/noah-isme/classroom-quest-api/pkg/export"
	appErrors "github.com/noah-isme/classroom-quest-api/pkg/errors"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type activitySource interface {
	ListActivities(ctx context.Context, session *models.Session, filter dto.ActivityFilter) ([]models.ActivityRecord, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// ExportFile is a rendered export ready to be sent as an attachment.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders activity records as CSV or PDF for teachers.
type ExportService struct {
	activities activitySource
	renderers  map[string]datasetRenderer
	logger     *zap.Logger
	now        func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the defaults.
func NewExportService(activities activitySource, csv, pdf datasetRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter(true)
	}
	if pdf == nil {
		pdf = export.NewPDFExporter("")
	}
	return &ExportService{
		activities: activities,
		renderers:  map[string]datasetRenderer{ExportFormatCSV: csv, ExportFormatPDF: pdf},
		logger:     logger,
		now:        time.Now,
	}
}

// ExportActivities renders the tenant's activity records in the requested format.
func (s *ExportService) ExportActivities(ctx context.Context, session *models.Session, format string, filter dto.ActivityFilter) (*ExportFile, error) {
	if err := requireTeacher(session); err != nil {
		return nil, err
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	records, err := s.activities.ListActivities(ctx, session, filter)
	if err != nil {
		return nil, err
	}

	generatedAt := s.now().UTC()
	dataset := activityDataset(records, generatedAt)
	payload, err := renderer.Render(dataset)
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrInternal, err, "failed to render export")
	}

	s.logger.Info("activities exported",
		zap.String("tenant_id", session.TenantID),
		zap.String("format", format),
		zap.Int("rows", len(records)),
	)

	return &ExportFile{
		Filename:    fmt.Sprintf("activities_%s_%s.%s", sanitizeFilename(session.TenantID), generatedAt.Format("20060102_150405"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Data:        payload,
	}, nil
}

var activityHeaders = []string{"Date", "Student", "Class", "Kind", "Title", "Progress", "Score", "Status"}

func activityDataset(records []models.ActivityRecord, generatedAt time.Time) export.Dataset {
	rows := lo.Map(records, func(record models.ActivityRecord, _ int) map[string]string {
		return map[string]string{
			"Date":     record.Date.UTC().Format(time.RFC3339),
			"Student":  record.StudentName,
			"Class":    record.ClassName,
			"Kind":     string(record.Kind),
			"Title":    record.Title,
			"Progress": record.ProgressLabel,
			"Score":    fmt.Sprintf("%d", record.Score),
			"Status":   string(record.Status),
		}
	})
	return export.Dataset{
		Title:   fmt.Sprintf("Activity Report %s", generatedAt.Format("2006-01-02")),
		Headers: activityHeaders,
		Rows:    rows,
	}
}

const maxFilenameBytes = 100

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) <= maxFilenameBytes {
		return result
	}
	// cut at the last rune start that fits
	cut := 0
	for i := range result {
		if i > maxFilenameBytes {
			break
		}
		cut = i
	}
	return result[:cut]
}
