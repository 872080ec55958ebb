package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/faculty-registry/internal/models"
	"github.com/noah-isme/faculty-registry/pkg/export"
	appErrors "github.com/noah-isme/faculty-registry/pkg/errors"
)

// ExportFormat identifies a roster rendering.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ParseExportFormat accepts csv or pdf in any case.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case ExportFormatCSV:
		return ExportFormatCSV, nil
	case ExportFormatPDF:
		return ExportFormatPDF, nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", raw))
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	Path   string
	Format ExportFormat
	Rows   int
}

// ExportService renders faculty rosters and stores them on disk.
type ExportService struct {
	storage fileStorage
	csv     datasetRenderer
	pdf     datasetRenderer
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the default exporters.
func NewExportService(storage fileStorage, csv, pdf datasetRenderer, metrics *MetricsService, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		storage: storage,
		csv:     csv,
		pdf:     pdf,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Export writes faculty's roster, current students first and then alumni.
// The registry is only read.
func (s *ExportService) Export(ctx context.Context, faculty *models.Faculty, format ExportFormat) (result *ExportResult, err error) {
	defer func() { s.metrics.ObserveOperation("export_roster", err) }()

	if faculty == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "faculty is required")
	}
	dataset := RosterDataset(faculty)

	var payload []byte
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to render roster")
	}

	path, err := s.storage.Save(s.filename(faculty, format), payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to store roster")
	}
	s.logger.Info("roster exported", zap.String("faculty", faculty.Abbreviation), zap.String("path", path), zap.Int("rows", len(dataset.Rows)))
	return &ExportResult{Path: path, Format: format, Rows: len(dataset.Rows)}, nil
}

func (s *ExportService) filename(faculty *models.Faculty, format ExportFormat) string {
	return fmt.Sprintf("%s-roster-%s.%s", sanitizeFilename(faculty.Abbreviation), s.now().Format("20060102"), format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "faculty"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	return strings.ToLower(replacer.Replace(raw))
}

// RosterDataset lays out a faculty's students and alumni as export rows.
func RosterDataset(faculty *models.Faculty) export.Dataset {
	data := export.Dataset{
		Title:   fmt.Sprintf("%s (%s) - %s", faculty.Name, faculty.Abbreviation, faculty.StudyField),
		Headers: []string{"Status", "First Name", "Last Name", "Email", "Enrolled", "Born", "Graduated"},
		Rows:    make([][]string, 0, len(faculty.Students)+len(faculty.Alumni)),
	}
	for _, st := range faculty.Students {
		data.Rows = append(data.Rows, []string{
			"Enrolled", st.FirstName, st.LastName, st.Email,
			models.FormatDate(st.EnrollmentDate), models.FormatDate(st.DateOfBirth), "",
		})
	}
	for _, a := range faculty.Alumni {
		data.Rows = append(data.Rows, []string{
			"Graduated", a.FirstName, a.LastName, a.Email,
			models.FormatDate(a.EnrollmentDate), models.FormatDate(a.DateOfBirth), models.FormatDate(a.GraduationDate),
		})
	}
	return data
}
