package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/faculty-registry/internal/models"
	"github.com/noah-isme/faculty-registry/pkg/export"
	appErrors "github.com/noah-isme/faculty-registry/pkg/errors"
	"github.com/noah-isme/faculty-registry/pkg/storage"
)

type failingRenderer struct{}

func (failingRenderer) Render(data export.Dataset) ([]byte, error) {
	return nil, errors.New("font missing")
}

func rosterFaculty() *models.Faculty {
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }
	return &models.Faculty{
		ID:           "f-1",
		Name:         "Software Engineering Faculty",
		Abbreviation: "SEF",
		StudyField:   models.StudyFieldSoftwareEngineering,
		Students: []models.Student{
			{FirstName: "Ana", LastName: "Pop", Email: "ana@x.com", EnrollmentDate: day(2024, time.September, 1), DateOfBirth: day(2001, time.May, 12)},
		},
		Alumni: []models.Alumnus{
			{Student: models.Student{FirstName: "Dan", LastName: "Lungu", Email: "dan@x.com", EnrollmentDate: day(2019, time.September, 1), DateOfBirth: day(1999, time.July, 7)}, GraduationDate: day(2023, time.June, 30)},
		},
	}
}

func newExportServiceForTest(t *testing.T) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(filepath.Join(t.TempDir(), "exports"))
	require.NoError(t, err)
	svc := NewExportService(store, nil, nil, NewMetricsService(), zap.NewNop())
	svc.now = func() time.Time { return fixedNow }
	return svc, store
}

func TestRosterDataset(t *testing.T) {
	data := RosterDataset(rosterFaculty())
	assert.Equal(t, "Software Engineering Faculty (SEF) - Software Engineering", data.Title)
	require.Len(t, data.Rows, 2)
	assert.Equal(t, []string{"Enrolled", "Ana", "Pop", "ana@x.com", "2024-09-01", "2001-05-12", ""}, data.Rows[0])
	assert.Equal(t, []string{"Graduated", "Dan", "Lungu", "dan@x.com", "2019-09-01", "1999-07-07", "2023-06-30"}, data.Rows[1])
}

func TestExportServiceCSV(t *testing.T) {
	svc, store := newExportServiceForTest(t)

	result, err := svc.Export(context.Background(), rosterFaculty(), ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, store.Path("sef-roster-20240309.csv"), result.Path)
	assert.Equal(t, 2, result.Rows)

	raw, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Status,First Name,Last Name,Email,Enrolled,Born,Graduated", lines[0])
}

func TestExportServicePDF(t *testing.T) {
	svc, _ := newExportServiceForTest(t)

	result, err := svc.Export(context.Background(), rosterFaculty(), ExportFormatPDF)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(result.Path, "sef-roster-20240309.pdf"))
	info, err := os.Stat(result.Path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestExportServiceErrors(t *testing.T) {
	svc, store := newExportServiceForTest(t)

	_, err := svc.Export(context.Background(), nil, ExportFormatCSV)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Export(context.Background(), rosterFaculty(), ExportFormat("xlsx"))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	svc.pdf = failingRenderer{}
	_, err = svc.Export(context.Background(), rosterFaculty(), ExportFormatPDF)
	assert.True(t, errors.Is(err, appErrors.ErrInternal))

	names, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestParseExportFormat(t *testing.T) {
	format, err := ParseExportFormat(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, ExportFormatPDF, format)

	_, err = ParseExportFormat("doc")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
