package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/faculty-registry/internal/models"
	"github.com/noah-isme/faculty-registry/internal/repository"
	appErrors "github.com/noah-isme/faculty-registry/pkg/errors"
)

var fixedNow = time.Date(2024, time.March, 9, 14, 30, 0, 0, time.UTC)

type fakeOplog struct {
	messages []string
	err      error
}

func (f *fakeOplog) Record(message string) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, message)
	return nil
}

type fakeStore struct {
	saved     []*models.Faculty
	faculties []*models.Faculty
	saveErr   error
	loadErr   error
}

func (f *fakeStore) Save(ctx context.Context, faculties []*models.Faculty) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = faculties
	return nil
}

func (f *fakeStore) Load(ctx context.Context) ([]*models.Faculty, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.faculties, nil
}

func newRegistryServiceForTest(t *testing.T, store stateStore) (*RegistryService, *fakeOplog) {
	t.Helper()
	if store == nil {
		store = &fakeStore{}
	}
	oplog := &fakeOplog{}
	svc := NewRegistryService(store, oplog, nil, NewMetricsService(), nil, zap.NewNop())
	svc.now = func() time.Time { return fixedNow }
	return svc, oplog
}

func createSEF(t *testing.T, svc *RegistryService) *models.Faculty {
	t.Helper()
	f, err := svc.CreateFaculty(context.Background(), CreateFacultyRequest{
		Name:         "Software Engineering Faculty",
		Abbreviation: "SEF",
		StudyField:   models.StudyFieldSoftwareEngineering,
	})
	require.NoError(t, err)
	return f
}

func enrollAna(t *testing.T, svc *RegistryService, f *models.Faculty) {
	t.Helper()
	_, err := svc.CreateStudent(context.Background(), f, CreateStudentRequest{
		FirstName: "Ana", LastName: "Pop", Email: "ana@x.com", Day: 12, Month: 5, Year: 2001,
	})
	require.NoError(t, err)
}

func TestRegistryServiceEnrollSearchGraduate(t *testing.T) {
	svc, oplog := newRegistryServiceForTest(t, nil)
	ctx := context.Background()

	sef := createSEF(t, svc)
	assert.NotEmpty(t, sef.ID)
	enrollAna(t, svc, sef)

	found, err := svc.SearchFacultyByStudentEmail(ctx, "ana@x.com")
	require.NoError(t, err)
	assert.Same(t, sef, found)
	assert.True(t, svc.StudentBelongsToFaculty(sef, "ana@x.com"))

	current := svc.CurrentStudents(sef)
	require.Len(t, current, 1)
	assert.Equal(t, time.Date(2024, time.March, 9, 0, 0, 0, 0, time.UTC), current[0].EnrollmentDate)
	assert.Equal(t, time.Date(2001, time.May, 12, 0, 0, 0, 0, time.UTC), current[0].DateOfBirth)

	alumnus, err := svc.GraduateStudent(ctx, sef, "ana@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Ana Pop", alumnus.FullName())
	assert.Empty(t, svc.CurrentStudents(sef))
	require.Len(t, svc.Alumni(sef), 1)
	assert.Equal(t, models.Day(fixedNow), svc.Alumni(sef)[0].GraduationDate)
	assert.False(t, svc.StudentBelongsToFaculty(sef, "ana@x.com"))

	_, err = svc.SearchFacultyByStudentEmail(ctx, "ana@x.com")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	assert.Equal(t, []string{
		"Created faculty: Software Engineering Faculty, Abbreviation: SEF, Field: Software Engineering",
		"Created student: Ana Pop, Email: ana@x.com, Faculty: Software Engineering Faculty",
		"Graduated student: Ana Pop, Faculty: Software Engineering Faculty",
	}, oplog.messages)
}

func TestRegistryServiceCreateStudentInvalidDate(t *testing.T) {
	svc, oplog := newRegistryServiceForTest(t, nil)
	sef := createSEF(t, svc)

	_, err := svc.CreateStudent(context.Background(), sef, CreateStudentRequest{
		FirstName: "Ana", LastName: "Pop", Email: "ana@x.com", Day: 31, Month: 2, Year: 2001,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidDate))
	assert.Empty(t, sef.Students)
	assert.Len(t, oplog.messages, 1)
}

func TestRegistryServiceCreateStudentRequiresFields(t *testing.T) {
	svc, _ := newRegistryServiceForTest(t, nil)
	sef := createSEF(t, svc)

	_, err := svc.CreateStudent(context.Background(), sef, CreateStudentRequest{FirstName: "Ana", Day: 1, Month: 1, Year: 2000})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.CreateFaculty(context.Background(), CreateFacultyRequest{Name: "No abbreviation"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Len(t, svc.Faculties(), 1)
}

func TestRegistryServiceGraduateAbsentStudent(t *testing.T) {
	svc, oplog := newRegistryServiceForTest(t, nil)
	sef := createSEF(t, svc)
	enrollAna(t, svc, sef)

	_, err := svc.GraduateStudent(context.Background(), sef, "ghost@x.com")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	assert.Len(t, sef.Students, 1)
	assert.Empty(t, sef.Alumni)
	assert.Equal(t, "Failed to graduate student: ghost@x.com, Faculty: Software Engineering Faculty", oplog.messages[len(oplog.messages)-1])
}

func TestRegistryServiceOperationLogFailureLeavesStateUnchanged(t *testing.T) {
	svc, oplog := newRegistryServiceForTest(t, nil)
	sef := createSEF(t, svc)
	enrollAna(t, svc, sef)
	oplog.err = errors.New("disk full")

	_, err := svc.CreateFaculty(context.Background(), CreateFacultyRequest{Name: "Food", Abbreviation: "FT", StudyField: models.StudyFieldFoodTechnology})
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
	assert.Len(t, svc.Faculties(), 1)

	_, err = svc.GraduateStudent(context.Background(), sef, "ana@x.com")
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
	assert.Len(t, sef.Students, 1)
	assert.Empty(t, sef.Alumni)
}

func TestRegistryServiceFindAndFilterFaculties(t *testing.T) {
	svc, _ := newRegistryServiceForTest(t, nil)
	sef := createSEF(t, svc)
	_, err := svc.CreateFaculty(context.Background(), CreateFacultyRequest{Name: "Veterinary Faculty", Abbreviation: "VMF", StudyField: models.StudyFieldVeterinaryMedicine})
	require.NoError(t, err)

	found, err := svc.FindFaculty("sef")
	require.NoError(t, err)
	assert.Same(t, sef, found)

	_, err = svc.FindFaculty("XYZ")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	vets := svc.FacultiesByField(models.StudyFieldVeterinaryMedicine)
	require.Len(t, vets, 1)
	assert.Equal(t, "VMF", vets[0].Abbreviation)
	assert.Empty(t, svc.FacultiesByField(models.StudyFieldUrbanismArchitecture))
}

func TestRegistryServiceSearchReturnsFirstFaculty(t *testing.T) {
	svc, _ := newRegistryServiceForTest(t, nil)
	first := createSEF(t, svc)
	second := createSEF(t, svc)
	svc.AssignStudent(context.Background(), second, models.Student{FirstName: "Ana", LastName: "Pop", Email: "ana@x.com"})
	svc.AssignStudent(context.Background(), first, models.Student{FirstName: "Ana", LastName: "Pop", Email: "ana@x.com"})

	found, err := svc.SearchFacultyByStudentEmail(context.Background(), "ana@x.com")
	require.NoError(t, err)
	assert.Same(t, first, found)
}

func TestRegistryServiceSaveAndLoadThroughFileStore(t *testing.T) {
	store := repository.NewFileStore(filepath.Join(t.TempDir(), "data.txt"))
	svc, oplog := newRegistryServiceForTest(t, store)
	ctx := context.Background()

	sef := createSEF(t, svc)
	enrollAna(t, svc, sef)
	_, err := svc.CreateStudent(ctx, sef, CreateStudentRequest{FirstName: "Ion", LastName: "Rusu", Email: "ion@x.com", Day: 3, Month: 1, Year: 2002})
	require.NoError(t, err)
	_, err = svc.GraduateStudent(ctx, sef, "ion@x.com")
	require.NoError(t, err)
	require.NoError(t, svc.SaveState(ctx))

	restored, _ := newRegistryServiceForTest(t, store)
	require.NoError(t, restored.LoadState(ctx))
	assert.Equal(t, svc.Faculties(), restored.Faculties())
	assert.Equal(t, "Saved system state.", oplog.messages[len(oplog.messages)-1])
}

func TestRegistryServiceLoadMissingFile(t *testing.T) {
	store := repository.NewFileStore(filepath.Join(t.TempDir(), "absent.txt"))
	svc, oplog := newRegistryServiceForTest(t, store)

	require.NoError(t, svc.LoadState(context.Background()))
	assert.Empty(t, svc.Faculties())
	assert.Equal(t, []string{"Loaded system state."}, oplog.messages)
}

func TestRegistryServiceLoadKeepsErrorCode(t *testing.T) {
	corrupt := appErrors.Clone(appErrors.ErrCorruptData, "corrupt data file at line 3")
	svc, _ := newRegistryServiceForTest(t, &fakeStore{loadErr: corrupt})
	createSEF(t, svc)

	err := svc.LoadState(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrCorruptData))
	assert.Len(t, svc.Faculties(), 1)
}

func TestRegistryServiceSaveFailure(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("read-only filesystem")}
	svc, oplog := newRegistryServiceForTest(t, store)

	err := svc.SaveState(context.Background())
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
	assert.Empty(t, oplog.messages)
}

func TestRegistryServiceCreateFacultyRejectsUnknownField(t *testing.T) {
	svc, oplog := newRegistryServiceForTest(t, nil)

	_, err := svc.CreateFaculty(context.Background(), CreateFacultyRequest{
		Name:         "Mystery Faculty",
		Abbreviation: "MF",
		StudyField:   models.StudyField("Some Field"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, svc.Faculties())
	assert.Empty(t, oplog.messages)
}
