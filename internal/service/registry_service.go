package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/faculty-registry/internal/models"
	appErrors "github.com/noah-isme/faculty-registry/pkg/errors"
)

type stateStore interface {
	Save(ctx context.Context, faculties []*models.Faculty) error
	Load(ctx context.Context) ([]*models.Faculty, error)
}

type operationLog interface {
	Record(message string) error
}

// CreateFacultyRequest holds payload for creating faculties.
type CreateFacultyRequest struct {
	Name         string            `json:"name" validate:"required"`
	Abbreviation string            `json:"abbreviation" validate:"required"`
	StudyField   models.StudyField `json:"study_field" validate:"required,studyfield"`
}

// CreateStudentRequest holds payload for enrolling a new student. The birth
// date is given as separate calendar components.
type CreateStudentRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required"`
	Day       int    `json:"day"`
	Month     int    `json:"month"`
	Year      int    `json:"year"`
}

// RegistryService owns the faculty registry and is the only code that mutates it.
// It is not safe for concurrent use.
type RegistryService struct {
	registry  *models.Registry
	store     stateStore
	oplog     operationLog
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewRegistryService constructs the registry service with an empty registry.
func NewRegistryService(store stateStore, oplog operationLog, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *RegistryService {
	if validate == nil {
		validate = validator.New()
	}
	registerValidations(validate)
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistryService{
		registry:  models.NewRegistry(nil),
		store:     store,
		oplog:     oplog,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

func registerValidations(v *validator.Validate) {
	_ = v.RegisterValidation("studyfield", func(fl validator.FieldLevel) bool {
		return models.StudyField(fl.Field().String()).Valid()
	})
}

func (s *RegistryService) today() time.Time {
	return models.Day(s.now())
}

// record writes to the operation log before the in-memory change is applied,
// so a failed write leaves the registry untouched.
func (s *RegistryService) record(message string) error {
	if s.oplog == nil {
		return nil
	}
	if err := s.oplog.Record(message); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to write operation log")
	}
	return nil
}

func (s *RegistryService) observe(operation string, err error) {
	s.metrics.ObserveOperation(operation, err)
	s.metrics.SetRegistrySize(s.registry.Counts())
}

// Faculties returns the registry's faculties in creation order.
func (s *RegistryService) Faculties() []*models.Faculty {
	out := make([]*models.Faculty, len(s.registry.Faculties))
	copy(out, s.registry.Faculties)
	return out
}

// FacultiesByField returns faculties in the given study field.
func (s *RegistryService) FacultiesByField(field models.StudyField) []*models.Faculty {
	out := make([]*models.Faculty, 0)
	for _, f := range s.registry.Faculties {
		if f.StudyField == field {
			out = append(out, f)
		}
	}
	return out
}

// FindFaculty looks a faculty up by abbreviation, ignoring case.
func (s *RegistryService) FindFaculty(abbreviation string) (*models.Faculty, error) {
	f, ok := s.registry.FindByAbbreviation(abbreviation)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("faculty with abbreviation %s not found", abbreviation))
	}
	return f, nil
}

// CreateFaculty appends a new faculty. Duplicate names and abbreviations are allowed.
func (s *RegistryService) CreateFaculty(ctx context.Context, req CreateFacultyRequest) (f *models.Faculty, err error) {
	defer func() { s.observe("create_faculty", err) }()

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, "invalid faculty payload")
	}
	faculty := &models.Faculty{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Abbreviation: req.Abbreviation,
		StudyField:   req.StudyField,
		Students:     []models.Student{},
		Alumni:       []models.Alumnus{},
	}
	if err := s.record(fmt.Sprintf("Created faculty: %s, Abbreviation: %s, Field: %s", faculty.Name, faculty.Abbreviation, faculty.StudyField)); err != nil {
		return nil, err
	}
	s.registry.Add(faculty)
	s.logger.Info("faculty created", zap.String("faculty_id", faculty.ID), zap.String("abbreviation", faculty.Abbreviation))
	return faculty, nil
}

// CreateStudent enrolls a new student in faculty with today's enrollment date.
// An impossible birth date yields ErrInvalidDate and changes nothing.
func (s *RegistryService) CreateStudent(ctx context.Context, faculty *models.Faculty, req CreateStudentRequest) (st *models.Student, err error) {
	defer func() { s.observe("create_student", err) }()

	if faculty == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "faculty is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, "invalid student payload")
	}
	born, ok := models.CalendarDate(req.Year, req.Month, req.Day)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidDate, fmt.Sprintf("invalid date of birth %d/%d/%d", req.Day, req.Month, req.Year))
	}
	student := models.Student{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		EnrollmentDate: s.today(),
		DateOfBirth:    born,
	}
	message := fmt.Sprintf("Created student: %s %s, Email: %s, Faculty: %s", student.FirstName, student.LastName, student.Email, faculty.Name)
	if err := s.record(message); err != nil {
		return nil, err
	}
	s.AssignStudent(ctx, faculty, student)
	return &student, nil
}

// AssignStudent appends student to faculty's current collection. The cached
// lookup for the email is dropped since an earlier faculty may now hold it.
func (s *RegistryService) AssignStudent(ctx context.Context, faculty *models.Faculty, student models.Student) {
	faculty.Students = append(faculty.Students, student)
	s.cache.Forget(ctx, student.Email)
}

// GraduateStudent moves the student with email from faculty's current
// collection to its alumni. A miss is logged and reported as ErrNotFound.
func (s *RegistryService) GraduateStudent(ctx context.Context, faculty *models.Faculty, email string) (a *models.Alumnus, err error) {
	defer func() { s.observe("graduate_student", err) }()

	if faculty == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "faculty is required")
	}
	student, ok := faculty.FindStudent(email)
	if !ok {
		if err := s.record(fmt.Sprintf("Failed to graduate student: %s, Faculty: %s", email, faculty.Name)); err != nil {
			return nil, err
		}
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no student with email %s in %s", email, faculty.Name))
	}
	if err := s.record(fmt.Sprintf("Graduated student: %s, Faculty: %s", student.FullName(), faculty.Name)); err != nil {
		return nil, err
	}
	return s.graduate(ctx, faculty, email), nil
}

func (s *RegistryService) graduate(ctx context.Context, faculty *models.Faculty, email string) *models.Alumnus {
	removed, _ := faculty.RemoveStudent(email)
	alumnus := models.Alumnus{Student: removed, GraduationDate: s.today()}
	faculty.Alumni = append(faculty.Alumni, alumnus)
	s.cache.Forget(ctx, email)
	return &alumnus
}

// SearchFacultyByStudentEmail returns the first faculty with a current student
// holding email.
func (s *RegistryService) SearchFacultyByStudentEmail(ctx context.Context, email string) (*models.Faculty, error) {
	if id, ok := s.cache.FacultyIDForEmail(ctx, email); ok {
		if f, found := s.registry.FindByID(id); found && f.HasStudent(email) {
			return f, nil
		}
		s.cache.Forget(ctx, email)
	}
	for _, f := range s.registry.Faculties {
		if f.HasStudent(email) {
			s.cache.Remember(ctx, email, f.ID)
			return f, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no student found with email %s", email))
}

// CurrentStudents returns a copy of faculty's enrolled students.
func (s *RegistryService) CurrentStudents(faculty *models.Faculty) []models.Student {
	out := make([]models.Student, len(faculty.Students))
	copy(out, faculty.Students)
	return out
}

// Alumni returns a copy of faculty's graduated students.
func (s *RegistryService) Alumni(faculty *models.Faculty) []models.Alumnus {
	out := make([]models.Alumnus, len(faculty.Alumni))
	copy(out, faculty.Alumni)
	return out
}

// StudentBelongsToFaculty reports whether email is currently enrolled in faculty.
func (s *RegistryService) StudentBelongsToFaculty(faculty *models.Faculty, email string) bool {
	return faculty != nil && faculty.HasStudent(email)
}

// SaveState persists the registry through the configured store.
func (s *RegistryService) SaveState(ctx context.Context) (err error) {
	defer func() { s.observe("save_state", err) }()

	if err := s.store.Save(ctx, s.registry.Faculties); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to save system state")
	}
	return s.record("Saved system state.")
}

// LoadState replaces the registry with the stored state. A missing data file
// loads an empty registry.
func (s *RegistryService) LoadState(ctx context.Context) (err error) {
	defer func() { s.observe("load_state", err) }()

	faculties, err := s.store.Load(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.FromError(err).Code, "failed to load system state")
	}
	s.registry = models.NewRegistry(faculties)
	s.cache.Reset(ctx)
	nf, ns, na := s.registry.Counts()
	s.logger.Info("system state loaded", zap.Int("faculties", nf), zap.Int("students", ns), zap.Int("alumni", na))
	return s.record("Loaded system state.")
}
