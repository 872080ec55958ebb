package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/noah-isme/faculty-registry/internal/models"
	appErrors "github.com/noah-isme/faculty-registry/pkg/errors"
)

// Record tags opening every line of the data file.
const (
	tagFaculty = "faculty"
	tagStudent = "student"
	tagAlumnus = "alumnus"
)

// FileStore persists the registry as tagged CSV records. Student and alumnus
// records belong to the closest faculty record above them.
type FileStore struct {
	path string
}

// NewFileStore constructs a FileStore writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the data file location.
func (s *FileStore) Path() string {
	return s.path
}

// Save overwrites the data file with the given faculties.
func (s *FileStore) Save(ctx context.Context, faculties []*models.Faculty) error {
	file, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("create data file: %w", err)
	}
	if err := Encode(file, faculties); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close data file: %w", err)
	}
	return nil
}

// Load reads the data file. A missing file yields an empty registry.
func (s *FileStore) Load(ctx context.Context) ([]*models.Faculty, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*models.Faculty{}, nil
		}
		return nil, fmt.Errorf("open data file: %w", err)
	}
	defer file.Close() //nolint:errcheck
	return Decode(file)
}

// Encode writes faculties in the tagged record format.
func Encode(w io.Writer, faculties []*models.Faculty) error {
	writer := csv.NewWriter(w)
	for _, f := range faculties {
		if err := writer.Write([]string{tagFaculty, f.ID, f.Name, f.Abbreviation, f.StudyField.String()}); err != nil {
			return fmt.Errorf("write faculty record: %w", err)
		}
		for _, st := range f.Students {
			if err := writer.Write(append([]string{tagStudent}, studentFields(st)...)); err != nil {
				return fmt.Errorf("write student record: %w", err)
			}
		}
		for _, a := range f.Alumni {
			record := append([]string{tagAlumnus}, studentFields(a.Student)...)
			record = append(record, models.FormatDate(a.GraduationDate))
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("write alumnus record: %w", err)
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush data file: %w", err)
	}
	return nil
}

// Decode parses the tagged record format.
func Decode(r io.Reader) ([]*models.Faculty, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	faculties := []*models.Faculty{}
	var current *models.Faculty
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			line := 0
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				line = parseErr.StartLine
			}
			return nil, corrupt(line, err)
		}
		line, _ := reader.FieldPos(0)

		switch record[0] {
		case tagFaculty:
			f, err := parseFaculty(record)
			if err != nil {
				return nil, corrupt(line, err)
			}
			faculties = append(faculties, f)
			current = f
		case tagStudent:
			if current == nil {
				return nil, corrupt(line, errors.New("student record before any faculty"))
			}
			if len(record) != 6 {
				return nil, corrupt(line, fmt.Errorf("student record has %d fields, want 6", len(record)))
			}
			st, err := parseStudent(record[1:6])
			if err != nil {
				return nil, corrupt(line, err)
			}
			current.Students = append(current.Students, st)
		case tagAlumnus:
			if current == nil {
				return nil, corrupt(line, errors.New("alumnus record before any faculty"))
			}
			if len(record) != 7 {
				return nil, corrupt(line, fmt.Errorf("alumnus record has %d fields, want 7", len(record)))
			}
			st, err := parseStudent(record[1:6])
			if err != nil {
				return nil, corrupt(line, err)
			}
			graduated, err := models.ParseDate(record[6])
			if err != nil {
				return nil, corrupt(line, fmt.Errorf("graduation date: %w", err))
			}
			current.Alumni = append(current.Alumni, models.Alumnus{Student: st, GraduationDate: graduated})
		default:
			return nil, corrupt(line, fmt.Errorf("unknown record tag %q", record[0]))
		}
	}
	return faculties, nil
}

func studentFields(s models.Student) []string {
	return []string{s.FirstName, s.LastName, s.Email, models.FormatDate(s.EnrollmentDate), models.FormatDate(s.DateOfBirth)}
}

func parseFaculty(record []string) (*models.Faculty, error) {
	if len(record) != 5 {
		return nil, fmt.Errorf("faculty record has %d fields, want 5", len(record))
	}
	field, err := models.ParseStudyField(record[4])
	if err != nil {
		return nil, err
	}
	return &models.Faculty{
		ID:           record[1],
		Name:         record[2],
		Abbreviation: record[3],
		StudyField:   field,
		Students:     []models.Student{},
		Alumni:       []models.Alumnus{},
	}, nil
}

func parseStudent(fields []string) (models.Student, error) {
	enrolled, err := models.ParseDate(fields[3])
	if err != nil {
		return models.Student{}, fmt.Errorf("enrollment date: %w", err)
	}
	born, err := models.ParseDate(fields[4])
	if err != nil {
		return models.Student{}, fmt.Errorf("date of birth: %w", err)
	}
	return models.Student{
		FirstName:      fields[0],
		LastName:       fields[1],
		Email:          fields[2],
		EnrollmentDate: enrolled,
		DateOfBirth:    born,
	}, nil
}

func corrupt(line int, err error) error {
	return appErrors.Wrap(err, appErrors.ErrCorruptData.Code, fmt.Sprintf("corrupt data file at line %d", line))
}
