package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/faculty-registry/internal/models"
	appErrors "github.com/noah-isme/faculty-registry/pkg/errors"
)

type enrollmentGroup struct {
	faculty string
	entries []models.BatchEnrollmentEntry
}

// BatchEnrollment enrolls students from a JSON document mapping faculty names
// to student objects. The document is parsed completely before anything is
// applied; entries naming an unknown faculty or missing data are skipped.
func (s *RegistryService) BatchEnrollment(ctx context.Context, path string) (result *models.BatchResult, err error) {
	defer func() { s.observe("batch_enrollment", err) }()

	result = models.NewBatchResult()
	logger := s.logger.With(zap.String("run_id", result.RunID), zap.String("file", path))

	groups, err := readEnrollmentDocument(path)
	if err != nil {
		logger.Error("batch enrollment aborted", zap.Error(err))
		return nil, err
	}

	for _, group := range groups {
		faculty, ok := s.registry.FindByName(group.faculty)
		if !ok {
			logger.Error("faculty not found for batch enrollment", zap.String("faculty", group.faculty), zap.Int("entries", len(group.entries)))
			for _, entry := range group.entries {
				result.Skipped = append(result.Skipped, fmt.Sprintf("%s: faculty %q not found", entry.Email, group.faculty))
			}
			continue
		}
		for _, entry := range group.entries {
			student, reason := s.studentFromEntry(entry)
			if reason == "" && faculty.HasStudent(student.Email) {
				reason = fmt.Sprintf("already enrolled in %s", faculty.Name)
			}
			if reason != "" {
				logger.Error("invalid batch enrollment entry", zap.String("email", entry.Email), zap.String("reason", reason))
				result.Skipped = append(result.Skipped, fmt.Sprintf("%s: %s", entry.Email, reason))
				continue
			}
			message := fmt.Sprintf("Batch enrollment: Created student %s in faculty %s", student.FullName(), faculty.Name)
			if err := s.record(message); err != nil {
				return result, err
			}
			s.AssignStudent(ctx, faculty, student)
			result.Applied++
		}
	}

	logger.Info("batch enrollment finished", zap.Int("applied", result.Applied), zap.Int("skipped", len(result.Skipped)))
	return result, nil
}

func (s *RegistryService) studentFromEntry(entry models.BatchEnrollmentEntry) (models.Student, string) {
	if err := s.validator.Struct(entry); err != nil {
		return models.Student{}, "missing required fields"
	}
	born, err := models.ParseDate(entry.DateOfBirth)
	if err != nil {
		return models.Student{}, fmt.Sprintf("invalid date_of_birth %q", entry.DateOfBirth)
	}
	enrolled := s.today()
	if entry.EnrollmentDate != "" {
		if enrolled, err = models.ParseDate(entry.EnrollmentDate); err != nil {
			return models.Student{}, fmt.Sprintf("invalid enrollment_date %q", entry.EnrollmentDate)
		}
	}
	return models.Student{
		FirstName:      entry.FirstName,
		LastName:       entry.LastName,
		Email:          entry.Email,
		EnrollmentDate: enrolled,
		DateOfBirth:    born,
	}, ""
}

// readEnrollmentDocument decodes the top-level object token by token so
// faculties are applied in document order.
func readEnrollmentDocument(path string) ([]enrollmentGroup, error) {
	file, err := openBatchFile(path)
	if err != nil {
		return nil, err
	}
	defer file.Close() //nolint:errcheck

	dec := json.NewDecoder(file)
	if err := expectDelim(dec, '{'); err != nil {
		return nil, malformed(path, err)
	}
	var groups []enrollmentGroup
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, malformed(path, err)
		}
		name, ok := tok.(string)
		if !ok {
			return nil, malformed(path, fmt.Errorf("unexpected token %v", tok))
		}
		var entries []models.BatchEnrollmentEntry
		if err := dec.Decode(&entries); err != nil {
			return nil, malformed(path, err)
		}
		groups = append(groups, enrollmentGroup{faculty: name, entries: entries})
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, malformed(path, err)
	}
	return groups, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

// BatchGraduation graduates every email listed in a JSON array from the first
// faculty holding it. Unknown emails are skipped.
func (s *RegistryService) BatchGraduation(ctx context.Context, path string) (result *models.BatchResult, err error) {
	defer func() { s.observe("batch_graduation", err) }()

	result = models.NewBatchResult()
	logger := s.logger.With(zap.String("run_id", result.RunID), zap.String("file", path))

	file, err := openBatchFile(path)
	if err != nil {
		logger.Error("batch graduation aborted", zap.Error(err))
		return nil, err
	}
	var emails []string
	decodeErr := json.NewDecoder(file).Decode(&emails)
	_ = file.Close()
	if decodeErr != nil {
		err = malformed(path, decodeErr)
		logger.Error("batch graduation aborted", zap.Error(err))
		return nil, err
	}

	for _, email := range emails {
		faculty := s.facultyHolding(email)
		if faculty == nil {
			logger.Error("student not found for batch graduation", zap.String("email", email))
			result.Skipped = append(result.Skipped, fmt.Sprintf("%s: no faculty holds this email", email))
			continue
		}
		if err := s.record(fmt.Sprintf("Batch graduation: Graduated student with email %s from faculty %s", email, faculty.Name)); err != nil {
			return result, err
		}
		s.graduate(ctx, faculty, email)
		result.Applied++
	}

	logger.Info("batch graduation finished", zap.Int("applied", result.Applied), zap.Int("skipped", len(result.Skipped)))
	return result, nil
}

func (s *RegistryService) facultyHolding(email string) *models.Faculty {
	for _, f := range s.registry.Faculties {
		if f.HasStudent(email) {
			return f
		}
	}
	return nil
}

// RegisterStudentsFromFile enrolls students listed one per CSV line as
// abbreviation,first name,last name,email,day,month,year. Bad lines are skipped.
func (s *RegistryService) RegisterStudentsFromFile(ctx context.Context, path string) (result *models.BatchResult, err error) {
	defer func() { s.observe("register_students", err) }()

	result = models.NewBatchResult()
	logger := s.logger.With(zap.String("run_id", result.RunID), zap.String("file", path))

	file, err := openBatchFile(path)
	if err != nil {
		logger.Error("student registration aborted", zap.Error(err))
		return nil, err
	}
	defer file.Close() //nolint:errcheck

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	line := 0
	for {
		record, readErr := reader.Read()
		if readErr == io.EOF {
			break
		}
		line++
		if readErr != nil {
			err = appErrors.Wrap(readErr, appErrors.ErrMalformedBatch.Code, fmt.Sprintf("invalid CSV format in file '%s'", path))
			logger.Error("student registration aborted", zap.Error(err))
			return result, err
		}
		if reason := s.registerLine(ctx, record); reason != "" {
			logger.Warn("registration line skipped", zap.Int("line", line), zap.String("reason", reason))
			result.Skipped = append(result.Skipped, fmt.Sprintf("line %d: %s", line, reason))
			continue
		}
		result.Applied++
	}
	return result, nil
}

func (s *RegistryService) registerLine(ctx context.Context, record []string) string {
	if len(record) != 7 {
		return fmt.Sprintf("expected 7 fields, got %d", len(record))
	}
	faculty, err := s.FindFaculty(record[0])
	if err != nil {
		return err.Error()
	}
	if faculty.HasStudent(record[3]) {
		return fmt.Sprintf("%s already enrolled in %s", record[3], faculty.Name)
	}
	parts := make([]int, 3)
	for i, raw := range record[4:7] {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Sprintf("%q is not a number", raw)
		}
		parts[i] = n
	}
	_, err = s.CreateStudent(ctx, faculty, CreateStudentRequest{
		FirstName: record[1],
		LastName:  record[2],
		Email:     record[3],
		Day:       parts[0],
		Month:     parts[1],
		Year:      parts[2],
	})
	if err != nil {
		return err.Error()
	}
	return ""
}

func openBatchFile(path string) (*os.File, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Wrap(err, appErrors.ErrMalformedBatch.Code, fmt.Sprintf("file '%s' not found", path))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrMalformedBatch.Code, fmt.Sprintf("cannot open '%s'", path))
	}
	return file, nil
}

func malformed(path string, err error) error {
	return appErrors.Wrap(err, appErrors.ErrMalformedBatch.Code, fmt.Sprintf("invalid JSON format in file '%s'", path))
}
