package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/faculty-registry/internal/models"
)

const registrySchema = `CREATE TABLE IF NOT EXISTS faculties (
    id TEXT PRIMARY KEY,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    abbreviation TEXT NOT NULL,
    study_field TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS students (
    faculty_id TEXT NOT NULL REFERENCES faculties(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    first_name TEXT NOT NULL,
    last_name TEXT NOT NULL,
    email TEXT NOT NULL,
    enrollment_date DATE NOT NULL,
    date_of_birth DATE NOT NULL
);
CREATE TABLE IF NOT EXISTS alumni (
    faculty_id TEXT NOT NULL REFERENCES faculties(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    first_name TEXT NOT NULL,
    last_name TEXT NOT NULL,
    email TEXT NOT NULL,
    enrollment_date DATE NOT NULL,
    date_of_birth DATE NOT NULL,
    graduation_date DATE NOT NULL
)`

type studentRow struct {
	FacultyID string `db:"faculty_id"`
	models.Student
}

type alumnusRow struct {
	FacultyID string `db:"faculty_id"`
	models.Alumnus
}

// PostgresStore keeps the registry snapshot in PostgreSQL. Save replaces the
// whole snapshot inside one transaction.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the registry tables when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, registrySchema); err != nil {
		return fmt.Errorf("ensure registry schema: %w", err)
	}
	return nil
}

// Save replaces the stored snapshot with faculties.
func (s *PostgresStore) Save(ctx context.Context, faculties []*models.Faculty) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"alumni", "students", "faculties"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	const insertFaculty = `INSERT INTO faculties (id, position, name, abbreviation, study_field) VALUES ($1, $2, $3, $4, $5)`
	const insertStudent = `INSERT INTO students (faculty_id, position, first_name, last_name, email, enrollment_date, date_of_birth) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	const insertAlumnus = `INSERT INTO alumni (faculty_id, position, first_name, last_name, email, enrollment_date, date_of_birth, graduation_date) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	for i, f := range faculties {
		if _, err = tx.ExecContext(ctx, insertFaculty, f.ID, i, f.Name, f.Abbreviation, string(f.StudyField)); err != nil {
			return fmt.Errorf("insert faculty %s: %w", f.Abbreviation, err)
		}
		for j, st := range f.Students {
			if _, err = tx.ExecContext(ctx, insertStudent, f.ID, j, st.FirstName, st.LastName, st.Email, st.EnrollmentDate, st.DateOfBirth); err != nil {
				return fmt.Errorf("insert student %s: %w", st.Email, err)
			}
		}
		for j, a := range f.Alumni {
			if _, err = tx.ExecContext(ctx, insertAlumnus, f.ID, j, a.FirstName, a.LastName, a.Email, a.EnrollmentDate, a.DateOfBirth, a.GraduationDate); err != nil {
				return fmt.Errorf("insert alumnus %s: %w", a.Email, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// Load reads the stored snapshot in saved order.
func (s *PostgresStore) Load(ctx context.Context) ([]*models.Faculty, error) {
	var faculties []*models.Faculty
	if err := s.db.SelectContext(ctx, &faculties, `SELECT id, name, abbreviation, study_field FROM faculties ORDER BY position`); err != nil {
		return nil, fmt.Errorf("load faculties: %w", err)
	}
	byID := make(map[string]*models.Faculty, len(faculties))
	for _, f := range faculties {
		f.Students = []models.Student{}
		f.Alumni = []models.Alumnus{}
		byID[f.ID] = f
	}

	var students []studentRow
	if err := s.db.SelectContext(ctx, &students, `SELECT faculty_id, first_name, last_name, email, enrollment_date, date_of_birth FROM students ORDER BY faculty_id, position`); err != nil {
		return nil, fmt.Errorf("load students: %w", err)
	}
	for _, row := range students {
		f, ok := byID[row.FacultyID]
		if !ok {
			continue
		}
		st := row.Student
		st.EnrollmentDate = models.Day(st.EnrollmentDate)
		st.DateOfBirth = models.Day(st.DateOfBirth)
		f.Students = append(f.Students, st)
	}

	var alumni []alumnusRow
	if err := s.db.SelectContext(ctx, &alumni, `SELECT faculty_id, first_name, last_name, email, enrollment_date, date_of_birth, graduation_date FROM alumni ORDER BY faculty_id, position`); err != nil {
		return nil, fmt.Errorf("load alumni: %w", err)
	}
	for _, row := range alumni {
		f, ok := byID[row.FacultyID]
		if !ok {
			continue
		}
		a := row.Alumnus
		a.EnrollmentDate = models.Day(a.EnrollmentDate)
		a.DateOfBirth = models.Day(a.DateOfBirth)
		a.GraduationDate = models.Day(a.GraduationDate)
		f.Alumni = append(f.Alumni, a)
	}

	if faculties == nil {
		faculties = []*models.Faculty{}
	}
	return faculties, nil
}
