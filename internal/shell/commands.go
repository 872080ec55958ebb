package shell

import (
	"context"
	"fmt"

	"github.com/noah-isme/faculty-registry/internal/models"
	"github.com/noah-isme/faculty-registry/internal/service"
	appErrors "github.com/noah-isme/faculty-registry/pkg/errors"
)

func (s *Shell) newFaculty(ctx context.Context, args []string) error {
	field, err := models.ParseStudyField(args[2])
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, fmt.Sprintf("unknown study field %s", args[2]))
	}
	faculty, err := s.registry.CreateFaculty(ctx, service.CreateFacultyRequest{
		Name:         args[0],
		Abbreviation: args[1],
		StudyField:   field,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Faculty %s created.\n", faculty.Name)
	return nil
}

func (s *Shell) searchStudent(ctx context.Context, args []string) error {
	email := args[0]
	faculty, err := s.registry.SearchFacultyByStudentEmail(ctx, email)
	if err != nil {
		if appErrors.FromError(err).Code == appErrors.ErrNotFound.Code {
			fmt.Fprintf(s.out, "No student found with email %s.\n", email)
			return nil
		}
		return err
	}
	fmt.Fprintf(s.out, "The student with email %s belongs to %s.\n", email, faculty.Name)
	return nil
}

func (s *Shell) displayFaculties(ctx context.Context, args []string) error {
	if len(args) == 0 {
		s.println("All faculties:")
		for _, f := range s.registry.Faculties() {
			fmt.Fprintf(s.out, "Faculty: %s, Abbreviation: %s, Field: %s\n", f.Name, f.Abbreviation, f.StudyField)
		}
		return nil
	}
	field, err := models.ParseStudyField(args[0])
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, fmt.Sprintf("unknown study field %s", args[0]))
	}
	fmt.Fprintf(s.out, "Faculties in field %s:\n", field)
	for _, f := range s.registry.FacultiesByField(field) {
		fmt.Fprintf(s.out, "Faculty: %s, Abbreviation: %s\n", f.Name, f.Abbreviation)
	}
	return nil
}

func (s *Shell) batchEnrollment(ctx context.Context, args []string) error {
	result, err := s.registry.BatchEnrollment(ctx, args[0])
	if err != nil {
		return err
	}
	s.printBatch("Batch enrollment", result)
	return nil
}

func (s *Shell) batchGraduation(ctx context.Context, args []string) error {
	result, err := s.registry.BatchGraduation(ctx, args[0])
	if err != nil {
		return err
	}
	s.printBatch("Batch graduation", result)
	return nil
}

func (s *Shell) newStudent(ctx context.Context, args []string) error {
	abbreviation, req, err := parseStudentArgs(args)
	if err != nil {
		return err
	}
	faculty, err := s.registry.FindFaculty(abbreviation)
	if err != nil {
		return err
	}
	student, err := s.registry.CreateStudent(ctx, faculty, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Student %s created.\n", student.FullName())
	return nil
}

func (s *Shell) graduateStudent(ctx context.Context, args []string) error {
	email := args[0]
	faculty, err := s.registry.SearchFacultyByStudentEmail(ctx, email)
	if err != nil {
		if appErrors.FromError(err).Code == appErrors.ErrNotFound.Code {
			fmt.Fprintf(s.out, "No faculty found for student with email %s.\n", email)
			return nil
		}
		return err
	}
	alumnus, err := s.registry.GraduateStudent(ctx, faculty, email)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Student %s graduated.\n", alumnus.FullName())
	return nil
}

func (s *Shell) displayStudents(ctx context.Context, args []string) error {
	faculty, err := s.registry.FindFaculty(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Faculty: %s\n", faculty.Name)
	for _, st := range s.registry.CurrentStudents(faculty) {
		s.println(st.FullName())
	}
	return nil
}

func (s *Shell) displayAlumni(ctx context.Context, args []string) error {
	faculty, err := s.registry.FindFaculty(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Faculty: %s - Alumni:\n", faculty.Name)
	for _, a := range s.registry.Alumni(faculty) {
		fmt.Fprintf(s.out, "%s (graduated %s)\n", a.FullName(), models.FormatDate(a.GraduationDate))
	}
	return nil
}

func (s *Shell) belongsToFaculty(ctx context.Context, args []string) error {
	faculty, err := s.registry.FindFaculty(args[0])
	if err != nil {
		return err
	}
	email := args[1]
	if s.registry.StudentBelongsToFaculty(faculty, email) {
		fmt.Fprintf(s.out, "Yes, %s belongs to %s.\n", email, faculty.Name)
	} else {
		fmt.Fprintf(s.out, "No, %s does not belong to %s.\n", email, faculty.Name)
	}
	return nil
}

func (s *Shell) exportRoster(ctx context.Context, args []string) error {
	if s.exports == nil {
		return appErrors.Clone(appErrors.ErrValidation, "roster export is not configured")
	}
	faculty, err := s.registry.FindFaculty(args[0])
	if err != nil {
		return err
	}
	format, err := service.ParseExportFormat(args[1])
	if err != nil {
		return err
	}
	result, err := s.exports.Export(ctx, faculty, format)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Roster of %s exported to %s (%d rows).\n", faculty.Name, result.Path, result.Rows)
	return nil
}

// addStudent enrolls a student unless the faculty already holds the email.
func (s *Shell) addStudent(ctx context.Context, args []string) error {
	abbreviation, req, err := parseStudentArgs(args)
	if err != nil {
		return err
	}
	faculty, err := s.registry.FindFaculty(abbreviation)
	if err != nil {
		return err
	}
	if s.registry.StudentBelongsToFaculty(faculty, req.Email) {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("student with email %s already exists in %s", req.Email, faculty.Name))
	}
	student, err := s.registry.CreateStudent(ctx, faculty, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Student %s created.\n", student.FullName())
	return nil
}

func (s *Shell) registerStudents(ctx context.Context, args []string) error {
	result, err := s.registry.RegisterStudentsFromFile(ctx, args[0])
	if err != nil {
		return err
	}
	s.printBatch("Registration", result)
	return nil
}
