package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/faculty-registry/internal/models"
	"github.com/noah-isme/faculty-registry/internal/service"
	appErrors "github.com/noah-isme/faculty-registry/pkg/errors"
)

const invalidInput = "Invalid input. Please try again."

type registry interface {
	Faculties() []*models.Faculty
	FacultiesByField(field models.StudyField) []*models.Faculty
	FindFaculty(abbreviation string) (*models.Faculty, error)
	CreateFaculty(ctx context.Context, req service.CreateFacultyRequest) (*models.Faculty, error)
	CreateStudent(ctx context.Context, faculty *models.Faculty, req service.CreateStudentRequest) (*models.Student, error)
	GraduateStudent(ctx context.Context, faculty *models.Faculty, email string) (*models.Alumnus, error)
	SearchFacultyByStudentEmail(ctx context.Context, email string) (*models.Faculty, error)
	CurrentStudents(faculty *models.Faculty) []models.Student
	Alumni(faculty *models.Faculty) []models.Alumnus
	StudentBelongsToFaculty(faculty *models.Faculty, email string) bool
	BatchEnrollment(ctx context.Context, path string) (*models.BatchResult, error)
	BatchGraduation(ctx context.Context, path string) (*models.BatchResult, error)
	RegisterStudentsFromFile(ctx context.Context, path string) (*models.BatchResult, error)
	SaveState(ctx context.Context) error
}

type exporter interface {
	Export(ctx context.Context, faculty *models.Faculty, format service.ExportFormat) (*service.ExportResult, error)
}

type menu int

const (
	mainMenu menu = iota
	generalMenu
	facultyMenu
	studentMenu
)

// command is one slash-delimited instruction. When path is set the whole
// remainder of the line is a single argument, so file names may contain slashes.
type command struct {
	minArgs int
	maxArgs int
	path    bool
	run     func(ctx context.Context, args []string) error
}

// Shell reads slash-delimited commands and drives the registry. It owns no state
// beyond the current menu.
type Shell struct {
	registry registry
	exports  exporter
	in       *bufio.Scanner
	out      io.Writer
	logger   *zap.Logger
	commands map[menu]map[string]command
}

// New builds a shell reading from in and writing to out. exports may be nil,
// in which case the roster export command reports that it is unavailable.
func New(registry registry, exports exporter, in io.Reader, out io.Writer, logger *zap.Logger) *Shell {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Shell{
		registry: registry,
		exports:  exports,
		in:       bufio.NewScanner(in),
		out:      out,
		logger:   logger,
	}
	s.commands = map[menu]map[string]command{
		generalMenu: {
			"nf": {minArgs: 3, maxArgs: 3, run: s.newFaculty},
			"ss": {minArgs: 1, maxArgs: 1, run: s.searchStudent},
			"df": {minArgs: 0, maxArgs: 1, run: s.displayFaculties},
			"be": {minArgs: 1, maxArgs: 1, path: true, run: s.batchEnrollment},
			"bg": {minArgs: 1, maxArgs: 1, path: true, run: s.batchGraduation},
		},
		facultyMenu: {
			"ns": {minArgs: 7, maxArgs: 7, run: s.newStudent},
			"gs": {minArgs: 1, maxArgs: 1, run: s.graduateStudent},
			"ds": {minArgs: 1, maxArgs: 1, run: s.displayStudents},
			"dg": {minArgs: 1, maxArgs: 1, run: s.displayAlumni},
			"bf": {minArgs: 2, maxArgs: 2, run: s.belongsToFaculty},
			"ex": {minArgs: 2, maxArgs: 2, run: s.exportRoster},
		},
		studentMenu: {
			"as": {minArgs: 7, maxArgs: 7, run: s.addStudent},
			"rs": {minArgs: 1, maxArgs: 1, path: true, run: s.registerStudents},
		},
	}
	return s
}

// Run loops until the user quits or input ends, then saves the registry.
func (s *Shell) Run(ctx context.Context) error {
	current := mainMenu
	for {
		s.printMenu(current)
		line, ok := s.readLine()
		if !ok {
			if err := s.in.Err(); err != nil {
				s.logger.Warn("reading input failed", zap.Error(err))
			}
			return s.quit(ctx)
		}

		next, quit := s.dispatch(ctx, current, line)
		if quit {
			return s.quit(ctx)
		}
		current = next
	}
}

func (s *Shell) readLine() (string, bool) {
	fmt.Fprint(s.out, "Your input> ")
	if !s.in.Scan() {
		fmt.Fprintln(s.out)
		return "", false
	}
	return strings.TrimSpace(s.in.Text()), true
}

func (s *Shell) quit(ctx context.Context) error {
	if err := s.registry.SaveState(ctx); err != nil {
		s.report(err)
		return err
	}
	s.println("Exiting the program.")
	return nil
}

func (s *Shell) dispatch(ctx context.Context, current menu, line string) (menu, bool) {
	keyword, rest, hasArgs := strings.Cut(line, "/")
	keyword = strings.ToLower(strings.TrimSpace(keyword))

	if !hasArgs {
		switch {
		case keyword == "q":
			return current, true
		case current == mainMenu && keyword == "g":
			return generalMenu, false
		case current == mainMenu && keyword == "f":
			return facultyMenu, false
		case current == mainMenu && keyword == "s":
			return studentMenu, false
		case current != mainMenu && keyword == "b":
			return mainMenu, false
		}
	}

	cmd, ok := s.commands[current][keyword]
	if !ok {
		s.println(invalidInput)
		return current, false
	}

	var args []string
	switch {
	case cmd.path && strings.TrimSpace(rest) != "":
		args = []string{strings.TrimSpace(rest)}
	case !cmd.path && hasArgs:
		args = strings.Split(rest, "/")
	}
	if len(args) < cmd.minArgs || len(args) > cmd.maxArgs {
		s.println(invalidInput)
		return current, false
	}

	if err := cmd.run(ctx, args); err != nil {
		s.report(err)
	}
	return current, false
}

func (s *Shell) printMenu(current menu) {
	switch current {
	case generalMenu:
		s.println("",
			"General operations What do you want to do?",
			"nf/<faculty name>/<faculty abbreviation>/<field> - create faculty",
			"ss/<student email> - search student and show faculty",
			"df - display faculties",
			"df/<field> - display all faculties of a field",
			"be/<file> - batch enrollment from JSON",
			"bg/<file> - batch graduation from JSON",
			"b - Back",
			"q - Quit Program")
	case facultyMenu:
		s.println("",
			"Faculty operations What do you want to do?",
			"ns/<faculty abbreviation>/<first name>/<last name>/<email>/<day>/<month>/<year> - create student",
			"gs/<email> - graduate student",
			"ds/<faculty abbreviation> - display enrolled students",
			"dg/<faculty abbreviation> - display graduated students",
			"bf/<faculty abbreviation>/<email> - check if student belongs to faculty",
			"ex/<faculty abbreviation>/<csv|pdf> - export faculty roster",
			"b - Back",
			"q - Quit Program")
	case studentMenu:
		s.println("",
			"Student operations What do you want to do?",
			"as/<faculty abbreviation>/<first name>/<last name>/<email>/<day>/<month>/<year> - add student",
			"rs/<file> - register students from CSV",
			"b - Back",
			"q - Quit Program")
	default:
		s.println("",
			"Welcome to the student management system!",
			"What do you want to do?",
			"g - General operations",
			"f - Faculty operations",
			"s - Student operations",
			"q - Quit Program")
	}
}

func (s *Shell) println(lines ...string) {
	for _, line := range lines {
		fmt.Fprintln(s.out, line)
	}
}

// report prints a failed command. Not-found, validation and date errors show
// only their message; infrastructure errors include the cause.
func (s *Shell) report(err error) {
	if err == errInvalidInput {
		s.println(invalidInput)
		return
	}
	appErr := appErrors.FromError(err)
	switch appErr.Code {
	case appErrors.ErrNotFound.Code, appErrors.ErrValidation.Code, appErrors.ErrInvalidDate.Code, appErrors.ErrConflict.Code:
		s.println(sentence(appErr.Message))
	default:
		s.logger.Error("command failed", zap.String("code", appErr.Code), zap.Error(err))
		s.println("Error: " + appErr.Error())
	}
}

var errInvalidInput = appErrors.New(appErrors.ErrValidation.Code, invalidInput)

func sentence(msg string) string {
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:] + "."
}

func parseStudentArgs(args []string) (string, service.CreateStudentRequest, error) {
	numbers := make([]int, 3)
	for i, raw := range args[4:7] {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return "", service.CreateStudentRequest{}, errInvalidInput
		}
		numbers[i] = n
	}
	return args[0], service.CreateStudentRequest{
		FirstName: args[1],
		LastName:  args[2],
		Email:     args[3],
		Day:       numbers[0],
		Month:     numbers[1],
		Year:      numbers[2],
	}, nil
}

func (s *Shell) printBatch(label string, result *models.BatchResult) {
	fmt.Fprintf(s.out, "%s finished: %d applied, %d skipped.\n", label, result.Applied, len(result.Skipped))
	for _, reason := range result.Skipped {
		fmt.Fprintf(s.out, "  skipped %s\n", reason)
	}
}
