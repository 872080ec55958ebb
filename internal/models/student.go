package models

import "time"

// DateLayout is the calendar-day layout used in data files, batch documents and the operation log.
const DateLayout = "2006-01-02"

// Student represents a learner currently enrolled in a faculty. Email is the lookup key.
type Student struct {
	FirstName      string    `db:"first_name" json:"first_name"`
	LastName       string    `db:"last_name" json:"last_name"`
	Email          string    `db:"email" json:"email"`
	EnrollmentDate time.Time `db:"enrollment_date" json:"enrollment_date"`
	DateOfBirth    time.Time `db:"date_of_birth" json:"date_of_birth"`
}

// FullName joins first and last name.
func (s Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

// Alumnus is a student record retained after graduation.
type Alumnus struct {
	Student
	GraduationDate time.Time `db:"graduation_date" json:"graduation_date"`
}

// Day truncates t to a UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CalendarDate builds a UTC calendar day and reports whether the components form a real date.
// time.Date normalises overflow (31 February becomes 2 or 3 March), so the components are compared back.
func CalendarDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || year < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// ParseDate parses a YYYY-MM-DD calendar day.
func ParseDate(raw string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, raw, time.UTC)
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
