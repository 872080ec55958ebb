package models

import "strings"

// Faculty is an academic unit owning its enrolled students and alumni.
type Faculty struct {
	ID           string     `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Abbreviation string     `db:"abbreviation" json:"abbreviation"`
	StudyField   StudyField `db:"study_field" json:"study_field"`
	Students     []Student  `db:"-" json:"students"`
	Alumni       []Alumnus  `db:"-" json:"alumni"`
}

// FindStudent returns the current student with the given email.
func (f *Faculty) FindStudent(email string) (*Student, bool) {
	for i := range f.Students {
		if f.Students[i].Email == email {
			return &f.Students[i], true
		}
	}
	return nil, false
}

// HasStudent reports whether a current student has the given email.
func (f *Faculty) HasStudent(email string) bool {
	_, ok := f.FindStudent(email)
	return ok
}

// RemoveStudent drops the first current student with the given email, preserving order.
func (f *Faculty) RemoveStudent(email string) (Student, bool) {
	for i, s := range f.Students {
		if s.Email == email {
			f.Students = append(f.Students[:i], f.Students[i+1:]...)
			return s, true
		}
	}
	return Student{}, false
}

// Registry is the ordered set of faculties held by the registry service.
type Registry struct {
	Faculties []*Faculty
}

// NewRegistry wraps faculties in a registry.
func NewRegistry(faculties []*Faculty) *Registry {
	if faculties == nil {
		faculties = []*Faculty{}
	}
	return &Registry{Faculties: faculties}
}

// Add appends a faculty.
func (r *Registry) Add(f *Faculty) {
	r.Faculties = append(r.Faculties, f)
}

// FindByAbbreviation matches case-insensitively and returns the first hit.
func (r *Registry) FindByAbbreviation(abbreviation string) (*Faculty, bool) {
	for _, f := range r.Faculties {
		if strings.EqualFold(f.Abbreviation, abbreviation) {
			return f, true
		}
	}
	return nil, false
}

// FindByName returns the first faculty with exactly this name.
func (r *Registry) FindByName(name string) (*Faculty, bool) {
	for _, f := range r.Faculties {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// FindByID returns the faculty with the given ID.
func (r *Registry) FindByID(id string) (*Faculty, bool) {
	for _, f := range r.Faculties {
		if f.ID == id {
			return f, true
		}
	}
	return nil, false
}

// Counts returns the number of faculties, current students and alumni.
func (r *Registry) Counts() (faculties, students, alumni int) {
	for _, f := range r.Faculties {
		students += len(f.Students)
		alumni += len(f.Alumni)
	}
	return len(r.Faculties), students, alumni
}
