package roster

import (
	"time"

	"github.com/trezcool/mahudhurio/core"
)

type Student struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email,omitempty"`
	BirthDate core.Date `json:"birth_date,omitempty"`
	UserID    string    `json:"user_id,omitempty"` // linked login account, if any
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Teacher struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Class struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Grade     string    `json:"grade"`
	Shift     string    `json:"shift,omitempty"`
	Year      int       `json:"year"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Subject struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Workload  int       `json:"workload,omitempty"` // hours/year
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Display shapes embedded in attendance responses.

type StudentInfo struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
}

type ClassInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Grade string `json:"grade"`
}

type SubjectInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

func (s Student) Info() StudentInfo { return StudentInfo{ID: s.ID, FullName: s.FullName} }
func (c Class) Info() ClassInfo     { return ClassInfo{ID: c.ID, Name: c.Name, Grade: c.Grade} }
func (s Subject) Info() SubjectInfo { return SubjectInfo{ID: s.ID, Name: s.Name, Code: s.Code} }

// Write inputs

type NewStudent struct {
	FullName  string    `json:"full_name" validate:"required"`
	Email     string    `json:"email" validate:"omitempty,email"`
	BirthDate core.Date `json:"birth_date"`
	UserID    string    `json:"user_id" validate:"omitempty,uuid4"`
}

func (ns *NewStudent) Validate() error {
	ns.FullName = core.CleanString(ns.FullName)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	return core.Validate.Struct(ns)
}

type NewTeacher struct {
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"omitempty,email"`
	UserID   string `json:"user_id" validate:"omitempty,uuid4"`
}

func (nt *NewTeacher) Validate() error {
	nt.FullName = core.CleanString(nt.FullName)
	nt.Email = core.CleanString(nt.Email, true /* lower */)
	return core.Validate.Struct(nt)
}

type NewClass struct {
	Name  string `json:"name" validate:"required"`
	Grade string `json:"grade" validate:"required"`
	Shift string `json:"shift"`
	Year  int    `json:"year" validate:"required,min=2000"`
}

func (nc *NewClass) Validate() error {
	nc.Name = core.CleanString(nc.Name)
	nc.Grade = core.CleanString(nc.Grade)
	return core.Validate.Struct(nc)
}

type NewSubject struct {
	Name     string `json:"name" validate:"required"`
	Code     string `json:"code" validate:"required,alphanum_"`
	Workload int    `json:"workload" validate:"omitempty,min=1"`
}

func (ns *NewSubject) Validate() error {
	ns.Name = core.CleanString(ns.Name)
	ns.Code = core.CleanString(ns.Code, true /* lower */)
	return core.Validate.Struct(ns)
}
