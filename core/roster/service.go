package roster

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
)

var (
	// errors
	ErrStudentNotFound = errors.New("student not found")
	ErrTeacherNotFound = errors.New("teacher not found")
	ErrClassNotFound   = errors.New("class not found")
	ErrSubjectNotFound = errors.New("subject not found")

	ErrClassExists   = errors.New("a class with this name already exists for this year")
	ErrSubjectExists = errors.New("a subject with this code already exists")
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, s Student) (Student, error)
		GetStudentByID(ctx context.Context, id string) (Student, error)
		QueryStudents(ctx context.Context) ([]Student, error)
		UpdateStudent(ctx context.Context, s Student) (Student, error)
		DeleteStudentByID(ctx context.Context, id string) error

		CreateTeacher(ctx context.Context, t Teacher) (Teacher, error)
		GetTeacherByID(ctx context.Context, id string) (Teacher, error)
		// GetTeacherByUserID resolves the teacher profile linked to a login account.
		GetTeacherByUserID(ctx context.Context, userID string) (Teacher, error)
		QueryTeachers(ctx context.Context) ([]Teacher, error)
		UpdateTeacher(ctx context.Context, t Teacher) (Teacher, error)
		DeleteTeacherByID(ctx context.Context, id string) error

		CreateClass(ctx context.Context, c Class) (Class, error)
		GetClassByID(ctx context.Context, id string) (Class, error)
		QueryClasses(ctx context.Context) ([]Class, error)
		UpdateClass(ctx context.Context, c Class) (Class, error)
		DeleteClassByID(ctx context.Context, id string) error
		CheckClassUniqueness(ctx context.Context, name string, year int, excluded ...Class) error

		CreateSubject(ctx context.Context, s Subject) (Subject, error)
		GetSubjectByID(ctx context.Context, id string) (Subject, error)
		QuerySubjects(ctx context.Context) ([]Subject, error)
		UpdateSubject(ctx context.Context, s Subject) (Subject, error)
		DeleteSubjectByID(ctx context.Context, id string) error
		CheckSubjectUniqueness(ctx context.Context, code string, excluded ...Subject) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Students

func (svc *Service) CreateStudent(ctx context.Context, ns NewStudent) (Student, error) {
	now := time.Now().UTC()
	return svc.repo.CreateStudent(ctx, Student{
		FullName:  ns.FullName,
		Email:     ns.Email,
		BirthDate: ns.BirthDate,
		UserID:    ns.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) GetStudent(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *Service) QueryStudents(ctx context.Context) ([]Student, error) {
	return svc.repo.QueryStudents(ctx)
}

func (svc *Service) UpdateStudent(ctx context.Context, id string, ns NewStudent) (Student, error) {
	s, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return Student{}, err
	}
	s.FullName = ns.FullName
	s.Email = ns.Email
	s.BirthDate = ns.BirthDate
	s.UserID = ns.UserID
	s.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStudent(ctx, s)
}

func (svc *Service) DeleteStudent(ctx context.Context, id string) error {
	return svc.repo.DeleteStudentByID(ctx, id)
}

// Teachers

func (svc *Service) CreateTeacher(ctx context.Context, nt NewTeacher) (Teacher, error) {
	now := time.Now().UTC()
	return svc.repo.CreateTeacher(ctx, Teacher{
		FullName:  nt.FullName,
		Email:     nt.Email,
		UserID:    nt.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) GetTeacher(ctx context.Context, id string) (Teacher, error) {
	return svc.repo.GetTeacherByID(ctx, id)
}

func (svc *Service) GetTeacherByUserID(ctx context.Context, userID string) (Teacher, error) {
	return svc.repo.GetTeacherByUserID(ctx, userID)
}

func (svc *Service) QueryTeachers(ctx context.Context) ([]Teacher, error) {
	return svc.repo.QueryTeachers(ctx)
}

func (svc *Service) UpdateTeacher(ctx context.Context, id string, nt NewTeacher) (Teacher, error) {
	t, err := svc.repo.GetTeacherByID(ctx, id)
	if err != nil {
		return Teacher{}, err
	}
	t.FullName = nt.FullName
	t.Email = nt.Email
	t.UserID = nt.UserID
	t.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateTeacher(ctx, t)
}

func (svc *Service) DeleteTeacher(ctx context.Context, id string) error {
	return svc.repo.DeleteTeacherByID(ctx, id)
}

// Classes

func (svc *Service) CreateClass(ctx context.Context, nc NewClass) (Class, error) {
	if err := svc.checkClassUniqueness(ctx, nc.Name, nc.Year); err != nil {
		return Class{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateClass(ctx, Class{
		Name:      nc.Name,
		Grade:     nc.Grade,
		Shift:     nc.Shift,
		Year:      nc.Year,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) checkClassUniqueness(ctx context.Context, name string, year int, excl ...Class) error {
	if err := svc.repo.CheckClassUniqueness(ctx, name, year, excl...); err != nil {
		if errors.Cause(err) == ErrClassExists {
			return core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) GetClass(ctx context.Context, id string) (Class, error) {
	return svc.repo.GetClassByID(ctx, id)
}

func (svc *Service) QueryClasses(ctx context.Context) ([]Class, error) {
	return svc.repo.QueryClasses(ctx)
}

func (svc *Service) UpdateClass(ctx context.Context, id string, nc NewClass) (Class, error) {
	c, err := svc.repo.GetClassByID(ctx, id)
	if err != nil {
		return Class{}, err
	}
	if err := svc.checkClassUniqueness(ctx, nc.Name, nc.Year, c); err != nil {
		return Class{}, err
	}
	c.Name = nc.Name
	c.Grade = nc.Grade
	c.Shift = nc.Shift
	c.Year = nc.Year
	c.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateClass(ctx, c)
}

func (svc *Service) DeleteClass(ctx context.Context, id string) error {
	return svc.repo.DeleteClassByID(ctx, id)
}

// Subjects

func (svc *Service) CreateSubject(ctx context.Context, ns NewSubject) (Subject, error) {
	if err := svc.checkSubjectUniqueness(ctx, ns.Code); err != nil {
		return Subject{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateSubject(ctx, Subject{
		Name:      ns.Name,
		Code:      ns.Code,
		Workload:  ns.Workload,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) checkSubjectUniqueness(ctx context.Context, code string, excl ...Subject) error {
	if err := svc.repo.CheckSubjectUniqueness(ctx, code, excl...); err != nil {
		if errors.Cause(err) == ErrSubjectExists {
			return core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) GetSubject(ctx context.Context, id string) (Subject, error) {
	return svc.repo.GetSubjectByID(ctx, id)
}

func (svc *Service) QuerySubjects(ctx context.Context) ([]Subject, error) {
	return svc.repo.QuerySubjects(ctx)
}

func (svc *Service) UpdateSubject(ctx context.Context, id string, ns NewSubject) (Subject, error) {
	s, err := svc.repo.GetSubjectByID(ctx, id)
	if err != nil {
		return Subject{}, err
	}
	if err := svc.checkSubjectUniqueness(ctx, ns.Code, s); err != nil {
		return Subject{}, err
	}
	s.Name = ns.Name
	s.Code = ns.Code
	s.Workload = ns.Workload
	s.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateSubject(ctx, s)
}

func (svc *Service) DeleteSubject(ctx context.Context, id string) error {
	return svc.repo.DeleteSubjectByID(ctx, id)
}
