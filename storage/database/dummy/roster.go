package dummydb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/mahudhurio/core/roster"
)

type rosterRepository struct {
	db *DB
}

var _ roster.Repository = (*rosterRepository)(nil) // interface compliance check

func NewRosterRepository(db *DB) roster.Repository {
	return &rosterRepository{db: db}
}

// Students

func (repo *rosterRepository) CreateStudent(ctx context.Context, s roster.Student) (roster.Student, error) {
	repo.db.student.Lock()
	defer repo.db.student.Unlock()

	s.ID = uuid.New().String()
	repo.db.student.table[s.ID] = &s
	return s, nil
}

func (repo *rosterRepository) GetStudentByID(ctx context.Context, id string) (roster.Student, error) {
	repo.db.student.RLock()
	defer repo.db.student.RUnlock()

	if s, ok := repo.db.student.table[id]; ok {
		return *s, nil
	}
	return roster.Student{}, roster.ErrStudentNotFound
}

func (repo *rosterRepository) QueryStudents(ctx context.Context) ([]roster.Student, error) {
	repo.db.student.RLock()
	defer repo.db.student.RUnlock()

	students := make([]roster.Student, 0, len(repo.db.student.table))
	for _, s := range repo.db.student.table {
		students = append(students, *s)
	}
	return students, nil
}

func (repo *rosterRepository) UpdateStudent(ctx context.Context, s roster.Student) (roster.Student, error) {
	repo.db.student.Lock()
	defer repo.db.student.Unlock()

	if _, ok := repo.db.student.table[s.ID]; !ok {
		return roster.Student{}, roster.ErrStudentNotFound
	}
	repo.db.student.table[s.ID] = &s
	return s, nil
}

func (repo *rosterRepository) DeleteStudentByID(ctx context.Context, id string) error {
	repo.db.student.Lock()
	defer repo.db.student.Unlock()
	delete(repo.db.student.table, id)
	return nil
}

// Teachers

func (repo *rosterRepository) CreateTeacher(ctx context.Context, t roster.Teacher) (roster.Teacher, error) {
	repo.db.teacher.Lock()
	defer repo.db.teacher.Unlock()

	t.ID = uuid.New().String()
	repo.db.teacher.table[t.ID] = &t
	return t, nil
}

func (repo *rosterRepository) GetTeacherByID(ctx context.Context, id string) (roster.Teacher, error) {
	repo.db.teacher.RLock()
	defer repo.db.teacher.RUnlock()

	if t, ok := repo.db.teacher.table[id]; ok {
		return *t, nil
	}
	return roster.Teacher{}, roster.ErrTeacherNotFound
}

func (repo *rosterRepository) GetTeacherByUserID(ctx context.Context, userID string) (roster.Teacher, error) {
	repo.db.teacher.RLock()
	defer repo.db.teacher.RUnlock()

	for _, t := range repo.db.teacher.table {
		if t.UserID == userID {
			return *t, nil
		}
	}
	return roster.Teacher{}, roster.ErrTeacherNotFound
}

func (repo *rosterRepository) QueryTeachers(ctx context.Context) ([]roster.Teacher, error) {
	repo.db.teacher.RLock()
	defer repo.db.teacher.RUnlock()

	teachers := make([]roster.Teacher, 0, len(repo.db.teacher.table))
	for _, t := range repo.db.teacher.table {
		teachers = append(teachers, *t)
	}
	return teachers, nil
}

func (repo *rosterRepository) UpdateTeacher(ctx context.Context, t roster.Teacher) (roster.Teacher, error) {
	repo.db.teacher.Lock()
	defer repo.db.teacher.Unlock()

	if _, ok := repo.db.teacher.table[t.ID]; !ok {
		return roster.Teacher{}, roster.ErrTeacherNotFound
	}
	repo.db.teacher.table[t.ID] = &t
	return t, nil
}

func (repo *rosterRepository) DeleteTeacherByID(ctx context.Context, id string) error {
	repo.db.teacher.Lock()
	defer repo.db.teacher.Unlock()
	delete(repo.db.teacher.table, id)
	return nil
}

// Classes

func (repo *rosterRepository) CreateClass(ctx context.Context, c roster.Class) (roster.Class, error) {
	repo.db.class.Lock()
	defer repo.db.class.Unlock()

	c.ID = uuid.New().String()
	repo.db.class.table[c.ID] = &c
	return c, nil
}

func (repo *rosterRepository) GetClassByID(ctx context.Context, id string) (roster.Class, error) {
	repo.db.class.RLock()
	defer repo.db.class.RUnlock()

	if c, ok := repo.db.class.table[id]; ok {
		return *c, nil
	}
	return roster.Class{}, roster.ErrClassNotFound
}

func (repo *rosterRepository) QueryClasses(ctx context.Context) ([]roster.Class, error) {
	repo.db.class.RLock()
	defer repo.db.class.RUnlock()

	classes := make([]roster.Class, 0, len(repo.db.class.table))
	for _, c := range repo.db.class.table {
		classes = append(classes, *c)
	}
	return classes, nil
}

func (repo *rosterRepository) UpdateClass(ctx context.Context, c roster.Class) (roster.Class, error) {
	repo.db.class.Lock()
	defer repo.db.class.Unlock()

	if _, ok := repo.db.class.table[c.ID]; !ok {
		return roster.Class{}, roster.ErrClassNotFound
	}
	repo.db.class.table[c.ID] = &c
	return c, nil
}

func (repo *rosterRepository) DeleteClassByID(ctx context.Context, id string) error {
	repo.db.class.Lock()
	defer repo.db.class.Unlock()
	delete(repo.db.class.table, id)
	return nil
}

func (repo *rosterRepository) CheckClassUniqueness(ctx context.Context, name string, year int, excluded ...roster.Class) error {
	repo.db.class.RLock()
	defer repo.db.class.RUnlock()

	for _, c := range repo.db.class.table {
		if c.Name != name || c.Year != year {
			continue
		}
		if classExcluded(*c, excluded) {
			continue
		}
		return roster.ErrClassExists
	}
	return nil
}

// Subjects

func (repo *rosterRepository) CreateSubject(ctx context.Context, s roster.Subject) (roster.Subject, error) {
	repo.db.subject.Lock()
	defer repo.db.subject.Unlock()

	s.ID = uuid.New().String()
	repo.db.subject.table[s.ID] = &s
	return s, nil
}

func (repo *rosterRepository) GetSubjectByID(ctx context.Context, id string) (roster.Subject, error) {
	repo.db.subject.RLock()
	defer repo.db.subject.RUnlock()

	if s, ok := repo.db.subject.table[id]; ok {
		return *s, nil
	}
	return roster.Subject{}, roster.ErrSubjectNotFound
}

func (repo *rosterRepository) QuerySubjects(ctx context.Context) ([]roster.Subject, error) {
	repo.db.subject.RLock()
	defer repo.db.subject.RUnlock()

	subjects := make([]roster.Subject, 0, len(repo.db.subject.table))
	for _, s := range repo.db.subject.table {
		subjects = append(subjects, *s)
	}
	return subjects, nil
}

func (repo *rosterRepository) UpdateSubject(ctx context.Context, s roster.Subject) (roster.Subject, error) {
	repo.db.subject.Lock()
	defer repo.db.subject.Unlock()

	if _, ok := repo.db.subject.table[s.ID]; !ok {
		return roster.Subject{}, roster.ErrSubjectNotFound
	}
	repo.db.subject.table[s.ID] = &s
	return s, nil
}

func (repo *rosterRepository) DeleteSubjectByID(ctx context.Context, id string) error {
	repo.db.subject.Lock()
	defer repo.db.subject.Unlock()
	delete(repo.db.subject.table, id)
	return nil
}

func (repo *rosterRepository) CheckSubjectUniqueness(ctx context.Context, code string, excluded ...roster.Subject) error {
	repo.db.subject.RLock()
	defer repo.db.subject.RUnlock()

	for _, s := range repo.db.subject.table {
		if s.Code != code {
			continue
		}
		if subjectExcluded(*s, excluded) {
			continue
		}
		return roster.ErrSubjectExists
	}
	return nil
}

func classExcluded(c roster.Class, excluded []roster.Class) bool {
	for _, e := range excluded {
		if e.ID == c.ID {
			return true
		}
	}
	return false
}

func subjectExcluded(s roster.Subject, excluded []roster.Subject) bool {
	for _, e := range excluded {
		if e.ID == s.ID {
			return true
		}
	}
	return false
}
