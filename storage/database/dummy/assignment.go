package dummydb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/mahudhurio/core/assignment"
)

type assignmentRepository struct {
	db *DB
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *DB) assignment.Repository {
	return &assignmentRepository{db: db}
}

func (repo *assignmentRepository) CreateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	repo.db.assignment.Lock()
	defer repo.db.assignment.Unlock()

	for _, existing := range repo.db.assignment.table {
		if existing.TeacherID == a.TeacherID && existing.ClassID == a.ClassID && existing.SubjectID == a.SubjectID {
			return assignment.Assignment{}, assignment.ErrAlreadyLinked
		}
	}
	a.ID = uuid.New().String()
	repo.db.assignment.table[a.ID] = &a
	return a, nil
}

func (repo *assignmentRepository) GetAssignment(ctx context.Context, teacherID, classID, subjectID string) (assignment.Assignment, error) {
	repo.db.assignment.RLock()
	defer repo.db.assignment.RUnlock()

	for _, a := range repo.db.assignment.table {
		if a.TeacherID == teacherID && a.ClassID == classID && a.SubjectID == subjectID {
			return *a, nil
		}
	}
	return assignment.Assignment{}, assignment.ErrNotFound
}

func (repo *assignmentRepository) DeleteAssignment(ctx context.Context, teacherID, classID, subjectID string) error {
	repo.db.assignment.Lock()
	defer repo.db.assignment.Unlock()

	for id, a := range repo.db.assignment.table {
		if a.TeacherID == teacherID && a.ClassID == classID && a.SubjectID == subjectID {
			delete(repo.db.assignment.table, id)
			return nil
		}
	}
	return assignment.ErrNotFound
}

func (repo *assignmentRepository) QueryAssignments(ctx context.Context) ([]assignment.Assignment, error) {
	repo.db.assignment.RLock()
	defer repo.db.assignment.RUnlock()

	assignments := make([]assignment.Assignment, 0, len(repo.db.assignment.table))
	for _, a := range repo.db.assignment.table {
		assignments = append(assignments, *a)
	}
	return assignments, nil
}

func (repo *assignmentRepository) QueryTeacherAssignments(ctx context.Context, teacherID string) ([]assignment.TeacherAssignment, error) {
	repo.db.assignment.RLock()
	pairs := make([]assignment.Assignment, 0)
	for _, a := range repo.db.assignment.table {
		if a.TeacherID == teacherID {
			pairs = append(pairs, *a)
		}
	}
	repo.db.assignment.RUnlock()

	res := make([]assignment.TeacherAssignment, 0, len(pairs))
	for _, a := range pairs {
		ta := assignment.TeacherAssignment{}
		repo.db.class.RLock()
		if c, ok := repo.db.class.table[a.ClassID]; ok {
			ta.Class = c.Info()
		}
		repo.db.class.RUnlock()
		repo.db.subject.RLock()
		if s, ok := repo.db.subject.table[a.SubjectID]; ok {
			ta.Subject = s.Info()
		}
		repo.db.subject.RUnlock()
		res = append(res, ta)
	}
	return res, nil
}
