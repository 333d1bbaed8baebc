package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core/assignment"
	"github.com/trezcool/mahudhurio/core/roster"
)

type assignmentRepository struct {
	db *sqlx.DB
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *sqlx.DB) *assignmentRepository {
	return &assignmentRepository{db: db}
}

type assignmentRow struct {
	ID        string    `db:"id"`
	TeacherID string    `db:"teacher_id"`
	ClassID   string    `db:"class_id"`
	SubjectID string    `db:"subject_id"`
	CreatedAt time.Time `db:"created_at"`
}

func (r assignmentRow) assignment() assignment.Assignment {
	return assignment.Assignment{
		ID:        r.ID,
		TeacherID: r.TeacherID,
		ClassID:   r.ClassID,
		SubjectID: r.SubjectID,
		CreatedAt: r.CreatedAt,
	}
}

func (repo *assignmentRepository) CreateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	a.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO teacher_class_subjects (id, teacher_id, class_id, subject_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		a.ID, a.TeacherID, a.ClassID, a.SubjectID, a.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err, "teacher_class_subjects_triple_key") {
			return assignment.Assignment{}, assignment.ErrAlreadyLinked
		}
		return assignment.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return a, nil
}

func (repo *assignmentRepository) GetAssignment(ctx context.Context, teacherID, classID, subjectID string) (assignment.Assignment, error) {
	var row assignmentRow
	err := repo.db.GetContext(ctx, &row, `
		SELECT * FROM teacher_class_subjects
		WHERE teacher_id = $1 AND class_id = $2 AND subject_id = $3`,
		teacherID, classID, subjectID)
	if err != nil {
		if err == sql.ErrNoRows {
			return assignment.Assignment{}, assignment.ErrNotFound
		}
		return assignment.Assignment{}, errors.Wrap(err, "finding assignment")
	}
	return row.assignment(), nil
}

func (repo *assignmentRepository) DeleteAssignment(ctx context.Context, teacherID, classID, subjectID string) error {
	res, err := repo.db.ExecContext(ctx, `
		DELETE FROM teacher_class_subjects
		WHERE teacher_id = $1 AND class_id = $2 AND subject_id = $3`,
		teacherID, classID, subjectID)
	if err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return assignment.ErrNotFound
	}
	return nil
}

func (repo *assignmentRepository) QueryAssignments(ctx context.Context) ([]assignment.Assignment, error) {
	var rows []assignmentRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM teacher_class_subjects ORDER BY created_at DESC`); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	assignments := make([]assignment.Assignment, 0, len(rows))
	for _, row := range rows {
		assignments = append(assignments, row.assignment())
	}
	return assignments, nil
}

func (repo *assignmentRepository) QueryTeacherAssignments(ctx context.Context, teacherID string) ([]assignment.TeacherAssignment, error) {
	var rows []struct {
		ClassID     string `db:"class_id"`
		ClassName   string `db:"class_name"`
		ClassGrade  string `db:"class_grade"`
		SubjectID   string `db:"subject_id"`
		SubjectName string `db:"subject_name"`
		SubjectCode string `db:"subject_code"`
	}
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT c.id AS class_id, c.name AS class_name, c.grade AS class_grade,
		       s.id AS subject_id, s.name AS subject_name, s.code AS subject_code
		FROM teacher_class_subjects tcs
		JOIN classes c ON c.id = tcs.class_id
		JOIN subjects s ON s.id = tcs.subject_id
		WHERE tcs.teacher_id = $1
		ORDER BY c.name ASC, s.name ASC`,
		teacherID)
	if err != nil {
		return nil, errors.Wrap(err, "querying teacher assignments")
	}

	res := make([]assignment.TeacherAssignment, 0, len(rows))
	for _, row := range rows {
		res = append(res, assignment.TeacherAssignment{
			Class:   roster.ClassInfo{ID: row.ClassID, Name: row.ClassName, Grade: row.ClassGrade},
			Subject: roster.SubjectInfo{ID: row.SubjectID, Name: row.SubjectName, Code: row.SubjectCode},
		})
	}
	return res, nil
}
