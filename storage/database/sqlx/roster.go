package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/roster"
)

type rosterRepository struct {
	db *sqlx.DB
}

var _ roster.Repository = (*rosterRepository)(nil) // interface compliance check

func NewRosterRepository(db *sqlx.DB) *rosterRepository {
	return &rosterRepository{db: db}
}

func trapRosterNoRowsErr(err, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// Students

type studentRow struct {
	ID        string      `db:"id"`
	FullName  string      `db:"full_name"`
	Email     null.String `db:"email"`
	BirthDate null.Time   `db:"birth_date"`
	UserID    null.String `db:"user_id"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func (r studentRow) student() roster.Student {
	s := roster.Student{
		ID:        r.ID,
		FullName:  r.FullName,
		Email:     r.Email.String,
		UserID:    r.UserID.String,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.BirthDate.Valid {
		s.BirthDate = core.DateOf(r.BirthDate.Time)
	}
	return s
}

func rowFromStudent(s roster.Student) studentRow {
	return studentRow{
		ID:        s.ID,
		FullName:  s.FullName,
		Email:     null.NewString(s.Email, s.Email != ""),
		BirthDate: null.NewTime(s.BirthDate.Time, !s.BirthDate.IsZero()),
		UserID:    null.NewString(s.UserID, s.UserID != ""),
		CreatedAt: s.CreatedAt.UTC(),
		UpdatedAt: s.UpdatedAt.UTC(),
	}
}

func (repo *rosterRepository) CreateStudent(ctx context.Context, s roster.Student) (roster.Student, error) {
	s.ID = uuid.New().String()
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO students (id, full_name, email, birth_date, user_id, created_at, updated_at)
		VALUES (:id, :full_name, :email, :birth_date, :user_id, :created_at, :updated_at)`,
		rowFromStudent(s))
	if err != nil {
		return roster.Student{}, errors.Wrap(err, "inserting student")
	}
	return s, nil
}

func (repo *rosterRepository) GetStudentByID(ctx context.Context, id string) (roster.Student, error) {
	if _, err := uuid.Parse(id); err != nil {
		return roster.Student{}, roster.ErrStudentNotFound
	}
	var row studentRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM students WHERE id = $1`, id); err != nil {
		return roster.Student{}, trapRosterNoRowsErr(err, roster.ErrStudentNotFound, "finding student")
	}
	return row.student(), nil
}

func (repo *rosterRepository) QueryStudents(ctx context.Context) ([]roster.Student, error) {
	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM students ORDER BY full_name ASC`); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]roster.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.student())
	}
	return students, nil
}

func (repo *rosterRepository) UpdateStudent(ctx context.Context, s roster.Student) (roster.Student, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE students
		SET full_name = :full_name, email = :email, birth_date = :birth_date, user_id = :user_id, updated_at = :updated_at
		WHERE id = :id`,
		rowFromStudent(s))
	if err != nil {
		return roster.Student{}, errors.Wrap(err, "updating student")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return roster.Student{}, roster.ErrStudentNotFound
	}
	return s, nil
}

func (repo *rosterRepository) DeleteStudentByID(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return nil
}

// Teachers

type teacherRow struct {
	ID        string      `db:"id"`
	FullName  string      `db:"full_name"`
	Email     null.String `db:"email"`
	UserID    null.String `db:"user_id"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func (r teacherRow) teacher() roster.Teacher {
	return roster.Teacher{
		ID:        r.ID,
		FullName:  r.FullName,
		Email:     r.Email.String,
		UserID:    r.UserID.String,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func rowFromTeacher(t roster.Teacher) teacherRow {
	return teacherRow{
		ID:        t.ID,
		FullName:  t.FullName,
		Email:     null.NewString(t.Email, t.Email != ""),
		UserID:    null.NewString(t.UserID, t.UserID != ""),
		CreatedAt: t.CreatedAt.UTC(),
		UpdatedAt: t.UpdatedAt.UTC(),
	}
}

func (repo *rosterRepository) CreateTeacher(ctx context.Context, t roster.Teacher) (roster.Teacher, error) {
	t.ID = uuid.New().String()
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO teachers (id, full_name, email, user_id, created_at, updated_at)
		VALUES (:id, :full_name, :email, :user_id, :created_at, :updated_at)`,
		rowFromTeacher(t))
	if err != nil {
		return roster.Teacher{}, errors.Wrap(err, "inserting teacher")
	}
	return t, nil
}

func (repo *rosterRepository) GetTeacherByID(ctx context.Context, id string) (roster.Teacher, error) {
	if _, err := uuid.Parse(id); err != nil {
		return roster.Teacher{}, roster.ErrTeacherNotFound
	}
	var row teacherRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM teachers WHERE id = $1`, id); err != nil {
		return roster.Teacher{}, trapRosterNoRowsErr(err, roster.ErrTeacherNotFound, "finding teacher")
	}
	return row.teacher(), nil
}

func (repo *rosterRepository) GetTeacherByUserID(ctx context.Context, userID string) (roster.Teacher, error) {
	var row teacherRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM teachers WHERE user_id = $1`, userID); err != nil {
		return roster.Teacher{}, trapRosterNoRowsErr(err, roster.ErrTeacherNotFound, "finding teacher by user")
	}
	return row.teacher(), nil
}

func (repo *rosterRepository) QueryTeachers(ctx context.Context) ([]roster.Teacher, error) {
	var rows []teacherRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM teachers ORDER BY full_name ASC`); err != nil {
		return nil, errors.Wrap(err, "querying teachers")
	}
	teachers := make([]roster.Teacher, 0, len(rows))
	for _, row := range rows {
		teachers = append(teachers, row.teacher())
	}
	return teachers, nil
}

func (repo *rosterRepository) UpdateTeacher(ctx context.Context, t roster.Teacher) (roster.Teacher, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE teachers
		SET full_name = :full_name, email = :email, user_id = :user_id, updated_at = :updated_at
		WHERE id = :id`,
		rowFromTeacher(t))
	if err != nil {
		return roster.Teacher{}, errors.Wrap(err, "updating teacher")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return roster.Teacher{}, roster.ErrTeacherNotFound
	}
	return t, nil
}

func (repo *rosterRepository) DeleteTeacherByID(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM teachers WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting teacher")
	}
	return nil
}

// Classes

type classRow struct {
	ID        string      `db:"id"`
	Name      string      `db:"name"`
	Grade     string      `db:"grade"`
	Shift     null.String `db:"shift"`
	Year      int         `db:"year"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func (r classRow) class() roster.Class {
	return roster.Class{
		ID:        r.ID,
		Name:      r.Name,
		Grade:     r.Grade,
		Shift:     r.Shift.String,
		Year:      r.Year,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func rowFromClass(c roster.Class) classRow {
	return classRow{
		ID:        c.ID,
		Name:      c.Name,
		Grade:     c.Grade,
		Shift:     null.NewString(c.Shift, c.Shift != ""),
		Year:      c.Year,
		CreatedAt: c.CreatedAt.UTC(),
		UpdatedAt: c.UpdatedAt.UTC(),
	}
}

func (repo *rosterRepository) CreateClass(ctx context.Context, c roster.Class) (roster.Class, error) {
	c.ID = uuid.New().String()
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO classes (id, name, grade, shift, year, created_at, updated_at)
		VALUES (:id, :name, :grade, :shift, :year, :created_at, :updated_at)`,
		rowFromClass(c))
	if err != nil {
		if isUniqueViolation(err, "classes_name_year_key") {
			return roster.Class{}, roster.ErrClassExists
		}
		return roster.Class{}, errors.Wrap(err, "inserting class")
	}
	return c, nil
}

func (repo *rosterRepository) GetClassByID(ctx context.Context, id string) (roster.Class, error) {
	if _, err := uuid.Parse(id); err != nil {
		return roster.Class{}, roster.ErrClassNotFound
	}
	var row classRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM classes WHERE id = $1`, id); err != nil {
		return roster.Class{}, trapRosterNoRowsErr(err, roster.ErrClassNotFound, "finding class")
	}
	return row.class(), nil
}

func (repo *rosterRepository) QueryClasses(ctx context.Context) ([]roster.Class, error) {
	var rows []classRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM classes ORDER BY year DESC, name ASC`); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	classes := make([]roster.Class, 0, len(rows))
	for _, row := range rows {
		classes = append(classes, row.class())
	}
	return classes, nil
}

func (repo *rosterRepository) UpdateClass(ctx context.Context, c roster.Class) (roster.Class, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE classes
		SET name = :name, grade = :grade, shift = :shift, year = :year, updated_at = :updated_at
		WHERE id = :id`,
		rowFromClass(c))
	if err != nil {
		if isUniqueViolation(err, "classes_name_year_key") {
			return roster.Class{}, roster.ErrClassExists
		}
		return roster.Class{}, errors.Wrap(err, "updating class")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return roster.Class{}, roster.ErrClassNotFound
	}
	return c, nil
}

func (repo *rosterRepository) DeleteClassByID(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return nil
}

func (repo *rosterRepository) CheckClassUniqueness(ctx context.Context, name string, year int, excluded ...roster.Class) error {
	query := `SELECT EXISTS (SELECT 1 FROM classes WHERE name = ? AND year = ?`
	args := []interface{}{name, year}
	if len(excluded) > 0 {
		ids := make([]string, 0, len(excluded))
		for _, c := range excluded {
			ids = append(ids, c.ID)
		}
		query += ` AND id NOT IN (?)`
		args = append(args, ids)
	}
	query += `)`

	inQuery, inArgs, err := sqlx.In(query, args...)
	if err != nil {
		return errors.Wrap(err, "building class uniqueness query")
	}
	var exists bool
	if err := repo.db.GetContext(ctx, &exists, repo.db.Rebind(inQuery), inArgs...); err != nil {
		return errors.Wrap(err, "checking class uniqueness")
	}
	if exists {
		return roster.ErrClassExists
	}
	return nil
}

// Subjects

type subjectRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Code      string    `db:"code"`
	Workload  null.Int  `db:"workload"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r subjectRow) subject() roster.Subject {
	return roster.Subject{
		ID:        r.ID,
		Name:      r.Name,
		Code:      r.Code,
		Workload:  r.Workload.Int,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func rowFromSubject(s roster.Subject) subjectRow {
	return subjectRow{
		ID:        s.ID,
		Name:      s.Name,
		Code:      s.Code,
		Workload:  null.NewInt(s.Workload, s.Workload != 0),
		CreatedAt: s.CreatedAt.UTC(),
		UpdatedAt: s.UpdatedAt.UTC(),
	}
}

func (repo *rosterRepository) CreateSubject(ctx context.Context, s roster.Subject) (roster.Subject, error) {
	s.ID = uuid.New().String()
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO subjects (id, name, code, workload, created_at, updated_at)
		VALUES (:id, :name, :code, :workload, :created_at, :updated_at)`,
		rowFromSubject(s))
	if err != nil {
		if isUniqueViolation(err, "subjects_code_key") {
			return roster.Subject{}, roster.ErrSubjectExists
		}
		return roster.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return s, nil
}

func (repo *rosterRepository) GetSubjectByID(ctx context.Context, id string) (roster.Subject, error) {
	if _, err := uuid.Parse(id); err != nil {
		return roster.Subject{}, roster.ErrSubjectNotFound
	}
	var row subjectRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM subjects WHERE id = $1`, id); err != nil {
		return roster.Subject{}, trapRosterNoRowsErr(err, roster.ErrSubjectNotFound, "finding subject")
	}
	return row.subject(), nil
}

func (repo *rosterRepository) QuerySubjects(ctx context.Context) ([]roster.Subject, error) {
	var rows []subjectRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM subjects ORDER BY name ASC`); err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	subjects := make([]roster.Subject, 0, len(rows))
	for _, row := range rows {
		subjects = append(subjects, row.subject())
	}
	return subjects, nil
}

func (repo *rosterRepository) UpdateSubject(ctx context.Context, s roster.Subject) (roster.Subject, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE subjects
		SET name = :name, code = :code, workload = :workload, updated_at = :updated_at
		WHERE id = :id`,
		rowFromSubject(s))
	if err != nil {
		if isUniqueViolation(err, "subjects_code_key") {
			return roster.Subject{}, roster.ErrSubjectExists
		}
		return roster.Subject{}, errors.Wrap(err, "updating subject")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return roster.Subject{}, roster.ErrSubjectNotFound
	}
	return s, nil
}

func (repo *rosterRepository) DeleteSubjectByID(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	return nil
}

func (repo *rosterRepository) CheckSubjectUniqueness(ctx context.Context, code string, excluded ...roster.Subject) error {
	query := `SELECT EXISTS (SELECT 1 FROM subjects WHERE code = ?`
	args := []interface{}{code}
	if len(excluded) > 0 {
		ids := make([]string, 0, len(excluded))
		for _, s := range excluded {
			ids = append(ids, s.ID)
		}
		query += ` AND id NOT IN (?)`
		args = append(args, ids)
	}
	query += `)`

	inQuery, inArgs, err := sqlx.In(query, args...)
	if err != nil {
		return errors.Wrap(err, "building subject uniqueness query")
	}
	var exists bool
	if err := repo.db.GetContext(ctx, &exists, repo.db.Rebind(inQuery), inArgs...); err != nil {
		return errors.Wrap(err, "checking subject uniqueness")
	}
	if exists {
		return roster.ErrSubjectExists
	}
	return nil
}
