package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/roster"
)

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

type recordRow struct {
	ID            string      `db:"id"`
	StudentID     string      `db:"student_id"`
	ClassID       string      `db:"class_id"`
	SubjectID     string      `db:"subject_id"`
	TeacherID     null.String `db:"teacher_id"`
	Date          time.Time   `db:"date"`
	Lesson        int         `db:"lesson"`
	Status        string      `db:"status"`
	Justification null.String `db:"justification"`
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`

	StudentName null.String `db:"student_name"`
	ClassName   null.String `db:"class_name"`
	ClassGrade  null.String `db:"class_grade"`
	SubjectName null.String `db:"subject_name"`
	SubjectCode null.String `db:"subject_code"`
}

func (r recordRow) record() attendance.Record {
	rec := attendance.Record{
		ID:            r.ID,
		StudentID:     r.StudentID,
		ClassID:       r.ClassID,
		SubjectID:     r.SubjectID,
		TeacherID:     r.TeacherID.String,
		Date:          core.DateOf(r.Date),
		Lesson:        r.Lesson,
		Status:        r.Status,
		Justification: r.Justification.String,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.StudentName.Valid {
		rec.Student = &roster.StudentInfo{ID: r.StudentID, FullName: r.StudentName.String}
	}
	if r.ClassName.Valid {
		rec.Class = &roster.ClassInfo{ID: r.ClassID, Name: r.ClassName.String, Grade: r.ClassGrade.String}
	}
	if r.SubjectName.Valid {
		rec.Subject = &roster.SubjectInfo{ID: r.SubjectID, Name: r.SubjectName.String, Code: r.SubjectCode.String}
	}
	return rec
}

func rowFromRecord(rec attendance.Record) recordRow {
	return recordRow{
		ID:            rec.ID,
		StudentID:     rec.StudentID,
		ClassID:       rec.ClassID,
		SubjectID:     rec.SubjectID,
		TeacherID:     null.NewString(rec.TeacherID, rec.TeacherID != ""),
		Date:          rec.Date.Time,
		Lesson:        rec.Lesson,
		Status:        rec.Status,
		Justification: null.NewString(rec.Justification, rec.Justification != ""),
		CreatedAt:     rec.CreatedAt.UTC(),
		UpdatedAt:     rec.UpdatedAt.UTC(),
	}
}

// recordSelect join-fetches the display attributes embedded in responses.
const recordSelect = `
SELECT a.id, a.student_id, a.class_id, a.subject_id, a.teacher_id, a.date,
       a.lesson, a.status, a.justification, a.created_at, a.updated_at,
       st.full_name AS student_name,
       c.name AS class_name, c.grade AS class_grade,
       su.name AS subject_name, su.code AS subject_code
FROM attendances a
LEFT JOIN students st ON st.id = a.student_id
LEFT JOIN classes c ON c.id = a.class_id
LEFT JOIN subjects su ON su.id = a.subject_id`

func (repo *attendanceRepository) CreateRecord(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	rec.ID = uuid.New().String()
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO attendances (id, student_id, class_id, subject_id, teacher_id, date, lesson, status, justification, created_at, updated_at)
		VALUES (:id, :student_id, :class_id, :subject_id, :teacher_id, :date, :lesson, :status, :justification, :created_at, :updated_at)`,
		rowFromRecord(rec))
	if err != nil {
		if isUniqueViolation(err, "attendances_tuple_key") {
			return attendance.Record{}, attendance.ErrDuplicateRecord
		}
		return attendance.Record{}, errors.Wrap(err, "inserting attendance record")
	}
	return repo.GetRecordByID(ctx, rec.ID)
}

func (repo *attendanceRepository) GetRecordByID(ctx context.Context, id string) (attendance.Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return attendance.Record{}, attendance.ErrNotFound
	}
	var row recordRow
	if err := repo.db.GetContext(ctx, &row, recordSelect+` WHERE a.id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return attendance.Record{}, attendance.ErrNotFound
		}
		return attendance.Record{}, errors.Wrap(err, "finding attendance record by id")
	}
	return row.record(), nil
}

func (repo *attendanceRepository) GetRecordByKey(ctx context.Context, key attendance.Key) (attendance.Record, error) {
	var row recordRow
	err := repo.db.GetContext(ctx, &row, recordSelect+`
		WHERE a.student_id = $1 AND a.class_id = $2 AND a.subject_id = $3 AND a.date = $4 AND a.lesson = $5`,
		key.StudentID, key.ClassID, key.SubjectID, key.Date.Time, key.Lesson)
	if err != nil {
		if err == sql.ErrNoRows {
			return attendance.Record{}, attendance.ErrNotFound
		}
		return attendance.Record{}, errors.Wrap(err, "finding attendance record by tuple")
	}
	return row.record(), nil
}

func (repo *attendanceRepository) UpdateRecord(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE attendances
		SET teacher_id = :teacher_id, status = :status, justification = :justification, updated_at = :updated_at
		WHERE id = :id`,
		rowFromRecord(rec))
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "updating attendance record")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return attendance.Record{}, attendance.ErrNotFound
	}
	return repo.GetRecordByID(ctx, rec.ID)
}

func (repo *attendanceRepository) DeleteRecordByID(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM attendances WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting attendance record")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return attendance.ErrNotFound
	}
	return nil
}

func (repo *attendanceRepository) FilterRecords(ctx context.Context, filter attendance.QueryFilter, ordering []core.DBOrdering) ([]attendance.Record, error) {
	query := recordSelect
	var conds []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return "?"
	}
	if filter.ClassID != "" {
		conds = append(conds, "a.class_id = "+arg(filter.ClassID))
	}
	if filter.SubjectID != "" {
		conds = append(conds, "a.subject_id = "+arg(filter.SubjectID))
	}
	if filter.StudentID != "" {
		conds = append(conds, "a.student_id = "+arg(filter.StudentID))
	}
	if filter.Lesson != 0 {
		conds = append(conds, "a.lesson = "+arg(filter.Lesson))
	}
	if !filter.Date.IsZero() {
		conds = append(conds, "a.date = "+arg(filter.Date.Time))
	}
	if !filter.DateFrom.IsZero() {
		conds = append(conds, "a.date >= "+arg(filter.DateFrom.Time))
	}
	if !filter.DateTo.IsZero() {
		conds = append(conds, "a.date <= "+arg(filter.DateTo.Time))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	// qualify ordering columns; they all live on the attendances table
	quals := make([]core.DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		quals = append(quals, core.DBOrdering{Field: "a." + ord.Field, Ascending: ord.Ascending})
	}
	query += orderBy(quals)

	var rows []recordRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying attendance records")
	}
	records := make([]attendance.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.record())
	}
	return records, nil
}
