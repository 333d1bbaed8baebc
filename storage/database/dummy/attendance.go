package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) CreateRecord(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	repo.db.attendance.Lock()
	defer repo.db.attendance.Unlock()

	key := rec.Key()
	for _, existing := range repo.db.attendance.table {
		if existing.Key() == key {
			return attendance.Record{}, attendance.ErrDuplicateRecord
		}
	}
	rec.ID = uuid.New().String()
	stored := rec
	repo.db.attendance.table[rec.ID] = &stored
	return repo.decorate(rec), nil
}

func (repo *attendanceRepository) GetRecordByID(ctx context.Context, id string) (attendance.Record, error) {
	repo.db.attendance.RLock()
	rec, ok := repo.db.attendance.table[id]
	repo.db.attendance.RUnlock()

	if !ok {
		return attendance.Record{}, attendance.ErrNotFound
	}
	return repo.decorate(*rec), nil
}

func (repo *attendanceRepository) GetRecordByKey(ctx context.Context, key attendance.Key) (attendance.Record, error) {
	repo.db.attendance.RLock()
	var found *attendance.Record
	for _, rec := range repo.db.attendance.table {
		if rec.Key() == key {
			r := *rec
			found = &r
			break
		}
	}
	repo.db.attendance.RUnlock()

	if found == nil {
		return attendance.Record{}, attendance.ErrNotFound
	}
	return repo.decorate(*found), nil
}

func (repo *attendanceRepository) UpdateRecord(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	repo.db.attendance.Lock()
	defer repo.db.attendance.Unlock()

	if _, ok := repo.db.attendance.table[rec.ID]; !ok {
		return attendance.Record{}, attendance.ErrNotFound
	}
	stored := rec
	stored.Student, stored.Class, stored.Subject = nil, nil, nil
	repo.db.attendance.table[rec.ID] = &stored
	return repo.decorate(rec), nil
}

func (repo *attendanceRepository) DeleteRecordByID(ctx context.Context, id string) error {
	repo.db.attendance.Lock()
	defer repo.db.attendance.Unlock()

	if _, ok := repo.db.attendance.table[id]; !ok {
		return attendance.ErrNotFound
	}
	delete(repo.db.attendance.table, id)
	return nil
}

func (repo *attendanceRepository) FilterRecords(ctx context.Context, filter attendance.QueryFilter, ordering []core.DBOrdering) ([]attendance.Record, error) {
	repo.db.attendance.RLock()
	records := make([]attendance.Record, 0, len(repo.db.attendance.table))
	for _, rec := range repo.db.attendance.table {
		if filter.Match(*rec) {
			records = append(records, *rec)
		}
	}
	repo.db.attendance.RUnlock()

	for i := range records {
		records[i] = repo.decorate(records[i])
	}
	sortRecords(records, ordering)
	return records, nil
}

// decorate attaches the display attributes a SQL repository would join-fetch.
func (repo *attendanceRepository) decorate(rec attendance.Record) attendance.Record {
	repo.db.student.RLock()
	if s, ok := repo.db.student.table[rec.StudentID]; ok {
		info := s.Info()
		rec.Student = &info
	}
	repo.db.student.RUnlock()

	repo.db.class.RLock()
	if c, ok := repo.db.class.table[rec.ClassID]; ok {
		info := c.Info()
		rec.Class = &info
	}
	repo.db.class.RUnlock()

	repo.db.subject.RLock()
	if s, ok := repo.db.subject.table[rec.SubjectID]; ok {
		info := s.Info()
		rec.Subject = &info
	}
	repo.db.subject.RUnlock()
	return rec
}

func sortRecords(records []attendance.Record, ordering []core.DBOrdering) {
	for i := len(ordering) - 1; i >= 0; i-- {
		ord := ordering[i]
		sort.SliceStable(records, func(a, b int) bool {
			if !ord.Ascending {
				a, b = b, a
			}
			switch ord.Field {
			case "date":
				return records[a].Date.Before(records[b].Date.Time)
			case "created_at":
				return records[a].CreatedAt.Before(records[b].CreatedAt)
			}
			return false
		})
	}
}
