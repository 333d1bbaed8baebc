package dummydb

import (
	"sync"

	"github.com/trezcool/mahudhurio/core/assignment"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/roster"
	"github.com/trezcool/mahudhurio/core/user"
)

// DB is an in-memory database used in tests and local prototyping. Tables are
// independent maps guarded by their own RWMutex.
type (
	DB struct {
		user       *userTable
		student    *studentTable
		teacher    *teacherTable
		class      *classTable
		subject    *subjectTable
		assignment *assignmentTable
		attendance *attendanceTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}
	studentTable struct {
		sync.RWMutex
		table map[string]*roster.Student
	}
	teacherTable struct {
		sync.RWMutex
		table map[string]*roster.Teacher
	}
	classTable struct {
		sync.RWMutex
		table map[string]*roster.Class
	}
	subjectTable struct {
		sync.RWMutex
		table map[string]*roster.Subject
	}
	assignmentTable struct {
		sync.RWMutex
		table map[string]*assignment.Assignment
	}
	attendanceTable struct {
		sync.RWMutex
		table map[string]*attendance.Record
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:       &userTable{table: make(map[string]*user.User)},
		student:    &studentTable{table: make(map[string]*roster.Student)},
		teacher:    &teacherTable{table: make(map[string]*roster.Teacher)},
		class:      &classTable{table: make(map[string]*roster.Class)},
		subject:    &subjectTable{table: make(map[string]*roster.Subject)},
		assignment: &assignmentTable{table: make(map[string]*assignment.Assignment)},
		attendance: &attendanceTable{table: make(map[string]*attendance.Record)},
	}
	return db, nil
}
