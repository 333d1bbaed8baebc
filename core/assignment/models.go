package assignment

import (
	"time"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/roster"
)

// Assignment links a teacher to a (class, subject) pair. Its existence is the
// sole authorization fact for that teacher's attendance writes on the pair.
// Assignments are only ever created or removed, never mutated.
type Assignment struct {
	ID        string    `json:"id"`
	TeacherID string    `json:"teacher_id"`
	ClassID   string    `json:"class_id"`
	SubjectID string    `json:"subject_id"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// TeacherAssignment is the discovery shape returned to teachers: the pairs
// they may record attendance for.
type TeacherAssignment struct {
	Class   roster.ClassInfo   `json:"class"`
	Subject roster.SubjectInfo `json:"subject"`
}

// NewAssignment contains information needed to link a teacher to a class/subject.
type NewAssignment struct {
	TeacherID string `json:"teacher_id" validate:"required,uuid4"`
	ClassID   string `json:"class_id" validate:"required,uuid4"`
	SubjectID string `json:"subject_id" validate:"required,uuid4"`
}

func (na NewAssignment) Validate() error { return core.Validate.Struct(na) }
