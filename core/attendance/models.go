package attendance

import (
	"time"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/roster"
)

// Statuses
const (
	StatusPresent   = "present"
	StatusAbsent    = "absent"
	StatusLate      = "late"
	StatusJustified = "justified"
)

var AllStatuses = []string{StatusPresent, StatusAbsent, StatusLate, StatusJustified}

// Key is the unique attendance tuple: one fact per student per class/subject
// per date per lesson slot.
type Key struct {
	StudentID string
	ClassID   string
	SubjectID string
	Date      core.Date
	Lesson    int
}

type Record struct {
	ID        string `json:"id"`
	StudentID string `json:"student_id"`
	ClassID   string `json:"class_id"`
	SubjectID string `json:"subject_id"`
	// TeacherID records who wrote the fact; empty for admin writes with no
	// explicit attribution.
	TeacherID     string    `json:"teacher_id,omitempty"`
	Date          core.Date `json:"date"`
	Lesson        int       `json:"lesson"`
	Status        string    `json:"status"`
	Justification string    `json:"justification,omitempty"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC

	// display attributes, join-fetched by the repository
	Student *roster.StudentInfo `json:"student,omitempty"`
	Class   *roster.ClassInfo   `json:"class,omitempty"`
	Subject *roster.SubjectInfo `json:"subject,omitempty"`
}

func (r Record) Key() Key {
	return Key{
		StudentID: r.StudentID,
		ClassID:   r.ClassID,
		SubjectID: r.SubjectID,
		Date:      r.Date,
		Lesson:    r.Lesson,
	}
}

// Present derives the boolean presentation of Status: a late student still
// attended; a justified absence is still an absence.
func (r Record) Present() bool {
	return r.Status == StatusPresent || r.Status == StatusLate
}

// WriteRecord contains information needed to upsert an attendance fact.
type WriteRecord struct {
	StudentID     string    `json:"student_id" validate:"required,uuid4"`
	ClassID       string    `json:"class_id" validate:"required,uuid4"`
	SubjectID     string    `json:"subject_id" validate:"required,uuid4"`
	Date          core.Date `json:"date" validate:"required"`
	Lesson        int       `json:"lesson" validate:"omitempty,min=1"`
	Status        string    `json:"status" validate:"required,attstatus"`
	Justification string    `json:"justification"`
	// TeacherID is an optional explicit attribution; only honored for admin
	// principals (recording on a teacher's behalf).
	TeacherID string `json:"teacher_id" validate:"omitempty,uuid4"`
}

func (w *WriteRecord) Validate() error {
	w.Justification = core.CleanString(w.Justification)
	return core.Validate.Struct(w)
}

// normalize applies write-path defaults. Lesson defaults to 1 here and nowhere
// else: every write path funnels through this before keying.
func (w *WriteRecord) normalize() {
	if w.Lesson == 0 {
		w.Lesson = 1
	}
}

func (w WriteRecord) key() Key {
	return Key{
		StudentID: w.StudentID,
		ClassID:   w.ClassID,
		SubjectID: w.SubjectID,
		Date:      w.Date,
		Lesson:    w.Lesson,
	}
}

// UpdateRecord defines what may be amended on an existing record by id.
type UpdateRecord struct {
	Status        string `json:"status" validate:"required,attstatus"`
	Justification string `json:"justification"`
}

func (u *UpdateRecord) Validate() error {
	u.Justification = core.CleanString(u.Justification)
	return core.Validate.Struct(u)
}

type QueryFilter struct {
	ClassID   string    `query:"class_id" json:"class_id,omitempty"`
	SubjectID string    `query:"subject_id" json:"subject_id,omitempty"`
	StudentID string    `query:"student_id" json:"student_id,omitempty"`
	Date      core.Date `query:"date" json:"date,omitempty"`
	DateFrom  core.Date `query:"date_from" json:"date_from,omitempty"`
	DateTo    core.Date `query:"date_to" json:"date_to,omitempty"`
	Lesson    int       `query:"lesson" json:"lesson,omitempty"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.ClassID == "" && qf.SubjectID == "" && qf.StudentID == "" &&
		qf.Date.IsZero() && qf.DateFrom.IsZero() && qf.DateTo.IsZero() && qf.Lesson == 0
}

// Match reports whether a record satisfies every set filter field.
func (qf QueryFilter) Match(r Record) bool {
	if qf.ClassID != "" && r.ClassID != qf.ClassID {
		return false
	}
	if qf.SubjectID != "" && r.SubjectID != qf.SubjectID {
		return false
	}
	if qf.StudentID != "" && r.StudentID != qf.StudentID {
		return false
	}
	if qf.Lesson != 0 && r.Lesson != qf.Lesson {
		return false
	}
	if !qf.Date.IsZero() && !r.Date.Equal(qf.Date.Time) {
		return false
	}
	if !qf.DateFrom.IsZero() && r.Date.Before(qf.DateFrom.Time) {
		return false
	}
	if !qf.DateTo.IsZero() && r.Date.After(qf.DateTo.Time) {
		return false
	}
	return true
}

// BatchResult reports how many entries a bulk write actually applied. Skipped
// entries (malformed or unauthorized) are logged, not reported; see ApplyBatch.
type BatchResult struct {
	Applied int      `json:"applied"`
	Records []Record `json:"records"`
}
