package assignment

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	// errors
	ErrNotFound      = errors.New("assignment not found")
	ErrAlreadyLinked = errors.New("teacher is already linked to this class/subject")
)

type (
	Repository interface {
		// CreateAssignment fails with ErrAlreadyLinked when the exact
		// (teacher, class, subject) triple already exists.
		CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		GetAssignment(ctx context.Context, teacherID, classID, subjectID string) (Assignment, error)
		DeleteAssignment(ctx context.Context, teacherID, classID, subjectID string) error
		QueryAssignments(ctx context.Context) ([]Assignment, error)
		// QueryTeacherAssignments returns the class/subject pairs assigned to a
		// teacher, decorated with display attributes.
		QueryTeacherAssignments(ctx context.Context, teacherID string) ([]TeacherAssignment, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// IsAuthorized reports whether an assignment exists for the exact triple.
// It is the sole gate for teacher attendance writes; admins never consult it.
func (svc *Service) IsAuthorized(ctx context.Context, teacherID, classID, subjectID string) (bool, error) {
	if _, err := svc.repo.GetAssignment(ctx, teacherID, classID, subjectID); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return false, nil
		}
		return false, errors.Wrap(err, "finding assignment")
	}
	return true, nil
}

func (svc *Service) Create(ctx context.Context, na NewAssignment) (Assignment, error) {
	return svc.repo.CreateAssignment(ctx, Assignment{
		TeacherID: na.TeacherID,
		ClassID:   na.ClassID,
		SubjectID: na.SubjectID,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *Service) Delete(ctx context.Context, teacherID, classID, subjectID string) error {
	return svc.repo.DeleteAssignment(ctx, teacherID, classID, subjectID)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Assignment, error) {
	return svc.repo.QueryAssignments(ctx)
}

// ListForTeacher returns the class/subject pairs a teacher may act on;
// it drives the recording UI.
func (svc *Service) ListForTeacher(ctx context.Context, teacherID string) ([]TeacherAssignment, error) {
	return svc.repo.QueryTeacherAssignments(ctx, teacherID)
}
