package attendance

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("attendance record not found")
	// ErrNotPermitted is a policy denial: role, ownership or assignment check failed.
	ErrNotPermitted = errors.New("not allowed to manage attendance for this class/subject")
	// ErrTeacherProfileMissing signals a data-setup problem: a teacher-role user
	// with no linked teacher profile. Distinct from a policy denial on purpose.
	ErrTeacherProfileMissing = errors.New("no teacher profile linked to the logged in user")
	// ErrDuplicateRecord is returned by repositories when a create hits the
	// unique tuple index; the service retries it as an update.
	ErrDuplicateRecord = errors.New("attendance record already exists for this tuple")
)

// Registry is the assignment lookup consulted for teacher writes.
type Registry interface {
	IsAuthorized(ctx context.Context, teacherID, classID, subjectID string) (bool, error)
}

// writePolicy is the single authorization predicate for attendance writes.
// Given the acting principal and the (class, subject) resource context it
// either denies, or allows and resolves the teacher attribution to store:
//   - teacher: must have a linked teacher profile and an assignment for the
//     exact pair; attribution is always their own profile.
//   - admin: bypasses the registry; attribution is the optional explicit id
//     (recording on a teacher's behalf) or none.
//   - any other role: denied.
type writePolicy struct {
	registry Registry
}

func (p writePolicy) authorize(ctx context.Context, actor user.User, classID, subjectID, explicitTeacherID string) (string, error) {
	if !mayWrite(actor) {
		return "", ErrNotPermitted
	}
	if actor.IsAdmin() {
		return explicitTeacherID, nil
	}

	// teacher path
	if actor.TeacherID == "" {
		return "", ErrTeacherProfileMissing
	}
	ok, err := p.registry.IsAuthorized(ctx, actor.TeacherID, classID, subjectID)
	if err != nil {
		return "", errors.Wrap(err, "consulting assignment registry")
	}
	if !ok {
		return "", ErrNotPermitted
	}
	return actor.TeacherID, nil
}

// mayWrite checks membership in user.WriteRoles; everything past it assumes
// the actor is either an admin or a teacher.
func mayWrite(actor user.User) bool {
	for _, role := range user.WriteRoles {
		if actor.Role == role {
			return true
		}
	}
	return false
}

// canAmend applies the ownership rule for by-id updates: a teacher may only
// amend records they recorded; admins may amend any. This check is orthogonal
// to the assignment registry and does not re-verify it.
func canAmend(actor user.User, rec Record) error {
	switch {
	case actor.IsAdmin():
		return nil
	case actor.IsTeacher():
		if actor.TeacherID == "" {
			return ErrTeacherProfileMissing
		}
		if rec.TeacherID != actor.TeacherID {
			return ErrNotPermitted
		}
		return nil
	default:
		return ErrNotPermitted
	}
}
