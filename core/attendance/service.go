package attendance

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/user"
)

var errEmptyBatch = errors.New("attendance list is required")

type (
	Repository interface {
		// CreateRecord fails with ErrDuplicateRecord when the unique tuple
		// (student, class, subject, date, lesson) already exists.
		CreateRecord(ctx context.Context, rec Record) (Record, error)
		GetRecordByID(ctx context.Context, id string) (Record, error)
		GetRecordByKey(ctx context.Context, key Key) (Record, error)
		UpdateRecord(ctx context.Context, rec Record) (Record, error)
		DeleteRecordByID(ctx context.Context, id string) error
		// FilterRecords applies AND operation on available QueryFilter fields and
		// join-fetches the Student/Class/Subject display attributes.
		FilterRecords(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Record, error)
	}

	Service struct {
		repo   Repository
		policy writePolicy
		logger core.Logger

		// BulkReattribution mirrors core.Conf.Attendance.BulkReattribution;
		// exposed as a field so tests can flip it.
		BulkReattribution bool
	}
)

func NewService(repo Repository, registry Registry, logger core.Logger) *Service {
	return &Service{
		repo:              repo,
		policy:            writePolicy{registry: registry},
		logger:            logger,
		BulkReattribution: core.Conf.Attendance.BulkReattribution,
	}
}

// Upsert records an attendance fact, creating it on first write for the tuple
// and updating it in place on subsequent writes. Calling it twice with the
// same inputs leaves the same stored state; it never reports "already exists".
func (svc *Service) Upsert(ctx context.Context, w WriteRecord, actor user.User) (Record, error) {
	// authorization comes first so denied writers learn nothing about
	// payload validity
	teacherID, err := svc.policy.authorize(ctx, actor, w.ClassID, w.SubjectID, w.TeacherID)
	if err != nil {
		return Record{}, err
	}
	if err := w.Validate(); err != nil {
		return Record{}, err
	}
	return svc.apply(ctx, w, teacherID, true /* reattribute */, 1)
}

// apply performs the create-or-update for a normalized write. A concurrent
// writer can slip a create in between our key lookup and insert; the unique
// tuple index turns that into ErrDuplicateRecord and we retry as an update.
func (svc *Service) apply(ctx context.Context, w WriteRecord, teacherID string, reattribute bool, attempts int) (Record, error) {
	w.normalize()
	now := time.Now().UTC()

	rec, err := svc.repo.GetRecordByKey(ctx, w.key())
	switch errors.Cause(err) {
	case nil:
		rec.Status = w.Status
		rec.Justification = w.Justification
		if reattribute {
			rec.TeacherID = teacherID
		}
		rec.UpdatedAt = now
		return svc.repo.UpdateRecord(ctx, rec)
	case ErrNotFound:
		rec = Record{
			StudentID:     w.StudentID,
			ClassID:       w.ClassID,
			SubjectID:     w.SubjectID,
			TeacherID:     teacherID,
			Date:          w.Date,
			Lesson:        w.Lesson,
			Status:        w.Status,
			Justification: w.Justification,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		created, err := svc.repo.CreateRecord(ctx, rec)
		if errors.Cause(err) == ErrDuplicateRecord && attempts > 0 {
			return svc.apply(ctx, w, teacherID, reattribute, attempts-1)
		}
		return created, err
	default:
		return Record{}, errors.Wrap(err, "finding record by tuple")
	}
}

// UpdateByID amends the status/justification of an existing record. Teachers
// may only amend their own prior entries; admins may amend any.
func (svc *Service) UpdateByID(ctx context.Context, id string, u UpdateRecord, actor user.User) (Record, error) {
	if err := u.Validate(); err != nil {
		return Record{}, err
	}
	rec, err := svc.repo.GetRecordByID(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if err := canAmend(actor, rec); err != nil {
		return Record{}, err
	}
	rec.Status = u.Status
	rec.Justification = u.Justification
	rec.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateRecord(ctx, rec)
}

// DeleteByID hard-deletes a record, releasing its tuple for reuse. Admin only.
func (svc *Service) DeleteByID(ctx context.Context, id string, actor user.User) error {
	if !actor.IsAdmin() {
		return ErrNotPermitted
	}
	return svc.repo.DeleteRecordByID(ctx, id)
}

// Query lists records matching the filter, newest date first, ties broken by
// newest creation time. Callers are expected to filter by class+date for
// bounded result sets.
func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Record, error) {
	return svc.repo.FilterRecords(ctx, filter, []core.DBOrdering{
		{Field: "date"},
		{Field: "created_at"},
	})
}

// ApplyBatch applies a list of attendance entries with at-least-effort
// semantics: malformed entries and entries failing the teacher's assignment
// check are skipped and logged, never fatal; every other entry goes through
// the same upsert logic as single writes. One entry's failure never aborts or
// rolls back prior entries.
func (svc *Service) ApplyBatch(ctx context.Context, entries []WriteRecord, actor user.User) (BatchResult, error) {
	if len(entries) == 0 {
		return BatchResult{}, core.NewValidationError(errEmptyBatch)
	}

	// resolve the acting role once; a principal that can never write fails the
	// whole call, matching the single-record path
	switch {
	case actor.IsTeacher():
		if actor.TeacherID == "" {
			return BatchResult{}, ErrTeacherProfileMissing
		}
	case actor.IsAdmin():
	default:
		return BatchResult{}, ErrNotPermitted
	}

	res := BatchResult{Records: make([]Record, 0, len(entries))}
	for i, entry := range entries {
		if err := entry.Validate(); err != nil {
			svc.logger.Warn("attendance batch: skipping malformed entry", map[string]interface{}{"index": i, "error": err.Error()})
			continue
		}
		teacherID, err := svc.policy.authorize(ctx, actor, entry.ClassID, entry.SubjectID, entry.TeacherID)
		if err != nil {
			if errors.Cause(err) == ErrNotPermitted {
				svc.logger.Warn("attendance batch: skipping unauthorized entry", map[string]interface{}{"index": i, "class_id": entry.ClassID, "subject_id": entry.SubjectID})
				continue
			}
			return res, err
		}
		rec, err := svc.apply(ctx, entry, teacherID, svc.BulkReattribution, 1)
		if err != nil {
			return res, errors.Wrapf(err, "applying batch entry %d", i)
		}
		res.Applied++
		res.Records = append(res.Records, rec)
	}
	return res, nil
}
