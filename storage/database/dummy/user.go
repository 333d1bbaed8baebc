package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/roster"
	"github.com/trezcool/mahudhurio/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.user.table))
	for _, u := range repo.db.user.table {
		users = append(users, *u)
	}
	return users
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	repo.db.user.RLock()
	defer repo.db.user.RUnlock()

	exclUsrsLen := len(excludedUsers)
	if exclUsrsLen > 1 {
		sort.Slice(excludedUsers, func(i, j int) bool { return excludedUsers[i].ID < excludedUsers[j].ID })
	}

	for _, usr := range repo.query() {
		if isExcluded(usr, excludedUsers, exclUsrsLen) {
			continue
		}
		if username != "" && usr.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.user.Lock()
	usr.ID = uuid.New().String()
	stored := usr
	stored.TeacherID = "" // derived from the teacher link on reads
	repo.db.user.table[usr.ID] = &stored
	repo.db.user.Unlock()

	if err := repo.linkTeacherProfile(usr.ID, usr.TeacherID); err != nil {
		return user.User{}, err
	}
	return repo.resolveTeacher(stored), nil
}

// linkTeacherProfile points the teacher profile at the account, mirroring the
// SQL repository: User.TeacherID is never stored, only derived from the link.
func (repo *userRepository) linkTeacherProfile(userID, teacherID string) error {
	if teacherID == "" {
		return nil
	}
	repo.db.teacher.Lock()
	defer repo.db.teacher.Unlock()

	t, ok := repo.db.teacher.table[teacherID]
	if !ok {
		return roster.ErrTeacherNotFound
	}
	t.UserID = userID
	return nil
}

// resolveTeacher mirrors the SQL repository's eager join: teacher users get
// their linked teacher profile id attached.
func (repo *userRepository) resolveTeacher(usr user.User) user.User {
	if !usr.IsTeacher() || usr.TeacherID != "" {
		return usr
	}
	repo.db.teacher.RLock()
	defer repo.db.teacher.RUnlock()
	for _, t := range repo.db.teacher.table {
		if t.UserID == usr.ID {
			usr.TeacherID = t.ID
			break
		}
	}
	return usr
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	repo.db.user.RLock()
	usr, ok := repo.db.user.table[id]
	repo.db.user.RUnlock()

	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return repo.resolveTeacher(*usr), nil
}

func (repo *userRepository) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	repo.db.user.RLock()
	defer repo.db.user.RUnlock()

	for _, usr := range repo.query() {
		if usr.Username == username {
			return repo.resolveTeacher(usr), nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	repo.db.user.RLock()
	defer repo.db.user.RUnlock()

	for _, usr := range repo.query() {
		if usr.Email == email {
			return repo.resolveTeacher(usr), nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	repo.db.user.RLock()
	var found *user.User
	for _, usr := range repo.query() {
		if usr.Username == username || usr.Email == username {
			u := usr
			found = &u
			break
		}
	}
	repo.db.user.RUnlock()

	if found == nil {
		return user.User{}, user.ErrNotFound
	}
	return repo.resolveTeacher(*found), nil
}

func (repo *userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	repo.db.user.RLock()
	defer repo.db.user.RUnlock()

	users := repo.query()

	// users with search keyword matching any Name, Username or Email ?
	if filter.Search != "" {
		var filtered []user.User
		kw := strings.ToLower(filter.Search)
		for _, u := range users {
			if strings.Contains(strings.ToLower(u.Username), kw) ||
				strings.Contains(strings.ToLower(u.Email), kw) ||
				strings.Contains(strings.ToLower(u.Name), kw) {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}
	if users != nil && len(filter.Roles) > 0 {
		var filtered []user.User
		for _, u := range users {
			for _, r := range filter.Roles {
				if u.Role == r {
					filtered = append(filtered, u)
					break
				}
			}
		}
		users = filtered
	}
	if users != nil && filter.IsActive != nil {
		var filtered []user.User
		for _, u := range users {
			if u.Active() == *filter.IsActive {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}
	if users != nil && !filter.CreatedFrom.IsZero() {
		var filtered []user.User
		timeUTC := filter.CreatedFrom.UTC()
		for _, u := range users {
			if u.CreatedAt.Equal(timeUTC) || u.CreatedAt.After(timeUTC) {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}
	if users != nil && !filter.CreatedTo.IsZero() {
		var filtered []user.User
		timeUTC := filter.CreatedTo.UTC()
		for _, u := range users {
			if u.CreatedAt.Before(timeUTC) || u.CreatedAt.Equal(timeUTC) {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}

	for i, u := range users {
		users[i] = repo.resolveTeacher(u)
	}
	sortUsers(users, ordering)
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	repo.db.user.Lock()
	defer repo.db.user.Unlock()

	// only save set fields
	origUsr, ok := repo.db.user.table[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if usr.Name != "" {
		origUsr.Name = usr.Name
	}
	if usr.Username != "" {
		origUsr.Username = usr.Username
	}
	if usr.Email != "" {
		origUsr.Email = usr.Email
	}
	if usr.Role != "" {
		origUsr.Role = usr.Role
	}
	if usr.TeacherID != "" {
		if err := repo.linkTeacherProfile(origUsr.ID, usr.TeacherID); err != nil {
			return user.User{}, err
		}
	}
	if usr.PasswordHash != nil {
		origUsr.PasswordHash = usr.PasswordHash
	}
	if isActive != nil {
		origUsr.SetActive(*isActive)
	}
	if !usr.LastLogin.IsZero() {
		origUsr.LastLogin = usr.LastLogin
	}
	origUsr.UpdatedAt = usr.UpdatedAt
	return repo.resolveTeacher(*origUsr), nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	repo.db.user.Lock()
	defer repo.db.user.Unlock()
	for _, id := range ids {
		delete(repo.db.user.table, id)
	}
	return nil
}

func isExcluded(usr user.User, excludedUsers []user.User, n int) bool {
	if n <= 0 {
		return false
	}
	idx := sort.Search(n, func(i int) bool { return excludedUsers[i].ID >= usr.ID })
	return idx < n && excludedUsers[idx].ID == usr.ID
}

func sortUsers(users []user.User, ordering []core.DBOrdering) {
	for i := len(ordering) - 1; i >= 0; i-- {
		ord := ordering[i]
		sort.SliceStable(users, func(a, b int) bool {
			if !ord.Ascending {
				a, b = b, a
			}
			switch ord.Field {
			case "name":
				return users[a].Name < users[b].Name
			case "username":
				return users[a].Username < users[b].Username
			case "created_at":
				return users[a].CreatedAt.Before(users[b].CreatedAt)
			}
			return false
		})
	}
}
