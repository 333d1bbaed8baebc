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
	"github.com/trezcool/mahudhurio/core/roster"
	"github.com/trezcool/mahudhurio/core/user"
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

type userRow struct {
	ID           string      `db:"id"`
	Name         string      `db:"name"`
	Username     null.String `db:"username"`
	Email        null.String `db:"email"`
	Role         string      `db:"role"`
	TeacherID    null.String `db:"teacher_id"`
	IsActive     null.Bool   `db:"is_active"`
	PasswordHash []byte      `db:"password_hash"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

func (r userRow) user() user.User {
	return user.User{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username.String,
		Email:        r.Email.String,
		Role:         r.Role,
		TeacherID:    r.TeacherID.String,
		IsActive:     r.IsActive.Ptr(),
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		LastLogin:    r.LastLogin.Time,
	}
}

func rowFromUser(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     null.NewString(usr.Username, usr.Username != ""),
		Email:        null.NewString(usr.Email, usr.Email != ""),
		Role:         usr.Role,
		IsActive:     null.BoolFromPtr(usr.IsActive),
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

// userSelect left-joins the teacher profile so teacher users carry their
// profile id without a second query.
const userSelect = `
SELECT u.id, u.name, u.username, u.email, u.role, u.is_active, u.password_hash,
       u.created_at, u.updated_at, u.last_login, t.id AS teacher_id
FROM users u
LEFT JOIN teachers t ON t.user_id = u.id`

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func trapUserNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	query := `SELECT COALESCE(username = ?, FALSE) AS uname_taken FROM users WHERE (username = ? OR email = ?)`
	args := []interface{}{username, username, email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		query += ` AND id NOT IN (?)`
		args = append(args, ids)
	}
	query += ` LIMIT 1`

	inQuery, inArgs, err := sqlx.In(query, args...)
	if err != nil {
		return errors.Wrap(err, "building uniqueness query")
	}

	var unameTaken bool
	if err := repo.db.GetContext(ctx, &unameTaken, repo.db.Rebind(inQuery), inArgs...); err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return errors.Wrap(err, "checking user uniqueness")
	}
	if unameTaken {
		return user.ErrUsernameExists
	}
	return user.ErrEmailExists
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	row := rowFromUser(usr)

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return user.User{}, errors.Wrap(err, "beginning user insert")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer tx.Rollback()

	if _, err = tx.NamedExecContext(ctx, `
		INSERT INTO users (id, name, username, email, role, is_active, password_hash, created_at, updated_at, last_login)
		VALUES (:id, :name, :username, :email, :role, :is_active, :password_hash, :created_at, :updated_at, :last_login)`,
		row); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	if err = linkTeacherProfile(ctx, tx, usr.ID, usr.TeacherID); err != nil {
		return user.User{}, err
	}
	if err = tx.Commit(); err != nil {
		return user.User{}, errors.Wrap(err, "committing user insert")
	}
	return repo.GetUserByID(ctx, usr.ID)
}

// linkTeacherProfile points the teacher profile's user_id at the account; the
// userSelect join derives User.TeacherID from that link on every read.
func linkTeacherProfile(ctx context.Context, tx *sqlx.Tx, userID, teacherID string) error {
	if teacherID == "" {
		return nil
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE teachers SET user_id = $1, updated_at = $2 WHERE id = $3`,
		userID, time.Now().UTC(), teacherID)
	if err != nil {
		return errors.Wrap(err, "linking teacher profile")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return roster.ErrTeacherNotFound
	}
	return nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}
	var row userRow
	if err := repo.db.GetContext(ctx, &row, userSelect+` WHERE u.id = $1`, id); err != nil {
		return user.User{}, trapUserNoRowsErr(err, "finding user by id")
	}
	return row.user(), nil
}

func (repo *userRepository) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	var row userRow
	if err := repo.db.GetContext(ctx, &row, userSelect+` WHERE u.username = $1`, username); err != nil {
		return user.User{}, trapUserNoRowsErr(err, "finding user by username")
	}
	return row.user(), nil
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var row userRow
	if err := repo.db.GetContext(ctx, &row, userSelect+` WHERE u.email = $1`, email); err != nil {
		return user.User{}, trapUserNoRowsErr(err, "finding user by email")
	}
	return row.user(), nil
}

func (repo *userRepository) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	var row userRow
	if err := repo.db.GetContext(ctx, &row, userSelect+` WHERE u.username = $1 OR u.email = $1`, username); err != nil {
		return user.User{}, trapUserNoRowsErr(err, "finding user")
	}
	return row.user(), nil
}

func (repo *userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	query := userSelect
	var conds []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return "?"
	}
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		conds = append(conds, "(u.name ILIKE "+arg(val)+" OR u.username ILIKE "+arg(val)+" OR u.email ILIKE "+arg(val)+")")
	}
	if len(filter.Roles) > 0 {
		placeholder := arg(filter.Roles)
		conds = append(conds, "u.role IN ("+placeholder+")")
	}
	if filter.IsActive != nil {
		conds = append(conds, "u.is_active = "+arg(*filter.IsActive))
	}
	if !filter.CreatedFrom.IsZero() {
		conds = append(conds, "u.created_at >= "+arg(filter.CreatedFrom.UTC()))
	}
	if !filter.CreatedTo.IsZero() {
		conds = append(conds, "u.created_at <= "+arg(filter.CreatedTo.UTC()))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += orderBy(ordering)

	inQuery, inArgs, err := sqlx.In(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "building users query")
	}

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(inQuery), inArgs...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.user())
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	// only save set fields
	sets := []string{"updated_at = :updated_at"}
	row := rowFromUser(usr)
	if usr.Name != "" {
		sets = append(sets, "name = :name")
	}
	if usr.Username != "" {
		sets = append(sets, "username = :username")
	}
	if usr.Email != "" {
		sets = append(sets, "email = :email")
	}
	if usr.Role != "" {
		sets = append(sets, "role = :role")
	}
	if usr.PasswordHash != nil {
		sets = append(sets, "password_hash = :password_hash")
	}
	if isActive != nil {
		row.IsActive = null.BoolFromPtr(isActive)
		sets = append(sets, "is_active = :is_active")
	}
	if !usr.LastLogin.IsZero() {
		sets = append(sets, "last_login = :last_login")
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return user.User{}, errors.Wrap(err, "beginning user update")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer tx.Rollback()

	res, err := tx.NamedExecContext(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = :id`, row)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	if err = linkTeacherProfile(ctx, tx, usr.ID, usr.TeacherID); err != nil {
		return user.User{}, err
	}
	if err = tx.Commit(); err != nil {
		return user.User{}, errors.Wrap(err, "committing user update")
	}
	return repo.GetUserByID(ctx, usr.ID)
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM users WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err := repo.db.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}
