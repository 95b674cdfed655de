package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/educator/core"
	"github.com/trezcool/educator/core/user"
)

const userColumns = "id, username, email, phone_number, role, status, password_hash, created_at, updated_at, last_login"

var userOrdering = map[string]string{
	"username":   "username",
	"email":      "email",
	"role":       "role",
	"created_at": "created_at",
	"last_login": "last_login",
}

type userRow struct {
	ID           string      `db:"id"`
	Username     string      `db:"username"`
	Email        string      `db:"email"`
	PhoneNumber  null.String `db:"phone_number"`
	Role         string      `db:"role"`
	Status       string      `db:"status"`
	PasswordHash string      `db:"password_hash"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

func newUserRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Username:     usr.Username,
		Email:        usr.Email,
		PhoneNumber:  null.NewString(usr.PhoneNumber, usr.PhoneNumber != ""),
		Role:         usr.Role,
		Status:       usr.Status,
		PasswordHash: string(usr.PasswordHash),
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (r userRow) user() user.User {
	return user.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PhoneNumber:  r.PhoneNumber.String,
		Role:         r.Role,
		Status:       r.Status,
		PasswordHash: []byte(r.PasswordHash),
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    r.LastLogin.Time.UTC(),
	}
}

type userRepository struct {
	repository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{repository{exec: exec}}
}

func (repo userRepository) CheckUniqueness(ctx context.Context, username, email, phone string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	q := "SELECT username, email, phone_number FROM users WHERE (username = ? OR email = ? OR phone_number = ?)"
	args := []interface{}{username, email, null.NewString(phone, phone != "")}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		q += " AND id NOT IN (?)"
		args = append(args, ids)
	}

	q, args, err := in(exe, q, args...)
	if err != nil {
		return err
	}
	var rows []userRow
	if err = sqlx.SelectContext(ctx, exe, &rows, q, args...); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, r := range rows {
		switch {
		case r.Username == username:
			return user.ErrUsernameExists
		case r.Email == email:
			return user.ErrEmailExists
		case phone != "" && r.PhoneNumber.String == phone:
			return user.ErrPhoneExists
		}
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.ID = uuid.New().String()
	q := `INSERT INTO users (` + userColumns + `)
		VALUES (:id, :username, :email, :phone_number, :role, :status, :password_hash, :created_at, :updated_at, :last_login)`
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, newUserRow(usr)); err != nil {
		return user.User{}, trapErr(err, nil, user.ErrUserExists, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	exe := repo.getExec(exec)
	var (
		where []string
		args  []interface{}
	)
	if filter != nil {
		// users with Username or Email matching the search keyword
		if filter.Search != "" {
			val := likePattern(filter.Search)
			where = append(where, "(LOWER(username) LIKE ? OR LOWER(email) LIKE ?)")
			args = append(args, val, val)
		}
		if len(filter.Roles) > 0 {
			where = append(where, "role IN (?)")
			args = append(args, filter.Roles)
		}
		if len(filter.Statuses) > 0 {
			where = append(where, "status IN (?)")
			args = append(args, filter.Statuses)
		}
	}

	q := "SELECT " + userColumns + " FROM users"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += orderBy(ordering, userOrdering, "created_at DESC")

	q, args, err := in(exe, q, args...)
	if err != nil {
		return nil, err
	}
	var rows []userRow
	if err = sqlx.SelectContext(ctx, exe, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.user())
	}
	return users, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	exe := repo.getExec(exec)
	var (
		q   = "SELECT " + userColumns + " FROM users WHERE "
		arg []interface{}
	)
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		q += "id = ?"
		arg = []interface{}{filter.ID}
	case filter.UsernameOrEmail != "":
		q += "(username = ? OR email = ?)"
		arg = []interface{}{filter.UsernameOrEmail, filter.UsernameOrEmail}
	default:
		return user.User{}, user.ErrNotFound
	}

	var r userRow
	if err := sqlx.GetContext(ctx, exe, &r, exe.Rebind(q), arg...); err != nil {
		return user.User{}, trapErr(err, user.ErrNotFound, nil, "finding user")
	}
	return r.user(), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	q := `UPDATE users SET username = :username, email = :email, phone_number = :phone_number, role = :role,
		status = :status, password_hash = :password_hash, updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, newUserRow(usr))
	if err != nil {
		return user.User{}, trapErr(err, nil, user.ErrUserExists, "updating user")
	}
	if err = checkAffected(res, user.ErrNotFound, "updating user"); err != nil {
		return user.User{}, err
	}
	return usr, nil
}
