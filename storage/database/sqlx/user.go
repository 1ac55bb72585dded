package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sistemanotas/notas/core"
	"github.com/sistemanotas/notas/core/query"
	"github.com/sistemanotas/notas/core/user"
)

const userColumns = "u.id, u.name, u.email, u.password, u.role, u.code, u.created_at"

type userRow struct {
	ID        int         `db:"id"`
	Name      string      `db:"name"`
	Email     string      `db:"email"`
	Password  string      `db:"password"`
	Role      string      `db:"role"`
	Code      null.String `db:"code"`
	CreatedAt time.Time   `db:"created_at"`
}

func (r userRow) toUser() user.User {
	return user.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		Role:         user.Role(r.Role),
		Code:         r.Code,
		PasswordHash: []byte(r.Password),
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

func toUsers(rows []userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toUser())
	}
	return users
}

type userRepository struct {
	baseRepository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{baseRepository{exec: exec}}
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if err := usr.CheckInvariants(); err != nil {
		return user.User{}, err
	}
	id, err := repo.insert(ctx, repo.getExec(exec),
		"INSERT INTO users (name, email, password, role, code, created_at) VALUES (?, ?, ?, ?, ?, ?) RETURNING id",
		usr.Name, usr.Email, string(usr.PasswordHash), string(usr.Role), usr.Code, usr.CreatedAt.UTC(),
	)
	if err != nil {
		return user.User{}, errors.Wrap(mapErr(err, nil, user.ErrEmailExists), "inserting user")
	}
	usr.ID = id
	return usr, nil
}

func (repo userRepository) getBy(ctx context.Context, exec core.DBExecutor, cond string, arg interface{}) (user.User, error) {
	var row userRow
	err := repo.get(ctx, exec, &row, "SELECT "+userColumns+" FROM users u WHERE "+cond, arg)
	if err != nil {
		return user.User{}, mapErr(err, user.ErrNotFound, nil)
	}
	return row.toUser(), nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id int, exec ...core.DBExecutor) (user.User, error) {
	return repo.getBy(ctx, repo.getExec(exec), "u.id = ?", id)
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (user.User, error) {
	return repo.getBy(ctx, repo.getExec(exec), "u.email = ?", email)
}

func (repo userRepository) QueryUsers(ctx context.Context, filter query.Filter, ords []core.DBOrdering, page query.Page) ([]user.User, int, error) {
	where, args, err := whereClause(query.Users, filter)
	if err != nil {
		return nil, 0, err
	}

	total, err := repo.count(ctx, repo.exec, "SELECT COUNT(*) FROM users u"+where, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "counting users")
	}

	var rows []userRow
	q := "SELECT " + userColumns + " FROM users u" + where + orderByClause(query.Users, ords) + " LIMIT ? OFFSET ?"
	if err = repo.selectAll(ctx, repo.exec, &rows, q, append(args, page.Limit, page.Offset())...); err != nil {
		return nil, 0, errors.Wrap(err, "selecting users")
	}
	return toUsers(rows), total, nil
}

func (repo userRepository) ListUsersByRole(ctx context.Context, role user.Role) ([]user.User, error) {
	var rows []userRow
	q := "SELECT " + userColumns + " FROM users u WHERE u.role = ? ORDER BY u.name ASC, u.id ASC"
	if err := repo.selectAll(ctx, repo.exec, &rows, q, string(role)); err != nil {
		return nil, errors.Wrap(err, "selecting users by role")
	}
	return toUsers(rows), nil
}

func (repo userRepository) CountUsersByRole(ctx context.Context, role user.Role) (int, error) {
	n, err := repo.count(ctx, repo.exec, "SELECT COUNT(*) FROM users WHERE role = ?", string(role))
	return n, errors.Wrap(err, "counting users by role")
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if err := usr.CheckInvariants(); err != nil {
		return user.User{}, err
	}
	res, err := repo.execute(ctx, repo.getExec(exec),
		"UPDATE users SET name = ?, email = ?, role = ?, code = ? WHERE id = ?",
		usr.Name, usr.Email, string(usr.Role), usr.Code, usr.ID,
	)
	if err != nil {
		return user.User{}, errors.Wrap(mapErr(err, nil, user.ErrEmailExists), "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo userRepository) SetUserPassword(ctx context.Context, id int, hash []byte, exec ...core.DBExecutor) error {
	res, err := repo.execute(ctx, repo.getExec(exec), "UPDATE users SET password = ? WHERE id = ?", string(hash), id)
	if err != nil {
		return errors.Wrap(err, "updating password")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo userRepository) HasAssignments(ctx context.Context, id int, exec ...core.DBExecutor) (bool, error) {
	n, err := repo.count(ctx, repo.getExec(exec),
		"SELECT (SELECT COUNT(*) FROM enrollments WHERE student_id = ?) + (SELECT COUNT(*) FROM courses WHERE teacher_id = ?)",
		id, id,
	)
	if err != nil {
		return false, errors.Wrap(err, "counting user assignments")
	}
	return n > 0, nil
}

func (repo userRepository) DeleteUser(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return repo.deleteByID(ctx, repo.getExec(exec), "users", id, user.ErrNotFound)
}
