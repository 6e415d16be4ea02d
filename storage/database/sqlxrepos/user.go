package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core/user"
)

type userRow struct {
	ID           int         `db:"id"`
	Name         string      `db:"name"`
	Email        string      `db:"email"`
	PasswordHash []byte      `db:"password_hash"`
	Role         string      `db:"role"`
	Bio          string      `db:"bio"`
	Avatar       null.String `db:"avatar"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

func (r userRow) unboil() user.User {
	return user.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		Role:         user.Role(r.Role),
		Bio:          r.Bio,
		Avatar:       r.Avatar.String,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    r.LastLogin.Time.UTC(),
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

// trapEmailExistsErr maps the unique email index violation to user.ErrEmailExists
func trapEmailExistsErr(err error, msg string) error {
	if pqErrCode(err) == uniqueViolation {
		return user.ErrEmailExists
	}
	return errors.Wrap(err, msg)
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	ids := make([]int64, 0, len(excludedUsers))
	for _, u := range excludedUsers {
		ids = append(ids, int64(u.ID))
	}

	const q = `SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(email) = LOWER($1) AND NOT (id = ANY($2)))`
	var exists bool
	if err := repo.db.GetContext(ctx, &exists, q, email, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	const q = `
		INSERT INTO users (name, email, password_hash, role, bio, avatar, created_at, updated_at, last_login)
		VALUES ($1, LOWER($2), $3, $4, $5, $6, $7, $8, $9)
		RETURNING *`
	hash := usr.PasswordHash
	if hash == nil {
		hash = []byte{}
	}
	var row userRow
	err := repo.db.GetContext(ctx, &row, q,
		usr.Name, usr.Email, hash, string(usr.Role), usr.Bio,
		null.NewString(usr.Avatar, usr.Avatar != ""),
		usr.CreatedAt.UTC(), usr.UpdatedAt.UTC(),
		null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()))
	if err != nil {
		return user.User{}, trapEmailExistsErr(err, "inserting user")
	}
	return row.unboil(), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id int) (user.User, error) {
	var row userRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM users WHERE id = $1`, id); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user by ID")
	}
	return row.unboil(), nil
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var row userRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM users WHERE LOWER(email) = LOWER($1)`, email); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user by email")
	}
	return row.unboil(), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	const q = `
		UPDATE users
		SET name = $2, email = LOWER($3), bio = $4, avatar = $5, password_hash = $6, last_login = $7, updated_at = $8
		WHERE id = $1
		RETURNING *`
	var row userRow
	err := repo.db.GetContext(ctx, &row, q,
		usr.ID, usr.Name, usr.Email, usr.Bio,
		null.NewString(usr.Avatar, usr.Avatar != ""),
		usr.PasswordHash,
		null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
		usr.UpdatedAt.UTC())
	if err != nil {
		if pqErrCode(err) == uniqueViolation {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "updating user")
	}
	return row.unboil(), nil
}
