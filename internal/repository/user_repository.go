package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/restaurant-reservation/internal/utils"
)

// ErrEmailExists is returned by Create when the email is already
// registered.
var ErrEmailExists = errors.New("email already exists")

// User is an account row from the users table.  Emails are normalized
// to lower case before storage and lookup so the unique index cannot
// be dodged by casing.
type User struct {
	ID           uint64
	Email        string
	PasswordHash string
	FullName     string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRepo persists diner accounts.
type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, email, password_hash, full_name, is_active, created_at, updated_at`

func (r *UserRepo) getWhere(ctx context.Context, clause string, arg any) (User, error) {
	var u User
	err := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+clause+` LIMIT 1`, arg,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// Create registers a new account with a bcrypt-hashed password and
// returns its id.  The cost comes from configuration so test setups
// can use a cheap one.
func (r *UserRepo) Create(ctx context.Context, email, password, fullName string, cost int) (uint64, error) {
	email = normalizeEmail(email)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, full_name) VALUES (?, ?, ?)`,
		email, hash, fullName)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail looks an account up by normalized email.  sql.ErrNoRows
// when the email is unknown.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.getWhere(ctx, "email = ?", normalizeEmail(email))
}

// GetByID looks an account up by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (User, error) {
	return r.getWhere(ctx, "id = ?", id)
}

// UpdatePassword re-hashes and stores a new password.  Callers must
// have re-authenticated the account before calling this.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ?`, hash, id)
	return err
}

// UpdateProfile changes the account's display name.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, fullName string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET full_name = ? WHERE id = ?`, fullName, id)
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
