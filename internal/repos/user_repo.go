package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gatekeeper/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const userColumns = `id,email,name,password_hash,approved,role,created_at`

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

// Insert assigns the user a fresh id and creation time and stores it.
// A clash on email is reported as domain.ErrDuplicateEmail.
func (r *UserRepo) Insert(ctx context.Context, u *domain.User) error {
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now().UTC()
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	_, err := r.DB.NamedExecContext(ctx, `
		INSERT INTO users(id,email,name,password_hash,approved,role,created_at)
		VALUES(:id,:email,:name,:password_hash,:approved,:role,:created_at)`, u)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEmail
		}
		return storeErr("insert", err)
	}
	return nil
}

func (r *UserRepo) ByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.DB.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE LOWER(email)=LOWER(?)`, email)
	if err != nil {
		return nil, lookupErr("by email", err)
	}
	return &u, nil
}

func (r *UserRepo) ByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := r.DB.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id=?`, id)
	if err != nil {
		return nil, lookupErr("by id", err)
	}
	return &u, nil
}

// Approve marks the user approved and returns the updated record.
func (r *UserRepo) Approve(ctx context.Context, id string) (*domain.User, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET approved=1,updated_at=? WHERE id=?`, time.Now().UTC(), id)
	if err != nil {
		return nil, storeErr("approve", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, storeErr("approve", err)
	}
	if n == 0 {
		return nil, domain.ErrUserNotFound
	}
	return r.ByID(ctx, id)
}

// ListPending returns unapproved users, oldest first.
func (r *UserRepo) ListPending(ctx context.Context) ([]domain.User, error) {
	users := []domain.User{}
	if err := r.DB.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users WHERE approved=0 ORDER BY created_at, email`); err != nil {
		return nil, storeErr("list pending", err)
	}
	return users, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	if se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	// Without extended result codes only the primary code is reported.
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE")
}

func lookupErr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrUserNotFound
	}
	return storeErr(op, err)
}

func storeErr(op string, err error) error {
	return fmt.Errorf("users: %s: %w: %w", op, domain.ErrStore, err)
}
