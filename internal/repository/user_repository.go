package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/eduflow/eduflow-api/internal/model"
)

// UserRepo provides access to the `users` table.  All read queries exclude
// soft-deleted rows and join the roles table so callers always see the role
// name alongside the record.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `u.id, u.username, u.email, u.password_hash, u.role_id, r.name,
	u.is_verified, u.verification_token, u.verification_token_expires_at,
	u.reset_token, u.reset_token_expires_at, u.refresh_token_hash,
	u.created_at, u.updated_at`

const userFrom = ` FROM users u JOIN roles r ON r.id = u.role_id WHERE u.deleted_at IS NULL AND `

// Create inserts a user and fills in the generated ID.  Duplicate-key
// violations on the unique email/username indexes are mapped to
// ErrEmailExists / ErrUsernameExists.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, role_id, is_verified,
			verification_token, verification_token_expires_at)
		 VALUES (?,?,?,?,?,?,?)`,
		u.Username, u.Email, u.PasswordHash, u.RoleID, u.IsVerified,
		nullStr(u.VerifyToken), u.VerifyExpiry)
	if err != nil {
		low := strings.ToLower(err.Error())
		if strings.Contains(low, "1062") || strings.Contains(low, "duplicate entry") {
			if strings.Contains(low, "username") {
				return ErrUsernameExists
			}
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.getWhere(ctx, "u.email=?", email)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return r.getWhere(ctx, "u.id=?", id)
}

// GetByVerificationToken fetches a user by its pending verification token.
func (r *UserRepo) GetByVerificationToken(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	return r.getWhere(ctx, "u.verification_token=?", token)
}

// GetByResetToken fetches a user by its pending password-reset token.
func (r *UserRepo) GetByResetToken(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	return r.getWhere(ctx, "u.reset_token=?", token)
}

func (r *UserRepo) getWhere(ctx context.Context, cond string, arg any) (*model.User, error) {
	var (
		u            model.User
		verifyToken  sql.NullString
		verifyExpiry sql.NullTime
		resetToken   sql.NullString
		resetExpiry  sql.NullTime
		refreshHash  sql.NullString
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+userFrom+cond+" LIMIT 1", arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.RoleID, &u.Role,
		&u.IsVerified, &verifyToken, &verifyExpiry,
		&resetToken, &resetExpiry, &refreshHash,
		&u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.VerifyToken = verifyToken.String
	u.ResetToken = resetToken.String
	u.RefreshHash = refreshHash.String
	if verifyExpiry.Valid {
		t := verifyExpiry.Time
		u.VerifyExpiry = &t
	}
	if resetExpiry.Valid {
		t := resetExpiry.Time
		u.ResetExpiry = &t
	}
	return &u, nil
}

// MarkVerified flips is_verified and clears both verification fields in a
// single UPDATE so the token cannot be replayed.
func (r *UserRepo) MarkVerified(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE users SET is_verified=1, verification_token=NULL,
			verification_token_expires_at=NULL
		 WHERE id=? AND deleted_at IS NULL`, id)
	return err
}

// SetResetToken stores a fresh password-reset token and its expiry.
func (r *UserRepo) SetResetToken(ctx context.Context, id uint64, token string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET reset_token=?, reset_token_expires_at=? WHERE id=? AND deleted_at IS NULL",
		token, exp, id)
	return err
}

// UpdatePassword sets a new password hash, clears the reset fields and
// drops the stored refresh-token hash so existing sessions must log in
// again.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, passwordHash string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE users SET password_hash=?, reset_token=NULL,
			reset_token_expires_at=NULL, refresh_token_hash=NULL
		 WHERE id=? AND deleted_at IS NULL`,
		passwordHash, id)
	return err
}

// SetRefreshHash overwrites the stored refresh-token hash.  Used on login,
// where the previous session is invalidated unconditionally.
func (r *UserRepo) SetRefreshHash(ctx context.Context, id uint64, hash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET refresh_token_hash=? WHERE id=? AND deleted_at IS NULL",
		nullStr(hash), id)
	return err
}

// SwapRefreshHash replaces the stored refresh-token hash only if it still
// equals oldHash.  The single-row compare-and-swap closes the concurrent
// rotation race: of two refreshes racing with the same token, exactly one
// observes a match.  Returns false when another writer got there first.
func (r *UserRepo) SwapRefreshHash(ctx context.Context, id uint64, oldHash, newHash string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET refresh_token_hash=? WHERE id=? AND refresh_token_hash=? AND deleted_at IS NULL",
		nullStr(newHash), id, oldHash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SoftDelete tombstones a user.  Returns ErrNotFound when the row is
// missing or already deleted.
func (r *UserRepo) SoftDelete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET deleted_at=NOW() WHERE id=? AND deleted_at IS NULL", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// nullStr maps "" to SQL NULL so empty tokens/hashes are stored as NULL
// rather than empty strings.
func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
