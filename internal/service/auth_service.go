// Package service contains the authentication core: registration, email
// verification, login, refresh-token rotation, logout and password reset.
// It orchestrates the user/role directory, the token codec, the password
// hasher, the revocation store and the email queue, and translates every
// collaborator failure into the typed error taxonomy before it can reach
// the HTTP layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eduflow/eduflow-api/internal/apperr"
	"github.com/eduflow/eduflow-api/internal/config"
	"github.com/eduflow/eduflow-api/internal/model"
	"github.com/eduflow/eduflow-api/internal/queue"
	"github.com/eduflow/eduflow-api/internal/repository"
	"github.com/eduflow/eduflow-api/internal/utils"
	"github.com/eduflow/eduflow-api/pkg/log"
)

// oneTimeTokenTTL bounds verification and password-reset tokens.
const oneTimeTokenTTL = time.Hour

// UserStore is the slice of the user directory the auth core consumes.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	GetByVerificationToken(ctx context.Context, token string) (*model.User, error)
	GetByResetToken(ctx context.Context, token string) (*model.User, error)
	MarkVerified(ctx context.Context, id uint64) error
	SetResetToken(ctx context.Context, id uint64, token string, exp time.Time) error
	UpdatePassword(ctx context.Context, id uint64, passwordHash string) error
	SetRefreshHash(ctx context.Context, id uint64, hash string) error
	SwapRefreshHash(ctx context.Context, id uint64, oldHash, newHash string) (bool, error)
	SoftDelete(ctx context.Context, id uint64) error
}

// RoleStore resolves role names against the fixed role enum.
type RoleStore interface {
	GetByName(ctx context.Context, name string) (*model.Role, error)
}

// Enqueuer hands an email job to the outbound queue.  The auth service
// never talks to a mail transport directly.
type Enqueuer interface {
	Enqueue(ctx context.Context, msg queue.EmailMessage) error
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
	ExpiresIn    int // access token lifetime in seconds
}

// AuthService implements the session lifecycle state machine.
type AuthService struct {
	cfg     config.Config
	users   UserStore
	roles   RoleStore
	revoked repository.RevocationStore
	mailq   Enqueuer
	log     log.Logger
}

func NewAuthService(cfg config.Config, users UserStore, roles RoleStore, revoked repository.RevocationStore, mailq Enqueuer, logger log.Logger) *AuthService {
	return &AuthService{cfg: cfg, users: users, roles: roles, revoked: revoked, mailq: mailq, log: logger}
}

// Register creates an unverified account and queues the verification mail.
// Only user-selectable roles are accepted; admin accounts are provisioned
// out of band.
func (s *AuthService) Register(ctx context.Context, username, email, password, roleName string) (*model.User, error) {
	username = normalize(username)
	email = normalizeEmail(email)
	if username == "" || email == "" || password == "" {
		return nil, apperr.Validation("username, email and password are required")
	}
	if len(password) < 8 {
		return nil, apperr.Validation("password must be at least 8 characters")
	}
	roleName = strings.ToLower(normalize(roleName))
	if !selectableRole(roleName) {
		return nil, apperr.BadRequest("role must be one of: student, lecturer")
	}
	role, err := s.roles.GetByName(ctx, roleName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// role enum and roles table disagree; a data integrity issue
			return nil, apperr.BadRequest("unknown role")
		}
		return nil, err
	}

	hash, err := utils.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	verifyToken, err := utils.RandomHex(32)
	if err != nil {
		return nil, err
	}
	verifyExp := time.Now().UTC().Add(oneTimeTokenTTL)

	u := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		RoleID:       role.ID,
		Role:         role.Name,
		IsVerified:   false,
		VerifyToken:  verifyToken,
		VerifyExpiry: &verifyExp,
	}
	if err := s.users.Create(ctx, u); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return nil, apperr.Conflict("email already exists")
		case errors.Is(err, repository.ErrUsernameExists):
			return nil, apperr.Conflict("username already exists")
		}
		return nil, err
	}

	if err := s.mailq.Enqueue(ctx, s.verificationMail(u, verifyToken)); err != nil {
		// without the mail the account can never verify; surface the failure
		s.log.Error().Err(err).Uint64("user_id", u.ID).Msg("enqueue verification mail failed")
		return nil, err
	}
	s.log.Info().Uint64("user_id", u.ID).Str("role", u.Role).Msg("user registered")
	return u, nil
}

// VerifyUser consumes a verification token: marks the account verified and
// clears both verification fields atomically.
func (s *AuthService) VerifyUser(ctx context.Context, token string) error {
	u, err := s.users.GetByVerificationToken(ctx, normalize(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.Unauthorized("invalid or expired verification token")
		}
		return err
	}
	if u.VerifyExpiry == nil || time.Now().UTC().After(*u.VerifyExpiry) {
		return apperr.Unauthorized("invalid or expired verification token")
	}
	if err := s.users.MarkVerified(ctx, u.ID); err != nil {
		return err
	}
	s.log.Info().Uint64("user_id", u.ID).Msg("user verified")
	return nil
}

// Login authenticates a verified account and issues a fresh token pair.
// The stored refresh-token hash is overwritten, which invalidates any
// previous refresh token even if it has not yet expired.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, *model.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, nil, apperr.Validation("email and password are required")
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// generic wording avoids confirming whether the account exists
			return nil, nil, apperr.Unauthorized("invalid credentials")
		}
		return nil, nil, err
	}
	// The password is always checked; a wrong password never reveals
	// verification state.
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, nil, apperr.Unauthorized("invalid credentials")
	}
	if !u.IsVerified {
		return nil, nil, apperr.Unauthorized("user is not verified")
	}

	pair, err := s.issuePair(u)
	if err != nil {
		return nil, nil, err
	}
	if err := s.users.SetRefreshHash(ctx, u.ID, utils.HashTokenRaw(pair.RefreshToken)); err != nil {
		return nil, nil, err
	}
	s.log.Info().Uint64("user_id", u.ID).Msg("login")
	return pair, u, nil
}

// Refresh rotates a refresh token: the presented token must verify, must
// not be revoked, and must match the stored hash.  The old token is
// blacklisted for its remaining lifetime and the stored hash is swapped to
// the new token with a compare-and-swap, so of two concurrent refreshes
// with the same token exactly one succeeds.
func (s *AuthService) Refresh(ctx context.Context, raw string) (*TokenPair, error) {
	if raw == "" {
		return nil, apperr.BadRequest("refresh token required")
	}
	claims, err := utils.ParseToken(s.cfg.RefreshSecret, raw)
	if err != nil {
		return nil, apperr.Unauthorized("invalid or expired refresh token")
	}
	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Unauthorized("invalid refresh token")
		}
		return nil, err
	}

	revoked, err := s.revoked.IsRevoked(ctx, raw)
	if err != nil {
		if s.cfg.RevocationFailMode == config.FailClosed {
			s.log.Error().Err(err).Msg("revocation store unreachable, failing closed")
			return nil, apperr.Unauthorized("invalid or expired refresh token")
		}
		s.log.Warn().Err(err).Msg("revocation store unreachable, failing open")
		revoked = false
	}
	if revoked {
		return nil, apperr.Unauthorized("token revoked")
	}

	if u.RefreshHash == "" {
		return nil, apperr.Unauthorized("invalid refresh token")
	}
	oldHash := utils.HashTokenRaw(raw)
	if oldHash != u.RefreshHash {
		// a newer token has been issued; this one is superseded
		return nil, apperr.Unauthorized("invalid refresh token")
	}

	// Blacklist the old token for the rest of its validity window.  The
	// hash swap below already invalidates it here; the blacklist entry
	// guards against replay across concurrent devices.
	if remaining := time.Until(claims.Exp); remaining > 0 {
		if err := s.revoked.Add(ctx, raw, remaining); err != nil {
			s.log.Warn().Err(err).Msg("blacklisting rotated token failed")
		}
	}

	pair, err := s.issuePair(u)
	if err != nil {
		return nil, err
	}
	swapped, err := s.users.SwapRefreshHash(ctx, u.ID, oldHash, utils.HashTokenRaw(pair.RefreshToken))
	if err != nil {
		return nil, err
	}
	if !swapped {
		// a concurrent refresh rotated the token first
		return nil, apperr.Unauthorized("invalid refresh token")
	}
	s.log.Info().Uint64("user_id", u.ID).Msg("refresh token rotated")
	return pair, nil
}

// Logout revokes the presented refresh token and clears the stored hash if
// it still belongs to this session.
func (s *AuthService) Logout(ctx context.Context, raw string) error {
	if raw == "" {
		return apperr.BadRequest("refresh token required")
	}
	claims, err := utils.ParseToken(s.cfg.RefreshSecret, raw)
	if err != nil {
		if errors.Is(err, utils.ErrTokenExpired) {
			// an expired token is already unusable; treat logout as done
			return nil
		}
		return apperr.Unauthorized("invalid refresh token")
	}
	if remaining := time.Until(claims.Exp); remaining > 0 {
		if err := s.revoked.Add(ctx, raw, remaining); err != nil {
			s.log.Warn().Err(err).Msg("blacklisting logged-out token failed")
		}
	}
	// Clear the stored hash only when it still matches this token, so a
	// logout with a superseded token does not kill the newer session.
	if _, err := s.users.SwapRefreshHash(ctx, claims.UserID, utils.HashTokenRaw(raw), ""); err != nil {
		return err
	}
	s.log.Info().Uint64("user_id", claims.UserID).Msg("logout")
	return nil
}

// ForgotPassword issues a reset token and queues the reset mail.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("user not found")
		}
		return err
	}
	token, err := utils.RandomHex(32)
	if err != nil {
		return err
	}
	exp := time.Now().UTC().Add(oneTimeTokenTTL)
	if err := s.users.SetResetToken(ctx, u.ID, token, exp); err != nil {
		return err
	}
	if err := s.mailq.Enqueue(ctx, s.resetMail(u, token)); err != nil {
		s.log.Error().Err(err).Uint64("user_id", u.ID).Msg("enqueue reset mail failed")
		return err
	}
	s.log.Info().Uint64("user_id", u.ID).Msg("password reset requested")
	return nil
}

// VerifyResetToken checks that a reset token exists and has not expired.
func (s *AuthService) VerifyResetToken(ctx context.Context, token string) error {
	_, err := s.resetCandidate(ctx, token)
	return err
}

// ResetPassword consumes a reset token and stores the new password.  The
// stored refresh-token hash is cleared along the way, so sessions issued
// before the reset cannot refresh.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < 8 {
		return apperr.Validation("password must be at least 8 characters")
	}
	u, err := s.resetCandidate(ctx, token)
	if err != nil {
		return err
	}
	hash, err := utils.HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return err
	}
	s.log.Info().Uint64("user_id", u.ID).Msg("password reset")
	return nil
}

// DeleteUser tombstones an account.  Admin-only at the HTTP layer.
func (s *AuthService) DeleteUser(ctx context.Context, id uint64) error {
	if err := s.users.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("user not found")
		}
		return err
	}
	s.log.Info().Uint64("user_id", id).Msg("user deleted")
	return nil
}

func (s *AuthService) resetCandidate(ctx context.Context, token string) (*model.User, error) {
	u, err := s.users.GetByResetToken(ctx, normalize(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Unauthorized("invalid or expired reset token")
		}
		return nil, err
	}
	if u.ResetExpiry == nil || time.Now().UTC().After(*u.ResetExpiry) {
		return nil, apperr.Unauthorized("invalid or expired reset token")
	}
	return u, nil
}

func (s *AuthService) issuePair(u *model.User) (*TokenPair, error) {
	access, err := utils.NewAccessToken(s.cfg.AccessSecret, u.ID, u.Email, u.Role, s.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := utils.NewRefreshToken(s.cfg.RefreshSecret, u.ID, u.Email, u.Role, s.cfg.RefreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access.Token,
		AccessExp:    access.Exp,
		RefreshToken: refresh.Token,
		RefreshExp:   refresh.Exp,
		ExpiresIn:    s.cfg.AccessTTLSecs,
	}, nil
}

func (s *AuthService) verificationMail(u *model.User, token string) queue.EmailMessage {
	link := fmt.Sprintf("%s/v1/auth/verify/%s", s.cfg.AppBaseURL, token)
	html := fmt.Sprintf(
		"<p>Hi %s,</p><p>Confirm your email address by opening the link below within one hour:</p><p><a href=%q>%s</a></p>",
		u.Username, link, link)
	return queue.EmailMessage{
		ID:         uuid.NewString(),
		To:         u.Email,
		Subject:    "Verify your account",
		HTML:       html,
		Kind:       queue.KindVerification,
		EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

func (s *AuthService) resetMail(u *model.User, token string) queue.EmailMessage {
	link := fmt.Sprintf("%s/reset-password?token=%s", s.cfg.AppBaseURL, token)
	html := fmt.Sprintf(
		"<p>Hi %s,</p><p>A password reset was requested for your account. The link below is valid for one hour:</p><p><a href=%q>%s</a></p><p>If you did not request this, ignore this mail.</p>",
		u.Username, link, link)
	return queue.EmailMessage{
		ID:         uuid.NewString(),
		To:         u.Email,
		Subject:    "Reset your password",
		HTML:       html,
		Kind:       queue.KindPasswordReset,
		EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

func normalize(s string) string { return strings.TrimSpace(s) }

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func selectableRole(name string) bool {
	for _, r := range config.SelectableRoles {
		if r == name {
			return true
		}
	}
	return false
}
