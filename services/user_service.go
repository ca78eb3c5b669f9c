package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"restaurant-directory-api/apperr"
	"restaurant-directory-api/auth"
	"restaurant-directory-api/models"
)

var (
	errInvalidCredentials = apperr.Authentication("Invalid email or password")
	errEmailTaken         = apperr.Conflict("User already exists")
	errInvalidResetToken  = apperr.Validation("Invalid or expired token.")
	errWeakPassword       = apperr.Validation(auth.ErrWeakPassword.Error())
)

// AuthResult is returned by registration and login.
type AuthResult struct {
	ID    uuid.UUID       `json:"id"`
	Name  string          `json:"name"`
	Email string          `json:"email"`
	Role  models.UserRole `json:"role"`
	Token string          `json:"token"`
}

// UserService handles accounts: registration, login, email verification,
// profile edits and password changes.
type UserService struct {
	db     *gorm.DB
	creds  *auth.Service
	mailer *Mailer
	now    func() time.Time
}

func NewUserService(db *gorm.DB, creds *auth.Service, mailer *Mailer) *UserService {
	return &UserService{db: db, creds: creds, mailer: mailer, now: time.Now}
}

// Register creates a user or business owner account and sends a
// verification mail. Admin accounts cannot be registered.
func (s *UserService) Register(ctx context.Context, name, email, password string, role models.UserRole) (*AuthResult, error) {
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleUser && role != models.RoleBusinessOwner {
		return nil, apperr.Validation("Invalid role")
	}
	user, err := s.create(ctx, name, email, password, role, false)
	if err != nil {
		return nil, err
	}
	s.mailer.VerifyEmail(user.ID, user.Email)
	return s.session(user)
}

func (s *UserService) RegisterBusinessOwner(ctx context.Context, name, email, password string) (*AuthResult, error) {
	return s.Register(ctx, name, email, password, models.RoleBusinessOwner)
}

// CreateAdmin creates a verified admin account.
func (s *UserService) CreateAdmin(ctx context.Context, name, email, password string) (*models.User, error) {
	return s.create(ctx, name, email, password, models.RoleAdmin, true)
}

func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !s.creds.Verify(password, user.PasswordHash) {
		return nil, errInvalidCredentials
	}
	return s.session(&user)
}

// VerifyEmail marks the account behind a verification token as verified.
// Verifying twice succeeds; a token for an address the account no longer
// uses does not.
func (s *UserService) VerifyEmail(ctx context.Context, token string) error {
	claims, err := s.creds.DecodeVerificationToken(token)
	if err != nil {
		return apperr.Validation("Invalid or expired verification link")
	}
	user, err := s.Profile(ctx, claims.UserID)
	if err != nil {
		return err
	}
	if user.Email != claims.Email {
		return apperr.Validation("Invalid or expired verification link")
	}
	if user.IsVerified {
		return nil
	}
	if err := s.db.WithContext(ctx).Model(user).Update("is_verified", true).Error; err != nil {
		return fmt.Errorf("failed to verify email: %w", err)
	}
	slog.Info("email verified", "user_id", user.ID)
	return nil
}

func (s *UserService) Profile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	return &user, nil
}

// UpdateProfile changes the name and email. A new email must be unused; it
// resets the verified flag and gets a verification mail. The second result
// reports whether the email changed.
func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, name, email string) (*models.User, bool, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, false, err
	}

	if name = strings.TrimSpace(name); name != "" {
		user.Name = name
	}
	emailChanged := false
	if email = normalizeEmail(email); email != "" && email != user.Email {
		taken, err := s.emailTaken(ctx, email)
		if err != nil {
			return nil, false, err
		}
		if taken {
			return nil, false, apperr.Conflict("Email is already in use by another account")
		}
		user.Email = email
		user.IsVerified = false
		emailChanged = true
	}

	err = s.db.WithContext(ctx).Model(user).Select("Name", "Email", "IsVerified").Updates(user).Error
	if err != nil {
		if isDuplicate(err) {
			return nil, false, apperr.Conflict("Email is already in use by another account")
		}
		return nil, false, fmt.Errorf("failed to update profile: %w", err)
	}
	if emailChanged {
		s.mailer.VerifyEmail(user.ID, user.Email)
	}
	return user, emailChanged, nil
}

// ChangePassword checks the current password, then requires the new one to
// differ from it and satisfy the strength policy.
func (s *UserService) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return err
	}
	if !s.creds.Verify(current, user.PasswordHash) {
		return apperr.Validation("Current password is incorrect")
	}
	if current == next || s.creds.Verify(next, user.PasswordHash) {
		return apperr.Conflict("New password cannot be the same as the current password")
	}
	if err := auth.CheckPassword(next); err != nil {
		return errWeakPassword
	}
	if err := s.setPassword(ctx, user, next); err != nil {
		return err
	}
	s.mailer.PasswordChanged(user.Email)
	return nil
}

// ForgotPassword stores the hash of a fresh reset token and mails the token.
func (s *UserService) ForgotPassword(ctx context.Context, email string) error {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		return notFoundOr(err, "No user found with this email")
	}

	raw, hashed, err := auth.NewResetToken()
	if err != nil {
		return err
	}
	expires := s.now().Add(auth.ResetTokenTTL)
	err = s.db.WithContext(ctx).Model(&user).Updates(map[string]any{
		"password_reset_token":   hashed,
		"password_reset_expires": expires,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	s.mailer.PasswordReset(user.Email, raw)
	return nil
}

// ResetPassword sets a new password for the holder of an unexpired reset
// token and clears the token.
func (s *UserService) ResetPassword(ctx context.Context, token, password string) error {
	var user models.User
	err := s.db.WithContext(ctx).Where("password_reset_token = ?", auth.HashResetToken(token)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errInvalidResetToken
		}
		return fmt.Errorf("failed to load reset token: %w", err)
	}
	if user.PasswordResetExpires == nil || !s.now().Before(*user.PasswordResetExpires) {
		return errInvalidResetToken
	}
	if err := auth.CheckPassword(password); err != nil {
		return errWeakPassword
	}
	if err := s.setPassword(ctx, &user, password); err != nil {
		return err
	}
	s.mailer.PasswordChanged(user.Email)
	return nil
}

func (s *UserService) create(ctx context.Context, name, email, password string, role models.UserRole, verified bool) (*models.User, error) {
	name, email = strings.TrimSpace(name), normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, apperr.Validation("Name, email, and password are required.")
	}
	if err := auth.CheckPassword(password); err != nil {
		return nil, errWeakPassword
	}
	taken, err := s.emailTaken(ctx, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, errEmailTaken
	}

	hash, err := s.creds.Hash(password)
	if err != nil {
		return nil, err
	}
	user := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsVerified:   verified,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isDuplicate(err) {
			return nil, errEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	slog.Info("user registered", "user_id", user.ID, "role", role)
	return &user, nil
}

// setPassword stores a new hash and clears any pending reset token.
func (s *UserService) setPassword(ctx context.Context, user *models.User, password string) error {
	hash, err := s.creds.Hash(password)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Model(user).Updates(map[string]any{
		"password_hash":          hash,
		"password_reset_token":   nil,
		"password_reset_expires": nil,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	user.PasswordHash = hash
	user.PasswordResetToken, user.PasswordResetExpires = nil, nil
	return nil
}

func (s *UserService) emailTaken(ctx context.Context, email string) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return n > 0, nil
}

func (s *UserService) session(user *models.User) (*AuthResult, error) {
	token, err := s.creds.IssueToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &AuthResult{ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role, Token: token}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
