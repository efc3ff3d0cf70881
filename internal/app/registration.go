package app

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"bookhive/internal/util"
	"bookhive/pkg/auth"
	"bookhive/pkg/domain"
	"bookhive/pkg/store"
)

const otpMailSubject = "Your verification code"

// RegisterInput carries the fields of a registration request. AvatarKey is
// set when the request included an avatar upload.
type RegisterInput struct {
	Name      string
	Email     string
	Password  string
	AvatarKey string
}

// PendingResult identifies a staged registration awaiting verification.
type PendingResult struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// Register stages a new account and emails a verification code. The account
// does not exist until the code is verified.
func (a *App) Register(ctx context.Context, in RegisterInput) (PendingResult, error) {
	name := strings.TrimSpace(in.Name)
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return PendingResult{}, fmt.Errorf("%w: %s", ErrValidation, err)
	}
	if name == "" {
		return PendingResult{}, fmt.Errorf("%w: name required", ErrValidation)
	}
	if len(in.Password) < 6 {
		return PendingResult{}, fmt.Errorf("%w: password must be at least 6 characters", ErrValidation)
	}
	exists, err := a.store.HasUserEmail(email)
	if err != nil {
		return PendingResult{}, err
	}
	if exists {
		return PendingResult{}, fmt.Errorf("%w: email already registered", ErrConflict)
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return PendingResult{}, fmt.Errorf("hash password: %w", err)
	}
	// A repeated registration for the same email replaces the stale staging
	// record.
	if err := a.store.DeletePendingByEmail(email); err != nil {
		return PendingResult{}, err
	}
	avatarURL := ""
	if in.AvatarKey != "" {
		avatarURL = a.objects.PublicURL(in.AvatarKey)
	}
	pending := domain.PendingRegistration{
		ID:           util.NewID(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		AvatarURL:    avatarURL,
		CreatedAt:    a.now(),
	}
	if err := a.store.SavePending(pending); err != nil {
		return PendingResult{}, err
	}
	if err := a.issueAndSendOTP(ctx, pending.ID, email); err != nil {
		return PendingResult{}, err
	}
	return PendingResult{UserID: pending.ID, Email: email}, nil
}

func (a *App) issueAndSendOTP(ctx context.Context, subjectID, email string) error {
	code, err := a.otps.Issue(ctx, subjectID)
	if err != nil {
		return fmt.Errorf("issue code: %w", err)
	}
	body := fmt.Sprintf("Your OTP is %s. It will expire in 10 minutes.", code)
	if err := a.mailer.SendPlainText(ctx, email, otpMailSubject, body); err != nil {
		return fmt.Errorf("send code: %w", err)
	}
	return nil
}

// VerifyOTP consumes the registration code and promotes the staged record to
// a verified user.
func (a *App) VerifyOTP(ctx context.Context, pendingID, code string) (domain.User, error) {
	pendingID = strings.TrimSpace(pendingID)
	code = strings.TrimSpace(code)
	if pendingID == "" || code == "" {
		return domain.User{}, fmt.Errorf("%w: user id and otp required", ErrValidation)
	}
	pending, ok, err := a.store.GetPendingByID(pendingID)
	if err != nil {
		return domain.User{}, err
	}
	if !ok {
		return domain.User{}, fmt.Errorf("%w: registration", ErrNotFound)
	}
	if err := a.otps.Consume(ctx, pendingID, code); err != nil {
		return domain.User{}, err
	}
	user, err := a.store.PromotePending(pending.ID)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return domain.User{}, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return domain.User{}, err
	}
	return user, nil
}

// ResendOTP reissues the registration code, superseding the previous one.
// When an email is supplied it must match the staged record.
func (a *App) ResendOTP(ctx context.Context, pendingID, email string) (PendingResult, error) {
	pending, ok, err := a.store.GetPendingByID(strings.TrimSpace(pendingID))
	if err != nil {
		return PendingResult{}, err
	}
	if !ok {
		return PendingResult{}, fmt.Errorf("%w: registration", ErrNotFound)
	}
	if email = strings.TrimSpace(strings.ToLower(email)); email != "" && email != pending.Email {
		return PendingResult{}, fmt.Errorf("%w: registration", ErrNotFound)
	}
	if err := a.issueAndSendOTP(ctx, pending.ID, pending.Email); err != nil {
		return PendingResult{}, err
	}
	return PendingResult{UserID: pending.ID, Email: pending.Email}, nil
}

// SendResetOTP emails a password-reset code to an existing account. The
// challenge is keyed by the user id.
func (a *App) SendResetOTP(ctx context.Context, email string) (PendingResult, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return PendingResult{}, fmt.Errorf("%w: %s", ErrValidation, err)
	}
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return PendingResult{}, err
	}
	if !ok {
		return PendingResult{}, fmt.Errorf("%w: user", ErrNotFound)
	}
	if err := a.issueAndSendOTP(ctx, user.ID, user.Email); err != nil {
		return PendingResult{}, err
	}
	return PendingResult{UserID: user.ID, Email: user.Email}, nil
}

// ResetPassword consumes a reset code and replaces the account password.
// The new password must differ from the current one.
func (a *App) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, err)
	}
	if len(newPassword) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", ErrValidation)
	}
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: user", ErrNotFound)
	}
	if auth.CheckPassword(newPassword, user.PasswordHash) {
		return ErrSamePassword
	}
	if err := a.otps.Consume(ctx, user.ID, strings.TrimSpace(code)); err != nil {
		return err
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash
	user.UpdatedAt = a.now()
	return a.store.SaveUser(user)
}

// LoginResult is the response to a successful login.
type LoginResult struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// Login checks credentials and issues an access token.
func (a *App) Login(email, password string) (LoginResult, error) {
	return a.login(email, password, false)
}

// AdminLogin is Login restricted to admin accounts.
func (a *App) AdminLogin(email, password string) (LoginResult, error) {
	return a.login(email, password, true)
}

func (a *App) login(email, password string, adminOnly bool) (LoginResult, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return LoginResult{}, err
	}
	if !ok || !auth.CheckPassword(password, user.PasswordHash) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if adminOnly && user.Role != domain.RoleAdmin {
		return LoginResult{}, fmt.Errorf("%w: admin account required", ErrAccessDenied)
	}
	token, err := a.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}
	return LoginResult{Token: token, User: user}, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return "", errors.New("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", errors.New("email format is invalid")
	}
	return email, nil
}
