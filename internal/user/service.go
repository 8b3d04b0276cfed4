package user

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/juju/clock"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/vasiliy-maslov/gamergear-storefront/internal/apperr"
	"github.com/vasiliy-maslov/gamergear-storefront/internal/store"
)

const (
	MinPasswordLength = 6
	ResetCodeTTL      = 15 * time.Minute
)

var (
	ErrNotFound           = fmt.Errorf("user %w", apperr.ErrNotFound)
	ErrEmailExists        = fmt.Errorf("user %w", apperr.ErrConflict)
	ErrInvalidCredentials = fmt.Errorf("invalid email or password: %w", apperr.ErrUnauthorized)
	ErrWrongPassword      = fmt.Errorf("current password is incorrect: %w", apperr.ErrUnauthorized)
	ErrInvalidResetCode   = fmt.Errorf("invalid reset code: %w", apperr.ErrUnauthorized)
	ErrNoResetRequest     = apperr.Invalid("resetCode", "no password reset request found, request a reset first")
	ErrResetCodeExpired   = apperr.Invalid("resetCode", "reset code has expired, request a new one")
)

// ResetCodeSender delivers password reset codes.
type ResetCodeSender interface {
	SendResetCode(ctx context.Context, to, name, code string) error
}

type Service interface {
	Register(ctx context.Context, reg Registration) (*Profile, error)
	Login(ctx context.Context, email, password string) (*Profile, error)
	Validate(ctx context.Context, email, password string) (*Profile, bool, error)
	UpdateProfile(ctx context.Context, upd ProfileUpdate) (*Profile, error)
	List(ctx context.Context) ([]Profile, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	EnsureAdmin(ctx context.Context, reg Registration) error
}

type service struct {
	repo   *store.Repository[User]
	store  *store.Store
	clock  clock.Clock
	sender ResetCodeSender
}

func NewService(s *store.Store, clk clock.Clock, sender ResetCodeSender) Service {
	return &service{
		repo:   store.NewRepository[User](s, store.Users, ErrNotFound, ErrEmailExists),
		store:  s,
		clock:  clk,
		sender: sender,
	}
}

func (s *service) Register(ctx context.Context, reg Registration) (*Profile, error) {
	reg.Email = strings.TrimSpace(reg.Email)
	switch {
	case reg.Email == "":
		return nil, apperr.Invalid("email", "is required")
	case reg.Name == "":
		return nil, apperr.Invalid("name", "is required")
	case reg.Password == "":
		return nil, apperr.Invalid("password", "is required")
	case len(reg.Password) < MinPasswordLength:
		return nil, apperr.Invalid("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}

	u, err := s.newUser(reg, false)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Add(ctx, *u); err != nil {
		if errors.Is(err, ErrEmailExists) {
			log.Warn().Str("email", reg.Email).Msg("service: registration with existing email")
			return nil, ErrEmailExists
		}
		log.Error().Err(err).Msg("service: failed to create user in repository")
		return nil, fmt.Errorf("service: failed to save user: %w", err)
	}

	log.Info().Str("user_id", u.ID).Str("email", u.Email).Msg("service: user registered")
	profile := u.Profile()
	return &profile, nil
}

func (s *service) newUser(reg Registration, admin bool) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to generate hash password")
		return nil, fmt.Errorf("service: internal error hashing password: %w", err)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate user id: %w", err)
	}

	return &User{
		ID:           "user-" + id.String(),
		Email:        reg.Email,
		PasswordHash: string(hash),
		Name:         reg.Name,
		Phone:        reg.Phone,
		DateOfBirth:  reg.DateOfBirth,
		IsAdmin:      admin,
		CreatedAt:    s.clock.Now().UTC(),
	}, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*Profile, error) {
	if email == "" || password == "" {
		return nil, apperr.Invalid("", "email and password required")
	}

	u, err := s.repo.Get(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("service: failed to get user by email: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		log.Warn().Str("email", email).Msg("service: failed login attempt")
		return nil, ErrInvalidCredentials
	}

	log.Info().Str("email", email).Msg("service: user logged in")
	profile := u.Profile()
	return &profile, nil
}

// Validate checks a credential pair without treating a mismatch as an error.
func (s *service) Validate(ctx context.Context, email, password string) (*Profile, bool, error) {
	if email == "" || password == "" {
		return nil, false, apperr.Invalid("", "missing email or password")
	}

	profile, err := s.Login(ctx, email, password)
	if errors.Is(err, ErrInvalidCredentials) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return profile, true, nil
}

func (s *service) UpdateProfile(ctx context.Context, upd ProfileUpdate) (*Profile, error) {
	if upd.Email == "" {
		return nil, apperr.Invalid("email", "is required")
	}

	updated, err := s.repo.Update(ctx, upd.Email, func(u *User) error {
		if upd.NewPassword != "" {
			if upd.CurrentPassword == "" {
				return apperr.Invalid("currentPassword", "is required")
			}
			if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(upd.CurrentPassword)) != nil {
				return ErrWrongPassword
			}
			if len(upd.NewPassword) < MinPasswordLength {
				return apperr.Invalid("newPassword", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
			}

			hash, err := bcrypt.GenerateFromPassword([]byte(upd.NewPassword), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("service: failed to generate hash password: %w", err)
			}
			u.PasswordHash = string(hash)
		}

		if upd.Phone != nil {
			u.Phone = *upd.Phone
		}
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("email", upd.Email).Msg("service: failed to update profile")
		return nil, err
	}

	log.Info().Str("email", upd.Email).Msg("service: user profile updated")
	profile := updated.Profile()
	return &profile, nil
}

func (s *service) List(ctx context.Context) ([]Profile, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list users: %w", err)
	}

	profiles := make([]Profile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.Profile())
	}
	return profiles, nil
}

// RequestPasswordReset stores a hashed one-time code and mails it. Unknown
// emails succeed silently so the endpoint does not reveal which accounts
// exist. Delivery failures are logged only.
func (s *service) RequestPasswordReset(ctx context.Context, email string) error {
	if email == "" {
		return apperr.Invalid("email", "is required")
	}

	code, err := generateResetCode()
	if err != nil {
		return fmt.Errorf("service: failed to generate reset code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("service: failed to hash reset code: %w", err)
	}

	expiry := s.clock.Now().Add(ResetCodeTTL).UnixMilli()
	updated, err := s.repo.Update(ctx, email, func(u *User) error {
		u.ResetCodeHash = string(hash)
		u.ResetCodeExpiry = expiry
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		log.Info().Str("email", email).Msg("service: password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("service: failed to store reset code: %w", err)
	}

	if s.sender != nil {
		if err := s.sender.SendResetCode(ctx, updated.Email, updated.Name, code); err != nil {
			log.Error().Err(err).Str("email", email).Msg("service: failed to send reset code")
		}
	}

	log.Info().Str("email", email).Msg("service: password reset code issued")
	return nil
}

func (s *service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	switch {
	case email == "" || code == "" || newPassword == "":
		return apperr.Invalid("", "email, reset code, and new password required")
	case len(newPassword) < MinPasswordLength:
		return apperr.Invalid("newPassword", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}

	expired := false
	_, err := s.repo.Update(ctx, email, func(u *User) error {
		if u.ResetCodeHash == "" || u.ResetCodeExpiry == 0 {
			return ErrNoResetRequest
		}

		if s.clock.Now().UnixMilli() > u.ResetCodeExpiry {
			u.ResetCodeHash = ""
			u.ResetCodeExpiry = 0
			expired = true
			return nil
		}

		if bcrypt.CompareHashAndPassword([]byte(u.ResetCodeHash), []byte(code)) != nil {
			return ErrInvalidResetCode
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("service: failed to generate hash password: %w", err)
		}
		u.PasswordHash = string(hash)
		u.ResetCodeHash = ""
		u.ResetCodeExpiry = 0
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("email", email).Msg("service: password reset rejected")
		return err
	}
	if expired {
		return ErrResetCodeExpired
	}

	log.Info().Str("email", email).Msg("service: password reset")
	return nil
}

// EnsureAdmin seeds the administrator account into an empty users collection.
func (s *service) EnsureAdmin(ctx context.Context, reg Registration) error {
	admin, err := s.newUser(reg, true)
	if err != nil {
		return err
	}

	seeded := false
	err = store.Mutate(ctx, s.store, store.Users, func(users []User) ([]User, error) {
		if len(users) > 0 {
			return users, nil
		}
		seeded = true
		return append(users, *admin), nil
	})
	if err != nil {
		return fmt.Errorf("service: failed to seed admin: %w", err)
	}

	if seeded {
		log.Info().Str("email", reg.Email).Msg("service: admin account seeded")
	}
	return nil
}

func generateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
