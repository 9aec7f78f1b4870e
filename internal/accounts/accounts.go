// Package accounts registers and authenticates users stored through gorm.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	applog "hopper/internal/log"
	"hopper/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountLocked      = errors.New("account is locked")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrDuplicate          = errors.New("account already exists")
	ErrNotFound           = errors.New("account not found")
)

// ValidationError reports a rejected registration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// DuplicateError names the field that collided with an existing account.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s is already taken", e.Field)
}

func (e *DuplicateError) Unwrap() error {
	return ErrDuplicate
}

// Registration holds the details of a new account.
type Registration struct {
	Username string
	Email    string
	Password string
}

// Service implements account operations on a gorm handle.
type Service struct {
	db   *gorm.DB
	cost int
	now  func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithBcryptCost overrides the hashing cost; tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		s.cost = cost
	}
}

func NewService(db *gorm.DB, opts ...Option) *Service {
	s := &Service{db: db, cost: bcrypt.DefaultCost, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizeIdentifier trims the login identifier and lower-cases it when it looks like an email.
func NormalizeIdentifier(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		return strings.ToLower(identifier)
	}
	return identifier
}

// Validate checks a registration without touching the database.
func (r Registration) Validate() error {
	username := strings.TrimSpace(r.Username)
	if n := utf8.RuneCountInString(username); n < 3 || n > 50 {
		return &ValidationError{Field: "username", Message: "Username must be between 3 and 50 characters"}
	}
	email := strings.TrimSpace(r.Email)
	if email == "" {
		return &ValidationError{Field: "email", Message: "Email is required"}
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return &ValidationError{Field: "email", Message: "Email must be a valid address"}
	}
	if utf8.RuneCountInString(r.Password) < 8 {
		return &ValidationError{Field: "password", Message: "Password must be at least 8 characters"}
	}
	return nil
}

// Register creates an enabled USER account.
func (s *Service) Register(ctx context.Context, r Registration) (models.User, error) {
	if err := r.Validate(); err != nil {
		return models.User{}, err
	}

	username := strings.TrimSpace(r.Username)
	email := strings.ToLower(strings.TrimSpace(r.Email))

	if taken, err := s.exists(ctx, "username = ?", username); err != nil {
		return models.User{}, err
	} else if taken {
		return models.User{}, &DuplicateError{Field: "username"}
	}
	if taken, err := s.exists(ctx, "email = ?", email); err != nil {
		return models.User{}, err
	} else if taken {
		return models.User{}, &DuplicateError{Field: "email"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(r.Password), s.cost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Enabled:      true,
		Roles:        models.RoleList{models.RoleUser},
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.User{}, &DuplicateError{Field: "username or email"}
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}

	applog.Info(ctx, "user registered", "user", user.ID, "username", user.Username)
	return user, nil
}

// Authenticate verifies credentials. Every failed password check counts towards the lockout
// threshold; a successful one resets it and stamps the login time.
func (s *Service) Authenticate(ctx context.Context, identifier, password string) (models.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return models.User{}, ErrInvalidCredentials
	}
	email := strings.ToLower(identifier)

	// Usernames may contain "@", so both columns are searched and a username match wins.
	var user models.User
	err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", identifier, email).
		Order(clause.OrderBy{Expression: clause.Expr{
			SQL:                "CASE WHEN username = ? THEN 0 ELSE 1 END",
			Vars:               []any{identifier},
			WithoutParentheses: true,
		}}).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			applog.Debug(ctx, "login for unknown account", "identifier", identifier)
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, fmt.Errorf("load user: %w", err)
	}

	if user.AccountLocked {
		return models.User{}, ErrAccountLocked
	}
	if !user.Enabled {
		return models.User{}, ErrAccountDisabled
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		user.RecordFailedLogin()
		if saveErr := s.saveLoginState(ctx, &user); saveErr != nil {
			return models.User{}, saveErr
		}
		applog.Warn(ctx, "failed login attempt", "user", user.ID, "attempts", user.FailedLoginAttempts, "locked", user.AccountLocked)
		return models.User{}, ErrInvalidCredentials
	}

	user.RecordSuccessfulLogin(s.now().UTC())
	if err := s.saveLoginState(ctx, &user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// Get loads a user by id.
func (s *Service) Get(ctx context.Context, id string) (models.User, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return models.User{}, ErrNotFound
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", parsed).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func (s *Service) exists(ctx context.Context, query string, arg any) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where(query, arg).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check existing user: %w", err)
	}
	return count > 0, nil
}

func (s *Service) saveLoginState(ctx context.Context, user *models.User) error {
	err := s.db.WithContext(ctx).Model(user).
		Select("FailedLoginAttempts", "AccountLocked", "LastLogin").
		Updates(user).Error
	if err != nil {
		return fmt.Errorf("update login state: %w", err)
	}
	return nil
}
