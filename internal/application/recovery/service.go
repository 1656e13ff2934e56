package recovery

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/go-credential-api/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// Application is recorded on credentials created by a completed recovery.
const Application = "recovery"

// Counted event names.
const (
	StatRequested = "password_recovery_requested"
	StatCompleted = "password_recovery_completed"
	StatFailed    = "password_recovery_failed"
)

const (
	defaultCodeTTL     = 15 * time.Minute
	defaultMaxAttempts = 5
)

var errInvalidCode = fmt.Errorf("invalid or expired code: %w", domain.ErrUnauthorized)

// Service runs the email one-time code password recovery flow.
type Service interface {
	RequestPasswordRecovery(ctx context.Context, req domain.PasswordRecoveryRequest) error
	ConfirmPasswordRecovery(ctx context.Context, req domain.PasswordRecoveryConfirmRequest) error
}

type userLookup interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type codeStore interface {
	Put(ctx context.Context, v *domain.UserVerification) error
	Get(ctx context.Context, userID, verType string) (*domain.UserVerification, error)
	IncrementAttempts(ctx context.Context, userID, verType string) (int, error)
	Delete(ctx context.Context, userID, verType string) error
}

type passwordResetter interface {
	ResetPassword(ctx context.Context, userID, newPassword, application string) error
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

type counter interface {
	Count(ctx context.Context, name string, value int64)
}

type service struct {
	users       userLookup
	codes       codeStore
	accounts    passwordResetter
	mailer      mailer
	stats       counter
	logger      *slog.Logger
	codeTTL     time.Duration
	maxAttempts int
	hashCost    int
	now         func() time.Time
	newCode     func() (string, error)
}

type ServiceDeps struct {
	UserRepo    userLookup
	Codes       codeStore
	Accounts    passwordResetter
	Mailer      mailer
	Stats       counter
	Logger      *slog.Logger
	CodeTTL     time.Duration
	MaxAttempts int
	HashCost    int // bcrypt cost for stored codes, 0 selects bcrypt.DefaultCost
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		users:       deps.UserRepo,
		codes:       deps.Codes,
		accounts:    deps.Accounts,
		mailer:      deps.Mailer,
		stats:       deps.Stats,
		logger:      deps.Logger,
		codeTTL:     deps.CodeTTL,
		maxAttempts: deps.MaxAttempts,
		hashCost:    deps.HashCost,
		now:         time.Now,
		newCode:     newCode,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.codeTTL <= 0 {
		s.codeTTL = defaultCodeTTL
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = defaultMaxAttempts
	}
	if s.hashCost < bcrypt.MinCost {
		s.hashCost = bcrypt.DefaultCost
	}
	return s
}

// RequestPasswordRecovery mails a fresh code to the user owning req.Email.
// Unknown addresses succeed silently so the endpoint does not reveal accounts.
func (s *service) RequestPasswordRecovery(ctx context.Context, req domain.PasswordRecoveryRequest) error {
	u, err := s.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Info("password recovery requested for unknown email")
		return nil
	}
	if err != nil {
		return err
	}

	code, err := s.newCode()
	if err != nil {
		return fmt.Errorf("generate recovery code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.hashCost)
	if err != nil {
		return fmt.Errorf("hash recovery code: %w", err)
	}
	v := &domain.UserVerification{
		UserID:    u.UserID,
		Type:      domain.VerificationTypeRecovery,
		CodeHash:  string(hash),
		ExpiresAt: s.now().Add(s.codeTTL).Unix(),
	}
	if err := s.codes.Put(ctx, v); err != nil {
		return err
	}

	body := fmt.Sprintf("Your password recovery code: %s\r\n\r\nIt expires in %d minutes. If you did not ask for it, ignore this message.",
		code, int(s.codeTTL.Minutes()))
	if err := s.mailer.SendEmail(u.Email, "Password recovery code", body); err != nil {
		if derr := s.codes.Delete(ctx, u.UserID, domain.VerificationTypeRecovery); derr != nil {
			s.logger.Warn("failed to delete undelivered recovery code", "user_id", u.UserID, "err", derr)
		}
		return fmt.Errorf("send recovery code: %w", err)
	}
	s.count(ctx, StatRequested)
	s.logger.Info("password recovery code sent", "user_id", u.UserID)
	return nil
}

// ConfirmPasswordRecovery checks the code and, when it matches, resets every
// password of the user to req.NewPassword. A code is used at most once and
// is dropped after too many wrong guesses.
func (s *service) ConfirmPasswordRecovery(ctx context.Context, req domain.PasswordRecoveryConfirmRequest) error {
	u, err := s.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, domain.ErrNotFound) {
		s.count(ctx, StatFailed)
		return errInvalidCode
	}
	if err != nil {
		return err
	}
	v, err := s.codes.Get(ctx, u.UserID, domain.VerificationTypeRecovery)
	if errors.Is(err, domain.ErrNotFound) {
		s.count(ctx, StatFailed)
		return errInvalidCode
	}
	if err != nil {
		return err
	}

	if v.Expired(s.now().Unix()) || v.Attempts >= s.maxAttempts {
		s.discard(ctx, u.UserID)
		s.count(ctx, StatFailed)
		return errInvalidCode
	}
	if bcrypt.CompareHashAndPassword([]byte(v.CodeHash), []byte(req.Code)) != nil {
		s.count(ctx, StatFailed)
		n, err := s.codes.IncrementAttempts(ctx, u.UserID, domain.VerificationTypeRecovery)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("failed to record recovery attempt", "user_id", u.UserID, "err", err)
		}
		if n >= s.maxAttempts {
			s.discard(ctx, u.UserID)
		}
		return errInvalidCode
	}

	// Single use: the code must be gone before the reset runs.
	if err := s.codes.Delete(ctx, u.UserID, domain.VerificationTypeRecovery); err != nil {
		return fmt.Errorf("consume recovery code: %w", err)
	}
	err = s.accounts.ResetPassword(ctx, u.UserID, req.NewPassword, Application)
	if err != nil && !errors.Is(err, domain.ErrSyncFailed) {
		return err
	}
	s.count(ctx, StatCompleted)
	return err
}

func (s *service) discard(ctx context.Context, userID string) {
	if err := s.codes.Delete(ctx, userID, domain.VerificationTypeRecovery); err != nil {
		s.logger.Warn("failed to delete recovery code", "user_id", userID, "err", err)
	}
}

func (s *service) count(ctx context.Context, name string) {
	s.stats.Count(ctx, name, 1)
}

// newCode returns a uniformly random six digit code.
func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
