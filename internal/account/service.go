package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/kjstillabower/weatherx-dashboard/internal/validation"
)

// RegisterRequest is the body of POST /accounts.
type RegisterRequest struct {
	Email    string `json:"email" validate:"account_email"`
	Password string `json:"password" validate:"account_password,password_bytes"`
	City     string `json:"city" validate:"city"`
}

// Service registers accounts and verifies logins.
type Service struct {
	store  Store
	cost   int
	clock  clockwork.Clock
	logger *zap.Logger
}

// NewService builds a Service. cost is the bcrypt cost; zero uses bcrypt.DefaultCost.
func NewService(store Store, cost int, clock clockwork.Clock, logger *zap.Logger) *Service {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, cost: cost, clock: clock, logger: logger}
}

// Register validates the request, hashes the password and stores the account.
// Validation failures are returned as the validation package's sentinel errors.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (Account, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.City = strings.TrimSpace(req.City)
	if err := validation.Struct(req); err != nil {
		return Account{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return Account{}, fmt.Errorf("hash password: %w", err)
	}
	a := Account{
		Email:        normalizeEmail(req.Email),
		PasswordHash: string(hash),
		City:         req.City,
		CreatedAt:    s.clock.Now().UTC(),
	}
	if err := s.store.Create(ctx, a); err != nil {
		return Account{}, err
	}
	s.logger.Info("account registered", zap.String("city", a.City))
	return a, nil
}

// Authenticate returns the account when the password matches. Unknown emails and
// wrong passwords both yield ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Account, error) {
	a, err := s.store.Get(ctx, email)
	if errors.Is(err, ErrAccountNotFound) {
		return Account{}, ErrInvalidCredentials
	}
	if err != nil {
		return Account{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return Account{}, ErrInvalidCredentials
	}
	return a, nil
}

// RequestPasswordReset only checks that the account exists; no message is sent.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	if !validation.ValidEmail(strings.TrimSpace(email)) {
		return validation.ErrInvalidEmail
	}
	if _, err := s.store.Get(ctx, email); err != nil {
		return err
	}
	s.logger.Info("password reset requested")
	return nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
