package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/servicehub/core/logger"
	"github.com/dmitrymomot/servicehub/internal/identity"
	"github.com/dmitrymomot/servicehub/internal/store"
	"github.com/dmitrymomot/servicehub/pkg/retry"
)

const MinPasswordLength = 8

// dummyHash keeps Authenticate's timing the same for unknown emails.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("servicehub-timing-pad"), bcrypt.DefaultCost)

type Service struct {
	repo   Repository
	cost   int
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Service)

// WithBcryptCost overrides bcrypt.DefaultCost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.logger = log }
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("account"))
	return s
}

// Register creates a customer account. Admins are only created by EnsureAdmin.
func (s *Service) Register(ctx context.Context, email, password, name string) (Account, error) {
	acc, err := s.newAccount(identity.KindCustomer, email, password, name)
	if err != nil {
		return Account{}, err
	}
	if err := s.create(ctx, acc); err != nil {
		return Account{}, err
	}
	s.logger.InfoContext(ctx, "customer registered", logger.CustomerID(acc.ID.String()))
	return acc, nil
}

// Authenticate checks credentials within one identity domain.
// Unknown email and wrong password both yield ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, kind identity.Kind, email, password string) (Account, error) {
	if !kind.Valid() {
		return Account{}, identity.ErrInvalidKind
	}
	email, err := NormalizeEmail(email)
	if err != nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return Account{}, ErrInvalidCredentials
	}

	var acc Account
	err = retry.Once(ctx, func(ctx context.Context) error {
		var err error
		acc, err = s.repo.AccountByEmail(ctx, kind, email)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return Account{}, ErrInvalidCredentials
	}
	if err != nil {
		return Account{}, fmt.Errorf("lookup account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(password)); err != nil {
		return Account{}, ErrInvalidCredentials
	}
	return acc, nil
}

// Get returns the account of a resolved principal.
func (s *Service) Get(ctx context.Context, kind identity.Kind, id uuid.UUID) (Account, error) {
	var acc Account
	err := retry.Once(ctx, func(ctx context.Context) error {
		var err error
		acc, err = s.repo.AccountByID(ctx, kind, id)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("get account: %w", err)
	}
	return acc, nil
}

// EnsureAdmin creates the bootstrap admin if missing. When it exists and the
// password no longer matches, the stored hash is replaced.
func (s *Service) EnsureAdmin(ctx context.Context, email, password, name string) (Account, error) {
	acc, err := s.newAccount(identity.KindAdmin, email, password, name)
	if err != nil {
		return Account{}, err
	}

	existing, err := s.repo.AccountByEmail(ctx, identity.KindAdmin, acc.Email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if err := s.create(ctx, acc); err != nil {
			return Account{}, err
		}
		s.logger.InfoContext(ctx, "admin account created", logger.UserID(acc.ID.String()))
		return acc, nil
	case err != nil:
		return Account{}, fmt.Errorf("lookup admin: %w", err)
	}

	if bcrypt.CompareHashAndPassword(existing.PasswordHash, []byte(password)) == nil {
		return existing, nil
	}
	if err := s.repo.UpdatePassword(ctx, identity.KindAdmin, existing.ID, acc.PasswordHash); err != nil {
		return Account{}, fmt.Errorf("update admin password: %w", err)
	}
	existing.PasswordHash = acc.PasswordHash
	s.logger.InfoContext(ctx, "admin password rotated", logger.UserID(existing.ID.String()))
	return existing, nil
}

func (s *Service) newAccount(kind identity.Kind, email, password, name string) (Account, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return Account{}, err
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return Account{}, ErrWeakPassword
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Account{}, ErrNameRequired
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return Account{}, fmt.Errorf("hash password: %w", err)
	}

	return Account{
		ID:           uuid.New(),
		Kind:         kind,
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}, nil
}

func (s *Service) create(ctx context.Context, acc Account) error {
	err := s.repo.CreateAccount(ctx, acc)
	if errors.Is(err, store.ErrDuplicate) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}
