// Package shop is the storefront use-case layer. It loads the tax rate once per
// operation, hands it to the pricing package and talks to storage through the store
// functions. HTTP and CLI callers only see this package.
package shop

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/logging"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
	"github.com/shopspring/decimal"
)

var (
	ErrDuplicateCheckout = errors.New("checkout already in progress for this idempotency key")
	ErrInvalidAccount    = errors.New("email and username are required")
)

type IdempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Release(ctx context.Context, scope, key string) error
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
}

type AccountNotifier interface {
	NotifyAccountCreated(ctx context.Context, email string) error
}

// Viewer is the identity a read is performed for. Staff see every order.
type Viewer struct {
	UserID int64
	Staff  bool
}

type Service struct {
	db       *sql.DB
	idem     IdempotencyStore
	notifier AccountNotifier
}

type Option func(*Service)

// WithIdempotency enables X-Idempotency-Key handling on checkout.
func WithIdempotency(idem IdempotencyStore) Option {
	return func(s *Service) { s.idem = idem }
}

func WithNotifier(n AccountNotifier) Option {
	return func(s *Service) { s.notifier = n }
}

func New(db *sql.DB, opts ...Option) *Service {
	s := &Service{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates the account and publishes the account-created event. Publishing is
// best effort: a failure is logged and the account is still returned.
func (s *Service) Register(ctx context.Context, email, username string) (*models.User, error) {
	email = strings.TrimSpace(email)
	username = strings.TrimSpace(username)
	if email == "" || username == "" {
		return nil, ErrInvalidAccount
	}

	user, err := store.CreateUser(ctx, s.db, email, username, false)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyAccountCreated(ctx, user.Email); err != nil {
			logging.FromCtx(ctx).Warn("account notification failed", "user_id", user.ID, "error", err)
		}
	}

	return user, nil
}

func (s *Service) Profile(ctx context.Context, userID int64) (*models.User, error) {
	return store.GetUser(ctx, s.db, userID)
}

func (s *Service) ListProducts(ctx context.Context, search string, page, pageSize int) (*store.OffsetPage, error) {
	return store.ListProducts(ctx, s.db, search, page, pageSize)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	return store.GetProduct(ctx, s.db, id)
}

func (s *Service) SetTaxPercent(ctx context.Context, tax decimal.Decimal) (*models.SiteSettings, error) {
	settings, err := store.SetTaxPercent(ctx, s.db, tax)
	if err != nil {
		return nil, err
	}
	logging.FromCtx(ctx).Info("tax percent updated", "tax_percent", settings.TaxPercent.String())
	return settings, nil
}

func (s *Service) ListAddresses(ctx context.Context, userID int64) ([]models.Address, error) {
	return store.ListAddresses(ctx, s.db, userID)
}

func (s *Service) CreateAddress(ctx context.Context, userID int64, a models.Address) (*models.Address, error) {
	a.UserID = userID
	return store.CreateAddress(ctx, s.db, a)
}

// Address returns one of the user's addresses; other users' addresses read as missing.
func (s *Service) Address(ctx context.Context, userID, id int64) (*models.Address, error) {
	a, err := store.GetAddress(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		return nil, database.ErrAddressNotFound
	}
	return a, nil
}

// UpdateAddress only touches addresses owned by userID.
func (s *Service) UpdateAddress(ctx context.Context, userID, id int64, a models.Address) (*models.Address, error) {
	a.ID = id
	a.UserID = userID
	return store.UpdateAddress(ctx, s.db, a)
}

func (s *Service) Favorites(ctx context.Context, userID int64) ([]int64, error) {
	return store.ListFavoriteProductIDs(ctx, s.db, userID)
}

// ToggleFavorite reports whether the product is a favorite after the call.
func (s *Service) ToggleFavorite(ctx context.Context, userID, productID int64) (bool, error) {
	return store.ToggleFavorite(ctx, s.db, userID, productID)
}
