// Package storage provides the durable store for users and orders.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"bitex_go/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store implements domain.Store on SQLite. Every operation runs in its own
// transaction; the gorm handle itself is safe for concurrent use, so
// sessions never share a unit of work.
type Store struct {
	db *gorm.DB
}

// NewStore opens (or creates) the database at path and migrates the schema.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Pure Go SQLite
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&domain.User{}, &domain.Order{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// Authenticate looks up the user by username and verifies the password.
// Both an unknown username and a hash mismatch return ErrBadCredentials, so
// callers cannot distinguish the two.
func (s *Store) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).First(&user, "username = ?", username).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrBadCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("authenticate %s: %w", username, err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrBadCredentials
	}
	return &user, nil
}

// CreateUser persists a new user, hashing the password and assigning a
// fresh account ID.
func (s *Store) CreateUser(ctx context.Context, u *domain.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	u.AccountID = uuid.NewString()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.User{}).Where("username = ?", u.Username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrDuplicateUsername
		}
		return tx.Create(u).Error
	})
}

// CreateOrder persists a new order, assigning its durable ID. The order is
// stored with status New and its full quantity open.
func (s *Store) CreateOrder(ctx context.Context, o *domain.Order) error {
	o.Status = domain.OrderStatusNew
	o.LeavesQty = o.Qty

	if err := s.db.WithContext(ctx).Create(o).Error; err != nil {
		return fmt.Errorf("create order %s: %w", o.ClientOrderID, err)
	}
	return nil
}

// UpdateOrder persists fill/status changes for an existing order.
func (s *Store) UpdateOrder(ctx context.Context, o *domain.Order) error {
	if err := s.db.WithContext(ctx).Save(o).Error; err != nil {
		return fmt.Errorf("update order %d: %w", o.ID, err)
	}
	return nil
}

// OrdersByAccount returns all orders for an account, oldest first.
func (s *Store) OrdersByAccount(ctx context.Context, accountID string) ([]domain.Order, error) {
	var orders []domain.Order
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("id asc").
		Find(&orders).Error
	return orders, err
}
