package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"bitex_go/internal/domain"

	"github.com/shopspring/decimal"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "bitex.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return s
}

func TestStore_CreateUserAndAuthenticate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := &domain.User{Username: "alice", Email: "alice@example.com"}
	if err := s.CreateUser(ctx, u, "s3cret"); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if u.ID == 0 {
		t.Error("CreateUser should assign an ID")
	}
	if u.AccountID == "" {
		t.Error("CreateUser should assign an account ID")
	}
	if u.PasswordHash == "s3cret" {
		t.Error("password must not be stored in plaintext")
	}

	t.Run("valid credentials", func(t *testing.T) {
		got, err := s.Authenticate(ctx, "alice", "s3cret")
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		if got.AccountID != u.AccountID {
			t.Errorf("AccountID = %q, want %q", got.AccountID, u.AccountID)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		if _, err := s.Authenticate(ctx, "alice", "wrong"); !errors.Is(err, domain.ErrBadCredentials) {
			t.Errorf("expected ErrBadCredentials, got %v", err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		if _, err := s.Authenticate(ctx, "mallory", "s3cret"); !errors.Is(err, domain.ErrBadCredentials) {
			t.Errorf("expected ErrBadCredentials, got %v", err)
		}
	})

	t.Run("duplicate username", func(t *testing.T) {
		err := s.CreateUser(ctx, &domain.User{Username: "alice"}, "other")
		if !errors.Is(err, domain.ErrDuplicateUsername) {
			t.Errorf("expected ErrDuplicateUsername, got %v", err)
		}
	})
}

func TestStore_CreateOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	o := &domain.Order{
		UserID:        1,
		AccountID:     "acct-7",
		ClientOrderID: "c1",
		Symbol:        "BTCUSD",
		Side:          domain.SideBuy,
		Type:          domain.OrderTypeLimit,
		Price:         decimal.RequireFromString("50000"),
		Qty:           decimal.RequireFromString("0.5"),
	}
	if err := s.CreateOrder(ctx, o); err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	if o.ID == 0 {
		t.Error("CreateOrder should assign a durable ID")
	}
	if o.Status != domain.OrderStatusNew {
		t.Errorf("Status = %q, want %q", o.Status, domain.OrderStatusNew)
	}
	if !o.LeavesQty.Equal(o.Qty) {
		t.Errorf("LeavesQty = %s, want %s", o.LeavesQty, o.Qty)
	}

	t.Run("update persists fills", func(t *testing.T) {
		o.Status = domain.OrderStatusFilled
		o.CumQty = o.Qty
		o.LeavesQty = decimal.Zero
		if err := s.UpdateOrder(ctx, o); err != nil {
			t.Fatalf("UpdateOrder failed: %v", err)
		}

		orders, err := s.OrdersByAccount(ctx, "acct-7")
		if err != nil {
			t.Fatalf("OrdersByAccount failed: %v", err)
		}
		if len(orders) != 1 || orders[0].Status != domain.OrderStatusFilled {
			t.Errorf("orders = %+v", orders)
		}
	})
}
