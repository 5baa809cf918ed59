package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a registered trading account holder.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex" json:"username"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `gorm:"index" json:"email"`
	PasswordHash string    `json:"-"`
	AccountID    string    `gorm:"uniqueIndex" json:"account_id"` // Assigned at signup
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Order represents a trading order. The ID is assigned by the persistence
// layer before the order is handed to the matching engine.
type Order struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	UserID        uint            `gorm:"index" json:"user_id"`
	AccountID     string          `gorm:"index" json:"account_id"`
	ClientOrderID string          `json:"client_order_id"`
	Symbol        string          `gorm:"index" json:"symbol"`
	Side          string          `json:"side"` // "1" Buy, "2" Sell
	Type          string          `json:"type"` // "1" Market, "2" Limit
	Price         decimal.Decimal `gorm:"type:numeric" json:"price"` // Zero for market orders
	Qty           decimal.Decimal `gorm:"type:numeric" json:"qty"`
	LeavesQty     decimal.Decimal `gorm:"type:numeric" json:"leaves_qty"`
	CumQty        decimal.Decimal `gorm:"type:numeric" json:"cum_qty"`
	Status        string          `gorm:"index" json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
