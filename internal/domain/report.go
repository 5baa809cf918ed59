package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExecType values carried in execution reports.
const (
	ExecTypeNew      = "0"
	ExecTypeCanceled = "4"
	ExecTypeTrade    = "F"
	ExecTypeRejected = "8"
)

// ExecutionReport is the asynchronous notification of an order's
// fill or status change, scoped to an account.
type ExecutionReport struct {
	MsgType       string          `json:"MsgType"` // Always "8"
	ExecID        string          `json:"ExecID"`
	ExecType      string          `json:"ExecType"`
	OrderID       uint            `json:"OrderID"`
	ClientOrderID string          `json:"ClOrdID"`
	AccountID     string          `json:"Account"`
	Symbol        string          `json:"Symbol"`
	Side          string          `json:"Side"`
	OrdStatus     string          `json:"OrdStatus"`
	LastPx        decimal.Decimal `json:"LastPx"`
	LastQty       decimal.Decimal `json:"LastQty"`
	LeavesQty     decimal.Decimal `json:"LeavesQty"`
	CumQty        decimal.Decimal `json:"CumQty"`
	TransactTime  time.Time       `json:"TransactTime"`
	Text          string          `json:"Text,omitempty"`
}
