package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// FIX MDEntryType values.
const (
	EntryTypeBid   = "0"
	EntryTypeOffer = "1"
	EntryTypeTrade = "2"
)

// Tick is one market-data update on an (instrument, entry type) feed.
type Tick struct {
	MsgType   string          `json:"MsgType"` // Always "W"
	Symbol    string          `json:"Symbol"`
	EntryType string          `json:"MDEntryType"`
	Price     decimal.Decimal `json:"MDEntryPx"`
	Qty       decimal.Decimal `json:"MDEntrySize"`
	Time      time.Time       `json:"MDEntryTime"`
}

// TickHandler delivers a tick to one subscriber.
type TickHandler func(Tick)
