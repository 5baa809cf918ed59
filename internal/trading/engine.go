// Package trading implements order submission and the in-process matching
// engine.
package trading

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"bitex_go/internal/domain"
	"bitex_go/internal/infra"
	"bitex_go/internal/marketdata"
	"bitex_go/internal/report"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// book is one symbol's resting limit orders, best price first and FIFO
// within a price level.
type book struct {
	mu   sync.Mutex
	bids []*domain.Order
	asks []*domain.Order
}

// Engine matches orders with price-time priority, one book per symbol.
// Execution reports go out through the report router; trades and book-top
// changes are published on the market-data bus.
type Engine struct {
	log    *slog.Logger
	store  domain.Store
	router *report.Router
	bus    *marketdata.Bus

	mu    sync.Mutex
	books map[string]*book
}

// NewEngine creates a matching engine.
func NewEngine(store domain.Store, router *report.Router, bus *marketdata.Bus, log *slog.Logger) *Engine {
	return &Engine{
		log:    log,
		store:  store,
		router: router,
		bus:    bus,
		books:  make(map[string]*book),
	}
}

func (e *Engine) bookFor(symbol string) *book {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.books[symbol]
	if !ok {
		b = &book{}
		e.books[symbol] = b
	}
	return b
}

// Match crosses o against the book. The order must already carry a durable
// ID. Reports are published in the order the engine produces them; the book
// lock keeps that order stable per symbol.
func (e *Engine) Match(ctx context.Context, o *domain.Order) error {
	b := e.bookFor(o.Symbol)
	b.mu.Lock()
	defer b.mu.Unlock()

	e.publishReport(o, domain.ExecTypeNew, decimal.Zero, decimal.Zero, "")

	opposite := &b.asks
	if !o.IsBuy() {
		opposite = &b.bids
	}

	for o.LeavesQty.IsPositive() && len(*opposite) > 0 {
		best := (*opposite)[0]
		if o.Type == domain.OrderTypeLimit && !crosses(o, best) {
			break
		}

		fillQty := o.LeavesQty
		if best.LeavesQty.LessThan(fillQty) {
			fillQty = best.LeavesQty
		}
		fillPx := best.Price // Resting order sets the price

		applyFill(o, fillQty)
		applyFill(best, fillQty)

		if err := e.store.UpdateOrder(ctx, best); err != nil {
			return fmt.Errorf("persist fill for order %d: %w", best.ID, err)
		}
		if err := e.store.UpdateOrder(ctx, o); err != nil {
			return fmt.Errorf("persist fill for order %d: %w", o.ID, err)
		}

		e.publishReport(o, domain.ExecTypeTrade, fillPx, fillQty, "")
		e.publishReport(best, domain.ExecTypeTrade, fillPx, fillQty, "")
		e.publishTick(o.Symbol, domain.EntryTypeTrade, fillPx, fillQty)

		if best.Status == domain.OrderStatusFilled {
			infra.GlobalMetrics.RecordOrderFilled()
			*opposite = (*opposite)[1:]
		}
	}

	if o.Status == domain.OrderStatusFilled {
		infra.GlobalMetrics.RecordOrderFilled()
	}

	if o.LeavesQty.IsPositive() {
		if o.Type == domain.OrderTypeLimit {
			b.rest(o)
		} else {
			// Market remainder has nothing to cross with
			o.Status = domain.OrderStatusCanceled
			o.LeavesQty = decimal.Zero
			if err := e.store.UpdateOrder(ctx, o); err != nil {
				return fmt.Errorf("persist cancel for order %d: %w", o.ID, err)
			}
			e.publishReport(o, domain.ExecTypeCanceled, decimal.Zero, decimal.Zero, "market order remainder canceled")
		}
	}

	e.publishTopOfBook(o.Symbol, b)
	return nil
}

// crosses reports whether a limit order is marketable against the resting
// best.
func crosses(o, best *domain.Order) bool {
	if o.IsBuy() {
		return o.Price.GreaterThanOrEqual(best.Price)
	}
	return o.Price.LessThanOrEqual(best.Price)
}

func applyFill(o *domain.Order, qty decimal.Decimal) {
	o.CumQty = o.CumQty.Add(qty)
	o.LeavesQty = o.LeavesQty.Sub(qty)
	if o.LeavesQty.IsPositive() {
		o.Status = domain.OrderStatusPartiallyFilled
	} else {
		o.Status = domain.OrderStatusFilled
	}
}

// rest inserts o behind all resting orders at equal or better prices.
func (b *book) rest(o *domain.Order) {
	side := &b.asks
	better := func(a, c *domain.Order) bool { return a.Price.LessThanOrEqual(c.Price) }
	if o.IsBuy() {
		side = &b.bids
		better = func(a, c *domain.Order) bool { return a.Price.GreaterThanOrEqual(c.Price) }
	}

	i := 0
	for i < len(*side) && better((*side)[i], o) {
		i++
	}
	*side = append(*side, nil)
	copy((*side)[i+1:], (*side)[i:])
	(*side)[i] = o
}

func (e *Engine) publishReport(o *domain.Order, execType string, lastPx, lastQty decimal.Decimal, text string) {
	e.router.Publish(o.AccountID, &domain.ExecutionReport{
		MsgType:       "8",
		ExecID:        uuid.NewString(),
		ExecType:      execType,
		OrderID:       o.ID,
		ClientOrderID: o.ClientOrderID,
		AccountID:     o.AccountID,
		Symbol:        o.Symbol,
		Side:          o.Side,
		OrdStatus:     o.Status,
		LastPx:        lastPx,
		LastQty:       lastQty,
		LeavesQty:     o.LeavesQty,
		CumQty:        o.CumQty,
		TransactTime:  time.Now().UTC(),
		Text:          text,
	})
}

func (e *Engine) publishTick(symbol, entryType string, px, qty decimal.Decimal) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(domain.Tick{
		MsgType:   "W",
		Symbol:    symbol,
		EntryType: entryType,
		Price:     px,
		Qty:       qty,
		Time:      time.Now().UTC(),
	})
}

// publishTopOfBook emits the current best bid and offer. Callers hold the
// book lock.
func (e *Engine) publishTopOfBook(symbol string, b *book) {
	if len(b.bids) > 0 {
		best := b.bids[0]
		e.publishTick(symbol, domain.EntryTypeBid, best.Price, best.LeavesQty)
	}
	if len(b.asks) > 0 {
		best := b.asks[0]
		e.publishTick(symbol, domain.EntryTypeOffer, best.Price, best.LeavesQty)
	}
}

// Depth returns the number of resting orders per side (external read).
func (e *Engine) Depth(symbol string) (bids, asks int) {
	b := e.bookFor(symbol)
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.bids), len(b.asks)
}

var _ domain.Matcher = (*Engine)(nil)
